package ajarin

import (
	"bytes"
	"encoding/json"
)

// EnvelopeShape tags which of the backend's known response shapes a body
// matched. Unrecognized is explicit: the body is passed through unchanged
// and logged, never silently best-effort guessed.
type EnvelopeShape int

const (
	// ShapeStandard is the standardized envelope {success, data}.
	ShapeStandard EnvelopeShape = iota
	// ShapeLegacy is the legacy keyed envelope {success, <entityKey>: ...}.
	ShapeLegacy
	// ShapeBare is a payload with no envelope at all.
	ShapeBare
	// ShapeUnrecognized is an envelope-looking body matching no known shape.
	ShapeUnrecognized
)

// String returns the shape name for logging.
func (s EnvelopeShape) String() string {
	switch s {
	case ShapeStandard:
		return "standard"
	case ShapeLegacy:
		return "legacy"
	case ShapeBare:
		return "bare"
	default:
		return "unrecognized"
	}
}

// UnwrapEnvelope extracts the innermost meaningful payload from a raw
// decoded body, preferring data.<key> over data over body.<key> over the
// body itself. entityKey may be empty. No known shape matching is not an
// error: the body comes back unchanged tagged ShapeUnrecognized.
func UnwrapEnvelope(body []byte, entityKey string) ([]byte, EnvelopeShape) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return body, ShapeBare
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return body, ShapeBare
	}

	if data, ok := fields["data"]; ok {
		if entityKey != "" {
			var inner map[string]json.RawMessage
			if err := json.Unmarshal(data, &inner); err == nil {
				if keyed, ok := inner[entityKey]; ok {
					return keyed, ShapeStandard
				}
			}
		}
		return data, ShapeStandard
	}

	if _, hasSuccess := fields["success"]; hasSuccess {
		if entityKey != "" {
			if keyed, ok := fields[entityKey]; ok {
				return keyed, ShapeLegacy
			}
		}
		return body, ShapeUnrecognized
	}

	if entityKey != "" {
		if keyed, ok := fields[entityKey]; ok {
			return keyed, ShapeLegacy
		}
	}

	return body, ShapeBare
}
