package ajarin

import (
	"encoding/json"
	"testing"
)

func TestUnwrapEnvelopeStandard(t *testing.T) {
	body := []byte(`{"success":true,"data":["AI Basics","Prompting"]}`)

	payload, shape := UnwrapEnvelope(body, "")
	if shape != ShapeStandard {
		t.Fatalf("shape = %v, want standard", shape)
	}

	var topics []string
	if err := json.Unmarshal(payload, &topics); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if len(topics) != 2 || topics[0] != "AI Basics" || topics[1] != "Prompting" {
		t.Errorf("payload = %v, want [AI Basics Prompting]", topics)
	}
}

func TestUnwrapEnvelopeStandardKeyed(t *testing.T) {
	body := []byte(`{"success":true,"data":{"modules":[{"id":1}],"meta":{"page":1}}}`)

	payload, shape := UnwrapEnvelope(body, "modules")
	if shape != ShapeStandard {
		t.Fatalf("shape = %v, want standard", shape)
	}

	var modules []map[string]int
	if err := json.Unmarshal(payload, &modules); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if len(modules) != 1 || modules[0]["id"] != 1 {
		t.Errorf("payload = %v, want one module with id 1", modules)
	}
}

func TestUnwrapEnvelopeLegacyKeyed(t *testing.T) {
	body := []byte(`{"success":true,"challenges":[{"id":7}]}`)

	payload, shape := UnwrapEnvelope(body, "challenges")
	if shape != ShapeLegacy {
		t.Fatalf("shape = %v, want legacy", shape)
	}

	var challenges []map[string]int
	if err := json.Unmarshal(payload, &challenges); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if len(challenges) != 1 || challenges[0]["id"] != 7 {
		t.Errorf("payload = %v, want one challenge with id 7", challenges)
	}
}

func TestUnwrapEnvelopeBare(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bare object", `{"id":3,"title":"Neural Networks"}`},
		{"bare array", `[1,2,3]`},
		{"bare string", `"ok"`},
		{"empty body", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, shape := UnwrapEnvelope([]byte(tt.body), "")
			if shape != ShapeBare {
				t.Errorf("shape = %v, want bare", shape)
			}
			if string(payload) != tt.body {
				t.Errorf("payload = %q, want body unchanged", payload)
			}
		})
	}
}

func TestUnwrapEnvelopeUnrecognized(t *testing.T) {
	// Envelope-looking body (has success) but no data and no expected key:
	// passed through unchanged, tagged explicitly.
	body := []byte(`{"success":true,"message":"ok"}`)

	payload, shape := UnwrapEnvelope(body, "modules")
	if shape != ShapeUnrecognized {
		t.Fatalf("shape = %v, want unrecognized", shape)
	}
	if string(payload) != string(body) {
		t.Errorf("payload = %q, want body unchanged", payload)
	}
}

func TestUnwrapEnvelopeKeyedWithoutSuccess(t *testing.T) {
	body := []byte(`{"lessons":[{"id":9}],"count":1}`)

	payload, shape := UnwrapEnvelope(body, "lessons")
	if shape != ShapeLegacy {
		t.Fatalf("shape = %v, want legacy", shape)
	}
	var lessons []map[string]int
	if err := json.Unmarshal(payload, &lessons); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if len(lessons) != 1 || lessons[0]["id"] != 9 {
		t.Errorf("payload = %v, want one lesson with id 9", lessons)
	}
}

func TestEnvelopeShapeString(t *testing.T) {
	shapes := map[EnvelopeShape]string{
		ShapeStandard:     "standard",
		ShapeLegacy:       "legacy",
		ShapeBare:         "bare",
		ShapeUnrecognized: "unrecognized",
	}
	for shape, want := range shapes {
		if got := shape.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
