package ajarin

import "strings"

// publicMarker is the path prefix for routes that bypass normalization and
// must never carry an Authorization header.
const publicMarker = "/public"

// versionPrefixes are redundant API-version prefixes stripped during
// normalization so every caller produces the same canonical route.
var versionPrefixes = []string{"/api/v1", "/api"}

// NormalizeEndpoint canonicalizes a caller-supplied path: leading slash
// enforced, trailing slash stripped (except root), redundant version prefix
// removed. Paths beginning with the public marker pass through unchanged.
// Invalid input degrades to a slash-prefixed form rather than failing.
func NormalizeEndpoint(path string) string {
	if path == "" {
		return "/"
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	if isPublicPassthrough(path) {
		return path
	}

	for _, prefix := range versionPrefixes {
		if path == prefix {
			path = "/"
			break
		}
		if strings.HasPrefix(path, prefix+"/") {
			path = path[len(prefix):]
			break
		}
	}

	for len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}

	return path
}

// isPublicPassthrough reports whether the path starts with the public
// marker as its first segment.
func isPublicPassthrough(path string) bool {
	return path == publicMarker || strings.HasPrefix(path, publicMarker+"/")
}

// IsPublicRoute reports whether a normalized path is public and therefore
// must not receive an Authorization header. Both marker-prefixed routes and
// routes with an embedded public segment (e.g. /modules/public/topics, as
// the backend exposes) qualify.
func IsPublicRoute(path string) bool {
	if isPublicPassthrough(path) {
		return true
	}
	return strings.Contains(path, publicMarker+"/") || strings.HasSuffix(path, publicMarker)
}
