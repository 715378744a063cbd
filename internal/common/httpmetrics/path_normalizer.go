package httpmetrics

import "strings"

var knownPaths = map[string]struct{}{
	"/":              {},
	"/health":        {},
	"/metrics":       {},
	"/auth/register": {},
	"/auth/login":    {},
	"/auth/refresh":  {},
	"/auth/me":       {},
}

// NormalizePath maps a request path onto a bounded label set. Unknown paths
// collapse into "other" so scanners cannot blow up label cardinality.
func NormalizePath(path string) string {
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	if _, ok := knownPaths[path]; ok {
		return path
	}
	return "other"
}
