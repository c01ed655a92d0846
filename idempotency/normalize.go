package idempotency

import (
	"regexp"
	"strings"
)

var (
	uuidSegment    = regexp.MustCompile(`^(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	numericSegment = regexp.MustCompile(`^[0-9]+$`)
	placeholder    = regexp.MustCompile(`^:[A-Za-z_][A-Za-z0-9_]*$`)
)

// codePrefixes are path segments whose immediate successor is a
// configuration-entity code (activity codes, asset-type codes, feature-flag
// keys, settings categories). A code segment is only rewritten when it
// directly follows one of these, to avoid swallowing static route words.
var codePrefixes = map[string]bool{
	"activities":    true,
	"campaigns":     true,
	"asset-types":   true,
	"feature-flags": true,
	"settings":      true,
	"prizes":        true,
}

// NormalizePath rewrites concrete identifiers in an API path to typed
// placeholders: UUID segments become :uuid, numeric segments :id, declared
// configuration-entity codes :code, and any leftover named placeholder
// (":word") collapses to :id. An empty path is returned unchanged.
func NormalizePath(path string) string {
	if path == "" {
		return ""
	}

	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		switch {
		case uuidSegment.MatchString(seg):
			segments[i] = ":uuid"
		case numericSegment.MatchString(seg):
			segments[i] = ":id"
		case i > 0 && codePrefixes[segments[i-1]]:
			segments[i] = ":code"
		case placeholder.MatchString(seg) && seg != ":id" && seg != ":code" && seg != ":uuid":
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}
