package idempotency

import (
	"encoding/json"
	"log"
	"strings"
)

// RedactionMarker replaces the value of any sensitive field in a persisted
// response snapshot.
const RedactionMarker = "[REDACTED]"

// sensitiveTerms are matched as substrings of the lowercased key name, at
// any nesting depth. Covers credentials, tokens, PII (national id, bank
// card, phone) and third-party account identifiers.
var sensitiveTerms = []string{
	"password",
	"token",
	"secret",
	"credential",
	"access_key",
	"private_key",
	"session_key",
	"id_card",
	"bank_card",
	"phone",
	"mobile",
	"openid",
	"unionid",
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, term := range sensitiveTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// SanitizeResponse returns a deep copy of response with every sensitive
// field replaced by RedactionMarker, at any depth. Non-matching keys and
// values pass through unchanged, nested arrays and objects included.
func SanitizeResponse(response map[string]any) map[string]any {
	if response == nil {
		return nil
	}
	out := make(map[string]any, len(response))
	for k, v := range response {
		if isSensitiveKey(k) {
			out[k] = RedactionMarker
			continue
		}
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return SanitizeResponse(t)
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = sanitizeValue(val)
		}
		return out
	default:
		return v
	}
}

// BuildSnapshot sanitizes response and enforces the snapshot size policy:
// below the soft ceiling the sanitized copy is stored as-is; between soft
// and hard it is stored with a warning logged; above the hard ceiling the
// bulk payload is dropped and only a minimal envelope survives, so replay
// consumers can still tell success from failure.
func (s *Service) BuildSnapshot(response map[string]any, key, businessEventID string) map[string]any {
	// A completed record always carries a snapshot, even when the handler
	// produced no JSON body.
	sanitized := SanitizeResponse(response)
	if sanitized == nil {
		sanitized = map[string]any{}
	}

	raw, err := json.Marshal(sanitized)
	if err != nil {
		log.Printf("[idempotency] snapshot marshal failed for key %s: %v", key, err)
		return map[string]any{"_truncated": true, "business_event_id": businessEventID}
	}
	size := len(raw)

	switch {
	case size <= s.cfg.SoftSnapshotLimit:
		return sanitized
	case size <= s.cfg.HardSnapshotLimit:
		log.Printf("[idempotency] WARN: snapshot for key %s is %d bytes (soft ceiling %d)", key, size, s.cfg.SoftSnapshotLimit)
		return sanitized
	}

	log.Printf("[idempotency] snapshot for key %s is %d bytes, above hard ceiling %d; storing envelope only", key, size, s.cfg.HardSnapshotLimit)
	envelope := map[string]any{
		"_truncated":     true,
		"_original_size": size,
	}
	for _, field := range []string{"success", "code", "message"} {
		if v, ok := sanitized[field]; ok {
			envelope[field] = v
		}
	}
	if businessEventID != "" {
		envelope["business_event_id"] = businessEventID
	}
	return envelope
}

// extractResponseCode pulls the short result classifier out of a business
// response, defaulting to SUCCESS when the handler did not set one.
func extractResponseCode(response map[string]any) string {
	if code, ok := response["code"].(string); ok && code != "" {
		return code
	}
	return "SUCCESS"
}
