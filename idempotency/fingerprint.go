package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// RequestDescriptor is the inbound contract handed over by the routing
// layer: the acting principal plus the literal request coordinates.
type RequestDescriptor struct {
	UserID     string            `json:"user_id"`
	HTTPMethod string            `json:"http_method"`
	APIPath    string            `json:"api_path"`
	Query      map[string]string `json:"query"`
	Body       map[string]any    `json:"body"`
}

// metadataKeys never influence the business outcome of a request, so they
// are stripped from the body before fingerprinting. Retries carry fresh
// nonces/signatures/timestamps; the fingerprint must not see them.
var metadataKeys = map[string]bool{
	"nonce":           true,
	"sign":            true,
	"signature":       true,
	"timestamp":       true,
	"trace_id":        true,
	"request_id":      true,
	"idempotency_key": true,
	"idempotencyKey":  true,
}

// Fingerprint computes the deterministic hex digest over the
// business-relevant content of req. The raw path is replaced by its
// canonical operation, so two path versions of the same action hash
// identically; object keys are sorted recursively, so field ordering
// never matters.
func Fingerprint(req RequestDescriptor) (string, error) {
	operation, err := ResolveOperation(req.APIPath)
	if err != nil {
		return "", err
	}

	body := make(map[string]any, len(req.Body))
	for k, v := range req.Body {
		if metadataKeys[k] {
			continue
		}
		body[k] = canonicalValue(v)
	}

	payload := map[string]any{
		"user_id":   req.UserID,
		"method":    req.HTTPMethod,
		"operation": operation,
		"query":     req.Query,
		"body":      body,
	}

	// Canonical serialization: encoding/json writes map keys in sorted
	// order, and canonicalValue has already rebuilt every nested object
	// as a map, so the byte stream is deterministic.
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// canonicalValue rebuilds v with every nested object as a plain
// map[string]any (arrays recurse element-wise, scalars and nil pass
// through unchanged).
func canonicalValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = canonicalValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = canonicalValue(val)
		}
		return out
	default:
		return v
	}
}
