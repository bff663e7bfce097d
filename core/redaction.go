package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const RedactedValue = "[REDACTED]"

// TokenFingerprint identifies a credential in logs without revealing it.
// It hashes the exact bytes so distinct tokens never share a fingerprint.
func TokenFingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])[:12]
}

// RedactFields masks credential-like values before they reach a logger.
func RedactFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	target := make(map[string]any, len(fields))
	for key, value := range fields {
		if shouldRedactKey(key) {
			target[key] = RedactedValue
			continue
		}
		if nested, ok := value.(map[string]any); ok {
			target[key] = RedactFields(nested)
			continue
		}
		target[key] = value
	}
	return target
}

func shouldRedactKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" || isTraceabilityKey(key) {
		return false
	}
	for _, marker := range []string{"password", "secret", "token", "authorization", "credential"} {
		if strings.Contains(key, marker) {
			return true
		}
	}
	return false
}

func isTraceabilityKey(key string) bool {
	switch key {
	case "token_fingerprint",
		"platform_user_id",
		"remote_user_id",
		"remote_instance",
		"remote_account_id",
		"platform_id",
		"trace_id",
		"request_id":
		return true
	default:
		return false
	}
}
