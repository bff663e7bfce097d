package core

import "testing"

func TestRedactFields(t *testing.T) {
	redacted := RedactFields(map[string]any{
		"token":             "glpat-secret",
		"token_fingerprint": "abc123",
		"remote_user_id":    "42",
		"nested": map[string]any{
			"access_token": "also-secret",
			"user_name":    "bob",
		},
	})
	if redacted["token"] != RedactedValue {
		t.Fatalf("expected token to be redacted, got %#v", redacted["token"])
	}
	if redacted["token_fingerprint"] != "abc123" {
		t.Fatalf("expected fingerprint to survive, got %#v", redacted["token_fingerprint"])
	}
	if redacted["remote_user_id"] != "42" {
		t.Fatalf("expected remote user id to survive")
	}
	nested := redacted["nested"].(map[string]any)
	if nested["access_token"] != RedactedValue {
		t.Fatalf("expected nested token to be redacted")
	}
	if nested["user_name"] != "bob" {
		t.Fatalf("expected nested user name to survive")
	}
}

func TestTokenFingerprint(t *testing.T) {
	first := TokenFingerprint("glpat-secret")
	if len(first) != 12 {
		t.Fatalf("expected 12 character fingerprint, got %q", first)
	}
	if first == TokenFingerprint("glpat-secret ") {
		t.Fatalf("expected padded token to fingerprint differently")
	}
	if first == TokenFingerprint("glpat-other") {
		t.Fatalf("expected distinct tokens to fingerprint differently")
	}
	if TokenFingerprint("") != "" {
		t.Fatalf("expected empty token to have no fingerprint")
	}
}
