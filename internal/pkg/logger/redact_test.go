package logger

import "testing"

func TestRedactSecret(t *testing.T) {
	if got := RedactSecret("pk_abcdef1234567890"); got != "pk_abc***" {
		t.Errorf("expected prefix-only redaction, got %q", got)
	}
	if got := RedactSecret("short"); got != "***" {
		t.Errorf("short secrets should be fully masked, got %q", got)
	}
}

func TestRedactPrivateKeys(t *testing.T) {
	in := "request failed for key pk_abcdef1234567890 (retrying)"
	got := RedactPrivateKeys(in)
	if got != "request failed for key pk_abc*** (retrying)" {
		t.Errorf("unexpected redaction: %q", got)
	}
}

func TestRedactEmail(t *testing.T) {
	if got := RedactEmail("jane.doe@example.com"); got == "jane.doe@example.com" {
		t.Errorf("email was not redacted: %q", got)
	}
}
