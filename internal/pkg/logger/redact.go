package logger

import (
	"regexp"
	"strings"
)

// RedactEmail masks an email address for safe logging.
// "john.doe@example.com" → "jo***@example.com"
// Short local parts (≤2 chars) are fully masked: "ab@example.com" → "***@example.com"
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}

var privateKeyRegex = regexp.MustCompile(`pk_[A-Za-z0-9]+`)

// RedactSecret masks a credential, keeping a short prefix so log lines from
// the same caller remain correlatable.
func RedactSecret(secret string) string {
	if len(secret) <= 6 {
		return "***"
	}
	return secret[:6] + "***"
}

// RedactPrivateKeys masks any Klaviyo private API keys embedded in a string.
func RedactPrivateKeys(s string) string {
	return privateKeyRegex.ReplaceAllStringFunc(s, RedactSecret)
}
