package logging

import (
	"log/slog"
	"regexp"
)

// Attribute keys whose values are masked wholesale when RedactPII is on.
// These mirror the columns the activity log stores about visitors.
var sensitiveKeys = map[string]bool{
	"ip_address": true,
	"user_agent": true,
	"email":      true,
}

var ipv4Pattern = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)

const redactedValue = "[REDACTED]"

// redactAttr is a slog ReplaceAttr hook that masks sensitive attribute
// values. Known-sensitive keys are masked entirely; other string values
// have embedded IPv4 addresses masked in place.
func redactAttr(_ []string, a slog.Attr) slog.Attr {
	if sensitiveKeys[a.Key] {
		a.Value = slog.StringValue(redactedValue)
		return a
	}
	if a.Value.Kind() == slog.KindString {
		s := a.Value.String()
		if ipv4Pattern.MatchString(s) {
			a.Value = slog.StringValue(ipv4Pattern.ReplaceAllString(s, "*.*.*.*"))
		}
	}
	return a
}
