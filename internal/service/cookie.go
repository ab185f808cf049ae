package service

import "strings"

// SessionToken extracts the value of the cookie called name from a raw
// Cookie header ("a=1; jwt=xyz; b=2"). It reports false when the header is
// malformed (an entry without "="), when the cookie is missing or empty, or
// when it is set more than once.
func SessionToken(header, name string) (string, bool) {
	var (
		value string
		found bool
	)
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return "", false
		}
		if strings.TrimSpace(k) != name {
			continue
		}
		if found {
			return "", false
		}
		value, found = strings.TrimSpace(v), true
	}
	if !found || value == "" {
		return "", false
	}
	return value, true
}
