// Package emailaddr holds the email predicate shared by every endpoint
// that accepts an address. The shape check is deliberately looser than
// full RFC 5322 and matches the client-side check in web/static/script.js.
package emailaddr

import (
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Valid reports whether s looks like local@domain.tld: no whitespace or
// extra @ in the local part, at least one dot in the domain.
func Valid(s string) bool {
	return emailRe.MatchString(s)
}

// Normalize trims surrounding whitespace and lowercases the address.
// Store records are keyed by the normalized form.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
