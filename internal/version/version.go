// Package version compares npm-style semantic versions ("2.12.0-alpha.1")
// using golang.org/x/mod/semver, which expects a leading "v".
package version

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Canonical converts an npm-style version to the "vMAJOR.MINOR.PATCH[-pre]"
// form. It returns "" when the version is not valid semver.
func Canonical(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "=")
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	// Build metadata does not take part in precedence.
	return semver.Canonical(v)
}

// Valid reports whether v parses as a semantic version.
func Valid(v string) bool {
	return Canonical(v) != ""
}

// Compare returns -1, 0 or +1. The second result is false when either
// version is invalid, in which case the comparison must not be trusted.
func Compare(a, b string) (int, bool) {
	ca, cb := Canonical(a), Canonical(b)
	if ca == "" || cb == "" {
		return 0, false
	}
	return semver.Compare(ca, cb), true
}

// GT reports whether a > b. Invalid versions compare false.
func GT(a, b string) bool {
	c, ok := Compare(a, b)
	return ok && c > 0
}

// GTE reports whether a >= b. Invalid versions compare false.
func GTE(a, b string) bool {
	c, ok := Compare(a, b)
	return ok && c >= 0
}

// LT reports whether a < b. Invalid versions compare false.
func LT(a, b string) bool {
	c, ok := Compare(a, b)
	return ok && c < 0
}
