// Package extensions decides which source files a unit's pipeline applies to.
package extensions

import (
	"path"
	"strings"
)

// Default extensions.
const (
	Script = "js"
	Typed  = "ts"
)

// Resolve returns the extensions a unit processes. Configured extensions are
// used verbatim, even when empty; otherwise scripts are processed and typed
// sources are added when typed handling is on.
func Resolve(configured []string, typed bool) []string {
	if configured != nil {
		return append([]string{}, configured...)
	}
	if typed {
		return []string{Script, Typed}
	}
	return []string{Script}
}

// Filter matches file paths against a set of extensions.
type Filter struct {
	Extensions []string
}

// NewFilter returns a Filter for exts.
func NewFilter(exts []string) Filter {
	return Filter{Extensions: exts}
}

// Match reports whether the file at p is processed. Declaration-only files
// ("index.d.ts") never are, whatever the configured extensions.
func (f Filter) Match(p string) bool {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	for _, ext := range f.Extensions {
		ext = strings.TrimPrefix(ext, ".")
		if ext == "" || !strings.HasSuffix(base, "."+ext) {
			continue
		}
		stem := strings.TrimSuffix(base, "."+ext)
		if stem == "" || isDeclaration(stem) {
			return false
		}
		return true
	}
	return false
}

// isDeclaration reports whether stem ends in a ".d" suffix.
func isDeclaration(stem string) bool {
	return strings.HasSuffix(stem, ".d")
}
