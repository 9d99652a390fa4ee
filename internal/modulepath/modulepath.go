// Package modulepath computes module ids for the module rewrite step: the
// POSIX path of a source file relative to the build root, and AMD style
// resolution of relative imports against the importing module.
package modulepath

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Names under which the engine finds the module id functions.
const (
	// Strategy names RelativeModulePath, recorded on descriptors that
	// compile modules.
	Strategy = "relative-module-paths"
	// ResolverName names ResolveRelativeModulePath, passed to the module
	// resolution step.
	ResolverName = "relative-module-paths/resolve"
)

// ErrParentOfRoot is returned when a relative import climbs above the root.
var ErrParentOfRoot = errors.New("cannot access parent module of root")

// RelativeModulePath returns modulePath relative to cwd using forward slashes.
func RelativeModulePath(cwd, modulePath string) (string, error) {
	rel, err := filepath.Rel(cwd, modulePath)
	if err != nil {
		return "", fmt.Errorf("relative module path for %s: %w", modulePath, err)
	}
	return filepath.ToSlash(rel), nil
}

// ResolveRelativeModulePath resolves the import name as seen from the module
// at child. Non-relative names are returned unchanged. A trailing ".js" is
// stripped because AMD ids never carry extensions.
func ResolveRelativeModulePath(name, child, cwd string) (string, error) {
	parent, err := RelativeModulePath(cwd, child)
	if err != nil {
		return "", err
	}
	resolved, err := Resolve(name, parent)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(resolved, ".js"), nil
}

// Resolve applies AMD relative id resolution of child against the module id
// parent. Only ids starting with "." are relative.
func Resolve(child, parent string) (string, error) {
	if !strings.HasPrefix(child, ".") {
		return child, nil
	}

	parts := strings.Split(parent, "/")
	base := parts[:len(parts)-1]

	for _, seg := range strings.Split(child, "/") {
		switch seg {
		case "..":
			if len(base) == 0 {
				return "", fmt.Errorf("resolving %q from %q: %w", child, parent, ErrParentOfRoot)
			}
			base = base[:len(base)-1]
		case ".", "":
		default:
			base = append(base, seg)
		}
	}
	return strings.Join(base, "/"), nil
}
