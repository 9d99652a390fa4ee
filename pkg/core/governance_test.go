//go:build governance

package core_test

import (
	"go/types"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

const modulePath = "github.com/leapstack-labs/pipewright"

// =============================================================================
// COHESION TEST - Core types must be shared by multiple packages
// =============================================================================

// TestGovernance_CoreCohesion verifies that types in pkg/core are genuinely
// shared across multiple packages. Single-use types should be moved to their
// sole consumer to maintain cohesion.
func TestGovernance_CoreCohesion(t *testing.T) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedImports | packages.NeedTypes |
			packages.NeedTypesInfo | packages.NeedDeps,
	}
	pkgs, err := packages.Load(cfg, modulePath+"/...")
	if err != nil {
		t.Fatalf("Failed to load packages: %v", err)
	}

	coreDefs := make(map[types.Object]string)
	var corePkg *packages.Package

	for _, p := range pkgs {
		if p.PkgPath == modulePath+"/pkg/core" {
			corePkg = p
			scope := p.Types.Scope()
			for _, name := range scope.Names() {
				// Functions and constants are helpers; only types must be shared.
				if obj, ok := scope.Lookup(name).(*types.TypeName); ok && obj.Exported() {
					coreDefs[obj] = name
				}
			}
			break
		}
	}

	if corePkg == nil {
		t.Fatal("Could not find pkg/core")
	}

	// CoreName -> set of importing packages
	usageMap := make(map[string]map[string]bool)
	for _, name := range coreDefs {
		usageMap[name] = make(map[string]bool)
	}

	base := modulePath + "/"

	for _, p := range pkgs {
		if p.PkgPath == corePkg.PkgPath || strings.HasSuffix(p.PkgPath, "_test") {
			continue
		}
		if p.TypesInfo == nil {
			continue
		}

		for _, info := range p.TypesInfo.Uses {
			if name, exists := coreDefs[info]; exists {
				importer := strings.TrimPrefix(p.PkgPath, base)
				usageMap[name][importer] = true
			}
		}
	}

	for typeName, importers := range usageMap {
		if isCohesionAllowlisted(typeName) {
			continue
		}

		if len(importers) == 0 {
			t.Logf("WARNING: Unused Core Type: %s (consider deleting)", typeName)
		} else if len(importers) == 1 {
			var user string
			for k := range importers {
				user = k
			}
			t.Errorf("COHESION VIOLATION: 'core.%s' is used ONLY by '%s'.\n"+
				"   Fix: Move type from pkg/core to %s.",
				typeName, user, user)
		}
	}
}

// isCohesionAllowlisted returns true for names allowed to have single usage.
func isCohesionAllowlisted(name string) bool {
	allowlist := map[string]bool{
		"DependencyGraph": true, // Interface - implementations may be in one place
		"GraphFunc":       true, // Adapter for DependencyGraph
		"Dependencies":    true, // Map form of DependencyGraph
		"Scope":           true, // Enum carried inside ConfigSource
		"SourceMaps":      true, // Enum carried inside NormalizedConfig
	}
	return allowlist[name]
}

// =============================================================================
// LAYERING TEST - Resolver stages must not reach up into the CLI
// =============================================================================

// TestGovernance_Layering verifies that the resolver packages never import
// the project loader or the CLI, and that pkg/ never imports internal/.
func TestGovernance_Layering(t *testing.T) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedImports,
	}
	pkgs, err := packages.Load(cfg, modulePath+"/...")
	if err != nil {
		t.Fatalf("Failed to load packages: %v", err)
	}

	// Package prefix -> import prefixes it must not use
	forbidden := map[string][]string{
		modulePath + "/pkg/":                {modulePath + "/internal/"},
		modulePath + "/internal/config":     {modulePath + "/internal/project", modulePath + "/internal/cli"},
		modulePath + "/internal/capability": {modulePath + "/internal/project", modulePath + "/internal/cli"},
		modulePath + "/internal/extensions": {modulePath + "/internal/project", modulePath + "/internal/cli"},
		modulePath + "/internal/plugins":    {modulePath + "/internal/project", modulePath + "/internal/cli"},
		modulePath + "/internal/pipeline":   {modulePath + "/internal/project", modulePath + "/internal/cli"},
		modulePath + "/internal/registry":   {modulePath + "/internal/"},
		modulePath + "/internal/modulepath": {modulePath + "/internal/"},
		modulePath + "/internal/project":    {modulePath + "/internal/cli"},
	}

	for _, p := range pkgs {
		for prefix, banned := range forbidden {
			if !strings.HasPrefix(p.PkgPath, prefix) {
				continue
			}
			for imp := range p.Imports {
				for _, b := range banned {
					if strings.HasPrefix(imp, b) {
						t.Errorf("LAYERING VIOLATION: '%s' imports '%s'",
							strings.TrimPrefix(p.PkgPath, modulePath+"/"),
							strings.TrimPrefix(imp, modulePath+"/"))
					}
				}
			}
		}
	}
}
