// Package capability decides which optional transformation steps a build
// unit needs, from its normalized configuration and the versions of the
// packages installed around it.
//
// Every check is pure: it returns a Decision carrying any diagnostics
// instead of reporting them, so callers control deduplication and ordering.
package capability

import (
	"fmt"

	"github.com/leapstack-labs/pipewright/internal/compat"
	"github.com/leapstack-labs/pipewright/internal/diag"
	"github.com/leapstack-labs/pipewright/internal/registry"
	"github.com/leapstack-labs/pipewright/internal/version"
	"github.com/leapstack-labs/pipewright/pkg/core"
)

// Package names probed by the detector.
const (
	PkgBuildTool       = "ember-cli"
	PkgResolver        = "ember-cli-babel"
	PkgTypedDialect    = "ember-cli-typescript"
	PkgFramework       = "ember-source"
	PkgData            = "ember-data"
	PkgStringPackage   = "@ember/string"
	PkgJQueryPackage   = "@ember/jquery"
	PkgRuntime         = "@babel/runtime"
	PkgDecorators      = "ember-decorators"
	PkgDecoratorsBabel = "@ember-decorators/babel-transforms"
	PkgDecoratorsPoly  = "ember-decorators-polyfill"
)

// Version thresholds.
const (
	// CompileModulesAbove: the host build tool must be strictly newer.
	CompileModulesAbove = "2.12.0-alpha.1"
	// MinHelpersResolver is the first resolver release that can include
	// external helpers.
	MinHelpersResolver = "7.3.0-beta.1"
	// MinTypedDialectAddon is the first typed dialect addon release that
	// expects the resolver to handle the dialect.
	MinTypedDialectAddon = "4.0.0-alpha.1"
	// NativeModulesFramework is the first framework release that no longer
	// needs the modules API polyfill.
	NativeModulesFramework = "3.27.0-alpha.1"
	// NativePackagesData is the first data release that ships its own packages.
	NativePackagesData = "3.12.0-alpha.0"
	// MinDecoratorsHelpers is the decorator addon release that benefits from
	// shared helpers.
	MinDecoratorsHelpers = "2.0.0"
	// MaxJQueryShimmed is the last @ember/jquery release that still expects
	// the polyfill to leave jquery alone.
	MaxJQueryShimmed = "0.6.0"
)

// Decision is the outcome of one capability check.
type Decision struct {
	Enabled     bool
	Diagnostics []diag.Diagnostic
}

func enabled(b bool) Decision { return Decision{Enabled: b} }

// Detector evaluates capabilities for one unit.
type Detector struct {
	// Unit is the unit name used in diagnostics.
	Unit string
	// IsRoot is true for the root application.
	IsRoot bool
	// UnitDeps are the unit's own dependencies.
	UnitDeps core.DependencyGraph
	// ProjectDeps are the root project's dependencies.
	ProjectDeps core.DependencyGraph
	// Oracle decides target-dependent steps. Nil requires them all.
	Oracle compat.Oracle
	// Targets are the project's environment targets.
	Targets core.TargetSpec
	// Registry resolves equivalent step identifiers. Nil uses registry.Default.
	Registry *registry.Registry
}

// CompileModules reports whether modules are rewritten. An explicit value
// wins; otherwise the host build tool must be newer than 2.12.0-alpha.1.
func (d *Detector) CompileModules(cfg *core.NormalizedConfig) Decision {
	if cfg.CompileModules != nil {
		return enabled(*cfg.CompileModules)
	}
	dep := lookup(d.ProjectDeps, PkgBuildTool)
	if !dep.HasVersion() {
		return enabled(false)
	}
	return enabled(version.GT(dep.Version, CompileModulesAbove))
}

// Helpers reports whether shared runtime helpers are emitted instead of
// inlined. Only the root unit can include helpers, and only when it
// compiles modules.
func (d *Detector) Helpers(cfg *core.NormalizedConfig) (Decision, error) {
	if cfg.IncludeHelpers != nil && cfg.IncludeHelpersScope == core.ScopeUnit {
		return Decision{}, &diag.ScopeViolationError{Unit: d.Unit, Option: "includeExternalHelpers"}
	}
	if !d.IsRoot {
		return enabled(false), nil
	}
	if !d.CompileModules(cfg).Enabled {
		return enabled(false), nil
	}

	var requested bool
	if cfg.IncludeHelpers != nil {
		requested = *cfg.IncludeHelpers
	} else {
		requested = d.wantsHelpers()
	}
	if !requested {
		return enabled(false), nil
	}

	resolver := lookup(d.ProjectDeps, PkgResolver)
	if !version.GTE(resolver.Version, MinHelpersResolver) {
		msg := fmt.Sprintf("%s attempted to include external babel helpers to make your build size smaller, "+
			"but your root app's ember-cli-babel version is not high enough. "+
			"Please update ember-cli-babel to v%s or later.", d.Unit, MinHelpersResolver)
		return Decision{Diagnostics: []diag.Diagnostic{diag.VersionTooLow(d.Unit, registry.StepRuntimeHelpers, msg)}}, nil
	}
	return enabled(true), nil
}

// wantsHelpers is the heuristic used when helpers are not configured: the
// decorator addons generate enough helper code to make sharing worthwhile.
func (d *Detector) wantsHelpers() bool {
	for _, name := range []string{PkgDecorators, PkgDecoratorsBabel} {
		dep := lookup(d.ProjectDeps, name)
		if dep.HasVersion() && version.GTE(dep.Version, MinDecoratorsHelpers) {
			return true
		}
	}
	return lookup(d.ProjectDeps, PkgDecoratorsPoly).Present
}

// TypedDialect reports whether the typed dialect step is added.
func (d *Detector) TypedDialect(cfg *core.NormalizedConfig) Decision {
	if cfg.EnableTypedDialect != nil {
		return enabled(*cfg.EnableTypedDialect)
	}
	dep := lookup(d.UnitDeps, PkgTypedDialect)
	return enabled(dep.HasVersion() && version.GTE(dep.Version, MinTypedDialectAddon))
}

// Decorators reports whether the decorator step is added.
func (d *Detector) Decorators(cfg *core.NormalizedConfig) Decision {
	return d.unlessDeclared(cfg, registry.StepDecorators)
}

// ClassFields reports whether the class fields step is added.
func (d *Detector) ClassFields(cfg *core.NormalizedConfig) Decision {
	return d.unlessDeclared(cfg, registry.StepClassProperties)
}

func (d *Detector) unlessDeclared(cfg *core.NormalizedConfig, step string) Decision {
	if cfg.DisableDecoratorTransforms {
		return enabled(false)
	}
	if declared, ok := d.registry().Find(step, identifiers(cfg.UserPlugins)); ok {
		return Decision{Diagnostics: []diag.Diagnostic{diag.StepConflict(d.Unit, step, declared)}}
	}
	return enabled(true)
}

// PrivateFields reports whether a class fields companion step is needed for
// the configured targets.
func (d *Detector) PrivateFields(step string) Decision {
	oracle := d.Oracle
	if oracle == nil {
		oracle = compat.Always
	}
	return enabled(oracle.IsStepRequired(step, d.Targets))
}

// GlobalsPolyfill decides the modules API polyfill and its parameters.
type GlobalsPolyfill struct {
	Decision
	// Ignore maps module names to the exports the polyfill must leave alone.
	Ignore map[string][]string
	// UseEmberModule is true when the framework ships real modules.
	UseEmberModule bool
}

// stringExports are the exports of the string package that moved out of the
// framework.
var stringExports = []string{
	"fmt", "loc", "w", "decamelize", "dasherize", "camelize",
	"classify", "underscore", "capitalize", "setStrings", "getStrings", "getString",
}

// GlobalsPolyfill reports whether the modules API polyfill is required.
func (d *Detector) GlobalsPolyfill(cfg *core.NormalizedConfig) GlobalsPolyfill {
	framework := lookup(d.UnitDeps, PkgFramework)
	native := framework.HasVersion() && version.GTE(framework.Version, NativeModulesFramework)

	result := GlobalsPolyfill{UseEmberModule: native}
	if cfg.DisableModulesPolyfill || native {
		return result
	}

	ignore := map[string][]string{
		"@ember/debug":                    {"assert", "deprecate", "warn"},
		"@ember/application/deprecations": {"deprecate"},
	}
	if lookup(d.UnitDeps, PkgStringPackage).Present {
		ignore["@ember/string"] = append([]string(nil), stringExports...)
	}
	jq := lookup(d.UnitDeps, PkgJQueryPackage)
	if !jq.Present || version.GT(jq.Version, MaxJQueryShimmed) {
		ignore["jquery"] = []string{"default"}
	}

	result.Enabled = true
	result.Ignore = ignore
	return result
}

// PackagingPolyfill reports whether the data packages polyfill is required.
func (d *Detector) PackagingPolyfill(cfg *core.NormalizedConfig) Decision {
	if cfg.DisablePackagesPolyfill {
		return enabled(false)
	}
	dep := lookup(d.UnitDeps, PkgData)
	return enabled(dep.HasVersion() && version.LT(dep.Version, NativePackagesData))
}

// Polyfill reports whether the runtime polyfill is requested. It never
// becomes a plugin; callers include the polyfill bundle themselves.
func (d *Detector) Polyfill(cfg *core.NormalizedConfig) Decision {
	return enabled(core.BoolValue(cfg.IncludePolyfill, false))
}

// DebugFlags are the build flags handed to the debug macros.
type DebugFlags struct {
	IsDebug bool
	CI      bool
}

// NewDebugFlags derives the macro flags from the build environment.
func NewDebugFlags(environment string, ci bool) DebugFlags {
	return DebugFlags{IsDebug: environment != "production", CI: ci}
}

func (d *Detector) registry() *registry.Registry {
	if d.Registry == nil {
		return defaultRegistry
	}
	return d.Registry
}

var defaultRegistry = registry.Default()

func lookup(g core.DependencyGraph, name string) core.Dependency {
	if g == nil {
		return core.Dependency{Name: name}
	}
	return g.Lookup(name)
}

func identifiers(refs []core.PluginRef) []string {
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.Identifier
	}
	return ids
}
