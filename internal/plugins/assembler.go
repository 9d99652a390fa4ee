// Package plugins assembles the ordered step list of a unit's pipeline.
//
// The order is fixed:
//
//  1. runtime helpers (root unit only)
//  2. user steps, led by the typed dialect step when it is active
//  3. decorator and class field steps, inside the user group
//  4. debug macros
//  5. modules API polyfill
//  6. data packages polyfill
//  7. module resolution and AMD rewrite
//  8. user post-transform steps
//
// The module rewrite must see every import the earlier steps can introduce,
// so nothing but post-transform steps may follow it.
package plugins

import (
	"github.com/leapstack-labs/pipewright/internal/capability"
	"github.com/leapstack-labs/pipewright/internal/diag"
	"github.com/leapstack-labs/pipewright/internal/modulepath"
	"github.com/leapstack-labs/pipewright/internal/registry"
	"github.com/leapstack-labs/pipewright/pkg/core"
)

// Debug macro labels. Both macro steps share an identifier and are told apart
// by label.
const (
	LabelDebugStripping       = "@ember/debug stripping"
	LabelDeprecationStripping = "@ember/application/deprecations stripping"
)

// Capabilities are the decisions the assembler acts on, as computed by the
// capability detector.
type Capabilities struct {
	Helpers bool
	// RuntimeVersion is the installed runtime helpers version, required when
	// Helpers is set.
	RuntimeVersion string

	TypedDialect bool

	Decorators      bool
	ClassFields     bool
	PrivateMethods  bool
	PrivateInObject bool

	Debug capability.DebugFlags

	GlobalsPolyfill   capability.GlobalsPolyfill
	PackagingPolyfill bool

	CompileModules bool

	Targets core.TargetSpec
}

// Result is the assembled step list.
type Result struct {
	Plugins     []core.PluginRef
	Presets     []core.PluginRef
	Diagnostics []diag.Diagnostic
}

// Assembler builds step lists for one unit.
type Assembler struct {
	// Unit names the unit in diagnostics.
	Unit string
	// Registry resolves equivalent identifiers. Nil uses registry.Default.
	Registry *registry.Registry
}

// New creates an Assembler for unit using the built-in step registry.
func New(unit string) *Assembler {
	return &Assembler{Unit: unit, Registry: defaultRegistry}
}

var defaultRegistry = registry.Default()

// Assemble builds the ordered plugins and presets for cfg.
func (a *Assembler) Assemble(cfg *core.NormalizedConfig, caps Capabilities) Result {
	var res Result

	if caps.Helpers {
		res.Plugins = append(res.Plugins, HelpersPlugin(caps.RuntimeVersion))
	}

	res.Plugins = append(res.Plugins, a.userGroup(cfg, caps, &res)...)

	if !cfg.DisableDebugTooling {
		res.Plugins = append(res.Plugins, DebugMacroPlugins(caps.Debug)...)
	}

	if caps.GlobalsPolyfill.Enabled {
		if p, ok := a.unlessDeclared(cfg, registry.StepModulesAPIPolyfill, &res); ok {
			p.Params = map[string]any{
				"ignore":         caps.GlobalsPolyfill.Ignore,
				"useEmberModule": caps.GlobalsPolyfill.UseEmberModule,
			}
			res.Plugins = append(res.Plugins, p)
		}
	}

	if caps.PackagingPolyfill {
		if p, ok := a.unlessDeclared(cfg, registry.StepDataPackages, &res); ok {
			res.Plugins = append(res.Plugins, p)
		}
	}

	if caps.CompileModules {
		res.Plugins = append(res.Plugins, ModulePlugins()...)
	}

	res.Plugins = append(res.Plugins, cfg.UserPostPlugins...)

	if !cfg.DisablePresetEnv {
		res.Presets = []core.PluginRef{PresetEnv(cfg.EngineOptions, caps.Targets)}
	}

	return res
}

// userGroup returns the user steps with the typed dialect, decorator and
// class field steps woven in.
func (a *Assembler) userGroup(cfg *core.NormalizedConfig, caps Capabilities, res *Result) []core.PluginRef {
	group := append([]core.PluginRef{}, cfg.UserPlugins...)

	if caps.TypedDialect {
		if p, ok := a.unlessDeclared(cfg, registry.StepTypeScript, res); ok {
			p.Params = map[string]any{"allowDeclareFields": true}
			group = append([]core.PluginRef{p}, group...)
		}
	}

	injected := a.decoratorPlugins(cfg, caps)
	if len(injected) == 0 {
		return group
	}

	at := 0
	if caps.TypedDialect {
		if idx := a.indexOf(group, registry.StepTypeScript); idx >= 0 {
			at = idx + 1
		}
	}
	// Class fields must run after a decorators step the unit declared itself.
	if idx := a.indexOf(group, registry.StepDecorators); idx >= at {
		at = idx + 1
	}
	out := make([]core.PluginRef, 0, len(group)+len(injected))
	out = append(out, group[:at]...)
	out = append(out, injected...)
	out = append(out, group[at:]...)
	return out
}

// decoratorPlugins returns the decorator and class field steps. Conflicts
// with user steps were already reported by the detector.
func (a *Assembler) decoratorPlugins(cfg *core.NormalizedConfig, caps Capabilities) []core.PluginRef {
	var out []core.PluginRef
	if caps.Decorators {
		out = append(out, core.Plugin(registry.StepDecorators, map[string]any{"legacy": true}))
	}
	if caps.ClassFields {
		loose := map[string]any{"loose": looseMode(cfg)}
		out = append(out, core.Plugin(registry.StepClassProperties, loose))
		if caps.PrivateMethods {
			out = append(out, core.Plugin(registry.StepPrivateMethods, copyParams(loose)))
		}
		if caps.PrivateInObject {
			out = append(out, core.Plugin(registry.StepPrivateInObject, copyParams(loose)))
		}
	}
	return out
}

// unlessDeclared returns a bare step for identifier, or false with a
// StepConflict diagnostic when the unit already declared an equivalent step.
func (a *Assembler) unlessDeclared(cfg *core.NormalizedConfig, identifier string, res *Result) (core.PluginRef, bool) {
	if idx := a.indexOf(cfg.UserPlugins, identifier); idx >= 0 {
		res.Diagnostics = append(res.Diagnostics, diag.StepConflict(a.Unit, identifier, cfg.UserPlugins[idx].Identifier))
		return core.PluginRef{}, false
	}
	return core.PluginRef{Identifier: identifier}, true
}

func (a *Assembler) indexOf(refs []core.PluginRef, identifier string) int {
	reg := a.Registry
	if reg == nil {
		reg = defaultRegistry
	}
	for i, r := range refs {
		if reg.Equivalent(identifier, r.Identifier) {
			return i
		}
	}
	return -1
}

// HelpersPlugin returns the runtime helpers step for the given runtime version.
func HelpersPlugin(runtimeVersion string) core.PluginRef {
	return core.Plugin(registry.StepRuntimeHelpers, map[string]any{
		"version":      runtimeVersion,
		"regenerator":  false,
		"useESModules": true,
	})
}

// DebugMacroPlugins returns the two debug stripping steps.
func DebugMacroPlugins(flags capability.DebugFlags) []core.PluginRef {
	return []core.PluginRef{
		{
			Identifier: registry.StepDebugMacros,
			Params: map[string]any{
				"flags": []any{
					map[string]any{
						"source": "@glimmer/env",
						"flags":  map[string]any{"DEBUG": flags.IsDebug, "CI": flags.CI},
					},
				},
				"externalizeHelpers": map[string]any{"global": "Ember"},
				"debugTools": map[string]any{
					"isDebug":              flags.IsDebug,
					"source":               "@ember/debug",
					"assertPredicateIndex": 1,
				},
			},
			Label: LabelDebugStripping,
		},
		{
			Identifier: registry.StepDebugMacros,
			Params: map[string]any{
				"externalizeHelpers": map[string]any{"global": "Ember"},
				"debugTools": map[string]any{
					"isDebug":              flags.IsDebug,
					"source":               "@ember/application/deprecations",
					"assertPredicateIndex": 1,
				},
			},
			Label: LabelDeprecationStripping,
		},
	}
}

// ModulePlugins returns the module resolution and AMD rewrite steps.
func ModulePlugins() []core.PluginRef {
	return []core.PluginRef{
		core.Plugin(registry.StepModuleResolver, map[string]any{"resolvePath": modulepath.ResolverName}),
		core.Plugin(registry.StepModulesAMD, map[string]any{"noInterop": true}),
	}
}

// PresetEnv returns the environment preset carrying the engine options.
func PresetEnv(engineOptions map[string]any, targets core.TargetSpec) core.PluginRef {
	params := copyParams(engineOptions)
	if targets != nil {
		params["targets"] = map[string]any(targets)
	}
	params["modules"] = false
	return core.Plugin(registry.PresetEnv, params)
}

func looseMode(cfg *core.NormalizedConfig) bool {
	loose, _ := cfg.EngineOptions["loose"].(bool)
	return loose
}

func copyParams(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+2)
	for k, v := range m {
		out[k] = v
	}
	return out
}
