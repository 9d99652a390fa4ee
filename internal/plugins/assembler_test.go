package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/pipewright/internal/capability"
	"github.com/leapstack-labs/pipewright/internal/diag"
	"github.com/leapstack-labs/pipewright/internal/registry"
	"github.com/leapstack-labs/pipewright/pkg/core"
)

func ids(refs []core.PluginRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Identifier
	}
	return out
}

func indexOf(refs []core.PluginRef, id string) int {
	for i, r := range refs {
		if r.Identifier == id {
			return i
		}
	}
	return -1
}

func countDecoratorSteps(refs []core.PluginRef) int {
	reg := registry.Default()
	n := 0
	for _, r := range refs {
		name, _ := reg.Canonical(r.Identifier)
		switch name {
		case registry.StepDecorators, registry.StepClassProperties,
			registry.StepPrivateMethods, registry.StepPrivateInObject:
			n++
		}
	}
	return n
}

func fullCaps() Capabilities {
	return Capabilities{
		Helpers:         true,
		RuntimeVersion:  "7.14.0",
		TypedDialect:    true,
		Decorators:      true,
		ClassFields:     true,
		PrivateMethods:  true,
		PrivateInObject: true,
		Debug:           capability.DebugFlags{IsDebug: true},
		GlobalsPolyfill: capability.GlobalsPolyfill{
			Decision: capability.Decision{Enabled: true},
			Ignore:   map[string][]string{"@ember/debug": {"assert"}},
		},
		PackagingPolyfill: true,
		CompileModules:    true,
	}
}

func TestAssemble_FullOrder(t *testing.T) {
	cfg := &core.NormalizedConfig{
		UserPlugins:     []core.PluginRef{core.Plugin("user-a", nil), core.Plugin("user-b", nil)},
		UserPostPlugins: []core.PluginRef{core.Plugin("post", nil)},
	}

	res := New("app").Assemble(cfg, fullCaps())

	assert.Equal(t, []string{
		registry.StepRuntimeHelpers,
		registry.StepTypeScript,
		registry.StepDecorators,
		registry.StepClassProperties,
		registry.StepPrivateMethods,
		registry.StepPrivateInObject,
		"user-a",
		"user-b",
		registry.StepDebugMacros,
		registry.StepDebugMacros,
		registry.StepModulesAPIPolyfill,
		registry.StepDataPackages,
		registry.StepModuleResolver,
		registry.StepModulesAMD,
		"post",
	}, ids(res.Plugins))
	assert.Empty(t, res.Diagnostics)

	assert.Equal(t, map[string]any{"version": "7.14.0", "regenerator": false, "useESModules": true}, res.Plugins[0].Params)
	assert.Equal(t, map[string]any{"allowDeclareFields": true}, res.Plugins[1].Params)
	assert.Equal(t, map[string]any{"legacy": true}, res.Plugins[2].Params)
	assert.Equal(t, map[string]any{"loose": false}, res.Plugins[3].Params)
	assert.Equal(t, LabelDebugStripping, res.Plugins[8].Label)
	assert.Equal(t, LabelDeprecationStripping, res.Plugins[9].Label)
	assert.Equal(t, map[string]any{"noInterop": true}, res.Plugins[13].Params)
}

func TestAssemble_ModuleRewriteIsLast(t *testing.T) {
	cfg := &core.NormalizedConfig{
		UserPlugins:     []core.PluginRef{core.Plugin("user-a", nil)},
		UserPostPlugins: []core.PluginRef{core.Plugin("post-a", nil), core.Plugin("post-b", nil)},
	}
	res := New("app").Assemble(cfg, fullCaps())

	amd := indexOf(res.Plugins, registry.StepModulesAMD)
	require.GreaterOrEqual(t, amd, 0)
	post := map[string]bool{"post-a": true, "post-b": true}
	for i, p := range res.Plugins {
		if post[p.Identifier] {
			assert.Greater(t, i, amd)
			continue
		}
		if p.Identifier != registry.StepModulesAMD {
			assert.Less(t, i, amd, "%s must precede the module rewrite", p.Identifier)
		}
	}
}

func TestAssemble_DecoratorCounts(t *testing.T) {
	caps := Capabilities{Decorators: true, ClassFields: true, PrivateMethods: true, PrivateInObject: true}

	tests := []struct {
		name string
		user []core.PluginRef
		caps func(c Capabilities) Capabilities
		want int
	}{
		{
			name: "defaults",
			caps: func(c Capabilities) Capabilities { return c },
			want: 4,
		},
		{
			name: "user decorators",
			user: []core.PluginRef{core.Plugin("@babel/plugin-proposal-decorators", map[string]any{"legacy": true})},
			caps: func(c Capabilities) Capabilities { c.Decorators = false; return c },
			want: 4,
		},
		{
			name: "user class properties",
			user: []core.PluginRef{core.Plugin("@babel/plugin-proposal-class-properties", nil)},
			caps: func(c Capabilities) Capabilities { c.ClassFields = false; return c },
			want: 2,
		},
		{
			name: "companions not required by targets",
			caps: func(c Capabilities) Capabilities {
				c.PrivateMethods, c.PrivateInObject = false, false
				return c
			},
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &core.NormalizedConfig{UserPlugins: tt.user}
			res := New("app").Assemble(cfg, tt.caps(caps))
			assert.Equal(t, tt.want, countDecoratorSteps(res.Plugins))
		})
	}
}

func TestAssemble_ClassFieldsFollowUserDecorators(t *testing.T) {
	tests := []struct {
		name  string
		typed bool
		user  []core.PluginRef
		want  []string
	}{
		{
			name: "decorators declared after another user step",
			user: []core.PluginRef{
				core.Plugin("babel-plugin-macros", nil),
				core.Plugin("@babel/plugin-proposal-decorators", map[string]any{"legacy": true}),
				core.Plugin("user-b", nil),
			},
			want: []string{
				"babel-plugin-macros",
				"@babel/plugin-proposal-decorators",
				registry.StepClassProperties,
				registry.StepPrivateMethods,
				"user-b",
				registry.StepDebugMacros,
				registry.StepDebugMacros,
			},
		},
		{
			name: "legacy decorators alias",
			user: []core.PluginRef{
				core.Plugin("babel-plugin-transform-decorators-legacy", nil),
			},
			want: []string{
				"babel-plugin-transform-decorators-legacy",
				registry.StepClassProperties,
				registry.StepPrivateMethods,
				registry.StepDebugMacros,
				registry.StepDebugMacros,
			},
		},
		{
			name:  "typed step leads, user decorators later",
			typed: true,
			user: []core.PluginRef{
				core.Plugin("user-a", nil),
				core.Plugin("@babel/plugin-proposal-decorators", nil),
			},
			want: []string{
				registry.StepTypeScript,
				"user-a",
				"@babel/plugin-proposal-decorators",
				registry.StepClassProperties,
				registry.StepPrivateMethods,
				registry.StepDebugMacros,
				registry.StepDebugMacros,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &core.NormalizedConfig{UserPlugins: tt.user}
			caps := Capabilities{TypedDialect: tt.typed, ClassFields: true, PrivateMethods: true}
			res := New("my-addon").Assemble(cfg, caps)
			assert.Equal(t, tt.want, ids(res.Plugins))
		})
	}
}

func TestAssemble_DecoratorConflictViaDetector(t *testing.T) {
	cfg := &core.NormalizedConfig{UserPlugins: []core.PluginRef{
		core.Plugin("babel-plugin-transform-decorators-legacy", nil),
	}}
	det := &capability.Detector{Unit: "my-addon"}
	dec := det.Decorators(cfg)

	res := New("my-addon").Assemble(cfg, Capabilities{Decorators: dec.Enabled, ClassFields: det.ClassFields(cfg).Enabled})

	var decorators int
	reg := registry.Default()
	for _, p := range res.Plugins {
		if reg.Equivalent(registry.StepDecorators, p.Identifier) {
			decorators++
		}
	}
	assert.Equal(t, 1, decorators, "exactly one decorator step")
	require.Len(t, dec.Diagnostics, 1, "exactly one warning")
	assert.Empty(t, res.Diagnostics, "the assembler does not warn twice")
}

func TestAssemble_TypedStep(t *testing.T) {
	t.Run("user declared typed step", func(t *testing.T) {
		cfg := &core.NormalizedConfig{UserPlugins: []core.PluginRef{
			core.Plugin("user-a", nil),
			core.Plugin("babel-plugin-transform-typescript", nil),
			core.Plugin("user-b", nil),
		}}
		res := New("my-addon").Assemble(cfg, Capabilities{TypedDialect: true, Decorators: true})

		assert.Equal(t, []string{
			"user-a",
			"babel-plugin-transform-typescript",
			registry.StepDecorators,
			"user-b",
			registry.StepDebugMacros,
			registry.StepDebugMacros,
		}, ids(res.Plugins), "decorators follow the typed step")
		require.Len(t, res.Diagnostics, 1)
		assert.Equal(t, diag.KindStepConflict, res.Diagnostics[0].Kind)
		assert.Equal(t, registry.StepTypeScript, res.Diagnostics[0].Step)
	})

	t.Run("typed handling off", func(t *testing.T) {
		cfg := &core.NormalizedConfig{UserPlugins: []core.PluginRef{
			core.Plugin("@babel/plugin-transform-typescript", nil),
		}}
		res := New("my-addon").Assemble(cfg, Capabilities{Decorators: true})

		assert.Equal(t, []string{
			registry.StepDecorators,
			"@babel/plugin-transform-typescript",
			registry.StepDebugMacros,
			registry.StepDebugMacros,
		}, ids(res.Plugins), "decorators lead the user group")
		assert.Empty(t, res.Diagnostics)
	})
}

func TestAssemble_PolyfillConflicts(t *testing.T) {
	cfg := &core.NormalizedConfig{
		DisableDebugTooling: true,
		UserPlugins: []core.PluginRef{
			core.Plugin("/app/node_modules/babel-plugin-ember-modules-api-polyfill/src/index.js", nil),
		},
	}
	caps := Capabilities{
		GlobalsPolyfill:   capability.GlobalsPolyfill{Decision: capability.Decision{Enabled: true}},
		PackagingPolyfill: true,
	}

	res := New("my-addon").Assemble(cfg, caps)

	assert.Equal(t, 1, len(res.Diagnostics))
	assert.Equal(t, registry.StepModulesAPIPolyfill, res.Diagnostics[0].Step)
	assert.Equal(t, -1, indexOf(res.Plugins, registry.StepModulesAPIPolyfill))
	assert.GreaterOrEqual(t, indexOf(res.Plugins, registry.StepDataPackages), 0)
}

func TestAssemble_DebugMacrosDoNotConflict(t *testing.T) {
	cfg := &core.NormalizedConfig{UserPlugins: []core.PluginRef{
		{Identifier: registry.StepDebugMacros, Label: "my own flags"},
	}}
	res := New("app").Assemble(cfg, Capabilities{})

	assert.Len(t, res.Plugins, 3)
	assert.Empty(t, res.Diagnostics)
}

func TestAssemble_DebugFlags(t *testing.T) {
	res := New("app").Assemble(&core.NormalizedConfig{}, Capabilities{Debug: capability.NewDebugFlags("production", true)})

	require.Len(t, res.Plugins, 2)
	flags := res.Plugins[0].Params["flags"].([]any)[0].(map[string]any)["flags"].(map[string]any)
	assert.Equal(t, false, flags["DEBUG"])
	assert.Equal(t, true, flags["CI"])
	assert.NotContains(t, res.Plugins[1].Params, "flags")
}

func TestAssemble_Presets(t *testing.T) {
	cfg := &core.NormalizedConfig{EngineOptions: map[string]any{"loose": true}}
	targets := core.TargetSpec{"browsers": []any{"chrome 90"}}

	res := New("app").Assemble(cfg, Capabilities{Targets: targets})
	require.Len(t, res.Presets, 1)
	assert.Equal(t, registry.PresetEnv, res.Presets[0].Identifier)
	assert.Equal(t, map[string]any{
		"loose":   true,
		"targets": map[string]any{"browsers": []any{"chrome 90"}},
		"modules": false,
	}, res.Presets[0].Params)
	assert.Equal(t, map[string]any{"loose": true}, cfg.EngineOptions, "engine options are not mutated")

	cfg.DisablePresetEnv = true
	res = New("app").Assemble(cfg, Capabilities{Targets: targets})
	assert.Empty(t, res.Presets)
}

func TestAssemble_LooseClassFields(t *testing.T) {
	cfg := &core.NormalizedConfig{EngineOptions: map[string]any{"loose": true}}
	res := New("app").Assemble(cfg, Capabilities{ClassFields: true, PrivateMethods: true})

	require.GreaterOrEqual(t, len(res.Plugins), 2)
	assert.Equal(t, map[string]any{"loose": true}, res.Plugins[0].Params)
	assert.Equal(t, map[string]any{"loose": true}, res.Plugins[1].Params)
}

func TestAssemble_Empty(t *testing.T) {
	cfg := &core.NormalizedConfig{DisableDebugTooling: true, DisablePresetEnv: true}
	res := New("app").Assemble(cfg, Capabilities{})
	assert.Empty(t, res.Plugins)
	assert.Empty(t, res.Presets)
}
