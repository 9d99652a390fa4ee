package core

// NormalizedConfig is the merged, flattened configuration of one build unit.
// Every field holds exactly one value; the scope merge has already happened.
// Optional fields are pointers so "unset" stays distinguishable from false.
type NormalizedConfig struct {
	Annotation                string
	SourceMaps                SourceMaps
	ThrowUnlessParallelizable bool

	CompileModules *bool

	// IncludeHelpers is root-only. IncludeHelpersScope records the scope of
	// the source that supplied it.
	IncludeHelpers      *bool
	IncludeHelpersScope Scope

	IncludePolyfill *bool

	DisablePresetEnv           bool
	DisableDebugTooling        bool
	DisableModulesPolyfill     bool
	DisablePackagesPolyfill    bool
	DisableDecoratorTransforms bool

	EnableTypedDialect *bool

	// Extensions is nil when unset. A non-nil empty slice is an explicit
	// request for no extensions.
	Extensions []string

	UserPlugins     []PluginRef
	UserPostPlugins []PluginRef

	// EngineOptions are the remaining engine options, handed to the preset.
	EngineOptions map[string]any

	// ConfigFile is the external engine config file that was merged in, if any.
	ConfigFile string
}

// Bool returns a pointer to b, for populating optional config fields.
func Bool(b bool) *bool {
	return &b
}

// BoolValue dereferences an optional flag, using def when unset.
func BoolValue(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
