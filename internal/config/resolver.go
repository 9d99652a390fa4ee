package config

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"

	"github.com/leapstack-labs/pipewright/internal/diag"
	"github.com/leapstack-labs/pipewright/pkg/core"
)

// Resolver merges configuration sources for one unit at a time.
type Resolver struct {
	// BaseDir anchors relative configFile paths. Empty means the working
	// directory.
	BaseDir string

	// Report receives non-fatal diagnostics. Deduplication is the caller's
	// concern. Nil discards them.
	Report func(diag.Diagnostic)

	Logger *slog.Logger
}

// resolverOptions is the decoded resolver bucket.
type resolverOptions struct {
	Annotation                  string   `koanf:"annotation"`
	CompileModules              *bool    `koanf:"compileModules"`
	IncludeExternalHelpers      *bool    `koanf:"includeExternalHelpers"`
	IncludePolyfill             *bool    `koanf:"includePolyfill"`
	DisablePresetEnv            bool     `koanf:"disablePresetEnv"`
	DisableDebugTooling         bool     `koanf:"disableDebugTooling"`
	DisableModulesAPIPolyfill   bool     `koanf:"disableEmberModulesAPIPolyfill"`
	DisableDataPackagesPolyfill bool     `koanf:"disableEmberDataPackagesPolyfill"`
	DisableDecoratorTransforms  bool     `koanf:"disableDecoratorTransforms"`
	EnableTypeScriptTransform   *bool    `koanf:"enableTypeScriptTransform"`
	EnableTypedDialectTransform *bool    `koanf:"enableTypedDialectTransform"`
	Extensions                  []string `koanf:"extensions"`
	ThrowUnlessParallelizable   bool     `koanf:"throwUnlessParallelizable"`
	ConfigFile                  string   `koanf:"configFile"`
}

// engineOptions is the decoded subset of the engine bucket the resolver
// interprets itself.
type engineOptions struct {
	SourceMaps           core.SourceMaps  `koanf:"sourceMaps"`
	Plugins              []core.PluginRef `koanf:"plugins"`
	PostTransformPlugins []core.PluginRef `koanf:"postTransformPlugins"`
}

// Resolve merges sources into the normalized configuration of unit.
//
// Root-scoped sources are applied before unit-scoped ones regardless of
// their order in sources. Root-only options found in a unit-scoped source
// fail with *diag.ScopeViolationError.
func (r *Resolver) Resolve(unit string, sources []core.ConfigSource) (*core.NormalizedConfig, error) {
	logger := r.logger()

	for _, src := range sources {
		if src.Scope != core.ScopeUnit {
			continue
		}
		if key, ok := rootOnlyKeyIn(src); ok {
			return nil, &diag.ScopeViolationError{Unit: unit, Option: key}
		}
	}

	merged, err := mergeSources(sources)
	if err != nil {
		return nil, fmt.Errorf("%s: merging config sources: %w", unit, err)
	}

	resolverBucket := bucketOf(merged, core.BucketResolver)
	engineBucket := bucketOf(merged, core.BucketEngine)

	// origins names where each deprecated engine option was read from;
	// layers are recorded lowest precedence first.
	origins := make(map[string]string)
	record := func(location string, opts map[string]any) {
		for key := range opts {
			origins[key] = location
		}
	}

	var fileOpts map[string]any
	if name, ok := resolverBucket[KeyConfigFile].(string); ok && name != "" {
		opts, path, err := LoadEngineFile(r.BaseDir, name)
		if err != nil {
			return nil, &diag.MissingConfigError{Unit: unit, Path: path, Err: err}
		}
		if configFileFromUnit(sources) {
			if key, ok := rootOnlyKeyInMap(opts); ok {
				return nil, &diag.ScopeViolationError{Unit: unit, Option: key}
			}
		}
		logger.Debug("merged external engine config", "unit", unit, "path", path)
		fileOpts = opts
		record(name, opts)
	}

	legacy, hasLegacy := merged[core.BucketLegacyEngine].(map[string]any)
	if hasLegacy {
		record(core.BucketLegacyEngine, legacy)
	}
	record(core.BucketEngine, engineBucket)

	if hasLegacy {
		logger.Debug("applying legacy engine options", "unit", unit)
		engineBucket = overlayEngine(legacy, engineBucket)
	}
	if fileOpts != nil {
		engineBucket = overlayEngine(fileOpts, engineBucket)
	}

	r.relocateDeprecated(unit, resolverBucket, engineBucket, origins)

	var ro resolverOptions
	if err := decode(resolverBucket, &ro); err != nil {
		return nil, fmt.Errorf("%s: decoding %q options: %w", unit, core.BucketResolver, err)
	}
	var eo engineOptions
	if err := decode(engineBucket, &eo); err != nil {
		return nil, fmt.Errorf("%s: decoding %q options: %w", unit, core.BucketEngine, err)
	}

	cfg := &core.NormalizedConfig{
		Annotation:                 ro.Annotation,
		SourceMaps:                 eo.SourceMaps,
		ThrowUnlessParallelizable:  ro.ThrowUnlessParallelizable,
		CompileModules:             ro.CompileModules,
		IncludeHelpers:             ro.IncludeExternalHelpers,
		IncludeHelpersScope:        core.ScopeRoot,
		IncludePolyfill:            ro.IncludePolyfill,
		DisablePresetEnv:           ro.DisablePresetEnv,
		DisableDebugTooling:        ro.DisableDebugTooling,
		DisableModulesPolyfill:     ro.DisableModulesAPIPolyfill,
		DisablePackagesPolyfill:    ro.DisableDataPackagesPolyfill,
		DisableDecoratorTransforms: ro.DisableDecoratorTransforms,
		EnableTypedDialect:         ro.EnableTypeScriptTransform,
		Extensions:                 ro.Extensions,
		UserPlugins:                eo.Plugins,
		UserPostPlugins:            eo.PostTransformPlugins,
		EngineOptions:              passthroughOptions(engineBucket),
		ConfigFile:                 ro.ConfigFile,
	}
	if cfg.Annotation == "" {
		cfg.Annotation = DefaultAnnotation(unit)
	}
	if cfg.EnableTypedDialect == nil {
		cfg.EnableTypedDialect = ro.EnableTypedDialectTransform
	}
	if _, set := resolverBucket[KeyExtensions]; set && cfg.Extensions == nil {
		cfg.Extensions = []string{}
	}

	return cfg, nil
}

// configFileFromUnit reports whether the effective configFile option was
// set by a unit-scoped source. Unit values win the merge, so any unit
// source declaring it supplied the value.
func configFileFromUnit(sources []core.ConfigSource) bool {
	for _, src := range sources {
		if src.Scope != core.ScopeUnit {
			continue
		}
		if _, ok := src.Bucket(core.BucketResolver)[KeyConfigFile]; ok {
			return true
		}
	}
	return false
}

// mergeSources loads root sources then unit sources into one koanf instance.
// Maps merge key by key; any other value, lists included, is replaced.
func mergeSources(sources []core.ConfigSource) (map[string]any, error) {
	k := koanf.New(".")
	for _, scope := range []core.Scope{core.ScopeRoot, core.ScopeUnit} {
		for _, src := range sources {
			if src.Scope != scope || len(src.Values) == 0 {
				continue
			}
			// An empty delimiter keeps keys as given instead of unflattening them.
			if err := k.Load(confmap.Provider(src.Values, ""), nil); err != nil {
				return nil, fmt.Errorf("loading %s source: %w", scope, err)
			}
		}
	}
	return k.Raw(), nil
}

// overlayEngine returns base overlaid by top. Plugin lists are concatenated,
// base first; every other key of top wins.
func overlayEngine(base, top map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(top))
	for key, v := range base {
		out[key] = v
	}
	for key, v := range top {
		out[key] = v
	}
	for _, key := range []string{KeyPlugins, KeyPostTransformPlugins} {
		list := concatLists(base[key], top[key])
		if list != nil {
			out[key] = list
		}
	}
	return out
}

func concatLists(a, b any) []any {
	var out []any
	for _, v := range []any{a, b} {
		if v == nil {
			continue
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice {
			out = append(out, v)
			continue
		}
		for i := 0; i < rv.Len(); i++ {
			out = append(out, rv.Index(i).Interface())
		}
	}
	return out
}

// relocateDeprecated moves resolver options found in the engine bucket to
// the resolver bucket. A value already present in the resolver bucket wins.
// origins names the location each option was read from.
func (r *Resolver) relocateDeprecated(unit string, resolverBucket, engineBucket map[string]any, origins map[string]string) {
	for _, key := range DeprecatedEngineOptions {
		v, ok := engineBucket[key]
		if !ok {
			continue
		}
		if _, canonical := resolverBucket[key]; !canonical {
			resolverBucket[key] = v
		}
		location := origins[key]
		if location == "" {
			location = core.BucketEngine
		}
		r.report(diag.Deprecation(unit, key, location))
	}
}

// passthroughOptions returns the engine options handed to the preset.
func passthroughOptions(engineBucket map[string]any) map[string]any {
	out := make(map[string]any)
	for key, v := range engineBucket {
		switch key {
		case KeySourceMaps, KeyPlugins, KeyPostTransformPlugins:
			continue
		}
		if isDeprecatedEngineOption(key) {
			continue
		}
		out[key] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func isDeprecatedEngineOption(key string) bool {
	for _, k := range DeprecatedEngineOptions {
		if k == key {
			return true
		}
	}
	return false
}

// bucketOf returns a shallow copy of the named bucket, never nil.
func bucketOf(values map[string]any, name string) map[string]any {
	out := make(map[string]any)
	if m, ok := values[name].(map[string]any); ok {
		for key, v := range m {
			out[key] = v
		}
	}
	return out
}

// decode unmarshals a bucket through koanf so option decoding shares the
// tag conventions of every other config in the repository.
func decode(bucket map[string]any, out any) error {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(bucket, ""), nil); err != nil {
		return err
	}
	return k.UnmarshalWithConf("", out, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.ComposeDecodeHookFunc(pluginRefHook, sourceMapsHook),
			Result:           out,
			WeaklyTypedInput: true,
		},
	})
}

var (
	pluginRefType  = reflect.TypeOf(core.PluginRef{})
	sourceMapsType = reflect.TypeOf(core.SourceMaps(0))
)

func pluginRefHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != pluginRefType {
		return data, nil
	}
	return core.ParsePluginRef(data)
}

func sourceMapsHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != sourceMapsType {
		return data, nil
	}
	return core.ParseSourceMaps(data)
}

func (r *Resolver) report(d diag.Diagnostic) {
	if r.Report != nil {
		r.Report(d)
	}
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}
