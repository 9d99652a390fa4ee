// Package config merges the scoped configuration sources of a build unit
// into one core.NormalizedConfig.
//
// Root-scoped sources are loaded first and unit-scoped sources on top, so a
// unit value wins over a project-wide value for the same key. A handful of
// options are only meaningful project wide; declaring them at unit scope is
// a fatal error.
package config

import "github.com/leapstack-labs/pipewright/pkg/core"

// Resolver option keys (the core.BucketResolver bucket).
const (
	KeyAnnotation                  = "annotation"
	KeyCompileModules              = "compileModules"
	KeyIncludeExternalHelpers      = "includeExternalHelpers"
	KeyIncludePolyfill             = "includePolyfill"
	KeyDisablePresetEnv            = "disablePresetEnv"
	KeyDisableDebugTooling         = "disableDebugTooling"
	KeyDisableModulesAPIPolyfill   = "disableEmberModulesAPIPolyfill"
	KeyDisableDataPackagesPolyfill = "disableEmberDataPackagesPolyfill"
	KeyDisableDecoratorTransforms  = "disableDecoratorTransforms"
	KeyEnableTypeScriptTransform   = "enableTypeScriptTransform"
	KeyEnableTypedDialectTransform = "enableTypedDialectTransform"
	KeyExtensions                  = "extensions"
	KeyThrowUnlessParallelizable   = "throwUnlessParallelizable"
	KeyConfigFile                  = "configFile"
)

// Engine option keys (the core.BucketEngine bucket).
const (
	KeySourceMaps           = "sourceMaps"
	KeyPlugins              = "plugins"
	KeyPostTransformPlugins = "postTransformPlugins"
)

// RootOnlyOptions may only be declared by root-scoped sources.
var RootOnlyOptions = []string{KeyIncludeExternalHelpers}

// DeprecatedEngineOptions are resolver options that are still accepted in
// the engine bucket. They are moved to the resolver bucket with a warning.
var DeprecatedEngineOptions = []string{
	KeyIncludePolyfill,
	KeyCompileModules,
	KeyDisablePresetEnv,
	KeyDisableDebugTooling,
	KeyDisableModulesAPIPolyfill,
	KeyIncludeExternalHelpers,
}

// DefaultAnnotation is the annotation used when none is configured.
func DefaultAnnotation(unit string) string {
	return "Babel: " + unit
}

// isRootOnly reports whether key may only be set at root scope.
func isRootOnly(key string) bool {
	for _, k := range RootOnlyOptions {
		if k == key {
			return true
		}
	}
	return false
}

// rootOnlyKeyIn returns the first root-only option declared in src, looking
// at the canonical bucket and both deprecated engine locations.
func rootOnlyKeyIn(src core.ConfigSource) (string, bool) {
	for _, bucket := range []string{core.BucketResolver, core.BucketEngine, core.BucketLegacyEngine} {
		for key := range src.Bucket(bucket) {
			if isRootOnly(key) {
				return key, true
			}
		}
	}
	return "", false
}

// rootOnlyKeyInMap returns the first root-only option among the top-level
// keys of opts.
func rootOnlyKeyInMap(opts map[string]any) (string, bool) {
	for key := range opts {
		if isRootOnly(key) {
			return key, true
		}
	}
	return "", false
}
