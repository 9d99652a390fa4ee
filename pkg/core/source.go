package core

import "fmt"

// Scope identifies where a configuration source was declared.
type Scope int

// Configuration scopes. A unit-scoped value wins over a root-scoped one for
// the same option, except for root-only options.
const (
	// ScopeRoot is the project-wide (root application) scope.
	ScopeRoot Scope = iota
	// ScopeUnit is the scope of the build unit being resolved.
	ScopeUnit
)

// String returns the string representation of the scope.
func (s Scope) String() string {
	switch s {
	case ScopeRoot:
		return "root-project-wide"
	case ScopeUnit:
		return "unit-specific"
	default:
		return fmt.Sprintf("Scope(%d)", int(s))
	}
}

// Option buckets recognized inside a ConfigSource.
const (
	// BucketResolver holds the resolver's own options.
	BucketResolver = "ember-cli-babel"
	// BucketEngine holds options forwarded to the transformation engine.
	BucketEngine = "babel"
	// BucketLegacyEngine holds engine options written for the older dialect.
	// Its presence triggers the legacy compatibility merge.
	BucketLegacyEngine = "babel6"
)

// ConfigSource is one scoped, nested option record as provided by the host.
type ConfigSource struct {
	Scope  Scope          `json:"scope" yaml:"scope"`
	Values map[string]any `json:"values" yaml:"values"`
}

// RootSource builds a root-scoped source.
func RootSource(values map[string]any) ConfigSource {
	return ConfigSource{Scope: ScopeRoot, Values: values}
}

// UnitSource builds a unit-scoped source.
func UnitSource(values map[string]any) ConfigSource {
	return ConfigSource{Scope: ScopeUnit, Values: values}
}

// Bucket returns the named bucket of the source, or nil if absent or not a map.
func (s ConfigSource) Bucket(name string) map[string]any {
	if s.Values == nil {
		return nil
	}
	m, _ := s.Values[name].(map[string]any)
	return m
}
