package core

// Dependency is a read-only fact about an installed package, supplied by the
// host project's dependency graph.
type Dependency struct {
	Name string `json:"name" yaml:"name"`
	// Version is empty when the package is present but carries no usable version.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	Present bool   `json:"present" yaml:"present"`
}

// HasVersion reports whether the dependency is present with a known version.
func (d Dependency) HasVersion() bool {
	return d.Present && d.Version != ""
}

// DependencyGraph answers dependency lookups for one unit or project.
// Lookups are assumed idempotent and may be expensive.
type DependencyGraph interface {
	Lookup(name string) Dependency
}

// Dependencies is a DependencyGraph backed by a name -> version map.
type Dependencies map[string]string

// Lookup implements DependencyGraph.
func (d Dependencies) Lookup(name string) Dependency {
	version, ok := d[name]
	if !ok {
		return Dependency{Name: name}
	}
	return Dependency{Name: name, Version: version, Present: true}
}

// GraphFunc adapts a function to DependencyGraph.
type GraphFunc func(name string) Dependency

// Lookup implements DependencyGraph.
func (f GraphFunc) Lookup(name string) Dependency {
	return f(name)
}

// TargetSpec is an opaque environment-target descriptor (for example a
// browser matrix). It is passed through to the preset and the step oracle.
type TargetSpec map[string]any
