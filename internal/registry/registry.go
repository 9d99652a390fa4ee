// Package registry catalogs the transformation steps the resolver knows about
// and which declared identifiers count as the same step. It lets the
// assembler detect that a unit already added a step before adding it again.
package registry

import (
	"sort"
	"strings"
	"sync"
)

// Step is a known transformation step together with every identifier that
// is equivalent to it.
type Step struct {
	// Name is the canonical identifier the resolver emits.
	Name string
	// Aliases are other identifiers that provide the same transform.
	Aliases []string
}

// Well-known step identifiers emitted by the resolver.
const (
	StepRuntimeHelpers     = "@babel/plugin-transform-runtime"
	StepTypeScript         = "@babel/plugin-transform-typescript"
	StepDecorators         = "@babel/plugin-proposal-decorators"
	StepClassProperties    = "@babel/plugin-proposal-class-properties"
	StepPrivateMethods     = "@babel/plugin-proposal-private-methods"
	StepPrivateInObject    = "@babel/plugin-proposal-private-property-in-object"
	StepDebugMacros        = "babel-plugin-debug-macros"
	StepModulesAPIPolyfill = "babel-plugin-ember-modules-api-polyfill"
	StepDataPackages       = "babel-plugin-ember-data-packages-polyfill"
	StepModuleResolver     = "babel-plugin-module-resolver"
	StepModulesAMD         = "@babel/plugin-transform-modules-amd"
	PresetEnv              = "@babel/preset-env"
)

// Registry maps identifiers to canonical step names. Safe for concurrent use.
type Registry struct {
	mu sync.RWMutex

	// steps maps canonical names to their definition.
	steps map[string]Step

	// byAlias maps every known identifier (canonical included) to its
	// canonical name.
	byAlias map[string]string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		steps:   make(map[string]Step),
		byAlias: make(map[string]string),
	}
}

// Default returns a registry populated with the built-in steps.
func Default() *Registry {
	r := New()
	for _, s := range builtinSteps {
		r.Register(s)
	}
	return r
}

var builtinSteps = []Step{
	{Name: StepRuntimeHelpers, Aliases: []string{"babel-plugin-transform-runtime"}},
	{Name: StepTypeScript, Aliases: []string{"babel-plugin-transform-typescript"}},
	{Name: StepDecorators, Aliases: []string{
		"babel-plugin-transform-decorators-legacy",
		"babel-plugin-transform-decorators",
	}},
	{Name: StepClassProperties, Aliases: []string{
		"@babel/plugin-transform-class-properties",
		"babel-plugin-transform-class-properties",
	}},
	{Name: StepPrivateMethods, Aliases: []string{"@babel/plugin-transform-private-methods"}},
	{Name: StepPrivateInObject, Aliases: []string{"@babel/plugin-transform-private-property-in-object"}},
	{Name: StepDebugMacros},
	{Name: StepModulesAPIPolyfill},
	{Name: StepDataPackages},
	{Name: StepModuleResolver},
	{Name: StepModulesAMD, Aliases: []string{"babel-plugin-transform-es2015-modules-amd"}},
}

// Register adds a step. Re-registering a name replaces its aliases.
func (r *Registry) Register(s Step) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.steps[s.Name]; ok {
		for _, a := range old.Aliases {
			delete(r.byAlias, a)
		}
	}
	r.steps[s.Name] = s
	r.byAlias[s.Name] = s.Name
	for _, a := range s.Aliases {
		r.byAlias[a] = s.Name
	}
}

// Canonical resolves a declared identifier to the canonical step name.
// Identifiers may also be module paths that point into a package directory
// ("/app/node_modules/@babel/plugin-proposal-decorators/lib/index.js").
func (r *Registry) Canonical(identifier string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name, ok := r.byAlias[identifier]; ok {
		return name, true
	}
	if pkg := packageFromPath(identifier); pkg != "" {
		if name, ok := r.byAlias[pkg]; ok {
			return name, true
		}
	}
	return "", false
}

// Equivalent reports whether two identifiers name the same step.
func (r *Registry) Equivalent(a, b string) bool {
	if a == b {
		return true
	}
	ca, ok := r.Canonical(a)
	if !ok {
		return false
	}
	cb, ok := r.Canonical(b)
	return ok && ca == cb
}

// Find returns the first identifier in declared that is equivalent to step.
func (r *Registry) Find(step string, declared []string) (string, bool) {
	for _, id := range declared {
		if r.Equivalent(step, id) {
			return id, true
		}
	}
	return "", false
}

// Get returns the definition of a canonical step.
func (r *Registry) Get(name string) (Step, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.steps[name]
	return s, ok
}

// Names returns the canonical step names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.steps))
	for name := range r.steps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered steps.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.steps)
}

// packageFromPath extracts "name" or "@scope/name" following the last
// node_modules segment of a module path.
func packageFromPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	idx := strings.LastIndex(p, "/node_modules/")
	if idx < 0 {
		return ""
	}
	rest := strings.Split(p[idx+len("/node_modules/"):], "/")
	if rest[0] == "" {
		return ""
	}
	if strings.HasPrefix(rest[0], "@") {
		if len(rest) < 2 || rest[1] == "" {
			return ""
		}
		return rest[0] + "/" + rest[1]
	}
	return rest[0]
}
