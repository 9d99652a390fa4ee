// Package project loads a project manifest: the root application, the units
// embedded in it, their installed dependencies and their build options. It
// stands in for the host build tool's dependency graph so pipelines can be
// resolved from the command line.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/leapstack-labs/pipewright/internal/config"
	"github.com/leapstack-labs/pipewright/internal/pipeline"
	"github.com/leapstack-labs/pipewright/pkg/core"
)

// ManifestFileName is the default manifest name.
const ManifestFileName = "project.yaml"

// ManifestFileNameAlt is the alternate manifest name.
const ManifestFileNameAlt = "project.yml"

// DefaultEnvironment is used when the manifest names none.
const DefaultEnvironment = "development"

// Manifest describes a project.
type Manifest struct {
	Name         string            `koanf:"name"`
	Environment  string            `koanf:"environment"`
	CI           bool              `koanf:"ci"`
	Targets      map[string]any    `koanf:"targets"`
	Dependencies map[string]string `koanf:"dependencies"`
	// Options are the root application's build options.
	Options map[string]any `koanf:"options"`
	Units   []UnitSpec     `koanf:"units"`

	// Path is the file the manifest was loaded from.
	Path string `koanf:"-"`

	graph *Graph
}

// UnitSpec describes a unit embedded in the project.
type UnitSpec struct {
	Name string `koanf:"name"`
	// Parent is the host unit. Empty means the root application.
	Parent       string            `koanf:"parent"`
	Dependencies map[string]string `koanf:"dependencies"`
	Options      map[string]any    `koanf:"options"`
}

// UnknownUnitError is returned when a unit name is not in the manifest.
type UnknownUnitError struct {
	Name      string
	Available []string
}

func (e *UnknownUnitError) Error() string {
	return fmt.Sprintf("unknown unit %q\nAvailable units: %v\nHint: check the units list in %s", e.Name, e.Available, ManifestFileName)
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("error reading manifest %s: %w", path, err)
	}

	var m Manifest
	if err := k.Unmarshal("", &m); err != nil {
		return nil, fmt.Errorf("unable to decode manifest %s: %w", path, err)
	}
	m.Path = path

	if err := m.Init(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	return &m, nil
}

// LoadFromDir loads the manifest in dir. It returns nil, nil if there is none.
func LoadFromDir(dir string) (*Manifest, error) {
	path := findManifest(dir)
	if path == "" {
		return nil, nil
	}
	return Load(path)
}

// findManifest returns the manifest path in dir, or "" if not found.
func findManifest(dir string) string {
	for _, name := range []string{ManifestFileName, ManifestFileNameAlt} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// FindRoot walks up from startDir to the first directory holding a manifest.
// Returns empty string if not found.
func FindRoot(startDir string) string {
	dir := startDir
	for {
		if findManifest(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Init applies defaults and builds the unit graph. Load calls it; manifests
// built in code must call it before use.
func (m *Manifest) Init() error {
	if m.Name == "" {
		return fmt.Errorf("project name is required")
	}
	if m.Environment == "" {
		m.Environment = DefaultEnvironment
	}

	g := NewGraph()
	g.AddUnit(&UnitSpec{Name: m.Name, Dependencies: m.Dependencies, Options: m.Options})
	for i := range m.Units {
		u := &m.Units[i]
		if u.Name == "" {
			return fmt.Errorf("unit #%d has no name", i)
		}
		if _, dup := g.Unit(u.Name); dup {
			return fmt.Errorf("duplicate unit %q", u.Name)
		}
		g.AddUnit(u)
	}
	for i := range m.Units {
		u := &m.Units[i]
		host := u.Parent
		if host == "" {
			host = m.Name
		}
		if err := g.AddEdge(host, u.Name); err != nil {
			return fmt.Errorf("unit %q: %w", u.Name, err)
		}
	}
	if hasCycle, path := g.HasCycle(); hasCycle {
		return fmt.Errorf("cycle detected in unit hosts: %v", path)
	}

	m.graph = g
	return nil
}

// Graph returns the unit graph.
func (m *Manifest) Graph() *Graph {
	return m.graph
}

// UnitNames returns every unit name, root first, hosts before embedded units.
func (m *Manifest) UnitNames() []string {
	// Init rejects cycles, so Order cannot fail here.
	names, _ := m.graph.Order()
	return names
}

// Project returns the pipeline view of the root project.
func (m *Manifest) Project() pipeline.Project {
	return pipeline.Project{
		Name:        m.Name,
		Deps:        core.Dependencies(m.Dependencies),
		Targets:     core.TargetSpec(m.Targets),
		Environment: m.Environment,
		CI:          m.CI,
	}
}

// Input returns the resolution input of one unit.
func (m *Manifest) Input(name string) (pipeline.Input, error) {
	u, ok := m.graph.Unit(name)
	if !ok {
		return pipeline.Input{}, &UnknownUnitError{Name: name, Available: m.sortedNames()}
	}

	in := pipeline.Input{
		Unit:     name,
		IsRoot:   name == m.Name,
		UnitDeps: core.Dependencies(u.Dependencies),
		Project:  m.Project(),
	}
	if len(m.Options) > 0 {
		in.Sources = append(in.Sources, core.RootSource(m.Options))
	}
	if !in.IsRoot && len(u.Options) > 0 {
		in.Sources = append(in.Sources, core.UnitSource(u.Options))
	}
	if in.IsRoot {
		in.UnitDeps = core.Dependencies(m.Dependencies)
	}
	return in, nil
}

// Inputs returns the inputs of the named units, or of every unit when names
// is empty, in UnitNames order.
func (m *Manifest) Inputs(names ...string) ([]pipeline.Input, error) {
	if len(names) == 0 {
		names = m.UnitNames()
	}
	inputs := make([]pipeline.Input, 0, len(names))
	for _, name := range names {
		in, err := m.Input(name)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

func (m *Manifest) sortedNames() []string {
	return m.graph.sortedNames()
}

// ConfigFiles returns the external engine config files named by the root
// options or any unit, resolved against the manifest directory. The result
// is sorted and holds no duplicates.
func (m *Manifest) ConfigFiles() []string {
	dir := filepath.Dir(m.Path)
	seen := make(map[string]bool)
	add := func(options map[string]any) {
		bucket, _ := options[core.BucketResolver].(map[string]any)
		name, _ := bucket[config.KeyConfigFile].(string)
		if name == "" {
			return
		}
		if !filepath.IsAbs(name) {
			name = filepath.Join(dir, name)
		}
		seen[filepath.Clean(name)] = true
	}

	add(m.Options)
	for _, u := range m.Units {
		add(u.Options)
	}

	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}
