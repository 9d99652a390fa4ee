package output

import "github.com/leapstack-labs/pipewright/pkg/core"

// ResolveOutput is the structured result of the resolve command.
type ResolveOutput struct {
	Project string         `json:"project" yaml:"project"`
	RunID   string         `json:"run_id" yaml:"run_id"`
	Units   []UnitPipeline `json:"units" yaml:"units"`
	Summary ResolveSummary `json:"summary" yaml:"summary"`
}

// UnitPipeline is one resolved unit.
type UnitPipeline struct {
	Unit           string                   `json:"unit" yaml:"unit"`
	Fingerprint    string                   `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	CompileModules bool                     `json:"compile_modules" yaml:"compile_modules"`
	Helpers        bool                     `json:"helpers" yaml:"helpers"`
	TypedDialect   bool                     `json:"typed_dialect" yaml:"typed_dialect"`
	Polyfill       bool                     `json:"polyfill" yaml:"polyfill"`
	Descriptor     *core.PipelineDescriptor `json:"descriptor,omitempty" yaml:"descriptor,omitempty"`
	Warnings       []string                 `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Error          string                   `json:"error,omitempty" yaml:"error,omitempty"`
}

// ResolveSummary counts resolve outcomes.
type ResolveSummary struct {
	Total    int   `json:"total" yaml:"total"`
	Failed   int   `json:"failed" yaml:"failed"`
	Trivial  int   `json:"trivial" yaml:"trivial"`
	Warnings int   `json:"warnings" yaml:"warnings"`
	Duration int64 `json:"duration_ms" yaml:"duration_ms"`
}

// UnitsOutput is the structured result of the units command.
type UnitsOutput struct {
	Project     string     `json:"project" yaml:"project"`
	Environment string     `json:"environment" yaml:"environment"`
	Units       []UnitInfo `json:"units" yaml:"units"`
}

// UnitInfo describes one unit in the manifest.
type UnitInfo struct {
	Name         string   `json:"name" yaml:"name"`
	Root         bool     `json:"root" yaml:"root"`
	Host         string   `json:"host,omitempty" yaml:"host,omitempty"`
	Level        int      `json:"level" yaml:"level"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Embedded     []string `json:"embedded,omitempty" yaml:"embedded,omitempty"`
}

// ExtensionsOutput is the structured result of the extensions command.
type ExtensionsOutput struct {
	Unit         string   `json:"unit" yaml:"unit"`
	TypedDialect bool     `json:"typed_dialect" yaml:"typed_dialect"`
	Extensions   []string `json:"extensions" yaml:"extensions"`
	// Matches are the checked paths the unit's pipeline would process.
	Matches map[string]bool `json:"matches,omitempty" yaml:"matches,omitempty"`
}

// VersionOutput describes the running binary.
type VersionOutput struct {
	Version   string `json:"version" yaml:"version"`
	BuildDate string `json:"build_date" yaml:"build_date"`
	GitCommit string `json:"git_commit" yaml:"git_commit"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Steps     int    `json:"steps" yaml:"steps"`
}
