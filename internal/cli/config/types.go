// Package config provides configuration management for the pipewright CLI.
//
// Values are layered with koanf: defaults, then pipewright.yaml, then
// PIPEWRIGHT_ environment variables, then flags set on the command line.
package config

import "github.com/leapstack-labs/pipewright/internal/project"

// Config holds all CLI configuration options.
type Config struct {
	// Project is the path of the project manifest.
	Project string `koanf:"project"`
	// Environment overrides the manifest's build environment when set.
	Environment string `koanf:"environment"`
	// CI marks the build as running in continuous integration.
	CI           bool   `koanf:"ci"`
	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output"`
	// Concurrency bounds parallel unit resolution. Zero uses GOMAXPROCS.
	Concurrency int `koanf:"concurrency"`

	// ProjectRoot anchors relative paths. Set by the loader.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values.
const (
	ConfigFileName    = "pipewright.yaml"
	ConfigFileNameAlt = "pipewright.yml"
	EnvPrefix         = "PIPEWRIGHT_"
	DefaultProject    = project.ManifestFileName
	DefaultOutput     = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)
