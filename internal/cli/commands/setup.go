// Package commands implements the pipewright subcommands.
package commands

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pipewright/internal/cli/config"
	"github.com/leapstack-labs/pipewright/internal/cli/output"
	"github.com/leapstack-labs/pipewright/internal/diag"
	"github.com/leapstack-labs/pipewright/internal/pipeline"
	"github.com/leapstack-labs/pipewright/internal/project"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Manifest *project.Manifest
	Builder  *pipeline.Builder
	Renderer *output.Renderer
}

// NewCommandContext loads the project manifest and creates a builder and
// renderer for it.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cmdCtx := NewCommandContextWithoutProject(cmd)

	m, err := cmdCtx.Cfg.LoadManifest()
	if err != nil {
		return nil, err
	}
	cmdCtx.Manifest = m
	cmdCtx.Builder = pipeline.New(pipeline.Config{BaseDir: filepath.Dir(m.Path)})

	cmdCtx.Logger.Debug("loaded project", "project", m.Name, "units", m.Graph().Len(), "path", m.Path)
	return cmdCtx, nil
}

// NewCommandContextWithoutProject creates a CommandContext without loading
// the manifest.
func NewCommandContextWithoutProject(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// PipelineContext returns a fresh resolution context. Diagnostics are logged
// through the command logger.
func (c *CommandContext) PipelineContext() *pipeline.Context {
	return pipeline.NewContext(diag.NewSlogSink(c.Logger), c.Logger)
}

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	return &config.Config{
		Project:      getEnvOrDefault(config.EnvPrefix+"PROJECT", config.DefaultProject),
		Environment:  os.Getenv(config.EnvPrefix + "ENVIRONMENT"),
		CI:           os.Getenv(config.EnvPrefix+"CI") == "true",
		Verbose:      os.Getenv(config.EnvPrefix+"VERBOSE") == "true",
		OutputFormat: getEnvOrDefault(config.EnvPrefix+"OUTPUT", config.DefaultOutput),
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
