package commands

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pipewright/internal/cli/output"
	"github.com/leapstack-labs/pipewright/internal/registry"
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version   string
	BuildDate string
	GitCommit string
}

// NewVersionCommand creates the version command.
func NewVersionCommand(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display pipewright version, build information and the number of known transformation steps.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := NewCommandContextWithoutProject(cmd).Renderer
			return renderVersion(r, versionOutput(info))
		},
	}
}

func versionOutput(info BuildInfo) *output.VersionOutput {
	return &output.VersionOutput{
		Version:   info.Version,
		BuildDate: info.BuildDate,
		GitCommit: info.GitCommit,
		GoVersion: runtime.Version(),
		Steps:     registry.Default().Count(),
	}
}

func renderVersion(r *output.Renderer, v *output.VersionOutput) error {
	if ok, err := r.Structured(v); ok {
		return err
	}
	r.Printf("pipewright v%s\n", v.Version)
	r.Printf("Transform pipeline resolver built with %s\n", v.GoVersion)
	if v.GitCommit != "unknown" && v.GitCommit != "" {
		r.Muted("commit " + v.GitCommit + ", built " + v.BuildDate)
	}
	r.Printf("%d known steps\n", v.Steps)
	return nil
}
