package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pipewright/internal/cli/output"
	"github.com/leapstack-labs/pipewright/internal/extensions"
)

// NewExtensionsCommand creates the extensions command.
func NewExtensionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "extensions <unit> [path...]",
		Short: "Show which source files a unit's pipeline processes",
		Long: `Show the file extensions a unit's pipeline applies to. When paths are
given, report for each one whether the pipeline would process it.`,
		Example: `  # Extensions of an addon
  pipewright extensions my-addon

  # Check individual files
  pipewright extensions my-addon app/app.ts types/index.d.ts`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: completeUnits,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			out, err := unitExtensions(cmdCtx, args[0], args[1:])
			if err != nil {
				return err
			}
			return renderExtensions(cmdCtx.Renderer, out, args[1:])
		},
	}
}

func unitExtensions(cmdCtx *CommandContext, unit string, paths []string) (*output.ExtensionsOutput, error) {
	in, err := cmdCtx.Manifest.Input(unit)
	if err != nil {
		return nil, err
	}
	plan, err := cmdCtx.Builder.Plan(cmdCtx.PipelineContext(), in)
	if err != nil {
		return nil, err
	}

	out := &output.ExtensionsOutput{
		Unit:         unit,
		TypedDialect: plan.TypedDialect,
		Extensions:   plan.Descriptor.Extensions,
	}
	if len(paths) > 0 {
		filter := extensions.NewFilter(out.Extensions)
		out.Matches = make(map[string]bool, len(paths))
		for _, p := range paths {
			out.Matches[p] = filter.Match(p)
		}
	}
	return out, nil
}

func renderExtensions(r *output.Renderer, out *output.ExtensionsOutput, paths []string) error {
	if ok, err := r.Structured(out); ok {
		return err
	}

	exts := "(none)"
	if len(out.Extensions) > 0 {
		exts = strings.Join(out.Extensions, ", ")
	}

	r.Header(1, fmt.Sprintf("Extensions for %s", out.Unit))
	r.Println(output.FormatKeyValue("Extensions", exts))
	r.Println(output.FormatKeyValue("Typed dialect", yesNo(out.TypedDialect)))
	r.Println("")

	if len(paths) == 0 {
		return nil
	}
	rows := make([][]string, len(paths))
	for i, p := range paths {
		rows[i] = []string{p, yesNo(out.Matches[p])}
	}
	r.Table([]string{"path", "processed"}, rows)
	return nil
}
