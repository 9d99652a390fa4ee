package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pipewright/internal/cli/output"
	"github.com/leapstack-labs/pipewright/internal/pipeline"
	"github.com/leapstack-labs/pipewright/pkg/core"
)

// NewResolveCommand creates the resolve command.
func NewResolveCommand() *cobra.Command {
	var summary bool

	cmd := &cobra.Command{
		Use:   "resolve [unit...]",
		Short: "Resolve the transform pipeline of each unit",
		Long: `Resolve the transform pipeline of the named units, or of every unit in the
project manifest, and print the resulting descriptors.

Units are resolved concurrently. A unit that fails does not stop the others;
the command exits non-zero when any unit failed.

Output adapts to environment:
  - Terminal: Styled tables
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json, yaml`,
		Example: `  # Resolve every unit
  pipewright resolve

  # Resolve one unit as JSON
  pipewright resolve my-addon --output json

  # Only show the decisions, not the steps
  pipewright resolve --summary`,
		ValidArgsFunction: completeUnits,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, args, summary)
		},
	}

	cmd.Flags().BoolVar(&summary, "summary", false, "Omit plugin and preset lists")
	return cmd
}

func runResolve(cmd *cobra.Command, units []string, summary bool) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	out, err := resolveUnits(cmd, cmdCtx, units)
	if err != nil {
		return err
	}

	if err := renderResolve(cmdCtx.Renderer, out, summary); err != nil {
		return err
	}
	if out.Summary.Failed > 0 {
		return fmt.Errorf("%d of %d units failed to resolve", out.Summary.Failed, out.Summary.Total)
	}
	return nil
}

// resolveUnits builds the named units of the command's project.
func resolveUnits(cmd *cobra.Command, cmdCtx *CommandContext, units []string) (*output.ResolveOutput, error) {
	inputs, err := cmdCtx.Manifest.Inputs(units...)
	if err != nil {
		return nil, err
	}

	batch, err := cmdCtx.Builder.BuildAll(cmd.Context(), cmdCtx.PipelineContext(), inputs, pipeline.BuildAllOptions{
		Concurrency: cmdCtx.Cfg.Concurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("resolution interrupted: %w", err)
	}

	out := &output.ResolveOutput{
		Project: cmdCtx.Manifest.Name,
		RunID:   batch.RunID,
		Units:   make([]output.UnitPipeline, 0, len(batch.Results)),
		Summary: output.ResolveSummary{
			Total:    len(batch.Results),
			Duration: batch.Duration.Milliseconds(),
		},
	}
	for _, res := range batch.Results {
		up := output.UnitPipeline{Unit: res.Unit, Warnings: res.Warnings}
		out.Summary.Warnings += len(res.Warnings)

		if res.Err != nil {
			up.Error = res.Err.Error()
			out.Summary.Failed++
			out.Units = append(out.Units, up)
			continue
		}

		plan := res.Plan
		up.Descriptor = plan.Descriptor
		up.CompileModules = plan.CompileModules
		up.Helpers = plan.Helpers
		up.TypedDialect = plan.TypedDialect
		up.Polyfill = plan.Polyfill
		if fp, err := plan.Descriptor.Fingerprint(); err == nil {
			up.Fingerprint = fp
		}
		if plan.Descriptor.Trivial {
			out.Summary.Trivial++
		}
		out.Units = append(out.Units, up)
	}
	return out, nil
}

func renderResolve(r *output.Renderer, out *output.ResolveOutput, summary bool) error {
	if summary {
		for i := range out.Units {
			if d := out.Units[i].Descriptor; d != nil {
				trimmed := *d
				trimmed.Plugins = nil
				trimmed.Presets = nil
				out.Units[i].Descriptor = &trimmed
			}
		}
	}

	if ok, err := r.Structured(out); ok {
		return err
	}

	markdown := r.EffectiveMode() == output.ModeMarkdown
	r.Header(1, fmt.Sprintf("Pipelines for %s (%d units)", out.Project, out.Summary.Total))

	for _, up := range out.Units {
		renderUnitPipeline(r, up, markdown)
	}

	line := fmt.Sprintf("%d resolved, %d failed, %d trivial, %d warnings in %dms",
		out.Summary.Total-out.Summary.Failed, out.Summary.Failed, out.Summary.Trivial, out.Summary.Warnings, out.Summary.Duration)
	if markdown {
		r.Println(output.FormatKeyValue("Summary", line))
		return nil
	}
	if out.Summary.Failed > 0 {
		r.Println(r.Styles().Error.Render(line))
	} else {
		r.Success(line)
	}
	return nil
}

func renderUnitPipeline(r *output.Renderer, up output.UnitPipeline, markdown bool) {
	styles := r.Styles()
	r.Header(2, up.Unit)

	if up.Error != "" {
		if markdown {
			r.Println(output.FormatKeyValue("Error", up.Error))
		} else {
			r.Println(styles.StatusFailed.String() + " " + styles.Error.Render(up.Error))
		}
		r.Println("")
		return
	}

	d := up.Descriptor
	fields := [][2]string{
		{"Annotation", d.Annotation},
		{"Fingerprint", shortFingerprint(up.Fingerprint)},
		{"Extensions", strings.Join(d.Extensions, ", ")},
		{"Source maps", d.SourceMaps.String()},
		{"Compile modules", yesNo(up.CompileModules)},
		{"External helpers", yesNo(up.Helpers)},
		{"Typed dialect", yesNo(up.TypedDialect)},
		{"Polyfill", yesNo(up.Polyfill)},
	}
	if d.ModuleIDStrategy != "" {
		fields = append(fields, [2]string{"Module ids", d.ModuleIDStrategy})
	}
	for _, f := range fields {
		if markdown {
			r.Println(output.FormatKeyValue(f[0], f[1]))
		} else {
			r.Printf("  %s %s\n", styles.Muted.Render(f[0]+":"), f[1])
		}
	}
	r.Println("")

	if d.Trivial {
		r.Muted("Trivial pipeline: sources pass through unchanged.")
		r.Println("")
	}
	if len(d.Plugins) > 0 {
		r.Table([]string{"#", "plugin", "label", "params"}, stepRows(d.Plugins))
	}
	if len(d.Presets) > 0 {
		r.Table([]string{"#", "preset", "label", "params"}, stepRows(d.Presets))
	}

	for _, w := range up.Warnings {
		if markdown {
			r.Printf("> **Warning**: %s\n", w)
		} else {
			r.Println(styles.Warning.Render("! " + w))
		}
	}
	if len(up.Warnings) > 0 {
		r.Println("")
	}
}

func stepRows(refs []core.PluginRef) [][]string {
	rows := make([][]string, len(refs))
	for i, ref := range refs {
		rows[i] = []string{fmt.Sprintf("%d", i+1), ref.Identifier, ref.Label, formatParams(ref.Params)}
	}
	return rows
}

func formatParams(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%v", params)
	}
	return string(data)
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
