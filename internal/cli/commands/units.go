package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pipewright/internal/cli/output"
	"github.com/leapstack-labs/pipewright/internal/project"
)

// NewUnitsCommand creates the units command.
func NewUnitsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "units",
		Short: "List the build units in the project",
		Long: `List the root application and every unit embedded in it, hosts before
the units they embed.`,
		Example: `  # List units
  pipewright units

  # List units as YAML
  pipewright units -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			out, err := listUnits(cmdCtx.Manifest)
			if err != nil {
				return err
			}
			return renderUnits(cmdCtx.Renderer, out)
		},
	}
}

func listUnits(m *project.Manifest) (*output.UnitsOutput, error) {
	g := m.Graph()
	levels, err := g.Levels()
	if err != nil {
		return nil, err
	}

	out := &output.UnitsOutput{Project: m.Name, Environment: m.Environment}
	for level, names := range levels {
		for _, name := range names {
			u, _ := g.Unit(name)
			info := output.UnitInfo{
				Name:     name,
				Root:     name == m.Name,
				Level:    level,
				Embedded: g.Children(name),
			}
			if hosts := g.Ancestors(name); len(hosts) > 0 {
				info.Host = hosts[0]
			}
			for dep := range u.Dependencies {
				info.Dependencies = append(info.Dependencies, dep)
			}
			sort.Strings(info.Dependencies)
			out.Units = append(out.Units, info)
		}
	}
	return out, nil
}

func renderUnits(r *output.Renderer, out *output.UnitsOutput) error {
	if ok, err := r.Structured(out); ok {
		return err
	}

	r.Header(1, fmt.Sprintf("Units in %s (%d total)", out.Project, len(out.Units)))
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatKeyValue("Environment", out.Environment))
		r.Println("")
	}

	rows := make([][]string, 0, len(out.Units))
	for _, u := range out.Units {
		name := strings.Repeat("  ", u.Level) + u.Name
		host := u.Host
		if u.Root {
			host = "(root)"
		}
		rows = append(rows, []string{name, host, fmt.Sprintf("%d", len(u.Dependencies)), strings.Join(u.Embedded, ", ")})
	}
	r.Table([]string{"unit", "host", "dependencies", "embedded"}, rows)
	return nil
}

// completeUnits completes unit names from the project manifest.
func completeUnits(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	m, err := getConfig().LoadManifest()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return m.UnitNames(), cobra.ShellCompDirectiveNoFileComp
}
