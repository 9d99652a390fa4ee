package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/pipewright/internal/cli"
	"github.com/leapstack-labs/pipewright/internal/cli/config"
)

var outputFormats = [][2]string{
	{"auto", "Text on a terminal, markdown otherwise"},
	{"text", "Styled tables for humans"},
	{"markdown", "Markdown, suited to agents and CI summaries"},
	{"json", "Indented JSON"},
	{"yaml", "YAML"},
}

// flagsWithoutEnv are persistent flags that have no environment variable.
var flagsWithoutEnv = map[string]bool{"config": true}

// documented reports whether cmd gets its own page.
func documented(cmd *cobra.Command) bool {
	return !cmd.Hidden && cmd.Name() != "help" && cmd.Name() != "__complete"
}

// generateCLIDocs writes index.md plus one page per command.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()

	pages := map[string][]byte{"index.md": cliIndex(root)}
	for _, cmd := range root.Commands() {
		if documented(cmd) {
			pages[cmd.Name()+".md"] = commandPage(cmd)
		}
	}

	for name, data := range pages {
		if err := os.WriteFile(filepath.Join(outDir, name), data, 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		log.Printf("  Generated %s", name)
	}
	return nil
}

// cliIndex renders the overview page.
func cliIndex(root *cobra.Command) []byte {
	w := NewMarkdownWriter()

	w.Frontmatter("CLI Reference", "Command-line interface reference for pipewright")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph(root.Long)

	w.Header(2, "Installation")
	w.CodeBlock("bash", "go install github.com/leapstack-labs/pipewright/cmd/pipewright@latest")

	w.Header(2, "Commands")
	var rows [][]string
	for _, cmd := range root.Commands() {
		if documented(cmd) {
			rows = append(rows, []string{
				fmt.Sprintf("[%s](/cli/%s)", InlineCode(cmd.Name()), cmd.Name()),
				cleanDescription(cmd.Short),
			})
		}
	}
	w.Table([]string{"Command", "Description"}, rows)

	w.Header(2, "Global Options")
	w.Paragraph("Every command accepts these flags. Flags win over environment variables, which win over " + InlineCode(config.ConfigFileName) + ".")
	writeFlagsTable(w, root.PersistentFlags(), true)

	w.Header(2, "Output Formats")
	w.Paragraph("Select a format with " + InlineCode("--output") + ". In " + InlineCode("auto") + " mode, terminals get styled text and pipes get markdown.")
	formatRows := make([][]string, 0, len(outputFormats))
	for _, f := range outputFormats {
		formatRows = append(formatRows, []string{InlineCode(f[0]), f[1]})
	}
	w.Table([]string{"Format", "Description"}, formatRows)

	w.Header(2, "Exit Codes")
	w.Table([]string{"Code", "Meaning"}, [][]string{
		{InlineCode("0"), "Every requested unit resolved"},
		{InlineCode("1"), "Configuration error or at least one unit failed to resolve"},
	})

	return w.Bytes()
}

// commandPage renders the page for one command.
func commandPage(cmd *cobra.Command) []byte {
	w := NewMarkdownWriter()

	w.Frontmatter(cmd.Name(), cmd.Short)
	w.GeneratedMarker()

	w.Header(1, cmd.Name())
	desc := cmd.Long
	if desc == "" {
		desc = cmd.Short
	}
	w.Paragraph(desc)

	w.Header(2, "Usage")
	w.CodeBlock("bash", usageLine(cmd))

	if len(cmd.Aliases) > 0 {
		w.Header(2, "Aliases")
		aliases := make([]string, len(cmd.Aliases))
		for i, a := range cmd.Aliases {
			aliases[i] = InlineCode(a)
		}
		w.BulletList(aliases)
	}

	if len(cmd.ValidArgs) > 0 {
		w.Header(2, "Arguments")
		args := make([]string, len(cmd.ValidArgs))
		for i, a := range cmd.ValidArgs {
			args[i] = InlineCode(a)
		}
		w.BulletList(args)
	}

	if cmd.HasLocalFlags() {
		w.Header(2, "Options")
		writeFlagsTable(w, cmd.LocalFlags(), false)
	}

	if cmd.HasInheritedFlags() {
		w.Paragraph("Global options are listed in the [CLI reference](/cli/).")
	}

	if cmd.Example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", cleanExample(cmd.Example))
	}

	return w.Bytes()
}

// usageLine returns the command line prefixed with the binary name.
func usageLine(cmd *cobra.Command) string {
	line := cmd.UseLine()
	root := cmd.Root().Name()
	if !strings.HasPrefix(line, root) {
		line = root + " " + line
	}
	return line
}

// envVar returns the environment variable bound to a flag.
func envVar(name string) string {
	return config.EnvPrefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

// writeFlagsTable writes a table of flags, optionally with the environment
// variable that sets each one.
func writeFlagsTable(w *MarkdownWriter, flags *pflag.FlagSet, withEnv bool) {
	headers := []string{"Option", "Short", "Default", "Description"}
	if withEnv {
		headers = append(headers, "Environment")
	}

	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}

		short := ""
		if f.Shorthand != "" {
			short = "-" + f.Shorthand
		}

		def := f.DefValue
		if f.Value.Type() == "string" && def != "" {
			def = InlineCode(def)
		}

		row := []string{InlineCode("--" + f.Name), short, def, cleanDescription(f.Usage)}
		if withEnv {
			env := "-"
			if !flagsWithoutEnv[f.Name] {
				env = InlineCode(envVar(f.Name))
			}
			row = append(row, env)
		}
		rows = append(rows, row)
	})

	w.Table(headers, rows)
}

// cleanExample strips the indentation shared by every non-blank line.
func cleanExample(example string) string {
	lines := strings.Split(example, "\n")

	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent == -1 || n < indent {
			indent = n
		}
	}
	if indent <= 0 {
		return strings.TrimSpace(example)
	}

	for i, line := range lines {
		if len(line) >= indent {
			lines[i] = line[indent:]
		} else {
			lines[i] = strings.TrimLeft(line, " \t")
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
