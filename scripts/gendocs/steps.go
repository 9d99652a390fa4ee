package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/pipewright/internal/registry"
)

// generateStepDocs generates the reference of known transformation steps.
func generateStepDocs(outDir string) error {
	log.Printf("Generating step docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	reg := registry.Default()

	w := NewMarkdownWriter()
	w.Frontmatter("Steps", "Transformation steps known to pipewright")
	w.GeneratedMarker()

	w.Header(1, "Steps")
	w.Paragraph(fmt.Sprintf("pipewright knows **%d steps**. A unit that declares a step under any of its identifiers is treated as having added it, so the resolver does not add it a second time.", reg.Count()))
	w.Paragraph("Identifiers may also be module paths into a package directory, for example " +
		InlineCode("/app/node_modules/"+registry.StepDecorators+"/lib/index.js") + ".")

	headers := []string{"Step", "Also matches"}
	var rows [][]string
	for _, name := range reg.Names() {
		step, _ := reg.Get(name)
		also := "-"
		if len(step.Aliases) > 0 {
			also = joinCode(step.Aliases)
		}
		rows = append(rows, []string{InlineCode(name), also})
	}
	w.Table(headers, rows)

	w.Header(2, "Preset")
	w.Paragraph("Every pipeline carries " + InlineCode(registry.PresetEnv) + " unless " + InlineCode("disablePresetEnv") + " is set.")

	filename := filepath.Join(outDir, "steps.md")
	return os.WriteFile(filename, w.Bytes(), 0600)
}
