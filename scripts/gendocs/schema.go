package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/pipewright/internal/cli/config"
	optkeys "github.com/leapstack-labs/pipewright/internal/config"
	"github.com/leapstack-labs/pipewright/internal/project"
)

// generateSchemaDocs generates the configuration and manifest reference.
func generateSchemaDocs(outDir string) error {
	log.Printf("Generating schema docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := generateConfigurationDoc(outDir); err != nil {
		return fmt.Errorf("failed to generate configuration.md: %w", err)
	}
	log.Printf("  Generated configuration.md")

	if err := generateManifestDoc(outDir); err != nil {
		return fmt.Errorf("failed to generate manifest.md: %w", err)
	}
	log.Printf("  Generated manifest.md")

	return nil
}

// ConfigField represents a configuration field definition.
type ConfigField struct {
	Name        string
	Type        string
	Required    bool
	Default     string
	Description string
	Category    string // "cli", "manifest", "unit", "resolver", "engine"
}

// getConfigSchema returns the configuration schema definition. It follows
// internal/cli/config.Config, project.Manifest and the option keys in
// internal/config.
func getConfigSchema() []ConfigField {
	return []ConfigField{
		{Name: "project", Type: "string", Default: config.DefaultProject, Description: "Path to the project manifest", Category: "cli"},
		{Name: "environment", Type: "string", Description: "Build environment, overrides the manifest", Category: "cli"},
		{Name: "ci", Type: "bool", Default: "false", Description: "Build runs in continuous integration", Category: "cli"},
		{Name: "concurrency", Type: "int", Default: "0", Description: "Units resolved at once, 0 means one per CPU", Category: "cli"},
		{Name: "output", Type: "string", Default: config.DefaultOutput, Description: "Output format: auto, text, markdown, json, yaml", Category: "cli"},
		{Name: "verbose", Type: "bool", Default: "false", Description: "Log debug messages", Category: "cli"},

		{Name: "name", Type: "string", Required: true, Description: "Name of the root application", Category: "manifest"},
		{Name: "environment", Type: "string", Default: project.DefaultEnvironment, Description: "Build environment", Category: "manifest"},
		{Name: "ci", Type: "bool", Default: "false", Description: "Build runs in continuous integration", Category: "manifest"},
		{Name: "targets", Type: "map[string]any", Description: "Browser and runtime targets, passed to the preset", Category: "manifest"},
		{Name: "dependencies", Type: "map[string]string", Description: "Packages installed by the root application, name to version", Category: "manifest"},
		{Name: "options", Type: "map[string]any", Description: "Build options of the root application", Category: "manifest"},
		{Name: "units", Type: "list", Description: "Units embedded in the project", Category: "manifest"},

		{Name: "name", Type: "string", Required: true, Description: "Unit name, unique in the project", Category: "unit"},
		{Name: "parent", Type: "string", Description: "Host unit, defaults to the root application", Category: "unit"},
		{Name: "dependencies", Type: "map[string]string", Description: "Packages installed by the unit", Category: "unit"},
		{Name: "options", Type: "map[string]any", Description: "Build options of the unit", Category: "unit"},

		{Name: optkeys.KeyCompileModules, Type: "bool", Description: "Compile module syntax to AMD, defaults by host build tool version", Category: "resolver"},
		{Name: optkeys.KeyIncludeExternalHelpers, Type: "bool", Default: "false", Description: "Share runtime helpers across units (root only)", Category: "resolver"},
		{Name: optkeys.KeyIncludePolyfill, Type: "bool", Default: "false", Description: "Ship the runtime polyfill", Category: "resolver"},
		{Name: optkeys.KeyDisablePresetEnv, Type: "bool", Default: "false", Description: "Skip the environment preset", Category: "resolver"},
		{Name: optkeys.KeyDisableDebugTooling, Type: "bool", Default: "false", Description: "Skip the debug macro steps", Category: "resolver"},
		{Name: optkeys.KeyDisableModulesAPIPolyfill, Type: "bool", Default: "false", Description: "Skip the modules API polyfill", Category: "resolver"},
		{Name: optkeys.KeyDisableDataPackagesPolyfill, Type: "bool", Default: "false", Description: "Skip the data packages polyfill", Category: "resolver"},
		{Name: optkeys.KeyDisableDecoratorTransforms, Type: "bool", Default: "false", Description: "Skip the decorator and class field steps", Category: "resolver"},
		{Name: optkeys.KeyEnableTypeScriptTransform, Type: "bool", Default: "false", Description: "Add the typed dialect transform", Category: "resolver"},
		{Name: optkeys.KeyEnableTypedDialectTransform, Type: "bool", Default: "false", Description: "Alias of " + optkeys.KeyEnableTypeScriptTransform, Category: "resolver"},
		{Name: optkeys.KeyExtensions, Type: "list", Description: "File extensions the pipeline accepts", Category: "resolver"},
		{Name: optkeys.KeyThrowUnlessParallelizable, Type: "bool", Default: "false", Description: "Fail when a step cannot run in parallel", Category: "resolver"},
		{Name: optkeys.KeyConfigFile, Type: "string", Description: "External engine config file, relative to the manifest", Category: "resolver"},
		{Name: optkeys.KeyAnnotation, Type: "string", Description: "Label for the pipeline, defaults to " + InlineCode(optkeys.DefaultAnnotation("<unit>")), Category: "resolver"},

		{Name: optkeys.KeySourceMaps, Type: "string or bool", Description: "Source map mode", Category: "engine"},
		{Name: optkeys.KeyPlugins, Type: "list", Description: "Steps declared by the unit", Category: "engine"},
		{Name: optkeys.KeyPostTransformPlugins, Type: "list", Description: "Steps run after the resolver's own steps", Category: "engine"},
	}
}

func fieldRows(category string) [][]string {
	var rows [][]string
	for _, f := range getConfigSchema() {
		if f.Category != category {
			continue
		}
		defVal := f.Default
		if defVal == "" {
			defVal = "-"
		} else {
			defVal = InlineCode(defVal)
		}
		req := "No"
		if f.Required {
			req = "Yes"
		}
		rows = append(rows, []string{InlineCode(f.Name), f.Type, req, defVal, f.Description})
	}
	return rows
}

var fieldHeaders = []string{"Field", "Type", "Required", "Default", "Description"}

// generateConfigurationDoc generates the CLI configuration page.
func generateConfigurationDoc(outDir string) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Configuration", "pipewright configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph(fmt.Sprintf("pipewright reads %s from the project root. Values are layered: defaults, then the config file, then %s environment variables, then command-line flags.",
		InlineCode(config.ConfigFileName), InlineCode(config.EnvPrefix+"*")))

	w.Header(2, "Settings")
	w.Table(fieldHeaders, fieldRows("cli"))

	w.Header(2, "Example")
	w.CodeBlock("yaml", `# pipewright.yaml
project: project.yaml
environment: production
concurrency: 4
output: markdown`)

	filename := filepath.Join(outDir, "configuration.md")
	return os.WriteFile(filename, w.Bytes(), 0600)
}

// generateManifestDoc generates the project manifest page.
func generateManifestDoc(outDir string) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Project Manifest", "Reference for the project manifest")
	w.GeneratedMarker()

	w.Header(1, "Project Manifest")
	w.Paragraph(fmt.Sprintf("The manifest (%s) lists the root application, the units embedded in it and the options each one builds with.",
		InlineCode(project.ManifestFileName)))

	w.Header(2, "Top-level Fields")
	w.Table(fieldHeaders, fieldRows("manifest"))

	w.Header(2, "Unit Fields")
	w.Table(fieldHeaders, fieldRows("unit"))

	w.Header(2, "Build Options")
	w.Paragraph("Build options are grouped by bucket. Resolver options go under " + InlineCode("ember-cli-babel") + " and engine options under " + InlineCode("babel") + ".")

	w.Header(3, "Resolver Options")
	w.Table(fieldHeaders, fieldRows("resolver"))

	w.Header(3, "Engine Options")
	w.Table(fieldHeaders, fieldRows("engine"))
	w.Paragraph(fmt.Sprintf("These resolver options are still accepted in the engine bucket with a deprecation warning: %s.", joinCode(optkeys.DeprecatedEngineOptions)))

	w.Header(2, "Example")
	w.CodeBlock("yaml", `name: my-app
environment: development
targets:
  browsers:
    - last 2 chrome versions
dependencies:
  ember-cli-babel: "7.26.6"
  ember-source: "3.28.0"
options:
  ember-cli-babel:
    includeExternalHelpers: true
units:
  - name: my-addon
    dependencies:
      ember-cli-typescript: "4.2.1"
    options:
      babel:
        plugins:
          - babel-plugin-transform-decorators-legacy`)

	filename := filepath.Join(outDir, "manifest.md")
	return os.WriteFile(filename, w.Bytes(), 0600)
}

func joinCode(items []string) string {
	var s string
	for i, item := range items {
		if i > 0 {
			s += ", "
		}
		s += InlineCode(item)
	}
	return s
}
