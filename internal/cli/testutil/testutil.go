// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/pipewright/internal/cli/output"
)

// ProjectManifest is the manifest written by SetupTestProject: a root app,
// a typed addon embedding a data addon, and an addon on a modern framework.
const ProjectManifest = `name: app
environment: development
targets:
  browsers:
    - chrome 100
dependencies:
  ember-cli: "3.28.0"
  ember-cli-babel: "7.26.6"
  ember-source: "3.20.0"
  "@babel/runtime": "7.14.8"
options:
  ember-cli-babel:
    compileModules: true
    includeExternalHelpers: true
units:
  - name: typed-addon
    dependencies:
      ember-cli-typescript: "4.2.1"
    options:
      ember-cli-babel:
        configFile: engine.yaml
  - name: data-addon
    parent: typed-addon
    dependencies:
      ember-data: "3.8.0"
  - name: modern-addon
    dependencies:
      ember-source: "4.4.0"
    options:
      ember-cli-babel:
        disableDebugTooling: true
`

// EngineConfig is the external engine config referenced by typed-addon.
const EngineConfig = `loose: true
plugins:
  - babel-plugin-macros
`

// SetupTestProject creates a temporary project with a manifest and an
// external engine config file. It returns the project directory.
func SetupTestProject(t *testing.T) string {
	t.Helper()
	return SetupTestProjectWith(t, ProjectManifest)
}

// SetupTestProjectWith creates a temporary project with the given manifest.
func SetupTestProjectWith(t *testing.T, manifest string) string {
	t.Helper()

	tmpDir := t.TempDir()
	files := map[string]string{
		"project.yaml": manifest,
		"engine.yaml":  EngineConfig,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte(content), 0600); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}
	return tmpDir
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererMarkdown creates a new test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// NewTestRendererJSON creates a new test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the combined stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and basic structure.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	fenceCount := strings.Count(md, "```")
	if fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	lines := strings.Split(md, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
