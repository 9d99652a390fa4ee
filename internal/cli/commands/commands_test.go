package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/pipewright/internal/cli/config"
	"github.com/leapstack-labs/pipewright/internal/cli/output"
	clitestutil "github.com/leapstack-labs/pipewright/internal/cli/testutil"
	"github.com/leapstack-labs/pipewright/internal/registry"
	"github.com/leapstack-labs/pipewright/internal/testutil"
	"github.com/leapstack-labs/pipewright/pkg/core"
)

// executeCommand loads the CLI config for the project in dir and runs cmd.
func executeCommand(t *testing.T, dir, mode string, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("project", "", "manifest")
	flags.String("output", "", "output format")
	require.NoError(t, flags.Set("project", filepath.Join(dir, "project.yaml")))
	require.NoError(t, flags.Set("output", mode))
	_, err := config.LoadConfig("", flags)
	require.NoError(t, err)

	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	ctx := context.WithValue(context.Background(), config.LoggerKey(), testutil.NewTestLogger(t))
	err = cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{cmd: NewResolveCommand(), use: "resolve [unit...]", flags: []string{"summary"}},
		{cmd: NewUnitsCommand(), use: "units"},
		{cmd: NewExtensionsCommand(), use: "extensions <unit> [path...]"},
		{cmd: NewWatchCommand(), use: "watch [unit...]"},
	}
	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestResolve_JSON(t *testing.T) {
	dir := clitestutil.SetupTestProject(t)

	out, err := executeCommand(t, dir, "json", NewResolveCommand())
	require.NoError(t, err)

	var res output.ResolveOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))

	assert.Equal(t, "app", res.Project)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 4, res.Summary.Total)
	assert.Zero(t, res.Summary.Failed)

	units := map[string]output.UnitPipeline{}
	for _, u := range res.Units {
		units[u.Unit] = u
	}
	require.Len(t, units, 4)

	app := units["app"]
	assert.True(t, app.Helpers)
	assert.Len(t, app.Fingerprint, 64)
	assert.Equal(t, registry.StepRuntimeHelpers, app.Descriptor.Plugins[0].Identifier)

	typed := units["typed-addon"]
	assert.True(t, typed.TypedDialect)
	assert.Equal(t, []string{"js", "ts"}, typed.Descriptor.Extensions)
	assert.Contains(t, typed.Descriptor.PluginIdentifiers(), "babel-plugin-macros")

	assert.Contains(t, units["data-addon"].Descriptor.PluginIdentifiers(), registry.StepDataPackages)
	assert.NotContains(t, units["modern-addon"].Descriptor.PluginIdentifiers(), registry.StepDebugMacros)
}

func TestResolve_SelectedUnitsAndSummary(t *testing.T) {
	dir := clitestutil.SetupTestProject(t)

	out, err := executeCommand(t, dir, "yaml", NewResolveCommand(), "--summary", "modern-addon")
	require.NoError(t, err)

	var res output.ResolveOutput
	require.NoError(t, yaml.Unmarshal([]byte(out), &res))
	require.Len(t, res.Units, 1)
	assert.Equal(t, "modern-addon", res.Units[0].Unit)
	assert.Empty(t, res.Units[0].Descriptor.Plugins)
}

func TestResolve_UnitFailureReported(t *testing.T) {
	manifest := `name: app
units:
  - name: bad-addon
    options:
      ember-cli-babel:
        includeExternalHelpers: true
  - name: good-addon
`
	dir := clitestutil.SetupTestProjectWith(t, manifest)

	out, err := executeCommand(t, dir, "json", NewResolveCommand())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 units failed")

	var res output.ResolveOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	for _, u := range res.Units {
		if u.Unit == "bad-addon" {
			assert.Contains(t, u.Error, "app-wide configuration option")
			assert.Nil(t, u.Descriptor)
		} else {
			assert.Empty(t, u.Error)
		}
	}
}

func TestResolve_Markdown(t *testing.T) {
	dir := clitestutil.SetupTestProject(t)

	out, err := executeCommand(t, dir, "markdown", NewResolveCommand(), "typed-addon")
	require.NoError(t, err)

	clitestutil.AssertNoANSI(t, out)
	clitestutil.AssertValidMarkdown(t, out)
	assert.Contains(t, out, "# Pipelines for app (1 units)")
	assert.Contains(t, out, "## typed-addon")
	assert.Contains(t, out, "- **Extensions**: js, ts")
	assert.Contains(t, out, "babel-plugin-macros")
}

func TestResolve_UnknownUnit(t *testing.T) {
	dir := clitestutil.SetupTestProject(t)

	_, err := executeCommand(t, dir, "json", NewResolveCommand(), "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown unit "ghost"`)
}

func TestUnits(t *testing.T) {
	dir := clitestutil.SetupTestProject(t)

	out, err := executeCommand(t, dir, "json", NewUnitsCommand())
	require.NoError(t, err)

	var res output.UnitsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Units, 4)

	assert.Equal(t, "app", res.Units[0].Name)
	assert.True(t, res.Units[0].Root)
	assert.Equal(t, []string{"modern-addon", "typed-addon"}, res.Units[0].Embedded)

	last := res.Units[3]
	assert.Equal(t, "data-addon", last.Name)
	assert.Equal(t, "typed-addon", last.Host)
	assert.Equal(t, 2, last.Level)
	assert.Equal(t, []string{"ember-data"}, last.Dependencies)
}

func TestUnits_Markdown(t *testing.T) {
	dir := clitestutil.SetupTestProject(t)

	out, err := executeCommand(t, dir, "markdown", NewUnitsCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "# Units in app (4 total)")
	assert.Contains(t, out, "- **Environment**: development")
	assert.Contains(t, out, "(root)")
}

func TestExtensions(t *testing.T) {
	dir := clitestutil.SetupTestProject(t)

	out, err := executeCommand(t, dir, "json", NewExtensionsCommand(),
		"typed-addon", "app/app.ts", "types/index.d.ts", "styles/app.css")
	require.NoError(t, err)

	var res output.ExtensionsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.TypedDialect)
	assert.Equal(t, []string{"js", "ts"}, res.Extensions)
	assert.Equal(t, map[string]bool{
		"app/app.ts":       true,
		"types/index.d.ts": false,
		"styles/app.css":   false,
	}, res.Matches)
}

func TestExtensions_RequiresUnit(t *testing.T) {
	dir := clitestutil.SetupTestProject(t)

	_, err := executeCommand(t, dir, "json", NewExtensionsCommand())
	assert.Error(t, err)
}

func TestChangedUnits(t *testing.T) {
	out := &output.ResolveOutput{
		Units: []output.UnitPipeline{
			{Unit: "a", Fingerprint: "1", Descriptor: &core.PipelineDescriptor{Trivial: true}},
			{Unit: "b", Error: "boom"},
		},
	}
	last := map[string]string{}

	first := changedUnits(last, out)
	assert.Len(t, first.Units, 2)
	assert.Equal(t, 1, first.Summary.Failed)
	assert.Equal(t, 1, first.Summary.Trivial)

	assert.Empty(t, changedUnits(last, out).Units)

	out.Units[0].Fingerprint = "2"
	again := changedUnits(last, out)
	require.Len(t, again.Units, 1)
	assert.Equal(t, "a", again.Units[0].Unit)
}

func TestIsProjectFile(t *testing.T) {
	assert.True(t, isProjectFile("/p/project.yaml"))
	assert.True(t, isProjectFile("engine.yml"))
	assert.True(t, isProjectFile("engine.json"))
	assert.False(t, isProjectFile("app.js"))
	assert.False(t, isProjectFile("project.yaml.swp"))
}

func TestWatchLoop_DebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "project.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte("name: app\n"), 0600))

	w, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer func() { _ = w.Close() }()
	require.NoError(t, w.Add(dir))

	ctx, cancel := context.WithCancel(context.Background())
	rebuilds := make(chan string, 10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		watchLoop(ctx, w, isProjectFile, 50*time.Millisecond, func(name string) {
			rebuilds <- name
		}, func(err error) {
			t.Logf("watcher error: %v", err)
		})
	}()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600))
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(manifest, []byte("name: app\nci: true\n"), 0600))
	}

	select {
	case name := <-rebuilds:
		assert.Equal(t, manifest, name)
	case <-time.After(5 * time.Second):
		t.Fatal("no rebuild after manifest change")
	}

	select {
	case name := <-rebuilds:
		t.Fatalf("burst of writes caused a second rebuild for %s", name)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	<-done
}

type fakeDirWatcher struct {
	added []string
	fail  map[string]bool
}

func (f *fakeDirWatcher) Add(name string) error {
	if f.fail[name] {
		return os.ErrNotExist
	}
	f.added = append(f.added, name)
	return nil
}

func TestWatchTargets_TracksConfigFileDirs(t *testing.T) {
	tests := []struct {
		name        string
		configFiles []string
		fail        map[string]bool
		wantAdded   []string
		wantErrs    int
		relevant    map[string]bool
	}{
		{
			name:        "config file beside the manifest",
			configFiles: []string{"/p/engine.conf"},
			wantAdded:   nil,
			relevant:    map[string]bool{"/p/engine.conf": true, "/p/project.yaml": true, "/p/app.js": false},
		},
		{
			name:        "config files in subdirectories",
			configFiles: []string{"/p/config/a.conf", "/p/config/b.yaml", "/p/other/c.conf"},
			wantAdded:   []string{"/p/config", "/p/other"},
			relevant:    map[string]bool{"/p/config/a.conf": true, "/p/other/c.conf": true, "/p/other/d.conf": false},
		},
		{
			name:        "unwatchable directory",
			configFiles: []string{"/p/missing/a.yaml", "/p/config/b.yaml"},
			fail:        map[string]bool{"/p/missing": true},
			wantAdded:   []string{"/p/config"},
			wantErrs:    1,
			relevant:    map[string]bool{"/p/missing/a.yaml": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &fakeDirWatcher{fail: tt.fail}
			targets := newWatchTargets(w, "/p")

			errs := targets.track(tt.configFiles)
			assert.Len(t, errs, tt.wantErrs)
			assert.Equal(t, tt.wantAdded, w.added)

			assert.Empty(t, targets.track(tt.configFiles[len(tt.configFiles)-1:]), "known directories are not added again")
			assert.Equal(t, tt.wantAdded, w.added)

			for name, want := range tt.relevant {
				assert.Equal(t, want, targets.relevant(name), name)
			}
		})
	}
}

func TestReportRenderError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr string
	}{
		{name: "success prints nothing", err: nil, wantErr: ""},
		{name: "failure is reported", err: errors.New("broken pipe"), wantErr: "error: failed to render pipelines: broken pipe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			r := output.NewRendererWithTTY(&out, &errOut, false, output.ModeMarkdown)

			reportRenderError(r, tt.err)
			assert.Empty(t, out.String())
			if tt.wantErr == "" {
				assert.Empty(t, errOut.String())
				return
			}
			assert.Contains(t, errOut.String(), tt.wantErr)
		})
	}
}
