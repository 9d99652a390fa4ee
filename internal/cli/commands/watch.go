package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pipewright/internal/cli/output"
)

// watchDebounce coalesces bursts of writes from editors.
const watchDebounce = 100 * time.Millisecond

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [unit...]",
		Short: "Re-resolve pipelines when the project changes",
		Long: `Resolve the named units, or every unit, then watch the project directory
and resolve again whenever the manifest or an external engine config file
changes. The directory of every config file named by the root or a unit is
watched too, including config files added to the manifest while watching.
Only units whose pipeline changed are reported after the first run.

Press Ctrl+C to stop.`,
		ValidArgsFunction: completeUnits,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)
			return runWatch(cmd, args)
		},
	}
}

func runWatch(cmd *cobra.Command, units []string) error {
	base := NewCommandContextWithoutProject(cmd)
	r := base.Renderer
	logger := base.Logger

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(base.Cfg.Project)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	targets := newWatchTargets(watcher, dir)

	last := map[string]string{}
	rebuild := func(reason string) {
		cmdCtx, err := NewCommandContext(cmd)
		if err != nil {
			r.Error(err.Error())
			return
		}
		for _, err := range targets.track(cmdCtx.Manifest.ConfigFiles()) {
			logger.Warn("cannot watch config file directory", "error", err)
		}

		out, err := resolveUnits(cmd, cmdCtx, units)
		if err != nil {
			r.Error(err.Error())
			return
		}

		changed := changedUnits(last, out)
		if reason == "" {
			reportRenderError(r, renderResolve(r, out, false))
			return
		}
		r.Muted(fmt.Sprintf("%s Change detected: %s", time.Now().Format("15:04:05"), reason))
		if len(changed.Units) == 0 {
			r.Muted("No pipeline changed.")
			return
		}
		reportRenderError(r, renderResolve(r, changed, false))
	}

	rebuild("")

	logger.Info("watching for changes", "dir", dir)
	r.Muted(fmt.Sprintf("Watching %s for changes. Press Ctrl+C to stop.", dir))

	watchLoop(cmd.Context(), watcher, targets.relevant, watchDebounce, func(name string) {
		rebuild(filepath.Base(name))
	}, func(err error) {
		logger.Warn("watcher error", "error", err)
	})
	return nil
}

// reportRenderError prints a failure to render a rebuild. The watch keeps
// running.
func reportRenderError(r *output.Renderer, err error) {
	if err != nil {
		r.Error(fmt.Sprintf("failed to render pipelines: %v", err))
	}
}

// dirWatcher is the part of *fsnotify.Watcher that watchTargets needs.
type dirWatcher interface {
	Add(name string) error
}

// watchTargets tracks the directories being watched and the external engine
// config files that live in them. It is used from the watch loop goroutine
// only.
type watchTargets struct {
	w     dirWatcher
	dirs  map[string]bool
	files map[string]bool
}

func newWatchTargets(w dirWatcher, manifestDir string) *watchTargets {
	return &watchTargets{
		w:     w,
		dirs:  map[string]bool{filepath.Clean(manifestDir): true},
		files: map[string]bool{},
	}
}

// track starts watching the directory of every config file not seen before.
// A directory that cannot be watched is retried on the next call.
func (t *watchTargets) track(configFiles []string) []error {
	var errs []error
	for _, f := range configFiles {
		f = filepath.Clean(f)
		t.files[f] = true

		dir := filepath.Dir(f)
		if t.dirs[dir] {
			continue
		}
		if err := t.w.Add(dir); err != nil {
			errs = append(errs, fmt.Errorf("watching %s: %w", dir, err))
			continue
		}
		t.dirs[dir] = true
	}
	return errs
}

// relevant reports whether a change to name can affect a pipeline.
func (t *watchTargets) relevant(name string) bool {
	return isProjectFile(name) || t.files[filepath.Clean(name)]
}

// isProjectFile reports whether a change to name can affect a pipeline: the
// manifest and external engine config files are YAML or JSON.
func isProjectFile(name string) bool {
	switch filepath.Ext(name) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}

// watchLoop handles file system events until ctx is done. Relevant events
// are debounced by delay; rebuild runs on the loop goroutine with the name
// of the last changed file.
func watchLoop(ctx context.Context, w *fsnotify.Watcher, relevant func(string) bool, delay time.Duration, rebuild func(string), onError func(error)) {
	timer := time.NewTimer(delay)
	if !timer.Stop() {
		<-timer.C
	}
	var pending string

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !relevant(event.Name) {
				continue
			}
			pending = event.Name
			timer.Reset(delay)
		case <-timer.C:
			rebuild(pending)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			onError(err)
		}
	}
}

// changedUnits returns the units of out whose fingerprint or error differs
// from last, and records the new state in last.
func changedUnits(last map[string]string, out *output.ResolveOutput) *output.ResolveOutput {
	changed := *out
	changed.Units = nil
	changed.Summary.Total = 0
	changed.Summary.Failed = 0
	changed.Summary.Trivial = 0
	changed.Summary.Warnings = 0

	for _, up := range out.Units {
		state := up.Fingerprint
		if up.Error != "" {
			state = "error:" + up.Error
		}
		if prev, ok := last[up.Unit]; ok && prev == state {
			continue
		}
		last[up.Unit] = state

		changed.Units = append(changed.Units, up)
		changed.Summary.Total++
		changed.Summary.Warnings += len(up.Warnings)
		if up.Error != "" {
			changed.Summary.Failed++
		} else if up.Descriptor != nil && up.Descriptor.Trivial {
			changed.Summary.Trivial++
		}
	}
	return &changed
}
