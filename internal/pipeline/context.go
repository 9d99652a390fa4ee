// Package pipeline turns a unit's configuration sources and dependency facts
// into its transform-pipeline descriptor.
package pipeline

import (
	"log/slog"
	"sync"

	"github.com/leapstack-labs/pipewright/internal/diag"
	"github.com/leapstack-labs/pipewright/pkg/core"
)

// Context carries the state shared by every resolution in one build: the
// diagnostic sink, the logger, the warn-once set and the dependency memos.
// It is owned by the caller and safe for concurrent use.
type Context struct {
	sink   diag.Sink
	logger *slog.Logger
	state  *sharedState
}

type sharedState struct {
	mu sync.Mutex

	// warned holds the keys of diagnostics that may only be reported once.
	warned map[string]struct{}

	// deps memoizes lookups per (scope, dependency name).
	deps map[depKey]core.Dependency

	// runtime memoizes the runtime helpers version per project.
	runtime map[string]string
}

type depKey struct {
	scope string
	name  string
}

// NewContext returns a Context reporting to sink. A nil sink reports to
// logger, and a nil logger discards everything.
func NewContext(sink diag.Sink, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if sink == nil {
		sink = diag.NewSlogSink(logger)
	}
	return &Context{
		sink:   sink,
		logger: logger,
		state: &sharedState{
			warned:  make(map[string]struct{}),
			deps:    make(map[depKey]core.Dependency),
			runtime: make(map[string]string),
		},
	}
}

// WithSink returns a Context that reports to sink and shares everything else
// with c.
func (c *Context) WithSink(sink diag.Sink) *Context {
	return &Context{sink: sink, logger: c.logger, state: c.state}
}

// WithLogger returns a Context that logs to logger and shares everything
// else with c.
func (c *Context) WithLogger(logger *slog.Logger) *Context {
	return &Context{sink: c.sink, logger: logger, state: c.state}
}

// Logger returns the context logger.
func (c *Context) Logger() *slog.Logger {
	return c.logger
}

// Sink returns the context sink.
func (c *Context) Sink() diag.Sink {
	return c.sink
}

// report sends d to the sink.
func (c *Context) report(d diag.Diagnostic) {
	diag.Report(c.sink, d)
}

// reportOnce sends d to the sink unless a diagnostic with the same kind,
// unit and step was already reported through this context.
func (c *Context) reportOnce(d diag.Diagnostic) bool {
	key := d.Kind.String() + "\x00" + d.Unit + "\x00" + d.Step

	c.state.mu.Lock()
	_, seen := c.state.warned[key]
	if !seen {
		c.state.warned[key] = struct{}{}
	}
	c.state.mu.Unlock()

	if seen {
		return false
	}
	c.report(d)
	return true
}

// fail sends a fatal error to the sink.
func (c *Context) fail(err error) {
	c.sink.Fail(err.Error())
}

// Graph wraps g so its lookups are memoized in c under scope. Units must use
// distinct scopes unless they share a dependency graph.
func (c *Context) Graph(scope string, g core.DependencyGraph) core.DependencyGraph {
	if g == nil {
		return nil
	}
	return &memoGraph{ctx: c, scope: scope, graph: g}
}

type memoGraph struct {
	ctx   *Context
	scope string
	graph core.DependencyGraph
}

// Lookup implements core.DependencyGraph.
func (m *memoGraph) Lookup(name string) core.Dependency {
	key := depKey{scope: m.scope, name: name}
	st := m.ctx.state

	st.mu.Lock()
	dep, ok := st.deps[key]
	st.mu.Unlock()
	if ok {
		return dep
	}

	// Lookups are idempotent, so a racing duplicate stores the same value.
	dep = m.graph.Lookup(name)

	st.mu.Lock()
	st.deps[key] = dep
	st.mu.Unlock()
	return dep
}

// runtimeVersion returns the memoized runtime helpers version of project.
func (c *Context) runtimeVersion(project string, deps core.DependencyGraph, lookup func(core.DependencyGraph) string) string {
	st := c.state

	st.mu.Lock()
	v, ok := st.runtime[project]
	st.mu.Unlock()
	if ok {
		return v
	}

	v = lookup(deps)

	st.mu.Lock()
	st.runtime[project] = v
	st.mu.Unlock()
	return v
}
