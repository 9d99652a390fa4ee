package diag

import (
	"context"
	"log/slog"
	"sync"
)

// Sink receives user-visible warnings and fatal messages.
type Sink interface {
	Warn(message string)
	Fail(message string)
}

// SlogSink writes warnings and failures as structured log records.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink returns a sink backed by logger (nil uses a discard logger).
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SlogSink{logger: logger}
}

// Warn logs at warn level.
func (s *SlogSink) Warn(message string) {
	s.logger.Warn(message)
}

// Fail logs at error level.
func (s *SlogSink) Fail(message string) {
	s.logger.Error(message)
}

// Reporter is implemented by sinks that keep a diagnostic's attributes
// instead of only its message.
type Reporter interface {
	Report(d Diagnostic)
}

// Report sends a diagnostic to sink, through Reporter when implemented.
func Report(sink Sink, d Diagnostic) {
	if r, ok := sink.(Reporter); ok {
		r.Report(d)
		return
	}
	sink.Warn(d.Message)
}

// Report logs d at warn level with its unit, kind and step.
func (s *SlogSink) Report(d Diagnostic) {
	s.logger.LogAttrs(context.Background(), slog.LevelWarn, d.Message,
		slog.String("unit", d.Unit),
		slog.String("kind", d.Kind.String()),
		slog.String("step", d.Step),
	)
}

// Collector is a Sink that keeps every message in memory and forwards it to
// Next when set. Safe for concurrent use.
type Collector struct {
	Next Sink

	mu       sync.Mutex
	warnings []string
	failures []string
}

// Warn records a warning.
func (c *Collector) Warn(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = append(c.warnings, message)
	if c.Next != nil {
		c.Next.Warn(message)
	}
}

// Fail records a failure.
func (c *Collector) Fail(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, message)
	if c.Next != nil {
		c.Next.Fail(message)
	}
}

// Warnings returns a copy of the recorded warnings.
func (c *Collector) Warnings() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.warnings...)
}

// Report records d's message and forwards d to Next with its attributes.
func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = append(c.warnings, d.Message)
	if c.Next != nil {
		Report(c.Next, d)
	}
}

// Failures returns a copy of the recorded failures.
func (c *Collector) Failures() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.failures...)
}
