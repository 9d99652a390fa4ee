package testutil

import (
	"strings"
	"sync"
	"testing"
)

// Recorder is a diagnostic sink that records every message and echoes it to
// the test log.
type Recorder struct {
	t testing.TB

	mu       sync.Mutex
	warnings []string
	failures []string
}

// NewRecorder returns a Recorder bound to t.
func NewRecorder(t testing.TB) *Recorder {
	t.Helper()
	return &Recorder{t: t}
}

// Warn records a warning.
func (r *Recorder) Warn(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, message)
	r.t.Logf("WARN %s", message)
}

// Fail records a fatal message.
func (r *Recorder) Fail(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, message)
	r.t.Logf("FAIL %s", message)
}

// Warnings returns a copy of the recorded warnings.
func (r *Recorder) Warnings() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.warnings...)
}

// Failures returns a copy of the recorded fatal messages.
func (r *Recorder) Failures() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.failures...)
}

// WarningsContaining returns the warnings that contain substr.
func (r *Recorder) WarningsContaining(substr string) []string {
	var out []string
	for _, w := range r.Warnings() {
		if strings.Contains(w, substr) {
			out = append(out, w)
		}
	}
	return out
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = nil
	r.failures = nil
}
