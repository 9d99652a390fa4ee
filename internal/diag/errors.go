// Package diag defines the resolver's error taxonomy and the sinks that
// warnings and fatal messages are reported through.
package diag

import (
	"errors"
	"fmt"
)

// Kind classifies a diagnostic or fatal error.
type Kind int

// Diagnostic kinds.
const (
	// KindScopeViolation is fatal: a root-only option was set at unit scope.
	KindScopeViolation Kind = iota
	// KindMissingExternalConfig is fatal: a requested config file is missing.
	KindMissingExternalConfig
	// KindVersionTooLow degrades a capability to disabled.
	KindVersionTooLow
	// KindStepConflict skips an automatic step the caller already declared.
	KindStepConflict
	// KindDeprecation reports an option read from a deprecated location.
	KindDeprecation
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindScopeViolation:
		return "scope-violation"
	case KindMissingExternalConfig:
		return "missing-external-config"
	case KindVersionTooLow:
		return "version-too-low"
	case KindStepConflict:
		return "step-conflict"
	case KindDeprecation:
		return "deprecation"
	default:
		return "unknown"
	}
}

// Fatal reports whether diagnostics of this kind abort resolution.
func (k Kind) Fatal() bool {
	return k == KindScopeViolation || k == KindMissingExternalConfig
}

// Sentinel errors for errors.Is matching.
var (
	ErrScopeViolation        = errors.New("scope violation")
	ErrMissingExternalConfig = errors.New("missing external config")
)

// ScopeViolationError is returned when a root-only option is set in a
// unit-scoped source.
type ScopeViolationError struct {
	Unit   string
	Option string
}

func (e *ScopeViolationError) Error() string {
	return fmt.Sprintf("%s: %s is not supported in addon configurations, it is an app-wide configuration option\nHint: move %q to the root application's options",
		e.Unit, e.Option, e.Option)
}

// Is matches ErrScopeViolation.
func (e *ScopeViolationError) Is(target error) bool {
	return target == ErrScopeViolation
}

// Kind returns KindScopeViolation.
func (e *ScopeViolationError) Kind() Kind { return KindScopeViolation }

// MissingConfigError is returned when an explicitly requested external
// configuration file cannot be located or read.
type MissingConfigError struct {
	Unit string
	Path string
	Err  error
}

func (e *MissingConfigError) Error() string {
	msg := fmt.Sprintf("%s: external config file %q could not be loaded", e.Unit, e.Path)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg + "\nHint: check the configFile option or create the file"
}

// Unwrap returns the underlying error.
func (e *MissingConfigError) Unwrap() error {
	return e.Err
}

// Is matches ErrMissingExternalConfig.
func (e *MissingConfigError) Is(target error) bool {
	return target == ErrMissingExternalConfig
}

// Kind returns KindMissingExternalConfig.
func (e *MissingConfigError) Kind() Kind { return KindMissingExternalConfig }

// KindOf returns the kind of a fatal error produced by this package.
// The second result is false for foreign errors.
func KindOf(err error) (Kind, bool) {
	var k interface{ Kind() Kind }
	if errors.As(err, &k) {
		return k.Kind(), true
	}
	return 0, false
}
