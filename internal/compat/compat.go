// Package compat decides whether a transformation step is still needed for a
// set of environment targets.
package compat

import (
	"strings"

	"github.com/leapstack-labs/pipewright/internal/registry"
	"github.com/leapstack-labs/pipewright/internal/version"
	"github.com/leapstack-labs/pipewright/pkg/core"
)

// Oracle answers whether step must run to support targets.
type Oracle interface {
	IsStepRequired(step string, targets core.TargetSpec) bool
}

// OracleFunc adapts a function to Oracle.
type OracleFunc func(step string, targets core.TargetSpec) bool

// IsStepRequired implements Oracle.
func (f OracleFunc) IsStepRequired(step string, targets core.TargetSpec) bool {
	return f(step, targets)
}

// Always is an Oracle that requires every step.
var Always Oracle = OracleFunc(func(string, core.TargetSpec) bool { return true })

// Table is an Oracle backed by per-browser minimum versions that support a
// feature natively. Anything it cannot prove unnecessary is required.
type Table struct {
	// Minimums maps a step to browser name -> first version with native
	// support, as "MAJOR" or "MAJOR.MINOR".
	Minimums map[string]map[string]string
}

// DefaultTable returns a Table with the built-in support data.
func DefaultTable() *Table {
	return &Table{Minimums: map[string]map[string]string{
		registry.StepClassProperties: {"chrome": "74", "edge": "79", "firefox": "90", "safari": "14.1", "opera": "62"},
		registry.StepPrivateMethods:  {"chrome": "84", "edge": "84", "firefox": "90", "safari": "15", "opera": "70"},
		registry.StepPrivateInObject: {"chrome": "91", "edge": "91", "firefox": "90", "safari": "15", "opera": "77"},
	}}
}

// IsStepRequired implements Oracle.
func (t *Table) IsStepRequired(step string, targets core.TargetSpec) bool {
	minimums, ok := t.Minimums[step]
	if !ok {
		return true
	}
	queries := browserQueries(targets)
	if len(queries) == 0 {
		return true
	}
	for _, q := range queries {
		name, ver, ok := parseQuery(q)
		if !ok {
			return true
		}
		floor, known := minimums[name]
		if !known {
			return true
		}
		// Components compare numerically, so 15.10 is newer than 15.9.
		if c, ok := version.Compare(ver, floor); !ok || c < 0 {
			return true
		}
	}
	return false
}

// browserQueries extracts the browsers list from targets. It accepts a list
// of strings or a single comma separated string.
func browserQueries(targets core.TargetSpec) []string {
	if targets == nil {
		return nil
	}
	switch b := targets["browsers"].(type) {
	case string:
		var out []string
		for _, part := range strings.Split(b, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	case []string:
		return b
	case []any:
		out := make([]string, 0, len(b))
		for _, item := range b {
			s, ok := item.(string)
			if !ok {
				// Force the conservative answer for malformed entries.
				return []string{""}
			}
			out = append(out, s)
		}
		return out
	default:
		return nil
	}
}

// parseQuery parses "chrome 90" or "safari 14.1". Range queries and
// aggregate queries ("last 2 versions", "> 1%") are rejected.
func parseQuery(q string) (string, string, bool) {
	fields := strings.Fields(strings.ToLower(q))
	if len(fields) != 2 || !version.Valid(fields[1]) {
		return "", "", false
	}
	return fields[0], fields[1], true
}
