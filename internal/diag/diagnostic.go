package diag

import "fmt"

// Diagnostic is a non-fatal finding produced while resolving a unit. Every
// diagnostic is reported through a Sink's Warn exactly once.
type Diagnostic struct {
	Kind    Kind
	Unit    string
	Step    string
	Message string
}

func (d Diagnostic) String() string {
	return d.Message
}

// VersionTooLow builds a diagnostic for a capability whose minimum version
// precondition is unmet.
func VersionTooLow(unit, capability, message string) Diagnostic {
	return Diagnostic{Kind: KindVersionTooLow, Unit: unit, Step: capability, Message: message}
}

// StepConflict builds a diagnostic for an automatic step that was skipped
// because the unit already declared an equivalent one.
func StepConflict(unit, step, declared string) Diagnostic {
	return Diagnostic{
		Kind: KindStepConflict,
		Unit: unit,
		Step: step,
		Message: fmt.Sprintf("%s has added %s to its build, but it is provided by default now! "+
			"The automatic %s step was skipped; you can remove the transform, or the addon that provided it.",
			unit, declared, step),
	}
}

// Deprecation builds a diagnostic for an option found at a deprecated
// location: an engine bucket or an external engine config file.
func Deprecation(unit, option, location string) Diagnostic {
	return Diagnostic{
		Kind: KindDeprecation,
		Unit: unit,
		Step: option,
		Message: fmt.Sprintf("Putting the %q option in %q is deprecated, please put it in %q instead.",
			option, location, "ember-cli-babel"),
	}
}
