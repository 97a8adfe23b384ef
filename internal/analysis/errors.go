package analysis

import "fmt"

// InsufficientDataError is returned when a module has too few samples or points
// for the requested analysis. It never aborts sibling modules.
type InsufficientDataError struct {
	Module string
	Need   int
	Got    int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data: need at least %d, got %d", e.Module, e.Need, e.Got)
}

// FitQualityError is returned when a fit completed but was rejected.
// The partial result carrying diagnostics is returned alongside it.
type FitQualityError struct {
	Module   string
	RSquared float64
	Min      float64
	Reason   string
}

func (e *FitQualityError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: fit rejected: %s (r2=%.3f)", e.Module, e.Reason, e.RSquared)
	}
	return fmt.Sprintf("%s: fit rejected: r2 %.3f below minimum %.3f", e.Module, e.RSquared, e.Min)
}

// InvalidInputError reports a malformed or non-physiological input value
type InvalidInputError struct {
	Module string
	Field  string
	Index  int // -1 when not tied to a sample
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s: invalid %s at index %d: %s", e.Module, e.Field, e.Index, e.Reason)
	}
	return fmt.Sprintf("%s: invalid %s: %s", e.Module, e.Field, e.Reason)
}

func insufficient(module string, need, got int) error {
	return &InsufficientDataError{Module: module, Need: need, Got: got}
}

func invalid(module, field string, index int, format string, args ...any) error {
	return &InvalidInputError{Module: module, Field: field, Index: index, Reason: fmt.Sprintf(format, args...)}
}

// Module names used in errors and per-module status reporting
const (
	ModulePreprocess = "preprocess"
	ModuleDFA        = "dfa"
	ModuleVT1        = "vt1"
	ModuleCP         = "critical_power"
	ModuleHRV        = "hrv"
	ModulePMC        = "pmc"
	ModuleNP         = "np_correction"
	ModuleWPrime     = "w_prime"
	ModuleProfile    = "power_profile"
	ModuleMetabolic  = "metabolic"
	ModuleBanister   = "banister"
)
