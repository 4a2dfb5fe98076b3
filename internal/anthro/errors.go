package anthro

import "fmt"

// DataFormatError reports a malformed reference table row.
type DataFormatError struct {
	Table  TableKey
	Line   int
	Reason string
}

func (e *DataFormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("reference table %s line %d: %s", e.Table, e.Line, e.Reason)
	}
	return fmt.Sprintf("reference table %s: %s", e.Table, e.Reason)
}

// MissingTableError reports a required (indicator, sex) table with no data.
type MissingTableError struct {
	Table TableKey
}

func (e *MissingTableError) Error() string {
	return fmt.Sprintf("reference table %s is missing", e.Table)
}

// OutOfRangeError reports a lookup key outside a table's domain.
type OutOfRangeError struct {
	Table    TableKey
	Key      float64
	Min, Max float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s: %g is outside the reference range [%g, %g]", e.Table, e.Key, e.Min, e.Max)
}

// ComputationError signals that an invariant guaranteed at load time was
// violated during computation. It indicates a bug, not bad input.
type ComputationError struct {
	Indicator Indicator
	Reason    string
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("computing %s: %s", e.Indicator, e.Reason)
}

// MissingValueError reports that a measurement lacks the value an
// indicator scores.
type MissingValueError struct {
	Indicator Indicator
	Field     string
}

func (e *MissingValueError) Error() string {
	return fmt.Sprintf("%s requires %s", e.Indicator, e.Field)
}

// ValidationError reports a Measurement that breaks its invariants.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// InsufficientDataError reports a velocity series that is too short.
type InsufficientDataError struct {
	Got, Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("at least %d measurements are required, got %d", e.Need, e.Got)
}
