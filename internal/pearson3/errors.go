package pearson3

import "fmt"

// ValidationError reports malformed caller input: a survey period shorter
// than the combined record, an extreme count below the historical count,
// probabilities outside [0,1], mismatched array lengths, or a rank outside
// the series.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ArithmeticError reports degenerate statistical input: too few records for
// the estimators, a zero mean, or zero variation. Surfaced explicitly
// instead of letting non-finite values propagate.
type ArithmeticError struct {
	Msg string
}

func (e *ArithmeticError) Error() string { return e.Msg }

func arithmeticErrorf(format string, args ...any) *ArithmeticError {
	return &ArithmeticError{Msg: fmt.Sprintf(format, args...)}
}

// FitError reports that the least-squares solver failed to converge or
// produced non-finite parameters. Status carries the solver's diagnostic.
type FitError struct {
	Status string
	Err    error
}

func (e *FitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("curve fit failed (%s): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("curve fit failed: %s", e.Status)
}

func (e *FitError) Unwrap() error { return e.Err }
