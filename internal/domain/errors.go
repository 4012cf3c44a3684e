// Package domain holds shared types used across modules.
package domain

import "fmt"

// ValidationError represents invalid caller input: malformed weights,
// unknown tickers, infeasible constraints.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}

// NewValidationError creates a ValidationError with a formatted message
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// DataUnavailableError represents missing or insufficient market data
type DataUnavailableError struct {
	Message string
	Err     error
}

func (e *DataUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data unavailable: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("data unavailable: %s", e.Message)
}

func (e *DataUnavailableError) Unwrap() error {
	return e.Err
}

// NewDataUnavailableError creates a DataUnavailableError with a formatted message
func NewDataUnavailableError(format string, args ...interface{}) *DataUnavailableError {
	return &DataUnavailableError{Message: fmt.Sprintf(format, args...)}
}

// NumericalDegenerateError represents a numerically degenerate input:
// a singular covariance matrix, a non-invertible posterior precision.
// There is no fallback for these; the caller must change the inputs.
type NumericalDegenerateError struct {
	Message string
	Err     error
}

func (e *NumericalDegenerateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("numerical degeneracy: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("numerical degeneracy: %s", e.Message)
}

func (e *NumericalDegenerateError) Unwrap() error {
	return e.Err
}

// NewNumericalDegenerateError creates a NumericalDegenerateError with a formatted message
func NewNumericalDegenerateError(format string, args ...interface{}) *NumericalDegenerateError {
	return &NumericalDegenerateError{Message: fmt.Sprintf(format, args...)}
}
