package backtest

import "fmt"

// ErrorCategory represents different types of errors that can occur during a run
type ErrorCategory string

const (
	// Non-fatal: the affected instrument or bar is skipped
	ErrorCategoryData     ErrorCategory = "DATA"
	ErrorCategoryStrategy ErrorCategory = "STRATEGY"

	// Fatal: the run must not start
	ErrorCategoryConfig ErrorCategory = "CONFIG"
)

// RunError is a categorized error with the component and operation that
// produced it.
type RunError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
}

// Error implements the error interface
func (e *RunError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *RunError) Unwrap() error {
	return e.Underlying
}

// IsFatal reports whether this error should abort the whole run. Data and
// strategy errors never do.
func (e *RunError) IsFatal() bool {
	return e.Category == ErrorCategoryConfig
}

// NewDataError creates a non-fatal data-quality error
func NewDataError(component, operation, message string, err error) *RunError {
	return &RunError{Category: ErrorCategoryData, Component: component, Operation: operation, Message: message, Underlying: err}
}

// NewStrategyError wraps a strategy failure for one bar
func NewStrategyError(component, operation string, err error) *RunError {
	return &RunError{Category: ErrorCategoryStrategy, Component: component, Operation: operation, Message: "signal generation failed", Underlying: err}
}

// NewConfigError creates a fatal configuration error
func NewConfigError(component, operation, message string) *RunError {
	return &RunError{Category: ErrorCategoryConfig, Component: component, Operation: operation, Message: message}
}
