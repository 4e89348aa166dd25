package engine

import (
	"errors"
	"fmt"
	"strings"
)

// EngineError represents an error detected while executing queries or
// resolving sections.
//
// EngineError includes structured fields for diagnostics.
type EngineError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// SectionID identifies the affected section, if any.
	SectionID string

	// DataSourceID identifies the affected data source, if any.
	DataSourceID string

	// Path is the dependency cycle for CYCLE_DETECTED, first node repeated last.
	Path []string

	// Err is the underlying cause.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeValidation indicates a query failed pre-flight validation.
	ErrCodeValidation ErrorCode = "VALIDATION_FAILED"

	// ErrCodeFetch indicates the data source failed.
	ErrCodeFetch ErrorCode = "FETCH_FAILED"

	// ErrCodeCycleDetected indicates sections depend on each other transitively.
	ErrCodeCycleDetected ErrorCode = "CYCLE_DETECTED"

	// ErrCodePanic indicates a panic was recovered during execution.
	ErrCodePanic ErrorCode = "EXECUTION_PANIC"

	// ErrCodeCancelled indicates the context was done before work finished.
	ErrCodeCancelled ErrorCode = "CANCELLED"
)

// Error implements the error interface.
func (e *EngineError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.SectionID != "" {
		msg += fmt.Sprintf(" (section=%s)", e.SectionID)
	}
	if e.DataSourceID != "" {
		msg += fmt.Sprintf(" (source=%s)", e.DataSourceID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *EngineError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

// IsCycleError returns true if the error is a cycle detection error.
// Uses errors.As to handle wrapped errors.
func IsCycleError(err error) bool {
	return hasCode(err, ErrCodeCycleDetected)
}

// IsFetchError returns true if the error came from a data source.
func IsFetchError(err error) bool {
	return hasCode(err, ErrCodeFetch)
}

// IsCancelled returns true if the error reports a done context.
func IsCancelled(err error) bool {
	return hasCode(err, ErrCodeCancelled)
}

// NewCycleError creates an EngineError for a dependency cycle.
// path lists the sections on the cycle with the offending section repeated
// at both ends, e.g. ["C", "B", "C"].
func NewCycleError(path []string) *EngineError {
	section := ""
	if len(path) > 0 {
		section = path[len(path)-1]
	}
	return &EngineError{
		Code:      ErrCodeCycleDetected,
		Message:   fmt.Sprintf("circular dependency: %s", strings.Join(path, " → ")),
		SectionID: section,
		Path:      path,
	}
}

// NewFetchError wraps a data source failure.
func NewFetchError(dataSourceID string, err error) *EngineError {
	return &EngineError{
		Code:         ErrCodeFetch,
		Message:      "data source fetch failed",
		DataSourceID: dataSourceID,
		Err:          err,
	}
}

// NewCancelledError reports that work stopped because ctx was done.
func NewCancelledError(sectionID string, err error) *EngineError {
	return &EngineError{
		Code:      ErrCodeCancelled,
		Message:   "resolution stopped",
		SectionID: sectionID,
		Err:       err,
	}
}

// NewValidationError reports the blocking findings of query.Validate.
func NewValidationError(sectionID string, problems []string) *EngineError {
	return &EngineError{
		Code:      ErrCodeValidation,
		Message:   "invalid query: " + strings.Join(problems, "; "),
		SectionID: sectionID,
	}
}
