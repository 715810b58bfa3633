package errors

import (
	"errors"
	"fmt"
)

// RuleError is the structured error type used across ruleseek.
type RuleError struct {
	// Code is the unique error code (e.g., "ERR_402_QUESTION_EMPTY").
	Code string

	// Message is human readable. For validation errors it is shown to
	// end users verbatim, so it stays in the UI language.
	Message string

	Category Category
	Severity Severity

	// Details carries extra context as key-value pairs.
	Details map[string]string

	Cause      error
	Retryable  bool
	Suggestion string
}

// Error implements the error interface.
func (e *RuleError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RuleError) Unwrap() error {
	return e.Cause
}

// Is matches another RuleError by code so errors.Is works on sentinels.
func (e *RuleError) Is(target error) bool {
	if t, ok := target.(*RuleError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail and returns the error for chaining.
func (e *RuleError) WithDetail(key, value string) *RuleError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion sets an actionable hint for the operator.
func (e *RuleError) WithSuggestion(suggestion string) *RuleError {
	e.Suggestion = suggestion
	return e
}

// New creates a RuleError. Category, severity and the retryable flag are
// derived from the code.
func New(code string, message string, cause error) *RuleError {
	return &RuleError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a RuleError from an existing error, reusing its message.
func Wrap(code string, err error) *RuleError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

func ConfigError(message string, cause error) *RuleError {
	return New(ErrCodeConfigInvalid, message, cause)
}

func IOError(message string, cause error) *RuleError {
	return New(ErrCodeRulesNotFound, message, cause)
}

// NetworkError creates a retryable network error.
func NetworkError(message string, cause error) *RuleError {
	return New(ErrCodeNetworkUnavailable, message, cause)
}

func ValidationError(message string, cause error) *RuleError {
	return New(ErrCodeInvalidInput, message, cause)
}

func InternalError(message string, cause error) *RuleError {
	return New(ErrCodeInternal, message, cause)
}

// As finds the first RuleError in err's chain.
func As(err error) (*RuleError, bool) {
	var re *RuleError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// IsRetryable reports whether any RuleError in the chain is retryable.
func IsRetryable(err error) bool {
	re, ok := As(err)
	return ok && re.Retryable
}

// IsValidation reports whether err is a client-side validation failure.
func IsValidation(err error) bool {
	re, ok := As(err)
	return ok && re.Category == CategoryValidation
}

// GetCode extracts the error code, or "" when err is not a RuleError.
func GetCode(err error) string {
	if re, ok := As(err); ok {
		return re.Code
	}
	return ""
}
