// Package errors provides structured error handling for ruleseek.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Rule corpus and storage I/O errors
//   - 3XX: Network errors (webhooks)
//   - 4XX: Question and request validation errors
//   - 5XX: Internal errors
package errors

// Category classifies an error by the first digit of its code.
type Category string

const (
	CategoryConfig     Category = "CONFIG"
	CategoryIO         Category = "IO"
	CategoryNetwork    Category = "NETWORK"
	CategoryValidation Category = "VALIDATION"
	CategoryInternal   Category = "INTERNAL"
)

// Severity says how the caller should react to an error.
type Severity string

const (
	// SeverityFatal means the process cannot continue (e.g. no corpus at all).
	SeverityFatal Severity = "FATAL"
	// SeverityError means the current request failed.
	SeverityError Severity = "ERROR"
	// SeverityWarning means the service degraded but keeps serving.
	SeverityWarning Severity = "WARNING"
)

// Error codes.
const (
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	ErrCodeRulesNotFound   = "ERR_201_RULES_NOT_FOUND"
	ErrCodeRulesCorrupt    = "ERR_202_RULES_CORRUPT"
	ErrCodeRulesWrite      = "ERR_203_RULES_WRITE"
	ErrCodeStorageFailed   = "ERR_204_STORAGE_FAILED"
	ErrCodeNoRulesLoaded   = "ERR_205_NO_RULES_LOADED"
	ErrCodeLockUnavailable = "ERR_206_LOCK_UNAVAILABLE"

	ErrCodeNetworkTimeout     = "ERR_301_NETWORK_TIMEOUT"
	ErrCodeNetworkUnavailable = "ERR_302_NETWORK_UNAVAILABLE"
	ErrCodeWebhookRejected    = "ERR_303_WEBHOOK_REJECTED"

	ErrCodeInvalidInput  = "ERR_401_INVALID_INPUT"
	ErrCodeQuestionEmpty = "ERR_402_QUESTION_EMPTY"
	ErrCodeQueryTooLong  = "ERR_403_QUERY_TOO_LONG"
	ErrCodeBadRequest    = "ERR_404_BAD_REQUEST"

	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeSearchFailed = "ERR_502_SEARCH_FAILED"
)

func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeNoRulesLoaded:
		return SeverityFatal
	}
	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode reports codes worth another attempt. A webhook that
// answered 4xx is not retried.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeNetworkTimeout, ErrCodeNetworkUnavailable, ErrCodeLockUnavailable:
		return true
	default:
		return false
	}
}
