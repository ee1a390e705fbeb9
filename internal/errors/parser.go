package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo pairs an error code with a user-facing message.
type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError converts an error into a code and a message that is safe to
// show. Sensitive internals stay hidden; the user still learns enough to
// act.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Code:    InternalServerError,
			Message: "An unexpected error occurred",
		}
	}

	errStrLower := strings.ToLower(err.Error())

	// GORM base errors
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Code:    CartNotFound,
			Message: notFoundMessage(context),
		}
	}

	// Constraint violations surfaced by the driver
	if strings.Contains(errStrLower, "duplicate key") || strings.Contains(errStrLower, "unique constraint") {
		return ErrorInfo{
			Code:    ValidationInvalidInput,
			Message: "The item already exists in this cart",
		}
	}
	if strings.Contains(errStrLower, "check constraint") {
		return ErrorInfo{
			Code:    ValidationInvalidInput,
			Message: "The request violates a cart constraint",
		}
	}

	// Network / connectivity
	if strings.Contains(errStrLower, "connection refused") ||
		strings.Contains(errStrLower, "no such host") ||
		strings.Contains(errStrLower, "timeout") {
		return ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "An upstream service could not be reached, please retry shortly",
		}
	}

	return ErrorInfo{
		Code:    InternalServerError,
		Message: defaultErrorMessage(context),
	}
}

func notFoundMessage(context string) string {
	switch context {
	case "product":
		return "Product not found"
	case "cart":
		return "Cart not found"
	default:
		return "Resource not found"
	}
}

func defaultErrorMessage(context string) string {
	if context == "" {
		return "An unexpected error occurred"
	}
	return "Failed to " + context + ", please try again"
}
