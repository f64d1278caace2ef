package errors

import (
	"errors"
)

var statusByType = map[string]int{
	ErrorTypeInvalidRequest:      StatusBadRequest,
	ErrorTypeConflict:            StatusConflict,
	ErrorTypeRateLimitExceeded:   StatusTooManyRequests,
	ErrorTypeDatabaseError:       StatusInternalServerError,
	ErrorTypeInternalServerError: StatusInternalServerError,
}

// HTTPStatusCode maps err to a response status. Anything unclassified is a 500.
func HTTPStatusCode(err error) int {
	if status, ok := statusByType[GetErrorType(err)]; ok {
		return status
	}
	return StatusInternalServerError
}

// GetHumanReadableMessage returns the AppError message, never the wrapped cause.
func GetHumanReadableMessage(err error) string {
	var appErr *AppError
	if err != nil && errors.As(err, &appErr) {
		return appErr.Message
	}
	return "An unexpected error occurred"
}
