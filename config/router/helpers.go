package router

import (
	"net/http"

	"github.com/seirennn/tradeworkstation-waitlist/internal/log"
)

// GetLogger returns the correlated logger injected by the router, or a fresh JSON logger
// for contexts that did not pass through it.
func GetLogger(ctx *RequestContext) *log.Logger {
	if l, ok := ctx.Request.Context().Value(log.LoggerKeyForContext).(*log.Logger); ok && l != nil {
		return l
	}
	return log.NewLoggerWithJSONOutput().WithCorrelationID(ctx.Request.Context())
}

func ErrorResult(statusCode int, message string, data any) *ServiceResult {
	return &ServiceResult{StatusCode: statusCode, Data: data, Message: message}
}

func OKResult(data any, message string) *ServiceResult {
	return ErrorResult(http.StatusOK, message, data)
}

func BadRequestResult(message string, payload any) *ServiceResult {
	return ErrorResult(http.StatusBadRequest, message, payload)
}

func NotFoundResult(message string) *ServiceResult {
	return ErrorResult(http.StatusNotFound, message, nil)
}

func InternalServerErrorResult(message string) *ServiceResult {
	return ErrorResult(http.StatusInternalServerError, message, nil)
}

// RawResult writes body without the standard envelope, for endpoints whose response
// shape is fixed by existing clients.
func RawResult(statusCode int, body any) *ServiceResult {
	return &ServiceResult{StatusCode: statusCode, Body: body}
}
