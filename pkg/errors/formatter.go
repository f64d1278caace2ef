package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationErrorResponse names a rejected field by its JSON name. Used for logs only;
// clients of the join route always get the fixed "Invalid email address" body.
type ValidationErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var tagMessages = map[string]string{
	"required": "This field is required",
	"contains": "Invalid email format",
	"email":    "Invalid email format",
}

func FormatValidationErrors(err error, model interface{}) []ValidationErrorResponse {
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return []ValidationErrorResponse{{
			Field:   typeErr.Field,
			Message: fmt.Sprintf("Invalid type for field %s. Expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value),
		}}
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	structType := reflect.TypeOf(model)
	for structType != nil && structType.Kind() == reflect.Ptr {
		structType = structType.Elem()
	}

	formatted := make([]ValidationErrorResponse, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		message, ok := tagMessages[fieldError.Tag()]
		if !ok {
			message = "Invalid value"
		}

		formatted = append(formatted, ValidationErrorResponse{
			Field:   jsonFieldName(structType, fieldError.StructField()),
			Message: message,
		})
	}
	return formatted
}

func jsonFieldName(structType reflect.Type, fieldName string) string {
	if structType == nil || structType.Kind() != reflect.Struct {
		return fieldName
	}

	field, ok := structType.FieldByName(fieldName)
	if !ok {
		return fieldName
	}

	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return fieldName
	}
	return name
}
