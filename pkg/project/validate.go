package project

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks c against its field constraints. Call it on a defaulted config.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return FormatValidationError(err)
	}
	return nil
}

// ValidateStruct runs the shared validator against any tagged struct.
func ValidateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return FormatValidationError(err)
	}
	return nil
}

// FormatValidationError converts validator errors into user-friendly messages.
func FormatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var errorMessages []string
		for _, e := range validationErrors {
			errorMessages = append(errorMessages, formatFieldError(e))
		}

		if len(errorMessages) == 1 {
			return fmt.Errorf("validation error: %s", errorMessages[0])
		}

		var b strings.Builder
		b.WriteString("validation errors:\n")
		for _, msg := range errorMessages {
			fmt.Fprintf(&b, "  - %s\n", msg)
		}
		return errors.New(b.String())
	}
	return fmt.Errorf("validation failed: %w", err)
}

func formatFieldError(e validator.FieldError) string {
	field := e.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required but missing", field)
	case "required_if":
		return fmt.Sprintf("field '%s' is required when %s", field, strings.Replace(e.Param(), " ", " is ", 1))
	case "eq":
		return fmt.Sprintf("field '%s' must be '%s'", field, e.Param())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s", field, e.Param())
	case "url":
		return fmt.Sprintf("field '%s' must be a valid URL", field)
	case "unique":
		return fmt.Sprintf("field '%s' must not contain duplicates", field)
	case "dns_rfc1035_label":
		return fmt.Sprintf("field '%s' must be a lowercase DNS label (a-z, 0-9, '-', starting with a letter), got '%v'", field, e.Value())
	case "len":
		return fmt.Sprintf("field '%s' must be exactly %s characters long", field, e.Param())
	case "numeric":
		return fmt.Sprintf("field '%s' must be numeric", field)
	case "min", "max":
		return fmt.Sprintf("field '%s' is out of range (%s=%s)", field, e.Tag(), e.Param())
	default:
		return fmt.Sprintf("field '%s' failed validation (%s)", field, e.Tag())
	}
}
