package validation

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// MaxNodeNameLength bounds device and gateway names; they appear in event topics.
	MaxNodeNameLength = 64

	nodeNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_\-]+$`)
)

func init() {
	validate = validator.New()
	// Registration only fails for empty tags or nil funcs.
	_ = validate.RegisterValidation("nodename", func(fl validator.FieldLevel) bool {
		return ValidateNodeName(fl.Field().String()) == nil
	})
	_ = validate.RegisterValidation("avrport", func(fl validator.FieldLevel) bool {
		return ValidatePortLetter(fl.Field().String()) == nil
	})
}

// Struct validates v using its `validate` struct tags.
func Struct(v any) error {
	if v == nil {
		return errors.New("value cannot be nil")
	}
	if err := validate.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateNodeName checks that name can be used as a node name and topic segment.
func ValidateNodeName(name string) error {
	if name == "" {
		return errors.New("node name cannot be empty")
	}
	if len(name) > MaxNodeNameLength {
		return fmt.Errorf("node name '%s' exceeds maximum length of %d characters", name, MaxNodeNameLength)
	}
	if !nodeNamePattern.MatchString(name) {
		return fmt.Errorf("node name '%s' contains invalid characters (only alphanumeric, underscore and dash allowed)", name)
	}
	return nil
}

// ValidatePortLetter checks for a single GPIO port letter A through L.
func ValidatePortLetter(port string) error {
	if len(port) != 1 || port[0] < 'A' || port[0] > 'L' {
		return fmt.Errorf("port '%s' must be a single letter A-L", port)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Namespace()
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "nodename":
			return fmt.Errorf("%s: %w", field, ValidateNodeName(e.Value().(string)))
		case "avrport":
			return fmt.Errorf("%s: %w", field, ValidatePortLetter(e.Value().(string)))
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}
