package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the struct validator with domain rules registered
type Validator struct {
	validate *validator.Validate
	business *BusinessValidator
}

// New creates a validator with all custom rules registered
func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	registerRules(validate)
	return &Validator{
		validate: validate,
		business: NewBusinessValidator(),
	}
}

// GetBusinessValidator exposes the domain-rule validator
func (v *Validator) GetBusinessValidator() *BusinessValidator {
	return v.business
}

// Struct validates a struct and returns the raw validator error
func (v *Validator) Struct(s interface{}) error {
	return v.validate.Struct(s)
}

// Validate validates a struct, returning ValidationErrors on failure
func (v *Validator) Validate(s interface{}) error {
	if errs := v.ValidateStruct(s); errs.HasErrors() {
		return errs
	}
	return nil
}

// ValidateStruct validates a struct and converts failures to ValidationErrors
func (v *Validator) ValidateStruct(s interface{}) ValidationErrors {
	if err := v.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidationError describes a single failed field rule
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of field validation failures
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// HasErrors reports whether any validation failure was recorded
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// ToValidationErrors converts go-playground validator errors to the domain form
func ToValidationErrors(err error) ValidationErrors {
	if err == nil {
		return nil
	}

	var invalidErr *validator.InvalidValidationError
	if errors.As(err, &invalidErr) {
		return ValidationErrors{{
			Field:   "",
			Message: err.Error(),
			Rule:    "invalid",
		}}
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{{
			Field:   "",
			Message: err.Error(),
			Rule:    "unknown",
		}}
	}

	result := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		result = append(result, ValidationError{
			Field:   toSnakeCase(fe.Field()),
			Message: messageForTag(fe),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return result
}

func messageForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "question_kind":
		return "must be one of: open, single_select, multi_select"
	case "assignment_title":
		return "must be between 1 and 200 characters"
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
