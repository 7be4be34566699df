package validator

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/quizdesk/assignment-service/internal/models"
)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()
	registerRules(validate)

	return &BusinessValidator{validate: validate}
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	err := bv.validate.Struct(s)
	if err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateTemplateCreate validates template creation business rules
func (bv *BusinessValidator) ValidateTemplateCreate(req *TemplateCreateRequest) ValidationErrors {
	var errors ValidationErrors

	// Basic struct validation
	errors = append(errors, bv.Validate(req)...)

	// Per-question content rules
	for i, spec := range req.Questions {
		errors = append(errors, bv.validateQuestionSpec(i, spec)...)
	}

	return errors
}

// ValidateQuestionSpecs validates a replacement question list
func (bv *BusinessValidator) ValidateQuestionSpecs(specs []QuestionSpec) ValidationErrors {
	var errors ValidationErrors
	for i, spec := range specs {
		errors = append(errors, bv.validateQuestionSpec(i, spec)...)
	}
	return errors
}

// ValidateAssignmentCreate validates assignment creation business rules
func (bv *BusinessValidator) ValidateAssignmentCreate(req *AssignmentCreateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if req.Deadline != nil && req.Deadline.Before(time.Now()) {
		errors = append(errors, ValidationError{
			Field:   "deadline",
			Message: "must be in the future",
			Value:   req.Deadline,
			Rule:    "future_date",
		})
	}

	return errors
}

// validateQuestionSpec validates the kind-specific shape of a question spec
func (bv *BusinessValidator) validateQuestionSpec(index int, spec QuestionSpec) ValidationErrors {
	var errors ValidationErrors
	fieldPrefix := fmt.Sprintf("questions[%d]", index)

	switch spec.Kind {
	case models.Open:
		if len(spec.Options) > 0 || len(spec.CorrectIndices) > 0 {
			errors = append(errors, ValidationError{
				Field:   fieldPrefix + ".options",
				Message: "open questions cannot carry options or correct indices",
				Rule:    "question_content",
			})
		}

	case models.SingleSelect, models.MultiSelect:
		if len(spec.Options) < 2 {
			errors = append(errors, ValidationError{
				Field:   fieldPrefix + ".options",
				Message: "closed questions require at least 2 options",
				Value:   len(spec.Options),
				Rule:    "question_content",
			})
		}
		for j, option := range spec.Options {
			if strings.TrimSpace(option) == "" {
				errors = append(errors, ValidationError{
					Field:   fmt.Sprintf("%s.options[%d]", fieldPrefix, j),
					Message: "option cannot be empty",
					Rule:    "question_content",
				})
			}
		}
		if len(spec.CorrectIndices) == 0 {
			errors = append(errors, ValidationError{
				Field:   fieldPrefix + ".correct_indices",
				Message: "closed questions require at least one correct index",
				Rule:    "question_content",
			})
		}
		if spec.Kind == models.SingleSelect && len(spec.CorrectIndices) > 1 {
			errors = append(errors, ValidationError{
				Field:   fieldPrefix + ".correct_indices",
				Message: "single-select questions accept exactly one correct index",
				Value:   len(spec.CorrectIndices),
				Rule:    "question_content",
			})
		}
		seen := make(map[int]bool)
		for _, idx := range spec.CorrectIndices {
			if idx < 0 || idx >= len(spec.Options) {
				errors = append(errors, ValidationError{
					Field:   fieldPrefix + ".correct_indices",
					Message: fmt.Sprintf("index %d is out of bounds", idx),
					Value:   idx,
					Rule:    "question_content",
				})
			}
			if seen[idx] {
				errors = append(errors, ValidationError{
					Field:   fieldPrefix + ".correct_indices",
					Message: fmt.Sprintf("index %d is duplicated", idx),
					Value:   idx,
					Rule:    "question_content",
				})
			}
			seen[idx] = true
		}
	}

	return errors
}

// registerRules registers custom rule validators shared by all validator instances
func registerRules(validate *validator.Validate) {
	// Title validation (1-200 characters)
	validate.RegisterValidation("assignment_title", func(fl validator.FieldLevel) bool {
		title := strings.TrimSpace(fl.Field().String())
		return len(title) >= 1 && len(title) <= 200
	})

	// Deadline validation (must be in future)
	validate.RegisterValidation("future_date", func(fl validator.FieldLevel) bool {
		field := fl.Field()

		// Check if field can be nil and is nil (for pointer types)
		if field.Kind() == reflect.Ptr && field.IsNil() {
			return true // Optional field
		}

		// Handle both *time.Time and time.Time
		var deadline time.Time
		if field.Kind() == reflect.Ptr {
			deadline = field.Elem().Interface().(time.Time)
		} else {
			deadline = field.Interface().(time.Time)
		}

		return deadline.After(time.Now())
	})

	// question kind validation
	validate.RegisterValidation("question_kind", func(fl validator.FieldLevel) bool {
		kind := fl.Field().String()
		validKinds := []models.QuestionKind{models.Open, models.SingleSelect, models.MultiSelect}
		for _, vk := range validKinds {
			if models.QuestionKind(kind) == vk {
				return true
			}
		}
		return false
	})
}
