// Package validation validates request payloads with go-playground/validator
// and translates failures into VALIDATION_ERROR app errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"twitthon/internal/models"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// usernamePattern allows letters, digits and @ . + - _ like most account systems.
var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// GetValidator returns the shared validator. It is safe for concurrent use
// and caches struct metadata across calls.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report JSON/form names rather than Go field names.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})

		_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// ValidateStruct validates s and returns nil or a *models.AppError with code
// VALIDATION_ERROR describing every failing field.
func ValidateStruct(s any) error {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return models.NewValidationError(err.Error())
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, messageFor(fe))
	}
	return models.NewValidationError(strings.Join(messages, "; "))
}

func messageFor(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s: This field is required.", field)
	case "max":
		return fmt.Sprintf("%s: Ensure this field has no more than %s characters.", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s: Ensure this field has at least %s characters.", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s: Enter a valid email address.", field)
	case "username":
		return fmt.Sprintf("%s: Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.", field)
	default:
		return fmt.Sprintf("%s: failed %s validation", field, fe.Tag())
	}
}
