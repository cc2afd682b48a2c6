package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	validate   *validator.Validate
	translator ut.Translator

	difficultyTag  = "difficulty"
	difficultyText = "{0} must be one of EASY, MEDIUM or HARD"
)

func init() {
	validate = validator.New()

	// Register the english error messages for validation errors.
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(difficultyTag, func(fl validator.FieldLevel) bool {
		return Difficulty(fl.Field().String()).Valid()
	})
	registerTranslation(difficultyTag, difficultyText)
}

func registerTranslation(tag, text string) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, false) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// ValidationError represents a validation error. It is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ErrNotEligible is returned when progress is applied to an account without progress state
var ErrNotEligible = ValidationError{Field: "role", Message: "only student accounts have progress"}

// IsValidationError reports whether err carries a ValidationError
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// validateStruct runs the struct tags and converts the first failure to a ValidationError
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return ValidationError{Field: fieldPath(fe.Namespace()), Message: fe.Translate(translator)}
	}
	return ValidationError{Field: "", Message: err.Error()}
}

// fieldPath drops the root struct name from a validator namespace
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
