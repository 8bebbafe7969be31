package models

import (
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/ayush/social-media-api/internal/apperr"
)

var emailPattern = regexp.MustCompile(`^\w+([\.-]?\w+)*@\w+([\.-]?\w+)*(\.\w{2,3})+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("useremail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	return v
}

// Validate checks the struct tags of a request payload or patch. Failures
// wrap apperr.ErrValidation.
func Validate(v any) error {
	return apperr.Validation(validate.Struct(v))
}
