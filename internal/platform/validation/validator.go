package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"medical-matrix/internal/platform/apperrors"
)

var (
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)
	nonDigits    = regexp.MustCompile(`\D`)
)

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New()

	v.RegisterValidation("phone", validatePhone)
	v.RegisterValidation("notblank", validateNotBlank)

	return &Validator{validate: v}
}

// Validate checks struct tags and converts failures into a validation AppError
// naming the first offending field.
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return apperrors.NewValidationError(fmt.Sprintf("%s failed %s validation", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return apperrors.NewValidationError(err.Error())
}

// ValidPhone mirrors the phone rule used by the intake screens: digits only
// after stripping punctuation, optional leading plus, no leading zero.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(nonDigits.ReplaceAllString(phone, ""))
}

func validatePhone(fl validator.FieldLevel) bool {
	phone := fl.Field().String()
	if phone == "" {
		return true
	}
	return ValidPhone(phone)
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
