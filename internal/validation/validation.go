package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"school-api/internal/core/security"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report json names instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return security.ValidatePasswordStrength(fl.Field().String()) == nil
	})
	return v
}

// ValidateStruct returns a field -> message map, or nil when payload is valid.
func ValidateStruct(payload any) map[string]string {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	errs := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		errs["_"] = err.Error()
		return errs
	}

	for _, fe := range validationErrors {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			errs[field] = fmt.Sprintf("The %s field is required.", field)
		case "email":
			errs[field] = fmt.Sprintf("The %s must be a valid email address.", field)
		case "min":
			errs[field] = fmt.Sprintf("The %s must be at least %s characters.", field, fe.Param())
		case "max":
			errs[field] = fmt.Sprintf("The %s may not be greater than %s characters.", field, fe.Param())
		case "oneof":
			errs[field] = fmt.Sprintf("The %s must be one of: %s.", field, fe.Param())
		case "url":
			errs[field] = fmt.Sprintf("The %s must be a valid URL.", field)
		case "strongpassword":
			errs[field] = security.ValidatePasswordStrength(fmt.Sprint(fe.Value())).Error()
		default:
			errs[field] = fmt.Sprintf("The %s field is invalid.", field)
		}
	}

	return errs
}
