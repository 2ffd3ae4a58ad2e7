package validator

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const (
	ErrRequired       = "is required"
	ErrMinLength      = "must contain at least %s item(s)"
	ErrMaxLength      = "must contain at most %s item(s)"
	ErrGreaterThan    = "must be greater than %s"
	ErrUnique         = "must not contain duplicates"
	ErrPaymentToken   = "must be a single token without whitespace"
	ErrDefaultInvalid = "is invalid"
)

const maxPaymentTokenLength = 255

func NewValidator() *validator.Validate {
	validator := validator.New(validator.WithRequiredStructEnabled())

	// report fields by their JSON names
	validator.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	validator.RegisterValidation("payment_token", validatePaymentToken)

	return validator
}

func validatePaymentToken(fl validator.FieldLevel) bool {
	token := fl.Field().String()

	if token == "" || len(token) > maxPaymentTokenLength {
		return false
	}

	for _, ch := range token {
		if unicode.IsSpace(ch) || !unicode.IsPrint(ch) {
			return false
		}
	}

	return true
}

// ValidationMessage converts validator errors into readable messages
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return ErrRequired
	case "min":
		return fmt.Sprintf(ErrMinLength, err.Param())
	case "max":
		return fmt.Sprintf(ErrMaxLength, err.Param())
	case "gt":
		return fmt.Sprintf(ErrGreaterThan, err.Param())
	case "unique":
		return ErrUnique
	case "payment_token":
		return ErrPaymentToken
	default:
		return ErrDefaultInvalid
	}
}
