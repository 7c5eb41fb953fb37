package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"lifedash-api/pkg/apierror"

	"github.com/go-playground/validator/v10"
)

var (
	instance *validator.Validate
	once     sync.Once
)

func get() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())

		// Report fields by their JSON names
		instance.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		_ = instance.RegisterValidation("cachetag", validateCacheTag)
	})
	return instance
}

// validateCacheTag accepts non-blank tags without whitespace.
func validateCacheTag(fl validator.FieldLevel) bool {
	tag := fl.Field().String()
	return tag != "" && !strings.ContainsAny(tag, " \t\r\n")
}

// Struct validates s and returns an *apierror.Error listing every failing field.
func Struct(s interface{}) error {
	err := get().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierror.BadRequest(err.Error())
	}

	details := make([]apierror.FieldError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, apierror.FieldError{
			Field:   fieldPath(fe),
			Message: message(fe),
		})
	}
	return apierror.ValidationError("request validation failed", details...)
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "cachetag":
		return fmt.Sprintf("%s must be a non-empty tag without whitespace", fe.Field())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
