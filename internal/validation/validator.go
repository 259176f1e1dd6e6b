package validation

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("notblank", notBlank)
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Struct validates s against its struct tags and returns Errors on failure.
func Struct(s any) error {
	if err := instance().Struct(s); err != nil {
		if ve := ToErrors(err); len(ve) > 0 {
			return ve
		}
		return err
	}
	return nil
}

// notBlank rejects strings that are empty after trimming whitespace.
func notBlank(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return !fl.Field().IsZero()
	}
	return strings.TrimSpace(fl.Field().String()) != ""
}
