// Package validation configures the struct validator shared by the service inputs.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// New returns a validator that reports fields by their json names.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	return v
}

// FirstFailure describes the first failed rule of a validator error as (field, reason).
// Errors that do not come from the validator are reported against "body".
func FirstFailure(err error) (string, string) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "body", err.Error()
	}

	fe := verrs[0]
	if fe.Param() != "" {
		return fe.Field(), fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param())
	}
	return fe.Field(), "failed " + fe.Tag()
}
