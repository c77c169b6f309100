package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	playground "github.com/go-playground/validator/v10"
)

var (
	structOnce     sync.Once
	structValidate *playground.Validate
)

func engine() *playground.Validate {
	structOnce.Do(func() {
		v := playground.New()
		// report json names so the error map matches the request body
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		structValidate = v
	})
	return structValidate
}

// Struct runs the `validate` tags on s and converts failures to ValidationErrors.
func Struct(s interface{}) error {
	err := engine().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs playground.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	var errs ValidationErrors
	for _, fe := range fieldErrs {
		errs.Add(fieldPath(fe), message(fe))
	}
	return errs
}

// fieldPath drops the struct name prefix: "CreateRequest.components[0].amount" -> "components[0].amount".
func fieldPath(fe playground.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe playground.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must not exceed %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "uuid":
		return field + " must be a valid UUID"
	case "datetime":
		return fmt.Sprintf("%s must match format %s", field, fe.Param())
	case "cidr":
		return field + " must be a valid CIDR block"
	case "dive":
		return field + " is invalid"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// StructErrors is Struct for callers that keep adding their own field errors.
func StructErrors(s interface{}) ValidationErrors {
	err := Struct(s)
	if err == nil {
		return nil
	}
	var errs ValidationErrors
	if errors.As(err, &errs) {
		return errs
	}
	errs.Add("request", err.Error())
	return errs
}
