package validator

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param"`
}

// ValidationErrors collects multiple validation failures.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}

	parts := make([]string, len(v))
	for i, err := range v {
		if err.Param != "" {
			parts[i] = err.Field + " failed on " + err.Tag + "=" + err.Param
		} else {
			parts[i] = err.Field + " failed on " + err.Tag
		}
	}
	return strings.Join(parts, "; ")
}

// Fields renders one human readable message per failing field, keyed by JSON name.
func (v ValidationErrors) Fields() map[string]string {
	out := make(map[string]string, len(v))
	for _, failure := range v {
		if _, exists := out[failure.Field]; exists {
			continue
		}
		out[failure.Field] = failure.message()
	}
	return out
}

func (e ValidationError) message() string {
	field := strings.ReplaceAll(e.Field, "_", " ")
	switch e.Tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, e.Param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param)
	case "uuid4", "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	default:
		if e.Param != "" {
			return fmt.Sprintf("%s failed validation: %s=%s", field, e.Tag, e.Param)
		}
		return fmt.Sprintf("%s failed validation: %s", field, e.Tag)
	}
}

// ValidateStruct validates a struct using registered rules.
func ValidateStruct(s interface{}) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	if ve, ok := err.(validator.ValidationErrors); ok {
		failures := make(ValidationErrors, 0, len(ve))
		for _, fe := range ve {
			failures = append(failures, ValidationError{
				Field: fe.Field(),
				Tag:   fe.Tag(),
				Param: fe.Param(),
			})
		}
		return failures
	}

	return err
}

// RegisterValidation exposes underlying validator custom rules.
func RegisterValidation(tag string, fn validator.Func) error {
	return getValidator().RegisterValidation(tag, fn)
}

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := fld.Tag.Get("json")
			if name == "" {
				return fld.Name
			}

			comma := strings.Index(name, ",")
			if comma != -1 {
				name = name[:comma]
			}

			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		// Money fields validate as numbers so gte/gt rules apply to them.
		validate.RegisterCustomTypeFunc(func(v reflect.Value) interface{} {
			switch d := v.Interface().(type) {
			case decimal.Decimal:
				f, _ := d.Float64()
				return f
			case *decimal.Decimal:
				if d == nil {
					return nil
				}
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{}, &decimal.Decimal{})
	})
	return validate
}
