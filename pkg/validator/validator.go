// Package validator wraps go-playground/validator for configuration structs. Failures name
// fields by their dotted mapstructure (or json) path, e.g. "cache.redis.address".
package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	mu       sync.Mutex
	instance *validator.Validate
)

// FieldError is one failed rule.
type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param,omitempty"`
}

func (e FieldError) String() string {
	if e.Param == "" {
		return e.Field + " failed on " + e.Tag
	}
	return e.Field + " failed on " + e.Tag + "=" + e.Param
}

// ValidationErrors lists every failed rule of one struct.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.String()
	}
	return strings.Join(parts, "; ")
}

// Fields returns the failing field paths in order.
func (v ValidationErrors) Fields() []string {
	fields := make([]string, len(v))
	for i, fe := range v {
		fields[i] = fe.Field
	}
	return fields
}

// ValidateStruct runs the registered rules against s.
func ValidateStruct(s any) error {
	err := get().Struct(s)

	var failures validator.ValidationErrors
	if !errors.As(err, &failures) {
		return err
	}

	out := make(ValidationErrors, 0, len(failures))
	for _, fe := range failures {
		out = append(out, FieldError{Field: fieldPath(fe.Namespace()), Tag: fe.Tag(), Param: fe.Param()})
	}
	return out
}

// RegisterValidation adds a custom rule under tag.
func RegisterValidation(tag string, fn validator.Func) error {
	return get().RegisterValidation(tag, fn)
}

// fieldPath drops the root type name from a namespace such as "Config.cache.driver".
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func get() *validator.Validate {
	mu.Lock()
	defer mu.Unlock()
	if instance == nil {
		instance = validator.New(validator.WithRequiredStructEnabled())
		instance.RegisterTagNameFunc(tagName)
	}
	return instance
}

func tagName(fld reflect.StructField) string {
	for _, key := range []string{"mapstructure", "json"} {
		name, _, _ := strings.Cut(fld.Tag.Get(key), ",")
		switch name {
		case "":
			continue
		case "-":
			return fld.Name
		default:
			return name
		}
	}
	return fld.Name
}
