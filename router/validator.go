package router

import (
	"reflect"
	"strings"

	"gopkg.in/go-playground/validator.v9"
)

// NewValidator func
func NewValidator() *Validator {
	v := validator.New()
	// report fields the way clients send them
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})
	return &Validator{
		validator: v,
	}
}

// Validator struct
type Validator struct {
	validator *validator.Validate
}

// Validate func
func (v *Validator) Validate(i interface{}) error {
	return v.validator.Struct(i)
}
