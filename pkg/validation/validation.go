// Package validation wraps go-playground/validator and reports failures as
// per-field messages addressed by JSON field name.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError describes a single invalid request field.
type FieldError struct {
	Type     string `json:"type"`
	Path     string `json:"path"`
	Msg      string `json:"msg"`
	Location string `json:"location"`
}

// Error collects every field error found in a payload.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Msg)
	}
	return strings.Join(msgs, " ")
}

// Messages maps "<json field>.<tag>" to the text reported for that failure.
type Messages map[string]string

// Validator checks structs annotated with `validate` tags.
type Validator struct {
	validate *validator.Validate
}

// New builds a Validator reporting json field names.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return &Validator{validate: v}
}

// Struct validates payload and returns *Error on failure. Only the first
// failing rule per field is reported.
func (v *Validator) Struct(payload any, messages Messages) error {
	err := v.validate.Struct(payload)
	if err == nil {
		return nil
	}
	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return err
	}
	out := &Error{Fields: make([]FieldError, 0, len(invalid))}
	seen := make(map[string]struct{}, len(invalid))
	for _, fe := range invalid {
		path := fe.Field()
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		msg, ok := messages[path+"."+fe.Tag()]
		if !ok {
			msg = "Invalid value."
		}
		out.Fields = append(out.Fields, FieldError{
			Type:     "field",
			Path:     path,
			Msg:      msg,
			Location: "body",
		})
	}
	return out
}

// Fields extracts the field errors from err, if it is a validation failure.
func Fields(err error) ([]FieldError, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Fields, true
	}
	return nil, false
}
