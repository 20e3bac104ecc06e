package web

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldErrors maps a form field name to a human-readable message.
type FieldErrors map[string]string

// Messages returns the errors as "field: message" lines, sorted by field.
// Errors not tied to a field are keyed "form" and carry no prefix.
func (fe FieldErrors) Messages() []string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "form" {
			out = append(out, fe[f])
			continue
		}
		out = append(out, f+": "+fe[f])
	}
	return out
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report errors under the form field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type placeForm struct {
	Name    string `form:"name" validate:"required,max=200"`
	Visited bool   `form:"visited"`
}

type detailsForm struct {
	Notes       string `form:"notes" validate:"max=2000"`
	DateVisited string `form:"date_visited" validate:"omitempty,datetime=2006-01-02"`
}

type loginForm struct {
	Username string `form:"username" validate:"required,max=150"`
	Password string `form:"password" validate:"required"`
}

// validateForm runs struct validation and converts failures into FieldErrors.
// It returns nil when the form is valid.
func validateForm(form any) FieldErrors {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{"form": "Invalid value"}
	}
	fe := make(FieldErrors, len(verrs))
	for _, e := range verrs {
		fe[e.Field()] = validationMessage(e)
	}
	return fe
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "max":
		return "Must be at most " + e.Param() + " characters"
	case "datetime":
		return "Enter a valid date (YYYY-MM-DD)"
	default:
		return "Invalid value"
	}
}

// isTruthy reports whether a checkbox-style form value is set.
func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "on", "1":
		return true
	default:
		return false
	}
}
