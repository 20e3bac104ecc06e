package web

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateForm_Place(t *testing.T) {
	assert.Nil(t, validateForm(&placeForm{Name: "Tokyo"}))

	errs := validateForm(&placeForm{})
	assert.Equal(t, FieldErrors{"name": "This field is required"}, errs)

	errs = validateForm(&placeForm{Name: strings.Repeat("a", 201)})
	assert.Equal(t, "Must be at most 200 characters", errs["name"])

	// Length counts characters, not bytes.
	assert.Nil(t, validateForm(&placeForm{Name: strings.Repeat("é", 200)}))
}

func TestValidateForm_Details(t *testing.T) {
	assert.Nil(t, validateForm(&detailsForm{}))
	assert.Nil(t, validateForm(&detailsForm{Notes: "great", DateVisited: "2014-01-01"}))

	errs := validateForm(&detailsForm{DateVisited: "2014-13-01"})
	assert.Equal(t, "Enter a valid date (YYYY-MM-DD)", errs["date_visited"])

	errs = validateForm(&detailsForm{Notes: strings.Repeat("n", 2001)})
	assert.Equal(t, "Must be at most 2000 characters", errs["notes"])
}

func TestValidateForm_Login(t *testing.T) {
	errs := validateForm(&loginForm{})
	assert.Len(t, errs, 2)
	assert.Contains(t, errs, "username")
	assert.Contains(t, errs, "password")
}

func TestFieldErrorsMessages(t *testing.T) {
	fe := FieldErrors{
		"notes": "too long",
		"form":  "Please try again.",
		"date":  "bad",
	}
	assert.Equal(t, []string{"date: bad", "Please try again.", "notes: too long"}, fe.Messages())
}

func TestIsTruthy(t *testing.T) {
	for _, v := range []string{"true", "on", "1", "ON", " True "} {
		assert.True(t, isTruthy(v), v)
	}
	for _, v := range []string{"", "false", "off", "0", "yes"} {
		assert.False(t, isTruthy(v), v)
	}
}

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"":                     "/",
		"/":                    "/",
		"/place/3":             "/place/3",
		"/search?q=rome":       "/search?q=rome",
		"//evil.example.com":   "/",
		"/\\evil.example.com":  "/",
		"https://evil.example": "/",
		"javascript:alert(1)":  "/",
		"relative/path":        "/",
	}
	for in, want := range tests {
		assert.Equal(t, want, safeNext(in), in)
	}
}
