package validator

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type signUp struct {
	Email    string `validate:"required,email"`
	Username string `validate:"required,min=3,max=30"`
	Hours    int    `validate:"max=24"`
}

func TestFormatValidationError(t *testing.T) {
	v := validator.New()

	err := v.Struct(signUp{Email: "nope", Username: "ab", Hours: 30})

	msg := FormatValidationError(err)
	assert.Contains(t, msg, "email must be a valid email")
	assert.Contains(t, msg, "username must be at least 3 characters")
	assert.Contains(t, msg, "hours must be at most 24")
}

func TestFormatPlainError(t *testing.T) {
	assert.Equal(t, "EOF", FormatValidationError(errors.New("EOF")))
}

type settingsPatch struct {
	Theme  string   `validate:"omitempty,oneof=light dark system"`
	Tags   []string `validate:"max=2"`
	UserID string   `validate:"required,uuid"`
}

func TestFormatValidationErrorLabels(t *testing.T) {
	v := validator.New()

	err := v.Struct(settingsPatch{Theme: "neon", Tags: []string{"a", "b", "c"}, UserID: "x"})

	msg := FormatValidationError(err)
	assert.Contains(t, msg, "theme must be one of: light, dark, system")
	assert.Contains(t, msg, "tags may hold at most 2 items")
	assert.Contains(t, msg, "user id must be a valid id")
}

func TestFieldLabel(t *testing.T) {
	tests := map[string]string{
		"DisplayName":     "display name",
		"IsProfilePublic": "is profile public",
		"Bio":             "bio",
		"IDToken":         "id token",
	}
	for in, want := range tests {
		assert.Equal(t, want, fieldLabel(in), in)
	}
}
