package validation

import (
	"errors"
	"strings"
	"testing"

	"twitthon/internal/models"

	"github.com/stretchr/testify/assert"
)

type registerInput struct {
	Username string `json:"username" validate:"required,max=150,username"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		in        registerInput
		wantField string
	}{
		{"valid", registerInput{Username: "alice", Email: "a@example.com", Password: "pw"}, ""},
		{"valid without email", registerInput{Username: "bob.smith+1@x", Password: "pw"}, ""},
		{"missing username", registerInput{Password: "pw"}, "username"},
		{"username with space", registerInput{Username: "bad name", Password: "pw"}, "username"},
		{"username too long", registerInput{Username: strings.Repeat("a", 151), Password: "pw"}, "username"},
		{"bad email", registerInput{Username: "carol", Email: "nope", Password: "pw"}, "email"},
		{"missing password", registerInput{Username: "dave"}, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.in)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var appErr *models.AppError
			if assert.True(t, errors.As(err, &appErr)) {
				assert.Equal(t, models.CodeValidation, appErr.Code)
				assert.Contains(t, appErr.Message, tt.wantField+":")
			}
		})
	}
}

func TestValidateStruct_ReportsAllFields(t *testing.T) {
	err := ValidateStruct(&registerInput{Email: "nope"})
	assert.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "username:")
	assert.Contains(t, msg, "email:")
	assert.Contains(t, msg, "password:")
}
