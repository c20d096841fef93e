package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdamOzgary/blog/internal/apperr"
)

type signup struct {
	Username string `json:"username" validate:"required,alphanum,min=3,max=32"`
	Email    string `json:"email" validate:"required,email"`
	Age      int    `json:"age" validate:"gt=0"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		input   signup
		wantMsg string
	}{
		{
			name:  "valid",
			input: signup{Username: "alice", Email: "alice@example.com", Age: 30},
		},
		{
			name:    "missing username",
			input:   signup{Email: "a@example.com", Age: 1},
			wantMsg: "username is required",
		},
		{
			name:    "short username",
			input:   signup{Username: "al", Email: "a@example.com", Age: 1},
			wantMsg: "username must be at least 3 characters",
		},
		{
			name:    "bad email and age",
			input:   signup{Username: "alice", Email: "nope"},
			wantMsg: "email must be a valid email address; age must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.input)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}
