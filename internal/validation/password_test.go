package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{
			name:     "valid password",
			password: "Secret1!",
			wantErr:  nil,
		},
		{
			name:     "too short",
			password: "Ab1",
			wantErr:  ErrPasswordTooShort,
		},
		{
			name:     "too long for bcrypt",
			password: "Aa1" + strings.Repeat("x", 70),
			wantErr:  ErrPasswordTooLong,
		},
		{
			name:     "missing uppercase",
			password: "secret123",
			wantErr:  ErrPasswordTooWeak,
		},
		{
			name:     "missing lowercase",
			password: "SECRET123",
			wantErr:  ErrPasswordTooWeak,
		},
		{
			name:     "missing digit",
			password: "SecretPass",
			wantErr:  ErrPasswordTooWeak,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
