package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name       string
		password   string
		wantReason string
	}{
		{name: "valid", password: "Abc123!@", wantReason: ""},
		{name: "valid long", password: "Sup3r*Secret&Pass", wantReason: ""},
		{name: "too short", password: "Ab1!", wantReason: "Password must be at least 8 characters long"},
		{name: "empty", password: "", wantReason: "Password must be at least 8 characters long"},
		{name: "no uppercase", password: "abc123!@abc", wantReason: "Password must contain at least one uppercase letter"},
		{name: "no lowercase", password: "ABC123!@ABC", wantReason: "Password must contain at least one lowercase letter"},
		{name: "no digit", password: "Abcdefg!", wantReason: "Password must contain at least one number"},
		{name: "no special", password: "Abcdefg1", wantReason: "Password must contain at least one special character (@$!%*?&)"},
		{name: "special outside set", password: "Abcdefg1#", wantReason: "Password must contain at least one special character (@$!%*?&)"},
		{name: "length reported before other failures", password: "ab", wantReason: "Password must be at least 8 characters long"},
		{name: "uppercase reported before missing digit", password: "abcdefgh", wantReason: "Password must contain at least one uppercase letter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantReason == "" {
				assert.NoError(t, err)
				return
			}
			var policyErr *PolicyError
			require.ErrorAs(t, err, &policyErr)
			assert.Equal(t, tt.wantReason, policyErr.Reason)
		})
	}
}
