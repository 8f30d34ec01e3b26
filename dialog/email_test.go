package dialog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmailSyntax(t *testing.T) {
	bad := []string{
		"",
		"plain",
		"missing-at.example.com",
		"two@@example.com",
		"trailing@",
		"Name Surname <boxed@gmail.com>",
		"spaces in@gmail.com",
	}
	for _, addr := range bad {
		err := ValidateEmail(context.Background(), addr)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, addr)
	}
}

func TestValidateEmailAcceptsDeliverableDomain(t *testing.T) {
	// gmail.com either resolves MX records or, without a resolver, fails in a
	// non-definitive way; both are accepted.
	err := ValidateEmail(context.Background(), "user@gmail.com")
	assert.NoError(t, err)
}

func TestValidationErrorCode(t *testing.T) {
	err := &ValidationError{Reason: "malformed address"}
	assert.Equal(t, "VALIDATION_ERROR", err.Code())
	assert.Contains(t, err.Error(), "malformed address")
}
