package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "loanbroker/pkg/domain-errors"
)

func TestRegisterRequestNormalize(t *testing.T) {
	req := RegisterRequest{Email: "  Priya.Sharma@Example.com ", Password: "s3cretpass"}
	req.Normalize()
	assert.Equal(t, "priya.sharma@example.com", req.Email)
	assert.Equal(t, "Priya Sharma", req.Name)
	require.NoError(t, req.Validate())
}

func TestRegisterRequestValidate(t *testing.T) {
	cases := map[string]RegisterRequest{
		"missing email":  {Password: "longenough"},
		"bad email":      {Email: "nope", Password: "longenough"},
		"short password": {Email: "a@b.io", Password: "short"},
		"long password":  {Email: "a@b.io", Password: strings.Repeat("x", 73)},
		"long name":      {Email: "a@b.io", Password: "longenough", Name: strings.Repeat("n", 121)},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			err := req.Validate()
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func TestLoginRequestValidate(t *testing.T) {
	req := LoginRequest{Email: " A@B.io "}
	req.Normalize()
	assert.Equal(t, "a@b.io", req.Email)
	assert.Error(t, req.Validate())
}
