package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "jane@example.com", Normalize("  Jane@Example.COM "))
}

func TestIsValid(t *testing.T) {
	for _, ok := range []string{"jane@example.com", "a.b+loans@mail.example.in"} {
		assert.True(t, IsValid(ok), ok)
	}
	for _, bad := range []string{"", "jane", "jane@", "@example.com", "jane@localhost", "Jane <jane@example.com>", "jane@example."} {
		assert.False(t, IsValid(bad), bad)
	}
}

func TestDeriveNameFromEmail(t *testing.T) {
	assert.Equal(t, "Jane Doe", DeriveNameFromEmail("jane.doe@example.com"))
	assert.Equal(t, "Ravi Kumar", DeriveNameFromEmail("RAVI_kumar99@example.com"))
	assert.Equal(t, "Customer", DeriveNameFromEmail("1234@example.com"))
}
