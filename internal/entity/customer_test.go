package entity

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	got, err := NormalizeEmail("  A@X.com ")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got)

	for _, bad := range []string{"", "   ", "not-an-email", "a@", "@x.com", strings.Repeat("a", 250) + "@x.com"} {
		_, err := NormalizeEmail(bad)
		assert.ErrorIs(t, err, ErrInvalidEmail, bad)
		assert.ErrorIs(t, err, ErrInvalidInput, bad)
	}
}

func TestNewGuestCustomer(t *testing.T) {
	now := time.Now()

	c := NewGuestCustomer("new@x.com", "", " ", now)
	assert.Equal(t, "Guest", c.FirstName)
	assert.Equal(t, "Customer", c.LastName)
	assert.Equal(t, "Guest Customer", c.FullName())
	assert.True(t, c.IsActive)
	assert.Equal(t, now, c.CreatedAt)
	assert.Equal(t, now, c.ModifiedAt)
	require.NoError(t, c.Validate())

	c = NewGuestCustomer("new@x.com", "Ada", "Lovelace", now)
	assert.Equal(t, "Ada Lovelace", c.FullName())
}

func TestCustomerValidate(t *testing.T) {
	c := NewGuestCustomer("new@x.com", strings.Repeat("x", 101), "", time.Now())
	assert.ErrorIs(t, c.Validate(), ErrInvalidInput)

	c = NewGuestCustomer("broken", "", "", time.Now())
	assert.ErrorIs(t, c.Validate(), ErrInvalidInput)
}
