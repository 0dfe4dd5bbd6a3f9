package entity

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultGuestFirstName = "Guest"
	DefaultGuestLastName  = "Customer"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Customer identity is the email address; there is at most one row per email.
type Customer struct {
	ID        int64  `validate:"-"`
	FirstName string `validate:"required,max=100"`
	LastName  string `validate:"required,max=100"`
	Email     string `validate:"required,email,max=255"`
	Phone     string `validate:"max=50"`
	Address   string `validate:"max=500"`
	City      string `validate:"max=100"`
	State     string `validate:"max=100"`
	ZipCode   string `validate:"max=20"`
	Country   string `validate:"max=100"`
	IsActive  bool

	CreatedAt  time.Time
	ModifiedAt time.Time
}

func (c *Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}

func (c *Customer) Validate() error {
	if err := validate.Struct(c); err != nil {
		return ErrInvalidInput
	}
	return nil
}

// NormalizeEmail trims and lower-cases an address after validating its format.
// Lookups and inserts always use the normalized form, so matching is
// case-insensitive.
func NormalizeEmail(email string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(email))
	if e == "" {
		return "", ErrInvalidEmail
	}
	if err := validate.Var(e, "email,max=255"); err != nil {
		return "", ErrInvalidEmail
	}
	return e, nil
}

// NewGuestCustomer builds a not-yet-persisted active customer. Empty names
// fall back to the guest defaults.
func NewGuestCustomer(email, firstName, lastName string, now time.Time) *Customer {
	if strings.TrimSpace(firstName) == "" {
		firstName = DefaultGuestFirstName
	}
	if strings.TrimSpace(lastName) == "" {
		lastName = DefaultGuestLastName
	}
	return &Customer{
		FirstName:  firstName,
		LastName:   lastName,
		Email:      email,
		IsActive:   true,
		CreatedAt:  now,
		ModifiedAt: now,
	}
}
