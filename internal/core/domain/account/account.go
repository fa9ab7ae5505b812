package account

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Account is the confirmable entity. It is created unconfirmed and
// transitions to confirmed exactly once; ConfirmedAt is never reset.
type Account struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Email       string     `json:"email" db:"email"`
	ConfirmedAt *time.Time `json:"confirmed_at" db:"confirmed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// IsConfirmed reports whether the account has completed email confirmation.
func (a *Account) IsConfirmed() bool {
	return a.ConfirmedAt != nil
}

// RegisterAccountRequest represents the request to register a new account
type RegisterAccountRequest struct {
	Email string `json:"email"`
}

// Validate checks the registration fields and returns a field-level message
// suitable for re-presenting to the caller.
func (r *RegisterAccountRequest) Validate() error {
	email := strings.TrimSpace(r.Email)
	if email == "" {
		return fmt.Errorf("email: is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("email: is not a valid address")
	}
	r.Email = email
	return nil
}

// ConfirmAccountRequest represents the request to redeem a confirmation token
type ConfirmAccountRequest struct {
	Token string `json:"token"`
}

// ResendConfirmationRequest represents the request to resend the confirmation email
type ResendConfirmationRequest struct {
	Email string `json:"email"`
}
