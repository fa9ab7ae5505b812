package confirmation

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Purpose restricts a token to one specific workflow so a token minted for
// one use cannot be replayed for another.
type Purpose string

const (
	PurposeConfirmation Purpose = "confirmation"
)

func (p Purpose) String() string {
	return string(p)
}

func (p Purpose) IsValid() bool {
	switch p {
	case PurposeConfirmation:
		return true
	default:
		return false
	}
}

// Error taxonomy for the token lifecycle. Handlers match these with
// errors.Is to pick status codes and user-facing messages.
var (
	ErrNotFound        = errors.New("account not found")
	ErrInvalidToken    = errors.New("invalid confirmation token")
	ErrPurposeMismatch = errors.New("token purpose mismatch")
	ErrTokenExpired    = errors.New("confirmation token expired")
	ErrTokenConsumed   = errors.New("confirmation token already consumed")
	ErrValidation      = errors.New("validation failed")
)

// Claims is the signed capsule bound into every confirmation token.
// The JWT ID (jti) identifies the token instance in the live-token ledger.
type Claims struct {
	AccountID uuid.UUID `json:"account_id"`
	Purpose   Purpose   `json:"purpose"`
	jwt.RegisteredClaims
}

// Result is returned by a successful (or idempotent) redemption.
type Result struct {
	AccountID   uuid.UUID  `json:"account_id"`
	ConfirmedAt *time.Time `json:"confirmed_at"`
	// AlreadyConfirmed is true when the redemption was a no-op because the
	// account had been confirmed before this request.
	AlreadyConfirmed bool `json:"already_confirmed"`
}
