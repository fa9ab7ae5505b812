package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/quillforge/confirmation-service/internal/core/domain/confirmation"
)

// TokenLedgerRepository tracks the single live token per account. Issuing a
// fresh token supersedes the previous one; consuming removes the entry.
// Implementations may use Redis or another ephemeral store.
type TokenLedgerRepository interface {
	// PutLive records tokenID as the only live token for the account,
	// replacing whatever was live before. The entry expires at expiresAt.
	PutLive(ctx context.Context, accountID, tokenID uuid.UUID, expiresAt time.Time) error
	// GetLive returns the live token id for the account, or
	// confirmation.ErrTokenConsumed when no entry exists.
	GetLive(ctx context.Context, accountID uuid.UUID) (uuid.UUID, error)
	// Consume atomically removes the entry iff it still holds tokenID and
	// reports whether this call removed it.
	Consume(ctx context.Context, accountID, tokenID uuid.UUID) (bool, error)
}

// ConfirmationService is the token lifecycle: issuance, verification and the
// unconfirmed -> confirmed transition it guards.
type ConfirmationService interface {
	// IssueToken mints a signed, expiring, purpose-scoped token for the
	// account. A ttl <= 0 uses the configured default.
	IssueToken(ctx context.Context, accountID uuid.UUID, purpose confirmation.Purpose, ttl time.Duration) (string, error)
	// VerifyToken validates the presented token against the expected purpose
	// and resolves it to the owning account id. Pure check, no side effects.
	VerifyToken(ctx context.Context, token string, expected confirmation.Purpose) (uuid.UUID, error)
	// Confirm redeems the token: verifies it, marks the account confirmed and
	// consumes the token. Redeeming for an already confirmed account is a
	// no-op success.
	Confirm(ctx context.Context, token string) (*confirmation.Result, error)
}
