package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/quillforge/confirmation-service/internal/core/domain/account"
)

// AccountRepository defines the interface for account data operations
type AccountRepository interface {
	Create(ctx context.Context, a *account.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error)
	GetByEmail(ctx context.Context, email string) (*account.Account, error)
	// Confirm sets confirmed_at iff it is still null and reports whether this
	// call performed the transition. Implementations must be atomic so that
	// concurrent redemptions produce exactly one transition.
	Confirm(ctx context.Context, id uuid.UUID, confirmedAt time.Time) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*account.Account, error)
	Count(ctx context.Context) (int, error)
}

// AccountService defines the interface for registration business logic
type AccountService interface {
	Register(ctx context.Context, req *account.RegisterAccountRequest) (*account.Account, string, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*account.Account, error)
	// ListAccounts returns a page of accounts plus the total count.
	ListAccounts(ctx context.Context, limit, offset int) ([]*account.Account, int, error)
	ResendConfirmation(ctx context.Context, email string) error
}
