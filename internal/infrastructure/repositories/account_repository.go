package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quillforge/confirmation-service/internal/core/domain/account"
	"github.com/quillforge/confirmation-service/internal/core/domain/confirmation"
	"github.com/quillforge/confirmation-service/internal/core/ports"
	"github.com/quillforge/confirmation-service/internal/infrastructure/db"
)

// AccountRepository implements the account repository interface
type AccountRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(database *db.Database, logger *logrus.Logger) ports.AccountRepository {
	return &AccountRepository{
		db:     database,
		logger: logger,
	}
}

// Create creates a new account
func (r *AccountRepository) Create(ctx context.Context, a *account.Account) error {
	query := `
		INSERT INTO accounts (id, email, confirmed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.DB.ExecContext(ctx, query, a.ID, a.Email, a.ConfirmedAt, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"account_id": a.ID, "email": a.Email}).WithError(err).Error("db: failed to create account")
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"account_id": a.ID, "email": a.Email}).Info("db: account created")
	}

	return nil
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	var a account.Account
	query := `
		SELECT id, email, confirmed_at, created_at, updated_at
		FROM accounts
		WHERE id = $1`

	err := r.db.DB.GetContext(ctx, &a, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			if r.logger != nil {
				r.logger.WithFields(logrus.Fields{"account_id": id}).Debug("db: account not found by ID")
			}
			return nil, fmt.Errorf("%w: id %s", confirmation.ErrNotFound, id)
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"account_id": id}).WithError(err).Error("db: failed to get account by ID")
		}
		return nil, fmt.Errorf("failed to get account by ID: %w", err)
	}

	return &a, nil
}

// GetByEmail retrieves an account by email
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	var a account.Account
	query := `
		SELECT id, email, confirmed_at, created_at, updated_at
		FROM accounts
		WHERE email = $1`

	err := r.db.DB.GetContext(ctx, &a, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			if r.logger != nil {
				r.logger.WithFields(logrus.Fields{"email": email}).Debug("db: account not found by email")
			}
			return nil, fmt.Errorf("%w: email %s", confirmation.ErrNotFound, email)
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"email": email}).WithError(err).Error("db: failed to get account by email")
		}
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}

	return &a, nil
}

// Confirm sets confirmed_at iff it is still null. The WHERE clause is the
// serialization point for concurrent redemptions: exactly one caller sees
// rowsAffected == 1.
func (r *AccountRepository) Confirm(ctx context.Context, id uuid.UUID, confirmedAt time.Time) (bool, error) {
	query := `
		UPDATE accounts
		SET confirmed_at = $2, updated_at = $2
		WHERE id = $1 AND confirmed_at IS NULL`

	result, err := r.db.DB.ExecContext(ctx, query, id, confirmedAt)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"account_id": id}).WithError(err).Error("db: failed to confirm account")
		}
		return false, fmt.Errorf("failed to confirm account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"account_id": id}).WithError(err).Error("db: failed to get rows affected on confirm")
		}
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected > 0 && r.logger != nil {
		r.logger.WithFields(logrus.Fields{"account_id": id}).Info("db: account confirmed")
	}

	return rowsAffected > 0, nil
}

// Delete deletes an account by ID
func (r *AccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM accounts WHERE id = $1`

	result, err := r.db.DB.ExecContext(ctx, query, id)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"account_id": id}).WithError(err).Error("db: failed to delete account")
		}
		return fmt.Errorf("failed to delete account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: id %s", confirmation.ErrNotFound, id)
	}

	return nil
}

// List retrieves accounts with pagination
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*account.Account, error) {
	var accounts []*account.Account
	query := `
		SELECT id, email, confirmed_at, created_at, updated_at
		FROM accounts
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	err := r.db.DB.SelectContext(ctx, &accounts, query, limit, offset)
	if err != nil {
		if r.logger != nil {
			r.logger.WithError(err).Error("db: failed to list accounts")
		}
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	return accounts, nil
}

// Count returns the total number of accounts
func (r *AccountRepository) Count(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM accounts`

	err := r.db.DB.GetContext(ctx, &count, query)
	if err != nil {
		if r.logger != nil {
			r.logger.WithError(err).Error("db: failed to count accounts")
		}
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	return count, nil
}
