package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quillforge/confirmation-service/internal/core/domain/account"
	"github.com/quillforge/confirmation-service/internal/core/domain/confirmation"
	"github.com/quillforge/confirmation-service/internal/core/ports"
)

type AccountService struct {
	repo         ports.AccountRepository
	confirmSvc   ports.ConfirmationService
	emailService ports.EmailService
	logger       *logrus.Logger
}

func NewAccountService(repo ports.AccountRepository, confirmSvc ports.ConfirmationService, emailService ports.EmailService, logger *logrus.Logger) ports.AccountService {
	return &AccountService{
		repo:         repo,
		confirmSvc:   confirmSvc,
		emailService: emailService,
		logger:       logger,
	}
}

// Register creates an unconfirmed account and issues its confirmation token.
// The token is returned to the caller and handed to the email notifier; a
// notifier failure is logged but does not fail registration.
func (s *AccountService) Register(ctx context.Context, req *account.RegisterAccountRequest) (*account.Account, string, error) {
	if err := req.Validate(); err != nil {
		return nil, "", fmt.Errorf("%w: %s", confirmation.ErrValidation, err.Error())
	}

	// Validate email uniqueness
	if existing, err := s.repo.GetByEmail(ctx, req.Email); err == nil && existing != nil {
		return nil, "", fmt.Errorf("%w: email: '%s' is already taken", confirmation.ErrValidation, req.Email)
	}

	now := time.Now()
	newAccount := &account.Account{
		ID:        uuid.New(),
		Email:     req.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, newAccount); err != nil {
		return nil, "", fmt.Errorf("failed to create account: %w", err)
	}

	token, err := s.confirmSvc.IssueToken(ctx, newAccount.ID, confirmation.PurposeConfirmation, 0)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue confirmation token: %w", err)
	}

	if err := s.emailService.SendConfirmationEmail(ctx, newAccount.Email, token); err != nil {
		// Log error but don't fail registration; the token is still
		// returned and can be resent.
		s.logger.WithFields(logrus.Fields{
			"account_id": newAccount.ID,
			"email":      newAccount.Email,
		}).WithError(err).Warn("failed to send confirmation email")
	}

	return newAccount, token, nil
}

func (s *AccountService) GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *AccountService) GetAccountByEmail(ctx context.Context, email string) (*account.Account, error) {
	return s.repo.GetByEmail(ctx, email)
}

// ListAccounts returns a page of accounts newest-first plus the total count.
func (s *AccountService) ListAccounts(ctx context.Context, limit, offset int) ([]*account.Account, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	accounts, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list accounts: %w", err)
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	return accounts, total, nil
}

// ResendConfirmation issues a fresh token for an unconfirmed account and
// emails it. The fresh token supersedes any previously issued one.
func (s *AccountService) ResendConfirmation(ctx context.Context, email string) error {
	acct, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	if acct.IsConfirmed() {
		return fmt.Errorf("%w: email: already confirmed", confirmation.ErrValidation)
	}

	token, err := s.confirmSvc.IssueToken(ctx, acct.ID, confirmation.PurposeConfirmation, 0)
	if err != nil {
		return fmt.Errorf("failed to issue confirmation token: %w", err)
	}

	if err := s.emailService.SendConfirmationEmail(ctx, acct.Email, token); err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}

	return nil
}
