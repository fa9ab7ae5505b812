package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quillforge/confirmation-service/internal/core/domain/account"
	"github.com/quillforge/confirmation-service/internal/core/domain/confirmation"
)

// AccountRepositoryMock is a lightweight mock for AccountRepository
type AccountRepositoryMock struct {
	CreateFn     func(ctx context.Context, a *account.Account) error
	GetByIDFn    func(ctx context.Context, id uuid.UUID) (*account.Account, error)
	GetByEmailFn func(ctx context.Context, email string) (*account.Account, error)
	ConfirmFn    func(ctx context.Context, id uuid.UUID, confirmedAt time.Time) (bool, error)
}

func (m *AccountRepositoryMock) Create(ctx context.Context, a *account.Account) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, a)
	}
	return nil
}
func (m *AccountRepositoryMock) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, fmt.Errorf("%w: id %s", confirmation.ErrNotFound, id)
}
func (m *AccountRepositoryMock) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	if m.GetByEmailFn != nil {
		return m.GetByEmailFn(ctx, email)
	}
	return nil, fmt.Errorf("%w: email %s", confirmation.ErrNotFound, email)
}
func (m *AccountRepositoryMock) Confirm(ctx context.Context, id uuid.UUID, confirmedAt time.Time) (bool, error) {
	if m.ConfirmFn != nil {
		return m.ConfirmFn(ctx, id, confirmedAt)
	}
	return true, nil
}
func (m *AccountRepositoryMock) Delete(ctx context.Context, id uuid.UUID) error { return nil }
func (m *AccountRepositoryMock) List(ctx context.Context, limit, offset int) ([]*account.Account, error) {
	return nil, nil
}
func (m *AccountRepositoryMock) Count(ctx context.Context) (int, error) { return 0, nil }

// InMemoryAccountRepository backs the account table with a map and applies
// the same compare-and-swap confirm semantics as the Postgres repository.
type InMemoryAccountRepository struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*account.Account
}

func NewInMemoryAccountRepository() *InMemoryAccountRepository {
	return &InMemoryAccountRepository{accounts: make(map[uuid.UUID]*account.Account)}
}

func (m *InMemoryAccountRepository) Create(ctx context.Context, a *account.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.Email == a.Email {
			return fmt.Errorf("duplicate email %s", a.Email)
		}
	}
	cp := *a
	m.accounts[a.ID] = &cp
	return nil
}

func (m *InMemoryAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %s", confirmation.ErrNotFound, id)
	}
	cp := *a
	return &cp, nil
}

func (m *InMemoryAccountRepository) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: email %s", confirmation.ErrNotFound, email)
}

func (m *InMemoryAccountRepository) Confirm(ctx context.Context, id uuid.UUID, confirmedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return false, fmt.Errorf("%w: id %s", confirmation.ErrNotFound, id)
	}
	if a.ConfirmedAt != nil {
		return false, nil
	}
	ts := confirmedAt
	a.ConfirmedAt = &ts
	a.UpdatedAt = ts
	return true, nil
}

func (m *InMemoryAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts, id)
	return nil
}

func (m *InMemoryAccountRepository) List(ctx context.Context, limit, offset int) ([]*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]*account.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		cp := *a
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *InMemoryAccountRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.accounts), nil
}

// InMemoryTokenLedger mirrors the Redis live-token ledger semantics:
// one live token id per account, superseded on put, removed on consume.
type InMemoryTokenLedger struct {
	mu      sync.Mutex
	entries map[uuid.UUID]ledgerEntry
}

type ledgerEntry struct {
	tokenID   uuid.UUID
	expiresAt time.Time
}

func NewInMemoryTokenLedger() *InMemoryTokenLedger {
	return &InMemoryTokenLedger{entries: make(map[uuid.UUID]ledgerEntry)}
}

func (m *InMemoryTokenLedger) PutLive(ctx context.Context, accountID, tokenID uuid.UUID, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[accountID] = ledgerEntry{tokenID: tokenID, expiresAt: expiresAt}
	return nil
}

func (m *InMemoryTokenLedger) GetLive(ctx context.Context, accountID uuid.UUID) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[accountID]
	if !ok || time.Now().After(e.expiresAt) {
		delete(m.entries, accountID)
		return uuid.Nil, confirmation.ErrTokenConsumed
	}
	return e.tokenID, nil
}

func (m *InMemoryTokenLedger) Consume(ctx context.Context, accountID, tokenID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[accountID]
	if !ok || e.tokenID != tokenID {
		return false, nil
	}
	delete(m.entries, accountID)
	return true, nil
}

// EmailServiceMock is a lightweight mock implementing ports.EmailService
type EmailServiceMock struct {
	SendConfirmationEmailFn func(ctx context.Context, email, token string) error
}

func (m *EmailServiceMock) SendConfirmationEmail(ctx context.Context, email, token string) error {
	if m.SendConfirmationEmailFn != nil {
		return m.SendConfirmationEmailFn(ctx, email, token)
	}
	return nil
}

// AccountServiceMock is a lightweight mock implementing ports.AccountService
type AccountServiceMock struct {
	RegisterFn           func(ctx context.Context, req *account.RegisterAccountRequest) (*account.Account, string, error)
	GetAccountFn         func(ctx context.Context, id uuid.UUID) (*account.Account, error)
	GetAccountByEmailFn  func(ctx context.Context, email string) (*account.Account, error)
	ListAccountsFn       func(ctx context.Context, limit, offset int) ([]*account.Account, int, error)
	ResendConfirmationFn func(ctx context.Context, email string) error
}

func (m *AccountServiceMock) Register(ctx context.Context, req *account.RegisterAccountRequest) (*account.Account, string, error) {
	if m.RegisterFn != nil {
		return m.RegisterFn(ctx, req)
	}
	return nil, "", fmt.Errorf("not implemented")
}
func (m *AccountServiceMock) GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	if m.GetAccountFn != nil {
		return m.GetAccountFn(ctx, id)
	}
	return nil, fmt.Errorf("%w: id %s", confirmation.ErrNotFound, id)
}
func (m *AccountServiceMock) GetAccountByEmail(ctx context.Context, email string) (*account.Account, error) {
	if m.GetAccountByEmailFn != nil {
		return m.GetAccountByEmailFn(ctx, email)
	}
	return nil, fmt.Errorf("%w: email %s", confirmation.ErrNotFound, email)
}
func (m *AccountServiceMock) ListAccounts(ctx context.Context, limit, offset int) ([]*account.Account, int, error) {
	if m.ListAccountsFn != nil {
		return m.ListAccountsFn(ctx, limit, offset)
	}
	return nil, 0, nil
}
func (m *AccountServiceMock) ResendConfirmation(ctx context.Context, email string) error {
	if m.ResendConfirmationFn != nil {
		return m.ResendConfirmationFn(ctx, email)
	}
	return nil
}

// ConfirmationServiceMock is a lightweight mock implementing ports.ConfirmationService
type ConfirmationServiceMock struct {
	IssueTokenFn  func(ctx context.Context, accountID uuid.UUID, purpose confirmation.Purpose, ttl time.Duration) (string, error)
	VerifyTokenFn func(ctx context.Context, token string, expected confirmation.Purpose) (uuid.UUID, error)
	ConfirmFn     func(ctx context.Context, token string) (*confirmation.Result, error)
}

func (m *ConfirmationServiceMock) IssueToken(ctx context.Context, accountID uuid.UUID, purpose confirmation.Purpose, ttl time.Duration) (string, error) {
	if m.IssueTokenFn != nil {
		return m.IssueTokenFn(ctx, accountID, purpose, ttl)
	}
	return "token", nil
}
func (m *ConfirmationServiceMock) VerifyToken(ctx context.Context, token string, expected confirmation.Purpose) (uuid.UUID, error) {
	if m.VerifyTokenFn != nil {
		return m.VerifyTokenFn(ctx, token, expected)
	}
	return uuid.Nil, confirmation.ErrInvalidToken
}
func (m *ConfirmationServiceMock) Confirm(ctx context.Context, token string) (*confirmation.Result, error) {
	if m.ConfirmFn != nil {
		return m.ConfirmFn(ctx, token)
	}
	return nil, confirmation.ErrInvalidToken
}
