package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/quillforge/confirmation-service/configs"
	impl "github.com/quillforge/confirmation-service/internal/application/services"
	"github.com/quillforge/confirmation-service/internal/core/domain/account"
	"github.com/quillforge/confirmation-service/internal/core/domain/confirmation"
	tmocks "github.com/quillforge/confirmation-service/test/mocks"
)

func newAccountFixture() (*tmocks.InMemoryAccountRepository, *tmocks.EmailServiceMock, *impl.AccountService) {
	repo := tmocks.NewInMemoryAccountRepository()
	ledger := tmocks.NewInMemoryTokenLedger()
	cfg := &configs.TokenConfig{Secret: testSecret, TTL: 15 * time.Minute}
	logger := logrus.New()
	confirmSvc := impl.NewConfirmationService(repo, ledger, cfg, logger)
	emailSvc := &tmocks.EmailServiceMock{}
	svc := impl.NewAccountService(repo, confirmSvc, emailSvc, logger).(*impl.AccountService)
	return repo, emailSvc, svc
}

func TestRegister_Success(t *testing.T) {
	repo, emailSvc, svc := newAccountFixture()

	var sentTo, sentToken string
	emailSvc.SendConfirmationEmailFn = func(ctx context.Context, email, token string) error {
		sentTo, sentToken = email, token
		return nil
	}

	acct, token, err := svc.Register(context.Background(), &account.RegisterAccountRequest{Email: "alice@example.com"})
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", acct.Email)
	require.False(t, acct.IsConfirmed())
	require.NotEmpty(t, token)
	require.Equal(t, "alice@example.com", sentTo)
	require.Equal(t, token, sentToken)

	stored, err := repo.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.Nil(t, stored.ConfirmedAt)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	_, _, svc := newAccountFixture()

	_, _, err := svc.Register(context.Background(), &account.RegisterAccountRequest{Email: "alice@example.com"})
	require.NoError(t, err)

	_, _, err = svc.Register(context.Background(), &account.RegisterAccountRequest{Email: "alice@example.com"})
	require.ErrorIs(t, err, confirmation.ErrValidation)
}

func TestRegister_InvalidEmail(t *testing.T) {
	_, _, svc := newAccountFixture()

	for _, email := range []string{"", "   ", "not-an-address"} {
		_, _, err := svc.Register(context.Background(), &account.RegisterAccountRequest{Email: email})
		require.ErrorIs(t, err, confirmation.ErrValidation, "email %q", email)
	}
}

func TestRegister_EmailSendFailureDoesNotFailRegistration(t *testing.T) {
	repo, emailSvc, svc := newAccountFixture()

	emailSvc.SendConfirmationEmailFn = func(ctx context.Context, email, token string) error {
		return context.DeadlineExceeded
	}

	acct, token, err := svc.Register(context.Background(), &account.RegisterAccountRequest{Email: "bob@example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	stored, err := repo.GetByID(context.Background(), acct.ID)
	require.NoError(t, err)
	require.Equal(t, "bob@example.com", stored.Email)
}

func TestListAccounts_Pagination(t *testing.T) {
	_, _, svc := newAccountFixture()

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, _, err := svc.Register(context.Background(), &account.RegisterAccountRequest{Email: email})
		require.NoError(t, err)
	}

	page, total, err := svc.ListAccounts(context.Background(), 2, 0)
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, page, 2)

	rest, total, err := svc.ListAccounts(context.Background(), 2, 2)
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, rest, 1)

	// A non-positive limit falls back to the default page size.
	all, total, err := svc.ListAccounts(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, all, 3)
}

func TestResendConfirmation_UnknownEmail(t *testing.T) {
	_, _, svc := newAccountFixture()

	err := svc.ResendConfirmation(context.Background(), "ghost@example.com")
	require.ErrorIs(t, err, confirmation.ErrNotFound)
}

func TestResendConfirmation_AlreadyConfirmed(t *testing.T) {
	repo, _, svc := newAccountFixture()

	acct, _, err := svc.Register(context.Background(), &account.RegisterAccountRequest{Email: "carol@example.com"})
	require.NoError(t, err)

	transitioned, err := repo.Confirm(context.Background(), acct.ID, time.Now())
	require.NoError(t, err)
	require.True(t, transitioned)

	err = svc.ResendConfirmation(context.Background(), "carol@example.com")
	require.ErrorIs(t, err, confirmation.ErrValidation)
}

func TestResendConfirmation_IssuesFreshToken(t *testing.T) {
	_, emailSvc, svc := newAccountFixture()

	var tokens []string
	emailSvc.SendConfirmationEmailFn = func(ctx context.Context, email, token string) error {
		tokens = append(tokens, token)
		return nil
	}

	_, first, err := svc.Register(context.Background(), &account.RegisterAccountRequest{Email: "dave@example.com"})
	require.NoError(t, err)

	require.NoError(t, svc.ResendConfirmation(context.Background(), "dave@example.com"))
	require.Len(t, tokens, 2)
	require.NotEqual(t, first, tokens[1])
}
