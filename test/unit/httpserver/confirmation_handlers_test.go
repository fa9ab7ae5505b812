package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/quillforge/confirmation-service/internal/core/domain/account"
	"github.com/quillforge/confirmation-service/internal/core/domain/confirmation"
	svchttp "github.com/quillforge/confirmation-service/internal/infrastructure/httpserver"
	"github.com/quillforge/confirmation-service/test/mocks"
)

func newTestServer(accountSvc *mocks.AccountServiceMock, confirmSvc *mocks.ConfirmationServiceMock) *svchttp.Server {
	cfg := &svchttp.ServerConfig{Host: "127.0.0.1", Port: "0"}
	deps := svchttp.ServerDeps{
		AccountService:  accountSvc,
		ConfirmationSvc: confirmSvc,
	}
	return svchttp.NewServer(cfg, logrus.New(), deps)
}

func TestRegisterAccount_Created(t *testing.T) {
	acctID := uuid.New()
	accountSvc := &mocks.AccountServiceMock{}
	accountSvc.RegisterFn = func(ctx context.Context, req *account.RegisterAccountRequest) (*account.Account, string, error) {
		require.Equal(t, "alice@example.com", req.Email)
		return &account.Account{ID: acctID, Email: req.Email}, "tok-123", nil
	}

	server := newTestServer(accountSvc, &mocks.ConfirmationServiceMock{})

	body := bytes.NewBufferString(`{"email":"alice@example.com"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Account           account.Account `json:"account"`
		ConfirmationToken string          `json:"confirmation_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, acctID, resp.Account.ID)
	require.Equal(t, "tok-123", resp.ConfirmationToken)
}

func TestRegisterAccount_ValidationError(t *testing.T) {
	accountSvc := &mocks.AccountServiceMock{}
	accountSvc.RegisterFn = func(ctx context.Context, req *account.RegisterAccountRequest) (*account.Account, string, error) {
		return nil, "", fmt.Errorf("%w: email: is required", confirmation.ErrValidation)
	}

	server := newTestServer(accountSvc, &mocks.ConfirmationServiceMock{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts", bytes.NewBufferString(`{"email":""}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestConfirmAccount_GetLink_Success(t *testing.T) {
	acctID := uuid.New()
	now := time.Now()
	confirmSvc := &mocks.ConfirmationServiceMock{}
	confirmSvc.ConfirmFn = func(ctx context.Context, token string) (*confirmation.Result, error) {
		require.Equal(t, "tok-abc", token)
		return &confirmation.Result{AccountID: acctID, ConfirmedAt: &now}, nil
	}

	server := newTestServer(&mocks.AccountServiceMock{}, confirmSvc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/confirmations/tok-abc", nil)
	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Account Confirmed")
}

func TestConfirmAccount_Post_Success(t *testing.T) {
	acctID := uuid.New()
	now := time.Now()
	confirmSvc := &mocks.ConfirmationServiceMock{}
	confirmSvc.ConfirmFn = func(ctx context.Context, token string) (*confirmation.Result, error) {
		return &confirmation.Result{AccountID: acctID, ConfirmedAt: &now, AlreadyConfirmed: true}, nil
	}

	server := newTestServer(&mocks.AccountServiceMock{}, confirmSvc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/confirmations", bytes.NewBufferString(`{"token":"tok-abc"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, true, resp["already_confirmed"])
}

func TestConfirmAccount_IdempotentRedemptionCountedSeparately(t *testing.T) {
	acctID := uuid.New()
	now := time.Now()
	confirmSvc := &mocks.ConfirmationServiceMock{}
	confirmSvc.ConfirmFn = func(ctx context.Context, token string) (*confirmation.Result, error) {
		return &confirmation.Result{AccountID: acctID, ConfirmedAt: &now, AlreadyConfirmed: true}, nil
	}

	server := newTestServer(&mocks.AccountServiceMock{}, confirmSvc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/confirmations", bytes.NewBufferString(`{"token":"tok-abc"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// The no-op redemption lands in its own counter series, not "confirmed".
	metricsReq := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	metricsRec := httptest.NewRecorder()
	server.Echo().ServeHTTP(metricsRec, metricsReq)
	require.Equal(t, http.StatusOK, metricsRec.Code)
	require.Contains(t, metricsRec.Body.String(), `account_confirmations_total{result="already_confirmed"}`)
}

func TestConfirmAccount_ErrorStatusCodes(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"expired", confirmation.ErrTokenExpired, http.StatusGone},
		{"consumed", confirmation.ErrTokenConsumed, http.StatusConflict},
		{"invalid", confirmation.ErrInvalidToken, http.StatusBadRequest},
		{"purpose mismatch", confirmation.ErrPurposeMismatch, http.StatusBadRequest},
		{"not found", confirmation.ErrNotFound, http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			confirmSvc := &mocks.ConfirmationServiceMock{}
			confirmSvc.ConfirmFn = func(ctx context.Context, token string) (*confirmation.Result, error) {
				return nil, tc.err
			}

			server := newTestServer(&mocks.AccountServiceMock{}, confirmSvc)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/confirmations", bytes.NewBufferString(`{"token":"tok-abc"}`))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			server.Echo().ServeHTTP(rec, req)

			require.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestConfirmAccount_GetLink_ExpiredShowsResendHint(t *testing.T) {
	confirmSvc := &mocks.ConfirmationServiceMock{}
	confirmSvc.ConfirmFn = func(ctx context.Context, token string) (*confirmation.Result, error) {
		return nil, confirmation.ErrTokenExpired
	}

	server := newTestServer(&mocks.AccountServiceMock{}, confirmSvc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/confirmations/tok-old", nil)
	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusGone, rec.Code)
	require.Contains(t, rec.Body.String(), "expired")
	require.True(t, strings.Contains(rec.Body.String(), "Request New Confirmation Email"))
}

func TestListAccounts_OK(t *testing.T) {
	accountSvc := &mocks.AccountServiceMock{}
	accountSvc.ListAccountsFn = func(ctx context.Context, limit, offset int) ([]*account.Account, int, error) {
		return []*account.Account{
			{ID: uuid.New(), Email: "a@example.com"},
			{ID: uuid.New(), Email: "b@example.com"},
		}, 2, nil
	}

	server := newTestServer(accountSvc, &mocks.ConfirmationServiceMock{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts?limit=2", nil)
	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Accounts []account.Account `json:"accounts"`
		Total    int               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Accounts, 2)
	require.Equal(t, 2, resp.Total)
}

func TestListAccounts_ByEmail(t *testing.T) {
	acctID := uuid.New()
	accountSvc := &mocks.AccountServiceMock{}
	accountSvc.GetAccountByEmailFn = func(ctx context.Context, email string) (*account.Account, error) {
		require.Equal(t, "alice@example.com", email)
		return &account.Account{ID: acctID, Email: email}, nil
	}

	server := newTestServer(accountSvc, &mocks.ConfirmationServiceMock{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts?email=alice%40example.com", nil)
	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp account.Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, acctID, resp.ID)
}

func TestListAccounts_ByEmail_NotFound(t *testing.T) {
	server := newTestServer(&mocks.AccountServiceMock{}, &mocks.ConfirmationServiceMock{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts?email=ghost%40example.com", nil)
	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAccount_NotFound(t *testing.T) {
	server := newTestServer(&mocks.AccountServiceMock{}, &mocks.ConfirmationServiceMock{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResendConfirmation_OK(t *testing.T) {
	accountSvc := &mocks.AccountServiceMock{}
	called := false
	accountSvc.ResendConfirmationFn = func(ctx context.Context, email string) error {
		called = true
		require.Equal(t, "alice@example.com", email)
		return nil
	}

	server := newTestServer(accountSvc, &mocks.ConfirmationServiceMock{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/resend-confirmation", bytes.NewBufferString(`{"email":"alice@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, called)
}
