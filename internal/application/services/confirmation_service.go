package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quillforge/confirmation-service/configs"
	"github.com/quillforge/confirmation-service/internal/core/domain/confirmation"
	"github.com/quillforge/confirmation-service/internal/core/ports"
)

// ConfirmationService implements the token lifecycle: it mints HMAC-signed
// expiring capsules, verifies presented tokens and drives the
// unconfirmed -> confirmed account transition.
type ConfirmationService struct {
	accounts    ports.AccountRepository
	tokenLedger ports.TokenLedgerRepository
	tokenConfig *configs.TokenConfig
	logger      *logrus.Logger
}

func NewConfirmationService(accounts ports.AccountRepository, tokenLedger ports.TokenLedgerRepository, tokenConfig *configs.TokenConfig, logger *logrus.Logger) ports.ConfirmationService {
	return &ConfirmationService{
		accounts:    accounts,
		tokenLedger: tokenLedger,
		tokenConfig: tokenConfig,
		logger:      logger,
	}
}

func (s *ConfirmationService) IssueToken(ctx context.Context, accountID uuid.UUID, purpose confirmation.Purpose, ttl time.Duration) (string, error) {
	if !purpose.IsValid() {
		return "", fmt.Errorf("%w: unknown purpose %q", confirmation.ErrPurposeMismatch, purpose)
	}
	if ttl <= 0 {
		ttl = s.tokenConfig.TTL
	}

	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return "", err
	}

	now := time.Now()
	expiresAt := now.Add(ttl)
	tokenID := uuid.New()

	claims := &confirmation.Claims{
		AccountID: accountID,
		Purpose:   purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID.String(),
			Subject:   accountID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.tokenConfig.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign confirmation token: %w", err)
	}

	// Record the fresh token as the only live one; any previously issued
	// token for this account is superseded and will fail verification.
	if err := s.tokenLedger.PutLive(ctx, accountID, tokenID, expiresAt); err != nil {
		return "", fmt.Errorf("failed to record live token: %w", err)
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"account_id": accountID,
			"token_id":   tokenID,
			"purpose":    purpose,
			"expires_at": expiresAt,
		}).Debug("confirmation token issued")
	}

	return signed, nil
}

// parseClaims validates signature and structure of the capsule. Expiry is
// deliberately NOT checked here: the purpose check precedes the expiry check,
// so a wrong-purpose token fails with ErrPurposeMismatch even after it
// expires. verifyClaims applies the expiry check in order.
func (s *ConfirmationService) parseClaims(tokenStr string) (*confirmation.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &confirmation.Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Ensure the token's signing method is HMAC (prevent alg confusion)
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.tokenConfig.Secret), nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		// Signature mismatch, malformed structure and every other parse
		// failure collapse into one error so callers cannot probe which
		// field was rejected.
		return nil, confirmation.ErrInvalidToken
	}

	claims, ok := token.Claims.(*confirmation.Claims)
	if !ok || !token.Valid {
		return nil, confirmation.ErrInvalidToken
	}
	if claims.AccountID == uuid.Nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil, confirmation.ErrInvalidToken
	}
	return claims, nil
}

func (s *ConfirmationService) VerifyToken(ctx context.Context, tokenStr string, expected confirmation.Purpose) (uuid.UUID, error) {
	claims, err := s.verifyClaims(ctx, tokenStr, expected)
	if err != nil {
		return uuid.Nil, err
	}
	return claims.AccountID, nil
}

func (s *ConfirmationService) verifyClaims(ctx context.Context, tokenStr string, expected confirmation.Purpose) (*confirmation.Claims, error) {
	claims, err := s.parseClaims(tokenStr)
	if err != nil {
		return nil, err
	}

	if claims.Purpose != expected {
		return nil, confirmation.ErrPurposeMismatch
	}

	if time.Now().After(claims.ExpiresAt.Time) {
		return nil, confirmation.ErrTokenExpired
	}

	tokenID, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil, confirmation.ErrInvalidToken
	}

	liveID, err := s.tokenLedger.GetLive(ctx, claims.AccountID)
	if err != nil {
		return nil, err
	}
	if liveID != tokenID {
		// A newer token superseded this one.
		return nil, confirmation.ErrTokenConsumed
	}

	return claims, nil
}

func (s *ConfirmationService) Confirm(ctx context.Context, tokenStr string) (*confirmation.Result, error) {
	claims, err := s.verifyClaims(ctx, tokenStr, confirmation.PurposeConfirmation)
	if err != nil {
		if !errors.Is(err, confirmation.ErrTokenConsumed) {
			return nil, err
		}
		// The ledger entry is gone or superseded. If the capsule itself is
		// sound and its account is already confirmed, this is a duplicate
		// redemption (re-opened link, retried request) and succeeds as a
		// no-op. Otherwise the failure stands.
		parsed, perr := s.parseClaims(tokenStr)
		if perr != nil || parsed.Purpose != confirmation.PurposeConfirmation {
			return nil, err
		}
		acct, aerr := s.accounts.GetByID(ctx, parsed.AccountID)
		if aerr != nil || !acct.IsConfirmed() {
			return nil, err
		}
		return &confirmation.Result{
			AccountID:        acct.ID,
			ConfirmedAt:      acct.ConfirmedAt,
			AlreadyConfirmed: true,
		}, nil
	}

	acct, err := s.accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		return nil, err
	}

	tokenID, _ := uuid.Parse(claims.ID)

	if acct.IsConfirmed() {
		// Idempotent redemption: the account mutation already happened,
		// only the leftover ledger entry needs clearing.
		if _, err := s.tokenLedger.Consume(ctx, acct.ID, tokenID); err != nil && s.logger != nil {
			s.logger.WithFields(logrus.Fields{"account_id": acct.ID}).WithError(err).Warn("failed to consume token for already confirmed account")
		}
		return &confirmation.Result{
			AccountID:        acct.ID,
			ConfirmedAt:      acct.ConfirmedAt,
			AlreadyConfirmed: true,
		}, nil
	}

	now := time.Now()
	transitioned, err := s.accounts.Confirm(ctx, acct.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm account: %w", err)
	}

	// Token invalidation happens after the account mutation. A crash between
	// the two leaves a confirmed account with a live ledger entry, which the
	// idempotent path above absorbs on the next redemption.
	consumed, err := s.tokenLedger.Consume(ctx, acct.ID, tokenID)
	if err != nil && s.logger != nil {
		s.logger.WithFields(logrus.Fields{"account_id": acct.ID, "token_id": tokenID}).WithError(err).Warn("failed to consume confirmation token")
	}

	if !transitioned {
		// A concurrent redemption won the compare-and-swap; report the
		// stored timestamp rather than double-mutating.
		fresh, err := s.accounts.GetByID(ctx, acct.ID)
		if err != nil {
			return nil, err
		}
		return &confirmation.Result{
			AccountID:        fresh.ID,
			ConfirmedAt:      fresh.ConfirmedAt,
			AlreadyConfirmed: true,
		}, nil
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"account_id": acct.ID,
			"token_id":   tokenID,
			"consumed":   consumed,
		}).Info("account confirmed")
	}

	return &confirmation.Result{
		AccountID:   acct.ID,
		ConfirmedAt: &now,
	}, nil
}
