package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quillforge/confirmation-service/internal/core/domain/account"
	"github.com/quillforge/confirmation-service/internal/core/domain/confirmation"
)

// confirmAccount redeems a confirmation token. Supports both GET (from email
// links, responds with HTML) and POST (API calls, responds with JSON).
func (s *Server) confirmAccount(c echo.Context) error {
	var token string

	if c.Request().Method == http.MethodGet {
		token = c.Param("token")
		if token == "" {
			return c.HTML(http.StatusBadRequest, confirmationFailedPage("Missing confirmation token."))
		}
	} else {
		var req account.ConfirmAccountRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		if req.Token == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "token is required")
		}
		token = req.Token
	}

	result, err := s.confirmSvc.Confirm(c.Request().Context(), token)
	if err != nil {
		confirmationsTotal.WithLabelValues(confirmationResultLabel(err)).Inc()
		if c.Request().Method == http.MethodGet {
			return c.HTML(confirmationStatusCode(err), confirmationFailedPage(confirmationUserMessage(err)))
		}
		return echo.NewHTTPError(confirmationStatusCode(err), confirmationUserMessage(err))
	}

	// Idempotent re-redemptions do not transition state; count them apart so
	// the confirmed series matches actual transitions.
	if result.AlreadyConfirmed {
		confirmationsTotal.WithLabelValues("already_confirmed").Inc()
	} else {
		confirmationsTotal.WithLabelValues("confirmed").Inc()
	}

	if c.Request().Method == http.MethodGet {
		return c.HTML(http.StatusOK, `
            <!DOCTYPE html>
            <html>
            <head><title>Account Confirmed</title></head>
            <body>
                <h1>Account Confirmed!</h1>
                <p>Your account has been confirmed. You can now close this window.</p>
            </body>
            </html>
        `)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":           "account confirmed successfully",
		"account_id":        result.AccountID,
		"confirmed_at":      result.ConfirmedAt,
		"already_confirmed": result.AlreadyConfirmed,
	})
}

// confirmationStatusCode maps the domain error taxonomy onto HTTP statuses.
func confirmationStatusCode(err error) int {
	switch {
	case errors.Is(err, confirmation.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, confirmation.ErrTokenExpired):
		return http.StatusGone
	case errors.Is(err, confirmation.ErrTokenConsumed):
		return http.StatusConflict
	case errors.Is(err, confirmation.ErrInvalidToken), errors.Is(err, confirmation.ErrPurposeMismatch):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// confirmationUserMessage returns the message surfaced to the end user.
// Verification failures are terminal for the request; the user is pointed at
// the resend flow instead of retrying.
func confirmationUserMessage(err error) string {
	switch {
	case errors.Is(err, confirmation.ErrTokenExpired):
		return "The confirmation link has expired. Please request a new one."
	case errors.Is(err, confirmation.ErrTokenConsumed):
		return "The confirmation link has already been used."
	case errors.Is(err, confirmation.ErrNotFound):
		return "We could not find an account for this confirmation link."
	default:
		return "The confirmation link is invalid."
	}
}

func confirmationResultLabel(err error) string {
	switch {
	case errors.Is(err, confirmation.ErrTokenExpired):
		return "expired"
	case errors.Is(err, confirmation.ErrTokenConsumed):
		return "consumed"
	case errors.Is(err, confirmation.ErrPurposeMismatch):
		return "purpose_mismatch"
	case errors.Is(err, confirmation.ErrNotFound):
		return "not_found"
	case errors.Is(err, confirmation.ErrInvalidToken):
		return "invalid"
	default:
		return "error"
	}
}

func confirmationFailedPage(message string) string {
	return `
        <!DOCTYPE html>
        <html>
        <head><title>Confirmation Failed</title></head>
        <body>
            <h1>Confirmation Failed</h1>
            <p>` + message + `</p>
            <a href="/resend-confirmation">Request New Confirmation Email</a>
        </body>
        </html>
    `
}
