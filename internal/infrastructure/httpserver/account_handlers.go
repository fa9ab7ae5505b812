package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/quillforge/confirmation-service/internal/core/domain/account"
	"github.com/quillforge/confirmation-service/internal/core/domain/confirmation"
)

// registerAccount creates an unconfirmed account and returns the
// confirmation token alongside it; the email notifier delivers the same
// token out-of-band.
func (s *Server) registerAccount(c echo.Context) error {
	var req account.RegisterAccountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	acct, token, err := s.accountService.Register(c.Request().Context(), &req)
	if err != nil {
		if errors.Is(err, confirmation.ErrValidation) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		s.logger.WithError(err).Error("failed to register account")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to register account")
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"account":            acct,
		"confirmation_token": token,
		"message":            "confirm your account",
	})
}

// listAccounts returns a page of accounts, or a single account when the
// email query parameter is present.
func (s *Server) listAccounts(c echo.Context) error {
	if email := c.QueryParam("email"); email != "" {
		acct, err := s.accountService.GetAccountByEmail(c.Request().Context(), email)
		if err != nil {
			if errors.Is(err, confirmation.ErrNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "account not found")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to get account")
		}
		return c.JSON(http.StatusOK, acct)
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	accounts, total, err := s.accountService.ListAccounts(c.Request().Context(), limit, offset)
	if err != nil {
		s.logger.WithError(err).Error("failed to list accounts")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list accounts")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"total":    total,
	})
}

func (s *Server) getAccount(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid account ID")
	}

	acct, err := s.accountService.GetAccount(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, confirmation.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "account not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get account")
	}

	return c.JSON(http.StatusOK, acct)
}

func (s *Server) resendConfirmation(c echo.Context) error {
	var req account.ResendConfirmationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}

	if err := s.accountService.ResendConfirmation(c.Request().Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, confirmation.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "account not found")
		case errors.Is(err, confirmation.ErrValidation):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to resend confirmation email")
		}
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "confirmation email sent successfully",
	})
}
