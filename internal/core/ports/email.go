package ports

import (
	"context"
)

// EmailService defines the interface for the out-of-band notifier that
// delivers confirmation links.
type EmailService interface {
	SendConfirmationEmail(ctx context.Context, email, token string) error
}
