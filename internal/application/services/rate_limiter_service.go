package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quillforge/confirmation-service/internal/core/ports"
)

// RateLimiterService implements RateLimiter using a fixed window per client.
type RateLimiterService struct {
	repo      ports.RateLimitRepository
	limit     int
	window    time.Duration
	keyPrefix string
	logger    *logrus.Logger
}

// RateLimiterConfig groups configuration parameters for the rate limiter.
type RateLimiterConfig struct {
	RequestsPerMinute int
	Window            time.Duration
	KeyPrefix         string
}

func NewRateLimiterService(repo ports.RateLimitRepository, cfg *RateLimiterConfig, logger *logrus.Logger) *RateLimiterService {
	// Apply defaults
	limit := 60
	window := time.Minute
	keyPrefix := "ratelimit:client"
	if cfg != nil {
		if cfg.RequestsPerMinute > 0 {
			limit = cfg.RequestsPerMinute
		}
		if cfg.Window > 0 {
			window = cfg.Window
		}
		if cfg.KeyPrefix != "" {
			keyPrefix = cfg.KeyPrefix
		}
	}
	return &RateLimiterService{repo: repo, limit: limit, window: window, keyPrefix: keyPrefix, logger: logger}
}

func (s *RateLimiterService) Allow(ctx context.Context, clientKey string) (bool, int, int, time.Time, error) {
	// TTL slightly longer than the window so counters survive until reset.
	ttl := s.window + 5*time.Second

	count, windowStart, err := s.repo.IncrementWindow(ctx, clientKey, s.window, s.keyPrefix, ttl)
	reset := windowStart.Add(s.window)
	if err != nil {
		return false, 0, s.limit, reset, err
	}

	remaining := s.limit - count
	if remaining < 0 {
		remaining = 0
	}

	if count > s.limit {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"client": clientKey, "count": count, "limit": s.limit}).Debug("rate limit exceeded")
		}
		return false, remaining, s.limit, reset, nil
	}

	return true, remaining, s.limit, reset, nil
}
