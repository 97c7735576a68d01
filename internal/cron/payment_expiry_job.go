package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/Omkark04/agency-platform-backend/pkg/logger"
)

// PaymentExpiryJobParams configure the stale payment sweeper.
type PaymentExpiryJobParams struct {
	Logger        *logger.Logger
	Requests      requestExpirer
	Sessions      sessionExpirer
	SessionMaxAge time.Duration
}

type requestExpirer interface {
	ExpireStaleRequests(ctx context.Context) (int64, error)
}

type sessionExpirer interface {
	ExpireStaleSessions(ctx context.Context, maxAge time.Duration) (int64, error)
}

// NewPaymentExpiryJob builds the job that expires overdue payment requests
// and abandoned checkout sessions.
func NewPaymentExpiryJob(params PaymentExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Requests == nil {
		return nil, fmt.Errorf("payment request service required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("checkout session service required")
	}
	maxAge := params.SessionMaxAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &paymentExpiryJob{
		logg:          params.Logger,
		requests:      params.Requests,
		sessions:      params.Sessions,
		sessionMaxAge: maxAge,
	}, nil
}

type paymentExpiryJob struct {
	logg          *logger.Logger
	requests      requestExpirer
	sessions      sessionExpirer
	sessionMaxAge time.Duration
}

func (j *paymentExpiryJob) Name() string { return "payment-expiry" }

func (j *paymentExpiryJob) Run(ctx context.Context) error {
	var errs []error
	if err := j.expireRequests(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := j.expireSessions(ctx); err != nil {
		errs = append(errs, err)
	}
	return multierr.Combine(errs...)
}

func (j *paymentExpiryJob) expireRequests(ctx context.Context) error {
	expired, err := j.requests.ExpireStaleRequests(ctx)
	if err != nil {
		return fmt.Errorf("expire payment requests: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": expired})
	j.logg.Info(logCtx, "payment request expiry sweep complete")
	return nil
}

func (j *paymentExpiryJob) expireSessions(ctx context.Context) error {
	expired, err := j.sessions.ExpireStaleSessions(ctx, j.sessionMaxAge)
	if err != nil {
		return fmt.Errorf("expire checkout sessions: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": expired})
	j.logg.Info(logCtx, "checkout session expiry sweep complete")
	return nil
}
