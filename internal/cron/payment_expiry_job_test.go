package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Omkark04/agency-platform-backend/pkg/logger"
)

type fakeRequestExpirer struct {
	expired int64
	err     error
	calls   int
}

func (f *fakeRequestExpirer) ExpireStaleRequests(ctx context.Context) (int64, error) {
	f.calls++
	return f.expired, f.err
}

type fakeSessionExpirer struct {
	expired int64
	err     error
	maxAges []time.Duration
}

func (f *fakeSessionExpirer) ExpireStaleSessions(ctx context.Context, maxAge time.Duration) (int64, error) {
	f.maxAges = append(f.maxAges, maxAge)
	return f.expired, f.err
}

func newPaymentExpiryJob(t *testing.T, requests *fakeRequestExpirer, sessions *fakeSessionExpirer) Job {
	t.Helper()
	job, err := NewPaymentExpiryJob(PaymentExpiryJobParams{
		Logger:        logger.New(logger.Options{ServiceName: "cron-test"}),
		Requests:      requests,
		Sessions:      sessions,
		SessionMaxAge: 48 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewPaymentExpiryJob: %v", err)
	}
	return job
}

func TestPaymentExpiryJob_SweepsRequestsAndSessions(t *testing.T) {
	requests := &fakeRequestExpirer{expired: 3}
	sessions := &fakeSessionExpirer{expired: 2}
	job := newPaymentExpiryJob(t, requests, sessions)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if requests.calls != 1 {
		t.Fatalf("expected one request sweep, got %d", requests.calls)
	}
	if len(sessions.maxAges) != 1 || sessions.maxAges[0] != 48*time.Hour {
		t.Fatalf("session sweep should use the configured max age: %v", sessions.maxAges)
	}
}

func TestPaymentExpiryJob_SessionSweepRunsDespiteRequestFailure(t *testing.T) {
	requests := &fakeRequestExpirer{err: errors.New("db down")}
	sessions := &fakeSessionExpirer{expired: 1}
	job := newPaymentExpiryJob(t, requests, sessions)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected combined error")
	}
	if len(sessions.maxAges) != 1 {
		t.Fatalf("session sweep must still run, got %d calls", len(sessions.maxAges))
	}
}
