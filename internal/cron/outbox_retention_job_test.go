package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/auricsoft/jewelstock-backend/pkg/logger"
	"github.com/auricsoft/jewelstock-backend/pkg/tenant"
)

type fakeTenants struct {
	codes []string
}

func (f fakeTenants) Codes() []string { return f.codes }

type captureTxRunner struct {
	tenants []string
}

func (c *captureTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	c.tenants = append(c.tenants, tenant.CodeFromContext(ctx))
	return fn(nil)
}

type fakeOutboxRetentionRepo struct {
	lastCutoff time.Time
	called     int
	err        error
}

func (f *fakeOutboxRetentionRepo) DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return 7, nil
}

func newOutboxRetentionJob(t *testing.T, repo *fakeOutboxRetentionRepo, runner *captureTxRunner) *outboxRetentionJob {
	t.Helper()
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		DB:         runner,
		Tenants:    fakeTenants{codes: []string{"acme", "gemco"}},
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	job, ok := jobIface.(*outboxRetentionJob)
	if !ok {
		t.Fatalf("expected outboxRetentionJob, got %T", jobIface)
	}
	return job
}

func TestOutboxRetentionJobTrimsEveryTenant(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRetentionRepo{}
	runner := &captureTxRunner{}
	job := newOutboxRetentionJob(t, repo, runner)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	expectedCutoff := now.UTC().Add(-outboxRetentionDays * 24 * time.Hour)
	if !repo.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, repo.lastCutoff)
	}
	if repo.called != 2 {
		t.Fatalf("expected one pass per tenant, got %d", repo.called)
	}
	if len(runner.tenants) != 2 || runner.tenants[0] != "acme" || runner.tenants[1] != "gemco" {
		t.Fatalf("expected tenant-bound contexts, got %v", runner.tenants)
	}
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	repo := &fakeOutboxRetentionRepo{err: errors.New("boom")}
	job := newOutboxRetentionJob(t, repo, &captureTxRunner{})

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
