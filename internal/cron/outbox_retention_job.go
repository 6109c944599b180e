package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/auricsoft/jewelstock-backend/pkg/logger"
	"github.com/auricsoft/jewelstock-backend/pkg/tenant"
)

const outboxRetentionDays = 30

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type tenantLister interface {
	Codes() []string
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

// OutboxRetentionJobParams configure the outbox cleanup job.
type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Tenants    tenantLister
	Repository outboxRetentionRepo
	Retention  int
}

// NewOutboxRetentionJob builds the job that trims published outbox rows from
// every tenant store.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Tenants == nil {
		return nil, fmt.Errorf("tenant lister required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = outboxRetentionDays
	}
	return &outboxRetentionJob{
		logg:      params.Logger,
		db:        params.DB,
		tenants:   params.Tenants,
		repo:      params.Repository,
		retention: retention,
		now:       time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	tenants   tenantLister
	repo      outboxRetentionRepo
	retention int
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	for _, code := range j.tenants.Codes() {
		tenantCtx := tenant.WithCode(ctx, code)
		var deleted int64
		err := j.db.WithTx(tenantCtx, func(tx *gorm.DB) error {
			rows, err := j.repo.DeletePublishedBefore(tx, cutoff)
			if err != nil {
				return err
			}
			deleted = rows
			return nil
		})
		if err != nil {
			return fmt.Errorf("outbox retention for tenant %q: %w", code, err)
		}
		logCtx := j.logg.WithFields(tenantCtx, map[string]any{
			"tenant":         code,
			"cutoff":         cutoff,
			"retention_days": j.retention,
			"rows_deleted":   deleted,
		})
		j.logg.Info(logCtx, "outbox retention cleanup complete")
	}
	return nil
}
