package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/auricsoft/jewelstock-backend/internal/balances"
	"github.com/auricsoft/jewelstock-backend/pkg/logger"
	"github.com/auricsoft/jewelstock-backend/pkg/tenant"
	"github.com/auricsoft/jewelstock-backend/pkg/types"
)

type balanceCalculator interface {
	CalculateForDate(ctx context.Context, date time.Time) (*balances.RunResult, error)
}

// DailyBalanceJobParams configure the nightly reconciliation job.
type DailyBalanceJobParams struct {
	Logger   *logger.Logger
	Tenants  tenantLister
	Balances balanceCalculator
}

// NewDailyBalanceJob builds the job that reconciles yesterday's balances for
// every product that moved, across all tenant stores.
func NewDailyBalanceJob(params DailyBalanceJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Tenants == nil {
		return nil, fmt.Errorf("tenant lister required")
	}
	if params.Balances == nil {
		return nil, fmt.Errorf("balance calculator required")
	}
	return &dailyBalanceJob{
		logg:     params.Logger,
		tenants:  params.Tenants,
		balances: params.Balances,
		now:      time.Now,
	}, nil
}

type dailyBalanceJob struct {
	logg     *logger.Logger
	tenants  tenantLister
	balances balanceCalculator
	now      func() time.Time
}

func (j *dailyBalanceJob) Name() string { return "daily-balance" }

// Run reconciles the previous calendar day. A failing tenant does not stop
// the others; the run is idempotent so the next cycle repairs any gap.
func (j *dailyBalanceJob) Run(ctx context.Context) error {
	date := types.PrevDay(j.now().UTC())

	var errs error
	for _, code := range j.tenants.Codes() {
		tenantCtx := tenant.WithCode(ctx, code)
		result, err := j.balances.CalculateForDate(tenantCtx, date)
		if err != nil && result == nil {
			errs = multierr.Append(errs, fmt.Errorf("tenant %q: %w", code, err))
			continue
		}

		logCtx := j.logg.WithFields(tenantCtx, map[string]any{
			"tenant":       code,
			"balance_date": types.FormatDate(date),
			"calculated":   result.Calculated,
			"failed":       result.Failed,
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("tenant %q: %w", code, err))
			j.logg.Error(logCtx, "balance run finished with failures", err)
			continue
		}
		j.logg.Info(logCtx, "balance run complete")
	}
	return errs
}
