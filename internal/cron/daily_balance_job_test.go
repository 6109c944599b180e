package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/auricsoft/jewelstock-backend/internal/balances"
	"github.com/auricsoft/jewelstock-backend/pkg/logger"
	"github.com/auricsoft/jewelstock-backend/pkg/tenant"
	"github.com/auricsoft/jewelstock-backend/pkg/types"
)

type fakeBalances struct {
	dates   []time.Time
	tenants []string
	errFor  map[string]error
}

func (f *fakeBalances) CalculateForDate(ctx context.Context, date time.Time) (*balances.RunResult, error) {
	code := tenant.CodeFromContext(ctx)
	f.dates = append(f.dates, date)
	f.tenants = append(f.tenants, code)
	if err, ok := f.errFor[code]; ok {
		return nil, err
	}
	return &balances.RunResult{Date: date, Calculated: 3}, nil
}

func newDailyBalanceJob(t *testing.T, calc *fakeBalances, codes []string) *dailyBalanceJob {
	t.Helper()
	jobIface, err := NewDailyBalanceJob(DailyBalanceJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Tenants:  fakeTenants{codes: codes},
		Balances: calc,
	})
	if err != nil {
		t.Fatalf("NewDailyBalanceJob: %v", err)
	}
	job, ok := jobIface.(*dailyBalanceJob)
	if !ok {
		t.Fatalf("expected dailyBalanceJob, got %T", jobIface)
	}
	return job
}

func TestDailyBalanceJobReconcilesYesterdayPerTenant(t *testing.T) {
	now := time.Date(2026, 5, 2, 3, 0, 0, 0, time.UTC)
	calc := &fakeBalances{}
	job := newDailyBalanceJob(t, calc, []string{"acme", "gemco"})
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(calc.tenants) != 2 || calc.tenants[0] != "acme" || calc.tenants[1] != "gemco" {
		t.Fatalf("expected both tenants visited, got %v", calc.tenants)
	}
	want := types.DateOf(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	for _, date := range calc.dates {
		if !date.Equal(want) {
			t.Fatalf("expected balance date %s, got %s", want, date)
		}
	}
}

func TestDailyBalanceJobContinuesPastFailingTenant(t *testing.T) {
	calc := &fakeBalances{errFor: map[string]error{"acme": errors.New("store down")}}
	job := newDailyBalanceJob(t, calc, []string{"acme", "gemco"})

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if len(calc.tenants) != 2 {
		t.Fatalf("expected the second tenant still visited, got %v", calc.tenants)
	}
}
