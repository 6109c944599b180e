package balances

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/auricsoft/jewelstock-backend/pkg/db/models"
	"github.com/auricsoft/jewelstock-backend/pkg/enums"
	pkgerrors "github.com/auricsoft/jewelstock-backend/pkg/errors"
	"github.com/auricsoft/jewelstock-backend/pkg/metrics"
	"github.com/auricsoft/jewelstock-backend/pkg/outbox"
	"github.com/auricsoft/jewelstock-backend/pkg/outbox/payloads"
	"github.com/auricsoft/jewelstock-backend/pkg/tenant"
	"github.com/auricsoft/jewelstock-backend/pkg/types"
)

// Service derives per-product per-day balances from the movement ledger.
// Snapshots are a cache: recalculating any day over an unchanged ledger
// reproduces identical numbers.
type Service interface {
	CalculateDailyBalance(ctx context.Context, productID uuid.UUID, date time.Time) (*models.DailyBalanceSnapshot, error)
	CalculateForDate(ctx context.Context, date time.Time) (*RunResult, error)
	RecalculateBalances(ctx context.Context, productID uuid.UUID, from time.Time) ([]models.DailyBalanceSnapshot, error)
	RecalculateAllBalances(ctx context.Context, from time.Time) ([]RunResult, error)
	GetBalance(ctx context.Context, productID uuid.UUID, date time.Time) (*models.DailyBalanceSnapshot, error)
	ListBalances(ctx context.Context, productID uuid.UUID, from, to time.Time) ([]models.DailyBalanceSnapshot, error)
}

// RunResult summarizes one reconciliation run over a date.
type RunResult struct {
	Date       time.Time
	Calculated int
	Failed     int
}

type ledgerReader interface {
	ListByProductBetween(ctx context.Context, productID uuid.UUID, from, to time.Time) ([]models.MovementEntry, error)
	ListProductIDsWithMovementsBetween(ctx context.Context, from, to time.Time) ([]uuid.UUID, error)
}

type productReader interface {
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo     Repository
	ledger   ledgerReader
	products productReader
	tenants  tenant.Resolver
	events   eventEmitter
	stats    *metrics.InventoryMetrics
	keys     keyedMutex
}

// NewService wires a balance service with its dependencies. Metrics are
// optional.
func NewService(repo Repository, ledger ledgerReader, products productReader, tenants tenant.Resolver, events eventEmitter, stats *metrics.InventoryMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("balance repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger reader required")
	}
	if products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	if tenants == nil {
		return nil, fmt.Errorf("tenant resolver required")
	}
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{
		repo:     repo,
		ledger:   ledger,
		products: products,
		tenants:  tenants,
		events:   events,
		stats:    stats,
	}, nil
}

// CalculateDailyBalance derives and stores the snapshot for one product and
// day. Concurrent calculations for the same key are serialized so the last
// write never interleaves with a partial read.
func (s *service) CalculateDailyBalance(ctx context.Context, productID uuid.UUID, date time.Time) (*models.DailyBalanceSnapshot, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if date.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date is required")
	}
	if _, err := s.products.FindProductByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, err
	}

	day := types.DateOf(date)
	unlock := s.keys.lock(balanceKey(ctx, productID, day))
	defer unlock()

	snapshot, err := s.deriveSnapshot(ctx, productID, day)
	if err != nil {
		return nil, err
	}

	err = s.tenants.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Upsert(ctx, snapshot); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBalanceRecalculated,
			AggregateType: enums.AggregateBalance,
			AggregateID:   snapshot.ID,
			Version:       1,
			OccurredAt:    snapshot.CalculatedAt,
			Data: payloads.BalanceRecalculatedEvent{
				ProductID:    snapshot.ProductID,
				BalanceDate:  types.FormatDate(snapshot.BalanceDate),
				ClosingQty:   snapshot.ClosingQty,
				ClosingValue: snapshot.ClosingValue,
				CalculatedAt: snapshot.CalculatedAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// CalculateForDate runs the daily reconciliation for every product that moved
// on the given day. A failing product does not abort the rest.
func (s *service) CalculateForDate(ctx context.Context, date time.Time) (*RunResult, error) {
	if date.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date is required")
	}

	day := types.DateOf(date)
	started := time.Now()
	productIDs, err := s.ledger.ListProductIDsWithMovementsBetween(ctx, day, types.NextDay(day))
	if err != nil {
		return nil, err
	}

	result := &RunResult{Date: day}
	var errs error
	for _, productID := range productIDs {
		if _, err := s.CalculateDailyBalance(ctx, productID, day); err != nil {
			result.Failed++
			errs = multierr.Append(errs, fmt.Errorf("product %s: %w", productID, err))
			continue
		}
		result.Calculated++
	}

	s.stats.ObserveBalanceDuration(tenant.CodeFromContext(ctx), time.Since(started))
	return result, errs
}

// RecalculateBalances recomputes every day from the given date through today.
// Used after backdated corrections: the ledger is the authority, snapshots
// just follow it forward.
func (s *service) RecalculateBalances(ctx context.Context, productID uuid.UUID, from time.Time) ([]models.DailyBalanceSnapshot, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if from.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from date is required")
	}

	today := types.DateOf(time.Now().UTC())
	start := types.DateOf(from)
	if start.After(today) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from date is in the future")
	}

	var snapshots []models.DailyBalanceSnapshot
	for _, day := range types.DaysBetween(start, today) {
		snapshot, err := s.CalculateDailyBalance(ctx, productID, day)
		if err != nil {
			return snapshots, err
		}
		snapshots = append(snapshots, *snapshot)
	}
	return snapshots, nil
}

// RecalculateAllBalances reruns the reconciliation for every product with
// movements, one day at a time from the given date through today. Failing
// days are reported but do not stop the walk.
func (s *service) RecalculateAllBalances(ctx context.Context, from time.Time) ([]RunResult, error) {
	if from.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from date is required")
	}

	today := types.DateOf(time.Now().UTC())
	start := types.DateOf(from)
	if start.After(today) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from date is in the future")
	}

	var results []RunResult
	var errs error
	for _, day := range types.DaysBetween(start, today) {
		result, err := s.CalculateForDate(ctx, day)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("date %s: %w", types.FormatDate(day), err))
		}
		if result != nil {
			results = append(results, *result)
		}
	}
	return results, errs
}

func (s *service) GetBalance(ctx context.Context, productID uuid.UUID, date time.Time) (*models.DailyBalanceSnapshot, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	snapshot, err := s.repo.FindByProductDate(ctx, productID, types.DateOf(date))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "balance not calculated for date")
		}
		return nil, err
	}
	return snapshot, nil
}

func (s *service) ListBalances(ctx context.Context, productID uuid.UUID, from, to time.Time) ([]models.DailyBalanceSnapshot, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	start, end := types.DateOf(from), types.DateOf(to)
	if end.Before(start) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date range is inverted")
	}
	return s.repo.ListByProduct(ctx, productID, start, end)
}

// deriveSnapshot computes the full day from the ledger. Opening comes from
// the most recent prior snapshot plus any ledger entries in the gap, or from
// the whole prior ledger when no snapshot exists yet.
func (s *service) deriveSnapshot(ctx context.Context, productID uuid.UUID, day time.Time) (*models.DailyBalanceSnapshot, error) {
	openingQty, openingValue, err := s.deriveOpening(ctx, productID, day)
	if err != nil {
		return nil, err
	}

	entries, err := s.ledger.ListByProductBetween(ctx, productID, day, types.NextDay(day))
	if err != nil {
		return nil, err
	}

	snapshot := &models.DailyBalanceSnapshot{
		ID:                uuid.New(),
		ProductID:         productID,
		BalanceDate:       day,
		OpeningQty:        openingQty,
		OpeningValue:      openingValue,
		AddedValue:        decimal.Zero,
		SoldValue:         decimal.Zero,
		ReturnedValue:     decimal.Zero,
		TransferredInVal:  decimal.Zero,
		TransferredOutVal: decimal.Zero,
		CalculatedAt:      time.Now().UTC(),
	}

	for _, entry := range entries {
		switch entry.Type {
		case enums.MovementTypeAddition, enums.MovementTypeAdjustment:
			snapshot.AddedQty += entry.Quantity
			snapshot.AddedValue = snapshot.AddedValue.Add(entry.TotalAmount)
		case enums.MovementTypeSale:
			snapshot.SoldQty += entry.Quantity
			snapshot.SoldValue = snapshot.SoldValue.Add(entry.TotalAmount)
		case enums.MovementTypeReturn:
			snapshot.ReturnedQty += entry.Quantity
			snapshot.ReturnedValue = snapshot.ReturnedValue.Add(entry.TotalAmount)
		case enums.MovementTypeTransferIn:
			snapshot.TransferredInQty += entry.Quantity
			snapshot.TransferredInVal = snapshot.TransferredInVal.Add(entry.TotalAmount)
		case enums.MovementTypeTransferOut:
			snapshot.TransferredOutQty += entry.Quantity
			snapshot.TransferredOutVal = snapshot.TransferredOutVal.Add(entry.TotalAmount)
		}
	}

	snapshot.ClosingQty = snapshot.OpeningQty +
		snapshot.AddedQty + snapshot.ReturnedQty + snapshot.TransferredInQty -
		snapshot.SoldQty - snapshot.TransferredOutQty
	snapshot.ClosingValue = snapshot.OpeningValue.
		Add(snapshot.AddedValue).
		Add(snapshot.ReturnedValue).
		Add(snapshot.TransferredInVal).
		Sub(snapshot.SoldValue).
		Sub(snapshot.TransferredOutVal)

	return snapshot, nil
}

func (s *service) deriveOpening(ctx context.Context, productID uuid.UUID, day time.Time) (int, decimal.Decimal, error) {
	prior, err := s.repo.LatestBefore(ctx, productID, day)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, decimal.Zero, err
	}

	gapStart := time.Time{}
	qty := 0
	value := decimal.Zero
	if prior != nil {
		gapStart = types.NextDay(prior.BalanceDate)
		qty = prior.ClosingQty
		value = prior.ClosingValue
	}

	entries, err := s.ledger.ListByProductBetween(ctx, productID, gapStart, day)
	if err != nil {
		return 0, decimal.Zero, err
	}
	for _, entry := range entries {
		direction := entry.Type.Direction()
		qty += direction * entry.Quantity
		value = value.Add(entry.TotalAmount.Mul(decimal.NewFromInt(int64(direction))))
	}
	return qty, value, nil
}

func balanceKey(ctx context.Context, productID uuid.UUID, day time.Time) string {
	return tenant.CodeFromContext(ctx) + ":" + productID.String() + ":" + types.FormatDate(day)
}

// keyedMutex serializes work per logical key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = map[string]*lockEntry{}
	}
	entry, ok := k.locks[key]
	if !ok {
		entry = &lockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
