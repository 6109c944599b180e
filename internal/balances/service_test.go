package balances

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/auricsoft/jewelstock-backend/pkg/db/models"
	"github.com/auricsoft/jewelstock-backend/pkg/enums"
	pkgerrors "github.com/auricsoft/jewelstock-backend/pkg/errors"
	"github.com/auricsoft/jewelstock-backend/pkg/outbox"
	"github.com/auricsoft/jewelstock-backend/pkg/types"
)

type fakeSnapshotRepo struct {
	rows      map[string]*models.DailyBalanceSnapshot
	upsertErr error
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{rows: map[string]*models.DailyBalanceSnapshot{}}
}

func snapshotKey(productID uuid.UUID, date time.Time) string {
	return productID.String() + ":" + types.FormatDate(date)
}

func (f *fakeSnapshotRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeSnapshotRepo) Upsert(ctx context.Context, snapshot *models.DailyBalanceSnapshot) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	clone := *snapshot
	f.rows[snapshotKey(snapshot.ProductID, snapshot.BalanceDate)] = &clone
	return nil
}

func (f *fakeSnapshotRepo) FindByProductDate(ctx context.Context, productID uuid.UUID, date time.Time) (*models.DailyBalanceSnapshot, error) {
	if row, ok := f.rows[snapshotKey(productID, date)]; ok {
		return row, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSnapshotRepo) LatestBefore(ctx context.Context, productID uuid.UUID, date time.Time) (*models.DailyBalanceSnapshot, error) {
	var latest *models.DailyBalanceSnapshot
	for _, row := range f.rows {
		if row.ProductID != productID || !row.BalanceDate.Before(date) {
			continue
		}
		if latest == nil || row.BalanceDate.After(latest.BalanceDate) {
			latest = row
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return latest, nil
}

func (f *fakeSnapshotRepo) ListByProduct(ctx context.Context, productID uuid.UUID, from, to time.Time) ([]models.DailyBalanceSnapshot, error) {
	var out []models.DailyBalanceSnapshot
	for _, row := range f.rows {
		if row.ProductID == productID && !row.BalanceDate.Before(from) && !row.BalanceDate.After(to) {
			out = append(out, *row)
		}
	}
	return out, nil
}

type fakeLedger struct {
	entries   []models.MovementEntry
	activeIDs []uuid.UUID
	failFor   map[uuid.UUID]error
	listErr   error
}

func (f *fakeLedger) ListByProductBetween(ctx context.Context, productID uuid.UUID, from, to time.Time) ([]models.MovementEntry, error) {
	if err, ok := f.failFor[productID]; ok {
		return nil, err
	}
	var out []models.MovementEntry
	for _, entry := range f.entries {
		if entry.ProductID != productID {
			continue
		}
		if entry.MovedAt.Before(from) || !entry.MovedAt.Before(to) {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (f *fakeLedger) ListProductIDsWithMovementsBetween(ctx context.Context, from, to time.Time) ([]uuid.UUID, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.activeIDs, nil
}

type fakeCatalog struct {
	missing map[uuid.UUID]bool
}

func (f *fakeCatalog) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if f.missing[id] {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.Product{ID: id, IsActive: true}, nil
}

type fakeResolver struct{}

func (fakeResolver) Handle(ctx context.Context) (*gorm.DB, error) { return nil, nil }

func (fakeResolver) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeEmitter struct {
	events []outbox.DomainEvent
}

func (f *fakeEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

func ledgerEntry(productID uuid.UUID, movementType enums.MovementType, qty int, price float64, movedAt time.Time) models.MovementEntry {
	unit := decimal.NewFromFloat(price)
	return models.MovementEntry{
		ID:          uuid.New(),
		ProductID:   productID,
		Type:        movementType,
		Quantity:    qty,
		UnitPrice:   unit,
		TotalAmount: unit.Mul(decimal.NewFromInt(int64(qty))),
		MovedAt:     movedAt,
	}
}

func newTestService(t *testing.T, repo Repository, ledger ledgerReader, emitter *fakeEmitter) Service {
	t.Helper()
	svc, err := NewService(repo, ledger, &fakeCatalog{}, fakeResolver{}, emitter, nil)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestService_CalculateDailyBalanceFirstDay(t *testing.T) {
	productID := uuid.New()
	day := types.DateOf(time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC))
	ledger := &fakeLedger{entries: []models.MovementEntry{
		ledgerEntry(productID, enums.MovementTypeAddition, 10, 100, day.Add(9*time.Hour)),
		ledgerEntry(productID, enums.MovementTypeSale, 2, 100, day.Add(12*time.Hour)),
		ledgerEntry(productID, enums.MovementTypeReturn, 1, 100, day.Add(15*time.Hour)),
	}}
	repo := newFakeSnapshotRepo()
	emitter := &fakeEmitter{}
	svc := newTestService(t, repo, ledger, emitter)

	snapshot, err := svc.CalculateDailyBalance(context.Background(), productID, day)
	if err != nil {
		t.Fatalf("CalculateDailyBalance error: %v", err)
	}
	if snapshot.OpeningQty != 0 || !snapshot.OpeningValue.IsZero() {
		t.Fatalf("expected zero opening, got %d / %s", snapshot.OpeningQty, snapshot.OpeningValue)
	}
	if snapshot.AddedQty != 10 || snapshot.SoldQty != 2 || snapshot.ReturnedQty != 1 {
		t.Fatalf("unexpected buckets: %+v", snapshot)
	}
	if snapshot.ClosingQty != 9 {
		t.Fatalf("expected closing qty 9, got %d", snapshot.ClosingQty)
	}
	if !snapshot.ClosingValue.Equal(decimal.NewFromInt(900)) {
		t.Fatalf("expected closing value 900, got %s", snapshot.ClosingValue)
	}
	if len(repo.rows) != 1 {
		t.Fatalf("expected snapshot persisted, got %d rows", len(repo.rows))
	}
	if len(emitter.events) != 1 {
		t.Fatalf("expected 1 outbox event, got %d", len(emitter.events))
	}
	if emitter.events[0].EventType != enums.EventBalanceRecalculated {
		t.Fatalf("unexpected event type %s", emitter.events[0].EventType)
	}
	if emitter.events[0].AggregateID != snapshot.ID {
		t.Fatal("event aggregate should be the snapshot id")
	}
}

func TestService_CalculateDailyBalanceOpeningFromPriorSnapshot(t *testing.T) {
	productID := uuid.New()
	day := types.DateOf(time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC))
	priorDay := types.DateOf(day.AddDate(0, 0, -3))

	repo := newFakeSnapshotRepo()
	repo.rows[snapshotKey(productID, priorDay)] = &models.DailyBalanceSnapshot{
		ID:           uuid.New(),
		ProductID:    productID,
		BalanceDate:  priorDay,
		ClosingQty:   5,
		ClosingValue: decimal.NewFromInt(500),
	}

	// One sale in the uncalculated gap between the snapshot and the target
	// day, then in/out movements on the day itself.
	ledger := &fakeLedger{entries: []models.MovementEntry{
		ledgerEntry(productID, enums.MovementTypeSale, 1, 100, priorDay.AddDate(0, 0, 1).Add(10*time.Hour)),
		ledgerEntry(productID, enums.MovementTypeTransferIn, 3, 100, day.Add(9*time.Hour)),
		ledgerEntry(productID, enums.MovementTypeTransferOut, 1, 100, day.Add(14*time.Hour)),
	}}
	svc := newTestService(t, repo, ledger, &fakeEmitter{})

	snapshot, err := svc.CalculateDailyBalance(context.Background(), productID, day)
	if err != nil {
		t.Fatalf("CalculateDailyBalance error: %v", err)
	}
	if snapshot.OpeningQty != 4 {
		t.Fatalf("expected opening qty 4 (5 - gap sale), got %d", snapshot.OpeningQty)
	}
	if !snapshot.OpeningValue.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("expected opening value 400, got %s", snapshot.OpeningValue)
	}
	if snapshot.TransferredInQty != 3 || snapshot.TransferredOutQty != 1 {
		t.Fatalf("unexpected transfer buckets: %+v", snapshot)
	}
	if snapshot.ClosingQty != 6 {
		t.Fatalf("expected closing qty 6, got %d", snapshot.ClosingQty)
	}
	if !snapshot.ClosingValue.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("expected closing value 600, got %s", snapshot.ClosingValue)
	}
}

func TestService_CalculateDailyBalanceIdempotent(t *testing.T) {
	productID := uuid.New()
	day := types.DateOf(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	ledger := &fakeLedger{entries: []models.MovementEntry{
		ledgerEntry(productID, enums.MovementTypeAddition, 4, 250, day.Add(time.Hour)),
		ledgerEntry(productID, enums.MovementTypeSale, 1, 250, day.Add(2*time.Hour)),
	}}
	repo := newFakeSnapshotRepo()
	svc := newTestService(t, repo, ledger, &fakeEmitter{})

	first, err := svc.CalculateDailyBalance(context.Background(), productID, day)
	if err != nil {
		t.Fatalf("first calculation error: %v", err)
	}
	second, err := svc.CalculateDailyBalance(context.Background(), productID, day)
	if err != nil {
		t.Fatalf("second calculation error: %v", err)
	}
	if first.ClosingQty != second.ClosingQty || !first.ClosingValue.Equal(second.ClosingValue) {
		t.Fatalf("recalculation changed numbers: %+v vs %+v", first, second)
	}
	if len(repo.rows) != 1 {
		t.Fatalf("expected one row per (product, date), got %d", len(repo.rows))
	}
}

func TestService_CalculateDailyBalanceValidation(t *testing.T) {
	svc := newTestService(t, newFakeSnapshotRepo(), &fakeLedger{}, &fakeEmitter{})

	if _, err := svc.CalculateDailyBalance(context.Background(), uuid.Nil, time.Now()); err == nil {
		t.Fatal("expected error for nil product id")
	}
	_, err := svc.CalculateDailyBalance(context.Background(), uuid.New(), time.Time{})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for zero date, got %v", err)
	}
}

func TestService_CalculateDailyBalanceUnknownProduct(t *testing.T) {
	unknown := uuid.New()
	repo := newFakeSnapshotRepo()
	emitter := &fakeEmitter{}
	svc, err := NewService(repo, &fakeLedger{}, &fakeCatalog{missing: map[uuid.UUID]bool{unknown: true}}, fakeResolver{}, emitter, nil)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	_, err = svc.CalculateDailyBalance(context.Background(), unknown, time.Now().UTC())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
	if len(repo.rows) != 0 {
		t.Fatalf("no snapshot may be stored for an unknown product, got %d rows", len(repo.rows))
	}
	if len(emitter.events) != 0 {
		t.Fatalf("no event may be emitted for an unknown product, got %d", len(emitter.events))
	}
}

func TestService_CalculateForDateContinuesOnError(t *testing.T) {
	day := types.DateOf(time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC))
	good := uuid.New()
	bad := uuid.New()
	ledger := &fakeLedger{
		entries: []models.MovementEntry{
			ledgerEntry(good, enums.MovementTypeSale, 1, 50, day.Add(time.Hour)),
		},
		activeIDs: []uuid.UUID{good, bad},
		failFor:   map[uuid.UUID]error{bad: errors.New("ledger unavailable")},
	}
	svc := newTestService(t, newFakeSnapshotRepo(), ledger, &fakeEmitter{})

	result, err := svc.CalculateForDate(context.Background(), day)
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if len(multierr.Errors(err)) != 1 {
		t.Fatalf("expected 1 aggregated failure, got %v", err)
	}
	if result.Calculated != 1 || result.Failed != 1 {
		t.Fatalf("expected 1 calculated and 1 failed, got %+v", result)
	}
}

func TestService_RecalculateBalancesWalksForward(t *testing.T) {
	productID := uuid.New()
	today := types.DateOf(time.Now().UTC())
	start := today.AddDate(0, 0, -2)
	ledger := &fakeLedger{entries: []models.MovementEntry{
		ledgerEntry(productID, enums.MovementTypeAddition, 6, 10, start.Add(time.Hour)),
		ledgerEntry(productID, enums.MovementTypeSale, 2, 10, start.AddDate(0, 0, 1).Add(time.Hour)),
	}}
	repo := newFakeSnapshotRepo()
	svc := newTestService(t, repo, ledger, &fakeEmitter{})

	snapshots, err := svc.RecalculateBalances(context.Background(), productID, start)
	if err != nil {
		t.Fatalf("RecalculateBalances error: %v", err)
	}
	if len(snapshots) != 3 {
		t.Fatalf("expected 3 daily snapshots, got %d", len(snapshots))
	}
	if snapshots[0].ClosingQty != 6 || snapshots[1].ClosingQty != 4 || snapshots[2].ClosingQty != 4 {
		t.Fatalf("unexpected closing chain: %d %d %d",
			snapshots[0].ClosingQty, snapshots[1].ClosingQty, snapshots[2].ClosingQty)
	}

	if _, err := svc.RecalculateBalances(context.Background(), productID, today.AddDate(0, 0, 1)); err == nil {
		t.Fatal("expected error for future start date")
	}
}

func TestService_RecalculateAllBalancesCoversRange(t *testing.T) {
	first := uuid.New()
	second := uuid.New()
	today := types.DateOf(time.Now().UTC())
	start := today.AddDate(0, 0, -1)
	ledger := &fakeLedger{
		entries: []models.MovementEntry{
			ledgerEntry(first, enums.MovementTypeAddition, 5, 20, start.Add(time.Hour)),
			ledgerEntry(second, enums.MovementTypeAddition, 2, 80, start.Add(2*time.Hour)),
		},
		activeIDs: []uuid.UUID{first, second},
	}
	repo := newFakeSnapshotRepo()
	svc := newTestService(t, repo, ledger, &fakeEmitter{})

	results, err := svc.RecalculateAllBalances(context.Background(), start)
	if err != nil {
		t.Fatalf("RecalculateAllBalances error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected a run per day, got %d", len(results))
	}
	for _, result := range results {
		if result.Calculated != 2 || result.Failed != 0 {
			t.Fatalf("expected both products calculated on %s, got %+v", types.FormatDate(result.Date), result)
		}
	}
	// One snapshot per product per day.
	if len(repo.rows) != 4 {
		t.Fatalf("expected 4 snapshots, got %d", len(repo.rows))
	}

	if _, err := svc.RecalculateAllBalances(context.Background(), today.AddDate(0, 0, 1)); err == nil {
		t.Fatal("expected error for future start date")
	}
}

func TestService_GetBalanceNotFound(t *testing.T) {
	svc := newTestService(t, newFakeSnapshotRepo(), &fakeLedger{}, &fakeEmitter{})

	_, err := svc.GetBalance(context.Background(), uuid.New(), time.Now())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestService_ListBalancesInvertedRange(t *testing.T) {
	svc := newTestService(t, newFakeSnapshotRepo(), &fakeLedger{}, &fakeEmitter{})

	from := time.Now()
	if _, err := svc.ListBalances(context.Background(), uuid.New(), from, from.AddDate(0, 0, -2)); err == nil {
		t.Fatal("expected error for inverted range")
	}
}
