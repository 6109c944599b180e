package stock

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/auricsoft/jewelstock-backend/pkg/db/models"
	pkgerrors "github.com/auricsoft/jewelstock-backend/pkg/errors"
	"github.com/auricsoft/jewelstock-backend/pkg/types"
)

type fakeStockRepo struct {
	productSums map[uuid.UUID]*Aggregate
	tailSums    map[uuid.UUID]*Aggregate
	branchSums  map[uuid.UUID]*Aggregate
	counterSums map[uuid.UUID]*Aggregate
	catSums     map[string]*Aggregate
}

func zeroAgg() *Aggregate {
	return &Aggregate{Value: decimal.Zero}
}

func (f *fakeStockRepo) SumProductSince(ctx context.Context, productID uuid.UUID, since time.Time) (*Aggregate, error) {
	if since.IsZero() {
		if agg, ok := f.productSums[productID]; ok {
			return agg, nil
		}
		return zeroAgg(), nil
	}
	if agg, ok := f.tailSums[productID]; ok {
		return agg, nil
	}
	return zeroAgg(), nil
}

func (f *fakeStockRepo) SumByBranch(ctx context.Context, branchID uuid.UUID) (*Aggregate, error) {
	if agg, ok := f.branchSums[branchID]; ok {
		return agg, nil
	}
	return zeroAgg(), nil
}

func (f *fakeStockRepo) SumByCounter(ctx context.Context, counterID uuid.UUID) (*Aggregate, error) {
	if agg, ok := f.counterSums[counterID]; ok {
		return agg, nil
	}
	return zeroAgg(), nil
}

func (f *fakeStockRepo) SumByCategory(ctx context.Context, category string) (*Aggregate, error) {
	if agg, ok := f.catSums[category]; ok {
		return agg, nil
	}
	return zeroAgg(), nil
}

type fakeSnapshots struct {
	snapshots map[uuid.UUID]*models.DailyBalanceSnapshot
}

func (f *fakeSnapshots) LatestBefore(ctx context.Context, productID uuid.UUID, date time.Time) (*models.DailyBalanceSnapshot, error) {
	if snapshot, ok := f.snapshots[productID]; ok && snapshot.BalanceDate.Before(date) {
		return snapshot, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func TestService_GetProductStockFromLedger(t *testing.T) {
	productID := uuid.New()
	repo := &fakeStockRepo{productSums: map[uuid.UUID]*Aggregate{
		productID: {Quantity: 7, Value: decimal.NewFromInt(700)},
	}}
	svc, err := NewService(repo, &fakeSnapshots{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	position, err := svc.GetProductStock(context.Background(), productID)
	if err != nil {
		t.Fatalf("GetProductStock error: %v", err)
	}
	if position.Quantity != 7 {
		t.Fatalf("expected quantity 7, got %d", position.Quantity)
	}
	if !position.Value.Equal(decimal.NewFromInt(700)) {
		t.Fatalf("expected value 700, got %s", position.Value)
	}
}

func TestService_GetProductStockFromSnapshotAndTail(t *testing.T) {
	productID := uuid.New()
	yesterday := types.PrevDay(types.DateOf(time.Now().UTC()))
	snapshots := &fakeSnapshots{snapshots: map[uuid.UUID]*models.DailyBalanceSnapshot{
		productID: {
			ProductID:    productID,
			BalanceDate:  yesterday,
			ClosingQty:   10,
			ClosingValue: decimal.NewFromInt(1000),
		},
	}}
	repo := &fakeStockRepo{tailSums: map[uuid.UUID]*Aggregate{
		productID: {Quantity: -2, Value: decimal.NewFromInt(-200)},
	}}
	svc, err := NewService(repo, snapshots)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	position, err := svc.GetProductStock(context.Background(), productID)
	if err != nil {
		t.Fatalf("GetProductStock error: %v", err)
	}
	if position.Quantity != 8 {
		t.Fatalf("expected snapshot + tail = 8, got %d", position.Quantity)
	}
	if !position.Value.Equal(decimal.NewFromInt(800)) {
		t.Fatalf("expected value 800, got %s", position.Value)
	}
}

func TestService_GetProductStockPathsAgree(t *testing.T) {
	productID := uuid.New()
	yesterday := types.PrevDay(types.DateOf(time.Now().UTC()))

	// Same ledger expressed both ways: a full sum of 5/500, and a snapshot of
	// 3/300 with a tail of 2/200 after it.
	repo := &fakeStockRepo{
		productSums: map[uuid.UUID]*Aggregate{
			productID: {Quantity: 5, Value: decimal.NewFromInt(500)},
		},
		tailSums: map[uuid.UUID]*Aggregate{
			productID: {Quantity: 2, Value: decimal.NewFromInt(200)},
		},
	}
	snapshots := &fakeSnapshots{snapshots: map[uuid.UUID]*models.DailyBalanceSnapshot{
		productID: {
			ProductID:    productID,
			BalanceDate:  yesterday,
			ClosingQty:   3,
			ClosingValue: decimal.NewFromInt(300),
		},
	}}

	withSnapshots, _ := NewService(repo, snapshots)
	ledgerOnly, _ := NewService(repo, nil)

	fast, err := withSnapshots.GetProductStock(context.Background(), productID)
	if err != nil {
		t.Fatalf("snapshot path error: %v", err)
	}
	full, err := ledgerOnly.GetProductStock(context.Background(), productID)
	if err != nil {
		t.Fatalf("ledger path error: %v", err)
	}
	if fast.Quantity != full.Quantity || !fast.Value.Equal(full.Value) {
		t.Fatalf("derivations disagree: %d/%s vs %d/%s",
			fast.Quantity, fast.Value, full.Quantity, full.Value)
	}
}

// ledgerBackedRepo sums dated entries the way the SQL repository does, so
// tests can verify which slice of the ledger a query actually covers.
type ledgerBackedRepo struct {
	fakeStockRepo
	entries []ledgerEntry
}

type ledgerEntry struct {
	movedAt  time.Time
	quantity int
	value    decimal.Decimal
}

func (f *ledgerBackedRepo) SumProductSince(ctx context.Context, productID uuid.UUID, since time.Time) (*Aggregate, error) {
	agg := zeroAgg()
	for _, entry := range f.entries {
		if !since.IsZero() && entry.movedAt.Before(since) {
			continue
		}
		agg.Quantity += entry.quantity
		agg.Value = agg.Value.Add(entry.value)
	}
	return agg, nil
}

// latestSnapshots returns the newest snapshot strictly before the asked date,
// mirroring the repository's balance_date < ? query.
type latestSnapshots struct {
	snapshots []*models.DailyBalanceSnapshot
}

func (f *latestSnapshots) LatestBefore(ctx context.Context, productID uuid.UUID, date time.Time) (*models.DailyBalanceSnapshot, error) {
	var latest *models.DailyBalanceSnapshot
	for _, snapshot := range f.snapshots {
		if snapshot.ProductID != productID || !snapshot.BalanceDate.Before(date) {
			continue
		}
		if latest == nil || snapshot.BalanceDate.After(latest.BalanceDate) {
			latest = snapshot
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return latest, nil
}

func TestService_GetProductStockIgnoresTodaySnapshot(t *testing.T) {
	productID := uuid.New()
	now := time.Now().UTC()
	today := types.DateOf(now)
	yesterday := types.PrevDay(today)

	// Ten pieces arrived yesterday; two sold today. A snapshot dated today
	// was cut before the sale, so it still says ten. The resolver must not
	// trust it, or today's sale disappears from the reading.
	repo := &ledgerBackedRepo{entries: []ledgerEntry{
		{movedAt: yesterday.Add(10 * time.Hour), quantity: 10, value: decimal.NewFromInt(1000)},
		{movedAt: today.Add(2 * time.Hour), quantity: -2, value: decimal.NewFromInt(-200)},
	}}
	snapshots := &latestSnapshots{snapshots: []*models.DailyBalanceSnapshot{
		{ProductID: productID, BalanceDate: yesterday, ClosingQty: 10, ClosingValue: decimal.NewFromInt(1000)},
		{ProductID: productID, BalanceDate: today, ClosingQty: 10, ClosingValue: decimal.NewFromInt(1000)},
	}}

	withSnapshots, _ := NewService(repo, snapshots)
	ledgerOnly, _ := NewService(repo, nil)

	fast, err := withSnapshots.GetProductStock(context.Background(), productID)
	if err != nil {
		t.Fatalf("snapshot path error: %v", err)
	}
	full, err := ledgerOnly.GetProductStock(context.Background(), productID)
	if err != nil {
		t.Fatalf("ledger path error: %v", err)
	}
	if fast.Quantity != 8 || !fast.Value.Equal(decimal.NewFromInt(800)) {
		t.Fatalf("expected 8/800 including today's sale, got %d/%s", fast.Quantity, fast.Value)
	}
	if fast.Quantity != full.Quantity || !fast.Value.Equal(full.Value) {
		t.Fatalf("derivations disagree: %d/%s vs %d/%s",
			fast.Quantity, fast.Value, full.Quantity, full.Value)
	}
}

func TestService_GetStockByDimension(t *testing.T) {
	branchID := uuid.New()
	counterID := uuid.New()
	repo := &fakeStockRepo{
		branchSums:  map[uuid.UUID]*Aggregate{branchID: {Quantity: 12, Value: decimal.NewFromInt(1200)}},
		counterSums: map[uuid.UUID]*Aggregate{counterID: {Quantity: 4, Value: decimal.NewFromInt(400)}},
		catSums:     map[string]*Aggregate{"rings": {Quantity: 9, Value: decimal.NewFromInt(900)}},
	}
	svc, _ := NewService(repo, nil)

	branch, err := svc.GetBranchStock(context.Background(), branchID)
	if err != nil || branch.Quantity != 12 {
		t.Fatalf("branch stock: %v %+v", err, branch)
	}
	counter, err := svc.GetCounterStock(context.Background(), counterID)
	if err != nil || counter.Quantity != 4 {
		t.Fatalf("counter stock: %v %+v", err, counter)
	}
	category, err := svc.GetCategoryStock(context.Background(), " rings ")
	if err != nil || category.Quantity != 9 {
		t.Fatalf("category stock: %v %+v", err, category)
	}
}

func TestService_Validation(t *testing.T) {
	svc, _ := NewService(&fakeStockRepo{}, nil)

	if _, err := svc.GetProductStock(context.Background(), uuid.Nil); err == nil {
		t.Fatal("expected error for nil product id")
	}
	if _, err := svc.GetBranchStock(context.Background(), uuid.Nil); err == nil {
		t.Fatal("expected error for nil branch id")
	}
	if _, err := svc.GetCounterStock(context.Background(), uuid.Nil); err == nil {
		t.Fatal("expected error for nil counter id")
	}
	_, err := svc.GetCategoryStock(context.Background(), "  ")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
