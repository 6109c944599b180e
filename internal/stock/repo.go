package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/auricsoft/jewelstock-backend/pkg/db/models"
	"github.com/auricsoft/jewelstock-backend/pkg/tenant"
)

// Directional sums over the ledger. Sale and transfer_out subtract, every
// other type adds; the sign lives in the query so readers never carry it.
const (
	sumQtyExpr = "COALESCE(SUM(CASE WHEN type IN ('sale', 'transfer_out') THEN -quantity ELSE quantity END), 0) AS quantity"
	sumValExpr = "COALESCE(SUM(CASE WHEN type IN ('sale', 'transfer_out') THEN -total_amount ELSE total_amount END), 0) AS value"
)

// Aggregate is a directional ledger sum.
type Aggregate struct {
	Quantity int             `gorm:"column:quantity"`
	Value    decimal.Decimal `gorm:"column:value"`
}

// Repository runs read-only aggregate queries over the movement ledger.
type Repository interface {
	SumProductSince(ctx context.Context, productID uuid.UUID, since time.Time) (*Aggregate, error)
	SumByBranch(ctx context.Context, branchID uuid.UUID) (*Aggregate, error)
	SumByCounter(ctx context.Context, counterID uuid.UUID) (*Aggregate, error)
	SumByCategory(ctx context.Context, category string) (*Aggregate, error)
}

type repository struct {
	tenants tenant.Resolver
}

// NewRepository returns a stock repository resolving its store per tenant.
func NewRepository(tenants tenant.Resolver) Repository {
	return &repository{tenants: tenants}
}

func (r *repository) sum(ctx context.Context, where string, args ...any) (*Aggregate, error) {
	db, err := r.tenants.Handle(ctx)
	if err != nil {
		return nil, err
	}
	var agg Aggregate
	if err := db.Model(&models.MovementEntry{}).
		Select(sumQtyExpr + ", " + sumValExpr).
		Where(where, args...).
		Take(&agg).Error; err != nil {
		return nil, err
	}
	return &agg, nil
}

// SumProductSince sums a product's entries with moved_at >= since. A zero
// since covers the whole ledger.
func (r *repository) SumProductSince(ctx context.Context, productID uuid.UUID, since time.Time) (*Aggregate, error) {
	if since.IsZero() {
		return r.sum(ctx, "product_id = ?", productID)
	}
	return r.sum(ctx, "product_id = ? AND moved_at >= ?", productID, since)
}

func (r *repository) SumByBranch(ctx context.Context, branchID uuid.UUID) (*Aggregate, error) {
	return r.sum(ctx, "branch_id = ?", branchID)
}

func (r *repository) SumByCounter(ctx context.Context, counterID uuid.UUID) (*Aggregate, error) {
	return r.sum(ctx, "counter_id = ?", counterID)
}

func (r *repository) SumByCategory(ctx context.Context, category string) (*Aggregate, error) {
	return r.sum(ctx, "category = ?", category)
}
