package balances

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/auricsoft/jewelstock-backend/pkg/db/models"
	"github.com/auricsoft/jewelstock-backend/pkg/tenant"
)

// Repository manages persistence for daily balance snapshots.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, snapshot *models.DailyBalanceSnapshot) error
	FindByProductDate(ctx context.Context, productID uuid.UUID, date time.Time) (*models.DailyBalanceSnapshot, error)
	LatestBefore(ctx context.Context, productID uuid.UUID, date time.Time) (*models.DailyBalanceSnapshot, error)
	ListByProduct(ctx context.Context, productID uuid.UUID, from, to time.Time) ([]models.DailyBalanceSnapshot, error)
}

type repository struct {
	tenants tenant.Resolver
	tx      *gorm.DB
}

// NewRepository returns a snapshot repository resolving its store per tenant.
func NewRepository(tenants tenant.Resolver) Repository {
	return &repository{tenants: tenants}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{tenants: r.tenants, tx: tx}
}

func (r *repository) handle(ctx context.Context) (*gorm.DB, error) {
	if r.tx != nil {
		return r.tx.WithContext(ctx), nil
	}
	return r.tenants.Handle(ctx)
}

// Upsert writes the snapshot for (product, date), overwriting any previous
// calculation for the same key.
func (r *repository) Upsert(ctx context.Context, snapshot *models.DailyBalanceSnapshot) error {
	db, err := r.handle(ctx)
	if err != nil {
		return err
	}
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "product_id"}, {Name: "balance_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"opening_qty", "opening_value",
			"added_qty", "added_value",
			"sold_qty", "sold_value",
			"returned_qty", "returned_value",
			"transferred_in_qty", "transferred_in_value",
			"transferred_out_qty", "transferred_out_value",
			"closing_qty", "closing_value",
			"calculated_at",
		}),
	}).Create(snapshot).Error
}

func (r *repository) FindByProductDate(ctx context.Context, productID uuid.UUID, date time.Time) (*models.DailyBalanceSnapshot, error) {
	db, err := r.handle(ctx)
	if err != nil {
		return nil, err
	}
	var snapshot models.DailyBalanceSnapshot
	if err := db.
		Where("product_id = ? AND balance_date = ?", productID, date).
		First(&snapshot).Error; err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *repository) LatestBefore(ctx context.Context, productID uuid.UUID, date time.Time) (*models.DailyBalanceSnapshot, error) {
	db, err := r.handle(ctx)
	if err != nil {
		return nil, err
	}
	var snapshot models.DailyBalanceSnapshot
	if err := db.
		Where("product_id = ? AND balance_date < ?", productID, date).
		Order("balance_date DESC").
		First(&snapshot).Error; err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *repository) ListByProduct(ctx context.Context, productID uuid.UUID, from, to time.Time) ([]models.DailyBalanceSnapshot, error) {
	db, err := r.handle(ctx)
	if err != nil {
		return nil, err
	}
	var snapshots []models.DailyBalanceSnapshot
	if err := db.
		Where("product_id = ? AND balance_date >= ? AND balance_date <= ?", productID, from, to).
		Order("balance_date ASC").
		Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}
