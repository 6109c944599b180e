package movements

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/auricsoft/jewelstock-backend/pkg/db/models"
	"github.com/auricsoft/jewelstock-backend/pkg/tenant"
)

// ListFilter narrows ledger queries. Zero fields are ignored.
type ListFilter struct {
	ProductID *uuid.UUID
	BranchID  *uuid.UUID
	CounterID *uuid.UUID
	Category  *string
	Type      *string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// Repository manages persistence for the movement ledger. Entries are
// append-only; there are no update or delete operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.MovementEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.MovementEntry, error)
	List(ctx context.Context, filter ListFilter) ([]models.MovementEntry, error)
	ListByProductBetween(ctx context.Context, productID uuid.UUID, from, to time.Time) ([]models.MovementEntry, error)
	ListProductIDsWithMovementsBetween(ctx context.Context, from, to time.Time) ([]uuid.UUID, error)
}

type repository struct {
	tenants tenant.Resolver
	tx      *gorm.DB
}

// NewRepository returns a ledger repository resolving its store per tenant.
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

func (r *repository) Create(ctx context.Context, entry *models.MovementEntry) error {
	db, err := r.handle(ctx)
	if err != nil {
		return err
	}
	return db.Create(entry).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.MovementEntry, error) {
	db, err := r.handle(ctx)
	if err != nil {
		return nil, err
	}
	var entry models.MovementEntry
	if err := db.First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.MovementEntry, error) {
	db, err := r.handle(ctx)
	if err != nil {
		return nil, err
	}
	query := db.Model(&models.MovementEntry{})
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.BranchID != nil {
		query = query.Where("branch_id = ?", *filter.BranchID)
	}
	if filter.CounterID != nil {
		query = query.Where("counter_id = ?", *filter.CounterID)
	}
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.From != nil {
		query = query.Where("moved_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("moved_at < ?", *filter.To)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	var entries []models.MovementEntry
	if err := query.Order("moved_at ASC").Order("created_at ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListByProductBetween(ctx context.Context, productID uuid.UUID, from, to time.Time) ([]models.MovementEntry, error) {
	db, err := r.handle(ctx)
	if err != nil {
		return nil, err
	}
	var entries []models.MovementEntry
	if err := db.
		Where("product_id = ? AND moved_at >= ? AND moved_at < ?", productID, from, to).
		Order("moved_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListProductIDsWithMovementsBetween(ctx context.Context, from, to time.Time) ([]uuid.UUID, error) {
	db, err := r.handle(ctx)
	if err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	if err := db.Model(&models.MovementEntry{}).
		Where("moved_at >= ? AND moved_at < ?", from, to).
		Distinct("product_id").
		Pluck("product_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
