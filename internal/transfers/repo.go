package transfers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/auricsoft/jewelstock-backend/pkg/db/models"
	"github.com/auricsoft/jewelstock-backend/pkg/enums"
	"github.com/auricsoft/jewelstock-backend/pkg/tenant"
)

// ListFilter narrows transfer listings. Zero fields are ignored.
type ListFilter struct {
	Status         *enums.TransferStatus
	SourceBranchID *uuid.UUID
	DestBranchID   *uuid.UUID
	Limit          int
	Offset         int
}

// Repository manages persistence for transfers and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, transfer *models.Transfer) error
	Update(ctx context.Context, transfer *models.Transfer) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transfer, error)
	List(ctx context.Context, filter ListFilter) ([]models.Transfer, error)
	LockProducts(ctx context.Context, productIDs []uuid.UUID) error
	ListReservedProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]uuid.UUID, error)
}

type repository struct {
	tenants tenant.Resolver
	tx      *gorm.DB
}

// NewRepository returns a transfer repository resolving its store per tenant.
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

func (r *repository) Create(ctx context.Context, transfer *models.Transfer) error {
	db, err := r.handle(ctx)
	if err != nil {
		return err
	}
	return db.Create(transfer).Error
}

func (r *repository) Update(ctx context.Context, transfer *models.Transfer) error {
	db, err := r.handle(ctx)
	if err != nil {
		return err
	}
	// Items are immutable after creation; only the transfer row changes.
	return db.Omit("Items").Save(transfer).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transfer, error) {
	db, err := r.handle(ctx)
	if err != nil {
		return nil, err
	}
	var transfer models.Transfer
	if err := db.Preload("Items").First(&transfer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &transfer, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Transfer, error) {
	db, err := r.handle(ctx)
	if err != nil {
		return nil, err
	}
	query := db.Model(&models.Transfer{}).Preload("Items")
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.SourceBranchID != nil {
		query = query.Where("source_branch_id = ?", *filter.SourceBranchID)
	}
	if filter.DestBranchID != nil {
		query = query.Where("dest_branch_id = ?", *filter.DestBranchID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	var transfers []models.Transfer
	if err := query.Order("requested_at DESC").Find(&transfers).Error; err != nil {
		return nil, err
	}
	return transfers, nil
}

// LockProducts takes row locks on the given products for the duration of the
// surrounding transaction. Under read committed two overlapping reservation
// checks could otherwise both see no open transfer; the lock serializes them.
// Products are locked in id order so overlapping sets cannot deadlock.
func (r *repository) LockProducts(ctx context.Context, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}
	db, err := r.handle(ctx)
	if err != nil {
		return err
	}
	var locked []uuid.UUID
	return db.Model(&models.Product{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", productIDs).
		Order("id").
		Pluck("id", &locked).Error
}

// ListReservedProductIDs returns the subset of the given products that sit in
// an open transfer and are therefore unavailable for another one.
func (r *repository) ListReservedProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	db, err := r.handle(ctx)
	if err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	if err := db.Model(&models.TransferItem{}).
		Joins("JOIN transfers ON transfers.id = transfer_items.transfer_id").
		Where("transfers.status IN ?", enums.OpenTransferStatuses()).
		Where("transfer_items.product_id IN ?", productIDs).
		Distinct("transfer_items.product_id").
		Pluck("transfer_items.product_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
