package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/auricsoft/jewelstock-backend/pkg/db/models"
	"github.com/auricsoft/jewelstock-backend/pkg/tenant"
)

// ListFilter narrows product listings.
type ListFilter struct {
	BranchID   *uuid.UUID
	CounterID  *uuid.UUID
	Category   *string
	ActiveOnly bool
	Limit      int
	Offset     int
}

// Repository manages persistence for the product catalog and tag registry.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindProductBySKU(ctx context.Context, sku string) (*models.Product, error)
	FindProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	ListProducts(ctx context.Context, filter ListFilter) ([]models.Product, error)
	RelocateProducts(ctx context.Context, ids []uuid.UUID, location models.Location) error
	CreateTagAssignment(ctx context.Context, assignment *models.TagAssignment) error
	FindActiveTag(ctx context.Context, tagCode string) (*models.TagAssignment, error)
	ReleaseTag(ctx context.Context, tagCode string) error
}

type repository struct {
	tenants tenant.Resolver
	tx      *gorm.DB
}

// NewRepository returns a catalog repository resolving its store per tenant.
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

func (r *repository) CreateProduct(ctx context.Context, product *models.Product) error {
	db, err := r.handle(ctx)
	if err != nil {
		return err
	}
	return db.Create(product).Error
}

func (r *repository) UpdateProduct(ctx context.Context, product *models.Product) error {
	db, err := r.handle(ctx)
	if err != nil {
		return err
	}
	return db.Save(product).Error
}

func (r *repository) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	db, err := r.handle(ctx)
	if err != nil {
		return nil, err
	}
	var product models.Product
	if err := db.First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	db, err := r.handle(ctx)
	if err != nil {
		return nil, err
	}
	var product models.Product
	if err := db.First(&product, "sku = ?", sku).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	db, err := r.handle(ctx)
	if err != nil {
		return nil, err
	}
	var products []models.Product
	if err := db.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) ListProducts(ctx context.Context, filter ListFilter) ([]models.Product, error) {
	db, err := r.handle(ctx)
	if err != nil {
		return nil, err
	}
	query := db.Model(&models.Product{})
	if filter.BranchID != nil {
		query = query.Where("branch_id = ?", *filter.BranchID)
	}
	if filter.CounterID != nil {
		query = query.Where("counter_id = ?", *filter.CounterID)
	}
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	var products []models.Product
	if err := query.Order("sku ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) RelocateProducts(ctx context.Context, ids []uuid.UUID, location models.Location) error {
	if len(ids) == 0 {
		return nil
	}
	db, err := r.handle(ctx)
	if err != nil {
		return err
	}
	return db.Model(&models.Product{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"branch_id":  location.BranchID,
			"counter_id": location.CounterID,
			"box_no":     location.BoxNo,
		}).Error
}

func (r *repository) CreateTagAssignment(ctx context.Context, assignment *models.TagAssignment) error {
	db, err := r.handle(ctx)
	if err != nil {
		return err
	}
	return db.Create(assignment).Error
}

func (r *repository) FindActiveTag(ctx context.Context, tagCode string) (*models.TagAssignment, error) {
	db, err := r.handle(ctx)
	if err != nil {
		return nil, err
	}
	var assignment models.TagAssignment
	if err := db.Where("tag_code = ? AND is_active = ?", tagCode, true).First(&assignment).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) ReleaseTag(ctx context.Context, tagCode string) error {
	db, err := r.handle(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	return db.Model(&models.TagAssignment{}).
		Where("tag_code = ? AND is_active = ?", tagCode, true).
		Updates(map[string]any{
			"is_active":   false,
			"released_at": now,
		}).Error
}
