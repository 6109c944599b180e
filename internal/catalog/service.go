package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/auricsoft/jewelstock-backend/pkg/db"
	"github.com/auricsoft/jewelstock-backend/pkg/db/models"
	pkgerrors "github.com/auricsoft/jewelstock-backend/pkg/errors"
	"github.com/auricsoft/jewelstock-backend/pkg/tenant"
)

// Service exposes catalog management: products and the RFID tag registry.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*models.Product, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, filter ListFilter) ([]models.Product, error)
	AssignTag(ctx context.Context, tagCode string, productID uuid.UUID) (*models.TagAssignment, error)
	ReleaseTag(ctx context.Context, tagCode string) error
	ResolveTag(ctx context.Context, tagCode string) (*models.Product, error)
}

// CreateProductInput holds the validated payload to register a product.
type CreateProductInput struct {
	SKU       string
	Name      string
	Category  string
	UnitPrice decimal.Decimal
	BranchID  uuid.UUID
	CounterID *uuid.UUID
	BoxNo     *string
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name      *string
	Category  *string
	UnitPrice *decimal.Decimal
	BranchID  *uuid.UUID
	CounterID *uuid.UUID
	BoxNo     *string
	IsActive  *bool
}

type service struct {
	repo    Repository
	tenants tenant.Resolver
}

// NewService wires a catalog service with the provided repository.
func NewService(repo Repository, tenants tenant.Resolver) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tenants == nil {
		return nil, fmt.Errorf("tenant resolver required")
	}
	return &service{repo: repo, tenants: tenants}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	if strings.TrimSpace(input.SKU) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if strings.TrimSpace(input.Category) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	if input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}
	if input.BranchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "branch id is required")
	}

	product := &models.Product{
		SKU:       strings.TrimSpace(input.SKU),
		Name:      strings.TrimSpace(input.Name),
		Category:  strings.TrimSpace(input.Category),
		UnitPrice: input.UnitPrice,
		BranchID:  input.BranchID,
		CounterID: input.CounterID,
		BoxNo:     input.BoxNo,
		IsActive:  true,
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "idx_products_sku") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already registered").
				WithDetails(map[string]any{"sku": product.SKU})
		}
		return nil, err
	}
	return product, nil
}

func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Category != nil {
		if strings.TrimSpace(*input.Category) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category cannot be empty")
		}
		product.Category = strings.TrimSpace(*input.Category)
	}
	if input.UnitPrice != nil {
		if input.UnitPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
		}
		product.UnitPrice = *input.UnitPrice
	}
	if input.BranchID != nil {
		if *input.BranchID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "branch id cannot be empty")
		}
		product.BranchID = *input.BranchID
	}
	if input.CounterID != nil {
		product.CounterID = input.CounterID
	}
	if input.BoxNo != nil {
		product.BoxNo = input.BoxNo
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.FindProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, err
	}
	return product, nil
}

func (s *service) ListProducts(ctx context.Context, filter ListFilter) ([]models.Product, error) {
	return s.repo.ListProducts(ctx, filter)
}

// AssignTag binds an RFID tag to a product. An active binding of the same tag
// to another product is released first; the tag resolves to exactly one
// product at any time.
func (s *service) AssignTag(ctx context.Context, tagCode string, productID uuid.UUID) (*models.TagAssignment, error) {
	tagCode = strings.TrimSpace(tagCode)
	if tagCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tag code is required")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	var assignment *models.TagAssignment
	err := s.tenants.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindActiveTag(ctx, tagCode)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if existing != nil {
			if existing.ProductID == productID {
				assignment = existing
				return nil
			}
			if err := repo.ReleaseTag(ctx, tagCode); err != nil {
				return err
			}
		}

		assignment = &models.TagAssignment{
			TagCode:   tagCode,
			ProductID: productID,
			IsActive:  true,
		}
		return repo.CreateTagAssignment(ctx, assignment)
	})
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

func (s *service) ReleaseTag(ctx context.Context, tagCode string) error {
	tagCode = strings.TrimSpace(tagCode)
	if tagCode == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "tag code is required")
	}
	if _, err := s.repo.FindActiveTag(ctx, tagCode); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "tag not assigned")
		}
		return err
	}
	return s.repo.ReleaseTag(ctx, tagCode)
}

func (s *service) ResolveTag(ctx context.Context, tagCode string) (*models.Product, error) {
	tagCode = strings.TrimSpace(tagCode)
	if tagCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tag code is required")
	}
	assignment, err := s.repo.FindActiveTag(ctx, tagCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tag not assigned")
		}
		return nil, err
	}
	return s.GetProduct(ctx, assignment.ProductID)
}
