package movements

import (
	"context"
	"errors"
	"fmt"
	"strings"
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
)

// MaxBatchSize caps a single batch recording call.
const MaxBatchSize = 100

// Service records and queries immutable inventory movements.
type Service interface {
	RecordMovement(ctx context.Context, input RecordMovementInput) (*models.MovementEntry, error)
	RecordMovements(ctx context.Context, inputs []RecordMovementInput) (*BatchResult, error)
	ListMovements(ctx context.Context, filter ListFilter) ([]models.MovementEntry, error)
}

// RecordMovementInput captures the data one ledger entry requires.
type RecordMovementInput struct {
	ProductID     uuid.UUID
	TagCode       *string
	Type          enums.MovementType
	Quantity      int
	UnitPrice     *decimal.Decimal
	ReferenceNo   *string
	ReferenceType *string
	Remarks       *string
	MovedAt       time.Time
}

// BatchResult reports a batch recording outcome. Entries that validated are
// recorded even when siblings in the same batch fail.
type BatchResult struct {
	Recorded []*models.MovementEntry
	Failed   int
}

type productReader interface {
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindActiveTag(ctx context.Context, tagCode string) (*models.TagAssignment, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo     Repository
	products productReader
	tenants  tenant.Resolver
	events   eventEmitter
	stats    *metrics.InventoryMetrics
}

// NewService wires a movement service with its dependencies. Metrics are
// optional.
func NewService(repo Repository, products productReader, tenants tenant.Resolver, events eventEmitter, stats *metrics.InventoryMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("movement repository required")
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
		products: products,
		tenants:  tenants,
		events:   events,
		stats:    stats,
	}, nil
}

// RecordMovement appends one entry to the ledger. The entry and its outbox
// event commit atomically.
func (s *service) RecordMovement(ctx context.Context, input RecordMovementInput) (*models.MovementEntry, error) {
	entry, err := s.buildEntry(ctx, input)
	if err != nil {
		return nil, err
	}

	err = s.tenants.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, entry); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventMovementRecorded,
			AggregateType: enums.AggregateMovementEntry,
			AggregateID:   entry.ID,
			Version:       1,
			OccurredAt:    entry.MovedAt,
			Data: payloads.MovementRecordedEvent{
				MovementID:  entry.ID,
				ProductID:   entry.ProductID,
				Type:        entry.Type,
				Quantity:    entry.Quantity,
				TotalAmount: entry.TotalAmount,
				BranchID:    entry.BranchID,
				CounterID:   entry.CounterID,
				MovedAt:     entry.MovedAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.stats.IncMovementRecorded(entry.Type.String())
	return entry, nil
}

// RecordMovements records a batch entry by entry. A failing entry does not
// abort the rest; failures are aggregated into the returned error.
func (s *service) RecordMovements(ctx context.Context, inputs []RecordMovementInput) (*BatchResult, error) {
	if len(inputs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch is empty")
	}
	if len(inputs) > MaxBatchSize {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch exceeds maximum size").
			WithDetails(map[string]any{"max": MaxBatchSize, "got": len(inputs)})
	}

	result := &BatchResult{}
	var errs error
	for i, input := range inputs {
		entry, err := s.RecordMovement(ctx, input)
		if err != nil {
			result.Failed++
			errs = multierr.Append(errs, fmt.Errorf("entry %d: %w", i, err))
			continue
		}
		result.Recorded = append(result.Recorded, entry)
	}
	return result, errs
}

func (s *service) ListMovements(ctx context.Context, filter ListFilter) ([]models.MovementEntry, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "time range is inverted")
	}
	return s.repo.List(ctx, filter)
}

// buildEntry validates the input and snapshots product location and pricing
// into the immutable row.
func (s *service) buildEntry(ctx context.Context, input RecordMovementInput) (*models.MovementEntry, error) {
	if input.ProductID == uuid.Nil {
		// A scan from the handheld carries only the tag code.
		code := ""
		if input.TagCode != nil {
			code = strings.TrimSpace(*input.TagCode)
		}
		if code == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id or tag code is required")
		}
		assignment, err := s.products.FindActiveTag(ctx, code)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("tag %q is not assigned to a product", code))
			}
			return nil, err
		}
		input.ProductID = assignment.ProductID
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid movement type %q", input.Type))
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.products.FindProductByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, err
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "product is inactive")
	}

	unitPrice := product.UnitPrice
	if input.UnitPrice != nil {
		if input.UnitPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
		}
		unitPrice = *input.UnitPrice
	}

	movedAt := input.MovedAt
	if movedAt.IsZero() {
		movedAt = time.Now().UTC()
	}

	return &models.MovementEntry{
		ID:            uuid.New(),
		ProductID:     product.ID,
		TagCode:       input.TagCode,
		Type:          input.Type,
		Quantity:      input.Quantity,
		UnitPrice:     unitPrice,
		TotalAmount:   unitPrice.Mul(decimal.NewFromInt(int64(input.Quantity))),
		BranchID:      product.BranchID,
		CounterID:     product.CounterID,
		Category:      product.Category,
		ReferenceNo:   input.ReferenceNo,
		ReferenceType: input.ReferenceType,
		Remarks:       input.Remarks,
		MovedAt:       movedAt,
	}, nil
}
