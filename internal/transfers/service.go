package transfers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/auricsoft/jewelstock-backend/internal/catalog"
	"github.com/auricsoft/jewelstock-backend/internal/movements"
	"github.com/auricsoft/jewelstock-backend/internal/stock"
	"github.com/auricsoft/jewelstock-backend/pkg/db/models"
	"github.com/auricsoft/jewelstock-backend/pkg/enums"
	pkgerrors "github.com/auricsoft/jewelstock-backend/pkg/errors"
	"github.com/auricsoft/jewelstock-backend/pkg/metrics"
	"github.com/auricsoft/jewelstock-backend/pkg/outbox"
	"github.com/auricsoft/jewelstock-backend/pkg/outbox/payloads"
	"github.com/auricsoft/jewelstock-backend/pkg/tenant"
)

// MaxItems caps the item lines of a single transfer.
const MaxItems = 100

// Service drives the transfer lifecycle: pending → in_transit → completed,
// with rejection and cancellation as the exits. Terminal transfers are
// immutable.
type Service interface {
	CreateTransfer(ctx context.Context, input CreateTransferInput) (*models.Transfer, error)
	ApproveTransfer(ctx context.Context, transferID, approvedBy uuid.UUID) (*models.Transfer, error)
	RejectTransfer(ctx context.Context, transferID, rejectedBy uuid.UUID, reason string) (*models.Transfer, error)
	CompleteTransfer(ctx context.Context, transferID, completedBy uuid.UUID) (*models.Transfer, error)
	CancelTransfer(ctx context.Context, transferID, cancelledBy uuid.UUID, reason string) (*models.Transfer, error)
	GetTransfer(ctx context.Context, transferID uuid.UUID) (*models.Transfer, error)
	ListTransfers(ctx context.Context, filter ListFilter) ([]models.Transfer, error)
}

// CreateTransferInput holds the validated payload to open a transfer.
type CreateTransferInput struct {
	Type        enums.TransferType
	Source      models.Location
	Destination models.Location
	Items       []ItemInput
	RequestedBy uuid.UUID
	Reason      *string
}

// ItemInput is one requested product line.
type ItemInput struct {
	ProductID uuid.UUID
	TagCode   *string
	Quantity  int
}

type stockReader interface {
	GetProductStock(ctx context.Context, productID uuid.UUID) (*stock.Position, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo     Repository
	products catalog.Repository
	ledger   movements.Repository
	stocks   stockReader
	tenants  tenant.Resolver
	events   eventEmitter
	stats    *metrics.InventoryMetrics
}

// NewService wires a transfer service with its dependencies. Metrics are
// optional.
func NewService(
	repo Repository,
	products catalog.Repository,
	ledger movements.Repository,
	stocks stockReader,
	tenants tenant.Resolver,
	events eventEmitter,
	stats *metrics.InventoryMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("transfer repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("movement repository required")
	}
	if stocks == nil {
		return nil, fmt.Errorf("stock reader required")
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
		ledger:   ledger,
		stocks:   stocks,
		tenants:  tenants,
		events:   events,
		stats:    stats,
	}, nil
}

// CreateTransfer validates the request, reserves the items and opens the
// transfer in pending state.
func (s *service) CreateTransfer(ctx context.Context, input CreateTransferInput) (*models.Transfer, error) {
	if err := s.resolveItemTags(ctx, input.Items); err != nil {
		return nil, err
	}
	if err := s.validateCreate(input); err != nil {
		return nil, err
	}

	productIDs := make([]uuid.UUID, 0, len(input.Items))
	for _, item := range input.Items {
		productIDs = append(productIDs, item.ProductID)
	}

	productsByID, err := s.loadProducts(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	if err := s.checkAvailability(ctx, input, productsByID); err != nil {
		return nil, err
	}

	transfer := &models.Transfer{
		ID:          uuid.New(),
		Type:        input.Type,
		Status:      enums.TransferStatusPending,
		Source:      input.Source,
		Destination: input.Destination,
		RequestedBy: input.RequestedBy,
		Reason:      input.Reason,
		RequestedAt: time.Now().UTC(),
	}
	for _, item := range input.Items {
		transfer.Items = append(transfer.Items, models.TransferItem{
			ID:         uuid.New(),
			TransferID: transfer.ID,
			ProductID:  item.ProductID,
			TagCode:    item.TagCode,
			Quantity:   item.Quantity,
			UnitPrice:  productsByID[item.ProductID].UnitPrice,
		})
	}

	err = s.tenants.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		// Plain read committed would let two concurrent requests both
		// pass the reservation check. Locking the product rows first
		// serializes them; the loser then sees the winner's transfer.
		if err := repo.LockProducts(ctx, productIDs); err != nil {
			return err
		}
		reserved, err := repo.ListReservedProductIDs(ctx, productIDs)
		if err != nil {
			return err
		}
		if len(reserved) > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "items already reserved by an open transfer").
				WithDetails(map[string]any{"product_ids": reserved})
		}

		if err := repo.Create(ctx, transfer); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTransferCreated,
			AggregateType: enums.AggregateTransfer,
			AggregateID:   transfer.ID,
			Version:       1,
			OccurredAt:    transfer.RequestedAt,
			Data: payloads.TransferCreatedEvent{
				TransferID:  transfer.ID,
				Type:        transfer.Type,
				Source:      wireLocation(transfer.Source),
				Destination: wireLocation(transfer.Destination),
				ItemCount:   len(transfer.Items),
				RequestedBy: transfer.RequestedBy,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.stats.IncTransferCreated(string(transfer.Type))
	return transfer, nil
}

// ApproveTransfer moves a pending transfer into transit.
func (s *service) ApproveTransfer(ctx context.Context, transferID, approvedBy uuid.UUID) (*models.Transfer, error) {
	if approvedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "approver id is required")
	}
	now := time.Now().UTC()
	return s.transition(ctx, transferID, enums.TransferStatusInTransit, func(transfer *models.Transfer) outbox.DomainEvent {
		transfer.ApprovedBy = &approvedBy
		transfer.ApprovedAt = &now
		return outbox.DomainEvent{
			EventType:     enums.EventTransferApproved,
			AggregateType: enums.AggregateTransfer,
			AggregateID:   transfer.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.TransferDecisionEvent{
				TransferID: transfer.ID,
				Status:     enums.TransferStatusInTransit,
				DecidedBy:  approvedBy,
			},
		}
	})
}

// RejectTransfer closes a pending transfer and releases its reservations.
// No movement is recorded.
func (s *service) RejectTransfer(ctx context.Context, transferID, rejectedBy uuid.UUID, reason string) (*models.Transfer, error) {
	if rejectedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejecter id is required")
	}
	now := time.Now().UTC()
	transfer, err := s.transition(ctx, transferID, enums.TransferStatusRejected, func(transfer *models.Transfer) outbox.DomainEvent {
		transfer.RejectedBy = &rejectedBy
		transfer.RejectedAt = &now
		if reason != "" {
			transfer.Reason = &reason
		}
		return outbox.DomainEvent{
			EventType:     enums.EventTransferRejected,
			AggregateType: enums.AggregateTransfer,
			AggregateID:   transfer.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.TransferDecisionEvent{
				TransferID: transfer.ID,
				Status:     enums.TransferStatusRejected,
				DecidedBy:  rejectedBy,
				Reason:     reason,
			},
		}
	})
	if err != nil {
		return nil, err
	}
	s.stats.IncTransferClosed(string(enums.TransferStatusRejected))
	return transfer, nil
}

// CompleteTransfer lands an in-transit transfer: it writes the paired
// transfer_out/transfer_in ledger entries, relocates the products and marks
// the transfer completed, all in one transaction. Any failure rolls the whole
// completion back, leaving the transfer in transit for a retry.
func (s *service) CompleteTransfer(ctx context.Context, transferID, completedBy uuid.UUID) (*models.Transfer, error) {
	if transferID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer id is required")
	}
	if completedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "completer id is required")
	}

	var transfer *models.Transfer
	now := time.Now().UTC()
	err := s.tenants.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		transfer, err = repo.FindByID(ctx, transferID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "transfer not found")
			}
			return err
		}
		if !transfer.Status.CanTransitionTo(enums.TransferStatusCompleted) {
			return transitionError(transfer.Status, enums.TransferStatusCompleted)
		}

		productsByID, err := s.loadProductsTx(ctx, tx, transfer)
		if err != nil {
			return err
		}

		ledger := s.ledger.WithTx(tx)
		totalQty := 0
		totalValue := decimal.Zero
		productIDs := make([]uuid.UUID, 0, len(transfer.Items))
		for _, item := range transfer.Items {
			product := productsByID[item.ProductID]
			out, in := pairedEntries(transfer, item, product, now)
			if err := ledger.Create(ctx, out); err != nil {
				return err
			}
			if err := ledger.Create(ctx, in); err != nil {
				return err
			}
			totalQty += item.Quantity
			totalValue = totalValue.Add(out.TotalAmount)
			productIDs = append(productIDs, item.ProductID)
		}

		if err := s.products.WithTx(tx).RelocateProducts(ctx, productIDs, transfer.Destination); err != nil {
			return err
		}

		transfer.Status = enums.TransferStatusCompleted
		transfer.CompletedBy = &completedBy
		transfer.CompletedAt = &now
		if err := repo.Update(ctx, transfer); err != nil {
			return err
		}

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTransferCompleted,
			AggregateType: enums.AggregateTransfer,
			AggregateID:   transfer.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.TransferCompletedEvent{
				TransferID:  transfer.ID,
				Source:      wireLocation(transfer.Source),
				Destination: wireLocation(transfer.Destination),
				ItemCount:   len(transfer.Items),
				TotalQty:    totalQty,
				TotalValue:  totalValue,
				CompletedBy: completedBy,
				CompletedAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.stats.IncTransferClosed(string(enums.TransferStatusCompleted))
	return transfer, nil
}

// CancelTransfer closes an open transfer and releases its reservations.
// No movement is recorded.
func (s *service) CancelTransfer(ctx context.Context, transferID, cancelledBy uuid.UUID, reason string) (*models.Transfer, error) {
	if cancelledBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "canceller id is required")
	}
	now := time.Now().UTC()
	transfer, err := s.transition(ctx, transferID, enums.TransferStatusCancelled, func(transfer *models.Transfer) outbox.DomainEvent {
		transfer.CancelledBy = &cancelledBy
		transfer.CancelledAt = &now
		if reason != "" {
			transfer.Reason = &reason
		}
		return outbox.DomainEvent{
			EventType:     enums.EventTransferCancelled,
			AggregateType: enums.AggregateTransfer,
			AggregateID:   transfer.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.TransferCancelledEvent{
				TransferID:  transfer.ID,
				CancelledBy: cancelledBy,
				CancelledAt: now,
				Reason:      reason,
			},
		}
	})
	if err != nil {
		return nil, err
	}
	s.stats.IncTransferClosed(string(enums.TransferStatusCancelled))
	return transfer, nil
}

func (s *service) GetTransfer(ctx context.Context, transferID uuid.UUID) (*models.Transfer, error) {
	if transferID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer id is required")
	}
	transfer, err := s.repo.FindByID(ctx, transferID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transfer not found")
		}
		return nil, err
	}
	return transfer, nil
}

func (s *service) ListTransfers(ctx context.Context, filter ListFilter) ([]models.Transfer, error) {
	return s.repo.List(ctx, filter)
}

// transition loads the transfer, checks the state machine and applies the
// mutation plus its outbox event atomically.
func (s *service) transition(
	ctx context.Context,
	transferID uuid.UUID,
	target enums.TransferStatus,
	mutate func(*models.Transfer) outbox.DomainEvent,
) (*models.Transfer, error) {
	if transferID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer id is required")
	}

	var transfer *models.Transfer
	err := s.tenants.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		transfer, err = repo.FindByID(ctx, transferID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "transfer not found")
			}
			return err
		}
		if !transfer.Status.CanTransitionTo(target) {
			return transitionError(transfer.Status, target)
		}

		transfer.Status = target
		event := mutate(transfer)
		if err := repo.Update(ctx, transfer); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return transfer, nil
}

// resolveItemTags fills product ids for items referenced only by tag code.
func (s *service) resolveItemTags(ctx context.Context, items []ItemInput) error {
	for i := range items {
		if items[i].ProductID != uuid.Nil || items[i].TagCode == nil {
			continue
		}
		code := strings.TrimSpace(*items[i].TagCode)
		if code == "" {
			continue
		}
		assignment, err := s.products.FindActiveTag(ctx, code)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("tag %q is not assigned to a product", code))
			}
			return err
		}
		items[i].ProductID = assignment.ProductID
	}
	return nil
}

func (s *service) validateCreate(input CreateTransferInput) error {
	if !input.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transfer type %q", input.Type))
	}
	if input.Source.BranchID == uuid.Nil || input.Destination.BranchID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "source and destination branches are required")
	}
	if input.Source.Equal(input.Destination) {
		return pkgerrors.New(pkgerrors.CodeValidation, "source and destination must differ")
	}
	if input.RequestedBy == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "requester id is required")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "transfer has no items")
	}
	if len(input.Items) > MaxItems {
		return pkgerrors.New(pkgerrors.CodeValidation, "transfer exceeds maximum item count").
			WithDetails(map[string]any{"max": MaxItems, "got": len(input.Items)})
	}

	seen := make(map[uuid.UUID]struct{}, len(input.Items))
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "item product id or tag code is required")
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		if _, dup := seen[item.ProductID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate product in transfer items").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		seen[item.ProductID] = struct{}{}
	}
	return nil
}

func (s *service) loadProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	products, err := s.products.FindProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	return indexProducts(products, productIDs)
}

func (s *service) loadProductsTx(ctx context.Context, tx *gorm.DB, transfer *models.Transfer) (map[uuid.UUID]models.Product, error) {
	productIDs := make([]uuid.UUID, 0, len(transfer.Items))
	for _, item := range transfer.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	products, err := s.products.WithTx(tx).FindProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	return indexProducts(products, productIDs)
}

func indexProducts(products []models.Product, wanted []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}
	for _, id := range wanted {
		if _, ok := byID[id]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": id})
		}
	}
	return byID, nil
}

// checkAvailability verifies every item sits at the source location with
// enough stock to move.
func (s *service) checkAvailability(ctx context.Context, input CreateTransferInput, productsByID map[uuid.UUID]models.Product) error {
	for _, item := range input.Items {
		product := productsByID[item.ProductID]
		if !product.IsActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "product is inactive").
				WithDetails(map[string]any{"product_id": product.ID})
		}
		if product.BranchID != input.Source.BranchID {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "product is not at the source branch").
				WithDetails(map[string]any{"product_id": product.ID})
		}
		if input.Source.CounterID != nil && !uuidPtrEqual(product.CounterID, input.Source.CounterID) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "product is not at the source counter").
				WithDetails(map[string]any{"product_id": product.ID})
		}

		position, err := s.stocks.GetProductStock(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if position.Quantity < item.Quantity {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock at source").
				WithDetails(map[string]any{
					"product_id": product.ID,
					"available":  position.Quantity,
					"requested":  item.Quantity,
				})
		}
	}
	return nil
}

// pairedEntries builds the transfer_out entry at the source and the matching
// transfer_in entry at the destination.
func pairedEntries(transfer *models.Transfer, item models.TransferItem, product models.Product, movedAt time.Time) (*models.MovementEntry, *models.MovementEntry) {
	total := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
	reference := transfer.ID.String()
	referenceType := "transfer"

	out := &models.MovementEntry{
		ID:            uuid.New(),
		ProductID:     item.ProductID,
		TagCode:       item.TagCode,
		Type:          enums.MovementTypeTransferOut,
		Quantity:      item.Quantity,
		UnitPrice:     item.UnitPrice,
		TotalAmount:   total,
		BranchID:      transfer.Source.BranchID,
		CounterID:     transfer.Source.CounterID,
		Category:      product.Category,
		ReferenceNo:   &reference,
		ReferenceType: &referenceType,
		MovedAt:       movedAt,
	}
	in := &models.MovementEntry{
		ID:            uuid.New(),
		ProductID:     item.ProductID,
		TagCode:       item.TagCode,
		Type:          enums.MovementTypeTransferIn,
		Quantity:      item.Quantity,
		UnitPrice:     item.UnitPrice,
		TotalAmount:   total,
		BranchID:      transfer.Destination.BranchID,
		CounterID:     transfer.Destination.CounterID,
		Category:      product.Category,
		ReferenceNo:   &reference,
		ReferenceType: &referenceType,
		MovedAt:       movedAt,
	}
	return out, in
}

func transitionError(from, to enums.TransferStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move transfer from %s to %s", from, to))
}

func wireLocation(location models.Location) payloads.TransferLocation {
	return payloads.TransferLocation{
		BranchID:  location.BranchID,
		CounterID: location.CounterID,
		BoxNo:     location.BoxNo,
	}
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
