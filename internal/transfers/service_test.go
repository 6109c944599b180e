package transfers

import (
	"context"
	"testing"
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
	"github.com/auricsoft/jewelstock-backend/pkg/outbox"
)

type fakeTransferRepo struct {
	transfers map[uuid.UUID]*models.Transfer
	reserved  []uuid.UUID
	locked    []uuid.UUID
	calls     []string
}

func newFakeTransferRepo() *fakeTransferRepo {
	return &fakeTransferRepo{transfers: map[uuid.UUID]*models.Transfer{}}
}

func (f *fakeTransferRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeTransferRepo) Create(ctx context.Context, transfer *models.Transfer) error {
	clone := *transfer
	f.transfers[transfer.ID] = &clone
	return nil
}

func (f *fakeTransferRepo) Update(ctx context.Context, transfer *models.Transfer) error {
	clone := *transfer
	f.transfers[transfer.ID] = &clone
	return nil
}

func (f *fakeTransferRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Transfer, error) {
	if transfer, ok := f.transfers[id]; ok {
		clone := *transfer
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeTransferRepo) List(ctx context.Context, filter ListFilter) ([]models.Transfer, error) {
	var out []models.Transfer
	for _, transfer := range f.transfers {
		out = append(out, *transfer)
	}
	return out, nil
}

func (f *fakeTransferRepo) LockProducts(ctx context.Context, productIDs []uuid.UUID) error {
	f.calls = append(f.calls, "lock")
	f.locked = append(f.locked, productIDs...)
	return nil
}

func (f *fakeTransferRepo) ListReservedProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]uuid.UUID, error) {
	f.calls = append(f.calls, "reserved")
	var out []uuid.UUID
	for _, id := range productIDs {
		for _, reserved := range f.reserved {
			if id == reserved {
				out = append(out, id)
			}
		}
	}
	return out, nil
}

type fakeCatalogRepo struct {
	products  map[uuid.UUID]*models.Product
	relocated map[uuid.UUID]models.Location
	tags      map[string]uuid.UUID
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{
		products:  map[uuid.UUID]*models.Product{},
		relocated: map[uuid.UUID]models.Location{},
		tags:      map[string]uuid.UUID{},
	}
}

func (f *fakeCatalogRepo) WithTx(tx *gorm.DB) catalog.Repository { return f }

func (f *fakeCatalogRepo) CreateProduct(ctx context.Context, product *models.Product) error {
	f.products[product.ID] = product
	return nil
}

func (f *fakeCatalogRepo) UpdateProduct(ctx context.Context, product *models.Product) error {
	f.products[product.ID] = product
	return nil
}

func (f *fakeCatalogRepo) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if product, ok := f.products[id]; ok {
		return product, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCatalogRepo) FindProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCatalogRepo) FindProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var out []models.Product
	for _, id := range ids {
		if product, ok := f.products[id]; ok {
			out = append(out, *product)
		}
	}
	return out, nil
}

func (f *fakeCatalogRepo) ListProducts(ctx context.Context, filter catalog.ListFilter) ([]models.Product, error) {
	return nil, nil
}

func (f *fakeCatalogRepo) RelocateProducts(ctx context.Context, ids []uuid.UUID, location models.Location) error {
	for _, id := range ids {
		f.relocated[id] = location
		if product, ok := f.products[id]; ok {
			product.BranchID = location.BranchID
			product.CounterID = location.CounterID
			product.BoxNo = location.BoxNo
		}
	}
	return nil
}

func (f *fakeCatalogRepo) CreateTagAssignment(ctx context.Context, assignment *models.TagAssignment) error {
	return nil
}

func (f *fakeCatalogRepo) FindActiveTag(ctx context.Context, tagCode string) (*models.TagAssignment, error) {
	if productID, ok := f.tags[tagCode]; ok {
		return &models.TagAssignment{TagCode: tagCode, ProductID: productID, IsActive: true}, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCatalogRepo) ReleaseTag(ctx context.Context, tagCode string) error { return nil }

type fakeLedgerRepo struct {
	entries []*models.MovementEntry
}

func (f *fakeLedgerRepo) WithTx(tx *gorm.DB) movements.Repository { return f }

func (f *fakeLedgerRepo) Create(ctx context.Context, entry *models.MovementEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeLedgerRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.MovementEntry, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLedgerRepo) List(ctx context.Context, filter movements.ListFilter) ([]models.MovementEntry, error) {
	return nil, nil
}

func (f *fakeLedgerRepo) ListByProductBetween(ctx context.Context, productID uuid.UUID, from, to time.Time) ([]models.MovementEntry, error) {
	return nil, nil
}

func (f *fakeLedgerRepo) ListProductIDsWithMovementsBetween(ctx context.Context, from, to time.Time) ([]uuid.UUID, error) {
	return nil, nil
}

type fakeStocks struct {
	quantities map[uuid.UUID]int
}

func (f *fakeStocks) GetProductStock(ctx context.Context, productID uuid.UUID) (*stock.Position, error) {
	qty := f.quantities[productID]
	return &stock.Position{Quantity: qty, Value: decimal.Zero, AsOf: time.Now().UTC()}, nil
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

type fixture struct {
	repo    *fakeTransferRepo
	catalog *fakeCatalogRepo
	ledger  *fakeLedgerRepo
	stocks  *fakeStocks
	emitter *fakeEmitter
	svc     Service

	sourceBranch uuid.UUID
	destBranch   uuid.UUID
	product      *models.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:         newFakeTransferRepo(),
		catalog:      newFakeCatalogRepo(),
		ledger:       &fakeLedgerRepo{},
		stocks:       &fakeStocks{quantities: map[uuid.UUID]int{}},
		emitter:      &fakeEmitter{},
		sourceBranch: uuid.New(),
		destBranch:   uuid.New(),
	}
	f.product = &models.Product{
		ID:        uuid.New(),
		SKU:       "RING-001",
		Name:      "Gold Ring",
		Category:  "rings",
		UnitPrice: decimal.NewFromInt(1000),
		BranchID:  f.sourceBranch,
		IsActive:  true,
	}
	f.catalog.products[f.product.ID] = f.product
	f.stocks.quantities[f.product.ID] = 5

	svc, err := NewService(f.repo, f.catalog, f.ledger, f.stocks, fakeResolver{}, f.emitter, nil)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	f.svc = svc
	return f
}

func (f *fixture) createInput() CreateTransferInput {
	return CreateTransferInput{
		Type:        enums.TransferTypeBranch,
		Source:      models.Location{BranchID: f.sourceBranch},
		Destination: models.Location{BranchID: f.destBranch},
		Items:       []ItemInput{{ProductID: f.product.ID, Quantity: 2}},
		RequestedBy: uuid.New(),
	}
}

func (f *fixture) createTransfer(t *testing.T) *models.Transfer {
	t.Helper()
	transfer, err := f.svc.CreateTransfer(context.Background(), f.createInput())
	if err != nil {
		t.Fatalf("CreateTransfer error: %v", err)
	}
	return transfer
}

func (f *fixture) approve(t *testing.T, transferID uuid.UUID) *models.Transfer {
	t.Helper()
	transfer, err := f.svc.ApproveTransfer(context.Background(), transferID, uuid.New())
	if err != nil {
		t.Fatalf("ApproveTransfer error: %v", err)
	}
	return transfer
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != code {
		t.Fatalf("expected code %s, got %v", code, err)
	}
}

func TestService_CreateTransfer(t *testing.T) {
	f := newFixture(t)

	transfer := f.createTransfer(t)
	if transfer.Status != enums.TransferStatusPending {
		t.Fatalf("expected pending status, got %s", transfer.Status)
	}
	if len(transfer.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(transfer.Items))
	}
	if !transfer.Items[0].UnitPrice.Equal(f.product.UnitPrice) {
		t.Fatalf("expected item price from product, got %s", transfer.Items[0].UnitPrice)
	}
	if len(f.emitter.events) != 1 || f.emitter.events[0].EventType != enums.EventTransferCreated {
		t.Fatalf("expected transfer_created event, got %+v", f.emitter.events)
	}
}

func TestService_CreateTransferValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		mutate func(*CreateTransferInput)
	}{
		{"invalid type", func(in *CreateTransferInput) { in.Type = "teleport" }},
		{"same location", func(in *CreateTransferInput) { in.Destination = in.Source }},
		{"missing requester", func(in *CreateTransferInput) { in.RequestedBy = uuid.Nil }},
		{"no items", func(in *CreateTransferInput) { in.Items = nil }},
		{"zero quantity", func(in *CreateTransferInput) { in.Items[0].Quantity = 0 }},
		{"duplicate product", func(in *CreateTransferInput) {
			in.Items = append(in.Items, ItemInput{ProductID: in.Items[0].ProductID, Quantity: 1})
		}},
		{"too many items", func(in *CreateTransferInput) {
			in.Items = make([]ItemInput, MaxItems+1)
			for i := range in.Items {
				in.Items[i] = ItemInput{ProductID: uuid.New(), Quantity: 1}
			}
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := f.createInput()
			tc.mutate(&input)
			_, err := f.svc.CreateTransfer(context.Background(), input)
			expectCode(t, err, pkgerrors.CodeValidation)
		})
	}
}

func TestService_CreateTransferByTagCode(t *testing.T) {
	f := newFixture(t)
	f.catalog.tags["TAG-0042"] = f.product.ID

	tag := "TAG-0042"
	input := f.createInput()
	input.Items = []ItemInput{{TagCode: &tag, Quantity: 2}}

	transfer, err := f.svc.CreateTransfer(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateTransfer error: %v", err)
	}
	if transfer.Items[0].ProductID != f.product.ID {
		t.Fatalf("expected tag to resolve to product %s, got %s", f.product.ID, transfer.Items[0].ProductID)
	}

	unknown := "TAG-MISSING"
	input = f.createInput()
	input.Items = []ItemInput{{TagCode: &unknown, Quantity: 1}}
	_, err = f.svc.CreateTransfer(context.Background(), input)
	expectCode(t, err, pkgerrors.CodeNotFound)
}

func TestService_CreateTransferLocksBeforeReservationCheck(t *testing.T) {
	f := newFixture(t)

	f.createTransfer(t)

	if len(f.repo.calls) < 2 || f.repo.calls[0] != "lock" || f.repo.calls[1] != "reserved" {
		t.Fatalf("expected product lock before the reservation check, got %v", f.repo.calls)
	}
	if len(f.repo.locked) != 1 || f.repo.locked[0] != f.product.ID {
		t.Fatalf("expected the transfer's product locked, got %v", f.repo.locked)
	}
}

func TestService_CreateTransferReservedConflict(t *testing.T) {
	f := newFixture(t)
	f.repo.reserved = []uuid.UUID{f.product.ID}

	_, err := f.svc.CreateTransfer(context.Background(), f.createInput())
	expectCode(t, err, pkgerrors.CodeConflict)
}

func TestService_CreateTransferAvailability(t *testing.T) {
	f := newFixture(t)

	t.Run("insufficient stock", func(t *testing.T) {
		input := f.createInput()
		input.Items[0].Quantity = 10
		_, err := f.svc.CreateTransfer(context.Background(), input)
		expectCode(t, err, pkgerrors.CodeStateConflict)
	})

	t.Run("product at another branch", func(t *testing.T) {
		input := f.createInput()
		input.Source.BranchID = uuid.New()
		input.Destination.BranchID = f.destBranch
		_, err := f.svc.CreateTransfer(context.Background(), input)
		expectCode(t, err, pkgerrors.CodeStateConflict)
	})

	t.Run("inactive product", func(t *testing.T) {
		f.product.IsActive = false
		defer func() { f.product.IsActive = true }()
		_, err := f.svc.CreateTransfer(context.Background(), f.createInput())
		expectCode(t, err, pkgerrors.CodeStateConflict)
	})

	t.Run("unknown product", func(t *testing.T) {
		input := f.createInput()
		input.Items[0].ProductID = uuid.New()
		_, err := f.svc.CreateTransfer(context.Background(), input)
		expectCode(t, err, pkgerrors.CodeNotFound)
	})
}

func TestService_ApproveTransfer(t *testing.T) {
	f := newFixture(t)
	created := f.createTransfer(t)

	approved := f.approve(t, created.ID)
	if approved.Status != enums.TransferStatusInTransit {
		t.Fatalf("expected in_transit, got %s", approved.Status)
	}
	if approved.ApprovedBy == nil || approved.ApprovedAt == nil {
		t.Fatal("expected approver and timestamp recorded")
	}

	// In transit cannot be approved again.
	_, err := f.svc.ApproveTransfer(context.Background(), created.ID, uuid.New())
	expectCode(t, err, pkgerrors.CodeStateConflict)
}

func TestService_RejectTransfer(t *testing.T) {
	f := newFixture(t)
	created := f.createTransfer(t)

	rejected, err := f.svc.RejectTransfer(context.Background(), created.ID, uuid.New(), "wrong counter")
	if err != nil {
		t.Fatalf("RejectTransfer error: %v", err)
	}
	if rejected.Status != enums.TransferStatusRejected {
		t.Fatalf("expected rejected, got %s", rejected.Status)
	}
	if rejected.RejectedBy == nil || rejected.RejectedAt == nil {
		t.Fatal("expected rejecter and timestamp recorded")
	}
	if len(f.ledger.entries) != 0 {
		t.Fatal("rejection must not write ledger entries")
	}

	// Rejection only applies to pending transfers.
	inTransit := f.approve(t, f.createTransfer(t).ID)
	_, err = f.svc.RejectTransfer(context.Background(), inTransit.ID, uuid.New(), "")
	expectCode(t, err, pkgerrors.CodeStateConflict)
}

func TestService_CompleteTransfer(t *testing.T) {
	f := newFixture(t)
	created := f.createTransfer(t)

	// Pending cannot complete; it has to pass through approval.
	_, err := f.svc.CompleteTransfer(context.Background(), created.ID, uuid.New())
	expectCode(t, err, pkgerrors.CodeStateConflict)

	f.approve(t, created.ID)
	completed, err := f.svc.CompleteTransfer(context.Background(), created.ID, uuid.New())
	if err != nil {
		t.Fatalf("CompleteTransfer error: %v", err)
	}
	if completed.Status != enums.TransferStatusCompleted {
		t.Fatalf("expected completed, got %s", completed.Status)
	}

	if len(f.ledger.entries) != 2 {
		t.Fatalf("expected paired ledger entries, got %d", len(f.ledger.entries))
	}
	out, in := f.ledger.entries[0], f.ledger.entries[1]
	if out.Type != enums.MovementTypeTransferOut || in.Type != enums.MovementTypeTransferIn {
		t.Fatalf("unexpected entry types: %s / %s", out.Type, in.Type)
	}
	if out.BranchID != f.sourceBranch || in.BranchID != f.destBranch {
		t.Fatal("entries must carry source and destination branches")
	}
	if out.Quantity != in.Quantity || !out.TotalAmount.Equal(in.TotalAmount) {
		t.Fatal("paired entries must mirror quantity and amount")
	}
	if out.ReferenceNo == nil || *out.ReferenceNo != created.ID.String() {
		t.Fatal("entries must reference the transfer")
	}

	location, ok := f.catalog.relocated[f.product.ID]
	if !ok || location.BranchID != f.destBranch {
		t.Fatalf("expected product relocated to destination, got %+v", location)
	}

	last := f.emitter.events[len(f.emitter.events)-1]
	if last.EventType != enums.EventTransferCompleted {
		t.Fatalf("expected transfer_completed event, got %s", last.EventType)
	}

	// Terminal rows take no further transitions.
	_, err = f.svc.CancelTransfer(context.Background(), created.ID, uuid.New(), "")
	expectCode(t, err, pkgerrors.CodeStateConflict)
}

func TestService_CancelTransfer(t *testing.T) {
	f := newFixture(t)

	pending := f.createTransfer(t)
	cancelled, err := f.svc.CancelTransfer(context.Background(), pending.ID, uuid.New(), "requested by branch")
	if err != nil {
		t.Fatalf("CancelTransfer error: %v", err)
	}
	if cancelled.Status != enums.TransferStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	inTransit := f.approve(t, f.createTransfer(t).ID)
	if _, err := f.svc.CancelTransfer(context.Background(), inTransit.ID, uuid.New(), ""); err != nil {
		t.Fatalf("cancel in transit error: %v", err)
	}
	if len(f.ledger.entries) != 0 {
		t.Fatal("cancellation must not write ledger entries")
	}
}

func TestService_GetTransferNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetTransfer(context.Background(), uuid.New())
	expectCode(t, err, pkgerrors.CodeNotFound)
}
