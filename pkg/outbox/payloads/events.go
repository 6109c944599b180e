package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/auricsoft/jewelstock-backend/pkg/enums"
)

// MovementRecordedEvent is emitted for every ledger entry written.
type MovementRecordedEvent struct {
	MovementID  uuid.UUID          `json:"movement_id"`
	ProductID   uuid.UUID          `json:"product_id"`
	Type        enums.MovementType `json:"type"`
	Quantity    int                `json:"quantity"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	BranchID    uuid.UUID          `json:"branch_id"`
	CounterID   *uuid.UUID         `json:"counter_id,omitempty"`
	MovedAt     time.Time          `json:"moved_at"`
}

// TransferLocation mirrors the source/destination of a transfer on the wire.
type TransferLocation struct {
	BranchID  uuid.UUID  `json:"branch_id"`
	CounterID *uuid.UUID `json:"counter_id,omitempty"`
	BoxNo     *string    `json:"box_no,omitempty"`
}

// TransferCreatedEvent signals a new transfer request with reserved items.
type TransferCreatedEvent struct {
	TransferID  uuid.UUID          `json:"transfer_id"`
	Type        enums.TransferType `json:"type"`
	Source      TransferLocation   `json:"source"`
	Destination TransferLocation   `json:"destination"`
	ItemCount   int                `json:"item_count"`
	RequestedBy uuid.UUID          `json:"requested_by"`
}

// TransferDecisionEvent is emitted when a pending transfer is approved or rejected.
type TransferDecisionEvent struct {
	TransferID uuid.UUID            `json:"transfer_id"`
	Status     enums.TransferStatus `json:"status"`
	DecidedBy  uuid.UUID            `json:"decided_by"`
	Reason     string               `json:"reason,omitempty"`
}

// TransferCompletedEvent carries the totals moved when a transfer lands.
type TransferCompletedEvent struct {
	TransferID  uuid.UUID        `json:"transfer_id"`
	Source      TransferLocation `json:"source"`
	Destination TransferLocation `json:"destination"`
	ItemCount   int              `json:"item_count"`
	TotalQty    int              `json:"total_qty"`
	TotalValue  decimal.Decimal  `json:"total_value"`
	CompletedBy uuid.UUID        `json:"completed_by"`
	CompletedAt time.Time        `json:"completed_at"`
}

// TransferCancelledEvent is emitted when an open transfer is cancelled and its
// reservations released.
type TransferCancelledEvent struct {
	TransferID  uuid.UUID `json:"transfer_id"`
	CancelledBy uuid.UUID `json:"cancelled_by"`
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      string    `json:"reason,omitempty"`
}

// BalanceRecalculatedEvent reports a finished daily balance run for a product.
type BalanceRecalculatedEvent struct {
	ProductID    uuid.UUID       `json:"product_id"`
	BalanceDate  string          `json:"balance_date"`
	ClosingQty   int             `json:"closing_qty"`
	ClosingValue decimal.Decimal `json:"closing_value"`
	CalculatedAt time.Time       `json:"calculated_at"`
}
