package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/auricsoft/jewelstock-backend/pkg/enums"
)

// Location identifies where stock sits: a branch, optionally narrowed to a
// counter and a storage box.
type Location struct {
	BranchID  uuid.UUID  `gorm:"column:branch_id;type:uuid;not null" json:"branch_id"`
	CounterID *uuid.UUID `gorm:"column:counter_id;type:uuid" json:"counter_id,omitempty"`
	BoxNo     *string    `gorm:"column:box_no" json:"box_no,omitempty"`
}

// Equal reports whether two locations are the same place.
func (l Location) Equal(other Location) bool {
	if l.BranchID != other.BranchID {
		return false
	}
	if !uuidPtrEqual(l.CounterID, other.CounterID) {
		return false
	}
	return stringPtrEqual(l.BoxNo, other.BoxNo)
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Transfer is a request to relocate items between locations. Status moves
// only through the documented transitions; terminal rows are immutable.
type Transfer struct {
	ID     uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Type   enums.TransferType   `gorm:"column:type;type:transfer_type_enum;not null"`
	Status enums.TransferStatus `gorm:"column:status;type:transfer_status_enum;not null;index"`

	Source      Location `gorm:"embedded;embeddedPrefix:source_"`
	Destination Location `gorm:"embedded;embeddedPrefix:dest_"`

	RequestedBy uuid.UUID  `gorm:"column:requested_by;type:uuid;not null"`
	ApprovedBy  *uuid.UUID `gorm:"column:approved_by;type:uuid"`
	RejectedBy  *uuid.UUID `gorm:"column:rejected_by;type:uuid"`
	CompletedBy *uuid.UUID `gorm:"column:completed_by;type:uuid"`
	CancelledBy *uuid.UUID `gorm:"column:cancelled_by;type:uuid"`
	Reason      *string    `gorm:"column:reason"`

	RequestedAt time.Time  `gorm:"column:requested_at;not null"`
	ApprovedAt  *time.Time `gorm:"column:approved_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`
	RejectedAt  *time.Time `gorm:"column:rejected_at"`

	Items []TransferItem `gorm:"foreignKey:TransferID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TransferItem is one product line inside a transfer. While the parent
// transfer is open the item is reserved and cannot join another transfer.
type TransferItem struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TransferID uuid.UUID       `gorm:"column:transfer_id;type:uuid;not null;index"`
	ProductID  uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	TagCode    *string         `gorm:"column:tag_code"`
	Quantity   int             `gorm:"column:quantity;not null"`
	UnitPrice  decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}
