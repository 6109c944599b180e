package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/auricsoft/jewelstock-backend/pkg/enums"
)

// MovementEntry is one immutable row of the inventory movement ledger.
// Entries are never updated or deleted; corrections are recorded as new
// entries and balances re-derived.
type MovementEntry struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID     uuid.UUID          `gorm:"column:product_id;type:uuid;not null;index:idx_movement_entries_product_moved"`
	TagCode       *string            `gorm:"column:tag_code"`
	Type          enums.MovementType `gorm:"column:type;type:movement_type_enum;not null"`
	Quantity      int                `gorm:"column:quantity;not null"`
	UnitPrice     decimal.Decimal    `gorm:"column:unit_price;type:numeric(14,2);not null"`
	TotalAmount   decimal.Decimal    `gorm:"column:total_amount;type:numeric(14,2);not null"`
	BranchID      uuid.UUID          `gorm:"column:branch_id;type:uuid;not null;index"`
	CounterID     *uuid.UUID         `gorm:"column:counter_id;type:uuid;index"`
	Category      string             `gorm:"column:category;not null;index"`
	ReferenceNo   *string            `gorm:"column:reference_no"`
	ReferenceType *string            `gorm:"column:reference_type"`
	Remarks       *string            `gorm:"column:remarks"`
	MovedAt       time.Time          `gorm:"column:moved_at;not null;index:idx_movement_entries_product_moved"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
}
