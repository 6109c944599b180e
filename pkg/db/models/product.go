package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog record for one tracked jewelry item type. Branch,
// counter and box describe where its pieces currently sit; the movement
// ledger is the authority on how they got there.
type Product struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU       string          `gorm:"column:sku;not null;uniqueIndex"`
	Name      string          `gorm:"column:name;not null"`
	Category  string          `gorm:"column:category;not null;index"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null"`
	BranchID  uuid.UUID       `gorm:"column:branch_id;type:uuid;not null;index"`
	CounterID *uuid.UUID      `gorm:"column:counter_id;type:uuid;index"`
	BoxNo     *string         `gorm:"column:box_no"`
	IsActive  bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TagAssignment maps a physical RFID tag code to the product it currently
// identifies. A tag is reassigned over time; only the active row resolves.
type TagAssignment struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TagCode    string     `gorm:"column:tag_code;not null;index"`
	ProductID  uuid.UUID  `gorm:"column:product_id;type:uuid;not null;index"`
	IsActive   bool       `gorm:"column:is_active;not null;default:true"`
	AssignedAt time.Time  `gorm:"column:assigned_at;autoCreateTime"`
	ReleasedAt *time.Time `gorm:"column:released_at"`
}
