package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DailyBalanceSnapshot is the derived per-product per-day balance. It is a
// cache over the movement ledger: recomputation overwrites it wholesale and
// must reproduce identical numbers for an unchanged ledger.
type DailyBalanceSnapshot struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID   uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_daily_balance_snapshots_product_date"`
	BalanceDate time.Time `gorm:"column:balance_date;type:date;not null;uniqueIndex:ux_daily_balance_snapshots_product_date"`

	OpeningQty   int             `gorm:"column:opening_qty;not null"`
	OpeningValue decimal.Decimal `gorm:"column:opening_value;type:numeric(14,2);not null"`

	AddedQty          int             `gorm:"column:added_qty;not null"`
	AddedValue        decimal.Decimal `gorm:"column:added_value;type:numeric(14,2);not null"`
	SoldQty           int             `gorm:"column:sold_qty;not null"`
	SoldValue         decimal.Decimal `gorm:"column:sold_value;type:numeric(14,2);not null"`
	ReturnedQty       int             `gorm:"column:returned_qty;not null"`
	ReturnedValue     decimal.Decimal `gorm:"column:returned_value;type:numeric(14,2);not null"`
	TransferredInQty  int             `gorm:"column:transferred_in_qty;not null"`
	TransferredInVal  decimal.Decimal `gorm:"column:transferred_in_value;type:numeric(14,2);not null"`
	TransferredOutQty int             `gorm:"column:transferred_out_qty;not null"`
	TransferredOutVal decimal.Decimal `gorm:"column:transferred_out_value;type:numeric(14,2);not null"`

	ClosingQty   int             `gorm:"column:closing_qty;not null"`
	ClosingValue decimal.Decimal `gorm:"column:closing_value;type:numeric(14,2);not null"`

	CalculatedAt time.Time `gorm:"column:calculated_at;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}
