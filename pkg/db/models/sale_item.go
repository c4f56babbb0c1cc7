package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SaleItem is one product line within a sale. PriceAtSale snapshots the
// product price at transaction time and never tracks later price edits.
type SaleItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	SaleID      uuid.UUID       `gorm:"column:sale_id;type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	Quantity    int             `gorm:"column:quantity;not null"`
	PriceAtSale decimal.Decimal `gorm:"column:price_at_sale;type:numeric(12,2);not null"`
}

func (i *SaleItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
