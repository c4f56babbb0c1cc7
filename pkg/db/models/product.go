package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a sellable catalog entry with live stock.
type Product struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name          string          `gorm:"column:name;not null;uniqueIndex:products_name_key"`
	Description   *string         `gorm:"column:description"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	StockQuantity int             `gorm:"column:stock_quantity;not null;default:0"`
	SaleItems     []SaleItem      `gorm:"foreignKey:ProductID"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key client-side so sqlite runs behave
// like postgres deployments.
func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
