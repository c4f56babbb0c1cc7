package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zedpos/zedpos-backend/pkg/enums"
)

// Sale is one completed point-of-sale transaction. Financial columns are
// append-only; only the sync fields may change after creation.
type Sale struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	TotalAmount    decimal.Decimal  `gorm:"column:total_amount;type:numeric(12,2);not null"`
	TaxAmount      decimal.Decimal  `gorm:"column:tax_amount;type:numeric(12,2);not null"`
	DiscountAmount decimal.Decimal  `gorm:"column:discount_amount;type:numeric(12,2);not null;default:0"`
	SyncStatus     enums.SyncStatus `gorm:"column:zra_sync_status;type:text;not null;default:'pending'"`
	ZRAInvoiceID   *string          `gorm:"column:zra_invoice_id;index"`
	ZRAResponseLog *string          `gorm:"column:zra_response_log"`
	Items          []SaleItem       `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
}

func (s *Sale) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
