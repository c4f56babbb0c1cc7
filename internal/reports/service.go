package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zedpos/zedpos-backend/pkg/db/models"
)

// DailySummary aggregates the sales recorded on one calendar day (UTC).
type DailySummary struct {
	Date             string          `json:"date"`
	TotalSales       decimal.Decimal `json:"total_sales"`
	TotalTax         decimal.Decimal `json:"total_tax"`
	TransactionCount int64           `json:"transaction_count"`
}

// TaxSummary is the all-time collected tax total.
type TaxSummary struct {
	TotalTaxCollected decimal.Decimal `json:"total_tax_collected"`
}

// Service answers reporting queries over the sales the workflow produced.
type Service interface {
	DailySummary(ctx context.Context, day time.Time) (*DailySummary, error)
	TaxSummary(ctx context.Context) (*TaxSummary, error)
}

type service struct {
	db *gorm.DB
}

// NewService builds a reports service bound to the provided DB.
func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	return &service{db: db}, nil
}

func (s *service) DailySummary(ctx context.Context, day time.Time) (*DailySummary, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	var row struct {
		TotalSales       decimal.NullDecimal
		TotalTax         decimal.NullDecimal
		TransactionCount int64
	}
	err := s.db.WithContext(ctx).
		Model(&models.Sale{}).
		Select("SUM(total_amount) AS total_sales, SUM(tax_amount) AS total_tax, COUNT(id) AS transaction_count").
		Where("created_at >= ? AND created_at < ?", start, end).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	return &DailySummary{
		Date:             start.Format("2006-01-02"),
		TotalSales:       orZero(row.TotalSales),
		TotalTax:         orZero(row.TotalTax),
		TransactionCount: row.TransactionCount,
	}, nil
}

func (s *service) TaxSummary(ctx context.Context) (*TaxSummary, error) {
	var row struct {
		TotalTax decimal.NullDecimal
	}
	err := s.db.WithContext(ctx).
		Model(&models.Sale{}).
		Select("SUM(tax_amount) AS total_tax").
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &TaxSummary{TotalTaxCollected: orZero(row.TotalTax)}, nil
}

func orZero(value decimal.NullDecimal) decimal.Decimal {
	if !value.Valid {
		return decimal.Zero
	}
	return value.Decimal
}
