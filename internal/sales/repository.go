package sales

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zedpos/zedpos-backend/pkg/db/models"
	"github.com/zedpos/zedpos-backend/pkg/enums"
	"github.com/zedpos/zedpos-backend/pkg/pagination"
)

// Repository exposes sale persistence. Sales are append-only; the only
// mutation after creation is the invoice sync outcome.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateSale(ctx context.Context, sale *models.Sale) (*models.Sale, error)
	CreateSaleItems(ctx context.Context, items []models.SaleItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	List(ctx context.Context, page pagination.Params) ([]models.Sale, string, error)
	ListBySyncStatus(ctx context.Context, status enums.SyncStatus, limit int) ([]models.Sale, error)
	UpdateSyncOutcome(ctx context.Context, saleID uuid.UUID, outcome SyncOutcome) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a sales repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateSale(ctx context.Context, sale *models.Sale) (*models.Sale, error) {
	if err := r.db.WithContext(ctx).Create(sale).Error; err != nil {
		return nil, err
	}
	return sale, nil
}

func (r *repository) CreateSaleItems(ctx context.Context, items []models.SaleItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) List(ctx context.Context, page pagination.Params) ([]models.Sale, string, error) {
	limit := pagination.LimitWithBuffer(page.Limit)

	query := r.db.WithContext(ctx).
		Preload("Items").
		Order("created_at DESC, id DESC").
		Limit(limit)

	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, "", err
	}
	if cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Sale
	if err := query.Find(&rows).Error; err != nil {
		return nil, "", err
	}

	next := ""
	if len(rows) == limit {
		rows = rows[:limit-1]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}

func (r *repository) ListBySyncStatus(ctx context.Context, status enums.SyncStatus, limit int) ([]models.Sale, error) {
	var rows []models.Sale
	query := r.db.WithContext(ctx).
		Preload("Items").
		Where("zra_sync_status = ?", status).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateSyncOutcome(ctx context.Context, saleID uuid.UUID, outcome SyncOutcome) error {
	updates := map[string]any{
		"zra_sync_status":  outcome.Status,
		"zra_invoice_id":   outcome.ZRAInvoiceID,
		"zra_response_log": outcome.ResponseLog,
	}
	return r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("id = ?", saleID).
		Updates(updates).Error
}
