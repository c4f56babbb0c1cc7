package reconcile

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/zedpos/zedpos-backend/internal/sales"
	"github.com/zedpos/zedpos-backend/pkg/db/models"
	"github.com/zedpos/zedpos-backend/pkg/enums"
	"github.com/zedpos/zedpos-backend/pkg/logger"
	"github.com/zedpos/zedpos-backend/pkg/zra"
)

type productLoader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

// Result summarizes one reconciliation pass.
type Result struct {
	Scanned int
	Synced  int
	Pending int
	Failed  int
}

// Service retries invoice submission for sales left PENDING by gateway
// outages at sale time.
type Service interface {
	ResubmitPending(ctx context.Context, batchSize int) (Result, error)
}

type service struct {
	repo        sales.Repository
	productRepo productLoader
	gateway     zra.Submitter
	logger      *logger.Logger
}

// NewService builds the reconciler.
func NewService(
	repo sales.Repository,
	productRepo productLoader,
	gateway zra.Submitter,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("invoice gateway required")
	}
	return &service{
		repo:        repo,
		productRepo: productRepo,
		gateway:     gateway,
		logger:      logg,
	}, nil
}

// ResubmitPending loads up to batchSize PENDING sales, oldest first, and
// retries their invoice submission. The persisted sale id is reused as the
// transaction reference so the authority can dedupe replays. One sale failing
// never aborts the pass.
func (s *service) ResubmitPending(ctx context.Context, batchSize int) (Result, error) {
	var result Result

	rows, err := s.repo.ListBySyncStatus(ctx, enums.SyncStatusPending, batchSize)
	if err != nil {
		return result, fmt.Errorf("listing pending sales: %w", err)
	}
	result.Scanned = len(rows)
	if len(rows) == 0 {
		return result, nil
	}

	names, err := s.productNames(ctx, rows)
	if err != nil {
		return result, err
	}

	for i := range rows {
		sale := &rows[i]
		logCtx := ctx
		if s.logger != nil {
			logCtx = s.logger.WithSaleID(ctx, sale.ID.String())
		}

		outcome := s.resubmit(logCtx, sale, names)
		if err := s.repo.UpdateSyncOutcome(ctx, sale.ID, outcome); err != nil {
			if s.logger != nil {
				s.logger.Error(logCtx, "persisting sync outcome", err)
			}
			continue
		}

		switch outcome.Status {
		case enums.SyncStatusSynced:
			result.Synced++
			if s.logger != nil {
				s.logger.Info(logCtx, "sale reconciled with tax authority")
			}
		case enums.SyncStatusPending:
			result.Pending++
		default:
			result.Failed++
			if s.logger != nil {
				s.logger.Warn(logCtx, "sale reconciliation failed terminally")
			}
		}
	}
	return result, nil
}

func (s *service) resubmit(ctx context.Context, sale *models.Sale, names map[uuid.UUID]string) sales.SyncOutcome {
	items := make([]zra.InvoiceItem, len(sale.Items))
	for i, item := range sale.Items {
		name, ok := names[item.ProductID]
		if !ok {
			// Product was deleted since the sale; the snapshot still has to go
			// out, so fall back to the id.
			name = item.ProductID.String()
		}
		items[i] = zra.InvoiceItem{
			ItemName: name,
			Quantity: item.Quantity,
			Price:    item.PriceAtSale,
		}
	}

	ack, err := s.gateway.SubmitInvoice(ctx, zra.InvoiceSubmission{
		TransactionID: sale.ID.String(),
		TotalAmount:   sale.TotalAmount,
		TaxAmount:     sale.TaxAmount,
		Items:         items,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn(ctx, "invoice resubmission failed: "+err.Error())
	}
	return sales.OutcomeFromGateway(ack, err)
}

// productNames resolves every product referenced by the batch in one query.
func (s *service) productNames(ctx context.Context, rows []models.Sale) (map[uuid.UUID]string, error) {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for i := range rows {
		for _, item := range rows[i].Items {
			if _, ok := seen[item.ProductID]; ok {
				continue
			}
			seen[item.ProductID] = struct{}{}
			ids = append(ids, item.ProductID)
		}
	}

	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading products for batch: %w", err)
	}
	names := make(map[uuid.UUID]string, len(products))
	for _, product := range products {
		names[product.ID] = product.Name
	}
	return names, nil
}
