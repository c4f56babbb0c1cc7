package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zedpos/zedpos-backend/internal/stock"
	"github.com/zedpos/zedpos-backend/pkg/db/models"
	pkgerrors "github.com/zedpos/zedpos-backend/pkg/errors"
	"github.com/zedpos/zedpos-backend/pkg/logger"
	"github.com/zedpos/zedpos-backend/pkg/pagination"
	"github.com/zedpos/zedpos-backend/pkg/zra"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

type stockLedger interface {
	ReserveAndDeduct(ctx context.Context, tx *gorm.DB, deductions []stock.Deduction) (map[uuid.UUID]*models.Product, error)
}

type ledgerEngine struct{}

func (ledgerEngine) ReserveAndDeduct(ctx context.Context, tx *gorm.DB, deductions []stock.Deduction) (map[uuid.UUID]*models.Product, error) {
	return stock.ReserveAndDeduct(ctx, tx, deductions)
}

// Service executes the sale workflow.
type Service interface {
	CreateSale(ctx context.Context, input CreateSaleInput) (*models.Sale, error)
	GetSale(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	ListSales(ctx context.Context, page pagination.Params) ([]models.Sale, string, error)
}

// SaleItemInput is one requested line of a sale.
type SaleItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateSaleInput carries the validated payload for one sale attempt.
type CreateSaleInput struct {
	Items          []SaleItemInput
	DiscountAmount decimal.Decimal
}

type service struct {
	tx          txRunner
	repo        Repository
	productRepo productLoader
	gateway     zra.Submitter
	ledger      stockLedger
	logger      *logger.Logger
}

// NewService builds the sale orchestration service.
func NewService(
	tx txRunner,
	repo Repository,
	productRepo productLoader,
	gateway zra.Submitter,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
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
		tx:          tx,
		repo:        repo,
		productRepo: productRepo,
		gateway:     gateway,
		ledger:      ledgerEngine{},
		logger:      logg,
	}, nil
}

// CreateSale runs the full workflow: validate, submit the invoice to the tax
// authority with a provisional reference, then atomically deduct stock and
// persist the sale carrying the submission outcome.
//
// The gateway call happens before the transaction and never holds product
// locks; its failures are downgraded to a sync status and never abort the
// sale. Everything inside the transaction commits or rolls back as a unit.
func (s *service) CreateSale(ctx context.Context, input CreateSaleInput) (*models.Sale, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	preview, err := s.loadProducts(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	txRef := "POS-" + uuid.NewString()
	outcome := s.submitInvoice(ctx, txRef, input, preview)

	var result *models.Sale
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		deductions := make([]stock.Deduction, len(input.Items))
		for i, item := range input.Items {
			deductions[i] = stock.Deduction{ProductID: item.ProductID, Quantity: item.Quantity}
		}

		locked, err := s.ledger.ReserveAndDeduct(ctx, tx, deductions)
		if err != nil {
			return err
		}

		// Totals are recomputed from the locked rows: the provisional
		// submission may have seen prices that changed since.
		lines := make([]LineAmount, len(input.Items))
		for i, item := range input.Items {
			lines[i] = LineAmount{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: locked[item.ProductID].Price,
			}
		}
		totals := ComputeTotals(lines, input.DiscountAmount)

		sale := &models.Sale{
			TotalAmount:    totals.Total,
			TaxAmount:      totals.Tax,
			DiscountAmount: input.DiscountAmount,
			SyncStatus:     outcome.Status,
			ZRAInvoiceID:   outcome.ZRAInvoiceID,
			ZRAResponseLog: outcome.ResponseLog,
		}
		if _, err := repo.CreateSale(ctx, sale); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting sale")
		}

		items := make([]models.SaleItem, len(input.Items))
		for i, item := range input.Items {
			items[i] = models.SaleItem{
				SaleID:      sale.ID,
				ProductID:   item.ProductID,
				Quantity:    item.Quantity,
				PriceAtSale: locked[item.ProductID].Price,
			}
		}
		if err := repo.CreateSaleItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting sale items")
		}

		result, err = repo.FindByID(ctx, sale.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) GetSale(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("sale %s not found", id))
		}
		return nil, err
	}
	return sale, nil
}

func (s *service) ListSales(ctx context.Context, page pagination.Params) ([]models.Sale, string, error) {
	return s.repo.List(ctx, page)
}

func validateInput(input CreateSaleInput) error {
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale requires at least one item")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if item.Quantity < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
				WithDetails(map[string]any{"product_id": item.ProductID, "quantity": item.Quantity})
		}
	}
	if input.DiscountAmount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount cannot be negative")
	}
	return nil
}

// loadProducts resolves every requested product without locking, for the
// provisional invoice submission. Existence is re-validated under lock inside
// the transaction.
func (s *service) loadProducts(ctx context.Context, items []SaleItemInput) (map[uuid.UUID]models.Product, error) {
	ids := make([]uuid.UUID, 0, len(items))
	seen := make(map[uuid.UUID]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}

	rows, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading products")
	}
	byID := make(map[uuid.UUID]models.Product, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", id))
		}
	}
	return byID, nil
}

// submitInvoice calls the tax authority outside the DB transaction. Errors
// are logged and converted into a sync outcome, never returned.
func (s *service) submitInvoice(ctx context.Context, txRef string, input CreateSaleInput, products map[uuid.UUID]models.Product) SyncOutcome {
	lines := make([]LineAmount, len(input.Items))
	items := make([]zra.InvoiceItem, len(input.Items))
	for i, item := range input.Items {
		product := products[item.ProductID]
		lines[i] = LineAmount{ProductID: item.ProductID, Quantity: item.Quantity, UnitPrice: product.Price}
		items[i] = zra.InvoiceItem{ItemName: product.Name, Quantity: item.Quantity, Price: product.Price}
	}
	totals := ComputeTotals(lines, input.DiscountAmount)

	ack, err := s.gateway.SubmitInvoice(ctx, zra.InvoiceSubmission{
		TransactionID: txRef,
		TotalAmount:   totals.Total,
		TaxAmount:     totals.Tax,
		Items:         items,
	})
	if err != nil && s.logger != nil {
		logCtx := s.logger.WithFields(ctx, map[string]any{"transaction_ref": txRef})
		s.logger.Warn(logCtx, "invoice submission failed, sale continues: "+err.Error())
	}
	return OutcomeFromGateway(ack, err)
}
