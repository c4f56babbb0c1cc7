package sales

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/zedpos/zedpos-backend/internal/products"
	"github.com/zedpos/zedpos-backend/pkg/db/models"
	"github.com/zedpos/zedpos-backend/pkg/enums"
	pkgerrors "github.com/zedpos/zedpos-backend/pkg/errors"
	"github.com/zedpos/zedpos-backend/pkg/zra"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type stubGateway struct {
	ack         *zra.InvoiceAck
	err         error
	submissions []zra.InvoiceSubmission
}

func (g *stubGateway) SubmitInvoice(_ context.Context, submission zra.InvoiceSubmission) (*zra.InvoiceAck, error) {
	g.submissions = append(g.submissions, submission)
	if g.err != nil {
		return nil, g.err
	}
	return g.ack, nil
}

func TestCreateSaleSynced(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	productA := seedProduct(t, db, "Mealie Meal 25kg", "10.00", 5)
	productB := seedProduct(t, db, "Cooking Oil 2L", "20.00", 3)

	gateway := &stubGateway{ack: &zra.InvoiceAck{
		InvoiceID:   "ZRA-2024-000042",
		Status:      "SUBMITTED",
		RawResponse: `{"zra_invoice_id":"ZRA-2024-000042"}`,
	}}
	svc := newTestService(t, db, gateway)

	sale, err := svc.CreateSale(ctx, CreateSaleInput{
		Items: []SaleItemInput{
			{ProductID: productA, Quantity: 2},
			{ProductID: productB, Quantity: 1},
		},
		DiscountAmount: decimal.RequireFromString("5.00"),
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	if sale.SyncStatus != enums.SyncStatusSynced {
		t.Fatalf("expected SYNCED, got %s", sale.SyncStatus)
	}
	if sale.ZRAInvoiceID == nil || *sale.ZRAInvoiceID != "ZRA-2024-000042" {
		t.Fatalf("unexpected invoice id: %v", sale.ZRAInvoiceID)
	}
	if !sale.TotalAmount.Equal(decimal.RequireFromString("40.60")) {
		t.Fatalf("unexpected total: %s", sale.TotalAmount)
	}
	if !sale.TaxAmount.Equal(decimal.RequireFromString("5.60")) {
		t.Fatalf("unexpected tax: %s", sale.TaxAmount)
	}
	if len(sale.Items) != 2 {
		t.Fatalf("expected 2 sale items, got %d", len(sale.Items))
	}
	for _, item := range sale.Items {
		if item.ProductID == productA && !item.PriceAtSale.Equal(decimal.RequireFromString("10.00")) {
			t.Fatalf("unexpected price snapshot: %s", item.PriceAtSale)
		}
	}

	if got := loadStock(t, db, productA); got != 3 {
		t.Fatalf("unexpected stock for product a: %d", got)
	}
	if got := loadStock(t, db, productB); got != 2 {
		t.Fatalf("unexpected stock for product b: %d", got)
	}
	if len(gateway.submissions) != 1 {
		t.Fatalf("expected one submission, got %d", len(gateway.submissions))
	}
}

func TestCreateSaleGatewayOutageLeavesPending(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, db, "Sugar 1kg", "30.00", 5)

	gateway := &stubGateway{err: pkgerrors.New(pkgerrors.CodeDependency, "zra unavailable (503)")}
	svc := newTestService(t, db, gateway)

	sale, err := svc.CreateSale(ctx, CreateSaleInput{
		Items: []SaleItemInput{{ProductID: product, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	if sale.SyncStatus != enums.SyncStatusPending {
		t.Fatalf("expected PENDING, got %s", sale.SyncStatus)
	}
	if sale.ZRAInvoiceID != nil {
		t.Fatalf("expected no invoice id, got %v", *sale.ZRAInvoiceID)
	}
	if sale.ZRAResponseLog == nil || *sale.ZRAResponseLog == "" {
		t.Fatal("expected failure recorded in response log")
	}
	// The sale still commits and stock is still deducted.
	if got := loadStock(t, db, product); got != 4 {
		t.Fatalf("unexpected stock: %d", got)
	}
}

func TestCreateSaleBadCredentialsFailed(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, db, "Bread Loaf", "15.00", 2)

	gateway := &stubGateway{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "zra rejected credentials")}
	svc := newTestService(t, db, gateway)

	sale, err := svc.CreateSale(ctx, CreateSaleInput{
		Items: []SaleItemInput{{ProductID: product, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if sale.SyncStatus != enums.SyncStatusFailed {
		t.Fatalf("expected FAILED, got %s", sale.SyncStatus)
	}
}

func TestCreateSaleInsufficientStockRollsBack(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, db, "Milk 500ml", "12.00", 1)

	gateway := &stubGateway{ack: &zra.InvoiceAck{InvoiceID: "ZRA-X", RawResponse: "{}"}}
	svc := newTestService(t, db, gateway)

	_, err := svc.CreateSale(ctx, CreateSaleInput{
		Items: []SaleItemInput{{ProductID: product, Quantity: 2}},
	})
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := loadStock(t, db, product); got != 1 {
		t.Fatalf("stock changed after rollback: %d", got)
	}
	var count int64
	if err := db.Model(&models.Sale{}).Count(&count).Error; err != nil {
		t.Fatalf("count sales: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no persisted sales, got %d", count)
	}
}

func TestCreateSaleUnknownProduct(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	gateway := &stubGateway{}
	svc := newTestService(t, db, gateway)

	_, err := svc.CreateSale(context.Background(), CreateSaleInput{
		Items: []SaleItemInput{{ProductID: uuid.New(), Quantity: 1}},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gateway.submissions) != 0 {
		t.Fatal("gateway should not be called for unknown products")
	}
}

func TestCreateSaleValidation(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, &stubGateway{})
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateSaleInput
	}{
		{name: "no items", input: CreateSaleInput{}},
		{name: "zero quantity", input: CreateSaleInput{Items: []SaleItemInput{{ProductID: uuid.New(), Quantity: 0}}}},
		{name: "nil product id", input: CreateSaleInput{Items: []SaleItemInput{{Quantity: 1}}}},
		{name: "negative discount", input: CreateSaleInput{
			Items:          []SaleItemInput{{ProductID: uuid.New(), Quantity: 1}},
			DiscountAmount: decimal.RequireFromString("-1.00"),
		}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.CreateSale(ctx, tc.input)
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestGetSaleNotFound(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, &stubGateway{})

	_, err := svc.GetSale(context.Background(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func newTestService(t *testing.T, db *gorm.DB, gateway zra.Submitter) Service {
	t.Helper()
	svc, err := NewService(
		gormTxRunner{db: db},
		NewRepository(db),
		products.NewRepository(db),
		gateway,
		nil,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:sales_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.Sale{}, &models.SaleItem{}); err != nil {
		t.Fatalf("migrate schema: %v", err)
	}
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, name, price string, stock int) uuid.UUID {
	t.Helper()
	product := models.Product{
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product.ID
}

func loadStock(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := db.First(&product, "id = ?", id).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product.StockQuantity
}
