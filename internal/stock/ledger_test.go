package stock

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/zedpos/zedpos-backend/pkg/db/models"
	pkgerrors "github.com/zedpos/zedpos-backend/pkg/errors"
)

func TestReserveAndDeduct(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	productA := seedProduct(t, db, "Mealie Meal 25kg", "185.00", 5)
	productB := seedProduct(t, db, "Cooking Oil 2L", "62.50", 3)

	err := db.Transaction(func(tx *gorm.DB) error {
		locked, terr := ReserveAndDeduct(ctx, tx, []Deduction{
			{ProductID: productA, Quantity: 2},
			{ProductID: productB, Quantity: 1},
		})
		if terr != nil {
			return terr
		}
		if !locked[productA].Price.Equal(decimal.RequireFromString("185.00")) {
			t.Fatalf("unexpected locked price: %s", locked[productA].Price)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("deduct transaction: %v", err)
	}

	if got := loadStock(t, db, productA); got != 3 {
		t.Fatalf("unexpected stock for product a: %d", got)
	}
	if got := loadStock(t, db, productB); got != 2 {
		t.Fatalf("unexpected stock for product b: %d", got)
	}
}

func TestReserveAndDeductDuplicateLines(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, db, "Sugar 1kg", "28.00", 5)

	// 3 + 3 exceeds the 5 on hand even though each line alone fits.
	err := db.Transaction(func(tx *gorm.DB) error {
		_, terr := ReserveAndDeduct(ctx, tx, []Deduction{
			{ProductID: product, Quantity: 3},
			{ProductID: product, Quantity: 3},
		})
		return terr
	})
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := loadStock(t, db, product); got != 5 {
		t.Fatalf("stock changed after rollback: %d", got)
	}
}

func TestReserveAndDeductExactStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, db, "Bread Loaf", "15.00", 4)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, terr := ReserveAndDeduct(ctx, tx, []Deduction{{ProductID: product, Quantity: 4}})
		return terr
	})
	if err != nil {
		t.Fatalf("deduct transaction: %v", err)
	}
	if got := loadStock(t, db, product); got != 0 {
		t.Fatalf("expected stock drained to zero, got %d", got)
	}
}

func TestReserveAndDeductInsufficientStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, db, "Milk 500ml", "12.00", 1)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, terr := ReserveAndDeduct(ctx, tx, []Deduction{{ProductID: product, Quantity: 2}})
		return terr
	})
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := loadStock(t, db, product); got != 1 {
		t.Fatalf("stock changed after failed deduct: %d", got)
	}
}

func TestReserveAndDeductUnknownProduct(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		_, terr := ReserveAndDeduct(ctx, tx, []Deduction{{ProductID: uuid.New(), Quantity: 1}})
		return terr
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReserveAndDeductInvalidQuantity(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, db, "Salt 500g", "8.00", 10)

	_, err := ReserveAndDeduct(ctx, db, []Deduction{{ProductID: product, Quantity: 0}})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:ledger_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}); err != nil {
		t.Fatalf("migrate products: %v", err)
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
