package stock

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zedpos/zedpos-backend/pkg/db/models"
	pkgerrors "github.com/zedpos/zedpos-backend/pkg/errors"
)

// Deduction requests that Quantity units of a product leave stock.
type Deduction struct {
	ProductID uuid.UUID
	Quantity  int
}

// ReserveAndDeduct locks every referenced product row for the duration of the
// enclosing transaction, validates availability, and decrements stock.
//
// Each row is locked with its own SELECT in ascending product-id order, so
// lock acquisition order is deterministic and concurrent sales touching
// overlapping product sets cannot deadlock. Deductions are then applied in
// the order they were submitted; a sale listing the same product twice
// re-checks the remaining stock after earlier lines.
//
// The locked products are returned keyed by id so callers can snapshot
// authoritative prices. Nothing is durable until the transaction commits.
func ReserveAndDeduct(ctx context.Context, tx *gorm.DB, deductions []Deduction) (map[uuid.UUID]*models.Product, error) {
	if len(deductions) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no deductions requested")
	}
	for _, d := range deductions {
		if d.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"product_id": d.ProductID, "quantity": d.Quantity})
		}
	}

	ids := orderedProductIDs(deductions)
	lockRows := tx.Dialector.Name() == "postgres"

	locked := make(map[uuid.UUID]*models.Product, len(ids))
	for _, id := range ids {
		query := tx.WithContext(ctx)
		if lockRows {
			// sqlite serializes writers at the connection level and rejects
			// the FOR UPDATE syntax, so the explicit row lock is postgres-only.
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var product models.Product
		if err := query.First(&product, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", id))
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "locking product")
		}
		row := product
		locked[id] = &row
	}

	for _, d := range deductions {
		product := locked[d.ProductID]
		if product.StockQuantity < d.Quantity {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("insufficient stock for %s", product.Name)).
				WithDetails(map[string]any{
					"product_id": product.ID,
					"available":  product.StockQuantity,
					"requested":  d.Quantity,
				})
		}
		product.StockQuantity -= d.Quantity
	}

	for _, id := range ids {
		product := locked[id]
		err := tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ?", product.ID).
			Update("stock_quantity", product.StockQuantity).Error
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "writing stock deduction")
		}
	}

	return locked, nil
}

func orderedProductIDs(deductions []Deduction) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(deductions))
	ids := make([]uuid.UUID, 0, len(deductions))
	for _, d := range deductions {
		if _, ok := seen[d.ProductID]; ok {
			continue
		}
		seen[d.ProductID] = struct{}{}
		ids = append(ids, d.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
	return ids
}
