package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zedpos/zedpos-backend/api/responses"
	"github.com/zedpos/zedpos-backend/api/validators"
	salesvc "github.com/zedpos/zedpos-backend/internal/sales"
	pkgerrors "github.com/zedpos/zedpos-backend/pkg/errors"
	"github.com/zedpos/zedpos-backend/pkg/logger"
)

type createSaleRequest struct {
	Items          []saleItemRequest `json:"items" validate:"required,min=1,dive"`
	DiscountAmount *decimal.Decimal  `json:"discount_amount,omitempty"`
}

type saleItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// CreateSale runs the checkout workflow for a POS terminal request.
func CreateSale(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.CreateSale(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sale)
	}
}

func GetSale(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sale, err := svc.GetSale(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sale)
	}
}

func ListSales(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, next, err := svc.ListSales(r.Context(), page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"sales":       rows,
			"next_cursor": next,
		})
	}
}

func (r createSaleRequest) toInput() (salesvc.CreateSaleInput, error) {
	items := make([]salesvc.SaleItemInput, len(r.Items))
	for i, item := range r.Items {
		id, err := uuid.Parse(item.ProductID)
		if err != nil {
			return salesvc.CreateSaleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		items[i] = salesvc.SaleItemInput{ProductID: id, Quantity: item.Quantity}
	}

	discount := decimal.Zero
	if r.DiscountAmount != nil {
		discount = *r.DiscountAmount
	}
	return salesvc.CreateSaleInput{Items: items, DiscountAmount: discount}, nil
}
