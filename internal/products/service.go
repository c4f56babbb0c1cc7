package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zedpos/zedpos-backend/pkg/db"
	"github.com/zedpos/zedpos-backend/pkg/db/models"
	pkgerrors "github.com/zedpos/zedpos-backend/pkg/errors"
	"github.com/zedpos/zedpos-backend/pkg/pagination"
)

// Service exposes catalog management operations.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, page pagination.Params) ([]models.Product, string, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name          string
	Description   *string
	Price         decimal.Decimal
	StockQuantity int
}

// UpdateProductInput lists the updatable product fields; nil means "leave
// unchanged". Stock edits here are administrative corrections, not sales.
type UpdateProductInput struct {
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	StockQuantity *int
}

type service struct {
	repo *Repository
}

// NewService constructs a product service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if input.StockQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock quantity cannot be negative")
	}

	product := &models.Product{
		Name:          name,
		Description:   input.Description,
		Price:         input.Price,
		StockQuantity: input.StockQuantity,
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, fmt.Sprintf("product %q already exists", name))
		}
		return nil, err
	}
	return created, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", id))
		}
		return nil, err
	}
	return product, nil
}

func (s *service) ListProducts(ctx context.Context, page pagination.Params) ([]models.Product, string, error) {
	return s.repo.List(ctx, page)
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	if _, err := s.GetProduct(ctx, id); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
		}
		fields["name"] = name
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		fields["price"] = *input.Price
	}
	if input.StockQuantity != nil {
		if *input.StockQuantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock quantity cannot be negative")
		}
		fields["stock_quantity"] = *input.StockQuantity
	}

	if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "product name already exists")
		}
		return nil, err
	}
	return s.GetProduct(ctx, id)
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetProduct(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
