package products

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/kasuwa-hq/kasuwa-backend/pkg/db"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/db/models"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kasuwa-hq/kasuwa-backend/pkg/errors"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/logger"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/pagination"
)

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// ProductInput carries seller-supplied listing fields. Pointer fields on
// updates distinguish "leave alone" from "set to zero value".
type ProductInput struct {
	Name        string
	Description string
	PriceKobo   int64
	Quantity    int
	CategoryID  *uuid.UUID
	Status      enums.ProductStatus
}

// Service manages a seller's product catalog.
type Service interface {
	CreateProduct(ctx context.Context, sellerID uuid.UUID, input ProductInput) (*models.Product, error)
	GetProduct(ctx context.Context, sellerID, productID uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Product, error)
	UpdateProduct(ctx context.Context, sellerID, productID uuid.UUID, updates map[string]any) (*models.Product, error)
	DeleteProduct(ctx context.Context, sellerID, productID uuid.UUID) error
	CreateCategory(ctx context.Context, name string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) CreateProduct(ctx context.Context, sellerID uuid.UUID, input ProductInput) (*models.Product, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if input.PriceKobo <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	status := input.Status
	if status == "" {
		status = enums.ProductStatusDraft
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown product status %q", status))
	}
	if input.CategoryID != nil {
		if _, err := s.repo.GetCategory(ctx, *input.CategoryID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "category does not exist")
			}
			return nil, err
		}
	}

	product := &models.Product{
		ID:          uuid.New(),
		SellerID:    sellerID,
		CategoryID:  input.CategoryID,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		PriceKobo:   input.PriceKobo,
		Currency:    enums.CurrencyNGN,
		Quantity:    input.Quantity,
		Status:      status,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithSellerID(ctx, sellerID.String()), "product created")
	return product, nil
}

func (s *service) GetProduct(ctx context.Context, sellerID, productID uuid.UUID) (*models.Product, error) {
	return s.ownedProduct(ctx, sellerID, productID)
}

func (s *service) ListProducts(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Product, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	return s.repo.ListBySeller(ctx, sellerID, params)
}

func (s *service) UpdateProduct(ctx context.Context, sellerID, productID uuid.UUID, updates map[string]any) (*models.Product, error) {
	if _, err := s.ownedProduct(ctx, sellerID, productID); err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return s.repo.GetByID(ctx, productID)
	}
	if price, ok := updates["price_kobo"]; ok {
		if v, ok := price.(int64); ok && v <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
		}
	}
	if status, ok := updates["status"]; ok {
		if v, ok := status.(enums.ProductStatus); !ok || !v.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown product status")
		}
	}
	if err := s.repo.Update(ctx, productID, updates); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, productID)
}

func (s *service) DeleteProduct(ctx context.Context, sellerID, productID uuid.UUID) error {
	if _, err := s.ownedProduct(ctx, sellerID, productID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, productID)
}

func (s *service) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}
	category := &models.Category{
		ID:   uuid.New(),
		Name: trimmed,
		Slug: slugify(trimmed),
	}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "category already exists")
		}
		return nil, err
	}
	return category, nil
}

func (s *service) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *service) ownedProduct(ctx context.Context, sellerID, productID uuid.UUID) (*models.Product, error) {
	if sellerID == uuid.Nil || productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id and product id are required")
	}
	product, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, err
	}
	if product.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func slugify(name string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}
