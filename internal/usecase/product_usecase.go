package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"storefront_service/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type ProductUseCase interface {
	CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id int) (*domain.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error)
	ListProducts(ctx context.Context, limit, offset int, availableOnly bool) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, id int, updates map[string]interface{}) (*domain.Product, error)

	// Restock adds units back to the counter through the inventory ledger,
	// restoring availability.
	Restock(ctx context.Context, id, quantity int) (*domain.Product, error)
}

type productUseCase struct {
	productRepo domain.ProductRepository
	ledger      domain.InventoryLedger
	log         *logrus.Logger
}

func NewProductUseCase(repo domain.ProductRepository, ledger domain.InventoryLedger, logger *logrus.Logger) ProductUseCase {
	return &productUseCase{
		productRepo: repo,
		ledger:      ledger,
		log:         logger,
	}
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

func (uc *productUseCase) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" {
		return nil, errors.New("product name cannot be empty")
	}
	if product.Price.IsNegative() {
		return nil, errors.New("product price cannot be negative")
	}
	if product.Stock < 0 {
		return nil, errors.New("product stock cannot be negative")
	}
	if product.Slug == "" {
		product.Slug = slugify(product.Name)
	}
	if product.Slug == "" {
		return nil, errors.New("product slug cannot be empty")
	}

	uc.log.Infof("Use Case: Creating product '%s' (slug: %s, stock: %d)", product.Name, product.Slug, product.Stock)
	return uc.productRepo.CreateProduct(ctx, product)
}

func (uc *productUseCase) GetProductByID(ctx context.Context, id int) (*domain.Product, error) {
	if id <= 0 {
		return nil, errors.New("invalid product ID")
	}
	return uc.productRepo.GetProductByID(ctx, id)
}

func (uc *productUseCase) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, errors.New("product slug cannot be empty")
	}
	return uc.productRepo.GetProductBySlug(ctx, slug)
}

func (uc *productUseCase) ListProducts(ctx context.Context, limit, offset int, availableOnly bool) ([]domain.Product, error) {
	return uc.productRepo.ListProducts(ctx, limit, offset, availableOnly)
}

func (uc *productUseCase) UpdateProduct(ctx context.Context, id int, updates map[string]interface{}) (*domain.Product, error) {
	if id <= 0 {
		return nil, errors.New("invalid product ID for update")
	}
	if len(updates) == 0 {
		return nil, errors.New("no fields provided for update")
	}

	validated := map[string]interface{}{}
	for key, value := range updates {
		switch key {
		case "name":
			name, ok := value.(string)
			if !ok || strings.TrimSpace(name) == "" {
				return nil, errors.New("product name cannot be empty")
			}
			validated[key] = strings.TrimSpace(name)
		case "slug":
			slug, ok := value.(string)
			if !ok || slugify(slug) == "" {
				return nil, errors.New("product slug cannot be empty")
			}
			validated[key] = slugify(slug)
		case "description":
			validated[key] = value
		case "price":
			price, err := toDecimal(value)
			if err != nil {
				return nil, fmt.Errorf("invalid price: %w", err)
			}
			if price.IsNegative() {
				return nil, errors.New("product price cannot be negative")
			}
			validated[key] = price
		case "stock":
			stock, ok := intValue(value)
			if !ok || stock < 0 {
				return nil, errors.New("product stock must be a non-negative integer")
			}
			validated[key] = stock
		case "is_available":
			available, ok := value.(bool)
			if !ok {
				return nil, errors.New("is_available must be a boolean")
			}
			if available {
				// Availability may be switched on only while there is stock
				// to sell. A stock value in the same update counts: restock
				// and re-enable work in one call.
				stock, hasStock := intValue(updates["stock"])
				if !hasStock {
					product, err := uc.productRepo.GetProductByID(ctx, id)
					if err != nil {
						return nil, err
					}
					stock = product.Stock
				}
				if stock == 0 {
					return nil, errors.New("cannot mark an out-of-stock product as available")
				}
			}
			validated[key] = available
		default:
			uc.log.Warnf("Use Case: Ignoring unknown product field '%s' in update for ID %d", key, id)
		}
	}

	if len(validated) == 0 {
		return nil, errors.New("no valid fields provided for update")
	}

	uc.log.Infof("Use Case: Updating product %d with fields %v", id, fieldNames(validated))
	return uc.productRepo.UpdateProduct(ctx, id, validated)
}

func (uc *productUseCase) Restock(ctx context.Context, id, quantity int) (*domain.Product, error) {
	if id <= 0 {
		return nil, errors.New("invalid product ID")
	}
	if quantity <= 0 {
		return nil, errors.New("restock quantity must be positive")
	}

	if err := uc.ledger.Release(ctx, id, quantity); err != nil {
		uc.log.Errorf("Use Case: Restock of product %d by %d failed: %v", id, quantity, err)
		return nil, err
	}

	uc.log.Infof("Use Case: Product %d restocked by %d units", id, quantity)
	return uc.productRepo.GetProductByID(ctx, id)
}

func intValue(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func toDecimal(value interface{}) (decimal.Decimal, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case string:
		return decimal.NewFromString(v)
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported price type %T", value)
	}
}

func fieldNames(m map[string]interface{}) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	return names
}
