package service

import (
	"context"
	"fmt"
	"time"

	"modellion/internal/domain"
	"modellion/internal/normalize"
	"modellion/internal/repository"
)

// ProductInput carries the mutable product fields of a create or update
// request. Nil fields are "not supplied" and leave stored values untouched
// on update.
type ProductInput struct {
	ProductName    *string
	Price          *string
	ReleaseDate    *string
	ArticleContent *string
	URL            *string
	ProductTag     *string
	Series         *string
}

// ProductService defines the interface for manual catalog maintenance
type ProductService interface {
	Create(ctx context.Context, input ProductInput) (*domain.Product, error)
	Update(ctx context.Context, id int64, input ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error)
}

type productService struct {
	products repository.ProductRepository
}

// NewProductService creates a new instance of ProductService
func NewProductService(products repository.ProductRepository) ProductService {
	return &productService{products: products}
}

// Create adds a product; the url must not be taken yet
func (s *productService) Create(ctx context.Context, input ProductInput) (*domain.Product, error) {
	if input.URL == nil || *input.URL == "" {
		return nil, fmt.Errorf("url is required")
	}

	product := &domain.Product{
		ProductName:    input.ProductName,
		Price:          input.Price,
		ReleaseDate:    input.ReleaseDate,
		ArticleContent: input.ArticleContent,
		URL:            *input.URL,
		ProductTag:     input.ProductTag,
		Series:         input.Series,
		CreatedAt:      time.Now().UTC(),
	}
	recomputeDerived(product)

	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// Update merges the supplied fields into the stored product and recomputes
// the derived price/date values from the resulting freeform texts
func (s *productService) Update(ctx context.Context, id int64, input ProductInput) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.URL != nil && *input.URL != "" && *input.URL != product.URL {
		if _, err := s.products.FindByURL(ctx, *input.URL); err == nil {
			return nil, repository.ErrDuplicateURL
		} else if err != repository.ErrProductNotFound {
			return nil, err
		}
		product.URL = *input.URL
	}
	if input.ProductName != nil {
		product.ProductName = input.ProductName
	}
	if input.Price != nil {
		product.Price = input.Price
	}
	if input.ReleaseDate != nil {
		product.ReleaseDate = input.ReleaseDate
	}
	if input.ArticleContent != nil {
		product.ArticleContent = input.ArticleContent
	}
	if input.ProductTag != nil {
		product.ProductTag = input.ProductTag
	}
	if input.Series != nil {
		product.Series = input.Series
	}

	recomputeDerived(product)

	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// Delete removes a product together with its images
func (s *productService) Delete(ctx context.Context, id int64) error {
	return s.products.Delete(ctx, id)
}

// Get retrieves one product
func (s *productService) Get(ctx context.Context, id int64) (*domain.Product, error) {
	return s.products.FindByID(ctx, id)
}

// List queries the catalog with filters, sorting and pagination
func (s *productService) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	return s.products.List(ctx, filter)
}

// recomputeDerived keeps the queryable values in sync with their freeform
// text sources
func recomputeDerived(product *domain.Product) {
	product.PriceValue = nil
	if product.Price != nil {
		if v, ok := normalize.ParsePrice(*product.Price); ok {
			product.PriceValue = &v
		}
	}

	product.ReleaseDateValue = nil
	if product.ReleaseDate != nil {
		if d, ok := normalize.ParseReleaseDate(*product.ReleaseDate); ok {
			product.ReleaseDateValue = &d
		}
	}
}
