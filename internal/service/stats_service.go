package service

import (
	"context"

	"modellion/internal/domain"
	"modellion/internal/repository"
)

// Overview is the dashboard summary of the catalog
type Overview struct {
	TotalProducts       int               `json:"total_products"`
	ProductsWithImages  int               `json:"products_with_images"`
	ProductsWithoutImgs int               `json:"products_without_images"`
	ByTag               map[string]int    `json:"by_tag"`
	BySeries            map[string]int    `json:"by_series"`
	Recent              []*domain.Product `json:"recent"`
}

// StatsService defines the interface for catalog statistics
type StatsService interface {
	Overview(ctx context.Context) (*Overview, error)
}

type statsService struct {
	products repository.ProductRepository
	images   repository.ImageRepository
}

// NewStatsService creates a new instance of StatsService
func NewStatsService(products repository.ProductRepository, images repository.ImageRepository) StatsService {
	return &statsService{products: products, images: images}
}

const recentProductsLimit = 10

// Overview aggregates catalog counts for the dashboard
func (s *statsService) Overview(ctx context.Context) (*Overview, error) {
	total, err := s.products.Count(ctx)
	if err != nil {
		return nil, err
	}

	withImages, err := s.images.CountProductsWithImages(ctx)
	if err != nil {
		return nil, err
	}

	byTag, err := s.products.CountByColumn(ctx, "product_tag")
	if err != nil {
		return nil, err
	}

	bySeries, err := s.products.CountByColumn(ctx, "series")
	if err != nil {
		return nil, err
	}

	recent, err := s.products.Recent(ctx, recentProductsLimit)
	if err != nil {
		return nil, err
	}

	return &Overview{
		TotalProducts:       total,
		ProductsWithImages:  withImages,
		ProductsWithoutImgs: total - withImages,
		ByTag:               byTag,
		BySeries:            bySeries,
		Recent:              recent,
	}, nil
}
