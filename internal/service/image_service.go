package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"modellion/internal/domain"
	"modellion/internal/hash"
	"modellion/internal/repository"
	"modellion/internal/storage"

	"go.uber.org/zap"
)

// DefaultPresignTTL is how long generated download links stay valid
const DefaultPresignTTL = time.Hour

// ImageService defines the interface for manual image management
type ImageService interface {
	Upload(ctx context.Context, productID int64, filename, localPath string, isCover bool) (*domain.Image, error)
	Delete(ctx context.Context, id int64, deleteObject bool) error
	SetCover(ctx context.Context, id int64) (*domain.Image, error)
	Presign(ctx context.Context, id int64, ttl time.Duration) (string, error)
	ListByProduct(ctx context.Context, productID int64) ([]*domain.Image, error)
}

type imageService struct {
	products repository.ProductRepository
	images   repository.ImageRepository
	store    storage.ObjectStore
	logger   *zap.Logger
}

// NewImageService creates a new instance of ImageService
func NewImageService(
	products repository.ProductRepository,
	images repository.ImageRepository,
	store storage.ObjectStore,
	logger *zap.Logger,
) ImageService {
	return &imageService{products: products, images: images, store: store, logger: logger}
}

// Upload registers a local file as an image of the product. The content
// hash must be new to the whole catalog.
func (s *imageService) Upload(ctx context.Context, productID int64, filename, localPath string, isCover bool) (*domain.Image, error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return nil, err
	}

	digest, err := hash.MD5OfFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint upload: %w", err)
	}

	if _, err := s.images.FindByHash(ctx, digest); err == nil {
		return nil, repository.ErrDuplicateImageHash
	} else if !errors.Is(err, repository.ErrImageNotFound) {
		return nil, err
	}

	objectName := fmt.Sprintf("%d/%s_%s", productID, digest, filename)
	storedPath, err := s.store.Put(ctx, localPath, objectName)
	if err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	image := &domain.Image{
		ProductID:   productID,
		Filename:    filename,
		Hash:        digest,
		StoragePath: storedPath,
		IsCover:     isCover,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.images.Create(ctx, image); err != nil {
		return nil, err
	}

	s.logger.Info("Image uploaded",
		zap.Int64("product_id", productID),
		zap.String("filename", filename),
		zap.Bool("is_cover", isCover),
	)
	return image, nil
}

// Delete removes the image row; the stored object is purged best-effort
// when requested
func (s *imageService) Delete(ctx context.Context, id int64, deleteObject bool) error {
	image, err := s.images.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.images.Delete(ctx, id); err != nil {
		return err
	}

	if deleteObject && image.StoragePath != "" {
		if err := s.store.Remove(ctx, image.StoragePath); err != nil {
			s.logger.Warn("Failed to remove stored object",
				zap.String("path", image.StoragePath), zap.Error(err))
		}
	}
	return nil
}

// SetCover marks an image as its product's cover
func (s *imageService) SetCover(ctx context.Context, id int64) (*domain.Image, error) {
	return s.images.SetCover(ctx, id)
}

// Presign returns a temporary download URL for the image
func (s *imageService) Presign(ctx context.Context, id int64, ttl time.Duration) (string, error) {
	image, err := s.images.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = DefaultPresignTTL
	}
	return s.store.PresignedURL(ctx, image.StoragePath, ttl)
}

// ListByProduct returns all images of a product
func (s *imageService) ListByProduct(ctx context.Context, productID int64) ([]*domain.Image, error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.images.ListByProduct(ctx, productID)
}
