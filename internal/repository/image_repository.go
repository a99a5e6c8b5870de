package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modellion/internal/domain"
)

var (
	ErrImageNotFound      = errors.New("image not found")
	ErrDuplicateImageHash = errors.New("image with this content hash already exists")
	ErrDuplicateFilename  = errors.New("image with this filename already exists for the product")
)

// ImageRepository defines the interface for image data access
type ImageRepository interface {
	Create(ctx context.Context, image *domain.Image) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*domain.Image, error)
	FindByHash(ctx context.Context, hash string) (*domain.Image, error)
	ListByProduct(ctx context.Context, productID int64) ([]*domain.Image, error)
	SetCover(ctx context.Context, id int64) (*domain.Image, error)
	CountProductsWithImages(ctx context.Context) (int, error)
}

type imageRepository struct {
	db *sql.DB
}

// NewImageRepository creates a new instance of ImageRepository
func NewImageRepository(db *sql.DB) ImageRepository {
	return &imageRepository{db: db}
}

const imageColumns = `id, product_id, image_filename, image_hash, storage_path, is_cover, created_at`

func scanImage(row interface{ Scan(...any) error }) (*domain.Image, error) {
	img := &domain.Image{}
	err := row.Scan(
		&img.ID,
		&img.ProductID,
		&img.Filename,
		&img.Hash,
		&img.StoragePath,
		&img.IsCover,
		&img.CreatedAt,
	)
	return img, err
}

// Create inserts a new image row. When IsCover is set the previous cover of
// the owning product is cleared in the same transaction, keeping at most one
// cover per product.
func (r *imageRepository) Create(ctx context.Context, image *domain.Image) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if image.IsCover {
		_, err = tx.ExecContext(ctx,
			`UPDATE images SET is_cover = false WHERE product_id = $1`, image.ProductID)
		if err != nil {
			return fmt.Errorf("failed to clear previous cover: %w", err)
		}
	}

	query := `
		INSERT INTO images (product_id, image_filename, image_hash, storage_path, is_cover, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err = tx.QueryRowContext(
		ctx,
		query,
		image.ProductID,
		image.Filename,
		image.Hash,
		image.StoragePath,
		image.IsCover,
		image.CreatedAt,
	).Scan(&image.ID)

	if err != nil {
		if isUniqueViolation(err, "images_image_hash_key") {
			return ErrDuplicateImageHash
		}
		if isUniqueViolation(err, "uq_images_product_filename") {
			return ErrDuplicateFilename
		}
		return fmt.Errorf("failed to create image: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit image insert: %w", err)
	}

	return nil
}

// Delete removes an image row
func (r *imageRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM images WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrImageNotFound
	}

	return nil
}

// FindByID retrieves an image by ID
func (r *imageRepository) FindByID(ctx context.Context, id int64) (*domain.Image, error) {
	query := fmt.Sprintf(`SELECT %s FROM images WHERE id = $1`, imageColumns)

	image, err := scanImage(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("failed to find image by ID: %w", err)
	}

	return image, nil
}

// FindByHash retrieves an image by its content fingerprint, across all
// products. This is the global dedup lookup used by imports.
func (r *imageRepository) FindByHash(ctx context.Context, hash string) (*domain.Image, error) {
	query := fmt.Sprintf(`SELECT %s FROM images WHERE image_hash = $1`, imageColumns)

	image, err := scanImage(r.db.QueryRowContext(ctx, query, hash))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("failed to find image by hash: %w", err)
	}

	return image, nil
}

// ListByProduct retrieves all images of a product, newest first
func (r *imageRepository) ListByProduct(ctx context.Context, productID int64) ([]*domain.Image, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM images WHERE product_id = $1 ORDER BY created_at DESC
	`, imageColumns)

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer rows.Close()

	images := []*domain.Image{}
	for rows.Next() {
		image, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, image)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating images: %w", err)
	}

	return images, nil
}

// SetCover marks an image as its product's cover, clearing the flag on all
// sibling images inside one transaction
func (r *imageRepository) SetCover(ctx context.Context, id int64) (*domain.Image, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`SELECT %s FROM images WHERE id = $1`, imageColumns)
	image, err := scanImage(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("failed to find image by ID: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE images SET is_cover = false WHERE product_id = $1 AND id <> $2`,
		image.ProductID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to clear sibling covers: %w", err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE images SET is_cover = true WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to set cover: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit cover change: %w", err)
	}

	image.IsCover = true
	return image, nil
}

// CountProductsWithImages returns how many distinct products own at least one image
func (r *imageRepository) CountProductsWithImages(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT product_id) FROM images`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count products with images: %w", err)
	}
	return n, nil
}
