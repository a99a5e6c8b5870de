package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"modellion/internal/domain"
)

func insertImage(t *testing.T, repo ImageRepository, productID int64, filename, hash string, isCover bool) *domain.Image {
	t.Helper()
	image := &domain.Image{
		ProductID:   productID,
		Filename:    filename,
		Hash:        hash,
		StoragePath: fmt.Sprintf("figures/%d/%s_%s", productID, hash, filename),
		IsCover:     isCover,
		CreatedAt:   time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), image); err != nil {
		t.Fatalf("failed to insert image %s: %v", filename, err)
	}
	return image
}

func TestImageCreateAndUniqueness(t *testing.T) {
	truncateAll(t)
	products := NewProductRepository(testDB)
	repo := NewImageRepository(testDB)
	ctx := context.Background()

	product := insertProduct(t, products, "https://example.test/img/1", "p", "HG", "s", 100, time.Now().UTC())

	insertImage(t, repo, product.ID, "front.jpg", "aaaa0000", false)

	t.Run("same hash is rejected even under a different name", func(t *testing.T) {
		err := repo.Create(ctx, &domain.Image{
			ProductID:   product.ID,
			Filename:    "copy.jpg",
			Hash:        "aaaa0000",
			StoragePath: "figures/x",
			CreatedAt:   time.Now().UTC(),
		})
		if err != ErrDuplicateImageHash {
			t.Errorf("expected ErrDuplicateImageHash, got %v", err)
		}
	})

	t.Run("same filename on one product is rejected", func(t *testing.T) {
		err := repo.Create(ctx, &domain.Image{
			ProductID:   product.ID,
			Filename:    "front.jpg",
			Hash:        "bbbb1111",
			StoragePath: "figures/y",
			CreatedAt:   time.Now().UTC(),
		})
		if err != ErrDuplicateFilename {
			t.Errorf("expected ErrDuplicateFilename, got %v", err)
		}
	})

	t.Run("hash lookup spans products", func(t *testing.T) {
		found, err := repo.FindByHash(ctx, "aaaa0000")
		if err != nil {
			t.Fatalf("FindByHash failed: %v", err)
		}
		if found.Filename != "front.jpg" {
			t.Errorf("unexpected image found: %s", found.Filename)
		}
		if _, err := repo.FindByHash(ctx, "missing"); err != ErrImageNotFound {
			t.Errorf("expected ErrImageNotFound, got %v", err)
		}
	})
}

func TestImageCoverInvariant(t *testing.T) {
	truncateAll(t)
	products := NewProductRepository(testDB)
	repo := NewImageRepository(testDB)
	ctx := context.Background()

	product := insertProduct(t, products, "https://example.test/img/cover", "p", "HG", "s", 100, time.Now().UTC())

	insertImage(t, repo, product.ID, "a.jpg", "hash-a", true)
	second := insertImage(t, repo, product.ID, "b.jpg", "hash-b", true)
	insertImage(t, repo, product.ID, "c.jpg", "hash-c", false)

	countCovers := func() int {
		var n int
		if err := testDB.QueryRow(
			`SELECT COUNT(*) FROM images WHERE product_id = $1 AND is_cover`, product.ID).Scan(&n); err != nil {
			t.Fatalf("cover count query failed: %v", err)
		}
		return n
	}

	if n := countCovers(); n != 1 {
		t.Errorf("expected exactly one cover after inserts, got %d", n)
	}

	reloaded, err := repo.FindByID(ctx, second.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if !reloaded.IsCover {
		t.Error("expected the last cover insert to hold the flag")
	}

	images, err := repo.ListByProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("ListByProduct failed: %v", err)
	}
	if len(images) != 3 {
		t.Fatalf("expected 3 images, got %d", len(images))
	}

	// Promote c.jpg and verify the flag moved
	var target *domain.Image
	for _, img := range images {
		if img.Filename == "c.jpg" {
			target = img
		}
	}
	promoted, err := repo.SetCover(ctx, target.ID)
	if err != nil {
		t.Fatalf("SetCover failed: %v", err)
	}
	if !promoted.IsCover {
		t.Error("SetCover did not report the flag")
	}
	if n := countCovers(); n != 1 {
		t.Errorf("expected exactly one cover after SetCover, got %d", n)
	}

	if _, err := repo.SetCover(ctx, 99999); err != ErrImageNotFound {
		t.Errorf("expected ErrImageNotFound, got %v", err)
	}
}

func TestImageCascadeDelete(t *testing.T) {
	truncateAll(t)
	products := NewProductRepository(testDB)
	repo := NewImageRepository(testDB)
	ctx := context.Background()

	product := insertProduct(t, products, "https://example.test/img/cascade", "p", "HG", "s", 100, time.Now().UTC())
	image := insertImage(t, repo, product.ID, "a.jpg", "cascade-a", false)

	if err := products.Delete(ctx, product.ID); err != nil {
		t.Fatalf("product delete failed: %v", err)
	}

	if _, err := repo.FindByID(ctx, image.ID); err != ErrImageNotFound {
		t.Errorf("expected image to cascade away, got %v", err)
	}

	n, err := repo.CountProductsWithImages(ctx)
	if err != nil {
		t.Fatalf("CountProductsWithImages failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 products with images, got %d", n)
	}
}
