package importer

import (
	"context"
	"fmt"
	"time"

	"modellion/internal/domain"
	"modellion/internal/repository"
)

// In-memory repositories and collaborators for importer tests

type mockProductRepository struct {
	byURL  map[string]*domain.Product
	nextID int64
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{byURL: make(map[string]*domain.Product), nextID: 1}
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	if _, exists := m.byURL[product.URL]; exists {
		return repository.ErrDuplicateURL
	}
	product.ID = m.nextID
	m.nextID++
	cp := *product
	m.byURL[product.URL] = &cp
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	for url, p := range m.byURL {
		if p.ID == product.ID {
			if url != product.URL {
				if _, exists := m.byURL[product.URL]; exists {
					return repository.ErrDuplicateURL
				}
				delete(m.byURL, url)
			}
			cp := *product
			m.byURL[product.URL] = &cp
			return nil
		}
	}
	return repository.ErrProductNotFound
}

func (m *mockProductRepository) Delete(ctx context.Context, id int64) error {
	for url, p := range m.byURL {
		if p.ID == id {
			delete(m.byURL, url)
			return nil
		}
	}
	return repository.ErrProductNotFound
}

func (m *mockProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	for _, p := range m.byURL {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (m *mockProductRepository) FindByURL(ctx context.Context, url string) (*domain.Product, error) {
	p, exists := m.byURL[url]
	if !exists {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	items := []*domain.Product{}
	for _, p := range m.byURL {
		cp := *p
		items = append(items, &cp)
	}
	return items, len(items), nil
}

func (m *mockProductRepository) CountByColumn(ctx context.Context, column string) (map[string]int, error) {
	return map[string]int{}, nil
}

func (m *mockProductRepository) Recent(ctx context.Context, limit int) ([]*domain.Product, error) {
	return nil, nil
}

func (m *mockProductRepository) Count(ctx context.Context) (int, error) {
	return len(m.byURL), nil
}

type mockImageRepository struct {
	byHash map[string]*domain.Image
	nextID int64
}

func newMockImageRepository() *mockImageRepository {
	return &mockImageRepository{byHash: make(map[string]*domain.Image), nextID: 1}
}

func (m *mockImageRepository) Create(ctx context.Context, image *domain.Image) error {
	if _, exists := m.byHash[image.Hash]; exists {
		return repository.ErrDuplicateImageHash
	}
	for _, img := range m.byHash {
		if img.ProductID == image.ProductID && img.Filename == image.Filename {
			return repository.ErrDuplicateFilename
		}
	}
	if image.IsCover {
		for _, img := range m.byHash {
			if img.ProductID == image.ProductID {
				img.IsCover = false
			}
		}
	}
	image.ID = m.nextID
	m.nextID++
	cp := *image
	m.byHash[image.Hash] = &cp
	return nil
}

func (m *mockImageRepository) Delete(ctx context.Context, id int64) error {
	for hash, img := range m.byHash {
		if img.ID == id {
			delete(m.byHash, hash)
			return nil
		}
	}
	return repository.ErrImageNotFound
}

func (m *mockImageRepository) FindByID(ctx context.Context, id int64) (*domain.Image, error) {
	for _, img := range m.byHash {
		if img.ID == id {
			cp := *img
			return &cp, nil
		}
	}
	return nil, repository.ErrImageNotFound
}

func (m *mockImageRepository) FindByHash(ctx context.Context, hash string) (*domain.Image, error) {
	img, exists := m.byHash[hash]
	if !exists {
		return nil, repository.ErrImageNotFound
	}
	cp := *img
	return &cp, nil
}

func (m *mockImageRepository) ListByProduct(ctx context.Context, productID int64) ([]*domain.Image, error) {
	images := []*domain.Image{}
	for _, img := range m.byHash {
		if img.ProductID == productID {
			cp := *img
			images = append(images, &cp)
		}
	}
	return images, nil
}

func (m *mockImageRepository) SetCover(ctx context.Context, id int64) (*domain.Image, error) {
	target, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, img := range m.byHash {
		if img.ProductID == target.ProductID {
			img.IsCover = img.ID == id
		}
	}
	target.IsCover = true
	return target, nil
}

func (m *mockImageRepository) CountProductsWithImages(ctx context.Context) (int, error) {
	seen := map[int64]bool{}
	for _, img := range m.byHash {
		seen[img.ProductID] = true
	}
	return len(seen), nil
}

type fakeObjectStore struct {
	objects map[string]string // objectName -> source path
	fail    bool
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string]string)}
}

func (f *fakeObjectStore) Put(ctx context.Context, localPath, objectName string) (string, error) {
	if f.fail {
		return "", fmt.Errorf("object store unavailable")
	}
	f.objects[objectName] = localPath
	return "test-bucket/" + objectName, nil
}

func (f *fakeObjectStore) Remove(ctx context.Context, storedPath string) error {
	return nil
}

func (f *fakeObjectStore) PresignedURL(ctx context.Context, storedPath string, ttl time.Duration) (string, error) {
	return "http://example.test/" + storedPath, nil
}

type fakeTranslator struct {
	prefix string
	fail   bool
}

func (f *fakeTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, bool) {
	if f.fail {
		return "", false
	}
	return f.prefix + text, true
}
