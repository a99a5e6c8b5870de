package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modellion/internal/domain"
	"modellion/internal/hash"
	"modellion/internal/normalize"
	"modellion/internal/repository"
	"modellion/internal/storage"
	"modellion/internal/translate"

	"go.uber.org/zap"
)

// Outcome of reconciling one product description
type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeUpdated  Outcome = "updated"
	OutcomeRejected Outcome = "rejected"
)

// Localized product_info keys carrying the freeform price and release date
const (
	priceInfoKey       = "価格"
	releaseDateInfoKey = "発売日"
)

// ImagesSubdir is the per-product folder holding detail (non-cover) images
const ImagesSubdir = "images"

// ImportItem is one product description as found in a description file
type ImportItem struct {
	URL            string            `json:"url"`
	ProductName    *string           `json:"product_name"`
	ImageLinks     []string          `json:"image_links"`
	ProductInfo    map[string]string `json:"product_info"`
	ArticleContent *string           `json:"article_content"`
	ProductTag     *string           `json:"product_tag"`
	Series         *string           `json:"series"`
}

// Result of reconciling one product description
type Result struct {
	Outcome       Outcome
	ProductID     int64
	ImagesAdded   int
	ImagesSkipped int
	Errors        []string
}

// Reconciler upserts one product description against the catalog and
// optionally ingests a co-located directory of image files
type Reconciler struct {
	products   repository.ProductRepository
	images     repository.ImageRepository
	store      storage.ObjectStore
	translator translate.Translator
	sourceLang string
	targetLang string
	logger     *zap.Logger
}

// NewReconciler creates a new Reconciler
func NewReconciler(
	products repository.ProductRepository,
	images repository.ImageRepository,
	store storage.ObjectStore,
	translator translate.Translator,
	sourceLang, targetLang string,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		products:   products,
		images:     images,
		store:      store,
		translator: translator,
		sourceLang: sourceLang,
		targetLang: targetLang,
		logger:     logger,
	}
}

// Reconcile upserts the product identified by item.URL and, when imageDir is
// non-empty, ingests the image files found there. Per-file problems are
// collected into the result's Errors and never abort the remaining files.
func (r *Reconciler) Reconcile(ctx context.Context, item ImportItem, imageDir string) Result {
	res := Result{Errors: []string{}}

	if item.URL == "" {
		res.Outcome = OutcomeRejected
		res.Errors = append(res.Errors, "缺少 url，无法匹配产品")
		return res
	}

	existing, err := r.products.FindByURL(ctx, item.URL)
	switch {
	case err == nil:
		res.Outcome = OutcomeUpdated
		if err := r.update(ctx, existing, item); err != nil {
			res.Outcome = OutcomeRejected
			res.Errors = append(res.Errors, err.Error())
			return res
		}
		res.ProductID = existing.ID
	case errors.Is(err, repository.ErrProductNotFound):
		res.Outcome = OutcomeCreated
		created, err := r.create(ctx, item)
		if err != nil {
			res.Outcome = OutcomeRejected
			res.Errors = append(res.Errors, err.Error())
			return res
		}
		res.ProductID = created.ID
	default:
		res.Outcome = OutcomeRejected
		res.Errors = append(res.Errors, err.Error())
		return res
	}

	if imageDir != "" {
		r.ingestImages(ctx, res.ProductID, imageDir, &res)
	}

	return res
}

func (r *Reconciler) create(ctx context.Context, item ImportItem) (*domain.Product, error) {
	product := &domain.Product{
		ProductName:    item.ProductName,
		ArticleContent: item.ArticleContent,
		URL:            item.URL,
		ProductTag:     item.ProductTag,
		Series:         item.Series,
		CreatedAt:      time.Now().UTC(),
	}
	if item.ProductInfo != nil {
		if price, ok := item.ProductInfo[priceInfoKey]; ok {
			product.Price = &price
		}
		if release, ok := item.ProductInfo[releaseDateInfoKey]; ok {
			product.ReleaseDate = &release
		}
	}

	product.ProductNameCN = r.translateName(ctx, product.ProductName)
	applyDerivedFields(product)

	if err := r.products.Create(ctx, product); err != nil {
		// A concurrent import may have won the insert; surface it as a
		// per-unit failure, not a crash
		return nil, err
	}
	return product, nil
}

// update applies the overwrite-if-supplied merge: fields absent from the
// incoming item keep their stored value. The translated name is the one
// exception, recomputed unconditionally on every attempt.
func (r *Reconciler) update(ctx context.Context, product *domain.Product, item ImportItem) error {
	if item.ProductName != nil {
		product.ProductName = item.ProductName
	}
	if item.ProductInfo != nil {
		if price, ok := item.ProductInfo[priceInfoKey]; ok {
			p := price
			product.Price = &p
		}
		if release, ok := item.ProductInfo[releaseDateInfoKey]; ok {
			rd := release
			product.ReleaseDate = &rd
		}
	}
	if item.ArticleContent != nil {
		product.ArticleContent = item.ArticleContent
	}
	if item.ProductTag != nil {
		product.ProductTag = item.ProductTag
	}
	if item.Series != nil {
		product.Series = item.Series
	}

	product.ProductNameCN = r.translateName(ctx, product.ProductName)
	applyDerivedFields(product)

	return r.products.Update(ctx, product)
}

// translateName yields the translated display name, or nil when translation
// is unavailable. Translation failure is never an error.
func (r *Reconciler) translateName(ctx context.Context, name *string) *string {
	if name == nil || *name == "" {
		return nil
	}
	translated, ok := r.translator.Translate(ctx, *name, r.sourceLang, r.targetLang)
	if !ok {
		return nil
	}
	return &translated
}

// applyDerivedFields recomputes the queryable price/date values from their
// freeform text sources. They are never set independently.
func applyDerivedFields(product *domain.Product) {
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

// ingestImages walks the image candidates of one product directory: files
// directly in the directory are cover candidates, files under images/ are
// detail pictures. Duplicate content (by md5, across the whole catalog) is
// skipped, which makes re-imports idempotent.
func (r *Reconciler) ingestImages(ctx context.Context, productID int64, dir string, res *Result) {
	for _, candidate := range collectImageFiles(dir) {
		if err := r.ingestOne(ctx, productID, candidate, res); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", filepath.Base(candidate.path), err))
		}
	}
}

type imageCandidate struct {
	path    string
	isCover bool
}

func collectImageFiles(dir string) []imageCandidate {
	candidates := []imageCandidate{}

	// Root-level files first, in listing order
	entries, err := os.ReadDir(dir)
	if err != nil {
		return candidates
	}
	for _, e := range entries {
		if !e.IsDir() && isImageFile(e.Name()) {
			candidates = append(candidates, imageCandidate{
				path:    filepath.Join(dir, e.Name()),
				isCover: true,
			})
		}
	}

	// Then the images/ subdirectory, name-sorted (ReadDir guarantees order)
	subEntries, err := os.ReadDir(filepath.Join(dir, ImagesSubdir))
	if err != nil {
		return candidates
	}
	for _, e := range subEntries {
		if !e.IsDir() && isImageFile(e.Name()) {
			candidates = append(candidates, imageCandidate{
				path:    filepath.Join(dir, ImagesSubdir, e.Name()),
				isCover: false,
			})
		}
	}

	return candidates
}

func (r *Reconciler) ingestOne(ctx context.Context, productID int64, candidate imageCandidate, res *Result) error {
	digest, err := hash.MD5OfFile(candidate.path)
	if err != nil {
		return err
	}

	_, err = r.images.FindByHash(ctx, digest)
	if err == nil {
		res.ImagesSkipped++
		return nil
	}
	if !errors.Is(err, repository.ErrImageNotFound) {
		return err
	}

	filename := filepath.Base(candidate.path)
	objectName := fmt.Sprintf("%d/%s_%s", productID, digest, filename)

	storedPath, err := r.store.Put(ctx, candidate.path, objectName)
	if err != nil {
		return err
	}

	image := &domain.Image{
		ProductID:   productID,
		Filename:    filename,
		Hash:        digest,
		StoragePath: storedPath,
		IsCover:     candidate.isCover,
		CreatedAt:   time.Now().UTC(),
	}

	if err := r.images.Create(ctx, image); err != nil {
		if errors.Is(err, repository.ErrDuplicateImageHash) {
			// Lost a race against a concurrent import of the same bytes
			res.ImagesSkipped++
			return nil
		}
		return err
	}

	res.ImagesAdded++
	r.logger.Debug("Image ingested",
		zap.Int64("product_id", productID),
		zap.String("filename", filename),
		zap.Bool("is_cover", candidate.isCover),
	)
	return nil
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp":
		return true
	}
	return false
}
