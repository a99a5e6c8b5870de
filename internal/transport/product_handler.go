package transport

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"modellion/internal/domain"
	"modellion/internal/middleware"
	"modellion/internal/repository"
	"modellion/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ProductRequest represents a product create or update payload. Absent
// fields stay untouched on update.
type ProductRequest struct {
	ProductName    *string `json:"product_name"`
	Price          *string `json:"price"`
	ReleaseDate    *string `json:"release_date"`
	ArticleContent *string `json:"article_content"`
	URL            *string `json:"url" validate:"omitempty,url"`
	ProductTag     *string `json:"product_tag"`
	Series         *string `json:"series"`
}

// ProductListResponse represents one page of catalog results
type ProductListResponse struct {
	Items    []*domain.Product `json:"items"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// ProductHandler handles HTTP requests for catalog maintenance
type ProductHandler struct {
	productService service.ProductService
	imageService   service.ImageService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, imageService service.ImageService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		imageService:   imageService,
		logger:         logger,
	}
}

// RegisterRoutes registers all product routes. Reads are open to every
// authenticated user, writes require the admin role.
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware, requireAdmin func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Get("/{id}/images", h.ListImages)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

func parseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func parseProductFilter(r *http.Request) repository.ProductFilter {
	q := r.URL.Query()

	filter := repository.ProductFilter{
		Name:     strings.TrimSpace(q.Get("name")),
		Tag:      strings.TrimSpace(q.Get("tag")),
		Series:   strings.TrimSpace(q.Get("series")),
		SortBy:   q.Get("sort_by"),
		Page:     1,
		PageSize: defaultPageSize,
	}

	if v, err := strconv.ParseInt(q.Get("price_min"), 10, 64); err == nil {
		filter.PriceMin = &v
	}
	if v, err := strconv.ParseInt(q.Get("price_max"), 10, 64); err == nil {
		filter.PriceMax = &v
	}
	if t, err := time.Parse("2006-01-02", q.Get("release_from")); err == nil {
		filter.ReleaseFrom = &t
	}
	if t, err := time.Parse("2006-01-02", q.Get("release_to")); err == nil {
		filter.ReleaseTo = &t
	}
	if t, err := time.Parse("2006-01-02", q.Get("created_from")); err == nil {
		filter.CreatedFrom = &t
	}
	if t, err := time.Parse("2006-01-02", q.Get("created_to")); err == nil {
		filter.CreatedTo = &t
	}
	if v, err := strconv.ParseBool(q.Get("has_images")); err == nil {
		filter.HasImages = &v
	}

	if strings.EqualFold(q.Get("sort_order"), "asc") {
		filter.SortOrder = repository.SortOrderAsc
	} else {
		filter.SortOrder = repository.SortOrderDesc
	}

	if page, err := strconv.Atoi(q.Get("page")); err == nil && page > 0 {
		filter.Page = page
	}
	if size, err := strconv.Atoi(q.Get("page_size")); err == nil && size > 0 {
		if size > maxPageSize {
			size = maxPageSize
		}
		filter.PageSize = size
	}

	return filter
}

// List handles catalog queries with filters, sorting and pagination
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := parseProductFilter(r)

	products, total, err := h.productService.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "查询产品列表失败")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductListResponse{
		Items:    products,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
}

// Get handles single product retrieval
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.productService.Get(r.Context(), id)
	if err != nil {
		if err == repository.ErrProductNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "产品不存在")
			return
		}
		h.logger.Error("Failed to get product", zap.Int64("id", id), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "查询产品失败")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// ListImages returns the images of a product
func (h *ProductHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	images, err := h.imageService.ListByProduct(r.Context(), id)
	if err != nil {
		if err == repository.ErrProductNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "产品不存在")
			return
		}
		h.logger.Error("Failed to list product images", zap.Int64("id", id), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "查询图片失败")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, images)
}

// Create handles manual product creation
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.URL == nil || *req.URL == "" {
		middleware.RespondWithError(w, http.StatusBadRequest, "缺少 url")
		return
	}

	product, err := h.productService.Create(r.Context(), productInput(req))
	if err != nil {
		if err == repository.ErrDuplicateURL {
			middleware.RespondWithError(w, http.StatusConflict, "URL 已存在")
			return
		}
		h.logger.Error("Failed to create product", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "创建产品失败")
		return
	}

	h.logger.Info("Product created", zap.Int64("id", product.ID), zap.String("url", product.URL))
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// Update handles partial product updates
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req ProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.productService.Update(r.Context(), id, productInput(req))
	if err != nil {
		switch err {
		case repository.ErrProductNotFound:
			middleware.RespondWithError(w, http.StatusNotFound, "产品不存在")
		case repository.ErrDuplicateURL:
			middleware.RespondWithError(w, http.StatusConflict, "URL 已存在")
		default:
			h.logger.Error("Failed to update product", zap.Int64("id", id), zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "更新产品失败")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Delete removes a product and, through the schema, its images
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.productService.Delete(r.Context(), id); err != nil {
		if err == repository.ErrProductNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "产品不存在")
			return
		}
		h.logger.Error("Failed to delete product", zap.Int64("id", id), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "删除产品失败")
		return
	}

	h.logger.Info("Product deleted", zap.Int64("id", id))
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "产品已删除"})
}

func productInput(req ProductRequest) service.ProductInput {
	return service.ProductInput{
		ProductName:    req.ProductName,
		Price:          req.Price,
		ReleaseDate:    req.ReleaseDate,
		ArticleContent: req.ArticleContent,
		URL:            req.URL,
		ProductTag:     req.ProductTag,
		Series:         req.Series,
	}
}
