package transport

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"modellion/internal/middleware"
	"modellion/internal/repository"
	"modellion/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxUploadSize caps multipart image uploads at 32 MiB
const maxUploadSize = 32 << 20

// ImageHandler handles HTTP requests for image management
type ImageHandler struct {
	imageService service.ImageService
	logger       *zap.Logger
}

// NewImageHandler creates a new ImageHandler
func NewImageHandler(imageService service.ImageService, logger *zap.Logger) *ImageHandler {
	return &ImageHandler{
		imageService: imageService,
		logger:       logger,
	}
}

// RegisterRoutes registers all image routes
func (h *ImageHandler) RegisterRoutes(r chi.Router, authMiddleware, requireAdmin func(http.Handler) http.Handler) {
	r.Route("/api/images", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/{id}/presign", h.Presign)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			r.Post("/products/{productID}", h.Upload)
			r.Post("/{id}/set-cover", h.SetCover)
			r.Delete("/{id}", h.Delete)
		})
	})
}

// Upload accepts a multipart image and attaches it to a product
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || productID <= 0 {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "缺少文件")
		return
	}
	defer file.Close()

	isCover, _ := strconv.ParseBool(r.FormValue("is_cover"))

	// Spool the upload to disk so it can be fingerprinted and stored
	tmpPath := filepath.Join(os.TempDir(), fmt.Sprintf("upload-%s%s", uuid.New().String(), filepath.Ext(header.Filename)))
	tmp, err := os.Create(tmpPath)
	if err != nil {
		h.logger.Error("Failed to create temp file", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "上传失败")
		return
	}
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		h.logger.Error("Failed to spool upload", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "上传失败")
		return
	}
	tmp.Close()

	image, err := h.imageService.Upload(r.Context(), productID, header.Filename, tmpPath, isCover)
	if err != nil {
		switch err {
		case repository.ErrProductNotFound:
			middleware.RespondWithError(w, http.StatusNotFound, "产品不存在")
		case repository.ErrDuplicateImageHash:
			middleware.RespondWithError(w, http.StatusConflict, "图片已存在（MD5 重复）")
		case repository.ErrDuplicateFilename:
			middleware.RespondWithError(w, http.StatusConflict, "该产品已有同名图片")
		default:
			h.logger.Error("Failed to upload image",
				zap.Int64("product_id", productID), zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "上传失败")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, image)
}

// Presign returns a temporary download URL for an image
func (h *ImageHandler) Presign(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid image id")
		return
	}

	ttl := service.DefaultPresignTTL
	if secs, err := strconv.Atoi(r.URL.Query().Get("expires")); err == nil && secs > 0 {
		ttl = time.Duration(secs) * time.Second
	}

	url, err := h.imageService.Presign(r.Context(), id, ttl)
	if err != nil {
		if err == repository.ErrImageNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "图片不存在")
			return
		}
		h.logger.Error("Failed to presign image", zap.Int64("id", id), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "生成下载链接失败")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"url": url})
}

// SetCover marks an image as its product's cover
func (h *ImageHandler) SetCover(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid image id")
		return
	}

	image, err := h.imageService.SetCover(r.Context(), id)
	if err != nil {
		if err == repository.ErrImageNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "图片不存在")
			return
		}
		h.logger.Error("Failed to set cover", zap.Int64("id", id), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "设置封面失败")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, image)
}

// Delete removes an image; ?delete_object=true also purges the stored file
func (h *ImageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid image id")
		return
	}

	deleteObject, _ := strconv.ParseBool(r.URL.Query().Get("delete_object"))

	if err := h.imageService.Delete(r.Context(), id, deleteObject); err != nil {
		if err == repository.ErrImageNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "图片不存在")
			return
		}
		h.logger.Error("Failed to delete image", zap.Int64("id", id), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "删除图片失败")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "图片已删除"})
}
