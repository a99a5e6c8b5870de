package transport

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"modellion/internal/importer"
	"modellion/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxArchiveSize caps uploaded import archives at 512 MiB
const maxArchiveSize = 512 << 20

// DirectoryImportRequest represents a directory import payload. An empty
// path falls back to the configured data directory.
type DirectoryImportRequest struct {
	Path string `json:"path"`
}

// ImportHandler handles HTTP requests for bulk imports
type ImportHandler struct {
	batch   *importer.BatchImporter
	dataDir string
	logger  *zap.Logger
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(batch *importer.BatchImporter, dataDir string, logger *zap.Logger) *ImportHandler {
	return &ImportHandler{
		batch:   batch,
		dataDir: dataDir,
		logger:  logger,
	}
}

// RegisterRoutes registers all import routes; bulk imports are admin-only
func (h *ImportHandler) RegisterRoutes(r chi.Router, authMiddleware, requireAdmin func(http.Handler) http.Handler) {
	r.Route("/api/import", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(requireAdmin)

		r.Post("/json", h.ImportJSON)
		r.Post("/directory", h.ImportDirectory)
		r.Post("/zip", h.ImportZip)
	})
}

// ImportJSON runs the flat description-file import against the configured
// data directory
func (h *ImportHandler) ImportJSON(w http.ResponseWriter, r *http.Request) {
	report, err := h.batch.ImportJSON(r.Context(), h.dataDir)
	if err != nil {
		if errors.Is(err, importer.ErrDescriptionNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("JSON import failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "导入失败")
		return
	}

	h.logger.Info("JSON import finished",
		zap.Int("total", report.Total),
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("errors", len(report.Errors)),
	)
	middleware.RespondWithJSON(w, http.StatusOK, report)
}

// ImportDirectory walks a directory tree of per-product folders
func (h *ImportHandler) ImportDirectory(w http.ResponseWriter, r *http.Request) {
	var req DirectoryImportRequest
	if r.ContentLength > 0 {
		if err := middleware.DecodeAndValidate(r, &req); err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	root := req.Path
	if root == "" {
		root = h.dataDir
	}

	report, err := h.batch.ImportDir(r.Context(), root)
	if err != nil {
		h.logger.Error("Directory import failed", zap.String("root", root), zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "导入目录无法读取")
		return
	}

	h.logger.Info("Directory import finished",
		zap.String("root", root),
		zap.Int("total", report.Total),
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("errors", len(report.Errors)),
	)
	middleware.RespondWithJSON(w, http.StatusOK, report)
}

// ImportZip accepts an uploaded archive and imports its contents
func (h *ImportHandler) ImportZip(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxArchiveSize); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "缺少文件")
		return
	}
	defer file.Close()

	zipPath := filepath.Join(os.TempDir(), fmt.Sprintf("import-%s.zip", uuid.New().String()))
	tmp, err := os.Create(zipPath)
	if err != nil {
		h.logger.Error("Failed to create temp archive", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "导入失败")
		return
	}
	defer os.Remove(zipPath)

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		h.logger.Error("Failed to spool archive", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "导入失败")
		return
	}
	tmp.Close()

	report, err := h.batch.ImportArchive(r.Context(), zipPath)
	if err != nil {
		h.logger.Error("Archive import failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "压缩包无法打开")
		return
	}

	h.logger.Info("Archive import finished",
		zap.Int("total", report.Total),
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("errors", len(report.Errors)),
	)
	middleware.RespondWithJSON(w, http.StatusOK, report)
}
