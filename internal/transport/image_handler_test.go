package transport

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"modellion/internal/domain"
	"modellion/internal/middleware"
)

func multipartUpload(t *testing.T, router http.Handler, path, token, filename string, content []byte, isCover bool) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to build multipart form: %v", err)
	}
	part.Write(content)
	if isCover {
		writer.WriteField("is_cover", "true")
	}
	writer.Close()

	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestImageEndpoints(t *testing.T) {
	f := newProductFixture(t)

	url := "https://example.test/products/with-images"
	w := postJSON(f.router, "/api/products", ProductRequest{URL: &url}, f.adminToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("product create failed: %d", w.Code)
	}
	var product domain.Product
	json.Unmarshal(w.Body.Bytes(), &product)

	var uploaded domain.Image

	t.Run("admin can upload a cover image", func(t *testing.T) {
		w := multipartUpload(t, f.router, "/api/images/products/1", f.adminToken,
			"front.jpg", []byte("jpeg-bytes"), true)
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
		}
		if err := json.Unmarshal(w.Body.Bytes(), &uploaded); err != nil {
			t.Fatalf("failed to decode image: %v", err)
		}
		if !uploaded.IsCover {
			t.Error("expected uploaded image to be the cover")
		}
		if uploaded.Hash == "" || uploaded.StoragePath == "" {
			t.Errorf("expected hash and storage path to be set: %+v", uploaded)
		}
	})

	t.Run("duplicate content yields 409 with MD5 message", func(t *testing.T) {
		w := multipartUpload(t, f.router, "/api/images/products/1", f.adminToken,
			"other-name.jpg", []byte("jpeg-bytes"), false)
		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", w.Code)
		}
		var resp middleware.ErrorResponse
		json.Unmarshal(w.Body.Bytes(), &resp)
		if resp.Error.Message != "图片已存在（MD5 重复）" {
			t.Errorf("unexpected message: %q", resp.Error.Message)
		}
	})

	t.Run("upload to unknown product yields 404", func(t *testing.T) {
		w := multipartUpload(t, f.router, "/api/images/products/999", f.adminToken,
			"x.jpg", []byte("different-bytes"), false)
		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", w.Code)
		}
	})

	t.Run("readonly user cannot upload", func(t *testing.T) {
		w := multipartUpload(t, f.router, "/api/images/products/1", f.viewerToken,
			"y.jpg", []byte("more-bytes"), false)
		if w.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", w.Code)
		}
	})

	t.Run("presign returns a url", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/images/1/presign?expires=600", nil)
		req.Header.Set("Authorization", "Bearer "+f.viewerToken)
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var resp map[string]string
		json.Unmarshal(w.Body.Bytes(), &resp)
		if resp["url"] == "" {
			t.Error("expected a presigned url")
		}
	})

	t.Run("delete removes the image", func(t *testing.T) {
		req := httptest.NewRequest("DELETE", "/api/images/1?delete_object=true", nil)
		req.Header.Set("Authorization", "Bearer "+f.adminToken)
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}

		req = httptest.NewRequest("GET", "/api/images/1/presign", nil)
		req.Header.Set("Authorization", "Bearer "+f.adminToken)
		w = httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404 after delete, got %d", w.Code)
		}
	})
}
