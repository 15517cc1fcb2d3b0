package api

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

const maxUploadSize = 10 << 20

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// UploadImage stores a product image in object storage and returns its
// public URL.
func (h *Handlers) UploadImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, "file too large", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, "image file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		respondError(w, "file too large", http.StatusBadRequest)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if !allowedImageTypes[contentType] {
		respondError(w, "unsupported image type", http.StatusBadRequest)
		return
	}

	key := fmt.Sprintf("products/%d-%s", time.Now().UnixNano(), sanitizeFilename(header.Filename))
	url, err := h.uploads.Upload(r.Context(), key, contentType, file)
	if err != nil {
		respondError(w, "upload failed", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"key": key, "url": url})
}

// ListUploads returns the keys and public URLs under the products/ prefix.
func (h *Handlers) ListUploads(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		prefix = "products/"
	}

	keys, err := h.uploads.List(r.Context(), prefix)
	if err != nil {
		respondError(w, "list failed", http.StatusInternalServerError)
		return
	}

	type uploadedFile struct {
		Key string `json:"key"`
		URL string `json:"url"`
	}
	files := make([]uploadedFile, 0, len(keys))
	for _, key := range keys {
		files = append(files, uploadedFile{Key: key, URL: h.uploads.URL(key)})
	}
	respondJSON(w, http.StatusOK, files)
}

func (h *Handlers) DeleteUpload(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("file")
	if key == "" {
		respondError(w, "file query parameter is required", http.StatusBadRequest)
		return
	}

	if err := h.uploads.Delete(r.Context(), key); err != nil {
		respondError(w, "delete failed", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "file deleted"})
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, base)
}
