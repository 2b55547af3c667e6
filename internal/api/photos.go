package api

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/starford/ladle/internal/recipeservice"
)

const maxUploadBytes = 20 << 20 // 20 MB

var photoExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".heic": true, ".gif": true,
}

// PhotoHandler stores and serves cooking session photos.
type PhotoHandler struct {
	dir string
}

// NewPhotoHandler creates a handler that keeps photos in dir.
func NewPhotoHandler(dir string) *PhotoHandler {
	return &PhotoHandler{dir: dir}
}

// safeName validates that the filename is a plain name (no path separators,
// no traversal) and returns the absolute path under the photo dir.
func (h *PhotoHandler) safeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	abs := filepath.Join(h.dir, cleaned)
	if !strings.HasPrefix(abs, filepath.Clean(h.dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes photo directory")
	}
	return abs, nil
}

// ServeFile handles GET /photos/{filename}.
func (h *PhotoHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	abs, err := h.safeName(chi.URLParam(r, "filename"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

// Upload handles POST /api/recipes/{slug}/sessions/{id}/photos
// (multipart/form-data, field "file"). The stored name is random; only the
// extension of the client's filename is kept.
//
//	@Summary		Attach a photo to a cooking session
//	@Tags			sessions
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			slug	path		string	true	"Recipe slug"
//	@Param			id		path		int		true	"Session id"
//	@Param			file	formData	file	true	"Photo"
//	@Success		201		{object}	PhotoUploadResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recipes/{slug}/sessions/{id}/photos [post]
func (h *PhotoHandler) Upload(svc *recipeservice.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r)
		if err != nil {
			writeError(w, "upload photo", err)
			return
		}
		owner, slug := OwnerFrom(r.Context()), chi.URLParam(r, "slug")
		// Check the session before writing anything to disk.
		if _, err := svc.GetSession(r.Context(), owner, slug, id); err != nil {
			writeError(w, "upload photo", err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
			return
		}
		defer file.Close()

		ext := strings.ToLower(filepath.Ext(header.Filename))
		if !photoExts[ext] {
			writeJSON(w, http.StatusBadRequest, errorBody("unsupported photo type: "+ext))
			return
		}
		name := uuid.NewString() + ext
		abs, err := h.safeName(name)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}

		if err := os.MkdirAll(h.dir, 0o755); err != nil {
			writeJSON(w, http.StatusInternalServerError, errorBody("failed to create photo dir"))
			return
		}
		dst, err := os.Create(abs)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorBody("failed to create file"))
			return
		}
		written, err := io.Copy(dst, file)
		if cerr := dst.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(abs)
			writeJSON(w, http.StatusInternalServerError, errorBody("failed to write file"))
			return
		}

		url := "/photos/" + name
		sess, err := svc.AddSessionPhoto(r.Context(), owner, slug, id, url)
		if err != nil {
			_ = os.Remove(abs)
			writeError(w, "upload photo", err)
			return
		}
		writeJSON(w, http.StatusCreated, PhotoUploadResponse{
			Filename: name,
			Size:     written,
			URL:      url,
			Session:  sess,
		})
	}
}
