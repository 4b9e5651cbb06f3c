package http

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/sagarc03/snapsi"
)

// objectKey extracts the object key from an /objects/* request.
func objectKey(r *http.Request) (string, error) {
	key, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil {
		return "", fmt.Errorf("%w: malformed object key", snapsi.ErrInvalidInput)
	}

	if _, _, err := snapsi.SplitObjectKey(key); err != nil {
		return "", err
	}
	return key, nil
}

// handleGetObject serves an image for a signed read URL.
func (h *Handler) handleGetObject(w http.ResponseWriter, r *http.Request) {
	key, err := objectKey(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	content, meta, err := h.config.Objects.Open(r.Context(), key)
	if err != nil {
		HandleError(w, err)
		return
	}
	defer func() { _ = content.Close() }()

	w.Header().Set("Content-Type", meta.ContentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	http.ServeContent(w, r, meta.Name, meta.CreatedAt, content)
}

// handlePutObject stores the body sent to a signed upload URL. The signature
// already bound the key and the Content-Type.
func (h *Handler) handlePutObject(w http.ResponseWriter, r *http.Request) {
	key, err := objectKey(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	meta, err := h.service.AcceptUpload(r.Context(), key, mediaType(r.Header.Get("Content-Type")), r.ContentLength, r.Body)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusCreated, meta)
}
