package http_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sagarc03/snapsi"
	snapsihttp "github.com/sagarc03/snapsi/http"
	"github.com/stretchr/testify/assert"
)

func TestHandleError(t *testing.T) {
	tt := []struct {
		Name     string
		Err      error
		Status   int
		Code     string
		HideText bool
	}{
		{Name: "not found", Err: snapsi.ErrNotFound, Status: http.StatusNotFound, Code: "not_found"},
		{Name: "invalid input", Err: snapsi.ErrInvalidInput, Status: http.StatusBadRequest, Code: "invalid_input"},
		{Name: "file too large", Err: fmt.Errorf("upload image: %w", snapsi.ErrFileTooLarge), Status: http.StatusRequestEntityTooLarge, Code: "file_too_large"},
		{Name: "unauthorized", Err: snapsi.ErrUnauthorized, Status: http.StatusUnauthorized, Code: "unauthorized"},
		{Name: "forbidden", Err: snapsi.ErrForbidden, Status: http.StatusForbidden, Code: "forbidden"},
		{Name: "already exists", Err: snapsi.ErrAlreadyExists, Status: http.StatusConflict, Code: "already_exists"},
		{Name: "quota", Err: snapsi.ErrQuotaExceeded, Status: http.StatusConflict, Code: "quota_exceeded"},
		{Name: "rate limited", Err: snapsi.ErrRateLimited, Status: http.StatusTooManyRequests, Code: "rate_limited"},
		{Name: "storage", Err: fmt.Errorf("put: %w: disk full", snapsi.ErrStorage), Status: http.StatusBadGateway, Code: "upstream_error", HideText: true},
		{Name: "metadata", Err: snapsi.ErrMetadata, Status: http.StatusBadGateway, Code: "upstream_error", HideText: true},
		{Name: "joined", Err: errors.Join(errors.New("context"), snapsi.ErrNotFound), Status: http.StatusNotFound, Code: "not_found"},
		{Name: "unknown", Err: errors.New("secret detail"), Status: http.StatusInternalServerError, Code: "internal_error", HideText: true},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			snapsihttp.HandleError(rec, tc.Err)

			assert.Equal(t, tc.Status, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error":"`+tc.Code+`"`)
			if tc.HideText {
				assert.NotContains(t, rec.Body.String(), "secret detail")
				assert.NotContains(t, rec.Body.String(), "disk full")
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()

	snapsihttp.WriteError(rec, http.StatusBadRequest, "bad_request", "Invalid request")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"error":"bad_request"`)
	assert.Contains(t, rec.Body.String(), `"message":"Invalid request"`)
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	err := snapsihttp.WriteJSON(rec, http.StatusCreated, map[string]string{"key": "value"})

	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"key":"value"`)

	// channels cannot be encoded
	assert.Error(t, snapsihttp.WriteJSON(httptest.NewRecorder(), http.StatusOK, make(chan int)))
}
