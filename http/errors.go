package http

import (
	"errors"
	"net/http"

	"github.com/sagarc03/snapsi"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorMappings is ordered: ErrFileTooLarge wraps ErrInvalidInput and must
// match first.
var errorMappings = []errorMapping{
	{snapsi.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "file_too_large"},
	{snapsi.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{snapsi.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{snapsi.ErrForbidden, http.StatusForbidden, "forbidden"},
	{snapsi.ErrNotFound, http.StatusNotFound, "not_found"},
	{snapsi.ErrAlreadyExists, http.StatusConflict, "already_exists"},
	{snapsi.ErrQuotaExceeded, http.StatusConflict, "quota_exceeded"},
	{snapsi.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
	{snapsi.ErrStorage, http.StatusBadGateway, "upstream_error"},
	{snapsi.ErrMetadata, http.StatusBadGateway, "upstream_error"},
}

// classify returns the HTTP status and error code for err.
func classify(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}
