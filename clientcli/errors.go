package clientcli

import (
	"errors"
	"net/http"
	"strconv"
	"time"
)

// Errors for profile operations.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrNoProfiles      = errors.New("no profiles configured")
	ErrProfileExists   = errors.New("profile already exists")
)

// Errors for configuration and input validation.
var (
	ErrConfigRequired = errors.New("config is required")
	ErrNoPaths        = errors.New("no paths provided")
	ErrEmptyPath      = errors.New("path is required")
	ErrFolderRequired = errors.New("folder id is required")
	ErrImageNotFound  = errors.New("image not found in folder")
)

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Code       string // machine readable code, e.g. "quota_exceeded"
	Message    string
	RetryAfter time.Duration // set on 429 responses
}

func (e *APIError) Error() string {
	msg := "server error: " + strconv.Itoa(e.StatusCode)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Message != "" {
		msg += " - " + e.Message
	}
	return msg
}

// Is reports whether target matches this error.
// It matches if target is an *APIError with the same StatusCode and, when
// the target sets one, the same Code.
func (e *APIError) Is(target error) bool {
	var t *APIError
	if !errors.As(target, &t) {
		return false
	}
	if t.StatusCode != e.StatusCode {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// Sentinel errors for common API error conditions.
// Use errors.Is() to check for these conditions.
var (
	// ErrNotFound is returned when the folder or image does not exist (404).
	ErrNotFound = &APIError{StatusCode: http.StatusNotFound}

	// ErrForbidden is returned when the folder password is wrong or missing (403).
	ErrForbidden = &APIError{StatusCode: http.StatusForbidden}

	// ErrUnauthorized is returned when a signed URL was rejected (401).
	ErrUnauthorized = &APIError{StatusCode: http.StatusUnauthorized}

	// ErrPasswordRequired is returned by VerifyPassword when no password was given
	// for a protected folder.
	ErrPasswordRequired = &APIError{StatusCode: http.StatusBadRequest, Code: "password_required"}

	// ErrQuotaExceeded is returned when the folder is full.
	ErrQuotaExceeded = &APIError{StatusCode: http.StatusConflict, Code: "quota_exceeded"}

	// ErrRateLimited is returned when the client has to wait before retrying.
	ErrRateLimited = &APIError{StatusCode: http.StatusTooManyRequests}
)
