package snapsi

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Folder is a named container of images, identified by an opaque id.
type Folder struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	LastUploadAt *time.Time `json:"last_upload_at,omitempty"`
	ImageCount   int        `json:"image_count"`
}

// HasPassword reports whether mutations of the folder require a password.
func (f Folder) HasPassword() bool {
	return f.PasswordHash != ""
}

// NewFolder is the input of FolderRepo.Create.
type NewFolder struct {
	Name         string
	PasswordHash string
}

type CreateFolderRequest struct {
	Name     string
	Password string
}

// ObjectMeta describes one stored image.
type ObjectMeta struct {
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// Image is an object together with a time-bounded URL to read it.
type Image struct {
	ObjectMeta
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type UploadRequest struct {
	FolderID      string
	FileName      string
	ContentType   string
	Size          int64
	Password      string
	ClientAddress string
}

// UploadIntent is a capability to store exactly one object under Key with
// ContentType, valid until ExpiresAt.
type UploadIntent struct {
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Method      string    `json:"method"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at"`

	// CompleteRequired is set when the URL points at the object store itself
	// and the client has to call CompleteUpload after a successful PUT.
	CompleteRequired bool `json:"complete_required"`
}

type CompleteUploadRequest struct {
	FolderID      string
	Name          string
	Password      string
	ClientAddress string
}

type RecountRequest struct {
	FolderID      string
	Password      string
	ClientAddress string
}

type DeleteRequest struct {
	FolderID      string
	Name          string
	Password      string
	ClientAddress string
}

type ListQuery struct {
	Limit  int
	Cursor string
}

type ListResult struct {
	Items      []Folder `json:"items"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

// Operation names a rate limited action.
type Operation string

const (
	OpUpload   Operation = "upload"
	OpComplete Operation = "complete"
	OpDelete   Operation = "delete"
	OpRecount  Operation = "recount"
)

// RateKey builds the limiter key for a client acting on a folder.
func RateKey(folderID, clientAddress string, op Operation) string {
	return folderID + ":" + clientAddress + ":" + string(op)
}

// Policy holds the caller-facing limits enforced by FolderService.
type Policy struct {
	MaxFileSize         int64
	AllowedContentTypes []string
	MaxImagesPerFolder  int
	UploadURLTTL        time.Duration
	ReadURLTTL          time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxFileSize:         10 << 20,
		AllowedContentTypes: []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
		MaxImagesPerFolder:  20,
		UploadURLTTL:        15 * time.Minute,
		ReadURLTTL:          24 * time.Hour,
	}
}

func (p Policy) AllowsContentType(contentType string) bool {
	return slices.Contains(p.AllowedContentTypes, contentType)
}

func (p Policy) Validate() error {
	if p.MaxFileSize <= 0 {
		return errors.New("validate policy: max file size must be positive")
	}
	if len(p.AllowedContentTypes) == 0 {
		return errors.New("validate policy: at least one content type must be allowed")
	}
	if p.MaxImagesPerFolder <= 0 {
		return errors.New("validate policy: max images per folder must be positive")
	}
	if p.UploadURLTTL <= 0 || p.ReadURLTTL <= 0 {
		return errors.New("validate policy: url ttl must be positive")
	}
	return nil
}

// Tables holds configurable table names for folder storage.
// This allows multi-tenant deployments to use different table names.
type Tables struct {
	Folders string `mapstructure:"folders" yaml:"folders"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.Folders == "" {
		return errors.New("validate tables: folders table name cannot be empty")
	}

	if !IsValidTableName(t.Folders) {
		return fmt.Errorf("validate tables: invalid folders table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.Folders)
	}

	return nil
}
