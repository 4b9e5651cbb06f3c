package clientcli

import (
	"time"
)

// Folder is a folder as reported by the server.
type Folder struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	HasPassword  bool       `json:"has_password"`
	CreatedAt    time.Time  `json:"created_at"`
	LastUploadAt *time.Time `json:"last_upload_at,omitempty"`
	ImageCount   int        `json:"image_count"`
}

// Image is one image of a folder with a time-bounded read URL.
type Image struct {
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
	URL         string    `json:"url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// UploadOptions configures an upload operation.
type UploadOptions struct {
	FolderID    string
	Paths       []string
	ContentType string // optional, detected from the file content if empty
	Password    string

	// Direct sends the bytes through the API instead of requesting an
	// upload URL first.
	Direct bool
}

// UploadResult represents the result of uploading a single file.
type UploadResult struct {
	LocalPath   string    `json:"local_path"`
	Name        string    `json:"name"`
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
	Err         error     `json:"-"` // nil on success
}

// DownloadOptions configures a download operation.
type DownloadOptions struct {
	FolderID  string
	Name      string
	LocalPath string // empty = image name, "-" = stdout
}

// DownloadResult represents the result of downloading an image.
type DownloadResult struct {
	Name        string `json:"name"`
	LocalPath   string `json:"local_path"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// DeleteOptions configures a delete operation.
type DeleteOptions struct {
	FolderID string
	Names    []string
	Password string
}

// DeleteResult represents the result of deleting a single image.
type DeleteResult struct {
	Name    string `json:"name"`
	Deleted bool   `json:"deleted"`
	Err     error  `json:"-"` // nil on success
}

// objectMeta mirrors the object JSON returned by the server after an upload.
type objectMeta struct {
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// uploadIntent mirrors the response of an upload URL request.
type uploadIntent struct {
	Key              string    `json:"key"`
	Name             string    `json:"name"`
	URL              string    `json:"url"`
	Method           string    `json:"method"`
	ContentType      string    `json:"content_type"`
	ExpiresAt        time.Time `json:"expires_at"`
	CompleteRequired bool      `json:"complete_required"`
}
