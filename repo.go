package snapsi

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// FolderRepo defines the interface for folder metadata persistence.
// Implementations must make every update an atomic single-row statement;
// no transaction spans more than one folder.
//
// All methods accept a context for cancellation and timeout control.
type FolderRepo interface {
	// Create inserts a folder with an image count of zero.
	Create(ctx context.Context, f NewFolder) (Folder, error)

	// Get retrieves a folder by id.
	//
	// Returns:
	//   - Folder: The folder if found
	//   - error: ErrNotFound if the folder doesn't exist, or other database errors
	Get(ctx context.Context, id uuid.UUID) (Folder, error)

	// RecordUpload sets last_upload_at to at and increments image_count by exactly one.
	//
	// Returns ErrNotFound if the folder vanished. Callers have already stored
	// an object at this point and decide whether to compensate.
	RecordUpload(ctx context.Context, id uuid.UUID, at time.Time) error

	// RecordDeletion decrements image_count by one, never below zero.
	//
	// Returns ErrNotFound if the folder vanished.
	RecordDeletion(ctx context.Context, id uuid.UUID) error

	// RecordCompletion sets image_count to count, taken from a fresh object
	// listing, and moves last_upload_at forward to at. It never moves
	// last_upload_at back, so repeating a call changes nothing.
	//
	// Returns ErrNotFound if the folder vanished.
	RecordCompletion(ctx context.Context, id uuid.UUID, count int, at time.Time) error

	// SetImageCount overwrites the cached count with a recount from the object store.
	SetImageCount(ctx context.Context, id uuid.UUID, count int) error

	// List returns folders ordered by creation time, paginated with an opaque cursor.
	List(ctx context.Context, q ListQuery) (ListResult, error)
}

// ObjectStore defines the interface for image storage.
// Implementations can use local filesystem, S3 or any other blob store.
//
// Keys have the form {folderID}/{name}. Content type and size limits are
// enforced by FolderService, not by the store.
type ObjectStore interface {
	// EnsureNamespace makes the folder's prefix exist by writing its marker
	// object if it is missing. The check and the write are not atomic; two
	// concurrent callers both writing the marker is harmless.
	EnsureNamespace(ctx context.Context, folderID string) error

	// List returns every image under the folder's prefix, excluding the
	// namespace marker and in-progress writes. It is the ground truth for quota.
	//
	// Returns an empty slice (not nil) when the folder holds no images.
	List(ctx context.Context, folderID string) ([]ObjectMeta, error)

	// Stat returns the metadata of one object, or ErrNotFound.
	Stat(ctx context.Context, key string) (ObjectMeta, error)

	// Put stores content under key. size is the expected length, or -1 if unknown.
	// The write must be atomic: readers never observe a partial object.
	Put(ctx context.Context, key, contentType string, size int64, content io.Reader) (ObjectMeta, error)

	// Delete removes an object, or returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, key string) error

	// UploadURL issues a capability to write exactly key with contentType within ttl.
	UploadURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)

	// ReadURL issues a capability to read key within ttl.
	ReadURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// DirectUploads is implemented by stores whose upload URLs point at the
// store itself rather than at this service, so completion has to be
// reported back through FolderService.CompleteUpload.
type DirectUploads interface {
	DirectUploads() bool
}
