package snapsi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxFolderNameLength = 255

// FolderService is the access controller for folders and their images.
//
// Every mutating operation runs the same pipeline and aborts at the first
// failing step:
//
//	RATE_CHECK -> AUTHN -> QUOTA_CHECK (uploads) -> STORAGE_OP -> METADATA_SYNC -> RATE_COMMIT
//
// The rate limiter is consulted first and incremented last, so rejected or
// failed attempts never consume a client's budget. Folder metadata is only
// touched after storage confirmed the mutation; a metadata failure at that
// point is logged and the operation still succeeds.
type FolderService struct {
	repo    FolderRepo
	store   ObjectStore
	policy  Policy
	uploads *RateLimiter
	deletes *RateLimiter

	storeTimeout    time.Duration
	metadataTimeout time.Duration
	now             func() time.Time
}

// ServiceConfig holds configuration options for FolderService.
type ServiceConfig struct {
	Policy          Policy
	UploadLimiter   *RateLimiter     // default: 5 per minute
	DeleteLimiter   *RateLimiter     // default: 100 per minute
	StoreTimeout    time.Duration    // Timeout per object store call (default: 30s)
	MetadataTimeout time.Duration    // Timeout per metadata store call (default: 10s)
	Now             func() time.Time // default: time.Now
}

func NewFolderService(repo FolderRepo, store ObjectStore, cfg ServiceConfig) (*FolderService, error) {
	if repo == nil || store == nil {
		return nil, errors.New("new folder service: repo and store are required")
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("new folder service: %w", err)
	}

	s := &FolderService{
		repo:            repo,
		store:           store,
		policy:          cfg.Policy,
		uploads:         cfg.UploadLimiter,
		deletes:         cfg.DeleteLimiter,
		storeTimeout:    cfg.StoreTimeout,
		metadataTimeout: cfg.MetadataTimeout,
		now:             cfg.Now,
	}
	if s.uploads == nil {
		s.uploads = NewRateLimiter(5, time.Minute)
	}
	if s.deletes == nil {
		s.deletes = NewRateLimiter(100, time.Minute)
	}
	if s.storeTimeout <= 0 {
		s.storeTimeout = 30 * time.Second
	}
	if s.metadataTimeout <= 0 {
		s.metadataTimeout = 10 * time.Second
	}
	if s.now == nil {
		s.now = time.Now
	}

	return s, nil
}

func (s *FolderService) Policy() Policy {
	return s.policy
}

// RetryAfter reports how long a rate limited client has to wait.
func (s *FolderService) RetryAfter(folderID, clientAddress string, op Operation) time.Duration {
	id, err := ParseFolderID(folderID)
	if err != nil {
		return 0
	}
	key := RateKey(id.String(), clientAddress, op)
	if op == OpDelete {
		return s.deletes.RetryAfter(key)
	}
	return s.uploads.RetryAfter(key)
}

// CreateFolder creates a folder. An empty password creates a public folder.
//
// Error types returned:
//   - ErrInvalidInput: empty or too long name, password too long
//   - ErrMetadata: the metadata store failed
func (s *FolderService) CreateFolder(ctx context.Context, req CreateFolderRequest) (Folder, error) {
	const op = "create folder"

	if err := ctx.Err(); err != nil {
		return Folder{}, fmt.Errorf("%s: %w", op, err)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return Folder{}, fmt.Errorf("%s: %w: name cannot be empty", op, ErrInvalidInput)
	}
	if len([]rune(name)) > maxFolderNameLength {
		return Folder{}, fmt.Errorf("%s: %w: name longer than %d characters", op, ErrInvalidInput, maxFolderNameLength)
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return Folder{}, fmt.Errorf("%s: %w", op, err)
	}

	mctx, cancel := context.WithTimeout(ctx, s.metadataTimeout)
	defer cancel()

	folder, err := s.repo.Create(mctx, NewFolder{Name: name, PasswordHash: hash})
	if err != nil {
		return Folder{}, metadataError(op, err)
	}

	return folder, nil
}

func (s *FolderService) GetFolder(ctx context.Context, folderID string) (Folder, error) {
	const op = "get folder"

	if err := ctx.Err(); err != nil {
		return Folder{}, fmt.Errorf("%s: %w", op, err)
	}

	id, err := ParseFolderID(folderID)
	if err != nil {
		return Folder{}, fmt.Errorf("%s: %w", op, err)
	}

	return s.loadFolder(ctx, op, id)
}

// VerifyPassword reports whether password unlocks the folder. Folders
// without a password accept any input.
func (s *FolderService) VerifyPassword(ctx context.Context, folderID, password string) (bool, error) {
	const op = "verify password"

	folder, err := s.GetFolder(ctx, folderID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	ok, err := CheckPassword(folder.PasswordHash, password)
	if err != nil {
		return false, metadataError(op, err)
	}
	return ok, nil
}

// ListImages returns the images of a folder from a fresh store listing, each
// with a read URL valid for the policy's read TTL.
func (s *FolderService) ListImages(ctx context.Context, folderID string) ([]Image, error) {
	const op = "list images"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	id, err := ParseFolderID(folderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.loadFolder(ctx, op, id); err != nil {
		return nil, err
	}

	objects, err := s.listObjects(ctx, op, id)
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(s.policy.ReadURLTTL)
	images := make([]Image, 0, len(objects))
	for _, obj := range objects {
		sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
		u, err := s.store.ReadURL(sctx, obj.Key, s.policy.ReadURLTTL)
		cancel()
		if err != nil {
			return nil, storageError(op, err)
		}
		images = append(images, Image{ObjectMeta: obj, URL: u, ExpiresAt: expiresAt})
	}

	slices.SortFunc(images, func(a, b Image) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})

	return images, nil
}

// RequestUpload admits an upload and returns a capability URL for it. The
// image is counted once the upload arrives, through AcceptUpload or
// CompleteUpload depending on the store.
//
// Error types returned:
//   - ErrInvalidInput: malformed folder id, file name, content type or size
//   - ErrFileTooLarge: size exceeds the policy limit
//   - ErrRateLimited: the client used up its upload budget
//   - ErrNotFound: folder does not exist
//   - ErrForbidden: wrong or missing password
//   - ErrQuotaExceeded: the folder already holds the maximum number of images
//   - ErrStorage, ErrMetadata: a collaborator failed
func (s *FolderService) RequestUpload(ctx context.Context, req UploadRequest) (UploadIntent, error) {
	const op = "request upload"

	if err := ctx.Err(); err != nil {
		return UploadIntent{}, fmt.Errorf("%s: %w", op, err)
	}

	id, err := ParseFolderID(req.FolderID)
	if err != nil {
		return UploadIntent{}, fmt.Errorf("%s: %w", op, err)
	}

	rateKey := RateKey(id.String(), req.ClientAddress, OpUpload)
	if !s.uploads.Check(rateKey) {
		return UploadIntent{}, fmt.Errorf("%s: %w", op, ErrRateLimited)
	}

	name, err := s.validateUpload(op, req, true)
	if err != nil {
		return UploadIntent{}, err
	}

	if _, err := s.authorize(ctx, op, id, req.Password); err != nil {
		return UploadIntent{}, err
	}

	if err := s.checkQuota(ctx, op, id); err != nil {
		return UploadIntent{}, err
	}

	if err := s.ensureNamespace(ctx, op, id); err != nil {
		return UploadIntent{}, err
	}

	now := s.now()
	key := ObjectKey(id.String(), name, now)

	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	u, err := s.store.UploadURL(sctx, key, req.ContentType, s.policy.UploadURLTTL)
	if err != nil {
		return UploadIntent{}, storageError(op, err)
	}

	s.uploads.Increment(rateKey)

	_, objectName, _ := strings.Cut(key, "/")
	return UploadIntent{
		Key:              key,
		Name:             objectName,
		URL:              u,
		Method:           http.MethodPut,
		ContentType:      req.ContentType,
		ExpiresAt:        now.Add(s.policy.UploadURLTTL),
		CompleteRequired: s.directUploads(),
	}, nil
}

// Upload runs the whole upload pipeline with the bytes passing through this
// process. req.Size may be -1 when the length is unknown; content is cut
// off at the policy's size limit either way.
func (s *FolderService) Upload(ctx context.Context, req UploadRequest, content io.Reader) (ObjectMeta, error) {
	const op = "upload image"

	if err := ctx.Err(); err != nil {
		return ObjectMeta{}, fmt.Errorf("%s: %w", op, err)
	}

	id, err := ParseFolderID(req.FolderID)
	if err != nil {
		return ObjectMeta{}, fmt.Errorf("%s: %w", op, err)
	}

	rateKey := RateKey(id.String(), req.ClientAddress, OpUpload)
	if !s.uploads.Check(rateKey) {
		return ObjectMeta{}, fmt.Errorf("%s: %w", op, ErrRateLimited)
	}

	name, err := s.validateUpload(op, req, false)
	if err != nil {
		return ObjectMeta{}, err
	}

	if _, err := s.authorize(ctx, op, id, req.Password); err != nil {
		return ObjectMeta{}, err
	}

	if err := s.checkQuota(ctx, op, id); err != nil {
		return ObjectMeta{}, err
	}

	if err := s.ensureNamespace(ctx, op, id); err != nil {
		return ObjectMeta{}, err
	}

	now := s.now()
	key := ObjectKey(id.String(), name, now)

	meta, err := s.put(ctx, op, key, req.ContentType, req.Size, content)
	if err != nil {
		return ObjectMeta{}, err
	}

	s.syncUpload(ctx, id, key, now)
	s.uploads.Increment(rateKey)

	return meta, nil
}

// AcceptUpload stores the bytes sent to an upload capability URL. The caller
// has already verified the URL's signature, which stands in for the folder
// password. A key can be written once; a second write fails with
// ErrAlreadyExists.
func (s *FolderService) AcceptUpload(ctx context.Context, key, contentType string, size int64, content io.Reader) (ObjectMeta, error) {
	const op = "accept upload"

	if err := ctx.Err(); err != nil {
		return ObjectMeta{}, fmt.Errorf("%s: %w", op, err)
	}

	id, _, err := SplitObjectKey(key)
	if err != nil {
		return ObjectMeta{}, fmt.Errorf("%s: %w", op, err)
	}

	if !s.policy.AllowsContentType(contentType) {
		return ObjectMeta{}, fmt.Errorf("%s: %w: content type %q not allowed", op, ErrInvalidInput, contentType)
	}
	if size > s.policy.MaxFileSize {
		return ObjectMeta{}, fmt.Errorf("%s: %w", op, ErrFileTooLarge)
	}

	if _, err := s.loadFolder(ctx, op, id); err != nil {
		return ObjectMeta{}, err
	}

	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	_, statErr := s.store.Stat(sctx, key)
	cancel()
	switch {
	case statErr == nil:
		return ObjectMeta{}, fmt.Errorf("%s: %w", op, ErrAlreadyExists)
	case !errors.Is(statErr, ErrNotFound):
		return ObjectMeta{}, storageError(op, statErr)
	}

	if err := s.checkQuota(ctx, op, id); err != nil {
		return ObjectMeta{}, err
	}

	meta, err := s.put(ctx, op, key, contentType, size, content)
	if err != nil {
		return ObjectMeta{}, err
	}

	s.syncUpload(ctx, id, key, s.now())

	return meta, nil
}

// CompleteUpload records an upload that went straight to the store through
// an upload URL. The stored object is checked against the policy; an object
// that is too large or not an allowed image is removed again and not counted.
//
// The count is taken from a fresh listing rather than incremented, so
// completing the same object again leaves the folder unchanged.
//
// Error types returned:
//   - ErrInvalidInput: malformed folder id or name, stored object is not an allowed image
//   - ErrFileTooLarge: stored object exceeds the policy limit
//   - ErrRateLimited: the client used up its completion budget
//   - ErrNotFound: folder or object does not exist
//   - ErrForbidden: wrong or missing password
//   - ErrStorage, ErrMetadata: a collaborator failed
func (s *FolderService) CompleteUpload(ctx context.Context, req CompleteUploadRequest) (ObjectMeta, error) {
	const op = "complete upload"

	if err := ctx.Err(); err != nil {
		return ObjectMeta{}, fmt.Errorf("%s: %w", op, err)
	}

	id, err := ParseFolderID(req.FolderID)
	if err != nil {
		return ObjectMeta{}, fmt.Errorf("%s: %w", op, err)
	}

	rateKey := RateKey(id.String(), req.ClientAddress, OpComplete)
	if !s.uploads.Check(rateKey) {
		return ObjectMeta{}, fmt.Errorf("%s: %w", op, ErrRateLimited)
	}

	if !IsImageKey(req.Name) {
		return ObjectMeta{}, fmt.Errorf("%s: %w: invalid object name", op, ErrInvalidInput)
	}

	if _, err := s.authorize(ctx, op, id, req.Password); err != nil {
		return ObjectMeta{}, err
	}

	key := id.String() + "/" + req.Name

	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	meta, err := s.store.Stat(sctx, key)
	cancel()
	if err != nil {
		return ObjectMeta{}, storageError(op, err)
	}

	if err := s.checkStored(meta); err != nil {
		s.discard(ctx, key, err)
		return ObjectMeta{}, fmt.Errorf("%s: %w", op, err)
	}

	at := meta.CreatedAt
	if at.IsZero() {
		at = s.now()
	}
	s.syncCompletion(ctx, id, key, at)
	s.uploads.Increment(rateKey)

	return meta, nil
}

// checkStored applies the upload policy to an object that reached the store
// without passing through this process.
func (s *FolderService) checkStored(meta ObjectMeta) error {
	if meta.Size <= 0 {
		return fmt.Errorf("%w: object is empty", ErrInvalidInput)
	}
	if meta.Size > s.policy.MaxFileSize {
		return ErrFileTooLarge
	}
	if !s.policy.AllowsContentType(mediaType(meta.ContentType)) {
		return fmt.Errorf("%w: content type %q not allowed", ErrInvalidInput, meta.ContentType)
	}
	return nil
}

// discard removes an object rejected after the fact. A failed removal is
// logged; the object is not counted either way.
func (s *FolderService) discard(ctx context.Context, key string, reason error) {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
	defer cancel()

	if err := s.store.Delete(sctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		slog.Warn("failed to remove rejected upload",
			"key", key,
			"reason", reason,
			"error", err,
		)
	}
}

// DeleteImage removes one image from a folder.
//
// Error types returned:
//   - ErrInvalidInput: malformed folder id or image name
//   - ErrRateLimited: the client used up its delete budget
//   - ErrNotFound: folder or image does not exist
//   - ErrForbidden: wrong or missing password
//   - ErrStorage, ErrMetadata: a collaborator failed
func (s *FolderService) DeleteImage(ctx context.Context, req DeleteRequest) error {
	const op = "delete image"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	id, err := ParseFolderID(req.FolderID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rateKey := RateKey(id.String(), req.ClientAddress, OpDelete)
	if !s.deletes.Check(rateKey) {
		return fmt.Errorf("%s: %w", op, ErrRateLimited)
	}

	if !IsImageKey(req.Name) {
		return fmt.Errorf("%s: %w: invalid image name", op, ErrInvalidInput)
	}

	if _, err := s.authorize(ctx, op, id, req.Password); err != nil {
		return err
	}

	key := id.String() + "/" + req.Name

	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.store.Delete(sctx, key); err != nil {
		return storageError(op, err)
	}

	s.syncDeletion(ctx, id, key)
	s.deletes.Increment(rateKey)

	return nil
}

// validateUpload checks everything about an upload request except the
// folder id, which is parsed before the rate check, and returns the
// sanitized file name.
func (s *FolderService) validateUpload(op string, req UploadRequest, sizeRequired bool) (string, error) {
	if !s.policy.AllowsContentType(req.ContentType) {
		return "", fmt.Errorf("%s: %w: content type %q not allowed", op, ErrInvalidInput, req.ContentType)
	}

	if sizeRequired && req.Size <= 0 {
		return "", fmt.Errorf("%s: %w: size must be positive", op, ErrInvalidInput)
	}
	if req.Size > s.policy.MaxFileSize {
		return "", fmt.Errorf("%s: %w", op, ErrFileTooLarge)
	}

	name := SanitizeFilename(req.FileName)
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%s: %w: file name cannot be empty", op, ErrInvalidInput)
	}

	return name, nil
}

func (s *FolderService) loadFolder(ctx context.Context, op string, id uuid.UUID) (Folder, error) {
	mctx, cancel := context.WithTimeout(ctx, s.metadataTimeout)
	defer cancel()

	folder, err := s.repo.Get(mctx, id)
	if err != nil {
		return Folder{}, metadataError(op, err)
	}
	return folder, nil
}

// authorize loads the folder and checks the supplied password against it.
func (s *FolderService) authorize(ctx context.Context, op string, id uuid.UUID, password string) (Folder, error) {
	folder, err := s.loadFolder(ctx, op, id)
	if err != nil {
		return Folder{}, err
	}

	ok, err := CheckPassword(folder.PasswordHash, password)
	if err != nil {
		return Folder{}, metadataError(op, err)
	}
	if !ok {
		return Folder{}, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	return folder, nil
}

func (s *FolderService) listObjects(ctx context.Context, op string, id uuid.UUID) ([]ObjectMeta, error) {
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	objects, err := s.store.List(sctx, id.String())
	if err != nil {
		return nil, storageError(op, err)
	}
	return objects, nil
}

// checkQuota counts against a fresh listing; the cached image_count may drift.
func (s *FolderService) checkQuota(ctx context.Context, op string, id uuid.UUID) error {
	objects, err := s.listObjects(ctx, op, id)
	if err != nil {
		return err
	}
	if len(objects) >= s.policy.MaxImagesPerFolder {
		return fmt.Errorf("%s: %w: folder holds %d of %d images", op, ErrQuotaExceeded, len(objects), s.policy.MaxImagesPerFolder)
	}
	return nil
}

func (s *FolderService) ensureNamespace(ctx context.Context, op string, id uuid.UUID) error {
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.store.EnsureNamespace(sctx, id.String()); err != nil {
		return storageError(op, err)
	}
	return nil
}

func (s *FolderService) put(ctx context.Context, op, key, contentType string, size int64, content io.Reader) (ObjectMeta, error) {
	body, err := checkContent(contentType, content)
	if err != nil {
		return ObjectMeta{}, fmt.Errorf("%s: %w", op, err)
	}

	limited := &maxBytesReader{r: body, remaining: s.policy.MaxFileSize}

	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	meta, err := s.store.Put(sctx, key, contentType, size, limited)
	if limited.exceeded {
		return ObjectMeta{}, fmt.Errorf("%s: %w", op, ErrFileTooLarge)
	}
	if err != nil {
		return ObjectMeta{}, storageError(op, err)
	}
	return meta, nil
}

// syncUpload and syncDeletion run after storage succeeded. They ignore the
// caller's cancellation and only log failures: the object is already in its
// final state and a later Recount repairs the cached count.
func (s *FolderService) syncUpload(ctx context.Context, id uuid.UUID, key string, at time.Time) {
	mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.metadataTimeout)
	defer cancel()

	if err := s.repo.RecordUpload(mctx, id, at); err != nil {
		slog.Warn("metadata sync failed after upload",
			"folder_id", id.String(),
			"key", key,
			"error", err,
		)
	}
}

func (s *FolderService) syncDeletion(ctx context.Context, id uuid.UUID, key string) {
	mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.metadataTimeout)
	defer cancel()

	if err := s.repo.RecordDeletion(mctx, id); err != nil {
		slog.Warn("metadata sync failed after delete",
			"folder_id", id.String(),
			"key", key,
			"error", err,
		)
	}
}

// syncCompletion counts the folder from a fresh listing. A listing failure
// leaves the cached count alone for the next Recount.
func (s *FolderService) syncCompletion(ctx context.Context, id uuid.UUID, key string, at time.Time) {
	ctx = context.WithoutCancel(ctx)

	objects, err := s.listObjects(ctx, "complete upload", id)
	if err != nil {
		slog.Warn("listing failed after upload completion",
			"folder_id", id.String(),
			"key", key,
			"error", err,
		)
		return
	}

	mctx, cancel := context.WithTimeout(ctx, s.metadataTimeout)
	defer cancel()

	if err := s.repo.RecordCompletion(mctx, id, len(objects), at); err != nil {
		slog.Warn("metadata sync failed after upload completion",
			"folder_id", id.String(),
			"key", key,
			"error", err,
		)
	}
}

func (s *FolderService) directUploads() bool {
	d, ok := s.store.(DirectUploads)
	return ok && d.DirectUploads()
}

// mediaType strips parameters such as charset from a content type.
func mediaType(contentType string) string {
	t, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(t))
}

// maxBytesReader fails once more than remaining bytes were read.
type maxBytesReader struct {
	r         io.Reader
	remaining int64
	exceeded  bool
}

func (m *maxBytesReader) Read(p []byte) (int, error) {
	if m.exceeded {
		return 0, ErrFileTooLarge
	}
	if int64(len(p)) > m.remaining+1 {
		p = p[:m.remaining+1]
	}
	n, err := m.r.Read(p)
	if int64(n) > m.remaining {
		m.exceeded = true
		return int(m.remaining), ErrFileTooLarge
	}
	m.remaining -= int64(n)
	return n, err
}
