// Package filesystem stores images on local disk under one directory per folder.
//
// Writes go to a temp file that is renamed into place, so readers never see a
// partial image. Upload and read URLs point back at this process and are
// signed with a snapsi.URLSigner.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sagarc03/snapsi"
)

// Store implements snapsi.ObjectStore on a sandboxed directory.
type Store struct {
	root   *os.Root
	signer *snapsi.URLSigner
}

// NewStore creates a Store rooted at root. The root confines every file
// operation to its directory, so keys cannot escape it.
func NewStore(root *os.Root, signer *snapsi.URLSigner) *Store {
	return &Store{root: root, signer: signer}
}

func (s *Store) EnsureNamespace(ctx context.Context, folderID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := snapsi.ParseFolderID(folderID); err != nil {
		return fmt.Errorf("ensure namespace: %w", err)
	}

	marker := path.Join(folderID, snapsi.NamespaceMarker)
	if _, err := s.root.Stat(marker); err == nil {
		return nil
	}

	if err := s.root.MkdirAll(folderID, 0o755); err != nil {
		return fmt.Errorf("ensure namespace: %w", err)
	}

	f, err := s.root.OpenFile(marker, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("ensure namespace: %w", err)
	}
	return f.Close()
}

// List returns the images in a folder directory. A folder that was never
// written to has no images.
func (s *Store) List(ctx context.Context, folderID string) ([]snapsi.ObjectMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := snapsi.ParseFolderID(folderID); err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	entries, err := fs.ReadDir(s.root.FS(), folderID)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []snapsi.ObjectMeta{}, nil
		}
		return nil, fmt.Errorf("list: %w", err)
	}

	objects := make([]snapsi.ObjectMeta, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !entry.Type().IsRegular() || !snapsi.IsImageKey(entry.Name()) {
			continue
		}

		meta, err := s.stat(path.Join(folderID, entry.Name()))
		if err != nil {
			// deleted between ReadDir and Stat
			if errors.Is(err, snapsi.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("list: %w", err)
		}
		objects = append(objects, meta)
	}

	return objects, nil
}

func (s *Store) Stat(ctx context.Context, key string) (snapsi.ObjectMeta, error) {
	if err := ctx.Err(); err != nil {
		return snapsi.ObjectMeta{}, err
	}

	if _, _, err := snapsi.SplitObjectKey(key); err != nil {
		return snapsi.ObjectMeta{}, fmt.Errorf("stat: %w", err)
	}

	return s.stat(key)
}

func (s *Store) stat(key string) (snapsi.ObjectMeta, error) {
	f, err := s.root.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return snapsi.ObjectMeta{}, snapsi.ErrNotFound
		}
		return snapsi.ObjectMeta{}, fmt.Errorf("open %s: %w", key, err)
	}
	defer func() { _ = f.Close() }()

	return describe(f, key)
}

// describe reads the object's size and modification time from the open
// file and sniffs its content type.
func describe(f *os.File, key string) (snapsi.ObjectMeta, error) {
	info, err := f.Stat()
	if err != nil {
		return snapsi.ObjectMeta{}, fmt.Errorf("stat %s: %w", key, err)
	}

	detected, err := mimetype.DetectReader(f)
	if err != nil {
		return snapsi.ObjectMeta{}, fmt.Errorf("detect %s: %w", key, err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return snapsi.ObjectMeta{}, fmt.Errorf("seek %s: %w", key, err)
	}

	return snapsi.ObjectMeta{
		Key:         key,
		Name:        path.Base(key),
		ContentType: detected.String(),
		Size:        info.Size(),
		CreatedAt:   info.ModTime().UTC(),
	}, nil
}

// Open returns the object for reading along with its metadata.
// The caller must close the returned file.
func (s *Store) Open(ctx context.Context, key string) (io.ReadSeekCloser, snapsi.ObjectMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, snapsi.ObjectMeta{}, err
	}

	if _, _, err := snapsi.SplitObjectKey(key); err != nil {
		return nil, snapsi.ObjectMeta{}, fmt.Errorf("open: %w", err)
	}

	f, err := s.root.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, snapsi.ObjectMeta{}, snapsi.ErrNotFound
		}
		return nil, snapsi.ObjectMeta{}, fmt.Errorf("open: %w", err)
	}

	meta, err := describe(f, key)
	if err != nil {
		_ = f.Close()
		return nil, snapsi.ObjectMeta{}, fmt.Errorf("open: %w", err)
	}

	return f, meta, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Put writes content to a temp file inside the folder directory and links
// it to key once fully synced. An existing key is never replaced: the link
// fails and Put returns snapsi.ErrAlreadyExists. contentType and size are not
// recorded: the type is sniffed again on read.
func (s *Store) Put(ctx context.Context, key, contentType string, size int64, content io.Reader) (snapsi.ObjectMeta, error) {
	if err := ctx.Err(); err != nil {
		return snapsi.ObjectMeta{}, err
	}

	folderID, _, err := snapsi.SplitObjectKey(key)
	if err != nil {
		return snapsi.ObjectMeta{}, fmt.Errorf("put: %w", err)
	}

	dir := folderID.String()
	if err := s.root.MkdirAll(dir, 0o755); err != nil {
		return snapsi.ObjectMeta{}, fmt.Errorf("put: create folder directory: %w", err)
	}

	tmpFile := path.Join(dir, tmpFileName())
	t, err := s.root.Create(tmpFile)
	if err != nil {
		return snapsi.ObjectMeta{}, fmt.Errorf("put: open temp file: %w", err)
	}

	defer func() {
		if closeErr := t.Close(); closeErr != nil {
			slog.Warn("failed to close temp file", "key", key, "err", closeErr)
		}
		if rmErr := s.root.Remove(tmpFile); rmErr != nil {
			slog.Warn("failed to remove temp file", "key", key, "err", rmErr)
		}
	}()

	written, err := io.Copy(t, &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return snapsi.ObjectMeta{}, fmt.Errorf("put: copy content: %w", err)
	}

	if size >= 0 && written != size {
		return snapsi.ObjectMeta{}, fmt.Errorf("put: wrote %d bytes, expected %d", written, size)
	}

	if err := t.Sync(); err != nil {
		return snapsi.ObjectMeta{}, fmt.Errorf("put: sync: %w", err)
	}

	if err := s.root.Link(tmpFile, key); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return snapsi.ObjectMeta{}, fmt.Errorf("put: %w", snapsi.ErrAlreadyExists)
		}
		return snapsi.ObjectMeta{}, fmt.Errorf("put: link: %w", err)
	}

	return snapsi.ObjectMeta{
		Key:         key,
		Name:        path.Base(key),
		ContentType: contentType,
		Size:        written,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, _, err := snapsi.SplitObjectKey(key); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	if err := s.root.Remove(key); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return snapsi.ErrNotFound
		}
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

// UploadURL returns a signed PUT URL served by this process's objects handler.
func (s *Store) UploadURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	u, _, err := s.signer.Sign(http.MethodPut, key, contentType, ttl)
	if err != nil {
		return "", fmt.Errorf("upload url: %w", err)
	}
	return u, nil
}

// ReadURL returns a signed GET URL served by this process's objects handler.
func (s *Store) ReadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	u, _, err := s.signer.Sign(http.MethodGet, key, "", ttl)
	if err != nil {
		return "", fmt.Errorf("read url: %w", err)
	}
	return u, nil
}

func tmpFileName() string {
	return fmt.Sprintf(".t%s", uuid.New().String())
}
