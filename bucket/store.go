// Package bucket stores images in an S3 compatible bucket through minio-go.
//
// Upload and read URLs are presigned against the bucket itself, so clients
// talk to the object store directly and report completed uploads back.
package bucket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/sagarc03/snapsi"
)

type Store struct {
	client Client
	bucket string
}

func NewStore(client Client, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

// DirectUploads reports that upload URLs bypass this service.
func (s *Store) DirectUploads() bool {
	return true
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *Store) EnsureBucket(ctx context.Context, region string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	if exists {
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}

func (s *Store) EnsureNamespace(ctx context.Context, folderID string) error {
	if _, err := snapsi.ParseFolderID(folderID); err != nil {
		return fmt.Errorf("ensure namespace: %w", err)
	}

	marker := folderID + "/" + snapsi.NamespaceMarker

	_, err := s.client.StatObject(ctx, s.bucket, marker, minio.StatObjectOptions{})
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("ensure namespace: %w", err)
	}

	_, err = s.client.PutObject(ctx, s.bucket, marker, strings.NewReader(""), 0, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("ensure namespace: %w", err)
	}
	return nil
}

// List returns the images directly under the folder prefix.
func (s *Store) List(ctx context.Context, folderID string) ([]snapsi.ObjectMeta, error) {
	if _, err := snapsi.ParseFolderID(folderID); err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	prefix := folderID + "/"
	infos, err := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix})
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	objects := make([]snapsi.ObjectMeta, 0, len(infos))
	for _, info := range infos {
		name := strings.TrimPrefix(info.Key, prefix)
		if !snapsi.IsImageKey(name) {
			continue
		}
		objects = append(objects, toMeta(info))
	}

	return objects, nil
}

func (s *Store) Stat(ctx context.Context, key string) (snapsi.ObjectMeta, error) {
	if _, _, err := snapsi.SplitObjectKey(key); err != nil {
		return snapsi.ObjectMeta{}, fmt.Errorf("stat: %w", err)
	}

	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return snapsi.ObjectMeta{}, snapsi.ErrNotFound
		}
		return snapsi.ObjectMeta{}, fmt.Errorf("stat: %w", err)
	}

	return toMeta(info), nil
}

func (s *Store) Put(ctx context.Context, key, contentType string, size int64, content io.Reader) (snapsi.ObjectMeta, error) {
	if _, _, err := snapsi.SplitObjectKey(key); err != nil {
		return snapsi.ObjectMeta{}, fmt.Errorf("put: %w", err)
	}

	info, err := s.client.PutObject(ctx, s.bucket, key, content, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return snapsi.ObjectMeta{}, fmt.Errorf("put: %w", err)
	}

	created := info.LastModified
	if created.IsZero() {
		created = time.Now()
	}

	return snapsi.ObjectMeta{
		Key:         key,
		Name:        path.Base(key),
		ContentType: contentType,
		Size:        info.Size,
		CreatedAt:   created.UTC(),
	}, nil
}

// Delete removes key. S3 deletes are idempotent, so the object is looked up
// first to report ErrNotFound.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.Stat(ctx, key); err != nil {
		if errors.Is(err, snapsi.ErrNotFound) {
			return snapsi.ErrNotFound
		}
		return fmt.Errorf("delete: %w", err)
	}

	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

// UploadURL presigns a PUT whose signature covers the Content-Type header.
func (s *Store) UploadURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	headers := http.Header{}
	headers.Set("Content-Type", contentType)

	u, err := s.client.PresignHeader(ctx, http.MethodPut, s.bucket, key, ttl, nil, headers)
	if err != nil {
		return "", fmt.Errorf("upload url: %w", err)
	}
	return u.String(), nil
}

func (s *Store) ReadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("read url: %w", err)
	}
	return u.String(), nil
}

func toMeta(info minio.ObjectInfo) snapsi.ObjectMeta {
	contentType := info.ContentType
	if contentType == "" {
		// listings do not carry the stored type
		contentType = mime.TypeByExtension(path.Ext(info.Key))
	}

	return snapsi.ObjectMeta{
		Key:         info.Key,
		Name:        path.Base(info.Key),
		ContentType: contentType,
		Size:        info.Size,
		CreatedAt:   info.LastModified.UTC(),
	}
}
