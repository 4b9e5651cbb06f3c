// Package postgres stores folder metadata in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/snapsi"
	"github.com/sagarc03/snapsi/database/internal"
)

const folderColumns = `id, name, password_hash, image_count, created_at, last_upload_at`

type Repo struct {
	pool      *pgxpool.Pool
	tableName string
}

func NewRepo(pool *pgxpool.Pool, tables snapsi.Tables) (*Repo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}

	return &Repo{pool: pool, tableName: pgx.Identifier{tables.Folders}.Sanitize()}, nil
}

func (r *Repo) Create(ctx context.Context, f snapsi.NewFolder) (snapsi.Folder, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, password_hash)
		VALUES ($1, $2, $3)
		RETURNING %s
	`, r.tableName, folderColumns)

	var hash *string
	if f.PasswordHash != "" {
		hash = &f.PasswordHash
	}

	folder, err := scanFolder(r.pool.QueryRow(ctx, query, uuid.New(), f.Name, hash))
	if err != nil {
		return snapsi.Folder{}, fmt.Errorf("create: %w", err)
	}

	return folder, nil
}

func (r *Repo) Get(ctx context.Context, id uuid.UUID) (snapsi.Folder, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, folderColumns, r.tableName)

	folder, err := scanFolder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return snapsi.Folder{}, snapsi.ErrNotFound
		}
		return snapsi.Folder{}, fmt.Errorf("get: %w", err)
	}

	return folder, nil
}

func (r *Repo) RecordUpload(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET image_count = image_count + 1, last_upload_at = $2
		WHERE id = $1
	`, r.tableName)

	return r.exec(ctx, "record upload", query, id, at.UTC())
}

func (r *Repo) RecordDeletion(ctx context.Context, id uuid.UUID) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET image_count = GREATEST(image_count - 1, 0)
		WHERE id = $1
	`, r.tableName)

	return r.exec(ctx, "record deletion", query, id)
}

func (r *Repo) RecordCompletion(ctx context.Context, id uuid.UUID, count int, at time.Time) error {
	if count < 0 {
		return fmt.Errorf("record completion: %w: negative count", snapsi.ErrInvalidInput)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET image_count = $2, last_upload_at = GREATEST(last_upload_at, $3)
		WHERE id = $1
	`, r.tableName)

	return r.exec(ctx, "record completion", query, id, count, at.UTC())
}

func (r *Repo) SetImageCount(ctx context.Context, id uuid.UUID, count int) error {
	if count < 0 {
		return fmt.Errorf("set image count: %w: negative count", snapsi.ErrInvalidInput)
	}

	query := fmt.Sprintf(`UPDATE %s SET image_count = $2 WHERE id = $1`, r.tableName)

	return r.exec(ctx, "set image count", query, id, count)
}

func (r *Repo) exec(ctx context.Context, op, query string, args ...any) error {
	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, snapsi.ErrNotFound)
	}

	return nil
}

// List pages through folders ordered by creation time, oldest first.
func (r *Repo) List(ctx context.Context, q snapsi.ListQuery) (snapsi.ListResult, error) {
	if q.Limit <= 0 {
		return snapsi.ListResult{}, fmt.Errorf("list: %w: limit must be positive", snapsi.ErrInvalidInput)
	}

	cursor, err := internal.DecodeCursor(q.Cursor)
	if err != nil {
		return snapsi.ListResult{}, fmt.Errorf("list: %w: %v", snapsi.ErrInvalidInput, err)
	}

	var query string
	var args []any

	if q.Cursor == "" {
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			ORDER BY created_at, id
			LIMIT $1
		`, folderColumns, r.tableName)
		args = []any{q.Limit + 1}
	} else {
		cursorID, err := uuid.Parse(cursor.ID)
		if err != nil {
			return snapsi.ListResult{}, fmt.Errorf("list: %w: cursor id", snapsi.ErrInvalidInput)
		}
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE (created_at, id) > ($1, $2)
			ORDER BY created_at, id
			LIMIT $3
		`, folderColumns, r.tableName)
		args = []any{cursor.CreatedAt, cursorID, q.Limit + 1}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return snapsi.ListResult{}, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	items := make([]snapsi.Folder, 0, q.Limit)
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return snapsi.ListResult{}, fmt.Errorf("list: scan: %w", err)
		}
		items = append(items, folder)
	}

	if err := rows.Err(); err != nil {
		return snapsi.ListResult{}, fmt.Errorf("list: rows: %w", err)
	}

	var nextCursor string
	if len(items) > q.Limit {
		last := items[q.Limit-1]
		nextCursor = internal.EncodeCursor(last.CreatedAt, last.ID.String())
		items = items[:q.Limit]
	}

	return snapsi.ListResult{Items: items, NextCursor: nextCursor}, nil
}

func scanFolder(row pgx.Row) (snapsi.Folder, error) {
	var f snapsi.Folder
	var hash *string

	if err := row.Scan(&f.ID, &f.Name, &hash, &f.ImageCount, &f.CreatedAt, &f.LastUploadAt); err != nil {
		return snapsi.Folder{}, err
	}

	if hash != nil {
		f.PasswordHash = *hash
	}

	return f, nil
}
