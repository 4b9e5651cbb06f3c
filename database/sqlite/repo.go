// Package sqlite stores folder metadata in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sagarc03/snapsi"
	"github.com/sagarc03/snapsi/database/internal"
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const folderColumns = `id, name, password_hash, image_count, created_at, last_upload_at`

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

type Repo struct {
	db        *sql.DB
	tableName string
	now       func() time.Time
}

func NewRepo(db *sql.DB, tables snapsi.Tables) (*Repo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}

	return &Repo{db: db, tableName: quoteIdentifier(tables.Folders), now: nowUTC}, nil
}

func (r *Repo) Create(ctx context.Context, f snapsi.NewFolder) (snapsi.Folder, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (id, name, password_hash, image_count, created_at)
		VALUES (?, ?, ?, 0, ?)`, r.tableName)

	folder := snapsi.Folder{
		ID:           uuid.New(),
		Name:         f.Name,
		PasswordHash: f.PasswordHash,
		CreatedAt:    r.now().Round(0),
	}

	var hash sql.NullString
	if f.PasswordHash != "" {
		hash = sql.NullString{String: f.PasswordHash, Valid: true}
	}

	if _, err := r.db.ExecContext(ctx, query, folder.ID.String(), folder.Name, hash, formatTime(folder.CreatedAt)); err != nil {
		return snapsi.Folder{}, fmt.Errorf("create: %w", err)
	}

	return folder, nil
}

func (r *Repo) Get(ctx context.Context, id uuid.UUID) (snapsi.Folder, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, folderColumns, r.tableName) //nolint:gosec // G201: table name is validated

	folder, err := scanFolder(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return snapsi.Folder{}, snapsi.ErrNotFound
		}
		return snapsi.Folder{}, fmt.Errorf("get: %w", err)
	}

	return folder, nil
}

func (r *Repo) RecordUpload(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`UPDATE %s SET image_count = image_count + 1, last_upload_at = ? WHERE id = ?`, r.tableName)

	return r.exec(ctx, "record upload", query, formatTime(at), id.String())
}

func (r *Repo) RecordDeletion(ctx context.Context, id uuid.UUID) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`UPDATE %s SET image_count = MAX(image_count - 1, 0) WHERE id = ?`, r.tableName)

	return r.exec(ctx, "record deletion", query, id.String())
}

func (r *Repo) RecordCompletion(ctx context.Context, id uuid.UUID, count int, at time.Time) error {
	if count < 0 {
		return fmt.Errorf("record completion: %w: negative count", snapsi.ErrInvalidInput)
	}

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`UPDATE %s SET image_count = ?,
			last_upload_at = CASE
				WHEN last_upload_at IS NULL OR last_upload_at < ? THEN ?
				ELSE last_upload_at
			END
		WHERE id = ?`, r.tableName)

	ts := formatTime(at)
	return r.exec(ctx, "record completion", query, count, ts, ts, id.String())
}

func (r *Repo) SetImageCount(ctx context.Context, id uuid.UUID, count int) error {
	if count < 0 {
		return fmt.Errorf("set image count: %w: negative count", snapsi.ErrInvalidInput)
	}

	query := fmt.Sprintf(`UPDATE %s SET image_count = ? WHERE id = ?`, r.tableName) //nolint:gosec // G201: table name is validated

	return r.exec(ctx, "set image count", query, count, id.String())
}

func (r *Repo) exec(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}

	if affected == 0 {
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
		query = fmt.Sprintf( //nolint:gosec // G201: table name is validated
			`SELECT %s FROM %s ORDER BY created_at, id LIMIT ?`, folderColumns, r.tableName)
		args = []any{q.Limit + 1}
	} else {
		query = fmt.Sprintf( //nolint:gosec // G201: table name is validated
			`SELECT %s FROM %s
			WHERE (created_at > ?) OR (created_at = ? AND id > ?)
			ORDER BY created_at, id
			LIMIT ?`, folderColumns, r.tableName)
		ts := formatTime(cursor.CreatedAt)
		args = []any{ts, ts, cursor.ID, q.Limit + 1}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return snapsi.ListResult{}, fmt.Errorf("list: %w", err)
	}
	defer func() { _ = rows.Close() }()

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

type scanner interface {
	Scan(dest ...any) error
}

func scanFolder(row scanner) (snapsi.Folder, error) {
	var f snapsi.Folder
	var id, createdAt string
	var hash, lastUpload sql.NullString

	if err := row.Scan(&id, &f.Name, &hash, &f.ImageCount, &createdAt, &lastUpload); err != nil {
		return snapsi.Folder{}, err
	}

	var err error
	if f.ID, err = uuid.Parse(id); err != nil {
		return snapsi.Folder{}, fmt.Errorf("parse id: %w", err)
	}

	if f.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return snapsi.Folder{}, fmt.Errorf("parse created_at: %w", err)
	}

	if lastUpload.Valid {
		at, err := time.Parse(timeLayout, lastUpload.String)
		if err != nil {
			return snapsi.Folder{}, fmt.Errorf("parse last_upload_at: %w", err)
		}
		f.LastUploadAt = &at
	}

	f.PasswordHash = hash.String

	return f, nil
}
