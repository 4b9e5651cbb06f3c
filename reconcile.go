package snapsi

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Recount recomputes a folder's cached image count from a fresh store listing.
// It returns the new count.
func (s *FolderService) Recount(ctx context.Context, folderID string) (int, error) {
	const op = "recount"

	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := ParseFolderID(folderID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	folder, err := s.loadFolder(ctx, op, id)
	if err != nil {
		return 0, err
	}

	return s.recount(ctx, op, folder)
}

// RecountFolder is Recount on behalf of a client: it is rate limited per
// folder and client and needs the folder password.
//
// Error types returned:
//   - ErrInvalidInput: malformed folder id
//   - ErrRateLimited: the client used up its recount budget
//   - ErrNotFound: folder does not exist
//   - ErrForbidden: wrong or missing password
//   - ErrStorage, ErrMetadata: a collaborator failed
func (s *FolderService) RecountFolder(ctx context.Context, req RecountRequest) (int, error) {
	const op = "recount"

	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := ParseFolderID(req.FolderID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	rateKey := RateKey(id.String(), req.ClientAddress, OpRecount)
	if !s.uploads.Check(rateKey) {
		return 0, fmt.Errorf("%s: %w", op, ErrRateLimited)
	}

	folder, err := s.authorize(ctx, op, id, req.Password)
	if err != nil {
		return 0, err
	}

	count, err := s.recount(ctx, op, folder)
	if err != nil {
		return 0, err
	}

	s.uploads.Increment(rateKey)

	return count, nil
}

func (s *FolderService) recount(ctx context.Context, op string, folder Folder) (int, error) {
	objects, err := s.listObjects(ctx, op, folder.ID)
	if err != nil {
		return 0, err
	}

	count := len(objects)
	if count == folder.ImageCount {
		return count, nil
	}

	mctx, cancel := context.WithTimeout(ctx, s.metadataTimeout)
	defer cancel()

	if err := s.repo.SetImageCount(mctx, folder.ID, count); err != nil {
		return 0, metadataError(op, err)
	}

	slog.Info("image count reconciled",
		"folder_id", folder.ID.String(),
		"cached", folder.ImageCount,
		"actual", count,
	)

	return count, nil
}

// RecountAll recounts every folder, paging through the metadata store
// batch folders at a time. It returns the number of folders whose count changed.
//
// A folder that fails to recount is logged and skipped; only failures to
// page through the folders themselves abort the run.
func (s *FolderService) RecountAll(ctx context.Context, batch int) (int, error) {
	const op = "recount all"

	if batch <= 0 {
		batch = 100
	}

	changed := 0
	cursor := ""

	for {
		if err := ctx.Err(); err != nil {
			return changed, fmt.Errorf("%s: %w", op, err)
		}

		mctx, cancel := context.WithTimeout(ctx, s.metadataTimeout)
		result, err := s.repo.List(mctx, ListQuery{Limit: batch, Cursor: cursor})
		cancel()
		if err != nil {
			return changed, metadataError(op, err)
		}

		for _, folder := range result.Items {
			count, err := s.Recount(ctx, folder.ID.String())
			if err != nil {
				slog.Warn("recount failed", "folder_id", folder.ID.String(), "error", err)
				continue
			}
			if count != folder.ImageCount {
				changed++
			}
		}

		if result.NextCursor == "" {
			break
		}
		cursor = result.NextCursor
	}

	return changed, nil
}

// RunReconciler calls RecountAll every interval until ctx is done.
func (s *FolderService) RunReconciler(ctx context.Context, interval time.Duration, batch int) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			changed, err := s.RecountAll(ctx, batch)
			if err != nil && ctx.Err() == nil {
				slog.Error("scheduled recount failed", "error", err)
				continue
			}
			slog.Info("scheduled recount finished", "changed", changed, "duration", time.Since(start))
		}
	}
}
