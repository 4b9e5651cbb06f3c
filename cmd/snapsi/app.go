package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/sagarc03/snapsi"
	"github.com/sagarc03/snapsi/bucket"
	"github.com/sagarc03/snapsi/config"
	"github.com/sagarc03/snapsi/database"
	"github.com/sagarc03/snapsi/filesystem"
	snapsihttp "github.com/sagarc03/snapsi/http"
	"github.com/sagarc03/snapsi/keybackend"
)

// app holds the wired backends shared by the subcommands.
type app struct {
	service  *snapsi.FolderService
	uploads  *snapsi.RateLimiter
	deletes  *snapsi.RateLimiter
	objects  snapsihttp.ObjectOpener
	verifier snapsihttp.RequestVerifier

	closers []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// newApp connects the metadata database and the object store configured in
// cfg and builds the folder service on top of them.
func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	slog.Info("connected to database", "type", cfg.Database.Type)

	var store snapsi.ObjectStore
	switch cfg.Storage.Type {
	case "filesystem":
		fsStore, err := a.openFilesystem(cfg)
		if err != nil {
			return nil, err
		}
		store = fsStore
		slog.Info("using filesystem storage", "path", cfg.Storage.Path, "public_url", cfg.Server.BaseURL())
	case "s3":
		client, err := bucket.NewClient(cfg.Storage.S3)
		if err != nil {
			return nil, fmt.Errorf("connect bucket: %w", err)
		}
		s3Store := bucket.NewStore(client, cfg.Storage.S3.Bucket)
		if err := s3Store.EnsureBucket(ctx, cfg.Storage.S3.Region); err != nil {
			return nil, fmt.Errorf("ensure bucket: %w", err)
		}
		store = s3Store
		slog.Info("using s3 storage", "endpoint", cfg.Storage.S3.Endpoint, "bucket", cfg.Storage.S3.Bucket)
	default:
		return nil, fmt.Errorf("unsupported storage type: %q", cfg.Storage.Type)
	}

	policy := cfg.Policy
	a.uploads = snapsi.NewRateLimiter(policy.UploadRate.Limit, policy.UploadRate.Window,
		snapsi.WithSweepInterval(cfg.Service.SweepInterval))
	a.deletes = snapsi.NewRateLimiter(policy.DeleteRate.Limit, policy.DeleteRate.Window,
		snapsi.WithSweepInterval(cfg.Service.SweepInterval))

	a.service, err = snapsi.NewFolderService(db.GetRepo(), store, snapsi.ServiceConfig{
		Policy:          policy.Policy(),
		UploadLimiter:   a.uploads,
		DeleteLimiter:   a.deletes,
		StoreTimeout:    cfg.Service.StoreTimeout,
		MetadataTimeout: cfg.Service.MetadataTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}

	return a, nil
}

// openFilesystem opens the storage root and the signing keys for URLs
// served by this process.
func (a *app) openFilesystem(cfg *config.Config) (*filesystem.Store, error) {
	keys, err := keybackend.NewSecretStore(cfg.Signing.Keys)
	if err != nil {
		return nil, fmt.Errorf("load signing keys: %w", err)
	}

	pair, err := keybackend.SigningKey(cfg.Signing.Keys, keys)
	if err != nil {
		return nil, err
	}

	signer, err := snapsi.NewURLSigner(cfg.Server.BaseURL(), pair.AccessKey, pair.SecretKey)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Storage.Path, 0o750); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	root, err := os.OpenRoot(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open storage root: %w", err)
	}
	a.closers = append(a.closers, root.Close)

	store := filesystem.NewStore(root, signer)
	a.objects = store
	a.verifier = snapsi.NewURLVerifier(keys)

	return store, nil
}
