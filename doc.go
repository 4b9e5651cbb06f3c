// Package snapsi provides shared image folders backed by an object store,
// with per-folder capacity limits, per-client rate limits and time-bounded
// capability URLs for uploading and reading images.
//
// A folder is created with an optional password. Every mutation of a folder's
// image set goes through FolderService, which runs the same pipeline for each
// request: rate check, folder lookup, password check, quota check (uploads),
// storage operation, metadata sync and finally the rate commit. Only requests
// that reach storage successfully are counted against the client's budget.
//
// # Key Components
//
//   - FolderService: access controller combining a FolderRepo and an ObjectStore
//   - FolderRepo: folder metadata persistence (PostgreSQL, SQLite)
//   - ObjectStore: image storage (local filesystem, S3-compatible buckets)
//   - RateLimiter: fixed-window request counter keyed by folder, client and operation
//   - SanitizeFilename / ObjectKey: storage-safe object naming
//   - URLSigner / URLVerifier: HMAC signed capability URLs for the filesystem store
//
// # Example Usage
//
//	svc, err := snapsi.NewFolderService(repo, store, snapsi.ServiceConfig{
//	    Policy:        snapsi.DefaultPolicy(),
//	    UploadLimiter: snapsi.NewRateLimiter(5, time.Minute),
//	    DeleteLimiter: snapsi.NewRateLimiter(100, time.Minute),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	folder, err := svc.CreateFolder(ctx, snapsi.CreateFolderRequest{Name: "vacation"})
//
//	intent, err := svc.RequestUpload(ctx, snapsi.UploadRequest{
//	    FolderID:      folder.ID.String(),
//	    FileName:      "beach.png",
//	    ContentType:   "image/png",
//	    Size:          2048,
//	    ClientAddress: "203.0.113.7",
//	})
//
// See the http package for the REST API and the database package for
// metadata backends.
package snapsi
