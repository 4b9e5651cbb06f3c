// Package clientcli provides a client library for snapsi servers.
//
// It covers folder creation and lookup, password checks, image listing,
// uploads, downloads and deletes. Uploads go through a time-bounded upload
// URL by default; servers backed by S3 compatible storage hand out URLs that
// point at the bucket, in which case the client confirms the upload
// afterwards. Profiles in ~/.snapsi/config.yaml name the servers the CLI
// talks to.
//
// # Basic Usage
//
//	client, err := clientcli.New(&clientcli.Config{Endpoint: "http://localhost:5708"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	folder, err := client.CreateFolder(ctx, "holiday", "hunter2")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	results, err := client.Upload(ctx, clientcli.UploadOptions{
//		FolderID: folder.ID,
//		Paths:    []string{"./beach.png"},
//		Password: "hunter2",
//	})
//
// # Errors
//
// Server errors are returned as *APIError and match the sentinels with
// errors.Is:
//
//	if errors.Is(err, clientcli.ErrQuotaExceeded) {
//		// the folder is full
//	}
//
// # Output Formatting
//
//	formatter := clientcli.NewFormatter(jsonOutput, quiet)
//	formatter.FormatUpload(os.Stdout, results)
package clientcli
