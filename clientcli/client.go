package clientcli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

const (
	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 60 * time.Second

	// PasswordHeader carries the folder password on requests without a JSON body.
	PasswordHeader = "X-Folder-Password"
)

// Client performs operations against a snapsi server.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New creates a new Client with the given config and options.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	// Apply defaults
	cfg = cfg.WithDefaults()

	u, err := url.Parse(cfg.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q", cfg.Endpoint)
	}

	c := &Client{
		// Normalize endpoint URL (remove trailing slash)
		endpoint:   strings.TrimSuffix(cfg.Endpoint, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}

	// Apply options
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Health checks that the server answers.
func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/healthz", nil, "", nil)
}

// CreateFolder creates a folder. An empty password creates a public folder.
func (c *Client) CreateFolder(ctx context.Context, name, password string) (*Folder, error) {
	body := map[string]string{"name": name}
	if password != "" {
		body["password"] = password
	}

	var folder Folder
	if err := c.doJSON(ctx, http.MethodPost, "/api/folders", body, "", &folder); err != nil {
		return nil, fmt.Errorf("create folder: %w", err)
	}
	return &folder, nil
}

// GetFolder returns a folder by id.
func (c *Client) GetFolder(ctx context.Context, folderID string) (*Folder, error) {
	if folderID == "" {
		return nil, ErrFolderRequired
	}

	var folder Folder
	if err := c.doJSON(ctx, http.MethodGet, folderPath(folderID), nil, "", &folder); err != nil {
		return nil, fmt.Errorf("get folder: %w", err)
	}
	return &folder, nil
}

// VerifyPassword checks a folder password. It returns nil when the password
// unlocks the folder, ErrForbidden when it is wrong and ErrPasswordRequired
// when it is empty for a protected folder.
func (c *Client) VerifyPassword(ctx context.Context, folderID, password string) error {
	if folderID == "" {
		return ErrFolderRequired
	}

	body := map[string]string{"password": password}
	if err := c.doJSON(ctx, http.MethodPost, folderPath(folderID)+"/verify", body, "", nil); err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	return nil
}

// ListImages returns the images of a folder, newest first.
func (c *Client) ListImages(ctx context.Context, folderID string) ([]Image, error) {
	if folderID == "" {
		return nil, ErrFolderRequired
	}

	var resp struct {
		Items []Image `json:"items"`
	}
	if err := c.doJSON(ctx, http.MethodGet, folderPath(folderID)+"/images", nil, "", &resp); err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	return resp.Items, nil
}

// Recount asks the server to recompute the folder's cached image count.
// Protected folders need their password.
func (c *Client) Recount(ctx context.Context, folderID, password string) (int, error) {
	if folderID == "" {
		return 0, ErrFolderRequired
	}

	var resp struct {
		ImageCount int `json:"image_count"`
	}
	if err := c.doJSON(ctx, http.MethodPost, folderPath(folderID)+"/recount", nil, password, &resp); err != nil {
		return 0, fmt.Errorf("recount: %w", err)
	}
	return resp.ImageCount, nil
}

// Upload uploads files into a folder, one at a time.
// Continues on error, collecting results for all paths.
func (c *Client) Upload(ctx context.Context, opts UploadOptions) ([]UploadResult, error) {
	if opts.FolderID == "" {
		return nil, ErrFolderRequired
	}
	if len(opts.Paths) == 0 {
		return nil, ErrNoPaths
	}

	results := make([]UploadResult, 0, len(opts.Paths))
	for _, path := range opts.Paths {
		// Check context cancellation
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result, err := c.uploadSingle(ctx, opts, path)
		if err != nil {
			result = UploadResult{LocalPath: path, Err: err}
		}
		results = append(results, result)
	}

	return results, nil
}

// uploadSingle uploads one file, either through an upload URL or directly.
func (c *Client) uploadSingle(ctx context.Context, opts UploadOptions, localPath string) (UploadResult, error) {
	if localPath == "" {
		return UploadResult{}, ErrEmptyPath
	}

	file, err := os.Open(localPath) //#nosec G304 -- localPath is user-provided input
	if err != nil {
		return UploadResult{}, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return UploadResult{}, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return UploadResult{}, fmt.Errorf("%s is a directory", localPath)
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType, err = detectContentType(file)
		if err != nil {
			return UploadResult{}, err
		}
	}

	var meta objectMeta
	if opts.Direct {
		meta, err = c.uploadDirect(ctx, opts, filepath.Base(localPath), contentType, file, info.Size())
	} else {
		meta, err = c.uploadViaURL(ctx, opts, filepath.Base(localPath), contentType, file, info.Size())
	}
	if err != nil {
		return UploadResult{}, err
	}

	return UploadResult{
		LocalPath:   localPath,
		Name:        meta.Name,
		Key:         meta.Key,
		ContentType: meta.ContentType,
		Size:        meta.Size,
		CreatedAt:   meta.CreatedAt,
	}, nil
}

func (c *Client) uploadDirect(ctx context.Context, opts UploadOptions, name, contentType string, body io.Reader, size int64) (objectMeta, error) {
	target := c.endpoint + folderPath(opts.FolderID) + "/images?name=" + url.QueryEscape(name)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return objectMeta{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = size
	if opts.Password != "" {
		req.Header.Set(PasswordHeader, opts.Password)
	}

	var meta objectMeta
	if err := c.do(req, &meta); err != nil {
		return objectMeta{}, fmt.Errorf("upload: %w", err)
	}
	return meta, nil
}

func (c *Client) uploadViaURL(ctx context.Context, opts UploadOptions, name, contentType string, body io.Reader, size int64) (objectMeta, error) {
	var intent uploadIntent
	err := c.doJSON(ctx, http.MethodPost, folderPath(opts.FolderID)+"/uploads", map[string]any{
		"file_name":    name,
		"content_type": contentType,
		"size":         size,
		"password":     opts.Password,
	}, "", &intent)
	if err != nil {
		return objectMeta{}, fmt.Errorf("request upload url: %w", err)
	}

	method := intent.Method
	if method == "" {
		method = http.MethodPut
	}

	req, err := http.NewRequestWithContext(ctx, method, intent.URL, body)
	if err != nil {
		return objectMeta{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", intent.ContentType)
	req.ContentLength = size

	if !intent.CompleteRequired {
		var meta objectMeta
		if err := c.do(req, &meta); err != nil {
			return objectMeta{}, fmt.Errorf("upload: %w", err)
		}
		return meta, nil
	}

	// The URL points at the object store, whose response is not ours to parse.
	if err := c.do(req, nil); err != nil {
		return objectMeta{}, fmt.Errorf("upload: %w", err)
	}

	var meta objectMeta
	err = c.doJSON(ctx, http.MethodPost, folderPath(opts.FolderID)+"/images/complete", map[string]string{
		"name":     intent.Name,
		"password": opts.Password,
	}, "", &meta)
	if err != nil {
		return objectMeta{}, fmt.Errorf("complete upload: %w", err)
	}
	return meta, nil
}

// Download fetches one image through its signed read URL.
// If opts.LocalPath is "-", the content is returned via the io.ReadCloser and must be closed by the caller.
// Otherwise, the content is written to the file and the io.ReadCloser is nil.
func (c *Client) Download(ctx context.Context, opts DownloadOptions) (*DownloadResult, io.ReadCloser, error) {
	if opts.FolderID == "" {
		return nil, nil, ErrFolderRequired
	}
	if opts.Name == "" {
		return nil, nil, fmt.Errorf("download: %w", ErrEmptyPath)
	}

	images, err := c.ListImages(ctx, opts.FolderID)
	if err != nil {
		return nil, nil, err
	}

	var image *Image
	for i := range images {
		if images[i].Name == opts.Name {
			image = &images[i]
			break
		}
	}
	if image == nil {
		return nil, nil, fmt.Errorf("download %s: %w", opts.Name, ErrImageNotFound)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, image.URL, http.NoBody)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		return nil, nil, parseServerError(resp)
	}

	result := &DownloadResult{
		Name:        image.Name,
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
	}

	// If stdout requested, return the body for the caller to handle
	if opts.LocalPath == "-" {
		result.LocalPath = "-"
		return result, resp.Body, nil
	}
	defer func() { _ = resp.Body.Close() }()

	localPath := opts.LocalPath
	if localPath == "" {
		localPath = image.Name
	}
	result.LocalPath = localPath

	// Create parent directories if needed
	if dir := filepath.Dir(localPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("create directory: %w", err)
		}
	}

	file, err := os.Create(localPath) //#nosec G304 -- localPath is user-provided input
	if err != nil {
		return nil, nil, fmt.Errorf("create file: %w", err)
	}

	written, copyErr := io.Copy(file, resp.Body)
	if copyErr != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("write file: %w", copyErr)
	}
	if err := file.Close(); err != nil {
		return nil, nil, fmt.Errorf("close file: %w", err)
	}

	result.Size = written
	return result, nil, nil
}

// Delete deletes one or more images from a folder.
// Continues on error, collecting results for all names.
func (c *Client) Delete(ctx context.Context, opts DeleteOptions) ([]DeleteResult, error) {
	if opts.FolderID == "" {
		return nil, ErrFolderRequired
	}
	if len(opts.Names) == 0 {
		return nil, ErrNoPaths
	}

	results := make([]DeleteResult, 0, len(opts.Names))
	for _, name := range opts.Names {
		// Check context cancellation
		if err := ctx.Err(); err != nil {
			return results, err
		}

		path := folderPath(opts.FolderID) + "/images/" + url.PathEscape(name)
		err := c.doJSON(ctx, http.MethodDelete, path, nil, opts.Password, nil)
		results = append(results, DeleteResult{Name: name, Deleted: err == nil, Err: err})
	}

	return results, nil
}

// HasDeleteErrors returns true if any delete operation failed.
func HasDeleteErrors(results []DeleteResult) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// HasUploadErrors returns true if any upload failed.
func HasUploadErrors(results []UploadResult) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// doJSON sends an API request with an optional JSON body and decodes the
// response into out when it is not nil.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, password string, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if password != "" {
		req.Header.Set(PasswordHeader, password)
	}

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseServerError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func folderPath(folderID string) string {
	return "/api/folders/" + url.PathEscape(folderID)
}

// detectContentType sniffs the file content and rewinds it. Extension based
// detection is the fallback for content mimetype does not recognize.
func detectContentType(f *os.File) (string, error) {
	detected, err := mimetype.DetectReader(f)
	if err != nil {
		return "", fmt.Errorf("detect content type: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind file: %w", err)
	}

	contentType, _, err := mime.ParseMediaType(detected.String())
	if err == nil && contentType != "application/octet-stream" {
		return contentType, nil
	}

	if byExt := mime.TypeByExtension(filepath.Ext(f.Name())); byExt != "" {
		contentType, _, _ = mime.ParseMediaType(byExt)
		return contentType, nil
	}
	return "application/octet-stream", nil
}

// parseServerError extracts the error document from a server response.
func parseServerError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var doc struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &doc) == nil && doc.Error != "" {
		apiErr.Code = doc.Error
		apiErr.Message = doc.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}

	if s := resp.Header.Get("Retry-After"); s != "" {
		if seconds, err := strconv.Atoi(s); err == nil {
			apiErr.RetryAfter = time.Duration(seconds) * time.Second
		}
	}

	return apiErr
}
