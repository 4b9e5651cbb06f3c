package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/sagarc03/snapsi"
)

// PasswordHeader carries the folder password when a request has no JSON body.
const PasswordHeader = "X-Folder-Password"

const maxJSONBody = 1 << 20

// Service is the folder API served over HTTP. *snapsi.FolderService implements it.
type Service interface {
	CreateFolder(ctx context.Context, req snapsi.CreateFolderRequest) (snapsi.Folder, error)
	GetFolder(ctx context.Context, folderID string) (snapsi.Folder, error)
	VerifyPassword(ctx context.Context, folderID, password string) (bool, error)
	ListImages(ctx context.Context, folderID string) ([]snapsi.Image, error)
	RequestUpload(ctx context.Context, req snapsi.UploadRequest) (snapsi.UploadIntent, error)
	Upload(ctx context.Context, req snapsi.UploadRequest, content io.Reader) (snapsi.ObjectMeta, error)
	AcceptUpload(ctx context.Context, key, contentType string, size int64, content io.Reader) (snapsi.ObjectMeta, error)
	CompleteUpload(ctx context.Context, req snapsi.CompleteUploadRequest) (snapsi.ObjectMeta, error)
	DeleteImage(ctx context.Context, req snapsi.DeleteRequest) error
	RecountFolder(ctx context.Context, req snapsi.RecountRequest) (int, error)
	RetryAfter(folderID, clientAddress string, op snapsi.Operation) time.Duration
}

// ObjectOpener serves stored bytes for signed read URLs.
type ObjectOpener interface {
	Open(ctx context.Context, key string) (io.ReadSeekCloser, snapsi.ObjectMeta, error)
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled" yaml:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers" yaml:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers" yaml:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" yaml:"max_age"`
}

type HandlerConfig struct {
	// Objects and Verifier enable the /objects routes. Both are nil when
	// upload and read URLs point at an external store.
	Objects  ObjectOpener
	Verifier RequestVerifier

	// TrustProxyHeaders takes the client address from X-Forwarded-For or X-Real-IP.
	TrustProxyHeaders bool
	CORS              CORSConfig
}

// Handler provides HTTP handlers for the folder API.
type Handler struct {
	config   HandlerConfig
	service  Service
	validate *validator.Validate
}

func NewHandler(config *HandlerConfig, service Service) *Handler {
	return &Handler{
		config:   *config,
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if h.config.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/folders", func(r chi.Router) {
		r.Post("/", h.handleCreateFolder)
		r.Route("/{folderID}", func(r chi.Router) {
			r.Get("/", h.handleGetFolder)
			r.Post("/verify", h.handleVerifyPassword)
			r.Post("/recount", h.handleRecount)
			r.Post("/uploads", h.handleRequestUpload)
			r.Get("/images", h.handleListImages)
			r.Post("/images", h.handleUpload)
			r.Post("/images/complete", h.handleCompleteUpload)
			r.Delete("/images/{name}", h.handleDeleteImage)
		})
	})

	if h.config.Objects != nil && h.config.Verifier != nil {
		r.Group(func(r chi.Router) {
			r.Use(SignedURLMiddleware(h.config.Verifier))
			r.Get(snapsi.ObjectsPath+"*", h.handleGetObject)
			r.Head(snapsi.ObjectsPath+"*", h.handleGetObject)
			r.Put(snapsi.ObjectsPath+"*", h.handlePutObject)
		})
	}

	return r
}

// folderView is the public representation of a folder; the password hash
// never leaves the service.
type folderView struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	HasPassword  bool       `json:"has_password"`
	CreatedAt    time.Time  `json:"created_at"`
	LastUploadAt *time.Time `json:"last_upload_at,omitempty"`
	ImageCount   int        `json:"image_count"`
}

func newFolderView(f snapsi.Folder) folderView {
	return folderView{
		ID:           f.ID.String(),
		Name:         f.Name,
		HasPassword:  f.HasPassword(),
		CreatedAt:    f.CreatedAt,
		LastUploadAt: f.LastUploadAt,
		ImageCount:   f.ImageCount,
	}
}

type createFolderBody struct {
	Name     string `json:"name" validate:"required,max=1024"`
	Password string `json:"password" validate:"max=72"`
}

type passwordBody struct {
	Password string `json:"password" validate:"max=72"`
}

type uploadIntentBody struct {
	FileName    string `json:"file_name" validate:"required,max=1024"`
	ContentType string `json:"content_type" validate:"required"`
	Size        int64  `json:"size" validate:"required,gt=0"`
	Password    string `json:"password" validate:"max=72"`
}

type completeUploadBody struct {
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"max=72"`
}

// decodeJSON decodes and validates a request body. An empty body decodes
// into the zero value when optional is set.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any, optional bool) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)

	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if !(optional && errors.Is(err, io.EOF)) {
			return fmt.Errorf("%w: malformed json body: %v", snapsi.ErrInvalidInput, err)
		}
	}

	if err := h.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", snapsi.ErrInvalidInput, err)
	}
	return nil
}

// password prefers the body field and falls back to the header.
func password(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return r.Header.Get(PasswordHeader)
}

// mediaType strips parameters such as charset from a Content-Type value.
func mediaType(value string) string {
	mt, _, err := mime.ParseMediaType(value)
	if err != nil {
		return value
	}
	return mt
}

// handleServiceError adds Retry-After to rate limited responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error, op snapsi.Operation) {
	if errors.Is(err, snapsi.ErrRateLimited) {
		wait := h.service.RetryAfter(chi.URLParam(r, "folderID"), ClientAddress(r), op)
		seconds := int((wait + time.Second - 1) / time.Second)
		w.Header().Set("Retry-After", fmt.Sprint(max(seconds, 1)))
	}
	HandleError(w, err)
}

func (h *Handler) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var body createFolderBody
	if err := h.decodeJSON(w, r, &body, false); err != nil {
		HandleError(w, err)
		return
	}

	folder, err := h.service.CreateFolder(r.Context(), snapsi.CreateFolderRequest{
		Name:     body.Name,
		Password: body.Password,
	})
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusCreated, newFolderView(folder))
}

func (h *Handler) handleGetFolder(w http.ResponseWriter, r *http.Request) {
	folder, err := h.service.GetFolder(r.Context(), chi.URLParam(r, "folderID"))
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, newFolderView(folder))
}

func (h *Handler) handleVerifyPassword(w http.ResponseWriter, r *http.Request) {
	var body passwordBody
	if err := h.decodeJSON(w, r, &body, true); err != nil {
		HandleError(w, err)
		return
	}

	supplied := password(r, body.Password)
	ok, err := h.service.VerifyPassword(r.Context(), chi.URLParam(r, "folderID"), supplied)
	if err != nil {
		HandleError(w, err)
		return
	}

	if !ok {
		if supplied == "" {
			WriteError(w, http.StatusBadRequest, "password_required", "This folder requires a password")
			return
		}
		WriteError(w, http.StatusForbidden, "forbidden", "Wrong password")
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) handleListImages(w http.ResponseWriter, r *http.Request) {
	images, err := h.service.ListImages(r.Context(), chi.URLParam(r, "folderID"))
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]any{"items": images})
}

func (h *Handler) handleRecount(w http.ResponseWriter, r *http.Request) {
	var body passwordBody
	if err := h.decodeJSON(w, r, &body, true); err != nil {
		HandleError(w, err)
		return
	}

	count, err := h.service.RecountFolder(r.Context(), snapsi.RecountRequest{
		FolderID:      chi.URLParam(r, "folderID"),
		Password:      password(r, body.Password),
		ClientAddress: ClientAddress(r),
	})
	if err != nil {
		h.handleServiceError(w, r, err, snapsi.OpRecount)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]int{"image_count": count})
}

func (h *Handler) handleRequestUpload(w http.ResponseWriter, r *http.Request) {
	var body uploadIntentBody
	if err := h.decodeJSON(w, r, &body, false); err != nil {
		HandleError(w, err)
		return
	}

	intent, err := h.service.RequestUpload(r.Context(), snapsi.UploadRequest{
		FolderID:      chi.URLParam(r, "folderID"),
		FileName:      body.FileName,
		ContentType:   mediaType(body.ContentType),
		Size:          body.Size,
		Password:      password(r, body.Password),
		ClientAddress: ClientAddress(r),
	})
	if err != nil {
		h.handleServiceError(w, r, err, snapsi.OpUpload)
		return
	}

	_ = WriteJSON(w, http.StatusCreated, intent)
}

// handleUpload takes the image as the raw request body.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Query parameter name is required")
		return
	}

	meta, err := h.service.Upload(r.Context(), snapsi.UploadRequest{
		FolderID:      chi.URLParam(r, "folderID"),
		FileName:      name,
		ContentType:   mediaType(r.Header.Get("Content-Type")),
		Size:          r.ContentLength,
		Password:      r.Header.Get(PasswordHeader),
		ClientAddress: ClientAddress(r),
	}, r.Body)
	if err != nil {
		h.handleServiceError(w, r, err, snapsi.OpUpload)
		return
	}

	_ = WriteJSON(w, http.StatusCreated, meta)
}

func (h *Handler) handleCompleteUpload(w http.ResponseWriter, r *http.Request) {
	var body completeUploadBody
	if err := h.decodeJSON(w, r, &body, false); err != nil {
		HandleError(w, err)
		return
	}

	meta, err := h.service.CompleteUpload(r.Context(), snapsi.CompleteUploadRequest{
		FolderID:      chi.URLParam(r, "folderID"),
		Name:          body.Name,
		Password:      password(r, body.Password),
		ClientAddress: ClientAddress(r),
	})
	if err != nil {
		h.handleServiceError(w, r, err, snapsi.OpComplete)
		return
	}

	_ = WriteJSON(w, http.StatusOK, meta)
}

func (h *Handler) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Malformed image name")
		return
	}

	err = h.service.DeleteImage(r.Context(), snapsi.DeleteRequest{
		FolderID:      chi.URLParam(r, "folderID"),
		Name:          name,
		Password:      r.Header.Get(PasswordHeader),
		ClientAddress: ClientAddress(r),
	})
	if err != nil {
		h.handleServiceError(w, r, err, snapsi.OpDelete)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
