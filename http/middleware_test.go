package http_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sagarc03/snapsi"
	snapsihttp "github.com/sagarc03/snapsi/http"
	"github.com/sagarc03/snapsi/keybackend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testBaseURL   = "http://localhost:5708"
	testAccessKey = "AKIDEXAMPLE"
	testSecretKey = "wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY"
)

type recordingVerifier struct {
	paths []string
	err   error
}

func (v *recordingVerifier) Verify(_ *http.Request, resourcePath string) error {
	v.paths = append(v.paths, resourcePath)
	return v.err
}

func newObjectsRouter(verifier snapsihttp.RequestVerifier) http.Handler {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(snapsihttp.SignedURLMiddleware(verifier))
		r.Get(snapsi.ObjectsPath+"*", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		r.Put(snapsi.ObjectsPath+"*", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusCreated)
		})
	})
	return r
}

func TestSignedURLMiddleware_PassesKeyToVerifier(t *testing.T) {
	verifier := &recordingVerifier{}
	router := newObjectsRouter(verifier)

	key := uuid.NewString() + "/beach_1.png"
	req := httptest.NewRequest(http.MethodGet, snapsi.ObjectsPath+key, nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{snapsi.ObjectsPath + key}, verifier.paths)
}

func TestSignedURLMiddleware_RejectsBadKeys(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{name: "no folder", path: snapsi.ObjectsPath + "beach_1.png"},
		{name: "not a uuid", path: snapsi.ObjectsPath + "abc/beach_1.png"},
		{name: "nested", path: snapsi.ObjectsPath + uuid.NewString() + "/x/beach_1.png"},
		{name: "marker", path: snapsi.ObjectsPath + uuid.NewString() + "/.placeholder"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := &recordingVerifier{}
			router := newObjectsRouter(verifier)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, verifier.paths)
		})
	}
}

func TestSignedURLMiddleware_VerifierError(t *testing.T) {
	verifier := &recordingVerifier{err: fmt.Errorf("signature mismatch: %w", snapsi.ErrUnauthorized)}
	router := newObjectsRouter(verifier)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, snapsi.ObjectsPath+uuid.NewString()+"/a_1.png", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Equal(t, "unauthorized", decodeBody(t, rec)["error"])
}

func TestSignedURLMiddleware_WithURLVerifier(t *testing.T) {
	signer, err := snapsi.NewURLSigner(testBaseURL, testAccessKey, testSecretKey)
	require.NoError(t, err)

	store := keybackend.NewMapSecretStore(map[string]string{testAccessKey: testSecretKey})
	router := newObjectsRouter(snapsi.NewURLVerifier(store))

	key := uuid.NewString() + "/beach_1.png"

	t.Run("signed read", func(t *testing.T) {
		signed, _, err := signer.Sign(http.MethodGet, key, "", 5*time.Minute)
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, signed, nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("unsigned read", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, snapsi.ObjectsPath+key, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("read url used for another key", func(t *testing.T) {
		signed, _, err := signer.Sign(http.MethodGet, key, "", 5*time.Minute)
		require.NoError(t, err)

		other := strings.Replace(signed, "beach_1.png", "other_1.png", 1)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, other, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("signed upload", func(t *testing.T) {
		signed, _, err := signer.Sign(http.MethodPut, key, "image/png", 5*time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPut, signed, strings.NewReader("png"))
		req.Header.Set("Content-Type", "image/png")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("upload with another content type", func(t *testing.T) {
		signed, _, err := signer.Sign(http.MethodPut, key, "image/png", 5*time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPut, signed, strings.NewReader("gif"))
		req.Header.Set("Content-Type", "image/gif")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("read url used for upload", func(t *testing.T) {
		signed, _, err := signer.Sign(http.MethodGet, key, "", 5*time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPut, signed, strings.NewReader("png"))
		req.Header.Set("Content-Type", "image/png")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestClientAddress(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		want       string
	}{
		{name: "ipv4 with port", remoteAddr: "192.0.2.1:1234", want: "192.0.2.1"},
		{name: "ipv6 with port", remoteAddr: "[2001:db8::1]:443", want: "2001:db8::1"},
		{name: "no port", remoteAddr: "192.0.2.7", want: "192.0.2.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			assert.Equal(t, tt.want, snapsihttp.ClientAddress(req))
		})
	}
}

func TestRequestLogger_PreservesResponse(t *testing.T) {
	handler := snapsihttp.RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Test", "yes")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pot", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "yes", rec.Header().Get("X-Test"))
	assert.Equal(t, "short and stout", rec.Body.String())
}

func TestRouter_TrustProxyHeaders(t *testing.T) {
	folderID := uuid.New()

	tests := []struct {
		name       string
		trust      bool
		wantClient string
	}{
		{name: "trusted", trust: true, wantClient: "203.0.113.9"},
		{name: "untrusted", trust: false, wantClient: "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockService)
			handler := snapsihttp.NewHandler(&snapsihttp.HandlerConfig{TrustProxyHeaders: tt.trust}, service)

			service.On("DeleteImage", mock.Anything, snapsi.DeleteRequest{
				FolderID:      folderID.String(),
				Name:          "a_1.png",
				ClientAddress: tt.wantClient,
			}).Return(nil)

			req := httptest.NewRequest(http.MethodDelete, "/api/folders/"+folderID.String()+"/images/a_1.png", nil)
			req.Header.Set("X-Forwarded-For", "203.0.113.9")
			rec := httptest.NewRecorder()
			handler.Router().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusNoContent, rec.Code)
			service.AssertExpectations(t)
		})
	}
}
