package http

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sagarc03/snapsi"
)

// RequestVerifier checks a capability URL. snapsi.URLVerifier implements it.
type RequestVerifier interface {
	Verify(r *http.Request, resourcePath string) error
}

// SignedURLMiddleware rejects object requests whose capability URL does not
// verify for the requested key.
func SignedURLMiddleware(verifier RequestVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, err := objectKey(r)
			if err != nil {
				HandleError(w, err)
				return
			}

			if err := verifier.Verify(r, snapsi.ObjectsPath+key); err != nil {
				HandleError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger logs one line per request once the response is written.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}

			level := slog.LevelInfo
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelError
			}

			slog.Log(r.Context(), level, "request",
				"method", r.Method,
				"route", route,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
				"client", ClientAddress(r),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// ClientAddress identifies the caller for rate limiting. It is the host part
// of RemoteAddr, which middleware.RealIP rewrites when proxy headers are trusted.
func ClientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
