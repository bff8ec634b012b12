package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/MrJamesThe3rd/tally/internal/auth"
	"github.com/MrJamesThe3rd/tally/internal/http/render"
	"github.com/MrJamesThe3rd/tally/internal/idempotency"
)

const IdempotencyHeader = "Idempotency-Key"

// Idempotent replays the stored response for mutating requests that repeat an
// Idempotency-Key. Requests without the header pass through.
func Idempotent(svc *idempotency.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if key == "" || !mutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				render.JSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable request body"})
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))

			var caller string
			if id, ok := auth.UserID(r.Context()); ok {
				caller = id.String()
			}

			hash := idempotency.Hash(r.Method, r.URL.RequestURI(), caller, body)

			stored, err := svc.Begin(r.Context(), key, hash, r.Method, r.URL.RequestURI())
			if err != nil {
				render.Error(w, r, err)
				return
			}

			if stored != nil {
				contentType := stored.ContentType
				if contentType == "" {
					contentType = "application/json"
				}

				w.Header().Set("Content-Type", contentType)
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(stored.Status)
				_, _ = w.Write(stored.Body)

				return
			}

			var buf bytes.Buffer

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&buf)

			resp := idempotency.Response{Status: http.StatusInternalServerError}

			defer func() {
				resp.Body = buf.Bytes()
				svc.Finish(context.WithoutCancel(r.Context()), key, resp)
			}()

			next.ServeHTTP(ww, r)

			resp.Status = ww.Status()
			if resp.Status == 0 {
				resp.Status = http.StatusOK
			}

			resp.ContentType = ww.Header().Get("Content-Type")
		})
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}
