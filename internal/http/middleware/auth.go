package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
	"github.com/MrJamesThe3rd/tally/internal/auth"
	"github.com/MrJamesThe3rd/tally/internal/http/render"
)

// Authenticate requires a valid bearer token and stores its subject in the
// request context.
func Authenticate(issuer *auth.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				render.Error(w, r, fmt.Errorf("%w: missing bearer token", apperr.ErrUnauthorized))
				return
			}

			_, userID, err := issuer.Parse(strings.TrimSpace(token))
			if err != nil {
				render.Error(w, r, fmt.Errorf("%w: invalid token", apperr.ErrUnauthorized))
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
		})
	}
}
