package auth

import (
	"context"
	"net/http"

	"github.com/snippet-oracle/snippet-oracle/internal/model"
)

// contextKey is unexported so only this package can place or read the viewer
// in a request context.
type contextKey string

const viewerKey contextKey = "viewer"

// TokenCookie is the HttpOnly cookie holding the session token.
const TokenCookie = "token"

// RequireAuth rejects requests without a valid session token with 401, and
// stores the viewer in the context otherwise.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
				return
			}
			ctx := context.WithValue(r.Context(), viewerKey, model.ViewerFor(userID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches the viewer when a valid token is present and lets the
// request through either way. Public routes use this so logged-in users see
// their private snippets in results.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, err := extractUserID(r, tokens); err == nil {
				ctx := context.WithValue(r.Context(), viewerKey, model.ViewerFor(userID))
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ViewerFromContext returns the request's viewer. The zero Viewer means
// anonymous.
func ViewerFromContext(ctx context.Context) model.Viewer {
	if v, ok := ctx.Value(viewerKey).(model.Viewer); ok {
		return v
	}
	return model.Viewer{}
}

func extractUserID(r *http.Request, tokens *TokenService) (int64, error) {
	cookie, err := r.Cookie(TokenCookie)
	if err != nil {
		return 0, err
	}
	return tokens.Validate(cookie.Value)
}
