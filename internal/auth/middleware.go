package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/splitledger/splitledger/internal/platform/httpx"
	"github.com/splitledger/splitledger/internal/shared"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the access-token claims stored by Middleware.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsContextKey{}).(Claims)
	return c, ok
}

// Middleware returns the authentication gate for protected routes. It
// verifies the Bearer token, rejects denylisted jtis, and stores the user
// identity in the request context.
func Middleware(tokens *TokenIssuer, denylist Denylist) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				httpx.RespondError(w, shared.Errorf(shared.CodeTokenMissing, http.StatusUnauthorized,
					"Authorization header is missing."))
				return
			}
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				httpx.RespondError(w, shared.Errorf(shared.CodeTokenInvalid, http.StatusUnauthorized,
					"Authorization header must be of the form 'Bearer <token>'."))
				return
			}

			claims, err := tokens.ParseAccessToken(raw)
			if err != nil {
				httpx.RespondError(w, err)
				return
			}

			denied, err := denylist.Contains(r.Context(), claims.JTI)
			if err != nil {
				httpx.RespondError(w, err)
				return
			}
			if denied {
				httpx.RespondError(w, shared.Errorf(shared.CodeTokenInvalid, http.StatusUnauthorized,
					"The access token has been revoked."))
				return
			}

			ctx := shared.ContextWithUserID(r.Context(), claims.UserID)
			ctx = context.WithValue(ctx, claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
