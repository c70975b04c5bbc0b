package httpserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/JuanGomePer/chatgpt2025/internal/domain"
	"github.com/JuanGomePer/chatgpt2025/internal/identity"
	"github.com/JuanGomePer/chatgpt2025/internal/security"
)

type contextKey string

const identityContextKey contextKey = "currentIdentity"

// WithIdentity returns a new context carrying the signed-in identity.
func WithIdentity(ctx context.Context, ident *domain.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, ident)
}

// CurrentIdentity extracts the signed-in identity from the request context,
// if any.
func CurrentIdentity(r *http.Request) *domain.Identity {
	if v := r.Context().Value(identityContextKey); v != nil {
		if ident, ok := v.(*domain.Identity); ok {
			return ident
		}
	}
	return nil
}

// AuthMiddleware validates the Bearer token and attaches the identity to the
// context. A structurally valid token whose principal has since signed out
// is rejected the same way as a bad token.
func AuthMiddleware(tokens *security.TokenService, idsvc *identity.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
				http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
				return
			}
			tokenStr := strings.TrimSpace(authHeader[len("Bearer "):])

			uid, err := tokens.ParseUID(tokenStr)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ident := idsvc.Current(uid)
			if ident == nil {
				http.Error(w, "signed out", http.StatusUnauthorized)
				return
			}

			ctx := WithIdentity(r.Context(), ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
