package httpmw

import (
	"context"
	"net/http"
	"strings"

	"github.com/cwrk-planet/chat-service/internal/auth"
)

type ctxKey string

const ctxKeyIdentity ctxKey = "identity"

// AuthMiddleware resolves the Bearer token into a user identity via the
// configured authenticator. Requests without a resolvable identity are
// rejected here, before any handler runs.
func AuthMiddleware(authn auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") || len(header) <= 7 {
				http.Error(w, `{"error":"missing bearer token"}`, http.StatusUnauthorized)
				return
			}

			identity, err := authn.Authenticate(r.Context(), strings.TrimSpace(header[7:]))
			if err != nil {
				http.Error(w, `{"error":"authentication failed"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyIdentity, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func IdentityFromCtx(ctx context.Context) (auth.Identity, bool) {
	v, ok := ctx.Value(ctxKeyIdentity).(auth.Identity)
	return v, ok
}
