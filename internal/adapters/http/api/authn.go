package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/visualverse/internal/adapters/repository/adminstore"
	"github.com/okian/visualverse/internal/auth"
)

// Authenticator resolves a bearer token to a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Principal, error)
}

type authMiddleware struct {
	authn Authenticator
}

func newAuthMiddleware(a Authenticator) *authMiddleware {
	return &authMiddleware{authn: a}
}

// require authenticates the request and checks the principal's role.
func (m *authMiddleware) require(role adminstore.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "api.authenticate"
			token, ok := bearer(r)
			if !ok {
				writeError(w, r, NewKind(op, ErrUnauthorized))
				return
			}
			p, err := m.authn.Authenticate(r.Context(), token)
			if err != nil {
				writeError(w, r, Wrap(op, err))
				return
			}
			if err := p.Require(role); err != nil {
				writeError(w, r, Wrap(op, err))
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}

// bearer extracts the token of an "Authorization: Bearer <token>" header.
func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
