package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/labauth"
)

// AccessCookieName is the cookie that carries the access credential.
const AccessCookieName = "access_token"

// Authenticator verifies access credentials. *labauth.Service implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, access string) (labauth.AccessClaims, error)
}

// ErrorWriter renders a rejected request.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

type claimsContextKey struct{}

// ClaimsFromContext returns the claims injected by [Guard].
func ClaimsFromContext(ctx context.Context) (labauth.AccessClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(labauth.AccessClaims)
	return claims, ok
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims labauth.AccessClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// Guard requires a valid access credential. The bearer header wins over the
// access cookie. A nil onError writes a plain 401.
func Guard(auth Authenticator, onError ErrorWriter) func(http.Handler) http.Handler {
	if onError == nil {
		onError = plainError
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				onError(w, r, labauth.ErrTokenInvalid)
				return
			}

			token, ok := BearerToken(r)
			if !ok {
				token = cookieValue(r, AccessCookieName)
			}
			if token == "" {
				onError(w, r, labauth.ErrTokenInvalid)
				return
			}

			claims, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				onError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole rejects requests whose claims lack role with
// labauth.ErrForbidden. It must run after [Guard].
func RequireRole(role string, onError ErrorWriter) func(http.Handler) http.Handler {
	if onError == nil {
		onError = plainError
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				onError(w, r, labauth.ErrTokenInvalid)
				return
			}
			if claims.Role != role {
				onError(w, r, labauth.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken returns the credential of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	const bearer = "bearer "
	value := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(value) <= len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}
	return token, true
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}

func plainError(w http.ResponseWriter, _ *http.Request, err error) {
	status := http.StatusUnauthorized
	switch labauth.ErrorCode(err) {
	case labauth.CodeForbidden, labauth.CodeCSRFMissing, labauth.CodeCSRFInvalid, labauth.CodeAccountInactive:
		status = http.StatusForbidden
	}
	http.Error(w, labauth.ErrorCode(err), status)
}
