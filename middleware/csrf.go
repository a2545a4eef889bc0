package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/MrEthical07/labauth"
)

// CheckCSRF enforces double-submit protection on r. Safe methods and
// bearer-authenticated requests pass; otherwise the header named by
// cfg.HeaderName must equal the cookie named by cfg.CookieName.
func CheckCSRF(r *http.Request, cfg labauth.CSRFConfig) error {
	if !cfg.Enabled {
		return nil
	}
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return nil
	}
	if _, ok := BearerToken(r); ok {
		return nil
	}

	header := r.Header.Get(cfg.HeaderName)
	cookie := cookieValue(r, cfg.CookieName)
	if header == "" || cookie == "" {
		return labauth.ErrCSRFMissing
	}
	if subtle.ConstantTimeCompare([]byte(header), []byte(cookie)) != 1 {
		return labauth.ErrCSRFInvalid
	}
	return nil
}

// CSRF wraps [CheckCSRF] as middleware. A nil onError writes a plain 403.
func CSRF(cfg labauth.CSRFConfig, onError ErrorWriter) func(http.Handler) http.Handler {
	if onError == nil {
		onError = plainError
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := CheckCSRF(r, cfg); err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
