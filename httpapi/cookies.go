package httpapi

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/labauth"
	"github.com/MrEthical07/labauth/middleware"
)

// RefreshCookieName is the cookie that carries the refresh credential.
const RefreshCookieName = "refresh_token"

const csrfTokenBytes = 32

func newCSRFToken() (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func sameSite(mode string) http.SameSite {
	switch strings.ToLower(mode) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func (h *Handler) secure(r *http.Request) bool {
	return h.cfg.SecureCookies() || r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func (h *Handler) cookie(r *http.Request, name, value string, maxAge time.Duration, httpOnly bool) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.cfg.Cookie.Domain,
		HttpOnly: httpOnly,
		Secure:   h.secure(r),
		SameSite: sameSite(h.cfg.Cookie.SameSite),
	}
	if maxAge > 0 {
		c.MaxAge = int(maxAge / time.Second)
	} else {
		c.MaxAge = -1
	}
	return c
}

// setSessionCookies writes the cookie contract for session and returns the
// CSRF token, or "" when CSRF does not apply.
func (h *Handler) setSessionCookies(w http.ResponseWriter, r *http.Request, session labauth.Session) (string, error) {
	if !h.cfg.Cookie.Enabled {
		return "", nil
	}

	http.SetCookie(w, h.cookie(r, middleware.AccessCookieName, session.AccessToken, session.ExpiresIn, true))
	http.SetCookie(w, h.cookie(r, RefreshCookieName, session.RefreshToken, time.Until(session.RefreshExpiresAt), true))

	if !h.cfg.CSRF.Enabled {
		return "", nil
	}
	token, err := newCSRFToken()
	if err != nil {
		return "", err
	}
	http.SetCookie(w, h.cookie(r, h.cfg.CSRF.CookieName, token, time.Until(session.RefreshExpiresAt), false))
	return token, nil
}

func (h *Handler) clearSessionCookies(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.Cookie.Enabled {
		return
	}
	http.SetCookie(w, h.cookie(r, middleware.AccessCookieName, "", 0, true))
	http.SetCookie(w, h.cookie(r, RefreshCookieName, "", 0, true))
	if h.cfg.CSRF.CookieName != "" {
		http.SetCookie(w, h.cookie(r, h.cfg.CSRF.CookieName, "", 0, false))
	}
}
