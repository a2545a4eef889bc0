package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/labauth"
	"github.com/MrEthical07/labauth/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const (
	maxBodyBytes = 1 << 20

	// RefreshHeader is the dedicated refresh-credential header.
	RefreshHeader = "X-Refresh-Token"
)

// SessionService is the part of *labauth.Service the HTTP layer uses.
type SessionService interface {
	Signup(ctx context.Context, req labauth.SignupRequest) (labauth.Session, error)
	Login(ctx context.Context, identity, secret string) (labauth.Session, error)
	Refresh(ctx context.Context, raw string) (labauth.Session, error)
	Logout(ctx context.Context, raw string) string
	Authenticate(ctx context.Context, access string) (labauth.AccessClaims, error)
	CurrentAccount(ctx context.Context, subjectID string) (labauth.Account, error)
	DeleteAccount(ctx context.Context, subjectID string) error
	AdminDeleteAccount(ctx context.Context, actor labauth.AccessClaims, target string) error
	RecentAuthEvents(ctx context.Context, subjectID string, limit int) ([]labauth.AuditEntry, error)
}

// Handler serves the authentication routes.
type Handler struct {
	svc    SessionService
	cfg    labauth.Config
	logger *zap.Logger
}

// NewHandler returns a Handler. cfg supplies the cookie and CSRF contract and
// should be the Service's effective configuration.
func NewHandler(svc SessionService, cfg labauth.Config, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, cfg: cfg, logger: logger}
}

// Router mounts every route on a chi router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.ClientMeta(h.cfg.TrustedProxies))

	csrf := middleware.CSRF(h.csrfConfig(), h.writeError)
	guard := middleware.Guard(h.svc, h.writeError)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.signup)
		r.Post("/login", h.login)

		r.With(csrf).Post("/refresh", h.refresh)
		r.With(csrf).Post("/logout", h.logout)

		r.Group(func(r chi.Router) {
			r.Use(guard, csrf)
			r.Get("/me", h.me)
			r.Delete("/me", h.deleteMe)
			r.Get("/me/events", h.events)
			r.Delete("/accounts/{id}", h.adminDelete)
		})
	})

	return r
}

// csrfConfig applies CSRF only while cookie sessions are enabled.
func (h *Handler) csrfConfig() labauth.CSRFConfig {
	cfg := h.cfg.CSRF
	cfg.Enabled = cfg.Enabled && h.cfg.Cookie.Enabled
	return cfg
}

type signupRequest struct {
	Identity string          `json:"identity"`
	Secret   string          `json:"secret"`
	Profile  labauth.Profile `json:"profile"`
	Consent  labauth.Consent `json:"consent"`
}

type loginRequest struct {
	Identity string `json:"identity"`
	Secret   string `json:"secret"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type sessionResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Subject      string `json:"subject"`
	CSRFToken    string `json:"csrf_token,omitempty"`
}

type profileResponse struct {
	ID       string `json:"id"`
	Identity string `json:"identity"`
	Role     string `json:"role"`
	labauth.Profile
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decode(w, r, &req, false); err != nil {
		h.writeError(w, r, err)
		return
	}

	session, err := h.svc.Signup(r.Context(), labauth.SignupRequest{
		Identity: req.Identity,
		Secret:   req.Secret,
		Profile:  req.Profile,
		Consent:  req.Consent,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSession(w, r, session)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req, false); err != nil {
		h.writeError(w, r, err)
		return
	}

	session, err := h.svc.Login(r.Context(), req.Identity, req.Secret)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSession(w, r, session)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	raw, err := h.refreshToken(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if raw == "" {
		h.writeError(w, r, labauth.ErrTokenInvalid)
		return
	}

	session, err := h.svc.Refresh(r.Context(), raw)
	if err != nil {
		if errors.Is(err, labauth.ErrTokenInvalid) {
			h.clearSessionCookies(w, r)
		}
		h.writeError(w, r, err)
		return
	}
	h.writeSession(w, r, session)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	// A malformed body still logs out whatever the other carriers name.
	raw, _ := h.refreshToken(w, r)
	h.svc.Logout(r.Context(), raw)

	h.clearSessionCookies(w, r)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())

	acct, err := h.svc.CurrentAccount(r.Context(), claims.SubjectID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{
		ID:          acct.ID,
		Identity:    acct.Identity,
		Role:        acct.Role,
		Profile:     acct.Profile,
		CreatedAt:   acct.CreatedAt,
		LastLoginAt: acct.LastLoginAt,
	})
}

func (h *Handler) deleteMe(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())

	if err := h.svc.DeleteAccount(r.Context(), claims.SubjectID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.clearSessionCookies(w, r)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())

	limit := labauth.MaxAuditEventsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("%w: limit must be an integer", labauth.ErrInvalidRequest))
			return
		}
		limit = n
	}

	events, err := h.svc.RecentAuthEvents(r.Context(), claims.SubjectID, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) adminDelete(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())

	if err := h.svc.AdminDeleteAccount(r.Context(), claims, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) writeSession(w http.ResponseWriter, r *http.Request, session labauth.Session) {
	csrfToken, err := h.setSessionCookies(w, r, session)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(session.ExpiresIn / time.Second),
		Subject:      session.SubjectID,
		CSRFToken:    csrfToken,
	})
}

// refreshToken applies the carrier precedence: request body, refresh header,
// bearer header, cookie. The first non-empty value wins.
func (h *Handler) refreshToken(w http.ResponseWriter, r *http.Request) (string, error) {
	var body refreshRequest
	err := decode(w, r, &body, true)
	if v := strings.TrimSpace(body.RefreshToken); v != "" {
		return v, nil
	}
	if v := strings.TrimSpace(r.Header.Get(RefreshHeader)); v != "" {
		return v, err
	}
	if v, ok := middleware.BearerToken(r); ok {
		return v, err
	}
	if c, cerr := r.Cookie(RefreshCookieName); cerr == nil {
		if v := strings.TrimSpace(c.Value); v != "" {
			return v, err
		}
	}
	return "", err
}

// decode reads a JSON body of at most maxBodyBytes into v. Unknown fields
// and trailing data are rejected. With optional set, an empty body is not an
// error.
func decode(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	if r.Body == nil || r.Body == http.NoBody {
		if optional {
			return nil
		}
		return fmt.Errorf("%w: request body required", labauth.ErrInvalidRequest)
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && optional {
			return nil
		}
		return fmt.Errorf("%w: %v", labauth.ErrInvalidRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON body", labauth.ErrInvalidRequest)
	}
	return nil
}
