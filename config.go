package labauth

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/MrEthical07/labauth/internal/rate"
)

// Config is the complete session-service configuration. Build it with
// DefaultConfig or ConfigFromEnv and treat it as immutable afterwards.
type Config struct {
	JWT       JWTConfig
	Refresh   RefreshConfig
	RateLimit RateLimitConfig
	Cookie    CookieConfig
	CSRF      CSRFConfig
	Password  PasswordConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
	// Production enables production-only hardening such as Secure cookies.
	Production bool
	// TrustedProxies lists the direct peers whose X-Forwarded-For header is
	// honoured. Empty means the client address is always the socket peer.
	TrustedProxies []netip.Prefix
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures access-credential signing.
type JWTConfig struct {
	AccessTTL time.Duration
	// SigningMethod is "hs256" (default) or "ed25519".
	SigningMethod string
	Secret        []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig configures refresh-credential lifetime and garbage collection.
type RefreshConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig configures the login limiter.
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
	// Mode is "memory", "shared", or "hybrid".
	Mode string
	// AuditMaxFailures is the independent threshold of the audit-history
	// check in hybrid mode. Zero uses MaxRequests.
	AuditMaxFailures int
}

/*
====================================
COOKIE / CSRF CONFIG
====================================
*/

// CookieConfig configures cookie-carried sessions.
type CookieConfig struct {
	Enabled bool
	Domain  string
	// SameSite is "lax" (default), "strict", or "none". "none" forces Secure.
	SameSite string
	// Secure forces the Secure attribute regardless of transport.
	Secure bool
}

// CSRFConfig configures double-submit protection. It only applies while
// cookie sessions are enabled.
type CSRFConfig struct {
	Enabled    bool
	HeaderName string
	CookieName string
}

/*
====================================
PASSWORD / AUDIT / METRICS CONFIG
====================================
*/

// PasswordConfig selects the hasher and policy.
type PasswordConfig struct {
	// Hasher is "bcrypt" (default) or "argon2".
	Hasher         string
	BcryptCost     int
	MinLength      int
	UpgradeOnLogin bool
}

// AuditConfig configures audit dispatch. A zero BufferSize writes
// synchronously on the request goroutine.
type AuditConfig struct {
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters.
type MetricsConfig struct {
	Enabled bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. JWT.Secret must still be
// supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     30 * time.Minute,
			SigningMethod: "hs256",
			Issuer:        "labauth",
			Leeway:        30 * time.Second,
		},
		Refresh: RefreshConfig{
			TTL:           7 * 24 * time.Hour,
			SweepInterval: time.Hour,
		},
		RateLimit: RateLimitConfig{
			MaxRequests: 5,
			Window:      time.Minute,
			Mode:        string(rate.ModeHybrid),
		},
		Cookie: CookieConfig{
			Enabled:  false,
			SameSite: "lax",
		},
		CSRF: CSRFConfig{
			Enabled:    true,
			HeaderName: "X-CSRF-Token",
			CookieName: "csrf_token",
		},
		Password: PasswordConfig{
			Hasher:         "bcrypt",
			BcryptCost:     12,
			MinLength:      8,
			UpgradeOnLogin: true,
		},
		Audit: AuditConfig{
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	if len(cfg.TrustedProxies) > 0 {
		out.TrustedProxies = append([]netip.Prefix(nil), cfg.TrustedProxies...)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// minSecretBytes is the smallest accepted HS256 secret.
const minSecretBytes = 32

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if strings.TrimSpace(c.JWT.Issuer) == "" {
		return errors.New("JWT Issuer is required")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}
	switch c.JWT.SigningMethod {
	case "hs256", "":
		if len(c.JWT.Secret) < minSecretBytes {
			return fmt.Errorf("JWT Secret must be at least %d bytes", minSecretBytes)
		}
	case "ed25519":
		if len(c.JWT.Secret) == 0 || len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires Secret (private key) and PublicKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}

	// Refresh
	if c.Refresh.TTL <= 0 {
		return errors.New("Refresh TTL must be > 0")
	}
	if c.Refresh.TTL <= c.JWT.AccessTTL {
		return errors.New("Refresh TTL must exceed JWT AccessTTL")
	}
	if c.Refresh.SweepInterval < 0 {
		return errors.New("Refresh SweepInterval must be >= 0")
	}

	// Rate limit
	if c.RateLimit.MaxRequests <= 0 {
		return errors.New("RateLimit MaxRequests must be > 0")
	}
	if c.RateLimit.Window < time.Second {
		return errors.New("RateLimit Window must be >= 1s")
	}
	if _, err := rate.ParseMode(c.RateLimit.Mode); err != nil {
		return err
	}
	if c.RateLimit.AuditMaxFailures < 0 {
		return errors.New("RateLimit AuditMaxFailures must be >= 0")
	}

	// Cookie / CSRF
	switch strings.ToLower(c.Cookie.SameSite) {
	case "", "lax", "strict", "none":
	default:
		return fmt.Errorf("unsupported Cookie SameSite %q", c.Cookie.SameSite)
	}
	if c.CSRF.Enabled && (strings.TrimSpace(c.CSRF.HeaderName) == "" || strings.TrimSpace(c.CSRF.CookieName) == "") {
		return errors.New("CSRF HeaderName and CookieName are required when CSRF is enabled")
	}

	// Password
	switch c.Password.Hasher {
	case "", "bcrypt", "argon2":
	default:
		return fmt.Errorf("unsupported password hasher %q", c.Password.Hasher)
	}
	if c.Password.MinLength < 0 {
		return errors.New("Password MinLength must be >= 0")
	}

	// Audit
	if c.Audit.BufferSize < 0 {
		return errors.New("Audit BufferSize must be >= 0")
	}

	for _, p := range c.TrustedProxies {
		if !p.IsValid() {
			return errors.New("TrustedProxies contains an invalid prefix")
		}
	}

	return nil
}

// SecureCookies reports whether cookies must carry the Secure attribute
// independent of the request transport.
func (c *Config) SecureCookies() bool {
	return c.Cookie.Secure || c.Production || strings.EqualFold(c.Cookie.SameSite, "none")
}
