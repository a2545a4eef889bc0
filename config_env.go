package labauth

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/labauth/internal/rate"
)

// Environment keys read by ConfigFromEnv.
const (
	EnvAccessTokenExpireMinutes = "ACCESS_TOKEN_EXPIRE_MINUTES"
	EnvRefreshTokenExpireDays   = "REFRESH_TOKEN_EXPIRE_DAYS"
	EnvJWTSecretKey             = "JWT_SECRET_KEY"
	EnvJWTIssuer                = "JWT_ISSUER"
	EnvJWTLeewaySeconds         = "JWT_LEEWAY_SECONDS"
	EnvLoginRateLimit           = "LOGIN_RATE_LIMIT"
	EnvLoginRateLimitStore      = "LOGIN_RATE_LIMIT_STORE"
	EnvLoginAuditRateLimit      = "LOGIN_AUDIT_RATE_LIMIT"
	EnvAuthCookieEnabled        = "AUTH_COOKIE_ENABLED"
	EnvCookieDomain             = "COOKIE_DOMAIN"
	EnvCookieSameSite           = "COOKIE_SAMESITE"
	EnvCSRFDisabled             = "CSRF_DISABLED"
	EnvAppEnv                   = "APP_ENV"
	EnvPasswordHasher           = "PASSWORD_HASHER"
	EnvBcryptCost               = "BCRYPT_COST"
	EnvAuditBufferSize          = "AUDIT_BUFFER_SIZE"
	EnvRefreshSweepInterval     = "REFRESH_SWEEP_INTERVAL"
	EnvTrustedProxies           = "TRUSTED_PROXIES"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ConfigFromEnv overlays environment values on DefaultConfig and validates
// the result. Unset or blank keys keep their defaults; malformed values are
// an error.
func ConfigFromEnv(lookup LookupFunc) (Config, error) {
	cfg := DefaultConfig()
	env := envReader{lookup: lookup}

	if v, ok := env.getInt(EnvAccessTokenExpireMinutes); ok {
		cfg.JWT.AccessTTL = time.Duration(v) * time.Minute
	}
	if v, ok := env.getInt(EnvRefreshTokenExpireDays); ok {
		cfg.Refresh.TTL = time.Duration(v) * 24 * time.Hour
	}
	if v, ok := env.getString(EnvJWTSecretKey); ok {
		cfg.JWT.Secret = []byte(v)
	}
	if v, ok := env.getString(EnvJWTIssuer); ok {
		cfg.JWT.Issuer = v
	}
	if v, ok := env.getInt(EnvJWTLeewaySeconds); ok {
		cfg.JWT.Leeway = time.Duration(v) * time.Second
	}
	if v, ok := env.getString(EnvLoginRateLimit); ok {
		policy, err := rate.ParsePolicy(v)
		if err != nil {
			env.fail(EnvLoginRateLimit, err)
		} else {
			cfg.RateLimit.MaxRequests = policy.MaxRequests
			cfg.RateLimit.Window = policy.Window
		}
	}
	if v, ok := env.getString(EnvLoginRateLimitStore); ok {
		cfg.RateLimit.Mode = strings.ToLower(v)
	}
	if v, ok := env.getInt(EnvLoginAuditRateLimit); ok {
		cfg.RateLimit.AuditMaxFailures = v
	}
	if v, ok := env.getBool(EnvAuthCookieEnabled); ok {
		cfg.Cookie.Enabled = v
	}
	if v, ok := env.getString(EnvCookieDomain); ok {
		cfg.Cookie.Domain = v
	}
	if v, ok := env.getString(EnvCookieSameSite); ok {
		cfg.Cookie.SameSite = strings.ToLower(v)
	}
	if v, ok := env.getBool(EnvCSRFDisabled); ok {
		cfg.CSRF.Enabled = !v
	}
	if v, ok := env.getString(EnvAppEnv); ok {
		cfg.Production = strings.EqualFold(v, "production")
	}
	if v, ok := env.getString(EnvPasswordHasher); ok {
		cfg.Password.Hasher = strings.ToLower(v)
	}
	if v, ok := env.getInt(EnvBcryptCost); ok {
		cfg.Password.BcryptCost = v
	}
	if v, ok := env.getInt(EnvAuditBufferSize); ok {
		cfg.Audit.BufferSize = v
	}
	if v, ok := env.getDuration(EnvRefreshSweepInterval); ok {
		cfg.Refresh.SweepInterval = v
	}
	if v, ok := env.getPrefixes(EnvTrustedProxies); ok {
		cfg.TrustedProxies = v
	}

	if env.err != nil {
		return Config{}, env.err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type envReader struct {
	lookup LookupFunc
	err    error
}

func (e *envReader) fail(key string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("%s: %w", key, err)
	}
}

func (e *envReader) getString(key string) (string, bool) {
	if e.lookup == nil {
		return "", false
	}
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) getInt(key string) (int, bool) {
	raw, ok := e.getString(key)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		e.fail(key, err)
		return 0, false
	}
	return v, true
}

func (e *envReader) getBool(key string) (bool, bool) {
	raw, ok := e.getString(key)
	if !ok {
		return false, false
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	e.fail(key, fmt.Errorf("invalid boolean %q", raw))
	return false, false
}

func (e *envReader) getDuration(key string) (time.Duration, bool) {
	raw, ok := e.getString(key)
	if !ok {
		return 0, false
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		e.fail(key, err)
		return 0, false
	}
	return v, true
}

// getPrefixes reads a comma-separated list of CIDR prefixes or bare
// addresses. A bare address becomes a single-host prefix.
func (e *envReader) getPrefixes(key string) ([]netip.Prefix, bool) {
	raw, ok := e.getString(key)
	if !ok {
		return nil, false
	}
	var out []netip.Prefix
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "/") {
			p, err := netip.ParsePrefix(part)
			if err != nil {
				e.fail(key, err)
				return nil, false
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(part)
		if err != nil {
			e.fail(key, err)
			return nil, false
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, len(out) > 0
}
