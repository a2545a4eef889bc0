package labauth

import (
	"net/netip"
	"slices"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = []byte(strings.Repeat("k", minSecretBytes))
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults with secret",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "jwt leeway invalid",
			mutate: func(c *Config) {
				c.JWT.Leeway = 3 * time.Minute
			},
		},
		{
			name: "short secret",
			mutate: func(c *Config) {
				c.JWT.Secret = []byte("short")
			},
		},
		{
			name: "blank issuer",
			mutate: func(c *Config) {
				c.JWT.Issuer = "  "
			},
		},
		{
			name: "ed25519 without keys",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "ed25519"
			},
		},
		{
			name: "unknown signing method",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "rs256"
			},
		},
		{
			name: "refresh ttl not longer than access ttl",
			mutate: func(c *Config) {
				c.Refresh.TTL = c.JWT.AccessTTL
			},
		},
		{
			name: "rate window below one second",
			mutate: func(c *Config) {
				c.RateLimit.Window = 500 * time.Millisecond
			},
		},
		{
			name: "unknown rate mode",
			mutate: func(c *Config) {
				c.RateLimit.Mode = "cluster"
			},
		},
		{
			name: "negative audit threshold",
			mutate: func(c *Config) {
				c.RateLimit.AuditMaxFailures = -1
			},
		},
		{
			name: "unknown samesite",
			mutate: func(c *Config) {
				c.Cookie.SameSite = "sometimes"
			},
		},
		{
			name: "csrf without header name",
			mutate: func(c *Config) {
				c.CSRF.HeaderName = ""
			},
		},
		{
			name: "csrf disabled tolerates blank names",
			mutate: func(c *Config) {
				c.CSRF = CSRFConfig{}
			},
			wantValid: true,
		},
		{
			name: "unknown hasher",
			mutate: func(c *Config) {
				c.Password.Hasher = "md5"
			},
		},
		{
			name: "argon2 hasher",
			mutate: func(c *Config) {
				c.Password.Hasher = "argon2"
			},
			wantValid: true,
		},
		{
			name: "negative audit buffer",
			mutate: func(c *Config) {
				c.Audit.BufferSize = -1
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected invalid config")
			}
		})
	}
}

func TestSecureCookies(t *testing.T) {
	cfg := validConfig()
	if cfg.SecureCookies() {
		t.Fatal("development defaults must not force Secure")
	}

	cfg.Production = true
	if !cfg.SecureCookies() {
		t.Fatal("production must force Secure")
	}

	cfg = validConfig()
	cfg.Cookie.SameSite = "None"
	if !cfg.SecureCookies() {
		t.Fatal("SameSite=None must force Secure")
	}
}

func TestCloneConfigCopiesKeyMaterial(t *testing.T) {
	cfg := validConfig()
	clone := cloneConfig(cfg)
	clone.JWT.Secret[0] = 'x'
	if cfg.JWT.Secret[0] == 'x' {
		t.Fatal("clone must not alias the secret")
	}
}

func envMap(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestConfigFromEnv(t *testing.T) {
	cfg, err := ConfigFromEnv(envMap(map[string]string{
		EnvJWTSecretKey:             strings.Repeat("s", 40),
		EnvAccessTokenExpireMinutes: "15",
		EnvRefreshTokenExpireDays:   "14",
		EnvJWTIssuer:                "lab",
		EnvJWTLeewaySeconds:         "10",
		EnvLoginRateLimit:           "10/120",
		EnvLoginRateLimitStore:      "SHARED",
		EnvLoginAuditRateLimit:      "20",
		EnvAuthCookieEnabled:        "false",
		EnvCookieDomain:             "lab.example",
		EnvCookieSameSite:           "Strict",
		EnvCSRFDisabled:             "true",
		EnvAppEnv:                   "production",
		EnvPasswordHasher:           "argon2",
		EnvAuditBufferSize:          "0",
		EnvRefreshSweepInterval:     "30m",
		EnvTrustedProxies:           "10.0.0.0/8, 192.0.2.10",
	}))
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}

	if cfg.JWT.AccessTTL != 15*time.Minute || cfg.Refresh.TTL != 14*24*time.Hour {
		t.Fatalf("unexpected ttls %v / %v", cfg.JWT.AccessTTL, cfg.Refresh.TTL)
	}
	if cfg.JWT.Issuer != "lab" || cfg.JWT.Leeway != 10*time.Second {
		t.Fatalf("unexpected jwt config %+v", cfg.JWT)
	}
	if cfg.RateLimit.MaxRequests != 10 || cfg.RateLimit.Window != 2*time.Minute || cfg.RateLimit.Mode != "shared" || cfg.RateLimit.AuditMaxFailures != 20 {
		t.Fatalf("unexpected rate limit config %+v", cfg.RateLimit)
	}
	if cfg.Cookie.Enabled || cfg.Cookie.Domain != "lab.example" || cfg.Cookie.SameSite != "strict" {
		t.Fatalf("unexpected cookie config %+v", cfg.Cookie)
	}
	if cfg.CSRF.Enabled || !cfg.Production || cfg.Password.Hasher != "argon2" {
		t.Fatal("unexpected csrf, environment, or hasher settings")
	}
	if cfg.Audit.BufferSize != 0 || cfg.Refresh.SweepInterval != 30*time.Minute {
		t.Fatalf("unexpected audit or sweep settings")
	}
	want := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8"), netip.MustParsePrefix("192.0.2.10/32")}
	if !slices.Equal(cfg.TrustedProxies, want) {
		t.Fatalf("unexpected trusted proxies %v", cfg.TrustedProxies)
	}
}

func TestConfigFromEnvDefaultsAndErrors(t *testing.T) {
	secret := strings.Repeat("s", 40)

	cfg, err := ConfigFromEnv(envMap(map[string]string{EnvJWTSecretKey: secret, EnvCookieDomain: "  "}))
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if cfg.JWT.AccessTTL != 30*time.Minute || cfg.RateLimit.MaxRequests != 5 || cfg.RateLimit.Window != time.Minute {
		t.Fatal("unset keys must keep defaults")
	}
	if cfg.Cookie.Domain != "" {
		t.Fatal("blank values must keep defaults")
	}
	if cfg.Cookie.Enabled || len(cfg.TrustedProxies) != 0 {
		t.Fatal("cookie sessions and trusted proxies must be off by default")
	}

	tests := map[string]map[string]string{
		"missing secret":  {},
		"malformed int":   {EnvJWTSecretKey: secret, EnvAccessTokenExpireMinutes: "ten"},
		"malformed bool":  {EnvJWTSecretKey: secret, EnvCSRFDisabled: "maybe"},
		"malformed rate":  {EnvJWTSecretKey: secret, EnvLoginRateLimit: "5 per minute"},
		"malformed sweep": {EnvJWTSecretKey: secret, EnvRefreshSweepInterval: "hourly"},
		"invalid mode":    {EnvJWTSecretKey: secret, EnvLoginRateLimitStore: "cluster"},
		"invalid proxy":   {EnvJWTSecretKey: secret, EnvTrustedProxies: "10.0.0.0/8,gateway"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ConfigFromEnv(envMap(env)); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	if _, err := ConfigFromEnv(envMap(map[string]string{EnvJWTSecretKey: secret, EnvAccessTokenExpireMinutes: "ten"})); err == nil || !strings.Contains(err.Error(), EnvAccessTokenExpireMinutes) {
		t.Fatalf("error must name the offending key, got %v", err)
	}
	if _, err := ConfigFromEnv(envMap(map[string]string{EnvJWTSecretKey: secret, EnvTrustedProxies: "10.0.0.300"})); err == nil || !strings.Contains(err.Error(), EnvTrustedProxies) {
		t.Fatalf("error must name the offending key, got %v", err)
	}
}

func TestErrorCode(t *testing.T) {
	if ErrorCode(nil) != "" {
		t.Fatal("nil error must have no code")
	}
	if got := ErrorCode(storeUnavailable(errTest)); got != CodeStoreUnavailable {
		t.Fatalf("wrapped sentinel: got %q", got)
	}
	if got := ErrorCode(errTest); got != CodeInternal {
		t.Fatalf("unclassified error: got %q", got)
	}
	for _, c := range errorCodes {
		if got := ErrorCode(c.err); got != c.code {
			t.Fatalf("%v: got %q want %q", c.err, got, c.code)
		}
	}
}

type testError string

func (e testError) Error() string { return string(e) }

const errTest = testError("boom")
