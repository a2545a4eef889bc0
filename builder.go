package labauth

import (
	"errors"
	"fmt"

	internalaudit "github.com/MrEthical07/labauth/internal/audit"
	"github.com/MrEthical07/labauth/internal/rate"
	"github.com/MrEthical07/labauth/jwt"
	"github.com/MrEthical07/labauth/password"
	"github.com/MrEthical07/labauth/refresh"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// dummySecret is hashed once at Build so unknown identities cost one verify.
const dummySecret = "labauth-dummy-secret-0"

// Builder assembles a Service. Builders are single use.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	logger *zap.Logger

	accounts AccountStore
	refresh  refresh.Repository
	audit    AuditLog

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the shared store used by the shared and hybrid limiter
// modes. Without it those modes degrade to the in-process backend.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAccountStore sets the user-management collaborator. Required.
func (b *Builder) WithAccountStore(store AccountStore) *Builder {
	b.accounts = store
	return b
}

// WithRefreshRepository sets refresh-token persistence. When unset, an
// in-memory repository is used and a warning is logged.
func (b *Builder) WithRefreshRepository(repo refresh.Repository) *Builder {
	b.refresh = repo
	return b
}

// WithAuditLog sets the audit table. It also feeds the hybrid limiter's
// failure-history check. Optional.
func (b *Builder) WithAuditLog(log AuditLog) *Builder {
	b.audit = log
	return b
}

// WithLogger sets the logger shared by every component.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and wires the Service.
func (b *Builder) Build() (*Service, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.accounts == nil {
		return nil, errors.New("account store required")
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	hasher, err := newHasher(cfg.Password)
	if err != nil {
		return nil, err
	}
	dummyHash, err := hasher.Hash(dummySecret)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	signer, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cfg.JWT.Secret,
		PublicKey:     cfg.JWT.PublicKey,
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	repo := b.refresh
	if repo == nil {
		logger.Warn("no refresh repository configured, refresh tokens are kept in memory")
		repo = refresh.NewMemoryRepository()
	}
	tokens, err := refresh.NewStore(repo, refresh.Config{TTL: cfg.Refresh.TTL})
	if err != nil {
		return nil, err
	}

	mode, err := rate.ParseMode(cfg.RateLimit.Mode)
	if err != nil {
		return nil, err
	}
	var history rate.FailureHistory
	if b.audit != nil {
		history = b.audit
	}
	limiter, err := rate.New(rate.Config{
		Policy:     rate.Policy{MaxRequests: cfg.RateLimit.MaxRequests, Window: cfg.RateLimit.Window},
		Mode:       mode,
		HistoryMax: cfg.RateLimit.AuditMaxFailures,
	}, b.redis, history, logger.Named("rate"))
	if err != nil {
		return nil, err
	}

	var sink internalaudit.Sink
	if b.audit != nil {
		sink = b.audit
	}
	dispatcher := internalaudit.NewDispatcher(internalaudit.Config{
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, sink, logger.Named("audit"))

	policy := password.Policy{MinLength: cfg.Password.MinLength}
	if _, ok := hasher.(*password.Bcrypt); ok {
		policy.MaxBytes = password.DefaultMaxBytes
	}

	b.built = true

	return &Service{
		config:    cfg,
		accounts:  b.accounts,
		auditLog:  b.audit,
		hasher:    hasher,
		policy:    policy,
		dummyHash: dummyHash,
		signer:    signer,
		tokens:    tokens,
		limiter:   limiter,
		audit:     dispatcher,
		metrics:   NewMetrics(cfg.Metrics),
		logger:    logger,
	}, nil
}

func newHasher(cfg PasswordConfig) (password.Hasher, error) {
	switch cfg.Hasher {
	case "", "bcrypt":
		return password.NewBcrypt(cfg.BcryptCost)
	case "argon2":
		return password.NewArgon2(password.DefaultArgon2Config())
	default:
		return nil, fmt.Errorf("unsupported password hasher %q", cfg.Hasher)
	}
}
