package secureauth

import (
	"errors"
	"log"

	"github.com/kverac/secureauth/account"
	"github.com/kverac/secureauth/jwt"
	"github.com/kverac/secureauth/ledger"
	"github.com/kverac/secureauth/password"
	"github.com/redis/go-redis/v9"
)

// Builder defines a public type used by secureauth APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  *redis.Client

	notifier  Notifier
	auditSink AuditSink
	logger    *log.Logger

	built bool
}

// New describes the new operation and its observable behavior.
//
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithSecrets sets the two signing secrets on top of the current config.
//
// WithSecrets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithSecrets(accessSecret, refreshSecret []byte) *Builder {
	b.config.JWT.AccessSecret = append([]byte(nil), accessSecret...)
	b.config.JWT.RefreshSecret = append([]byte(nil), refreshSecret...)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithNotifier describes the withnotifier operation and its observable behavior.
//
// WithNotifier does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

// WithLogger describes the withlogger operation and its observable behavior.
//
// WithLogger does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLogger(l *log.Logger) *Builder {
	b.logger = l
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.notifier == nil {
		return nil, errors.New("notifier required")
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	jwtManager, err := jwt.NewManager(jwt.Config{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		TicketTTL:     cfg.JWT.TicketTTL,
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	passwordHash, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	totp := newTOTPManager(cfg.TOTP)

	methods := map[account.MFAMethod]mfaMethod{
		account.MethodTOTP: &totpMethod{
			totp:   totp,
			replay: cfg.TOTP.EnforceReplayProtection,
		},
		account.MethodEmail: &emailMethod{
			notifier: b.notifier,
			codes:    cfg.Codes,
		},
		account.MethodSMS: &smsMethod{
			notifier: b.notifier,
			codes:    cfg.Codes,
		},
	}

	engine := &Engine{
		config:       cfg,
		accounts:     account.NewStore(b.redis),
		tokens:       ledger.New(jwtManager, ledger.NewStore(b.redis, cfg.Tokens.Retention)),
		verification: newVerificationStore(b.redis),
		reset:        newResetStore(b.redis),
		notifier:     b.notifier,
		passwordHash: passwordHash,
		totp:         totp,
		jwtManager:   jwtManager,
		methods:      methods,
		audit:        newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:      NewMetrics(cfg.Metrics),
		logger:       b.logger,
	}

	b.built = true
	return engine, nil
}
