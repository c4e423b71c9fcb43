package tokenlife

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	internalaudit "github.com/MrEthical07/tokenlife/internal/audit"
	"github.com/MrEthical07/tokenlife/jwt"
	"github.com/MrEthical07/tokenlife/password"
	"github.com/MrEthical07/tokenlife/revocation"
)

// Builder assembles an [Engine]. A Builder is single-use: Build fails on the
// second call.
type Builder struct {
	config      Config
	redisClient redis.UniversalClient
	store       revocation.Store
	verifier    CredentialVerifier
	users       UserDirectory
	hasher      PasswordHasher
	notifier    Notifier
	mfaSender   MFACodeSender
	resets      ResetRequestStore
	logger      *zap.Logger
	auditSink   AuditSink
	now         func() time.Time
	built       bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis backs the revocation store with Redis.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redisClient = client
	return b
}

// WithRevocationStore injects a revocation store directly; it takes precedence
// over WithRedis.
func (b *Builder) WithRevocationStore(store revocation.Store) *Builder {
	b.store = store
	return b
}

// WithCredentialVerifier sets the sign-in credential check. Without it the
// engine verifies passwords against the user directory.
func (b *Builder) WithCredentialVerifier(v CredentialVerifier) *Builder {
	b.verifier = v
	return b
}

func (b *Builder) WithUserDirectory(users UserDirectory) *Builder {
	b.users = users
	return b
}

// WithPasswordHasher overrides the default argon2id hasher. A hasher that also
// implements [PasswordVerifier] is used for directory sign-in too.
func (b *Builder) WithPasswordHasher(h PasswordHasher) *Builder {
	b.hasher = h
	return b
}

func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

func (b *Builder) WithMFACodeSender(s MFACodeSender) *Builder {
	b.mfaSender = s
	return b
}

func (b *Builder) WithResetRequestStore(s ResetRequestStore) *Builder {
	b.resets = s
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the sink receiving audit events when Audit.Enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock replaces the wall clock used for token and reset timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store := b.store
	if store == nil && b.redisClient != nil {
		store = revocation.NewRedisStore(b.redisClient)
	}
	if store == nil {
		return nil, errors.New("redis client or revocation store is required")
	}
	if cfg.Security.StrictRefreshRotation {
		if _, ok := store.(revocation.Consumer); !ok {
			return nil, errors.New("strict refresh rotation requires a store with compare-and-delete")
		}
	}
	if cfg.Security.CheckUserOnRefresh && b.users == nil {
		return nil, errors.New("CheckUserOnRefresh requires a user directory")
	}

	codec, err := jwt.NewCodec(jwt.Config{
		SigningKey: cfg.JWT.SigningKey,
		Issuer:     cfg.JWT.Issuer,
		Now:        b.now,
	})
	if err != nil {
		return nil, err
	}

	hasher := b.hasher
	if hasher == nil {
		primary, err := password.NewArgon2(password.Config{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		})
		if err != nil {
			return nil, err
		}
		legacy, err := password.NewBcrypt(0)
		if err != nil {
			return nil, err
		}
		hasher = password.Multi{Primary: primary, Legacy: legacy}
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	verifier := b.verifier
	if verifier == nil && b.users != nil {
		if pv, ok := hasher.(PasswordVerifier); ok {
			verifier = NewDirectoryVerifier(b.users, pv).WithLogger(logger)
		}
	}

	e := &Engine{
		config:    cfg,
		codec:     codec,
		store:     store,
		keys:      revocation.KeySpace{Prefix: cfg.Revocation.KeyPrefix},
		logger:    logger,
		verifier:  verifier,
		users:     b.users,
		hasher:    hasher,
		notifier:  b.notifier,
		mfaSender: b.mfaSender,
		resets:    b.resets,
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
	}
	e.flows = e.flowDeps()

	b.built = true
	return e, nil
}
