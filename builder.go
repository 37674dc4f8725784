package goGate

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goGate/cache"
	"github.com/MrEthical07/goGate/directory"
	internalaudit "github.com/MrEthical07/goGate/internal/audit"
	"github.com/MrEthical07/goGate/internal/rate"
	"github.com/MrEthical07/goGate/jwt"
	"github.com/MrEthical07/goGate/password"
)

// Builder assembles an Engine. It is meant to be configured once during
// initialization; Build may be called only once.
type Builder struct {
	config Config

	redis      redis.UniversalClient
	redisAddr  bool
	backend    cache.Backend
	directory  directory.Directory
	logger     hclog.Logger
	auditSink  AuditSink
	now        func() time.Time
	noPassword bool

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis uses an existing go-redis client as the cache backend. The caller
// keeps ownership of the client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRedisAddr makes Build dial Redis itself from Config.Cache. The engine
// closes that client on Close.
func (b *Builder) WithRedisAddr() *Builder {
	b.redisAddr = true
	return b
}

// WithCacheBackend uses any cache.Backend implementation.
func (b *Builder) WithCacheBackend(backend cache.Backend) *Builder {
	b.backend = backend
	return b
}

func (b *Builder) WithDirectory(dir directory.Directory) *Builder {
	b.directory = dir
	return b
}

// WithLogger sets the logger. The engine logs under the "gogate" name.
func (b *Builder) WithLogger(logger hclog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock overrides the time source for token issuance, verification and
// snapshot stamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithoutPasswordLogin skips Argon2 setup for hosts that never call Login.
func (b *Builder) WithoutPasswordLogin() *Builder {
	b.noPassword = true
	return b
}

// Build validates the configuration, probes the cache once and returns an
// immutable Engine. A cache that fails its probe leaves the engine in degraded
// mode unless Security.RequireRevocation is set.
func (b *Builder) Build() (*Engine, error) {
	return b.BuildContext(context.Background())
}

// BuildContext is Build with a caller-supplied context for the cache probe.
func (b *Builder) BuildContext(ctx context.Context) (*Engine, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.directory == nil {
		return nil, ErrDirectoryRequired
	}

	logger := b.logger
	if logger == nil {
		logger = hclog.New(&hclog.LoggerOptions{Level: hclog.Info})
	}
	logger = logger.Named("gogate")

	now := b.now
	if now == nil {
		now = time.Now
	}

	jm, err := jwt.NewManager(cfg.jwtConfig(now))
	if err != nil {
		return nil, err
	}

	var hasher *password.Argon2
	if !b.noPassword {
		if hasher, err = password.NewArgon2(cfg.passwordConfig()); err != nil {
			return nil, err
		}
	}

	engine := &Engine{
		config:       cfg,
		logger:       logger,
		jwtManager:   jm,
		passwordHash: hasher,
		directory:    b.directory,
		metrics:      NewMetrics(cfg.Metrics),
		now:          now,
	}

	backend := b.backend
	switch {
	case backend != nil:
	case b.redis != nil:
		backend = cache.NewRedisBackend(b.redis)
	case b.redisAddr:
		client := cache.NewRedisClient(cache.RedisOptions{
			Addr:         cfg.Cache.Addr,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			PoolSize:     cfg.Cache.PoolSize,
			DialTimeout:  cfg.Cache.ConnectTimeout,
			ReadTimeout:  cfg.Cache.CommandTimeout,
			WriteTimeout: cfg.Cache.CommandTimeout,
			PoolTimeout:  cfg.Cache.CommandTimeout,
		})
		engine.ownedRedis = client
		backend = cache.NewRedisBackend(client)
	}

	engine.cache = cache.New(ctx, backend, cache.Options{
		ProbeTimeout:   cfg.Cache.ProbeTimeout,
		CommandTimeout: cfg.Cache.CommandTimeout,
		Logger:         logger.Named("cache"),
		OnError: func(string, error) {
			engine.metricInc(MetricCacheDegraded)
		},
	})
	if cfg.Security.RequireRevocation && !engine.cache.Available() {
		engine.closeOwned()
		return nil, ErrRevocationUnavailable
	}

	engine.limiter = rate.New(engine.cache, rate.Config{
		Prefix:           cfg.Gate.KeyPrefix,
		MaxLoginAttempts: cfg.Login.MaxAttempts,
		LoginCooldown:    cfg.Login.Cooldown,
	})

	sink := b.auditSink
	if sink == nil {
		sink = NewLoggerSink(logger)
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Clock:      now,
		OnDrop: func(ev internalaudit.Event) {
			logger.Debug("audit buffer full, event dropped", "event", ev.EventType)
		},
	}, sink)

	engine.flows = engine.buildFlowDeps()

	b.built = true
	return engine, nil
}
