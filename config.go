package goGate

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/MrEthical07/goGate/jwt"
	"github.com/MrEthical07/goGate/password"
)

// Config is the complete engine configuration. It is copied at Build and never
// re-read per request.
type Config struct {
	JWT      JWTConfig
	Cache    CacheConfig
	Gate     GateConfig
	Login    LoginConfig
	Password PasswordConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	Security SecurityConfig
}

/*
====================================
JWT CONFIG
====================================
*/

type JWTConfig struct {
	Lifetime      time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	Secret        []byte
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

/*
====================================
CACHE CONFIG
====================================
*/

// CacheConfig is used when the engine builds its own Redis client via
// Builder.WithRedisAddr. Timeouts also apply to a client passed to WithRedis.
type CacheConfig struct {
	Addr           string
	Password       string
	DB             int
	PoolSize       int
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
	ProbeTimeout   time.Duration
}

/*
====================================
GATE CONFIG
====================================
*/

type GateConfig struct {
	// KeyPrefix namespaces every cache key the engine writes.
	KeyPrefix string
	// SnapshotTTL bounds how stale a cached user record may be.
	SnapshotTTL time.Duration
	// RenewalWindow is the remaining lifetime under which AuthOptions.Renew
	// issues a replacement.
	RenewalWindow time.Duration
	// DirectoryTimeout bounds each user directory lookup.
	DirectoryTimeout time.Duration
}

type LoginConfig struct {
	MaxAttempts int
	Cooldown    time.Duration
}

type PasswordConfig struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

type SecurityConfig struct {
	ProductionMode bool
	// RequireRevocation makes Build fail when the cache is unreachable instead
	// of starting in the degraded, non-revoking mode.
	RequireRevocation bool
}

const (
	defaultKeyPrefix = "gogate:"
	minHS256Secret   = 32
)

// DefaultConfig returns a configuration with every default filled in. Signing
// material, issuer and audience still have to be supplied.
func DefaultConfig() Config {
	pw := password.DefaultConfig()
	return Config{
		JWT: JWTConfig{
			Lifetime:      jwt.DefaultLifetime,
			SigningMethod: string(jwt.MethodHS256),
		},
		Cache: CacheConfig{
			Addr:           "localhost:6379",
			PoolSize:       32,
			ConnectTimeout: 2 * time.Second,
			CommandTimeout: time.Second,
			ProbeTimeout:   2 * time.Second,
		},
		Gate: GateConfig{
			KeyPrefix:        defaultKeyPrefix,
			SnapshotTTL:      5 * time.Minute,
			RenewalWindow:    30 * time.Minute,
			DirectoryTimeout: 3 * time.Second,
		},
		Login: LoginConfig{
			MaxAttempts: 5,
			Cooldown:    15 * time.Minute,
		},
		Password: PasswordConfig{
			Memory:      pw.Memory,
			Time:        pw.Time,
			Parallelism: pw.Parallelism,
			SaltLength:  pw.SaltLength,
			KeyLength:   pw.KeyLength,
		},
		Audit: AuditConfig{
			Enabled:    false,
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
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs *multierror.Error
	add := func(format string, args ...any) {
		errs = multierror.Append(errs, fmt.Errorf(format, args...))
	}

	// JWT
	if c.JWT.Lifetime <= 0 {
		add("JWT Lifetime must be > 0")
	}
	switch strings.ToLower(c.JWT.SigningMethod) {
	case string(jwt.MethodHS256):
		if len(c.JWT.Secret) == 0 {
			add("hs256 requires Secret")
		}
	case string(jwt.MethodEd25519):
		if len(c.JWT.PrivateKey) == 0 {
			add("ed25519 requires PrivateKey")
		}
	default:
		add("unsupported JWT signing method %q", c.JWT.SigningMethod)
	}
	if strings.TrimSpace(c.JWT.Issuer) == "" {
		add("JWT Issuer is required")
	}
	if strings.TrimSpace(c.JWT.Audience) == "" {
		add("JWT Audience is required")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		add("JWT Leeway must be between 0 and 2m")
	}

	// Cache
	if c.Cache.CommandTimeout <= 0 {
		add("Cache CommandTimeout must be > 0")
	}
	if c.Cache.ProbeTimeout <= 0 {
		add("Cache ProbeTimeout must be > 0")
	}
	if c.Cache.DB < 0 {
		add("Cache DB must be >= 0")
	}

	// Gate
	if c.Gate.KeyPrefix == "" {
		add("Gate KeyPrefix is required")
	}
	if c.Gate.SnapshotTTL <= 0 {
		add("Gate SnapshotTTL must be > 0")
	}
	if c.Gate.RenewalWindow < 0 {
		add("Gate RenewalWindow must be >= 0")
	}
	if c.Gate.DirectoryTimeout <= 0 {
		add("Gate DirectoryTimeout must be > 0")
	}

	// Login
	if c.Login.MaxAttempts < 0 {
		add("Login MaxAttempts must be >= 0")
	}
	if c.Login.MaxAttempts > 0 && c.Login.Cooldown <= 0 {
		add("Login Cooldown must be > 0 when MaxAttempts is set")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		add("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.Security.ProductionMode {
		if c.JWT.SigningMethod == string(jwt.MethodHS256) && len(c.JWT.Secret) < minHS256Secret {
			add("ProductionMode requires hs256 secret length >= 256 bits")
		}
		if c.JWT.Lifetime > 30*24*time.Hour {
			add("ProductionMode requires JWT Lifetime <= 30d")
		}
		if c.Login.MaxAttempts == 0 {
			add("ProductionMode requires login rate limiting")
		}
		if c.Password.Memory < 64*1024 {
			add("ProductionMode requires Password Memory >= 65536 KiB")
		}
		if c.Password.Time < 2 {
			add("ProductionMode requires Password Time >= 2")
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) jwtConfig(now func() time.Time) jwt.Config {
	return jwt.Config{
		Lifetime:      c.JWT.Lifetime,
		SigningMethod: jwt.SigningMethod(strings.ToLower(c.JWT.SigningMethod)),
		Secret:        cloneBytes(c.JWT.Secret),
		PrivateKey:    cloneBytes(c.JWT.PrivateKey),
		PublicKey:     cloneBytes(c.JWT.PublicKey),
		Issuer:        c.JWT.Issuer,
		Audience:      c.JWT.Audience,
		Leeway:        c.JWT.Leeway,
		Now:           now,
	}
}

func (c *Config) passwordConfig() password.Config {
	return password.Config{
		Memory:      c.Password.Memory,
		Time:        c.Password.Time,
		Parallelism: c.Password.Parallelism,
		SaltLength:  c.Password.SaltLength,
		KeyLength:   c.Password.KeyLength,
	}
}
