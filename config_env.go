package goGate

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/go-secure-stdlib/parseutil"
)

// Environment variables read by LoadConfigFromEnv.
const (
	EnvJWTSecret           = "JWT_SECRET"
	EnvJWTExpiresIn        = "JWT_EXPIRES_IN"
	EnvJWTIssuer           = "JWT_ISSUER"
	EnvJWTAudience         = "JWT_AUDIENCE"
	EnvRedisHost           = "REDIS_HOST"
	EnvRedisPort           = "REDIS_PORT"
	EnvRedisPassword       = "REDIS_PASSWORD"
	EnvRedisDB             = "REDIS_DB"
	EnvRedisConnectTimeout = "REDIS_CONNECT_TIMEOUT"
	EnvRedisCommandTimeout = "REDIS_COMMAND_TIMEOUT"
	EnvUserCacheTTL        = "USER_CACHE_TTL"
	EnvTokenRenewalWindow  = "TOKEN_RENEWAL_WINDOW"
	EnvKeyPrefix           = "GOGATE_KEY_PREFIX"
	EnvProduction          = "GOGATE_PRODUCTION"
)

// LoadConfigFromEnv overlays environment variables on DefaultConfig. Durations
// accept Go syntax, a "d" suffix for days, or bare seconds. Every malformed
// variable is reported; the result is not validated.
func LoadConfigFromEnv() (Config, error) {
	return loadConfig(os.LookupEnv)
}

func loadConfig(lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()
	var errs *multierror.Error

	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := get(key); ok {
			d, err := parseutil.ParseDurationSecond(v)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	if v, ok := get(EnvJWTSecret); ok {
		cfg.JWT.Secret = []byte(v)
	}
	duration(EnvJWTExpiresIn, &cfg.JWT.Lifetime)
	if v, ok := get(EnvJWTIssuer); ok {
		cfg.JWT.Issuer = v
	}
	if v, ok := get(EnvJWTAudience); ok {
		cfg.JWT.Audience = v
	}

	host, port := "localhost", "6379"
	if v, ok := get(EnvRedisHost); ok {
		host = v
	}
	if v, ok := get(EnvRedisPort); ok {
		if _, err := parseutil.ParseInt(v); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", EnvRedisPort, err))
		} else {
			port = v
		}
	}
	cfg.Cache.Addr = net.JoinHostPort(host, port)
	if v, ok := get(EnvRedisPassword); ok {
		cfg.Cache.Password = v
	}
	if v, ok := get(EnvRedisDB); ok {
		db, err := parseutil.ParseInt(v)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", EnvRedisDB, err))
		} else {
			cfg.Cache.DB = int(db)
		}
	}
	duration(EnvRedisConnectTimeout, &cfg.Cache.ConnectTimeout)
	duration(EnvRedisCommandTimeout, &cfg.Cache.CommandTimeout)

	duration(EnvUserCacheTTL, &cfg.Gate.SnapshotTTL)
	duration(EnvTokenRenewalWindow, &cfg.Gate.RenewalWindow)
	if v, ok := get(EnvKeyPrefix); ok {
		cfg.Gate.KeyPrefix = v
	}

	if v, ok := get(EnvProduction); ok {
		prod, err := parseutil.ParseBool(v)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", EnvProduction, err))
		} else {
			cfg.Security.ProductionMode = prod
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		return cfg, fmt.Errorf("load config from environment: %w", err)
	}
	return cfg, nil
}
