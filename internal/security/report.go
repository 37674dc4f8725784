package security

import "time"

type PasswordReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Report is the posture summary returned by Engine.SecurityReport.
type Report struct {
	ProductionMode     bool
	SigningAlgorithm   string
	TokenLifetime      time.Duration
	RenewalWindow      time.Duration
	SnapshotTTL        time.Duration
	CacheAvailable     bool
	RevocationEnforced bool
	RateLimitingActive bool
	Argon2             PasswordReport
	Warnings           []string
}

type ReportInput struct {
	ProductionMode        bool
	SigningAlgorithm      string
	SecretLength          int
	TokenLifetime         time.Duration
	RenewalWindow         time.Duration
	SnapshotTTL           time.Duration
	CacheAvailable        bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	Password              PasswordReport
}

const minSecretLength = 32

// BuildReport derives the report. Revocation and login throttling both live in
// the cache, so neither is reported as enforced while the cache is down.
func BuildReport(input ReportInput) Report {
	rateLimiting := input.CacheAvailable &&
		input.MaxLoginAttempts > 0 &&
		input.LoginCooldownDuration > 0

	r := Report{
		ProductionMode:     input.ProductionMode,
		SigningAlgorithm:   input.SigningAlgorithm,
		TokenLifetime:      input.TokenLifetime,
		RenewalWindow:      input.RenewalWindow,
		SnapshotTTL:        input.SnapshotTTL,
		CacheAvailable:     input.CacheAvailable,
		RevocationEnforced: input.CacheAvailable,
		RateLimitingActive: rateLimiting,
		Argon2:             input.Password,
	}

	if !input.CacheAvailable {
		r.Warnings = append(r.Warnings, "cache unavailable: logout and renewal cannot revoke credentials")
	}
	if input.SigningAlgorithm == "hs256" && input.SecretLength < minSecretLength {
		r.Warnings = append(r.Warnings, "hs256 secret shorter than 256 bits")
	}
	if input.RenewalWindow >= input.TokenLifetime {
		r.Warnings = append(r.Warnings, "renewal window covers the whole token lifetime: every request renews")
	}
	if input.SnapshotTTL > input.RenewalWindow {
		r.Warnings = append(r.Warnings, "snapshot TTL exceeds renewal window: deactivation may lag a renewal")
	}
	return r
}
