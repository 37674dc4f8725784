package goGate

import (
	"strings"

	"github.com/MrEthical07/goGate/internal/security"
	"github.com/MrEthical07/goGate/jwt"
)

// SecurityReport summarizes the security-relevant configuration together with
// the cache state fixed at startup.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	method := strings.ToLower(e.config.JWT.SigningMethod)
	if method == "" {
		method = string(jwt.MethodHS256)
	}

	pw := e.config.passwordConfig()
	return security.BuildReport(security.ReportInput{
		ProductionMode:        e.config.Security.ProductionMode,
		SigningAlgorithm:      method,
		SecretLength:          len(e.config.JWT.Secret),
		TokenLifetime:         e.jwtManager.Lifetime(),
		RenewalWindow:         e.config.Gate.RenewalWindow,
		SnapshotTTL:           e.config.Gate.SnapshotTTL,
		CacheAvailable:        e.cache.Available(),
		MaxLoginAttempts:      e.config.Login.MaxAttempts,
		LoginCooldownDuration: e.config.Login.Cooldown,
		Password: PasswordConfigReport{
			Memory:      pw.Memory,
			Time:        pw.Time,
			Parallelism: pw.Parallelism,
			SaltLength:  pw.SaltLength,
			KeyLength:   pw.KeyLength,
		},
	})
}
