package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the credential signature algorithm.
type SigningMethod string

const (
	// MethodHS256 signs with a shared secret. This is the default.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 key pair.
	MethodEd25519 SigningMethod = "ed25519"
)

// DefaultLifetime is the credential lifetime used when Config.Lifetime is zero.
const DefaultLifetime = 7 * 24 * time.Hour

// Config is loaded once at startup and never re-read per call.
type Config struct {
	Lifetime      time.Duration
	SigningMethod SigningMethod
	// Secret is the HS256 shared key.
	Secret []byte
	// PrivateKey and PublicKey are Ed25519 keys, raw or PEM encoded.
	PrivateKey []byte
	PublicKey  []byte
	Issuer     string
	Audience   string
	Leeway     time.Duration
	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// Identity is the caller-supplied part of the claim set.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Role    string
}

// IdentityClaims is the full claim set carried inside a credential.
type IdentityClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	gjwt.RegisteredClaims
}

// Identity returns the identity fields of the claim set.
func (c *IdentityClaims) Identity() Identity {
	return Identity{
		Subject: c.Subject,
		Email:   c.Email,
		Name:    c.Name,
		Role:    c.Role,
	}
}

// Manager is the credential codec. It is immutable after NewManager and safe for
// concurrent use.
type Manager struct {
	config    Config
	method    gjwt.SigningMethod
	signKey   interface{}
	verifyKey interface{}
	now       func() time.Time
}

// NewManager validates the signing configuration. Any error here is a fatal
// startup condition.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Lifetime == 0 {
		cfg.Lifetime = DefaultLifetime
	}
	if cfg.Lifetime < 0 {
		return nil, errors.New("invalid lifetime configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	cfg.Audience = strings.TrimSpace(cfg.Audience)
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, errors.New("issuer and audience are required")
	}
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodHS256
	}

	m := &Manager{config: cfg, now: cfg.Now}
	if m.now == nil {
		m.now = time.Now
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.Secret) == 0 {
			return nil, errors.New("hs256 requires a signing secret")
		}
		m.method = gjwt.SigningMethodHS256
		m.signKey = cfg.Secret
		m.verifyKey = cfg.Secret
	case MethodEd25519:
		priv, err := parseEdPrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		pub := priv.Public().(ed25519.PublicKey)
		if len(cfg.PublicKey) > 0 {
			if pub, err = parseEdPublicKey(cfg.PublicKey); err != nil {
				return nil, err
			}
		}
		m.method = gjwt.SigningMethodEdDSA
		m.signKey = priv
		m.verifyKey = pub
	default:
		return nil, fmt.Errorf("unsupported signing method %q", cfg.SigningMethod)
	}

	return m, nil
}

// Lifetime returns the configured credential lifetime.
func (m *Manager) Lifetime() time.Duration {
	return m.config.Lifetime
}

// Algorithm returns the JOSE alg name used for signing.
func (m *Manager) Algorithm() string {
	return m.method.Alg()
}

// Issue signs a new credential for id with a fresh lifetime window.
func (m *Manager) Issue(id Identity) (string, error) {
	token, _, err := m.issue(id)
	return token, err
}

func (m *Manager) issue(id Identity) (string, *IdentityClaims, error) {
	if id.Subject == "" {
		return "", nil, errors.New("subject is required")
	}

	now := m.now()
	claims := &IdentityClaims{
		Email: id.Email,
		Name:  id.Name,
		Role:  id.Role,
		RegisteredClaims: gjwt.RegisteredClaims{
			Subject:   id.Subject,
			Issuer:    m.config.Issuer,
			Audience:  gjwt.ClaimStrings{m.config.Audience},
			IssuedAt:  gjwt.NewNumericDate(now),
			ExpiresAt: gjwt.NewNumericDate(now.Add(m.config.Lifetime)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := gjwt.NewWithClaims(m.method, claims).SignedString(m.signKey)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Verify checks algorithm, signature, expiry, issuer and audience.
func (m *Manager) Verify(tokenStr string) (*IdentityClaims, error) {
	options := []gjwt.ParserOption{
		gjwt.WithValidMethods([]string{m.method.Alg()}),
		gjwt.WithIssuer(m.config.Issuer),
		gjwt.WithAudience(m.config.Audience),
		gjwt.WithExpirationRequired(),
		gjwt.WithTimeFunc(m.now),
	}
	if m.config.Leeway > 0 {
		options = append(options, gjwt.WithLeeway(m.config.Leeway))
	}

	claims := &IdentityClaims{}
	token, err := gjwt.NewParser(options...).ParseWithClaims(tokenStr, claims, m.keyFunc)
	if err != nil {
		return nil, classify(err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, newError(KindInvalidSignature, gjwt.ErrTokenInvalidClaims)
	}

	return claims, nil
}

// Authentic checks algorithm, signature, issuer and audience but not the
// time claims. Revocation and logout accept expired tokens through it; it must
// not be used to admit a request.
func (m *Manager) Authentic(tokenStr string) (*IdentityClaims, error) {
	parser := gjwt.NewParser(
		gjwt.WithValidMethods([]string{m.method.Alg()}),
		gjwt.WithoutClaimsValidation(),
	)

	claims := &IdentityClaims{}
	if _, err := parser.ParseWithClaims(tokenStr, claims, m.keyFunc); err != nil {
		return nil, newError(KindInvalidSignature, err)
	}
	if claims.Issuer != m.config.Issuer || !slices.Contains(claims.Audience, m.config.Audience) {
		return nil, newError(KindAudienceMismatch, gjwt.ErrTokenInvalidAudience)
	}
	if claims.Subject == "" {
		return nil, newError(KindInvalidSignature, gjwt.ErrTokenInvalidClaims)
	}
	return claims, nil
}

// Refresh re-issues a credential for the identity in oldToken. Expiry is ignored
// so a just-expired token stays refreshable; signature, issuer and audience are
// still enforced.
func (m *Manager) Refresh(oldToken string) (string, *IdentityClaims, error) {
	old, err := m.Authentic(oldToken)
	if err != nil {
		var jerr *Error
		if errors.As(err, &jerr) {
			err = jerr.Err
		}
		return "", nil, newError(KindUnrefreshable, err)
	}
	return m.issue(old.Identity())
}

// Decode parses claims without verifying anything.
func (m *Manager) Decode(tokenStr string) (*IdentityClaims, error) {
	claims := &IdentityClaims{}
	if _, _, err := gjwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, newError(KindInvalidSignature, err)
	}
	return claims, nil
}

// RemainingLifetime reports time until expiry; zero when already expired or
// undecodable.
func (m *Manager) RemainingLifetime(tokenStr string) time.Duration {
	claims, err := m.Decode(tokenStr)
	if err != nil || claims.ExpiresAt == nil {
		return 0
	}
	remaining := claims.ExpiresAt.Time.Sub(m.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsExpiringSoon is true when the remaining lifetime is under threshold or the
// token cannot be decoded.
func (m *Manager) IsExpiringSoon(tokenStr string, threshold time.Duration) bool {
	claims, err := m.Decode(tokenStr)
	if err != nil || claims.ExpiresAt == nil {
		return true
	}
	return claims.ExpiresAt.Time.Sub(m.now()) < threshold
}

func (m *Manager) keyFunc(t *gjwt.Token) (interface{}, error) {
	if t.Method.Alg() != m.method.Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}
	return m.verifyKey, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := gjwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := gjwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
