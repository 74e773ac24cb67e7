package credential

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"votebooth/internal/platform/metrics"
	id "votebooth/pkg/domain"
	dErrors "votebooth/pkg/domain-errors"
	"votebooth/pkg/requestcontext"
)

// MinKeyBytes is the shortest accepted HMAC signing key.
const MinKeyBytes = 32

// RevocationList retires credentials before their natural expiry.
type RevocationList interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type claims struct {
	Purpose Purpose `json:"purpose"`
	Device  string  `json:"dfp,omitempty"`
	jwt.RegisteredClaims
}

// Service issues and verifies stage credentials.
type Service struct {
	key           []byte
	issuer        string
	revocations   RevocationList
	deviceBinding bool
	now           func() time.Time
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRevocationList enables revocation checks on every Verify.
func WithRevocationList(rl RevocationList) Option {
	return func(s *Service) { s.revocations = rl }
}

// WithDeviceBinding embeds the caller's device fingerprint at issue time and
// requires the same fingerprint at verification.
func WithDeviceBinding(enabled bool) Option {
	return func(s *Service) { s.deviceBinding = enabled }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New builds a Service. The signing key is required; there is no fallback.
func New(signingKey, issuer string, opts ...Option) (*Service, error) {
	if len(signingKey) < MinKeyBytes {
		return nil, fmt.Errorf("credential signing key must be at least %d bytes", MinKeyBytes)
	}
	if issuer == "" {
		return nil, errors.New("credential issuer is required")
	}
	s := &Service{
		key:    []byte(signingKey),
		issuer: issuer,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Issue mints a credential for subject scoped to purpose.
func (s *Service) Issue(ctx context.Context, subject id.VoterID, purpose Purpose, ttl time.Duration) (*Token, error) {
	if subject.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "credential subject is required")
	}
	if !purpose.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown credential purpose")
	}
	if ttl <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "credential ttl must be positive")
	}

	now := s.now()
	jti := uuid.NewString()
	expiresAt := now.Add(ttl)
	c := claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        jti,
		},
	}
	if s.deviceBinding {
		c.Device = requestcontext.DeviceFingerprint(ctx)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign credential")
	}

	s.metrics.IncCredentialIssued(string(purpose))
	return &Token{
		Value:     signed,
		ID:        jti,
		Purpose:   purpose,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

// Verify checks signature, issuer, expiry, exact purpose, device binding and
// revocation, in that order. Every rejection is an unauthorized domain error
// wrapping one of ErrExpired, ErrMalformed, ErrWrongPurpose or ErrRevoked.
// A failing revocation lookup is returned as an internal error; the caller
// must still refuse the request.
func (s *Service) Verify(ctx context.Context, token string, required Purpose) (*Verified, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, s.reject(ErrExpired, "expired")
		}
		return nil, s.reject(ErrMalformed, "malformed")
	}
	if !parsed.Valid {
		return nil, s.reject(ErrMalformed, "malformed")
	}

	subject, err := id.ParseVoterID(c.Subject)
	if err != nil {
		return nil, s.reject(ErrMalformed, "malformed")
	}
	if !required.IsValid() || c.Purpose != required {
		return nil, s.reject(ErrWrongPurpose, "wrong_purpose")
	}
	if s.deviceBinding && c.Device != "" {
		current := requestcontext.DeviceFingerprint(ctx)
		if subtle.ConstantTimeCompare([]byte(c.Device), []byte(current)) != 1 {
			return nil, s.reject(fmt.Errorf("%w: bound to another device", ErrMalformed), "device_mismatch")
		}
	}
	if s.revocations != nil {
		revoked, err := s.revocations.IsRevoked(ctx, c.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check credential revocation")
		}
		if revoked {
			return nil, s.reject(ErrRevoked, "revoked")
		}
	}

	v := &Verified{
		Subject:   subject,
		ID:        c.ID,
		Purpose:   c.Purpose,
		ExpiresAt: c.ExpiresAt.Time,
	}
	if c.IssuedAt != nil {
		v.IssuedAt = c.IssuedAt.Time
	}
	return v, nil
}

// Revoke retires a verified credential for the rest of its lifetime.
// Without a revocation list this is a no-op and natural expiry applies.
func (s *Service) Revoke(ctx context.Context, v *Verified) error {
	if s.revocations == nil || v == nil || v.ID == "" {
		return nil
	}
	ttl := v.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.revocations.Revoke(ctx, v.ID, ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke credential")
	}
	return nil
}

func (s *Service) reject(reason error, label string) error {
	s.metrics.IncCredentialRejected(label)
	return dErrors.Wrap(reason, dErrors.CodeUnauthorized, reason.Error())
}
