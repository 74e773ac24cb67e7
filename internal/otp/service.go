package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"votebooth/internal/platform/metrics"
	dErrors "votebooth/pkg/domain-errors"
	"votebooth/pkg/platform/sentinel"
)

// Service generates, stores and verifies one-time codes.
type Service struct {
	store    Store
	sender   Sender
	ttl      time.Duration
	now      func() time.Time
	generate func() (string, error)
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithGenerator replaces the random code source; tests use it to pin codes.
func WithGenerator(gen func() (string, error)) Option {
	return func(s *Service) {
		if gen != nil {
			s.generate = gen
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(store Store, sender Sender, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		sender:   sender,
		ttl:      DefaultTTL,
		now:      time.Now,
		generate: GenerateCode,
		logger:   logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Request generates a fresh code for contact, replacing any earlier one, and
// hands it to the sender. The code is never returned to the caller. When
// delivery fails the undelivered code is withdrawn, so the contact holds no
// code until the caller retries.
func (s *Service) Request(ctx context.Context, contact string) error {
	contact = normalizeContact(contact)
	if contact == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "contact is required")
	}

	code, err := s.generate()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate code")
	}

	entry := Entry{Code: code, ExpiresAt: s.now().Add(s.ttl)}
	if err := s.store.Put(ctx, contact, entry, s.ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store code")
	}

	if err := s.sender.Send(ctx, contact, code); err != nil {
		s.logger.ErrorContext(ctx, "failed to deliver one-time code", "error", err)
		if derr := s.store.DeleteIf(context.WithoutCancel(ctx), contact, entry); derr != nil {
			s.logger.WarnContext(ctx, "failed to withdraw undelivered code", "error", derr)
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "could not deliver code, try again shortly")
	}

	s.metrics.IncOTPRequested()
	return nil
}

// Verify reports whether code matches the live entry for contact. Missing and
// expired entries yield false; expired ones are purged unless a newer
// request replaced them in the meantime. A match is not
// consumed: call Clear once the result has been acted on.
func (s *Service) Verify(ctx context.Context, contact, code string) (bool, error) {
	contact = normalizeContact(contact)
	code = strings.TrimSpace(code)
	if contact == "" || code == "" {
		s.metrics.IncOTPVerifyFailure()
		return false, nil
	}

	entry, err := s.store.Get(ctx, contact)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncOTPVerifyFailure()
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load code")
	}

	if entry.Expired(s.now()) {
		if err := s.store.DeleteIf(ctx, contact, *entry); err != nil {
			s.logger.WarnContext(ctx, "failed to purge expired code", "error", err)
		}
		s.metrics.IncOTPVerifyFailure()
		return false, nil
	}

	if subtle.ConstantTimeCompare([]byte(entry.Code), []byte(code)) != 1 {
		s.metrics.IncOTPVerifyFailure()
		return false, nil
	}
	return true, nil
}

// Clear removes any entry for contact. Clearing an absent entry is a no-op.
func (s *Service) Clear(ctx context.Context, contact string) error {
	contact = normalizeContact(contact)
	if contact == "" {
		return nil
	}
	if err := s.store.Delete(ctx, contact); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear code")
	}
	return nil
}

// GenerateCode returns a uniformly random zero-padded six-digit code.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}

func normalizeContact(contact string) string {
	return strings.TrimSpace(contact)
}
