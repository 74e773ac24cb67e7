package liveness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"votebooth/internal/platform/metrics"
	"votebooth/pkg/platform/circuit"
)

const (
	// DefaultTimeout bounds a single matcher call.
	DefaultTimeout = 10 * time.Second

	maxResponseBytes = 64 << 10
)

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type verifyRequest struct {
	Img1 string `json:"img1_base64"`
	Img2 string `json:"img2_base64"`
}

type verifyResponse struct {
	Verified *bool  `json:"verified"`
	Error    string `json:"error,omitempty"`
}

// HTTPMatcher calls POST {baseURL}/verify on the matcher service.
// While its circuit is open, calls fail fast as unavailable.
type HTTPMatcher struct {
	baseURL string
	client  HTTPDoer
	timeout time.Duration
	breaker *circuit.Breaker
	metrics *metrics.Metrics
	tracer  trace.Tracer
	logger  *slog.Logger
}

type Option func(*HTTPMatcher)

func WithHTTPClient(c HTTPDoer) Option {
	return func(m *HTTPMatcher) {
		if c != nil {
			m.client = c
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(m *HTTPMatcher) {
		if d > 0 {
			m.timeout = d
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(m *HTTPMatcher) { m.breaker = b }
}

func WithMetrics(metrics *metrics.Metrics) Option {
	return func(m *HTTPMatcher) { m.metrics = metrics }
}

func WithTracer(t trace.Tracer) Option {
	return func(m *HTTPMatcher) { m.tracer = t }
}

func NewHTTPMatcher(baseURL string, logger *slog.Logger, opts ...Option) *HTTPMatcher {
	m := &HTTPMatcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.client == nil {
		m.client = &http.Client{Timeout: m.timeout}
	}
	if m.breaker == nil {
		m.breaker = circuit.New("liveness")
	}
	return m
}

// Compare forwards both images to the matcher. 200 with verified=true is
// Verified; 400, 401 and a 200 with verified=false are NotVerified. Anything
// else is ErrServiceUnavailable.
func (m *HTTPMatcher) Compare(ctx context.Context, reference, live string) (Verdict, error) {
	start := time.Now()
	ctx, sp := startSpan(ctx, m.tracer, "liveness.compare", attribute.String("liveness.endpoint", m.baseURL))

	verdict, err := m.compare(ctx, reference, live)

	label := string(verdict)
	if err != nil {
		label = "unavailable"
	}
	m.metrics.ObserveLiveness(label, time.Since(start).Seconds())
	sp.end(err, attribute.String("liveness.verdict", label))
	return verdict, err
}

func (m *HTTPMatcher) compare(ctx context.Context, reference, live string) (Verdict, error) {
	if !m.breaker.Allow() {
		return "", unavailable("liveness service temporarily unavailable", nil)
	}

	verdict, err := m.call(ctx, reference, live)
	if err != nil {
		if _, change := m.breaker.RecordFailure(); change.Opened {
			m.logger.WarnContext(ctx, "liveness circuit opened", "breaker", m.breaker.Name())
		}
		return "", err
	}
	if _, change := m.breaker.RecordSuccess(); change.Closed {
		m.logger.InfoContext(ctx, "liveness circuit closed", "breaker", m.breaker.Name())
	}
	return verdict, nil
}

func (m *HTTPMatcher) call(ctx context.Context, reference, live string) (Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	body, err := json.Marshal(verifyRequest{Img1: reference, Img2: live})
	if err != nil {
		return "", fmt.Errorf("marshal verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/verify", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", unavailable("liveness service timed out", err)
		}
		return "", unavailable("liveness service unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", unavailable("failed to read liveness response", err)
	}
	return parseVerdict(resp.StatusCode, raw)
}

func parseVerdict(status int, raw []byte) (Verdict, error) {
	switch status {
	case http.StatusOK:
		var resp verifyResponse
		if err := json.Unmarshal(raw, &resp); err != nil || resp.Verified == nil {
			return "", unavailable("undecodable liveness response", err)
		}
		if *resp.Verified {
			return Verified, nil
		}
		return NotVerified, nil
	case http.StatusBadRequest, http.StatusUnauthorized:
		return NotVerified, nil
	default:
		return "", unavailable(fmt.Sprintf("liveness service answered %d", status), nil)
	}
}
