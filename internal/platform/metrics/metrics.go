package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	OTPRequested         prometheus.Counter
	OTPVerifyFailures    prometheus.Counter
	CredentialsIssued    *prometheus.CounterVec
	CredentialRejections *prometheus.CounterVec
	LivenessVerdicts     *prometheus.CounterVec
	LivenessLatency      prometheus.Histogram
	TicketsIssued        prometheus.Counter
	VotesCast            prometheus.Counter
	VoteRejections       *prometheus.CounterVec
	BroadcastFailures    *prometheus.CounterVec
}

// New registers the collectors with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors with reg; tests pass a fresh registry.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		OTPRequested: f.NewCounter(prometheus.CounterOpts{
			Name: "votebooth_otp_requested_total",
			Help: "One-time codes generated and handed to the sender",
		}),
		OTPVerifyFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "votebooth_otp_verify_failures_total",
			Help: "One-time code submissions that did not match or had expired",
		}),
		CredentialsIssued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "votebooth_credentials_issued_total",
			Help: "Stage credentials minted, labeled by purpose",
		}, []string{"purpose"}),
		CredentialRejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "votebooth_credential_rejections_total",
			Help: "Stage credentials rejected, labeled by reason",
		}, []string{"reason"}),
		LivenessVerdicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "votebooth_liveness_verdicts_total",
			Help: "Face match outcomes, labeled by verdict",
		}, []string{"verdict"}),
		LivenessLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "votebooth_liveness_latency_seconds",
			Help:    "Latency of calls to the face matcher",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		TicketsIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "votebooth_tickets_issued_total",
			Help: "Queue tickets issued",
		}),
		VotesCast: f.NewCounter(prometheus.CounterOpts{
			Name: "votebooth_votes_cast_total",
			Help: "Votes recorded",
		}),
		VoteRejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "votebooth_vote_rejections_total",
			Help: "Vote attempts rejected, labeled by reason",
		}, []string{"reason"}),
		BroadcastFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "votebooth_broadcast_failures_total",
			Help: "Event deliveries that failed, labeled by sink",
		}, []string{"sink"}),
	}
}

func (m *Metrics) IncOTPRequested() {
	if m != nil {
		m.OTPRequested.Inc()
	}
}

func (m *Metrics) IncOTPVerifyFailure() {
	if m != nil {
		m.OTPVerifyFailures.Inc()
	}
}

func (m *Metrics) IncCredentialIssued(purpose string) {
	if m != nil {
		m.CredentialsIssued.WithLabelValues(purpose).Inc()
	}
}

func (m *Metrics) IncCredentialRejected(reason string) {
	if m != nil {
		m.CredentialRejections.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) ObserveLiveness(verdict string, seconds float64) {
	if m != nil {
		m.LivenessVerdicts.WithLabelValues(verdict).Inc()
		m.LivenessLatency.Observe(seconds)
	}
}

func (m *Metrics) IncTicketIssued() {
	if m != nil {
		m.TicketsIssued.Inc()
	}
}

func (m *Metrics) IncVoteCast() {
	if m != nil {
		m.VotesCast.Inc()
	}
}

func (m *Metrics) IncVoteRejected(reason string) {
	if m != nil {
		m.VoteRejections.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncBroadcastFailure(sink string) {
	if m != nil {
		m.BroadcastFailures.WithLabelValues(sink).Inc()
	}
}
