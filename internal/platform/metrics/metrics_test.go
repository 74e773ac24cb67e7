package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.IncVoteCast()
	m.IncVoteRejected("already_voted")
	m.IncVoteRejected("already_voted")
	m.IncCredentialIssued("vote-eligible")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.VotesCast))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.VoteRejections.WithLabelValues("already_voted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CredentialsIssued.WithLabelValues("vote-eligible")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncVoteCast()
		m.ObserveLiveness("verified", 0.2)
		m.IncBroadcastFailure("kafka")
	})
}
