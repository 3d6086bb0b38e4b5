package prometheus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFlexophoreMetrics_AllRegistered(t *testing.T) {
	c := newTestCollector(t)
	m := NewFlexophoreMetrics(c)
	require.NotNil(t, m)

	m.DescriptorsTotal.WithLabelValues(StatusCreated).Inc()
	m.DescriptorDuration.WithLabelValues(StatusCreated).Observe(0.2)
	m.ConformerAttemptsTotal.WithLabelValues(OutcomeRetry).Inc()
	m.ConformersPerDescriptor.WithLabelValues().Observe(50)
	m.NodesPerDescriptor.WithLabelValues().Observe(3)
	m.SimilarityTotal.WithLabelValues("ok").Inc()
	m.SimilarityDuration.WithLabelValues().Observe(0.001)
	m.MatcherPoolTotal.WithLabelValues("hit").Inc()
	m.CacheRequestsTotal.WithLabelValues("miss").Inc()
	m.HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/similarity", "200").Inc()
	m.HTTPRequestDuration.WithLabelValues("POST", "/api/v1/similarity").Observe(0.01)
	m.HTTPActiveRequests.WithLabelValues().Inc()

	out := scrapeMetrics(t, c)
	for _, name := range []string{
		`test_unit_descriptors_total{status="created"} 1`,
		`test_unit_conformer_attempts_total{outcome="retry"} 1`,
		"test_unit_conformers_per_descriptor_count 1",
		"test_unit_nodes_per_descriptor_count 1",
		`test_unit_matcher_pool_total{result="hit"} 1`,
		`test_unit_cache_requests_total{result="miss"} 1`,
		"test_unit_http_active_requests 1",
	} {
		assert.Contains(t, out, name)
	}
}

func TestNewFlexophoreMetrics_NilCollector(t *testing.T) {
	m := NewFlexophoreMetrics(nil)
	assert.NotPanics(t, func() {
		m.DescriptorsTotal.WithLabelValues(StatusFailed).Inc()
	})
}

func TestNewNoopMetrics(t *testing.T) {
	m := NewNoopMetrics()
	assert.NotPanics(t, func() {
		m.SimilarityDuration.WithLabelValues().Observe(1)
	})
}
