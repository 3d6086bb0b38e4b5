package prometheus

// Status label values for DescriptorsTotal.
const (
	StatusCreated = "created"
	StatusFailed  = "failed"
	StatusCached  = "cached"
	StatusError   = "error"
)

// Outcome label values for ConformerAttemptsTotal.
const (
	OutcomeSuccess   = "success"
	OutcomeRetry     = "retry"
	OutcomeOneConf   = "one_conformer"
	OutcomePermanent = "permanent"
)

// FlexophoreMetrics holds every instrument the descriptor service records.
type FlexophoreMetrics struct {
	DescriptorsTotal        CounterVec
	DescriptorDuration      HistogramVec
	ConformerAttemptsTotal  CounterVec
	ConformersPerDescriptor HistogramVec
	NodesPerDescriptor      HistogramVec

	SimilarityTotal    CounterVec
	SimilarityDuration HistogramVec
	MatcherPoolTotal   CounterVec

	CacheRequestsTotal CounterVec

	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec
}

var (
	DefaultHTTPDurationBuckets       = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}
	DefaultDescriptorDurationBuckets = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}
	DefaultSimilarityBuckets         = []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1}
	DefaultConformerBuckets          = []float64{1, 2, 5, 10, 25, 50, 100, 250, 500}
	DefaultNodeBuckets               = []float64{1, 2, 4, 8, 12, 16, 24, 32, 48, 64}
)

// NewFlexophoreMetrics registers every instrument on collector.
func NewFlexophoreMetrics(c MetricsCollector) *FlexophoreMetrics {
	if c == nil {
		c = NewNoopCollector()
	}
	return &FlexophoreMetrics{
		DescriptorsTotal:        c.RegisterCounter("descriptors_total", "Descriptor creations by status", "status"),
		DescriptorDuration:      c.RegisterHistogram("descriptor_duration_seconds", "Descriptor creation latency", DefaultDescriptorDurationBuckets, "status"),
		ConformerAttemptsTotal:  c.RegisterCounter("conformer_attempts_total", "Conformer ensemble attempts by outcome", "outcome"),
		ConformersPerDescriptor: c.RegisterHistogram("conformers_per_descriptor", "Conformers aggregated into a descriptor", DefaultConformerBuckets),
		NodesPerDescriptor:      c.RegisterHistogram("nodes_per_descriptor", "Pharmacophore nodes per descriptor", DefaultNodeBuckets),

		SimilarityTotal:    c.RegisterCounter("similarity_total", "Similarity evaluations by result", "result"),
		SimilarityDuration: c.RegisterHistogram("similarity_duration_seconds", "Similarity evaluation latency", DefaultSimilarityBuckets),
		MatcherPoolTotal:   c.RegisterCounter("matcher_pool_total", "Matcher pool acquisitions", "result"),

		CacheRequestsTotal: c.RegisterCounter("cache_requests_total", "Descriptor cache lookups", "result"),

		HTTPRequestsTotal:   c.RegisterCounter("http_requests_total", "HTTP requests", "method", "route", "status_code"),
		HTTPRequestDuration: c.RegisterHistogram("http_request_duration_seconds", "HTTP request latency", DefaultHTTPDurationBuckets, "method", "route"),
		HTTPActiveRequests:  c.RegisterGauge("http_active_requests", "In-flight HTTP requests"),
	}
}

// NewNoopMetrics returns metrics that record nothing.
func NewNoopMetrics() *FlexophoreMetrics {
	return NewFlexophoreMetrics(NewNoopCollector())
}
