// Package flexophore is the application entry point for descriptor creation
// and comparison.  A Handler wires the conformer generator, the pharmacophore
// reducer, the aggregator, the codec and the similarity engine together and
// adds caching, batching and instrumentation around them.
package flexophore

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/flexophore/internal/config"
	"github.com/turtacn/flexophore/internal/domain/conformer"
	domain "github.com/turtacn/flexophore/internal/domain/flexophore"
	"github.com/turtacn/flexophore/internal/domain/interaction"
	"github.com/turtacn/flexophore/internal/domain/matching"
	"github.com/turtacn/flexophore/internal/domain/molecule"
	"github.com/turtacn/flexophore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flexophore/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/flexophore/pkg/errors"
)

const (
	MaxTriesToGenerateConformer        = 25
	MaxTriesToGenerateConformerOneConf = 11
	MinHeavyAtoms                      = 6
	MaxHeavyAtoms                      = 70
	DefaultWorkers                     = 4
	DefaultDecodeCacheSize             = 4096
)

// Service is the descriptor API consumed by the HTTP and CLI layers.
type Service interface {
	CreateDescriptor(ctx context.Context, mol *molecule.Molecule) (*domain.MolDistHist, error)
	CreateBatch(ctx context.Context, mols []*molecule.Molecule) ([]*domain.MolDistHist, error)
	Similarity(query, base *domain.MolDistHist) float64
	Match(query, base *domain.MolDistHist) matching.Alignment
	Rank(ctx context.Context, input *RankInput) ([]RankedHit, error)
	Encode(m *domain.MolDistHist) []byte
	Decode(b []byte) *domain.MolDistHist
	EncodeString(m *domain.MolDistHist) string
	DecodeString(s string) *domain.MolDistHist
}

// DescriptorCache stores encoded descriptors by key.  Get reports an absent
// key with an error for which errors.IsNotFound holds.
type DescriptorCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, keys ...string) error
}

// Settings are the generation and matching parameters of a Handler.
type Settings struct {
	Conformers       int
	MaxTries         int
	MaxTriesOneConf  int
	Seed             int64
	MinHeavyAtoms    int
	MaxHeavyAtoms    int
	MaxNodes         int
	MaxSolutions     int
	CorrectionFactor float64
	Workers          int
	DecodeCacheSize  int
}

// DefaultSettings returns the reference parameters.
func DefaultSettings() Settings {
	return Settings{
		Conformers:       conformer.DefaultConformers,
		MaxTries:         MaxTriesToGenerateConformer,
		MaxTriesOneConf:  MaxTriesToGenerateConformerOneConf,
		Seed:             config.DefaultSeed,
		MinHeavyAtoms:    MinHeavyAtoms,
		MaxHeavyAtoms:    MaxHeavyAtoms,
		MaxNodes:         matching.MaxNumNodesFlexophore,
		MaxSolutions:     matching.MaxNumSolutions,
		CorrectionFactor: matching.CorrectionFactor,
		Workers:          DefaultWorkers,
		DecodeCacheSize:  DefaultDecodeCacheSize,
	}
}

// SettingsFromConfig maps the flexophore config section onto Settings.  Zero
// fields keep their defaults.
func SettingsFromConfig(c config.FlexophoreConfig) Settings {
	s := DefaultSettings()
	setInt := func(dst *int, v int) {
		if v != 0 {
			*dst = v
		}
	}
	setInt(&s.Conformers, c.Conformers)
	setInt(&s.MaxTries, c.MaxTries)
	setInt(&s.MaxTriesOneConf, c.MaxTriesOneConf)
	setInt(&s.MinHeavyAtoms, c.MinHeavyAtoms)
	setInt(&s.MaxHeavyAtoms, c.MaxHeavyAtoms)
	setInt(&s.MaxNodes, c.MaxNodes)
	setInt(&s.MaxSolutions, c.MaxSolutions)
	setInt(&s.Workers, c.Workers)
	setInt(&s.DecodeCacheSize, c.DecodeCacheSize)
	if c.Seed != 0 {
		s.Seed = c.Seed
	}
	if c.CorrectionFactor != 0 {
		s.CorrectionFactor = c.CorrectionFactor
	}
	return s
}

func (s Settings) validate() error {
	switch {
	case s.Conformers < 1:
		return errors.Newf(errors.ErrCodeValidation, "conformers must be >= 1, got %d", s.Conformers)
	case s.MaxTries < 1:
		return errors.Newf(errors.ErrCodeValidation, "max tries must be >= 1, got %d", s.MaxTries)
	case s.MaxTriesOneConf < 1:
		return errors.Newf(errors.ErrCodeValidation, "max one-conformer tries must be >= 1, got %d", s.MaxTriesOneConf)
	case s.MinHeavyAtoms < 1 || s.MaxHeavyAtoms < s.MinHeavyAtoms:
		return errors.Newf(errors.ErrCodeValidation, "heavy atom bounds [%d, %d] are invalid", s.MinHeavyAtoms, s.MaxHeavyAtoms)
	case s.MaxNodes < 1:
		return errors.Newf(errors.ErrCodeValidation, "max nodes must be >= 1, got %d", s.MaxNodes)
	case s.Workers < 1:
		return errors.Newf(errors.ErrCodeValidation, "workers must be >= 1, got %d", s.Workers)
	case s.DecodeCacheSize < 1:
		return errors.Newf(errors.ErrCodeValidation, "decode cache size must be >= 1, got %d", s.DecodeCacheSize)
	}
	return nil
}

// Option customises a Handler.
type Option func(*Handler)

func WithLogger(l logging.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

func WithMetrics(m *prometheus.FlexophoreMetrics) Option {
	return func(h *Handler) {
		if m != nil {
			h.metrics = m
		}
	}
}

// WithCache enables the descriptor cache.
func WithCache(c DescriptorCache) Option {
	return func(h *Handler) { h.cache = c }
}

// WithSourceFactory replaces the torsion-driving conformer source.
func WithSourceFactory(f conformer.SourceFactory) Option {
	return func(h *Handler) {
		if f != nil {
			h.newSource = f
		}
	}
}

func WithClassifier(c interaction.Classifier) Option {
	return func(h *Handler) {
		if c != nil {
			h.classifier = c
		}
	}
}

func WithExclusionPolicy(p interaction.ExclusionPolicy) Option {
	return func(h *Handler) { h.policy = p }
}

// WithTable selects the interaction distance table.  Descriptors record the
// table version and are only comparable under the same version.
func WithTable(t *interaction.DistanceTable) Option {
	return func(h *Handler) {
		if t != nil {
			h.table = t
		}
	}
}

// WithClock sets the time source used to reseed retries.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// Handler implements Service.  It is safe for concurrent use.
type Handler struct {
	settings   Settings
	logger     logging.Logger
	metrics    *prometheus.FlexophoreMetrics
	cache      DescriptorCache
	newSource  conformer.SourceFactory
	classifier interaction.Classifier
	policy     interaction.ExclusionPolicy
	table      *interaction.DistanceTable
	now        func() time.Time

	generator *conformer.Generator
	codec     *domain.Codec
	engine    *matching.Engine
	decoded   *lru.Cache[uint64, *domain.MolDistHist]
	inflight  singleflight.Group
}

var _ Service = (*Handler)(nil)

// NewHandler validates settings and assembles a Handler.
func NewHandler(settings Settings, opts ...Option) (*Handler, error) {
	if err := settings.validate(); err != nil {
		return nil, err
	}
	h := &Handler{
		settings:   settings,
		logger:     logging.NewNopLogger(),
		metrics:    prometheus.NewNoopMetrics(),
		newSource:  conformer.NewTorsionSourceFactory(),
		classifier: interaction.NewRuleClassifier(),
		policy:     interaction.DefaultExclusionPolicy(),
		table:      interaction.DefaultTable(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.Named("flexophore")

	codec, err := domain.NewCodec()
	if err != nil {
		return nil, err
	}
	h.codec = codec
	if err := h.build(); err != nil {
		return nil, err
	}
	return h, nil
}

// build creates the per-instance state: generator, engine and decode LRU.
func (h *Handler) build() error {
	decoded, err := lru.New[uint64, *domain.MolDistHist](h.settings.DecodeCacheSize)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "creating decode cache")
	}
	h.decoded = decoded
	h.generator = conformer.NewGenerator(h.newSource, h.logger)
	h.engine = matching.NewEngine(h.table,
		matching.WithMaxNodes(h.settings.MaxNodes),
		matching.WithMaxSolutions(h.settings.MaxSolutions),
		matching.WithCorrectionFactor(h.settings.CorrectionFactor),
		matching.WithLogger(h.logger),
		matching.WithPoolObserver(func(hit bool) {
			result := "miss"
			if hit {
				result = "hit"
			}
			h.metrics.MatcherPoolTotal.WithLabelValues(result).Inc()
		}),
	)
	return nil
}

// ThreadSafeCopy returns a Handler with the same settings and collaborators
// but its own matcher pool and decode cache.
func (h *Handler) ThreadSafeCopy() *Handler {
	c := &Handler{
		settings:   h.settings,
		logger:     h.logger,
		metrics:    h.metrics,
		cache:      h.cache,
		newSource:  h.newSource,
		classifier: h.classifier,
		policy:     h.policy,
		table:      h.table,
		now:        h.now,
		codec:      h.codec,
	}
	if err := c.build(); err != nil {
		// build only fails for a non-positive cache size, which validate
		// already rejected for h.
		panic(err)
	}
	return c
}

// Settings returns the parameters h was built with.
func (h *Handler) Settings() Settings { return h.settings }

// TableVersion is the interaction table version of descriptors h creates.
func (h *Handler) TableVersion() int { return h.table.Version() }

var defaultHandler = sync.OnceValue(func() *Handler {
	h, err := NewHandler(DefaultSettings())
	if err != nil {
		panic(err)
	}
	return h
})

// Default returns a process-wide Handler with DefaultSettings, built on first
// use.
func Default() *Handler { return defaultHandler() }

func (h *Handler) Encode(m *domain.MolDistHist) []byte { return h.codec.Encode(m) }

func (h *Handler) EncodeString(m *domain.MolDistHist) string { return h.codec.EncodeString(m) }

// Decode never fails: unreadable input yields domain.FailedObject and empty
// input nil.  Decoded descriptors are memoised by content hash.
func (h *Handler) Decode(b []byte) *domain.MolDistHist {
	if len(b) == 0 {
		return nil
	}
	key := xxhash.Sum64(b)
	if m, ok := h.decoded.Get(key); ok {
		return m
	}
	m := h.codec.Decode(b)
	if !m.IsFailed() {
		h.decoded.Add(key, m)
	}
	return m
}

// DecodeString is Decode for the base64 text form.
func (h *Handler) DecodeString(s string) *domain.MolDistHist {
	if s == "" {
		return nil
	}
	key := xxhash.Sum64String(s)
	if m, ok := h.decoded.Get(key); ok {
		return m
	}
	m := h.codec.DecodeString(s)
	if !m.IsFailed() {
		h.decoded.Add(key, m)
	}
	return m
}

// Similarity scores query against base in [0, 1].
func (h *Handler) Similarity(query, base *domain.MolDistHist) float64 {
	return h.Match(query, base).Similarity
}

// Match is Similarity plus the node correspondence.
func (h *Handler) Match(query, base *domain.MolDistHist) matching.Alignment {
	start := time.Now()
	a := h.engine.Match(query, base)
	h.metrics.SimilarityDuration.WithLabelValues().Observe(time.Since(start).Seconds())
	result := "matched"
	switch {
	case query.IsFailed() || base.IsFailed():
		result = "failed_input"
	case a.Similarity == 0:
		result = "zero"
	}
	h.metrics.SimilarityTotal.WithLabelValues(result).Inc()
	return a
}

// PoolStats reports the matcher pool hit and miss counts.
func (h *Handler) PoolStats() (hits, misses int64) { return h.engine.PoolStats() }
