package matching

import (
	"math"
	"slices"

	"github.com/turtacn/flexophore/internal/domain/flexophore"
	"github.com/turtacn/flexophore/internal/domain/interaction"
	"github.com/turtacn/flexophore/internal/infrastructure/monitoring/logging"
)

// CorrectionFactor is the exponent of the final score remap.
const CorrectionFactor = 0.40

// Alignment is the outcome of Engine.Match.
type Alignment struct {
	// Similarity is the remapped score Engine.Similarity returns.
	Similarity float64
	// Raw is the objective before the remap.
	Raw float64
	// Pairs lists matched (query, base) node indices, ordered by query node.
	Pairs []NodePair
}

// NodePair matches query node Query to base node Base.
type NodePair struct {
	Query int
	Base  int
}

// Engine compares descriptors.  It is bound to one interaction table version
// and is safe for concurrent use.
type Engine struct {
	objective    *Objective
	pool         *Pool
	maxNodes     int
	maxSolutions int
	correction   float64
	observePool  func(hit bool)
	logger       logging.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxNodes overrides MaxNumNodesFlexophore.
func WithMaxNodes(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxNodes = n
		}
	}
}

// WithMaxSolutions overrides MaxNumSolutions.
func WithMaxSolutions(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSolutions = n
		}
	}
}

// WithCorrectionFactor overrides CorrectionFactor.
func WithCorrectionFactor(c float64) Option {
	return func(e *Engine) {
		if c > 0 {
			e.correction = c
		}
	}
}

// WithPoolObserver reports matcher pool hits and misses.
func WithPoolObserver(fn func(hit bool)) Option {
	return func(e *Engine) { e.observePool = fn }
}

func WithLogger(l logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func NewEngine(table *interaction.DistanceTable, opts ...Option) *Engine {
	e := &Engine{
		objective:    NewObjective(NewNodeKernel(table)),
		maxNodes:     MaxNumNodesFlexophore,
		maxSolutions: MaxNumSolutions,
		correction:   CorrectionFactor,
		logger:       logging.NewNopLogger(),
	}
	for _, o := range opts {
		o(e)
	}
	e.logger = e.logger.Named("matching")
	e.pool = NewPool(func() *Matcher { return NewMatcher(e.objective, e.maxSolutions) }, e.observePool)
	return e
}

// TableVersion is the interaction table version descriptors must carry.
func (e *Engine) TableVersion() int { return e.objective.Kernel().TableVersion() }

// MaxNodes is the node cap above which descriptors score 0.
func (e *Engine) MaxNodes() int { return e.maxNodes }

// PoolStats reports matcher pool hits and misses.
func (e *Engine) PoolStats() (hits, misses int64) { return e.pool.Stats() }

// Similarity returns a score in [0, 1].  Nil, failed, oversized and
// foreign-table descriptors score 0.
func (e *Engine) Similarity(query, base *flexophore.MolDistHist) float64 {
	return e.Match(query, base).Similarity
}

// Match is Similarity plus the node correspondence behind the score.
func (e *Engine) Match(query, base *flexophore.MolDistHist) Alignment {
	if !e.comparable(query) || !e.comparable(base) {
		return Alignment{}
	}
	nq, nb := query.NumNodes(), base.NumNodes()

	var raw float64
	var pairs []NodePair
	if nq <= nb {
		res := e.run(query, base)
		raw, pairs = res.Score, toNodePairs(res.Pairs, false)
	}
	if nb <= nq {
		res := e.run(base, query)
		if pairs == nil || res.Score > raw {
			raw, pairs = res.Score, toNodePairs(res.Pairs, true)
		}
	}
	return Alignment{Similarity: Remap(raw, e.correction), Raw: raw, Pairs: pairs}
}

func (e *Engine) comparable(d *flexophore.MolDistHist) bool {
	if d.IsFailed() {
		return false
	}
	if d.NumNodes() > e.maxNodes {
		e.logger.Debug("descriptor above node cap", logging.Nodes(d.NumNodes()), logging.Int("max_nodes", e.maxNodes))
		return false
	}
	if d.TableVersion() != e.TableVersion() {
		e.logger.Debug("descriptor from another interaction table",
			logging.Int("descriptor_version", d.TableVersion()),
			logging.Int("engine_version", e.TableVersion()))
		return false
	}
	return true
}

func (e *Engine) run(ref, other *flexophore.MolDistHist) Result {
	m := e.pool.Get()
	defer e.pool.Put(m)
	m.Set(ref, other)
	return m.Run()
}

func toNodePairs(pairs []Pair, refIsBase bool) []NodePair {
	out := make([]NodePair, len(pairs))
	for i, p := range pairs {
		if refIsBase {
			out[i] = NodePair{Query: p.Other, Base: p.Ref}
		} else {
			out[i] = NodePair{Query: p.Ref, Base: p.Other}
		}
	}
	if refIsBase {
		slices.SortFunc(out, func(a, b NodePair) int { return a.Query - b.Query })
	}
	return out
}

// Remap applies f(v) = 1 - (1 - v^c)^(1/c), clamped to [0, 1].
func Remap(v, c float64) float64 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= 1 {
		return 1
	}
	f := 1 - math.Pow(1-math.Pow(v, c), 1/c)
	return min(max(f, 0), 1)
}
