package matching_test

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/flexophore/internal/domain/flexophore"
	"github.com/turtacn/flexophore/internal/domain/interaction"
	"github.com/turtacn/flexophore/internal/domain/matching"
	"github.com/turtacn/flexophore/internal/domain/pharmacophore"
)

// desc builds a single-conformer descriptor: every pair histogram holds 100%
// in the bin of dist(i, j).
func desc(t *testing.T, version int, dist func(i, j int) float64, types ...interaction.ClassID) *flexophore.MolDistHist {
	t.Helper()
	n := len(types)
	nodes := make([]pharmacophore.Node, n)
	for i, c := range types {
		nodes[i] = pharmacophore.NewNode(i, c)
	}
	hists := make([][]byte, flexophore.NumPairs(n))
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			h := make([]byte, flexophore.BinsHistogram)
			h[int(dist(i, j)*2)] = 100
			hists[flexophore.PairIndex(i, j, n)] = h
		}
	}
	m, err := flexophore.NewMolDistHist(nodes, hists, version)
	require.NoError(t, err)
	return m
}

// line places node k at 3.5*k Å.
func line(i, j int) float64 { return math.Abs(float64(j-i)) * 3.5 }

func engine(opts ...matching.Option) *matching.Engine {
	return matching.NewEngine(interaction.DefaultTable(), opts...)
}

func TestNodeKernel(t *testing.T) {
	k := matching.NewNodeKernel(interaction.DefaultTable())
	D, A, DA := interaction.Donor, interaction.Acceptor, interaction.DonorAcceptor

	assert.Equal(t, 1.0, k.Similarity([]interaction.ClassID{D}, []interaction.ClassID{D}))
	assert.InDelta(t, 0.8, k.Similarity([]interaction.ClassID{D}, []interaction.ClassID{DA}), 1e-12)

	// base larger: each base class takes its best query match
	assert.InDelta(t, 0.3, k.Similarity([]interaction.ClassID{D}, []interaction.ClassID{D, A}), 1e-12)
	// query larger or equal: each query class takes its best base match
	assert.InDelta(t, 0.3, k.Similarity([]interaction.ClassID{D, A}, []interaction.ClassID{D}), 1e-12)
	assert.InDelta(t, 0.8*0.8, k.Similarity([]interaction.ClassID{D, A}, []interaction.ClassID{DA, DA}), 1e-12)
	assert.Equal(t, 1.0, k.Similarity([]interaction.ClassID{D, A}, []interaction.ClassID{A, D}))

	assert.Zero(t, k.Similarity(nil, []interaction.ClassID{D}))
	assert.Zero(t, k.Similarity([]interaction.ClassID{interaction.Positive}, []interaction.ClassID{interaction.Negative}))
	assert.Equal(t, interaction.VersionInteractionTables, k.TableVersion())
}

func TestHistogramOverlap(t *testing.T) {
	at := func(bin int) []byte {
		h := make([]byte, flexophore.BinsHistogram)
		h[bin] = 100
		return h
	}
	empty := make([]byte, flexophore.BinsHistogram)

	assert.Equal(t, 1.0, matching.HistogramOverlap(at(10), at(10)))
	assert.InDelta(t, 0.5, matching.HistogramOverlap(at(10), at(11)), 1e-6)
	assert.Zero(t, matching.HistogramOverlap(at(10), at(20)))
	assert.Equal(t, 1.0, matching.HistogramOverlap(empty, empty))
	assert.Zero(t, matching.HistogramOverlap(empty, at(3)))
	assert.InDelta(t, matching.HistogramOverlap(at(0), at(1)), matching.HistogramOverlap(at(1), at(0)), 1e-12)
}

func TestRemap(t *testing.T) {
	c := matching.CorrectionFactor
	assert.Zero(t, matching.Remap(0, c))
	assert.Zero(t, matching.Remap(-0.5, c))
	assert.Zero(t, matching.Remap(math.NaN(), c))
	assert.Equal(t, 1.0, matching.Remap(1, c))
	assert.Equal(t, 1.0, matching.Remap(1.7, c))
	assert.InDelta(t, 0.9711, matching.Remap(0.5, c), 1e-3)

	prev := 0.0
	for v := 0.05; v < 1; v += 0.05 {
		f := matching.Remap(v, c)
		assert.Greater(t, f, prev)
		prev = f
	}
}

func TestEngine_SelfSimilarity(t *testing.T) {
	e := engine()
	d := desc(t, 1, line, interaction.DonorAcceptor, interaction.Hydrophobic, interaction.Donor, interaction.Donor)

	a := e.Match(d, d)
	assert.Equal(t, 1.0, a.Similarity)
	assert.Equal(t, 1.0, a.Raw)
	assert.Equal(t, []matching.NodePair{{0, 0}, {1, 1}, {2, 2}, {3, 3}}, a.Pairs)

	other := desc(t, 1, line, interaction.Halogen, interaction.Sulfur)
	assert.Greater(t, e.Similarity(d, d), e.Similarity(d, other))
}

func TestEngine_SymmetryForEqualSizes(t *testing.T) {
	e := engine()
	a := desc(t, 1, line, interaction.Donor, interaction.Acceptor, interaction.Hydrophobic)
	b := desc(t, 1, func(i, j int) float64 { return float64(i+j) * 2.1 },
		interaction.DonorAcceptor, interaction.Hydrophobic, interaction.AromaticRing)

	ab, ba := e.Similarity(a, b), e.Similarity(b, a)
	assert.Greater(t, ab, 0.0)
	assert.Less(t, ab, 1.0)
	assert.Equal(t, ab, ba)
}

func TestEngine_UnequalSizes(t *testing.T) {
	e := engine()
	small := desc(t, 1, func(int, int) float64 { return 5 }, interaction.Donor, interaction.Acceptor)
	big := desc(t, 1, func(i, j int) float64 {
		switch {
		case i == 0 && j == 1:
			return 5
		case i == 0:
			return 7
		}
		return 3
	}, interaction.Donor, interaction.Acceptor, interaction.Halogen)

	m := e.Match(small, big)
	assert.InDelta(t, 2.0/3, m.Raw, 1e-9)
	assert.InDelta(t, matching.Remap(2.0/3, matching.CorrectionFactor), m.Similarity, 1e-12)
	assert.Equal(t, []matching.NodePair{{0, 0}, {1, 1}}, m.Pairs)

	rev := e.Match(big, small)
	assert.Equal(t, m.Raw, rev.Raw)
	assert.Equal(t, []matching.NodePair{{0, 0}, {1, 1}}, rev.Pairs)
}

func TestEngine_PairsAreIndependentCopies(t *testing.T) {
	e := engine()
	d := desc(t, 1, line, interaction.Donor, interaction.Acceptor)
	first := e.Match(d, d)
	first.Pairs[0] = matching.NodePair{Query: 9, Base: 9}
	second := e.Match(d, d)
	assert.Equal(t, matching.NodePair{}, second.Pairs[0])
}

func TestEngine_Guards(t *testing.T) {
	e := engine()
	d := desc(t, 1, line, interaction.Donor, interaction.Acceptor, interaction.Hydrophobic)

	assert.Zero(t, e.Similarity(d, nil))
	assert.Zero(t, e.Similarity(nil, d))
	assert.Zero(t, e.Similarity(d, flexophore.FailedObject))
	assert.Zero(t, e.Similarity(flexophore.FailedObject, flexophore.FailedObject))
	assert.Empty(t, e.Match(d, flexophore.FailedObject).Pairs)

	foreign := desc(t, 2, line, interaction.Donor, interaction.Acceptor, interaction.Hydrophobic)
	assert.Zero(t, e.Similarity(d, foreign))

	// charged nodes of opposite sign never match
	pos := desc(t, 1, line, interaction.Positive)
	neg := desc(t, 1, line, interaction.Negative)
	assert.Zero(t, e.Similarity(pos, neg))
}

func TestEngine_OversizedDescriptor(t *testing.T) {
	types := make([]interaction.ClassID, matching.MaxNumNodesFlexophore+1)
	for i := range types {
		types[i] = interaction.ClassID(i % 7)
	}
	big := desc(t, 1, func(i, j int) float64 { return float64((i*7+j)%39) + 0.25 }, types...)

	e := engine()
	assert.Zero(t, e.Similarity(big, big))
	assert.Zero(t, e.Similarity(big, desc(t, 1, line, interaction.Donor)))

	capped := engine(matching.WithMaxNodes(2))
	assert.Equal(t, 2, capped.MaxNodes())
	assert.Zero(t, capped.Similarity(desc(t, 1, line, interaction.Donor, interaction.Donor, interaction.Donor),
		desc(t, 1, line, interaction.Donor)))
}

func TestEngine_NarrowBeam(t *testing.T) {
	a := desc(t, 1, line, interaction.Donor, interaction.Donor, interaction.Acceptor, interaction.Hydrophobic)
	b := desc(t, 1, func(i, j int) float64 { return float64(i+j) + 1.5 },
		interaction.Donor, interaction.Acceptor, interaction.Donor, interaction.Hydrophobic)

	wide := engine().Match(a, b)
	narrow := engine(matching.WithMaxSolutions(1)).Match(a, b)
	assert.Greater(t, narrow.Raw, 0.0)
	assert.LessOrEqual(t, narrow.Raw, wide.Raw+1e-12)
}

func TestObjective_EvaluateAgreesWithMatcher(t *testing.T) {
	a := desc(t, 1, line, interaction.Donor, interaction.Acceptor, interaction.Hydrophobic)
	b := desc(t, 1, func(i, j int) float64 { return float64(i+j) * 2.1 },
		interaction.DonorAcceptor, interaction.Hydrophobic, interaction.Acceptor, interaction.Halogen)

	obj := matching.NewObjective(matching.NewNodeKernel(interaction.DefaultTable()))
	m := matching.NewMatcher(obj, 0)
	m.Set(a, b)
	res := m.Run()
	require.NotEmpty(t, res.Pairs)
	assert.InDelta(t, obj.Evaluate(a, b, res.Pairs), res.Score, 1e-6)

	identity := []matching.Pair{{Ref: 0, Other: 0}, {Ref: 1, Other: 1}}
	assert.LessOrEqual(t, obj.Evaluate(a, b, identity), res.Score+1e-9)
}

func TestPool(t *testing.T) {
	created := 0
	var events []bool
	p := matching.NewPool(func() *matching.Matcher {
		created++
		return matching.NewMatcher(nil, 0)
	}, func(hit bool) { events = append(events, hit) })

	m1 := p.Get()
	m2 := p.Get()
	assert.NotSame(t, m1, m2)
	p.Put(m1)
	assert.Same(t, m1, p.Get())
	p.Put(m2)

	hits, misses := p.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(2), misses)
	assert.Equal(t, 2, created)
	assert.Equal(t, []bool{false, false, true}, events)
}

func TestEngine_ConcurrentSimilarity(t *testing.T) {
	e := engine()
	a := desc(t, 1, line, interaction.Donor, interaction.Acceptor, interaction.Hydrophobic)
	b := desc(t, 1, func(i, j int) float64 { return float64(i+j) * 2.1 },
		interaction.DonorAcceptor, interaction.Hydrophobic, interaction.AromaticRing)
	want := e.Similarity(a, b)

	var wg sync.WaitGroup
	results := make([]float64, 32)
	for g := range results {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				if i%2 == 0 {
					results[g] = e.Similarity(a, b)
				} else {
					results[g] = e.Similarity(b, a)
				}
			}
		}(g)
	}
	wg.Wait()
	for _, r := range results {
		assert.Equal(t, want, r)
	}
	hits, misses := e.PoolStats()
	assert.Equal(t, int64(2+32*20*2), hits+misses)
}
