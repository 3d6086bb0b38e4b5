package matching

import (
	"cmp"
	"math"
	"slices"

	"github.com/bits-and-blooms/bitset"

	"github.com/turtacn/flexophore/internal/domain/flexophore"
)

const (
	// MaxNumSolutions bounds the partial correspondences kept per search level.
	MaxNumSolutions = 1000
	// MaxNumNodesFlexophore is the largest descriptor the engine will match.
	MaxNumNodesFlexophore = 64
)

type solution struct {
	assign  []int // per reference node decided so far: other node or -1
	used    *bitset.BitSet
	logNode float64
	edgeSum float64
	edges   int
	matched int
}

type candidate struct {
	parent  int
	other   int
	logNode float64
	edgeSum float64
	edges   int
	matched int
	bound   float64
}

// Result is the best correspondence found by one Run.
type Result struct {
	Score float64
	Pairs []Pair
}

// Matcher runs a beam search over node correspondences.  Reference nodes are
// decided in index order; each is either matched to an unused node of the
// other descriptor or left unmatched.  After every level the candidates are
// ranked by an optimistic score that assumes all undecided reference nodes
// will match, and at most maxSolutions survive.
//
// A Matcher keeps scratch buffers between runs and is not safe for concurrent
// use; share matchers through a Pool.
type Matcher struct {
	objective    *Objective
	maxSolutions int

	ref, other *flexophore.MolDistHist
	nRef       int
	nOther     int

	nodeSim     []float64
	refSmooth   []float32
	refMass     []float32
	otherSmooth []float32
	otherMass   []float32
	overlap     []float32 // refPair*otherPairs + otherPair, negative until computed

	beam  []solution
	next  []solution
	cands []candidate
}

func NewMatcher(objective *Objective, maxSolutions int) *Matcher {
	if maxSolutions <= 0 {
		maxSolutions = MaxNumSolutions
	}
	return &Matcher{objective: objective, maxSolutions: maxSolutions}
}

// Set binds the descriptors for the next Run.  ref is the descriptor whose
// nodes drive the search; the kernel is called as (ref node, other node).
// Both must be valid, non-failed descriptors.
func (m *Matcher) Set(ref, other *flexophore.MolDistHist) {
	m.ref, m.other = ref, other
	m.nRef, m.nOther = ref.NumNodes(), other.NumNodes()

	m.nodeSim = resize(m.nodeSim, m.nRef*m.nOther)
	kernel := m.objective.Kernel()
	for r := 0; r < m.nRef; r++ {
		for o := 0; o < m.nOther; o++ {
			m.nodeSim[r*m.nOther+o] = kernel.Similarity(ref.Node(r).Types, other.Node(o).Types)
		}
	}

	m.refSmooth, m.refMass = smoothAll(ref, m.refSmooth, m.refMass)
	m.otherSmooth, m.otherMass = smoothAll(other, m.otherSmooth, m.otherMass)

	m.overlap = resize(m.overlap, len(m.refMass)*len(m.otherMass))
	for i := range m.overlap {
		m.overlap[i] = -1
	}
}

// Run searches the bound descriptors and returns the raw objective of the
// best correspondence found.
func (m *Matcher) Run() Result {
	if m.nRef == 0 || m.nOther == 0 {
		return Result{}
	}
	maxNodes := max(m.nRef, m.nOther)

	m.beam = append(m.beam[:0], solution{used: bitset.New(uint(m.nOther))})
	for r := 0; r < m.nRef; r++ {
		remaining := m.nRef - r - 1
		m.cands = m.cands[:0]
		for pi := range m.beam {
			p := &m.beam[pi]
			for o := 0; o < m.nOther; o++ {
				if p.used.Test(uint(o)) {
					continue
				}
				s := m.nodeSim[r*m.nOther+o]
				if s <= 0 {
					continue
				}
				c := candidate{
					parent:  pi,
					other:   o,
					logNode: p.logNode + math.Log(s),
					edgeSum: p.edgeSum,
					edges:   p.edges,
					matched: p.matched + 1,
				}
				for pr, po := range p.assign {
					if po < 0 {
						continue
					}
					c.edgeSum += m.edgeOverlap(pr, r, po, o)
					c.edges++
				}
				c.bound = combine(c.logNode, c.matched, c.edgeSum, c.edges, c.matched+remaining, maxNodes)
				m.cands = append(m.cands, c)
			}
			m.cands = append(m.cands, candidate{
				parent:  pi,
				other:   -1,
				logNode: p.logNode,
				edgeSum: p.edgeSum,
				edges:   p.edges,
				matched: p.matched,
				bound:   combine(p.logNode, p.matched, p.edgeSum, p.edges, p.matched+remaining, maxNodes),
			})
		}

		// Stable: equal bounds keep parent order, then ascending other node,
		// with the unmatched option last.
		slices.SortStableFunc(m.cands, func(a, b candidate) int { return cmp.Compare(b.bound, a.bound) })
		if len(m.cands) > m.maxSolutions {
			m.cands = m.cands[:m.maxSolutions]
		}

		m.next = m.next[:0]
		for _, c := range m.cands {
			p := &m.beam[c.parent]
			assign := make([]int, r+1)
			copy(assign, p.assign)
			assign[r] = c.other
			used := p.used.Clone()
			if c.other >= 0 {
				used.Set(uint(c.other))
			}
			m.next = append(m.next, solution{
				assign:  assign,
				used:    used,
				logNode: c.logNode,
				edgeSum: c.edgeSum,
				edges:   c.edges,
				matched: c.matched,
			})
		}
		m.beam, m.next = m.next, m.beam
	}

	best := -1
	bestScore := 0.0
	for i := range m.beam {
		s := &m.beam[i]
		if s.matched == 0 {
			continue
		}
		score := combine(s.logNode, s.matched, s.edgeSum, s.edges, s.matched, maxNodes)
		if best < 0 || score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return Result{}
	}
	pairs := make([]Pair, 0, m.beam[best].matched)
	for r, o := range m.beam[best].assign {
		if o >= 0 {
			pairs = append(pairs, Pair{Ref: r, Other: o})
		}
	}
	return Result{Score: bestScore, Pairs: pairs}
}

// reset drops references to caller data while keeping buffers.
func (m *Matcher) reset() {
	m.ref, m.other = nil, nil
	m.nRef, m.nOther = 0, 0
	clear(m.beam)
	clear(m.next)
	m.beam, m.next = m.beam[:0], m.next[:0]
	m.cands = m.cands[:0]
}

func (m *Matcher) edgeOverlap(r1, r2, o1, o2 int) float64 {
	rp := flexophore.PairIndex(r1, r2, m.nRef)
	op := flexophore.PairIndex(o1, o2, m.nOther)
	idx := rp*len(m.otherMass) + op
	if v := m.overlap[idx]; v >= 0 {
		return float64(v)
	}
	const bins = flexophore.BinsHistogram
	v := overlapSmoothed(
		m.refSmooth[rp*bins:(rp+1)*bins], m.otherSmooth[op*bins:(op+1)*bins],
		m.refMass[rp], m.otherMass[op])
	m.overlap[idx] = float32(v)
	return v
}

func smoothAll(d *flexophore.MolDistHist, buf, mass []float32) ([]float32, []float32) {
	n := d.NumNodes()
	pairs := flexophore.NumPairs(n)
	buf = resize(buf, pairs*flexophore.BinsHistogram)
	mass = resize(mass, pairs)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			p := flexophore.PairIndex(i, j, n)
			mass[p] = smooth(d.Histogram(i, j), buf[p*flexophore.BinsHistogram:(p+1)*flexophore.BinsHistogram])
		}
	}
	return buf, mass
}

func resize[T any](s []T, n int) []T {
	if cap(s) < n {
		return make([]T, n)
	}
	return s[:n]
}
