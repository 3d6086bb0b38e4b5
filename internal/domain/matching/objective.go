package matching

import (
	"math"

	"github.com/turtacn/flexophore/internal/domain/flexophore"
)

// Pair maps a node of the reference descriptor to a node of the other one.
type Pair struct {
	Ref   int
	Other int
}

// Objective scores a node correspondence between a reference descriptor and
// another descriptor:
//
//	score = geomean(node kernel) * mean(edge histogram overlap) * k / max(nRef, nOther)
//
// where k is the number of matched nodes.  The edge term is 1 below two
// matched nodes.
type Objective struct {
	kernel *NodeKernel
}

func NewObjective(kernel *NodeKernel) *Objective { return &Objective{kernel: kernel} }

// Kernel returns the node kernel.
func (o *Objective) Kernel() *NodeKernel { return o.kernel }

// Evaluate scores pairs directly.  The matcher computes the same value
// incrementally.
func (o *Objective) Evaluate(ref, other *flexophore.MolDistHist, pairs []Pair) float64 {
	logNode := 0.0
	for _, p := range pairs {
		s := o.kernel.Similarity(ref.Node(p.Ref).Types, other.Node(p.Other).Types)
		if s <= 0 {
			return 0
		}
		logNode += math.Log(s)
	}
	edgeSum, edges := 0.0, 0
	for a := 0; a < len(pairs); a++ {
		for b := a + 1; b < len(pairs); b++ {
			edgeSum += HistogramOverlap(
				ref.Histogram(pairs[a].Ref, pairs[b].Ref),
				other.Histogram(pairs[a].Other, pairs[b].Other))
			edges++
		}
	}
	return combine(logNode, len(pairs), edgeSum, edges, len(pairs), max(ref.NumNodes(), other.NumNodes()))
}

// combine folds the running sums into a score; covered is the number of nodes
// counted for coverage, which exceeds matched for optimistic partial bounds.
func combine(logNode float64, matched int, edgeSum float64, edges, covered, maxNodes int) float64 {
	if covered == 0 || maxNodes == 0 {
		return 0
	}
	node, edge := 1.0, 1.0
	if matched > 0 {
		node = math.Exp(logNode / float64(matched))
	}
	if edges > 0 {
		edge = edgeSum / float64(edges)
	}
	return node * edge * float64(covered) / float64(maxNodes)
}

// smooth writes the [1 2 1]/4 smoothed histogram into dst and returns its mass.
func smooth(h []byte, dst []float32) float32 {
	var mass float32
	for k := range dst {
		v := 2 * float32(h[k])
		if k > 0 {
			v += float32(h[k-1])
		}
		if k+1 < len(h) {
			v += float32(h[k+1])
		}
		v /= 4
		dst[k] = v
		mass += v
	}
	return mass
}

func overlapSmoothed(a, b []float32, massA, massB float32) float64 {
	if massA == 0 && massB == 0 {
		return 1
	}
	if massA == 0 || massB == 0 {
		return 0
	}
	var shared float32
	for k := range a {
		shared += min(a[k], b[k])
	}
	return float64(shared / max(massA, massB))
}

// HistogramOverlap is the shared mass of two smoothed distance histograms
// relative to the larger mass.  Two empty histograms overlap fully.
func HistogramOverlap(a, b []byte) float64 {
	var sa, sb [flexophore.BinsHistogram]float32
	return overlapSmoothed(sa[:], sb[:], smooth(a, sa[:]), smooth(b, sb[:]))
}
