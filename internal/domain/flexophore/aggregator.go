package flexophore

import (
	"math"

	"github.com/turtacn/flexophore/internal/domain/pharmacophore"
	"github.com/turtacn/flexophore/pkg/errors"
)

// Aggregator collects the complete graphs of all conformers of one molecule.
// The first graph fixes the node sequence.
type Aggregator struct {
	nodes        []pharmacophore.Node
	distances    [][]float64 // per pair, one entry per conformer
	conformers   int
	tableVersion int
	viz          *Visualization
}

// NewAggregator starts an aggregation with the graph of the first conformer.
// tableVersion is recorded in the built descriptor.
func NewAggregator(initial *pharmacophore.CompleteGraph, tableVersion int) (*Aggregator, error) {
	a := &Aggregator{nodes: make([]pharmacophore.Node, initial.Len()), tableVersion: tableVersion}
	for i, n := range initial.Nodes {
		a.nodes[i] = n.Clone()
	}
	a.distances = make([][]float64, NumPairs(len(a.nodes)))
	if err := a.Add(initial); err != nil {
		return nil, err
	}
	return a, nil
}

// SetVisualization attaches display data to the descriptor Build returns.
func (a *Aggregator) SetVisualization(v *Visualization) { a.viz = v }

// Conformers returns the number of graphs added so far.
func (a *Aggregator) Conformers() int { return a.conformers }

// Add appends the distances of g.  A graph whose nodes differ from the first
// graph fails with ErrCodeNodeMismatch; a distance outside [0, RangeHistogram)
// fails with ErrCodeDistanceOutOfRange.  A failed Add leaves the aggregator
// unchanged.
func (a *Aggregator) Add(g *pharmacophore.CompleteGraph) error {
	n := len(a.nodes)
	if g.Len() != n {
		return errors.Newf(errors.ErrCodeNodeMismatch, "conformer %d has %d nodes, expected %d", a.conformers, g.Len(), n)
	}
	for i := range a.nodes {
		if !a.nodes[i].SameTypes(g.Nodes[i]) {
			return errors.Newf(errors.ErrCodeNodeMismatch, "conformer %d node %d is %s, expected %s",
				a.conformers, i, g.Nodes[i], a.nodes[i])
		}
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if d := g.Distance(i, j); !(d >= 0 && d < RangeHistogram) {
				return errors.Newf(errors.ErrCodeDistanceOutOfRange, "distance %.3f Å between nodes %d and %d", d, i, j).
					WithDetailf("range [0, %.0f)", RangeHistogram)
			}
		}
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			p := PairIndex(i, j, n)
			a.distances[p] = append(a.distances[p], g.Distance(i, j))
		}
	}
	a.conformers++
	return nil
}

// Build bins all collected distances and returns the validated descriptor.
func (a *Aggregator) Build() (*MolDistHist, error) {
	hists := make([][]byte, len(a.distances))
	baseline := -1
	for p, ds := range a.distances {
		var counts [BinsHistogram]int
		for _, d := range ds {
			counts[binOf(d)]++
		}
		total := len(ds)
		if baseline < 0 {
			baseline = total
		} else if diff := total - baseline; diff > MaxAllowedDiffCountDistHist || -diff > MaxAllowedDiffCountDistHist {
			return nil, errors.Newf(errors.ErrCodeHistogramInconsistent,
				"pair %d holds %d distances, first pair holds %d", p, total, baseline)
		}
		h := make([]byte, BinsHistogram)
		if total > 0 {
			for k, c := range counts {
				h[k] = byte(math.Floor(float64(c)*100/float64(total) + 0.5))
			}
		}
		hists[p] = h
	}

	m := &MolDistHist{nodes: a.nodes, hists: hists, tableVersion: a.tableVersion, viz: a.viz}
	if err := m.Check(); err != nil {
		return nil, err
	}
	return m, nil
}

func binOf(d float64) int {
	k := int(d * BinsHistogram / RangeHistogram)
	return min(max(k, 0), BinsHistogram-1)
}
