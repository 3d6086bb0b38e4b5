// Package flexophore holds the multi-conformer pharmacophore descriptor
// (MolDistHist), the aggregator that builds it from per-conformer graphs and
// its binary/text codec.
package flexophore

import (
	"bytes"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/flexophore/internal/domain/pharmacophore"
	"github.com/turtacn/flexophore/pkg/errors"
)

const (
	// BinsHistogram is the number of distance bins per node pair.
	BinsHistogram = 80
	// RangeHistogram is the upper distance bound in Å; bins cover [0, RangeHistogram).
	RangeHistogram = 40.0
	// MaxAllowedDiffCountDistHist is the largest tolerated spread of per-pair
	// distance counts inside one descriptor.
	MaxAllowedDiffCountDistHist = 5
)

// Visualization is optional display data attached at creation time.  It is
// not encoded and plays no part in similarity.
type Visualization struct {
	// Positions are the center coordinates of the representative (first)
	// conformer, in node order.
	Positions  []r3.Vec
	Conformers int
}

// MolDistHist is an immutable descriptor: ordered nodes and, for each node
// pair i<j, a histogram of BinsHistogram percentages.
type MolDistHist struct {
	nodes        []pharmacophore.Node
	hists        [][]byte
	tableVersion int
	viz          *Visualization
}

// FailedObject is the descriptor of a molecule whose descriptor could not be
// computed.  It has no nodes and is similar to nothing.
var FailedObject = &MolDistHist{}

// NewMolDistHist assembles a descriptor from nodes and histograms in pair
// order (see PairIndex) and validates it.  tableVersion is the interaction
// table version the node classes were assigned under.
func NewMolDistHist(nodes []pharmacophore.Node, hists [][]byte, tableVersion int) (*MolDistHist, error) {
	m := &MolDistHist{
		nodes:        make([]pharmacophore.Node, len(nodes)),
		hists:        make([][]byte, len(hists)),
		tableVersion: tableVersion,
	}
	for i, n := range nodes {
		m.nodes[i] = n.Clone()
	}
	for i, h := range hists {
		m.hists[i] = slices.Clone(h)
	}
	if err := m.Check(); err != nil {
		return nil, err
	}
	return m, nil
}

// PairIndex maps the node pair (i, j), i != j, of an n-node descriptor to its
// histogram index.  Pairs are ordered (0,1), (0,2) ... (0,n-1), (1,2) ...
func PairIndex(i, j, n int) int {
	if i > j {
		i, j = j, i
	}
	return i*n - i*(i+1)/2 + (j - i - 1)
}

// NumPairs is n*(n-1)/2.
func NumPairs(n int) int { return n * (n - 1) / 2 }

// IsFailed reports whether m is nil, the failed sentinel or has no nodes.
func (m *MolDistHist) IsFailed() bool { return m == nil || len(m.nodes) == 0 }

// NumNodes returns the node count; 0 for a nil or failed descriptor.
func (m *MolDistHist) NumNodes() int {
	if m == nil {
		return 0
	}
	return len(m.nodes)
}

// Node returns node i.  The returned node shares memory with the descriptor
// and must not be modified.
func (m *MolDistHist) Node(i int) pharmacophore.Node { return m.nodes[i] }

// Nodes returns a copy of all nodes.
func (m *MolDistHist) Nodes() []pharmacophore.Node {
	out := make([]pharmacophore.Node, len(m.nodes))
	for i, n := range m.nodes {
		out[i] = n.Clone()
	}
	return out
}

// Histogram returns the histogram of the pair (i, j).  The slice is shared
// and must not be modified.
func (m *MolDistHist) Histogram(i, j int) []byte {
	return m.hists[PairIndex(i, j, len(m.nodes))]
}

// TableVersion is the interaction table version of the node classes.
func (m *MolDistHist) TableVersion() int {
	if m == nil {
		return 0
	}
	return m.tableVersion
}

// Visualization returns the display extension, or nil.
func (m *MolDistHist) Visualization() *Visualization {
	if m == nil {
		return nil
	}
	return m.viz
}

// WithVisualization returns a copy of m carrying v.
func (m *MolDistHist) WithVisualization(v *Visualization) *MolDistHist {
	c := *m
	c.viz = v
	return &c
}

// Equal compares table version, node classes, atom indices and histogram
// bytes.  Visualization data is ignored.
func (m *MolDistHist) Equal(o *MolDistHist) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.tableVersion != o.tableVersion || len(m.nodes) != len(o.nodes) || len(m.hists) != len(o.hists) {
		return false
	}
	for i := range m.nodes {
		if !m.nodes[i].SameTypes(o.nodes[i]) || m.nodes[i].AtomIndex != o.nodes[i].AtomIndex {
			return false
		}
	}
	for i := range m.hists {
		if !bytes.Equal(m.hists[i], o.hists[i]) {
			return false
		}
	}
	return true
}

// Check validates structure: at least one node, every node typed, one
// histogram per pair, BinsHistogram bins each and no bin above 100.
func (m *MolDistHist) Check() error {
	if len(m.nodes) == 0 {
		return errors.New(errors.ErrCodeDescriptorInvalid, "descriptor has no nodes")
	}
	for i, n := range m.nodes {
		if len(n.Types) == 0 {
			return errors.Newf(errors.ErrCodeDescriptorInvalid, "node %d has no interaction class", i)
		}
	}
	if want := NumPairs(len(m.nodes)); len(m.hists) != want {
		return errors.Newf(errors.ErrCodeDescriptorInvalid, "%d histograms for %d nodes, want %d", len(m.hists), len(m.nodes), want)
	}
	for p, h := range m.hists {
		if len(h) != BinsHistogram {
			return errors.Newf(errors.ErrCodeDescriptorInvalid, "histogram %d has %d bins", p, len(h))
		}
		for k, v := range h {
			if v > 100 {
				return errors.Newf(errors.ErrCodeDescriptorInvalid, "histogram %d bin %d is %d%%", p, k, v)
			}
		}
	}
	return nil
}
