package pharmacophore

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/flexophore/pkg/errors"
)

// CompleteGraph holds the nodes of one conformer and all pairwise center
// distances in Å.  Dist is symmetric with a zero diagonal.
type CompleteGraph struct {
	Nodes []Node
	Dist  [][]float64
}

// Len returns the node count.
func (g *CompleteGraph) Len() int { return len(g.Nodes) }

// Distance returns the distance between nodes i and j.
func (g *CompleteGraph) Distance(i, j int) float64 { return g.Dist[i][j] }

// BuildGraph computes the complete graph of a center set.  Centers must be
// connectivity-isolated; anything else is a reduction bug.
func BuildGraph(set CenterSet) (*CompleteGraph, error) {
	if len(set.Bonds) > 0 {
		b := set.Bonds[0]
		return nil, errors.Invariant("pharmacophore center still bonded").
			WithDetailf("centers %d and %d (atoms %d, %d)", b[0], b[1],
				atomOf(set, b[0]), atomOf(set, b[1]))
	}
	n := len(set.Centers)
	g := &CompleteGraph{Nodes: set.Nodes(), Dist: make([][]float64, n)}
	for i := range g.Dist {
		g.Dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := r3.Norm(r3.Sub(set.Centers[i].Position, set.Centers[j].Position))
			g.Dist[i][j] = d
			g.Dist[j][i] = d
		}
	}
	return g, nil
}

func atomOf(set CenterSet, i int) int {
	if i < 0 || i >= len(set.Centers) {
		return -1
	}
	return set.Centers[i].AtomIndex
}
