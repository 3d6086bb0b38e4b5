// Package pharmacophore reduces a conformer to weighted pharmacophore centers
// and turns those centers into a complete distance graph.
package pharmacophore

import (
	"slices"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/flexophore/internal/domain/interaction"
)

// Node is a pharmacophore point: an ordered set of interaction classes and the
// atom it was derived from.  AtomIndex is for display only.
type Node struct {
	Types     []interaction.ClassID
	AtomIndex int
}

// NewNode returns a node with the given classes, sorted and de-duplicated.
func NewNode(atom int, types ...interaction.ClassID) Node {
	t := slices.Clone(types)
	slices.Sort(t)
	return Node{Types: slices.Compact(t), AtomIndex: atom}
}

// SameTypes reports whether both nodes carry the same class set.
func (n Node) SameTypes(o Node) bool { return slices.Equal(n.Types, o.Types) }

// Clone returns a copy that shares no memory with n.
func (n Node) Clone() Node {
	return Node{Types: slices.Clone(n.Types), AtomIndex: n.AtomIndex}
}

func (n Node) String() string {
	names := make([]string, len(n.Types))
	for i, t := range n.Types {
		names[i] = t.String()
	}
	return strings.Join(names, "+")
}

// Center is a node placed in space for one conformer.
type Center struct {
	Node
	Position r3.Vec
}

// CenterSet is the output of one reduction.  Bonds lists bonds that survived
// between centers.  Reducer cuts every bond when it collapses fragments and
// never fills it; the field exists for reductions that keep bonded pseudo
// atoms, and BuildGraph rejects any set where it is non-empty.
type CenterSet struct {
	Centers []Center
	Bonds   [][2]int
}

// Nodes returns the nodes of the set in order.
func (s CenterSet) Nodes() []Node {
	out := make([]Node, len(s.Centers))
	for i, c := range s.Centers {
		out[i] = c.Node
	}
	return out
}
