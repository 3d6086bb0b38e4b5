package pharmacophore

import (
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/flexophore/internal/domain/interaction"
	"github.com/turtacn/flexophore/internal/domain/molecule"
)

// Fragment splits the heavy atoms of mol into non-overlapping groups: ring
// systems, each acyclic heteroatom on its own, and connected runs of acyclic
// carbons.  Fragments are ordered by their smallest atom, atoms ascending.
func Fragment(mol *molecule.Molecule) [][]int {
	frags := mol.RingSystems()

	assigned := make([]bool, mol.AtomCount())
	for _, f := range frags {
		for _, a := range f {
			assigned[a] = true
		}
	}
	for a := 0; a < mol.AtomCount(); a++ {
		if assigned[a] || mol.Atom(a).IsHydrogen() {
			continue
		}
		if mol.IsHeteroatom(a) {
			assigned[a] = true
			frags = append(frags, []int{a})
			continue
		}
		run := []int{a}
		assigned[a] = true
		for q := 0; q < len(run); q++ {
			for _, n := range mol.Neighbors(run[q]) {
				if assigned[n] || mol.Element(n) != "C" || mol.IsRingAtom(n) {
					continue
				}
				assigned[n] = true
				run = append(run, n)
			}
		}
		slices.Sort(run)
		frags = append(frags, run)
	}
	slices.SortFunc(frags, func(x, y []int) int { return x[0] - y[0] })
	return frags
}

type member struct {
	atom  int
	class interaction.ClassID
}

// Reducer places one center per qualifying atom at the centroid of the atom's
// fragment.  Fragmentation and classification happen once, in NewReducer, so
// every conformer of the molecule yields the same node sequence.
type Reducer struct {
	fragments [][]int
	members   [][]member
}

// NewReducer prepares the reduction of mol.  Atoms without a class, or with an
// excluded class, produce no center.
func NewReducer(mol *molecule.Molecule, classifier interaction.Classifier, policy interaction.ExclusionPolicy) *Reducer {
	r := &Reducer{fragments: Fragment(mol)}
	r.members = make([][]member, len(r.fragments))
	for i, f := range r.fragments {
		for _, a := range f {
			id, ok := classifier.ClassFor(mol, a)
			if !ok || policy.Excluded(id) {
				continue
			}
			r.members[i] = append(r.members[i], member{atom: a, class: id})
		}
	}
	return r
}

// Fragments returns the fragmentation used by the reducer.
func (r *Reducer) Fragments() [][]int { return r.fragments }

// NodeCount is the number of centers every reduction yields.
func (r *Reducer) NodeCount() int {
	n := 0
	for _, m := range r.members {
		n += len(m)
	}
	return n
}

// Reduce computes the centers for the coordinates currently held by mol,
// which must share the atom order of the molecule given to NewReducer.
func (r *Reducer) Reduce(mol *molecule.Molecule) CenterSet {
	centers := make([]Center, 0, r.NodeCount())
	for i, f := range r.fragments {
		if len(r.members[i]) == 0 {
			continue
		}
		var sum r3.Vec
		for _, a := range f {
			sum = r3.Add(sum, mol.Position(a))
		}
		centroid := r3.Scale(1/float64(len(f)), sum)
		for _, m := range r.members[i] {
			centers = append(centers, Center{Node: NewNode(m.atom, m.class), Position: centroid})
		}
	}
	return CenterSet{Centers: centers}
}
