// Package molecule provides the molecular graph consumed by the descriptor
// pipeline: atoms with 3D positions, bonds, adjacency, ring membership and
// aromaticity.  A Molecule is immutable apart from its coordinates, which the
// conformer generator rewrites on a private clone.
package molecule

import (
	"encoding/binary"
	"maps"
	"math"

	"github.com/cespare/xxhash/v2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/flexophore/pkg/errors"
)

// BondOrder is the multiplicity of a bond.  BondAromatic marks a bond given as
// aromatic in the input (molfile bond type 4).
type BondOrder int

const (
	BondSingle   BondOrder = 1
	BondDouble   BondOrder = 2
	BondTriple   BondOrder = 3
	BondAromatic BondOrder = 4
)

// halfUnits returns the bond order in half-bond units; aromatic counts 1.5.
func (o BondOrder) halfUnits() int {
	if o == BondAromatic {
		return 3
	}
	return int(o) * 2
}

// Atom is a single atom of the input structure.
type Atom struct {
	Element string
	Charge  int

	// ImplicitH is a lower bound on the attached hydrogen count.  It is set by
	// StripHydrogens so that hydrogens removed from the graph stay countable.
	ImplicitH int

	Position r3.Vec
}

// IsHydrogen reports whether the atom is a hydrogen (any isotope label is
// expected to have been normalised to "H" by the parser).
func (a Atom) IsHydrogen() bool { return a.Element == "H" }

// Bond connects two atom indices.
type Bond struct {
	From  int
	To    int
	Order BondOrder
}

// Other returns the bond end that is not atom.
func (b Bond) Other(atom int) int {
	if b.From == atom {
		return b.To
	}
	return b.From
}

type neighbor struct {
	atom int
	bond int
}

// Molecule is an atom/bond graph with one set of 3D coordinates.
type Molecule struct {
	Name       string
	Properties map[string]string

	atoms []Atom
	bonds []Bond
	adj   [][]neighbor

	ringBond     []bool
	ringAtom     []bool
	aromaticAtom []bool
	aromaticBond []bool
	rings        [][]int
	hydrogens    []int
}

// New validates the graph and perceives rings, aromaticity and hydrogen
// counts.  The slices are copied.
func New(name string, atoms []Atom, bonds []Bond) (*Molecule, error) {
	if len(atoms) == 0 {
		return nil, errors.New(errors.ErrCodeMoleculeInvalid, "molecule has no atoms")
	}
	m := &Molecule{
		Name:  name,
		atoms: append([]Atom(nil), atoms...),
		bonds: append([]Bond(nil), bonds...),
		adj:   make([][]neighbor, len(atoms)),
	}

	seen := make(map[[2]int]struct{}, len(bonds))
	for i, b := range m.bonds {
		if b.From < 0 || b.From >= len(atoms) || b.To < 0 || b.To >= len(atoms) {
			return nil, errors.Newf(errors.ErrCodeMoleculeInvalid, "bond %d references atom outside [0, %d)", i, len(atoms))
		}
		if b.From == b.To {
			return nil, errors.Newf(errors.ErrCodeMoleculeInvalid, "bond %d is a self loop on atom %d", i, b.From)
		}
		if b.Order < BondSingle || b.Order > BondAromatic {
			return nil, errors.Newf(errors.ErrCodeMoleculeInvalid, "bond %d has unsupported order %d", i, b.Order)
		}
		key := [2]int{min(b.From, b.To), max(b.From, b.To)}
		if _, dup := seen[key]; dup {
			return nil, errors.Newf(errors.ErrCodeMoleculeInvalid, "duplicate bond between atoms %d and %d", key[0], key[1])
		}
		seen[key] = struct{}{}
		m.adj[b.From] = append(m.adj[b.From], neighbor{atom: b.To, bond: i})
		m.adj[b.To] = append(m.adj[b.To], neighbor{atom: b.From, bond: i})
	}
	for i, a := range m.atoms {
		if a.Element == "" {
			return nil, errors.Newf(errors.ErrCodeMoleculeInvalid, "atom %d has no element", i)
		}
	}

	m.perceiveRings()
	m.perceiveAromaticity()
	m.countHydrogens()
	return m, nil
}

// AtomCount returns the number of atoms including explicit hydrogens.
func (m *Molecule) AtomCount() int { return len(m.atoms) }

// BondCount returns the number of bonds.
func (m *Molecule) BondCount() int { return len(m.bonds) }

// Atom returns a copy of atom i.
func (m *Molecule) Atom(i int) Atom { return m.atoms[i] }

// Bond returns bond i.
func (m *Molecule) Bond(i int) Bond { return m.bonds[i] }

// Element is shorthand for Atom(i).Element.
func (m *Molecule) Element(i int) string { return m.atoms[i].Element }

// Neighbors returns the atoms bonded to atom i in bond order.
func (m *Molecule) Neighbors(i int) []int {
	out := make([]int, len(m.adj[i]))
	for k, n := range m.adj[i] {
		out[k] = n.atom
	}
	return out
}

// Degree returns the number of explicit bonds at atom i.
func (m *Molecule) Degree(i int) int { return len(m.adj[i]) }

// HeavyDegree returns the number of non-hydrogen neighbours of atom i.
func (m *Molecule) HeavyDegree(i int) int {
	n := 0
	for _, nb := range m.adj[i] {
		if !m.atoms[nb.atom].IsHydrogen() {
			n++
		}
	}
	return n
}

// BondBetween returns the index of the bond joining a and b.
func (m *Molecule) BondBetween(a, b int) (int, bool) {
	for _, n := range m.adj[a] {
		if n.atom == b {
			return n.bond, true
		}
	}
	return -1, false
}

// HeavyAtomCount returns the number of non-hydrogen atoms.
func (m *Molecule) HeavyAtomCount() int {
	n := 0
	for _, a := range m.atoms {
		if !a.IsHydrogen() {
			n++
		}
	}
	return n
}

// IsHeteroatom reports whether atom i is neither carbon nor hydrogen.
func (m *Molecule) IsHeteroatom(i int) bool {
	e := m.atoms[i].Element
	return e != "C" && e != "H"
}

func (m *Molecule) IsRingAtom(i int) bool     { return m.ringAtom[i] }
func (m *Molecule) IsRingBond(i int) bool     { return m.ringBond[i] }
func (m *Molecule) IsAromatic(i int) bool     { return m.aromaticAtom[i] }
func (m *Molecule) IsAromaticBond(i int) bool { return m.aromaticBond[i] }

// Rings returns the smallest ring through every ring bond, de-duplicated, each
// as a path of atom indices.
func (m *Molecule) Rings() [][]int {
	out := make([][]int, len(m.rings))
	for i, r := range m.rings {
		out[i] = append([]int(nil), r...)
	}
	return out
}

// HydrogenCount returns explicit plus implicit hydrogens on atom i.
func (m *Molecule) HydrogenCount(i int) int { return m.hydrogens[i] }

// Position returns the coordinates of atom i.
func (m *Molecule) Position(i int) r3.Vec { return m.atoms[i].Position }

// Positions returns a copy of all coordinates.
func (m *Molecule) Positions() []r3.Vec {
	out := make([]r3.Vec, len(m.atoms))
	for i, a := range m.atoms {
		out[i] = a.Position
	}
	return out
}

// SetPositions overwrites all coordinates.
func (m *Molecule) SetPositions(pos []r3.Vec) error {
	if len(pos) != len(m.atoms) {
		return errors.Newf(errors.ErrCodeInvariantViolation, "got %d positions for %d atoms", len(pos), len(m.atoms))
	}
	for i := range m.atoms {
		m.atoms[i].Position = pos[i]
	}
	return nil
}

// HasCoordinates reports whether at least two atoms are spatially distinct.
// A single-atom molecule trivially has coordinates.
func (m *Molecule) HasCoordinates() bool {
	if len(m.atoms) < 2 {
		return true
	}
	p0 := m.atoms[0].Position
	for _, a := range m.atoms[1:] {
		if r3.Norm(r3.Sub(a.Position, p0)) > 1e-3 {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.  Perceived ring and aromaticity data is shared
// because it never changes after New.
func (m *Molecule) Clone() *Molecule {
	c := *m
	c.atoms = append([]Atom(nil), m.atoms...)
	c.Properties = maps.Clone(m.Properties)
	return &c
}

// StripHydrogens returns a copy without hydrogen atoms.  Removed hydrogens are
// folded into Atom.ImplicitH of the heavy atom they were attached to.
func (m *Molecule) StripHydrogens() (*Molecule, error) {
	index := make([]int, len(m.atoms))
	atoms := make([]Atom, 0, len(m.atoms))
	for i, a := range m.atoms {
		if a.IsHydrogen() {
			index[i] = -1
			continue
		}
		index[i] = len(atoms)
		a.ImplicitH = m.hydrogens[i]
		atoms = append(atoms, a)
	}
	bonds := make([]Bond, 0, len(m.bonds))
	for _, b := range m.bonds {
		if index[b.From] < 0 || index[b.To] < 0 {
			continue
		}
		bonds = append(bonds, Bond{From: index[b.From], To: index[b.To], Order: b.Order})
	}
	out, err := New(m.Name, atoms, bonds)
	if err != nil {
		return nil, err
	}
	out.Properties = maps.Clone(m.Properties)
	return out, nil
}

// Key is a content hash over elements, charges, bonds and coordinates rounded
// to 1e-4 Å.  It identifies an input for caching; it is not a canonical
// structure key.
func (m *Molecule) Key() uint64 {
	d := xxhash.New()
	var buf [8]byte
	putInt := func(v int64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		_, _ = d.Write(buf[:])
	}
	for _, a := range m.atoms {
		_, _ = d.WriteString(a.Element)
		putInt(int64(a.Charge))
		putInt(int64(a.ImplicitH))
		putInt(int64(math.Round(a.Position.X * 1e4)))
		putInt(int64(math.Round(a.Position.Y * 1e4)))
		putInt(int64(math.Round(a.Position.Z * 1e4)))
	}
	for _, b := range m.bonds {
		putInt(int64(b.From))
		putInt(int64(b.To))
		putInt(int64(b.Order))
	}
	return d.Sum64()
}

// valences lists the allowed neutral valences per element in ascending order.
var valences = map[string][]int{
	"H":  {1},
	"B":  {3},
	"C":  {4},
	"N":  {3, 5},
	"O":  {2},
	"F":  {1},
	"Si": {4},
	"P":  {3, 5},
	"S":  {2, 4, 6},
	"Cl": {1},
	"Se": {2, 4, 6},
	"Br": {1},
	"I":  {1, 3, 5},
}

// countHydrogens fills m.hydrogens with explicit H neighbours plus the valence
// deficit, never less than Atom.ImplicitH.
func (m *Molecule) countHydrogens() {
	m.hydrogens = make([]int, len(m.atoms))
	for i, a := range m.atoms {
		if a.IsHydrogen() {
			continue
		}
		explicit, half := 0, 0
		for _, n := range m.adj[i] {
			if m.atoms[n.atom].IsHydrogen() {
				explicit++
			}
			half += m.bonds[n.bond].Order.halfUnits()
		}
		implicit := 0
		if vs, ok := valences[a.Element]; ok {
			for _, v := range vs {
				v = adjustValence(a.Element, v, a.Charge)
				if 2*v >= half {
					implicit = (2*v - half) / 2
					break
				}
			}
		}
		m.hydrogens[i] = max(explicit+implicit, a.ImplicitH)
	}
}

// adjustValence applies the formal charge: carbon and boron lose one bond per
// unit of charge of either sign; the other elements gain a bond per positive
// charge and lose one per negative charge.
func adjustValence(element string, v, charge int) int {
	switch element {
	case "C", "B", "Si":
		if charge < 0 {
			charge = -charge
		}
		v -= charge
	default:
		v += charge
	}
	if v < 0 {
		return 0
	}
	return v
}
