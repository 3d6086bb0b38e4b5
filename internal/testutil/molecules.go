package testutil

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/flexophore/internal/domain/molecule"
)

// zigzag places chain atom k on a planar zig-zag with 1.54 Å bonds.
func zigzag(k int) r3.Vec {
	return r3.Vec{X: float64(k) * 1.258, Y: float64(k%2) * 0.889}
}

// AminoAlcohol returns 8-amino-4-methyloctan-1-ol without hydrogens:
// O0-C1-C2-C3-C4-C5-C6-C7-N8 with a methyl C9 on C4.  Ten heavy atoms, six
// rotatable bonds, and three pharmacophore centers (hydroxyl, amine, methyl).
func AminoAlcohol() *molecule.Molecule {
	elems := []string{"O", "C", "C", "C", "C", "C", "C", "C", "N", "C"}
	atoms := make([]molecule.Atom, len(elems))
	for k := 0; k < 9; k++ {
		atoms[k] = molecule.Atom{Element: elems[k], Position: zigzag(k)}
	}
	atoms[9] = molecule.Atom{Element: "C", Position: r3.Vec{X: 5.032, Y: -1.54}}

	var bonds []molecule.Bond
	for k := 0; k < 8; k++ {
		bonds = append(bonds, molecule.Bond{From: k, To: k + 1, Order: molecule.BondSingle})
	}
	bonds = append(bonds, molecule.Bond{From: 4, To: 9, Order: molecule.BondSingle})
	return mustNew("amino-alcohol", atoms, bonds)
}

// Cresol returns p-cresol as a Kekulé structure: ring C0..C5, methyl C6 on C0,
// hydroxyl O7 on C3.  It has no rotatable bonds.
func Cresol() *molecule.Molecule {
	atoms := make([]molecule.Atom, 8)
	for k := 0; k < 6; k++ {
		atoms[k] = molecule.Atom{Element: "C", Position: hexagon(k, 1.39)}
	}
	atoms[6] = molecule.Atom{Element: "C", Position: hexagon(0, 2.90)}
	atoms[7] = molecule.Atom{Element: "O", Position: hexagon(3, 2.75)}

	bonds := []molecule.Bond{
		{From: 0, To: 1, Order: molecule.BondDouble},
		{From: 1, To: 2, Order: molecule.BondSingle},
		{From: 2, To: 3, Order: molecule.BondDouble},
		{From: 3, To: 4, Order: molecule.BondSingle},
		{From: 4, To: 5, Order: molecule.BondDouble},
		{From: 5, To: 0, Order: molecule.BondSingle},
		{From: 0, To: 6, Order: molecule.BondSingle},
		{From: 3, To: 7, Order: molecule.BondSingle},
	}
	return mustNew("p-cresol", atoms, bonds)
}

// ChloroThioether returns Cl0-C1-C2-C3-C4-C5-S6-C7, whose only pharmacophore
// centers are a halogen and a sulfur.
func ChloroThioether() *molecule.Molecule {
	elems := []string{"Cl", "C", "C", "C", "C", "C", "S", "C"}
	atoms := make([]molecule.Atom, len(elems))
	for k, e := range elems {
		atoms[k] = molecule.Atom{Element: e, Position: zigzag(k)}
	}
	var bonds []molecule.Bond
	for k := 0; k+1 < len(elems); k++ {
		bonds = append(bonds, molecule.Bond{From: k, To: k + 1, Order: molecule.BondSingle})
	}
	return mustNew("chloro-thioether", atoms, bonds)
}

// Propanol returns a four heavy atom molecule, below any sensible size floor.
func Propanol() *molecule.Molecule {
	atoms := []molecule.Atom{
		{Element: "C", Position: zigzag(0)},
		{Element: "C", Position: zigzag(1)},
		{Element: "C", Position: zigzag(2)},
		{Element: "O", Position: zigzag(3)},
	}
	bonds := []molecule.Bond{
		{From: 0, To: 1, Order: molecule.BondSingle},
		{From: 1, To: 2, Order: molecule.BondSingle},
		{From: 2, To: 3, Order: molecule.BondSingle},
	}
	return mustNew("propanol", atoms, bonds)
}

// Alkane returns a linear n-carbon chain.
func Alkane(n int) *molecule.Molecule {
	atoms := make([]molecule.Atom, n)
	var bonds []molecule.Bond
	for k := 0; k < n; k++ {
		atoms[k] = molecule.Atom{Element: "C", Position: zigzag(k)}
		if k > 0 {
			bonds = append(bonds, molecule.Bond{From: k - 1, To: k, Order: molecule.BondSingle})
		}
	}
	return mustNew(fmt.Sprintf("C%d", n), atoms, bonds)
}

func hexagon(k int, r float64) r3.Vec {
	a := float64(k) * math.Pi / 3
	return r3.Vec{X: r * math.Cos(a), Y: r * math.Sin(a)}
}

func mustNew(name string, atoms []molecule.Atom, bonds []molecule.Bond) *molecule.Molecule {
	m, err := molecule.New(name, atoms, bonds)
	if err != nil {
		panic(err)
	}
	return m
}

// Molfile renders m as a V2000 record, used to exercise the parsers and the
// HTTP and CLI surfaces.
func Molfile(m *molecule.Molecule) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n  flexo-test\n\n", m.Name)
	fmt.Fprintf(&sb, "%3d%3d  0  0  0  0  0  0  0  0999 V2000\n", m.AtomCount(), m.BondCount())
	for i := 0; i < m.AtomCount(); i++ {
		a := m.Atom(i)
		code := 0
		switch a.Charge {
		case 1:
			code = 3
		case -1:
			code = 5
		}
		fmt.Fprintf(&sb, "%10.4f%10.4f%10.4f %-3s 0%3d  0  0  0  0  0  0  0  0  0  0\n",
			a.Position.X, a.Position.Y, a.Position.Z, a.Element, code)
	}
	for i := 0; i < m.BondCount(); i++ {
		b := m.Bond(i)
		fmt.Fprintf(&sb, "%3d%3d%3d  0\n", b.From+1, b.To+1, b.Order)
	}
	sb.WriteString("M  END\n")
	return sb.String()
}
