package molecule_test

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/flexophore/internal/domain/molecule"
	"github.com/turtacn/flexophore/internal/testutil"
	"github.com/turtacn/flexophore/pkg/errors"
)

func TestNew_Validation(t *testing.T) {
	atoms := []molecule.Atom{{Element: "C"}, {Element: "O"}}
	cases := []struct {
		name  string
		atoms []molecule.Atom
		bonds []molecule.Bond
	}{
		{"no atoms", nil, nil},
		{"out of range", atoms, []molecule.Bond{{From: 0, To: 2, Order: 1}}},
		{"self loop", atoms, []molecule.Bond{{From: 1, To: 1, Order: 1}}},
		{"bad order", atoms, []molecule.Bond{{From: 0, To: 1, Order: 7}}},
		{"duplicate", atoms, []molecule.Bond{{From: 0, To: 1, Order: 1}, {From: 1, To: 0, Order: 1}}},
		{"empty element", []molecule.Atom{{Element: "C"}, {}}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := molecule.New("x", tc.atoms, tc.bonds)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeMoleculeInvalid))
		})
	}
}

func TestMolecule_ChainTopology(t *testing.T) {
	m := testutil.AminoAlcohol()
	assert.Equal(t, 10, m.HeavyAtomCount())
	assert.Equal(t, 9, m.BondCount())
	assert.Empty(t, m.Rings())
	assert.Empty(t, m.RingSystems())
	assert.Equal(t, 3, m.Degree(4))
	assert.ElementsMatch(t, []int{3, 5, 9}, m.Neighbors(4))

	bi, ok := m.BondBetween(4, 9)
	require.True(t, ok)
	assert.Equal(t, 9, m.Bond(bi).Other(4))
	_, ok = m.BondBetween(0, 9)
	assert.False(t, ok)

	// implicit hydrogens from valence
	assert.Equal(t, 1, m.HydrogenCount(0)) // OH
	assert.Equal(t, 2, m.HydrogenCount(1)) // CH2
	assert.Equal(t, 1, m.HydrogenCount(4)) // CH
	assert.Equal(t, 3, m.HydrogenCount(9)) // CH3
	assert.Equal(t, 2, m.HydrogenCount(8)) // NH2
	assert.True(t, m.IsHeteroatom(0))
	assert.False(t, m.IsHeteroatom(1))
}

func TestMolecule_KekuleBenzeneIsAromatic(t *testing.T) {
	m := testutil.Cresol()
	rings := m.Rings()
	require.Len(t, rings, 1)
	assert.Len(t, rings[0], 6)

	for i := 0; i < 6; i++ {
		assert.True(t, m.IsRingAtom(i), "atom %d", i)
		assert.True(t, m.IsAromatic(i), "atom %d", i)
	}
	assert.False(t, m.IsRingAtom(6))
	assert.False(t, m.IsAromatic(7))
	assert.Equal(t, [][]int{{0, 1, 2, 3, 4, 5}}, m.RingSystems())

	assert.Equal(t, 0, m.HydrogenCount(0))
	assert.Equal(t, 1, m.HydrogenCount(1))
	assert.Equal(t, 1, m.HydrogenCount(7))
}

func TestMolecule_PyrroleAndCyclohexane(t *testing.T) {
	// pyrrole: N0 C1=C2 C3=C4, ring closure C4-N0
	pyrrole, err := molecule.New("pyrrole",
		[]molecule.Atom{{Element: "N"}, {Element: "C"}, {Element: "C"}, {Element: "C"}, {Element: "C"}},
		[]molecule.Bond{
			{From: 0, To: 1, Order: molecule.BondSingle},
			{From: 1, To: 2, Order: molecule.BondDouble},
			{From: 2, To: 3, Order: molecule.BondSingle},
			{From: 3, To: 4, Order: molecule.BondDouble},
			{From: 4, To: 0, Order: molecule.BondSingle},
		})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		assert.True(t, pyrrole.IsAromatic(i))
	}
	assert.Equal(t, 1, pyrrole.HydrogenCount(0))

	var bonds []molecule.Bond
	atoms := make([]molecule.Atom, 6)
	for i := range atoms {
		atoms[i] = molecule.Atom{Element: "C"}
		bonds = append(bonds, molecule.Bond{From: i, To: (i + 1) % 6, Order: molecule.BondSingle})
	}
	cyclohexane, err := molecule.New("cyclohexane", atoms, bonds)
	require.NoError(t, err)
	assert.True(t, cyclohexane.IsRingAtom(0))
	assert.False(t, cyclohexane.IsAromatic(0))
	assert.Equal(t, 2, cyclohexane.HydrogenCount(3))
}

func TestMolecule_AromaticBondsFromInput(t *testing.T) {
	atoms := make([]molecule.Atom, 6)
	var bonds []molecule.Bond
	for i := range atoms {
		atoms[i] = molecule.Atom{Element: "C"}
		bonds = append(bonds, molecule.Bond{From: i, To: (i + 1) % 6, Order: molecule.BondAromatic})
	}
	m, err := molecule.New("benzene", atoms, bonds)
	require.NoError(t, err)
	assert.True(t, m.IsAromatic(2))
	assert.True(t, m.IsAromaticBond(0))
	assert.Equal(t, 1, m.HydrogenCount(0))
}

func TestMolecule_Charges(t *testing.T) {
	m, err := molecule.New("ions",
		[]molecule.Atom{{Element: "N", Charge: 1}, {Element: "C"}, {Element: "O", Charge: -1}},
		[]molecule.Bond{{From: 0, To: 1, Order: 1}, {From: 1, To: 2, Order: 1}})
	require.NoError(t, err)
	assert.Equal(t, 3, m.HydrogenCount(0))
	assert.Equal(t, 0, m.HydrogenCount(2))
}

func TestMolecule_StripHydrogens(t *testing.T) {
	// methanol with explicit hydrogens
	m, err := molecule.New("methanol",
		[]molecule.Atom{
			{Element: "C"}, {Element: "O", Position: r3.Vec{X: 1.4}},
			{Element: "H"}, {Element: "H"}, {Element: "H"}, {Element: "H"},
		},
		[]molecule.Bond{
			{From: 0, To: 1, Order: 1},
			{From: 0, To: 2, Order: 1}, {From: 0, To: 3, Order: 1}, {From: 0, To: 4, Order: 1},
			{From: 1, To: 5, Order: 1},
		})
	require.NoError(t, err)
	m.Properties = map[string]string{"ID": "m1"}
	assert.Equal(t, 2, m.HeavyAtomCount())
	assert.Equal(t, 3, m.HydrogenCount(0))

	s, err := m.StripHydrogens()
	require.NoError(t, err)
	assert.Equal(t, 2, s.AtomCount())
	assert.Equal(t, 1, s.BondCount())
	assert.Equal(t, 3, s.HydrogenCount(0))
	assert.Equal(t, 1, s.HydrogenCount(1))
	assert.Equal(t, 1, s.Atom(1).ImplicitH)
	assert.Equal(t, "m1", s.Properties["ID"])
	assert.Equal(t, 6, m.AtomCount(), "original untouched")
}

func TestMolecule_CloneAndPositions(t *testing.T) {
	m := testutil.AminoAlcohol()
	c := m.Clone()

	pos := c.Positions()
	for i := range pos {
		pos[i] = r3.Add(pos[i], r3.Vec{Z: 1})
	}
	require.NoError(t, c.SetPositions(pos))
	assert.Equal(t, 0.0, m.Position(3).Z)
	assert.Equal(t, 1.0, c.Position(3).Z)
	assert.NotEqual(t, m.Key(), c.Key())

	err := c.SetPositions(pos[:3])
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvariantViolation))
}

func TestMolecule_Key(t *testing.T) {
	assert.Equal(t, testutil.AminoAlcohol().Key(), testutil.AminoAlcohol().Key())
	assert.NotEqual(t, testutil.AminoAlcohol().Key(), testutil.Cresol().Key())
}

func TestMolecule_HasCoordinates(t *testing.T) {
	assert.True(t, testutil.Cresol().HasCoordinates())

	flat, err := molecule.New("zero", []molecule.Atom{{Element: "C"}, {Element: "C"}}, []molecule.Bond{{From: 0, To: 1, Order: 1}})
	require.NoError(t, err)
	assert.False(t, flat.HasCoordinates())
}

func TestParseMolfile_RoundTrip(t *testing.T) {
	src := testutil.Cresol()
	m, err := molecule.ParseMolfile(testutil.Molfile(src))
	require.NoError(t, err)

	assert.Equal(t, "p-cresol", m.Name)
	require.Equal(t, src.AtomCount(), m.AtomCount())
	require.Equal(t, src.BondCount(), m.BondCount())
	for i := 0; i < src.AtomCount(); i++ {
		assert.Equal(t, src.Element(i), m.Element(i))
		assert.InDelta(t, src.Position(i).X, m.Position(i).X, 1e-4)
		assert.InDelta(t, src.Position(i).Y, m.Position(i).Y, 1e-4)
	}
	assert.True(t, m.IsAromatic(0))
}

func TestParseMolfile_Charges(t *testing.T) {
	text := "ions\n\n\n" +
		"  3  2  0  0  0  0  0  0  0  0999 V2000\n" +
		"    0.0000    0.0000    0.0000 N   0  3  0  0  0  0  0  0  0  0  0  0\n" +
		"    1.4700    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0\n" +
		"    2.9000    0.0000    0.0000 O   0  0  0  0  0  0  0  0  0  0  0  0\n" +
		"  1  2  1  0\n" +
		"  2  3  1  0\n" +
		"M  CHG  1   3  -1\n" +
		"M  END\n"
	m, err := molecule.ParseMolfile(text)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Atom(0).Charge)
	assert.Equal(t, -1, m.Atom(2).Charge)
}

func TestParseMolfile_Errors(t *testing.T) {
	cases := map[string]string{
		"short":     "x\n",
		"v3000":     "x\n\n\n  0  0  0     0  0            999 V3000\n",
		"counts":    "x\n\n\nab\n",
		"truncated": "x\n\n\n  2  1  0  0  0  0  0  0  0  0999 V2000\n    0.0000    0.0000    0.0000 C\n",
		"coord":     "x\n\n\n  1  0  0  0  0  0  0  0  0  0999 V2000\n    abcdef    0.0000    0.0000 C   0  0\nM  END\n",
		"bond":      "x\n\n\n  1  1  0  0  0  0  0  0  0  0999 V2000\n    0.0000    0.0000    0.0000 C   0  0\n  a  b  c\nM  END\n",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := molecule.ParseMolfile(text)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeMolfileParse), err.Error())
		})
	}
}

func TestSDFReader(t *testing.T) {
	sdf := testutil.Molfile(testutil.Cresol()) +
		"> <ID>\nCRESOL-1\n\n$$$$\n" +
		testutil.Molfile(testutil.AminoAlcohol()) +
		"$$$$\n\n"

	r := molecule.NewSDFReader(strings.NewReader(sdf))

	first, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "p-cresol", first.Name)
	assert.Equal(t, "CRESOL-1", first.Properties["ID"])

	second, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, 10, second.HeavyAtomCount())
	assert.Nil(t, second.Properties)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSDFReader_BadRecordDoesNotStopReader(t *testing.T) {
	sdf := "broken\n\n\n  1  0\n$$$$\n" + testutil.Molfile(testutil.Cresol()) + "$$$$\n"
	r := molecule.NewSDFReader(strings.NewReader(sdf))

	_, err := r.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 1")

	m, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "p-cresol", m.Name)
}

type failingReader struct{ calls int }

func (f *failingReader) Read([]byte) (int, error) {
	f.calls++
	return 0, io.ErrUnexpectedEOF
}

func TestSDFReader_ReadErrorEndsStream(t *testing.T) {
	src := &failingReader{}
	r := molecule.NewSDFReader(src)

	_, err := r.Next()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMolfileParse))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	for i := 0; i < 3; i++ {
		_, err = r.Next()
		assert.ErrorIs(t, err, io.EOF)
	}
	assert.Equal(t, 1, src.calls)
}

func TestSDFReader_OversizedLine(t *testing.T) {
	r := molecule.NewSDFReader(strings.NewReader(strings.Repeat("x", 17<<20) + "\n"))

	_, err := r.Next()
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}
