package interaction_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/flexophore/internal/domain/interaction"
	"github.com/turtacn/flexophore/internal/domain/molecule"
	"github.com/turtacn/flexophore/internal/testutil"
	"github.com/turtacn/flexophore/pkg/errors"
)

func classes(t *testing.T, m *molecule.Molecule) []string {
	t.Helper()
	ids, ok := interaction.NewRuleClassifier().ClassifyAll(m)
	out := make([]string, len(ids))
	for i := range ids {
		if ok[i] {
			out[i] = ids[i].String()
		}
	}
	return out
}

func TestRuleClassifier_AminoAlcohol(t *testing.T) {
	got := classes(t, testutil.AminoAlcohol())
	assert.Equal(t, []string{
		"donor_acceptor", "carbon_hetero", "aliphatic_carbon", "aliphatic_carbon", "aliphatic_carbon",
		"aliphatic_carbon", "aliphatic_carbon", "carbon_hetero", "donor", "hydrophobic",
	}, got)
}

func TestRuleClassifier_Cresol(t *testing.T) {
	got := classes(t, testutil.Cresol())
	assert.Equal(t, "aromatic_ring", got[0])
	for i := 1; i < 6; i++ {
		assert.Equal(t, "aromatic_member", got[i], "atom %d", i)
	}
	assert.Equal(t, "hydrophobic", got[6])
	assert.Equal(t, "donor_acceptor", got[7])
}

func TestRuleClassifier_ChargesAndAcids(t *testing.T) {
	// acetic acid with an ammonium: N+ C C(=O)O
	m, err := molecule.New("glycine-like",
		[]molecule.Atom{{Element: "N", Charge: 1}, {Element: "C"}, {Element: "C"}, {Element: "O"}, {Element: "O"}, {Element: "Br"}, {Element: "Se"}},
		[]molecule.Bond{
			{From: 0, To: 1, Order: molecule.BondSingle},
			{From: 1, To: 2, Order: molecule.BondSingle},
			{From: 2, To: 3, Order: molecule.BondDouble},
			{From: 2, To: 4, Order: molecule.BondSingle},
			{From: 1, To: 5, Order: molecule.BondSingle},
		})
	require.NoError(t, err)

	c := interaction.NewRuleClassifier()
	id, ok := c.ClassFor(m, 0)
	assert.True(t, ok)
	assert.Equal(t, interaction.Positive, id)

	id, _ = c.ClassFor(m, 3)
	assert.Equal(t, interaction.Acceptor, id)
	id, _ = c.ClassFor(m, 4)
	assert.Equal(t, interaction.Negative, id)
	id, _ = c.ClassFor(m, 5)
	assert.Equal(t, interaction.Halogen, id)

	_, ok = c.ClassFor(m, 6)
	assert.False(t, ok, "selenium has no class")
}

func TestExclusionPolicy(t *testing.T) {
	p := interaction.DefaultExclusionPolicy()
	assert.Equal(t, []interaction.ClassID{interaction.CarbonHetero, interaction.AliphaticCarbon, interaction.AromaticMember}, p.IDs())
	assert.True(t, p.Excluded(interaction.AliphaticCarbon))
	assert.False(t, p.Excluded(interaction.Hydrophobic))

	assert.Empty(t, interaction.NewExclusionPolicy().IDs())
	assert.Len(t, interaction.NewExclusionPolicy(interaction.Donor, interaction.Donor).IDs(), 1)
}

func TestClassID_String(t *testing.T) {
	assert.Equal(t, "aromatic_ring", interaction.AromaticRing.String())
	assert.Equal(t, "class(99)", interaction.ClassID(99).String())

	id, ok := interaction.ParseClass("halogen")
	assert.True(t, ok)
	assert.Equal(t, interaction.Halogen, id)
	_, ok = interaction.ParseClass("metal")
	assert.False(t, ok)
}

func TestDefaultTable(t *testing.T) {
	tbl := interaction.DefaultTable()
	assert.Same(t, tbl, interaction.DefaultTable())
	assert.Equal(t, interaction.VersionInteractionTables, tbl.Version())

	for a := 0; a < interaction.NumClasses; a++ {
		ca := interaction.ClassID(a)
		assert.Zero(t, tbl.Distance(ca, ca))
		for b := 0; b < interaction.NumClasses; b++ {
			cb := interaction.ClassID(b)
			d := tbl.Distance(ca, cb)
			assert.Equal(t, d, tbl.Distance(cb, ca))
			assert.GreaterOrEqual(t, d, 0.0)
			assert.LessOrEqual(t, d, 1.0)
		}
	}
	assert.InDelta(t, 0.8, tbl.Similarity(interaction.Donor, interaction.DonorAcceptor), 1e-12)
	assert.Equal(t, 1.0, tbl.Distance(interaction.Positive, interaction.Negative))
	assert.Equal(t, 1.0, tbl.Distance(interaction.ClassID(-1), interaction.Donor))
}

func TestLoadTable_Errors(t *testing.T) {
	cases := map[string]string{
		"version":  "version: 0\n",
		"unknown":  "version: 1\ndistances:\n  - {a: donor, b: metal, d: 0.5}\n",
		"range":    "version: 1\ndistances:\n  - {a: donor, b: acceptor, d: 1.5}\n",
		"self":     "version: 1\ndistances:\n  - {a: donor, b: donor, d: 0.5}\n",
		"field":    "version: 1\nweights: []\n",
		"not yaml": "version: [\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := interaction.LoadTable(strings.NewReader(src))
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeInteractionTable))
		})
	}
}

func TestLoadTableFile(t *testing.T) {
	path := t.TempDir() + "/table.yaml"
	require.NoError(t, writeFile(path, "version: 7\ndistances:\n  - {a: donor, b: acceptor, d: 0.1}\n"))

	tbl, err := interaction.LoadTableFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7, tbl.Version())
	assert.InDelta(t, 0.1, tbl.Distance(interaction.Acceptor, interaction.Donor), 1e-12)
	assert.Equal(t, 1.0, tbl.Distance(interaction.Donor, interaction.Halogen))

	_, err = interaction.LoadTableFile(path + ".missing")
	assert.True(t, errors.IsCode(err, errors.ErrCodeInteractionTable))
}
