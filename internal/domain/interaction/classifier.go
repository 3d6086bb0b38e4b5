package interaction

import (
	"github.com/turtacn/flexophore/internal/domain/molecule"
)

// Classifier assigns an interaction class to an atom.  ok is false for atoms
// that carry no class at all.
type Classifier interface {
	ClassFor(mol *molecule.Molecule, atom int) (id ClassID, ok bool)
}

// RuleClassifier is a small rule set over element, charge, hydrogen count and
// aromaticity.  Each aromatic system is represented by a single AromaticRing
// atom, its lowest-index carbon; the other members are AromaticMember.
type RuleClassifier struct{}

// NewRuleClassifier returns the built-in classifier.
func NewRuleClassifier() *RuleClassifier { return &RuleClassifier{} }

func (RuleClassifier) ClassFor(mol *molecule.Molecule, atom int) (ClassID, bool) {
	a := mol.Atom(atom)
	switch a.Element {
	case "N":
		switch {
		case a.Charge > 0:
			return Positive, true
		case mol.HydrogenCount(atom) > 0:
			return Donor, true
		default:
			return Acceptor, true
		}
	case "O":
		switch {
		case a.Charge < 0, isAcidOxygen(mol, atom):
			return Negative, true
		case mol.HydrogenCount(atom) > 0:
			return DonorAcceptor, true
		default:
			return Acceptor, true
		}
	case "F", "Cl", "Br", "I":
		return Halogen, true
	case "S":
		return Sulfur, true
	case "P":
		return Phosphorus, true
	case "C":
		return classifyCarbon(mol, atom), true
	}
	return 0, false
}

// ClassifyAll classifies every atom; atoms without a class are reported in
// the second slice as false.
func (c RuleClassifier) ClassifyAll(mol *molecule.Molecule) ([]ClassID, []bool) {
	ids := make([]ClassID, mol.AtomCount())
	ok := make([]bool, mol.AtomCount())
	for i := range ids {
		ids[i], ok[i] = c.ClassFor(mol, i)
	}
	return ids, ok
}

func classifyCarbon(mol *molecule.Molecule, atom int) ClassID {
	if mol.IsAromatic(atom) {
		if aromaticLeader(mol, atom) == atom {
			return AromaticRing
		}
		return AromaticMember
	}
	heavy := 0
	for _, n := range mol.Neighbors(atom) {
		if mol.Atom(n).IsHydrogen() {
			continue
		}
		if mol.IsHeteroatom(n) {
			return CarbonHetero
		}
		heavy++
	}
	if heavy <= 1 {
		return Hydrophobic
	}
	return AliphaticCarbon
}

// aromaticLeader returns the lowest-index carbon of the aromatic system that
// contains atom, walking aromatic bonds only.
func aromaticLeader(mol *molecule.Molecule, atom int) int {
	leader := atom
	seen := map[int]bool{atom: true}
	queue := []int{atom}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if mol.Element(cur) == "C" && cur < leader {
			leader = cur
		}
		for _, n := range mol.Neighbors(cur) {
			if seen[n] {
				continue
			}
			bi, _ := mol.BondBetween(cur, n)
			if !mol.IsAromaticBond(bi) {
				continue
			}
			seen[n] = true
			queue = append(queue, n)
		}
	}
	return leader
}

// isAcidOxygen reports a hydroxyl oxygen on a carbon that also carries a
// double-bonded oxygen (carboxylic acid).
func isAcidOxygen(mol *molecule.Molecule, atom int) bool {
	if mol.HydrogenCount(atom) == 0 || mol.HeavyDegree(atom) != 1 {
		return false
	}
	for _, c := range mol.Neighbors(atom) {
		if mol.Element(c) != "C" {
			continue
		}
		for _, o := range mol.Neighbors(c) {
			if o == atom || mol.Element(o) != "O" {
				continue
			}
			if bi, ok := mol.BondBetween(c, o); ok && mol.Bond(bi).Order == molecule.BondDouble {
				return true
			}
		}
	}
	return false
}
