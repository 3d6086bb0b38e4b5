// Package interaction labels atoms with pharmacophore interaction classes and
// provides the versioned pairwise class distance table used by the node
// similarity kernel.
package interaction

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// ClassID identifies an interaction class.
type ClassID int

const (
	Donor ClassID = iota
	Acceptor
	DonorAcceptor
	Positive
	Negative
	AromaticRing
	Hydrophobic
	Halogen
	Sulfur
	Phosphorus
	CarbonHetero
	AliphaticCarbon
	AromaticMember

	// NumClasses is the number of defined classes.
	NumClasses int = iota
)

var classNames = [...]string{
	Donor:           "donor",
	Acceptor:        "acceptor",
	DonorAcceptor:   "donor_acceptor",
	Positive:        "positive",
	Negative:        "negative",
	AromaticRing:    "aromatic_ring",
	Hydrophobic:     "hydrophobic",
	Halogen:         "halogen",
	Sulfur:          "sulfur",
	Phosphorus:      "phosphorus",
	CarbonHetero:    "carbon_hetero",
	AliphaticCarbon: "aliphatic_carbon",
	AromaticMember:  "aromatic_member",
}

func (c ClassID) String() string {
	if c.Valid() {
		return classNames[c]
	}
	return fmt.Sprintf("class(%d)", int(c))
}

// Valid reports whether c is one of the defined classes.
func (c ClassID) Valid() bool { return c >= 0 && int(c) < NumClasses }

// ParseClass resolves a class by its table name.
func ParseClass(name string) (ClassID, bool) {
	i := slices.Index(classNames[:], name)
	if i < 0 {
		return 0, false
	}
	return ClassID(i), true
}

// ExclusionPolicy is an immutable set of classes that never become
// pharmacophore centers.
type ExclusionPolicy struct {
	excluded map[ClassID]struct{}
}

// NewExclusionPolicy builds a policy from ids; duplicates are ignored.
func NewExclusionPolicy(ids ...ClassID) ExclusionPolicy {
	return ExclusionPolicy{excluded: lo.SliceToMap(ids, func(id ClassID) (ClassID, struct{}) {
		return id, struct{}{}
	})}
}

// DefaultExclusionPolicy excludes carbons next to heteroatoms, plain aliphatic
// carbons and aromatic atoms that are not their system's representative.
func DefaultExclusionPolicy() ExclusionPolicy {
	return NewExclusionPolicy(CarbonHetero, AliphaticCarbon, AromaticMember)
}

// Excluded reports whether id must not become a center.
func (p ExclusionPolicy) Excluded(id ClassID) bool {
	_, ok := p.excluded[id]
	return ok
}

// IDs returns the excluded classes in ascending order.
func (p ExclusionPolicy) IDs() []ClassID {
	ids := lo.Keys(p.excluded)
	slices.Sort(ids)
	return ids
}
