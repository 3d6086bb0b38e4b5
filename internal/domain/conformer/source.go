// Package conformer produces ensembles of 3D coordinate sets for a fixed
// molecular graph.
package conformer

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/flexophore/internal/domain/molecule"
)

// Status is the outcome of one Source.Next call.
type Status int

const (
	// StatusProduced carries a new coordinate set.
	StatusProduced Status = iota
	// StatusExhausted means the source has no further distinct conformers.
	StatusExhausted
	// StatusFailed is a transient failure; Result.Reason says why.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusProduced:
		return "produced"
	case StatusExhausted:
		return "exhausted"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Result is returned by Source.Next instead of an error so that the expected
// end-of-ensemble and failure conditions flow through the caller's loop.
type Result struct {
	Status    Status
	Positions []r3.Vec
	Reason    error
}

// Source yields conformers of one molecule, in that molecule's atom order.
type Source interface {
	// Initialize binds the source to mol and seeds its random state.
	Initialize(mol *molecule.Molecule, seed int64) error
	// Next returns the next conformer.
	Next() Result
	// PossibleConformers is the number of distinct conformers the source
	// could in principle produce for the bound molecule.
	PossibleConformers() int
}

// SourceFactory creates a fresh, uninitialized source.
type SourceFactory func() Source
