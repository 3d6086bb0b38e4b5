package conformer

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/flexophore/internal/domain/molecule"
	"github.com/turtacn/flexophore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flexophore/pkg/errors"
)

// DefaultConformers is the ensemble size used when none is configured.
const DefaultConformers = 250

// Ensemble is the output of one Generate call.
type Ensemble struct {
	Conformers [][]r3.Vec
	// Possible is the source's PossibleConformers after initialization.
	Possible int
	// OnlyOneConformer flags a degenerate run: more than one conformer was
	// possible but the source produced a single one.
	OnlyOneConformer bool
	Seed             int64
}

// Len returns the number of conformers.
func (e *Ensemble) Len() int { return len(e.Conformers) }

// Generator drives a fresh Source per call.
type Generator struct {
	newSource SourceFactory
	logger    logging.Logger
}

func NewGenerator(newSource SourceFactory, logger logging.Logger) *Generator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Generator{newSource: newSource, logger: logger.Named("conformer")}
}

// Generate produces up to n conformers of mol, n <= 0 meaning
// DefaultConformers.  Failing to produce the first conformer, or a transient
// source failure later on, is reported as ErrCodeConformationGenerationFailed.
// Other initialization errors keep their own code.
func (g *Generator) Generate(mol *molecule.Molecule, n int, seed int64) (*Ensemble, error) {
	if n <= 0 {
		n = DefaultConformers
	}
	src := g.newSource()
	if err := src.Initialize(mol, seed); err != nil {
		if errors.GetCode(err) == errors.CodeUnknown {
			return nil, errors.Wrap(err, errors.ErrCodeConformationGenerationFailed, "initializing conformer source")
		}
		return nil, err
	}

	first := src.Next()
	if first.Status != StatusProduced {
		return nil, errors.New(errors.ErrCodeConformationGenerationFailed, "no initial conformer").
			WithDetailf("status %s", first.Status).
			WithCause(first.Reason)
	}

	ens := &Ensemble{
		Conformers: [][]r3.Vec{first.Positions},
		Possible:   src.PossibleConformers(),
		Seed:       seed,
	}
loop:
	for len(ens.Conformers) < n {
		r := src.Next()
		switch r.Status {
		case StatusProduced:
			ens.Conformers = append(ens.Conformers, r.Positions)
		case StatusExhausted:
			break loop
		default:
			return nil, errors.New(errors.ErrCodeConformationGenerationFailed, "conformer source failed").
				WithDetailf("after %d conformers", len(ens.Conformers)).
				WithCause(r.Reason)
		}
	}
	ens.OnlyOneConformer = ens.Possible > 1 && len(ens.Conformers) == 1

	g.logger.Debug("conformer ensemble generated",
		logging.Int("conformers", len(ens.Conformers)),
		logging.Int("possible", ens.Possible),
		logging.Int64("seed", seed),
		logging.Bool("only_one_conformer", ens.OnlyOneConformer))
	return ens, nil
}
