package conformer

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/flexophore/internal/domain/molecule"
	"github.com/turtacn/flexophore/pkg/errors"
)

const (
	defaultTriesPerConformer = 64
	defaultJitterDegrees     = 15.0
	defaultClashDistance     = 1.8
	// Atoms closer than this many bonds are never checked for clashes.
	clashMinBondSeparation = 4
	maxPossibleConformers  = math.MaxInt32
)

type torsion struct {
	pivot  int // fixed end of the bond
	head   int // moving end of the bond
	moving []int
}

// TorsionSource enumerates staggered torsion states (0°, 120°, 240° plus a
// small random jitter) of every rotatable bond, starting from the input
// geometry.  Conformers with non-bonded atoms closer than the clash distance
// are rejected.  The source is deterministic for a given seed.
type TorsionSource struct {
	triesPerConformer int
	jitter            float64
	clash             float64

	rng        *rand.Rand
	base       []r3.Vec
	torsions   []torsion
	clashPairs [][2]int
	possible   int
	seen       map[string]struct{}
	produced   int
	ready      bool
}

// TorsionOption configures a TorsionSource.
type TorsionOption func(*TorsionSource)

// WithTriesPerConformer bounds the random draws spent on one conformer before
// the source reports itself exhausted.
func WithTriesPerConformer(n int) TorsionOption {
	return func(s *TorsionSource) {
		if n > 0 {
			s.triesPerConformer = n
		}
	}
}

// WithJitter sets the maximum random deviation, in degrees, from the
// staggered torsion angles.
func WithJitter(degrees float64) TorsionOption {
	return func(s *TorsionSource) { s.jitter = math.Abs(degrees) }
}

// WithClashDistance sets the minimum allowed distance between atoms at least
// four bonds apart.
func WithClashDistance(d float64) TorsionOption {
	return func(s *TorsionSource) { s.clash = d }
}

func NewTorsionSource(opts ...TorsionOption) *TorsionSource {
	s := &TorsionSource{
		triesPerConformer: defaultTriesPerConformer,
		jitter:            defaultJitterDegrees,
		clash:             defaultClashDistance,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewTorsionSourceFactory returns a factory creating sources with opts.
func NewTorsionSourceFactory(opts ...TorsionOption) SourceFactory {
	return func() Source { return NewTorsionSource(opts...) }
}

func (s *TorsionSource) Initialize(mol *molecule.Molecule, seed int64) error {
	if !mol.HasCoordinates() {
		return errors.New(errors.ErrCodeMoleculeNoCoordinates, "input molecule has no 3D coordinates")
	}
	s.rng = rand.New(rand.NewSource(seed))
	s.base = mol.Positions()
	s.torsions = rotatableTorsions(mol)
	s.clashPairs = distantPairs(mol, clashMinBondSeparation)
	s.possible = 1
	for range s.torsions {
		if s.possible > maxPossibleConformers/3 {
			s.possible = maxPossibleConformers
			break
		}
		s.possible *= 3
	}
	s.seen = make(map[string]struct{})
	s.produced = 0
	s.ready = true
	return nil
}

func (s *TorsionSource) PossibleConformers() int { return s.possible }

// RotatableBonds is the number of torsions driven by the source.
func (s *TorsionSource) RotatableBonds() int { return len(s.torsions) }

func (s *TorsionSource) Next() Result {
	if !s.ready {
		return Result{Status: StatusFailed, Reason: errors.New(errors.ErrCodeConformationGenerationFailed, "torsion source used before Initialize")}
	}
	if s.produced == 0 {
		// The input geometry is the all-zero state.
		s.seen[string(make([]byte, len(s.torsions)))] = struct{}{}
		s.produced++
		return Result{Status: StatusProduced, Positions: append([]r3.Vec(nil), s.base...)}
	}
	if len(s.seen) >= s.possible {
		return Result{Status: StatusExhausted}
	}

	state := make([]byte, len(s.torsions))
	for try := 0; try < s.triesPerConformer; try++ {
		for i := range state {
			state[i] = byte(s.rng.Intn(3))
		}
		key := string(state)
		if _, dup := s.seen[key]; dup {
			continue
		}
		pos := s.apply(state)
		if s.clashes(pos) {
			continue
		}
		s.seen[key] = struct{}{}
		s.produced++
		return Result{Status: StatusProduced, Positions: pos}
	}
	return Result{Status: StatusExhausted}
}

// apply rotates every torsion of the base geometry to its state.
func (s *TorsionSource) apply(state []byte) []r3.Vec {
	pos := append([]r3.Vec(nil), s.base...)
	for i, t := range s.torsions {
		deg := float64(state[i]) * 120
		if s.jitter > 0 {
			deg += (s.rng.Float64()*2 - 1) * s.jitter
		}
		axis := r3.Sub(pos[t.head], pos[t.pivot])
		if r3.Norm(axis) == 0 {
			continue
		}
		rot := r3.NewRotation(deg*math.Pi/180, r3.Unit(axis))
		origin := pos[t.pivot]
		for _, a := range t.moving {
			pos[a] = r3.Add(origin, rot.Rotate(r3.Sub(pos[a], origin)))
		}
	}
	return pos
}

func (s *TorsionSource) clashes(pos []r3.Vec) bool {
	limit := s.clash * s.clash
	for _, p := range s.clashPairs {
		d := r3.Sub(pos[p[0]], pos[p[1]])
		if r3.Dot(d, d) < limit {
			return true
		}
	}
	return false
}

// rotatableTorsions finds single, acyclic bonds between two atoms that each
// have another heavy neighbour.  The smaller side of the bond moves.
func rotatableTorsions(mol *molecule.Molecule) []torsion {
	var out []torsion
	for bi := 0; bi < mol.BondCount(); bi++ {
		b := mol.Bond(bi)
		if b.Order != molecule.BondSingle || mol.IsRingBond(bi) {
			continue
		}
		if mol.Atom(b.From).IsHydrogen() || mol.Atom(b.To).IsHydrogen() {
			continue
		}
		if mol.HeavyDegree(b.From) < 2 || mol.HeavyDegree(b.To) < 2 {
			continue
		}
		sideTo := side(mol, b.To, b.From)
		sideFrom := side(mol, b.From, b.To)
		t := torsion{pivot: b.From, head: b.To, moving: sideTo}
		if len(sideFrom) < len(sideTo) {
			t = torsion{pivot: b.To, head: b.From, moving: sideFrom}
		}
		out = append(out, t)
	}
	return out
}

// side returns the atoms reachable from start without passing through
// blocked, excluding start itself.
func side(mol *molecule.Molecule, start, blocked int) []int {
	seen := map[int]bool{start: true, blocked: true}
	queue := []int{start}
	var out []int
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range mol.Neighbors(cur) {
			if seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n)
			queue = append(queue, n)
		}
	}
	return out
}

// distantPairs lists atom pairs separated by at least minBonds bonds, or in
// different connected components.
func distantPairs(mol *molecule.Molecule, minBonds int) [][2]int {
	n := mol.AtomCount()
	var out [][2]int
	dist := make([]int, n)
	for i := 0; i < n; i++ {
		for k := range dist {
			dist[k] = -1
		}
		dist[i] = 0
		queue := []int{i}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, nb := range mol.Neighbors(cur) {
				if dist[nb] < 0 {
					dist[nb] = dist[cur] + 1
					queue = append(queue, nb)
				}
			}
		}
		for j := i + 1; j < n; j++ {
			if dist[j] < 0 || dist[j] >= minBonds {
				out = append(out, [2]int{i, j})
			}
		}
	}
	return out
}
