package interaction

import (
	"bytes"
	_ "embed"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/turtacn/flexophore/pkg/errors"
)

// VersionInteractionTables is the version of the embedded default table.
const VersionInteractionTables = 1

//go:embed tables/default.yaml
var defaultTableYAML []byte

// DistanceTable holds symmetric class distances in [0, 1].  It is immutable
// after loading and safe for concurrent reads.
type DistanceTable struct {
	version int
	d       [][]float64
}

type tableFile struct {
	Version   int         `yaml:"version"`
	Distances []tablePair `yaml:"distances"`
}

type tablePair struct {
	A string  `yaml:"a"`
	B string  `yaml:"b"`
	D float64 `yaml:"d"`
}

// LoadTable parses a YAML distance table.
func LoadTable(r io.Reader) (*DistanceTable, error) {
	var f tableFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInteractionTable, "decoding interaction table")
	}
	if f.Version <= 0 {
		return nil, errors.Newf(errors.ErrCodeInteractionTable, "table version must be positive, got %d", f.Version)
	}

	t := &DistanceTable{version: f.Version, d: make([][]float64, NumClasses)}
	for i := range t.d {
		t.d[i] = make([]float64, NumClasses)
		for j := range t.d[i] {
			if i != j {
				t.d[i][j] = 1
			}
		}
	}
	for k, p := range f.Distances {
		a, okA := ParseClass(p.A)
		b, okB := ParseClass(p.B)
		if !okA || !okB {
			return nil, errors.Newf(errors.ErrCodeInteractionTable, "entry %d: unknown class %q or %q", k, p.A, p.B)
		}
		if p.D < 0 || p.D > 1 {
			return nil, errors.Newf(errors.ErrCodeInteractionTable, "entry %d: distance %.3f outside [0, 1]", k, p.D)
		}
		if a == b && p.D != 0 {
			return nil, errors.Newf(errors.ErrCodeInteractionTable, "entry %d: self distance of %s must be 0", k, a)
		}
		t.d[a][b] = p.D
		t.d[b][a] = p.D
	}
	return t, nil
}

// LoadTableFile reads a table from path.
func LoadTableFile(path string) (*DistanceTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInteractionTable, "reading interaction table").WithDetail(path)
	}
	return LoadTable(bytes.NewReader(raw))
}

var defaultTable = sync.OnceValue(func() *DistanceTable {
	t, err := LoadTable(bytes.NewReader(defaultTableYAML))
	if err != nil {
		panic(err)
	}
	return t
})

// DefaultTable returns the embedded table.  The same instance is returned on
// every call.
func DefaultTable() *DistanceTable { return defaultTable() }

// Version identifies the table contents.
func (t *DistanceTable) Version() int { return t.version }

// Distance returns the distance between two classes; unknown classes are at
// distance 1 from everything.
func (t *DistanceTable) Distance(a, b ClassID) float64 {
	if !a.Valid() || !b.Valid() {
		return 1
	}
	return t.d[a][b]
}

// Similarity is 1 - Distance.
func (t *DistanceTable) Similarity(a, b ClassID) float64 { return 1 - t.Distance(a, b) }
