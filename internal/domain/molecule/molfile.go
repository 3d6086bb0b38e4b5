package molecule

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/flexophore/pkg/errors"
)

// chargeCodes maps the V2000 atom block charge field to a formal charge.
var chargeCodes = map[int]int{1: 3, 2: 2, 3: 1, 5: -1, 6: -2, 7: -3}

// ParseMolfile parses a single V2000 molfile record.  Charges are read from the
// atom block and overridden by any "M  CHG" lines.  Deuterium and tritium
// labels are normalised to H.
func ParseMolfile(text string) (*Molecule, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(lines) < 4 {
		return nil, errors.New(errors.ErrCodeMolfileParse, "molfile is shorter than its header")
	}
	name := strings.TrimSpace(lines[0])

	counts := lines[3]
	if strings.Contains(counts, "V3000") {
		return nil, errors.New(errors.ErrCodeMolfileParse, "V3000 molfiles are not supported")
	}
	if len(counts) < 6 {
		return nil, errors.New(errors.ErrCodeMolfileParse, "counts line is truncated")
	}
	nAtoms, err := fixedInt(counts, 0, 3)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMolfileParse, "bad atom count")
	}
	nBonds, err := fixedInt(counts, 3, 6)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMolfileParse, "bad bond count")
	}
	if len(lines) < 4+nAtoms+nBonds {
		return nil, errors.Newf(errors.ErrCodeMolfileParse, "expected %d atom and %d bond lines", nAtoms, nBonds)
	}

	atoms := make([]Atom, nAtoms)
	for i := 0; i < nAtoms; i++ {
		line := lines[4+i]
		if len(line) < 34 {
			return nil, errors.Newf(errors.ErrCodeMolfileParse, "atom line %d is truncated", i+1)
		}
		var xyz [3]float64
		for k := range xyz {
			v, err := strconv.ParseFloat(strings.TrimSpace(line[k*10:k*10+10]), 64)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeMolfileParse, "bad coordinate").WithDetailf("atom %d", i+1)
			}
			xyz[k] = v
		}
		elem := strings.TrimSpace(line[31:34])
		if elem == "D" || elem == "T" {
			elem = "H"
		}
		charge := 0
		if code, err := fixedInt(line, 36, 39); err == nil {
			charge = chargeCodes[code]
		}
		atoms[i] = Atom{
			Element:  elem,
			Charge:   charge,
			Position: r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]},
		}
	}

	bonds := make([]Bond, nBonds)
	for i := 0; i < nBonds; i++ {
		line := lines[4+nAtoms+i]
		from, err1 := fixedInt(line, 0, 3)
		to, err2 := fixedInt(line, 3, 6)
		order, err3 := fixedInt(line, 6, 9)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, errors.Newf(errors.ErrCodeMolfileParse, "bond line %d is malformed", i+1)
		}
		bonds[i] = Bond{From: from - 1, To: to - 1, Order: BondOrder(order)}
	}

	for _, line := range lines[4+nAtoms+nBonds:] {
		if strings.HasPrefix(line, "M  END") {
			break
		}
		if !strings.HasPrefix(line, "M  CHG") {
			continue
		}
		f := strings.Fields(line)
		if len(f) < 3 {
			continue
		}
		n, _ := strconv.Atoi(f[2])
		for k := 0; k < n && 4+2*k < len(f); k++ {
			idx, err1 := strconv.Atoi(f[3+2*k])
			chg, err2 := strconv.Atoi(f[4+2*k])
			if err1 != nil || err2 != nil || idx < 1 || idx > nAtoms {
				return nil, errors.New(errors.ErrCodeMolfileParse, "malformed M  CHG line")
			}
			atoms[idx-1].Charge = chg
		}
	}

	return New(name, atoms, bonds)
}

// fixedInt parses the columns [from, to) of line, tolerating short lines.
func fixedInt(line string, from, to int) (int, error) {
	if from >= len(line) {
		return 0, strconv.ErrSyntax
	}
	if to > len(line) {
		to = len(line)
	}
	return strconv.Atoi(strings.TrimSpace(line[from:to]))
}

// SDFReader iterates the records of an SD file.
type SDFReader struct {
	sc    *bufio.Scanner
	index int
	done  bool
}

// NewSDFReader wraps r.  Records larger than 16 MiB are rejected.
func NewSDFReader(r io.Reader) *SDFReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16<<20)
	return &SDFReader{sc: sc}
}

// Next returns the next molecule, or io.EOF after the last record.  Data items
// ("> <TAG>") are stored in Molecule.Properties.  A parse error is returned
// for the offending record only; the reader stays positioned on the next one.
// A read error is returned once and ends the stream.
func (r *SDFReader) Next() (*Molecule, error) {
	if r.done {
		return nil, io.EOF
	}
	var block []string
	props := map[string]string{}
	inData := false
	tag := ""
	content := false

	for r.sc.Scan() {
		line := r.sc.Text()
		if strings.HasPrefix(line, "$$$$") {
			if content {
				break
			}
			continue
		}
		if strings.TrimSpace(line) != "" {
			content = true
		}
		if !inData {
			block = append(block, line)
			if strings.HasPrefix(line, "M  END") {
				inData = true
			}
			continue
		}
		switch {
		case strings.HasPrefix(line, ">"):
			if open := strings.Index(line, "<"); open >= 0 {
				if end := strings.Index(line[open:], ">"); end > 0 {
					tag = line[open+1 : open+end]
				}
			}
		case strings.TrimSpace(line) == "":
			tag = ""
		case tag != "":
			if prev, ok := props[tag]; ok {
				props[tag] = prev + "\n" + line
			} else {
				props[tag] = line
			}
		}
	}
	if err := r.sc.Err(); err != nil {
		r.done = true
		return nil, errors.Wrap(err, errors.ErrCodeMolfileParse, "reading SD file")
	}
	if !content {
		r.done = true
		return nil, io.EOF
	}

	r.index++
	mol, err := ParseMolfile(strings.Join(block, "\n"))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "SD record").WithDetailf("record %d", r.index)
	}
	if len(props) > 0 {
		mol.Properties = props
	}
	return mol, nil
}
