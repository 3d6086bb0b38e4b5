package flexophore

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/turtacn/flexophore/internal/domain/interaction"
	"github.com/turtacn/flexophore/internal/domain/pharmacophore"
	"github.com/turtacn/flexophore/pkg/errors"
)

const (
	// FailedString is the text encoding of FailedObject.
	FailedString = "FAILED"

	formatVersion = 1
	checksumSize  = 8
	minNodeSize   = 3
	// A 64-node descriptor is about 160 KiB raw.
	maxDecodedSize = 4 << 20
)

var magic = [2]byte{'F', 'X'}

// FailedBytes is the binary encoding of FailedObject.  Callers must not
// modify it.
var FailedBytes = []byte(FailedString)

// Codec converts descriptors to and from a compact binary form (zstd framed,
// xxhash checksummed) and a base64 text form.  It is safe for concurrent use.
type Codec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func NewCodec() (*Codec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "creating zstd encoder")
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0), zstd.WithDecoderMaxMemory(maxDecodedSize))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "creating zstd decoder")
	}
	return &Codec{enc: enc, dec: dec}, nil
}

// Encode returns nil for nil, FailedBytes for a failed descriptor and the
// binary form otherwise.
func (c *Codec) Encode(m *MolDistHist) []byte {
	if m == nil {
		return nil
	}
	if m.IsFailed() {
		return bytes.Clone(FailedBytes)
	}
	raw := marshal(m)
	raw = binary.LittleEndian.AppendUint64(raw, xxhash.Sum64(raw))
	return c.enc.EncodeAll(raw, make([]byte, 0, len(raw)/2))
}

// EncodeString is Encode in base64; "" for nil, FailedString for failures.
func (c *Codec) EncodeString(m *MolDistHist) string {
	if m == nil {
		return ""
	}
	if m.IsFailed() {
		return FailedString
	}
	return base64.StdEncoding.EncodeToString(c.Encode(m))
}

// Decode never fails: empty input yields nil, FailedBytes and any malformed
// payload yield FailedObject.
func (c *Codec) Decode(b []byte) *MolDistHist {
	if len(b) == 0 {
		return nil
	}
	m, err := c.DecodeStrict(b)
	if err != nil {
		return FailedObject
	}
	return m
}

// DecodeString is Decode for the text form.
func (c *Codec) DecodeString(s string) *MolDistHist {
	if s == "" {
		return nil
	}
	if s == FailedString {
		return FailedObject
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(b) == 0 {
		return FailedObject
	}
	return c.Decode(b)
}

// DecodeStrict is Decode with the reason for a corrupt payload.  FailedBytes
// decodes to FailedObject without error; empty input is an error.
func (c *Codec) DecodeStrict(b []byte) (m *MolDistHist, err error) {
	if len(b) == 0 {
		return nil, errors.New(errors.ErrCodeCodecCorrupt, "empty payload")
	}
	if bytes.Equal(b, FailedBytes) {
		return FailedObject, nil
	}
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, errors.Newf(errors.ErrCodeCodecCorrupt, "decoder panic: %v", r)
		}
	}()

	raw, err := c.dec.DecodeAll(b, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCodecCorrupt, "decompressing descriptor")
	}
	if len(raw) < checksumSize {
		return nil, errors.New(errors.ErrCodeCodecCorrupt, "payload shorter than its checksum")
	}
	body, sum := raw[:len(raw)-checksumSize], raw[len(raw)-checksumSize:]
	if xxhash.Sum64(body) != binary.LittleEndian.Uint64(sum) {
		return nil, errors.New(errors.ErrCodeCodecCorrupt, "checksum mismatch")
	}
	return unmarshal(body)
}

// marshal writes: magic, format version, table version, node count, per node
// (class count, classes, atom index), then every histogram in pair order.
func marshal(m *MolDistHist) []byte {
	n := len(m.nodes)
	buf := make([]byte, 0, 16+n*8+len(m.hists)*BinsHistogram+checksumSize)
	buf = append(buf, magic[:]...)
	buf = append(buf, formatVersion)
	buf = binary.AppendUvarint(buf, uint64(m.tableVersion))
	buf = binary.AppendUvarint(buf, uint64(n))
	for _, node := range m.nodes {
		buf = binary.AppendUvarint(buf, uint64(len(node.Types)))
		for _, t := range node.Types {
			buf = binary.AppendUvarint(buf, uint64(t))
		}
		buf = binary.AppendVarint(buf, int64(node.AtomIndex))
	}
	for _, h := range m.hists {
		buf = append(buf, h...)
	}
	return buf
}

type reader struct {
	b   []byte
	off int
}

func (r *reader) uvarint(what string) (uint64, error) {
	v, n := binary.Uvarint(r.b[r.off:])
	if n <= 0 {
		return 0, fmt.Errorf("bad %s at offset %d", what, r.off)
	}
	r.off += n
	return v, nil
}

func (r *reader) varint(what string) (int64, error) {
	v, n := binary.Varint(r.b[r.off:])
	if n <= 0 {
		return 0, fmt.Errorf("bad %s at offset %d", what, r.off)
	}
	r.off += n
	return v, nil
}

func (r *reader) next(k int) ([]byte, error) {
	if k < 0 || r.off+k > len(r.b) {
		return nil, fmt.Errorf("need %d bytes at offset %d, have %d", k, r.off, len(r.b)-r.off)
	}
	out := r.b[r.off : r.off+k]
	r.off += k
	return out, nil
}

func unmarshal(body []byte) (*MolDistHist, error) {
	corrupt := func(err error) (*MolDistHist, error) {
		return nil, errors.Wrap(err, errors.ErrCodeCodecCorrupt, "malformed descriptor")
	}
	r := &reader{b: body}
	head, err := r.next(3)
	if err != nil {
		return corrupt(err)
	}
	if head[0] != magic[0] || head[1] != magic[1] {
		return corrupt(fmt.Errorf("bad magic %q", head[:2]))
	}
	if head[2] != formatVersion {
		return corrupt(fmt.Errorf("unsupported format version %d", head[2]))
	}
	tableVersion, err := r.uvarint("table version")
	if err != nil {
		return corrupt(err)
	}
	n, err := r.uvarint("node count")
	if err != nil {
		return corrupt(err)
	}
	// A node takes at least three bytes: class count, one class, atom index.
	if n == 0 || n > uint64(len(body)-r.off)/minNodeSize {
		return corrupt(fmt.Errorf("implausible node count %d", n))
	}

	nodes := make([]pharmacophore.Node, n)
	for i := range nodes {
		k, err := r.uvarint("class count")
		if err != nil {
			return corrupt(err)
		}
		if k == 0 || k > uint64(interaction.NumClasses) {
			return corrupt(fmt.Errorf("node %d has %d classes", i, k))
		}
		types := make([]interaction.ClassID, k)
		for t := range types {
			v, err := r.uvarint("class")
			if err != nil {
				return corrupt(err)
			}
			if !interaction.ClassID(v).Valid() {
				return corrupt(fmt.Errorf("node %d has unknown class %d", i, v))
			}
			types[t] = interaction.ClassID(v)
		}
		atom, err := r.varint("atom index")
		if err != nil {
			return corrupt(err)
		}
		nodes[i] = pharmacophore.Node{Types: types, AtomIndex: int(atom)}
	}

	if rest, want := uint64(len(body)-r.off), uint64(NumPairs(int(n)))*BinsHistogram; rest != want {
		return corrupt(fmt.Errorf("%d histogram bytes for %d nodes, want %d", rest, n, want))
	}
	hists := make([][]byte, NumPairs(int(n)))
	for p := range hists {
		if hists[p], err = r.next(BinsHistogram); err != nil {
			return corrupt(err)
		}
	}
	if r.off != len(body) {
		return corrupt(fmt.Errorf("%d trailing bytes", len(body)-r.off))
	}

	m, err := NewMolDistHist(nodes, hists, int(tableVersion))
	if err != nil {
		return corrupt(err)
	}
	return m, nil
}
