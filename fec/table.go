package fec

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
)

// TableVersion is bumped whenever the serialized layout changes.
const TableVersion = 1

// MatrixRecord is one GF(2) matrix with its rows as hex little-endian words.
type MatrixRecord struct {
	Rows        int      `json:"rows"`
	Cols        int      `json:"cols"`
	WordsPerRow int      `json:"wordsPerRow"`
	RowsHex     []string `json:"rowsHex"`
	CRC32       uint32   `json:"crc32"`
	SHA256      string   `json:"sha256"`
}

// Table is the offline form of a constructed code.
type Table struct {
	Version int          `json:"version"`
	Scheme  string       `json:"scheme"`
	N       int          `json:"n"`
	Dv      int          `json:"dv"`
	Dc      int          `json:"dc"`
	Seed    int64        `json:"seed"`
	K       int          `json:"k"`
	InfoSet []int        `json:"infoSet"`
	H       MatrixRecord `json:"H"`
	G       MatrixRecord `json:"G"`
}

// NewTable snapshots m.
func NewTable(m *Matrices) *Table {
	return &Table{
		Version: TableVersion,
		Scheme:  m.Params.Scheme.String(),
		N:       m.Params.N,
		Dv:      m.Params.Dv,
		Dc:      m.Params.Dc,
		Seed:    m.Params.Seed,
		K:       m.K(),
		InfoSet: append([]int(nil), m.InfoSet...),
		H:       recordOf(m.H),
		G:       recordOf(m.G),
	}
}

func recordOf(b *BitMatrix) MatrixRecord {
	rowsHex, crc, sha := serializeRows(b)
	return MatrixRecord{
		Rows: b.Rows(), Cols: b.Cols(), WordsPerRow: b.WordsPerRow(),
		RowsHex: rowsHex, CRC32: crc, SHA256: sha,
	}
}

func serializeRows(b *BitMatrix) (rowsHex []string, crc uint32, sha string) {
	h := crc32.NewIEEE()
	sh := sha256.New()
	buf := make([]byte, b.WordsPerRow()*8)
	rowsHex = make([]string, b.Rows())
	for i := range rowsHex {
		for w, v := range b.Row(i) {
			binary.LittleEndian.PutUint64(buf[w*8:], v)
		}
		h.Write(buf)
		sh.Write(buf)
		rowsHex[i] = hex.EncodeToString(buf)
	}
	return rowsHex, h.Sum32(), hex.EncodeToString(sh.Sum(nil))
}

func (r *MatrixRecord) matrix() (*BitMatrix, error) {
	if r.Rows < 0 || r.Cols <= 0 || r.WordsPerRow != (r.Cols+63)/64 {
		return nil, fmt.Errorf("fec: bad matrix shape %dx%d (%d words)", r.Rows, r.Cols, r.WordsPerRow)
	}
	if len(r.RowsHex) != r.Rows {
		return nil, fmt.Errorf("fec: %d rows listed, header says %d", len(r.RowsHex), r.Rows)
	}
	b := NewBitMatrix(r.Rows, r.Cols)
	for i, hx := range r.RowsHex {
		raw, err := hex.DecodeString(hx)
		if err != nil {
			return nil, fmt.Errorf("decode hex row %d: %w", i, err)
		}
		if len(raw) != r.WordsPerRow*8 {
			return nil, fmt.Errorf("row %d: expected %d bytes, got %d", i, r.WordsPerRow*8, len(raw))
		}
		row := b.Row(i)
		for w := range row {
			row[w] = binary.LittleEndian.Uint64(raw[w*8:])
		}
	}
	if _, crc, sha := serializeRows(b); crc != r.CRC32 || sha != r.SHA256 {
		return nil, errors.New("fec: matrix checksum mismatch")
	}
	return b, nil
}

// Matrices rebuilds and validates the code held by t.
func (t *Table) Matrices() (*Matrices, error) {
	if t.Version != TableVersion {
		return nil, fmt.Errorf("fec: unsupported table version %d", t.Version)
	}
	s, err := ParseScheme(t.Scheme)
	if err != nil {
		return nil, err
	}
	H, err := t.H.matrix()
	if err != nil {
		return nil, fmt.Errorf("H: %w", err)
	}
	G, err := t.G.matrix()
	if err != nil {
		return nil, fmt.Errorf("G: %w", err)
	}
	m := &Matrices{
		Params:  Params{Scheme: s, N: t.N, Dv: t.Dv, Dc: t.Dc, Seed: t.Seed},
		H:       H,
		G:       G,
		InfoSet: append([]int(nil), t.InfoSet...),
	}
	if t.K != m.K() {
		return nil, fmt.Errorf("fec: K=%d but %d info positions", t.K, m.K())
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// MarshalTable encodes m as JSON.
func MarshalTable(m *Matrices) ([]byte, error) {
	return json.Marshal(NewTable(m))
}

// UnmarshalTable decodes and validates a JSON table.
func UnmarshalTable(b []byte) (*Matrices, error) {
	var t Table
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, err
	}
	return t.Matrices()
}
