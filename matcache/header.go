package matcache

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/linksim/linksim/fec"
)

// Header precedes the compressed matrix table in the cache file.
// Layout (little-endian):
//
//	MAGIC    4B   "LSMC"
//	VERSION  u16  0x0001
//	SCHEME   u8   fec.Scheme
//	RESERVED u8   zero
//	N        u32  codeword length
//	DV       u16  variable-node degree
//	DC       u16  check-node degree
//	SEED     i64  construction seed
//	BODYLEN  u64  compressed body length
//	SHA256   32B  digest of the compressed body
const (
	headerMagic   = "LSMC"
	headerVersion = 1
	HeaderLen     = 4 + 2 + 1 + 1 + 4 + 2 + 2 + 8 + 8 + 32
)

type Header struct {
	Version uint16
	Scheme  fec.Scheme
	N       uint32
	Dv      uint16
	Dc      uint16
	Seed    int64
	BodyLen uint64
	SHA256  [32]byte
}

// headerFits reports whether p can be recorded without narrowing.
func headerFits(p fec.Params) error {
	switch {
	case p.N < 0 || int64(p.N) > math.MaxUint32:
		return fmt.Errorf("n=%d does not fit the cache header", p.N)
	case p.Dv < 0 || p.Dv > math.MaxUint16, p.Dc < 0 || p.Dc > math.MaxUint16:
		return fmt.Errorf("dv=%d, dc=%d do not fit the cache header", p.Dv, p.Dc)
	}
	return nil
}

func newHeader(p fec.Params, body []byte) Header {
	return Header{
		Version: headerVersion,
		Scheme:  p.Scheme,
		N:       uint32(p.N),
		Dv:      uint16(p.Dv),
		Dc:      uint16(p.Dc),
		Seed:    p.Seed,
		BodyLen: uint64(len(body)),
		SHA256:  sha256.Sum256(body),
	}
}

// Params returns the code parameters recorded in the header.
func (h *Header) Params() fec.Params {
	return fec.Params{Scheme: h.Scheme, N: int(h.N), Dv: int(h.Dv), Dc: int(h.Dc), Seed: h.Seed}
}

func (h *Header) MarshalBinary() []byte {
	b := make([]byte, HeaderLen)
	copy(b[0:4], headerMagic)
	binary.LittleEndian.PutUint16(b[4:6], h.Version)
	b[6] = byte(h.Scheme)
	// b[7] reserved
	binary.LittleEndian.PutUint32(b[8:12], h.N)
	binary.LittleEndian.PutUint16(b[12:14], h.Dv)
	binary.LittleEndian.PutUint16(b[14:16], h.Dc)
	binary.LittleEndian.PutUint64(b[16:24], uint64(h.Seed))
	binary.LittleEndian.PutUint64(b[24:32], h.BodyLen)
	copy(b[32:64], h.SHA256[:])
	return b
}

func (h *Header) UnmarshalBinary(b []byte) error {
	if len(b) < HeaderLen {
		return errors.New("short header")
	}
	if string(b[0:4]) != headerMagic {
		return errors.New("bad magic")
	}
	h.Version = binary.LittleEndian.Uint16(b[4:6])
	if h.Version != headerVersion {
		return errors.New("unsupported version")
	}
	h.Scheme = fec.Scheme(b[6])
	h.N = binary.LittleEndian.Uint32(b[8:12])
	h.Dv = binary.LittleEndian.Uint16(b[12:14])
	h.Dc = binary.LittleEndian.Uint16(b[14:16])
	h.Seed = int64(binary.LittleEndian.Uint64(b[16:24]))
	h.BodyLen = binary.LittleEndian.Uint64(b[24:32])
	copy(h.SHA256[:], b[32:64])
	return nil
}

// verify checks the body against the header.
func (h *Header) verify(body []byte) error {
	if uint64(len(body)) != h.BodyLen {
		return errors.New("body length mismatch")
	}
	if sha256.Sum256(body) != h.SHA256 {
		return errors.New("body digest mismatch")
	}
	return nil
}
