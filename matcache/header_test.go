package matcache

import (
	"testing"

	"github.com/linksim/linksim/fec"
)

func TestHeaderRoundtrip(t *testing.T) {
	p := fec.Params{Scheme: fec.SchemePolar, N: 8192, Dv: 3, Dc: 4, Seed: -5}
	body := []byte("payload")
	h := newHeader(p, body)
	b := h.MarshalBinary()
	if len(b) != HeaderLen {
		t.Fatalf("len=%d", len(b))
	}
	var h2 Header
	if err := h2.UnmarshalBinary(b); err != nil {
		t.Fatal(err)
	}
	if h2 != h {
		t.Fatalf("mismatch: %+v vs %+v", h2, h)
	}
	if h2.Params() != p {
		t.Fatalf("params: %+v vs %+v", h2.Params(), p)
	}
	if err := h2.verify(body); err != nil {
		t.Fatal(err)
	}
	if err := h2.verify([]byte("payloaD")); err == nil {
		t.Fatal("expected digest mismatch")
	}
}

func TestHeaderRejects(t *testing.T) {
	h := newHeader(fec.Params{Scheme: fec.SchemeLDPC, N: 96, Dv: 3, Dc: 4}, nil)
	b := h.MarshalBinary()

	var out Header
	if err := out.UnmarshalBinary(b[:HeaderLen-1]); err == nil {
		t.Fatal("short header accepted")
	}
	bad := append([]byte(nil), b...)
	bad[0] = 'X'
	if err := out.UnmarshalBinary(bad); err == nil {
		t.Fatal("bad magic accepted")
	}
	bad = append([]byte(nil), b...)
	bad[4] = 2
	if err := out.UnmarshalBinary(bad); err == nil {
		t.Fatal("future version accepted")
	}
}

func TestHeaderFits(t *testing.T) {
	if err := headerFits(fec.Params{N: 4480, Dv: 3, Dc: 4}); err != nil {
		t.Fatal(err)
	}
	if err := headerFits(fec.Params{N: 96, Dv: 1 << 16, Dc: 4}); err == nil {
		t.Fatal("dv overflow accepted")
	}
	if err := headerFits(fec.Params{N: 96, Dv: 3, Dc: -1}); err == nil {
		t.Fatal("negative dc accepted")
	}
}
