package regbus

import (
	"testing"

	"github.com/tinyrange/iommureg/internal/regbank"
	"github.com/tinyrange/iommureg/internal/regmap"
)

const capsReset = 0x0000078000420210

func newAdapter(t *testing.T) *Adapter {
	t.Helper()
	m, err := regmap.IOMMU(regmap.DefaultProfile())
	if err != nil {
		t.Fatalf("build map: %v", err)
	}
	return NewAdapter(m, regbank.New(m))
}

func snapshot(t *testing.T, a *Adapter) []uint64 {
	t.Helper()
	words := make([]uint64, 0, a.rmap.Len())
	for index := 0; index < a.rmap.Len(); index++ {
		v, err := a.bank.Read(index)
		if err != nil {
			t.Fatalf("read %d: %v", index, err)
		}
		words = append(words, v)
	}
	return words
}

func TestAdapterRead(t *testing.T) {
	a := newAdapter(t)

	rsp := a.Read(regmap.OffCaps)
	if !rsp.Ready || rsp.Error {
		t.Fatalf("caps read: %+v", rsp)
	}
	if rsp.RData != capsReset {
		t.Fatalf("caps: got 0x%016x want 0x%016x", rsp.RData, capsReset)
	}
}

func TestAdapterWriteReadBack(t *testing.T) {
	a := newAdapter(t)

	if rsp := a.Write(regmap.OffFctl, 0b111, 0x01); !rsp.Ready || rsp.Error {
		t.Fatalf("fctl write: %+v", rsp)
	}
	if rsp := a.Read(regmap.OffFctl); rsp.RData != 0b101 {
		t.Fatalf("fctl: got 0b%b want 0b101", rsp.RData)
	}
}

func TestAdapterRejectsBadAddresses(t *testing.T) {
	a := newAdapter(t)
	before := snapshot(t, a)

	for _, tc := range []struct {
		name string
		addr uint16
	}{
		{"misaligned", 0x4},
		{"unmapped gap", 0x40},
		{"beyond the table", 0x3fff},
		{"misaligned subword", 0x24},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rsp := a.Apply(Request{Addr: tc.addr, Write: true, WData: ^uint64(0), WStrb: 0xff, Valid: true})
			if !rsp.Ready || !rsp.Error {
				t.Fatalf("write 0x%x: %+v", tc.addr, rsp)
			}
		})
	}

	after := snapshot(t, a)
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("register %d changed by rejected write: 0x%016x -> 0x%016x", i, before[i], after[i])
		}
	}
}

func TestAdapterInvalidRequestClearsResponse(t *testing.T) {
	a := newAdapter(t)

	a.Read(regmap.OffCaps)
	if rsp := a.Last(); !rsp.Ready {
		t.Fatalf("latched response missing: %+v", rsp)
	}

	rsp := a.Apply(Request{})
	if rsp.Ready || rsp.Error || rsp.RData != 0 {
		t.Fatalf("idle response not cleared: %+v", rsp)
	}
	if rsp := a.Last(); rsp.Ready {
		t.Fatalf("latched response not cleared: %+v", rsp)
	}
}

func TestAdapterWireImageRoundTrip(t *testing.T) {
	a := newAdapter(t)

	// Drive the adapter through the packed wire image, the way the
	// hardware interface is driven.
	img := Request{Addr: regmap.OffDdtp, Write: true, WData: 0x123 << 10, WStrb: 0x7f, Valid: true}.Pack()
	if rsp := a.Apply(UnpackRequest(img)); rsp.Error {
		t.Fatalf("ddtp write errored")
	}

	rspImg := a.Read(regmap.OffDdtp).Pack()
	rsp := UnpackResponse(rspImg)
	if !rsp.Ready || rsp.Error || rsp.RData != 0x123<<10 {
		t.Fatalf("ddtp read: %+v", rsp)
	}
}
