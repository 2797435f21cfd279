package axilite

import (
	"testing"

	"github.com/tinyrange/iommureg/internal/regbank"
	"github.com/tinyrange/iommureg/internal/regbus"
	"github.com/tinyrange/iommureg/internal/regmap"
)

func newBridge(t *testing.T) (*Bridge, *regbank.Bank) {
	t.Helper()
	m, err := regmap.IOMMU(regmap.DefaultProfile())
	if err != nil {
		t.Fatalf("build map: %v", err)
	}
	bank := regbank.New(m)
	return New(regbus.NewAdapter(m, bank)), bank
}

func TestHandshakeOrderIndependent(t *testing.T) {
	br, _ := newBridge(t)

	// Address beat first.
	br.PushWriteAddress(WriteAddress{Addr: regmap.OffFctl})
	if _, ok := br.PopWriteResponse(); ok {
		t.Fatalf("write dispatched before the data beat")
	}
	br.PushWriteData(WriteData{Data: 0b111, Strb: 0x1})
	rsp, ok := br.PopWriteResponse()
	if !ok || rsp.Resp != RespOkay {
		t.Fatalf("write response: %+v, %v", rsp, ok)
	}

	// Data beat first.
	br.PushWriteData(WriteData{Data: 0b111, Strb: 0x1})
	if _, ok := br.PopWriteResponse(); ok {
		t.Fatalf("write dispatched before the address beat")
	}
	br.PushWriteAddress(WriteAddress{Addr: regmap.OffFctl})
	if rsp, ok := br.PopWriteResponse(); !ok || rsp.Resp != RespOkay {
		t.Fatalf("write response: %+v, %v", rsp, ok)
	}

	if rd := br.ReadWord(regmap.OffFctl); rd.Data != 0b101 {
		t.Fatalf("fctl: got 0b%b want 0b101", rd.Data)
	}
}

func TestResponseConsumedOnce(t *testing.T) {
	br, _ := newBridge(t)

	br.WriteWord(regmap.OffFctl, 0, 0x1)
	if _, ok := br.PopWriteResponse(); ok {
		t.Fatalf("stale write response available twice")
	}
	br.ReadWord(regmap.OffCaps)
	if _, ok := br.PopReadData(); ok {
		t.Fatalf("stale read data available twice")
	}
}

func TestQwordScenarios(t *testing.T) {
	br, _ := newBridge(t)

	// fctl: WSI clamped, BE/GXL kept.
	if err := br.WriteQword(regmap.OffFctl, 0b111); err != nil {
		t.Fatalf("fctl write: %v", err)
	}
	if got, err := br.ReadQword(regmap.OffFctl); err != nil || got != 0b101 {
		t.Fatalf("fctl: got 0b%b, %v", got, err)
	}

	// ddtp: RO busy bit and illegal mode dropped, PPN kept.
	const ppn = uint64(4561384684)
	if err := br.WriteQword(regmap.OffDdtp, ppn<<10|0b10110); err != nil {
		t.Fatalf("ddtp write: %v", err)
	}
	if got, err := br.ReadQword(regmap.OffDdtp); err != nil || got != ppn<<10 {
		t.Fatalf("ddtp: got 0x%016x, %v", got, err)
	}

	// csr: RW1C status bits stay clear, enables stick in both halves.
	if err := br.WriteQword(regmap.OffCsr, ^uint64(0)); err != nil {
		t.Fatalf("csr write: %v", err)
	}
	if got, err := br.ReadQword(regmap.OffCsr); err != nil || got != 0b11|0b11<<32 {
		t.Fatalf("csr: got 0x%016x, %v", got, err)
	}
}

func TestSubwordAccess(t *testing.T) {
	br, _ := newBridge(t)

	// The architectural 32-bit registers keep their byte addresses: cqt
	// lives at 0x24, the high half of the word at 0x20.
	br.WriteWord(regmap.OffCqb, 4, 0x0f)
	if rsp := br.WriteWord(regmap.OffCq+4, 0x3ff, 0x0f); rsp.Resp != RespOkay {
		t.Fatalf("cqt write: %+v", rsp)
	}
	if rd := br.ReadWord(regmap.OffCq + 4); rd.Data != 0x1f {
		t.Fatalf("cqt: got 0x%x want 0x1f", rd.Data)
	}
	if rd := br.ReadWord(regmap.OffCq); rd.Data != 0 {
		t.Fatalf("cqh moved: got 0x%x", rd.Data)
	}

	// cqcsr via its own 32-bit window at 0x48.
	br.WriteWord(regmap.OffCsr, 0xffffffff, 0x0f)
	if rd := br.ReadWord(regmap.OffCsr); rd.Data != 0b11 {
		t.Fatalf("cqcsr: got 0x%x want 0b11", rd.Data)
	}
	if rd := br.ReadWord(regmap.OffCsr + 4); rd.Data != 0 {
		t.Fatalf("fqcsr touched by cqcsr beat: got 0x%x", rd.Data)
	}
}

func TestNativeEquivalence(t *testing.T) {
	// One native 64-bit full-strobe write and two sequential 32-bit
	// beats covering the same bytes must settle every register to the
	// same value.
	patterns := map[uint16]uint64{
		regmap.OffFctl:    0b111,
		regmap.OffDdtp:    4561384684<<10 | 0b10110,
		regmap.OffCqb:     0x7<<10 | 4,
		regmap.OffCq:      ^uint64(0),
		regmap.OffCsr:     ^uint64(0),
		regmap.OffIcvec:   0xffff,
		regmap.OffMSIBase: ^uint64(0),
	}

	brA, bankA := newBridge(t)
	_, bankB := newBridge(t)
	m, err := regmap.IOMMU(regmap.DefaultProfile())
	if err != nil {
		t.Fatalf("build map: %v", err)
	}
	native := regbus.NewAdapter(m, bankB)

	for _, addr := range []uint16{regmap.OffFctl, regmap.OffDdtp, regmap.OffCqb, regmap.OffCq, regmap.OffCsr, regmap.OffIcvec, regmap.OffMSIBase} {
		data := patterns[addr]
		if err := brA.WriteQword(addr, data); err != nil {
			t.Fatalf("axi write 0x%x: %v", addr, err)
		}
		if rsp := native.Write(addr, data, 0xff); rsp.Error {
			t.Fatalf("native write 0x%x errored", addr)
		}

		index, _ := m.Lookup(uint64(addr))
		a, _ := bankA.Read(index)
		b, _ := bankB.Read(index)
		if a != b {
			t.Fatalf("0x%x: axi 0x%016x != native 0x%016x", addr, a, b)
		}
	}
}

func TestErrorResponses(t *testing.T) {
	br, _ := newBridge(t)

	if rsp := br.WriteWord(0x40, 1, 0xf); rsp.Resp != RespSlvErr {
		t.Fatalf("unmapped write: got resp %d", rsp.Resp)
	}
	if rd := br.ReadWord(0x40); rd.Resp != RespSlvErr {
		t.Fatalf("unmapped read: got resp %d", rd.Resp)
	}
	if rsp := br.WriteWord(regmap.OffFctl+2, 1, 0xf); rsp.Resp != RespSlvErr {
		t.Fatalf("unaligned write: got resp %d", rsp.Resp)
	}
	if err := br.WriteQword(regmap.OffFctl+4, 1); err == nil {
		t.Fatalf("misaligned qword write accepted")
	}
	if _, err := br.ReadQword(0x40); err == nil {
		t.Fatalf("unmapped qword read accepted")
	}
}
