// Package axilite bridges single-beat 32-bit AXI4-Lite transfers onto the
// native register interface. A 64-bit register access is two beats, low
// word at the register offset and high word at offset+4; each beat flows
// through the register bank's write path individually so field semantics
// match the native interface bit for bit.
package axilite

import (
	"fmt"

	"github.com/tinyrange/iommureg/internal/regbus"
)

// AXI4-Lite response codes carried in BRESP/RRESP.
const (
	RespOkay   uint8 = 0b00
	RespSlvErr uint8 = 0b10
)

// WriteAddress is one AW-channel beat.
type WriteAddress struct {
	Addr uint16
	Prot uint8
}

// WriteData is one W-channel beat.
type WriteData struct {
	Data uint32
	Strb uint8 // 4 bits, one per byte lane of the beat
}

// WriteResponse is one B-channel beat.
type WriteResponse struct {
	Resp uint8
}

// ReadAddress is one AR-channel beat.
type ReadAddress struct {
	Addr uint16
	Prot uint8
}

// ReadData is one R-channel beat.
type ReadData struct {
	Data uint32
	Resp uint8
}

// Bridge translates AXI4-Lite beats into native register requests. The
// write channels are independent: a write dispatches once both the
// address and data beats have arrived. Underlying adapter calls are
// serialized in beat order.
type Bridge struct {
	adapter *regbus.Adapter

	aw *WriteAddress
	w  *WriteData
	b  *WriteResponse
	r  *ReadData
}

// New builds a bridge over the given native adapter.
func New(adapter *regbus.Adapter) *Bridge {
	return &Bridge{adapter: adapter}
}

// PushWriteAddress presents one AW beat.
func (br *Bridge) PushWriteAddress(aw WriteAddress) {
	br.aw = &aw
	br.tryWrite()
}

// PushWriteData presents one W beat.
func (br *Bridge) PushWriteData(w WriteData) {
	br.w = &w
	br.tryWrite()
}

// PopWriteResponse consumes the B beat for the most recent write.
func (br *Bridge) PopWriteResponse() (WriteResponse, bool) {
	if br.b == nil {
		return WriteResponse{}, false
	}
	rsp := *br.b
	br.b = nil
	return rsp, true
}

// PushReadAddress presents one AR beat. The R beat is available
// immediately afterwards.
func (br *Bridge) PushReadAddress(ar ReadAddress) {
	rd := br.readBeat(ar.Addr)
	br.r = &rd
}

// PopReadData consumes the R beat for the most recent read.
func (br *Bridge) PopReadData() (ReadData, bool) {
	if br.r == nil {
		return ReadData{}, false
	}
	rd := *br.r
	br.r = nil
	return rd, true
}

func (br *Bridge) tryWrite() {
	if br.aw == nil || br.w == nil {
		return
	}
	aw, w := *br.aw, *br.w
	br.aw, br.w = nil, nil
	br.b = &WriteResponse{Resp: br.writeBeat(aw.Addr, w.Data, w.Strb)}
}

func (br *Bridge) writeBeat(addr uint16, data uint32, strb uint8) uint8 {
	if addr%4 != 0 {
		return RespSlvErr
	}
	shift := uint(addr%8) * 8 // 0 for the low word, 32 for the high word
	rsp := br.adapter.Apply(regbus.Request{
		Addr:  addr &^ 7,
		Write: true,
		WData: uint64(data) << shift,
		WStrb: (strb & 0x0f) << (uint(addr%8) / 4 * 4),
		Valid: true,
	})
	if rsp.Error {
		return RespSlvErr
	}
	return RespOkay
}

func (br *Bridge) readBeat(addr uint16) ReadData {
	if addr%4 != 0 {
		return ReadData{Resp: RespSlvErr}
	}
	rsp := br.adapter.Apply(regbus.Request{Addr: addr &^ 7, Valid: true})
	if rsp.Error {
		return ReadData{Resp: RespSlvErr}
	}
	return ReadData{
		Data: uint32(rsp.RData >> (uint(addr%8) * 8)),
		Resp: RespOkay,
	}
}

// WriteWord performs one complete 32-bit write transaction.
func (br *Bridge) WriteWord(addr uint16, data uint32, strb uint8) WriteResponse {
	br.PushWriteAddress(WriteAddress{Addr: addr})
	br.PushWriteData(WriteData{Data: data, Strb: strb})
	rsp, _ := br.PopWriteResponse()
	return rsp
}

// ReadWord performs one complete 32-bit read transaction.
func (br *Bridge) ReadWord(addr uint16) ReadData {
	br.PushReadAddress(ReadAddress{Addr: addr})
	rd, _ := br.PopReadData()
	return rd
}

// WriteQword writes a 64-bit register as two full-strobe beats, low word
// first. No other adapter call is issued between the two beats.
func (br *Bridge) WriteQword(addr uint16, value uint64) error {
	if addr%8 != 0 {
		return fmt.Errorf("axilite: qword address 0x%x not 8-byte aligned", addr)
	}
	if rsp := br.WriteWord(addr, uint32(value), 0x0f); rsp.Resp != RespOkay {
		return fmt.Errorf("axilite: write 0x%x: response %#02b", addr, rsp.Resp)
	}
	if rsp := br.WriteWord(addr+4, uint32(value>>32), 0x0f); rsp.Resp != RespOkay {
		return fmt.Errorf("axilite: write 0x%x: response %#02b", addr+4, rsp.Resp)
	}
	return nil
}

// ReadQword reads a 64-bit register as two beats, low word first.
func (br *Bridge) ReadQword(addr uint16) (uint64, error) {
	if addr%8 != 0 {
		return 0, fmt.Errorf("axilite: qword address 0x%x not 8-byte aligned", addr)
	}
	lo := br.ReadWord(addr)
	if lo.Resp != RespOkay {
		return 0, fmt.Errorf("axilite: read 0x%x: response %#02b", addr, lo.Resp)
	}
	hi := br.ReadWord(addr + 4)
	if hi.Resp != RespOkay {
		return 0, fmt.Errorf("axilite: read 0x%x: response %#02b", addr+4, hi.Resp)
	}
	return uint64(lo.Data) | uint64(hi.Data)<<32, nil
}
