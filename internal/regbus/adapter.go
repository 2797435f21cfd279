package regbus

import (
	"github.com/tinyrange/iommureg/internal/regbank"
	"github.com/tinyrange/iommureg/internal/regmap"
)

// Adapter decodes native register-interface requests into bank accesses.
// It is synchronous and accepts one request at a time: Apply answers the
// request before returning, so a caller can never have two outstanding.
type Adapter struct {
	rmap *regmap.Map
	bank *regbank.Bank
	rsp  Response
}

// NewAdapter builds an adapter over the given map and bank.
func NewAdapter(m *regmap.Map, b *regbank.Bank) *Adapter {
	return &Adapter{rmap: m, bank: b}
}

// Apply executes one request and returns the response, which is also
// latched for Last. A request without valid clears the response wires.
// Misaligned and unmapped addresses answer with the error bit set and
// leave all register state unchanged.
func (a *Adapter) Apply(req Request) Response {
	if !req.Valid {
		a.rsp = Response{}
		return a.rsp
	}

	rsp := Response{Ready: true}
	addr := uint64(req.Addr) & AddrMask

	index, ok := a.rmap.Lookup(addr)
	if addr%8 != 0 || !ok {
		rsp.Error = true
		a.rsp = rsp
		return rsp
	}

	if req.Write {
		if err := a.bank.Write(index, req.WData, req.WStrb); err != nil {
			rsp.Error = true
		}
	} else {
		v, err := a.bank.Read(index)
		if err != nil {
			rsp.Error = true
		} else {
			rsp.RData = v
		}
	}

	a.rsp = rsp
	return rsp
}

// Last returns the latched response to the most recent request.
func (a *Adapter) Last() Response { return a.rsp }

// Write submits a write request for the register word at addr.
func (a *Adapter) Write(addr uint16, data uint64, strobe uint8) Response {
	return a.Apply(Request{Addr: addr, Write: true, WData: data, WStrb: strobe, Valid: true})
}

// Read submits a read request for the register word at addr.
func (a *Adapter) Read(addr uint16) Response {
	return a.Apply(Request{Addr: addr, Valid: true})
}
