// Package regbank holds the live state of a register file and applies the
// per-field write policies described by its regmap. All mutation flows
// through Write, DeviceUpdate and Reset.
package regbank

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tinyrange/iommureg/internal/regmap"
)

// ErrOutOfRange reports an access to an undefined register ordinal.
var ErrOutOfRange = errors.New("regbank: register out of range")

// Bank owns the live 64-bit word per register. The bank is synchronous:
// every operation completes within its call.
type Bank struct {
	mu    sync.Mutex
	rmap  *regmap.Map
	words []uint64
}

// New builds a bank over the given map with every register at its reset
// value.
func New(m *regmap.Map) *Bank {
	b := &Bank{
		rmap:  m,
		words: make([]uint64, m.Len()),
	}
	b.resetLocked()
	return b
}

// Reset returns every register to its reset value.
func (b *Bank) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetLocked()
}

func (b *Bank) resetLocked() {
	for i := range b.words {
		b.words[i] = b.rmap.ResetValue(i)
	}
}

// Read returns the live value of the register at index.
func (b *Bank) Read(index int) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= len(b.words) {
		return 0, fmt.Errorf("%w: index %d", ErrOutOfRange, index)
	}
	return b.words[index], nil
}

// Write merges data into the register at index under the byte strobe and
// settles every touched field according to its policy. Field clamping is
// silent; a write to a defined register never fails.
func (b *Bank) Write(index int, data uint64, strobe uint8) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	reg, ok := b.rmap.At(index)
	if !ok {
		return fmt.Errorf("%w: index %d", ErrOutOfRange, index)
	}

	old := b.words[index]
	eff := strobe & reg.WriteMask

	// Byte-lane merge: strobed lanes take the written byte, the rest keep
	// the stored byte.
	merged := old
	for lane := uint(0); lane < 8; lane++ {
		if eff&(1<<lane) != 0 {
			m := uint64(0xff) << (lane * 8)
			merged = (merged &^ m) | (data & m)
		}
	}

	// Per-field policy, computed from the pre-merge word as "old" and the
	// post-merge word as "proposed". Fields whose lanes the strobe missed
	// are not written at all; without this an RW1C field would clear
	// itself whenever the other half of its word is written.
	next := old
	for _, f := range reg.Fields {
		if eff&f.ByteMask() == 0 {
			continue
		}
		oldF := f.Extract(old)
		propF := f.Extract(merged)

		var v uint64
		switch f.Policy {
		case regmap.RO:
			v = oldF
		case regmap.RW:
			v = propF
		case regmap.RW1C:
			v = oldF &^ propF
		case regmap.WARL:
			v = f.Legal(oldF, propF, b.peek)
		}
		next = f.Insert(next, v)
	}

	b.words[index] = next
	return nil
}

// DeviceUpdate pushes hardware-side state into the register at index,
// bypassing write policies: the environment may set RO and RW1C bits
// (queue heads, on/busy flags, interrupt-pending bits). Only bits under
// mask change.
func (b *Bank) DeviceUpdate(index int, value, mask uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= len(b.words) {
		return fmt.Errorf("%w: index %d", ErrOutOfRange, index)
	}
	b.words[index] = (b.words[index] &^ mask) | (value & mask)
	return nil
}

// peek serves WARL legality functions that depend on other registers.
// Callers hold b.mu already.
func (b *Bank) peek(index int) uint64 {
	if index < 0 || index >= len(b.words) {
		return 0
	}
	return b.words[index]
}
