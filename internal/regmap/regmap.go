package regmap

import (
	"errors"
	"fmt"
	"sort"
)

// ErrConfig reports a malformed register table or profile. It always
// indicates a build defect, not a runtime condition.
var ErrConfig = errors.New("regmap: invalid configuration")

// Register describes one 64-bit addressable word of the register file.
type Register struct {
	Name string
	// Offset is the byte offset of the word, 8-byte aligned.
	Offset uint64
	// WriteMask holds the architecturally writable byte lanes, one bit
	// per lane. Strobe bits outside the mask are ignored on writes.
	WriteMask uint8
	// Fields partitions the word. Bits covered by no field are reserved
	// and behave as RO zero.
	Fields []Field
}

// ResetValue returns the word value after reset.
func (r Register) ResetValue() uint64 {
	var v uint64
	for _, f := range r.Fields {
		v = f.Insert(v, f.Reset)
	}
	return v
}

// Map is the immutable register table, indexed by dense register ordinal
// and by byte offset.
type Map struct {
	regs     []Register
	resets   []uint64
	byOffset map[uint64]int
}

// New validates a register table and builds the offset index. Registers
// must appear in strictly increasing offset order.
func New(regs []Register) (*Map, error) {
	m := &Map{
		regs:     make([]Register, len(regs)),
		resets:   make([]uint64, len(regs)),
		byOffset: make(map[uint64]int, len(regs)),
	}
	copy(m.regs, regs)

	var prevOffset uint64
	for i, r := range m.regs {
		if r.Offset%8 != 0 {
			return nil, fmt.Errorf("%w: register %q: offset 0x%x not 8-byte aligned", ErrConfig, r.Name, r.Offset)
		}
		if i > 0 && r.Offset <= prevOffset {
			return nil, fmt.Errorf("%w: register %q: offset 0x%x not increasing", ErrConfig, r.Name, r.Offset)
		}
		prevOffset = r.Offset

		if err := validateFields(r); err != nil {
			return nil, err
		}

		m.resets[i] = r.ResetValue()
		m.byOffset[r.Offset] = i
	}
	return m, nil
}

func validateFields(r Register) error {
	var covered uint64
	for _, f := range r.Fields {
		if f.Lo > f.Hi || f.Hi > 63 {
			return fmt.Errorf("%w: register %q field %q: bad bit range [%d:%d]", ErrConfig, r.Name, f.Name, f.Hi, f.Lo)
		}
		if covered&f.Mask() != 0 {
			return fmt.Errorf("%w: register %q field %q: overlaps another field", ErrConfig, r.Name, f.Name)
		}
		covered |= f.Mask()
		if f.Policy == WARL && f.Legal == nil {
			return fmt.Errorf("%w: register %q field %q: WARL field without legality function", ErrConfig, r.Name, f.Name)
		}
		if f.Policy != WARL && f.Legal != nil {
			return fmt.Errorf("%w: register %q field %q: legality function on non-WARL field", ErrConfig, r.Name, f.Name)
		}
		if f.Reset&^(f.Mask()>>f.Lo) != 0 {
			return fmt.Errorf("%w: register %q field %q: reset value 0x%x wider than field", ErrConfig, r.Name, f.Name, f.Reset)
		}
	}
	return nil
}

// Len returns the number of registers in the table.
func (m *Map) Len() int { return len(m.regs) }

// At returns the register with the given dense ordinal.
func (m *Map) At(index int) (Register, bool) {
	if index < 0 || index >= len(m.regs) {
		return Register{}, false
	}
	return m.regs[index], true
}

// Lookup resolves a byte offset to a register ordinal.
func (m *Map) Lookup(offset uint64) (int, bool) {
	i, ok := m.byOffset[offset]
	return i, ok
}

// ResetValue returns the post-reset value of the register at index.
func (m *Map) ResetValue(index int) uint64 {
	if index < 0 || index >= len(m.resets) {
		return 0
	}
	return m.resets[index]
}

// Offsets returns every defined byte offset in increasing order.
func (m *Map) Offsets() []uint64 {
	offs := make([]uint64, 0, len(m.byOffset))
	for off := range m.byOffset {
		offs = append(offs, off)
	}
	sort.Slice(offs, func(i, j int) bool { return offs[i] < offs[j] })
	return offs
}
