// Package regmap describes the IOMMU programming-interface register file:
// register offsets, bit-field layouts and per-field write policies. The
// table is built once, validated, and immutable afterwards; the live
// register bank in internal/regbank consumes it.
package regmap

// Policy is the write policy of a register field.
type Policy int

const (
	// RO fields ignore writes entirely.
	RO Policy = iota
	// RW fields accept any written value.
	RW
	// RW1C fields clear each bit written as 1 and keep bits written as 0.
	RW1C
	// WARL fields accept any write but settle on a legal value chosen by
	// the field's legality function.
	WARL
)

func (p Policy) String() string {
	switch p {
	case RO:
		return "RO"
	case RW:
		return "RW"
	case RW1C:
		return "RW1C"
	case WARL:
		return "WARL"
	default:
		return "unknown"
	}
}

// PeekFunc reads the current raw value of another register while a WARL
// legality function runs. index is a register ordinal in the same Map.
type PeekFunc func(index int) uint64

// LegalFunc maps a proposed field value onto the field's legal subset.
// old and proposed are field-local (shifted down to bit 0). The result
// must be stable: legal(legal(old, p), p) == legal(old, p).
type LegalFunc func(old, proposed uint64, peek PeekFunc) uint64

// Field is one contiguous bit range of a 64-bit register word.
type Field struct {
	Name   string
	Lo, Hi uint // inclusive bit positions, Lo <= Hi <= 63
	Policy Policy
	Reset  uint64
	Legal  LegalFunc // WARL only
}

// Width returns the field width in bits.
func (f Field) Width() uint { return f.Hi - f.Lo + 1 }

// Mask returns the field's bit mask within the 64-bit word.
func (f Field) Mask() uint64 {
	if f.Width() >= 64 {
		return ^uint64(0)
	}
	return ((uint64(1) << f.Width()) - 1) << f.Lo
}

// Extract returns the field-local value of f within word.
func (f Field) Extract(word uint64) uint64 {
	return (word & f.Mask()) >> f.Lo
}

// Insert replaces f's bits in word with the field-local value v.
func (f Field) Insert(word, v uint64) uint64 {
	m := f.Mask()
	return (word &^ m) | ((v << f.Lo) & m)
}

// ByteMask returns the byte lanes the field overlaps, one bit per lane.
// A write whose strobe misses every lane of a field leaves it untouched.
func (f Field) ByteMask() uint8 {
	var m uint8
	for lane := uint(0); lane < 8; lane++ {
		if f.Lo <= lane*8+7 && f.Hi >= lane*8 {
			m |= 1 << lane
		}
	}
	return m
}
