package regmap

import "fmt"

// Register ordinals of the IOMMU map. MSI configuration words follow
// RegMSIBase, two per vector (address word, then data/control word).
const (
	RegCaps = iota
	RegFctl
	RegDdtp
	RegCqb
	RegCq
	RegFqb
	RegFq
	RegCsr
	RegIpsr
	RegIcvec
	RegMSIBase
)

// Byte offsets of the IOMMU register words. The original 32-bit
// architectural registers live inside their containing 64-bit word:
// cqt is the high half of the word at OffCq, fqcsr the high half of the
// word at OffCsr, ipsr the low bits of the high half at OffIpsr.
const (
	OffCaps  = 0x000
	OffFctl  = 0x008
	OffDdtp  = 0x010
	OffCqb   = 0x018
	OffCq    = 0x020
	OffFqb   = 0x028
	OffFq    = 0x030
	OffCsr   = 0x048
	OffIpsr  = 0x050
	OffIcvec = 0x2f8

	OffMSIBase = 0x300
	MSIStride  = 0x10
)

// Interrupt generation support encodings for caps.igs.
const (
	igsMSI  = 0
	igsWSI  = 1
	igsBoth = 2
)

const (
	capsVersion1_0 = 0x10
	ddtpModeMax    = 4 // Off, Bare, 1LVL, 2LVL, 3LVL
)

func roBit(set bool) uint64 {
	if set {
		return 1
	}
	return 0
}

// IOMMU builds the IOMMU programming-interface register map for the
// given profile.
func IOMMU(p Profile) (*Map, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	igs := uint64(igsMSI)
	if p.WSISupported {
		igs = igsBoth
	}

	wsiLegal := func(old, proposed uint64, _ PeekFunc) uint64 {
		if p.WSISupported {
			return proposed & 1
		}
		return 0
	}
	modeLegal := func(old, proposed uint64, _ PeekFunc) uint64 {
		if proposed <= ddtpModeMax {
			return proposed
		}
		return old
	}
	log2szLegal := func(old, proposed uint64, _ PeekFunc) uint64 {
		if proposed <= uint64(p.QueueLog2Max) {
			return proposed
		}
		return old
	}
	// Queue indices wrap at the configured queue size. The bound lives in
	// the matching base register, so the legality rule peeks at it.
	queueIndexLegal := func(base int) LegalFunc {
		return func(old, proposed uint64, peek PeekFunc) uint64 {
			log2sz := peek(base) & 0x1f
			return proposed & ((1 << (log2sz + 1)) - 1)
		}
	}
	vectorLegal := func(old, proposed uint64, _ PeekFunc) uint64 {
		return proposed & uint64(p.Vectors-1)
	}

	regs := []Register{
		{
			Name: "caps", Offset: OffCaps, WriteMask: 0x3f,
			Fields: []Field{
				{Name: "version", Lo: 0, Hi: 7, Policy: RO, Reset: capsVersion1_0},
				{Name: "sv39", Lo: 9, Hi: 9, Policy: RO, Reset: roBit(p.Capabilities.Sv39)},
				{Name: "sv39x4", Lo: 17, Hi: 17, Policy: RO, Reset: roBit(p.Capabilities.Sv39x4)},
				{Name: "msi_flat", Lo: 22, Hi: 22, Policy: RO, Reset: roBit(p.Capabilities.MSIFlat)},
				{Name: "igs", Lo: 27, Hi: 28, Policy: RO, Reset: igs},
				{Name: "pas", Lo: 38, Hi: 43, Policy: RO, Reset: uint64(p.Capabilities.PAS)},
			},
		},
		{
			Name: "fctl", Offset: OffFctl, WriteMask: 0x01,
			Fields: []Field{
				{Name: "be", Lo: 0, Hi: 0, Policy: RW},
				{Name: "wsi", Lo: 1, Hi: 1, Policy: WARL, Legal: wsiLegal},
				{Name: "gxl", Lo: 2, Hi: 2, Policy: RW},
			},
		},
		{
			Name: "ddtp", Offset: OffDdtp, WriteMask: 0x7f,
			Fields: []Field{
				{Name: "iommu_mode", Lo: 0, Hi: 3, Policy: WARL, Legal: modeLegal},
				{Name: "busy", Lo: 4, Hi: 4, Policy: RO},
				{Name: "ppn", Lo: 10, Hi: 53, Policy: RW},
			},
		},
		{
			Name: "cqb", Offset: OffCqb, WriteMask: 0x7f,
			Fields: []Field{
				{Name: "log2sz_1", Lo: 0, Hi: 4, Policy: WARL, Legal: log2szLegal},
				{Name: "ppn", Lo: 10, Hi: 53, Policy: RW},
			},
		},
		{
			Name: "cq", Offset: OffCq, WriteMask: 0xf0,
			Fields: []Field{
				{Name: "cqh", Lo: 0, Hi: 31, Policy: RO},
				{Name: "cqt", Lo: 32, Hi: 63, Policy: WARL, Legal: queueIndexLegal(RegCqb)},
			},
		},
		{
			Name: "fqb", Offset: OffFqb, WriteMask: 0x7f,
			Fields: []Field{
				{Name: "log2sz_1", Lo: 0, Hi: 4, Policy: WARL, Legal: log2szLegal},
				{Name: "ppn", Lo: 10, Hi: 53, Policy: RW},
			},
		},
		{
			Name: "fq", Offset: OffFq, WriteMask: 0x0f,
			Fields: []Field{
				{Name: "fqh", Lo: 0, Hi: 31, Policy: WARL, Legal: queueIndexLegal(RegFqb)},
				{Name: "fqt", Lo: 32, Hi: 63, Policy: RO},
			},
		},
		{
			Name: "csr", Offset: OffCsr, WriteMask: 0x77,
			Fields: []Field{
				{Name: "cqen", Lo: 0, Hi: 0, Policy: RW},
				{Name: "cie", Lo: 1, Hi: 1, Policy: RW},
				{Name: "cqmf", Lo: 8, Hi: 8, Policy: RW1C},
				{Name: "cmd_to", Lo: 9, Hi: 9, Policy: RW1C},
				{Name: "cmd_ill", Lo: 10, Hi: 10, Policy: RW1C},
				{Name: "fence_w_ip", Lo: 11, Hi: 11, Policy: RW1C},
				{Name: "cqon", Lo: 16, Hi: 16, Policy: RO},
				{Name: "cq_busy", Lo: 17, Hi: 17, Policy: RO},
				{Name: "fqen", Lo: 32, Hi: 32, Policy: RW},
				{Name: "fie", Lo: 33, Hi: 33, Policy: RW},
				{Name: "fqmf", Lo: 40, Hi: 40, Policy: RW1C},
				{Name: "fqof", Lo: 41, Hi: 41, Policy: RW1C},
				{Name: "fqon", Lo: 48, Hi: 48, Policy: RO},
				{Name: "fq_busy", Lo: 49, Hi: 49, Policy: RO},
			},
		},
		{
			Name: "ipsr", Offset: OffIpsr, WriteMask: 0x10,
			Fields: []Field{
				{Name: "cip", Lo: 32, Hi: 32, Policy: RW1C},
				{Name: "fip", Lo: 33, Hi: 33, Policy: RW1C},
				{Name: "pmip", Lo: 34, Hi: 34, Policy: RW1C},
				{Name: "pip", Lo: 35, Hi: 35, Policy: RW1C},
			},
		},
		{
			Name: "icvec", Offset: OffIcvec, WriteMask: 0x03,
			Fields: []Field{
				{Name: "civ", Lo: 0, Hi: 3, Policy: WARL, Legal: vectorLegal},
				{Name: "fiv", Lo: 4, Hi: 7, Policy: WARL, Legal: vectorLegal},
				{Name: "pmiv", Lo: 8, Hi: 11, Policy: WARL, Legal: vectorLegal},
				{Name: "piv", Lo: 12, Hi: 15, Policy: WARL, Legal: vectorLegal},
			},
		},
	}

	for k := 0; k < p.Vectors; k++ {
		base := uint64(OffMSIBase + k*MSIStride)
		regs = append(regs,
			Register{
				Name: fmt.Sprintf("msi_addr_%d", k), Offset: base, WriteMask: 0x7f,
				Fields: []Field{
					{Name: "addr", Lo: 2, Hi: 55, Policy: RW},
				},
			},
			Register{
				Name: fmt.Sprintf("msi_cfg_%d", k), Offset: base + 8, WriteMask: 0x1f,
				Fields: []Field{
					{Name: "data", Lo: 0, Hi: 31, Policy: RW},
					{Name: "m", Lo: 32, Hi: 32, Policy: RW},
				},
			},
		)
	}

	return New(regs)
}
