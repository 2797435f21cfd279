// Package regbus implements the native register request/response
// interface: the packed wire image and a synchronous adapter that decodes
// requests into register bank accesses.
package regbus

// Bit positions of the request image (upward direction).
const (
	reqBitValid = 0
	reqBitWStrb = 1 // 8 bits
	reqBitWData = 9 // 64 bits
	reqBitWrite = 73
	reqBitAddr  = 74 // 13 bits

	// RequestBits is the width of the packed request image.
	RequestBits  = 87
	RequestBytes = 11
)

// Bit positions of the response image (downward direction).
const (
	rspBitRData = 0 // 64 bits
	rspBitError = 64
	rspBitReady = 65

	// ResponseBits is the width of the packed response image.
	ResponseBits  = 66
	ResponseBytes = 9
)

// AddrMask bounds the 13-bit byte address.
const AddrMask = 0x1fff

// Request is one upward register-interface transfer.
type Request struct {
	Addr  uint16 // 13-bit byte address
	Write bool
	WData uint64
	WStrb uint8
	Valid bool
}

// Response answers exactly one Request.
type Response struct {
	RData uint64
	Error bool
	Ready bool
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// Pack serializes the request into its little-endian wire image.
func (r Request) Pack() [RequestBytes]byte {
	lo := b2u(r.Valid)<<reqBitValid |
		uint64(r.WStrb)<<reqBitWStrb |
		r.WData<<reqBitWData
	hi := r.WData>>(64-reqBitWData) |
		b2u(r.Write)<<(reqBitWrite-64) |
		uint64(r.Addr&AddrMask)<<(reqBitAddr-64)

	var out [RequestBytes]byte
	for i := 0; i < 8; i++ {
		out[i] = byte(lo >> (8 * i))
	}
	out[8] = byte(hi)
	out[9] = byte(hi >> 8)
	out[10] = byte(hi >> 16)
	return out
}

// UnpackRequest deserializes a request wire image.
func UnpackRequest(img [RequestBytes]byte) Request {
	var lo uint64
	for i := 0; i < 8; i++ {
		lo |= uint64(img[i]) << (8 * i)
	}
	hi := uint64(img[8]) | uint64(img[9])<<8 | uint64(img[10])<<16

	return Request{
		Valid: lo>>reqBitValid&1 != 0,
		WStrb: uint8(lo >> reqBitWStrb),
		WData: lo>>reqBitWData | hi<<(64-reqBitWData),
		Write: hi>>(reqBitWrite-64)&1 != 0,
		Addr:  uint16(hi>>(reqBitAddr-64)) & AddrMask,
	}
}

// Pack serializes the response into its little-endian wire image.
func (r Response) Pack() [ResponseBytes]byte {
	var out [ResponseBytes]byte
	for i := 0; i < 8; i++ {
		out[i] = byte(r.RData >> (8 * i))
	}
	out[8] = byte(b2u(r.Error)<<(rspBitError-64) | b2u(r.Ready)<<(rspBitReady-64))
	return out
}

// UnpackResponse deserializes a response wire image.
func UnpackResponse(img [ResponseBytes]byte) Response {
	var rdata uint64
	for i := 0; i < 8; i++ {
		rdata |= uint64(img[i]) << (8 * i)
	}
	return Response{
		RData: rdata,
		Error: img[8]&(1<<(rspBitError-64)) != 0,
		Ready: img[8]&(1<<(rspBitReady-64)) != 0,
	}
}
