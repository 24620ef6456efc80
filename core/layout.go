package core

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"
)

// Float32Size is the byte width of a float32 element.
const Float32Size = 4

// AsFloat32 reinterprets b as a float32 slice without copying.
// It returns nil when b is empty, not a multiple of 4 bytes, or misaligned.
func AsFloat32(b []byte) []float32 {
	if len(b) == 0 || len(b)%Float32Size != 0 || !IsAligned(AddrOf(b), Float32Size) {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), len(b)/Float32Size)
}

// DecodeFloat32s decodes little-endian float32 values from src into dst.
func DecodeFloat32s(dst []float32, src []byte) error {
	if len(src) != len(dst)*Float32Size {
		return fmt.Errorf("decode float32: %d bytes for %d values", len(src), len(dst))
	}
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*Float32Size:]))
	}
	return nil
}

// EncodeFloat32s returns the little-endian encoding of values.
func EncodeFloat32s(values []float32) []byte {
	out := make([]byte, len(values)*Float32Size)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*Float32Size:], math.Float32bits(v))
	}
	return out
}
