package core

import "unsafe"

const (
	// CacheLineSize is the line size assumed for buffers shared with the
	// external memory controller.
	CacheLineSize = 64

	// TensorAlignment is the byte alignment of every tensor buffer carved
	// from a tensor arena.
	TensorAlignment = 16
)

// IsAligned reports whether addr is a multiple of align. align must be a power of two.
func IsAligned(addr, align uintptr) bool {
	return addr&(align-1) == 0
}

// AlignUp rounds size up to the next multiple of align. align must be a power of two.
func AlignUp(size, align uintptr) uintptr {
	return (size + align - 1) &^ (align - 1)
}

// AlignedSize rounds size up to a cache line multiple.
func AlignedSize(size uintptr) uintptr {
	return AlignUp(size, CacheLineSize)
}

// Padding returns the number of bytes needed to move addr to the next align boundary.
func Padding(addr, align uintptr) uintptr {
	return AlignUp(addr, align) - addr
}

// AddrOf returns the address of the first byte of b, or 0 for an empty slice.
func AddrOf(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}

// AlignedBytes allocates a byte slice whose backing array starts on a cache
// line boundary.
func AlignedBytes(size int) []byte {
	if size == 0 {
		return nil
	}
	// At most CacheLineSize-1 extra bytes are needed to reach a boundary.
	buf := make([]byte, size+CacheLineSize-1)
	offset := Padding(AddrOf(buf), CacheLineSize)
	return buf[offset : offset+uintptr(size) : offset+uintptr(size)]
}
