package runtime

import (
	"fmt"

	"github.com/sbl8/tinyml/core"
)

// ArenaRegion represents a distinct memory region within the Arena.
type ArenaRegion struct {
	Offset uintptr
	Size   uintptr
	Name   string
}

// Region names.
const (
	RegionConstants   = "Constants"
	RegionActivations = "Activations"
	RegionFreeTail    = "FreeTail"
)

// Arena partitions a caller-provided byte slice for tensor storage:
// 1. Constants (working copies of model weights)
// 2. Activations (model input, intermediates, outputs)
// 3. Free Tail (unused head-room)
//
// The arena never allocates. Its base is moved up to the first
// core.TensorAlignment boundary, so the usable size may be smaller than the
// slice.
type Arena struct {
	buffer  []byte
	regions map[string]ArenaRegion

	constants   ArenaRegion
	activations ArenaRegion
	freeTail    ArenaRegion

	currentConstantOffset   uintptr // Bump allocator for constants region
	currentActivationOffset uintptr // Bump allocator for activations region
}

// UsableSize returns the bytes of buf left after aligning its base.
func UsableSize(buf []byte) uintptr {
	if len(buf) == 0 {
		return 0
	}
	pad := core.Padding(core.AddrOf(buf), core.TensorAlignment)
	if pad >= uintptr(len(buf)) {
		return 0
	}
	return uintptr(len(buf)) - pad
}

// NewArena lays out the constants and activations regions over buf. It fails
// with ErrArenaTooSmall when they do not fit.
func NewArena(buf []byte, constantsSize, activationsSize uintptr) (*Arena, error) {
	usable := UsableSize(buf)
	need := constantsSize + activationsSize
	if need > usable {
		return nil, fmt.Errorf("%w: need %d bytes, arena has %d usable of %d", ErrArenaTooSmall, need, usable, len(buf))
	}

	pad := uintptr(len(buf)) - usable
	a := &Arena{
		buffer:  buf[pad : pad+usable : pad+usable],
		regions: make(map[string]ArenaRegion, 3),
	}

	a.constants = ArenaRegion{Offset: 0, Size: constantsSize, Name: RegionConstants}
	a.activations = ArenaRegion{Offset: constantsSize, Size: activationsSize, Name: RegionActivations}
	a.freeTail = ArenaRegion{Offset: need, Size: usable - need, Name: RegionFreeTail}
	for _, r := range []ArenaRegion{a.constants, a.activations, a.freeTail} {
		a.regions[r.Name] = r
	}
	a.Reset()
	return a, nil
}

// Buffer returns the aligned byte buffer of the arena.
func (a *Arena) Buffer() []byte {
	return a.buffer
}

// Region returns the specified ArenaRegion.
func (a *Arena) Region(name string) (ArenaRegion, bool) {
	region, ok := a.regions[name]
	return region, ok
}

// AllocateConstant carves size bytes from the constants region.
// Not thread-safe without external locking.
func (a *Arena) AllocateConstant(size uintptr) ([]byte, error) {
	return a.bump(&a.currentConstantOffset, a.constants, size)
}

// AllocateActivation carves size bytes from the activations region.
// Not thread-safe without external locking.
func (a *Arena) AllocateActivation(size uintptr) ([]byte, error) {
	return a.bump(&a.currentActivationOffset, a.activations, size)
}

func (a *Arena) bump(cursor *uintptr, region ArenaRegion, size uintptr) ([]byte, error) {
	aligned := core.AlignUp(*cursor, core.TensorAlignment)
	if aligned+size > region.Offset+region.Size {
		return nil, fmt.Errorf("%w: %s region exhausted: requested %d at offset %d of %d",
			ErrArenaTooSmall, region.Name, size, aligned-region.Offset, region.Size)
	}
	*cursor = aligned + size
	return a.buffer[aligned : aligned+size : aligned+size], nil
}

// Reset rewinds both bump allocators and zeroes the used regions.
func (a *Arena) Reset() {
	a.currentConstantOffset = a.constants.Offset
	a.currentActivationOffset = a.activations.Offset
	clear(a.buffer[:a.freeTail.Offset])
}

// TotalSize returns the usable capacity of the arena.
func (a *Arena) TotalSize() uintptr {
	return uintptr(len(a.buffer))
}

// UsedSize returns the committed size, up to the start of the FreeTail.
func (a *Arena) UsedSize() uintptr {
	return a.freeTail.Offset
}

// RemainingSize returns the size of the FreeTail.
func (a *Arena) RemainingSize() uintptr {
	return a.freeTail.Size
}

// Utilization returns the fraction of the arena that is committed.
func (a *Arena) Utilization() float64 {
	if len(a.buffer) == 0 {
		return 0
	}
	return float64(a.UsedSize()) / float64(len(a.buffer))
}
