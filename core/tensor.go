// Package core provides the primitives shared by the model loader, the
// interpreter and the kernels: alignment arithmetic, float32 codecs and the
// Tensor handle.
//
// A Tensor never owns memory. Its storage is a window into a tensor arena and
// is bound exactly once, when the interpreter allocates tensors.
package core

import (
	"errors"
	"fmt"
)

// DType identifies the element type of a tensor.
type DType uint8

const (
	DTypeInvalid DType = 0
	DTypeFloat32 DType = 1
)

// ElementSize returns the byte width of one element, or 0 for unknown types.
func (d DType) ElementSize() int {
	switch d {
	case DTypeFloat32:
		return Float32Size
	default:
		return 0
	}
}

func (d DType) String() string {
	switch d {
	case DTypeFloat32:
		return "float32"
	default:
		return fmt.Sprintf("dtype(%d)", uint8(d))
	}
}

// Kind tells where a tensor's initial contents come from.
type Kind uint8

const (
	// KindActivation tensors are written by the model input or an operator.
	KindActivation Kind = 0
	// KindConstant tensors hold a working copy of model weights.
	KindConstant Kind = 1
)

func (k Kind) String() string {
	if k == KindConstant {
		return "constant"
	}
	return "activation"
}

// MaxRank is the highest tensor rank the model format can express.
const MaxRank = 4

// ErrUnbound is returned when storage of an unallocated tensor is accessed.
var ErrUnbound = errors.New("tensor storage not allocated")

// Tensor is a typed, shaped view into arena memory.
type Tensor struct {
	Index int
	Kind  Kind
	DType DType
	Shape []int

	data []byte
}

// NumElements returns the product of the shape dimensions.
func (t *Tensor) NumElements() int {
	if len(t.Shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// SizeBytes returns the storage size the tensor requires.
func (t *Tensor) SizeBytes() int {
	return t.NumElements() * t.DType.ElementSize()
}

// Bind attaches arena storage. buf must be exactly SizeBytes long.
func (t *Tensor) Bind(buf []byte) error {
	if len(buf) != t.SizeBytes() {
		return fmt.Errorf("tensor %d: bind %d bytes, need %d", t.Index, len(buf), t.SizeBytes())
	}
	if t.DType == DTypeFloat32 && len(buf) > 0 && !IsAligned(AddrOf(buf), Float32Size) {
		return fmt.Errorf("tensor %d: storage at %#x is not %d-byte aligned", t.Index, AddrOf(buf), Float32Size)
	}
	t.data = buf
	return nil
}

// Bound reports whether storage has been attached.
func (t *Tensor) Bound() bool {
	return t.data != nil
}

// Bytes returns the raw storage, or nil before allocation.
func (t *Tensor) Bytes() []byte {
	return t.data
}

// Float32 returns the storage as float32 values, or nil before allocation.
func (t *Tensor) Float32() []float32 {
	if t.DType != DTypeFloat32 {
		return nil
	}
	return AsFloat32(t.data)
}

func (t *Tensor) String() string {
	return fmt.Sprintf("#%d %s %s%v", t.Index, t.Kind, t.DType, t.Shape)
}
