package model

import "github.com/sbl8/tinyml/core"

// Magic identifies a model blob ("TMDL" in little-endian byte order).
const Magic uint32 = 0x4C444D54

// Byte sizes of the fixed-layout sections of a model blob.
const (
	HeaderSize        = 32
	TensorEntrySize   = 32
	OperatorEntrySize = 16

	// VersionOffset is the byte offset of the schema version field.
	VersionOffset = 4

	// PayloadAlignment is the boundary the payload section starts on.
	PayloadAlignment = 16
)

// Absent marks an unused operator input or output slot.
const Absent = 0xFFFF

const (
	maxOpInputs  = 3
	maxOpOutputs = 2
)

// Fused activation codes carried by operators.
const (
	ActNone  uint8 = 0
	ActReLU  uint8 = 1
	ActReLU6 uint8 = 2
)

type rawHeader struct {
	Magic       uint32
	Version     uint32
	TensorCount uint16
	OpCount     uint16
	Input       uint16
	Output      uint16
	PayloadSize uint32
	Flags       uint32
	_           [8]byte
}

type rawTensor struct {
	Kind   uint8
	DType  uint8
	Rank   uint8
	_      uint8
	Dims   [core.MaxRank]uint32
	Offset uint32
	Length uint32
	_      uint32
}

type rawOperator struct {
	Opcode      uint8
	InputCount  uint8
	OutputCount uint8
	Activation  uint8
	Inputs      [maxOpInputs]uint16
	Outputs     [maxOpOutputs]uint16
	_           uint16
}

// payloadOffset returns where the payload starts for the given table sizes.
func payloadOffset(tensors, ops int) int {
	end := HeaderSize + tensors*TensorEntrySize + ops*OperatorEntrySize
	return int(core.AlignUp(uintptr(end), PayloadAlignment))
}
