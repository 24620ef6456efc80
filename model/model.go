// Package model decodes and validates the flat binary models the interpreter
// executes.
//
// A model blob is a 32-byte header followed by a tensor table, an operator
// table and a payload holding constant tensor data. All integers are
// little-endian. The layout is:
//
//	header    magic "TMDL", schema version, table counts, input/output tensor
//	tensors   32 bytes each: kind, dtype, rank, dims[4], payload offset/length
//	operators 16 bytes each: opcode, arity, activation, inputs[3], outputs[2]
//	payload   starts on a 16-byte boundary
//
// Operators are stored in execution order. Load rejects blobs whose schema
// version differs from the runtime's with an error matching ErrSchema.
// Constant data is never copied by the loader: TensorData returns a view into
// the input blob, so callers must keep the blob alive and unmodified.
package model

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/sbl8/tinyml/config"
	"github.com/sbl8/tinyml/core"
)

// TensorInfo describes one tensor of the model.
type TensorInfo struct {
	Kind  core.Kind
	DType core.DType
	Shape []int

	// Offset and Length locate constant data within the payload.
	Offset uint32
	Length uint32
}

// NumElements returns the product of the tensor's dimensions.
func (t TensorInfo) NumElements() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// SizeBytes returns the tensor's storage size.
func (t TensorInfo) SizeBytes() int {
	return t.NumElements() * t.DType.ElementSize()
}

// Operator is one step of the execution plan. Inputs may contain -1 for an
// absent optional operand.
type Operator struct {
	Opcode     uint8
	Activation uint8
	Inputs     []int
	Outputs    []int
}

// Model is a decoded, validated model.
type Model struct {
	Version   uint32
	Flags     uint32
	Tensors   []TensorInfo
	Operators []Operator
	Input     int
	Output    int
	Payload   []byte
}

// Load decodes blob and validates it against the runtime's schema version.
func Load(blob []byte) (*Model, error) {
	if len(blob) < HeaderSize {
		return nil, malformed("%d bytes, header needs %d", len(blob), HeaderSize)
	}

	r := bytes.NewReader(blob)
	var hdr rawHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, malformed("header: %v", err)
	}
	if hdr.Magic != Magic {
		return nil, fmt.Errorf("%w: %#08x", ErrBadMagic, hdr.Magic)
	}
	if hdr.Version != config.SchemaVersion {
		return nil, &SchemaError{Got: hdr.Version, Want: config.SchemaVersion}
	}

	start := payloadOffset(int(hdr.TensorCount), int(hdr.OpCount))
	end := start + int(hdr.PayloadSize)
	if end > len(blob) {
		return nil, malformed("blob is %d bytes, tables and payload need %d", len(blob), end)
	}

	m := &Model{
		Version:   hdr.Version,
		Flags:     hdr.Flags,
		Tensors:   make([]TensorInfo, hdr.TensorCount),
		Operators: make([]Operator, hdr.OpCount),
		Input:     int(hdr.Input),
		Output:    int(hdr.Output),
		Payload:   blob[start:end:end],
	}

	for i := range m.Tensors {
		var rt rawTensor
		if err := binary.Read(r, binary.LittleEndian, &rt); err != nil {
			return nil, malformed("tensor %d: %v", i, err)
		}
		if int(rt.Rank) > core.MaxRank {
			return nil, malformed("tensor %d: rank %d exceeds %d", i, rt.Rank, core.MaxRank)
		}
		shape := make([]int, rt.Rank)
		for d := range shape {
			shape[d] = int(rt.Dims[d])
		}
		m.Tensors[i] = TensorInfo{
			Kind:   core.Kind(rt.Kind),
			DType:  core.DType(rt.DType),
			Shape:  shape,
			Offset: rt.Offset,
			Length: rt.Length,
		}
	}

	for i := range m.Operators {
		var ro rawOperator
		if err := binary.Read(r, binary.LittleEndian, &ro); err != nil {
			return nil, malformed("operator %d: %v", i, err)
		}
		if ro.InputCount > maxOpInputs || ro.OutputCount > maxOpOutputs {
			return nil, malformed("operator %d: arity %d/%d exceeds %d/%d",
				i, ro.InputCount, ro.OutputCount, maxOpInputs, maxOpOutputs)
		}
		op := Operator{
			Opcode:     ro.Opcode,
			Activation: ro.Activation,
			Inputs:     make([]int, ro.InputCount),
			Outputs:    make([]int, ro.OutputCount),
		}
		for j := range op.Inputs {
			op.Inputs[j] = slot(ro.Inputs[j])
		}
		for j := range op.Outputs {
			op.Outputs[j] = slot(ro.Outputs[j])
		}
		m.Operators[i] = op
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func slot(v uint16) int {
	if v == Absent {
		return -1
	}
	return int(v)
}

// Validate checks tensor descriptors, payload bounds and that every operator
// only reads tensors that are constant, the model input, or produced by an
// earlier operator.
func (m *Model) Validate() error {
	n := len(m.Tensors)
	if n == 0 {
		return malformed("model has no tensors")
	}
	if m.Input < 0 || m.Input >= n {
		return malformed("input tensor %d out of range", m.Input)
	}
	if m.Output < 0 || m.Output >= n {
		return malformed("output tensor %d out of range", m.Output)
	}

	for i, t := range m.Tensors {
		if t.DType.ElementSize() == 0 {
			return malformed("tensor %d: unsupported %s", i, t.DType)
		}
		if len(t.Shape) == 0 {
			return malformed("tensor %d: rank 0", i)
		}
		size := t.DType.ElementSize()
		for _, d := range t.Shape {
			if d <= 0 {
				return malformed("tensor %d: non-positive dimension in %v", i, t.Shape)
			}
			if uint64(d) > math.MaxUint32/uint64(size) {
				return malformed("tensor %d: shape %v exceeds %d bytes", i, t.Shape, uint32(math.MaxUint32))
			}
			size *= d
		}
		switch t.Kind {
		case core.KindActivation:
		case core.KindConstant:
			if int(t.Length) != t.SizeBytes() {
				return malformed("tensor %d: payload length %d, shape %v needs %d", i, t.Length, t.Shape, t.SizeBytes())
			}
			if t.Offset%core.Float32Size != 0 {
				return malformed("tensor %d: payload offset %d is not aligned", i, t.Offset)
			}
			if uint64(t.Offset)+uint64(t.Length) > uint64(len(m.Payload)) {
				return malformed("tensor %d: payload [%d,+%d) exceeds %d bytes", i, t.Offset, t.Length, len(m.Payload))
			}
		default:
			return malformed("tensor %d: unknown kind %d", i, t.Kind)
		}
	}

	if m.Tensors[m.Input].Kind != core.KindActivation {
		return malformed("input tensor %d is constant", m.Input)
	}

	ready := make([]bool, n)
	produced := make([]bool, n)
	for i, t := range m.Tensors {
		ready[i] = t.Kind == core.KindConstant
	}
	ready[m.Input] = true

	for i, op := range m.Operators {
		if len(op.Outputs) == 0 {
			return malformed("operator %d: no outputs", i)
		}
		for _, in := range op.Inputs {
			if in == -1 {
				continue
			}
			if in < 0 || in >= n {
				return malformed("operator %d: input tensor %d out of range", i, in)
			}
			if !ready[in] {
				return malformed("operator %d: reads tensor %d before it is written", i, in)
			}
		}
		for _, out := range op.Outputs {
			if out < 0 || out >= n {
				return malformed("operator %d: output tensor %d out of range", i, out)
			}
			if m.Tensors[out].Kind == core.KindConstant || out == m.Input {
				return malformed("operator %d: writes read-only tensor %d", i, out)
			}
			if produced[out] {
				return malformed("operator %d: tensor %d already written", i, out)
			}
			produced[out] = true
			ready[out] = true
		}
	}

	if !ready[m.Output] {
		return malformed("output tensor %d is never written", m.Output)
	}
	return nil
}

// TensorData returns the constant payload of tensor i, or nil for activations.
func (m *Model) TensorData(i int) []byte {
	if i < 0 || i >= len(m.Tensors) {
		return nil
	}
	t := m.Tensors[i]
	if t.Kind != core.KindConstant {
		return nil
	}
	end := t.Offset + t.Length
	return m.Payload[t.Offset:end:end]
}

// ConstantBytes returns the total size of constant tensor data.
func (m *Model) ConstantBytes() int {
	total := 0
	for _, t := range m.Tensors {
		if t.Kind == core.KindConstant {
			total += int(t.Length)
		}
	}
	return total
}

// Describe returns a human-readable summary of the model.
func (m *Model) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "schema %d, %d tensors, %d operators, %d payload bytes\n",
		m.Version, len(m.Tensors), len(m.Operators), len(m.Payload))
	for i, t := range m.Tensors {
		role := ""
		switch i {
		case m.Input:
			role = " (input)"
		case m.Output:
			role = " (output)"
		}
		fmt.Fprintf(&b, "  tensor %d: %s %s%v%s\n", i, t.Kind, t.DType, t.Shape, role)
	}
	for i, op := range m.Operators {
		fmt.Fprintf(&b, "  op %d: opcode %#02x act %d in %v out %v\n", i, op.Opcode, op.Activation, op.Inputs, op.Outputs)
	}
	return b.String()
}
