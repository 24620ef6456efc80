package model

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/sbl8/tinyml/core"
)

// Encode serializes m into the binary model format. It does not validate m.
func (m *Model) Encode() ([]byte, error) {
	if len(m.Tensors) > Absent || len(m.Operators) > Absent {
		return nil, fmt.Errorf("model: %d tensors and %d operators exceed the format limit", len(m.Tensors), len(m.Operators))
	}

	var buf bytes.Buffer
	hdr := rawHeader{
		Magic:       Magic,
		Version:     m.Version,
		TensorCount: uint16(len(m.Tensors)),
		OpCount:     uint16(len(m.Operators)),
		Input:       uint16(m.Input),
		Output:      uint16(m.Output),
		PayloadSize: uint32(len(m.Payload)),
		Flags:       m.Flags,
	}
	if err := binary.Write(&buf, binary.LittleEndian, &hdr); err != nil {
		return nil, err
	}

	for i, t := range m.Tensors {
		if len(t.Shape) > core.MaxRank {
			return nil, fmt.Errorf("model: tensor %d: rank %d exceeds %d", i, len(t.Shape), core.MaxRank)
		}
		rt := rawTensor{
			Kind:   uint8(t.Kind),
			DType:  uint8(t.DType),
			Rank:   uint8(len(t.Shape)),
			Offset: t.Offset,
			Length: t.Length,
		}
		for d, v := range t.Shape {
			rt.Dims[d] = uint32(v)
		}
		if err := binary.Write(&buf, binary.LittleEndian, &rt); err != nil {
			return nil, err
		}
	}

	for i, op := range m.Operators {
		if len(op.Inputs) > maxOpInputs || len(op.Outputs) > maxOpOutputs {
			return nil, fmt.Errorf("model: operator %d: arity %d/%d exceeds %d/%d",
				i, len(op.Inputs), len(op.Outputs), maxOpInputs, maxOpOutputs)
		}
		ro := rawOperator{
			Opcode:      op.Opcode,
			InputCount:  uint8(len(op.Inputs)),
			OutputCount: uint8(len(op.Outputs)),
			Activation:  op.Activation,
			Inputs:      [maxOpInputs]uint16{Absent, Absent, Absent},
			Outputs:     [maxOpOutputs]uint16{Absent, Absent},
		}
		for j, in := range op.Inputs {
			if in >= 0 {
				ro.Inputs[j] = uint16(in)
			}
		}
		for j, out := range op.Outputs {
			if out >= 0 {
				ro.Outputs[j] = uint16(out)
			}
		}
		if err := binary.Write(&buf, binary.LittleEndian, &ro); err != nil {
			return nil, err
		}
	}

	// Pad to the payload boundary
	for buf.Len() < payloadOffset(len(m.Tensors), len(m.Operators)) {
		buf.WriteByte(0)
	}
	buf.Write(m.Payload)

	return buf.Bytes(), nil
}
