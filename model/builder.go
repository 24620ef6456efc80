package model

import (
	"github.com/sbl8/tinyml/config"
	"github.com/sbl8/tinyml/core"
)

// Builder assembles a Model in memory, mainly for tests and tooling.
// Constants are appended to the payload on 16-byte boundaries.
type Builder struct {
	m Model
}

// NewBuilder returns a builder for the runtime's schema version.
func NewBuilder() *Builder {
	return &Builder{m: Model{Version: config.SchemaVersion}}
}

// Version overrides the schema version written to the header.
func (b *Builder) Version(v uint32) *Builder {
	b.m.Version = v
	return b
}

// Activation adds a float32 activation tensor and returns its index.
func (b *Builder) Activation(shape ...int) int {
	b.m.Tensors = append(b.m.Tensors, TensorInfo{
		Kind:  core.KindActivation,
		DType: core.DTypeFloat32,
		Shape: append([]int(nil), shape...),
	})
	return len(b.m.Tensors) - 1
}

// Constant adds a float32 constant tensor holding values and returns its index.
func (b *Builder) Constant(values []float32, shape ...int) int {
	off := int(core.AlignUp(uintptr(len(b.m.Payload)), PayloadAlignment))
	for len(b.m.Payload) < off {
		b.m.Payload = append(b.m.Payload, 0)
	}
	data := core.EncodeFloat32s(values)
	b.m.Payload = append(b.m.Payload, data...)
	b.m.Tensors = append(b.m.Tensors, TensorInfo{
		Kind:   core.KindConstant,
		DType:  core.DTypeFloat32,
		Shape:  append([]int(nil), shape...),
		Offset: uint32(off),
		Length: uint32(len(data)),
	})
	return len(b.m.Tensors) - 1
}

// Op appends an operator. Use -1 for absent inputs.
func (b *Builder) Op(opcode, activation uint8, inputs []int, outputs ...int) *Builder {
	b.m.Operators = append(b.m.Operators, Operator{
		Opcode:     opcode,
		Activation: activation,
		Inputs:     append([]int(nil), inputs...),
		Outputs:    append([]int(nil), outputs...),
	})
	return b
}

// IO sets the model input and output tensors.
func (b *Builder) IO(input, output int) *Builder {
	b.m.Input = input
	b.m.Output = output
	return b
}

// Encode serializes the model under construction without validating it.
func (b *Builder) Encode() ([]byte, error) {
	return b.m.Encode()
}

// Build encodes the model and loads it back, returning the blob and the
// validated model.
func (b *Builder) Build() ([]byte, *Model, error) {
	blob, err := b.Encode()
	if err != nil {
		return nil, nil, err
	}
	m, err := Load(blob)
	if err != nil {
		return nil, nil, err
	}
	return blob, m, nil
}
