package pipeline

import (
	"errors"
	"fmt"

	"github.com/sbl8/tinyml/core"
)

var (
	// ErrInvoke wraps a failed inference. The cycle is skipped, not fatal.
	ErrInvoke = errors.New("pipeline: invoke failed")
	// ErrInputSize is returned when the input does not match the model input tensor.
	ErrInputSize = errors.New("pipeline: input size mismatch")
	// ErrShapeMismatch is returned by Setup for a model whose input or output
	// element count differs from the configured image and class counts.
	ErrShapeMismatch = errors.New("pipeline: model shape mismatch")
)

// Engine is the part of the interpreter one inference cycle needs.
type Engine interface {
	Input(i int) *core.Tensor
	Output(i int) *core.Tensor
	Invoke() error
}

// RunCycle copies input into input tensor 0, invokes e and returns the
// float32 view of output tensor 0. The returned slice aliases arena memory
// and must be treated as read-only.
func RunCycle(e Engine, input []float32) ([]float32, error) {
	in := e.Input(0)
	if in == nil {
		return nil, fmt.Errorf("%w: model has no input tensor", ErrInputSize)
	}
	dst := in.Float32()
	if len(dst) != len(input) {
		return nil, fmt.Errorf("%w: input has %d values, tensor %d", ErrInputSize, len(input), len(dst))
	}
	copy(dst, input)

	if err := e.Invoke(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvoke, err)
	}
	return e.Output(0).Float32(), nil
}
