// Package runtime executes a validated model inside a caller-provided tensor
// arena.
//
// An Interpreter binds a model, an op resolver and an arena. Nothing is
// allocated until AllocateTensors, which checks that the arena can hold every
// tensor, copies constant data into it and prepares each operator. After that
// Invoke runs the operators in model order, synchronously, without touching
// the Go heap. Tensor handles returned by Input and Output stay valid for the
// interpreter's lifetime.
package runtime

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sbl8/tinyml/core"
	"github.com/sbl8/tinyml/kernels"
	"github.com/sbl8/tinyml/model"
)

// Options configures interpreter behavior.
type Options struct {
	Logger      zerolog.Logger
	EnableStats bool
}

// ExecutionStats tracks runtime performance metrics.
type ExecutionStats struct {
	TotalExecutions  int64
	AverageLatency   time.Duration
	KernelExecutions map[uint8]int64
	ArenaUtilization float64
}

// Interpreter runs one model. It is not safe for concurrent Invoke calls.
type Interpreter struct {
	model    *model.Model
	resolver *kernels.Resolver
	buf      []byte
	opts     Options
	log      zerolog.Logger

	arena   *Arena
	tensors []*core.Tensor
	nodes   []kernels.Node
	regs    []*kernels.Registration

	inputs  []*core.Tensor
	outputs []*core.Tensor

	allocated bool

	mu    sync.RWMutex
	stats ExecutionStats
}

// NewInterpreter binds m, r and arena. Every opcode of m must be present in r.
func NewInterpreter(m *model.Model, r *kernels.Resolver, arena []byte, opts ...Options) (*Interpreter, error) {
	if m == nil {
		return nil, ErrNilModel
	}
	if r == nil {
		return nil, ErrNilResolver
	}

	it := &Interpreter{
		model:    m,
		resolver: r,
		buf:      arena,
		log:      zerolog.Nop(),
		stats:    ExecutionStats{KernelExecutions: make(map[uint8]int64)},
	}
	if len(opts) > 0 {
		it.opts = opts[0]
		it.log = opts[0].Logger
	}

	it.tensors = make([]*core.Tensor, len(m.Tensors))
	for i, t := range m.Tensors {
		it.tensors[i] = &core.Tensor{Index: i, Kind: t.Kind, DType: t.DType, Shape: t.Shape}
	}

	it.nodes = make([]kernels.Node, len(m.Operators))
	it.regs = make([]*kernels.Registration, len(m.Operators))
	for i, op := range m.Operators {
		reg, ok := r.Find(op.Opcode)
		if !ok {
			return nil, fmt.Errorf("%w: operator %d uses %s", ErrUnsupportedOp, i, kernels.Name(op.Opcode))
		}
		it.regs[i] = reg
		it.nodes[i] = kernels.Node{
			Opcode:     op.Opcode,
			Activation: op.Activation,
			Inputs:     it.lookup(op.Inputs),
			Outputs:    it.lookup(op.Outputs),
		}
	}

	it.inputs = []*core.Tensor{it.tensors[m.Input]}
	it.outputs = []*core.Tensor{it.tensors[m.Output]}
	return it, nil
}

func (it *Interpreter) lookup(indices []int) []*core.Tensor {
	out := make([]*core.Tensor, len(indices))
	for i, idx := range indices {
		if idx >= 0 {
			out[i] = it.tensors[idx]
		}
	}
	return out
}

// RequiredArenaSize returns the arena bytes m needs: every tensor rounded up
// to core.TensorAlignment, constants included.
func RequiredArenaSize(m *model.Model) int {
	c, a := regionSizes(m)
	return int(c + a)
}

func regionSizes(m *model.Model) (constants, activations uintptr) {
	for _, t := range m.Tensors {
		size := core.AlignUp(uintptr(t.SizeBytes()), core.TensorAlignment)
		if t.Kind == core.KindConstant {
			constants += size
		} else {
			activations += size
		}
	}
	return constants, activations
}

// AllocateTensors plans the arena, binds every tensor, copies constant data
// and prepares every operator. Calling it again after success is a no-op.
func (it *Interpreter) AllocateTensors() error {
	if it.allocated {
		return nil
	}

	constants, activations := regionSizes(it.model)
	arena, err := NewArena(it.buf, constants, activations)
	if err != nil {
		it.log.Error().Err(err).
			Int("required", int(constants+activations)).
			Int("arena", len(it.buf)).
			Msg("tensor allocation failed")
		return err
	}

	for i, t := range it.tensors {
		var buf []byte
		if t.Kind == core.KindConstant {
			buf, err = arena.AllocateConstant(uintptr(t.SizeBytes()))
		} else {
			buf, err = arena.AllocateActivation(uintptr(t.SizeBytes()))
		}
		if err != nil {
			return err
		}
		if err := t.Bind(buf); err != nil {
			return err
		}
		if t.Kind == core.KindConstant {
			copy(buf, it.model.TensorData(i))
		}
	}

	for i := range it.nodes {
		if prepare := it.regs[i].Prepare; prepare != nil {
			if err := prepare(&it.nodes[i]); err != nil {
				return fmt.Errorf("prepare operator %d: %w", i, err)
			}
		}
	}

	it.arena = arena
	it.allocated = true
	it.log.Debug().
		Uint64("used", uint64(arena.UsedSize())).
		Uint64("capacity", uint64(arena.TotalSize())).
		Int("tensors", len(it.tensors)).
		Int("operators", len(it.nodes)).
		Msg("tensors allocated")
	return nil
}

// Invoke runs every operator once, in model order.
func (it *Interpreter) Invoke() error {
	if !it.allocated {
		return ErrNotReady
	}

	var start time.Time
	if it.opts.EnableStats {
		start = time.Now()
	}

	for i := range it.nodes {
		if err := it.regs[i].Eval(&it.nodes[i]); err != nil {
			return fmt.Errorf("operator %d (%s): %w", i, it.regs[i].Name, err)
		}
	}

	if it.opts.EnableStats {
		it.updateExecutionStats(start)
	}
	return nil
}

func (it *Interpreter) updateExecutionStats(start time.Time) {
	duration := time.Since(start)

	it.mu.Lock()
	defer it.mu.Unlock()

	it.stats.TotalExecutions++
	n := it.stats.TotalExecutions
	it.stats.AverageLatency = time.Duration((int64(it.stats.AverageLatency)*(n-1) + int64(duration)) / n)
	for _, node := range it.nodes {
		it.stats.KernelExecutions[node.Opcode]++
	}
}

// Stats returns current execution statistics.
func (it *Interpreter) Stats() ExecutionStats {
	it.mu.RLock()
	defer it.mu.RUnlock()

	stats := it.stats
	stats.KernelExecutions = make(map[uint8]int64, len(it.stats.KernelExecutions))
	for k, v := range it.stats.KernelExecutions {
		stats.KernelExecutions[k] = v
	}
	if it.arena != nil {
		stats.ArenaUtilization = it.arena.Utilization()
	}
	return stats
}

// Input returns model input i, or nil when out of range.
func (it *Interpreter) Input(i int) *core.Tensor {
	if i < 0 || i >= len(it.inputs) {
		return nil
	}
	return it.inputs[i]
}

// Output returns model output i, or nil when out of range.
func (it *Interpreter) Output(i int) *core.Tensor {
	if i < 0 || i >= len(it.outputs) {
		return nil
	}
	return it.outputs[i]
}

// InputsSize returns the number of model inputs.
func (it *Interpreter) InputsSize() int { return len(it.inputs) }

// OutputsSize returns the number of model outputs.
func (it *Interpreter) OutputsSize() int { return len(it.outputs) }

// Tensor returns tensor i of the model, or nil when out of range.
func (it *Interpreter) Tensor(i int) *core.Tensor {
	if i < 0 || i >= len(it.tensors) {
		return nil
	}
	return it.tensors[i]
}

// ArenaUsedBytes returns the bytes committed by AllocateTensors, or 0 before.
func (it *Interpreter) ArenaUsedBytes() int {
	if it.arena == nil {
		return 0
	}
	return int(it.arena.UsedSize())
}

// ArenaSize returns the length of the arena slice handed to NewInterpreter.
func (it *Interpreter) ArenaSize() int {
	return len(it.buf)
}
