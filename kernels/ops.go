// Package kernels implements the numeric operators a model can reference and
// the resolver the interpreter uses to look them up by opcode.
//
// Every operator is a Registration with two phases. Prepare runs once when
// the interpreter allocates tensors and checks shapes and operands; Eval runs
// on every invocation and must not allocate. Operators read and write tensor
// storage in place, so all buffers live in the tensor arena.
//
// Available operations:
//   - FullyConnected with optional bias and fused ReLU/ReLU6
//   - Activations: ReLU, Logistic, Tanh, Softmax
//   - Element-wise Add and Mul with scalar broadcast
//   - Reshape
package kernels

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sbl8/tinyml/core"
)

// Operator codes as stored in the model operator table.
const (
	OpFullyConnected uint8 = 0x02
	OpReLU           uint8 = 0x03
	OpLogistic       uint8 = 0x04
	OpTanh           uint8 = 0x05
	OpAdd            uint8 = 0x06
	OpMul            uint8 = 0x07
	OpSoftmax        uint8 = 0x0A
	OpReshape        uint8 = 0x0B
)

// Fused activations, matching the codes in the model operator table.
const (
	ActNone  uint8 = 0
	ActReLU  uint8 = 1
	ActReLU6 uint8 = 2
)

var (
	// ErrInvalidNode is returned by Prepare when operands do not fit the operator.
	ErrInvalidNode = errors.New("kernels: invalid node")
	// ErrNonFinite is returned by Eval when an operator meets NaN or Inf.
	ErrNonFinite = errors.New("kernels: non-finite value")
	// ErrDuplicateOp is returned when an opcode is registered twice.
	ErrDuplicateOp = errors.New("kernels: opcode already registered")
)

// Node is one operator instance bound to arena tensors. Absent optional
// inputs are nil.
type Node struct {
	Opcode     uint8
	Activation uint8
	Inputs     []*core.Tensor
	Outputs    []*core.Tensor

	// UserData carries state computed by Prepare for Eval.
	UserData any
}

// Input returns input i, or nil when it is absent.
func (n *Node) Input(i int) *core.Tensor {
	if i >= len(n.Inputs) {
		return nil
	}
	return n.Inputs[i]
}

// Output returns output i, or nil when it is absent.
func (n *Node) Output(i int) *core.Tensor {
	if i >= len(n.Outputs) {
		return nil
	}
	return n.Outputs[i]
}

// Registration is the implementation of one opcode.
type Registration struct {
	Name    string
	Prepare func(n *Node) error
	Eval    func(n *Node) error
}

// Resolver maps opcodes to registrations.
type Resolver struct {
	regs [256]*Registration
}

// NewResolver returns an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// AllOps returns a resolver with every built-in operator registered.
func AllOps() *Resolver {
	r := NewResolver()
	for op, reg := range builtins {
		if reg != nil {
			r.regs[op] = reg
		}
	}
	return r
}

// Add registers reg under op.
func (r *Resolver) Add(op uint8, reg Registration) error {
	if r.regs[op] != nil {
		return fmt.Errorf("%w: %#02x (%s)", ErrDuplicateOp, op, r.regs[op].Name)
	}
	if reg.Eval == nil {
		return fmt.Errorf("kernels: opcode %#02x registered without Eval", op)
	}
	r.regs[op] = &reg
	return nil
}

// Find returns the registration for op.
func (r *Resolver) Find(op uint8) (*Registration, bool) {
	reg := r.regs[op]
	return reg, reg != nil
}

// Opcodes returns the registered opcodes in ascending order.
func (r *Resolver) Opcodes() []uint8 {
	var ops []uint8
	for op, reg := range r.regs {
		if reg != nil {
			ops = append(ops, uint8(op))
		}
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// Name returns the built-in operator name for op.
func Name(op uint8) string {
	if reg := builtins[op]; reg != nil {
		return reg.Name
	}
	return fmt.Sprintf("op(%#02x)", op)
}

var builtins [256]*Registration

func init() {
	builtins[OpFullyConnected] = &Registration{Name: "FULLY_CONNECTED", Prepare: prepareFullyConnected, Eval: evalFullyConnected}
	builtins[OpReLU] = &Registration{Name: "RELU", Prepare: prepareUnary, Eval: unaryOp(relu)}
	builtins[OpLogistic] = &Registration{Name: "LOGISTIC", Prepare: prepareUnary, Eval: unaryOp(logistic)}
	builtins[OpTanh] = &Registration{Name: "TANH", Prepare: prepareUnary, Eval: unaryOp(tanh)}
	builtins[OpAdd] = &Registration{Name: "ADD", Prepare: prepareBinary, Eval: binaryOp(add)}
	builtins[OpMul] = &Registration{Name: "MUL", Prepare: prepareBinary, Eval: binaryOp(mul)}
	builtins[OpSoftmax] = &Registration{Name: "SOFTMAX", Prepare: prepareSoftmax, Eval: evalSoftmax}
	builtins[OpReshape] = &Registration{Name: "RESHAPE", Prepare: prepareReshape, Eval: evalReshape}
}

func invalid(n *Node, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidNode, Name(n.Opcode), fmt.Sprintf(format, args...))
}

func nonFinite(n *Node, v float32) error {
	return fmt.Errorf("%w: %s: %v", ErrNonFinite, Name(n.Opcode), v)
}

// requireFloat32 checks that the listed operands are present float32 tensors.
func requireFloat32(n *Node, tensors ...*core.Tensor) error {
	for _, t := range tensors {
		if t == nil {
			return invalid(n, "missing operand")
		}
		if t.DType != core.DTypeFloat32 {
			return invalid(n, "tensor %d is %s", t.Index, t.DType)
		}
	}
	return nil
}

func checkActivation(n *Node) error {
	switch n.Activation {
	case ActNone, ActReLU, ActReLU6:
		return nil
	default:
		return invalid(n, "unknown fused activation %d", n.Activation)
	}
}
