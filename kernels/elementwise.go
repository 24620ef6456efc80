package kernels

import (
	"math"

	"github.com/sbl8/tinyml/core"
)

func prepareUnary(n *Node) error {
	in, out := n.Input(0), n.Output(0)
	if err := requireFloat32(n, in, out); err != nil {
		return err
	}
	if in.NumElements() != out.NumElements() {
		return invalid(n, "input has %d elements, output %d", in.NumElements(), out.NumElements())
	}
	return nil
}

// unaryOp adapts an element-wise function to an Eval. dst and src may alias.
func unaryOp(fn func(dst, src []float32)) func(*Node) error {
	return func(n *Node) error {
		fn(n.Outputs[0].Float32(), n.Inputs[0].Float32())
		return nil
	}
}

func relu(dst, src []float32) {
	for i, x := range src {
		if x < 0 {
			x = 0
		}
		dst[i] = x
	}
}

func logistic(dst, src []float32) {
	for i, x := range src {
		dst[i] = float32(1 / (1 + math.Exp(-float64(x))))
	}
}

func tanh(dst, src []float32) {
	for i, x := range src {
		dst[i] = float32(math.Tanh(float64(x)))
	}
}

func prepareBinary(n *Node) error {
	a, b, out := n.Input(0), n.Input(1), n.Output(0)
	if err := requireFloat32(n, a, b, out); err != nil {
		return err
	}
	if err := checkActivation(n); err != nil {
		return err
	}
	if a.NumElements() != out.NumElements() {
		return invalid(n, "input has %d elements, output %d", a.NumElements(), out.NumElements())
	}
	if b.NumElements() != a.NumElements() && b.NumElements() != 1 {
		return invalid(n, "cannot broadcast %v to %v", b.Shape, a.Shape)
	}
	return nil
}

// binaryOp adapts an element-wise operator with scalar broadcast of the second
// operand and a fused activation.
func binaryOp(fn func(x, y float32) float32) func(*Node) error {
	return func(n *Node) error {
		a := n.Inputs[0].Float32()
		b := n.Inputs[1].Float32()
		out := n.Outputs[0].Float32()
		if len(b) == 1 {
			y := b[0]
			for i, x := range a {
				out[i] = fn(x, y)
			}
		} else {
			for i, x := range a {
				out[i] = fn(x, b[i])
			}
		}
		applyActivation(n.Activation, out)
		return nil
	}
}

func add(x, y float32) float32 { return x + y }
func mul(x, y float32) float32 { return x * y }

func prepareReshape(n *Node) error {
	in, out := n.Input(0), n.Output(0)
	if err := requireFloat32(n, in, out); err != nil {
		return err
	}
	if in.NumElements() != out.NumElements() {
		return invalid(n, "cannot reshape %v to %v", in.Shape, out.Shape)
	}
	return nil
}

func evalReshape(n *Node) error {
	copy(n.Outputs[0].Bytes(), n.Inputs[0].Bytes())
	return nil
}

func prepareSoftmax(n *Node) error {
	if err := prepareUnary(n); err != nil {
		return err
	}
	n.UserData = lastDim(n.Inputs[0])
	return nil
}

// evalSoftmax normalizes each row along the last dimension.
func evalSoftmax(n *Node) error {
	in := n.Inputs[0].Float32()
	out := n.Outputs[0].Float32()
	depth := n.UserData.(int)

	for row := 0; row+depth <= len(in); row += depth {
		src, dst := in[row:row+depth], out[row:row+depth]

		maxVal := float32(math.Inf(-1))
		for _, x := range src {
			if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
				return nonFinite(n, x)
			}
			if x > maxVal {
				maxVal = x
			}
		}

		var sum float32
		for i, x := range src {
			e := float32(math.Exp(float64(x - maxVal)))
			dst[i] = e
			sum += e
		}

		inv := 1 / sum
		for i := range dst {
			dst[i] *= inv
		}
	}
	return nil
}

func lastDim(t *core.Tensor) int {
	if len(t.Shape) == 0 {
		return t.NumElements()
	}
	return t.Shape[len(t.Shape)-1]
}
