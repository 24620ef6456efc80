package kernels

type fcParams struct {
	batch int
	depth int
	units int
}

// prepareFullyConnected expects input [..., depth], weights [units, depth],
// an optional bias [units] and output [batch, units].
func prepareFullyConnected(n *Node) error {
	in, weights, bias, out := n.Input(0), n.Input(1), n.Input(2), n.Output(0)
	if err := requireFloat32(n, in, weights, out); err != nil {
		return err
	}
	if err := checkActivation(n); err != nil {
		return err
	}
	if len(weights.Shape) != 2 {
		return invalid(n, "weights must be rank 2, got %v", weights.Shape)
	}

	p := fcParams{units: weights.Shape[0], depth: weights.Shape[1]}
	if p.units <= 0 || p.depth <= 0 {
		return invalid(n, "empty weights %v", weights.Shape)
	}
	if in.NumElements()%p.depth != 0 {
		return invalid(n, "input %v is not a multiple of depth %d", in.Shape, p.depth)
	}
	p.batch = in.NumElements() / p.depth
	if out.NumElements() != p.batch*p.units {
		return invalid(n, "output %v, want %d x %d", out.Shape, p.batch, p.units)
	}
	if bias != nil {
		if err := requireFloat32(n, bias); err != nil {
			return err
		}
		if bias.NumElements() != p.units {
			return invalid(n, "bias %v, want %d units", bias.Shape, p.units)
		}
	}

	n.UserData = p
	return nil
}

func evalFullyConnected(n *Node) error {
	p := n.UserData.(fcParams)
	in := n.Inputs[0].Float32()
	weights := n.Inputs[1].Float32()
	out := n.Outputs[0].Float32()

	var bias []float32
	if b := n.Input(2); b != nil {
		bias = b.Float32()
	}

	for b := 0; b < p.batch; b++ {
		x := in[b*p.depth : (b+1)*p.depth]
		y := out[b*p.units : (b+1)*p.units]
		for u := range y {
			acc := dot(x, weights[u*p.depth:(u+1)*p.depth])
			if bias != nil {
				acc += bias[u]
			}
			y[u] = acc
		}
	}

	applyActivation(n.Activation, out)
	return nil
}
