package kernels

import (
	"math/rand"
	"testing"

	"github.com/sbl8/tinyml/core"
)

func generateRandomFloat32(size int) []float32 {
	data := make([]float32, size)
	for i := range data {
		data[i] = rand.Float32()*2 - 1
	}
	return data
}

func BenchmarkDotScalar_784(b *testing.B) {
	x := generateRandomFloat32(784)
	y := generateRandomFloat32(784)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = dotScalar(x, y)
	}
}

func BenchmarkDotUnrolled_784(b *testing.B) {
	x := generateRandomFloat32(784)
	y := generateRandomFloat32(784)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = dotUnrolled(x, y)
	}
}

func BenchmarkFullyConnected_784x16(b *testing.B) {
	in := tensor(b, generateRandomFloat32(784), 1, 784)
	w := tensor(b, generateRandomFloat32(16*784), 16, 784)
	bias := tensor(b, generateRandomFloat32(16), 16)
	out := tensor(b, nil, 1, 16)
	n := &Node{Opcode: OpFullyConnected, Activation: ActReLU, Inputs: []*core.Tensor{in, w, bias}, Outputs: []*core.Tensor{out}}
	if err := prepareFullyConnected(n); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = evalFullyConnected(n)
	}
}

func BenchmarkSoftmax_10(b *testing.B) {
	in := tensor(b, generateRandomFloat32(10), 1, 10)
	out := tensor(b, nil, 1, 10)
	n := &Node{Opcode: OpSoftmax, Inputs: []*core.Tensor{in}, Outputs: []*core.Tensor{out}}
	if err := prepareSoftmax(n); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = evalSoftmax(n)
	}
}
