package kernels

import "github.com/klauspost/cpuid/v2"

const unrollFactor = 4

// dot is the inner product used by FullyConnected, chosen at init from the
// host CPU features.
var dot = dotScalar

var vectorized bool

func init() {
	if cpuid.CPU.Supports(cpuid.AVX2, cpuid.FMA3) || cpuid.CPU.Supports(cpuid.ASIMD) {
		dot = dotUnrolled
		vectorized = true
	}
}

// Vectorized reports whether the unrolled dot product was selected.
func Vectorized() bool {
	return vectorized
}

func dotScalar(a, b []float32) float32 {
	b = b[:len(a)]
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// dotUnrolled keeps four independent accumulators so wide cores can overlap
// the multiply-adds.
func dotUnrolled(a, b []float32) float32 {
	b = b[:len(a)]
	var s0, s1, s2, s3 float32
	i := 0
	for ; i+unrollFactor <= len(a); i += unrollFactor {
		s0 += a[i] * b[i]
		s1 += a[i+1] * b[i+1]
		s2 += a[i+2] * b[i+2]
		s3 += a[i+3] * b[i+3]
	}
	for ; i < len(a); i++ {
		s0 += a[i] * b[i]
	}
	return (s0 + s1) + (s2 + s3)
}

func applyActivation(act uint8, v []float32) {
	switch act {
	case ActReLU:
		relu(v, v)
	case ActReLU6:
		for i, x := range v {
			if x < 0 {
				v[i] = 0
			} else if x > 6 {
				v[i] = 6
			}
		}
	}
}
