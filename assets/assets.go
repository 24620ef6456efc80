// Package assets embeds the bundled classifier model and the sample digit
// fed to it on every inference cycle.
package assets

import _ "embed"

// Model is a classifier with the MNIST topology in the binary model format:
// FC(784->16, ReLU), FC(16->10), Softmax. Its weights are synthetic and
// deterministic, not trained, so every class scores close to 0.1.
//
//go:embed mnist.tmdl
var Model []byte

// Digit is a 28x28 grayscale image of a handwritten "7", one byte per pixel,
// row-major.
//
//go:embed digit7.raw
var Digit []byte
