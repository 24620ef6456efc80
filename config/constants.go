// Package config holds the build-time constants of the inference pipeline and
// the host settings used when the device is emulated on a workstation.
//
// The constants size every static buffer in the system. Changing one of them
// is a rebuild, never a runtime flag: the tensor arena contract and the model
// input/output shapes are derived from them.
package config

import "time"

const (
	// ImageSide is the width and height of the grayscale input image.
	ImageSide = 28

	// InputSize is the number of float32 samples fed to the model per cycle.
	InputSize = ImageSide * ImageSide

	// NumClasses is the number of scores produced by the model.
	NumClasses = 10

	// TensorArenaSize is the byte size of the tensor arena carved from
	// external memory.
	TensorArenaSize = 100 * 1024

	// SchemaVersion is the model format revision this runtime accepts.
	SchemaVersion = 3

	// CycleDelay is the pause between two inference cycles.
	CycleDelay = 5 * time.Second
)
