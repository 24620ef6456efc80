// Package tinyml emulates a microcontroller inference pipeline that keeps
// every large buffer in an external PSRAM-class memory pool.
//
// The device loads a small neural network from an embedded binary blob
// (MNIST topology with synthetic deterministic weights),
// places a fixed-size tensor arena inside the external pool, copies a 28x28
// grayscale image into the model input, runs inference and reports the
// highest-scoring class. All memory is planned at startup; the inference
// loop never allocates.
//
// # Architecture Overview
//
//   - psram: fixed-capacity external pool with fallible allocation and usage statistics
//   - model: versioned binary model format, loader and validator
//   - kernels: numeric operators and the opcode resolver
//   - runtime: arena-backed interpreter (AllocateTensors, Invoke)
//   - pipeline: setup, inference cycle, arg-max classifier, diagnostic report
//   - board: PSRAM bring-up, boot banner, self-test, status LED
//
// # Basic Usage
//
//	// Run three cycles one second apart
//	tinyml run --cycles 3 --delay 1s
//
//	// Describe the embedded model and its arena footprint
//	tinyml inspect
//
//	// Measure inference latency
//	tinyml bench --iter 1000
//
// # Memory Model
//
// Setup acquires three blocks from the pool: a copy of the model blob, the
// 100 KiB tensor arena and the input image buffer. The arena holds a working
// copy of every constant tensor followed by every activation tensor, each on
// a 16-byte boundary. If any acquisition fails, initialization halts and the
// blocks acquired so far are returned to the pool.
package tinyml
