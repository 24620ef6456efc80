package runtime

import "errors"

// Initialization errors. Interpreter construction and tensor allocation
// return errors wrapping one of these.
var (
	ErrArenaTooSmall = errors.New("runtime: tensor arena too small")
	ErrUnsupportedOp = errors.New("runtime: unsupported operator")
	ErrNilModel      = errors.New("runtime: nil model")
	ErrNilResolver   = errors.New("runtime: nil op resolver")
)

// ErrNotReady is returned by Invoke before AllocateTensors has succeeded.
var ErrNotReady = errors.New("runtime: tensors not allocated")
