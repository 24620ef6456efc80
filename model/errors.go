package model

import (
	"errors"
	"fmt"
)

var (
	// ErrBadMagic is returned when a blob does not start with Magic.
	ErrBadMagic = errors.New("model: invalid magic number")
	// ErrMalformed is returned for truncated or inconsistent blobs.
	ErrMalformed = errors.New("model: malformed blob")
	// ErrSchema matches every *SchemaError.
	ErrSchema = errors.New("model: schema version mismatch")
)

// SchemaError reports a blob whose schema version differs from the runtime's.
type SchemaError struct {
	Got  uint32
	Want uint32
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("incorrect version of model: schema %d, runtime expects %d", e.Got, e.Want)
}

// Is makes errors.Is(err, ErrSchema) hold for any SchemaError.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}
