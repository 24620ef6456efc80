package assets

import (
	"encoding/binary"
	"testing"

	"github.com/sbl8/tinyml/config"
)

func TestDigitImage(t *testing.T) {
	t.Parallel()

	if got, want := len(Digit), config.InputSize; got != want {
		t.Fatalf("len(Digit) = %d, want %d", got, want)
	}
	lit := 0
	for _, px := range Digit {
		if px > 0 {
			lit++
		}
	}
	if lit == 0 {
		t.Fatal("digit image is blank")
	}
}

func TestModelHeader(t *testing.T) {
	t.Parallel()

	if len(Model) < 32 {
		t.Fatalf("len(Model) = %d", len(Model))
	}
	if magic := binary.LittleEndian.Uint32(Model[0:]); magic != 0x4C444D54 {
		t.Fatalf("magic = %#x", magic)
	}
	if v := binary.LittleEndian.Uint32(Model[4:]); v != config.SchemaVersion {
		t.Fatalf("schema version = %d, want %d", v, config.SchemaVersion)
	}
}
