package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "board.yaml", "pool_bytes: 4096\ncycle_delay: 250ms\nmax_cycles: 3\nlog_level: debug\n")
	s, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.PoolBytes != 4096 || s.CycleDelay != "250ms" || s.MaxCycles != 3 || s.LogLevel != "debug" {
		t.Fatalf("unexpected settings: %+v", s)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "board.json", `{"pool_bytes":2048,"cycle_delay":"1s","metrics_addr":":9100"}`)
	s, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.PoolBytes != 2048 || s.MetricsAddr != ":9100" {
		t.Fatalf("unexpected settings: %+v", s)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "board.toml", "pool_bytes=1024\ncycle_delay=\"2s\"\nlog_file=\"/tmp/tinyml.log\"\n")
	s, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.PoolBytes != 1024 || s.LogFile != "/tmp/tinyml.log" {
		t.Fatalf("unexpected settings: %+v", s)
	}
	delay, err := s.Delay()
	if err != nil || delay != 2*time.Second {
		t.Fatalf("delay = %v, %v", delay, err)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	if _, err := Load(writeTempFile(t, d, "board.ini", "x=1")); err == nil {
		t.Fatalf("expected error on unsupported extension")
	}
	if _, err := Load(writeTempFile(t, d, "bad.yaml", "cycle_delay: soon\n")); err == nil {
		t.Fatalf("expected error on invalid cycle_delay")
	}
	if _, err := Load(filepath.Join(d, "missing.toml")); err == nil {
		t.Fatalf("expected error on missing file")
	}
}

func TestDelayMustBePositive(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", CycleDelay, false},
		{"1ms", time.Millisecond, false},
		{"0s", 0, true},
		{"0", 0, true},
		{"-1s", 0, true},
	}
	for _, tc := range tests {
		got, err := Settings{CycleDelay: tc.in}.Delay()
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("Delay(%q) = %v, %v; want %v, err=%v", tc.in, got, err, tc.want, tc.wantErr)
		}
	}
}

func TestWithDefaults(t *testing.T) {
	t.Parallel()
	s := Settings{}.WithDefaults()
	if s.PoolBytes != DefaultPoolBytes || s.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	delay, err := s.Delay()
	if err != nil || delay != CycleDelay {
		t.Fatalf("delay = %v, %v", delay, err)
	}

	keep := Settings{PoolBytes: 77, LogLevel: "warn", CycleDelay: "10ms"}.WithDefaults()
	if keep.PoolBytes != 77 || keep.LogLevel != "warn" || keep.CycleDelay != "10ms" {
		t.Fatalf("defaults overwrote explicit values: %+v", keep)
	}
}

func TestArenaFitsInputBuffer(t *testing.T) {
	t.Parallel()
	if InputSize != 784 {
		t.Fatalf("InputSize = %d, want 784", InputSize)
	}
	if TensorArenaSize < InputSize*4 {
		t.Fatalf("arena %d cannot hold the input tensor", TensorArenaSize)
	}
}
