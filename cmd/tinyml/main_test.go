package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"version", []string{"version"}, []string{"tinyml dev", "schema 3"}},
		{"inspect", []string{"inspect"}, []string{"3 operators", "arena: 54224 of 102400 bytes required"}},
		{"run", []string{"run", "--cycles", "2", "--delay", "1ms"}, []string{"TinyML successfully started!", "Class[9] = ", "The predicted number is: "}},
		{"stats", []string{"stats"}, []string{"Allocated blocks:   3", "Initialized:        true"}},
		{"stats without setup", []string{"stats", "--setup=false"}, []string{"Total allocated:    0"}},
		{"selftest", []string{"selftest", "--log-level", "error"}, []string{"PSRAM self-test passed"}},
		{"blink", []string{"blink", "--pixels", "2", "--wait", "0s"}, []string{"2 pixel(s) off after 2 updates"}},
		{"bench", []string{"bench", "--iter", "5"}, []string{"Average latency", "FULLY_CONNECTED  10", "SOFTMAX          5"}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			out, err := execute(t, tc.args...)
			if err != nil {
				t.Fatalf("%v: %v", tc.args, err)
			}
			for _, want := range tc.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestRunReportsPerCycle(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "run", "--cycles", "3", "--delay", "1ms")
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(out, "The predicted number is: "); n != 3 {
		t.Errorf("got %d predictions, want 3:\n%s", n, out)
	}
}

func TestConfigFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tinyml.yaml")
	if err := os.WriteFile(path, []byte("pool_bytes: 65536\nlog_level: error\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	// 64 KiB cannot hold the tensor arena
	if _, err := execute(t, "--config", path, "run", "--cycles", "1"); err == nil || !strings.Contains(err.Error(), "out of memory") {
		t.Errorf("run with small pool = %v, want out of memory", err)
	}
	// The flag overrides the file
	if _, err := execute(t, "--config", path, "--pool-bytes", "1048576", "run", "--cycles", "1", "--delay", "1ms"); err != nil {
		t.Errorf("run with flag override: %v", err)
	}
}

func TestErrors(t *testing.T) {
	t.Parallel()

	tests := [][]string{
		{"--log-level", "loud", "version"},
		{"--config", "missing.yaml", "version"},
		{"run", "--delay", "soon"},
		{"run", "--delay", "0s"},
		{"--pool-bytes", "0", "selftest"},
		{"inspect", "--model", "missing.tmdl"},
		{"bench", "--iter", "0"},
	}
	for _, args := range tests {
		if _, err := execute(t, args...); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}
