package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sbl8/tinyml/assets"
	"github.com/sbl8/tinyml/board"
	"github.com/sbl8/tinyml/config"
	"github.com/sbl8/tinyml/kernels"
	"github.com/sbl8/tinyml/logging"
	"github.com/sbl8/tinyml/model"
	"github.com/sbl8/tinyml/pipeline"
	"github.com/sbl8/tinyml/psram"
	"github.com/sbl8/tinyml/runtime"
)

func newStatsCmd(a *app) *cobra.Command {
	var setup bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print external memory pool statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := psram.Init(a.settings.PoolBytes, psram.WithLogger(logging.Component(a.log, "psram")))
			if err != nil {
				return err
			}
			if setup {
				p, err := pipeline.Setup(pool, assets.Model, kernels.AllOps(), pipeline.Options{
					Logger: logging.Component(a.log, "pipeline"),
				})
				if err != nil {
					return err
				}
				defer p.Close()
			}

			s := pool.Stats()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Initialized:        %t\n", s.Initialized)
			fmt.Fprintf(out, "Capacity:           %d\n", s.Capacity)
			fmt.Fprintf(out, "Total free:         %d\n", s.TotalFree)
			fmt.Fprintf(out, "Total allocated:    %d\n", s.TotalAllocated)
			fmt.Fprintf(out, "Largest free block: %d\n", s.LargestFreeBlock)
			fmt.Fprintf(out, "Minimum free:       %d\n", s.MinimumFree)
			fmt.Fprintf(out, "Allocated blocks:   %d\n", s.AllocatedBlocks)
			fmt.Fprintf(out, "Free blocks:        %d\n", s.FreeBlocks)
			fmt.Fprintf(out, "Total blocks:       %d\n", s.TotalBlocks)
			fmt.Fprintf(out, "Fragmentation:      %.3f\n", s.Fragmentation())
			return nil
		},
	}

	cmd.Flags().BoolVar(&setup, "setup", true, "Allocate the pipeline buffers before reading statistics")
	return cmd
}

func newSelfTestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "selftest",
		Short: "Initialize the external memory pool and write/read a test block",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.Component(a.log, "psram")
			pool, err := board.InitPSRAM(a.settings.PoolBytes, log)
			if err != nil {
				return err
			}
			if err := board.SelfTest(pool, log); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "PSRAM self-test passed")
			return nil
		},
	}
}

func newBlinkCmd(a *app) *cobra.Command {
	var (
		pixels int
		wait   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "blink",
		Short: "Run the status LED turn-off routine",
		RunE: func(cmd *cobra.Command, args []string) error {
			if pixels <= 0 {
				return fmt.Errorf("--pixels must be positive, got %d", pixels)
			}
			strip := board.NewLogPixel(pixels, logging.Component(a.log, "led"))
			board.TurnOffLED(strip, func(time.Duration) { time.Sleep(wait) })
			fmt.Fprintf(cmd.OutOrStdout(), "%d pixel(s) off after %d updates\n", strip.NumPixels(), strip.Shown())
			return nil
		},
	}

	cmd.Flags().IntVar(&pixels, "pixels", 1, "Number of pixels on the strip")
	cmd.Flags().DurationVar(&wait, "wait", board.LEDDelay, "Pause after each pixel update")
	return cmd
}

func newInspectCmd(a *app) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Describe a model blob and its arena requirements",
		RunE: func(cmd *cobra.Command, args []string) error {
			blob := assets.Model
			if path != "" {
				b, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				blob = b
			}

			m, err := model.Load(blob)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, m.Describe())

			resolver := kernels.AllOps()
			for i, op := range m.Operators {
				if _, ok := resolver.Find(op.Opcode); !ok {
					fmt.Fprintf(out, "op %d: %s is not supported\n", i, kernels.Name(op.Opcode))
				}
			}

			required := runtime.RequiredArenaSize(m)
			fmt.Fprintf(out, "arena: %d of %d bytes required\n", required, config.TensorArenaSize)
			if required > config.TensorArenaSize {
				return fmt.Errorf("%w: model needs %d bytes", runtime.ErrArenaTooSmall, required)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "model", "", "Model file (default: embedded model)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tinyml %s (model schema %d)\n", version, config.SchemaVersion)
		},
	}
}
