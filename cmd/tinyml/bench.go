package main

import (
	"fmt"
	goruntime "runtime"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/sbl8/tinyml/assets"
	"github.com/sbl8/tinyml/board"
	"github.com/sbl8/tinyml/kernels"
	"github.com/sbl8/tinyml/logging"
	"github.com/sbl8/tinyml/pipeline"
	"github.com/sbl8/tinyml/psram"
)

func newBenchCmd(a *app) *cobra.Command {
	var iter int

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure inference latency of the embedded model",
		RunE: func(cmd *cobra.Command, args []string) error {
			if iter <= 0 {
				return fmt.Errorf("--iter must be positive, got %d", iter)
			}
			out := cmd.OutOrStdout()
			info := board.Describe()

			fmt.Fprintf(out, "TinyML Performance Analysis\n")
			fmt.Fprintf(out, "===========================\n")
			fmt.Fprintf(out, "Go Version: %s\n", goruntime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", goruntime.GOOS, goruntime.GOARCH)
			fmt.Fprintf(out, "CPU: %s (%d cores, %d threads)\n", info.CPU, info.Cores, info.Threads)
			fmt.Fprintf(out, "Vectorized dot: %t\n", info.Vectorized)
			fmt.Fprintf(out, "Iterations: %d\n\n", iter)

			pool, err := psram.Init(a.settings.PoolBytes, psram.WithLogger(logging.Component(a.log, "psram")))
			if err != nil {
				return err
			}
			p, err := pipeline.Setup(pool, assets.Model, kernels.AllOps(), pipeline.Options{
				Logger: logging.Component(a.log, "pipeline"),
				Stats:  true,
			})
			if err != nil {
				return err
			}
			defer p.Close()

			interp := p.Interpreter()
			start := time.Now()
			for i := 0; i < iter; i++ {
				if _, err := pipeline.RunCycle(interp, p.Input()); err != nil {
					return err
				}
			}
			elapsed := time.Since(start)

			stats := interp.Stats()
			fmt.Fprintf(out, "Total:           %v\n", elapsed)
			fmt.Fprintf(out, "Average latency: %v\n", stats.AverageLatency)
			fmt.Fprintf(out, "Throughput:      %.1f inferences/s\n", float64(iter)/elapsed.Seconds())
			fmt.Fprintf(out, "Arena:           %d / %d bytes (%.1f%%)\n",
				interp.ArenaUsedBytes(), interp.ArenaSize(), stats.ArenaUtilization*100)

			ops := make([]int, 0, len(stats.KernelExecutions))
			for op := range stats.KernelExecutions {
				ops = append(ops, int(op))
			}
			sort.Ints(ops)
			for _, op := range ops {
				fmt.Fprintf(out, "  %-16s %d\n", kernels.Name(uint8(op)), stats.KernelExecutions[uint8(op)])
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&iter, "iter", 1000, "Number of inferences")
	return cmd
}
