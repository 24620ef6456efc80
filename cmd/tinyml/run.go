package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/sbl8/tinyml/assets"
	"github.com/sbl8/tinyml/board"
	"github.com/sbl8/tinyml/kernels"
	"github.com/sbl8/tinyml/logging"
	"github.com/sbl8/tinyml/pipeline"
	"github.com/sbl8/tinyml/psram"
)

func newRunCmd(a *app) *cobra.Command {
	var imagePath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Set up the pipeline and classify the input image every cycle",
		Example: "  tinyml run\n" +
			"  tinyml run --cycles 3 --delay 100ms\n" +
			"  tinyml run --metrics-addr :9090",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("cycles") {
				a.settings.MaxCycles, _ = flags.GetInt("cycles")
			}
			if flags.Changed("delay") {
				a.settings.CycleDelay, _ = flags.GetString("delay")
			}
			if flags.Changed("metrics-addr") {
				a.settings.MetricsAddr, _ = flags.GetString("metrics-addr")
			}
			delay, err := a.settings.Delay()
			if err != nil {
				return err
			}

			var image []byte
			if imagePath != "" {
				if image, err = os.ReadFile(imagePath); err != nil {
					return err
				}
			}

			pool, err := board.InitPSRAM(a.settings.PoolBytes, logging.Component(a.log, "psram"))
			if err != nil {
				return err
			}

			if a.settings.MetricsAddr != "" {
				srv := serveMetrics(a, pool)
				defer srv.Close()
			}

			p, err := pipeline.Setup(pool, assets.Model, kernels.AllOps(), pipeline.Options{
				Logger:    logging.Component(a.log, "pipeline"),
				Report:    cmd.OutOrStdout(),
				Delay:     delay,
				MaxCycles: a.settings.MaxCycles,
				Image:     image,
			})
			if err != nil {
				return err
			}
			defer p.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return p.Run(ctx)
		},
	}

	cmd.Flags().Int("cycles", 0, "Stop after this many cycles (0 runs forever)")
	cmd.Flags().String("delay", "", "Delay between cycles, must be positive (default 5s)")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&imagePath, "image", "", "Raw 28x28 grayscale image (default: embedded digit)")
	return cmd
}

func serveMetrics(a *app, pool *psram.Pool) *http.Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(psram.NewCollector(pool))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(
		prometheus.Gatherers{prometheus.DefaultGatherer, reg},
		promhttp.HandlerOpts{},
	))
	srv := &http.Server{
		Addr:              a.settings.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error().Err(err).Str("addr", srv.Addr).Msg("metrics listener failed")
		}
	}()
	a.log.Info().Str("addr", srv.Addr).Msg("serving metrics")
	return srv
}
