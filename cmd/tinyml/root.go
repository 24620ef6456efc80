package main

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sbl8/tinyml/config"
	"github.com/sbl8/tinyml/logging"
)

// version is set at link time.
var version = "dev"

// app carries the resolved settings and logger to every subcommand.
type app struct {
	configPath string
	settings   config.Settings
	log        zerolog.Logger
	closer     io.Closer
}

func newRootCmd() *cobra.Command {
	a := &app{settings: config.Settings{}.WithDefaults()}

	root := &cobra.Command{
		Use:           "tinyml",
		Short:         "PSRAM-backed TinyML digit classifier",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Settings file (.yaml, .yml, .json or .toml)")
	pf.String("log-level", a.settings.LogLevel, "Log level: debug|info|warn|error")
	pf.String("log-file", "", "Also write JSON logs to this file")
	pf.Int("pool-bytes", a.settings.PoolBytes, "Emulated PSRAM capacity in bytes")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if a.configPath != "" {
			s, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.settings = s.WithDefaults()
		}
		// Explicit flags win over the settings file
		flags := cmd.Flags()
		if flags.Changed("log-level") {
			a.settings.LogLevel, _ = flags.GetString("log-level")
		}
		if flags.Changed("log-file") {
			a.settings.LogFile, _ = flags.GetString("log-file")
		}
		if flags.Changed("pool-bytes") {
			a.settings.PoolBytes, _ = flags.GetInt("pool-bytes")
		}

		log, closer, err := logging.New(logging.Options{
			Level:  a.settings.LogLevel,
			File:   a.settings.LogFile,
			Writer: cmd.ErrOrStderr(),
		})
		if err != nil {
			return err
		}
		a.log, a.closer = log, closer
		return nil
	}
	root.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if a.closer != nil {
			return a.closer.Close()
		}
		return nil
	}

	root.AddCommand(
		newRunCmd(a),
		newBenchCmd(a),
		newStatsCmd(a),
		newSelfTestCmd(a),
		newBlinkCmd(a),
		newInspectCmd(a),
		newVersionCmd(),
	)
	return root
}
