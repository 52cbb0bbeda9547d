// ABOUTME: Entry point for the radiodeck internet radio player
// ABOUTME: Cobra root command that loads config, sets up logging and runs the player
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Resonate-Protocol/radiodeck/internal/app"
	"github.com/Resonate-Protocol/radiodeck/internal/config"
	"github.com/Resonate-Protocol/radiodeck/internal/logging"
	"github.com/Resonate-Protocol/radiodeck/internal/version"
	"github.com/spf13/cobra"
)

var (
	configPath   string
	noTUI        bool
	logLevel     string
	logFile      string
	metricsAddr  string
	preset       string
	volume       int
	noVisualizer bool
	discover     bool
)

var rootCmd = &cobra.Command{
	Use:   "radiodeck [station]",
	Short: "Terminal internet radio with dynamics processing and a spectrum visualizer",
	Long: "radiodeck streams internet radio through a compressor and analyser graph.\n" +
		"A station is a configured name, its number in the station list, or a stream URL.",
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runPlay,
}

var playCmd = &cobra.Command{
	Use:   "play [station]",
	Short: "Play a station by name, number or URL",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPlay,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", version.Product, version.Version, version.Manufacturer)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", config.DefaultPath(), "Config file path")
	pf.BoolVar(&noTUI, "no-tui", false, "Disable the TUI and log to stderr")
	pf.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&logFile, "log-file", "", "Log file path")
	pf.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	pf.StringVar(&preset, "preset", "", "Compressor preset (none, low, medium, high or a configured name)")
	pf.IntVar(&volume, "volume", 0, "Initial volume 0-100")
	pf.BoolVar(&noVisualizer, "no-visualizer", false, "Disable the spectrum visualizer")
	pf.BoolVar(&discover, "discover", false, "Browse the local network for stream servers")

	rootCmd.AddCommand(playCmd, stationsCmd, presetsCmd, discoverCmd, versionCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadSettings reads the config file and environment, then applies flags
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	settings, err := config.Load(configPath, !flags.Changed("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if flags.Changed("log-level") {
		settings.Log.Level = logLevel
	}
	if flags.Changed("log-file") {
		settings.Log.File = logFile
	}
	if flags.Changed("metrics-addr") {
		settings.MetricsAddr = metricsAddr
	}
	if flags.Changed("preset") {
		settings.Compressor.Default = preset
	}
	if flags.Changed("volume") {
		settings.Audio.Volume = volume
	}
	if noVisualizer {
		settings.Visualizer.Enabled = false
	}
	if flags.Changed("discover") {
		settings.Discovery.Enabled = discover
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func runPlay(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	useTUI := !noTUI
	logger, closer, err := logging.Setup(logging.Options{
		Level:   settings.Log.Level,
		File:    settings.Log.File,
		Console: !useTUI,
	})
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	station := ""
	if len(args) == 1 {
		station = args[0]
	}

	a, err := app.New(app.Config{
		Settings: settings,
		UseTUI:   useTUI,
		Station:  station,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("version", version.Version).Bool("tui", useTUI).Msg("radiodeck starting")
	err = a.Run(ctx)
	logger.Info().Msg("radiodeck stopped")
	return err
}
