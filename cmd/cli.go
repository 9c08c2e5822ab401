package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"spectra/internal/config"
	"spectra/pkg/build"
)

// ParseArgs parses the command line, loads the configuration file and
// applies flag overrides on top of it.
func ParseArgs() (*config.Config, error) {
	buildInfo := build.GetBuildFlags()

	var (
		options    *config.Config
		configPath string

		device    int
		tick      time.Duration
		clipSize  int
		record    bool
		outputDir string
		wsPort    string
		udpTarget string
		lowLat    bool
		verbose   bool
	)

	loadAndApply := func(cmd *cobra.Command) error {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("device") {
			cfg.Audio.InputDevice = device
		}
		if flags.Changed("tick") {
			cfg.Audio.TickInterval = tick
		}
		if flags.Changed("clip-size") {
			cfg.Audio.ClipSize = clipSize
		}
		if flags.Changed("low-latency") {
			cfg.Audio.LowLatency = lowLat
		}
		if flags.Changed("record") {
			cfg.Recording.Enabled = record
		}
		if flags.Changed("output-dir") {
			cfg.Recording.OutputDir = outputDir
		}
		if flags.Changed("ws-port") {
			cfg.Transport.WSPort = wsPort
			cfg.Transport.WSEnabled = true
		}
		if flags.Changed("udp") {
			cfg.Transport.UDPTargetAddress = udpTarget
			cfg.Transport.UDPEnabled = true
		}
		if verbose {
			cfg.Debug = true
			cfg.LogLevel = "debug"
		}

		// Flag overrides can re-break validation (e.g. --clip-size 1000).
		if err := cfg.Validate(); err != nil {
			return err
		}

		options = cfg
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Live audio spectrum pipeline",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return loadAndApply(cmd)
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List usable audio input devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadAndApply(cmd); err != nil {
				return err
			}
			options.Command = "list"
			return nil
		},
	}
	rootCmd.AddCommand(listCmd)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "f", "",
		"Path to YAML configuration file")

	// Audio and pipeline configuration
	rootCmd.PersistentFlags().IntVarP(&device, "device", "d", config.MinDeviceID,
		"Input device index to select at startup. Use 'list' to see devices.")
	rootCmd.PersistentFlags().DurationVarP(&tick, "tick", "t", config.DefaultTickInterval,
		"Interval between pipeline ticks")
	rootCmd.PersistentFlags().IntVar(&clipSize, "clip-size", config.DefaultClipSize,
		"Per-channel sample buffer capacity (power of 2, also the FFT size)")
	rootCmd.PersistentFlags().BoolVarP(&lowLat, "low-latency", "l", false,
		"Request the device's low-latency input path")

	// Recording configuration
	rootCmd.PersistentFlags().BoolVarP(&record, "record", "r", false,
		"Record the raw capture to a WAV file while a device is selected")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output-dir", "o", ".",
		"Directory for recording files")

	// Transport configuration
	rootCmd.PersistentFlags().StringVar(&wsPort, "ws-port", config.DefaultWSPort,
		"Serve frames to WebSocket clients on this port")
	rootCmd.PersistentFlags().StringVar(&udpTarget, "udp", "",
		"Send binary frame packets to this UDP address (host:port)")

	// Debug configuration
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return options, nil
}
