// SPDX-License-Identifier: MIT

// Package cmd builds the runtime configuration from config file,
// environment and command line flags, in that order of precedence.
package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"timegrapher/internal/config"
	"timegrapher/pkg/build"
)

// ParseArgs resolves the full configuration. Flags the user set
// explicitly override values loaded from the config file; everything
// else keeps the file's (or the built-in) defaults.
func ParseArgs() (*config.Config, error) {
	buildInfo := build.GetBuildFlags()
	defaults := config.NewConfig()

	var (
		configPath string
		verbose    bool
		record     bool
		output     string
	)
	flagCfg := config.NewConfig()
	var cfg *config.Config

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Acoustic timegrapher for mechanical watches",
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
			loaded, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			applyFlagOverrides(cmd, cfg, flagCfg, verbose, record, output)
			return cfg.Validate()
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg = defaults
			cfg.Command = "list"
			return nil
		},
	}
	rootCmd.AddCommand(listCmd)

	// Audio device configuration.
	rootCmd.PersistentFlags().IntVarP(&flagCfg.Audio.DeviceID, "device", "d", defaults.Audio.DeviceID,
		"Input device ID. Use the 'list' command to see available devices.")
	rootCmd.PersistentFlags().IntVarP(&flagCfg.Audio.Channels, "channels", "c", defaults.Audio.Channels,
		"Number of input channels (analysis uses the first)")
	rootCmd.PersistentFlags().Float64VarP(&flagCfg.Audio.SampleRate, "sample-rate", "s", defaults.Audio.SampleRate,
		"Sample rate in Hertz (Hz)")
	rootCmd.PersistentFlags().IntVarP(&flagCfg.Audio.FramesPerBuffer, "frames-per-buffer", "b", defaults.Audio.FramesPerBuffer,
		"Frames per capture block (affects latency)")
	rootCmd.PersistentFlags().BoolVarP(&flagCfg.Audio.LowLatency, "low-latency", "l", defaults.Audio.LowLatency,
		"Use the device's low latency mode")

	// Measurement configuration.
	rootCmd.PersistentFlags().IntVar(&flagCfg.Timing.BPH, "bph", defaults.Timing.BPH,
		"Nominal beats per hour, 0 to auto-detect")
	rootCmd.PersistentFlags().Float64Var(&flagCfg.Detection.Threshold, "threshold", defaults.Detection.Threshold,
		"Detection threshold as a 0..1 fraction of the signal span")
	rootCmd.PersistentFlags().Float64Var(&flagCfg.Detection.LockoutMs, "lockout", defaults.Detection.LockoutMs,
		"Dead time after each detected tick, milliseconds")

	// Recording and transport.
	rootCmd.PersistentFlags().BoolVarP(&record, "record", "r", false,
		"Record the input stream to a WAV file")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "",
		"Recording file name. Default is capture-DD-MM-YYYY-HHMMSS.wav")
	rootCmd.PersistentFlags().BoolVar(&flagCfg.Transport.WSEnabled, "serve", defaults.Transport.WSEnabled,
		"Serve live metrics over a websocket")
	rootCmd.PersistentFlags().StringVar(&flagCfg.Transport.WSAddr, "serve-addr", defaults.Transport.WSAddr,
		"Websocket listen address")

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "f", "",
		"Config file path (default: timegrapher.yaml in the working directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlagOverrides copies explicitly-set flags over the loaded config.
func applyFlagOverrides(cmd *cobra.Command, cfg, flagCfg *config.Config, verbose, record bool, output string) {
	overrides := map[string]func(){
		"device":            func() { cfg.Audio.DeviceID = flagCfg.Audio.DeviceID },
		"channels":          func() { cfg.Audio.Channels = flagCfg.Audio.Channels },
		"sample-rate":       func() { cfg.Audio.SampleRate = flagCfg.Audio.SampleRate },
		"frames-per-buffer": func() { cfg.Audio.FramesPerBuffer = flagCfg.Audio.FramesPerBuffer },
		"low-latency":       func() { cfg.Audio.LowLatency = flagCfg.Audio.LowLatency },
		"bph":               func() { cfg.Timing.BPH = flagCfg.Timing.BPH },
		"threshold":         func() { cfg.Detection.Threshold = flagCfg.Detection.Threshold },
		"lockout":           func() { cfg.Detection.LockoutMs = flagCfg.Detection.LockoutMs },
		"serve":             func() { cfg.Transport.WSEnabled = flagCfg.Transport.WSEnabled },
		"serve-addr":        func() { cfg.Transport.WSAddr = flagCfg.Transport.WSAddr },
	}
	for name, apply := range overrides {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}

	if verbose {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
	if record {
		cfg.Recording.Enabled = true
	}
	if output != "" {
		cfg.Recording.OutputFile = output
	}
	if cfg.Recording.Enabled && cfg.Recording.OutputFile == "" {
		cfg.Recording.OutputFile = "capture-" +
			time.Now().UTC().Format("02-01-2006-150405") + ".wav"
	}
}
