// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"os"

	"github.com/Thermoquad/joylink/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	cfg = config.Default()

	// Config file and logging flags
	cfgPath string
	logJSON bool

	// WebSocket connection flags
	wsNoSSLVerify bool
)

var rootCmd = &cobra.Command{
	Use:   "joylink",
	Short: "Joystick to trainer link with attitude telemetry",
	Long: `Joylink - Drive a vehicle from a USB joystick over a trainer link.

Joystick axes are sent to the controller as trainer commands at a fixed rate
while the attitude telemetry coming back is decoded and displayed.

Connection modes:
  Serial:    --port /dev/ttyACM0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]
  Auto:      neither flag; the serial port is found by USB --vid/--pid

Settings are read from ~/.joylink/config.toml (or --config) and JOYLINK_*
environment variables. Flags given on the command line always win.

For WebSocket authentication, the password is read from the JOYLINK_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	flags := rootCmd.PersistentFlags()

	// Serial connection flags
	flags.StringVarP(&cfg.Port, "port", "p", cfg.Port, "Serial port device")
	flags.IntVarP(&cfg.Baud, "baud", "b", cfg.Baud, "Baud rate (serial only)")
	flags.StringVar(&cfg.VID, "vid", cfg.VID, "USB vendor id used to find the port")
	flags.StringVar(&cfg.PID, "pid", cfg.PID, "USB product id used to find the port")

	// WebSocket connection flags
	flags.StringVarP(&cfg.URL, "url", "u", cfg.URL, "WebSocket URL (ws:// or wss://)")
	flags.StringVar(&cfg.Username, "username", cfg.Username, "Username for HTTP Basic auth")
	flags.BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Config and logging
	flags.StringVar(&cfgPath, "config", "", "Config file (default ~/.joylink/config.toml)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (trace, debug, info, warn, error)")
	flags.BoolVar(&logJSON, "log-json", false, "Write logs as JSON")
}

// loadConfig layers the config file and environment under the flags, then
// sets up logging
func loadConfig(cmd *cobra.Command, args []string) error {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if err := config.Load(&cfg, cfgPath, changed); err != nil {
		return err
	}
	if err := setupLogging(os.Stderr, cfg.LogLevel, logJSON); err != nil {
		return err
	}
	return cfg.Validate()
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
