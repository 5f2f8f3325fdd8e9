// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Thermoquad/joylink/pkg/joystick"
	"github.com/Thermoquad/joylink/pkg/link"
	"github.com/Thermoquad/joylink/pkg/sink"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	runTUI       bool
	runCBOROut   string
	runCBORTicks bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive the vehicle from the joystick and show attitude telemetry",
	Long: `Run the control loop.

Every tick the joystick axes are sent as two trainer commands (horizontal on
channel 0, vertical on channel 3 by default) and whatever telemetry arrived
since the previous tick is decoded. Joysticks can be plugged in and removed
while running.

Telemetry goes to the log (or the terminal UI with --tui) and optionally to a
CBOR record file and an MQTT broker:
  --cbor-out telemetry.cbor
  --mqtt-broker mqtt://host:1883 --mqtt-topic vehicles/one

Telemetry is switched on at start and off again on exit.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	flags := runCmd.Flags()
	flags.BoolVar(&runTUI, "tui", false, "Use terminal UI")
	flags.DurationVar(&cfg.Tick, "tick", cfg.Tick, "Control loop period")
	flags.IntVar(&cfg.HorizontalChannel, "horizontal-channel", cfg.HorizontalChannel, "Trainer channel for the horizontal axis")
	flags.IntVar(&cfg.VerticalChannel, "vertical-channel", cfg.VerticalChannel, "Trainer channel for the vertical axis")
	flags.StringVar(&cfg.InputDir, "input-dir", joystick.DefaultDir, "Directory watched for joystick devices")
	flags.StringVar(&runCBOROut, "cbor-out", "", "Write telemetry records to this file")
	flags.BoolVar(&runCBORTicks, "cbor-ticks", false, "Include tick records in --cbor-out")
	flags.StringVar(&cfg.MQTTBroker, "mqtt-broker", cfg.MQTTBroker, "Publish telemetry to this MQTT broker")
	flags.StringVar(&cfg.MQTTTopic, "mqtt-topic", sink.DefaultTopic, "MQTT topic prefix")
}

func runRun(cmd *cobra.Command, args []string) error {
	// The UI owns the terminal, so logs go to its event pane
	var ts *tuiSink
	if runTUI {
		ts = newTUISink()
		logger = logger.Output(zerolog.ConsoleWriter{Out: ts, NoColor: true, PartsExclude: []string{zerolog.TimestampFieldName}})
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	port := link.NewPumpPort(conn)

	input, err := joystick.NewSource(joystick.Options{Dir: cfg.InputDir, Logger: logger})
	if err != nil {
		port.Close()
		return fmt.Errorf("joystick: %w", err)
	}

	stats := sink.NewStats()
	sinks := link.MultiSink{stats}

	if runCBOROut != "" {
		f, err := os.Create(runCBOROut)
		if err != nil {
			port.Close()
			input.Close()
			return fmt.Errorf("cbor output: %w", err)
		}
		defer f.Close()
		stream := sink.NewCBORStream(f)
		stream.Ticks = runCBORTicks
		sinks = append(sinks, stream)
		defer func() {
			if err := stream.Err(); err != nil {
				logger.Warn().Err(err).Msg("cbor output stopped")
			}
		}()
	}

	if cfg.MQTTBroker != "" {
		m, closeMQTT, err := sink.DialMQTT(cfg.MQTTBroker, cfg.MQTTTopic, logger)
		if err != nil {
			port.Close()
			input.Close()
			return err
		}
		defer closeMQTT()
		sinks = append(sinks, m)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := link.Options{
		Tick:    cfg.Tick,
		Encoder: cfg.Encoder(),
		Logger:  logger,
	}

	if runTUI {
		return runLoopTUI(ctx, ts, port, input, sinks, stats, opts, connInfo)
	}
	return runLoopText(ctx, port, input, sinks, stats, opts, connInfo)
}

func runLoopText(ctx context.Context, port link.Port, input link.InputSource, sinks link.MultiSink, stats *sink.Stats, opts link.Options, connInfo string) error {
	fmt.Printf("Joylink - Control Loop\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	sinks = append(sinks, sink.NewLog(logger))
	loop := link.New(port, input, sinks, opts)
	err := loop.Run(ctx)

	fmt.Print("\n" + stats.String())
	return err
}
