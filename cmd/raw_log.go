// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Thermoquad/joylink/pkg/crsf"
	"github.com/Thermoquad/joylink/pkg/trainer"
	"github.com/spf13/cobra"
)

var rawLogHandshake bool

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display inbound telemetry frames in human-readable format",
	Long: `Continuously decode and display telemetry frames as they arrive.

No trainer commands are sent. With --handshake (the default) telemetry is
switched on at start and off again on exit.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().BoolVar(&rawLogHandshake, "handshake", true, "Send telemetry on/off")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Joylink - Raw Frame Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	stats, err := logFrames(conn, rawLogHandshake, sigs, os.Stdout)
	fmt.Print("\n" + stats.String())
	return err
}

// logFrames prints every inbound frame until the connection ends or a
// signal arrives. Telemetry off is sent at most once.
func logFrames(conn Connection, handshake bool, sigs <-chan os.Signal, out io.Writer) (*crsf.Statistics, error) {
	stats := crsf.NewStatistics()

	var offOnce sync.Once
	telemetryOff := func() {
		if handshake {
			offOnce.Do(func() { conn.Write([]byte(trainer.TelemetryOff)) })
		}
	}

	if handshake {
		if _, err := conn.Write([]byte(trainer.TelemetryOn)); err != nil {
			return stats, fmt.Errorf("telemetry on: %w", err)
		}
	}
	defer telemetryOff()

	// Closing the connection unblocks the read below
	stopped := make(chan struct{})
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-sigs:
		case <-finished:
			return
		}
		close(stopped)
		telemetryOff()
		conn.Close()
	}()

	decoder := crsf.NewDecoder()
	buf := make([]byte, 128)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			select {
			case <-stopped:
				return stats, nil
			default:
			}
			if errors.Is(err, ErrConnectionClosed) || errors.Is(err, io.EOF) {
				logger.Info().Msg("connection closed")
				return stats, nil
			}
			return stats, fmt.Errorf("read: %w", err)
		}

		for _, f := range decoder.Feed(buf[:n]) {
			_, decodeErr := crsf.DecodeAttitude(f)
			stats.Update(f, decodeErr)
			fmt.Fprint(out, crsf.FormatFrame(f))
		}
	}
}
