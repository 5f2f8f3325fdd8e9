// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/joylink/pkg/crsf"
	"github.com/Thermoquad/joylink/pkg/trainer"
	"github.com/spf13/cobra"
)

var (
	frameTestTimeout int
	frameTestCount   int
)

var frameTestCmd = &cobra.Command{
	Use:   "frame_test",
	Short: "Test the link by waiting for valid attitude frames",
	Long: `Switch telemetry on and wait for attitude frames until timeout.

Frames of other types and truncated attitude frames are skipped. With --count
greater than one the interval between frames is reported as well.

Exit codes:
  0 - All frames received before timeout
  1 - Timeout reached without receiving enough attitude frames
  2 - Connection error

Useful for checking wiring and baud rate before flying.`,
	RunE: runFrameTest,
}

func init() {
	rootCmd.AddCommand(frameTestCmd)
	frameTestCmd.Flags().IntVar(&frameTestTimeout, "timeout", 10, "Timeout in seconds to wait for frames")
	frameTestCmd.Flags().IntVar(&frameTestCount, "count", 1, "Number of attitude frames to wait for")
}

type attitudeSample struct {
	attitude *crsf.Attitude
	received time.Time
}

func runFrameTest(cmd *cobra.Command, args []string) error {
	if frameTestCount < 1 {
		return fmt.Errorf("--count must be at least 1")
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("Joylink - Frame Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", frameTestTimeout)
	fmt.Printf("Waiting for %d attitude frame(s)...\n\n", frameTestCount)

	if _, err := conn.Write([]byte(trainer.TelemetryOn)); err != nil {
		conn.Close()
		fmt.Fprintf(os.Stderr, "Write error: %v\n", err)
		os.Exit(2)
	}

	// os.Exit skips defers
	exit := func(code int) {
		conn.Write([]byte(trainer.TelemetryOff))
		conn.Close()
		os.Exit(code)
	}

	samples := make(chan attitudeSample, frameTestCount)
	errChan := make(chan error, 1)

	go func() {
		decoder := crsf.NewDecoder()
		buf := make([]byte, 128)
		skipped := 0
		for {
			n, err := conn.Read(buf)
			if err != nil {
				errChan <- err
				return
			}

			for _, f := range decoder.Feed(buf[:n]) {
				att, decodeErr := crsf.DecodeAttitude(f)
				if decodeErr != nil {
					skipped++
					continue
				}
				if skipped > 0 {
					fmt.Printf("(skipped %d other frames)\n", skipped)
					skipped = 0
				}
				select {
				case samples <- attitudeSample{attitude: att, received: f.Timestamp()}:
				default:
				}
			}
		}
	}()

	timeout := time.After(time.Duration(frameTestTimeout) * time.Second)
	var first, last time.Time
	for got := 0; got < frameTestCount; {
		select {
		case s := <-samples:
			got++
			if got == 1 {
				first = s.received
			}
			last = s.received
			fmt.Printf("Frame %d/%d: %s\n", got, frameTestCount, s.attitude)

		case err := <-errChan:
			fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
			exit(2)

		case <-timeout:
			fmt.Fprintf(os.Stderr, "TIMEOUT: %d of %d attitude frames received within %d seconds\n",
				got, frameTestCount, frameTestTimeout)
			exit(1)
		}
	}

	fmt.Printf("\nSUCCESS: Received %d attitude frame(s)\n", frameTestCount)
	if frameTestCount > 1 {
		interval := last.Sub(first) / time.Duration(frameTestCount-1)
		fmt.Printf("  Mean interval: %v\n", interval.Round(100*time.Microsecond))
	}
	exit(0)
	return nil
}
