// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sim

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// DefaultPeriod is the telemetry frame interval
const DefaultPeriod = 20 * time.Millisecond

// Options configures Serve
type Options struct {
	Period time.Duration
	// BatteryEvery sends a battery frame after every N attitude frames.
	// Zero disables it.
	BatteryEvery int
	Logger       zerolog.Logger
}

// Serve reads command lines from rw and writes telemetry while the link
// has it enabled. It returns nil when ctx is cancelled and the read or
// write error otherwise. The caller closes rw to release the reader.
func Serve(ctx context.Context, rw io.ReadWriter, v *Vehicle, opts Options) error {
	if opts.Period <= 0 {
		opts.Period = DefaultPeriod
	}
	log := opts.Logger.With().Str("component", "sim").Logger()

	lines := make(chan string, 64)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(rw)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		err := scanner.Err()
		if err == nil {
			err = io.EOF
		}
		readErr <- err
	}()

	ticker := time.NewTicker(opts.Period)
	defer ticker.Stop()

	var sent int
	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-readErr:
			return fmt.Errorf("read: %w", err)

		case line := <-lines:
			was := v.Telemetry()
			if err := v.HandleLine(line); err != nil {
				log.Debug().Err(err).Msg("ignored line")
				continue
			}
			if v.Telemetry() != was {
				log.Info().Bool("telemetry", v.Telemetry()).Msg("telemetry toggled")
			}

		case <-ticker.C:
			v.Step(opts.Period)
			if !v.Telemetry() {
				continue
			}
			if _, err := rw.Write(v.AttitudeFrame()); err != nil {
				return fmt.Errorf("write: %w", err)
			}
			sent++
			if opts.BatteryEvery > 0 && sent%opts.BatteryEvery == 0 {
				if _, err := rw.Write(BatteryFrame()); err != nil {
					return fmt.Errorf("write: %w", err)
				}
			}
			if h, vert := v.Sticks(); sent%50 == 0 {
				log.Debug().Int("horizontal", h).Int("vertical", vert).
					Stringer("attitude", v.Attitude()).Msg("status")
			}
		}
	}
}
