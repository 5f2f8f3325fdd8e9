// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package link runs the control loop: joystick state goes out as trainer
// commands and inbound telemetry frames come back as events, all on one
// fixed cadence.
package link

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Thermoquad/joylink/pkg/crsf"
	"github.com/Thermoquad/joylink/pkg/trainer"
	"github.com/rs/zerolog"
)

// DefaultTick is the loop period
const DefaultTick = 10 * time.Millisecond

// ErrLoopUsed is returned when Run is called on a loop that already ran
var ErrLoopUsed = errors.New("loop already started")

// State is the loop lifecycle state
type State int32

const (
	StateInit State = iota
	StateRunning
	StateShuttingDown
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateRunning:
		return "RUNNING"
	case StateShuttingDown:
		return "SHUTTING_DOWN"
	case StateTerminated:
		return "TERMINATED"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Options configures a Loop. Zero values select defaults.
type Options struct {
	Tick    time.Duration
	Now     func() time.Time
	Sleep   func(ctx context.Context, d time.Duration) error
	Encoder *trainer.Encoder
	Logger  zerolog.Logger
}

// Loop ties the input source, the command encoder, the port and the frame
// decoder together. It owns the port exclusively while running.
type Loop struct {
	port  Port
	input InputSource
	sink  Sink
	opts  Options
	log   zerolog.Logger

	registry *Registry
	decoder  *crsf.Decoder
	encoder  *trainer.Encoder
	axes     trainer.AxisState

	lastFrame time.Time
	haveFrame bool
	seq       uint64
	state     atomic.Int32
	started   atomic.Bool
}

// New creates a loop. input and sink may be nil.
func New(port Port, input InputSource, sink Sink, opts Options) *Loop {
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	if opts.Encoder == nil {
		opts.Encoder = trainer.NewEncoder()
	}
	if sink == nil {
		sink = MultiSink{}
	}

	return &Loop{
		port:     port,
		input:    input,
		sink:     sink,
		opts:     opts,
		log:      opts.Logger.With().Str("component", "loop").Logger(),
		registry: NewRegistry(),
		decoder:  crsf.NewDecoderWithClock(opts.Now),
		encoder:  opts.Encoder,
	}
}

// State returns the current lifecycle state. Safe from any goroutine.
func (l *Loop) State() State {
	return State(l.state.Load())
}

func (l *Loop) setState(s State) {
	l.state.Store(int32(s))
	l.log.Debug().Stringer("state", s).Msg("state change")
}

// Run sends the telemetry handshake and ticks until ctx is cancelled or
// the port fails. Cleanup (handshake off, port close, input close) runs on
// every exit path. Cancellation returns nil.
func (l *Loop) Run(ctx context.Context) (err error) {
	if !l.started.CompareAndSwap(false, true) {
		return ErrLoopUsed
	}
	defer l.shutdown(&err)

	if _, err := l.port.Write([]byte(trainer.TelemetryOn)); err != nil {
		return fmt.Errorf("telemetry on: %w", err)
	}
	l.setState(StateRunning)
	l.log.Info().Dur("tick", l.opts.Tick).Msg("control loop running")

	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := l.tick(); err != nil {
			return err
		}
		if err := l.opts.Sleep(ctx, l.opts.Tick); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("sleep: %w", err)
		}
	}
}

func (l *Loop) shutdown(errp *error) {
	l.setState(StateShuttingDown)

	if _, err := l.port.Write([]byte(trainer.TelemetryOff)); err != nil {
		l.log.Warn().Err(err).Msg("failed to send telemetry off")
		if *errp == nil {
			*errp = fmt.Errorf("telemetry off: %w", err)
		}
	}
	if err := l.port.Close(); err != nil {
		l.log.Warn().Err(err).Msg("failed to close port")
	}
	if l.input != nil {
		if err := l.input.Close(); err != nil {
			l.log.Warn().Err(err).Msg("failed to close input")
		}
	}

	l.setState(StateTerminated)
	l.log.Info().Uint64("ticks", l.seq).Msg("control loop stopped")
}

func (l *Loop) tick() error {
	start := l.opts.Now()

	if l.input != nil {
		for _, ev := range l.input.Poll() {
			l.handleInput(ev)
		}
	}

	for _, line := range l.encoder.Encode(l.axes) {
		if _, err := l.port.Write(line); err != nil {
			return fmt.Errorf("write command: %w", err)
		}
	}

	// Frames already received are delivered before a read error is returned
	data, readErr := l.port.ReadAvailable()
	frames := 0
	if len(data) > 0 {
		received := l.opts.Now()
		for _, f := range l.decoder.FeedAt(data, received) {
			l.emit(f, received)
			frames++
		}
	}
	if readErr != nil {
		return fmt.Errorf("read telemetry: %w", readErr)
	}

	l.seq++
	l.sink.HandleTick(TickStats{
		Seq:      l.seq,
		Start:    start,
		Work:     l.opts.Now().Sub(start),
		State:    l.axes,
		BytesIn:  len(data),
		Frames:   frames,
		Devices:  l.registry.Len(),
		Buffered: l.decoder.Buffered(),
	})
	return nil
}

func (l *Loop) emit(f crsf.Frame, received time.Time) {
	var delay time.Duration
	if l.haveFrame {
		delay = received.Sub(l.lastFrame)
	}
	l.lastFrame = received
	l.haveFrame = true

	att, err := crsf.DecodeAttitude(f)
	l.sink.HandleTelemetry(TelemetryEvent{
		Timestamp: received,
		Delay:     delay,
		Frame:     f,
		Attitude:  att,
		Err:       err,
	})
}

func (l *Loop) handleInput(ev InputEvent) {
	switch ev.Kind {
	case InputDeviceAdded:
		if l.registry.Add(Device{Index: ev.Device, Name: ev.Name}) {
			l.log.Info().Int("device", ev.Device).Str("name", ev.Name).Msg("joystick connected")
		}
	case InputDeviceRemoved:
		if l.registry.Remove(ev.Device) {
			l.log.Info().Int("device", ev.Device).Msg("joystick disconnected")
		}
	case InputAxis:
		if !l.registry.Has(ev.Device) {
			l.log.Debug().Int("device", ev.Device).Msg("axis event from unregistered device")
			return
		}
		l.axes.Update(ev.Axis, ev.Value)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
