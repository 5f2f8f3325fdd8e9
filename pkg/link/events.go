// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"time"

	"github.com/Thermoquad/joylink/pkg/crsf"
	"github.com/Thermoquad/joylink/pkg/trainer"
)

// InputKind identifies an input event
type InputKind int

const (
	InputDeviceAdded InputKind = iota
	InputDeviceRemoved
	InputAxis
)

// InputEvent is a single update from the input subsystem
type InputEvent struct {
	Kind   InputKind
	Device int
	Name   string  // set on InputDeviceAdded
	Axis   int     // set on InputAxis
	Value  float64 // normalized reading, set on InputAxis
}

// InputSource delivers pending input events without blocking
type InputSource interface {
	// Poll returns all events queued since the last call
	Poll() []InputEvent
	Close() error
}

// TelemetryEvent is emitted once per frame cut from the inbound stream
type TelemetryEvent struct {
	Timestamp time.Time
	// Delay since the previous frame was received, zero for the first frame
	Delay    time.Duration
	Frame    crsf.Frame
	Attitude *crsf.Attitude
	// Err explains why Attitude is nil
	Err error
}

// TickStats is emitted at the end of every tick
type TickStats struct {
	Seq      uint64
	Start    time.Time
	Work     time.Duration
	State    trainer.AxisState
	BytesIn  int
	Frames   int
	Devices  int
	Buffered int
}

// Sink consumes loop output. Calls happen on the loop goroutine and must
// not block.
type Sink interface {
	HandleTelemetry(TelemetryEvent)
	HandleTick(TickStats)
}

// MultiSink fans events out to several sinks in order
type MultiSink []Sink

// HandleTelemetry implements Sink
func (m MultiSink) HandleTelemetry(ev TelemetryEvent) {
	for _, s := range m {
		s.HandleTelemetry(ev)
	}
}

// HandleTick implements Sink
func (m MultiSink) HandleTick(st TickStats) {
	for _, s := range m {
		s.HandleTick(st)
	}
}

// TelemetryFunc adapts a function into a Sink that ignores ticks
type TelemetryFunc func(TelemetryEvent)

// HandleTelemetry implements Sink
func (f TelemetryFunc) HandleTelemetry(ev TelemetryEvent) { f(ev) }

// HandleTick implements Sink
func (f TelemetryFunc) HandleTick(TickStats) {}
