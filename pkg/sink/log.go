// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package sink provides consumers for control loop output: a structured
// log, a CBOR record stream, an MQTT publisher and a statistics tracker.
package sink

import (
	"errors"

	"github.com/Thermoquad/joylink/pkg/crsf"
	"github.com/Thermoquad/joylink/pkg/link"
	"github.com/rs/zerolog"
)

// Log writes one record per telemetry event
type Log struct {
	log zerolog.Logger
}

// NewLog creates a log sink
func NewLog(logger zerolog.Logger) *Log {
	return &Log{log: logger}
}

// HandleTelemetry implements link.Sink
func (l *Log) HandleTelemetry(ev link.TelemetryEvent) {
	if ev.Attitude != nil {
		l.log.Info().
			Float64("roll", ev.Attitude.Roll).
			Float64("pitch", ev.Attitude.Pitch).
			Float64("yaw", ev.Attitude.Yaw).
			Dur("delay", ev.Delay).
			Msg("attitude")
		return
	}

	var e *zerolog.Event
	if errors.Is(ev.Err, crsf.ErrNotAttitude) {
		e = l.log.Debug()
	} else {
		e = l.log.Warn().Err(ev.Err)
	}
	if tag, ok := ev.Frame.Type(); ok {
		e = e.Str("type", crsf.FrameTypeName(tag))
	}
	e.Int("length", ev.Frame.Len()).
		Hex("data", ev.Frame.Bytes()).
		Dur("delay", ev.Delay).
		Msg("frame ignored")
}

// HandleTick implements link.Sink
func (l *Log) HandleTick(st link.TickStats) {
	l.log.Trace().
		Uint64("seq", st.Seq).
		Dur("work", st.Work).
		Int("horizontal", st.State.Horizontal).
		Int("vertical", st.State.Vertical).
		Int("bytes", st.BytesIn).
		Int("frames", st.Frames).
		Int("devices", st.Devices).
		Msg("tick")
}
