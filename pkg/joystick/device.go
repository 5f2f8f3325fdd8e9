// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package joystick reads Linux joystick devices (/dev/input/jsN) and
// turns them into input events for the control loop, including devices
// plugged in while running.
package joystick

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrUnsupported is returned by Open on platforms without the joystick API
var ErrUnsupported = errors.New("joystick: unsupported platform")

// Event types from linux/joystick.h
const (
	evButton uint8 = 0x01
	evAxis   uint8 = 0x02
	evInit   uint8 = 0x80
)

// eventSize is sizeof(struct js_event)
const eventSize = 8

// axisMax is the largest magnitude the driver reports
const axisMax = 32767.0

// Event is one js_event record
type Event struct {
	Time   uint32
	Value  int16
	Type   uint8
	Number uint8
}

// IsInit indicates the event reports initial state rather than a change
func (e Event) IsInit() bool {
	return e.Type&evInit != 0
}

// IsAxis reports whether this is an axis event
func (e Event) IsAxis() bool {
	return e.Type&^evInit == evAxis
}

// IsButton reports whether this is a button event
func (e Event) IsButton() bool {
	return e.Type&^evInit == evButton
}

// Normalized returns an axis value scaled to roughly [-1, 1]
func (e Event) Normalized() float64 {
	return float64(e.Value) / axisMax
}

func decodeEvent(buf []byte) Event {
	return Event{
		Time:   binary.LittleEndian.Uint32(buf[0:4]),
		Value:  int16(binary.LittleEndian.Uint16(buf[4:6])),
		Type:   buf[6],
		Number: buf[7],
	}
}

// Device is an opened joystick
type Device interface {
	io.Closer
	// Name returns the name reported by the driver
	Name() string
	// AxisCount returns the number of axes on the device
	AxisCount() int
	// ReadEvent blocks for the next event
	ReadEvent() (Event, error)
}
