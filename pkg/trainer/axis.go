// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package trainer maps joystick axes onto trainer channel values and
// formats the ASCII command lines the transmitter accepts.
package trainer

import "math"

// Axis indices
const (
	AxisHorizontal = 0
	AxisVertical   = 1
)

// Command value limits
const (
	MaxValue = 500
	MinValue = -500
)

// MapAxis converts a normalized axis reading into a command value.
// Readings outside [-1, 1] are clamped. The vertical axis is inverted so
// pushing the stick up gives a positive value.
func MapAxis(axis int, v float64) int {
	if math.IsNaN(v) {
		v = 0
	}
	v = math.Max(-1, math.Min(1, v))
	if axis == AxisVertical {
		v = -v
	}
	return int(math.Round(MaxValue * v))
}

// AxisState holds the last command value for each axis. Values persist
// until the next reading for that axis.
type AxisState struct {
	Horizontal int
	Vertical   int
}

// Update maps v onto the given axis. Returns false for axes other than
// horizontal and vertical, leaving the state untouched.
func (s *AxisState) Update(axis int, v float64) bool {
	switch axis {
	case AxisHorizontal:
		s.Horizontal = MapAxis(axis, v)
	case AxisVertical:
		s.Vertical = MapAxis(axis, v)
	default:
		return false
	}
	return true
}

// Value returns the command value for an axis
func (s AxisState) Value(axis int) int {
	switch axis {
	case AxisHorizontal:
		return s.Horizontal
	case AxisVertical:
		return s.Vertical
	}
	return 0
}
