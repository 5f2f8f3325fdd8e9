// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package trainer

import (
	"fmt"
	"strconv"
	"strings"
)

// Default trainer channels
const (
	ChannelHorizontal = 0
	ChannelVertical   = 3
)

// Handshake lines
const (
	TelemetryOn  = "telemetry on\r\n"
	TelemetryOff = "telemetry off\r\n"
)

const commandKeyword = "trainer"

// Encoder formats the per-tick command lines
type Encoder struct {
	HorizontalChannel int
	VerticalChannel   int
}

// NewEncoder creates an encoder using the default channels
func NewEncoder() *Encoder {
	return &Encoder{
		HorizontalChannel: ChannelHorizontal,
		VerticalChannel:   ChannelVertical,
	}
}

// Encode returns the two command lines for the current state, horizontal
// first. Lines are produced on every call whether or not values changed.
func (e *Encoder) Encode(s AxisState) [][]byte {
	return [][]byte{
		[]byte(FormatCommand(e.HorizontalChannel, s.Horizontal)),
		[]byte(FormatCommand(e.VerticalChannel, s.Vertical)),
	}
}

// FormatCommand formats a single trainer line, CR LF terminated
func FormatCommand(channel, value int) string {
	return fmt.Sprintf("%s %d %d\r\n", commandKeyword, channel, value)
}

// ParseCommand parses a trainer line back into channel and value.
// The line terminator is optional.
func ParseCommand(line string) (channel, value int, err error) {
	fields := strings.Fields(line)
	if len(fields) != 3 || fields[0] != commandKeyword {
		return 0, 0, fmt.Errorf("not a trainer command: %q", strings.TrimSpace(line))
	}
	if channel, err = strconv.Atoi(fields[1]); err != nil {
		return 0, 0, fmt.Errorf("invalid channel %q: %w", fields[1], err)
	}
	if value, err = strconv.Atoi(fields[2]); err != nil {
		return 0, 0, fmt.Errorf("invalid value %q: %w", fields[2], err)
	}
	return channel, value, nil
}
