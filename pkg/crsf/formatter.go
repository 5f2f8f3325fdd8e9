// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package crsf

import (
	"errors"
	"fmt"
	"strings"
)

// FormatFrame formats a frame into a human-readable string
func FormatFrame(f Frame) string {
	timestamp := f.timestamp.Format("15:04:05.000")

	tag, ok := f.Type()
	if !ok || f.Oversize() {
		return fmt.Sprintf("[%s] MALFORMED len=%d\n%s", timestamp, f.Len(), FormatHex(f.data))
	}

	result := fmt.Sprintf("[%s] %s (0x%02X) len=%d\n", timestamp, FrameTypeName(tag), tag, f.Len())

	att, err := DecodeAttitude(f)
	switch {
	case err == nil:
		result += fmt.Sprintf("  Roll: %.4f°, Pitch: %.4f°, Yaw: %.4f°\n", att.Roll, att.Pitch, att.Yaw)
	case errors.Is(err, ErrShortFrame):
		result += fmt.Sprintf("  (%v)\n", err)
		result += FormatHex(f.Payload())
	default:
		if len(f.Payload()) > 0 {
			result += FormatHex(f.Payload())
		}
	}

	return result
}

// FrameTypeName returns the human-readable name for a frame type
func FrameTypeName(tag uint8) string {
	switch tag {
	case FrameTypeGPS:
		return "GPS"
	case FrameTypeVario:
		return "VARIO"
	case FrameTypeBattery:
		return "BATTERY_SENSOR"
	case FrameTypeBaroAltitude:
		return "BARO_ALTITUDE"
	case FrameTypeHeartbeat:
		return "HEARTBEAT"
	case FrameTypeLinkStatistics:
		return "LINK_STATISTICS"
	case FrameTypeRCChannels:
		return "RC_CHANNELS_PACKED"
	case FrameTypeAttitude:
		return "ATTITUDE"
	case FrameTypeFlightMode:
		return "FLIGHT_MODE"
	case FrameTypeDevicePing:
		return "DEVICE_PING"
	case FrameTypeDeviceInfo:
		return "DEVICE_INFO"
	default:
		return "UNKNOWN"
	}
}

// FormatHex renders bytes as an indented hex dump, 16 per row
func FormatHex(data []byte) string {
	var sb strings.Builder
	sb.WriteString("  Bytes: ")
	for i, b := range data {
		if i > 0 && i%16 == 0 {
			sb.WriteString("\n         ")
		}
		fmt.Fprintf(&sb, "%02X ", b)
	}
	sb.WriteString("\n")
	return sb.String()
}
