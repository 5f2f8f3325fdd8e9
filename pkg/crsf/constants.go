// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package crsf decodes the CRSF-style telemetry stream sent back by the
// transmitter module.
//
// Frames are delimited by a start marker only. The decoder splits the
// stream on the marker byte and hands out the bytes in between; the type
// tag is the first byte after the marker. Only attitude payloads are
// decoded, other frame types are passed through as raw bytes.
package crsf

// Framing
const (
	MarkerByte = 0xEA

	// MaxBufferSize bounds the unconsumed tail kept between feeds.
	MaxBufferSize = 4096
)

// Frame types. Only FrameTypeAttitude is decoded.
const (
	FrameTypeGPS            = 0x02
	FrameTypeVario          = 0x07
	FrameTypeBattery        = 0x08
	FrameTypeBaroAltitude   = 0x09
	FrameTypeHeartbeat      = 0x0B
	FrameTypeLinkStatistics = 0x14
	FrameTypeRCChannels     = 0x16
	FrameTypeAttitude       = 0x1E
	FrameTypeFlightMode     = 0x21
	FrameTypeDevicePing     = 0x28
	FrameTypeDeviceInfo     = 0x29
)

// Attitude payload layout, offsets relative to the type tag
const (
	attitudeRollOffset  = 1
	attitudePitchOffset = 3
	attitudeYawOffset   = 5

	// AttitudeFrameLen is the frame length after the marker: tag + 3*int16.
	AttitudeFrameLen = 7

	// AttitudeScale converts raw payload units to degrees.
	AttitudeScale = 10000.0
)
