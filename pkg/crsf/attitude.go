// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package crsf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrMalformedFrame is returned for frames without a type tag
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrNotAttitude is returned when the type tag is not the attitude tag
	ErrNotAttitude = errors.New("not an attitude frame")
	// ErrShortFrame is returned when an attitude frame is truncated
	ErrShortFrame = errors.New("attitude frame too short")
)

// Attitude holds the decoded orientation in degrees
type Attitude struct {
	Roll  float64
	Pitch float64
	Yaw   float64
}

// String formats the attitude with the wire precision of 4 decimals
func (a Attitude) String() string {
	return fmt.Sprintf("roll=%.4f pitch=%.4f yaw=%.4f", a.Roll, a.Pitch, a.Yaw)
}

// DecodeAttitude decodes an attitude frame. Each axis is a big-endian
// signed 16-bit value in degrees * 10000.
func DecodeAttitude(f Frame) (*Attitude, error) {
	tag, ok := f.Type()
	if !ok || f.Oversize() {
		return nil, ErrMalformedFrame
	}
	if tag != FrameTypeAttitude {
		return nil, fmt.Errorf("%w: type 0x%02X", ErrNotAttitude, tag)
	}
	if f.Len() < AttitudeFrameLen {
		return nil, fmt.Errorf("%w: %d bytes (need %d)", ErrShortFrame, f.Len(), AttitudeFrameLen)
	}

	b := f.Bytes()
	return &Attitude{
		Roll:  readAngle(b[attitudeRollOffset:]),
		Pitch: readAngle(b[attitudePitchOffset:]),
		Yaw:   readAngle(b[attitudeYawOffset:]),
	}, nil
}

// EncodeAttitude builds a wire frame, marker included. Angles outside the
// int16 range are saturated.
func EncodeAttitude(a Attitude) []byte {
	frame := make([]byte, 1+AttitudeFrameLen)
	frame[0] = MarkerByte
	frame[1] = FrameTypeAttitude
	putAngle(frame[1+attitudeRollOffset:], a.Roll)
	putAngle(frame[1+attitudePitchOffset:], a.Pitch)
	putAngle(frame[1+attitudeYawOffset:], a.Yaw)
	return frame
}

func readAngle(b []byte) float64 {
	return float64(int16(binary.BigEndian.Uint16(b))) / AttitudeScale
}

func putAngle(b []byte, deg float64) {
	raw := math.Round(deg * AttitudeScale)
	if raw > math.MaxInt16 {
		raw = math.MaxInt16
	} else if raw < math.MinInt16 {
		raw = math.MinInt16
	}
	binary.BigEndian.PutUint16(b, uint16(int16(raw)))
}
