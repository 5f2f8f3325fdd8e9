// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package sim stands in for the vehicle end of the link on the bench. It
// accepts trainer commands and answers with attitude telemetry.
package sim

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Thermoquad/joylink/pkg/crsf"
	"github.com/Thermoquad/joylink/pkg/trainer"
)

// DefaultRate is the attitude change per second at full deflection
const DefaultRate = 1.0

// maxTilt keeps roll and pitch inside the int16 wire range
const maxTilt = 3.0

// maxYaw bounds yaw to the same wire range. Yaw wraps at the edge instead
// of saturating.
const maxYaw = 3.0

// Vehicle integrates commanded stick values into an attitude
type Vehicle struct {
	HorizontalChannel int
	VerticalChannel   int
	Rate              float64

	horizontal int
	vertical   int
	telemetry  bool
	commands   uint64
	attitude   crsf.Attitude
}

// NewVehicle creates a vehicle listening on the default channels
func NewVehicle() *Vehicle {
	return &Vehicle{
		HorizontalChannel: trainer.ChannelHorizontal,
		VerticalChannel:   trainer.ChannelVertical,
		Rate:              DefaultRate,
	}
}

// HandleLine applies one inbound line. Commands for other channels are
// accepted and ignored.
func (v *Vehicle) HandleLine(line string) error {
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return nil
	case strings.TrimSpace(trainer.TelemetryOn):
		v.telemetry = true
		return nil
	case strings.TrimSpace(trainer.TelemetryOff):
		v.telemetry = false
		return nil
	}

	ch, val, err := trainer.ParseCommand(line)
	if err != nil {
		return err
	}
	if val < trainer.MinValue || val > trainer.MaxValue {
		return fmt.Errorf("value %d out of range on channel %d", val, ch)
	}
	v.commands++
	switch ch {
	case v.HorizontalChannel:
		v.horizontal = val
	case v.VerticalChannel:
		v.vertical = val
	}
	return nil
}

// Telemetry reports whether the link asked for telemetry
func (v *Vehicle) Telemetry() bool {
	return v.telemetry
}

// Commands returns the number of trainer commands accepted
func (v *Vehicle) Commands() uint64 {
	return v.commands
}

// Sticks returns the last commanded horizontal and vertical values
func (v *Vehicle) Sticks() (horizontal, vertical int) {
	return v.horizontal, v.vertical
}

// Step advances the attitude by dt. Horizontal drives roll, vertical
// drives pitch and yaw follows roll.
func (v *Vehicle) Step(dt time.Duration) {
	s := dt.Seconds() * v.Rate
	v.attitude.Roll = clamp(v.attitude.Roll+s*float64(v.horizontal)/trainer.MaxValue, maxTilt)
	v.attitude.Pitch = clamp(v.attitude.Pitch+s*float64(v.vertical)/trainer.MaxValue, maxTilt)
	v.attitude.Yaw = wrap(v.attitude.Yaw + s*v.attitude.Roll*0.5)
}

// Attitude returns the current attitude
func (v *Vehicle) Attitude() crsf.Attitude {
	return v.attitude
}

// AttitudeFrame returns the current attitude as a wire frame. The link
// has no byte stuffing, so an angle whose encoding contains the marker is
// moved up to the next clean value.
func (v *Vehicle) AttitudeFrame() []byte {
	return crsf.EncodeAttitude(crsf.Attitude{
		Roll:  markerSafe(v.attitude.Roll),
		Pitch: markerSafe(v.attitude.Pitch),
		Yaw:   markerSafe(v.attitude.Yaw),
	})
}

// BatteryFrame returns a fixed battery sensor frame. joylink never decodes
// it; it exercises the ignored frame path.
func BatteryFrame() []byte {
	return []byte{crsf.MarkerByte, crsf.FrameTypeBattery, 0x00, 0xA8, 0x00, 0x0C, 0x00, 0x04, 0xB0, 0x55}
}

func markerSafe(x float64) float64 {
	raw := int16(math.Round(x * crsf.AttitudeScale))
	for {
		u := uint16(raw)
		if byte(u>>8) != crsf.MarkerByte && byte(u) != crsf.MarkerByte {
			return float64(raw) / crsf.AttitudeScale
		}
		raw++
	}
}

func clamp(x, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, x))
}

// wrap folds yaw into [-maxYaw, maxYaw)
func wrap(x float64) float64 {
	const span = 2 * maxYaw
	return math.Mod(math.Mod(x+maxYaw, span)+span, span) - maxYaw
}
