// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Joylink - Joystick to Trainer Link
//
// A CLI tool that drives a vehicle over a serial or WebSocket link from a
// local joystick and decodes the attitude telemetry it streams back.

package main

import (
	"os"

	"github.com/Thermoquad/joylink/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
