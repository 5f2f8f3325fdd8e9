// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

//go:build !linux

package joystick

// Open is only implemented on Linux
func Open(path string) (Device, error) {
	return nil, ErrUnsupported
}
