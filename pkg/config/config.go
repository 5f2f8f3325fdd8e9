// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config holds joylink settings layered from a TOML file,
// JOYLINK_* environment variables and command line flags. Flags that were
// set explicitly always win.
package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Thermoquad/joylink/pkg/link"
	"github.com/Thermoquad/joylink/pkg/trainer"
)

// Defaults for the flight controller's USB CDC port
const (
	DefaultBaud = 115200
	DefaultVID  = "0483"
	DefaultPID  = "5740"
)

// maxChannel is the highest trainer channel the controller accepts
const maxChannel = 15

// Config holds runtime settings
type Config struct {
	Port     string
	Baud     int
	URL      string
	Username string

	Tick              time.Duration
	HorizontalChannel int
	VerticalChannel   int

	VID string
	PID string

	InputDir string
	LogLevel string

	MQTTBroker string
	MQTTTopic  string
}

// Default returns a Config with default values
func Default() Config {
	return Config{
		Baud:              DefaultBaud,
		Tick:              link.DefaultTick,
		HorizontalChannel: trainer.ChannelHorizontal,
		VerticalChannel:   trainer.ChannelVertical,
		VID:               DefaultVID,
		PID:               DefaultPID,
		LogLevel:          "info",
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Port != "" && c.URL != "" {
		return fmt.Errorf("port and url are mutually exclusive")
	}
	if c.Baud <= 0 {
		return fmt.Errorf("baud must be positive")
	}
	if c.Tick <= 0 {
		return fmt.Errorf("tick must be positive")
	}
	for name, ch := range map[string]int{
		"horizontal-channel": c.HorizontalChannel,
		"vertical-channel":   c.VerticalChannel,
	} {
		if ch < 0 || ch > maxChannel {
			return fmt.Errorf("%s must be between 0 and %d, got %d", name, maxChannel, ch)
		}
	}
	if c.HorizontalChannel == c.VerticalChannel {
		return fmt.Errorf("horizontal and vertical channels must differ")
	}
	if _, err := ParseUSBID(c.VID); err != nil {
		return fmt.Errorf("vid: %w", err)
	}
	if _, err := ParseUSBID(c.PID); err != nil {
		return fmt.Errorf("pid: %w", err)
	}
	return nil
}

// Encoder returns a command encoder for the configured channels
func (c *Config) Encoder() *trainer.Encoder {
	return &trainer.Encoder{
		HorizontalChannel: c.HorizontalChannel,
		VerticalChannel:   c.VerticalChannel,
	}
}

// ParseUSBID parses a 4 digit hex USB vendor or product id
func ParseUSBID(s string) (uint16, error) {
	if len(s) != 4 {
		return 0, fmt.Errorf("expected 4 hex digits, got %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("expected 4 hex digits, got %q", s)
	}
	return uint16(v), nil
}

// setter applies values while respecting flag precedence
type setter struct {
	changed map[string]bool
}

func (s setter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets a positive value
func (s setter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setIntPtr sets a value that may legitimately be zero
func (s setter) setIntPtr(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s setter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

func (s setter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = i
	return nil
}
