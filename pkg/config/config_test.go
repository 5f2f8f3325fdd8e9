// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

// ============================================================
// Validate Tests
// ============================================================

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}
	enc := cfg.Encoder()
	if enc.HorizontalChannel != 0 || enc.VerticalChannel != 3 {
		t.Errorf("Encoder channels = %d, %d; want 0, 3", enc.HorizontalChannel, enc.VerticalChannel)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"port and url", func(c *Config) { c.Port = "/dev/ttyACM0"; c.URL = "ws://x" }, "mutually exclusive"},
		{"zero baud", func(c *Config) { c.Baud = 0 }, "baud"},
		{"zero tick", func(c *Config) { c.Tick = 0 }, "tick"},
		{"negative channel", func(c *Config) { c.HorizontalChannel = -1 }, "horizontal-channel"},
		{"channel too high", func(c *Config) { c.VerticalChannel = 16 }, "vertical-channel"},
		{"same channel", func(c *Config) { c.VerticalChannel = 0 }, "must differ"},
		{"bad vid", func(c *Config) { c.VID = "48" }, "vid"},
		{"bad pid", func(c *Config) { c.PID = "zzzz" }, "pid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseUSBID(t *testing.T) {
	tests := []struct {
		in      string
		want    uint16
		wantErr bool
	}{
		{"0483", 0x0483, false},
		{"5740", 0x5740, false},
		{"ffff", 0xFFFF, false},
		{"483", 0, true},
		{"04833", 0, true},
		{"0x48", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseUSBID(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseUSBID(%q) = 0x%04X, %v", tt.in, got, err)
		}
	}
}

// ============================================================
// File Config Tests
// ============================================================

func TestApplyFile(t *testing.T) {
	tests := []struct {
		name     string
		file     FileConfig
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies values",
			file: FileConfig{
				Port:              "/dev/ttyACM1",
				Baud:              57600,
				Tick:              "20ms",
				HorizontalChannel: intPtr(1),
				VerticalChannel:   intPtr(2),
				MQTTBroker:        "mqtt://localhost:1883",
			},
			changed: map[string]bool{},
			initial: Default(),
			expected: func() Config {
				c := Default()
				c.Port = "/dev/ttyACM1"
				c.Baud = 57600
				c.Tick = 20 * time.Millisecond
				c.HorizontalChannel = 1
				c.VerticalChannel = 2
				c.MQTTBroker = "mqtt://localhost:1883"
				return c
			}(),
		},
		{
			name:    "respects changed flags",
			file:    FileConfig{Port: "/dev/ttyACM1", Baud: 57600},
			changed: map[string]bool{"port": true},
			initial: Config{Port: "/dev/ttyUSB0", Baud: DefaultBaud},
			expected: Config{
				Port: "/dev/ttyUSB0",
				Baud: 57600,
			},
		},
		{
			name:     "zero channel from file",
			file:     FileConfig{HorizontalChannel: intPtr(0)},
			changed:  map[string]bool{},
			initial:  Config{HorizontalChannel: 5},
			expected: Config{HorizontalChannel: 0},
		},
		{
			name:    "invalid duration",
			file:    FileConfig{Tick: "fast"},
			changed: map[string]bool{},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFile(&cfg, tt.file, tt.changed)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyFile error: %v", err)
			}
			if cfg != tt.expected {
				t.Errorf("ApplyFile() = %+v\nwant %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
port = "/dev/ttyACM0"
baud = 115200
tick = "15ms"
horizontal_channel = 0
vertical_channel = 3
vid = "0483"
pid = "5740"
mqtt_topic = "bench"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	fc, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if fc.Port != "/dev/ttyACM0" || fc.Tick != "15ms" || fc.MQTTTopic != "bench" {
		t.Errorf("Unexpected file config: %+v", fc)
	}
	if fc.HorizontalChannel == nil || *fc.HorizontalChannel != 0 {
		t.Errorf("HorizontalChannel = %v, want 0", fc.HorizontalChannel)
	}

	if err := os.WriteFile(path, []byte("baud = \"fast\""), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("Expected error for invalid TOML type")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("JOYLINK_PORT", "/dev/ttyACM9")
	t.Setenv("JOYLINK_BAUD", "9600")
	t.Setenv("JOYLINK_TICK", "50ms")
	t.Setenv("JOYLINK_LOG_LEVEL", "debug")

	cfg := Default()
	if err := ApplyEnv(&cfg, map[string]bool{"baud": true}); err != nil {
		t.Fatalf("ApplyEnv error: %v", err)
	}
	if cfg.Port != "/dev/ttyACM9" || cfg.Tick != 50*time.Millisecond || cfg.LogLevel != "debug" {
		t.Errorf("Unexpected config: %+v", cfg)
	}
	if cfg.Baud != DefaultBaud {
		t.Errorf("Baud = %d, flag should win", cfg.Baud)
	}

	t.Setenv("JOYLINK_BAUD", "lots")
	if err := ApplyEnv(&cfg, map[string]bool{}); err == nil {
		t.Error("Expected error for invalid JOYLINK_BAUD")
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("JOYLINK_PORT", "")

	// Missing default file is fine
	cfg := Default()
	if err := Load(&cfg, "", map[string]bool{}); err != nil {
		t.Fatalf("Load error: %v", err)
	}

	// Missing explicit file is an error
	if err := Load(&cfg, filepath.Join(t.TempDir(), "nope.toml"), map[string]bool{}); err == nil {
		t.Error("Expected error for missing explicit config")
	}

	path := filepath.Join(t.TempDir(), "c.toml")
	if err := os.WriteFile(path, []byte(`url = "ws://bridge.local/ws"`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg = Default()
	if err := Load(&cfg, path, map[string]bool{}); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.URL != "ws://bridge.local/ws" {
		t.Errorf("URL = %q", cfg.URL)
	}
}
