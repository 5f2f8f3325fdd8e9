// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config with durations as strings. Channels are
// pointers because channel 0 is valid.
type FileConfig struct {
	Port              string `toml:"port"`
	Baud              int    `toml:"baud"`
	URL               string `toml:"url"`
	Username          string `toml:"username"`
	Tick              string `toml:"tick"`
	HorizontalChannel *int   `toml:"horizontal_channel"`
	VerticalChannel   *int   `toml:"vertical_channel"`
	VID               string `toml:"vid"`
	PID               string `toml:"pid"`
	InputDir          string `toml:"input_dir"`
	LogLevel          string `toml:"log_level"`
	MQTTBroker        string `toml:"mqtt_broker"`
	MQTTTopic         string `toml:"mqtt_topic"`
}

// LoadFile reads and parses a TOML config file
func LoadFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

// DefaultPath returns ~/.joylink/config.toml, or "" without a home directory
func DefaultPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".joylink", "config.toml")
	}
	return ""
}

// FileExists reports whether a file exists at p
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// ApplyFile copies file values into cfg, skipping flags in changed
func ApplyFile(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := setter{changed: changed}

	s.setString("port", fc.Port, &cfg.Port)
	s.setInt("baud", fc.Baud, &cfg.Baud)
	s.setString("url", fc.URL, &cfg.URL)
	s.setString("username", fc.Username, &cfg.Username)
	if err := s.setDuration("tick", fc.Tick, &cfg.Tick); err != nil {
		return err
	}
	s.setIntPtr("horizontal-channel", fc.HorizontalChannel, &cfg.HorizontalChannel)
	s.setIntPtr("vertical-channel", fc.VerticalChannel, &cfg.VerticalChannel)
	s.setString("vid", fc.VID, &cfg.VID)
	s.setString("pid", fc.PID, &cfg.PID)
	s.setString("input-dir", fc.InputDir, &cfg.InputDir)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("mqtt-broker", fc.MQTTBroker, &cfg.MQTTBroker)
	s.setString("mqtt-topic", fc.MQTTTopic, &cfg.MQTTTopic)

	return nil
}

// ApplyEnv copies JOYLINK_* environment variables into cfg, skipping flags
// in changed
func ApplyEnv(cfg *Config, changed map[string]bool) error {
	s := setter{changed: changed}

	s.setString("port", os.Getenv("JOYLINK_PORT"), &cfg.Port)
	s.setString("url", os.Getenv("JOYLINK_URL"), &cfg.URL)
	s.setString("username", os.Getenv("JOYLINK_USERNAME"), &cfg.Username)
	s.setString("log-level", os.Getenv("JOYLINK_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("mqtt-broker", os.Getenv("JOYLINK_MQTT_BROKER"), &cfg.MQTTBroker)

	if err := s.setIntFromString("baud", os.Getenv("JOYLINK_BAUD"), &cfg.Baud); err != nil {
		return err
	}
	if err := s.setDuration("tick", os.Getenv("JOYLINK_TICK"), &cfg.Tick); err != nil {
		return err
	}
	return nil
}

// Load layers the file at path (or the default path when it exists) and
// the environment under the flags in changed
func Load(cfg *Config, path string, changed map[string]bool) error {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" && (explicit || FileExists(path)) {
		fc, err := LoadFile(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := ApplyFile(cfg, fc, changed); err != nil {
			return err
		}
	}
	return ApplyEnv(cfg, changed)
}
