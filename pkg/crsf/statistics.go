// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package crsf

import (
	"errors"
	"fmt"
	"time"
)

// Statistics tracks frame counts and rates
type Statistics struct {
	StartTime     time.Time
	LastFrameTime time.Time

	// Counters
	TotalFrames     uint64
	AttitudeFrames  uint64
	IgnoredFrames   uint64
	ShortFrames     uint64
	MalformedFrames uint64
	OversizeFrames  uint64

	// Rates (calculated)
	FrameRate    float64 // frames/sec
	AttitudeRate float64 // attitude frames/sec
	ErrorRate    float64 // short + malformed frames/sec

	now func() time.Time
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	return NewStatisticsWithClock(time.Now)
}

// NewStatisticsWithClock creates a tracker that reads time from now
func NewStatisticsWithClock(now func() time.Time) *Statistics {
	t := now()
	return &Statistics{
		StartTime:     t,
		LastFrameTime: t,
		now:           now,
	}
}

// Update counts a frame and the outcome of decoding it
func (s *Statistics) Update(f Frame, decodeErr error) {
	s.TotalFrames++
	s.LastFrameTime = s.now()

	switch {
	case f.Oversize():
		s.OversizeFrames++
		s.MalformedFrames++
	case decodeErr == nil:
		s.AttitudeFrames++
	case errors.Is(decodeErr, ErrShortFrame):
		s.ShortFrames++
	case errors.Is(decodeErr, ErrMalformedFrame):
		s.MalformedFrames++
	default:
		s.IgnoredFrames++
	}
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := s.now().Sub(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.AttitudeRate = float64(s.AttitudeFrames) / elapsed
		s.ErrorRate = float64(s.ShortFrames+s.MalformedFrames) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var attitudePercent, ignoredPercent float64
	if s.TotalFrames > 0 {
		attitudePercent = float64(s.AttitudeFrames) * 100.0 / float64(s.TotalFrames)
		ignoredPercent = float64(s.IgnoredFrames) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := s.now().Sub(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Attitude Frames: %8d (%.1f%%)\n", s.AttitudeFrames, attitudePercent)
	result += fmt.Sprintf("Ignored Frames:  %8d (%.1f%%)\n", s.IgnoredFrames, ignoredPercent)

	if s.ShortFrames > 0 {
		result += fmt.Sprintf("Short Frames:    %8d\n", s.ShortFrames)
	}
	if s.MalformedFrames > 0 {
		result += fmt.Sprintf("Malformed:       %8d\n", s.MalformedFrames)
		if s.OversizeFrames > 0 {
			result += fmt.Sprintf("  Oversize:         %5d\n", s.OversizeFrames)
		}
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Attitude Rate:   %8.1f frames/sec\n", s.AttitudeRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	now := s.now
	*s = Statistics{now: now}
	s.StartTime = now()
	s.LastFrameTime = s.StartTime
}
