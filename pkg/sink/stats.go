// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sink

import (
	"sync"
	"time"

	"github.com/Thermoquad/joylink/pkg/crsf"
	"github.com/Thermoquad/joylink/pkg/link"
)

// Stats counts frames for display while the loop runs
type Stats struct {
	mu    sync.Mutex
	stats *crsf.Statistics
	ticks uint64
	last  link.TickStats
}

// NewStats creates a statistics sink
func NewStats() *Stats {
	return NewStatsWithClock(time.Now)
}

// NewStatsWithClock creates a statistics sink that reads time from now
func NewStatsWithClock(now func() time.Time) *Stats {
	return &Stats{stats: crsf.NewStatisticsWithClock(now)}
}

// HandleTelemetry implements link.Sink
func (s *Stats) HandleTelemetry(ev link.TelemetryEvent) {
	s.mu.Lock()
	s.stats.Update(ev.Frame, ev.Err)
	s.mu.Unlock()
}

// HandleTick implements link.Sink
func (s *Stats) HandleTick(st link.TickStats) {
	s.mu.Lock()
	s.ticks++
	s.last = st
	s.mu.Unlock()
}

// Snapshot returns a copy of the counters with rates calculated
func (s *Stats) Snapshot() crsf.Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.CalculateRates()
	return *s.stats
}

// Ticks returns the number of ticks seen and the most recent one
func (s *Stats) Ticks() (uint64, link.TickStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks, s.last
}

// String returns the formatted statistics summary
func (s *Stats) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats.String()
}
