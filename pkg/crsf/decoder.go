// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package crsf

import (
	"bytes"
	"time"
)

// Decoder splits an inbound byte stream into frames on the start marker.
//
// There is no length or checksum on the wire, so every marker byte is
// taken as the start of a new frame. Bytes after the last marker stay
// buffered until the next marker shows up.
type Decoder struct {
	buffer []byte
	now    func() time.Time
}

// NewDecoder creates a new frame decoder
func NewDecoder() *Decoder {
	return NewDecoderWithClock(time.Now)
}

// NewDecoderWithClock creates a decoder that stamps frames using now
func NewDecoderWithClock(now func() time.Time) *Decoder {
	return &Decoder{
		buffer: make([]byte, 0, 256),
		now:    now,
	}
}

// Reset drops any buffered bytes
func (d *Decoder) Reset() {
	d.buffer = d.buffer[:0]
}

// Buffered returns the number of bytes held back waiting for a marker
func (d *Decoder) Buffered() int {
	return len(d.buffer)
}

// Feed appends p to the buffer and returns every frame that is now bounded
// by a marker on its right. Empty segments between consecutive markers are
// skipped. Feed never fails: short or unknown frames are returned as is and
// left to the caller to classify.
func (d *Decoder) Feed(p []byte) []Frame {
	return d.FeedAt(p, d.now())
}

// FeedAt is Feed with the receive time supplied by the caller
func (d *Decoder) FeedAt(p []byte, now time.Time) []Frame {
	d.buffer = append(d.buffer, p...)

	var frames []Frame
	start := 0
	for {
		i := bytes.IndexByte(d.buffer[start:], MarkerByte)
		if i < 0 {
			break
		}
		if i > 0 {
			frames = append(frames, d.cut(d.buffer[start:start+i], now))
		}
		start += i + 1
	}

	// Keep the tail at the front of the backing array
	n := copy(d.buffer, d.buffer[start:])
	d.buffer = d.buffer[:n]

	if len(d.buffer) > MaxBufferSize {
		f := d.cut(d.buffer, now)
		f.oversize = true
		frames = append(frames, f)
		d.buffer = d.buffer[:0]
	}

	return frames
}

func (d *Decoder) cut(segment []byte, now time.Time) Frame {
	return Frame{
		data:      append([]byte(nil), segment...),
		timestamp: now,
	}
}
