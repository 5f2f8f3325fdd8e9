// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package crsf

import "time"

// Frame is one candidate frame cut out of the stream: the bytes between
// two start markers, markers excluded.
type Frame struct {
	data      []byte
	timestamp time.Time
	oversize  bool
}

// NewFrame creates a frame from the bytes following a marker.
// The slice is copied.
func NewFrame(data []byte) Frame {
	return Frame{
		data:      append([]byte(nil), data...),
		timestamp: time.Now(),
	}
}

// Bytes returns the frame bytes, type tag first
func (f Frame) Bytes() []byte {
	return f.data
}

// Len returns the number of bytes in the frame
func (f Frame) Len() int {
	return len(f.data)
}

// Type returns the type tag. ok is false when the frame is too short to
// carry one.
func (f Frame) Type() (tag uint8, ok bool) {
	if len(f.data) < 1 {
		return 0, false
	}
	return f.data[0], true
}

// Payload returns the bytes after the type tag
func (f Frame) Payload() []byte {
	if len(f.data) < 1 {
		return nil
	}
	return f.data[1:]
}

// Timestamp returns the time the decoder cut the frame
func (f Frame) Timestamp() time.Time {
	return f.timestamp
}

// Malformed reports whether the frame cannot be interpreted at all:
// no type tag, or a tail discarded because no marker arrived in time.
func (f Frame) Malformed() bool {
	return len(f.data) < 1 || f.oversize
}

// Oversize reports whether the frame was flushed because the buffer
// exceeded MaxBufferSize without a marker.
func (f Frame) Oversize() bool {
	return f.oversize
}

// IsAttitude reports whether the type tag is the attitude tag
func (f Frame) IsAttitude() bool {
	tag, ok := f.Type()
	return ok && !f.oversize && tag == FrameTypeAttitude
}
