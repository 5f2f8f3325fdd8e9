// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sink

import (
	"fmt"
	"io"
	"sync"

	"github.com/Thermoquad/joylink/pkg/link"
	"github.com/fxamacker/cbor/v2"
)

// Record types
const (
	RecordAttitude uint8 = 0x01
	RecordFrame    uint8 = 0x02
	RecordTick     uint8 = 0x03
)

// Record map keys
const (
	KeyTimestamp  = 0 // unix microseconds
	KeyDelay      = 1 // microseconds
	KeyRoll       = 2
	KeyPitch      = 3
	KeyYaw        = 4
	KeyFrameType  = 5
	KeyData       = 6
	KeyError      = 7
	KeySeq        = 8
	KeyHorizontal = 9
	KeyVertical   = 10
	KeyWork       = 11 // microseconds
	KeyDevices    = 12
)

// TelemetryRecord builds the CBOR record for a telemetry event:
// [type, {key: value}]
func TelemetryRecord(ev link.TelemetryEvent) ([]byte, error) {
	payload := map[int]interface{}{
		KeyTimestamp: ev.Timestamp.UnixMicro(),
		KeyDelay:     ev.Delay.Microseconds(),
	}
	if ev.Attitude != nil {
		payload[KeyRoll] = ev.Attitude.Roll
		payload[KeyPitch] = ev.Attitude.Pitch
		payload[KeyYaw] = ev.Attitude.Yaw
		return marshalRecord(RecordAttitude, payload)
	}

	if tag, ok := ev.Frame.Type(); ok {
		payload[KeyFrameType] = tag
	}
	payload[KeyData] = ev.Frame.Bytes()
	if ev.Err != nil {
		payload[KeyError] = ev.Err.Error()
	}
	return marshalRecord(RecordFrame, payload)
}

// TickRecord builds the CBOR record for a tick
func TickRecord(st link.TickStats) ([]byte, error) {
	return marshalRecord(RecordTick, map[int]interface{}{
		KeyTimestamp:  st.Start.UnixMicro(),
		KeySeq:        st.Seq,
		KeyHorizontal: st.State.Horizontal,
		KeyVertical:   st.State.Vertical,
		KeyWork:       st.Work.Microseconds(),
		KeyDevices:    st.Devices,
	})
}

func marshalRecord(recordType uint8, payload map[int]interface{}) ([]byte, error) {
	data, err := cbor.Marshal([]interface{}{recordType, payload})
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return data, nil
}

// ParseRecord decodes a record built by TelemetryRecord or TickRecord
func ParseRecord(data []byte) (recordType uint8, payload map[int]interface{}, err error) {
	if len(data) == 0 {
		return 0, nil, fmt.Errorf("empty record")
	}

	var msg []interface{}
	if err := cbor.Unmarshal(data, &msg); err != nil {
		return 0, nil, fmt.Errorf("failed to decode CBOR: %w", err)
	}
	if len(msg) != 2 {
		return 0, nil, fmt.Errorf("expected 2-element array, got %d elements", len(msg))
	}

	v, ok := msg[0].(uint64)
	if !ok || v > 255 {
		return 0, nil, fmt.Errorf("invalid record type: %v", msg[0])
	}
	recordType = uint8(v)

	m, ok := msg[1].(map[interface{}]interface{})
	if !ok {
		return 0, nil, fmt.Errorf("expected map payload, got %T", msg[1])
	}
	payload = make(map[int]interface{}, len(m))
	for key, val := range m {
		switch k := key.(type) {
		case uint64:
			payload[int(k)] = val
		case int64:
			payload[int(k)] = val
		default:
			return 0, nil, fmt.Errorf("expected integer map key, got %T", key)
		}
	}
	return recordType, payload, nil
}

// CBORStream writes records as a CBOR sequence. Ticks are written only
// when Ticks is set. The first write error stops the stream.
type CBORStream struct {
	Ticks bool

	mu  sync.Mutex
	w   io.Writer
	err error
}

// NewCBORStream creates a stream sink writing to w
func NewCBORStream(w io.Writer) *CBORStream {
	return &CBORStream{w: w}
}

// HandleTelemetry implements link.Sink
func (c *CBORStream) HandleTelemetry(ev link.TelemetryEvent) {
	c.write(TelemetryRecord(ev))
}

// HandleTick implements link.Sink
func (c *CBORStream) HandleTick(st link.TickStats) {
	if c.Ticks {
		c.write(TickRecord(st))
	}
}

// Err returns the error that stopped the stream, if any
func (c *CBORStream) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *CBORStream) write(data []byte, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return
	}
	if err != nil {
		c.err = err
		return
	}
	if _, err := c.w.Write(data); err != nil {
		c.err = fmt.Errorf("failed to write record: %w", err)
	}
}
