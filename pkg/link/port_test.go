// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"
	"time"
)

// pipeConn reads from a pipe and records writes
type pipeConn struct {
	r *io.PipeReader

	mu      sync.Mutex
	written bytes.Buffer
	closed  bool
}

func (c *pipeConn) Read(p []byte) (int, error) { return c.r.Read(p) }

func (c *pipeConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written.Write(p)
}

func (c *pipeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return c.r.Close()
}

// readUntil polls ReadAvailable until n bytes or an error arrive
func readUntil(t *testing.T, p *PumpPort, n int) ([]byte, error) {
	t.Helper()
	var got []byte
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		data, err := p.ReadAvailable()
		got = append(got, data...)
		if err != nil || len(got) >= n {
			return got, err
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d bytes, have %d", n, len(got))
	return nil, nil
}

func TestPumpPort_ReadAvailable(t *testing.T) {
	r, w := io.Pipe()
	conn := &pipeConn{r: r}
	p := NewPumpPort(conn)
	defer p.Close()

	// Nothing queued yet
	if data, err := p.ReadAvailable(); err != nil || len(data) != 0 {
		t.Fatalf("ReadAvailable on idle port = % X, %v", data, err)
	}

	go func() {
		w.Write([]byte{0xEA, 0x1E})
		w.Write([]byte{0x00, 0x0A})
	}()

	got, err := readUntil(t, p, 4)
	if err != nil {
		t.Fatalf("ReadAvailable error: %v", err)
	}
	if !bytes.Equal(got, []byte{0xEA, 0x1E, 0x00, 0x0A}) {
		t.Errorf("got % X", got)
	}
}

func TestPumpPort_ErrorAfterData(t *testing.T) {
	r, w := io.Pipe()
	p := NewPumpPort(&pipeConn{r: r})
	defer p.Close()

	boom := errors.New("unplugged")
	go func() {
		w.Write([]byte{0x01, 0x02, 0x03})
		w.CloseWithError(boom)
	}()

	got, err := readUntil(t, p, 3)
	if !bytes.Equal(got, []byte{0x01, 0x02, 0x03}) {
		t.Fatalf("got % X before error", got)
	}
	if err == nil {
		_, err = readUntil(t, p, 1)
	}
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
}

func TestPumpPort_WriteAndClose(t *testing.T) {
	r, _ := io.Pipe()
	conn := &pipeConn{r: r}
	p := NewPumpPort(conn)

	if _, err := p.Write([]byte("telemetry on\r\n")); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	// Second close is a no-op
	if err := p.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if conn.written.String() != "telemetry on\r\n" {
		t.Errorf("written = %q", conn.written.String())
	}
	if !conn.closed {
		t.Error("underlying connection not closed")
	}
}

// ============================================================
// Registry Tests
// ============================================================

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	if !r.Add(Device{Index: 3, Name: "stick"}) {
		t.Error("Add of new device should return true")
	}
	if r.Add(Device{Index: 3, Name: "stick"}) {
		t.Error("Add of known device should return false")
	}
	r.Add(Device{Index: 1, Name: "pad"})

	if r.Len() != 2 || !r.Has(1) || !r.Has(3) || r.Has(2) {
		t.Errorf("Registry contents unexpected: %+v", r.Devices())
	}

	devs := r.Devices()
	if devs[0].Index != 1 || devs[1].Index != 3 {
		t.Errorf("Devices() not ordered: %+v", devs)
	}

	if !r.Remove(3) || r.Remove(3) {
		t.Error("Remove should succeed once")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestMultiSink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	var funcEvents int
	m := MultiSink{a, b, TelemetryFunc(func(TelemetryEvent) { funcEvents++ })}

	m.HandleTelemetry(TelemetryEvent{})
	m.HandleTick(TickStats{Seq: 1})

	if len(a.events) != 1 || len(b.events) != 1 || funcEvents != 1 {
		t.Errorf("telemetry fan-out: a=%d b=%d f=%d", len(a.events), len(b.events), funcEvents)
	}
	if len(a.ticks) != 1 || len(b.ticks) != 1 {
		t.Errorf("tick fan-out: a=%d b=%d", len(a.ticks), len(b.ticks))
	}
}
