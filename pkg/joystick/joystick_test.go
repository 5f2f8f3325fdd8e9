// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package joystick

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Thermoquad/joylink/pkg/link"
)

// ============================================================
// Event Tests
// ============================================================

func TestDecodeEvent(t *testing.T) {
	// time=0x01020304, value=-32767, type=axis|init, number=1
	buf := []byte{0x04, 0x03, 0x02, 0x01, 0x01, 0x80, 0x82, 0x01}
	ev := decodeEvent(buf)

	if ev.Time != 0x01020304 {
		t.Errorf("Time = 0x%X", ev.Time)
	}
	if ev.Value != -32767 {
		t.Errorf("Value = %d, want -32767", ev.Value)
	}
	if !ev.IsAxis() || !ev.IsInit() || ev.IsButton() {
		t.Errorf("Type flags wrong for 0x%02X", ev.Type)
	}
	if ev.Number != 1 {
		t.Errorf("Number = %d, want 1", ev.Number)
	}
	if math.Abs(ev.Normalized()+1) > 1e-9 {
		t.Errorf("Normalized() = %f, want -1", ev.Normalized())
	}
}

func TestEvent_Button(t *testing.T) {
	ev := Event{Type: evButton, Value: 1}
	if !ev.IsButton() || ev.IsAxis() || ev.IsInit() {
		t.Errorf("Type flags wrong for button event")
	}
}

func TestNodeIndex(t *testing.T) {
	tests := []struct {
		name  string
		index int
		ok    bool
	}{
		{"js0", 0, true},
		{"js12", 12, true},
		{"event3", 0, false},
		{"js", 0, false},
		{"jsx", 0, false},
		{"mouse0", 0, false},
	}
	for _, tt := range tests {
		index, ok := nodeIndex(tt.name)
		if index != tt.index || ok != tt.ok {
			t.Errorf("nodeIndex(%q) = %d, %v; want %d, %v", tt.name, index, ok, tt.index, tt.ok)
		}
	}
}

// ============================================================
// Source Tests
// ============================================================

type fakeDevice struct {
	name      string
	events    chan Event
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeDevice(name string) *fakeDevice {
	return &fakeDevice{
		name:   name,
		events: make(chan Event, 16),
		closed: make(chan struct{}),
	}
}

func (d *fakeDevice) Close() error {
	d.closeOnce.Do(func() { close(d.closed) })
	return nil
}

func (d *fakeDevice) Name() string   { return d.name }
func (d *fakeDevice) AxisCount() int { return 2 }

func (d *fakeDevice) ReadEvent() (Event, error) {
	select {
	case ev := <-d.events:
		return ev, nil
	case <-d.closed:
		return Event{}, io.EOF
	}
}

func (d *fakeDevice) isClosed() bool {
	select {
	case <-d.closed:
		return true
	default:
		return false
	}
}

// waitFor polls the source until match returns true for some event
func waitFor(t *testing.T, src *Source, what string, match func(link.InputEvent) bool) link.InputEvent {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		for _, ev := range src.Poll() {
			if match(ev) {
				return ev
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
	return link.InputEvent{}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSource_ScanHotplugAndRemoval(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "js0"))
	touch(t, filepath.Join(dir, "event0"))

	var mu sync.Mutex
	fakes := map[string]*fakeDevice{
		"js0": newFakeDevice("Pad Zero"),
		"js1": newFakeDevice("Stick One"),
	}
	open := func(path string) (Device, error) {
		mu.Lock()
		defer mu.Unlock()
		d, ok := fakes[filepath.Base(path)]
		if !ok {
			return nil, os.ErrNotExist
		}
		return d, nil
	}

	src, err := NewSource(Options{Dir: dir, Open: open, OpenBackoff: time.Millisecond})
	if err != nil {
		t.Fatalf("NewSource error: %v", err)
	}
	defer src.Close()

	added := waitFor(t, src, "js0 added", func(ev link.InputEvent) bool {
		return ev.Kind == link.InputDeviceAdded
	})
	if added.Device != 0 || added.Name != "Pad Zero" {
		t.Errorf("Added event = %+v", added)
	}

	fakes["js0"].events <- Event{Type: evAxis | evInit, Number: 1, Value: -16384}
	axis := waitFor(t, src, "axis event", func(ev link.InputEvent) bool {
		return ev.Kind == link.InputAxis
	})
	if axis.Device != 0 || axis.Axis != 1 || math.Abs(axis.Value+16384.0/32767.0) > 1e-9 {
		t.Errorf("Axis event = %+v", axis)
	}

	// Buttons are not forwarded
	fakes["js0"].events <- Event{Type: evButton, Number: 0, Value: 1}
	fakes["js0"].events <- Event{Type: evAxis, Number: 0, Value: 100}
	next := waitFor(t, src, "second axis event", func(ev link.InputEvent) bool { return true })
	if next.Kind != link.InputAxis || next.Axis != 0 {
		t.Errorf("Expected axis 0 event after button, got %+v", next)
	}

	touch(t, filepath.Join(dir, "js1"))
	hot := waitFor(t, src, "js1 hotplug", func(ev link.InputEvent) bool {
		return ev.Kind == link.InputDeviceAdded && ev.Device == 1
	})
	if hot.Name != "Stick One" {
		t.Errorf("Hotplug name = %q", hot.Name)
	}

	fakes["js0"].Close()
	waitFor(t, src, "js0 removed", func(ev link.InputEvent) bool {
		return ev.Kind == link.InputDeviceRemoved && ev.Device == 0
	})
	if src.Devices() != 1 {
		t.Errorf("Devices() = %d, want 1", src.Devices())
	}

	if err := src.Close(); err != nil {
		t.Errorf("Close error: %v", err)
	}
	if !fakes["js1"].isClosed() {
		t.Error("Close should close open devices")
	}
}

func TestSource_RemoveEventClosesDevice(t *testing.T) {
	dir := t.TempDir()
	node := filepath.Join(dir, "js4")
	touch(t, node)

	dev := newFakeDevice("Wheel")
	src, err := NewSource(Options{
		Dir:  dir,
		Open: func(string) (Device, error) { return dev, nil },
	})
	if err != nil {
		t.Fatalf("NewSource error: %v", err)
	}
	defer src.Close()

	waitFor(t, src, "js4 added", func(ev link.InputEvent) bool {
		return ev.Kind == link.InputDeviceAdded && ev.Device == 4
	})

	if err := os.Remove(node); err != nil {
		t.Fatal(err)
	}
	waitFor(t, src, "js4 removed", func(ev link.InputEvent) bool {
		return ev.Kind == link.InputDeviceRemoved && ev.Device == 4
	})
	if !dev.isClosed() {
		t.Error("Device not closed after node removal")
	}
}

func TestSource_ReattachKeepsDeviceRegistered(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var opened []*fakeDevice
	open := func(path string) (Device, error) {
		mu.Lock()
		defer mu.Unlock()
		d := newFakeDevice(fmt.Sprintf("Pad %d", len(opened)))
		opened = append(opened, d)
		return d, nil
	}

	src, err := NewSource(Options{Dir: dir, Open: open})
	if err != nil {
		t.Fatalf("NewSource error: %v", err)
	}
	defer src.Close()

	// Scan and hotplug both seeing the same node
	node := filepath.Join(dir, "js0")
	src.attach(0, node, 1)
	src.attach(0, node, 1)

	if !opened[0].isClosed() {
		t.Error("Replaced device should be closed")
	}

	registry := link.NewRegistry()
	apply := func(events []link.InputEvent) {
		for _, ev := range events {
			switch ev.Kind {
			case link.InputDeviceAdded:
				registry.Add(link.Device{Index: ev.Device, Name: ev.Name})
			case link.InputDeviceRemoved:
				t.Errorf("Unexpected removal of device %d", ev.Device)
				registry.Remove(ev.Device)
			}
		}
	}

	// Give the replaced reader time to exit
	deadline := time.Now().Add(100 * time.Millisecond)
	for time.Now().Before(deadline) {
		apply(src.Poll())
		time.Sleep(5 * time.Millisecond)
	}

	opened[1].events <- Event{Type: evAxis, Number: 0, Value: 200}
	axis := waitFor(t, src, "axis from replacement", func(ev link.InputEvent) bool {
		return ev.Kind == link.InputAxis
	})

	if !registry.Has(axis.Device) {
		t.Error("Replacement device dropped from registry")
	}
	if src.Devices() != 1 {
		t.Errorf("Devices() = %d, want 1", src.Devices())
	}
}

func TestNewSource_MissingDir(t *testing.T) {
	_, err := NewSource(Options{Dir: filepath.Join(t.TempDir(), "missing")})
	if err == nil {
		t.Error("Expected error for missing directory")
	}
}
