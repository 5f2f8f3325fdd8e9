// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package joystick

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Thermoquad/joylink/pkg/link"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDir is where the kernel creates joystick nodes
const DefaultDir = "/dev/input"

const (
	nodePrefix   = "js"
	queueSize    = 512
	openAttempts = 10
	openBackoff  = 100 * time.Millisecond
)

// Options configures a Source
type Options struct {
	// Dir is scanned and watched for jsN nodes. Defaults to DefaultDir.
	Dir string
	// Open opens a device node. Defaults to Open.
	Open func(path string) (Device, error)
	// OpenBackoff is the wait between open attempts after hotplug
	OpenBackoff time.Duration
	Logger      zerolog.Logger
}

// Source implements link.InputSource over every joystick node in a
// directory. Each device is read on its own goroutine; Poll drains the
// shared queue.
type Source struct {
	opts    Options
	log     zerolog.Logger
	watcher *fsnotify.Watcher
	events  chan link.InputEvent
	done    chan struct{}

	mu      sync.Mutex
	devices map[int]Device

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewSource opens every joystick present in the directory and starts
// watching it for new ones
func NewSource(opts Options) (*Source, error) {
	if opts.Dir == "" {
		opts.Dir = DefaultDir
	}
	if opts.Open == nil {
		opts.Open = Open
	}
	if opts.OpenBackoff <= 0 {
		opts.OpenBackoff = openBackoff
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(opts.Dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", opts.Dir, err)
	}

	s := &Source{
		opts:    opts,
		log:     opts.Logger.With().Str("component", "joystick").Logger(),
		watcher: watcher,
		events:  make(chan link.InputEvent, queueSize),
		done:    make(chan struct{}),
		devices: make(map[int]Device),
	}

	entries, err := os.ReadDir(opts.Dir)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to scan %s: %w", opts.Dir, err)
	}
	for _, e := range entries {
		if index, ok := nodeIndex(e.Name()); ok {
			s.attach(index, filepath.Join(opts.Dir, e.Name()), 1)
		}
	}

	s.wg.Add(1)
	go s.watch()

	return s, nil
}

// Poll implements link.InputSource
func (s *Source) Poll() []link.InputEvent {
	var out []link.InputEvent
	for {
		select {
		case ev := <-s.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

// Close stops watching and closes every open device
func (s *Source) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.watcher.Close()

		s.mu.Lock()
		for index, d := range s.devices {
			d.Close()
			delete(s.devices, index)
		}
		s.mu.Unlock()

		s.wg.Wait()
	})
	return err
}

// Devices returns the number of open devices
func (s *Source) Devices() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.devices)
}

func (s *Source) watch() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			index, isNode := nodeIndex(filepath.Base(ev.Name))
			if !isNode {
				continue
			}
			switch {
			case ev.Has(fsnotify.Create):
				s.wg.Add(1)
				go func() {
					defer s.wg.Done()
					s.attach(index, ev.Name, openAttempts)
				}()
			case ev.Has(fsnotify.Remove):
				s.detach(index)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn().Err(err).Msg("watcher error")
		}
	}
}

// attach opens a node, retrying while udev settles permissions
func (s *Source) attach(index int, path string, attempts int) {
	var d Device
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-s.done:
				return
			case <-time.After(s.opts.OpenBackoff):
			}
		}
		if d, err = s.opts.Open(path); err == nil {
			break
		}
	}
	if err != nil {
		if !errors.Is(err, ErrUnsupported) {
			s.log.Warn().Err(err).Str("path", path).Msg("failed to open joystick")
		}
		return
	}

	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		d.Close()
		return
	default:
	}
	if old, exists := s.devices[index]; exists {
		old.Close()
	}
	s.devices[index] = d
	s.mu.Unlock()

	s.log.Debug().Int("device", index).Str("name", d.Name()).Int("axes", d.AxisCount()).Msg("opened joystick")
	s.push(link.InputEvent{Kind: link.InputDeviceAdded, Device: index, Name: d.Name()})

	s.wg.Add(1)
	go s.read(index, d)
}

func (s *Source) detach(index int) {
	s.mu.Lock()
	d, ok := s.devices[index]
	if ok {
		delete(s.devices, index)
	}
	s.mu.Unlock()
	if ok {
		d.Close()
	}
}

func (s *Source) read(index int, d Device) {
	defer s.wg.Done()
	for {
		ev, err := d.ReadEvent()
		if err != nil {
			// A replacement opened on the same index owns the slot
			s.mu.Lock()
			cur, exists := s.devices[index]
			replaced := exists && cur != d
			if exists && !replaced {
				delete(s.devices, index)
			}
			s.mu.Unlock()
			d.Close()
			if !replaced {
				s.push(link.InputEvent{Kind: link.InputDeviceRemoved, Device: index})
			}
			return
		}
		if ev.IsAxis() {
			s.push(link.InputEvent{
				Kind:   link.InputAxis,
				Device: index,
				Axis:   int(ev.Number),
				Value:  ev.Normalized(),
			})
		}
	}
}

func (s *Source) push(ev link.InputEvent) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// nodeIndex parses "js3" into 3
func nodeIndex(name string) (int, bool) {
	if !strings.HasPrefix(name, nodePrefix) {
		return 0, false
	}
	index, err := strconv.Atoi(strings.TrimPrefix(name, nodePrefix))
	if err != nil || index < 0 {
		return 0, false
	}
	return index, true
}
