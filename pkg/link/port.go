// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"io"
	"sync"
)

// Port is the duplex byte channel the loop drives
type Port interface {
	Write(p []byte) (int, error)
	// ReadAvailable returns whatever has arrived since the last call
	// without blocking. An error is terminal.
	ReadAvailable() ([]byte, error)
	Close() error
}

// PumpPort adapts a blocking connection into a Port. A reader goroutine
// copies incoming chunks into a queue that ReadAvailable drains.
type PumpPort struct {
	conn io.ReadWriteCloser
	data chan []byte
	done chan struct{}

	mu  sync.Mutex
	err error

	closeOnce sync.Once
}

// NewPumpPort starts reading from conn
func NewPumpPort(conn io.ReadWriteCloser) *PumpPort {
	p := &PumpPort{
		conn: conn,
		data: make(chan []byte, 64),
		done: make(chan struct{}),
	}
	go p.pump()
	return p
}

func (p *PumpPort) pump() {
	defer close(p.data)
	buf := make([]byte, 256)
	for {
		n, err := p.conn.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			select {
			case p.data <- chunk:
			case <-p.done:
				return
			}
		}
		if err != nil {
			p.mu.Lock()
			p.err = err
			p.mu.Unlock()
			return
		}
	}
}

// Write implements Port
func (p *PumpPort) Write(b []byte) (int, error) {
	return p.conn.Write(b)
}

// ReadAvailable implements Port. Queued bytes are always returned before
// the reader's error is reported.
func (p *PumpPort) ReadAvailable() ([]byte, error) {
	var out []byte
	for {
		select {
		case chunk, ok := <-p.data:
			if !ok {
				if len(out) > 0 {
					return out, nil
				}
				p.mu.Lock()
				defer p.mu.Unlock()
				if p.err == nil {
					return nil, io.EOF
				}
				return nil, p.err
			}
			out = append(out, chunk...)
		default:
			return out, nil
		}
	}
}

// Close stops the reader and closes the connection
func (p *PumpPort) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		err = p.conn.Close()
	})
	return err
}
