// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

//go:build linux

package joystick

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	iocGAXES uint = 0x80016a11
	iocGNAME uint = 0x80ff6a13
)

type linuxDevice struct {
	file      *os.File
	name      string
	axisCount uint8
}

// Open opens the joystick device node at path
func Open(path string) (Device, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	d := &linuxDevice{file: f}

	if errno := d.ioctl(iocGAXES, unsafe.Pointer(&d.axisCount)); errno != 0 {
		f.Close()
		return nil, fmt.Errorf("JSIOCGAXES %s: %w", path, errno)
	}

	var buf [256]byte
	if errno := d.ioctl(iocGNAME, unsafe.Pointer(&buf)); errno != 0 {
		f.Close()
		return nil, fmt.Errorf("JSIOCGNAME %s: %w", path, errno)
	}
	if pos := bytes.IndexByte(buf[:], 0); pos >= 0 {
		d.name = string(buf[:pos])
	} else {
		d.name = string(buf[:])
	}

	return d, nil
}

func (d *linuxDevice) Close() error {
	return d.file.Close()
}

func (d *linuxDevice) Name() string {
	return d.name
}

func (d *linuxDevice) AxisCount() int {
	return int(d.axisCount)
}

func (d *linuxDevice) ReadEvent() (Event, error) {
	var buf [eventSize]byte
	if _, err := io.ReadFull(d.file, buf[:]); err != nil {
		return Event{}, err
	}
	return decodeEvent(buf[:]), nil
}

// ioctl goes through SyscallConn so the file stays on the runtime poller
// and Close can interrupt a pending read.
func (d *linuxDevice) ioctl(req uint, ptr unsafe.Pointer) unix.Errno {
	rc, err := d.file.SyscallConn()
	if err != nil {
		return unix.EBADF
	}
	var errno unix.Errno
	rc.Control(func(fd uintptr) {
		_, _, errno = unix.Syscall(unix.SYS_IOCTL, fd, uintptr(req), uintptr(ptr))
	})
	return errno
}
