// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import "sort"

// Device describes a connected input device
type Device struct {
	Index int
	Name  string
}

// Registry tracks the input devices the loop accepts axis updates from
type Registry struct {
	devices map[int]Device
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{devices: make(map[int]Device)}
}

// Add registers a device. Returns false if the index was already known.
func (r *Registry) Add(d Device) bool {
	_, exists := r.devices[d.Index]
	r.devices[d.Index] = d
	return !exists
}

// Remove forgets a device. Returns false if it was not registered.
func (r *Registry) Remove(index int) bool {
	if _, ok := r.devices[index]; !ok {
		return false
	}
	delete(r.devices, index)
	return true
}

// Has reports whether a device index is registered
func (r *Registry) Has(index int) bool {
	_, ok := r.devices[index]
	return ok
}

// Len returns the number of registered devices
func (r *Registry) Len() int {
	return len(r.devices)
}

// Devices returns the registered devices ordered by index
func (r *Registry) Devices() []Device {
	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
