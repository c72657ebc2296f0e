// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package spibustest implements fake spibus and gpio collaborators that
// record every line change and transaction into a shared ordered log.
package spibustest

import (
	"fmt"
	"sync"
	"time"

	"github.com/GermanBionicSystems/oledspi/spibus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// Op is the kind of a recorded Event.
type Op string

// Recorded operations.
const (
	OpAttach Op = "attach"
	OpOut    Op = "out"
	OpQueue  Op = "queue"
	OpAwait  Op = "await"
	OpClose  Op = "close"
	OpAlloc  Op = "alloc"
	OpFree   Op = "free"
)

// Event is one recorded operation.
type Event struct {
	Op Op
	// Pin and Level are set for OpOut.
	Pin   string
	Level gpio.Level
	// W is a copy of the bytes queued for OpQueue.
	W []byte
	// N is the size for OpAlloc and OpFree.
	N int
}

func (e Event) String() string {
	switch e.Op {
	case OpOut:
		return fmt.Sprintf("%s=%s", e.Pin, e.Level)
	case OpQueue:
		return fmt.Sprintf("queue %d", len(e.W))
	case OpAlloc, OpFree:
		return fmt.Sprintf("%s %d", e.Op, e.N)
	default:
		return string(e.Op)
	}
}

// Log is an ordered list of Events shared between fakes.
type Log struct {
	mu     sync.Mutex
	Events []Event
}

func (l *Log) add(e Event) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.Events = append(l.Events, e)
	l.mu.Unlock()
}

// Strings returns the Events formatted with Event.String.
func (l *Log) Strings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.Events))
	for _, e := range l.Events {
		out = append(out, e.String())
	}
	return out
}

// Queued returns the payload of every queued transaction, in order.
func (l *Log) Queued() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out [][]byte
	for _, e := range l.Events {
		if e.Op == OpQueue {
			out = append(out, e.W)
		}
	}
	return out
}

// Reset forgets all Events.
func (l *Log) Reset() {
	l.mu.Lock()
	l.Events = nil
	l.mu.Unlock()
}

// Pin is a gpiotest.Pin that records Out calls.
type Pin struct {
	gpiotest.Pin
	Log *Log
	// Err, when set, is returned by Out after recording the call.
	Err error
}

// NewPin returns a Pin named name recording into l.
func NewPin(name string, l *Log) *Pin {
	return &Pin{Pin: gpiotest.Pin{N: name}, Log: l}
}

// Out implements gpio.PinOut.
func (p *Pin) Out(l gpio.Level) error {
	p.Log.add(Event{Op: OpOut, Pin: p.N, Level: l})
	if p.Err != nil {
		return p.Err
	}
	return p.Pin.Out(l)
}

// Bus is a spibus.Bus handing out recording Devices.
type Bus struct {
	Log *Log
	// Live makes Attach report spibus.AlreadyAttached.
	Live bool
	// AttachErr is returned by Attach when set.
	AttachErr error
	// FailQueue and FailAwait make the n-th call (counting from 1 over the
	// whole Bus lifetime) fail with Err. 0 disables.
	FailQueue int
	FailAwait int
	// Err is the injected failure; spibus.ErrTimeout when nil.
	Err error

	// Config is the last configuration passed to Attach.
	Config spibus.Config
	// Device is the last Device returned by Attach.
	Device *Device

	queued  int
	awaited int
}

// Attach implements spibus.Bus.
func (b *Bus) Attach(cfg *spibus.Config) (spibus.Device, spibus.Attachment, error) {
	if b.AttachErr != nil {
		return nil, spibus.FreshlyAttached, b.AttachErr
	}
	b.Log.add(Event{Op: OpAttach})
	b.Config = *cfg
	a := spibus.FreshlyAttached
	if b.Live {
		a = spibus.AlreadyAttached
	}
	b.Live = true
	b.Device = &Device{bus: b}
	return b.Device, a, nil
}

func (b *Bus) err() error {
	if b.Err != nil {
		return b.Err
	}
	return fmt.Errorf("%w: injected", spibus.ErrTimeout)
}

// Device is a recording spibus.Device.
type Device struct {
	bus      *Bus
	inflight bool
	// Closed counts Close calls.
	Closed int
}

// Queue implements spibus.Device.
func (d *Device) Queue(w []byte, timeout time.Duration) error {
	if d.Closed != 0 {
		return spibus.ErrClosed
	}
	d.bus.queued++
	if d.bus.queued == d.bus.FailQueue {
		return d.bus.err()
	}
	if d.inflight {
		return fmt.Errorf("spibustest: Queue with a transaction in flight")
	}
	d.inflight = true
	d.bus.Log.add(Event{Op: OpQueue, W: append([]byte(nil), w...)})
	return nil
}

// Await implements spibus.Device.
func (d *Device) Await(timeout time.Duration) error {
	if d.Closed != 0 {
		return spibus.ErrClosed
	}
	d.bus.awaited++
	// A timed out transaction is considered drained by the next Queue.
	d.inflight = false
	if d.bus.awaited == d.bus.FailAwait {
		return d.bus.err()
	}
	d.bus.Log.add(Event{Op: OpAwait})
	return nil
}

// Close implements spibus.Device.
func (d *Device) Close() error {
	d.Closed++
	d.bus.Log.add(Event{Op: OpClose})
	return nil
}

// Allocator is a spibus.Allocator that can be told to fail.
type Allocator struct {
	Log *Log
	// Fail makes Alloc return spibus.ErrNoMemory.
	Fail bool
	// Outstanding is the number of buffers allocated and not yet freed.
	Outstanding int
}

// Alloc implements spibus.Allocator.
func (a *Allocator) Alloc(n int) ([]byte, error) {
	if a.Fail {
		return nil, spibus.ErrNoMemory
	}
	a.Outstanding++
	a.Log.add(Event{Op: OpAlloc, N: n})
	return make([]byte, n), nil
}

// Free implements spibus.Allocator.
func (a *Allocator) Free(b []byte) {
	a.Outstanding--
	a.Log.add(Event{Op: OpFree, N: len(b)})
}

var _ spibus.Bus = &Bus{}
var _ spibus.Device = &Device{}
var _ spibus.Allocator = &Allocator{}
var _ gpio.PinOut = &Pin{}
