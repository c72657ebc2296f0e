// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package spibus

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

var (
	// ErrTimeout is returned when a transaction could not be queued or did not
	// complete in time.
	ErrTimeout = errors.New("spibus: timeout")
	// ErrBusy is returned by Attach when the bus is already live with an
	// incompatible mode, word size or DMA channel.
	ErrBusy = errors.New("spibus: busy")
	// ErrClosed is returned when using a Device after Close.
	ErrClosed = errors.New("spibus: device closed")
	// ErrNoMemory is returned by an Allocator that cannot satisfy a request.
	ErrNoMemory = errors.New("spibus: out of DMA capable memory")
)

// Attachment tells whether Attach brought the bus up or found it live.
type Attachment int

const (
	// FreshlyAttached means this call initialized the bus.
	FreshlyAttached Attachment = iota
	// AlreadyAttached means the bus was already initialized by a prior user.
	AlreadyAttached
)

func (a Attachment) String() string {
	switch a {
	case FreshlyAttached:
		return "FreshlyAttached"
	case AlreadyAttached:
		return "AlreadyAttached"
	default:
		return fmt.Sprintf("Attachment(%d)", int(a))
	}
}

// Config is what a driver asks of the bus when attaching.
type Config struct {
	// Pin names of the bus lines, as understood by the bus driver. Empty means
	// the driver's default.
	CLK  string
	MOSI string
	MISO string
	// CS is the chip select pin name, informational when the driver toggles
	// chip select itself.
	CS string

	Freq physic.Frequency
	Mode spi.Mode
	// Bits per word; 0 means 8.
	Bits int
	// DMAChannel is 0 when the controller is used without DMA, otherwise the DMA
	// channel to bind.
	DMAChannel int
	// MaxTransfer is the largest transaction the caller will queue.
	MaxTransfer int
}

func (c *Config) String() string {
	return fmt.Sprintf("spibus.Config{CLK:%q MOSI:%q MISO:%q CS:%q %s Mode%d DMA:%d}", c.CLK, c.MOSI, c.MISO, c.CS, c.Freq, int(c.Mode), c.DMAChannel)
}

// Bus is a SPI controller that devices can be attached to.
type Bus interface {
	Attach(cfg *Config) (Device, Attachment, error)
}

// Device is a handle to one device on a Bus.
//
// At most one transaction is in flight at a time: Queue starts it and Await
// waits for its completion. The buffer passed to Queue must not be modified
// until Await returns.
type Device interface {
	Queue(w []byte, timeout time.Duration) error
	Await(timeout time.Duration) error
	Close() error
}

// Allocator hands out buffers suitable for DMA transfers.
//
// Buffers must be returned with Free once the transfer completed.
type Allocator interface {
	Alloc(n int) ([]byte, error)
	Free(b []byte)
}

// HeapAllocator allocates from the Go heap.
//
// Hosts driving the controller through the kernel have no DMA placement
// constraint, so any memory will do. Max, when non zero, caps a single
// allocation and simulates a constrained DMA region.
type HeapAllocator struct {
	Max int
}

// Alloc implements Allocator.
func (h *HeapAllocator) Alloc(n int) ([]byte, error) {
	if n < 0 || (h.Max != 0 && n > h.Max) {
		return nil, fmt.Errorf("%w: %d bytes requested", ErrNoMemory, n)
	}
	return make([]byte, n), nil
}

// Free implements Allocator. The memory is reclaimed by the garbage collector.
func (h *HeapAllocator) Free(b []byte) {
}

var _ Allocator = &HeapAllocator{}
