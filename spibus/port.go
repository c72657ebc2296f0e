// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package spibus

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/spi"
)

// Port is a Bus backed by a periph.io spi.Port.
//
// The first Attach connects the port with the requested frequency, mode and
// word size. The connection is kept for the lifetime of the Port, so every
// later Attach reports AlreadyAttached and shares it.
type Port struct {
	mu   sync.Mutex
	p    spi.Port
	c    spi.Conn
	cfg  Config
	refs int
}

// NewPort returns a Bus using p.
func NewPort(p spi.Port) *Port {
	return &Port{p: p}
}

func (p *Port) String() string {
	return fmt.Sprintf("spibus.Port{%s}", p.p)
}

// Attach implements Bus.
func (p *Port) Attach(cfg *Config) (Device, Attachment, error) {
	if cfg == nil {
		return nil, FreshlyAttached, fmt.Errorf("spibus: nil config")
	}
	bits := cfg.Bits
	if bits == 0 {
		bits = 8
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.c != nil {
		if cfg.Mode != p.cfg.Mode || bits != p.cfg.Bits || cfg.DMAChannel != p.cfg.DMAChannel {
			return nil, AlreadyAttached, fmt.Errorf("%w: live as %s, requested %s", ErrBusy, &p.cfg, cfg)
		}
		p.refs++
		return p.newDevice(), AlreadyAttached, nil
	}
	c, err := p.p.Connect(cfg.Freq, cfg.Mode, bits)
	if err != nil {
		return nil, FreshlyAttached, fmt.Errorf("spibus: connect: %w", err)
	}
	p.c = c
	p.cfg = *cfg
	p.cfg.Bits = bits
	p.refs++
	return p.newDevice(), FreshlyAttached, nil
}

// Close closes the underlying port if it is a spi.PortCloser.
//
// It fails if a Device is still open.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refs != 0 {
		return fmt.Errorf("%w: %d devices still attached", ErrBusy, p.refs)
	}
	p.c = nil
	if c, ok := p.p.(spi.PortCloser); ok {
		return c.Close()
	}
	return nil
}

func (p *Port) newDevice() *device {
	return &device{port: p, c: p.c, done: make(chan error, 1)}
}

func (p *Port) release() {
	p.mu.Lock()
	p.refs--
	p.mu.Unlock()
}

// device runs each transaction on its own goroutine so Await can give up
// after a timeout.
//
// The goroutine transmits from buf, a copy owned by the device, so the caller
// may reuse w as soon as Queue returns. After an Await timeout the
// transaction keeps draining in the background until the next Queue, Await
// or Close collects it.
type device struct {
	port     *Port
	c        spi.Conn
	done     chan error
	buf      []byte
	inflight bool
	closed   bool
}

func (d *device) Queue(w []byte, timeout time.Duration) error {
	if d.closed {
		return ErrClosed
	}
	if d.inflight {
		// The previous transaction was never awaited, typically after an Await
		// timeout. Give it a chance to drain.
		select {
		case <-d.done:
			d.inflight = false
		case <-time.After(timeout):
			return fmt.Errorf("%w: queue", ErrTimeout)
		}
	}
	d.buf = append(d.buf[:0], w...)
	b := d.buf
	d.inflight = true
	go func() {
		d.done <- d.c.Tx(b, nil)
	}()
	return nil
}

func (d *device) Await(timeout time.Duration) error {
	if d.closed {
		return ErrClosed
	}
	if !d.inflight {
		return nil
	}
	select {
	case err := <-d.done:
		d.inflight = false
		return err
	case <-time.After(timeout):
		return fmt.Errorf("%w: await", ErrTimeout)
	}
}

func (d *device) Close() error {
	if d.closed {
		return nil
	}
	if d.inflight {
		// Tx cannot be interrupted; wait for it so the conn is idle.
		<-d.done
		d.inflight = false
	}
	d.closed = true
	d.port.release()
	return nil
}

var _ Bus = &Port{}
var _ Device = &device{}
