// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1306spi

import (
	"fmt"
	"time"

	"github.com/GermanBionicSystems/oledspi/spibus"
	"periph.io/x/conn/v3/gpio"
)

// ChunkSize is the largest transaction sent when the controller runs without
// DMA.
const ChunkSize = 32

// Mode selects how the controller interprets the bytes on the bus, through
// the DC line.
type Mode int

const (
	// Command bytes are sent with DC Low.
	Command Mode = iota
	// Data bytes are written to the display RAM, sent with DC High.
	Data
)

func (m Mode) String() string {
	switch m {
	case Command:
		return "Command"
	case Data:
		return "Data"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

func (m Mode) level() gpio.Level {
	return m == Data
}

// TxError is returned when a transaction failed to be queued or completed.
type TxError struct {
	// Op is "queue" or "await".
	Op    string
	Mode  Mode
	Chunk int
	Err   error
}

func (e *TxError) Error() string {
	return fmt.Sprintf("ssd1306spi: %s of %s chunk %d: %v", e.Op, e.Mode, e.Chunk, e.Err)
}

func (e *TxError) Unwrap() error {
	return e.Err
}

// Transport frames byte spans as transactions on a spibus.Device.
//
// The DC line is set according to the Mode and CS is asserted once for the
// whole span, however many chunks it takes. On return DC is Low and CS is
// High, also after a failure.
type Transport struct {
	dev     spibus.Device
	dc      gpio.PinOut
	cs      gpio.PinOut
	mode    TransportMode
	timeout time.Duration
}

// NewTransport returns a Transport over dev. timeout bounds each queue and
// each await.
func NewTransport(dev spibus.Device, dc, cs gpio.PinOut, mode TransportMode, timeout time.Duration) *Transport {
	return &Transport{dev: dev, dc: dc, cs: cs, mode: mode, timeout: timeout}
}

func (t *Transport) String() string {
	return fmt.Sprintf("Transport{%s, dc:%s, cs:%s}", t.mode, t.dc, t.cs)
}

// Send transmits b in mode m.
//
// Without DMA b is cut in chunks of at most ChunkSize bytes, each one awaited
// before the next is queued. With DMA b is one transaction. The first failure
// stops the transmission; nothing is retried. An empty b is a no-op.
//
// After an await timeout the chunk may still be draining on the bus once Send
// has returned; the device holds its own copy of it.
func (t *Transport) Send(b []byte, m Mode) error {
	if len(b) == 0 {
		return nil
	}
	max := len(b)
	if t.mode == NoDMA {
		max = ChunkSize
	}
	eh := errorHandler{}
	eh.out(t.dc, m.level())
	eh.out(t.cs, gpio.Low)
	for i := 0; eh.err == nil && len(b) != 0; i++ {
		n := len(b)
		if n > max {
			n = max
		}
		eh.tx(t.dev, b[:n], t.timeout, m, i)
		b = b[n:]
	}
	err := eh.err
	if e := t.dc.Out(gpio.Low); err == nil {
		err = e
	}
	if e := t.cs.Out(gpio.High); err == nil {
		err = e
	}
	return err
}
