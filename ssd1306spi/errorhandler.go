// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1306spi

import (
	"time"

	"github.com/GermanBionicSystems/oledspi/spibus"
	"periph.io/x/conn/v3/gpio"
)

// errorHandler is a wrapper for error management.
//
// Once a call failed, every following call is a no-op and err keeps the
// first failure.
type errorHandler struct {
	err error
}

func (eh *errorHandler) out(p gpio.PinOut, l gpio.Level) {
	if eh.err != nil {
		return
	}
	eh.err = p.Out(l)
}

func (eh *errorHandler) sleep(d time.Duration) {
	if eh.err != nil {
		return
	}
	time.Sleep(d)
}

// tx queues w and waits for its completion.
func (eh *errorHandler) tx(dev spibus.Device, w []byte, timeout time.Duration, m Mode, chunk int) {
	if eh.err != nil {
		return
	}
	if err := dev.Queue(w, timeout); err != nil {
		eh.err = &TxError{Op: "queue", Mode: m, Chunk: chunk, Err: err}
		return
	}
	if err := dev.Await(timeout); err != nil {
		eh.err = &TxError{Op: "await", Mode: m, Chunk: chunk, Err: err}
	}
}
