// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package spibus is the boundary between a display driver and the SPI
// controller it sits on.
//
// A Bus is attached once per session and hands out a Device that queues a
// single write transaction and awaits its completion, both bounded by a
// timeout. Attach also reports whether the bus was already live because
// another session claimed it first; drivers use that to avoid resetting
// hardware shared with other bus consumers.
//
// Port implements Bus on top of a periph.io spi.Port, as returned by
// spireg.Open. Package spibustest provides a recording implementation for
// tests.
package spibus
