// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ssd1306spi controls a monochrome 128×64 OLED display driven by a
// SSD1306 controller over 4-wire SPI.
//
// Drawing is done in an off-screen image1bit.VerticalLSB frame buffer; Flush
// sends the whole buffer to the panel. The frame buffer layout is the one of
// the controller RAM in horizontal addressing mode, so the bytes are sent
// as is.
//
// The driver toggles DC and CS itself around each transmission. Without DMA
// the SPI controller only accepts 32 bytes per transaction, so spans are cut
// in chunks; with DMA every span is one transaction, sent from a buffer
// obtained from the configured spibus.Allocator for the duration of the
// Flush.
//
// When several devices share the bus, only the first session pulses the RES
// line.
//
// # Datasheet
//
// https://cdn-shop.adafruit.com/datasheets/SSD1306.pdf
package ssd1306spi
