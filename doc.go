// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package oledspi is a container for the SSD1306 SPI frame buffer driver and
// its drawing packages.
//
// Drawing happens in an image1bit.VerticalLSB, with raster for pixel exact
// primitives, glyph for text and vector for anti-aliased composition.
// ssd1306spi sends the frame buffer to the panel through a spibus.Bus, and
// screen2d previews it in a terminal.
package oledspi
