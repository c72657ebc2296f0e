// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package raster draws integer primitives (lines, rectangles, circles) into a
// 1 bit canvas.
//
// None of the functions clip: they rely on the canvas ignoring coordinates
// outside its bounds, as image1bit.VerticalLSB does. Every pixel of a shape
// is written exactly once, so drawing with image1bit.Invert toggles the shape
// without leaving holes.
//
// Lengths and radii that make no sense draw nothing: a width or height <= 0,
// a negative radius. A radius of 0 draws the center pixel.
package raster

import "github.com/GermanBionicSystems/oledspi/image1bit"

// Canvas is what the primitives draw into.
type Canvas interface {
	SetPixel(x, y int, c image1bit.Color)
}

// Pixel sets a single pixel.
func Pixel(dst Canvas, x, y int, c image1bit.Color) {
	dst.SetPixel(x, y, c)
}

// Line draws a line from (x0, y0) to (x1, y1), both ends included, with the
// integer Bresenham algorithm.
func Line(dst Canvas, x0, y0, x1, y1 int, c image1bit.Color) {
	steep := abs(y1-y0) > abs(x1-x0)
	if steep {
		x0, y0 = y0, x0
		x1, y1 = y1, x1
	}
	if x0 > x1 {
		x0, x1 = x1, x0
		y0, y1 = y1, y0
	}
	dx := x1 - x0
	dy := abs(y1 - y0)
	err := dx / 2
	ystep := -1
	if y0 < y1 {
		ystep = 1
	}
	for ; x0 <= x1; x0++ {
		if steep {
			dst.SetPixel(y0, x0, c)
		} else {
			dst.SetPixel(x0, y0, c)
		}
		err -= dy
		if err < 0 {
			y0 += ystep
			err += dx
		}
	}
}

// HLine draws w pixels to the right of (x, y), (x, y) included.
func HLine(dst Canvas, x, y, w int, c image1bit.Color) {
	for i := 0; i < w; i++ {
		dst.SetPixel(x+i, y, c)
	}
}

// VLine draws h pixels below (x, y), (x, y) included.
func VLine(dst Canvas, x, y, h int, c image1bit.Color) {
	for i := 0; i < h; i++ {
		dst.SetPixel(x, y+i, c)
	}
}

// Rect draws the outline of the w×h rectangle whose top left corner is
// (x, y).
//
// The vertical sides exclude the corners already covered by the horizontal
// ones.
func Rect(dst Canvas, x, y, w, h int, c image1bit.Color) {
	if w <= 0 || h <= 0 {
		return
	}
	HLine(dst, x, y, w, c)
	if h == 1 {
		return
	}
	HLine(dst, x, y+h-1, w, c)
	VLine(dst, x, y+1, h-2, c)
	if w > 1 {
		VLine(dst, x+w-1, y+1, h-2, c)
	}
}

// FillRect fills the w×h rectangle whose top left corner is (x, y).
func FillRect(dst Canvas, x, y, w, h int, c image1bit.Color) {
	if w <= 0 {
		return
	}
	for i := 0; i < h; i++ {
		HLine(dst, x, y+i, w, c)
	}
}
