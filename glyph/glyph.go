// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package glyph

import (
	"github.com/GermanBionicSystems/oledspi/image1bit"
	"github.com/GermanBionicSystems/oledspi/raster"
)

// Cell is the width and height of a glyph, in source pixels.
const Cell = 8

// Font is a table of 8×8 glyphs keyed by character code.
//
// Each glyph is 8 rows, top first. Bit 0 of a row is its leftmost pixel.
type Font interface {
	Glyph(code byte) ([Cell]byte, bool)
}

// DrawChar draws the glyph of code with its top left corner at (x, y).
//
// Each lit source pixel becomes a scale×scale block. Unlit source pixels are
// left untouched, so text can be drawn over an existing picture. A scale
// lower than 1 is treated as 1. Codes missing from f draw nothing.
func DrawChar(dst raster.Canvas, f Font, x, y int, code byte, c image1bit.Color, scale int) {
	if scale < 1 {
		scale = 1
	}
	g, ok := f.Glyph(code)
	if !ok {
		return
	}
	for row, bits := range g {
		if bits == 0 {
			continue
		}
		for col := 0; col < Cell; col++ {
			if bits&(1<<uint(col)) == 0 {
				continue
			}
			if scale == 1 {
				dst.SetPixel(x+col, y+row, c)
			} else {
				raster.FillRect(dst, x+col*scale, y+row*scale, scale, scale, c)
			}
		}
	}
}

// DrawText draws text one byte per glyph, starting at (x, y) and moving the
// cursor 8*scale pixels to the right per byte.
//
// There is no wrapping; what falls outside dst is clipped by dst. It returns
// the x coordinate following the last glyph.
func DrawText(dst raster.Canvas, f Font, x, y int, text []byte, c image1bit.Color, scale int) int {
	if scale < 1 {
		scale = 1
	}
	for _, code := range text {
		DrawChar(dst, f, x, y, code, c, scale)
		x += Cell * scale
	}
	return x
}

// Renderer draws text with a fixed font and scale.
type Renderer struct {
	Font  Font
	Scale int
}

// NewRenderer returns a Renderer using the Basic font at scale 1.
func NewRenderer() *Renderer {
	return &Renderer{Font: Basic, Scale: 1}
}

// DrawString draws s at (x, y) and returns the x coordinate following it.
func (r *Renderer) DrawString(dst raster.Canvas, x, y int, s string, c image1bit.Color) int {
	return DrawText(dst, r.font(), x, y, []byte(s), c, r.Scale)
}

// Advance returns the width in pixels of n glyphs.
func (r *Renderer) Advance(n int) int {
	scale := r.Scale
	if scale < 1 {
		scale = 1
	}
	return n * Cell * scale
}

func (r *Renderer) font() Font {
	if r.Font == nil {
		return Basic
	}
	return r.Font
}
