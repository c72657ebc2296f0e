// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package glyph

import (
	"image"
	"image/color"

	"github.com/GermanBionicSystems/oledspi/image1bit"
	"github.com/GermanBionicSystems/oledspi/raster"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
)

// Surface is a Canvas that knows its size.
type Surface interface {
	raster.Canvas
	Bounds() image.Rectangle
}

// Displayer exposes a Surface as a drivers.Displayer so tinyfont can draw
// into it.
//
// Every pixel tinyfont sets is drawn with Pen, whatever RGBA it asks for.
// tinyfont works in int16 coordinates, so Dst bounds past 32767 are
// truncated.
type Displayer struct {
	Dst Surface
	Pen image1bit.Color
}

// Size implements drivers.Displayer.
func (d *Displayer) Size() (x, y int16) {
	b := d.Dst.Bounds()
	return int16(b.Max.X), int16(b.Max.Y)
}

// SetPixel implements drivers.Displayer.
func (d *Displayer) SetPixel(x, y int16, c color.RGBA) {
	d.Dst.SetPixel(int(x), int(y), d.Pen)
}

// Display implements drivers.Displayer. It is a no-op: flushing the frame
// buffer is the session's job.
func (d *Displayer) Display() error {
	return nil
}

var _ drivers.Displayer = &Displayer{}

// WriteLine draws s with a tinyfont font, such as &tinyfont.Picopixel or
// &proggy.TinySZ8pt7b. y is the baseline.
//
// x and y are passed to tinyfont as int16 and must fit in that range. It
// returns the x coordinate following the text.
func WriteLine(dst Surface, f tinyfont.Fonter, x, y int, s string, c image1bit.Color) int {
	tinyfont.WriteLine(&Displayer{Dst: dst, Pen: c}, f, int16(x), int16(y), s, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	_, w := tinyfont.LineWidth(f, s)
	return x + int(w)
}

// DrawFace draws s with a golang.org/x/image font face; nil selects
// basicfont.Face7x13. baseline is the y coordinate of the dot.
//
// Anti-aliased faces are thresholded at half coverage. It returns the x
// coordinate of the dot after the text.
func DrawFace(dst Surface, face font.Face, x, baseline int, s string, c image1bit.Color) int {
	if face == nil {
		face = basicfont.Face7x13
	}
	dot := fixed.P(x, baseline)
	b, adv := font.BoundString(face, s)
	b = b.Add(dot)
	r := image.Rect(b.Min.X.Floor(), b.Min.Y.Floor(), b.Max.X.Ceil(), b.Max.Y.Ceil()).Intersect(dst.Bounds())
	if !r.Empty() {
		mask := image.NewAlpha(r)
		d := font.Drawer{Dst: mask, Src: image.Opaque, Face: face, Dot: dot}
		d.DrawString(s)
		for py := r.Min.Y; py < r.Max.Y; py++ {
			for px := r.Min.X; px < r.Max.X; px++ {
				if mask.AlphaAt(px, py).A >= 0x80 {
					dst.SetPixel(px, py, c)
				}
			}
		}
	}
	return (dot.X + adv).Round()
}
