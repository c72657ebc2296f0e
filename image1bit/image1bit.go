// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package image1bit

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// Color is the pen used by every drawing operation.
//
// It is not a color.Color: Invert has no absolute value, it depends on the
// pixel it is applied to.
type Color uint8

// Possible pens.
const (
	// Black clears the bit.
	Black Color = 0
	// White sets the bit.
	White Color = 1
	// Invert toggles the bit.
	Invert Color = 2
)

func (c Color) String() string {
	switch c {
	case Black:
		return "Black"
	case White:
		return "White"
	case Invert:
		return "Invert"
	default:
		return fmt.Sprintf("Color(%d)", uint8(c))
	}
}

// Valid returns true if c is one of Black, White or Invert.
func (c Color) Valid() bool {
	return c <= Invert
}

// Bit implements a 1 bit color.
type Bit bool

// RGBA returns either all white or all black.
//
// Technically the monochrome display could be colored but this information
// is not available here.
func (b Bit) RGBA() (uint32, uint32, uint32, uint32) {
	if b {
		return 65535, 65535, 65535, 65535
	}
	return 0, 0, 0, 65535
}

func (b Bit) String() string {
	if b {
		return "On"
	}
	return "Off"
}

// Possible bitness.
const (
	On  = Bit(true)
	Off = Bit(false)
)

// BitModel is the color Model for 1 bit color.
var BitModel = color.ModelFunc(convert)

// VerticalLSB is a 1 bit image.
//
// Each byte is 8 vertical pixels. Each stride is an horizontal band of 8
// pixels high with LSB first. So the first byte represent the following
// pixels, with lowest bit being the top left pixel.
//
//	0 x x x x x x x
//	1 x x x x x x x
//	2 x x x x x x x
//	3 x x x x x x x
//	4 x x x x x x x
//	5 x x x x x x x
//	6 x x x x x x x
//	7 x x x x x x x
//
// It is designed specifically to work with SSD1306 OLED display controller.
type VerticalLSB struct {
	// Pix holds the image's pixels, as vertically LSB-first packed bitmap. It
	// can be passed directly to ssd1306spi.Dev.Write()
	Pix []byte
	// Stride is the Pix stride (in bytes) between vertically adjacent 8 pixels
	// horizontal bands.
	Stride int
	// Rect is the image's bounds.
	Rect image.Rectangle
}

// NewVerticalLSB returns an initialized VerticalLSB instance.
//
// The buffer is zero filled, that is every pixel is Black. A height that is
// not a multiple of 8 rounds the page count up.
func NewVerticalLSB(r image.Rectangle) *VerticalLSB {
	w := r.Dx()
	h := r.Dy()
	if w <= 0 || h <= 0 {
		return &VerticalLSB{Rect: r}
	}
	pages := (h + 7) / 8
	return &VerticalLSB{Pix: make([]byte, pages*w), Stride: w, Rect: r}
}

// ColorModel implements image.Image.
func (i *VerticalLSB) ColorModel() color.Model {
	return BitModel
}

// Bounds implements image.Image.
func (i *VerticalLSB) Bounds() image.Rectangle {
	return i.Rect
}

// At implements image.Image.
func (i *VerticalLSB) At(x, y int) color.Color {
	return i.BitAt(x, y)
}

// BitAt is the optimized version of At().
func (i *VerticalLSB) BitAt(x, y int) Bit {
	return i.GetPixel(x, y) == 1
}

// Opaque scans the entire image and reports whether it is fully opaque.
func (i *VerticalLSB) Opaque() bool {
	return true
}

// Set implements draw.Image
func (i *VerticalLSB) Set(x, y int, c color.Color) {
	i.SetBit(x, y, convertBit(c))
}

// SetBit is the optimized version of Set().
func (i *VerticalLSB) SetBit(x, y int, b Bit) {
	if b {
		i.SetPixel(x, y, White)
	} else {
		i.SetPixel(x, y, Black)
	}
}

// SetPixel applies the pen c to the pixel at (x, y).
//
// Coordinates outside the image are silently ignored.
func (i *VerticalLSB) SetPixel(x, y int, c Color) {
	offset, mask, ok := i.locate(x, y)
	if !ok {
		return
	}
	switch c {
	case Black:
		i.Pix[offset] &^= mask
	case White:
		i.Pix[offset] |= mask
	case Invert:
		i.Pix[offset] ^= mask
	}
}

// GetPixel returns 1 if the pixel at (x, y) is lit, 0 otherwise.
//
// Coordinates outside the image return 0.
func (i *VerticalLSB) GetPixel(x, y int) int {
	offset, mask, ok := i.locate(x, y)
	if !ok || i.Pix[offset]&mask == 0 {
		return 0
	}
	return 1
}

// Clear turns every pixel Black.
func (i *VerticalLSB) Clear() {
	for j := range i.Pix {
		i.Pix[j] = 0
	}
}

// Fill applies the pen c to every pixel.
func (i *VerticalLSB) Fill(c Color) {
	switch c {
	case Black:
		i.Clear()
	case White:
		for j := range i.Pix {
			i.Pix[j] = 0xFF
		}
	case Invert:
		for j := range i.Pix {
			i.Pix[j] = ^i.Pix[j]
		}
	}
}

// Bytes returns the page-major buffer as-is, without copying.
//
// The slice aliases the image; it is meant to be handed to a transport.
func (i *VerticalLSB) Bytes() []byte {
	return i.Pix
}

func (i *VerticalLSB) locate(x, y int) (int, byte, bool) {
	if !(image.Point{x, y}.In(i.Rect)) {
		return 0, 0, false
	}
	x -= i.Rect.Min.X
	y -= i.Rect.Min.Y
	return (y/8)*i.Stride + x, byte(1 << uint(y&7)), true
}

var _ draw.Image = &VerticalLSB{}

// Anything more than half intensity is lit.
func convertBit(c color.Color) Bit {
	switch t := c.(type) {
	case Bit:
		return t
	default:
		r, g, b, _ := c.RGBA()
		return (r | g | b) >= 0x8000
	}
}

func convert(c color.Color) color.Color {
	return convertBit(c)
}
