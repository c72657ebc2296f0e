// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package screen2d implements a monochrome display.Drawer that outputs to the
// terminal (stdout) using ANSI color codes.
//
// Useful to preview a frame buffer without the OLED panel connected.
package screen2d

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/GermanBionicSystems/oledspi/image1bit"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/display"
)

// Opts represents the options available for this display.
type Opts struct {
	W, H int
	// On and Off are the colors of lit and unlit pixels. The zero values are
	// white and black.
	On, Off color.Color
	Palette *ansi256.Palette
	// Out is where the frames are written. nil means stdout.
	Out io.Writer

	_ struct{}
}

// Dev is a monochrome panel emulator that outputs to the console.
type Dev struct {
	w       io.Writer
	on, off string

	img    *image1bit.VerticalLSB
	buf    bytes.Buffer
	frames int
}

// New returns a Dev that displays at the console.
func New(opts *Opts) *Dev {
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.Out
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	on, off := opts.On, opts.Off
	if on == nil {
		on = color.White
	}
	if off == nil {
		off = color.Black
	}
	return &Dev{
		w:   w,
		on:  p.Block(color.NRGBAModel.Convert(on).(color.NRGBA)),
		off: p.Block(color.NRGBAModel.Convert(off).(color.NRGBA)),
		img: image1bit.NewVerticalLSB(image.Rect(0, 0, opts.W, opts.H)),
	}
}

func (d *Dev) String() string {
	return fmt.Sprintf("Screen2D{%s}", d.img.Rect.Max)
}

// Halt implements conn.Resource.
//
// It resets the terminal colors so it is not corrupted.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\033[0m\n"))
	return err
}

// Write accepts the content of an image1bit.VerticalLSB.Pix of the display
// size.
func (d *Dev) Write(pixels []byte) (int, error) {
	if len(pixels) != len(d.img.Pix) {
		return 0, fmt.Errorf("screen2d: invalid pixel stream length; expected %d bytes, got %d bytes", len(d.img.Pix), len(pixels))
	}
	copy(d.img.Pix, pixels)
	if err := d.refresh(); err != nil {
		return 0, err
	}
	return len(pixels), nil
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return d.img.Rect
}

// Draw implements display.Drawer.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	if img, ok := src.(*image1bit.VerticalLSB); ok && r == d.img.Rect && img.Rect == d.img.Rect && sp == (image.Point{}) {
		copy(d.img.Pix, img.Pix)
	} else {
		draw.Src.Draw(d.img, r, src, sp)
	}
	return d.refresh()
}

func (d *Dev) refresh() error {
	// This code is designed to minimize the amount of memory allocated per call.
	d.buf.Reset()
	h := d.img.Rect.Dy()
	if d.frames != 0 && h != 0 {
		// Draw over the previous frame.
		fmt.Fprintf(&d.buf, "\033[%dA", h)
	}
	_, _ = d.buf.WriteString("\r\033[0m")
	for y := 0; y < h; y++ {
		for x := 0; x < d.img.Rect.Dx(); x++ {
			if d.img.GetPixel(x, y) != 0 {
				_, _ = d.buf.WriteString(d.on)
			} else {
				_, _ = d.buf.WriteString(d.off)
			}
		}
		_, _ = d.buf.WriteString("\033[0m\n")
	}
	d.frames++
	_, err := d.buf.WriteTo(d.w)
	return err
}

var _ display.Drawer = &Dev{}
var _ fmt.Stringer = &Dev{}
