// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package vector composes anti-aliased shapes and TrueType text with gg and
// reduces them to a 1 bit frame buffer.
//
// The raster package is what to use for pixel exact primitives. This package
// is for rounded rectangles, thick strokes, rotation and scalable fonts, at
// the cost of a full RGBA intermediate image.
package vector

import (
	"fmt"
	"image"

	"github.com/GermanBionicSystems/oledspi/image1bit"
	"github.com/GermanBionicSystems/oledspi/raster"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// Canvas is a gg.Context whose content is thresholded by Render.
//
// It starts black with a white pen.
type Canvas struct {
	*gg.Context
	// Threshold is the luminance, on 8 bits, from which a pixel is lit. 0
	// means 0x80.
	Threshold uint8
}

// New returns a w×h Canvas.
func New(w, h int) *Canvas {
	c := &Canvas{Context: gg.NewContext(w, h)}
	c.SetRGB(0, 0, 0)
	c.Clear()
	c.SetRGB(1, 1, 1)
	return c
}

// ParseFont returns a face of the given size in points for a TrueType font.
func ParseFont(ttf []byte, size float64) (font.Face, error) {
	f, err := truetype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("vector: %w", err)
	}
	return truetype.NewFace(f, &truetype.Options{Size: size}), nil
}

// DefaultFace returns Go Regular at the given size in points.
func DefaultFace(size float64) (font.Face, error) {
	return ParseFont(goregular.TTF, size)
}

// SetFontSize selects Go Regular at the given size in points.
func (c *Canvas) SetFontSize(size float64) error {
	f, err := DefaultFace(size)
	if err != nil {
		return err
	}
	c.SetFontFace(f)
	return nil
}

// Render applies col to every pixel of dst under a lit Canvas pixel, the
// Canvas origin being placed at at. Unlit pixels leave dst untouched.
func (c *Canvas) Render(dst raster.Canvas, at image.Point, col image1bit.Color) {
	img := c.Image()
	b := img.Bounds()
	th := uint32(c.Threshold)
	if th == 0 {
		th = 0x80
	}
	th <<= 8
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if (r+g+bl)/3 >= th {
				dst.SetPixel(at.X+x-b.Min.X, at.Y+y-b.Min.Y, col)
			}
		}
	}
}

// Frame returns a new frame buffer of the Canvas size holding its thresholded
// content.
func (c *Canvas) Frame() *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, c.Width(), c.Height()))
	c.Render(img, image.Point{}, image1bit.White)
	return img
}
