// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package raster

import "github.com/GermanBionicSystems/oledspi/image1bit"

// Circle draws the outline of the circle of radius r centered on (x0, y0)
// with the midpoint algorithm.
func Circle(dst Canvas, x0, y0, r int, c image1bit.Color) {
	if r < 0 {
		return
	}
	if r == 0 {
		dst.SetPixel(x0, y0, c)
		return
	}
	f := 1 - r
	ddFx := 1
	ddFy := -2 * r
	x := 0
	y := r

	dst.SetPixel(x0, y0+r, c)
	dst.SetPixel(x0, y0-r, c)
	dst.SetPixel(x0+r, y0, c)
	dst.SetPixel(x0-r, y0, c)

	for x < y {
		if f >= 0 {
			y--
			ddFy += 2
			f += ddFy
		}
		x++
		ddFx += 2
		f += ddFx

		// Once x passes y the octants overlap: these points were plotted on
		// the previous step as their mirror.
		if x > y {
			break
		}
		dst.SetPixel(x0+x, y0+y, c)
		dst.SetPixel(x0-x, y0+y, c)
		dst.SetPixel(x0+x, y0-y, c)
		dst.SetPixel(x0-x, y0-y, c)
		if x == y {
			break
		}
		dst.SetPixel(x0+y, y0+x, c)
		dst.SetPixel(x0-y, y0+x, c)
		dst.SetPixel(x0+y, y0-x, c)
		dst.SetPixel(x0-y, y0-x, c)
	}
}

// FillCircle fills the disk of radius r centered on (x0, y0).
//
// It walks the same recurrence as Circle and draws one vertical span per
// column.
func FillCircle(dst Canvas, x0, y0, r int, c image1bit.Color) {
	if r < 0 {
		return
	}
	VLine(dst, x0, y0-r, 2*r+1, c)

	f := 1 - r
	ddFx := 1
	ddFy := -2 * r
	x := 0
	y := r
	px := x
	py := y

	for x < y {
		if f >= 0 {
			y--
			ddFy += 2
			f += ddFy
		}
		x++
		ddFx += 2
		f += ddFx

		// The columns x0±x and x0±py collide when x reaches y.
		if x < y+1 {
			VLine(dst, x0+x, y0-y, 2*y+1, c)
			VLine(dst, x0-x, y0-y, 2*y+1, c)
		}
		if y != py {
			VLine(dst, x0+py, y0-px, 2*px+1, c)
			VLine(dst, x0-py, y0-px, 2*px+1, c)
			py = y
		}
		px = x
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
