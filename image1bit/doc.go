// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package image1bit implements the frame buffer of a monochrome dot-matrix
// panel: a 1 bit per pixel image packed in horizontal pages of 8 rows.
//
// The pixel operations never fail. Coordinates outside the bounds are ignored
// when writing and read back as 0, so that shapes partially off screen can be
// drawn without clipping them first.
//
// VerticalLSB implements draw.Image so that anything in the image/draw
// ecosystem can render into it; colors are thresholded with BitModel.
package image1bit
