// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package glyph draws text into a 1 bit frame buffer.
//
// The native format is a fixed 8×8 cell blitted with an integer scale,
// which is what small OLED panels are usually driven with. Basic is the
// bundled ASCII font.
//
// Proportional text is also supported through two bridges: tinyfont fonts
// with WriteLine, and any golang.org/x/image font.Face with DrawFace.
package glyph
