// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1306spi

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/GermanBionicSystems/oledspi/glyph"
	"github.com/GermanBionicSystems/oledspi/image1bit"
	"github.com/GermanBionicSystems/oledspi/raster"
	"github.com/GermanBionicSystems/oledspi/spibus"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
)

const (
	_CHARGEPUMP          = 0x8D
	_COLUMNADDR          = 0x21
	_COMSCANDEC          = 0xC8
	_DEACTIVATE_SCROLL   = 0x2E
	_DISPLAYALLON_RESUME = 0xA4
	_DISPLAYOFF          = 0xAE
	_DISPLAYON           = 0xAF
	_INVERTDISPLAY       = 0xA7
	_MEMORYMODE          = 0x20
	_NORMALDISPLAY       = 0xA6
	_PAGEADDR            = 0x22
	_SETCOMPINS          = 0xDA
	_SETCONTRAST         = 0x81
	_SETDISPLAYCLOCKDIV  = 0xD5
	_SETDISPLAYOFFSET    = 0xD3
	_SETMULTIPLEX        = 0xA8
	_SETSEGMENTREMAP     = 0xA1
	_SETSTARTLINE        = 0x40
)

// FrameRate determines scrolling speed.
type FrameRate byte

// Possible frame rates. The value determines the number of refreshes between
// movement. The lower value, the higher speed.
const (
	FrameRate2   FrameRate = 7
	FrameRate3   FrameRate = 4
	FrameRate4   FrameRate = 5
	FrameRate5   FrameRate = 0
	FrameRate25  FrameRate = 6
	FrameRate64  FrameRate = 1
	FrameRate128 FrameRate = 2
	FrameRate256 FrameRate = 3
)

// Orientation is used for scrolling.
type Orientation byte

// Possible orientations for scrolling.
const (
	Left    Orientation = 0x27
	Right   Orientation = 0x26
	UpRight Orientation = 0x29
	UpLeft  Orientation = 0x2A
)

// resetPulse is how long RST is held Low.
const resetPulse = 10 * time.Millisecond

var (
	// ErrClosed is returned when using a Dev after Close.
	ErrClosed = errors.New("ssd1306spi: closed")
	// ErrNoDMABuffer is returned by Flush when no DMA capable buffer could be
	// allocated. Nothing was sent.
	ErrNoDMABuffer = errors.New("ssd1306spi: no DMA buffer")
)

// State is the lifecycle stage of a Dev.
type State int

// Lifecycle stages, in order.
const (
	Uninitialized State = iota
	BusAttached
	PanelConfigured
	Ready
	Closed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case BusAttached:
		return "BusAttached"
	case PanelConfigured:
		return "PanelConfigured"
	case Ready:
		return "Ready"
	case Closed:
		return "Closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Dev is an open handle to the display controller.
//
// Drawing happens in an off-screen frame buffer; Flush sends it to the panel.
// A Dev is not safe for concurrent use.
type Dev struct {
	opts   Opts
	dev    spibus.Device
	t      *Transport
	shared bool
	state  State
	rect   image.Rectangle
	buf    *image1bit.VerticalLSB
	halted bool
	// scrolled is set while the panel scrolls; RAM writes need it stopped.
	scrolled bool
}

// NewSPI attaches to bus, resets and configures the panel, and returns a Dev
// with a cleared frame buffer.
//
// When the bus was already live because another session attached to it, the
// reset pulse is skipped so the other devices on the bus are not disturbed.
//
// # Wiring
//
// Connect SDA to SPI_MOSI, SCK to SPI_CLK. CS, DC and RES are driven as
// GPIOs by this driver.
func NewSPI(bus spibus.Bus, opts *Opts) (*Dev, error) {
	if bus == nil {
		return nil, errors.New("ssd1306spi: nil bus")
	}
	if opts == nil {
		return nil, errors.New("ssd1306spi: nil opts")
	}
	o := *opts
	if err := o.normalize(); err != nil {
		return nil, err
	}
	d := &Dev{
		opts:  o,
		state: Uninitialized,
		rect:  image.Rect(0, 0, o.W, o.H),
	}
	if err := d.attach(bus); err != nil {
		return nil, err
	}
	if err := d.configure(); err != nil {
		_ = d.dev.Close()
		return nil, err
	}
	d.buf = image1bit.NewVerticalLSB(d.rect)
	d.state = Ready
	return d, nil
}

func (d *Dev) attach(bus spibus.Bus) error {
	dev, a, err := bus.Attach(d.opts.busConfig())
	if err != nil {
		return fmt.Errorf("ssd1306spi: attach: %w", err)
	}
	d.dev = dev
	d.shared = a == spibus.AlreadyAttached
	d.t = NewTransport(dev, d.opts.DC, d.opts.CS, d.opts.Transport, d.opts.Timeout)
	d.state = BusAttached
	return nil
}

func (d *Dev) configure() error {
	if d.state != BusAttached {
		return fmt.Errorf("ssd1306spi: cannot configure in state %s", d.state)
	}
	eh := errorHandler{}
	eh.out(d.opts.DC, gpio.Low)
	eh.out(d.opts.CS, gpio.High)
	eh.out(d.opts.RST, gpio.High)
	if d.shared {
		d.logf("bus already live, skipping reset")
	} else {
		eh.out(d.opts.RST, gpio.Low)
		eh.sleep(resetPulse)
		eh.out(d.opts.RST, gpio.High)
	}
	if eh.err != nil {
		return fmt.Errorf("ssd1306spi: pin setup: %w", eh.err)
	}
	if err := d.t.Send(initCmd(&d.opts), Command); err != nil {
		d.logf("init: %v", err)
		return err
	}
	d.state = PanelConfigured
	return nil
}

// initCmd is the power up sequence. Page 64 of the datasheet has the
// recommended flow.
func initCmd(o *Opts) []byte {
	hwLayout := byte(0x02)
	if !o.Sequential {
		hwLayout |= 0x10
	}
	return []byte{
		_DISPLAYOFF,
		_SETMULTIPLEX, byte(o.H - 1),
		_SETDISPLAYOFFSET, 0x00,
		_SETSTARTLINE,
		_SETSEGMENTREMAP, // SEG0 is column 127
		_COMSCANDEC,
		_SETCOMPINS, hwLayout,
		_SETCONTRAST, 0x7F,
		_DEACTIVATE_SCROLL,
		_DISPLAYALLON_RESUME,
		_SETDISPLAYCLOCKDIV, 0x00,
		_CHARGEPUMP, 0x14,
		_MEMORYMODE, 0x00, // horizontal
		_COLUMNADDR, 0, byte(o.W - 1),
		_PAGEADDR, 0, byte(o.H/8 - 1),
		_DISPLAYON,
	}
}

// windowCmd resets the RAM address window to the full panel.
func windowCmd(o *Opts) []byte {
	return []byte{_COLUMNADDR, 0, byte(o.W - 1), _PAGEADDR, 0, byte(o.H/8 - 1)}
}

func (d *Dev) String() string {
	return fmt.Sprintf("ssd1306spi.Dev{%s, %s, %s}", d.t, d.state, d.rect.Max)
}

// State returns the lifecycle stage.
func (d *Dev) State() State {
	return d.state
}

// Shared returns true when the bus was already live at attach time and the
// reset pulse was skipped.
func (d *Dev) Shared() bool {
	return d.shared
}

// Config returns the options in use, with defaults filled.
func (d *Dev) Config() Opts {
	return d.opts
}

// Buffer returns the frame buffer. It is valid until Close.
func (d *Dev) Buffer() *image1bit.VerticalLSB {
	return d.buf
}

// Flush sends the whole frame buffer to the panel.
//
// The address window is sent first, then the pixels. The first failure aborts
// the flush, so the panel may show a mix of the previous and the new frame.
// The frame buffer is not modified, and can be drawn into again right away
// even when a timed out chunk is still draining on the bus.
func (d *Dev) Flush() error {
	if d.state == Closed {
		return ErrClosed
	}
	pix := d.buf.Bytes()
	if d.opts.Transport.DMA() {
		b, err := d.opts.Allocator.Alloc(len(pix))
		if err != nil {
			d.logf("flush skipped: %v", err)
			return fmt.Errorf("%w: %v", ErrNoDMABuffer, err)
		}
		defer d.opts.Allocator.Free(b)
		copy(b, pix)
		pix = b
	}
	cmd := windowCmd(&d.opts)
	if d.scrolled {
		cmd = append([]byte{_DEACTIVATE_SCROLL}, cmd...)
	}
	if err := d.sendCommand(cmd); err != nil {
		d.logf("flush: %v", err)
		return err
	}
	d.scrolled = false
	if err := d.t.Send(pix, Data); err != nil {
		d.logf("flush: %v", err)
		return err
	}
	return nil
}

// Write copies a buffer of pixels in the frame buffer and flushes it.
//
// The format is the one of image1bit.VerticalLSB.Pix: horizontal bands of 8
// pixels high, one byte per column.
func (d *Dev) Write(pixels []byte) (int, error) {
	if d.state == Closed {
		return 0, ErrClosed
	}
	if len(pixels) != len(d.buf.Pix) {
		return 0, fmt.Errorf("ssd1306spi: invalid pixel stream length; expected %d bytes, got %d bytes", len(d.buf.Pix), len(pixels))
	}
	copy(d.buf.Pix, pixels)
	if err := d.Flush(); err != nil {
		return 0, err
	}
	return len(pixels), nil
}

// ColorModel implements display.Drawer.
//
// It is a one bit color model, as implemented by image1bit.Bit.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds implements display.Drawer. Min is guaranteed to be {0, 0}.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// Draw implements display.Drawer.
//
// It copies src in the frame buffer and flushes synchronously.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	if d.state == Closed {
		return ErrClosed
	}
	draw.Src.Draw(d.buf, r, src, sp)
	return d.Flush()
}

// Halt turns off the display.
//
// Sending any other command afterward reenables the display.
func (d *Dev) Halt() error {
	if d.state == Closed {
		return ErrClosed
	}
	d.halted = false
	err := d.sendCommand([]byte{_DISPLAYOFF})
	if err == nil {
		d.halted = true
	}
	return err
}

// SetContrast changes the screen contrast.
func (d *Dev) SetContrast(level byte) error {
	if d.state == Closed {
		return ErrClosed
	}
	return d.sendCommand([]byte{_SETCONTRAST, level})
}

// Invert the display (black on white vs white on black).
func (d *Dev) Invert(blackOnWhite bool) error {
	if d.state == Closed {
		return ErrClosed
	}
	b := []byte{_NORMALDISPLAY}
	if blackOnWhite {
		b[0] = _INVERTDISPLAY
	}
	return d.sendCommand(b)
}

// Scroll scrolls an horizontal band.
//
// Only one scrolling operation can happen at a time. The next Flush stops it.
//
// Both startLine and endLine must be multiples of 8. Use -1 for endLine to
// extend to the bottom of the display.
func (d *Dev) Scroll(o Orientation, rate FrameRate, startLine, endLine int) error {
	if d.state == Closed {
		return ErrClosed
	}
	h := d.rect.Dy()
	if endLine == -1 {
		endLine = h
	}
	if startLine >= endLine {
		return fmt.Errorf("ssd1306spi: startLine (%d) must be lower than endLine (%d)", startLine, endLine)
	}
	if startLine&7 != 0 || startLine < 0 || startLine >= h {
		return fmt.Errorf("ssd1306spi: invalid startLine %d", startLine)
	}
	if endLine&7 != 0 || endLine > h {
		return fmt.Errorf("ssd1306spi: invalid endLine %d", endLine)
	}
	var c []byte
	switch o {
	case Left, Right:
		// <op>, dummy, <start page>, <rate>, <end page>, <dummy>, <dummy>, <ENABLE>
		c = []byte{byte(o), 0x00, byte(startLine / 8), byte(rate), byte(endLine/8 - 1), 0x00, 0xFF, 0x2F}
	case UpRight, UpLeft:
		// <op>, dummy, <start page>, <rate>, <end page>, <offset>, <ENABLE>
		c = []byte{byte(o), 0x00, byte(startLine / 8), byte(rate), byte(endLine/8 - 1), 0x01, 0x2F}
	default:
		return fmt.Errorf("ssd1306spi: invalid orientation 0x%02X", byte(o))
	}
	if err := d.sendCommand(c); err != nil {
		return err
	}
	d.scrolled = true
	return nil
}

// StopScroll stops any scrolling previously set.
func (d *Dev) StopScroll() error {
	if d.state == Closed {
		return ErrClosed
	}
	if err := d.sendCommand([]byte{_DEACTIVATE_SCROLL}); err != nil {
		return err
	}
	d.scrolled = false
	return nil
}

// SetDisplayStartLine makes the display start from startLine, effectively
// scrolling the screen to that position.
func (d *Dev) SetDisplayStartLine(startLine byte) error {
	if d.state == Closed {
		return ErrClosed
	}
	if int(startLine) >= d.rect.Dy() {
		return fmt.Errorf("ssd1306spi: invalid startLine %d", startLine)
	}
	return d.sendCommand([]byte{_SETSTARTLINE | startLine})
}

// Close releases the bus device and the frame buffer.
//
// Calling Close again is a no-op.
func (d *Dev) Close() error {
	if d.state == Closed {
		return nil
	}
	d.state = Closed
	d.buf = image1bit.NewVerticalLSB(image.Rectangle{})
	return d.dev.Close()
}

func (d *Dev) sendCommand(c []byte) error {
	if d.halted {
		// Transparently enable the display.
		c = append([]byte{_DISPLAYON}, c...)
		d.halted = false
	}
	return d.t.Send(c, Command)
}

func (d *Dev) logf(format string, v ...interface{}) {
	if d.opts.Logger != nil {
		d.opts.Logger.Printf("ssd1306spi: "+format, v...)
	}
}

// Clear turns every pixel of the frame buffer off.
func (d *Dev) Clear() {
	d.buf.Clear()
}

// SetPixel sets one pixel of the frame buffer. Out of range is ignored.
func (d *Dev) SetPixel(x, y int, c image1bit.Color) {
	d.buf.SetPixel(x, y, c)
}

// GetPixel returns 1 when the pixel is on, 0 otherwise or out of range.
func (d *Dev) GetPixel(x, y int) int {
	return d.buf.GetPixel(x, y)
}

// Line draws a line from (x0, y0) to (x1, y1) inclusive.
func (d *Dev) Line(x0, y0, x1, y1 int, c image1bit.Color) {
	raster.Line(d.buf, x0, y0, x1, y1, c)
}

// HLine draws w pixels to the right of (x, y).
func (d *Dev) HLine(x, y, w int, c image1bit.Color) {
	raster.HLine(d.buf, x, y, w, c)
}

// VLine draws h pixels down from (x, y).
func (d *Dev) VLine(x, y, h int, c image1bit.Color) {
	raster.VLine(d.buf, x, y, h, c)
}

// Rect draws the outline of a w×h rectangle.
func (d *Dev) Rect(x, y, w, h int, c image1bit.Color) {
	raster.Rect(d.buf, x, y, w, h, c)
}

// FillRect draws a filled w×h rectangle.
func (d *Dev) FillRect(x, y, w, h int, c image1bit.Color) {
	raster.FillRect(d.buf, x, y, w, h, c)
}

// Circle draws the outline of a circle of radius r.
func (d *Dev) Circle(x0, y0, r int, c image1bit.Color) {
	raster.Circle(d.buf, x0, y0, r, c)
}

// FillCircle draws a disc of radius r.
func (d *Dev) FillCircle(x0, y0, r int, c image1bit.Color) {
	raster.FillCircle(d.buf, x0, y0, r, c)
}

// Text draws s with its top left corner at (x, y), each glyph pixel being a
// scale×scale block. It returns the x coordinate following the text.
func (d *Dev) Text(x, y int, s string, c image1bit.Color, scale int) int {
	return glyph.DrawText(d.buf, d.opts.Font, x, y, []byte(s), c, scale)
}

var _ display.Drawer = &Dev{}
