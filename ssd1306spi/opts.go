// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1306spi

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/GermanBionicSystems/oledspi/glyph"
	"github.com/GermanBionicSystems/oledspi/spibus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// TransportMode selects how the SPI controller moves bytes.
type TransportMode int

const (
	// NoDMA transmits in chunks of at most ChunkSize bytes.
	NoDMA TransportMode = iota
	// DMAChannel1 transmits every span in one transaction using DMA channel 1.
	DMAChannel1
	// DMAChannel2 transmits every span in one transaction using DMA channel 2.
	DMAChannel2
)

func (t TransportMode) String() string {
	switch t {
	case NoDMA:
		return "NoDMA"
	case DMAChannel1:
		return "DMAChannel1"
	case DMAChannel2:
		return "DMAChannel2"
	default:
		return fmt.Sprintf("TransportMode(%d)", int(t))
	}
}

// Set sets the TransportMode to a value represented by the string s. Set
// implements the flag.Value interface.
func (t *TransportMode) Set(s string) error {
	switch s {
	case "NoDMA", "0":
		*t = NoDMA
	case "DMAChannel1", "1":
		*t = DMAChannel1
	case "DMAChannel2", "2":
		*t = DMAChannel2
	default:
		return fmt.Errorf("unknown transport %q: expected NoDMA, DMAChannel1 or DMAChannel2", s)
	}
	return nil
}

// DMA returns true when a DMA channel is used.
func (t TransportMode) DMA() bool {
	return t == DMAChannel1 || t == DMAChannel2
}

// Wiring names the pins of the display, as understood by gpioreg.ByName and
// by the bus driver.
type Wiring struct {
	CS   string
	DC   string
	RST  string
	CLK  string
	MOSI string
	MISO string
}

// DefaultOpts is the recommended default options.
//
// It matches the usual ESP32 VSPI wiring: CS=5, DC=16, RST=17, MOSI=23,
// SCK=18, MISO=19, at 10MHz in mode 0 with DMA channel 1.
var DefaultOpts = Opts{
	Wiring: Wiring{
		CS:   "GPIO5",
		DC:   "GPIO16",
		RST:  "GPIO17",
		CLK:  "GPIO18",
		MOSI: "GPIO23",
		MISO: "GPIO19",
	},
	Freq:      10 * physic.MegaHertz,
	Mode:      spi.Mode0,
	Transport: DMAChannel1,
	W:         128,
	H:         64,
	Timeout:   time.Second,
}

// Opts defines the options for the device.
type Opts struct {
	// CS, DC and RST are the lines driven by this package. When nil, they are
	// looked up by name from Wiring.
	CS  gpio.PinOut
	DC  gpio.PinOut
	RST gpio.PinOut
	// Wiring names every line. The bus lines are passed as is to the bus
	// driver.
	Wiring Wiring

	// Freq is the SPI clock. 0 means 10MHz.
	Freq physic.Frequency
	// Mode is the SPI mode, between spi.Mode0 and spi.Mode3.
	Mode      spi.Mode
	Transport TransportMode

	// W and H is the panel size. Both must be multiples of 8, W at most 128
	// and H at most 64. 0 means 128×64.
	W int
	H int
	// Sequential corresponds to the Sequential/Alternative COM pin configuration
	// in the OLED panel hardware. Try toggling this if half the rows appear to be
	// missing on your display. Particularly on 32 pixel height displays.
	Sequential bool

	// Timeout bounds each queue and each await on the bus. 0 means 1s.
	Timeout time.Duration
	// Logger receives the rare events worth reporting. nil disables logging.
	Logger *log.Logger
	// Allocator provides the DMA capable buffer of each Flush. nil means
	// spibus.HeapAllocator. Unused with NoDMA.
	Allocator spibus.Allocator
	// Font is used by Text. nil means glyph.Basic.
	Font glyph.Font
}

var errNoPin = errors.New("pin not found")

// normalize fills the zero values and validates the result.
func (o *Opts) normalize() error {
	if o.Freq == 0 {
		o.Freq = DefaultOpts.Freq
	}
	if o.W == 0 && o.H == 0 {
		o.W = DefaultOpts.W
		o.H = DefaultOpts.H
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultOpts.Timeout
	}
	if o.W < 8 || o.W > 128 || o.W&7 != 0 {
		return fmt.Errorf("ssd1306spi: invalid width %d", o.W)
	}
	if o.H < 8 || o.H > 64 || o.H&7 != 0 {
		return fmt.Errorf("ssd1306spi: invalid height %d", o.H)
	}
	if o.Freq < 0 {
		return fmt.Errorf("ssd1306spi: invalid frequency %s", o.Freq)
	}
	if o.Mode < spi.Mode0 || o.Mode > spi.Mode3 {
		return fmt.Errorf("ssd1306spi: invalid SPI mode %d", int(o.Mode))
	}
	if o.Transport < NoDMA || o.Transport > DMAChannel2 {
		return fmt.Errorf("ssd1306spi: invalid transport %s", o.Transport)
	}
	if o.Timeout < 0 {
		return fmt.Errorf("ssd1306spi: invalid timeout %s", o.Timeout)
	}
	var err error
	if o.CS, err = lookup(o.CS, "CS", o.Wiring.CS); err != nil {
		return err
	}
	if o.DC, err = lookup(o.DC, "DC", o.Wiring.DC); err != nil {
		return err
	}
	if o.RST, err = lookup(o.RST, "RST", o.Wiring.RST); err != nil {
		return err
	}
	if o.Allocator == nil && o.Transport.DMA() {
		o.Allocator = &spibus.HeapAllocator{}
	}
	if o.Font == nil {
		o.Font = glyph.Basic
	}
	return nil
}

func lookup(p gpio.PinOut, role, name string) (gpio.PinOut, error) {
	if p == gpio.INVALID {
		return nil, fmt.Errorf("ssd1306spi: %s: use a real pin, not gpio.INVALID", role)
	}
	if p != nil {
		return p, nil
	}
	if name == "" {
		return nil, fmt.Errorf("ssd1306spi: %s: %w", role, errNoPin)
	}
	q := gpioreg.ByName(name)
	if q == nil {
		return nil, fmt.Errorf("ssd1306spi: %s %q: %w", role, name, errNoPin)
	}
	return q, nil
}

func (o *Opts) busConfig() *spibus.Config {
	max := o.W * o.H / 8
	if !o.Transport.DMA() {
		max = ChunkSize
	}
	return &spibus.Config{
		CLK:         o.Wiring.CLK,
		MOSI:        o.Wiring.MOSI,
		MISO:        o.Wiring.MISO,
		CS:          o.Wiring.CS,
		Freq:        o.Freq,
		Mode:        o.Mode,
		Bits:        8,
		DMAChannel:  int(o.Transport),
		MaxTransfer: max,
	}
}
