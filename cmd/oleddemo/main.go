// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// oleddemo draws a test card on a SSD1306 panel wired over SPI.
//
// With -preview the frame is also printed to the terminal; with -dry the
// panel is not opened at all.
package main

import (
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"time"

	"github.com/GermanBionicSystems/oledspi/glyph"
	"github.com/GermanBionicSystems/oledspi/image1bit"
	"github.com/GermanBionicSystems/oledspi/raster"
	"github.com/GermanBionicSystems/oledspi/screen2d"
	"github.com/GermanBionicSystems/oledspi/spibus"
	"github.com/GermanBionicSystems/oledspi/ssd1306spi"
	"github.com/GermanBionicSystems/oledspi/vector"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
	"tinygo.org/x/tinyfont"
)

func main() {
	opts := ssd1306spi.DefaultOpts
	port := flag.String("spi", "", "SPI port to use")
	flag.StringVar(&opts.Wiring.CS, "cs", opts.Wiring.CS, "chip select pin")
	flag.StringVar(&opts.Wiring.DC, "dc", opts.Wiring.DC, "data/command pin")
	flag.StringVar(&opts.Wiring.RST, "rst", opts.Wiring.RST, "reset pin")
	hz := flag.Int64("hz", int64(opts.Freq/physic.Hertz), "SPI clock in Hz")
	mode := flag.Int("mode", int(opts.Mode), "SPI mode (0-3)")
	flag.Var(&opts.Transport, "transport", "NoDMA, DMAChannel1 or DMAChannel2")
	flag.IntVar(&opts.W, "width", opts.W, "display width")
	flag.IntVar(&opts.H, "height", opts.H, "display height")
	preview := flag.Bool("preview", false, "print the frame to the terminal")
	dry := flag.Bool("dry", false, "do not open the panel, implies -preview")
	hold := flag.Duration("hold", 5*time.Second, "time to keep the frame on screen")
	verbose := flag.Bool("v", false, "log driver events")
	flag.Parse()
	opts.Freq = physic.Frequency(*hz) * physic.Hertz
	opts.Mode = spi.Mode(*mode)
	if *verbose {
		opts.Logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	if *dry {
		img := image1bit.NewVerticalLSB(image.Rect(0, 0, opts.W, opts.H))
		testCard(img)
		show(img)
		return
	}

	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	// Use spireg SPI port registry to find the first available SPI bus.
	p, err := spireg.Open(*port)
	if err != nil {
		log.Fatal(err)
	}
	defer p.Close()

	dev, err := ssd1306spi.NewSPI(spibus.NewPort(p), &opts)
	if err != nil {
		log.Fatalf("failed to initialize display: %v", err)
	}
	defer dev.Close()
	fmt.Printf("device=%s\n", dev)

	testCard(dev.Buffer())
	if err := dev.Flush(); err != nil {
		log.Fatal(err)
	}
	if *preview {
		show(dev.Buffer())
	}
	time.Sleep(*hold)
	if err := dev.Halt(); err != nil {
		log.Fatal(err)
	}
}

// testCard draws every primitive once.
func testCard(img *image1bit.VerticalLSB) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	raster.Rect(img, 0, 0, w, h, image1bit.White)
	glyph.DrawText(img, glyph.Basic, 4, 4, []byte("periph"), image1bit.White, 1)
	glyph.WriteLine(img, &tinyfont.Picopixel, 4, 22, "tinyfont picopixel", image1bit.White)
	glyph.DrawFace(img, nil, 4, h-6, "7x13", image1bit.White)
	raster.Circle(img, w-20, h/2, 12, image1bit.White)
	raster.FillCircle(img, w-20, h/2, 6, image1bit.White)
	raster.Line(img, 0, h-1, w-1, 0, image1bit.Invert)

	c := vector.New(40, 16)
	if err := c.SetFontSize(12); err == nil {
		c.DrawString("Go", 2, 13)
	}
	c.DrawRoundedRectangle(24, 2, 14, 12, 4)
	c.Fill()
	c.Render(img, image.Pt(w/2-20, h/2-4), image1bit.Invert)
}

func show(img *image1bit.VerticalLSB) {
	s := screen2d.New(&screen2d.Opts{W: img.Rect.Dx(), H: img.Rect.Dy()})
	if _, err := s.Write(img.Pix); err != nil {
		log.Fatal(err)
	}
	_ = s.Halt()
}
