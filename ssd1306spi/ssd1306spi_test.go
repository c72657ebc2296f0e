// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1306spi

import (
	"bytes"
	"errors"
	"image"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/GermanBionicSystems/oledspi/image1bit"
	"github.com/GermanBionicSystems/oledspi/spibus"
	"github.com/GermanBionicSystems/oledspi/spibus/spibustest"
	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spitest"
)

var wantInit = []byte{
	0xAE, 0xA8, 0x3F, 0xD3, 0x00, 0x40, 0xA1, 0xC8, 0xDA, 0x12, 0x81, 0x7F, 0x2E, 0xA4,
	0xD5, 0x00, 0x8D, 0x14, 0x20, 0x00, 0x21, 0x00, 0x7F, 0x22, 0x00, 0x07, 0xAF,
}

var wantWindow = []byte{0x21, 0x00, 0x7F, 0x22, 0x00, 0x07}

type fixture struct {
	log   *spibustest.Log
	bus   *spibustest.Bus
	alloc *spibustest.Allocator
	opts  Opts
	cs    *spibustest.Pin
	dc    *spibustest.Pin
	rst   *spibustest.Pin
}

func newFixture(mode TransportMode) *fixture {
	l := &spibustest.Log{}
	f := &fixture{
		log:   l,
		bus:   &spibustest.Bus{Log: l},
		alloc: &spibustest.Allocator{Log: l},
		cs:    spibustest.NewPin("CS", l),
		dc:    spibustest.NewPin("DC", l),
		rst:   spibustest.NewPin("RST", l),
	}
	f.opts = Opts{CS: f.cs, DC: f.dc, RST: f.rst, Transport: mode, Allocator: f.alloc}
	return f
}

func (f *fixture) open(t *testing.T) *Dev {
	d, err := NewSPI(f.bus, &f.opts)
	if err != nil {
		t.Fatal(err)
	}
	f.log.Reset()
	return d
}

func TestNewSPI(t *testing.T) {
	for _, tc := range []struct {
		name string
		live bool
		want []string
	}{
		{
			name: "fresh bus",
			want: []string{
				"attach",
				"DC=Low", "CS=High", "RST=High",
				"RST=Low", "RST=High",
				"DC=Low", "CS=Low", "queue 27", "await", "DC=Low", "CS=High",
			},
		},
		{
			name: "live bus skips reset",
			live: true,
			want: []string{
				"attach",
				"DC=Low", "CS=High", "RST=High",
				"DC=Low", "CS=Low", "queue 27", "await", "DC=Low", "CS=High",
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(NoDMA)
			f.bus.Live = tc.live
			var out bytes.Buffer
			f.opts.Logger = log.New(&out, "", 0)
			d, err := NewSPI(f.bus, &f.opts)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(f.log.Strings(), tc.want); diff != "" {
				t.Errorf("NewSPI() difference (-got +want):\n%s", diff)
			}
			if diff := cmp.Diff(f.log.Queued(), [][]byte{wantInit}); diff != "" {
				t.Errorf("init sequence difference (-got +want):\n%s", diff)
			}
			if d.State() != Ready || d.Shared() != tc.live {
				t.Errorf("State() = %s, Shared() = %t", d.State(), d.Shared())
			}
			if got := strings.Contains(out.String(), "skipping reset"); got != tc.live {
				t.Errorf("log = %q", out.String())
			}
			for i, b := range d.Buffer().Bytes() {
				if b != 0 {
					t.Fatalf("byte %d = %#x after init", i, b)
				}
			}
		})
	}
}

func TestNewSPIBusConfig(t *testing.T) {
	f := newFixture(DMAChannel2)
	f.opts.Wiring = DefaultOpts.Wiring
	f.opts.Mode = spi.Mode3
	f.open(t)
	want := spibus.Config{
		CLK:         "GPIO18",
		MOSI:        "GPIO23",
		MISO:        "GPIO19",
		CS:          "GPIO5",
		Freq:        10 * physic.MegaHertz,
		Mode:        spi.Mode3,
		Bits:        8,
		DMAChannel:  2,
		MaxTransfer: 1024,
	}
	if diff := cmp.Diff(f.bus.Config, want); diff != "" {
		t.Errorf("Config difference (-got +want):\n%s", diff)
	}
}

func TestNewSPIErrors(t *testing.T) {
	for _, tc := range []struct {
		name   string
		modify func(f *fixture)
	}{
		{"width not multiple of 8", func(f *fixture) { f.opts.W, f.opts.H = 100, 64 }},
		{"width too large", func(f *fixture) { f.opts.W, f.opts.H = 136, 64 }},
		{"height too large", func(f *fixture) { f.opts.W, f.opts.H = 128, 72 }},
		{"height not multiple of 8", func(f *fixture) { f.opts.W, f.opts.H = 128, 12 }},
		{"only height", func(f *fixture) { f.opts.H = 32 }},
		{"mode", func(f *fixture) { f.opts.Mode = spi.Mode(7) }},
		{"transport", func(f *fixture) { f.opts.Transport = TransportMode(3) }},
		{"negative freq", func(f *fixture) { f.opts.Freq = -physic.Hertz }},
		{"no cs", func(f *fixture) { f.opts.CS = nil }},
		{"invalid dc", func(f *fixture) { f.opts.DC = gpio.INVALID }},
		{"unknown rst", func(f *fixture) { f.opts.RST = nil; f.opts.Wiring.RST = "NO_SUCH_PIN" }},
		{"attach", func(f *fixture) { f.bus.AttachErr = errors.New("no bus") }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(NoDMA)
			tc.modify(f)
			if _, err := NewSPI(f.bus, &f.opts); err == nil {
				t.Fatal("expected error")
			}
			if diff := cmp.Diff(f.log.Strings(), []string{}); diff != "" {
				t.Errorf("bus touched (-got +want):\n%s", diff)
			}
		})
	}
	if _, err := NewSPI(nil, &Opts{}); err == nil {
		t.Error("expected error with nil bus")
	}
	if _, err := NewSPI(&spibustest.Bus{}, nil); err == nil {
		t.Error("expected error with nil opts")
	}
}

func TestNewSPIInitFailure(t *testing.T) {
	f := newFixture(NoDMA)
	f.bus.FailAwait = 1
	if _, err := NewSPI(f.bus, &f.opts); !errors.Is(err, spibus.ErrTimeout) {
		t.Fatalf("NewSPI() = %v, want ErrTimeout", err)
	}
	if f.bus.Device.Closed != 1 {
		t.Errorf("device not closed after failed init")
	}

	f = newFixture(NoDMA)
	f.rst.Err = errors.New("rst is stuck")
	if _, err := NewSPI(f.bus, &f.opts); !errors.Is(err, f.rst.Err) {
		t.Fatalf("NewSPI() = %v, want %v", err, f.rst.Err)
	}
	if len(f.log.Queued()) != 0 {
		t.Errorf("init sent despite pin failure")
	}
}

func TestNewSPIByName(t *testing.T) {
	l := &spibustest.Log{}
	for i, name := range []string{"OLEDTEST_CS", "OLEDTEST_DC", "OLEDTEST_RST"} {
		if gpioreg.ByName(name) != nil {
			continue
		}
		p := spibustest.NewPin(name, l)
		p.Num = 9000 + i
		if err := gpioreg.Register(p); err != nil {
			t.Fatal(err)
		}
	}
	opts := Opts{Wiring: Wiring{CS: "OLEDTEST_CS", DC: "OLEDTEST_DC", RST: "OLEDTEST_RST"}}
	d, err := NewSPI(&spibustest.Bus{Log: &spibustest.Log{}}, &opts)
	if err != nil {
		t.Fatal(err)
	}
	c := d.Config()
	if c.CS.Name() != "OLEDTEST_CS" || c.DC.Name() != "OLEDTEST_DC" || c.RST.Name() != "OLEDTEST_RST" {
		t.Errorf("pins = %s, %s, %s", c.CS, c.DC, c.RST)
	}
	if c.W != 128 || c.H != 64 || c.Freq != 10*physic.MegaHertz || c.Timeout != DefaultOpts.Timeout {
		t.Errorf("defaults not applied: %+v", c)
	}
}

func TestInitCmd(t *testing.T) {
	o := Opts{W: 128, H: 32, Sequential: true}
	want := []byte{
		0xAE, 0xA8, 0x1F, 0xD3, 0x00, 0x40, 0xA1, 0xC8, 0xDA, 0x02, 0x81, 0x7F, 0x2E, 0xA4,
		0xD5, 0x00, 0x8D, 0x14, 0x20, 0x00, 0x21, 0x00, 0x7F, 0x22, 0x00, 0x03, 0xAF,
	}
	if diff := cmp.Diff(initCmd(&o), want); diff != "" {
		t.Errorf("initCmd() difference (-got +want):\n%s", diff)
	}
	o = Opts{W: 64, H: 48}
	if diff := cmp.Diff(windowCmd(&o), []byte{0x21, 0x00, 0x3F, 0x22, 0x00, 0x05}); diff != "" {
		t.Errorf("windowCmd() difference (-got +want):\n%s", diff)
	}
}

func TestFlush(t *testing.T) {
	for _, tc := range []struct {
		name string
		mode TransportMode
		want []string
	}{
		{
			name: "dma",
			mode: DMAChannel1,
			want: []string{
				"alloc 1024",
				"DC=Low", "CS=Low", "queue 6", "await", "DC=Low", "CS=High",
				"DC=High", "CS=Low", "queue 1024", "await", "DC=Low", "CS=High",
				"free 1024",
			},
		},
		{
			name: "chunked",
			mode: NoDMA,
			want: func() []string {
				w := []string{"DC=Low", "CS=Low", "queue 6", "await", "DC=Low", "CS=High", "DC=High", "CS=Low"}
				for i := 0; i < 1024/ChunkSize; i++ {
					w = append(w, "queue 32", "await")
				}
				return append(w, "DC=Low", "CS=High")
			}(),
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(tc.mode)
			d := f.open(t)
			d.SetPixel(0, 0, image1bit.White)
			d.SetPixel(127, 63, image1bit.White)
			d.FillRect(10, 10, 20, 20, image1bit.White)
			before := append([]byte(nil), d.Buffer().Bytes()...)

			for i := 0; i < 2; i++ {
				f.log.Reset()
				if err := d.Flush(); err != nil {
					t.Fatal(err)
				}
				if diff := cmp.Diff(f.log.Strings(), tc.want); diff != "" {
					t.Fatalf("Flush() difference (-got +want):\n%s", diff)
				}
				q := f.log.Queued()
				if diff := cmp.Diff(q[0], wantWindow); diff != "" {
					t.Errorf("window difference (-got +want):\n%s", diff)
				}
				if got := bytes.Join(q[1:], nil); !bytes.Equal(got, before) {
					t.Errorf("sent pixels differ from the frame buffer")
				}
				if !bytes.Equal(d.Buffer().Bytes(), before) {
					t.Fatalf("Flush() modified the frame buffer")
				}
			}
			if f.alloc.Outstanding != 0 {
				t.Errorf("%d DMA buffers leaked", f.alloc.Outstanding)
			}
		})
	}
}

func TestFlushNoDMABuffer(t *testing.T) {
	f := newFixture(DMAChannel1)
	var out bytes.Buffer
	f.opts.Logger = log.New(&out, "", 0)
	d := f.open(t)
	f.alloc.Fail = true
	if err := d.Flush(); !errors.Is(err, ErrNoDMABuffer) {
		t.Fatalf("Flush() = %v, want ErrNoDMABuffer", err)
	}
	if diff := cmp.Diff(f.log.Strings(), []string{}); diff != "" {
		t.Errorf("Flush() difference (-got +want):\n%s", diff)
	}
	if !strings.Contains(out.String(), "flush skipped") {
		t.Errorf("log = %q", out.String())
	}
	f.alloc.Fail = false
	if err := d.Flush(); err != nil {
		t.Fatal(err)
	}
}

func TestFlushTimeout(t *testing.T) {
	f := newFixture(NoDMA)
	d := f.open(t)
	// The init sequence used the first await; fail the window.
	f.bus.FailAwait = 2
	err := d.Flush()
	if !errors.Is(err, spibus.ErrTimeout) {
		t.Fatalf("Flush() = %v, want ErrTimeout", err)
	}
	var txErr *TxError
	if !errors.As(err, &txErr) || txErr.Mode != Command {
		t.Errorf("Flush() = %v, want a Command TxError", err)
	}
	want := []string{"DC=Low", "CS=Low", "queue 6", "DC=Low", "CS=High"}
	if diff := cmp.Diff(f.log.Strings(), want); diff != "" {
		t.Errorf("Flush() difference (-got +want):\n%s", diff)
	}
	// Recoverable.
	f.log.Reset()
	if err := d.Flush(); err != nil {
		t.Fatal(err)
	}
	if got := len(f.log.Queued()); got != 1+1024/ChunkSize {
		t.Errorf("%d transactions, want %d", got, 1+1024/ChunkSize)
	}
}

// stallPort records like spitest.Record; once stall is set, every full
// chunk blocks until it is closed.
type stallPort struct {
	*spitest.Record
	stall chan struct{}
}

func (s *stallPort) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	c, err := s.Record.Connect(f, mode, bits)
	if err != nil {
		return nil, err
	}
	return &stallConn{Conn: c, p: s}, nil
}

type stallConn struct {
	spi.Conn
	p *stallPort
}

func (s *stallConn) Tx(w, r []byte) error {
	if s.p.stall != nil && len(w) == ChunkSize {
		<-s.p.stall
	}
	return s.Conn.Tx(w, r)
}

func TestFlushTimeoutDraining(t *testing.T) {
	f := newFixture(NoDMA)
	f.opts.Timeout = 5 * time.Millisecond
	port := &stallPort{Record: &spitest.Record{}}
	d, err := NewSPI(spibus.NewPort(port), &f.opts)
	if err != nil {
		t.Fatal(err)
	}
	port.stall = make(chan struct{})
	err = d.Flush()
	var txErr *TxError
	if !errors.As(err, &txErr) || txErr.Mode != Data || txErr.Chunk != 0 {
		t.Fatalf("Flush() = %v, want a Data TxError on chunk 0", err)
	}
	if got := f.cs.Read(); got != gpio.High {
		t.Errorf("CS = %s after Flush(), want High", got)
	}
	// Drawing while the chunk is still on the bus must not change what is sent.
	d.FillRect(0, 0, 32, 8, image1bit.White)
	close(port.stall)
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	ops := port.Ops
	if len(ops) != 3 {
		t.Fatalf("%d transactions, want 3", len(ops))
	}
	if diff := cmp.Diff(ops[1].W, wantWindow); diff != "" {
		t.Errorf("window difference (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff(ops[2].W, make([]byte, ChunkSize)); diff != "" {
		t.Errorf("stalled chunk difference (-got +want):\n%s", diff)
	}
}

func TestCommands(t *testing.T) {
	f := newFixture(DMAChannel1)
	d := f.open(t)
	steps := []struct {
		name string
		fn   func() error
		want [][]byte
	}{
		{"contrast", func() error { return d.SetContrast(0xFF) }, [][]byte{{0x81, 0xFF}}},
		{"invert", func() error { return d.Invert(true) }, [][]byte{{0xA7}}},
		{"normal", func() error { return d.Invert(false) }, [][]byte{{0xA6}}},
		{"halt", d.Halt, [][]byte{{0xAE}}},
		{"flush wakes up", d.Flush, [][]byte{append([]byte{0xAF}, wantWindow...), make([]byte, 1024)}},
		{"awake", d.Flush, [][]byte{wantWindow, make([]byte, 1024)}},
	}
	for _, s := range steps {
		f.log.Reset()
		if err := s.fn(); err != nil {
			t.Fatalf("%s: %v", s.name, err)
		}
		if diff := cmp.Diff(f.log.Queued(), s.want); diff != "" {
			t.Errorf("%s difference (-got +want):\n%s", s.name, diff)
		}
	}
}

func TestScroll(t *testing.T) {
	f := newFixture(DMAChannel1)
	d := f.open(t)
	steps := []struct {
		name string
		fn   func() error
		want [][]byte
	}{
		{"left", func() error { return d.Scroll(Left, FrameRate2, 0, -1) }, [][]byte{{0x27, 0x00, 0x00, 0x07, 0x07, 0x00, 0xFF, 0x2F}}},
		{"flush stops it", d.Flush, [][]byte{append([]byte{0x2E}, wantWindow...), make([]byte, 1024)}},
		{"flush", d.Flush, [][]byte{wantWindow, make([]byte, 1024)}},
		{"up right", func() error { return d.Scroll(UpRight, FrameRate5, 8, 32) }, [][]byte{{0x29, 0x00, 0x01, 0x00, 0x03, 0x01, 0x2F}}},
		{"stop", d.StopScroll, [][]byte{{0x2E}}},
		{"flush after stop", d.Flush, [][]byte{wantWindow, make([]byte, 1024)}},
		{"start line", func() error { return d.SetDisplayStartLine(12) }, [][]byte{{0x4C}}},
	}
	for _, s := range steps {
		f.log.Reset()
		if err := s.fn(); err != nil {
			t.Fatalf("%s: %v", s.name, err)
		}
		if diff := cmp.Diff(f.log.Queued(), s.want); diff != "" {
			t.Errorf("%s difference (-got +want):\n%s", s.name, diff)
		}
	}

	f.log.Reset()
	for _, fn := range []func() error{
		func() error { return d.Scroll(Left, FrameRate2, 8, 8) },
		func() error { return d.Scroll(Left, FrameRate2, 4, -1) },
		func() error { return d.Scroll(Left, FrameRate2, 0, 72) },
		func() error { return d.Scroll(Orientation(0x10), FrameRate2, 0, -1) },
		func() error { return d.SetDisplayStartLine(64) },
	} {
		if err := fn(); err == nil {
			t.Error("expected error")
		}
	}
	if got := f.log.Strings(); len(got) != 0 {
		t.Errorf("invalid arguments touched the bus: %v", got)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if err := d.Scroll(Left, FrameRate2, 0, -1); !errors.Is(err, ErrClosed) {
		t.Errorf("Scroll() after Close = %v", err)
	}
}

func TestDrawing(t *testing.T) {
	f := newFixture(DMAChannel1)
	d := f.open(t)

	d.Line(0, 0, 7, 7, image1bit.White)
	for i := 0; i < 8; i++ {
		if d.GetPixel(i, i) != 1 {
			t.Errorf("GetPixel(%d, %d) = 0", i, i)
		}
	}
	d.Clear()
	d.HLine(0, 0, 128, image1bit.White)
	d.VLine(0, 1, 63, image1bit.White)
	d.Rect(10, 10, 5, 5, image1bit.White)
	d.FillRect(20, 20, 2, 2, image1bit.White)
	d.Circle(64, 32, 3, image1bit.White)
	d.FillCircle(100, 32, 2, image1bit.White)
	for _, p := range []image.Point{{127, 0}, {0, 63}, {14, 14}, {21, 21}, {67, 32}, {100, 34}} {
		if d.GetPixel(p.X, p.Y) != 1 {
			t.Errorf("GetPixel(%d, %d) = 0", p.X, p.Y)
		}
	}
	if d.GetPixel(12, 12) != 0 || d.GetPixel(64, 32) != 0 {
		t.Errorf("outlines are filled")
	}

	d.Clear()
	if end := d.Text(0, 0, "Hi", image1bit.White, 2); end != 32 {
		t.Errorf("Text() = %d, want 32", end)
	}
	lit := 0
	for y := 0; y < 16; y++ {
		for x := 0; x < 32; x++ {
			lit += d.GetPixel(x, y)
		}
	}
	if lit == 0 || lit%4 != 0 {
		t.Errorf("%d pixels lit at scale 2", lit)
	}

	d.SetPixel(128, 0, image1bit.White)
	d.SetPixel(-1, -1, image1bit.White)
	if d.GetPixel(-1, -1) != 0 || d.GetPixel(128, 0) != 0 {
		t.Errorf("out of range pixels")
	}
}

func TestDraw(t *testing.T) {
	f := newFixture(DMAChannel1)
	d := f.open(t)
	if d.ColorModel() != image1bit.BitModel {
		t.Errorf("ColorModel()")
	}
	if d.Bounds() != image.Rect(0, 0, 128, 64) {
		t.Errorf("Bounds() = %s", d.Bounds())
	}
	if err := d.Draw(d.Bounds(), &image.Uniform{C: image1bit.On}, image.Point{}); err != nil {
		t.Fatal(err)
	}
	q := f.log.Queued()
	if len(q) != 2 || !bytes.Equal(q[1], bytes.Repeat([]byte{0xFF}, 1024)) {
		t.Errorf("Draw() did not flush a white frame")
	}

	f.log.Reset()
	pix := make([]byte, 1024)
	pix[0] = 0x81
	if n, err := d.Write(pix); n != 1024 || err != nil {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	if d.GetPixel(0, 0) != 1 || d.GetPixel(0, 7) != 1 || d.GetPixel(0, 1) != 0 || d.GetPixel(1, 0) != 0 {
		t.Errorf("Write() did not copy the pixels")
	}
	if _, err := d.Write(pix[:10]); err == nil {
		t.Errorf("Write() with a short buffer succeeded")
	}
}

func TestClose(t *testing.T) {
	f := newFixture(NoDMA)
	d := f.open(t)
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second Close() = %v", err)
	}
	if f.bus.Device.Closed != 1 {
		t.Errorf("device closed %d times", f.bus.Device.Closed)
	}
	if d.State() != Closed {
		t.Errorf("State() = %s", d.State())
	}
	for name, fn := range map[string]func() error{
		"Flush":       d.Flush,
		"Halt":        d.Halt,
		"SetContrast": func() error { return d.SetContrast(1) },
		"Invert":      func() error { return d.Invert(true) },
		"Draw":        func() error { return d.Draw(d.Bounds(), image.Black, image.Point{}) },
	} {
		if err := fn(); !errors.Is(err, ErrClosed) {
			t.Errorf("%s() = %v, want ErrClosed", name, err)
		}
	}
	// Drawing after Close is harmless.
	d.SetPixel(0, 0, image1bit.White)
	d.Circle(10, 10, 5, image1bit.Invert)
	if d.GetPixel(0, 0) != 0 {
		t.Errorf("GetPixel() after Close = 1")
	}
}

func TestString(t *testing.T) {
	f := newFixture(DMAChannel2)
	d := f.open(t)
	got := d.String()
	for _, want := range []string{"ssd1306spi.Dev{", "DMAChannel2", "Ready", "(128,64)"} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %q, missing %q", got, want)
		}
	}
	for s, want := range map[State]string{
		Uninitialized:   "Uninitialized",
		BusAttached:     "BusAttached",
		PanelConfigured: "PanelConfigured",
		Ready:           "Ready",
		Closed:          "Closed",
		State(42):       "State(42)",
	} {
		if s.String() != want {
			t.Errorf("String() = %q, want %q", s.String(), want)
		}
	}
}
