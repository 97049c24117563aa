package display

import (
	"image"
	"strings"
	"sync"

	"github.com/juju/errors"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/devices/ssd1306"
	"periph.io/x/periph/devices/ssd1306/image1bit"
	"periph.io/x/periph/host"
)

const (
	DefaultWidth  = 128
	DefaultHeight = 64
)

// Device is the part of ssd1306.Dev used here.
type Device interface {
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Halt() error
}

// Display is 1 bit frame buffer. Drawing methods only change memory,
// Flush sends frame to device.
type Display struct {
	mu   sync.Mutex
	dev  Device
	img  *image1bit.VerticalLSB
	size image.Point
	// flushed frame, for mock and console
	last *image1bit.VerticalLSB
}

func NewSSD1306(busName string, width, height int, rotated bool) (*Display, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Annotate(err, "periph/init")
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, errors.Annotatef(err, "i2c open bus=%s", busName)
	}
	size := image.Point{X: width, Y: height}
	if size.X <= 0 || size.Y <= 0 {
		size = image.Point{X: DefaultWidth, Y: DefaultHeight}
	}
	dev, err := ssd1306.NewI2C(bus, &ssd1306.Opts{W: size.X, H: size.Y, Rotated: rotated})
	if err != nil {
		_ = bus.Close()
		return nil, errors.Annotatef(err, "ssd1306 bus=%s", busName)
	}
	return newDisplay(dev, size), nil
}

func NewMock(size image.Point) *Display {
	return newDisplay(nil, size)
}

func newDisplay(dev Device, size image.Point) *Display {
	r := image.Rectangle{Max: size}
	return &Display{
		dev:  dev,
		img:  image1bit.NewVerticalLSB(r),
		last: image1bit.NewVerticalLSB(r),
		size: size,
	}
}

func (d *Display) Size() image.Point { return d.size }

// Image is the drawing surface, valid until next Flush.
func (d *Display) Image() *image1bit.VerticalLSB { return d.img }

func (d *Display) Clear() {
	for i := range d.img.Pix {
		d.img.Pix[i] = 0
	}
}

func (d *Display) Flush() error {
	d.mu.Lock()
	copy(d.last.Pix, d.img.Pix)
	d.mu.Unlock()
	if d.dev != nil {
		return errors.Annotate(d.dev.Draw(d.img.Bounds(), d.img, image.Point{}), "display flush")
	}
	return nil
}

func (d *Display) Close() error {
	if d.dev != nil {
		return d.dev.Halt()
	}
	return nil
}

// Pixel reports flushed frame pixel.
func (d *Display) Pixel(x, y int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return bool(d.last.BitAt(x, y))
}

// String2 renders flushed frame as text, two columns per pixel.
func (d *Display) String2() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	b := strings.Builder{}
	b.Grow((d.size.X*2 + 1) * d.size.Y) // +1 for \n
	for y := 0; y < d.size.Y; y++ {
		for x := 0; x < d.size.X; x++ {
			if d.last.BitAt(x, y) {
				b.WriteString("██")
			} else {
				b.WriteString("  ")
			}
		}
		b.WriteRune('\n')
	}
	return b.String()
}
