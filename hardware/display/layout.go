package display

import (
	"fmt"
	"image"

	"github.com/temoto/deskpanel/internal/sign"
	"github.com/temoto/deskpanel/internal/status"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/periph/devices/ssd1306/image1bit"
)

const (
	lineHeight  = 11
	tableHeight = 10
	iconSize    = 8
	border      = 1
	padding     = 2
	inset       = border + padding
	iconBox     = iconSize + 2*inset
	signBoxW    = sign.Width + 2*inset
	signBoxH    = sign.Height + 2*inset
	iconGap     = 2
	tableMargin = 8
)

var (
	lightIcon = [iconSize]byte{0x91, 0x42, 0x18, 0xbc, 0x3d, 0x18, 0x00, 0x18}
	fanIcon   = [iconSize]byte{0x08, 0x08, 0x18, 0xfc, 0x3f, 0x18, 0x10, 0x10}
)

// Frame is everything one screen shows.
type Frame struct {
	Label       string
	Selected    string
	HasSelected bool
	Sign        sign.Snapshot
	Status      status.Status
	// non-empty replaces normal screen
	Message []string
}

// Render draws frame and flushes it to device.
func (d *Display) Render(f *Frame) error {
	d.Clear()
	if len(f.Message) != 0 {
		d.drawMessage(f.Message)
		return d.Flush()
	}
	d.textCentered(f.Label, lineHeight)
	if f.HasSelected {
		d.textCentered(f.Selected, lineHeight*2)
	}
	if f.Sign.Available {
		d.drawSign(&f.Sign.Bits)
	}
	d.drawIcons(f.Status.Light, f.Status.Fan)
	if f.Status.HostOnline {
		d.drawTable(&f.Status)
	}
	return d.Flush()
}

func (d *Display) drawMessage(lines []string) {
	// vertically centered block
	top := d.size.Y/2 - (len(lines)-1)*lineHeight/2 + lineHeight/2
	for i, line := range lines {
		d.textCentered(line, top+i*lineHeight)
	}
}

func (d *Display) drawSign(b *sign.Bitmap) {
	boxY := d.size.Y - signBoxH
	d.frame(image.Rect(0, boxY, signBoxW, d.size.Y))
	for y := 0; y < sign.Height; y++ {
		for x := 0; x < sign.Width; x++ {
			if b.Pixel(x, y) {
				d.img.SetBit(inset+x, boxY+inset+y, image1bit.On)
			}
		}
	}
}

func (d *Display) iconsY() int { return d.size.Y - signBoxH - iconBox - iconGap }

func (d *Display) drawIcons(light, fan bool) {
	y := d.iconsY()
	fanX := signBoxW - iconBox
	d.frame(image.Rect(0, y, iconBox, y+iconBox))
	d.frame(image.Rect(fanX, y, fanX+iconBox, y+iconBox))
	if light {
		d.icon(&lightIcon, inset, y+inset)
	}
	if fan {
		d.icon(&fanIcon, fanX+inset, y+inset)
	}
}

func (d *Display) drawTable(s *status.Status) {
	x0 := signBoxW + tableMargin
	col := (d.size.X - x0) / 3
	y := d.iconsY() + tableHeight - 1
	rows := [3][3]string{
		{"CPU", "GPU", "RAM"},
		{percent(s.CPUUsage), percent(s.GPUUsage), percent(s.RAMUsage)},
		{fmt.Sprintf("%.0fC", s.CPUTemp), fmt.Sprintf("%.0fC", s.GPUTemp), percent(s.GPUMemUsage)},
	}
	for r, row := range rows {
		for c, text := range row {
			d.text(text, x0+c*col, y+r*tableHeight)
		}
	}
}

func percent(v float32) string { return fmt.Sprintf("%.0f%%", v) }

func (d *Display) icon(rows *[iconSize]byte, x, y int) {
	for r, bits := range rows {
		for c := 0; c < iconSize; c++ {
			if bits&(0x80>>uint(c)) != 0 {
				d.img.SetBit(x+c, y+r, image1bit.On)
			}
		}
	}
}

// frame draws 1px rectangle outline, r.Max exclusive.
func (d *Display) frame(r image.Rectangle) {
	for x := r.Min.X; x < r.Max.X; x++ {
		d.img.SetBit(x, r.Min.Y, image1bit.On)
		d.img.SetBit(x, r.Max.Y-1, image1bit.On)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		d.img.SetBit(r.Min.X, y, image1bit.On)
		d.img.SetBit(r.Max.X-1, y, image1bit.On)
	}
}

func (d *Display) drawer() *font.Drawer {
	return &font.Drawer{
		Dst:  d.img,
		Src:  image.NewUniform(image1bit.On),
		Face: basicfont.Face7x13,
	}
}

// text baseline at y
func (d *Display) text(s string, x, y int) {
	dr := d.drawer()
	dr.Dot = fixed.P(x, y)
	dr.DrawString(s)
}

func (d *Display) textCentered(s string, y int) {
	dr := d.drawer()
	w := dr.MeasureString(s).Ceil()
	x := (d.size.X - w) / 2
	if x < 0 {
		x = 0
	}
	dr.Dot = fixed.P(x, y)
	dr.DrawString(s)
}
