// Package sign turns remotely supplied base64 BMP text into the packed 1-bit sign bitmap.
//
// Accepted container: "BM" signature, BITMAPINFOHEADER, 32x8 pixels,
// 24 bits per pixel, uncompressed, rows stored bottom-up and padded to 4 bytes,
// pixel bytes in blue-green-red order. Anything else is FormatError.
package sign

import (
	"encoding/base64"
	"encoding/binary"
	"strings"

	"github.com/juju/errors"
)

const (
	Width      = 32
	Height     = 8
	BitmapSize = Width * Height / 8

	bitsPerPixel = 24
	headerSize   = 54 // file header + BITMAPINFOHEADER
	rowStride    = (Width*bitsPerPixel/8 + 3) &^ 3

	offData        = 10
	offWidth       = 18
	offHeight      = 22
	offBitCount    = 28
	offCompression = 30

	lumaCutoff   = 128
	sumThreshold = 64
)

// Bitmap is row-major, most significant bit first, bit set = pixel on.
type Bitmap [BitmapSize]byte

func (self *Bitmap) Pixel(x, y int) bool {
	i := y*Width + x
	return self[i/8]&(0x80>>uint(i%8)) != 0
}

func (self *Bitmap) set(x, y int) {
	i := y*Width + x
	self[i/8] |= 0x80 >> uint(i%8)
}

// Threshold reduces RGB to one bit.
type Threshold uint8

const (
	// (299R+587G+114B)/1000 > 128
	ThresholdLuma Threshold = iota
	// R+G+B > 64, anything not near black is on
	ThresholdSum
)

func ParseThreshold(s string) (Threshold, error) {
	switch strings.ToLower(s) {
	case "", "luma":
		return ThresholdLuma, nil
	case "sum":
		return ThresholdSum, nil
	}
	return ThresholdLuma, errors.NotValidf("sign threshold=%s", s)
}

func (t Threshold) String() string {
	if t == ThresholdSum {
		return "sum"
	}
	return "luma"
}

func (t Threshold) On(r, g, b byte) bool {
	switch t {
	case ThresholdSum:
		return int(r)+int(g)+int(b) > sumThreshold
	default:
		return (299*int(r)+587*int(g)+114*int(b))/1000 > lumaCutoff
	}
}

type Decoder struct {
	Threshold Threshold
}

// Decode base64 text into bitmap. Errors are DecodeError or FormatError.
func (self Decoder) Decode(text string) (Bitmap, error) {
	if err := checkBase64(text); err != nil {
		return Bitmap{}, DecodeError{Err: err}
	}
	raw, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return Bitmap{}, DecodeError{Err: err}
	}
	return self.DecodeBMP(raw)
}

// checkBase64 rejects what base64 package tolerates: line breaks anywhere
// and padding that is not trailing.
func checkBase64(text string) error {
	if len(text)%4 != 0 {
		return errors.NotValidf("base64 length=%d not multiple of 4", len(text))
	}
	pad := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '=':
			pad++
			if len(text)-i > 2 {
				return errors.NotValidf("base64 padding at offset=%d", i)
			}
		case pad != 0:
			return errors.NotValidf("base64 data after padding offset=%d", i)
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '+', c == '/':
		default:
			return errors.NotValidf("base64 character=%q offset=%d", c, i)
		}
	}
	return nil
}

func (self Decoder) DecodeBMP(b []byte) (Bitmap, error) {
	var bm Bitmap
	if len(b) < headerSize {
		return bm, formatErrorf("length=%d less than header=%d", len(b), headerSize)
	}
	if b[0] != 'B' || b[1] != 'M' {
		return bm, formatErrorf("signature=%q expected=BM", b[:2])
	}

	dataOffset := binary.LittleEndian.Uint32(b[offData:])
	width := int32(binary.LittleEndian.Uint32(b[offWidth:]))
	height := int32(binary.LittleEndian.Uint32(b[offHeight:]))
	bitCount := binary.LittleEndian.Uint16(b[offBitCount:])
	compression := binary.LittleEndian.Uint32(b[offCompression:])
	switch {
	case width != Width || height != Height:
		return bm, formatErrorf("geometry=%dx%d expected=%dx%d", width, height, Width, Height)
	case bitCount != bitsPerPixel:
		return bm, formatErrorf("bits per pixel=%d expected=%d", bitCount, bitsPerPixel)
	case compression != 0:
		return bm, formatErrorf("compression=%d not supported", compression)
	case dataOffset > uint32(len(b)):
		return bm, formatErrorf("data offset=%d beyond length=%d", dataOffset, len(b))
	}

	base := int(dataOffset)
	for y := 0; y < Height; y++ {
		row := base + (Height-1-y)*rowStride
		for x := 0; x < Width; x++ {
			off := row + x*3
			if off+3 > len(b) {
				return Bitmap{}, formatErrorf("pixel x=%d y=%d offset=%d beyond length=%d", x, y, off, len(b))
			}
			blue, green, red := b[off], b[off+1], b[off+2]
			if self.Threshold.On(red, green, blue) {
				bm.set(x, y)
			}
		}
	}
	return bm, nil
}
