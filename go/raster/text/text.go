// Package text implements a plain-text image codec used for test fixtures
// and debugging dumps.
//
// The format:
//
//	! IRISTEXT
//	width height
//	0x000000ff 0xffffffff ...
//	0xddddddff 0xffffff88 ...
//	...
//
// Pixel values are 0xRRGGBBAA. Grayscale pixels can be written as 0xXX,
// which expands to 0xXXXXXXff.
package text

import (
	"bufio"
	"fmt"
	"image"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/frankbria/iris/go/raster"
)

const header = "! IRISTEXT\n"

func dim(reader *bufio.Reader) (int, int, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		return 0, 0, errors.Wrap(err, "reading header")
	}
	if line != header {
		return 0, 0, errors.Errorf("not an IRISTEXT image: %q", line)
	}
	line, err = reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return 0, 0, errors.Wrap(err, "reading dimensions")
	}
	var width, height int
	if n, err := fmt.Sscanf(line, "%d %d", &width, &height); err != nil || n != 2 {
		return 0, 0, errors.Errorf("invalid dimension line: %q", line)
	}
	return width, height, nil
}

// Decode reads an IRISTEXT image from r.
func Decode(r io.Reader) (*raster.Image, error) {
	reader := bufio.NewReader(r)
	width, height, err := dim(reader)
	if err != nil {
		return nil, err
	}
	ret := image.NewNRGBA(image.Rect(0, 0, width, height))
	lineNum := 0
	for {
		line, readErr := reader.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return nil, errors.Wrap(readErr, "reading pixel row")
		}
		fields := strings.Fields(line)
		// Checked before any pixel write: a row at lineNum == height would
		// index past the buffer.
		if len(fields) > 0 && lineNum >= height {
			return nil, errors.Errorf("too many rows: %d > %d", lineNum+1, height)
		}
		if len(fields) > width {
			return nil, errors.Errorf("too many columns in row %d: %d > %d", lineNum, len(fields), width)
		}
		for i, h := range fields {
			if !strings.HasPrefix(h, "0x") || (len(h) != 4 && len(h) != 10) {
				return nil, errors.Errorf("invalid pixel %q, want 0xRRGGBBAA or 0xXX", h)
			}
			pixel, err := strconv.ParseUint(h, 0, 32)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing pixel %q", h)
			}
			var rr, gg, bb, aa uint8
			if len(h) == 10 {
				rr = uint8(pixel >> 24)
				gg = uint8(pixel >> 16)
				bb = uint8(pixel >> 8)
				aa = uint8(pixel)
			} else {
				rr, gg, bb, aa = uint8(pixel), uint8(pixel), uint8(pixel), 0xff
			}
			offset := lineNum*ret.Stride + i*4
			ret.Pix[offset+0] = rr
			ret.Pix[offset+1] = gg
			ret.Pix[offset+2] = bb
			ret.Pix[offset+3] = aa
		}
		if len(fields) > 0 {
			lineNum++
		}
		if readErr == io.EOF {
			break
		}
	}
	return raster.FromNRGBA(ret, "iristext"), nil
}

// Encode writes the image to w in IRISTEXT format.
func Encode(w io.Writer, img *raster.Image) error {
	if _, err := fmt.Fprintf(w, "%s%d %d\n", header, img.Width, img.Height); err != nil {
		return err
	}
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			o := (y*img.Width + x) * 4
			sep := " "
			if x == img.Width-1 {
				sep = "\n"
			}
			_, err := fmt.Fprintf(w, "0x%02x%02x%02x%02x%s",
				img.Pix[o], img.Pix[o+1], img.Pix[o+2], img.Pix[o+3], sep)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// MustImage decodes s into an Image, panicking on malformed input. Only for
// static test data.
func MustImage(s string) *raster.Image {
	img, err := Decode(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("failed to decode static image: %s", err))
	}
	return img
}
