package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// ErrDecode reports that the supplied bytes are not a well-formed raster
// image. Malformed uploads are an expected outcome, not a crash.
var ErrDecode = errors.New("undecodable image")

// Gray is a grayscale pixel grid in row-major order, one byte per pixel.
// This is the layout the cascade detector consumes directly.
type Gray struct {
	Pix  []uint8
	Rows int
	Cols int
}

// Rect is an axis-aligned face region in pixel coordinates.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Decode parses PNG, JPEG or GIF bytes into an image.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

// ToGray converts an image to a grayscale grid using the standard
// luma weights.
func ToGray(img image.Image) *Gray {
	bounds := img.Bounds()
	cols := bounds.Dx()
	rows := bounds.Dy()

	pix := make([]uint8, rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			pix[y*cols+x] = uint8((r*299 + g*587 + b*114) / 1000 >> 8)
		}
	}

	return &Gray{Pix: pix, Rows: rows, Cols: cols}
}

// Crop extracts the given region, clamped to the grid bounds.
// Returns nil if the clamped region is empty.
func (g *Gray) Crop(r Rect) *Gray {
	x1, y1 := r.X, r.Y
	x2, y2 := r.X+r.W, r.Y+r.H

	if x1 < 0 {
		x1 = 0
	}
	if y1 < 0 {
		y1 = 0
	}
	if x2 > g.Cols {
		x2 = g.Cols
	}
	if y2 > g.Rows {
		y2 = g.Rows
	}

	w := x2 - x1
	h := y2 - y1
	if w <= 0 || h <= 0 {
		return nil
	}

	pix := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		copy(pix[y*w:(y+1)*w], g.Pix[(y1+y)*g.Cols+x1:(y1+y)*g.Cols+x2])
	}
	return &Gray{Pix: pix, Rows: h, Cols: w}
}

// Resize scales the grid to targetW x targetH using bilinear interpolation.
func (g *Gray) Resize(targetW, targetH int) *Gray {
	if g.Cols == targetW && g.Rows == targetH {
		return g
	}

	pix := make([]uint8, targetW*targetH)
	scaleX := float64(g.Cols) / float64(targetW)
	scaleY := float64(g.Rows) / float64(targetH)

	for y := 0; y < targetH; y++ {
		srcY := (float64(y) + 0.5) * scaleY
		y0 := int(srcY - 0.5)
		fy := srcY - 0.5 - float64(y0)
		y1 := y0 + 1
		if y0 < 0 || fy < 0 {
			y0, fy = 0, 0
			y1 = y0 + 1
		}
		if y1 >= g.Rows {
			y1 = g.Rows - 1
		}

		for x := 0; x < targetW; x++ {
			srcX := (float64(x) + 0.5) * scaleX
			x0 := int(srcX - 0.5)
			fx := srcX - 0.5 - float64(x0)
			x1 := x0 + 1
			if x0 < 0 || fx < 0 {
				x0, fx = 0, 0
				x1 = x0 + 1
			}
			if x1 >= g.Cols {
				x1 = g.Cols - 1
			}

			tl := float64(g.Pix[y0*g.Cols+x0])
			tr := float64(g.Pix[y0*g.Cols+x1])
			bl := float64(g.Pix[y1*g.Cols+x0])
			br := float64(g.Pix[y1*g.Cols+x1])

			top := tl + (tr-tl)*fx
			bottom := bl + (br-bl)*fx
			pix[y*targetW+x] = uint8(top + (bottom-top)*fy + 0.5)
		}
	}

	return &Gray{Pix: pix, Rows: targetH, Cols: targetW}
}
