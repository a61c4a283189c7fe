// Package img contains routines for loading and manipulating sets of images.
package img

import (
	"image"
	"image/color"
)

// Image is an 8 bit grayscale image stored in row major order.
type Image struct {
	Width  int
	Height int
	Pix    []uint8
}

func NewImage(width, height int) *Image {
	return &Image{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

func (m *Image) ColorModel() color.Model {
	return color.GrayModel
}

func (m *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

func (m *Image) GrayAt(x, y int) color.Gray {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return color.Gray{}
	}
	return color.Gray{Y: m.Pix[y*m.Width+x]}
}

func (m *Image) At(x, y int) color.Color {
	return m.GrayAt(x, y)
}

func (m *Image) Set(x, y int, c color.Color) {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return
	}
	m.Pix[y*m.Width+x] = color.GrayModel.Convert(c).(color.Gray).Y
}

// Unpack writes the normalised pixel values to buf.
func (m *Image) Unpack(buf []float32, mean, stdDev float32) {
	if stdDev == 0 {
		stdDev = 1
	}
	for i, pix := range m.Pix {
		buf[i] = (float32(pix)/255 - mean) / stdDev
	}
}

// Highlight returns an inverted copy of the image, tinted red if on is set.
func Highlight(src *Image, on bool) image.Image {
	dst := image.NewRGBA(src.Bounds())
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			val := 255 - src.Pix[y*src.Width+x]
			c := color.RGBA{R: val, G: val, B: val, A: 255}
			if on {
				c.R = 255
			}
			dst.SetRGBA(x, y, c)
		}
	}
	return dst
}
