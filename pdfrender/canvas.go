package pdfrender

import (
	"image"
	"image/png"
	"io"
	"sync"

	"github.com/disintegration/imaging"
)

// Canvas is an in-memory drawing surface holding the last rendered page
type Canvas struct {
	mu     sync.Mutex
	width  int
	height int
	img    *image.NRGBA
}

// NewCanvas creates an empty canvas
func NewCanvas() *Canvas {
	return &Canvas{}
}

// Resize sets the size the next drawn image is scaled to
func (c *Canvas) Resize(width, height int) {
	c.mu.Lock()
	c.width, c.height = width, height
	c.mu.Unlock()
}

// Draw replaces the canvas content with img, scaled to the canvas size
func (c *Canvas) Draw(img image.Image) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := img.Bounds()
	if c.width <= 0 || c.height <= 0 {
		c.width, c.height = b.Dx(), b.Dy()
	}
	if b.Dx() == c.width && b.Dy() == c.height {
		c.img = imaging.Clone(img)
	} else {
		c.img = imaging.Resize(img, c.width, c.height, imaging.Lanczos)
	}
	return nil
}

// Image returns the current content, or nil before the first draw
func (c *Canvas) Image() image.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.img == nil {
		return nil
	}
	return c.img
}

// WritePNG encodes the current content
func (c *Canvas) WritePNG(w io.Writer) error {
	img := c.Image()
	if img == nil {
		img = image.NewNRGBA(image.Rect(0, 0, 1, 1))
	}
	return png.Encode(w, img)
}
