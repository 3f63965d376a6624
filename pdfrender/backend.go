// Package pdfrender rasterizes PDF pages for the document viewer, either in
// process (go-pdfium or go-fitz) or by asking the server to render pages.
package pdfrender

import (
	"fmt"
	"image"
	"log/slog"
	"math"
	"strings"
)

// Logger is global since we will need it everywhere
var Logger = slog.Default()

// Backend loads PDF bytes into a rasterizer
type Backend interface {
	// Load parses a PDF held in memory
	Load(data []byte) (Source, error)

	// Close cleans up any resources used by the backend
	Close() error
}

// Source is a loaded PDF. Page indexes count from 0.
type Source interface {
	PageCount() int
	// PageSize returns the natural page size in PDF points
	PageSize(index int) (width, height float64, err error)
	// Rasterize renders a page to exactly width x height pixels
	Rasterize(index, width, height int) (image.Image, error)
	Close() error
}

// NewBackend creates the named backend. "pdfium" (pure Go, no CGo) is the
// default; "fitz" uses MuPDF.
func NewBackend(name string) (Backend, error) {
	switch strings.ToLower(name) {
	case "", "pdfium":
		return NewPDFiumBackend()
	case "fitz", "mupdf":
		return NewFitzBackend()
	default:
		return nil, fmt.Errorf("unknown PDF renderer %q", name)
	}
}

// Size is a page size in PDF points
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Info describes a document without its content
type Info struct {
	Pages int    `json:"pages"`
	Sizes []Size `json:"sizes"`
}

// Describe reads the page count and every page size from src
func Describe(src Source) (Info, error) {
	info := Info{Pages: src.PageCount()}
	for i := 0; i < info.Pages; i++ {
		w, h, err := src.PageSize(i)
		if err != nil {
			return Info{}, fmt.Errorf("unable to read size of page %d: %w", i+1, err)
		}
		info.Sizes = append(info.Sizes, Size{Width: w, Height: h})
	}
	return info, nil
}

// PixelsForWidth returns the pixel size of a page scaled to width
func PixelsForWidth(size Size, width int) (int, int) {
	if size.Width <= 0 {
		return width, width
	}
	height := int(size.Height*float64(width)/size.Width + 0.5)
	if height < 1 {
		height = 1
	}
	return width, height
}

// LimitPixels shrinks a w by h raster, keeping its aspect ratio, until it
// holds at most maxPixels pixels and is at most maxHeight tall. Neither side
// drops below 1.
func LimitPixels(w, h, maxPixels, maxHeight int) (int, int) {
	scale := 1.0
	if area := float64(w) * float64(h); area > float64(maxPixels) {
		scale = math.Sqrt(float64(maxPixels) / area)
	}
	if float64(h)*scale > float64(maxHeight) {
		scale = float64(maxHeight) / float64(h)
	}
	if scale == 1 {
		return w, h
	}
	return max(1, int(float64(w)*scale)), max(1, int(float64(h)*scale))
}
