package pdfrender

import (
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
)

// FitzBackend implements PDF rendering using go-fitz (requires MuPDF)
type FitzBackend struct {
}

// NewFitzBackend creates a new Fitz-based PDF backend
func NewFitzBackend() (*FitzBackend, error) {
	return &FitzBackend{}, nil
}

// Load opens a PDF document held in memory using go-fitz
func (b *FitzBackend) Load(data []byte) (Source, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}
	return &fitzSource{doc: doc}, nil
}

// Close cleans up resources (no-op for Fitz as documents are closed individually)
func (b *FitzBackend) Close() error {
	return nil
}

type fitzSource struct {
	mu  sync.Mutex
	doc *fitz.Document
}

func (s *fitzSource) PageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.NumPage()
}

func (s *fitzSource) PageSize(index int) (float64, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bounds, err := s.doc.Bound(index)
	if err != nil {
		return 0, 0, fmt.Errorf("unable to get page size: %w", err)
	}
	return float64(bounds.Dx()), float64(bounds.Dy()), nil
}

// Rasterize renders at the DPI that gives the requested width, then scales to
// the exact size since MuPDF rounds page dimensions
func (s *fitzSource) Rasterize(index, width, height int) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bounds, err := s.doc.Bound(index)
	if err != nil {
		return nil, fmt.Errorf("unable to render page %d: %w", index+1, err)
	}
	dpi := 72.0
	if bounds.Dx() > 0 {
		dpi = 72.0 * float64(width) / float64(bounds.Dx())
	}
	img, err := s.doc.ImageDPI(index, dpi)
	if err != nil {
		return nil, fmt.Errorf("unable to render page %d: %w", index+1, err)
	}
	if b := img.Bounds(); b.Dx() == width && b.Dy() == height {
		return img, nil
	}
	return imaging.Resize(img, width, height, imaging.Lanczos), nil
}

func (s *fitzSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Close()
}
