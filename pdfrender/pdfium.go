package pdfrender

import (
	"fmt"
	"image"
	"image/draw"
	"sync"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
)

// PDFiumBackend implements PDF rendering using go-pdfium with WebAssembly (pure Go, no CGo)
type PDFiumBackend struct {
	pool     pdfium.Pool
	instance pdfium.Pdfium
	// A single WebAssembly instance is not safe for concurrent use
	mu sync.Mutex
}

// NewPDFiumBackend creates a new PDFium-based backend using WebAssembly
func NewPDFiumBackend() (*PDFiumBackend, error) {
	// For single-threaded usage, we keep it simple
	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1, // Minimum idle workers
		MaxIdle:  1, // Maximum idle workers
		MaxTotal: 1, // Total worker limit
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PDFium WebAssembly: %w", err)
	}

	instance, err := pool.GetInstance(time.Second * 30)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to get PDFium instance: %w", err)
	}

	return &PDFiumBackend{
		pool:     pool,
		instance: instance,
	}, nil
}

// Load opens a PDF document held in memory
func (b *PDFiumBackend) Load(data []byte) (Source, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.instance == nil {
		return nil, fmt.Errorf("PDFium backend is closed")
	}

	doc, err := b.instance.OpenDocument(&requests.OpenDocument{
		File: &data,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}

	pageCountResp, err := b.instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{
		Document: doc.Document,
	})
	if err != nil {
		b.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.Document})
		return nil, fmt.Errorf("unable to get page count: %w", err)
	}

	return &pdfiumSource{backend: b, doc: doc.Document, pages: pageCountResp.PageCount}, nil
}

// Close cleans up resources used by the PDFium backend
func (b *PDFiumBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pool != nil {
		b.pool.Close()
		b.pool = nil
	}
	b.instance = nil
	return nil
}

type pdfiumSource struct {
	backend *PDFiumBackend
	doc     references.FPDF_DOCUMENT
	pages   int
	closed  bool
}

func (s *pdfiumSource) page(index int) requests.Page {
	return requests.Page{
		ByIndex: &requests.PageByIndex{
			Document: s.doc,
			Index:    index,
		},
	}
}

func (s *pdfiumSource) PageCount() int { return s.pages }

func (s *pdfiumSource) PageSize(index int) (float64, float64, error) {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	if err := s.usable(index); err != nil {
		return 0, 0, err
	}
	size, err := s.backend.instance.GetPageSize(&requests.GetPageSize{Page: s.page(index)})
	if err != nil {
		return 0, 0, fmt.Errorf("unable to get page size: %w", err)
	}
	return size.Width, size.Height, nil
}

func (s *pdfiumSource) Rasterize(index, width, height int) (image.Image, error) {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	if err := s.usable(index); err != nil {
		return nil, err
	}
	pageRender, err := s.backend.instance.RenderPageInPixels(&requests.RenderPageInPixels{
		Page:   s.page(index),
		Width:  width,
		Height: height,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to render page %d: %w", index+1, err)
	}
	// The result lives in WebAssembly memory until Cleanup, so copy it out first
	src := pageRender.Result.Image
	img := image.NewRGBA(image.Rect(0, 0, src.Bounds().Dx(), src.Bounds().Dy()))
	draw.Draw(img, img.Bounds(), src, src.Bounds().Min, draw.Src)
	pageRender.Cleanup()
	return img, nil
}

func (s *pdfiumSource) usable(index int) error {
	if s.closed || s.backend.instance == nil {
		return fmt.Errorf("document is closed")
	}
	if index < 0 || index >= s.pages {
		return fmt.Errorf("page %d out of range (document has %d)", index+1, s.pages)
	}
	return nil
}

func (s *pdfiumSource) Close() error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	if s.closed || s.backend.instance == nil {
		return nil
	}
	s.closed = true
	_, err := s.backend.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{
		Document: s.doc,
	})
	return err
}
