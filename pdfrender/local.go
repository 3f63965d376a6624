package pdfrender

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/drummonds/gonotes/viewer"
)

var errNotImageCanvas = errors.New("canvas cannot draw raster images")

// LocalRenderer downloads a whole document and rasterizes it in process
type LocalRenderer struct {
	Backend Backend
	Fetcher *Fetcher
}

// NewLocalRenderer creates a renderer on top of backend
func NewLocalRenderer(backend Backend) *LocalRenderer {
	return &LocalRenderer{Backend: backend, Fetcher: NewFetcher()}
}

// Open implements viewer.DocumentRenderer
func (r *LocalRenderer) Open(ctx context.Context, url string) (viewer.Document, error) {
	data, err := r.Fetcher.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	src, err := r.Backend.Load(data)
	if err != nil {
		return nil, err
	}
	info, err := Describe(src)
	if err != nil {
		src.Close()
		return nil, err
	}
	Logger.Debug("Opened document", "pages", info.Pages)
	return &localDocument{src: src, info: info}, nil
}

type localDocument struct {
	src  Source
	info Info
}

func (d *localDocument) PageCount() int { return d.info.Pages }

func (d *localDocument) Page(ctx context.Context, n int) (viewer.Page, error) {
	if n < 1 || n > d.info.Pages {
		return nil, fmt.Errorf("page %d out of range (document has %d)", n, d.info.Pages)
	}
	return &rasterPage{
		size: d.info.Sizes[n-1],
		raster: func(ctx context.Context, width, height int) (image.Image, error) {
			return d.src.Rasterize(n-1, width, height)
		},
	}, nil
}

func (d *localDocument) Close() error {
	return d.src.Close()
}

// rasterPage is a page whose pixels come from a raster function
type rasterPage struct {
	size   Size
	raster func(ctx context.Context, width, height int) (image.Image, error)
}

func (p *rasterPage) Viewport(scale float64) viewer.Viewport {
	return viewer.Viewport{
		Width:  p.size.Width * scale,
		Height: p.size.Height * scale,
		Scale:  scale,
	}
}

func (p *rasterPage) Render(ctx context.Context, canvas viewer.Canvas, viewport viewer.Viewport) error {
	target, ok := canvas.(viewer.ImageCanvas)
	if !ok {
		return errNotImageCanvas
	}
	width, height := viewport.Size()
	if width < 1 || height < 1 {
		return fmt.Errorf("viewport %dx%d is empty", width, height)
	}
	img, err := p.raster(ctx, width, height)
	if err != nil {
		return err
	}
	return target.Draw(img)
}
