package viewer

import (
	"context"
	"image"
	"math"
	"time"
)

// SecureURLProvider exchanges a resource identifier for a time-limited URL.
type SecureURLProvider interface {
	Fetch(ctx context.Context, resourceID string) (string, error)
}

// ProviderFunc adapts a function to SecureURLProvider.
type ProviderFunc func(ctx context.Context, resourceID string) (string, error)

// Fetch calls f.
func (f ProviderFunc) Fetch(ctx context.Context, resourceID string) (string, error) {
	return f(ctx, resourceID)
}

// DocumentRenderer opens documents by URL.
type DocumentRenderer interface {
	Open(ctx context.Context, url string) (Document, error)
}

// Document is an opened document. The session owns it and closes it on
// teardown.
type Document interface {
	PageCount() int
	// Page returns page n, counting from 1.
	Page(ctx context.Context, n int) (Page, error)
	Close() error
}

// SourceSetter is implemented by documents that re-read their content from
// the network. The session calls SetSource with the URL captured at the
// start of each render, so refreshed credentials reach the renderer.
type SourceSetter interface {
	SetSource(url string)
}

// Page is a single page of an opened document.
type Page interface {
	// Viewport returns the page size at the given scale. Scale 1 is the
	// natural size.
	Viewport(scale float64) Viewport
	Render(ctx context.Context, canvas Canvas, viewport Viewport) error
}

// Viewport is a page size at a scale.
type Viewport struct {
	Width  float64
	Height float64
	Scale  float64
}

// Size returns the viewport in whole pixels.
func (v Viewport) Size() (width, height int) {
	return int(math.Round(v.Width)), int(math.Round(v.Height))
}

// Canvas is the drawing surface a page is rasterized onto.
type Canvas interface {
	Resize(width, height int)
}

// ImageCanvas is a canvas that accepts finished raster images. Renderers
// that produce image.Image values draw through it.
type ImageCanvas interface {
	Canvas
	Draw(img image.Image) error
}

// Controls are the navigation hooks handed to the container once the
// document is loaded. They are safe to call from any goroutine.
type Controls interface {
	Previous()
	Next()
	GoTo(page int)
}

// Container is the UI surface a session owns while mounted. All calls are
// made from the session's loop goroutine.
type Container interface {
	// Width is the container's current client width in pixels.
	Width() int
	ShowLoading()
	// ShowError replaces the content with the terminal error template.
	ShowError(message string)
	// ShowViewer builds the canvas and navigation controls.
	ShowViewer(pageCount int, controls Controls) Canvas
	SetPage(page int)
	ShowPageError(page int, message string)
}

// Host is the runtime window the viewer is mounted in.
type Host interface {
	Hostname() string
	// OnResize subscribes fn to window resizes and returns the function
	// removing the subscription.
	OnResize(fn func()) (remove func())
}

// Scheduler runs a job repeatedly until the returned cancel is called.
type Scheduler interface {
	Every(interval time.Duration, job func()) (cancel func())
}

// StaticHost is a Host with a fixed name and no resize events.
type StaticHost struct {
	Name string
}

// Hostname returns h.Name.
func (h StaticHost) Hostname() string { return h.Name }

// OnResize never calls fn.
func (h StaticHost) OnResize(fn func()) func() { return func() {} }
