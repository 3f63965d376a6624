package webapp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/drummonds/gonotes/viewer"
	"github.com/maxence-charriere/go-app/v10/pkg/app"
	"github.com/oklog/ulid/v2"
)

type viewerStatus int

const (
	statusLoading viewerStatus = iota
	statusError
	statusReady
)

// DocumentViewer shows a PDF attachment one page at a time. Set URL to load
// a document directly, or NoteID to ask the backend for a signed URL.
type DocumentViewer struct {
	app.Compo
	NoteID string
	URL    string

	id        string
	status    viewerStatus
	message   string
	page      int
	pageCount int
	pageError string
	controls  viewer.Controls
	host      *browserHost
	teardown  func()
}

func (d *DocumentViewer) elementID(suffix string) string {
	if d.id == "" {
		d.id = "viewer-" + ulid.Make().String()
	}
	return d.id + "-" + suffix
}

// OnMount starts a viewer session once the canvas is in the page
func (d *DocumentViewer) OnMount(ctx app.Context) {
	d.mount(ctx)
}

// OnUpdate restarts the session when the parent switches documents
func (d *DocumentViewer) OnUpdate(ctx app.Context) {
	d.OnDismount()
	d.status, d.message, d.pageError = statusLoading, "", ""
	d.page, d.pageCount, d.controls = 0, 0, nil
	d.mount(ctx)
}

// OnDismount tears the session down
func (d *DocumentViewer) OnDismount() {
	if d.teardown != nil {
		d.teardown()
		d.teardown = nil
	}
}

func (d *DocumentViewer) mount(ctx app.Context) {
	// Pre-rendering on the server only shows the loading state
	if !app.IsClient {
		return
	}
	settings := viewerSettings()
	d.host = &browserHost{}
	d.teardown = viewer.Mount(context.Background(), &componentContainer{d: d, ctx: ctx},
		viewer.Locator{URL: d.URL, ResourceID: d.NoteID},
		viewer.Options{
			Provider:           noteFileProvider{},
			Renderer:           pdfjsRenderer{},
			Host:               d.host,
			TrustedHosts:       settings.TrustedHosts,
			RefreshInterval:    settings.RefreshInterval,
			CredentialLifetime: settings.CredentialLifetime,
			Logger:             slog.Default().With("component", "DocumentViewer"),
		})
}

// OnResize forwards browser resizes to the session
func (d *DocumentViewer) OnResize(ctx app.Context) {
	if d.host != nil {
		ctx.Async(d.host.Notify)
	}
}

func (d *DocumentViewer) onPrevious(ctx app.Context, e app.Event) {
	if c := d.controls; c != nil {
		ctx.Async(c.Previous)
	}
}

func (d *DocumentViewer) onNext(ctx app.Context, e app.Event) {
	if c := d.controls; c != nil {
		ctx.Async(c.Next)
	}
}

// Render renders the viewer. The canvas is always present so the session can
// draw into it as soon as the document is ready.
func (d *DocumentViewer) Render() app.UI {
	canvasStyle := "none"
	if d.status == statusReady {
		canvasStyle = "block"
	}

	return app.Div().
		Class("pdf-viewer").
		ID(d.elementID("frame")).
		Body(
			app.If(d.status == statusLoading, func() app.UI {
				return app.Div().Class("loading").Text("Loading PDF...")
			}),
			app.If(d.status == statusError, func() app.UI {
				return app.Div().Class("pdf-error").Text(d.message)
			}),
			app.If(d.status == statusReady, func() app.UI {
				return app.Div().Class("pdf-controls").Body(
					app.Button().
						Class("pdf-prev").
						Disabled(d.page <= 1).
						OnClick(d.onPrevious).
						Text("Previous"),
					app.Span().
						Class("pdf-page-info").
						Text(fmt.Sprintf("Page %d of %d", d.page, d.pageCount)),
					app.Button().
						Class("pdf-next").
						Disabled(d.page >= d.pageCount).
						OnClick(d.onNext).
						Text("Next"),
				)
			}),
			app.If(d.pageError != "", func() app.UI {
				return app.Div().Class("pdf-page-error").Text(d.pageError)
			}),
			app.Canvas().
				Class("pdf-canvas").
				ID(d.elementID("canvas")).
				Style("display", canvasStyle),
		)
}

// componentContainer lets a viewer session drive the component. It is called
// from the session's goroutine, so state changes go through ctx.Dispatch.
type componentContainer struct {
	d   *DocumentViewer
	ctx app.Context
}

func (c *componentContainer) Width() int {
	if el := app.Window().GetElementByID(c.d.elementID("frame")); el.Truthy() {
		if w := el.Get("clientWidth").Int(); w > 0 {
			return w
		}
	}
	w, _ := app.Window().Size()
	return w
}

func (c *componentContainer) ShowLoading() {
	c.ctx.Dispatch(func(ctx app.Context) {
		c.d.status = statusLoading
	})
}

func (c *componentContainer) ShowError(msg string) {
	c.ctx.Dispatch(func(ctx app.Context) {
		c.d.status = statusError
		c.d.message = msg
	})
}

func (c *componentContainer) ShowViewer(pageCount int, controls viewer.Controls) viewer.Canvas {
	c.ctx.Dispatch(func(ctx app.Context) {
		c.d.status = statusReady
		c.d.pageCount = pageCount
		c.d.controls = controls
	})
	return &canvasElement{id: c.d.elementID("canvas")}
}

func (c *componentContainer) SetPage(page int) {
	c.ctx.Dispatch(func(ctx app.Context) {
		c.d.page = page
		c.d.pageError = ""
	})
}

func (c *componentContainer) ShowPageError(page int, msg string) {
	c.ctx.Dispatch(func(ctx app.Context) {
		c.d.pageError = fmt.Sprintf("Page %d could not be displayed: %s", page, msg)
	})
}

// browserHost reports the page's hostname and relays resize events
type browserHost struct {
	viewer.ResizeListeners
}

func (h *browserHost) Hostname() string {
	if !app.IsClient {
		return ""
	}
	return app.Window().URL().Hostname()
}
