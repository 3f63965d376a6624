package webapp

import (
	"context"
	"errors"
	"fmt"

	"github.com/drummonds/gonotes/viewer"
	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// pdf.js build loaded by the page
const (
	pdfjsScript = "https://cdnjs.cloudflare.com/ajax/libs/pdf.js/3.11.174/pdf.min.js"
	pdfjsWorker = "https://cdnjs.cloudflare.com/ajax/libs/pdf.js/3.11.174/pdf.worker.min.js"
)

var errNoPDFJS = errors.New("PDF library is not loaded")

// pdfjsRenderer opens documents with the browser's pdf.js
type pdfjsRenderer struct{}

func (pdfjsRenderer) Open(ctx context.Context, url string) (viewer.Document, error) {
	lib := app.Window().Get("pdfjsLib")
	if !lib.Truthy() {
		return nil, errNoPDFJS
	}
	if opts := lib.Get("GlobalWorkerOptions"); opts.Truthy() && !opts.Get("workerSrc").Truthy() {
		opts.Set("workerSrc", pdfjsWorker)
	}
	task := lib.Call("getDocument", url)
	doc, err := await(ctx, task.Get("promise"))
	if err != nil {
		task.Call("destroy")
		return nil, err
	}
	return &pdfjsDocument{task: task, doc: doc}, nil
}

type pdfjsDocument struct {
	task app.Value
	doc  app.Value
}

func (d *pdfjsDocument) PageCount() int {
	return d.doc.Get("numPages").Int()
}

func (d *pdfjsDocument) Page(ctx context.Context, n int) (viewer.Page, error) {
	page, err := await(ctx, d.doc.Call("getPage", n))
	if err != nil {
		return nil, err
	}
	return &pdfjsPage{page: page}, nil
}

func (d *pdfjsDocument) Close() error {
	d.task.Call("destroy")
	return nil
}

type pdfjsPage struct {
	page app.Value
}

func (p *pdfjsPage) viewport(scale float64) app.Value {
	return p.page.Call("getViewport", map[string]any{"scale": scale})
}

func (p *pdfjsPage) Viewport(scale float64) viewer.Viewport {
	vp := p.viewport(scale)
	return viewer.Viewport{
		Width:  vp.Get("width").Float(),
		Height: vp.Get("height").Float(),
		Scale:  scale,
	}
}

func (p *pdfjsPage) Render(ctx context.Context, canvas viewer.Canvas, viewport viewer.Viewport) error {
	target, ok := canvas.(*canvasElement)
	if !ok {
		return fmt.Errorf("pdf.js cannot draw on %T", canvas)
	}
	el := target.element()
	if !el.Truthy() {
		return errors.New("canvas is not in the page")
	}
	task := p.page.Call("render", map[string]any{
		"canvasContext": el.Call("getContext", "2d"),
		"viewport":      p.viewport(viewport.Scale),
	})
	_, err := await(ctx, task.Get("promise"))
	return err
}

// canvasElement is a <canvas> looked up by id when needed, since the
// component may re-render it
type canvasElement struct {
	id string
}

func (c *canvasElement) element() app.Value {
	return app.Window().GetElementByID(c.id)
}

func (c *canvasElement) Resize(width, height int) {
	el := c.element()
	if !el.Truthy() {
		return
	}
	el.Set("width", width)
	el.Set("height", height)
}
