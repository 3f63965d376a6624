package viewer

import (
	"fmt"
)

// requestRender starts rendering page, or, while another render is in
// flight, remembers it as the pending page. Only the newest pending page
// survives.
func (s *session) requestRender(page int) {
	if s.state == rendering {
		if s.pending != 0 && s.pending != page {
			s.log.Debug("Dropping superseded render", "page", s.pending)
		}
		s.pending = page
		return
	}
	s.render(page)
}

func (s *session) render(page int) {
	s.state = rendering
	s.container.SetPage(page)

	width := s.container.Width() - s.opts.Padding
	if width < 1 {
		width = 1
	}
	url := s.resourceURL
	doc, canvas := s.doc, s.canvas

	s.renders.Add(1)
	go func() {
		err := s.rasterize(doc, canvas, page, width, url)
		s.renders.Done()
		s.post(func() { s.rendered(page, err) })
	}()
}

// rendered runs on the loop when a rasterization finishes, successfully or
// not, and starts the pending page if there is one.
func (s *session) rendered(page int, err error) {
	s.state = idle
	if err != nil {
		s.log.Warn("Page render failed", "page", page, "error", err)
		s.container.ShowPageError(page, userMessage(err))
	} else {
		s.log.Debug("Page rendered", "page", page)
	}
	if s.pending != 0 {
		next := s.pending
		s.pending = 0
		s.requestRender(next)
	}
}

// rasterize fits page to width and draws it. It runs off the loop and only
// touches the document and canvas, which no other render uses at the same
// time.
func (s *session) rasterize(doc Document, canvas Canvas, page, width int, url string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = renderError(page, fmt.Errorf("renderer panic: %v", r))
		}
	}()
	if src, ok := doc.(SourceSetter); ok {
		src.SetSource(url)
	}
	p, err := doc.Page(s.ctx, page)
	if err != nil {
		return renderError(page, err)
	}
	viewport := FitWidth(p, width)
	canvas.Resize(viewport.Size())
	if err := p.Render(s.ctx, canvas, viewport); err != nil {
		return renderError(page, err)
	}
	return nil
}

// FitWidth scales p so that its width equals width pixels. The height
// follows proportionally.
func FitWidth(p Page, width int) Viewport {
	natural := p.Viewport(1)
	if natural.Width <= 0 {
		return natural
	}
	return p.Viewport(float64(width) / natural.Width)
}

func (s *session) loaded() bool {
	return s.pageCount > 0
}

func (s *session) previous() {
	if !s.loaded() || s.currentPage <= 1 {
		return
	}
	s.currentPage--
	s.requestRender(s.currentPage)
}

func (s *session) next() {
	if !s.loaded() || s.currentPage >= s.pageCount {
		return
	}
	s.currentPage++
	s.requestRender(s.currentPage)
}

func (s *session) goTo(page int) {
	if !s.loaded() || page < 1 || page > s.pageCount || page == s.currentPage {
		return
	}
	s.currentPage = page
	s.requestRender(page)
}

// resize re-renders the current page at the new width. While a render is in
// flight the current page is queued unless something is already pending;
// the pending render reads the new width anyway.
func (s *session) resize() {
	if !s.loaded() {
		return
	}
	if s.state == idle {
		s.requestRender(s.currentPage)
		return
	}
	if s.pending == 0 {
		s.pending = s.currentPage
	}
}
