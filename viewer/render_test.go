package viewer

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestScaleFitsContainerWidth(t *testing.T) {
	tests := []struct {
		name      string
		width     int
		padding   int
		pageW     float64
		pageH     float64
		wantW     int
		wantH     int
		wantScale float64
	}{
		{name: "default padding", width: 840, padding: 0, pageW: 1000, pageH: 1250, wantW: 800, wantH: 1000, wantScale: 0.8},
		{name: "no padding", width: 800, padding: -1, pageW: 1000, pageH: 1250, wantW: 800, wantH: 1000, wantScale: 0.8},
		{name: "landscape", width: 640, padding: -1, pageW: 842, pageH: 595, wantW: 640, wantH: 452, wantScale: 640.0 / 842},
		{name: "upscale", width: 1240, padding: 0, pageW: 600, pageH: 800, wantW: 1200, wantH: 1600, wantScale: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness("localhost")
			h.container.width = tt.width
			h.opts.Padding = tt.padding
			h.doc.width, h.doc.height = tt.pageW, tt.pageH
			s := h.mount(t, Locator{URL: "https://cdn.example.com/book.pdf"})

			recv(t, h.doc.started, "render")
			waitIdle(t, s)

			w, hgt := h.container.canvas.size()
			if w != tt.wantW || hgt != tt.wantH {
				t.Errorf("canvas = %dx%d, want %dx%d", w, hgt, tt.wantW, tt.wantH)
			}
			vp := h.doc.viewports[0]
			if diff := vp.Scale - tt.wantScale; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("scale = %v, want %v", vp.Scale, tt.wantScale)
			}
		})
	}
}

func TestFitWidthIgnoresZeroWidthPages(t *testing.T) {
	doc := newFakeDoc(1)
	doc.width, doc.height = 0, 100
	vp := FitWidth(&fakePage{doc: doc, n: 1}, 500)
	if vp.Scale != 1 {
		t.Errorf("scale = %v, want the natural viewport", vp.Scale)
	}
}

func TestNavigationBounds(t *testing.T) {
	h := newHarness("localhost")
	h.doc.gated = true
	s := h.mount(t, Locator{URL: "https://cdn.example.com/book.pdf"})

	controls := recv(t, h.container.viewer, "viewer")
	recv(t, h.doc.started, "page 1")
	h.doc.release <- nil
	waitIdle(t, s)

	controls.Previous()
	flush(t, s)
	none(t, h.doc.started, "render on previous from page 1")

	for _, want := range []int{2, 3} {
		controls.Next()
		if p := recv(t, h.doc.started, "next page"); p != want {
			t.Fatalf("rendered page %d, want %d", p, want)
		}
		h.doc.release <- nil
		waitIdle(t, s)
	}

	controls.Next()
	flush(t, s)
	none(t, h.doc.started, "render on next from the last page")

	if diff := cmp.Diff([]int{1, 2, 3}, h.container.shownPages()); diff != "" {
		t.Errorf("shown pages (-want +got):\n%s", diff)
	}
	if n := h.doc.renderCount(); n != 3 {
		t.Errorf("rasterizations = %d, want 3", n)
	}
}

func TestRapidNavigationCoalesces(t *testing.T) {
	h := newHarness("localhost")
	h.doc.pages = 10
	h.doc.gated = true
	s := h.mount(t, Locator{URL: "https://cdn.example.com/book.pdf"})

	controls := recv(t, h.container.viewer, "viewer")
	recv(t, h.doc.started, "page 1")

	for i := 0; i < 4; i++ {
		controls.Next()
	}
	flush(t, s)
	none(t, h.doc.started, "overlapping render")

	h.doc.release <- nil
	if p := recv(t, h.doc.started, "pending page"); p != 5 {
		t.Fatalf("pending render = page %d, want 5", p)
	}
	h.doc.release <- nil
	waitIdle(t, s)

	if diff := cmp.Diff([]int{1, 5}, h.doc.rendered); diff != "" {
		t.Errorf("rendered pages (-want +got):\n%s", diff)
	}
}

// TestCoalescingProperty drives random bursts of navigation faster than
// rendering completes and checks the final page and the render count.
func TestCoalescingProperty(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		pages := 1 + rng.Intn(8)
		h := newHarness("localhost")
		h.doc.pages = pages
		h.doc.gated = true
		s := h.mount(t, Locator{URL: "https://cdn.example.com/book.pdf"})

		controls := recv(t, h.container.viewer, "viewer")
		recv(t, h.doc.started, "page 1")

		want, requests := 1, 0
		for i := 0; i < 5+rng.Intn(20); i++ {
			if rng.Intn(2) == 0 {
				controls.Next()
				if want < pages {
					want++
				}
			} else {
				controls.Previous()
				if want > 1 {
					want--
				}
			}
			requests++
		}
		flush(t, s)

		h.doc.release <- nil
		for {
			var p int
			select {
			case p = <-h.doc.started:
			case <-time.After(50 * time.Millisecond):
			}
			if p == 0 {
				break
			}
			h.doc.release <- nil
		}
		waitIdle(t, s)

		shown := h.container.shownPages()
		if last := shown[len(shown)-1]; last != want {
			t.Errorf("seed %d: final page %d, want %d", seed, last, want)
		}
		if n := h.doc.renderCount(); n > requests+1 {
			t.Errorf("seed %d: %d rasterizations for %d requests", seed, n, requests+1)
		}
		if n := h.doc.renderCount(); n > 2 {
			t.Errorf("seed %d: %d rasterizations, want at most the in-flight and the newest", seed, n)
		}
		s.teardown()
	}
}

func TestGoTo(t *testing.T) {
	h := newHarness("localhost")
	h.doc.pages = 8
	s := h.mount(t, Locator{URL: "https://cdn.example.com/book.pdf"})

	controls := recv(t, h.container.viewer, "viewer")
	recv(t, h.doc.started, "page 1")
	waitIdle(t, s)

	for _, page := range []int{0, 9, 1} {
		controls.GoTo(page)
	}
	flush(t, s)
	none(t, h.doc.started, "render for an invalid or current page")

	controls.GoTo(6)
	if p := recv(t, h.doc.started, "page 6"); p != 6 {
		t.Errorf("rendered page %d, want 6", p)
	}
}

func TestControlsFromShowViewer(t *testing.T) {
	h := newHarness("localhost")
	h.doc.pages = 7
	h.container.onShow = func(pageCount int, controls Controls) {
		controls.GoTo(pageCount)
	}
	s := h.mount(t, Locator{URL: "https://cdn.example.com/book.pdf"})

	recv(t, h.container.viewer, "viewer")
	waitIdle(t, s)

	pages := h.container.shownPages()
	if len(pages) == 0 || pages[len(pages)-1] != 7 {
		t.Errorf("shown pages = %v, want to end on 7", pages)
	}
	h.doc.mu.Lock()
	rendered := append([]int(nil), h.doc.rendered...)
	h.doc.mu.Unlock()
	if len(rendered) == 0 || rendered[len(rendered)-1] != 7 {
		t.Errorf("rendered pages = %v, want to end on 7", rendered)
	}
}

func TestResizeFromInsideSubscription(t *testing.T) {
	h := newHarness("localhost")
	h.host.eager = true
	s := h.mount(t, Locator{URL: "https://cdn.example.com/book.pdf"})

	controls := recv(t, h.container.viewer, "viewer")
	waitIdle(t, s)
	for n := h.doc.renderCount(); n > 0; n-- {
		if p := recv(t, h.doc.started, "first page"); p != 1 {
			t.Fatalf("rendered page %d before navigating, want 1", p)
		}
	}

	controls.Next()
	if p := recv(t, h.doc.started, "page 2"); p != 2 {
		t.Errorf("rendered page %d, want 2", p)
	}
}

func TestRenderErrorIsPageScoped(t *testing.T) {
	h := newHarness("localhost")
	h.doc.gated = true
	s := h.mount(t, Locator{URL: "https://cdn.example.com/book.pdf"})

	controls := recv(t, h.container.viewer, "viewer")
	recv(t, h.doc.started, "page 1")
	h.doc.release <- nil
	waitIdle(t, s)

	controls.Next()
	recv(t, h.doc.started, "page 2")
	h.doc.release <- errors.New("broken content stream")

	pe := recv(t, h.container.pageErrors, "page error")
	if pe.page != 2 || !strings.Contains(pe.message, "broken content stream") {
		t.Errorf("page error = %+v", pe)
	}
	select {
	case msg := <-h.container.errors:
		t.Fatalf("page failure became a terminal error: %q", msg)
	default:
	}

	controls.Next()
	if p := recv(t, h.doc.started, "page 3"); p != 3 {
		t.Errorf("rendered page %d after a failed page, want 3", p)
	}
	h.doc.release <- nil
}

func TestResizeRerendersCurrentPage(t *testing.T) {
	h := newHarness("localhost")
	h.doc.gated = true
	s := h.mount(t, Locator{URL: "https://cdn.example.com/book.pdf"})

	recv(t, h.container.viewer, "viewer")
	recv(t, h.doc.started, "page 1")
	h.doc.release <- nil
	waitIdle(t, s)

	h.container.setWidth(540)
	h.host.resize()
	if p := recv(t, h.doc.started, "re-render"); p != 1 {
		t.Fatalf("resize rendered page %d, want 1", p)
	}
	if w, _ := h.container.canvas.size(); w != 500 {
		t.Errorf("canvas width after resize = %d, want 500", w)
	}

	// Resizing twice mid-render queues one re-render, not two.
	h.container.setWidth(440)
	h.host.resize()
	h.host.resize()
	flush(t, s)
	h.doc.release <- nil
	if p := recv(t, h.doc.started, "queued re-render"); p != 1 {
		t.Fatalf("queued resize rendered page %d, want 1", p)
	}
	h.doc.release <- nil
	waitIdle(t, s)
	none(t, h.doc.started, "extra render")

	if w, _ := h.container.canvas.size(); w != 400 {
		t.Errorf("canvas width after second resize = %d, want 400", w)
	}
	if n := h.doc.renderCount(); n != 3 {
		t.Errorf("rasterizations = %d, want 3", n)
	}
}

func TestResizeBeforeLoadIsIgnored(t *testing.T) {
	h := newHarness("localhost")
	h.renderer.err = errors.New("not a PDF")
	s := mount(t.Context(), h.container, Locator{URL: "https://cdn.example.com/x"}, h.opts)
	t.Cleanup(s.teardown)

	s.post(s.resize)
	recv(t, h.container.errors, "error")
	if n := h.doc.renderCount(); n != 0 {
		t.Errorf("rasterizations = %d, want 0", n)
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{RefreshInterval: 5 * time.Minute, CredentialLifetime: 5 * time.Minute, Logger: testLogger()}.withDefaults()
	if o.RefreshInterval != DefaultRefreshInterval || o.CredentialLifetime != DefaultCredentialLifetime {
		t.Errorf("refresh %v / lifetime %v, want the defaults", o.RefreshInterval, o.CredentialLifetime)
	}
	if o.RefreshInterval >= o.CredentialLifetime {
		t.Error("refresh interval must stay below the credential lifetime")
	}
	if o.Padding != DefaultPadding {
		t.Errorf("padding = %d, want %d", o.Padding, DefaultPadding)
	}

	o = Options{RefreshInterval: 50 * time.Second, CredentialLifetime: time.Minute, Logger: testLogger()}.withDefaults()
	if o.RefreshInterval != 50*time.Second {
		t.Errorf("valid refresh interval replaced with %v", o.RefreshInterval)
	}
	if !o.trusted("LocalHost") || o.trusted("notes.example.com") {
		t.Error("trusted host matching is wrong")
	}
}

func TestErrorTypes(t *testing.T) {
	cause := errors.New("Access denied")
	err := accessError("n1", cause)
	var ae *AccessError
	if !errors.As(err, &ae) || ae.ResourceID != "n1" || !errors.Is(err, cause) {
		t.Errorf("access error not unwrappable: %v", err)
	}
	if again := accessError("n1", err); again != err {
		t.Error("access error wrapped twice")
	}
	if got := userMessage(err); got != "Access denied" {
		t.Errorf("user message = %q", got)
	}

	var le *LoadError
	if !errors.As(loadError("u", cause), &le) {
		t.Error("load error not found")
	}
	var re *RenderError
	if !errors.As(renderError(4, cause), &re) || re.Page != 4 {
		t.Error("render error not found")
	}
	if got := renderError(4, cause).Error(); got != "render page 4: Access denied" {
		t.Errorf("render error text = %q", got)
	}
}
