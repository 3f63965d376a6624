package viewer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

const waitTimeout = 2 * time.Second

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recv waits for a value on ch or fails the test.
func recv[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for %s", what)
	}
	var zero T
	return zero
}

// none fails the test if ch delivers a value within a short grace period.
func none[T any](t *testing.T, ch <-chan T, what string) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected %s: %v", what, v)
	case <-time.After(50 * time.Millisecond):
	}
}

// flush returns once every event posted before it has been handled.
func flush(t *testing.T, s *session) {
	t.Helper()
	done := make(chan struct{})
	if !s.post(func() { close(done) }) {
		t.Fatal("session already torn down")
	}
	recv(t, done, "flush")
}

// waitIdle waits until no render is in flight and nothing is pending.
func waitIdle(t *testing.T, s *session) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		var st renderState
		var pending int
		flushed := make(chan struct{})
		s.post(func() {
			st, pending = s.state, s.pending
			close(flushed)
		})
		<-flushed
		if st == idle && pending == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for the session to go idle")
}

type pageError struct {
	page    int
	message string
}

type fakeContainer struct {
	mu         sync.Mutex
	width      int
	loading    int
	pages      []int
	pageCount  int
	canvas     *fakeCanvas
	errors     chan string
	pageErrors chan pageError
	viewer     chan Controls

	// onShow runs inside ShowViewer, on the session loop.
	onShow func(pageCount int, controls Controls)
}

func newFakeContainer(width int) *fakeContainer {
	return &fakeContainer{
		width:      width,
		canvas:     &fakeCanvas{},
		errors:     make(chan string, 10),
		pageErrors: make(chan pageError, 10),
		viewer:     make(chan Controls, 1),
	}
}

func (c *fakeContainer) Width() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width
}

func (c *fakeContainer) setWidth(w int) {
	c.mu.Lock()
	c.width = w
	c.mu.Unlock()
}

func (c *fakeContainer) ShowLoading() {
	c.mu.Lock()
	c.loading++
	c.mu.Unlock()
}

func (c *fakeContainer) ShowError(message string) { c.errors <- message }

func (c *fakeContainer) ShowViewer(pageCount int, controls Controls) Canvas {
	c.mu.Lock()
	c.pageCount = pageCount
	onShow := c.onShow
	c.mu.Unlock()
	if onShow != nil {
		onShow(pageCount, controls)
	}
	c.viewer <- controls
	return c.canvas
}

func (c *fakeContainer) SetPage(page int) {
	c.mu.Lock()
	c.pages = append(c.pages, page)
	c.mu.Unlock()
}

func (c *fakeContainer) ShowPageError(page int, message string) {
	c.pageErrors <- pageError{page, message}
}

func (c *fakeContainer) shownPages() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.pages...)
}

type fakeCanvas struct {
	mu     sync.Mutex
	width  int
	height int
}

func (c *fakeCanvas) Resize(w, h int) {
	c.mu.Lock()
	c.width, c.height = w, h
	c.mu.Unlock()
}

func (c *fakeCanvas) size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

// fakeDoc renders pages of a fixed size. When gated, every render blocks
// until the test sends its result on release.
type fakeDoc struct {
	pages   int
	width   float64
	height  float64
	gated   bool
	release chan error
	started chan int
	closed  chan struct{}

	mu        sync.Mutex
	rendered  []int
	sources   []string
	viewports []Viewport
	closeOnce sync.Once
}

func newFakeDoc(pages int) *fakeDoc {
	return &fakeDoc{
		pages:   pages,
		width:   1000,
		height:  1250,
		release: make(chan error),
		started: make(chan int, 100),
		closed:  make(chan struct{}),
	}
}

func (d *fakeDoc) PageCount() int { return d.pages }

func (d *fakeDoc) Page(ctx context.Context, n int) (Page, error) {
	if n < 1 || n > d.pages {
		return nil, errors.New("no such page")
	}
	return &fakePage{doc: d, n: n}, nil
}

func (d *fakeDoc) Close() error {
	d.closeOnce.Do(func() { close(d.closed) })
	return nil
}

func (d *fakeDoc) SetSource(url string) {
	d.mu.Lock()
	d.sources = append(d.sources, url)
	d.mu.Unlock()
}

func (d *fakeDoc) renderCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rendered)
}

func (d *fakeDoc) lastSource() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sources) == 0 {
		return ""
	}
	return d.sources[len(d.sources)-1]
}

type fakePage struct {
	doc *fakeDoc
	n   int
}

func (p *fakePage) Viewport(scale float64) Viewport {
	return Viewport{Width: p.doc.width * scale, Height: p.doc.height * scale, Scale: scale}
}

func (p *fakePage) Render(ctx context.Context, canvas Canvas, vp Viewport) error {
	d := p.doc
	d.mu.Lock()
	d.rendered = append(d.rendered, p.n)
	d.viewports = append(d.viewports, vp)
	d.mu.Unlock()
	d.started <- p.n
	if d.gated {
		return <-d.release
	}
	return nil
}

type fakeRenderer struct {
	doc *fakeDoc
	err error

	mu    sync.Mutex
	opens []string
}

func (r *fakeRenderer) Open(ctx context.Context, url string) (Document, error) {
	r.mu.Lock()
	r.opens = append(r.opens, url)
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return r.doc, nil
}

func (r *fakeRenderer) openCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.opens)
}

func (r *fakeRenderer) openedURLs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.opens...)
}

// fakeProvider returns urls in order, repeating the last one. A non-nil
// entry in errs fails the call with the same index.
type fakeProvider struct {
	mu    sync.Mutex
	urls  []string
	errs  map[int]error
	calls int
}

func (p *fakeProvider) Fetch(ctx context.Context, id string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.calls
	p.calls++
	if err := p.errs[i]; err != nil {
		return "", err
	}
	if i >= len(p.urls) {
		i = len(p.urls) - 1
	}
	return p.urls[i], nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeHost struct {
	name string
	// eager fires a new listener before OnResize returns.
	eager bool

	mu     sync.Mutex
	nextID int
	subs   map[int]func()
}

func newFakeHost(name string) *fakeHost {
	return &fakeHost{name: name, subs: map[int]func(){}}
}

func (h *fakeHost) Hostname() string { return h.name }

func (h *fakeHost) OnResize(fn func()) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	h.mu.Unlock()
	if h.eager {
		fn()
	}
	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

func (h *fakeHost) active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *fakeHost) resize() {
	h.mu.Lock()
	var fns []func()
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// fakeScheduler records jobs; the test fires them with tick.
type fakeScheduler struct {
	mu        sync.Mutex
	intervals []time.Duration
	jobs      map[int]func()
	nextID    int
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{jobs: map[int]func(){}}
}

func (s *fakeScheduler) Every(interval time.Duration, job func()) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.intervals = append(s.intervals, interval)
	s.jobs[id] = job
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.jobs, id)
		s.mu.Unlock()
	}
}

func (s *fakeScheduler) started() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.intervals)
}

func (s *fakeScheduler) startedIntervals() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.intervals...)
}

func (s *fakeScheduler) active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *fakeScheduler) tick() {
	s.mu.Lock()
	var jobs []func()
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	s.mu.Unlock()
	for _, job := range jobs {
		job()
	}
}

// harness bundles one session with its fakes.
type harness struct {
	container *fakeContainer
	doc       *fakeDoc
	renderer  *fakeRenderer
	provider  *fakeProvider
	host      *fakeHost
	scheduler *fakeScheduler
	opts      Options
}

func newHarness(hostname string) *harness {
	doc := newFakeDoc(3)
	h := &harness{
		container: newFakeContainer(840),
		doc:       doc,
		renderer:  &fakeRenderer{doc: doc},
		provider:  &fakeProvider{urls: []string{"https://files.example.com/a.pdf?token=1"}},
		host:      newFakeHost(hostname),
		scheduler: newFakeScheduler(),
	}
	h.opts = Options{
		Provider:  h.provider,
		Renderer:  h.renderer,
		Host:      h.host,
		Scheduler: h.scheduler,
		Logger:    testLogger(),
	}
	return h
}

func (h *harness) mount(t *testing.T, loc Locator) *session {
	t.Helper()
	s := mount(context.Background(), h.container, loc, h.opts)
	if s != nil {
		t.Cleanup(s.teardown)
	}
	return s
}
