// Package viewer is the embedded document viewer: it resolves a document URL
// (directly or through a signed-URL provider), keeps signed URLs fresh, and
// renders one page at a time, collapsing bursts of navigation and resize
// events into a single pending render.
//
// Each mounted session runs its own event loop goroutine. All session state
// is owned by that goroutine; network calls and rasterization run elsewhere
// and post their results back to the loop.
package viewer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
)

type renderState int

const (
	idle renderState = iota
	rendering
)

func (s renderState) String() string {
	if s == rendering {
		return "rendering"
	}
	return "idle"
}

// Mount shows the document named by loc in container and returns the
// teardown function. Teardown is safe to call any number of times, from any
// goroutine. Mount never fails: problems are shown in the container.
func Mount(ctx context.Context, container Container, loc Locator, opts Options) func() {
	s := mount(ctx, container, loc, opts)
	if s == nil {
		return func() {}
	}
	return s.teardown
}

// session is one mounted viewer.
type session struct {
	id        string
	ctx       context.Context
	container Container
	loc       Locator
	opts      Options
	log       *slog.Logger

	// Events waiting for the loop, in arrival order. post never blocks, so
	// collaborators may call Controls from inside their own callbacks.
	queueMu  sync.Mutex
	queue    []func()
	wake     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	renders  sync.WaitGroup

	// Handles released on teardown, guarded by mu. Once torn is set any
	// handle acquired later is released immediately.
	mu            sync.Mutex
	torn          bool
	doc           Document
	cancelRefresh func()
	removeResize  func()

	// Owned by the loop goroutine.
	resourceURL string
	pageCount   int
	currentPage int
	state       renderState
	pending     int // 0 when nothing is pending
	canvas      Canvas
}

func mount(ctx context.Context, container Container, loc Locator, opts Options) *session {
	opts = opts.withDefaults()
	if loc.empty() {
		opts.Logger.Warn("Document viewer mounted without a source")
		container.ShowError(errNoSource.Error())
		return nil
	}

	id := ulid.Make().String()
	s := &session{
		id:        id,
		ctx:       ctx,
		container: container,
		loc:       loc,
		opts:      opts,
		log:       opts.Logger.With("session", id),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	s.log.Info("Mounting document viewer", "url_given", loc.URL != "", "resource_id", loc.ResourceID)
	container.ShowLoading()
	go s.run()
	s.post(s.start)
	return s
}

// run is the session's event loop.
func (s *session) run() {
	defer s.release()
	for {
		select {
		case <-s.wake:
		case <-s.done:
			return
		}
		for {
			fn, ok := s.popEvent()
			if !ok {
				break
			}
			if s.stopped() {
				return
			}
			fn()
		}
	}
}

func (s *session) popEvent() (func(), bool) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	if len(s.queue) == 0 {
		return nil, false
	}
	fn := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	return fn, true
}

// post queues fn for the loop and returns at once, also when called from
// the loop itself. It reports false once the session is torn down.
func (s *session) post(fn func()) bool {
	s.queueMu.Lock()
	if s.stopped() {
		s.queueMu.Unlock()
		return false
	}
	s.queue = append(s.queue, fn)
	s.queueMu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

func (s *session) stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// teardown stops future work. It does not interrupt a render in flight; the
// document is closed once that render returns.
func (s *session) teardown() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.torn = true
		cancel, remove := s.cancelRefresh, s.removeResize
		s.cancelRefresh, s.removeResize = nil, nil
		s.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if remove != nil {
			remove()
		}
		close(s.done)
		s.log.Info("Document viewer torn down")
	})
}

// release closes the document after the last render has returned.
func (s *session) release() {
	s.renders.Wait()
	s.mu.Lock()
	doc := s.doc
	s.doc = nil
	s.mu.Unlock()
	if doc != nil {
		if err := doc.Close(); err != nil {
			s.log.Warn("Unable to close document", "error", err)
		}
	}
}

// hold records a handle, or releases it straight away when the session is
// already torn down.
func (s *session) hold(slot *func(), release func()) {
	s.mu.Lock()
	if s.torn {
		s.mu.Unlock()
		release()
		return
	}
	*slot = release
	s.mu.Unlock()
}

// adopt takes ownership of an opened document. It reports false, having
// closed doc, when the session is already torn down.
func (s *session) adopt(doc Document) bool {
	s.mu.Lock()
	if s.torn {
		s.mu.Unlock()
		doc.Close()
		return false
	}
	s.doc = doc
	s.mu.Unlock()
	return true
}

func (s *session) stopRefresh() {
	s.mu.Lock()
	cancel := s.cancelRefresh
	s.cancelRefresh = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		s.log.Debug("Credential refresh stopped")
	}
}

// fail shows a terminal error. Nothing further happens automatically.
func (s *session) fail(err error) {
	s.log.Error("Document viewer failed", "error", err)
	s.stopRefresh()
	s.container.ShowError("Error loading PDF: " + userMessage(err))
}

// start resolves the URL and opens the document.
func (s *session) start() {
	if s.opts.Renderer == nil {
		s.fail(loadError(s.loc.URL, errNoRenderer))
		return
	}
	if s.loc.URL != "" {
		s.load(s.loc.URL)
		return
	}

	go func() {
		url, err := s.fetchURL()
		s.post(func() {
			if err != nil {
				s.fail(err)
				return
			}
			if s.opts.trusted(s.opts.Host.Hostname()) {
				s.log.Debug("Trusted host, credential refresh disabled", "host", s.opts.Host.Hostname())
			} else {
				s.startRefresh()
			}
			s.load(url)
		})
	}()
}

// load opens url; the document becomes ready on the loop.
func (s *session) load(url string) {
	s.resourceURL = url
	go func() {
		doc, err := s.open(url)
		if err == nil && !s.adopt(doc) {
			return
		}
		s.post(func() {
			if err != nil {
				s.fail(err)
				return
			}
			s.ready(doc)
		})
	}()
}

func (s *session) ready(doc Document) {
	s.pageCount = doc.PageCount()
	if s.pageCount < 1 {
		s.fail(loadError(s.resourceURL, errNoPages))
		return
	}
	s.currentPage = 1
	s.log.Info("Document loaded", "pages", s.pageCount)

	s.canvas = s.container.ShowViewer(s.pageCount, controls{s})
	remove := s.opts.Host.OnResize(func() { s.post(s.resize) })
	s.hold(&s.removeResize, remove)
	s.requestRender(s.currentPage)
}

func (s *session) fetchURL() (url string, err error) {
	id := s.loc.ResourceID
	if s.opts.Provider == nil {
		return "", accessError(id, errNoProvider)
	}
	defer func() {
		if r := recover(); r != nil {
			err = accessError(id, fmt.Errorf("provider panic: %v", r))
		}
	}()
	url, err = s.opts.Provider.Fetch(s.ctx, id)
	if err != nil {
		return "", accessError(id, err)
	}
	if url == "" {
		return "", accessError(id, errEmptyURL)
	}
	return url, nil
}

func (s *session) open(url string) (doc Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = loadError(url, fmt.Errorf("renderer panic: %v", r))
		}
	}()
	doc, err = s.opts.Renderer.Open(s.ctx, url)
	if err != nil {
		return nil, loadError(url, err)
	}
	return doc, nil
}

// controls forwards navigation from the container to the loop.
type controls struct {
	s *session
}

func (c controls) Previous()     { c.s.post(c.s.previous) }
func (c controls) Next()         { c.s.post(c.s.next) }
func (c controls) GoTo(page int) { c.s.post(func() { c.s.goTo(page) }) }
