package engine

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/drummonds/gonotes/pdfrender"
	"golang.org/x/sync/singleflight"
)

var errCacheClosed = errors.New("attachment cache is closed")

// cachedDocument is a parsed attachment shared by page requests
type cachedDocument struct {
	src      pdfrender.Source
	info     pdfrender.Info
	refs     int
	lastUsed time.Time
}

// documentCache keeps recently viewed attachments parsed, so paging through a
// note does not reload the file for every page. Files are read and parsed
// outside mu; concurrent requests for the same note share one load.
type documentCache struct {
	backend pdfrender.Backend
	now     func() time.Time
	loads   singleflight.Group

	mu     sync.Mutex
	docs   map[string]*cachedDocument
	closed bool
	// released is signalled whenever a reference is dropped after close
	released *sync.Cond
}

func newDocumentCache(backend pdfrender.Backend) *documentCache {
	c := &documentCache{
		backend: backend,
		now:     time.Now,
		docs:    make(map[string]*cachedDocument),
	}
	c.released = sync.NewCond(&c.mu)
	return c
}

// acquire returns the parsed document at path. The caller must call the
// returned release function when done with it.
func (c *documentCache) acquire(noteID, path string) (*cachedDocument, func(), error) {
	if c.backend == nil {
		return nil, nil, fmt.Errorf("server-side rendering is not available")
	}
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, nil, errCacheClosed
		}
		if doc, ok := c.docs[noteID]; ok {
			doc.refs++
			doc.lastUsed = c.now()
			c.mu.Unlock()
			return doc, c.releaser(doc), nil
		}
		c.mu.Unlock()

		// The loaded document is in docs now, unless a sweep already took it
		// again, in which case the next pass loads it afresh.
		if _, err, _ := c.loads.Do(noteID, func() (any, error) {
			return nil, c.load(noteID, path)
		}); err != nil {
			return nil, nil, err
		}
	}
}

// load parses path and stores it under noteID
func (c *documentCache) load(noteID, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to read attachment: %w", err)
	}
	src, err := c.backend.Load(data)
	if err != nil {
		return err
	}
	info, err := pdfrender.Describe(src)
	if err != nil {
		src.Close()
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		src.Close()
		return errCacheClosed
	}
	c.docs[noteID] = &cachedDocument{src: src, info: info, lastUsed: c.now()}
	Logger.Debug("Cached attachment", "note", noteID, "pages", info.Pages)
	return nil
}

func (c *documentCache) releaser(doc *cachedDocument) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			doc.refs--
			doc.lastUsed = c.now()
			if c.closed {
				c.released.Broadcast()
			}
			c.mu.Unlock()
		})
	}
}

// evictIdle closes documents nobody has used for maxIdle
func (c *documentCache) evictIdle(maxIdle time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := c.now().Add(-maxIdle)
	evicted := 0
	for id, doc := range c.docs {
		if doc.refs > 0 || doc.lastUsed.After(cutoff) {
			continue
		}
		if err := doc.src.Close(); err != nil {
			Logger.Warn("Failed to close cached attachment", "note", id, "error", err)
		}
		delete(c.docs, id)
		evicted++
	}
	return evicted
}

// close refuses further requests and closes every cached document, waiting
// for page requests still holding one to release it
func (c *documentCache) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for {
		for id, doc := range c.docs {
			if doc.refs > 0 {
				continue
			}
			if err := doc.src.Close(); err != nil {
				Logger.Warn("Failed to close cached attachment", "note", id, "error", err)
			}
			delete(c.docs, id)
		}
		if len(c.docs) == 0 {
			return
		}
		c.released.Wait()
	}
}

func (c *documentCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs)
}
