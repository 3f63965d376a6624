// Command pdfview drives a viewer session from the terminal. Each rendered
// page is written to a PNG file, and stdin takes navigation commands:
//
//	n          next page
//	p          previous page
//	g <page>   go to page
//	w <width>  resize the container
//	q          quit
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/drummonds/gonotes/engine"
	"github.com/drummonds/gonotes/pdfrender"
	"github.com/drummonds/gonotes/viewer"
)

func main() {
	server := flag.String("server", "http://localhost:8000", "Backend API URL")
	noteID := flag.String("note", "", "Note ID to view")
	directURL := flag.String("url", "", "Document URL or path, used instead of -note")
	output := flag.String("out", "page.png", "PNG file written after every render")
	renderer := flag.String("renderer", "remote", "Renderer: remote, pdfium or fitz")
	width := flag.Int("width", 840, "Initial container width in pixels")
	refresh := flag.Duration("refresh", viewer.DefaultRefreshInterval, "Signed URL refresh interval")
	lifetime := flag.Duration("lifetime", viewer.DefaultCredentialLifetime, "Signed URL lifetime, matching the server's URL_LIFETIME")
	debug := flag.Bool("debug", false, "Log session events")
	flag.Parse()

	level := slog.LevelWarn
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	pdfrender.Logger = logger

	if *noteID == "" && *directURL == "" {
		fmt.Fprintln(os.Stderr, "pdfview: either -note or -url is required")
		flag.Usage()
		os.Exit(2)
	}

	docRenderer, closeRenderer, err := newRenderer(*renderer)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pdfview:", err)
		os.Exit(1)
	}
	defer closeRenderer()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	term := newTerminal(os.Stdout, *output, *width)
	host := newCLIHost(hostname(*server))
	teardown := viewer.Mount(ctx, term, viewer.Locator{URL: *directURL, ResourceID: *noteID}, viewer.Options{
		Provider:           engine.NewNoteFileClient(*server),
		Renderer:           docRenderer,
		Host:               host,
		RefreshInterval:    *refresh,
		CredentialLifetime: *lifetime,
		Logger:             logger,
	})
	defer teardown()

	commands := make(chan string)
	go readCommands(os.Stdin, commands)
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-commands:
			if !ok || !term.dispatch(line, host) {
				return
			}
		}
	}
}

func newRenderer(name string) (viewer.DocumentRenderer, func(), error) {
	if name == "remote" {
		return pdfrender.NewRemoteRenderer(), func() {}, nil
	}
	backend, err := pdfrender.NewBackend(name)
	if err != nil {
		return nil, nil, err
	}
	return pdfrender.NewLocalRenderer(backend), func() { backend.Close() }, nil
}

// hostname decides whether signed URLs are refreshed, exactly as the
// browser does for its own window.
func hostname(server string) string {
	u, err := url.Parse(server)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func readCommands(r io.Reader, out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		out <- strings.TrimSpace(scanner.Text())
	}
}

// terminal is the container: it prints the session state and saves pages
type terminal struct {
	out    io.Writer
	output string

	mu       sync.Mutex
	width    int
	controls viewer.Controls
}

func newTerminal(out io.Writer, output string, width int) *terminal {
	return &terminal{out: out, output: output, width: width}
}

func (t *terminal) Width() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.width
}

func (t *terminal) ShowLoading() {
	fmt.Fprintln(t.out, "Loading PDF...")
}

func (t *terminal) ShowError(message string) {
	fmt.Fprintln(t.out, message)
}

func (t *terminal) ShowViewer(pageCount int, controls viewer.Controls) viewer.Canvas {
	t.mu.Lock()
	t.controls = controls
	t.mu.Unlock()
	fmt.Fprintf(t.out, "Document has %d pages\n", pageCount)
	return &fileCanvas{Canvas: pdfrender.NewCanvas(), path: t.output, out: t.out}
}

func (t *terminal) SetPage(page int) {
	fmt.Fprintf(t.out, "Page %d\n", page)
}

func (t *terminal) ShowPageError(page int, message string) {
	fmt.Fprintf(t.out, "Page %d: %s\n", page, message)
}

// dispatch runs one command line and reports whether to keep reading
func (t *terminal) dispatch(line string, host *cliHost) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	t.mu.Lock()
	controls := t.controls
	t.mu.Unlock()

	switch fields[0] {
	case "q", "quit":
		return false
	case "n", "next":
		if controls != nil {
			controls.Next()
		}
	case "p", "prev":
		if controls != nil {
			controls.Previous()
		}
	case "g", "goto":
		if n, ok := argument(fields); ok && controls != nil {
			controls.GoTo(n)
		}
	case "w", "width":
		if n, ok := argument(fields); ok && n > 0 {
			t.mu.Lock()
			t.width = n
			t.mu.Unlock()
			host.Notify()
		}
	default:
		fmt.Fprintf(t.out, "unknown command %q\n", fields[0])
	}
	return true
}

func argument(fields []string) (int, bool) {
	if len(fields) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(fields[1])
	return n, err == nil
}

// fileCanvas saves every drawn page
type fileCanvas struct {
	*pdfrender.Canvas
	path string
	out  io.Writer
}

func (c *fileCanvas) Draw(img image.Image) error {
	if err := c.Canvas.Draw(img); err != nil {
		return err
	}
	f, err := os.Create(c.path)
	if err != nil {
		return err
	}
	if err := c.WritePNG(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	b := c.Image().Bounds()
	fmt.Fprintf(c.out, "Wrote %s (%dx%d) at %s\n", c.path, b.Dx(), b.Dy(), time.Now().Format(time.TimeOnly))
	return nil
}

// cliHost delivers width commands as resize events
type cliHost struct {
	viewer.ResizeListeners
	name string
}

func newCLIHost(name string) *cliHost {
	return &cliHost{name: name}
}

func (h *cliHost) Hostname() string { return h.name }
