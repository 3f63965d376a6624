package pdfrender

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// maxDocumentSize bounds what a single fetch will read
const maxDocumentSize = 256 << 20

// Fetcher retrieves documents by URL. Plain paths and file:// URLs are read
// from disk.
type Fetcher struct {
	HTTPClient *http.Client
}

// NewFetcher creates a fetcher with the same timeout as the service clients
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Get returns the body at rawURL
func (f *Fetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid document URL: %w", err)
	}
	if u.Scheme == "" || u.Scheme == "file" {
		path := rawURL
		if u.Scheme == "file" {
			path = u.Path
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("unable to read document: %w", err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	client := f.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected server response (%d): %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if len(data) > maxDocumentSize {
		return nil, fmt.Errorf("document exceeds %d bytes", maxDocumentSize)
	}
	return data, nil
}
