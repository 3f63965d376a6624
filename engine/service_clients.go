package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// NoteFileClient asks a backend for secure attachment URLs. It satisfies
// viewer.SecureURLProvider.
type NoteFileClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewNoteFileClient creates a client for the backend at baseURL
func NewNoteFileClient(baseURL string) *NoteFileClient {
	return &NoteFileClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Fetch returns the URL the backend issued for noteID. Failures carry the
// backend's error message, or "Server error" when it gave none.
func (nc *NoteFileClient) Fetch(ctx context.Context, noteID string) (string, error) {
	endpoint := fmt.Sprintf("%s/notes/%s/file/", nc.BaseURL, url.PathEscape(noteID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := nc.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call note service: %w", err)
	}
	defer resp.Body.Close()

	var body NoteFileResponse
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("failed to read note service response: %w", err)
	}
	decodeErr := json.Unmarshal(data, &body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decodeErr == nil && body.Error != "" {
			return "", errors.New(body.Error)
		}
		return "", errors.New("Server error")
	}
	if decodeErr != nil {
		return "", fmt.Errorf("failed to decode note service response: %w", decodeErr)
	}
	return nc.resolve(body.URL)
}

// resolve turns a relative file URL into one the caller can fetch directly
func (nc *NoteFileClient) resolve(fileURL string) (string, error) {
	if fileURL == "" {
		return "", nil
	}
	base, err := url.Parse(nc.BaseURL + "/")
	if err != nil {
		return "", fmt.Errorf("invalid service URL: %w", err)
	}
	ref, err := url.Parse(fileURL)
	if err != nil {
		return "", fmt.Errorf("invalid file URL from note service: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}
