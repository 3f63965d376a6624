package pdfrender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/drummonds/gonotes/viewer"
)

// RemoteRenderer lets the server rasterize pages. Open reads the document
// description from <url>/info and every page is fetched as a PNG from
// <url>/pages/<n>?width=<w>. The signed URL's query string is carried along,
// and documents follow SetSource, so each page uses the freshest credential.
type RemoteRenderer struct {
	Fetcher *Fetcher
}

// NewRemoteRenderer creates a renderer that asks the server for pages
func NewRemoteRenderer() *RemoteRenderer {
	return &RemoteRenderer{Fetcher: NewFetcher()}
}

// Open implements viewer.DocumentRenderer
func (r *RemoteRenderer) Open(ctx context.Context, rawURL string) (viewer.Document, error) {
	infoURL, err := Subresource(rawURL, "/info", nil)
	if err != nil {
		return nil, err
	}
	body, err := r.Fetcher.Get(ctx, infoURL)
	if err != nil {
		return nil, err
	}
	var info Info
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("invalid document description: %w", err)
	}
	if len(info.Sizes) != info.Pages {
		return nil, fmt.Errorf("document description lists %d sizes for %d pages", len(info.Sizes), info.Pages)
	}
	return &remoteDocument{fetcher: r.Fetcher, info: info, source: rawURL}, nil
}

type remoteDocument struct {
	fetcher *Fetcher
	info    Info

	mu     sync.Mutex
	source string
}

// SetSource implements viewer.SourceSetter
func (d *remoteDocument) SetSource(url string) {
	d.mu.Lock()
	d.source = url
	d.mu.Unlock()
}

func (d *remoteDocument) PageCount() int { return d.info.Pages }

func (d *remoteDocument) Page(ctx context.Context, n int) (viewer.Page, error) {
	if n < 1 || n > d.info.Pages {
		return nil, fmt.Errorf("page %d out of range (document has %d)", n, d.info.Pages)
	}
	d.mu.Lock()
	source := d.source
	d.mu.Unlock()

	return &rasterPage{
		size: d.info.Sizes[n-1],
		raster: func(ctx context.Context, width, height int) (image.Image, error) {
			pageURL, err := Subresource(source, "/pages/"+strconv.Itoa(n), url.Values{
				"width": {strconv.Itoa(width)},
			})
			if err != nil {
				return nil, err
			}
			body, err := d.fetcher.Get(ctx, pageURL)
			if err != nil {
				return nil, err
			}
			img, err := png.Decode(bytes.NewReader(body))
			if err != nil {
				return nil, fmt.Errorf("invalid page image: %w", err)
			}
			return img, nil
		},
	}, nil
}

func (d *remoteDocument) Close() error { return nil }

// Subresource appends suffix to the path of rawURL, keeping its query string
// and adding extra parameters.
func Subresource(rawURL, suffix string, extra url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid document URL: %w", err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + suffix
	u.RawPath = ""
	if len(extra) > 0 {
		q := u.Query()
		for k, v := range extra {
			q[k] = v
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
