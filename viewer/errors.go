package viewer

import (
	"errors"
	"fmt"
)

var (
	errNoSource   = errors.New("No PDF URL or note ID provided")
	errNoProvider = errors.New("no secure URL provider configured")
	errNoRenderer = errors.New("no document renderer configured")
	errEmptyURL   = errors.New("Could not load the secure PDF URL")
	errNoPages    = errors.New("document has no pages")
)

// AccessError reports that a secure URL could not be obtained for a resource,
// either on first resolution or on a credential refresh.
type AccessError struct {
	ResourceID string
	Err        error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("secure url for %q: %v", e.ResourceID, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

// LoadError reports that the document at a resolved URL could not be opened.
type LoadError struct {
	URL string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("open document: %v", e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// RenderError reports that a single page failed to rasterize.
type RenderError struct {
	Page int
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render page %d: %v", e.Page, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

func accessError(id string, err error) error {
	var ae *AccessError
	if errors.As(err, &ae) {
		return err
	}
	return &AccessError{ResourceID: id, Err: err}
}

func loadError(url string, err error) error {
	var le *LoadError
	if errors.As(err, &le) {
		return err
	}
	return &LoadError{URL: url, Err: err}
}

func renderError(page int, err error) error {
	var re *RenderError
	if errors.As(err, &re) {
		return err
	}
	return &RenderError{Page: page, Err: err}
}

// userMessage is the text shown to the user: the underlying cause, without
// the session's own wrapping.
func userMessage(err error) string {
	var (
		ae *AccessError
		le *LoadError
		re *RenderError
	)
	switch {
	case errors.As(err, &ae):
		return ae.Err.Error()
	case errors.As(err, &le):
		return le.Err.Error()
	case errors.As(err, &re):
		return re.Err.Error()
	}
	return err.Error()
}
