package webapp

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// noteFileProvider asks the backend for a note's secure attachment URL
type noteFileProvider struct{}

func (noteFileProvider) Fetch(ctx context.Context, noteID string) (string, error) {
	var body noteFileResponse
	status, err := fetchJSON(ctx, BuildAPIURL("/notes/"+url.PathEscape(noteID)+"/file/"), &body)
	if status == 0 {
		return "", err
	}
	if status < 200 || status > 299 {
		if body.Error != "" {
			return "", errors.New(body.Error)
		}
		return "", errors.New("Server error")
	}
	if err != nil {
		return "", err
	}
	// Relative file URLs live on the API server, not the frontend
	if strings.HasPrefix(body.URL, "/") {
		return BuildAPIURL(body.URL), nil
	}
	return body.URL, nil
}
