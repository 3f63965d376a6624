// Package engine is the backend for note attachments: it issues signed file
// URLs, serves the files they point at and renders pages server-side.
package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/drummonds/gonotes/config"
	"github.com/drummonds/gonotes/database"
	"github.com/drummonds/gonotes/pdfrender"
	"github.com/labstack/echo/v4"
	"github.com/ledongthuc/pdf"
	"github.com/oklog/ulid/v2"
)

var (
	errNoteNotFound   = errors.New("Note not found")
	errNoAttachment   = errors.New("Note has no readable PDF attachment")
	errInvalidNoteID  = errors.New("Invalid note ID")
	errAccessDenied   = errors.New("Access to this file has expired or is not permitted")
	errPageOutOfRange = errors.New("Page out of range")
)

// ServerHandler will inject the variables needed into routes
type ServerHandler struct {
	Echo         *echo.Echo
	ServerConfig config.ServerConfig
	Signer       *Signer
	Backend      pdfrender.Backend
	// DB is the note registry. Without one, attachments are found by file
	// name alone.
	DB    database.Repository
	cache *documentCache
}

// NewServerHandler wires a handler for serverConfig. The backend may be nil,
// in which case server-side page rendering is unavailable.
func NewServerHandler(e *echo.Echo, serverConfig config.ServerConfig, backend pdfrender.Backend) *ServerHandler {
	return &ServerHandler{
		Echo:         e,
		ServerConfig: serverConfig,
		Signer:       NewSigner(serverConfig.SigningKey, serverConfig.URLLifetime),
		Backend:      backend,
		cache:        newDocumentCache(backend),
	}
}

// notePath maps a note id to its attachment. Ids are ULIDs so they can never
// name anything outside the document directory.
func (serverHandler *ServerHandler) notePath(noteID string) (string, error) {
	id, err := ulid.ParseStrict(noteID)
	if err != nil {
		return "", errInvalidNoteID
	}
	path, ok := serverHandler.registeredPath(id)
	if !ok {
		path = filepath.Join(serverHandler.ServerConfig.DocumentPath, id.String()+".pdf")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", errNoteNotFound
		}
		return "", fmt.Errorf("unable to stat attachment: %w", err)
	}
	return path, nil
}

// attachmentFacts is what probing learns about an attachment
type attachmentFacts struct {
	Pages int
	Title string
}

// probeDocument checks that the attachment parses as a PDF with pages
func probeDocument(path string) (facts attachmentFacts, err error) {
	// The parser panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered while probing attachment", "path", path, "panic", r)
			facts, err = attachmentFacts{}, errNoAttachment
		}
	}()
	file, reader, err := pdf.Open(path)
	if err != nil {
		return facts, fmt.Errorf("%w: %v", errNoAttachment, err)
	}
	defer file.Close()
	facts.Pages = reader.NumPage()
	if facts.Pages < 1 {
		return attachmentFacts{}, errNoAttachment
	}
	facts.Title = strings.TrimSpace(reader.Trailer().Key("Info").Key("Title").Text())
	return facts, nil
}

// fileURL builds the URL a viewer loads the attachment from
func (serverHandler *ServerHandler) fileURL(noteID, token string) string {
	base := strings.TrimSuffix(serverHandler.ServerConfig.BaseURL, "/")
	url := base + "/files/" + noteID
	if token != "" {
		url += "?token=" + token
	}
	return url
}

// authorize checks the token on a file request. Debug servers accept
// unsigned requests.
func (serverHandler *ServerHandler) authorize(noteID, token string) error {
	if token == "" && serverHandler.ServerConfig.Debug {
		return nil
	}
	if err := serverHandler.Signer.Verify(token, noteID); err != nil {
		Logger.Info("Rejected file request", "note", noteID, "reason", err)
		return errAccessDenied
	}
	return nil
}
