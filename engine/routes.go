package engine

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/drummonds/gonotes/internal/build"
	"github.com/drummonds/gonotes/pdfrender"
	"github.com/labstack/echo/v4"
)

const (
	defaultPageWidth = 800
	maxPageWidth     = 4096
	// Tall pages are scaled down further so one request cannot ask for an
	// unbounded raster
	maxPageHeight = 4 * maxPageWidth
	maxPagePixels = maxPageWidth * maxPageWidth
)

// NoteFileResponse is the body of the secure URL endpoint
type NoteFileResponse struct {
	URL       string `json:"url,omitempty"`
	ExpiresAt string `json:"expiresAt,omitempty"`
	Error     string `json:"error,omitempty"`
}

// RegisterRoutes adds every backend route to the echo instance
func (serverHandler *ServerHandler) RegisterRoutes() {
	e := serverHandler.Echo

	e.GET("/notes/:id/file/", serverHandler.GetNoteFileURL)

	files := e.Group("/files/:id")
	files.GET("", serverHandler.ServeNoteFile)
	files.GET("/info", serverHandler.GetNoteFileInfo)
	files.GET("/pages/:page", serverHandler.GetNoteFilePage)

	api := e.Group("/api")
	api.GET("/notes", serverHandler.ListNotes)
	api.GET("/notes/:id/file", serverHandler.GetNoteFileURL)
	api.GET("/about", serverHandler.GetAboutInfo)
	api.GET("/health", serverHandler.Health)
}

func jsonError(c echo.Context, status int, err error) error {
	return c.JSON(status, NoteFileResponse{Error: err.Error()})
}

// statusFor maps lookup failures onto HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, errInvalidNoteID):
		return http.StatusBadRequest
	case errors.Is(err, errNoteNotFound):
		return http.StatusNotFound
	case errors.Is(err, errAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, errNoAttachment):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errPageOutOfRange):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// GetNoteFileURL issues a short-lived URL for a note's PDF attachment
// @Summary Get a secure URL for a note attachment
// @Description Returns a signed URL valid for the configured lifetime. Debug servers return an unsigned URL.
// @Tags Notes
// @Produce json
// @Param id path string true "Note ULID"
// @Success 200 {object} NoteFileResponse
// @Failure 400 {object} NoteFileResponse "Invalid note ID"
// @Failure 404 {object} NoteFileResponse "Note not found"
// @Failure 422 {object} NoteFileResponse "Attachment is not a readable PDF"
// @Router /notes/{id}/file/ [get]
func (serverHandler *ServerHandler) GetNoteFileURL(c echo.Context) error {
	noteID := c.Param("id")
	path, err := serverHandler.notePath(noteID)
	if err != nil {
		Logger.Info("Secure URL requested for unknown note", "note", noteID, "error", err)
		return jsonError(c, statusFor(err), err)
	}
	facts, err := probeDocument(path)
	if err != nil {
		Logger.Warn("Attachment failed validation", "note", noteID, "error", err)
		return jsonError(c, statusFor(err), errNoAttachment)
	}
	serverHandler.registerNote(noteID, path, facts)

	if serverHandler.ServerConfig.Debug {
		return c.JSON(http.StatusOK, NoteFileResponse{URL: serverHandler.fileURL(noteID, "")})
	}
	token, expires, err := serverHandler.Signer.Sign(noteID)
	if err != nil {
		Logger.Error("Unable to sign file URL", "note", noteID, "error", err)
		return jsonError(c, http.StatusInternalServerError, errors.New("Unable to issue file URL"))
	}
	Logger.Debug("Issued file URL", "note", noteID, "expires", expires)
	return c.JSON(http.StatusOK, NoteFileResponse{
		URL:       serverHandler.fileURL(noteID, token),
		ExpiresAt: expires.UTC().Format("2006-01-02T15:04:05Z"),
	})
}

// authorizedPath checks the request token and resolves the attachment
func (serverHandler *ServerHandler) authorizedPath(c echo.Context) (string, string, error) {
	noteID := c.Param("id")
	if err := serverHandler.authorize(noteID, c.QueryParam("token")); err != nil {
		return noteID, "", err
	}
	path, err := serverHandler.notePath(noteID)
	return noteID, path, err
}

// ServeNoteFile streams the attachment inline
// @Summary Download a note attachment
// @Tags Files
// @Produce application/pdf
// @Param id path string true "Note ULID"
// @Param token query string false "Signed access token"
// @Success 200 {file} file
// @Failure 403 {object} NoteFileResponse "Token missing, expired or for another note"
// @Router /files/{id} [get]
func (serverHandler *ServerHandler) ServeNoteFile(c echo.Context) error {
	noteID, path, err := serverHandler.authorizedPath(c)
	if err != nil {
		return jsonError(c, statusFor(err), err)
	}
	c.Response().Header().Set("Cache-Control", "private, no-store")
	return c.Inline(path, noteID+".pdf")
}

// GetNoteFileInfo describes the attachment's pages
// @Summary Describe a note attachment
// @Tags Files
// @Produce json
// @Param id path string true "Note ULID"
// @Param token query string false "Signed access token"
// @Success 200 {object} pdfrender.Info
// @Router /files/{id}/info [get]
func (serverHandler *ServerHandler) GetNoteFileInfo(c echo.Context) error {
	noteID, path, err := serverHandler.authorizedPath(c)
	if err != nil {
		return jsonError(c, statusFor(err), err)
	}
	doc, release, err := serverHandler.cache.acquire(noteID, path)
	if err != nil {
		Logger.Error("Unable to load attachment", "note", noteID, "error", err)
		return jsonError(c, http.StatusInternalServerError, err)
	}
	defer release()
	return c.JSON(http.StatusOK, doc.info)
}

// GetNoteFilePage renders one page of the attachment as PNG
// @Summary Render a page of a note attachment
// @Tags Files
// @Produce image/png
// @Param id path string true "Note ULID"
// @Param page path int true "Page number, starting at 1"
// @Param width query int false "Width in pixels (default 800)"
// @Param token query string false "Signed access token"
// @Success 200 {file} file
// @Router /files/{id}/pages/{page} [get]
func (serverHandler *ServerHandler) GetNoteFilePage(c echo.Context) error {
	noteID, path, err := serverHandler.authorizedPath(c)
	if err != nil {
		return jsonError(c, statusFor(err), err)
	}
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil {
		return jsonError(c, http.StatusBadRequest, errors.New("Invalid page number"))
	}
	width := defaultPageWidth
	if w := c.QueryParam("width"); w != "" {
		width, err = strconv.Atoi(w)
		if err != nil || width < 1 {
			return jsonError(c, http.StatusBadRequest, errors.New("Invalid width"))
		}
		width = min(width, maxPageWidth)
	}

	doc, release, err := serverHandler.cache.acquire(noteID, path)
	if err != nil {
		Logger.Error("Unable to load attachment", "note", noteID, "error", err)
		return jsonError(c, http.StatusInternalServerError, err)
	}
	defer release()
	if page < 1 || page > doc.info.Pages {
		return jsonError(c, statusFor(errPageOutOfRange), errPageOutOfRange)
	}

	w, h := pdfrender.PixelsForWidth(doc.info.Sizes[page-1], width)
	w, h = pdfrender.LimitPixels(w, h, maxPagePixels, maxPageHeight)
	img, err := doc.src.Rasterize(page-1, w, h)
	if err != nil {
		Logger.Error("Unable to render page", "note", noteID, "page", page, "error", err)
		return jsonError(c, http.StatusInternalServerError, err)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return jsonError(c, http.StatusInternalServerError, err)
	}
	c.Response().Header().Set("Cache-Control", "private, no-store")
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

// GetAboutInfo returns information about the application
// @Summary Get application information
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]interface{} "Application information"
// @Router /api/about [get]
func (serverHandler *ServerHandler) GetAboutInfo(c echo.Context) error {
	aboutInfo := map[string]interface{}{
		"version":         build.Version,
		"renderer":        serverHandler.ServerConfig.Renderer,
		"serverRendering": serverHandler.Backend != nil,
		"documentPath":    serverHandler.ServerConfig.DocumentPath,
		"urlLifetime":     serverHandler.ServerConfig.URLLifetime.String(),
		"refreshInterval": serverHandler.ServerConfig.RefreshInterval.String(),
		"debug":           serverHandler.ServerConfig.Debug,
		"cachedDocuments": serverHandler.cache.len(),
		"database":        serverHandler.databaseType(),
		"notes":           serverHandler.noteCount(),
	}
	return c.JSON(http.StatusOK, aboutInfo)
}

// Health reports that the server is up
// @Summary Health check
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/health [get]
func (serverHandler *ServerHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
