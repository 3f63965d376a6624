package engine

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/drummonds/gonotes/config"
	"github.com/drummonds/gonotes/database"
	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
)

const (
	defaultNoteListLimit = 20
	maxNoteListLimit     = 200
)

// NoteSummary is one entry of the note listing
type NoteSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	Pages     int       `json:"pages"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// OpenRegistry opens the configured note registry. It returns nil when the
// server runs without one.
func OpenRegistry(serverConfig config.ServerConfig) (database.Repository, error) {
	switch serverConfig.DatabaseType {
	case "", "none":
		Logger.Info("No note registry configured, attachments are found by file name")
		return nil, nil
	}
	db, err := database.NewRepository(serverConfig)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// registeredPath returns the attachment path the registry holds for id
func (serverHandler *ServerHandler) registeredPath(id ulid.ULID) (string, bool) {
	if serverHandler.DB == nil {
		return "", false
	}
	note, err := serverHandler.DB.GetNote(id)
	if err != nil {
		if !errors.Is(err, database.ErrNoteNotFound) {
			Logger.Error("Note registry lookup failed", "note", id, "error", err)
		}
		return "", false
	}
	return note.Path, true
}

// registerNote records a validated attachment. Failures only cost the
// listing, so they are logged and otherwise ignored.
func (serverHandler *ServerHandler) registerNote(noteID, path string, facts attachmentFacts) {
	if serverHandler.DB == nil {
		return
	}
	id, err := ulid.ParseStrict(noteID)
	if err != nil {
		return
	}
	note, err := database.NewNote(id, path, facts.Title, facts.Pages)
	if err != nil {
		Logger.Warn("Unable to describe attachment", "note", noteID, "error", err)
		return
	}
	if existing, err := serverHandler.DB.GetNote(id); err == nil && existing.Hash == note.Hash && existing.Path == note.Path {
		return
	}
	if err := serverHandler.DB.SaveNote(note); err != nil {
		Logger.Error("Unable to register note", "note", noteID, "error", err)
		return
	}
	Logger.Debug("Registered note", "note", noteID, "pages", facts.Pages)
}

func (serverHandler *ServerHandler) databaseType() string {
	if serverHandler.DB == nil {
		return "none"
	}
	return serverHandler.ServerConfig.DatabaseType
}

func (serverHandler *ServerHandler) noteCount() int {
	if serverHandler.DB == nil {
		return 0
	}
	count, err := serverHandler.DB.CountNotes()
	if err != nil {
		Logger.Error("Unable to count notes", "error", err)
		return 0
	}
	return count
}

// ListNotes returns the most recently registered notes
// @Summary List registered notes
// @Description Newest first. Empty when the server runs without a note registry.
// @Tags Notes
// @Produce json
// @Param limit query int false "Maximum number of notes (default 20)"
// @Success 200 {array} NoteSummary
// @Router /api/notes [get]
func (serverHandler *ServerHandler) ListNotes(c echo.Context) error {
	limit := defaultNoteListLimit
	if l := c.QueryParam("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			return jsonError(c, http.StatusBadRequest, errors.New("Invalid limit"))
		}
		limit = min(n, maxNoteListLimit)
	}

	summaries := []NoteSummary{}
	if serverHandler.DB == nil {
		return c.JSON(http.StatusOK, summaries)
	}
	notes, err := serverHandler.DB.GetNewestNotes(limit)
	if err != nil {
		Logger.Error("Unable to list notes", "error", err)
		return jsonError(c, http.StatusInternalServerError, errors.New("Unable to list notes"))
	}
	for _, note := range notes {
		summaries = append(summaries, NoteSummary{
			ID:        note.ID.String(),
			Title:     note.Title,
			Pages:     note.Pages,
			Size:      note.Size,
			CreatedAt: note.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, summaries)
}
