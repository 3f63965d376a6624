// Package database keeps the note registry: which attachment belongs to
// which note, and what the server learned about it when it was registered.
package database

import (
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrNoteNotFound is returned when no note has the requested id
var ErrNoteNotFound = errors.New("note not found")

// Note is a registered note attachment
type Note struct {
	ID        ulid.ULID
	Title     string
	Path      string // full path to the attachment
	Hash      string
	Pages     int
	Size      int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Logger is global since we will need it everywhere
var Logger = slog.Default()

// Repository defines database operations
type Repository interface {
	Close() error
	SaveNote(note *Note) error
	GetNote(id ulid.ULID) (*Note, error)
	GetNewestNotes(limit int) ([]Note, error)
	DeleteNote(id ulid.ULID) error
	CountNotes() (int, error)
}

// NewNote describes the attachment at path, hashing its content
func NewNote(id ulid.ULID, path, title string, pages int) (*Note, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	hash, err := calculateHash(path)
	if err != nil {
		return nil, err
	}
	return &Note{
		ID:    id,
		Title: title,
		Path:  path,
		Hash:  hash,
		Pages: pages,
		Size:  info.Size(),
	}, nil
}

// calculateHash returns the md5 of the file content
func calculateHash(fileName string) (string, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}
