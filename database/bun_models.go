package database

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/uptrace/bun"
)

// BunNote represents the notes table for Bun ORM
type BunNote struct {
	bun.BaseModel `bun:"table:notes,alias:n"`

	ID        string    `bun:"id,pk"` // ULID stored as string in DB
	Title     string    `bun:"title,notnull"`
	Path      string    `bun:"path,notnull,unique"`
	Hash      string    `bun:"hash,notnull"`
	Pages     int       `bun:"pages,notnull"`
	Size      int64     `bun:"size,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// ToNote converts BunNote to Note
func (bn *BunNote) ToNote() (*Note, error) {
	id, err := ulid.Parse(bn.ID)
	if err != nil {
		return nil, err
	}
	return &Note{
		ID:        id,
		Title:     bn.Title,
		Path:      bn.Path,
		Hash:      bn.Hash,
		Pages:     bn.Pages,
		Size:      bn.Size,
		CreatedAt: bn.CreatedAt,
		UpdatedAt: bn.UpdatedAt,
	}, nil
}

// FromNote converts Note to BunNote
func FromNote(note *Note) *BunNote {
	return &BunNote{
		ID:        note.ID.String(),
		Title:     note.Title,
		Path:      note.Path,
		Hash:      note.Hash,
		Pages:     note.Pages,
		Size:      note.Size,
		CreatedAt: note.CreatedAt,
		UpdatedAt: note.UpdatedAt,
	}
}

// AppliedMigration records a schema version that has been run
type AppliedMigration struct {
	bun.BaseModel `bun:"table:bun_schema_migrations"`

	Version   string    `bun:"version,pk"`
	AppliedAt time.Time `bun:"applied_at,nullzero,notnull,default:current_timestamp"`
}
