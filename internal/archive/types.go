// Package archive keeps generated stories so a proposal can be replayed later.
package archive

import (
	"context"
	"errors"
	"time"

	"github.com/ent0n29/amora/internal/story"
)

// ErrNotFound is returned when no story is stored under an id.
var ErrNotFound = errors.New("story not found")

// StoryRecord is one generated story and the answers that produced it.
// ID is story.Answers.Key(), so the same answers always land on one row.
type StoryRecord struct {
	ID        string        `json:"id"`
	Answers   story.Answers `json:"answers"`
	Story     string        `json:"story"`
	Provider  string        `json:"provider,omitempty"`
	Model     string        `json:"model,omitempty"`
	Fallback  bool          `json:"fallback"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Store persists story records. Save is an upsert keyed by ID.
type Store interface {
	Save(ctx context.Context, record StoryRecord) error
	Get(ctx context.Context, id string) (StoryRecord, error)
	Recent(ctx context.Context, limit int) ([]StoryRecord, error)
	Close() error
}

func prepare(record StoryRecord, now time.Time) StoryRecord {
	record.Answers = record.Answers.Normalize()
	if record.ID == "" {
		record.ID = record.Answers.Key()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	return record
}
