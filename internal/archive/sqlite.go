package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists stories in an embedded sqlite file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS stories (
		id TEXT PRIMARY KEY,
		answers TEXT NOT NULL,
		language TEXT NOT NULL,
		story TEXT NOT NULL,
		provider TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		fallback INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, record StoryRecord) error {
	record = prepare(record, time.Now().UTC())
	answers, err := json.Marshal(record.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO stories (id, answers, language, story, provider, model, fallback, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			story = excluded.story,
			provider = excluded.provider,
			model = excluded.model,
			fallback = excluded.fallback,
			updated_at = excluded.updated_at`,
		record.ID,
		string(answers),
		string(record.Answers.Language),
		record.Story,
		record.Provider,
		record.Model,
		record.Fallback,
		record.CreatedAt.UnixNano(),
		record.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("save story: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (StoryRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, answers, story, provider, model, fallback, created_at, updated_at
		 FROM stories WHERE id = ?`, id)
	r, err := scanSQLiteRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return StoryRecord{}, ErrNotFound
	}
	if err != nil {
		return StoryRecord{}, fmt.Errorf("get story: %w", err)
	}
	return r, nil
}

func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]StoryRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, answers, story, provider, model, fallback, created_at, updated_at
		 FROM stories ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent stories: %w", err)
	}
	defer rows.Close()

	var items []StoryRecord
	for rows.Next() {
		r, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan story row: %w", err)
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func scanSQLiteRecord(row rowScanner) (StoryRecord, error) {
	var (
		r                StoryRecord
		answers          string
		created, updated int64
	)
	if err := row.Scan(&r.ID, &answers, &r.Story, &r.Provider, &r.Model, &r.Fallback, &created, &updated); err != nil {
		return StoryRecord{}, err
	}
	if err := json.Unmarshal([]byte(answers), &r.Answers); err != nil {
		return StoryRecord{}, fmt.Errorf("decode answers: %w", err)
	}
	r.CreatedAt = time.Unix(0, created).UTC()
	r.UpdatedAt = time.Unix(0, updated).UTC()
	return r, nil
}
