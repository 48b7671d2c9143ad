package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists stories in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initPostgresSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initPostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stories (
			id TEXT PRIMARY KEY,
			answers JSONB NOT NULL,
			language TEXT NOT NULL,
			story TEXT NOT NULL,
			provider TEXT NOT NULL DEFAULT '',
			model TEXT NOT NULL DEFAULT '',
			fallback BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_stories_updated ON stories (updated_at DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, record StoryRecord) error {
	record = prepare(record, time.Now().UTC())
	answers, err := json.Marshal(record.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO stories (id, answers, language, story, provider, model, fallback, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
			story = EXCLUDED.story,
			provider = EXCLUDED.provider,
			model = EXCLUDED.model,
			fallback = EXCLUDED.fallback,
			updated_at = EXCLUDED.updated_at`,
		record.ID,
		answers,
		string(record.Answers.Language),
		record.Story,
		record.Provider,
		record.Model,
		record.Fallback,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save story: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (StoryRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, answers, story, provider, model, fallback, created_at, updated_at
		 FROM stories WHERE id=$1`, id)
	r, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return StoryRecord{}, ErrNotFound
	}
	if err != nil {
		return StoryRecord{}, fmt.Errorf("get story: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]StoryRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, answers, story, provider, model, fallback, created_at, updated_at
		 FROM stories ORDER BY updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent stories: %w", err)
	}
	defer rows.Close()

	items := make([]StoryRecord, 0, limit)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan story row: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate story rows: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (StoryRecord, error) {
	var (
		r       StoryRecord
		answers []byte
	)
	if err := row.Scan(&r.ID, &answers, &r.Story, &r.Provider, &r.Model, &r.Fallback, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return StoryRecord{}, err
	}
	if err := json.Unmarshal(answers, &r.Answers); err != nil {
		return StoryRecord{}, fmt.Errorf("decode answers: %w", err)
	}
	return r, nil
}
