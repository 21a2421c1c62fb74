package artifact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

// PostgresStore keeps reports in a table. Open the *sql.DB with the pgx
// stdlib driver.
type PostgresStore struct {
	db         *sql.DB
	schemaOnce sync.Once
	schemaErr  error
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db is nil")
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS analysis_reports (
    analysis_id TEXT NOT NULL,
    name TEXT NOT NULL,
    content BYTEA NOT NULL DEFAULT ''::bytea,
    size BIGINT NOT NULL,
    updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    PRIMARY KEY (analysis_id, name)
);
`)
	})
	return s.schemaErr
}

func (s *PostgresStore) Put(ctx context.Context, analysisID, name string, content []byte) error {
	analysisID, name, err := validate(analysisID, name)
	if err != nil {
		return err
	}
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	if content == nil {
		content = []byte{}
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO analysis_reports (analysis_id, name, content, size, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (analysis_id, name)
DO UPDATE SET content=EXCLUDED.content, size=EXCLUDED.size, updated_at=EXCLUDED.updated_at
`, analysisID, name, content, int64(len(content)), time.Now())
	return err
}

func (s *PostgresStore) Get(ctx context.Context, analysisID, name string) ([]byte, error) {
	analysisID, name, err := validate(analysisID, name)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	var content []byte
	err = s.db.QueryRowContext(ctx, `SELECT content FROM analysis_reports WHERE analysis_id=$1 AND name=$2`, analysisID, name).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return content, err
}

func (s *PostgresStore) List(ctx context.Context, analysisID string) ([]string, error) {
	analysisID, _, err := validate(analysisID, "x")
	if err != nil {
		return nil, err
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM analysis_reports WHERE analysis_id=$1 ORDER BY name`, analysisID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// URL is always empty: content lives in the table.
func (s *PostgresStore) URL(context.Context, string, string) (string, error) {
	return "", nil
}
