package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"

	"repolens/internal/types"
)

// PostgresStore keeps history in Postgres with an LRU read cache for Get.
type PostgresStore struct {
	db         *sql.DB
	schemaOnce sync.Once
	schemaErr  error
	cache      *lru.Cache[string, types.HistoryRecord]
}

// OpenPostgres opens dsn with the pgx stdlib driver and pings it.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	cache, err := lru.New[string, types.HistoryRecord](1024)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{db: db, cache: cache}, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS history_records (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    input TEXT NOT NULL DEFAULT '',
    output TEXT NOT NULL DEFAULT '',
    language TEXT NOT NULL DEFAULT '',
    analysis JSONB,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_history_user_created ON history_records(user_id, created_at DESC);
`)
	})
	return s.schemaErr
}

func (s *PostgresStore) Save(ctx context.Context, rec types.HistoryRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	var analysis any
	if rec.Analysis != nil {
		raw, err := json.Marshal(rec.Analysis)
		if err != nil {
			return fmt.Errorf("encode analysis: %w", err)
		}
		analysis = string(raw)
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO history_records (id, user_id, kind, title, input, output, language, analysis, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id)
DO UPDATE SET title=EXCLUDED.title, input=EXCLUDED.input, output=EXCLUDED.output,
    language=EXCLUDED.language, analysis=EXCLUDED.analysis
`, rec.ID, rec.UserID, string(rec.Kind), rec.Title, rec.Input, rec.Output, rec.Language, analysis, rec.CreatedAt)
	if err != nil {
		return err
	}
	s.cache.Remove(rec.ID)
	return nil
}

const selectColumns = `id, user_id, kind, title, input, output, language, analysis, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (types.HistoryRecord, error) {
	var (
		rec      types.HistoryRecord
		kind     string
		analysis []byte
	)
	if err := row.Scan(&rec.ID, &rec.UserID, &kind, &rec.Title, &rec.Input, &rec.Output, &rec.Language, &analysis, &rec.CreatedAt); err != nil {
		return types.HistoryRecord{}, err
	}
	rec.Kind = types.HistoryKind(kind)
	if len(analysis) > 0 {
		var a types.AnalysisResult
		if err := json.Unmarshal(analysis, &a); err != nil {
			return types.HistoryRecord{}, fmt.Errorf("decode analysis of %s: %w", rec.ID, err)
		}
		rec.Analysis = &a
	}
	return rec, nil
}

func (s *PostgresStore) List(ctx context.Context, userID string, limit int) ([]types.HistoryRecord, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM history_records
WHERE user_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2`, userID, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]types.HistoryRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Get(ctx context.Context, id string) (types.HistoryRecord, error) {
	if rec, ok := s.cache.Get(id); ok {
		return rec, nil
	}
	if err := s.ensureSchema(ctx); err != nil {
		return types.HistoryRecord{}, err
	}
	rec, err := scanRecord(s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM history_records WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.HistoryRecord{}, ErrNotFound
	}
	if err != nil {
		return types.HistoryRecord{}, err
	}
	s.cache.Add(id, rec)
	return rec, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM history_records WHERE id=$1`, id)
	if err != nil {
		return err
	}
	s.cache.Remove(id)
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
