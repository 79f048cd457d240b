package store

import (
	"caselaw/packages/domain"
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createJudgmentsTable = `
CREATE TABLE IF NOT EXISTS judgments (
    key        TEXT PRIMARY KEY,
    record     JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const upsertJudgment = `
INSERT INTO judgments (key, record, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET record = EXCLUDED.record, updated_at = now()`

// PostgresStore writes records into a jsonb column keyed by case name or URL.
type PostgresStore struct {
	DB *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	db, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if _, err := db.Exec(ctx, createJudgmentsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create judgments table: %w", err)
	}
	slog.Info("Postgres record store ready")
	return &PostgresStore{DB: db}, nil
}

func (s *PostgresStore) Close() {
	s.DB.Close()
}

func (s *PostgresStore) Upsert(ctx context.Context, key string, rec domain.Record) error {
	if key == "" {
		return ErrEmptyKey
	}
	if _, err := s.DB.Exec(ctx, upsertJudgment, key, map[string]string(rec)); err != nil {
		return fmt.Errorf("failed to upsert judgment %q: %w", key, err)
	}
	return nil
}

// Load returns every stored judgment.
func (s *PostgresStore) Load(ctx context.Context) (map[string]domain.Record, error) {
	rows, err := s.DB.Query(ctx, `SELECT key, record FROM judgments`)
	if err != nil {
		return nil, fmt.Errorf("failed to query judgments: %w", err)
	}

	records := map[string]domain.Record{}
	var key string
	var raw []byte
	if _, err := pgx.ForEachRow(rows, []any{&key, &raw}, func() error {
		rec, err := decodeRecord(raw)
		if err != nil {
			return fmt.Errorf("record %q: %w", key, err)
		}
		records[key] = rec
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to iterate judgment rows: %w", err)
	}
	return records, nil
}
