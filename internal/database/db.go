package database

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/galactic-uno/internal/cache"
	"github.com/jason-s-yu/galactic-uno/internal/models"
)

// DSNFromEnv returns DATABASE_URL, or builds a URL from the POSTGRES_* and PG_* variables.
func DSNFromEnv() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		os.Getenv("PG_HOST"),
		os.Getenv("PG_PORT"),
		os.Getenv("PG_DATABASE"),
	)
}

// Connect creates a pool for connStr and pings it.
func Connect(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return pool, nil
}

// Schema creates the tables the historian writes to.
const Schema = `
CREATE TABLE IF NOT EXISTS client_sessions (
	id          BIGINT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'in_progress',
	first_seen  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	end_time    TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS client_actions (
	record_id      UUID PRIMARY KEY,
	session_id     BIGINT NOT NULL REFERENCES client_sessions (id),
	actor          TEXT NOT NULL,
	action_type    TEXT NOT NULL,
	action_payload JSONB NOT NULL DEFAULT '{}',
	occurred_at    TIMESTAMPTZ NOT NULL
);
`

// ActionStore persists action records.
type ActionStore struct {
	pool *pgxpool.Pool
}

func NewActionStore(pool *pgxpool.Pool) *ActionStore {
	return &ActionStore{pool: pool}
}

// EnsureSchema applies Schema.
func (s *ActionStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}

// InsertActions writes records in one transaction. A record already stored is skipped.
func (s *ActionStore) InsertActions(ctx context.Context, records []cache.ActionRecord) error {
	return beginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range records {
			if err := insertActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertActionTx: %w", err)
			}
		}
		return nil
	})
}

// MarkAbandoned marks a session abandoned if it is still in progress.
func (s *ActionStore) MarkAbandoned(ctx context.Context, sessionID int64) error {
	return beginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			UPDATE client_sessions
			SET status = 'abandoned', end_time = NOW()
			WHERE id = $1 AND status = 'in_progress'
		`
		_, err := tx.Exec(ctx, q, sessionID)
		return err
	})
}

// insertActionTx upserts the session row and inserts the action. A leave action
// closes the session row.
func insertActionTx(ctx context.Context, tx pgx.Tx, rec cache.ActionRecord) error {
	upsertSessionQ := `
		INSERT INTO client_sessions (id, status, first_seen)
		VALUES ($1, 'in_progress', NOW())
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, upsertSessionQ, rec.SessionID); err != nil {
		return err
	}

	jsonPayload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	actionInsertQ := `
		INSERT INTO client_actions (
			record_id, session_id, actor, action_type, action_payload, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (record_id) DO NOTHING
	`
	_, err = tx.Exec(ctx, actionInsertQ,
		rec.RecordID, rec.SessionID, rec.Actor, rec.ActionType, jsonPayload, time.UnixMilli(rec.Timestamp),
	)
	if err != nil {
		return err
	}

	if rec.ActionType == models.ActionLeave {
		finalizeQ := `
			UPDATE client_sessions
			SET status = 'left', end_time = NOW()
			WHERE id = $1 AND status = 'in_progress'
		`
		if _, err := tx.Exec(ctx, finalizeQ, rec.SessionID); err != nil {
			return err
		}
	}
	return nil
}

// beginTxFunc starts a transaction, calls f with it, and commits or rolls back.
func beginTxFunc(ctx context.Context, pool *pgxpool.Pool, txOptions pgx.TxOptions, f func(tx pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}
	if err := f(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx rollback error: %v; original error: %w", rbErr, err)
		}
		return err
	}
	return tx.Commit(ctx)
}
