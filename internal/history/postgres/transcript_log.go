// Package postgres provides a durable transcript log backed by a PostgreSQL
// conversation_turns table.
//
// The log is append-only from the relay's point of view: turns are written as
// the pipeline produces them and queried back only by operators, never by the
// prompt builder.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxbridge/voxbridge/pkg/provider/llm"
)

const ddlConversationTurns = `
CREATE TABLE IF NOT EXISTS conversation_turns (
    id         BIGSERIAL    PRIMARY KEY,
    session_id TEXT         NOT NULL,
    role       TEXT         NOT NULL,
    text       TEXT         NOT NULL,
    created_at TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_conversation_turns_session_id
    ON conversation_turns (session_id);

CREATE INDEX IF NOT EXISTS idx_conversation_turns_session_created
    ON conversation_turns (session_id, created_at);
`

// Entry is one persisted conversation turn.
type Entry struct {
	SessionID string
	Role      llm.Role
	Text      string
	CreatedAt time.Time
}

// TranscriptLog writes conversation turns to PostgreSQL. All methods are
// safe for concurrent use.
type TranscriptLog struct {
	pool *pgxpool.Pool
}

// NewTranscriptLog connects to the database at dsn and ensures the
// conversation_turns table exists.
func NewTranscriptLog(ctx context.Context, dsn string) (*TranscriptLog, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("transcript log: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("transcript log: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, ddlConversationTurns); err != nil {
		pool.Close()
		return nil, fmt.Errorf("transcript log: migrate: %w", err)
	}
	return &TranscriptLog{pool: pool}, nil
}

// Write appends one turn under sessionID.
func (l *TranscriptLog) Write(ctx context.Context, sessionID string, turn llm.Turn) error {
	const q = `
		INSERT INTO conversation_turns (session_id, role, text)
		VALUES ($1, $2, $3)`

	if _, err := l.pool.Exec(ctx, q, sessionID, string(turn.Role), turn.Text); err != nil {
		return fmt.Errorf("transcript log: write turn: %w", err)
	}
	return nil
}

// Recent returns up to limit turns for sessionID, oldest first.
func (l *TranscriptLog) Recent(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	const q = `
		SELECT session_id, role, text, created_at
		FROM (
		    SELECT session_id, role, text, created_at
		    FROM   conversation_turns
		    WHERE  session_id = $1
		    ORDER  BY created_at DESC
		    LIMIT  $2
		) latest
		ORDER BY created_at`

	rows, err := l.pool.Query(ctx, q, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("transcript log: recent: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		var role string
		err := row.Scan(&e.SessionID, &role, &e.Text, &e.CreatedAt)
		e.Role = llm.Role(role)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("transcript log: scan turns: %w", err)
	}
	return entries, nil
}

// Ping verifies database connectivity, for readiness probes.
func (l *TranscriptLog) Ping(ctx context.Context) error {
	return l.pool.Ping(ctx)
}

// Close releases the connection pool.
func (l *TranscriptLog) Close() {
	l.pool.Close()
}
