// Package sqlite persists user facts and conversation summaries in SQLite.
// It is the source of truth; the vector index payload is synced from here.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/soukly/agentcore/memory"
)

const schema = `
CREATE TABLE IF NOT EXISTS user_facts (
	seq               INTEGER PRIMARY KEY AUTOINCREMENT,
	fact_id           TEXT NOT NULL UNIQUE,
	user_id           TEXT NOT NULL,
	fact_key          TEXT NOT NULL,
	fact_value        TEXT NOT NULL,
	r_raw             REAL NOT NULL DEFAULT 0,
	p_raw             REAL NOT NULL DEFAULT 0,
	active            INTEGER NOT NULL DEFAULT 1,
	source            TEXT NOT NULL DEFAULT '',
	created_at        INTEGER NOT NULL,
	last_confirmed_at INTEGER
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_facts_active_triple
	ON user_facts (user_id, fact_key, fact_value) WHERE active = 1;

CREATE INDEX IF NOT EXISTS idx_facts_user ON user_facts (user_id, active);

CREATE TABLE IF NOT EXISTS conversation_summaries (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	chat_id    TEXT NOT NULL,
	summary    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_summaries_chat ON conversation_summaries (chat_id, created_at);
`

// Store implements memory.FactStore and memory.SummaryStore on SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the database at path. Use ":memory:" for an
// ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Single connection: increments become strictly serialized
	// read-modify-write operations, the row-lock equivalent the
	// reinforcement protocol requires.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set journal_mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Insert persists a new fact row. The partial unique index rejects a second
// active row for the same triple.
func (s *Store) Insert(ctx context.Context, fact *memory.Fact) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_facts
			(fact_id, user_id, fact_key, fact_value, r_raw, p_raw, active, source, created_at)
		VALUES (?, ?, ?, ?, ?, 0, 1, ?, ?)`,
		fact.ID, fact.UserID, fact.Key, fact.Value, fact.RRaw, fact.Source,
		fact.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert fact: %w", err)
	}
	return nil
}

// IncrementReinforcement adds delta to r_raw and stamps last_confirmed_at.
// A single UPDATE statement, so concurrent confirmations for the same triple
// cannot lose updates.
func (s *Store) IncrementReinforcement(ctx context.Context, userID, key, value string, delta float64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE user_facts
		SET r_raw = r_raw + ?, last_confirmed_at = ?
		WHERE user_id = ? AND fact_key = ? AND fact_value = ? AND active = 1`,
		delta, time.Now().Unix(), userID, key, value,
	)
	if err != nil {
		return fmt.Errorf("increment reinforcement: %w", err)
	}
	return nil
}

// IncrementContradiction adds delta to p_raw. The row is never deactivated.
func (s *Store) IncrementContradiction(ctx context.Context, userID, key, value string, delta float64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE user_facts
		SET p_raw = p_raw + ?
		WHERE user_id = ? AND fact_key = ? AND fact_value = ? AND active = 1`,
		delta, userID, key, value,
	)
	if err != nil {
		return fmt.Errorf("increment contradiction: %w", err)
	}
	return nil
}

// Get returns the active row for the triple, or nil when absent.
func (s *Store) Get(ctx context.Context, userID, key, value string) (*memory.Fact, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, fact_id, user_id, fact_key, fact_value, r_raw, p_raw,
		       active, source, created_at, last_confirmed_at
		FROM user_facts
		WHERE user_id = ? AND fact_key = ? AND fact_value = ? AND active = 1
		LIMIT 1`,
		userID, key, value,
	)
	fact, err := scanFact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get fact: %w", err)
	}
	return fact, nil
}

// ListActive returns every active fact for the user in insertion order.
func (s *Store) ListActive(ctx context.Context, userID string) ([]*memory.Fact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, fact_id, user_id, fact_key, fact_value, r_raw, p_raw,
		       active, source, created_at, last_confirmed_at
		FROM user_facts
		WHERE user_id = ? AND active = 1
		ORDER BY seq`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list facts: %w", err)
	}
	defer rows.Close()

	var facts []*memory.Fact
	for rows.Next() {
		fact, err := scanFact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		facts = append(facts, fact)
	}
	return facts, rows.Err()
}

// SaveSummary appends a summary for the chat thread.
func (s *Store) SaveSummary(ctx context.Context, chatID, summary string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_summaries (chat_id, summary, created_at)
		VALUES (?, ?, ?)`,
		chatID, summary, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

// LatestSummary returns the most recent summary for the chat, or "".
func (s *Store) LatestSummary(ctx context.Context, chatID string) (string, error) {
	var summary string
	err := s.db.QueryRowContext(ctx, `
		SELECT summary FROM conversation_summaries
		WHERE chat_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		chatID,
	).Scan(&summary)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("latest summary: %w", err)
	}
	return summary, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFact(row rowScanner) (*memory.Fact, error) {
	var (
		fact      memory.Fact
		active    int
		created   int64
		confirmed sql.NullInt64
	)
	err := row.Scan(&fact.Seq, &fact.ID, &fact.UserID, &fact.Key, &fact.Value,
		&fact.RRaw, &fact.PRaw, &active, &fact.Source, &created, &confirmed)
	if err != nil {
		return nil, err
	}
	fact.Active = active == 1
	fact.CreatedAt = time.Unix(created, 0).UTC()
	if confirmed.Valid {
		fact.LastConfirmedAt = time.Unix(confirmed.Int64, 0).UTC()
	}
	return &fact, nil
}
