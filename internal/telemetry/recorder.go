// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS exchanges (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id TEXT NOT NULL,
	message_id TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	ttft_ms INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	tokens INTEGER NOT NULL,
	chars INTEGER NOT NULL,
	outcome TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_exchanges_started ON exchanges(started_at);
CREATE INDEX IF NOT EXISTS idx_exchanges_conversation ON exchanges(conversation_id);
`

// =============================================================================
// TYPES
// =============================================================================

// Outcome labels for a finished exchange.
const (
	OutcomeComplete  = "complete"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// ExchangeStat is one recorded exchange.
type ExchangeStat struct {
	ConversationID string
	MessageID      string
	StartedAt      time.Time
	TTFT           time.Duration // time to first token; zero if none arrived
	Duration       time.Duration
	Tokens         int
	Chars          int
	Outcome        string
}

// TokensPerSecond computes the streaming rate, or 0 for instant or
// empty exchanges.
func (s ExchangeStat) TokensPerSecond() float64 {
	if s.Duration <= 0 || s.Tokens == 0 {
		return 0
	}
	return float64(s.Tokens) / s.Duration.Seconds()
}

// Summary aggregates stats over a window.
type Summary struct {
	Exchanges  int
	Completed  int
	Failed     int
	Cancelled  int
	TotalTokens int
	AvgTTFT    time.Duration
	AvgRate    float64 // tokens per second across completed exchanges
}

// =============================================================================
// RECORDER
// =============================================================================

// Recorder persists exchange stats to a local SQLite database.
type Recorder struct {
	mu     sync.Mutex
	db     *sql.DB
	logger *zap.Logger
}

// DefaultDBPath returns ~/.parley/telemetry.db.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".parley", "telemetry.db"), nil
}

// NewRecorder opens (creating if needed) the stats database at dbPath.
// An empty dbPath selects the default location.
func NewRecorder(dbPath string, logger *zap.Logger) (*Recorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dbPath == "" {
		p, err := DefaultDBPath()
		if err != nil {
			return nil, err
		}
		dbPath = p
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open telemetry database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create telemetry schema: %w", err)
	}

	return &Recorder{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.db.Close()
}

// Record persists one exchange stat. Errors are logged, not returned:
// telemetry must never affect the chat path.
func (r *Recorder) Record(stat ExchangeStat) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`
		INSERT INTO exchanges (conversation_id, message_id, started_at, ttft_ms, duration_ms, tokens, chars, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		stat.ConversationID,
		stat.MessageID,
		stat.StartedAt.UnixMilli(),
		stat.TTFT.Milliseconds(),
		stat.Duration.Milliseconds(),
		stat.Tokens,
		stat.Chars,
		stat.Outcome,
	)
	if err != nil {
		r.logger.Warn("failed to record exchange stat", zap.Error(err))
	}
}

// Summarize aggregates stats for the trailing window.
func (r *Recorder) Summarize(window time.Duration) (*Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	since := time.Now().Add(-window).UnixMilli()
	s := &Summary{}

	err := r.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(tokens), 0)
		FROM exchanges WHERE started_at >= ?`,
		OutcomeComplete, OutcomeFailed, OutcomeCancelled, since,
	).Scan(&s.Exchanges, &s.Completed, &s.Failed, &s.Cancelled, &s.TotalTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize exchanges: %w", err)
	}

	var avgTTFT sql.NullFloat64
	err = r.db.QueryRow(`
		SELECT AVG(ttft_ms) FROM exchanges
		WHERE started_at >= ? AND ttft_ms > 0`, since,
	).Scan(&avgTTFT)
	if err != nil {
		return nil, fmt.Errorf("failed to average TTFT: %w", err)
	}
	if avgTTFT.Valid {
		s.AvgTTFT = time.Duration(avgTTFT.Float64) * time.Millisecond
	}

	var avgRate sql.NullFloat64
	err = r.db.QueryRow(`
		SELECT AVG(CAST(tokens AS REAL) / (duration_ms / 1000.0))
		FROM exchanges
		WHERE started_at >= ? AND outcome = ? AND duration_ms > 0 AND tokens > 0`,
		since, OutcomeComplete,
	).Scan(&avgRate)
	if err != nil {
		return nil, fmt.Errorf("failed to average token rate: %w", err)
	}
	if avgRate.Valid {
		s.AvgRate = avgRate.Float64
	}

	return s, nil
}

// Recent returns the most recent stats, newest first.
func (r *Recorder) Recent(limit int) ([]ExchangeStat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`
		SELECT conversation_id, message_id, started_at, ttft_ms, duration_ms, tokens, chars, outcome
		FROM exchanges ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchanges: %w", err)
	}
	defer rows.Close()

	var stats []ExchangeStat
	for rows.Next() {
		var st ExchangeStat
		var startedMs, ttftMs, durationMs int64
		if err := rows.Scan(&st.ConversationID, &st.MessageID, &startedMs, &ttftMs, &durationMs, &st.Tokens, &st.Chars, &st.Outcome); err != nil {
			return nil, fmt.Errorf("failed to scan exchange row: %w", err)
		}
		st.StartedAt = time.UnixMilli(startedMs)
		st.TTFT = time.Duration(ttftMs) * time.Millisecond
		st.Duration = time.Duration(durationMs) * time.Millisecond
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// Prune deletes stats older than the retention window.
func (r *Recorder) Prune(retention time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-retention).UnixMilli()
	res, err := r.db.Exec("DELETE FROM exchanges WHERE started_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune exchanges: %w", err)
	}
	return res.RowsAffected()
}
