package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Analysis holds the per-call results delivered by the Voice Intelligence
// pipeline once a recording has been processed.
type Analysis struct {
	CallSid          string
	Topic            string
	Sentiment        string
	PerformanceScore string
}

// Calls persists analysis results keyed by CallSid in a local SQLite file.
type Calls struct {
	db *sql.DB
}

const schema = `CREATE TABLE IF NOT EXISTS calls (
	call_sid TEXT PRIMARY KEY,
	topic TEXT,
	sentiment TEXT,
	performance_score TEXT
);`

// Open opens (creating if needed) the calls database at path and ensures
// the schema exists.
func Open(path string) (*Calls, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open calls db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate calls db: %w", err)
	}
	return &Calls{db: db}, nil
}

// SaveAnalysis inserts or replaces the analysis row for the call.
func (c *Calls) SaveAnalysis(ctx context.Context, a Analysis) error {
	const q = `INSERT INTO calls (call_sid, topic, sentiment, performance_score)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(call_sid) DO UPDATE SET
			topic = excluded.topic,
			sentiment = excluded.sentiment,
			performance_score = excluded.performance_score;`
	if _, err := c.db.ExecContext(ctx, q, a.CallSid, a.Topic, a.Sentiment, a.PerformanceScore); err != nil {
		return fmt.Errorf("save analysis for %s: %w", a.CallSid, err)
	}
	return nil
}

// GetAnalysis returns the stored analysis for callSid, or false when no
// row exists.
func (c *Calls) GetAnalysis(ctx context.Context, callSid string) (Analysis, bool, error) {
	const q = `SELECT call_sid, topic, sentiment, performance_score FROM calls WHERE call_sid = ?;`
	var a Analysis
	err := c.db.QueryRowContext(ctx, q, callSid).Scan(&a.CallSid, &a.Topic, &a.Sentiment, &a.PerformanceScore)
	if err == sql.ErrNoRows {
		return Analysis{}, false, nil
	}
	if err != nil {
		return Analysis{}, false, fmt.Errorf("get analysis for %s: %w", callSid, err)
	}
	return a, true, nil
}

// Close releases the underlying database handle.
func (c *Calls) Close() error {
	return c.db.Close()
}
