package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/sitesage/sitesage/internal/model"
)

// ErrMiss is returned when no unexpired entry exists for a key.
var ErrMiss = errors.New("cache miss")

// AnswerCache stores computed answers keyed by namespace and question.
//
// Design decision: SQLite rather than an in-process map because answers
// must survive across CLI invocations; the cache is what makes the
// second question against an already-ingested site cheap.
type AnswerCache struct {
	db *sql.DB

	// ttl is how long an entry stays valid after creation.
	ttl time.Duration

	// now is indirected for expiry tests.
	now func() time.Time
}

// Open opens or creates the answer cache under dir.
func Open(dir string, ttl time.Duration) (*AnswerCache, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	dbPath := filepath.Join(dir, "answers.db")
	db, err := sql.Open("sqlite", dbPath+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	// SQLite supports one writer; a single connection avoids lock
	// contention entirely for this small table.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	c := &AnswerCache{db: db, ttl: ttl, now: time.Now}

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if err := c.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}

	return c, nil
}

// createTables creates the schema if it doesn't exist.
func (c *AnswerCache) createTables() error {
	const schema = `
CREATE TABLE IF NOT EXISTS answers (
	namespace  TEXT NOT NULL,
	question   TEXT NOT NULL,
	response   TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (namespace, question)
);`
	_, err := c.db.ExecContext(context.Background(), schema)
	return err
}

// Get returns the cached answer for (namespace, question), or ErrMiss if
// none exists or the entry has expired. Expired rows are deleted on the
// way out so the table does not accumulate dead entries.
func (c *AnswerCache) Get(ctx context.Context, ns model.Namespace, question string) (*model.AnswerResult, error) {
	var response string
	var createdAt int64

	row := c.db.QueryRowContext(ctx,
		"SELECT response, created_at FROM answers WHERE namespace = ? AND question = ?",
		string(ns), question,
	)
	if err := row.Scan(&response, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache read: %w", err)
	}

	if c.now().Sub(time.Unix(createdAt, 0)) > c.ttl {
		_, _ = c.db.ExecContext(ctx,
			"DELETE FROM answers WHERE namespace = ? AND question = ?",
			string(ns), question,
		)
		return nil, ErrMiss
	}

	var result model.AnswerResult
	if err := json.Unmarshal([]byte(response), &result); err != nil {
		return nil, fmt.Errorf("cache decode: %w", err)
	}

	result.CacheHit = true
	return &result, nil
}

// Put stores an answer for (namespace, question), replacing any previous
// entry and restarting its TTL.
func (c *AnswerCache) Put(ctx context.Context, ns model.Namespace, question string, result *model.AnswerResult) error {
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}

	_, err = c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO answers (namespace, question, response, created_at) VALUES (?, ?, ?, ?)",
		string(ns), question, string(encoded), c.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("cache write: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (c *AnswerCache) Close() error {
	return c.db.Close()
}
