package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "modernc.org/sqlite"

	"concierge/internal/records"
)

//go:embed schema.sql
var schemaSQL string

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// SQLiteStore keeps both documents as rows of a single table.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

func (s *SQLiteStore) Location() string { return s.path }

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load reads both documents.
func (s *SQLiteStore) Load(ctx context.Context) (records.Collection, error) {
	bodies := make(map[string][]byte, 2)
	err := retryOnBusy(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, `SELECT name, body FROM documents WHERE name IN (?, ?)`, TicketsDocument, TasksDocument)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var name, body string
			if err := rows.Scan(&name, &body); err != nil {
				return err
			}
			bodies[name] = []byte(body)
		}
		return rows.Err()
	})
	if err != nil {
		return records.Collection{}, fmt.Errorf("load documents: %w", err)
	}

	collection := records.NewCollection()
	if collection.Tickets, err = decodeTickets(bodies[TicketsDocument]); err != nil {
		return records.Collection{}, err
	}
	if collection.Tasks, err = decodeTasks(bodies[TasksDocument]); err != nil {
		return records.Collection{}, err
	}
	return collection, nil
}

// Save replaces both documents in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, collection records.Collection) error {
	tickets, err := encodeTickets(collection.Tickets)
	if err != nil {
		return err
	}
	tasks, err := encodeTasks(collection.Tasks)
	if err != nil {
		return err
	}
	updated := time.Now().UTC().Format(time.RFC3339Nano)

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		const upsert = `INSERT INTO documents (name, body, updated_at) VALUES (?, ?, ?)
            ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`
		for _, doc := range []struct {
			name string
			body []byte
		}{{TicketsDocument, tickets}, {TasksDocument, tasks}} {
			if _, err := tx.ExecContext(ctx, upsert, doc.name, string(doc.body), updated); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("write %s: %w", doc.name, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		return nil
	})
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// retryOnBusy runs op until it succeeds, fails with a non-busy error, or
// busyRetryAttempts attempts were made.
func retryOnBusy(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = busyRetryInitialBackoff
	policy.MaxInterval = busyRetryMaxBackoff
	policy.MaxElapsedTime = 0

	return backoff.Retry(func() error {
		err := op()
		if err != nil && !isSQLiteBusy(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, busyRetryAttempts-1), ctx))
}
