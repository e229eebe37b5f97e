package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"concierge/internal/records"
)

const lockRetryDelay = 25 * time.Millisecond

// JSONStore keeps each document in its own file under dir.
type JSONStore struct {
	dir  string
	lock *flock.Flock
}

// OpenJSON prepares dir for the json backend.
func OpenJSON(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &JSONStore{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, "records.lock")),
	}, nil
}

func (s *JSONStore) Location() string { return s.dir }

// Close releases the document lock if it is still held.
func (s *JSONStore) Close() error {
	if s.lock.Locked() || s.lock.RLocked() {
		return s.lock.Unlock()
	}
	return nil
}

// Load reads both documents under a shared lock.
func (s *JSONStore) Load(ctx context.Context) (records.Collection, error) {
	locked, err := s.lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return records.Collection{}, fmt.Errorf("lock records: %w", err)
	}
	if !locked {
		return records.Collection{}, errors.New("lock records: not acquired")
	}
	defer func() { _ = s.lock.Unlock() }()

	collection := records.NewCollection()

	data, err := readDocument(filepath.Join(s.dir, TicketsDocument))
	if err != nil {
		return records.Collection{}, err
	}
	if collection.Tickets, err = decodeTickets(data); err != nil {
		return records.Collection{}, err
	}

	data, err = readDocument(filepath.Join(s.dir, TasksDocument))
	if err != nil {
		return records.Collection{}, err
	}
	if collection.Tasks, err = decodeTasks(data); err != nil {
		return records.Collection{}, err
	}
	return collection, nil
}

// Save replaces both documents under an exclusive lock. Each file is written
// to a temp file and renamed so readers never observe a torn document.
func (s *JSONStore) Save(ctx context.Context, collection records.Collection) error {
	tickets, err := encodeTickets(collection.Tickets)
	if err != nil {
		return err
	}
	tasks, err := encodeTasks(collection.Tasks)
	if err != nil {
		return err
	}

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock records: %w", err)
	}
	if !locked {
		return errors.New("lock records: not acquired")
	}
	defer func() { _ = s.lock.Unlock() }()

	if err := writeAtomic(filepath.Join(s.dir, TicketsDocument), tickets); err != nil {
		return err
	}
	return writeAtomic(filepath.Join(s.dir, TasksDocument), tasks)
}

func readDocument(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return data, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", filepath.Base(path), err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
