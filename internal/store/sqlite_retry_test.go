package store

import (
	"context"
	"errors"
	"testing"
)

type codedError struct{ code int }

func (e codedError) Error() string { return "sqlite error" }
func (e codedError) Code() int { return e.code }

func TestRetryOnBusyRetriesUntilSuccess(t *testing.T) {
	attempts := 0
	err := retryOnBusy(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return codedError{code: sqliteBusyCode}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retryOnBusy: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryOnBusyStopsOnOtherErrors(t *testing.T) {
	constraint := errors.New("constraint failed")
	attempts := 0
	err := retryOnBusy(context.Background(), func() error {
		attempts++
		return constraint
	})
	if !errors.Is(err, constraint) {
		t.Fatalf("expected constraint error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("non-busy errors must not be retried, got %d attempts", attempts)
	}
}

func TestRetryOnBusyGivesUpAfterAttempts(t *testing.T) {
	attempts := 0
	err := retryOnBusy(context.Background(), func() error {
		attempts++
		return errors.New("database is locked (5) (SQLITE_BUSY)")
	})
	if err == nil || !isSQLiteBusy(err) {
		t.Fatalf("expected busy error after retries, got %v", err)
	}
	if attempts != busyRetryAttempts {
		t.Fatalf("expected %d attempts, got %d", busyRetryAttempts, attempts)
	}
}
