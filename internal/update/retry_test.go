package update

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"
)

func TestRetryStopsAfterBound(t *testing.T) {
	harness := newTestHarness(t)

	invocations := 0
	err := harness.service.retry(context.Background(), "update.test", func(context.Context) error {
		invocations++
		return fmt.Errorf("save failed: %w", ErrTransientConflict)
	})
	if err == nil {
		t.Fatalf("expected retry exhaustion to surface an error")
	}
	if invocations != maxConflictRetries+1 {
		t.Fatalf("expected %d invocations, got %d", maxConflictRetries+1, invocations)
	}

	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("expected ServiceError, got %T", err)
	}
	if serviceErr.Code() != "update.test.retries_exhausted" {
		t.Fatalf("unexpected code %s", serviceErr.Code())
	}
	if !errors.Is(err, ErrTransientConflict) {
		t.Fatalf("expected wrapped conflict, got %v", err)
	}
}

func TestRetrySucceedsAfterTransientConflicts(t *testing.T) {
	harness := newTestHarness(t)

	invocations := 0
	err := harness.service.retry(context.Background(), "update.test", func(context.Context) error {
		invocations++
		if invocations < 3 {
			return ErrTransientConflict
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if invocations != 3 {
		t.Fatalf("expected 3 invocations, got %d", invocations)
	}
}

func TestRetryPassesThroughNonTransientFailures(t *testing.T) {
	harness := newTestHarness(t)

	fatal := errors.New("signer lacks capability")
	invocations := 0
	err := harness.service.retry(context.Background(), "update.test", func(context.Context) error {
		invocations++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("expected original failure, got %v", err)
	}
	if invocations != 1 {
		t.Fatalf("expected a single invocation, got %d", invocations)
	}
}

func TestIsTransientConflictRecognizesStorageConflicts(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "sentinel", err: ErrTransientConflict, expected: true},
		{name: "wrapped-sentinel", err: fmt.Errorf("tx: %w", ErrTransientConflict), expected: true},
		{name: "locked", err: errors.New("database is locked (5) (SQLITE_BUSY)"), expected: true},
		{name: "table-locked", err: errors.New("database table is locked"), expected: true},
		{name: "duplicated-key", err: gorm.ErrDuplicatedKey, expected: true},
		{name: "unique-violation", err: errors.New("constraint failed: UNIQUE constraint failed: videos.url (2067)"), expected: true},
		{name: "validation", err: errors.New("invalid object"), expected: false},
		{name: "nil", err: nil, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransientConflict(tt.err); got != tt.expected {
				t.Fatalf("isTransientConflict = %v, expected %v", got, tt.expected)
			}
		})
	}
}
