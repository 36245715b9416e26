package update

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxConflictRetries bounds how many times a reconciler is re-invoked after
// a transient storage conflict, in addition to the initial attempt.
const maxConflictRetries = 3

// ErrTransientConflict marks a storage-level write conflict that is safe to
// retry with the same input.
var ErrTransientConflict = errors.New("update: transient write conflict")

// retry re-invokes fn while it fails with a transient storage conflict.
// Validation drops, policy drops and fatal inconsistencies pass through on
// the first attempt; exhausting the bound surfaces the last conflict.
func (s *Service) retry(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !isTransientConflict(err) {
			return err
		}
		if attempt >= maxConflictRetries {
			s.logError(operation, "retries_exhausted", err, zap.Int("attempts", attempt+1))
			return newServiceError(operation, "retries_exhausted", err)
		}
		s.logger.Warn("retrying reconciliation after write conflict",
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
}

// isTransientConflict recognizes the designated conflict sentinel, the
// sqlite busy/locked signals surfaced through gorm, and duplicate-key
// violations. The latter happen when two workers race a first-sighting
// create for the same URL: the loser's insert hits the unique index, and a
// re-run resolves the now-existing row and merges into it.
func isTransientConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransientConflict) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	message := err.Error()
	return strings.Contains(message, "database is locked") ||
		strings.Contains(message, "database table is locked") ||
		strings.Contains(message, "SQLITE_BUSY") ||
		strings.Contains(message, "UNIQUE constraint failed")
}
