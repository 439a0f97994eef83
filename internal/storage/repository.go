package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sandeepkv93/taskdesk/internal/store"
)

var ErrNotFound = errors.New("storage: not found")

// Cache persists the last good backend snapshot for offline start and the
// log of reminders already delivered.
type Cache interface {
	SaveSnapshot(ctx context.Context, snap store.Snapshot) error
	LoadSnapshot(ctx context.Context) (store.Snapshot, error)

	MarkReminderFired(ctx context.Context, in FiredReminder) error
	ReminderFired(ctx context.Context, key string) (bool, error)
	PruneReminders(ctx context.Context, olderThan time.Time) (int64, error)

	Close() error
}
