package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sandeepkv93/taskdesk/internal/model"
	"github.com/sandeepkv93/taskdesk/internal/store"
)

// Fixed width so stored timestamps compare correctly as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteCache struct {
	db *sql.DB
}

var _ Cache = (*SQLiteCache)(nil)

func NewSQLiteCache(db *sql.DB) (*SQLiteCache, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if err := MigrateUp(db); err != nil {
		return nil, err
	}
	return &SQLiteCache{db: db}, nil
}

func OpenSQLite(path string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	cache, err := NewSQLiteCache(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return cache, nil
}

func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

// SaveSnapshot replaces the cached snapshot in one transaction.
func (c *SQLiteCache) SaveSnapshot(ctx context.Context, snap store.Snapshot) (err error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"cached_tasks", "cached_categories", "cached_contacts", "snapshot_meta"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err = insertTasks(ctx, tx, snap.Tasks, false); err != nil {
		return err
	}
	if err = insertTasks(ctx, tx, snap.Archived, true); err != nil {
		return err
	}
	for i, cat := range snap.Categories {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO cached_categories (name, color, position) VALUES (?, ?, ?)`,
			cat.Name, cat.Color, i,
		); err != nil {
			return fmt.Errorf("cache category %q: %w", cat.Name, err)
		}
	}
	for i, ct := range snap.Contacts {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO cached_contacts (chat_id, name, username, contact_group, position) VALUES (?, ?, ?, ?, ?)`,
			string(ct.ChatID), ct.Name, ct.Username, ct.Group, i,
		); err != nil {
			return fmt.Errorf("cache contact %s: %w", ct.ChatID, err)
		}
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO snapshot_meta (id, fetched_at) VALUES (1, ?)`,
		mustTime(snap.FetchedAt)); err != nil {
		return fmt.Errorf("cache snapshot meta: %w", err)
	}
	return tx.Commit()
}

// LoadSnapshot returns ErrNotFound when nothing was ever cached.
func (c *SQLiteCache) LoadSnapshot(ctx context.Context) (store.Snapshot, error) {
	var fetched string
	err := c.db.QueryRowContext(ctx, `SELECT fetched_at FROM snapshot_meta WHERE id = 1`).Scan(&fetched)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Snapshot{}, ErrNotFound
		}
		return store.Snapshot{}, err
	}
	fetchedAt, err := parseRequiredTime(fetched)
	if err != nil {
		return store.Snapshot{}, err
	}

	out := store.Snapshot{FetchedAt: fetchedAt}
	if out.Tasks, err = c.loadTasks(ctx, false); err != nil {
		return store.Snapshot{}, err
	}
	if out.Archived, err = c.loadTasks(ctx, true); err != nil {
		return store.Snapshot{}, err
	}
	if out.Categories, err = c.loadCategories(ctx); err != nil {
		return store.Snapshot{}, err
	}
	if out.Contacts, err = c.loadContacts(ctx); err != nil {
		return store.Snapshot{}, err
	}
	return out, nil
}

func (c *SQLiteCache) MarkReminderFired(ctx context.Context, in FiredReminder) error {
	if in.Key == "" {
		return errors.New("storage: empty reminder key")
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO reminder_log (reminder_key, task_id, fired_at) VALUES (?, ?, ?)
		ON CONFLICT (reminder_key) DO NOTHING`,
		in.Key, in.TaskID, mustTime(in.FiredAt),
	)
	return err
}

func (c *SQLiteCache) ReminderFired(ctx context.Context, key string) (bool, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM reminder_log WHERE reminder_key = ?`, key).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// PruneReminders drops log entries fired before olderThan.
func (c *SQLiteCache) PruneReminders(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM reminder_log WHERE fired_at < ?`, mustTime(olderThan))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func insertTasks(ctx context.Context, tx *sql.Tx, tasks []model.Task, archived bool) error {
	for i, task := range tasks {
		payload, err := json.Marshal(task)
		if err != nil {
			return fmt.Errorf("encode task %d: %w", task.ID, err)
		}
		row := cachedTask{ID: task.ID, Archived: archived, Position: i, Payload: string(payload)}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cached_tasks (id, archived, position, payload) VALUES (?, ?, ?, ?)`,
			row.ID, boolInt(row.Archived), row.Position, row.Payload,
		); err != nil {
			return fmt.Errorf("cache task %d: %w", task.ID, err)
		}
	}
	return nil
}

func (c *SQLiteCache) loadTasks(ctx context.Context, archived bool) ([]model.Task, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, archived, position, payload FROM cached_tasks
		WHERE archived = ? ORDER BY position`, boolInt(archived))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Task, 0)
	for rows.Next() {
		row, scanErr := scanCachedTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		var task model.Task
		if err := json.Unmarshal([]byte(row.Payload), &task); err != nil {
			return nil, fmt.Errorf("decode cached task %d: %w", row.ID, err)
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func (c *SQLiteCache) loadCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT name, color FROM cached_categories ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Category, 0)
	for rows.Next() {
		var cat model.Category
		if err := rows.Scan(&cat.Name, &cat.Color); err != nil {
			return nil, err
		}
		out = append(out, cat)
	}
	return out, rows.Err()
}

func (c *SQLiteCache) loadContacts(ctx context.Context) ([]model.Contact, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT chat_id, name, username, contact_group FROM cached_contacts ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Contact, 0)
	for rows.Next() {
		var (
			ct     model.Contact
			chatID string
		)
		if err := rows.Scan(&chatID, &ct.Name, &ct.Username, &ct.Group); err != nil {
			return nil, err
		}
		ct.ChatID = model.FlexString(chatID)
		out = append(out, ct)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCachedTask(s scanner) (cachedTask, error) {
	var (
		out      cachedTask
		archived int
	)
	if err := s.Scan(&out.ID, &archived, &out.Position, &out.Payload); err != nil {
		return cachedTask{}, err
	}
	out.Archived = archived == 1
	return out, nil
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
