package model

import (
	"fmt"
	"time"
)

// Reminder is a one-shot notification derived from a task's datetime and
// reminder_time offset.
type Reminder struct {
	TaskID    int64
	Text      string
	TriggerAt time.Time
	DueAt     time.Time
}

// Key identifies a reminder occurrence; editing the datetime yields a new key.
func (r Reminder) Key() string {
	return fmt.Sprintf("%d@%d", r.TaskID, r.TriggerAt.Unix())
}

// ReminderFor returns the reminder of an open, dated task with a reminder
// offset. Completed, undated or offset-less tasks have none.
func ReminderFor(t Task) (Reminder, bool) {
	if t.Completed || t.ReminderTime == nil || *t.ReminderTime < 0 {
		return Reminder{}, false
	}
	due, ok := t.When()
	if !ok {
		return Reminder{}, false
	}
	return Reminder{
		TaskID:    t.ID,
		Text:      t.Text,
		TriggerAt: due.Add(-time.Duration(*t.ReminderTime) * time.Minute),
		DueAt:     due,
	}, true
}
