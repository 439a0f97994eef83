package update

import (
	"context"
	"fmt"
	"log"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/taskdesk/internal/model"
	"github.com/sandeepkv93/taskdesk/internal/scheduler"
	"github.com/sandeepkv93/taskdesk/internal/storage"
)

// syncReminders arms one engine event per open task whose reminder lies in
// the future and cancels events for tasks that lost theirs. Editing a task's
// datetime changes the key, so the old occurrence is cancelled here too.
func (m *Model) syncReminders() {
	if m.engine == nil {
		return
	}
	now := m.now()
	want := make(map[string]bool)
	for _, task := range m.store.Tasks() {
		r, ok := model.ReminderFor(task)
		if !ok || !r.TriggerAt.After(now) {
			continue
		}
		key := reminderKeyPrefix + r.Key()
		want[key] = true
		if m.engine.Pending(key) {
			continue
		}
		err := m.engine.Schedule(scheduler.Event{
			Key:       key,
			Kind:      scheduler.KindReminder,
			TaskID:    r.TaskID,
			Text:      r.Text,
			TriggerAt: r.TriggerAt,
		})
		if err != nil {
			log.Printf("schedule reminder %s: %v", key, err)
			continue
		}
	}
	for key := range m.reminders {
		if !want[key] {
			m.engine.Cancel(key)
		}
	}
	m.reminders = want
}

func (m Model) onSchedulerEvent(ev scheduler.Event) (Model, tea.Cmd) {
	next := waitForEvent(m.engine)
	switch ev.Kind {
	case scheduler.KindJob:
		switch ev.Name {
		case jobPoll:
			refresh := m.refresh()
			return m, tea.Batch(next, refresh)
		case jobRepeat:
			return m, tea.Batch(next, m.processRepeating())
		case jobStats:
			return m, tea.Batch(next, m.fetchStats())
		case jobPrune:
			return m, tea.Batch(next, m.pruneReminders())
		default:
			log.Printf("unknown scheduler job %q", ev.Name)
		}
	case scheduler.KindReminder:
		delete(m.reminders, ev.Key)
		if !m.reminderStillValid(ev) || m.fired[ev.Key] {
			return m, next
		}
		m.fired[ev.Key] = true
		return m, tea.Batch(next, m.recordReminder(ev))
	}
	return m, next
}

// reminderStillValid drops events for tasks completed, deleted or
// rescheduled after the event was armed.
func (m Model) reminderStillValid(ev scheduler.Event) bool {
	task, err := m.store.Task(ev.TaskID)
	if err != nil {
		return false
	}
	r, ok := model.ReminderFor(task)
	return ok && reminderKeyPrefix+r.Key() == ev.Key
}

// recordReminder consults the persistent log so a reminder shown in an
// earlier session is not shown again.
func (m *Model) recordReminder(ev scheduler.Event) tea.Cmd {
	cache, now := m.cache, m.now
	return func() tea.Msg {
		if cache == nil {
			return reminderCheckedMsg{event: ev}
		}
		ctx := context.Background()
		seen, err := cache.ReminderFired(ctx, ev.Key)
		if err != nil {
			log.Printf("check reminder log %s: %v", ev.Key, err)
		}
		if seen {
			return reminderCheckedMsg{event: ev, duplicate: true}
		}
		err = cache.MarkReminderFired(ctx, storage.FiredReminder{Key: ev.Key, TaskID: ev.TaskID, FiredAt: now()})
		if err != nil {
			log.Printf("record reminder %s: %v", ev.Key, err)
		}
		return reminderCheckedMsg{event: ev}
	}
}

func (m Model) onReminderChecked(msg reminderCheckedMsg) Model {
	if msg.duplicate {
		return m
	}
	body := msg.event.Text
	if task, err := m.store.Task(msg.event.TaskID); err == nil {
		if due, ok := task.When(); ok {
			body = fmt.Sprintf("%s (due %s)", strings.TrimSpace(task.Text), due.Format("15:04"))
		}
	}
	m.setStatus("reminder: "+body, false)
	m.notify("Reminder", body, "warn")
	return m
}
