package update

import (
	"context"
	"errors"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/taskdesk/internal/api"
	"github.com/sandeepkv93/taskdesk/internal/model"
	"github.com/sandeepkv93/taskdesk/internal/scheduler"
	"github.com/sandeepkv93/taskdesk/internal/storage"
	"github.com/sandeepkv93/taskdesk/internal/store"
	"github.com/sandeepkv93/taskdesk/internal/taskview"
)

// refresh re-fetches the task lists and stats, plus the directory shown on
// the current screen. Every fetch takes a fresh sequence number so a slow
// response never overwrites a newer one.
func (m *Model) refresh() tea.Cmd {
	cmds := []tea.Cmd{m.fetchTasks(), m.fetchStats(), m.startLoading()}
	switch m.Screen {
	case ScreenCategories:
		cmds = append(cmds, m.fetchCategories())
	case ScreenContacts:
		cmds = append(cmds, m.fetchContacts())
	}
	return tea.Batch(cmds...)
}

func (m *Model) refreshAll() tea.Cmd {
	return tea.Batch(m.fetchTasks(), m.fetchCategories(), m.fetchContacts(), m.fetchStats(), m.startLoading())
}

func (m *Model) startLoading() tea.Cmd {
	if m.loading {
		return nil
	}
	m.loading = true
	return m.syncSpinner.Tick
}

func (m *Model) fetchTasks() tea.Cmd {
	seq := m.store.NextSeq()
	m.lastFetch = seq
	client, now := m.client, m.now
	return func() tea.Msg {
		list, err := client.ListTasks(context.Background())
		return tasksLoadedMsg{seq: seq, list: list, at: now(), err: err}
	}
}

func (m *Model) fetchCategories() tea.Cmd {
	seq := m.store.NextSeq()
	client := m.client
	return func() tea.Msg {
		cats, err := client.ListCategories(context.Background())
		return categoriesLoadedMsg{seq: seq, categories: cats, err: err}
	}
}

func (m *Model) fetchContacts() tea.Cmd {
	seq := m.store.NextSeq()
	client := m.client
	return func() tea.Msg {
		contacts, err := client.ListContacts(context.Background())
		return contactsLoadedMsg{seq: seq, contacts: contacts, err: err}
	}
}

func (m *Model) fetchStats() tea.Cmd {
	seq := m.store.NextSeq()
	client := m.client
	return func() tea.Msg {
		stats, err := client.Stats(context.Background())
		return statsLoadedMsg{seq: seq, stats: stats, err: err}
	}
}

func (m *Model) processRepeating() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		created, err := client.ProcessRepeating(context.Background())
		return repeatProcessedMsg{created: created, err: err}
	}
}

func (m *Model) fetchAgenda(day time.Time) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		tasks, err := client.TasksOnDate(context.Background(), day)
		return agendaLoadedMsg{day: day, tasks: tasks, err: err}
	}
}

// mutate runs one backend write. A directory mutation also refreshes
// categories and contacts afterwards.
func (m *Model) mutate(directory bool, fn func(ctx context.Context, c *api.Client) (string, error)) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		msg, err := fn(context.Background(), client)
		return mutationDoneMsg{message: msg, directory: directory, err: err}
	}
}

// mutateCategory is mutate for category renames and deletes; the active
// filter follows change only when the backend call succeeds.
func (m *Model) mutateCategory(change categoryChange, fn func(ctx context.Context, c *api.Client) (string, error)) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		msg, err := fn(context.Background(), client)
		return mutationDoneMsg{message: msg, directory: true, category: &change, err: err}
	}
}

func (m *Model) loadSnapshot() tea.Cmd {
	if m.cache == nil {
		return nil
	}
	cache := m.cache
	return func() tea.Msg {
		snap, err := cache.LoadSnapshot(context.Background())
		return snapshotLoadedMsg{snap: snap, err: err}
	}
}

func (m *Model) saveSnapshot() tea.Cmd {
	if m.cache == nil {
		return nil
	}
	cache, snap := m.cache, m.store.Snapshot()
	return func() tea.Msg {
		if err := cache.SaveSnapshot(context.Background(), snap); err != nil {
			log.Printf("save snapshot: %v", err)
		}
		return nil
	}
}

func (m *Model) pruneReminders() tea.Cmd {
	if m.cache == nil {
		return nil
	}
	cache, cutoff := m.cache, m.now().Add(-reminderRetention)
	return func() tea.Msg {
		n, err := cache.PruneReminders(context.Background(), cutoff)
		if err != nil {
			log.Printf("prune reminder log: %v", err)
		} else if n > 0 {
			log.Printf("pruned %d reminder log entries", n)
		}
		return nil
	}
}

func waitForEvent(engine *scheduler.Engine) tea.Cmd {
	if engine == nil {
		return nil
	}
	ch := engine.C()
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return schedulerEventMsg{event: ev}
	}
}

// recompute re-runs the pipeline over the store and keeps the cursor on the
// same task when it is still visible.
func (m *Model) recompute() {
	var selected int64
	if task, ok := m.SelectedTask(); ok {
		selected = task.ID
	}
	res := taskview.Compute(taskview.Input{
		Tasks:    m.store.Tasks(),
		Archived: m.store.Archived(),
	}, m.ViewState, m.now())
	m.Rows = res.Rows

	m.Cursor = clampCursor(m.Cursor, len(m.Rows))
	if selected != 0 {
		for i, row := range m.Rows {
			if row.Task.ID == selected {
				m.Cursor = i
				break
			}
		}
	}
	m.CategoryCursor = clampCursor(m.CategoryCursor, len(m.store.Categories()))
	m.ContactCursor = clampCursor(m.ContactCursor, len(m.visibleContacts()))
	m.syncBubbleData()
}

func (m Model) visibleContacts() []model.Contact {
	return taskview.VisibleContacts(m.store.Contacts(), m.ViewState)
}

func clampCursor(cursor, n int) int {
	if n == 0 {
		return 0
	}
	return min(max(cursor, 0), n-1)
}

func (m Model) onTasksLoaded(msg tasksLoadedMsg) (Model, tea.Cmd) {
	if m.store.Superseded(store.CollectionTasks, msg.seq) {
		return m, nil
	}
	if msg.seq >= m.lastFetch {
		m.loading = false
	}
	if msg.err != nil {
		return m.onFetchFailed(msg.err), nil
	}
	m.store.ApplyTasks(msg.seq, msg.list.Tasks, msg.list.Archived, msg.at)
	if m.Offline {
		m.Offline = false
		m.setStatus("backend reachable again", false)
		m.notify("Sync", "backend reachable again", "info")
	}
	m.recompute()
	m.syncReminders()
	return m, m.saveSnapshot()
}

// onFetchFailed keeps the last good state. Repeated poll failures notify
// once, not on every tick.
func (m Model) onFetchFailed(err error) Model {
	m.LastError = err
	text := "refresh failed: " + err.Error()
	m.Status = StatusBar{Text: text, IsError: true}
	if !m.Offline && api.IsNetworkOrServer(err) {
		m.Offline = true
		m.notify("Sync", text, "error")
	}
	return m
}

func (m Model) onCategoriesLoaded(msg categoriesLoadedMsg) (Model, tea.Cmd) {
	if m.store.Superseded(store.CollectionCategories, msg.seq) {
		return m, nil
	}
	if msg.err != nil {
		return m.onFetchFailed(msg.err), nil
	}
	if !m.store.ApplyCategories(msg.seq, msg.categories) {
		return m, nil
	}
	if m.ViewState.ActiveCategory != nil {
		if _, err := m.store.Category(*m.ViewState.ActiveCategory); err != nil {
			m.ViewState = m.ViewState.FilterByCategory("")
		}
	}
	m.recompute()
	return m, m.saveSnapshot()
}

func (m Model) onContactsLoaded(msg contactsLoadedMsg) (Model, tea.Cmd) {
	if m.store.Superseded(store.CollectionContacts, msg.seq) {
		return m, nil
	}
	if msg.err != nil {
		return m.onFetchFailed(msg.err), nil
	}
	if !m.store.ApplyContacts(msg.seq, msg.contacts) {
		return m, nil
	}
	m.recompute()
	return m, m.saveSnapshot()
}

// onStatsLoaded falls back to counting the local task list when the stats
// endpoint fails.
func (m Model) onStatsLoaded(msg statsLoadedMsg) Model {
	stats, local := msg.stats, false
	if msg.err != nil {
		stats, local = taskview.LocalStats(m.store.Tasks()), true
	}
	if !m.store.ApplyStats(msg.seq, stats) {
		return m
	}
	m.Stats = m.store.Stats()
	m.StatsLocal = local
	return m
}

func (m Model) onRepeatProcessed(msg repeatProcessedMsg) (Model, tea.Cmd) {
	if msg.err != nil {
		log.Printf("process repeating tasks: %v", msg.err)
		return m, nil
	}
	if msg.created <= 0 {
		return m, nil
	}
	m.store.Invalidate()
	m.notify("Repeat", pluralize(msg.created, "repeating task")+" created", "info")
	cmd := m.refresh()
	return m, cmd
}

func (m Model) onMutationDone(msg mutationDoneMsg) (Model, tea.Cmd) {
	if msg.err != nil {
		m.fail("", msg.err)
		return m, nil
	}
	m.store.Invalidate()
	if msg.category != nil {
		m.applyCategoryChange(*msg.category)
	}
	m.setStatus(msg.message, false)
	m.notify("Command", msg.message, "info")
	cmd := m.refresh()
	if msg.directory {
		cmd = tea.Batch(cmd, m.fetchCategories(), m.fetchContacts())
	}
	return m, cmd
}

func (m *Model) applyCategoryChange(c categoryChange) {
	active := m.ViewState.ActiveCategory
	if active == nil || *active != c.from {
		return
	}
	if c.to == "" {
		m.ViewState = m.ViewState.FilterByCategory("")
	} else {
		m.ViewState = m.ViewState.SelectCategory(c.to)
	}
	m.recompute()
}

func (m Model) onAgendaLoaded(msg agendaLoadedMsg) Model {
	if !msg.day.Equal(m.agenda.Day) {
		return m
	}
	m.agenda.Loading = false
	if msg.err != nil {
		m.agenda.Tasks = nil
		m.fail("agenda", msg.err)
		return m
	}
	m.agenda.Tasks = taskview.SortTasks(msg.tasks, taskview.SortCanonical)
	return m
}

func (m Model) onSnapshotLoaded(msg snapshotLoadedMsg) Model {
	if msg.err != nil {
		if !errors.Is(msg.err, storage.ErrNotFound) {
			log.Printf("load snapshot: %v", msg.err)
		}
		return m
	}
	if !m.store.Seed(msg.snap) {
		return m
	}
	m.recompute()
	m.syncReminders()
	m.setStatus("showing cached data from "+msg.snap.FetchedAt.Local().Format("2006-01-02 15:04"), false)
	return m
}

