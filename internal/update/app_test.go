package update

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/taskdesk/internal/api"
	"github.com/sandeepkv93/taskdesk/internal/api/apitest"
	"github.com/sandeepkv93/taskdesk/internal/config"
	"github.com/sandeepkv93/taskdesk/internal/model"
	"github.com/sandeepkv93/taskdesk/internal/scheduler"
	"github.com/sandeepkv93/taskdesk/internal/storage"
	"github.com/sandeepkv93/taskdesk/internal/store"
)

var testNow = time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)

type harness struct {
	backend *apitest.Server
	cfg     config.Config
	client  *api.Client
}

func newHarness(t *testing.T, backend *apitest.Server) harness {
	t.Helper()
	backend.SetClock(func() time.Time { return testNow })
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.PrefsPath = filepath.Join(t.TempDir(), "prefs.json")
	cfg.LogFile = ""
	return harness{
		backend: backend,
		cfg:     cfg,
		client:  api.NewClient(srv.URL+"/api", api.WithTimeout(2*time.Second)),
	}
}

func (h harness) model(opts Options) Model {
	opts.Config = h.cfg
	opts.Client = h.client
	opts.Now = func() time.Time { return testNow }
	return NewModel(opts)
}

// loaded returns a model over the demo workspace after its first refresh.
func loaded(t *testing.T) (Model, harness) {
	t.Helper()
	h := newHarness(t, apitest.NewDemo(testNow))
	m := h.model(Options{})
	m = run(t, m, (*Model).refreshAll)
	return m, h
}

// runCmd gives up on commands that block, such as the scheduler wait.
func runCmd(cmd tea.Cmd) (tea.Msg, bool) {
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		return msg, true
	case <-time.After(300 * time.Millisecond):
		return nil, false
	}
}

func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 200 {
			t.Fatal("command queue did not settle")
		}
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		msg, ok := runCmd(next)
		if !ok || msg == nil {
			continue
		}
		switch typed := msg.(type) {
		case tea.BatchMsg:
			queue = append(queue, typed...)
			continue
		case spinner.TickMsg:
			continue
		}
		updated, c := m.Update(msg)
		m = updated.(Model)
		queue = append(queue, c)
	}
	return m
}

// run builds a command on m before draining it, so pointer-receiver
// builders see and update the same model.
func run(t *testing.T, m Model, build func(*Model) tea.Cmd) Model {
	t.Helper()
	cmd := build(&m)
	return drain(t, m, cmd)
}

func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, cmd := m.Update(msg)
	return drain(t, updated.(Model), cmd)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func runCommand(t *testing.T, m Model, line string) Model {
	t.Helper()
	m = send(t, m, runes("/"))
	if !m.Palette.Active {
		t.Fatal("expected palette to open")
	}
	m = send(t, m, runes(line))
	return send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

func rowIDs(m Model) []int64 {
	out := make([]int64, 0, len(m.Rows))
	for _, row := range m.Rows {
		out = append(out, row.Task.ID)
	}
	return out
}

func lastNotification(m Model) Notification {
	if len(m.Notifications) == 0 {
		return Notification{}
	}
	return m.Notifications[len(m.Notifications)-1]
}

func TestQuitKeySetsQuitting(t *testing.T) {
	h := newHarness(t, apitest.New())
	m := h.model(Options{})
	updated, cmd := m.Update(runes("q"))
	next := updated.(Model)
	if !next.Quitting {
		t.Fatal("expected quitting state")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
}

func TestRefreshBuildsOrderedTree(t *testing.T) {
	m, _ := loaded(t)

	if got, want := rowIDs(m), []int64{1, 2, 3, 7, 5, 4}; !slices.Equal(got, want) {
		t.Fatalf("rows = %v, want %v", got, want)
	}
	depths := make([]int, 0, len(m.Rows))
	for _, row := range m.Rows {
		depths = append(depths, row.Depth)
	}
	if !slices.Equal(depths, []int{0, 1, 1, 0, 0, 0}) {
		t.Fatalf("unexpected depths %v", depths)
	}
	deps := m.Rows[2].Dependencies
	if len(deps) != 2 || deps[1].Label != "Set up reporting template" || !deps[1].Resolved {
		t.Fatalf("expected archived dependency to resolve, got %+v", deps)
	}
	if m.Loading() || m.store.Stale() {
		t.Fatal("expected loaded, fresh store")
	}
	if m.Stats.Total != 7 || m.Stats.Completed != 1 || m.StatsLocal {
		t.Fatalf("unexpected stats %+v", m.Stats)
	}
	if !strings.Contains(m.View(), "taskdesk | screen: tasks") {
		t.Fatal("expected header in view")
	}
}

func TestOlderResponseIsDiscarded(t *testing.T) {
	h := newHarness(t, apitest.New())
	m := h.model(Options{})
	older, newer := m.store.NextSeq(), m.store.NextSeq()

	m = send(t, m, tasksLoadedMsg{seq: newer, list: api.TaskList{Tasks: []model.Task{{ID: 2, Text: "new"}}}, at: testNow})
	m = send(t, m, tasksLoadedMsg{seq: older, list: api.TaskList{Tasks: []model.Task{{ID: 1, Text: "old"}}}, at: testNow})

	if !slices.Equal(rowIDs(m), []int64{2}) {
		t.Fatalf("expected newest response to win, rows=%v", rowIDs(m))
	}
}

func TestSupersededFailureIsIgnored(t *testing.T) {
	h := newHarness(t, apitest.New())
	m := h.model(Options{})
	older, newer := m.store.NextSeq(), m.store.NextSeq()
	gateway := &api.Error{Status: http.StatusBadGateway, Message: "bad gateway"}

	m = send(t, m, tasksLoadedMsg{seq: newer, list: api.TaskList{Tasks: []model.Task{{ID: 2, Text: "new"}}}, at: testNow})
	m = send(t, m, categoriesLoadedMsg{seq: newer, categories: []model.Category{{Name: "Work"}}})
	m = send(t, m, tasksLoadedMsg{seq: older, err: gateway})
	m = send(t, m, categoriesLoadedMsg{seq: older, err: gateway})
	m = send(t, m, contactsLoadedMsg{seq: older, err: gateway})

	if m.Offline || m.Status.IsError || m.LastError != nil {
		t.Fatalf("expected late failures to be ignored, offline=%v status=%+v", m.Offline, m.Status)
	}
	if !slices.Equal(rowIDs(m), []int64{2}) || len(m.store.Categories()) != 1 {
		t.Fatalf("expected newest data kept, rows=%v categories=%v", rowIDs(m), m.store.Categories())
	}
}

func TestStaleStatsReplyIsIgnored(t *testing.T) {
	m, _ := loaded(t)
	older, newer := m.store.NextSeq(), m.store.NextSeq()

	m = send(t, m, statsLoadedMsg{seq: newer, stats: model.Stats{Total: 4, Completed: 2}})
	m = send(t, m, statsLoadedMsg{seq: older, stats: model.Stats{Total: 9}})
	if m.Stats.Total != 4 || m.Stats.Completed != 2 || m.StatsLocal {
		t.Fatalf("expected newest stats kept, got %+v local=%v", m.Stats, m.StatsLocal)
	}
	m = send(t, m, statsLoadedMsg{seq: older, err: &api.Error{Status: http.StatusBadGateway}})
	if m.StatsLocal || m.Stats.Total != 4 {
		t.Fatalf("expected late failure not to fall back to local stats, got %+v local=%v", m.Stats, m.StatsLocal)
	}
}

func TestLoadingWaitsForLatestTaskFetch(t *testing.T) {
	m, _ := loaded(t)
	first := m.store.NextSeq()
	m.loading = true
	m.lastFetch = m.store.NextSeq()

	m = send(t, m, tasksLoadedMsg{seq: first, list: api.TaskList{Tasks: []model.Task{{ID: 1, Text: "first"}}}, at: testNow})
	if !m.Loading() {
		t.Fatal("expected spinner to keep running while a newer fetch is pending")
	}
	m = send(t, m, tasksLoadedMsg{seq: m.lastFetch, list: api.TaskList{Tasks: []model.Task{{ID: 2, Text: "second"}}}, at: testNow})
	if m.Loading() || !slices.Equal(rowIDs(m), []int64{2}) {
		t.Fatalf("expected latest fetch to finish loading, loading=%v rows=%v", m.Loading(), rowIDs(m))
	}
}

func TestPaletteDaysFilterPersists(t *testing.T) {
	m, h := loaded(t)
	m = runCommand(t, m, "days 0")

	if m.ViewState.DaysFilter != 0 || !slices.Contains(rowIDs(m), 6) {
		t.Fatalf("expected horizon off and task 6 visible, rows=%v", rowIDs(m))
	}
	restarted := h.model(Options{})
	if restarted.ViewState.DaysFilter != 0 {
		t.Fatalf("expected persisted days filter, got %d", restarted.ViewState.DaysFilter)
	}
}

func TestViewChangesRefreshFromBackend(t *testing.T) {
	m, h := loaded(t)
	created, err := h.client.CreateTask(t.Context(), model.Task{Text: "behind the cache"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if slices.Contains(rowIDs(m), created.ID) {
		t.Fatal("expected the model not to know the task yet")
	}

	m = runCommand(t, m, "days 0")
	if !slices.Contains(rowIDs(m), created.ID) {
		t.Fatalf("expected days filter change to refresh, rows=%v", rowIDs(m))
	}

	second, err := h.client.CreateTask(t.Context(), model.Task{Text: "added elsewhere"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	m = send(t, m, runes("a"))
	m = send(t, m, runes("a"))
	if m.ViewState.ShowArchive || !slices.Contains(rowIDs(m), second.ID) {
		t.Fatalf("expected archive toggle to refresh, rows=%v", rowIDs(m))
	}
}

func TestPaletteAddUsesActiveCategory(t *testing.T) {
	m, h := loaded(t)
	m = runCommand(t, m, "cat Work")
	if m.ViewState.CategoryLabel() != "Work" {
		t.Fatalf("expected Work filter, got %s", m.ViewState.CategoryLabel())
	}
	m = runCommand(t, m, "add write tests")

	var created model.Task
	for _, task := range h.backend.Tasks() {
		if task.Text == "write tests" {
			created = task
		}
	}
	if created.ID == 0 || created.CategoryName() != "Work" {
		t.Fatalf("expected task created in Work, got %+v", created)
	}
	if m.Status.IsError || m.Status.Text != "added: write tests" {
		t.Fatalf("unexpected status %+v", m.Status)
	}
	if !slices.Contains(rowIDs(m), created.ID) {
		t.Fatal("expected refreshed view to show the new task")
	}
}

func TestPaletteAddMany(t *testing.T) {
	m, h := loaded(t)
	before := len(h.backend.Tasks())
	m = runCommand(t, m, "addmany milk; eggs")
	if len(h.backend.Tasks()) != before+2 {
		t.Fatalf("expected two tasks created, got %d", len(h.backend.Tasks())-before)
	}
	if m.Status.Text != "added 2 of 2" {
		t.Fatalf("unexpected status %q", m.Status.Text)
	}
}

func TestLocalFailuresMakeNoRequest(t *testing.T) {
	m, h := loaded(t)
	cases := []struct {
		line string
		want string
	}{
		{"done 99", "not found locally"},
		{"parent 2 3", "not a top-level task"},
		{"assign 1 4242", "not found locally"},
		{"cat Nowhere", "not found locally"},
		{"contact add dana", "@handle"},
		{"frobnicate", "unknown"},
	}
	for _, tc := range cases {
		before := len(h.backend.RequestIDs())
		m = runCommand(t, m, tc.line)
		if !m.Status.IsError || !strings.Contains(m.Status.Text, tc.want) {
			t.Fatalf("%q: unexpected status %+v", tc.line, m.Status)
		}
		if after := len(h.backend.RequestIDs()); after != before {
			t.Fatalf("%q: expected no request, got %d", tc.line, after-before)
		}
	}
}

func TestToggleKeyCompletesSelectedTask(t *testing.T) {
	m, h := loaded(t)
	m = send(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})

	for _, task := range h.backend.Tasks() {
		if task.ID == 1 && !task.Completed {
			t.Fatal("expected task 1 completed on backend")
		}
	}
	if sel, ok := m.SelectedTask(); !ok || sel.ID != 1 || !sel.Completed {
		t.Fatalf("expected cursor to follow task 1, got %+v", sel)
	}
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	m, h := loaded(t)
	m = send(t, m, runes("j"))
	m = send(t, m, runes("d"))
	if !strings.Contains(m.View(), "confirm: delete #2") {
		t.Fatal("expected confirmation prompt")
	}
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if len(h.backend.Tasks()) != 7 {
		t.Fatal("expected cancel to keep the task")
	}

	m = send(t, m, runes("d"))
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if len(h.backend.Tasks()) != 6 || slices.Contains(rowIDs(m), 2) {
		t.Fatalf("expected task 2 deleted, rows=%v", rowIDs(m))
	}
}

func TestDeleteArchivedUsesArchiveEndpoint(t *testing.T) {
	m, h := loaded(t)
	m = runCommand(t, m, "archive")
	if !m.ViewState.ShowArchive || !slices.Equal(rowIDs(m), []int64{9}) {
		t.Fatalf("expected archive view, rows=%v", rowIDs(m))
	}
	m = runCommand(t, m, "del 9")
	if len(h.backend.Archived()) != 0 || len(m.Rows) != 0 {
		t.Fatalf("expected archived task removed, status=%+v", m.Status)
	}
}

func TestFetchFailureKeepsLastGoodState(t *testing.T) {
	m, h := loaded(t)
	h.backend.FailNext(http.StatusInternalServerError, "database unavailable")
	m = run(t, m, (*Model).refresh)

	if len(m.Rows) != 6 {
		t.Fatalf("expected last good rows kept, got %v", rowIDs(m))
	}
	if !m.Offline || !m.Status.IsError || !strings.Contains(m.Status.Text, "database unavailable") {
		t.Fatalf("expected offline error status, got %+v", m.Status)
	}
	if lastNotification(m).Level != "error" {
		t.Fatalf("expected error notification, got %+v", lastNotification(m))
	}

	m = run(t, m, (*Model).refresh)
	if m.Offline || m.Status.Text != "backend reachable again" {
		t.Fatalf("expected recovery, got %+v", m.Status)
	}
}

func TestStatsFallBackToLocalCount(t *testing.T) {
	m, h := loaded(t)
	h.backend.FailNext(http.StatusBadGateway, "stats down")
	m = run(t, m, (*Model).fetchStats)
	if !m.StatsLocal || m.Stats.Total != 7 || m.Stats.Completed != 1 {
		t.Fatalf("expected local stats, got %+v local=%v", m.Stats, m.StatsLocal)
	}
	if !strings.Contains(m.View(), "(local)") {
		t.Fatal("expected local marker in view")
	}
}

func TestRepeatTriggerRefreshesWhenCreated(t *testing.T) {
	backend := apitest.New()
	past := testNow.Add(-(7*24 + 12) * time.Hour).Format(time.RFC3339)
	backend.Seed([]model.Task{{ID: 1, Text: "Weekly review", Datetime: &past, Completed: true, RepeatInterval: model.RepeatWeek}}, nil, nil, nil)
	h := newHarness(t, backend)
	m := h.model(Options{})
	m = run(t, m, (*Model).refreshAll)
	if len(m.Rows) != 1 {
		t.Fatalf("expected one task, rows=%v", rowIDs(m))
	}

	m = run(t, m, (*Model).processRepeating)
	if len(m.Rows) != 2 {
		t.Fatalf("expected materialized instance after trigger, rows=%v", rowIDs(m))
	}
	if !strings.Contains(lastNotification(m).Body, "1 repeating task created") {
		t.Fatalf("unexpected notification %+v", lastNotification(m))
	}

	m = run(t, m, (*Model).processRepeating)
	if len(m.Rows) != 2 {
		t.Fatalf("expected no further instances, rows=%v", rowIDs(m))
	}
}

func openCache(t *testing.T, path string) *storage.SQLiteCache {
	t.Helper()
	cache, err := storage.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestReminderFiresOncePerOccurrence(t *testing.T) {
	backend := apitest.New()
	due := testNow.Add(time.Hour).Format(time.RFC3339)
	backend.Seed([]model.Task{{ID: 1, Text: "Call the bank", Datetime: &due, ReminderTime: intPtr(30)}}, nil, nil, nil)
	h := newHarness(t, backend)

	engine := scheduler.NewEngine(8)
	t.Cleanup(engine.Stop)
	cache := openCache(t, filepath.Join(t.TempDir(), "cache.db"))

	m := h.model(Options{Engine: engine, Cache: cache})
	m = run(t, m, (*Model).refreshAll)

	reminder, _ := model.ReminderFor(m.store.Tasks()[0])
	key := reminderKeyPrefix + reminder.Key()
	if !engine.Pending(key) {
		t.Fatalf("expected reminder %s to be scheduled", key)
	}
	ev := scheduler.Event{Key: key, Kind: scheduler.KindReminder, TaskID: 1, Text: "Call the bank", TriggerAt: reminder.TriggerAt}

	m = send(t, m, schedulerEventMsg{event: ev})
	if n := lastNotification(m); n.Title != "Reminder" || !strings.Contains(n.Body, "Call the bank") {
		t.Fatalf("expected reminder notification, got %+v", n)
	}
	count := len(m.Notifications)
	m = send(t, m, schedulerEventMsg{event: ev})
	if len(m.Notifications) != count {
		t.Fatal("expected reminder to fire once per session")
	}

	restarted := h.model(Options{Cache: cache})
	restarted = run(t, restarted, (*Model).refreshAll)
	before := len(restarted.Notifications)
	restarted = send(t, restarted, schedulerEventMsg{event: ev})
	if len(restarted.Notifications) != before {
		t.Fatal("expected reminder log to suppress a repeat in a new session")
	}
}

func TestReminderCancelledWhenTaskCompleted(t *testing.T) {
	backend := apitest.New()
	due := testNow.Add(time.Hour).Format(time.RFC3339)
	backend.Seed([]model.Task{{ID: 1, Text: "Call the bank", Datetime: &due, ReminderTime: intPtr(30)}}, nil, nil, nil)
	h := newHarness(t, backend)
	engine := scheduler.NewEngine(8)
	t.Cleanup(engine.Stop)

	m := h.model(Options{Engine: engine})
	m = run(t, m, (*Model).refreshAll)
	reminder, _ := model.ReminderFor(m.store.Tasks()[0])
	key := reminderKeyPrefix + reminder.Key()

	m = runCommand(t, m, "done 1")
	if engine.Pending(key) {
		t.Fatal("expected reminder cancelled after completion")
	}
	m = send(t, m, schedulerEventMsg{event: scheduler.Event{Key: key, Kind: scheduler.KindReminder, TaskID: 1}})
	if lastNotification(m).Title == "Reminder" {
		t.Fatal("expected no reminder for a completed task")
	}
}

func TestOfflineStartShowsCachedSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	cache := openCache(t, path)
	err := cache.SaveSnapshot(t.Context(), store.Snapshot{
		Tasks:     []model.Task{{ID: 40, Text: "cached task"}},
		FetchedAt: testNow.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	h := newHarness(t, apitest.NewDemo(testNow))
	m := h.model(Options{Cache: cache})
	m = run(t, m, (*Model).loadSnapshot)
	if !slices.Equal(rowIDs(m), []int64{40}) || !m.store.Stale() {
		t.Fatalf("expected stale cached rows, got %v", rowIDs(m))
	}
	if !strings.Contains(m.View(), "cached") {
		t.Fatal("expected cached marker in view")
	}

	m = run(t, m, (*Model).refreshAll)
	if slices.Contains(rowIDs(m), 40) {
		t.Fatal("expected live data to replace the cache")
	}
	m = run(t, m, (*Model).loadSnapshot)
	if slices.Contains(rowIDs(m), 40) {
		t.Fatal("expected a late snapshot not to override live data")
	}

	saved, err := cache.LoadSnapshot(t.Context())
	if err != nil || len(saved.Tasks) != 7 || len(saved.Categories) != 3 {
		t.Fatalf("expected live snapshot saved, got %d tasks %d categories err=%v", len(saved.Tasks), len(saved.Categories), err)
	}
}

func TestCategoriesScreenFiltersTasks(t *testing.T) {
	m, _ := loaded(t)
	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.Screen != ScreenCategories {
		t.Fatalf("expected categories screen, got %s", m.Screen)
	}
	m = send(t, m, runes("j"))
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.Screen != ScreenTasks || m.ViewState.CategoryLabel() != "Home" {
		t.Fatalf("expected Home filter on tasks, got %s %s", m.Screen, m.ViewState.CategoryLabel())
	}
	if !slices.Equal(rowIDs(m), []int64{7, 4}) {
		t.Fatalf("unexpected Home rows %v", rowIDs(m))
	}

	m = send(t, m, runes("c"))
	if m.ViewState.CategoryLabel() != "Shopping" {
		t.Fatalf("expected cycle to Shopping, got %s", m.ViewState.CategoryLabel())
	}
	m = send(t, m, runes("c"))
	if m.ViewState.ActiveCategory != nil {
		t.Fatal("expected cycle past the last category to clear the filter")
	}
}

func TestCategoryManagement(t *testing.T) {
	m, h := loaded(t)
	m = runCommand(t, m, "newcat Errands #ffcc00")
	m = runCommand(t, m, "move Errands 0")
	names := make([]string, 0)
	for _, c := range h.backend.Categories() {
		names = append(names, c.Name)
	}
	if !slices.Equal(names, []string{"Errands", "Work", "Home", "Shopping"}) {
		t.Fatalf("unexpected category order %v", names)
	}

	m = runCommand(t, m, "cat Work")
	m = runCommand(t, m, "editcat Work Office")
	if m.ViewState.CategoryLabel() != "Office" {
		t.Fatalf("expected filter to follow rename, got %s", m.ViewState.CategoryLabel())
	}
	if !slices.Equal(rowIDs(m), []int64{1, 2, 3}) {
		t.Fatalf("expected renamed category tasks, rows=%v", rowIDs(m))
	}

	m = runCommand(t, m, "delcat Office")
	if !m.Status.IsError {
		t.Fatal("expected backend to refuse deleting a category in use")
	}
	m = runCommand(t, m, "delcat Errands")
	if m.Status.IsError {
		t.Fatalf("unexpected error %s", m.Status.Text)
	}
}

func TestEditCategoryKeepsFilterOnSameName(t *testing.T) {
	m, h := loaded(t)
	m = runCommand(t, m, "cat Work")
	m = runCommand(t, m, "editcat Work Work #ff0000")
	if m.Status.IsError {
		t.Fatalf("unexpected error %s", m.Status.Text)
	}
	if m.ViewState.CategoryLabel() != "Work" || !slices.Equal(rowIDs(m), []int64{1, 2, 3}) {
		t.Fatalf("expected Work filter kept, got %s rows=%v", m.ViewState.CategoryLabel(), rowIDs(m))
	}
	if c, err := m.store.Category("Work"); err != nil || c.Color != "#ff0000" {
		t.Fatalf("expected colour updated, got %+v err=%v", c, err)
	}
	if len(h.backend.Categories()) != 3 {
		t.Fatalf("unexpected categories %v", h.backend.Categories())
	}
}

func TestCategoryFilterUnchangedWhenBackendRefuses(t *testing.T) {
	m, h := loaded(t)
	m = runCommand(t, m, "cat Work")

	h.backend.FailNext(http.StatusInternalServerError, "rename failed")
	m = runCommand(t, m, "editcat Work Office")
	if !m.Status.IsError || !strings.Contains(m.Status.Text, "rename failed") {
		t.Fatalf("expected rename error, got %+v", m.Status)
	}
	if m.ViewState.CategoryLabel() != "Work" || !slices.Equal(rowIDs(m), []int64{1, 2, 3}) {
		t.Fatalf("expected Work filter kept after failed rename, got %s rows=%v", m.ViewState.CategoryLabel(), rowIDs(m))
	}

	m = runCommand(t, m, "delcat Work")
	if !m.Status.IsError {
		t.Fatal("expected backend to refuse deleting a category in use")
	}
	if m.ViewState.CategoryLabel() != "Work" || !slices.Equal(rowIDs(m), []int64{1, 2, 3}) {
		t.Fatalf("expected Work filter kept after failed delete, got %s rows=%v", m.ViewState.CategoryLabel(), rowIDs(m))
	}
}

func TestDeletedCategoryClearsFilter(t *testing.T) {
	m, _ := loaded(t)
	m = runCommand(t, m, "newcat Side project")
	m = runCommand(t, m, "cat Side project")
	if m.ViewState.CategoryLabel() != "Side project" {
		t.Fatalf("expected Side project filter, got %s", m.ViewState.CategoryLabel())
	}
	m = runCommand(t, m, "editcat Side project -> Hobby #ffcc00")
	if m.Status.IsError || m.ViewState.CategoryLabel() != "Hobby" {
		t.Fatalf("expected filter to follow multi-word rename, got %s status=%+v", m.ViewState.CategoryLabel(), m.Status)
	}
	if c, err := m.store.Category("Hobby"); err != nil || c.Color != "#ffcc00" {
		t.Fatalf("expected Hobby in store, got %+v err=%v", c, err)
	}

	m = runCommand(t, m, "delcat Hobby")
	if m.Status.IsError || m.ViewState.ActiveCategory != nil {
		t.Fatalf("expected delete to clear the filter, status=%+v", m.Status)
	}
}

func TestContactsSearchSortAndEdit(t *testing.T) {
	m, h := loaded(t)
	m = runCommand(t, m, "contacts lee")
	if m.Screen != ScreenContacts || len(m.visibleContacts()) != 1 {
		t.Fatalf("expected one matching contact, got %d", len(m.visibleContacts()))
	}
	m = runCommand(t, m, "contacts")
	m = runCommand(t, m, "csort name")
	if got := m.visibleContacts(); got[0].Name != "Lee" {
		t.Fatalf("expected descending order after re-selecting name, got %+v", got)
	}

	m = runCommand(t, m, "contact add @sam")
	if len(m.store.Contacts()) != 3 {
		t.Fatalf("expected contact added, status=%+v", m.Status)
	}
	m = runCommand(t, m, "contact group 1002 Colleagues")
	c, err := m.store.Contact("1002")
	if err != nil || c.Group != "Colleagues" {
		t.Fatalf("expected group updated, got %+v err=%v", c, err)
	}
	m = runCommand(t, m, "assign 5 1002")
	for _, task := range h.backend.Tasks() {
		if task.ID == 5 && task.ChatID != "1002" {
			t.Fatalf("expected task 5 assigned, got %q", task.ChatID)
		}
	}
}

func TestTaskAttributeIntents(t *testing.T) {
	m, h := loaded(t)
	m = runCommand(t, m, "due 5 2026-02-10 09:30")
	m = runCommand(t, m, "remind 5 15")
	m = runCommand(t, m, "repeat 5 month 3")
	m = runCommand(t, m, "deps 5 9")
	m = runCommand(t, m, "note 5 dark roast")

	var task model.Task
	for _, tk := range h.backend.Tasks() {
		if tk.ID == 5 {
			task = tk
		}
	}
	if task.Datetime == nil || *task.Datetime != "2026-02-10T09:30" {
		t.Fatalf("unexpected datetime %v", task.Datetime)
	}
	if task.ReminderTime == nil || *task.ReminderTime != 15 {
		t.Fatalf("unexpected reminder %v", task.ReminderTime)
	}
	if task.RepeatSummary() != "Monthly, 3 repeats" {
		t.Fatalf("unexpected repeat %q", task.RepeatSummary())
	}
	if !slices.Equal(task.Dependencies, []int64{9}) || task.Description != "dark roast" {
		t.Fatalf("unexpected deps/description %+v", task)
	}

	m = runCommand(t, m, "due 5 none")
	for _, tk := range h.backend.Tasks() {
		if tk.ID == 5 && tk.Datetime != nil {
			t.Fatalf("expected date cleared, got %v", *tk.Datetime)
		}
	}
	if m.Status.IsError {
		t.Fatalf("unexpected error %s", m.Status.Text)
	}
}

func TestDetailPaneShowsTaskAttributes(t *testing.T) {
	m, _ := loaded(t)
	m = runCommand(t, m, "days 0")
	for i := 0; i < len(m.Rows) && m.Rows[m.Cursor].Task.ID != 6; i++ {
		m = send(t, m, runes("j"))
	}
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	view := m.View()
	for _, want := range []string{"detail: #6", "Dana (@dana)", "group: Family"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in detail view", want)
		}
	}
}

func TestDayAgenda(t *testing.T) {
	m, _ := loaded(t)
	m = runCommand(t, m, "day 2026-02-09")
	if m.agenda.Loading || len(m.agenda.Tasks) != 2 {
		t.Fatalf("expected two tasks today, got %+v", m.agenda.Tasks)
	}
	if m.agenda.Tasks[0].ID != 2 {
		t.Fatalf("expected open task first, got %d", m.agenda.Tasks[0].ID)
	}
	if !strings.Contains(m.View(), "agenda 2026-02-09") {
		t.Fatal("expected agenda in view")
	}
}

func TestHelpToggle(t *testing.T) {
	h := newHarness(t, apitest.New())
	m := h.model(Options{})
	m = send(t, m, runes("?"))
	if !m.HelpVisible || !strings.Contains(m.View(), "complete / reopen") {
		t.Fatal("expected help with task bindings")
	}
}

func intPtr(v int) *int { return &v }
