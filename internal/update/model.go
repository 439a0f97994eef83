package update

import (
	"fmt"
	"log"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/taskdesk/internal/api"
	"github.com/sandeepkv93/taskdesk/internal/config"
	"github.com/sandeepkv93/taskdesk/internal/model"
	"github.com/sandeepkv93/taskdesk/internal/scheduler"
	"github.com/sandeepkv93/taskdesk/internal/storage"
	"github.com/sandeepkv93/taskdesk/internal/store"
	"github.com/sandeepkv93/taskdesk/internal/taskview"
)

type Screen string

const (
	ScreenTasks      Screen = "tasks"
	ScreenCategories Screen = "categories"
	ScreenContacts   Screen = "contacts"
)

var screenOrder = []Screen{ScreenTasks, ScreenCategories, ScreenContacts}

func isKnownScreen(s Screen) bool {
	for _, known := range screenOrder {
		if s == known {
			return true
		}
	}
	return false
}

// Scheduler job names.
const (
	jobPoll   = "poll"
	jobRepeat = "repeat"
	jobStats  = "stats"
	jobPrune  = "prune"

	reminderKeyPrefix = "reminder:"
	reminderRetention = 30 * 24 * time.Hour
	maxNotifications  = 40
)

type StatusBar struct {
	Text    string
	IsError bool
}

type Notification struct {
	Title string
	Body  string
	Level string
	At    time.Time
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

type confirmState struct {
	Prompt string
	Action tea.Cmd
}

type agendaState struct {
	Day     time.Time
	Loading bool
	Tasks   []model.Task
}

type DesktopNotifier interface {
	Send(Notification) error
}

type NoopDesktopNotifier struct{}

func (NoopDesktopNotifier) Send(Notification) error { return nil }

type ExecDesktopNotifier struct{}

func (ExecDesktopNotifier) Send(n Notification) error {
	switch runtime.GOOS {
	case "linux":
		return exec.Command("notify-send", n.Title, n.Body).Run()
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(n.Body), escapeAppleScript(n.Title))
		return exec.Command("osascript", "-e", script).Run()
	default:
		return nil
	}
}

// Model owns the session: the task store, the view state and every pending
// request. Only Update mutates it.
type Model struct {
	Screen         Screen
	ViewState      taskview.ViewState
	Rows           []taskview.Row
	Cursor         int
	CategoryCursor int
	ContactCursor  int
	DetailVisible  bool
	HelpVisible    bool
	Palette        CommandPaletteState
	Stats          model.Stats
	StatsLocal     bool
	Notifications  []Notification
	DesktopEnabled bool
	Status         StatusBar
	Keys           config.Keymap
	Offline        bool
	Quitting       bool
	LastError      error

	cfg       config.Config
	client    *api.Client
	store     *store.Store
	engine    *scheduler.Engine
	cache     storage.Cache
	notifier  DesktopNotifier
	now       func() time.Time
	confirm   *confirmState
	agenda    agendaState
	loading   bool
	lastFetch uint64
	reminders map[string]bool
	fired     map[string]bool

	commandInput   textinput.Model
	syncSpinner    spinner.Model
	helpModel      help.Model
	detailViewport viewport.Model
}

// Options wires the collaborators of a Model. Only Config is required.
type Options struct {
	Config   config.Config
	Client   *api.Client
	Engine   *scheduler.Engine
	Cache    storage.Cache
	Notifier DesktopNotifier
	Now      func() time.Time
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

type SwitchScreenMsg struct {
	Screen Screen
}

type tasksLoadedMsg struct {
	seq  uint64
	list api.TaskList
	at   time.Time
	err  error
}

type categoriesLoadedMsg struct {
	seq        uint64
	categories []model.Category
	err        error
}

type contactsLoadedMsg struct {
	seq      uint64
	contacts []model.Contact
	err      error
}

type statsLoadedMsg struct {
	seq   uint64
	stats model.Stats
	err   error
}

type repeatProcessedMsg struct {
	created int
	err     error
}

type mutationDoneMsg struct {
	message   string
	directory bool
	category  *categoryChange
	err       error
}

// categoryChange is applied to the active filter once the backend accepted
// a rename or delete. An empty to means the category was deleted.
type categoryChange struct {
	from string
	to   string
}

type agendaLoadedMsg struct {
	day   time.Time
	tasks []model.Task
	err   error
}

type snapshotLoadedMsg struct {
	snap store.Snapshot
	err  error
}

type schedulerEventMsg struct {
	event scheduler.Event
}

type reminderCheckedMsg struct {
	event     scheduler.Event
	duplicate bool
}

func NewModel(opts Options) Model {
	cfg := opts.Config
	client := opts.Client
	if client == nil {
		client = api.NewClient(cfg.APIBaseURL, api.WithTimeout(cfg.RequestTimeoutDuration()))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	var notifier DesktopNotifier = NoopDesktopNotifier{}
	if opts.Notifier != nil {
		notifier = opts.Notifier
	}

	m := Model{
		Screen:         ScreenTasks,
		ViewState:      taskview.DefaultViewState(),
		DesktopEnabled: cfg.DesktopNotifications,
		Keys:           cfg.Keys,
		cfg:            cfg,
		client:         client,
		store:          store.New(),
		engine:         opts.Engine,
		cache:          opts.Cache,
		notifier:       notifier,
		now:            now,
		loading:        true,
		reminders:      make(map[string]bool),
		fired:          make(map[string]bool),
	}
	m.ViewState.DaysFilter = max(cfg.DefaultDaysFilter, 0)

	prefs, err := loadViewPrefs(cfg.PrefsPath)
	if err != nil {
		log.Printf("load view prefs %s: %v", cfg.PrefsPath, err)
	}
	m.ViewState = prefs.apply(m.ViewState)

	m.registerJobs()
	m.initBubbleComponents()
	m.recompute()
	return m
}

func (m *Model) registerJobs() {
	if m.engine == nil {
		return
	}
	jobs := []struct {
		name  string
		every time.Duration
	}{
		{jobPoll, m.cfg.PollEvery()},
		{jobRepeat, m.cfg.RepeatEvery()},
		{jobStats, m.cfg.StatsEvery()},
		{jobPrune, 24 * time.Hour},
	}
	for _, job := range jobs {
		if err := m.engine.Every(job.name, job.every); err != nil {
			log.Printf("schedule job %s every %s: %v", job.name, job.every, err)
		}
	}
}

func (m *Model) initBubbleComponents() {
	m.commandInput = textinput.New()
	m.commandInput.Prompt = "/"
	m.commandInput.Placeholder = "add pay rent | cat Work | days 7"
	m.commandInput.CharLimit = 256

	m.syncSpinner = spinner.New()
	m.syncSpinner.Spinner = spinner.Dot

	m.helpModel = help.New()
	m.helpModel.ShowAll = true

	m.detailViewport = viewport.New(48, 12)
}

// SelectedTask is the task under the cursor on the tasks screen.
func (m Model) SelectedTask() (model.Task, bool) {
	if m.Cursor < 0 || m.Cursor >= len(m.Rows) {
		return model.Task{}, false
	}
	return m.Rows[m.Cursor].Task, true
}

func (m Model) Store() *store.Store { return m.store }

func (m Model) Loading() bool { return m.loading }

func (m *Model) setStatus(text string, isErr bool) {
	m.Status = StatusBar{Text: text, IsError: isErr}
}

func (m *Model) fail(prefix string, err error) {
	m.LastError = err
	text := err.Error()
	if prefix != "" {
		text = prefix + ": " + text
	}
	m.Status = StatusBar{Text: text, IsError: true}
	m.notify("Error", text, "error")
}

func escapeAppleScript(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

func levelFromError(isErr bool) string {
	if isErr {
		return "error"
	}
	return "info"
}
