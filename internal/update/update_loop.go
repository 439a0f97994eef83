package update

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/taskdesk/internal/views"
)

// Init shows the cached snapshot, fetches everything once and runs the
// repeat materializer at startup; the scheduler takes over from there.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadSnapshot(),
		m.fetchTasks(),
		m.fetchCategories(),
		m.fetchContacts(),
		m.fetchStats(),
		m.processRepeating(),
		m.pruneReminders(),
		waitForEvent(m.engine),
		m.syncSpinner.Tick,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(typed)
	case tea.WindowSizeMsg:
		m.detailViewport.Width = max(typed.Width/2-8, 20)
		m.detailViewport.Height = max(typed.Height/3, 6)
		m.syncBubbleData()
		return m, nil
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.syncSpinner, cmd = m.syncSpinner.Update(typed)
		return m, cmd
	case tasksLoadedMsg:
		return m.onTasksLoaded(typed)
	case categoriesLoadedMsg:
		return m.onCategoriesLoaded(typed)
	case contactsLoadedMsg:
		return m.onContactsLoaded(typed)
	case statsLoadedMsg:
		return m.onStatsLoaded(typed), nil
	case repeatProcessedMsg:
		return m.onRepeatProcessed(typed)
	case mutationDoneMsg:
		return m.onMutationDone(typed)
	case agendaLoadedMsg:
		return m.onAgendaLoaded(typed), nil
	case snapshotLoadedMsg:
		return m.onSnapshotLoaded(typed), nil
	case schedulerEventMsg:
		return m.onSchedulerEvent(typed.event)
	case reminderCheckedMsg:
		return m.onReminderChecked(typed), nil
	case SwitchScreenMsg:
		if isKnownScreen(typed.Screen) {
			cmd := m.setScreen(typed.Screen)
			return m, cmd
		}
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		m.notify("Status", typed.Text, levelFromError(typed.IsError))
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		if typed.Err != nil {
			m.fail("", typed.Err)
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keyStr := msg.String()
	if keyStr == "ctrl+c" {
		m.Quitting = true
		return m, tea.Quit
	}
	if m.Palette.Active {
		return m.handlePaletteKey(msg)
	}
	if m.confirm != nil {
		return m.handleConfirmKey(keyStr)
	}

	switch keyStr {
	case m.Keys.Quit:
		m.Quitting = true
		return m, tea.Quit
	case m.Keys.Palette:
		return m.openPalette(), nil
	case m.Keys.Help:
		m.HelpVisible = !m.HelpVisible
		return m, nil
	case m.Keys.Screen:
		i := slices.Index(screenOrder, m.Screen)
		cmd := m.setScreen(screenOrder[(i+1)%len(screenOrder)])
		return m, cmd
	case m.Keys.Refresh:
		m.store.Invalidate()
		m.setStatus("refreshing", false)
		cmd := m.refresh()
		return m, cmd
	}

	switch m.Screen {
	case ScreenTasks:
		return m.handleTasksKey(keyStr)
	case ScreenCategories:
		return m.handleCategoriesKey(keyStr)
	case ScreenContacts:
		return m.handleContactsKey(keyStr)
	}
	return m, nil
}

func (m Model) handleConfirmKey(keyStr string) (tea.Model, tea.Cmd) {
	pending := m.confirm
	switch keyStr {
	case m.Keys.Confirm:
		m.confirm = nil
		return m, pending.Action
	case m.Keys.Cancel:
		m.confirm = nil
		m.setStatus("cancelled", false)
	}
	return m, nil
}

func (m Model) handleTasksKey(keyStr string) (tea.Model, tea.Cmd) {
	switch keyStr {
	case m.Keys.Up, "up":
		m.Cursor = clampCursor(m.Cursor-1, len(m.Rows))
		m.syncBubbleData()
	case m.Keys.Down, "down":
		m.Cursor = clampCursor(m.Cursor+1, len(m.Rows))
		m.syncBubbleData()
	case m.Keys.Toggle:
		task, ok := m.SelectedTask()
		if !ok {
			return m, nil
		}
		if m.ViewState.ShowArchive {
			m.setStatus("archived tasks are read-only", true)
			return m, nil
		}
		var next tea.Cmd
		res, err := m.setCompleted(task.ID, !task.Completed, &next)
		if err != nil {
			m.fail("", err)
			return m, nil
		}
		m.setStatus(res.Message, false)
		return m, next
	case m.Keys.Detail:
		m.DetailVisible = !m.DetailVisible
	case m.Keys.Delete:
		task, ok := m.SelectedTask()
		if !ok {
			return m, nil
		}
		action, err := m.deleteTask(task.ID)
		if err != nil {
			m.fail("", err)
			return m, nil
		}
		m.confirm = &confirmState{Prompt: fmt.Sprintf("delete #%d %q?", task.ID, task.Text), Action: action}
	case m.Keys.Archive:
		m.ViewState = m.ViewState.ToggleArchive()
		m.Cursor = 0
		m.recompute()
		cmd := m.refresh()
		return m, cmd
	case m.Keys.Category:
		m.ViewState = m.ViewState.FilterByCategory(m.nextCategory())
		m.recompute()
		m.setStatus("category: "+m.ViewState.CategoryLabel(), false)
		cmd := m.refresh()
		return m, cmd
	}
	return m, nil
}

// nextCategory walks the categories in backend order, then back to all.
func (m Model) nextCategory() string {
	cats := m.store.Categories()
	if len(cats) == 0 {
		return ""
	}
	if m.ViewState.ActiveCategory == nil {
		return cats[0].Name
	}
	for i, cat := range cats {
		if cat.Name == *m.ViewState.ActiveCategory && i+1 < len(cats) {
			return cats[i+1].Name
		}
	}
	return ""
}

func (m Model) handleCategoriesKey(keyStr string) (tea.Model, tea.Cmd) {
	cats := m.store.Categories()
	switch keyStr {
	case m.Keys.Up, "up":
		m.CategoryCursor = clampCursor(m.CategoryCursor-1, len(cats))
	case m.Keys.Down, "down":
		m.CategoryCursor = clampCursor(m.CategoryCursor+1, len(cats))
	case m.Keys.Detail:
		if len(cats) == 0 {
			return m, nil
		}
		m.ViewState = m.ViewState.FilterByCategory(cats[m.CategoryCursor].Name)
		m.recompute()
		m.setStatus("category: "+m.ViewState.CategoryLabel(), false)
		screen := m.setScreen(ScreenTasks)
		refresh := m.refresh()
		return m, tea.Batch(screen, refresh)
	case m.Keys.Delete:
		if len(cats) == 0 {
			return m, nil
		}
		name := cats[m.CategoryCursor].Name
		action, err := m.deleteCategory(name)
		if err != nil {
			m.fail("", err)
			return m, nil
		}
		m.confirm = &confirmState{Prompt: fmt.Sprintf("delete category %q?", name), Action: action}
	}
	return m, nil
}

func (m Model) handleContactsKey(keyStr string) (tea.Model, tea.Cmd) {
	contacts := m.visibleContacts()
	switch keyStr {
	case m.Keys.Up, "up":
		m.ContactCursor = clampCursor(m.ContactCursor-1, len(contacts))
	case m.Keys.Down, "down":
		m.ContactCursor = clampCursor(m.ContactCursor+1, len(contacts))
	case m.Keys.Delete:
		if len(contacts) == 0 {
			return m, nil
		}
		c := contacts[m.ContactCursor]
		action, err := m.deleteContact(c.ChatID)
		if err != nil {
			m.fail("", err)
			return m, nil
		}
		m.confirm = &confirmState{Prompt: fmt.Sprintf("delete contact %s?", c.Label()), Action: action}
	}
	return m, nil
}

// setScreen switches screens and refreshes the directory shown there.
func (m *Model) setScreen(s Screen) tea.Cmd {
	m.Screen = s
	switch s {
	case ScreenCategories:
		return m.fetchCategories()
	case ScreenContacts:
		return m.fetchContacts()
	}
	return nil
}

func (m Model) View() string {
	status := ""
	if m.Status.Text != "" {
		if m.Status.IsError {
			status = fmt.Sprintf("status: error: %s", m.Status.Text)
		} else {
			status = fmt.Sprintf("status: %s", m.Status.Text)
		}
	}

	var left string
	switch m.Screen {
	case ScreenCategories:
		left = m.renderCategoriesPane()
	case ScreenContacts:
		left = m.renderContactsPane()
	default:
		left = m.renderTasksPane()
	}

	right := []string{m.renderStatsLine()}
	if m.Screen == ScreenTasks && m.DetailVisible {
		right = append(right, m.renderDetailPane())
	}
	right = append(right,
		m.renderAgendaPane(),
		m.renderCommandPalette(),
		m.renderConfirm(),
		m.renderHelpIfVisible(),
	)

	notification := m.renderNotificationsView()
	if m.loading {
		notification = strings.TrimSpace(notification + "\nsync: " + m.syncSpinner.View() + " loading")
	}
	if m.Offline {
		notification = strings.TrimSpace(notification + "\noffline: showing last good data")
	}

	return views.RenderApp(views.AppData{
		Header:       fmt.Sprintf("taskdesk | screen: %s | %s", m.Screen, m.headerDetail()),
		LeftPane:     left,
		RightPane:    joinNonEmpty(right),
		StatusLine:   status,
		StatusError:  m.Status.IsError,
		Notification: notification,
		Footer: fmt.Sprintf("keys: %s cmd | %s screen | %s refresh | %s help | %s quit",
			m.Keys.Palette, m.Keys.Screen, m.Keys.Refresh, m.Keys.Help, m.Keys.Quit),
	})
}

func (m Model) headerDetail() string {
	if m.ViewState.ShowArchive {
		return fmt.Sprintf("archive: %d", len(m.store.Archived()))
	}
	return fmt.Sprintf("active: %d | category: %s", len(m.store.Tasks()), m.ViewState.CategoryLabel())
}

func joinNonEmpty(parts []string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, strings.TrimSpace(p))
		}
	}
	return strings.Join(out, "\n\n")
}
