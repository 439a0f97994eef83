package update

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sandeepkv93/taskdesk/internal/model"
	"github.com/sandeepkv93/taskdesk/internal/taskview"
	"github.com/sandeepkv93/taskdesk/internal/views"
)

const displayTime = "2006-01-02 15:04"

func (m *Model) notify(title, body, level string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	n := Notification{
		Title: title,
		Body:  body,
		Level: level,
		At:    m.now().UTC(),
	}
	m.Notifications = append(m.Notifications, n)
	if len(m.Notifications) > maxNotifications {
		m.Notifications = m.Notifications[len(m.Notifications)-maxNotifications:]
	}
	if m.DesktopEnabled && m.notifier != nil {
		if err := m.notifier.Send(n); err != nil {
			log.Printf("desktop notification: %v", err)
		}
	}
}

// syncBubbleData pushes the selected task's description into the detail
// viewport.
func (m *Model) syncBubbleData() {
	task, ok := m.SelectedTask()
	if !ok {
		m.detailViewport.SetContent("")
		return
	}
	m.detailViewport.SetContent(views.RenderMarkdown(task.Description, m.detailViewport.Width))
	m.detailViewport.GotoTop()
}

func (m Model) renderNotificationsView() string {
	if len(m.Notifications) == 0 {
		return ""
	}
	n := m.Notifications[len(m.Notifications)-1]
	return views.RenderNotification(n.Level, n.Body)
}

func (m Model) renderTasksPane() string {
	title := "tasks"
	if m.ViewState.ShowArchive {
		title = "archive"
	}
	rows := make([]views.TaskRowData, 0, len(m.Rows))
	now := m.now()
	for i, row := range m.Rows {
		rows = append(rows, m.taskRowData(row, i == m.Cursor, now))
	}
	return views.RenderTaskTree(views.TaskTreeData{
		Title:   title,
		Filters: m.filterSummary(),
		Rows:    rows,
		Stale:   m.store.Stale() && !m.store.FetchedAt().IsZero(),
	})
}

func (m Model) taskRowData(row taskview.Row, selected bool, now time.Time) views.TaskRowData {
	task := row.Task
	data := views.TaskRowData{
		ID:          task.ID,
		Text:        task.Text,
		Depth:       row.Depth,
		Completed:   task.Completed,
		Selected:    selected,
		HasChildren: row.HasChildren,
		Category:    task.CategoryName(),
		Repeat:      task.RepeatInterval.Label(),
	}
	if data.Category != "" {
		if cat, err := m.store.Category(data.Category); err == nil {
			data.CategoryColor = cat.DisplayColor()
		}
	}
	if when, ok := task.When(); ok {
		data.When = when.Format(displayTime)
		data.Overdue = !task.Completed && when.Before(now)
	}
	_, data.Reminder = model.ReminderFor(task)
	for _, dep := range row.Dependencies {
		data.Dependencies = append(data.Dependencies, views.DependencyData{Label: dep.Label, Resolved: dep.Resolved})
	}
	return data
}

func (m Model) filterSummary() string {
	parts := []string{
		"category: " + m.ViewState.CategoryLabel(),
		"days: " + daysLabel(m.ViewState.DaysFilter),
		"sort: " + sortLabel(m.ViewState.SortMode),
	}
	if m.ViewState.SearchTerm != "" {
		parts = append(parts, fmt.Sprintf("search: %q", m.ViewState.SearchTerm))
	}
	return strings.Join(parts, " | ")
}

func (m Model) renderCategoriesPane() string {
	counts := make(map[string]int)
	for _, task := range m.store.Tasks() {
		counts[task.CategoryName()]++
	}
	cats := m.store.Categories()
	items := make([]views.CategoryItemData, 0, len(cats))
	for i, cat := range cats {
		items = append(items, views.CategoryItemData{
			Name:     cat.Name,
			Color:    cat.DisplayColor(),
			Count:    counts[cat.Name],
			Active:   m.ViewState.ActiveCategory != nil && *m.ViewState.ActiveCategory == cat.Name,
			Selected: i == m.CategoryCursor,
		})
	}
	return views.RenderCategoriesPanel(views.CategoriesPanelData{Items: items})
}

func (m Model) renderContactsPane() string {
	contacts := m.visibleContacts()
	items := make([]views.ContactItemData, 0, len(contacts))
	for i, c := range contacts {
		items = append(items, views.ContactItemData{
			ChatID:   c.ChatID.String(),
			Label:    c.Label(),
			Group:    c.Group,
			Selected: i == m.ContactCursor,
		})
	}
	return views.RenderContactsPanel(views.ContactsPanelData{
		Search: m.ViewState.ContactSearch,
		SortBy: string(m.ViewState.ContactSortField),
		Order:  string(m.ViewState.ContactSortOrder),
		Groups: taskview.ContactGroups(m.store.Contacts()),
		Items:  items,
	})
}

func (m Model) renderDetailPane() string {
	task, ok := m.SelectedTask()
	if !ok {
		return views.RenderDetailPanel(views.DetailPanelData{})
	}
	return views.RenderDetailPanel(views.DetailPanelData{
		Title:  fmt.Sprintf("#%d %s", task.ID, task.Text),
		Fields: m.detailFields(task),
		Body:   m.detailViewport.View(),
	})
}

func (m Model) detailFields(task model.Task) []views.DetailField {
	var when, reminder, group, contact, parent string
	if t, ok := task.When(); ok {
		when = t.Format(displayTime)
	} else if task.Datetime != nil {
		when = *task.Datetime + " (unparsed)"
	}
	if task.ReminderTime != nil {
		reminder = fmt.Sprintf("%d min before", *task.ReminderTime)
	}
	if task.Group != nil {
		group = *task.Group
	}
	if task.ChatID != "" {
		contact = task.ChatID.String()
		if c, err := m.store.Contact(task.ChatID); err == nil {
			contact = c.Label()
		}
	}
	if task.ParentID != nil {
		parent = fmt.Sprintf("ID %d", *task.ParentID)
		if p, _, err := m.store.Lookup(*task.ParentID); err == nil {
			parent = p.Text
		}
	}
	var deps []string
	for _, row := range m.Rows {
		if row.Task.ID == task.ID {
			for _, dep := range row.Dependencies {
				deps = append(deps, dep.Label)
			}
			break
		}
	}
	files := make([]string, 0, len(task.Files))
	for _, f := range task.Files {
		files = append(files, f.Name)
	}
	status := "open"
	if task.Completed {
		status = "completed"
	}
	return []views.DetailField{
		{Label: "status", Value: status},
		{Label: "category", Value: task.CategoryName()},
		{Label: "when", Value: when},
		{Label: "reminder", Value: reminder},
		{Label: "parent", Value: parent},
		{Label: "group", Value: group},
		{Label: "contact", Value: contact},
		{Label: "repeat", Value: task.RepeatSummary()},
		{Label: "depends on", Value: strings.Join(deps, ", ")},
		{Label: "files", Value: strings.Join(files, ", ")},
	}
}

func (m Model) renderStatsLine() string {
	return views.RenderStats(views.StatsData{
		Total:     m.Stats.Total,
		Completed: m.Stats.Completed,
		Percent:   m.Stats.Percent(),
		Local:     m.StatsLocal,
	})
}

func (m Model) renderAgendaPane() string {
	if m.agenda.Day.IsZero() {
		return ""
	}
	items := make([]views.AgendaItemData, 0, len(m.agenda.Tasks))
	for _, task := range m.agenda.Tasks {
		at := "--:--"
		if when, ok := task.When(); ok {
			at = when.Format("15:04")
		}
		items = append(items, views.AgendaItemData{ID: task.ID, Time: at, Text: task.Text, Completed: task.Completed})
	}
	return views.RenderAgendaPanel(views.AgendaPanelData{
		Date:    m.agenda.Day.Format("2006-01-02"),
		Loading: m.agenda.Loading,
		Items:   items,
	})
}

func (m Model) renderCommandPalette() string {
	return views.RenderCommandPalette(m.Palette.Active, m.Palette.Input)
}

func (m Model) renderConfirm() string {
	if m.confirm == nil {
		return ""
	}
	return views.RenderConfirm(m.confirm.Prompt)
}
