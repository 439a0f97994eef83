package views

import (
	"fmt"
	"strings"
)

type DependencyData struct {
	Label    string
	Resolved bool
}

type TaskRowData struct {
	ID            int64
	Text          string
	Depth         int
	Completed     bool
	Selected      bool
	HasChildren   bool
	Category      string
	CategoryColor string
	When          string
	Overdue       bool
	Repeat        string
	Reminder      bool
	Dependencies  []DependencyData
}

type TaskTreeData struct {
	Title   string
	Filters string
	Rows    []TaskRowData
	Stale   bool
}

type CategoryItemData struct {
	Name     string
	Color    string
	Count    int
	Active   bool
	Selected bool
}

type CategoriesPanelData struct {
	Items []CategoryItemData
}

type ContactItemData struct {
	ChatID   string
	Label    string
	Group    string
	Selected bool
}

type ContactsPanelData struct {
	Search string
	SortBy string
	Order  string
	Groups []string
	Items  []ContactItemData
}

type StatsData struct {
	Total     int
	Completed int
	Percent   int
	Local     bool
}

type DetailField struct {
	Label string
	Value string
}

type DetailPanelData struct {
	Title  string
	Fields []DetailField
	Body   string
}

type AgendaItemData struct {
	ID        int64
	Time      string
	Text      string
	Completed bool
}

type AgendaPanelData struct {
	Date    string
	Loading bool
	Items   []AgendaItemData
}

type HelpPanelData struct {
	CurrentView string
	Bindings    []string
	HelpView    string
}

func RenderTaskTree(data TaskTreeData) string {
	var b strings.Builder
	b.WriteString(data.Title + ":\n")
	if data.Filters != "" {
		b.WriteString(mutedStyle.Render(data.Filters) + "\n")
	}
	if data.Stale {
		b.WriteString(mutedStyle.Render("(cached, waiting for backend)") + "\n")
	}
	if len(data.Rows) == 0 {
		b.WriteString("(no tasks)")
		return b.String()
	}
	for _, row := range data.Rows {
		b.WriteString(renderTaskRow(row) + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func renderTaskRow(row TaskRowData) string {
	cursor := " "
	if row.Selected {
		cursor = cursorStyle.Render(">")
	}
	check := "[ ]"
	if row.Completed {
		check = "[x]"
	}
	text := row.Text
	if row.Completed {
		text = doneStyle.Render(text)
	}
	parts := []string{
		cursor + " " + strings.Repeat("  ", row.Depth) + check,
		fmt.Sprintf("#%d", row.ID),
		text,
	}
	if row.Category != "" {
		parts = append(parts, Swatch(row.CategoryColor)+" "+row.Category)
	}
	if row.When != "" {
		when := "@" + row.When
		if row.Overdue {
			when = overdue.Render(when)
		}
		parts = append(parts, when)
	}
	if row.Reminder {
		parts = append(parts, "(!)")
	}
	if row.Repeat != "" {
		parts = append(parts, mutedStyle.Render("↻ "+row.Repeat))
	}
	if len(row.Dependencies) > 0 {
		labels := make([]string, 0, len(row.Dependencies))
		for _, dep := range row.Dependencies {
			label := dep.Label
			if !dep.Resolved {
				label = mutedStyle.Render(label)
			}
			labels = append(labels, label)
		}
		parts = append(parts, "after: "+strings.Join(labels, ", "))
	}
	return strings.Join(parts, " ")
}

func RenderCategoriesPanel(data CategoriesPanelData) string {
	var b strings.Builder
	b.WriteString("categories:\n")
	b.WriteString("actions: [enter]filter [/]newcat|editcat|delcat|move\n")
	if len(data.Items) == 0 {
		b.WriteString("(no categories)")
		return b.String()
	}
	for i, item := range data.Items {
		cursor := " "
		if item.Selected {
			cursor = cursorStyle.Render(">")
		}
		active := ""
		if item.Active {
			active = " *"
		}
		b.WriteString(fmt.Sprintf("%s %d. %s %s (%d)%s\n", cursor, i, Swatch(item.Color), item.Name, item.Count, active))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func RenderContactsPanel(data ContactsPanelData) string {
	var b strings.Builder
	b.WriteString("contacts:\n")
	b.WriteString(fmt.Sprintf("sort: %s %s", data.SortBy, data.Order))
	if data.Search != "" {
		b.WriteString(fmt.Sprintf(" | search: %q", data.Search))
	}
	b.WriteString("\n")
	if len(data.Groups) > 0 {
		b.WriteString(mutedStyle.Render("groups: "+strings.Join(data.Groups, ", ")) + "\n")
	}
	if len(data.Items) == 0 {
		b.WriteString("(no contacts)")
		return b.String()
	}
	for _, item := range data.Items {
		cursor := " "
		if item.Selected {
			cursor = cursorStyle.Render(">")
		}
		line := fmt.Sprintf("%s %s %s", cursor, item.ChatID, item.Label)
		if item.Group != "" {
			line += " [" + item.Group + "]"
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func RenderStats(data StatsData) string {
	source := ""
	if data.Local {
		source = " (local)"
	}
	return fmt.Sprintf("progress: %s %d/%d %d%%%s",
		progressBar(data.Percent, 20), data.Completed, data.Total, data.Percent, source)
}

func progressBar(percent, width int) string {
	percent = min(max(percent, 0), 100)
	filled := percent * width / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

func RenderDetailPanel(data DetailPanelData) string {
	if data.Title == "" {
		return "detail:\n(no selection)"
	}
	var b strings.Builder
	b.WriteString("detail: " + data.Title + "\n")
	for _, f := range data.Fields {
		if strings.TrimSpace(f.Value) == "" {
			continue
		}
		b.WriteString(fmt.Sprintf("%s: %s\n", f.Label, f.Value))
	}
	if strings.TrimSpace(data.Body) != "" {
		b.WriteString("\n" + data.Body)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func RenderAgendaPanel(data AgendaPanelData) string {
	if data.Date == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("\nagenda %s:\n", data.Date))
	if data.Loading {
		b.WriteString("(loading)")
		return b.String()
	}
	if len(data.Items) == 0 {
		b.WriteString("(nothing scheduled)")
		return b.String()
	}
	for _, item := range data.Items {
		check := "[ ]"
		if item.Completed {
			check = "[x]"
		}
		b.WriteString(fmt.Sprintf("%s %s #%d %s\n", check, item.Time, item.ID, item.Text))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return fmt.Sprintf("command: /%s", input)
}

func RenderConfirm(prompt string) string {
	if prompt == "" {
		return ""
	}
	return fmt.Sprintf("confirm: %s [enter]yes [esc]no", prompt)
}

func RenderNotification(level string, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return fmt.Sprintf("notification: [%s] %s", strings.ToUpper(level), body)
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("\nhelp (%s):\n%s\n%s",
		strings.ToLower(data.CurrentView),
		strings.Join(data.Bindings, "\n"),
		data.HelpView,
	)
}
