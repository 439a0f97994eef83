package update

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"

	"github.com/sandeepkv93/taskdesk/internal/views"
)

type KeyBinding struct {
	Key    string
	Action string
}

type helpKeyMap struct {
	short []key.Binding
	full  [][]key.Binding
}

func (k helpKeyMap) ShortHelp() []key.Binding  { return k.short }
func (k helpKeyMap) FullHelp() [][]key.Binding { return k.full }

func (m Model) renderHelpIfVisible() string {
	if !m.HelpVisible {
		return ""
	}
	global := toKeyBindings(m.globalBindings())
	screen := toKeyBindings(m.screenBindings())
	var plain []string
	for _, kb := range m.screenBindings() {
		plain = append(plain, fmt.Sprintf("- %s: %s", keyLabel(kb.Key), kb.Action))
	}
	return views.RenderHelpPanel(views.HelpPanelData{
		CurrentView: string(m.Screen),
		Bindings:    plain,
		HelpView: m.helpModel.View(helpKeyMap{
			short: global,
			full:  [][]key.Binding{global, screen},
		}),
	})
}

func (m Model) globalBindings() []KeyBinding {
	return []KeyBinding{
		{Key: m.Keys.Palette, Action: "command palette"},
		{Key: m.Keys.Screen, Action: "next screen"},
		{Key: m.Keys.Refresh, Action: "refresh"},
		{Key: m.Keys.Help, Action: "toggle help"},
		{Key: m.Keys.Quit, Action: "quit"},
	}
}

func (m Model) screenBindings() []KeyBinding {
	switch m.Screen {
	case ScreenTasks:
		return []KeyBinding{
			{Key: m.Keys.Up + "/" + m.Keys.Down, Action: "move"},
			{Key: m.Keys.Toggle, Action: "complete / reopen"},
			{Key: m.Keys.Detail, Action: "toggle detail"},
			{Key: m.Keys.Delete, Action: "delete task"},
			{Key: m.Keys.Archive, Action: "toggle archive"},
			{Key: m.Keys.Category, Action: "cycle category filter"},
		}
	case ScreenCategories:
		return []KeyBinding{
			{Key: m.Keys.Up + "/" + m.Keys.Down, Action: "move"},
			{Key: m.Keys.Detail, Action: "filter tasks by category"},
			{Key: m.Keys.Delete, Action: "delete category"},
		}
	case ScreenContacts:
		return []KeyBinding{
			{Key: m.Keys.Up + "/" + m.Keys.Down, Action: "move"},
			{Key: m.Keys.Delete, Action: "delete contact"},
		}
	default:
		return []KeyBinding{{Key: "-", Action: "no contextual bindings"}}
	}
}

func toKeyBindings(in []KeyBinding) []key.Binding {
	out := make([]key.Binding, 0, len(in))
	for _, kb := range in {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(keyLabel(kb.Key), kb.Action)))
	}
	return out
}

func keyLabel(k string) string {
	if k == " " {
		return "space"
	}
	return k
}
