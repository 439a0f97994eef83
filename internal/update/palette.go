package update

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/taskdesk/internal/api"
	"github.com/sandeepkv93/taskdesk/internal/commands"
	"github.com/sandeepkv93/taskdesk/internal/model"
	"github.com/sandeepkv93/taskdesk/internal/taskview"
)

func (m Model) openPalette() Model {
	m.Palette.Active = true
	m.Palette.Input = ""
	m.commandInput.SetValue("")
	m.commandInput.Focus()
	m.Status = StatusBar{Text: "command palette active"}
	return m
}

func (m *Model) closePalette() {
	m.Palette.Active = false
	m.Palette.Input = ""
	m.commandInput.SetValue("")
	m.commandInput.Blur()
}

func (m Model) handlePaletteKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case m.Keys.Cancel:
		m.closePalette()
		m.Status = StatusBar{Text: "command palette closed"}
		return m, nil
	case "enter":
		m.Palette.Input = m.commandInput.Value()
		return m.executePaletteCommand()
	}
	if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
		m.commandInput.SetValue(m.commandInput.Value() + string(msg.Runes))
		m.Palette.Input = m.commandInput.Value()
		return m, nil
	}
	var cmd tea.Cmd
	m.commandInput, cmd = m.commandInput.Update(msg)
	m.Palette.Input = m.commandInput.Value()
	return m, cmd
}

func (m Model) executePaletteCommand() (Model, tea.Cmd) {
	raw := strings.TrimSpace(m.Palette.Input)
	m.closePalette()

	cmd, err := commands.Parse(raw)
	if err != nil {
		m.fail("", err)
		return m, nil
	}

	var next tea.Cmd
	res, err := commands.Execute(cmd, m.handlers(&next))
	if err != nil {
		m.fail(string(cmd.Type), err)
		return m, nil
	}
	m.setStatus(res.Message, false)
	return m, next
}

// handlers binds every intent to this model. Handlers that only change the
// view state re-run the pipeline over the cached data and then refresh it; the
// others validate locally, then set next to the backend call.
func (m *Model) handlers(next *tea.Cmd) commands.Handlers {
	return commands.Handlers{
		Add: func(a commands.AddArgs) (commands.Result, error) {
			return m.addTasks(a.Texts, next)
		},
		Done: func(r commands.TaskRef) (commands.Result, error) {
			return m.setCompleted(r.ID, true, next)
		},
		Undo: func(r commands.TaskRef) (commands.Result, error) {
			return m.setCompleted(r.ID, false, next)
		},
		Delete: func(r commands.TaskRef) (commands.Result, error) {
			cmd, err := m.deleteTask(r.ID)
			if err != nil {
				return commands.Result{}, err
			}
			*next = cmd
			return commands.Result{Message: fmt.Sprintf("deleting #%d", r.ID)}, nil
		},
		Edit: func(e commands.EditArgs) (commands.Result, error) {
			return m.patchTask(e.ID, map[string]any{"text": e.Text}, "renamed", next)
		},
		Note: func(n commands.NoteArgs) (commands.Result, error) {
			return m.patchTask(n.ID, map[string]any{"description": n.Description}, "description updated for", next)
		},
		Parent: func(p commands.ParentArgs) (commands.Result, error) {
			if err := m.validateParent(p.ID, p.ParentID); err != nil {
				return commands.Result{}, err
			}
			return m.patchTask(p.ID, map[string]any{"parent_id": p.ParentID}, "parent updated for", next)
		},
		Due: func(d commands.DueArgs) (commands.Result, error) {
			return m.patchTask(d.ID, map[string]any{"datetime": d.Datetime}, "date updated for", next)
		},
		Remind: func(r commands.RemindArgs) (commands.Result, error) {
			return m.patchTask(r.ID, map[string]any{"reminder_time": r.Minutes}, "reminder updated for", next)
		},
		Repeat: func(r commands.RepeatArgs) (commands.Result, error) {
			if r.Interval != "" && !r.Interval.IsValid() {
				return commands.Result{}, fmt.Errorf("%w: %w: %q", model.ErrValidation, model.ErrInvalidRepeat, r.Interval)
			}
			patch := map[string]any{
				"repeat_interval": r.Interval,
				"repeat_count":    r.Count,
				"repeat_until":    r.Until,
			}
			return m.patchTask(r.ID, patch, "repeat updated for", next)
		},
		Assign: func(a commands.AssignArgs) (commands.Result, error) {
			if a.ChatID != "" {
				if _, err := m.store.Contact(a.ChatID); err != nil {
					return commands.Result{}, err
				}
			}
			return m.patchTask(a.ID, map[string]any{"chat_id": a.ChatID}, "contact updated for", next)
		},
		Deps: func(d commands.DepsArgs) (commands.Result, error) {
			for _, dep := range d.Dependencies {
				if dep == d.ID {
					return commands.Result{}, fmt.Errorf("%w: task cannot depend on itself", model.ErrValidation)
				}
				if _, _, err := m.store.Lookup(dep); err != nil {
					return commands.Result{}, err
				}
			}
			return m.patchTask(d.ID, map[string]any{"dependencies": d.Dependencies}, "dependencies updated for", next)
		},
		Category: func(c commands.CategoryArgs) (commands.Result, error) {
			if c.Name != "" {
				if _, err := m.store.Category(c.Name); err != nil {
					return commands.Result{}, err
				}
			}
			m.ViewState = m.ViewState.FilterByCategory(c.Name)
			m.recompute()
			*next = m.refresh()
			return commands.Result{Message: "category: " + m.ViewState.CategoryLabel()}, nil
		},
		Days: func(d commands.DaysArgs) (commands.Result, error) {
			vs, err := m.ViewState.SetDaysFilter(d.Days)
			if err != nil {
				return commands.Result{}, err
			}
			m.ViewState = vs
			m.recompute()
			m.savePrefs()
			*next = m.refresh()
			return commands.Result{Message: fmt.Sprintf("days filter: %s", daysLabel(d.Days))}, nil
		},
		Search: func(s commands.SearchArgs) (commands.Result, error) {
			m.ViewState = m.ViewState.SetSearch(s.Term)
			m.recompute()
			*next = m.refresh()
			if m.ViewState.SearchTerm == "" {
				return commands.Result{Message: "search cleared"}, nil
			}
			return commands.Result{Message: fmt.Sprintf("search %q: %d match(es)", m.ViewState.SearchTerm, len(m.Rows))}, nil
		},
		Sort: func(s commands.SortArgs) (commands.Result, error) {
			vs, err := m.ViewState.SetSortMode(taskview.SortMode(s.Mode))
			if err != nil {
				return commands.Result{}, err
			}
			m.ViewState = vs
			m.recompute()
			*next = m.refresh()
			return commands.Result{Message: "sort: " + sortLabel(vs.SortMode)}, nil
		},
		Archive: func() (commands.Result, error) {
			m.ViewState = m.ViewState.ToggleArchive()
			m.Cursor = 0
			m.recompute()
			*next = m.refresh()
			if m.ViewState.ShowArchive {
				return commands.Result{Message: "showing archive"}, nil
			}
			return commands.Result{Message: "showing active tasks"}, nil
		},
		ArchiveDone: func() (commands.Result, error) {
			*next = m.mutate(false, func(ctx context.Context, c *api.Client) (string, error) {
				return "archived completed tasks", c.ArchiveCompleted(ctx)
			})
			return commands.Result{Message: "archiving completed tasks"}, nil
		},
		Reset: func() (commands.Result, error) {
			m.ViewState = m.ViewState.ResetFilters()
			m.recompute()
			m.savePrefs()
			*next = m.refresh()
			return commands.Result{Message: "filters reset"}, nil
		},
		Refresh: func() (commands.Result, error) {
			m.store.Invalidate()
			*next = m.refreshAll()
			return commands.Result{Message: "refreshing"}, nil
		},
		Day: func(d commands.DayArgs) (commands.Result, error) {
			m.agenda = agendaState{Day: d.Date, Loading: true}
			*next = m.fetchAgenda(d.Date)
			return commands.Result{Message: "loading agenda for " + d.Date.Format("2006-01-02")}, nil
		},
		NewCategory: func(c commands.NewCategoryArgs) (commands.Result, error) {
			cat := model.Category{Name: c.Name, Color: c.Color}
			if err := cat.Validate(); err != nil {
				return commands.Result{}, err
			}
			if _, err := m.store.Category(c.Name); err == nil {
				return commands.Result{}, fmt.Errorf("%w: category %q already exists", model.ErrValidation, c.Name)
			}
			*next = m.mutate(true, func(ctx context.Context, cl *api.Client) (string, error) {
				return "category added: " + cat.Name, cl.CreateCategory(ctx, cat)
			})
			return commands.Result{Message: "adding category " + cat.Name}, nil
		},
		EditCategory: func(c commands.EditCategoryArgs) (commands.Result, error) {
			current, err := m.store.Category(c.Name)
			if err != nil {
				return commands.Result{}, err
			}
			updated := model.Category{Name: c.NewName, Color: c.Color}
			if updated.Color == "" {
				updated.Color = current.Color
			}
			if err := updated.Validate(); err != nil {
				return commands.Result{}, err
			}
			change := categoryChange{from: c.Name, to: updated.Name}
			*next = m.mutateCategory(change, func(ctx context.Context, cl *api.Client) (string, error) {
				return fmt.Sprintf("category %s updated", updated.Name), cl.UpdateCategory(ctx, c.Name, updated)
			})
			return commands.Result{Message: "updating category " + c.Name}, nil
		},
		DelCategory: func(c commands.CategoryArgs) (commands.Result, error) {
			cmd, err := m.deleteCategory(c.Name)
			if err != nil {
				return commands.Result{}, err
			}
			*next = cmd
			return commands.Result{Message: "deleting category " + c.Name}, nil
		},
		Move: func(mv commands.MoveArgs) (commands.Result, error) {
			order, err := m.store.CategoryOrder(mv.Name, mv.Index)
			if err != nil {
				return commands.Result{}, err
			}
			*next = m.mutate(true, func(ctx context.Context, cl *api.Client) (string, error) {
				return "categories reordered", cl.ReorderCategories(ctx, order)
			})
			return commands.Result{Message: "moving category " + mv.Name}, nil
		},
		Contact: func(c commands.ContactArgs) (commands.Result, error) {
			cmd, err := m.contactAction(c)
			if err != nil {
				return commands.Result{}, err
			}
			*next = cmd
			return commands.Result{Message: fmt.Sprintf("contact %s %s", c.Action, c.Target)}, nil
		},
		Contacts: func(s commands.SearchArgs) (commands.Result, error) {
			m.ViewState = m.ViewState.SetContactSearch(s.Term)
			m.recompute()
			*next = m.setScreen(ScreenContacts)
			return commands.Result{Message: fmt.Sprintf("%d contact(s)", len(m.visibleContacts()))}, nil
		},
		ContactSort: func(s commands.ContactSortArgs) (commands.Result, error) {
			vs, err := m.ViewState.SortContactsBy(taskview.ContactSortField(s.Field))
			if err != nil {
				return commands.Result{}, err
			}
			m.ViewState = vs
			m.recompute()
			m.savePrefs()
			return commands.Result{Message: fmt.Sprintf("contacts sorted by %s %s", vs.ContactSortField, vs.ContactSortOrder)}, nil
		},
		Screen: func(s commands.ScreenArgs) (commands.Result, error) {
			screen := Screen(s.Name)
			if !isKnownScreen(screen) {
				return commands.Result{}, fmt.Errorf("%w: unknown screen %q", model.ErrValidation, s.Name)
			}
			*next = m.setScreen(screen)
			return commands.Result{Message: "screen: " + s.Name}, nil
		},
	}
}

func (m *Model) addTasks(texts []string, next *tea.Cmd) (commands.Result, error) {
	tasks := make([]model.Task, 0, len(texts))
	for _, text := range texts {
		task := model.Task{Text: text}
		if m.ViewState.ActiveCategory != nil {
			name := *m.ViewState.ActiveCategory
			task.Category = &name
		}
		if err := task.Validate(); err != nil {
			return commands.Result{}, err
		}
		tasks = append(tasks, task)
	}
	*next = m.mutate(false, func(ctx context.Context, c *api.Client) (string, error) {
		var (
			added   int
			lastErr error
		)
		for _, task := range tasks {
			if _, err := c.CreateTask(ctx, task); err != nil {
				lastErr = err
				continue
			}
			added++
		}
		if added == 0 {
			return "", lastErr
		}
		if len(tasks) == 1 {
			return "added: " + tasks[0].Text, nil
		}
		return fmt.Sprintf("added %d of %d", added, len(tasks)), nil
	})
	return commands.Result{Message: fmt.Sprintf("adding %s", pluralize(len(tasks), "task"))}, nil
}

func (m *Model) setCompleted(id int64, completed bool, next *tea.Cmd) (commands.Result, error) {
	task, err := m.store.Task(id)
	if err != nil {
		return commands.Result{}, err
	}
	verb := "completed"
	if !completed {
		verb = "reopened"
	}
	if task.Completed == completed {
		return commands.Result{Message: fmt.Sprintf("#%d already %s", id, verb)}, nil
	}
	*next = m.mutate(false, func(ctx context.Context, c *api.Client) (string, error) {
		_, err := c.UpdateTask(ctx, id, map[string]any{"completed": completed})
		return fmt.Sprintf("%s #%d: %s", verb, id, task.Text), err
	})
	return commands.Result{Message: fmt.Sprintf("marking #%d %s", id, verb)}, nil
}

func (m *Model) patchTask(id int64, patch map[string]any, verb string, next *tea.Cmd) (commands.Result, error) {
	task, err := m.store.Task(id)
	if err != nil {
		return commands.Result{}, err
	}
	if text, ok := patch["text"].(string); ok {
		candidate := task
		candidate.Text = text
		if err := candidate.Validate(); err != nil {
			return commands.Result{}, err
		}
	}
	*next = m.mutate(false, func(ctx context.Context, c *api.Client) (string, error) {
		_, err := c.UpdateTask(ctx, id, patch)
		return fmt.Sprintf("%s #%d", verb, id), err
	})
	return commands.Result{Message: fmt.Sprintf("updating #%d", id)}, nil
}

// validateParent allows only root tasks other than the task itself as
// parents, and refuses to nest a task that has children of its own.
func (m *Model) validateParent(id int64, parentID *int64) error {
	if _, err := m.store.Task(id); err != nil {
		return err
	}
	if parentID == nil {
		return nil
	}
	if _, err := m.store.Task(*parentID); err != nil {
		return err
	}
	candidates := taskview.ParentCandidates(m.store.Tasks(), id)
	if !slices.ContainsFunc(candidates, func(t model.Task) bool { return t.ID == *parentID }) {
		return fmt.Errorf("%w: #%d is not a top-level task", model.ErrValidation, *parentID)
	}
	for _, t := range m.store.Tasks() {
		if t.ParentID != nil && *t.ParentID == id {
			return fmt.Errorf("%w: #%d has subtasks and cannot be nested", model.ErrValidation, id)
		}
	}
	return nil
}

// deleteTask picks the archive endpoint for archived tasks.
func (m *Model) deleteTask(id int64) (tea.Cmd, error) {
	task, archived, err := m.store.Lookup(id)
	if err != nil {
		return nil, err
	}
	return m.mutate(false, func(ctx context.Context, c *api.Client) (string, error) {
		if archived {
			return fmt.Sprintf("deleted archived #%d: %s", id, task.Text), c.DeleteArchived(ctx, id)
		}
		return fmt.Sprintf("deleted #%d: %s", id, task.Text), c.DeleteTask(ctx, id)
	}), nil
}

func (m *Model) deleteCategory(name string) (tea.Cmd, error) {
	if _, err := m.store.Category(name); err != nil {
		return nil, err
	}
	return m.mutateCategory(categoryChange{from: name}, func(ctx context.Context, c *api.Client) (string, error) {
		return "category deleted: " + name, c.DeleteCategory(ctx, name)
	}), nil
}

func (m *Model) deleteContact(chatID model.FlexString) (tea.Cmd, error) {
	contact, err := m.store.Contact(chatID)
	if err != nil {
		return nil, err
	}
	return m.mutate(true, func(ctx context.Context, c *api.Client) (string, error) {
		return "contact deleted: " + contact.Label(), c.DeleteContact(ctx, chatID)
	}), nil
}

func (m *Model) contactAction(a commands.ContactArgs) (tea.Cmd, error) {
	switch a.Action {
	case commands.ContactAdd:
		if err := model.ValidateContactHandle(a.Target); err != nil {
			return nil, err
		}
		return m.mutate(true, func(ctx context.Context, c *api.Client) (string, error) {
			contact, err := c.AddContact(ctx, a.Target)
			return "contact added: " + contact.Label(), err
		}), nil
	case commands.ContactDelete:
		return m.deleteContact(model.FlexString(a.Target))
	case commands.ContactGroup, commands.ContactName:
		chatID := model.FlexString(a.Target)
		if _, err := m.store.Contact(chatID); err != nil {
			return nil, err
		}
		value := a.Value
		patch := api.ContactPatch{Group: &value}
		if a.Action == commands.ContactName {
			patch = api.ContactPatch{Name: &value}
		}
		return m.mutate(true, func(ctx context.Context, c *api.Client) (string, error) {
			return fmt.Sprintf("contact %s updated", chatID), c.UpdateContact(ctx, chatID, patch)
		}), nil
	default:
		return nil, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("unknown contact action %q", a.Action)}
	}
}

func (m *Model) savePrefs() {
	if err := m.persistViewPrefs(); err != nil {
		log.Printf("save view prefs: %v", err)
		m.notify("Prefs", "could not save view prefs: "+err.Error(), "error")
	}
}

func daysLabel(days int) string {
	if days == 0 {
		return "off"
	}
	return fmt.Sprintf("±%d days", days)
}

func sortLabel(mode taskview.SortMode) string {
	if mode == taskview.SortByText {
		return "text"
	}
	return "canonical"
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
