package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/taskdesk/internal/model"
)

type Type string

const (
	TypeAdd          Type = "add"
	TypeAddMany      Type = "addmany"
	TypeDone         Type = "done"
	TypeUndo         Type = "undo"
	TypeDelete       Type = "del"
	TypeEdit         Type = "edit"
	TypeNote         Type = "note"
	TypeParent       Type = "parent"
	TypeDue          Type = "due"
	TypeRemind       Type = "remind"
	TypeRepeat       Type = "repeat"
	TypeAssign       Type = "assign"
	TypeDeps         Type = "deps"
	TypeCategory     Type = "cat"
	TypeDays         Type = "days"
	TypeSearch       Type = "search"
	TypeSort         Type = "sort"
	TypeArchive      Type = "archive"
	TypeArchiveDone  Type = "archive-done"
	TypeReset        Type = "reset"
	TypeDay          Type = "day"
	TypeNewCategory  Type = "newcat"
	TypeEditCategory Type = "editcat"
	TypeDelCategory  Type = "delcat"
	TypeMove         Type = "move"
	TypeContact      Type = "contact"
	TypeContacts     Type = "contacts"
	TypeContactSort  Type = "csort"
	TypeScreen       Type = "screen"
	TypeRefresh      Type = "refresh"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalid(format string, args ...any) error {
	return &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

type AddArgs struct {
	Texts []string
}

type TaskRef struct {
	ID int64
}

type EditArgs struct {
	ID   int64
	Text string
}

type NoteArgs struct {
	ID          int64
	Description string
}

// ParentArgs with a nil ParentID detaches the task.
type ParentArgs struct {
	ID       int64
	ParentID *int64
}

// DueArgs with a nil Datetime clears the date.
type DueArgs struct {
	ID       int64
	Datetime *string
}

type RemindArgs struct {
	ID      int64
	Minutes *int
}

// RepeatArgs with an empty Interval stops the repeat.
type RepeatArgs struct {
	ID       int64
	Interval model.RepeatInterval
	Count    *int
	Until    *string
}

type AssignArgs struct {
	ID     int64
	ChatID model.FlexString
}

type DepsArgs struct {
	ID           int64
	Dependencies []int64
}

// CategoryArgs with an empty Name clears the category filter.
type CategoryArgs struct {
	Name string
}

type DaysArgs struct {
	Days int
}

type SearchArgs struct {
	Term string
}

type SortArgs struct {
	Mode string
}

type DayArgs struct {
	Date time.Time
}

type NewCategoryArgs struct {
	Name  string
	Color string
}

type EditCategoryArgs struct {
	Name    string
	NewName string
	Color   string
}

type MoveArgs struct {
	Name  string
	Index int
}

type ContactAction string

const (
	ContactAdd    ContactAction = "add"
	ContactDelete ContactAction = "del"
	ContactGroup  ContactAction = "group"
	ContactName   ContactAction = "name"
)

type ContactArgs struct {
	Action ContactAction
	Target string
	Value  string
}

type ContactSortArgs struct {
	Field string
}

type ScreenArgs struct {
	Name string
}

type Command struct {
	Type         Type
	Raw          string
	Add          *AddArgs
	Task         *TaskRef
	Edit         *EditArgs
	Note         *NoteArgs
	Parent       *ParentArgs
	Due          *DueArgs
	Remind       *RemindArgs
	Repeat       *RepeatArgs
	Assign       *AssignArgs
	Deps         *DepsArgs
	Category     *CategoryArgs
	Days         *DaysArgs
	Search       *SearchArgs
	Sort         *SortArgs
	Day          *DayArgs
	NewCategory  *NewCategoryArgs
	EditCategory *EditCategoryArgs
	Move         *MoveArgs
	Contact      *ContactArgs
	ContactSort  *ContactSortArgs
	Screen       *ScreenArgs
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	head, rest, _ := strings.Cut(raw, " ")
	head = strings.ToLower(head)
	rest = strings.TrimSpace(rest)
	args := strings.Fields(rest)
	cmd := Command{Type: Type(head), Raw: input}

	var err error
	switch cmd.Type {
	case TypeAdd:
		if rest == "" {
			return Command{}, invalid("add requires task text")
		}
		cmd.Add = &AddArgs{Texts: []string{rest}}
	case TypeAddMany:
		cmd.Add, err = parseAddMany(rest)
	case TypeDone, TypeUndo, TypeDelete:
		cmd.Task, err = parseTaskRef(head, args)
	case TypeEdit:
		cmd.Edit, err = parseEdit(rest)
	case TypeNote:
		cmd.Note, err = parseNote(rest)
	case TypeParent:
		cmd.Parent, err = parseParent(args)
	case TypeDue:
		cmd.Due, err = parseDue(args)
	case TypeRemind:
		cmd.Remind, err = parseRemind(args)
	case TypeRepeat:
		cmd.Repeat, err = parseRepeat(args)
	case TypeAssign:
		cmd.Assign, err = parseAssign(args)
	case TypeDeps:
		cmd.Deps, err = parseDeps(args)
	case TypeCategory:
		cmd.Category = &CategoryArgs{Name: rest}
	case TypeDays:
		cmd.Days, err = parseDays(args)
	case TypeSearch, TypeContacts:
		cmd.Search = &SearchArgs{Term: rest}
	case TypeSort:
		cmd.Sort, err = parseSort(args)
	case TypeArchive, TypeArchiveDone, TypeReset, TypeRefresh:
		if len(args) != 0 {
			return Command{}, invalid("%s takes no arguments", head)
		}
	case TypeDay:
		cmd.Day, err = parseDay(args)
	case TypeNewCategory:
		cmd.NewCategory, err = parseNewCategory(args)
	case TypeEditCategory:
		cmd.EditCategory, err = parseEditCategory(rest, args)
	case TypeDelCategory:
		if rest == "" {
			return Command{}, invalid("delcat requires a category name")
		}
		cmd.Category = &CategoryArgs{Name: rest}
	case TypeMove:
		cmd.Move, err = parseMove(args)
	case TypeContact:
		cmd.Contact, err = parseContact(rest)
	case TypeContactSort:
		cmd.ContactSort, err = parseContactSort(args)
	case TypeScreen:
		cmd.Screen, err = parseScreen(args)
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
	if err != nil {
		return Command{}, err
	}
	return cmd, nil
}

func parseAddMany(rest string) (*AddArgs, error) {
	texts := make([]string, 0)
	for _, part := range strings.FieldsFunc(rest, func(r rune) bool { return r == ';' || r == '\n' }) {
		if part = strings.TrimSpace(part); part != "" {
			texts = append(texts, part)
		}
	}
	if len(texts) == 0 {
		return nil, invalid("addmany requires at least one task, separated by ';'")
	}
	return &AddArgs{Texts: texts}, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("invalid task id %q", s)
	}
	return id, nil
}

func parseTaskRef(head string, args []string) (*TaskRef, error) {
	if len(args) != 1 {
		return nil, invalid("%s requires exactly one task id", head)
	}
	id, err := parseID(args[0])
	if err != nil {
		return nil, err
	}
	return &TaskRef{ID: id}, nil
}

func splitIDAndRest(head, rest string) (int64, string, error) {
	idText, tail, _ := strings.Cut(rest, " ")
	if idText == "" {
		return 0, "", invalid("%s requires a task id", head)
	}
	id, err := parseID(idText)
	if err != nil {
		return 0, "", err
	}
	return id, strings.TrimSpace(tail), nil
}

func parseEdit(rest string) (*EditArgs, error) {
	id, text, err := splitIDAndRest("edit", rest)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, invalid("edit requires new task text")
	}
	return &EditArgs{ID: id, Text: text}, nil
}

func parseNote(rest string) (*NoteArgs, error) {
	id, text, err := splitIDAndRest("note", rest)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, invalid("note requires text or none")
	}
	if isNone(text) {
		text = ""
	}
	return &NoteArgs{ID: id, Description: text}, nil
}

func isNone(s string) bool {
	switch strings.ToLower(s) {
	case "none", "-", "clear":
		return true
	default:
		return false
	}
}

func parseParent(args []string) (*ParentArgs, error) {
	if len(args) != 2 {
		return nil, invalid("parent requires a task id and a parent id or none")
	}
	id, err := parseID(args[0])
	if err != nil {
		return nil, err
	}
	out := &ParentArgs{ID: id}
	if isNone(args[1]) {
		return out, nil
	}
	parent, err := parseID(args[1])
	if err != nil {
		return nil, err
	}
	if parent == id {
		return nil, invalid("task %d cannot be its own parent", id)
	}
	out.ParentID = &parent
	return out, nil
}

var dueLayouts = []string{"2006-01-02T15:04", "2006-01-02 15:04", time.DateOnly}

func parseDue(args []string) (*DueArgs, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, invalid("due requires a task id and YYYY-MM-DD[THH:MM] or none")
	}
	id, err := parseID(args[0])
	if err != nil {
		return nil, err
	}
	out := &DueArgs{ID: id}
	value := strings.Join(args[1:], " ")
	if isNone(value) {
		return out, nil
	}
	for _, layout := range dueLayouts {
		if tm, perr := time.ParseInLocation(layout, value, time.Local); perr == nil {
			stamp := tm.Format("2006-01-02T15:04")
			out.Datetime = &stamp
			return out, nil
		}
	}
	return nil, invalid("invalid date %q, want YYYY-MM-DD or YYYY-MM-DDTHH:MM", value)
}

func parseRemind(args []string) (*RemindArgs, error) {
	if len(args) != 2 {
		return nil, invalid("remind requires a task id and minutes or none")
	}
	id, err := parseID(args[0])
	if err != nil {
		return nil, err
	}
	out := &RemindArgs{ID: id}
	if isNone(args[1]) {
		return out, nil
	}
	minutes, err := strconv.Atoi(args[1])
	if err != nil || minutes < 0 {
		return nil, invalid("invalid reminder minutes %q", args[1])
	}
	out.Minutes = &minutes
	return out, nil
}

func parseRepeat(args []string) (*RepeatArgs, error) {
	if len(args) < 2 {
		return nil, invalid("repeat requires a task id and an interval or none")
	}
	id, err := parseID(args[0])
	if err != nil {
		return nil, err
	}
	out := &RepeatArgs{ID: id}
	if isNone(args[1]) {
		if len(args) > 2 {
			return nil, invalid("repeat none takes no further arguments")
		}
		return out, nil
	}
	out.Interval = model.RepeatInterval(strings.ToLower(args[1]))
	if !out.Interval.IsValid() {
		return nil, invalid("unknown repeat interval %q", args[1])
	}

	rest := args[2:]
	for len(rest) > 0 {
		switch {
		case strings.EqualFold(rest[0], "until"):
			if len(rest) < 2 {
				return nil, invalid("until requires a date")
			}
			if _, err := time.Parse(time.DateOnly, rest[1]); err != nil {
				return nil, invalid("invalid until date %q", rest[1])
			}
			until := rest[1]
			out.Until = &until
			rest = rest[2:]
		default:
			count, err := strconv.Atoi(rest[0])
			if err != nil || count <= 0 || out.Count != nil {
				return nil, invalid("unexpected repeat argument %q", rest[0])
			}
			out.Count = &count
			rest = rest[1:]
		}
	}
	return out, nil
}

func parseAssign(args []string) (*AssignArgs, error) {
	if len(args) != 2 {
		return nil, invalid("assign requires a task id and a chat id or none")
	}
	id, err := parseID(args[0])
	if err != nil {
		return nil, err
	}
	out := &AssignArgs{ID: id}
	if !isNone(args[1]) {
		out.ChatID = model.FlexString(args[1])
	}
	return out, nil
}

func parseDeps(args []string) (*DepsArgs, error) {
	if len(args) < 2 {
		return nil, invalid("deps requires a task id and dependency ids or none")
	}
	id, err := parseID(args[0])
	if err != nil {
		return nil, err
	}
	out := &DepsArgs{ID: id, Dependencies: []int64{}}
	if len(args) == 2 && isNone(args[1]) {
		return out, nil
	}
	for _, field := range strings.FieldsFunc(strings.Join(args[1:], ","), func(r rune) bool { return r == ',' || r == ' ' }) {
		dep, err := parseID(field)
		if err != nil {
			return nil, err
		}
		if dep == id {
			return nil, invalid("task %d cannot depend on itself", id)
		}
		out.Dependencies = append(out.Dependencies, dep)
	}
	return out, nil
}

func parseDays(args []string) (*DaysArgs, error) {
	if len(args) != 1 {
		return nil, invalid("days requires a number (0 clears the horizon)")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return nil, invalid("invalid day count %q", args[0])
	}
	return &DaysArgs{Days: n}, nil
}

func parseSort(args []string) (*SortArgs, error) {
	if len(args) != 1 {
		return nil, invalid("sort requires canonical or text")
	}
	switch mode := strings.ToLower(args[0]); mode {
	case "canonical", "default":
		return &SortArgs{Mode: ""}, nil
	case "text":
		return &SortArgs{Mode: mode}, nil
	default:
		return nil, invalid("unknown sort mode %q", args[0])
	}
}

func parseDay(args []string) (*DayArgs, error) {
	if len(args) != 1 {
		return nil, invalid("day requires YYYY-MM-DD")
	}
	date, err := time.ParseInLocation(time.DateOnly, args[0], time.Local)
	if err != nil {
		return nil, invalid("invalid date %q, want YYYY-MM-DD", args[0])
	}
	return &DayArgs{Date: date}, nil
}

func parseNewCategory(args []string) (*NewCategoryArgs, error) {
	if len(args) == 0 {
		return nil, invalid("newcat requires a name")
	}
	out := &NewCategoryArgs{Name: strings.Join(args, " ")}
	if last := args[len(args)-1]; len(args) > 1 && isColor(last) {
		out.Name = strings.Join(args[:len(args)-1], " ")
		out.Color = last
	}
	return out, nil
}

// parseEditCategory accepts "<name> <new name> [#rrggbb]" for single-word
// names and "<name> -> <new name> [#rrggbb]" when either name has spaces.
func parseEditCategory(rest string, args []string) (*EditCategoryArgs, error) {
	if from, to, ok := strings.Cut(rest, "->"); ok {
		from = strings.Join(strings.Fields(from), " ")
		fields := strings.Fields(to)
		if from == "" || len(fields) == 0 {
			return nil, invalid("editcat requires a name and a new name")
		}
		out := &EditCategoryArgs{Name: from, NewName: strings.Join(fields, " ")}
		if last := fields[len(fields)-1]; len(fields) > 1 && isColor(last) {
			out.NewName = strings.Join(fields[:len(fields)-1], " ")
			out.Color = last
		}
		return out, nil
	}
	if len(args) < 2 {
		return nil, invalid("editcat requires a name and a new name")
	}
	out := &EditCategoryArgs{Name: args[0], NewName: args[1]}
	switch {
	case len(args) == 3 && isColor(args[2]):
		out.Color = args[2]
	case len(args) > 2:
		return nil, invalid("editcat takes a name, a new name and an optional #rrggbb colour; use -> between names with spaces")
	}
	return out, nil
}

func isColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	_, err := strconv.ParseUint(s[1:], 16, 32)
	return err == nil
}

func parseMove(args []string) (*MoveArgs, error) {
	if len(args) < 2 {
		return nil, invalid("move requires a category name and an index")
	}
	index, err := strconv.Atoi(args[len(args)-1])
	if err != nil || index < 0 {
		return nil, invalid("invalid index %q", args[len(args)-1])
	}
	return &MoveArgs{Name: strings.Join(args[:len(args)-1], " "), Index: index}, nil
}

func parseContact(rest string) (*ContactArgs, error) {
	action, tail, _ := strings.Cut(rest, " ")
	tail = strings.TrimSpace(tail)
	target, value, _ := strings.Cut(tail, " ")
	value = strings.TrimSpace(value)

	out := &ContactArgs{Action: ContactAction(strings.ToLower(action)), Target: target, Value: value}
	switch out.Action {
	case ContactAdd:
		if err := model.ValidateContactHandle(target); err != nil || value != "" {
			return nil, invalid("contact add requires one @handle")
		}
	case ContactDelete:
		if target == "" || value != "" {
			return nil, invalid("contact del requires a chat id")
		}
	case ContactGroup:
		if target == "" {
			return nil, invalid("contact group requires a chat id")
		}
		if isNone(value) {
			out.Value = ""
		}
	case ContactName:
		if target == "" || value == "" {
			return nil, invalid("contact name requires a chat id and a name")
		}
	default:
		return nil, invalid("contact requires add, del, group or name")
	}
	return out, nil
}

func parseContactSort(args []string) (*ContactSortArgs, error) {
	if len(args) != 1 {
		return nil, invalid("csort requires name, username or group")
	}
	field := strings.ToLower(args[0])
	switch field {
	case "name", "username", "group":
		return &ContactSortArgs{Field: field}, nil
	default:
		return nil, invalid("unknown contact sort field %q", args[0])
	}
}

func parseScreen(args []string) (*ScreenArgs, error) {
	if len(args) != 1 {
		return nil, invalid("screen requires tasks, categories or contacts")
	}
	switch name := strings.ToLower(args[0]); name {
	case "tasks", "categories", "contacts":
		return &ScreenArgs{Name: name}, nil
	default:
		return nil, invalid("unknown screen %q", args[0])
	}
}
