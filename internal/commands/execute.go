package commands

import "fmt"

type Result struct {
	Message string
}

type Handlers struct {
	Add          func(AddArgs) (Result, error)
	Done         func(TaskRef) (Result, error)
	Undo         func(TaskRef) (Result, error)
	Delete       func(TaskRef) (Result, error)
	Edit         func(EditArgs) (Result, error)
	Note         func(NoteArgs) (Result, error)
	Parent       func(ParentArgs) (Result, error)
	Due          func(DueArgs) (Result, error)
	Remind       func(RemindArgs) (Result, error)
	Repeat       func(RepeatArgs) (Result, error)
	Assign       func(AssignArgs) (Result, error)
	Deps         func(DepsArgs) (Result, error)
	Category     func(CategoryArgs) (Result, error)
	Days         func(DaysArgs) (Result, error)
	Search       func(SearchArgs) (Result, error)
	Sort         func(SortArgs) (Result, error)
	Archive      func() (Result, error)
	ArchiveDone  func() (Result, error)
	Reset        func() (Result, error)
	Refresh      func() (Result, error)
	Day          func(DayArgs) (Result, error)
	NewCategory  func(NewCategoryArgs) (Result, error)
	EditCategory func(EditCategoryArgs) (Result, error)
	DelCategory  func(CategoryArgs) (Result, error)
	Move         func(MoveArgs) (Result, error)
	Contact      func(ContactArgs) (Result, error)
	Contacts     func(SearchArgs) (Result, error)
	ContactSort  func(ContactSortArgs) (Result, error)
	Screen       func(ScreenArgs) (Result, error)
}

func Execute(cmd Command, h Handlers) (Result, error) {
	switch cmd.Type {
	case TypeAdd, TypeAddMany:
		return dispatch(cmd.Type, h.Add, cmd.Add)
	case TypeDone:
		return dispatch(cmd.Type, h.Done, cmd.Task)
	case TypeUndo:
		return dispatch(cmd.Type, h.Undo, cmd.Task)
	case TypeDelete:
		return dispatch(cmd.Type, h.Delete, cmd.Task)
	case TypeEdit:
		return dispatch(cmd.Type, h.Edit, cmd.Edit)
	case TypeNote:
		return dispatch(cmd.Type, h.Note, cmd.Note)
	case TypeParent:
		return dispatch(cmd.Type, h.Parent, cmd.Parent)
	case TypeDue:
		return dispatch(cmd.Type, h.Due, cmd.Due)
	case TypeRemind:
		return dispatch(cmd.Type, h.Remind, cmd.Remind)
	case TypeRepeat:
		return dispatch(cmd.Type, h.Repeat, cmd.Repeat)
	case TypeAssign:
		return dispatch(cmd.Type, h.Assign, cmd.Assign)
	case TypeDeps:
		return dispatch(cmd.Type, h.Deps, cmd.Deps)
	case TypeCategory:
		return dispatch(cmd.Type, h.Category, cmd.Category)
	case TypeDays:
		return dispatch(cmd.Type, h.Days, cmd.Days)
	case TypeSearch:
		return dispatch(cmd.Type, h.Search, cmd.Search)
	case TypeSort:
		return dispatch(cmd.Type, h.Sort, cmd.Sort)
	case TypeArchive:
		return dispatchNoArgs(cmd.Type, h.Archive)
	case TypeArchiveDone:
		return dispatchNoArgs(cmd.Type, h.ArchiveDone)
	case TypeReset:
		return dispatchNoArgs(cmd.Type, h.Reset)
	case TypeRefresh:
		return dispatchNoArgs(cmd.Type, h.Refresh)
	case TypeDay:
		return dispatch(cmd.Type, h.Day, cmd.Day)
	case TypeNewCategory:
		return dispatch(cmd.Type, h.NewCategory, cmd.NewCategory)
	case TypeEditCategory:
		return dispatch(cmd.Type, h.EditCategory, cmd.EditCategory)
	case TypeDelCategory:
		return dispatch(cmd.Type, h.DelCategory, cmd.Category)
	case TypeMove:
		return dispatch(cmd.Type, h.Move, cmd.Move)
	case TypeContact:
		return dispatch(cmd.Type, h.Contact, cmd.Contact)
	case TypeContacts:
		return dispatch(cmd.Type, h.Contacts, cmd.Search)
	case TypeContactSort:
		return dispatch(cmd.Type, h.ContactSort, cmd.ContactSort)
	case TypeScreen:
		return dispatch(cmd.Type, h.Screen, cmd.Screen)
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}

func dispatch[A any](t Type, fn func(A) (Result, error), args *A) (Result, error) {
	if fn == nil {
		return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: fmt.Sprintf("%s handler not configured", t)}
	}
	if args == nil {
		return Result{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s arguments missing", t)}
	}
	return fn(*args)
}

func dispatchNoArgs(t Type, fn func() (Result, error)) (Result, error) {
	if fn == nil {
		return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: fmt.Sprintf("%s handler not configured", t)}
	}
	return fn()
}
