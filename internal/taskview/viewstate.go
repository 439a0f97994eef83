// Package taskview turns a task collection plus view parameters into the
// ordered, filtered, nested set the terminal renders. Everything here is pure:
// the same inputs always produce the same output.
package taskview

import (
	"fmt"
	"strings"

	"github.com/sandeepkv93/taskdesk/internal/model"
)

type SortMode string

const (
	SortCanonical SortMode = ""
	SortByText    SortMode = "text"
)

func (s SortMode) IsValid() bool {
	return s == SortCanonical || s == SortByText
}

type ContactSortField string

const (
	ContactSortName     ContactSortField = "name"
	ContactSortUsername ContactSortField = "username"
	ContactSortGroup    ContactSortField = "group"
)

func (f ContactSortField) IsValid() bool {
	switch f {
	case ContactSortName, ContactSortUsername, ContactSortGroup:
		return true
	default:
		return false
	}
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ViewState holds the transient filter and sort parameters of one session.
// Transitions return a new value; nothing here talks to the backend.
type ViewState struct {
	ActiveCategory   *string
	DaysFilter       int
	ShowArchive      bool
	SearchTerm       string
	SortMode         SortMode
	ContactSearch    string
	ContactSortField ContactSortField
	ContactSortOrder SortOrder
}

func DefaultViewState() ViewState {
	return ViewState{
		ContactSortField: ContactSortName,
		ContactSortOrder: SortAsc,
	}
}

// FilterByCategory selects a category; selecting the active one again, or
// an empty name, clears the filter.
func (v ViewState) FilterByCategory(name string) ViewState {
	name = strings.TrimSpace(name)
	if name == "" || (v.ActiveCategory != nil && *v.ActiveCategory == name) {
		v.ActiveCategory = nil
		return v
	}
	v.ActiveCategory = &name
	return v
}

// SelectCategory sets the filter without toggling. An empty name clears it.
func (v ViewState) SelectCategory(name string) ViewState {
	name = strings.TrimSpace(name)
	if name == "" {
		v.ActiveCategory = nil
		return v
	}
	v.ActiveCategory = &name
	return v
}

func (v ViewState) SetDaysFilter(days int) (ViewState, error) {
	if days < 0 {
		return v, fmt.Errorf("%w: days filter must not be negative", model.ErrValidation)
	}
	v.DaysFilter = days
	return v, nil
}

func (v ViewState) ToggleArchive() ViewState {
	v.ShowArchive = !v.ShowArchive
	return v
}

func (v ViewState) SetSearch(term string) ViewState {
	v.SearchTerm = strings.TrimSpace(term)
	return v
}

func (v ViewState) SetSortMode(mode SortMode) (ViewState, error) {
	if !mode.IsValid() {
		return v, fmt.Errorf("%w: unknown sort mode %q", model.ErrValidation, mode)
	}
	v.SortMode = mode
	return v, nil
}

// ResetFilters clears the category and horizon filters. Search and archive
// mode are left alone.
func (v ViewState) ResetFilters() ViewState {
	v.ActiveCategory = nil
	v.DaysFilter = 0
	return v
}

func (v ViewState) SetContactSearch(term string) ViewState {
	v.ContactSearch = strings.TrimSpace(term)
	return v
}

// SortContactsBy flips the order when the field is already active, otherwise
// switches to the field in ascending order.
func (v ViewState) SortContactsBy(field ContactSortField) (ViewState, error) {
	if !field.IsValid() {
		return v, fmt.Errorf("%w: unknown contact sort field %q", model.ErrValidation, field)
	}
	if v.ContactSortField == field {
		if v.ContactSortOrder == SortAsc {
			v.ContactSortOrder = SortDesc
		} else {
			v.ContactSortOrder = SortAsc
		}
		return v, nil
	}
	v.ContactSortField = field
	v.ContactSortOrder = SortAsc
	return v, nil
}

func (v ViewState) CategoryLabel() string {
	if v.ActiveCategory == nil {
		return "all"
	}
	return *v.ActiveCategory
}
