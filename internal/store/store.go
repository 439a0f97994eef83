// Package store holds the client's read-through copy of backend state.
//
// The store is owned by the update loop and is not safe for concurrent use.
// Fetches are tagged with a sequence number from NextSeq; a response is only
// applied when it is newer than the last one applied for the same
// collection, so a slow fetch can never overwrite a fresher one.
package store

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/sandeepkv93/taskdesk/internal/model"
)

var ErrNotFoundLocal = errors.New("store: not found locally")

type Snapshot struct {
	Tasks      []model.Task
	Archived   []model.Task
	Categories []model.Category
	Contacts   []model.Contact
	FetchedAt  time.Time
}

type Store struct {
	snap  Snapshot
	stale bool

	stats model.Stats

	nextSeq           uint64
	appliedTasks      uint64
	appliedCategories uint64
	appliedContacts   uint64
	appliedStats      uint64
}

// Collection names one independently fetched part of the backend state.
type Collection int

const (
	CollectionTasks Collection = iota
	CollectionCategories
	CollectionContacts
	CollectionStats
)

func New() *Store {
	return &Store{stale: true}
}

// NextSeq issues the sequence number for a new fetch.
func (s *Store) NextSeq() uint64 {
	s.nextSeq++
	return s.nextSeq
}

// Seed loads a cached snapshot and marks it stale. It reports false and
// changes nothing once a live task list has been applied.
func (s *Store) Seed(snap Snapshot) bool {
	if s.appliedTasks > 0 {
		return false
	}
	s.snap = cloneSnapshot(snap)
	s.stale = true
	return true
}

func (s *Store) ApplyTasks(seq uint64, tasks, archived []model.Task, at time.Time) bool {
	if seq <= s.appliedTasks {
		return false
	}
	s.appliedTasks = seq
	s.snap.Tasks = nonNil(slices.Clone(tasks))
	s.snap.Archived = nonNil(slices.Clone(archived))
	s.snap.FetchedAt = at
	s.stale = false
	return true
}

func (s *Store) ApplyCategories(seq uint64, categories []model.Category) bool {
	if seq <= s.appliedCategories {
		return false
	}
	s.appliedCategories = seq
	s.snap.Categories = nonNil(slices.Clone(categories))
	return true
}

func (s *Store) ApplyContacts(seq uint64, contacts []model.Contact) bool {
	if seq <= s.appliedContacts {
		return false
	}
	s.appliedContacts = seq
	s.snap.Contacts = nonNil(slices.Clone(contacts))
	return true
}

// ApplyStats records the stats of fetch seq. A failed fetch passes the
// locally computed fallback, so a late reply cannot replace it either.
func (s *Store) ApplyStats(seq uint64, stats model.Stats) bool {
	if seq <= s.appliedStats {
		return false
	}
	s.appliedStats = seq
	s.stats = stats
	return true
}

// Superseded reports whether a response to fetch seq is older than what the
// collection already shows. Failures of superseded fetches are ignored too.
func (s *Store) Superseded(c Collection, seq uint64) bool {
	switch c {
	case CollectionTasks:
		return seq <= s.appliedTasks
	case CollectionCategories:
		return seq <= s.appliedCategories
	case CollectionContacts:
		return seq <= s.appliedContacts
	case CollectionStats:
		return seq <= s.appliedStats
	}
	return false
}

// Invalidate marks the data stale after a mutation; the next refresh
// replaces it wholesale.
func (s *Store) Invalidate() { s.stale = true }

func (s *Store) Stale() bool { return s.stale }

func (s *Store) Tasks() []model.Task          { return s.snap.Tasks }
func (s *Store) Archived() []model.Task       { return s.snap.Archived }
func (s *Store) Categories() []model.Category { return s.snap.Categories }
func (s *Store) Contacts() []model.Contact    { return s.snap.Contacts }
func (s *Store) FetchedAt() time.Time         { return s.snap.FetchedAt }
func (s *Store) Stats() model.Stats           { return s.stats }

func (s *Store) Snapshot() Snapshot { return cloneSnapshot(s.snap) }

// Task looks an id up in the active collection.
func (s *Store) Task(id int64) (model.Task, error) {
	for _, t := range s.snap.Tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return model.Task{}, fmt.Errorf("%w: task %d", ErrNotFoundLocal, id)
}

// Lookup searches the active then the archived collection.
func (s *Store) Lookup(id int64) (task model.Task, archived bool, err error) {
	if t, err := s.Task(id); err == nil {
		return t, false, nil
	}
	for _, t := range s.snap.Archived {
		if t.ID == id {
			return t, true, nil
		}
	}
	return model.Task{}, false, fmt.Errorf("%w: task %d", ErrNotFoundLocal, id)
}

func (s *Store) Category(name string) (model.Category, error) {
	for _, c := range s.snap.Categories {
		if c.Name == name {
			return c, nil
		}
	}
	return model.Category{}, fmt.Errorf("%w: category %q", ErrNotFoundLocal, name)
}

func (s *Store) Contact(chatID model.FlexString) (model.Contact, error) {
	for _, c := range s.snap.Contacts {
		if c.ChatID == chatID {
			return c, nil
		}
	}
	return model.Contact{}, fmt.Errorf("%w: contact %s", ErrNotFoundLocal, chatID)
}

// CategoryOrder returns the category names with name moved to index. The
// index is clamped to the list bounds.
func (s *Store) CategoryOrder(name string, index int) ([]string, error) {
	if _, err := s.Category(name); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(s.snap.Categories))
	for _, c := range s.snap.Categories {
		if c.Name != name {
			names = append(names, c.Name)
		}
	}
	index = max(0, min(index, len(names)))
	return slices.Insert(names, index, name), nil
}

func cloneSnapshot(in Snapshot) Snapshot {
	return Snapshot{
		Tasks:      nonNil(slices.Clone(in.Tasks)),
		Archived:   nonNil(slices.Clone(in.Archived)),
		Categories: nonNil(slices.Clone(in.Categories)),
		Contacts:   nonNil(slices.Clone(in.Contacts)),
		FetchedAt:  in.FetchedAt,
	}
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
