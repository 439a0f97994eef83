// Package apitest is an in-memory task backend serving the same REST surface
// as the real service. It backs the client tests and the -demo mode.
package apitest

import (
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/sandeepkv93/taskdesk/internal/model"
)

type Server struct {
	mu         sync.Mutex
	tasks      []model.Task
	archived   []model.Task
	categories []model.Category
	contacts   []model.Contact
	nextID     int64
	nextChatID int64
	now        func() time.Time

	failStatus  int
	failMessage string
	requestIDs  []string
}

func New() *Server {
	return &Server{nextID: 1, nextChatID: 1000, now: time.Now}
}

// SetClock overrides the time source used for repeat materialization.
func (s *Server) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Seed replaces the backend state. Ids are taken as given and new ids
// continue after the largest one.
func (s *Server) Seed(tasks, archived []model.Task, categories []model.Category, contacts []model.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = slices.Clone(tasks)
	s.archived = slices.Clone(archived)
	s.categories = slices.Clone(categories)
	s.contacts = slices.Clone(contacts)
	for _, t := range slices.Concat(s.tasks, s.archived) {
		s.nextID = max(s.nextID, t.ID+1)
	}
}

// FailNext makes the next request answer with status and an {error} body.
func (s *Server) FailNext(status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStatus = status
	s.failMessage = message
}

func (s *Server) RequestIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requestIDs)
}

func (s *Server) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.tasks)
}

func (s *Server) Archived() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.archived)
}

func (s *Server) Categories() []model.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.categories)
}

// Handler mounts the API under /api.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.intercept)
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/tasks", s.tasksOnDate).Methods(http.MethodGet).Queries("date", "{date}")
	api.HandleFunc("/tasks", s.listTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks", s.createTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/stats", s.stats).Methods(http.MethodGet)
	api.HandleFunc("/tasks/process_repeating", s.processRepeating).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id:[0-9]+}", s.getTask).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id:[0-9]+}", s.updateTask).Methods(http.MethodPut)
	api.HandleFunc("/tasks/{id:[0-9]+}", s.deleteTask).Methods(http.MethodDelete)
	api.HandleFunc("/archive", s.archiveCompleted).Methods(http.MethodPost)
	api.HandleFunc("/archive/{id:[0-9]+}", s.deleteArchived).Methods(http.MethodDelete)

	api.HandleFunc("/categories", s.listCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories", s.createCategory).Methods(http.MethodPost)
	api.HandleFunc("/categories/reorder", s.reorderCategories).Methods(http.MethodPost)
	api.HandleFunc("/categories/{name}", s.updateCategory).Methods(http.MethodPut)
	api.HandleFunc("/categories/{name}", s.deleteCategory).Methods(http.MethodDelete)

	api.HandleFunc("/users", s.listContacts).Methods(http.MethodGet)
	api.HandleFunc("/users", s.createContact).Methods(http.MethodPost)
	api.HandleFunc("/users/{chat_id}", s.updateContact).Methods(http.MethodPut)
	api.HandleFunc("/users/{chat_id}", s.deleteContact).Methods(http.MethodDelete)
	return r
}

func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requestIDs = append(s.requestIDs, r.Header.Get("X-Request-ID"))
		status, message := s.failStatus, s.failMessage
		s.failStatus, s.failMessage = 0, ""
		s.mu.Unlock()
		if status != 0 {
			writeError(w, status, message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listTasks(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string][]model.Task{
		"tasks":          nonNil(s.tasks),
		"archived_tasks": nonNil(s.archived),
	})
}

func (s *Server) tasksOnDate(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Task{}
	for _, t := range s.tasks {
		if when, ok := t.When(); ok && when.Format(time.DateOnly) == date {
			out = append(out, t)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOfTask(s.tasks, id); i >= 0 {
		writeJSON(w, http.StatusOK, s.tasks[i])
		return
	}
	if i := indexOfTask(s.archived, id); i >= 0 {
		writeJSON(w, http.StatusOK, s.archived[i])
		return
	}
	writeError(w, http.StatusNotFound, "task not found")
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var task model.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		writeError(w, http.StatusBadRequest, "invalid task payload")
		return
	}
	if strings.TrimSpace(task.Text) == "" {
		writeError(w, http.StatusBadRequest, "task text is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	task.ID = s.nextID
	s.nextID++
	s.tasks = append(s.tasks, task)
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	var patch map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid task payload")
		return
	}
	delete(patch, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOfTask(s.tasks, id)
	if i < 0 {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	merged, err := mergeTask(s.tasks[i], patch)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.tasks[i] = merged
	writeJSON(w, http.StatusOK, merged)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = slices.DeleteFunc(s.tasks, func(t model.Task) bool { return t.ID == id })
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) deleteArchived(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archived = slices.DeleteFunc(s.archived, func(t model.Task) bool { return t.ID == id })
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) archiveCompleted(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.tasks[:0:0]
	for _, t := range s.tasks {
		if t.Completed {
			s.archived = append(s.archived, t)
			continue
		}
		kept = append(kept, t)
	}
	s.tasks = kept
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) stats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := model.Stats{Total: len(s.tasks)}
	for _, t := range s.tasks {
		if t.Completed {
			out.Completed++
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// processRepeating spawns the next occurrence of every completed repeating
// task whose next date has arrived. The spawned task carries the repeat
// rule forward and the completed one stops repeating.
func (s *Server) processRepeating(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	created := 0
	for i := range s.tasks {
		src := s.tasks[i]
		if !src.Completed || !src.IsRepeating() {
			continue
		}
		when, ok := src.When()
		if !ok {
			continue
		}
		next := advance(when, src.RepeatInterval)
		if next.After(now) {
			continue
		}
		if src.RepeatUntil != nil {
			if until, ok := model.ParseDatetime(*src.RepeatUntil); ok && next.After(until.Add(24*time.Hour-time.Nanosecond)) {
				continue
			}
		}
		if src.RepeatCount != nil && *src.RepeatCount <= 1 {
			continue
		}

		spawn := src
		spawn.ID = s.nextID
		s.nextID++
		spawn.Completed = false
		stamp := next.Format(time.RFC3339)
		spawn.Datetime = &stamp
		if src.RepeatCount != nil {
			left := *src.RepeatCount - 1
			spawn.RepeatCount = &left
		}
		s.tasks[i].RepeatInterval = ""
		s.tasks[i].RepeatCount = nil
		s.tasks[i].RepeatUntil = nil
		s.tasks = append(s.tasks, spawn)
		created++
	}
	writeJSON(w, http.StatusOK, map[string]int{"created": created})
}

func (s *Server) listCategories(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, nonNil(s.categories))
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var cat model.Category
	if err := json.NewDecoder(r.Body).Decode(&cat); err != nil || strings.TrimSpace(cat.Name) == "" {
		writeError(w, http.StatusBadRequest, "category name is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if indexOfCategory(s.categories, cat.Name) >= 0 {
		writeError(w, http.StatusBadRequest, "category already exists")
		return
	}
	s.categories = append(s.categories, cat)
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "category": cat})
}

func (s *Server) updateCategory(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var cat model.Category
	if err := json.NewDecoder(r.Body).Decode(&cat); err != nil || strings.TrimSpace(cat.Name) == "" {
		writeError(w, http.StatusBadRequest, "category name is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOfCategory(s.categories, name)
	if i < 0 {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}
	if cat.Name != name && indexOfCategory(s.categories, cat.Name) >= 0 {
		writeError(w, http.StatusBadRequest, "category already exists")
		return
	}
	s.categories[i] = cat
	if cat.Name != name {
		renamed := cat.Name
		for j := range s.tasks {
			if s.tasks[j].CategoryName() == name {
				s.tasks[j].Category = &renamed
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.CategoryName() == name {
			writeError(w, http.StatusBadRequest, "category still has tasks")
			return
		}
	}
	i := indexOfCategory(s.categories, name)
	if i < 0 {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}
	s.categories = slices.Delete(s.categories, i, i+1)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) reorderCategories(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Categories []string `json:"categories"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Categories) == 0 {
		writeError(w, http.StatusBadRequest, "categories must be a non-empty list")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(body.Categories) != len(s.categories) {
		writeError(w, http.StatusBadRequest, "order must list every category once")
		return
	}
	ordered := make([]model.Category, 0, len(body.Categories))
	for _, name := range body.Categories {
		i := indexOfCategory(s.categories, name)
		if i < 0 || indexOfCategory(ordered, name) >= 0 {
			writeError(w, http.StatusBadRequest, "order must list every category once")
			return
		}
		ordered = append(ordered, s.categories[i])
	}
	s.categories = ordered
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) listContacts(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, nonNil(s.contacts))
}

func (s *Server) createContact(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || model.ValidateContactHandle(body.Username) != nil {
		writeError(w, http.StatusBadRequest, "username must start with @")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.contacts {
		if strings.EqualFold(c.Username, body.Username) {
			writeError(w, http.StatusBadRequest, "contact already exists")
			return
		}
	}
	contact := model.Contact{
		ChatID:   model.FlexString(strconv.FormatInt(s.nextChatID, 10)),
		Name:     strings.TrimPrefix(body.Username, "@"),
		Username: body.Username,
	}
	s.nextChatID++
	s.contacts = append(s.contacts, contact)
	writeJSON(w, http.StatusCreated, contact)
}

func (s *Server) updateContact(w http.ResponseWriter, r *http.Request) {
	chatID := model.FlexString(mux.Vars(r)["chat_id"])
	var patch struct {
		Name     *string `json:"name"`
		Username *string `json:"username"`
		Group    *string `json:"group"`
	}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid contact payload")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.contacts, func(c model.Contact) bool { return c.ChatID == chatID })
	if i < 0 {
		writeError(w, http.StatusNotFound, "contact not found")
		return
	}
	if patch.Name != nil {
		s.contacts[i].Name = *patch.Name
	}
	if patch.Username != nil {
		s.contacts[i].Username = *patch.Username
	}
	if patch.Group != nil {
		s.contacts[i].Group = *patch.Group
	}
	writeJSON(w, http.StatusOK, s.contacts[i])
}

func (s *Server) deleteContact(w http.ResponseWriter, r *http.Request) {
	chatID := model.FlexString(mux.Vars(r)["chat_id"])
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.contacts)
	s.contacts = slices.DeleteFunc(s.contacts, func(c model.Contact) bool { return c.ChatID == chatID })
	if len(s.contacts) == n {
		writeError(w, http.StatusNotFound, "contact not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func mergeTask(base model.Task, patch map[string]json.RawMessage) (model.Task, error) {
	raw, err := json.Marshal(base)
	if err != nil {
		return model.Task{}, err
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return model.Task{}, err
	}
	for k, v := range patch {
		doc[k] = v
	}
	raw, err = json.Marshal(doc)
	if err != nil {
		return model.Task{}, err
	}
	var out model.Task
	if err := json.Unmarshal(raw, &out); err != nil {
		return model.Task{}, err
	}
	out.ID = base.ID
	return out, nil
}

func advance(t time.Time, interval model.RepeatInterval) time.Time {
	switch interval {
	case model.RepeatDay:
		return t.AddDate(0, 0, 1)
	case model.RepeatWeek:
		return t.AddDate(0, 0, 7)
	case model.RepeatMonth:
		return t.AddDate(0, 1, 0)
	case model.RepeatQuarter:
		return t.AddDate(0, 3, 0)
	case model.RepeatYear:
		return t.AddDate(1, 0, 0)
	default:
		return t
	}
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func indexOfTask(tasks []model.Task, id int64) int {
	return slices.IndexFunc(tasks, func(t model.Task) bool { return t.ID == id })
}

func indexOfCategory(cats []model.Category, name string) int {
	return slices.IndexFunc(cats, func(c model.Category) bool { return c.Name == name })
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
