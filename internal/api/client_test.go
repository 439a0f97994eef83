package api_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/taskdesk/internal/api"
	"github.com/sandeepkv93/taskdesk/internal/api/apitest"
	"github.com/sandeepkv93/taskdesk/internal/model"
)

func newClient(t *testing.T) (*api.Client, *apitest.Server) {
	t.Helper()
	backend := apitest.New()
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)
	return api.NewClient(srv.URL+"/api", api.WithTimeout(2*time.Second)), backend
}

func strPtr(s string) *string { return &s }

func TestTaskLifecycle(t *testing.T) {
	client, backend := newClient(t)
	ctx := t.Context()

	created, err := client.CreateTask(ctx, model.Task{Text: "write tests", Category: strPtr("Work")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected backend-assigned id")
	}

	updated, err := client.UpdateTask(ctx, created.ID, map[string]any{"completed": true})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.Completed || updated.Text != "write tests" || updated.CategoryName() != "Work" {
		t.Fatalf("expected merged update, got %+v", updated)
	}

	if err := client.ArchiveCompleted(ctx); err != nil {
		t.Fatalf("archive: %v", err)
	}
	list, err := client.ListTasks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Tasks) != 0 || len(list.Archived) != 1 {
		t.Fatalf("expected task moved to archive, got %d active %d archived", len(list.Tasks), len(list.Archived))
	}

	if err := client.DeleteArchived(ctx, created.ID); err != nil {
		t.Fatalf("delete archived: %v", err)
	}
	if len(backend.Archived()) != 0 {
		t.Fatal("expected archived task removed")
	}

	for _, id := range backend.RequestIDs() {
		if _, err := uuid.Parse(id); err != nil {
			t.Fatalf("expected uuid request id, got %q", id)
		}
	}
}

func TestCreateTaskValidatesLocally(t *testing.T) {
	client, backend := newClient(t)
	_, err := client.CreateTask(t.Context(), model.Task{Text: "   "})
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if api.IsNetworkOrServer(err) {
		t.Fatal("validation error must not be classified as network/server")
	}
	if n := len(backend.RequestIDs()); n != 0 {
		t.Fatalf("expected no request, got %d", n)
	}
}

func TestServerErrorCarriesMessage(t *testing.T) {
	client, backend := newClient(t)
	backend.FailNext(http.StatusInternalServerError, "disk full")

	_, err := client.ListTasks(t.Context())
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *api.Error, got %T %v", err, err)
	}
	if apiErr.Status != http.StatusInternalServerError || apiErr.Message != "disk full" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
	if apiErr.RequestID == "" {
		t.Fatal("expected request id on error")
	}
	if !api.IsNetworkOrServer(err) {
		t.Fatal("expected network/server classification")
	}
}

func TestUnreachableBackendIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := api.NewClient(url+"/api", api.WithTimeout(time.Second))
	_, err := client.Stats(t.Context())
	if err == nil || !api.IsNetworkOrServer(err) {
		t.Fatalf("expected network error, got %v", err)
	}
	if api.StatusOf(err) != 0 {
		t.Fatalf("expected no status for transport error, got %d", api.StatusOf(err))
	}
}

func TestGetTaskNotFound(t *testing.T) {
	client, _ := newClient(t)
	_, err := client.GetTask(t.Context(), 42)
	if api.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestTasksOnDate(t *testing.T) {
	client, backend := newClient(t)
	backend.Seed([]model.Task{
		{ID: 1, Text: "on the day", Datetime: strPtr("2026-03-04T09:00")},
		{ID: 2, Text: "next day", Datetime: strPtr("2026-03-05T09:00")},
		{ID: 3, Text: "undated"},
	}, nil, nil, nil)

	got, err := client.TasksOnDate(t.Context(), time.Date(2026, 3, 4, 0, 0, 0, 0, time.Local))
	if err != nil {
		t.Fatalf("tasks on date: %v", err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("unexpected agenda: %+v", got)
	}
}

func TestProcessRepeatingAndStats(t *testing.T) {
	client, backend := newClient(t)
	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	backend.SetClock(func() time.Time { return now })
	count := 3
	backend.Seed([]model.Task{
		{ID: 1, Text: "standup", Completed: true, Datetime: strPtr("2026-02-08T09:00:00Z"),
			RepeatInterval: model.RepeatDay, RepeatCount: &count},
		{ID: 2, Text: "future", Completed: true, Datetime: strPtr("2026-02-09T09:00:00Z"),
			RepeatInterval: model.RepeatWeek},
		{ID: 3, Text: "open"},
	}, nil, nil, nil)

	created, err := client.ProcessRepeating(t.Context())
	if err != nil {
		t.Fatalf("process repeating: %v", err)
	}
	if created != 1 {
		t.Fatalf("expected one instance, got %d", created)
	}
	again, _ := client.ProcessRepeating(t.Context())
	if again != 0 {
		t.Fatalf("expected idempotent second run, got %d", again)
	}

	stats, err := client.Stats(t.Context())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 4 || stats.Completed != 2 || stats.Percent() != 50 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	spawned := backend.Tasks()[3]
	if spawned.Completed || spawned.RepeatCount == nil || *spawned.RepeatCount != 2 {
		t.Fatalf("unexpected spawned task: %+v", spawned)
	}
}

func TestCategoryManagement(t *testing.T) {
	client, backend := newClient(t)
	ctx := t.Context()

	for _, name := range []string{"Work", "Home", "Errands"} {
		if err := client.CreateCategory(ctx, model.Category{Name: name}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	if err := client.CreateCategory(ctx, model.Category{Name: "Work"}); api.StatusOf(err) != http.StatusBadRequest {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}
	if err := client.CreateCategory(ctx, model.Category{}); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected local validation, got %v", err)
	}

	cats, err := client.ListCategories(ctx)
	if err != nil || len(cats) != 3 || cats[0].Color != model.DefaultCategoryColor {
		t.Fatalf("unexpected categories: %+v err=%v", cats, err)
	}

	if err := client.ReorderCategories(ctx, []string{"Errands", "Work", "Home"}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if err := client.UpdateCategory(ctx, "Home", model.Category{Name: "House", Color: "#000000"}); err != nil {
		t.Fatalf("rename: %v", err)
	}
	names := []string{}
	for _, c := range backend.Categories() {
		names = append(names, c.Name)
	}
	if !slices.Equal(names, []string{"Errands", "Work", "House"}) {
		t.Fatalf("unexpected order after reorder+rename: %v", names)
	}

	if _, err := client.CreateTask(ctx, model.Task{Text: "clean", Category: strPtr("House")}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	if err := client.DeleteCategory(ctx, "House"); api.StatusOf(err) != http.StatusBadRequest {
		t.Fatalf("expected delete of used category to fail, got %v", err)
	}
	if err := client.DeleteCategory(ctx, "Errands"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestContactManagement(t *testing.T) {
	client, _ := newClient(t)
	ctx := t.Context()

	if _, err := client.AddContact(ctx, "dana"); !errors.Is(err, model.ErrInvalidContactHandle) {
		t.Fatalf("expected handle validation, got %v", err)
	}
	contact, err := client.AddContact(ctx, "@dana")
	if err != nil {
		t.Fatalf("add contact: %v", err)
	}
	if contact.ChatID == "" || contact.Username != "@dana" {
		t.Fatalf("unexpected contact: %+v", contact)
	}

	group := "Family"
	if err := client.UpdateContact(ctx, contact.ChatID, api.ContactPatch{Group: &group}); err != nil {
		t.Fatalf("update contact: %v", err)
	}
	contacts, err := client.ListContacts(ctx)
	if err != nil || len(contacts) != 1 || contacts[0].Group != "Family" || contacts[0].Name != "dana" {
		t.Fatalf("unexpected contacts: %+v err=%v", contacts, err)
	}

	if err := client.DeleteContact(ctx, contact.ChatID); err != nil {
		t.Fatalf("delete contact: %v", err)
	}
	if err := client.DeleteContact(ctx, contact.ChatID); api.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %v", err)
	}
}
