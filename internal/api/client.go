// Package api is the HTTP client for the task backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/taskdesk/internal/model"
)

const (
	DefaultBaseURL = "http://127.0.0.1:5000/api"
	DefaultTimeout = 5 * time.Second

	requestIDHeader = "X-Request-ID"
	maxErrorBody    = 64 << 10
)

type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		timeout: DefaultTimeout,
		http:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

type TaskList struct {
	Tasks    []model.Task `json:"tasks"`
	Archived []model.Task `json:"archived_tasks"`
}

type ContactPatch struct {
	Name     *string `json:"name,omitempty"`
	Username *string `json:"username,omitempty"`
	Group    *string `json:"group,omitempty"`
}

func (c *Client) ListTasks(ctx context.Context) (TaskList, error) {
	var out TaskList
	if err := c.do(ctx, http.MethodGet, "/tasks", nil, &out); err != nil {
		return TaskList{}, err
	}
	if out.Tasks == nil {
		out.Tasks = []model.Task{}
	}
	if out.Archived == nil {
		out.Archived = []model.Task{}
	}
	return out, nil
}

// TasksOnDate returns the tasks the backend schedules on day (local date).
func (c *Client) TasksOnDate(ctx context.Context, day time.Time) ([]model.Task, error) {
	q := url.Values{"date": {day.Format(time.DateOnly)}}
	var out []model.Task
	if err := c.do(ctx, http.MethodGet, "/tasks?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

func (c *Client) GetTask(ctx context.Context, id int64) (model.Task, error) {
	var out model.Task
	err := c.do(ctx, http.MethodGet, taskPath(id), nil, &out)
	return out, err
}

func (c *Client) CreateTask(ctx context.Context, task model.Task) (model.Task, error) {
	if err := task.Validate(); err != nil {
		return model.Task{}, err
	}
	task.ID = 0
	var out model.Task
	err := c.do(ctx, http.MethodPost, "/tasks", task, &out)
	return out, err
}

// UpdateTask sends patch as the PUT body; the backend merges it into the
// stored document. patch is either a full model.Task or a field map.
func (c *Client) UpdateTask(ctx context.Context, id int64, patch any) (model.Task, error) {
	if task, ok := patch.(model.Task); ok {
		task.ID = id
		if err := task.Validate(); err != nil {
			return model.Task{}, err
		}
		patch = task
	}
	var out model.Task
	err := c.do(ctx, http.MethodPut, taskPath(id), patch, &out)
	return out, err
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), nil, nil)
}

func (c *Client) DeleteArchived(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/archive/"+strconv.FormatInt(id, 10), nil, nil)
}

// ArchiveCompleted moves every completed active task to the archive.
func (c *Client) ArchiveCompleted(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/archive", nil, nil)
}

// ProcessRepeating asks the backend to materialize due repeat instances and
// returns how many it created.
func (c *Client) ProcessRepeating(ctx context.Context) (int, error) {
	var out struct {
		Created int `json:"created"`
	}
	if err := c.do(ctx, http.MethodPost, "/tasks/process_repeating", nil, &out); err != nil {
		return 0, err
	}
	return out.Created, nil
}

func (c *Client) Stats(ctx context.Context) (model.Stats, error) {
	var out model.Stats
	err := c.do(ctx, http.MethodGet, "/tasks/stats", nil, &out)
	return out, err
}

func (c *Client) ListCategories(ctx context.Context) ([]model.Category, error) {
	var out []model.Category
	if err := c.do(ctx, http.MethodGet, "/categories", nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

func (c *Client) CreateCategory(ctx context.Context, cat model.Category) error {
	if err := cat.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(cat.Color) == "" {
		cat.Color = model.DefaultCategoryColor
	}
	return c.do(ctx, http.MethodPost, "/categories", cat, nil)
}

// UpdateCategory renames and/or recolours the category stored under name.
func (c *Client) UpdateCategory(ctx context.Context, name string, cat model.Category) error {
	if err := cat.Validate(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, categoryPath(name), cat, nil)
}

func (c *Client) DeleteCategory(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, categoryPath(name), nil, nil)
}

// ReorderCategories posts the complete ordered list of category names.
func (c *Client) ReorderCategories(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return fmt.Errorf("%w: category order is empty", model.ErrValidation)
	}
	body := map[string][]string{"categories": names}
	return c.do(ctx, http.MethodPost, "/categories/reorder", body, nil)
}

func (c *Client) ListContacts(ctx context.Context) ([]model.Contact, error) {
	var out []model.Contact
	if err := c.do(ctx, http.MethodGet, "/users", nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

// AddContact registers a contact by @handle; the backend resolves the chat id.
func (c *Client) AddContact(ctx context.Context, handle string) (model.Contact, error) {
	handle = strings.TrimSpace(handle)
	if err := model.ValidateContactHandle(handle); err != nil {
		return model.Contact{}, err
	}
	var out model.Contact
	err := c.do(ctx, http.MethodPost, "/users", map[string]string{"username": handle}, &out)
	return out, err
}

func (c *Client) UpdateContact(ctx context.Context, chatID model.FlexString, patch ContactPatch) error {
	if chatID == "" {
		return fmt.Errorf("%w: contact chat_id is required", model.ErrValidation)
	}
	return c.do(ctx, http.MethodPut, "/users/"+url.PathEscape(string(chatID)), patch, nil)
}

func (c *Client) DeleteContact(ctx context.Context, chatID model.FlexString) error {
	if chatID == "" {
		return fmt.Errorf("%w: contact chat_id is required", model.ErrValidation)
	}
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(string(chatID)), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("api: build %s %s: %w", method, path, err)
	}
	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("api %s %s failed request_id=%s: %v", method, path, requestID, err)
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeError(resp)
		apiErr.RequestID = requestID
		log.Printf("api %s %s status=%d request_id=%s elapsed=%s: %s",
			method, path, resp.StatusCode, requestID, time.Since(started).Round(time.Millisecond), apiErr.Message)
		return apiErr
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("api: decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) *Error {
	apiErr := &Error{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		apiErr.Message = payload.Error
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(raw))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func taskPath(id int64) string { return "/tasks/" + strconv.FormatInt(id, 10) }

func categoryPath(name string) string { return "/categories/" + url.PathEscape(name) }

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
