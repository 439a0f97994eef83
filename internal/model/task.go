package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	ErrValidation           = errors.New("model: validation failed")
	ErrInvalidRepeat        = errors.New("model: invalid repeat interval")
	ErrInvalidContactHandle = errors.New("model: contact handle must start with @")
)

type RepeatInterval string

const (
	RepeatDay     RepeatInterval = "day"
	RepeatWeek    RepeatInterval = "week"
	RepeatMonth   RepeatInterval = "month"
	RepeatQuarter RepeatInterval = "quarter"
	RepeatYear    RepeatInterval = "year"
)

func (r RepeatInterval) IsValid() bool {
	switch r {
	case RepeatDay, RepeatWeek, RepeatMonth, RepeatQuarter, RepeatYear:
		return true
	default:
		return false
	}
}

// FlexString decodes from either a JSON string or a JSON number. Backend chat
// and file identifiers arrive in both shapes.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("model: identifier is neither string nor number: %s", data)
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) MarshalJSON() ([]byte, error) {
	if f == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseInt(string(f), 10, 64); err == nil {
		return []byte(f), nil
	}
	return json.Marshal(string(f))
}

func (f FlexString) String() string { return string(f) }

type File struct {
	ID   FlexString `json:"id"`
	Name string     `json:"name"`
	Size int64      `json:"size"`
}

// Task mirrors the backend task document. Datetime is kept verbatim so a
// malformed value survives decoding and is simply treated as undated.
type Task struct {
	ID             int64          `json:"id,omitempty"`
	Text           string         `json:"text"`
	Datetime       *string        `json:"datetime"`
	ReminderTime   *int           `json:"reminder_time,omitempty"`
	Description    string         `json:"description,omitempty"`
	Category       *string        `json:"category"`
	ParentID       *int64         `json:"parent_id"`
	ChatID         FlexString     `json:"chat_id,omitempty"`
	Group          *string        `json:"group,omitempty"`
	Dependencies   []int64        `json:"dependencies,omitempty"`
	RepeatInterval RepeatInterval `json:"repeat_interval,omitempty"`
	RepeatCount    *int           `json:"repeat_count,omitempty"`
	RepeatUntil    *string        `json:"repeat_until,omitempty"`
	Completed      bool           `json:"completed"`
	Files          []File         `json:"files,omitempty"`
}

var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDatetime accepts RFC 3339 and the offset-less forms produced by HTML
// datetime inputs. Offset-less values are read in the local zone.
func ParseDatetime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range datetimeLayouts {
		var (
			tm  time.Time
			err error
		)
		if layout == time.RFC3339Nano {
			tm, err = time.Parse(layout, raw)
		} else {
			tm, err = time.ParseInLocation(layout, raw, time.Local)
		}
		if err == nil {
			return tm, true
		}
	}
	return time.Time{}, false
}

// When returns the parsed datetime. ok is false for undated tasks and for
// values that do not parse.
func (t Task) When() (time.Time, bool) {
	if t.Datetime == nil {
		return time.Time{}, false
	}
	return ParseDatetime(*t.Datetime)
}

func (t Task) CategoryName() string {
	if t.Category == nil {
		return ""
	}
	return *t.Category
}

func (t Task) IsRoot() bool { return t.ParentID == nil }

func (t Task) Validate() error {
	if strings.TrimSpace(t.Text) == "" {
		return fmt.Errorf("%w: task text is required", ErrValidation)
	}
	if t.ParentID != nil && t.ID != 0 && *t.ParentID == t.ID {
		return fmt.Errorf("%w: task cannot be its own parent", ErrValidation)
	}
	if t.RepeatInterval != "" && !t.RepeatInterval.IsValid() {
		return fmt.Errorf("%w: %w: %q", ErrValidation, ErrInvalidRepeat, t.RepeatInterval)
	}
	if t.RepeatCount != nil && *t.RepeatCount <= 0 {
		return fmt.Errorf("%w: repeat_count must be positive", ErrValidation)
	}
	if t.ReminderTime != nil && *t.ReminderTime < 0 {
		return fmt.Errorf("%w: reminder_time must not be negative", ErrValidation)
	}
	return nil
}

type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

// Percent is round(completed/total*100), 0 for an empty set.
func (s Stats) Percent() int {
	if s.Total <= 0 {
		return 0
	}
	return int(math.Round(float64(s.Completed) / float64(s.Total) * 100))
}
