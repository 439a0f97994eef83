package apitest

import (
	"time"

	"github.com/sandeepkv93/taskdesk/internal/model"
)

// NewDemo returns a server seeded with a small workspace relative to now.
func NewDemo(now time.Time) *Server {
	s := New()
	stamp := func(d time.Duration) *string {
		v := now.Add(d).Format(time.RFC3339)
		return &v
	}
	str := func(v string) *string { return &v }
	id := func(v int64) *int64 { return &v }
	n := func(v int) *int { return &v }

	work, home, shop := "Work", "Home", "Shopping"
	s.Seed(
		[]model.Task{
			{ID: 1, Text: "Prepare quarterly report", Category: &work, Datetime: stamp(26 * time.Hour), ReminderTime: n(30),
				Description: "Collect numbers from **finance** and draft the summary."},
			{ID: 2, Text: "Gather sales figures", Category: &work, ParentID: id(1), Datetime: stamp(4 * time.Hour)},
			{ID: 3, Text: "Review draft with team", Category: &work, ParentID: id(1), Dependencies: []int64{2, 9}},
			{ID: 4, Text: "Water the plants", Category: &home, Datetime: stamp(-2 * time.Hour), Completed: true,
				RepeatInterval: model.RepeatWeek, RepeatCount: n(10)},
			{ID: 5, Text: "Buy coffee beans", Category: &shop},
			{ID: 6, Text: "Book dentist appointment", Datetime: stamp(9 * 24 * time.Hour), ChatID: "1001", Group: str("Family")},
			{ID: 7, Text: "Pay rent", Category: &home, Datetime: stamp(3 * 24 * time.Hour),
				RepeatInterval: model.RepeatMonth, RepeatUntil: str(now.AddDate(1, 0, 0).Format(time.DateOnly))},
		},
		[]model.Task{
			{ID: 9, Text: "Set up reporting template", Category: &work, Completed: true},
		},
		[]model.Category{
			{Name: work, Color: "#bfdbfe"},
			{Name: home, Color: "#bbf7d0"},
			{Name: shop},
		},
		[]model.Contact{
			{ChatID: "1001", Name: "Dana", Username: "@dana", Group: "Family"},
			{ChatID: "1002", Name: "Lee", Username: "@lee", Group: "Work"},
		},
	)
	s.nextChatID = 1003
	return s
}
