package model

import (
	"fmt"
	"strings"
)

var repeatLabels = map[RepeatInterval]string{
	RepeatDay:     "Daily",
	RepeatWeek:    "Weekly",
	RepeatMonth:   "Monthly",
	RepeatQuarter: "Quarterly",
	RepeatYear:    "Yearly",
}

func (r RepeatInterval) Label() string {
	if label, ok := repeatLabels[r]; ok {
		return label
	}
	return string(r)
}

func (t Task) IsRepeating() bool { return t.RepeatInterval != "" }

// RepeatSummary describes the repeat rule, e.g. "Weekly, 3 repeats, until 2026-03-01".
// Expansion into concrete instances happens on the backend.
func (t Task) RepeatSummary() string {
	if !t.IsRepeating() {
		return ""
	}
	parts := []string{t.RepeatInterval.Label()}
	if t.RepeatCount != nil {
		parts = append(parts, fmt.Sprintf("%d repeats", *t.RepeatCount))
	}
	if t.RepeatUntil != nil && strings.TrimSpace(*t.RepeatUntil) != "" {
		until := *t.RepeatUntil
		if tm, ok := ParseDatetime(until); ok {
			until = tm.Format("2006-01-02")
		}
		parts = append(parts, "until "+until)
	}
	return strings.Join(parts, ", ")
}
