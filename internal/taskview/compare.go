package taskview

import (
	"slices"
	"strings"

	"github.com/sandeepkv93/taskdesk/internal/model"
)

// CompareTasks orders open tasks before completed ones, dated before undated,
// then by ascending datetime. Two undated tasks compare equal so a stable sort
// keeps their input order.
func CompareTasks(a, b model.Task) int {
	if a.Completed != b.Completed {
		if a.Completed {
			return 1
		}
		return -1
	}
	aWhen, aOK := a.When()
	bWhen, bOK := b.When()
	switch {
	case !aOK && !bOK:
		return 0
	case !aOK:
		return 1
	case !bOK:
		return -1
	}
	return aWhen.Compare(bWhen)
}

func compareByText(a, b model.Task) int {
	if a.Completed != b.Completed {
		return CompareTasks(a, b)
	}
	if c := strings.Compare(strings.ToLower(a.Text), strings.ToLower(b.Text)); c != 0 {
		return c
	}
	return CompareTasks(a, b)
}

func comparatorFor(mode SortMode) func(a, b model.Task) int {
	if mode == SortByText {
		return compareByText
	}
	return CompareTasks
}

// SortTasks returns a sorted copy.
func SortTasks(tasks []model.Task, mode SortMode) []model.Task {
	out := slices.Clone(tasks)
	slices.SortStableFunc(out, comparatorFor(mode))
	return out
}
