package taskview

import (
	"math"
	"strings"
	"time"

	"github.com/sandeepkv93/taskdesk/internal/model"
)

const day = 24 * time.Hour

// ComputeVisibleTasks selects the active or archived set and applies the
// category, horizon and search filters. The input slices are not modified and
// the output order is the input order.
func ComputeVisibleTasks(all, archived []model.Task, vs ViewState, now time.Time) []model.Task {
	source := all
	if vs.ShowArchive {
		source = archived
	}
	term := strings.ToLower(strings.TrimSpace(vs.SearchTerm))

	out := make([]model.Task, 0, len(source))
	for _, task := range source {
		if vs.ActiveCategory != nil {
			if task.Category == nil || *task.Category != *vs.ActiveCategory {
				continue
			}
		}
		if !vs.ShowArchive && !withinHorizon(task, vs.DaysFilter, now) {
			continue
		}
		if term != "" && !matchesSearch(task, term) {
			continue
		}
		out = append(out, task)
	}
	return out
}

// DayDiff is ceil((when - now) / 1 day): 0 for later today, 1 for anything
// up to a day ahead, -1 for one to two days overdue.
func DayDiff(when, now time.Time) int {
	return int(math.Ceil(float64(when.Sub(now)) / float64(day)))
}

func withinHorizon(task model.Task, days int, now time.Time) bool {
	if days == 0 {
		return true
	}
	when, ok := task.When()
	if !ok {
		return true
	}
	diff := DayDiff(when, now)
	return diff >= -days && diff <= days
}

func matchesSearch(task model.Task, lowerTerm string) bool {
	if strings.Contains(strings.ToLower(task.Text), lowerTerm) {
		return true
	}
	return strings.Contains(strings.ToLower(task.Description), lowerTerm)
}
