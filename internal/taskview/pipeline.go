package taskview

import (
	"slices"
	"time"

	"github.com/sandeepkv93/taskdesk/internal/model"
)

type Input struct {
	Tasks    []model.Task
	Archived []model.Task
}

type Result struct {
	Visible []model.Task
	Roots   []TreeNode
	Rows    []Row
}

// Compute runs filter, tree and sort in one pass. Dependencies resolve
// against both collections so an archived prerequisite still shows its text.
func Compute(in Input, vs ViewState, now time.Time) Result {
	visible := ComputeVisibleTasks(in.Tasks, in.Archived, vs, now)
	lookup := slices.Concat(in.Tasks, in.Archived)
	roots := buildTree(visible, lookup, comparatorFor(vs.SortMode))
	return Result{
		Visible: visible,
		Roots:   roots,
		Rows:    Flatten(roots),
	}
}

// LocalStats counts the active collection, used when the stats endpoint is
// unreachable.
func LocalStats(tasks []model.Task) model.Stats {
	stats := model.Stats{Total: len(tasks)}
	for _, task := range tasks {
		if task.Completed {
			stats.Completed++
		}
	}
	return stats
}

// ParentCandidates lists root tasks other than id, the only valid parents in
// the edit form.
func ParentCandidates(tasks []model.Task, id int64) []model.Task {
	out := make([]model.Task, 0)
	for _, task := range tasks {
		if task.IsRoot() && task.ID != id {
			out = append(out, task)
		}
	}
	return out
}
