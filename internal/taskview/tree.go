package taskview

import (
	"fmt"
	"slices"

	"github.com/sandeepkv93/taskdesk/internal/model"
)

type DependencyRef struct {
	ID       int64
	Label    string
	Resolved bool
}

type TreeNode struct {
	Task         model.Task
	Children     []TreeNode
	Depth        int
	Dependencies []DependencyRef
}

// BuildTree nests filtered tasks under their parents using the canonical order.
func BuildTree(filtered, lookup []model.Task) []TreeNode {
	return buildTree(filtered, lookup, CompareTasks)
}

// buildTree makes a task whose parent is not among the filtered tasks a root,
// and looks children up among the filtered tasks only. Each id is placed
// once; tasks reachable only through a parent cycle are promoted to roots.
func buildTree(filtered, lookup []model.Task, cmp func(a, b model.Task) int) []TreeNode {
	if len(filtered) == 0 {
		return []TreeNode{}
	}

	present := make(map[int64]struct{}, len(filtered))
	for _, task := range filtered {
		present[task.ID] = struct{}{}
	}

	roots := make([]model.Task, 0)
	childrenByParent := make(map[int64][]model.Task)
	for _, task := range filtered {
		if task.ParentID != nil && *task.ParentID != task.ID {
			if _, ok := present[*task.ParentID]; ok {
				childrenByParent[*task.ParentID] = append(childrenByParent[*task.ParentID], task)
				continue
			}
		}
		roots = append(roots, task)
	}
	slices.SortStableFunc(roots, cmp)
	for parentID, children := range childrenByParent {
		slices.SortStableFunc(children, cmp)
		childrenByParent[parentID] = children
	}

	deps := newDependencyResolver(lookup)
	visited := make(map[int64]bool, len(filtered))

	var build func(task model.Task, depth int) TreeNode
	build = func(task model.Task, depth int) TreeNode {
		visited[task.ID] = true
		node := TreeNode{
			Task:         task,
			Depth:        depth,
			Dependencies: deps.resolve(task.Dependencies),
		}
		for _, child := range childrenByParent[task.ID] {
			if visited[child.ID] {
				continue
			}
			node.Children = append(node.Children, build(child, depth+1))
		}
		return node
	}

	out := make([]TreeNode, 0, len(roots))
	for _, task := range roots {
		if visited[task.ID] {
			continue
		}
		out = append(out, build(task, 0))
	}

	if len(visited) < len(present) {
		stranded := make([]model.Task, 0)
		for _, task := range filtered {
			if !visited[task.ID] {
				stranded = append(stranded, task)
			}
		}
		slices.SortStableFunc(stranded, cmp)
		for _, task := range stranded {
			if visited[task.ID] {
				continue
			}
			out = append(out, build(task, 0))
		}
	}
	return out
}

type dependencyResolver struct {
	text map[int64]string
}

func newDependencyResolver(lookup []model.Task) dependencyResolver {
	text := make(map[int64]string, len(lookup))
	for _, task := range lookup {
		if _, seen := text[task.ID]; !seen {
			text[task.ID] = task.Text
		}
	}
	return dependencyResolver{text: text}
}

func (r dependencyResolver) resolve(ids []int64) []DependencyRef {
	if len(ids) == 0 {
		return nil
	}
	out := make([]DependencyRef, 0, len(ids))
	for _, id := range ids {
		if text, ok := r.text[id]; ok {
			out = append(out, DependencyRef{ID: id, Label: text, Resolved: true})
			continue
		}
		out = append(out, DependencyRef{ID: id, Label: fmt.Sprintf("ID %d", id)})
	}
	return out
}

// Row is one line of the flattened tree.
type Row struct {
	Task         model.Task
	Depth        int
	HasChildren  bool
	Dependencies []DependencyRef
}

// Flatten walks the forest in pre-order.
func Flatten(nodes []TreeNode) []Row {
	out := make([]Row, 0, len(nodes))
	var walk func(items []TreeNode)
	walk = func(items []TreeNode) {
		for _, node := range items {
			out = append(out, Row{
				Task:         node.Task,
				Depth:        node.Depth,
				HasChildren:  len(node.Children) > 0,
				Dependencies: node.Dependencies,
			})
			walk(node.Children)
		}
	}
	walk(nodes)
	return out
}
