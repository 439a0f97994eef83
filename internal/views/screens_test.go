package views

import (
	"strings"
	"testing"
)

func TestRenderTaskTreeRowMarkers(t *testing.T) {
	out := RenderTaskTree(TaskTreeData{
		Title: "tasks",
		Rows: []TaskRowData{
			{ID: 1, Text: "Prepare report", Selected: true, HasChildren: true, When: "2026-02-10 14:00", Reminder: true},
			{ID: 2, Text: "Gather figures", Depth: 1, Dependencies: []DependencyData{{Label: "ID 42"}}},
			{ID: 4, Text: "Water plants", Completed: true, Repeat: "Weekly"},
		},
	})
	lines := strings.Split(out, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected title plus three rows, got %q", out)
	}
	if !strings.HasPrefix(lines[1], ">") || !strings.Contains(lines[1], "@2026-02-10 14:00") || !strings.Contains(lines[1], "(!)") {
		t.Fatalf("unexpected root row %q", lines[1])
	}
	if !strings.Contains(lines[2], "    [ ] #2") || !strings.Contains(lines[2], "after: ID 42") {
		t.Fatalf("expected indented child with dependency, got %q", lines[2])
	}
	if !strings.Contains(lines[3], "[x] #4") || !strings.Contains(lines[3], "Weekly") {
		t.Fatalf("unexpected completed row %q", lines[3])
	}
}

func TestRenderTaskTreeEmptyAndStale(t *testing.T) {
	out := RenderTaskTree(TaskTreeData{Title: "archive", Stale: true})
	if !strings.Contains(out, "(cached, waiting for backend)") || !strings.HasSuffix(out, "(no tasks)") {
		t.Fatalf("unexpected empty tree %q", out)
	}
}

func TestRenderStats(t *testing.T) {
	cases := []struct {
		data StatsData
		want string
	}{
		{StatsData{}, "progress: [--------------------] 0/0 0%"},
		{StatsData{Total: 4, Completed: 1, Percent: 25}, "progress: [#####---------------] 1/4 25%"},
		{StatsData{Total: 2, Completed: 2, Percent: 100, Local: true}, "progress: [####################] 2/2 100% (local)"},
	}
	for _, tc := range cases {
		if got := RenderStats(tc.data); got != tc.want {
			t.Fatalf("RenderStats(%+v) = %q, want %q", tc.data, got, tc.want)
		}
	}
}

func TestRenderDetailPanelSkipsEmptyFields(t *testing.T) {
	out := RenderDetailPanel(DetailPanelData{
		Title:  "#6 Book dentist",
		Fields: []DetailField{{Label: "status", Value: "open"}, {Label: "reminder"}},
	})
	if out != "detail: #6 Book dentist\nstatus: open" {
		t.Fatalf("unexpected detail %q", out)
	}
	if RenderDetailPanel(DetailPanelData{}) != "detail:\n(no selection)" {
		t.Fatal("expected empty selection marker")
	}
}

func TestRenderMarkdownFallsBackToEmpty(t *testing.T) {
	if RenderMarkdown("   ", 40) != "" {
		t.Fatal("expected blank description to render empty")
	}
	if out := RenderMarkdown("Collect **numbers**", 40); !strings.Contains(out, "numbers") {
		t.Fatalf("expected rendered text, got %q", out)
	}
}
