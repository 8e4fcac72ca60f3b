package testutil

import (
	"testing"

	"github.com/vanderheijden86/treeline/pkg/engine"
)

// AssertVisibleIDs fails unless the engine's visible rows are exactly want,
// in order.
func AssertVisibleIDs(t *testing.T, eng *engine.Engine, want []string) {
	t.Helper()
	rows := eng.VisibleRows()
	got := make([]string, len(rows))
	for i, r := range rows {
		got[i] = string(r.ID)
	}
	if len(got) != len(want) {
		t.Fatalf("visible rows = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("visible rows = %v, want %v", got, want)
		}
	}
}

// AssertRowLevels fails if any visible row's indent level disagrees with
// its node's stored level.
func AssertRowLevels(t *testing.T, eng *engine.Engine) {
	t.Helper()
	for _, row := range eng.VisibleRows() {
		n := eng.Node(row.ID)
		if n == nil {
			t.Fatalf("visible row %s has no node", row.ID)
		}
		if n.Level != row.Level {
			t.Errorf("row %s level = %d, node level = %d", row.ID, row.Level, n.Level)
		}
	}
}

// AssertParentsVisible fails if a visible non-root row's parent is not
// itself visible above it.
func AssertParentsVisible(t *testing.T, eng *engine.Engine) {
	t.Helper()
	seen := make(map[engine.NodeID]int)
	for i, row := range eng.VisibleRows() {
		seen[row.ID] = i
	}
	for _, row := range eng.VisibleRows() {
		n := eng.Node(row.ID)
		if n == nil || n.ParentID == "" {
			continue
		}
		pi, ok := seen[n.ParentID]
		if !ok {
			t.Errorf("row %s visible but parent %s is not", row.ID, n.ParentID)
			continue
		}
		if pi >= seen[row.ID] {
			t.Errorf("parent %s appears after child %s", n.ParentID, row.ID)
		}
	}
}
