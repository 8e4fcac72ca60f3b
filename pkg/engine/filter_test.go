package engine

import (
	"strings"
	"testing"
)

// TestFilterShowParentsOfMatches checks ancestor visibility: query "Report" over
// Workspace > {Documents > Report.pdf, Images > logo.png} keeps the match
// and its ancestor chain, and drops the Images subtree.
func TestFilterShowParentsOfMatches(t *testing.T) {
	eng, _ := newTestEngine(t, DefaultConfig())
	buildDocTree(t, eng)

	eng.SetFilter(Query{Text: "Report"})

	if !sameIDs(visibleIDs(eng), "ws", "docs", "report") {
		t.Errorf("visible set = %v, want [ws docs report]", visibleIDs(eng))
	}
}

// TestFilterDirectMatchOnly verifies that with ShowParentsOfMatches off,
// visibility is the direct match alone: the match itself is projected and
// every non-matching node, ancestors included, is dropped.
func TestFilterDirectMatchOnly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ShowParentsOfMatches = false
	eng, _ := newTestEngine(t, cfg)
	buildDocTree(t, eng)

	eng.SetFilter(Query{Text: "Report"})

	if !sameIDs(visibleIDs(eng), "report") {
		t.Errorf("visible set = %v, want [report]", visibleIDs(eng))
	}
}

// TestFilterDeepMatchUnderHiddenAncestors verifies the projector still
// reaches a direct match buried under non-matching (hidden) ancestors when
// ShowParentsOfMatches is off; the walk must pass through hidden expanded
// nodes without emitting them.
func TestFilterDeepMatchUnderHiddenAncestors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ShowParentsOfMatches = false
	eng, _ := newTestEngine(t, cfg)
	buildDocTree(t, eng)

	eng.SetFilter(Query{Text: "logo"})

	rows := eng.VisibleRows()
	if !sameIDs(visibleIDs(eng), "logo") {
		t.Fatalf("visible set = %v, want [logo]", visibleIDs(eng))
	}
	// The row keeps its real depth even though its ancestors are hidden.
	if rows[0].Level != 2 {
		t.Errorf("deep match level = %d, want 2", rows[0].Level)
	}
}

// TestFilterCaseInsensitiveDefault verifies the default fold and the
// CaseSensitive escape hatch.
func TestFilterCaseInsensitiveDefault(t *testing.T) {
	eng, _ := newTestEngine(t, DefaultConfig())
	buildDocTree(t, eng)

	eng.SetFilter(Query{Text: "rEpOrT"})
	if !sameIDs(visibleIDs(eng), "ws", "docs", "report") {
		t.Errorf("case-insensitive match failed: %v", visibleIDs(eng))
	}

	eng.SetFilter(Query{Text: "rEpOrT", CaseSensitive: true})
	if len(visibleIDs(eng)) != 0 {
		t.Errorf("case-sensitive query matched: %v", visibleIDs(eng))
	}
}

// TestFilterExactMode verifies MatchExact compares the whole search text.
func TestFilterExactMode(t *testing.T) {
	eng, _ := newTestEngine(t, DefaultConfig())
	buildDocTree(t, eng)

	eng.SetFilter(Query{Text: "Report", Mode: MatchExact})
	if len(visibleIDs(eng)) != 0 {
		t.Errorf("partial text matched in exact mode: %v", visibleIDs(eng))
	}

	eng.SetFilter(Query{Text: "report.pdf", Mode: MatchExact})
	if !sameIDs(visibleIDs(eng), "ws", "docs", "report") {
		t.Errorf("exact match failed: %v", visibleIDs(eng))
	}
}

// TestFilterTokensAreANDed verifies every token must match.
func TestFilterTokensAreANDed(t *testing.T) {
	eng, _ := newTestEngine(t, DefaultConfig())
	buildDocTree(t, eng)

	eng.SetFilter(Query{Tokens: []string{"report", "pdf"}})
	if !sameIDs(visibleIDs(eng), "ws", "docs", "report") {
		t.Errorf("AND tokens failed: %v", visibleIDs(eng))
	}

	eng.SetFilter(Query{Tokens: []string{"report", "png"}})
	if len(visibleIDs(eng)) != 0 {
		t.Errorf("disjoint tokens matched: %v", visibleIDs(eng))
	}
}

// TestFilterCustomMatcher verifies the adapter's Matches capability replaces
// the default comparison entirely.
func TestFilterCustomMatcher(t *testing.T) {
	adapter := testAdapter()
	adapter.Matches = func(p any, q Query) bool {
		// Match on id prefix instead of label text.
		return strings.HasPrefix(p.(*item).id, q.Text)
	}
	eng := NewEngine(adapter, DefaultConfig(), nil)
	buildDocTree(t, eng)

	eng.SetFilter(Query{Text: "img"})
	if !sameIDs(visibleIDs(eng), "ws", "imgs") {
		t.Errorf("custom matcher ignored: %v", visibleIDs(eng))
	}
}

// TestFilterSearchTextCapability verifies GetSearchText overrides the label
// as the default matcher's haystack.
func TestFilterSearchTextCapability(t *testing.T) {
	adapter := testAdapter()
	adapter.GetSearchText = func(p any) string { return "tag:" + p.(*item).id }
	eng := NewEngine(adapter, DefaultConfig(), nil)
	buildDocTree(t, eng)

	eng.SetFilter(Query{Text: "tag:logo"})
	if !sameIDs(visibleIDs(eng), "ws", "imgs", "logo") {
		t.Errorf("search text capability ignored: %v", visibleIDs(eng))
	}
}

// TestFilterClearRestoresRows verifies clearing the filter restores the full
// projection without any tree mutation.
func TestFilterClearRestoresRows(t *testing.T) {
	eng, _ := newTestEngine(t, DefaultConfig())
	buildDocTree(t, eng)
	before := visibleIDs(eng)

	eng.SetFilter(Query{Text: "Report"})
	eng.ClearFilter()

	if !sameIDs(visibleIDs(eng), before...) {
		t.Errorf("rows after filter cycle = %v, want %v", visibleIDs(eng), before)
	}
}

// TestFilterKeepsPlaceholdersVisible verifies placeholder rows stay under a
// visible paged parent regardless of match, so virtualization geometry is
// stable; real non-matching siblings are dropped.
func TestFilterKeepsPlaceholdersVisible(t *testing.T) {
	eng, _ := newTestEngine(t, DefaultConfig())
	eng.InitRoots([]any{pagedItem("p", "Paged parent report", 2)})
	eng.ToggleExpand("p", true)
	eng.SetChildrenLoaded("p", Page([]any{leaf("s0", "report-alpha"), leaf("s1", "other")}, 4, 0))

	eng.SetFilter(Query{Text: "report"})

	placeholders := 0
	for _, row := range eng.VisibleRows() {
		if row.Placeholder {
			placeholders++
		}
		if row.ID == "s1" {
			t.Error("non-matching real row survived the filter")
		}
	}
	if placeholders != 2 {
		t.Errorf("placeholder count changed under filter: got %d, want 2", placeholders)
	}
}

// TestFilterPlaceholdersCanBeHidden verifies the KeepPlaceholdersVisible
// escape hatch.
func TestFilterPlaceholdersCanBeHidden(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KeepPlaceholdersVisible = false
	eng, _ := newTestEngine(t, cfg)
	eng.InitRoots([]any{pagedItem("p", "Paged report", 2)})
	eng.ToggleExpand("p", true)
	eng.SetChildrenLoaded("p", Page([]any{leaf("s0", "report-alpha"), leaf("s1", "other")}, 4, 0))

	eng.SetFilter(Query{Text: "report"})
	for _, row := range eng.VisibleRows() {
		if row.Placeholder {
			t.Error("placeholder visible with KeepPlaceholdersVisible off")
		}
	}
}

// TestFilterAutoExpandMatches verifies the explicit expansion side effect:
// ancestor paths of direct matches open up so results are reachable.
func TestFilterAutoExpandMatches(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoExpandMatches = true
	eng, _ := newTestEngine(t, cfg)
	buildDocTree(t, eng)
	eng.CollapseAll()

	eng.SetFilter(Query{Text: "Report"})

	if !eng.IsExpanded("ws") || !eng.IsExpanded("docs") {
		t.Error("ancestor path of match not auto-expanded")
	}
	if !sameIDs(visibleIDs(eng), "ws", "docs", "report") {
		t.Errorf("match not reachable: %v", visibleIDs(eng))
	}
}

// TestFilterNoAutoExpandByDefault verifies filtering never mutates expansion
// state unless asked to.
func TestFilterNoAutoExpandByDefault(t *testing.T) {
	eng, _ := newTestEngine(t, DefaultConfig())
	buildDocTree(t, eng)
	eng.CollapseAll()

	eng.SetFilter(Query{Text: "Report"})

	if eng.IsExpanded("ws") || eng.IsExpanded("docs") {
		t.Error("filter expanded nodes without AutoExpandMatches")
	}
	if !sameIDs(visibleIDs(eng), "ws") {
		t.Errorf("expected only the collapsed root, got %v", visibleIDs(eng))
	}
}

// TestFilterEmptyQueryClears verifies SetFilter with an empty query equals
// ClearFilter.
func TestFilterEmptyQueryClears(t *testing.T) {
	eng, _ := newTestEngine(t, DefaultConfig())
	buildDocTree(t, eng)

	eng.SetFilter(Query{Text: "Report"})
	eng.SetFilter(Query{})

	if eng.FilterActive() {
		t.Error("empty query left the filter active")
	}
	if eng.VisibleCount() != 5 {
		t.Errorf("expected 5 rows after clear, got %d", eng.VisibleCount())
	}
}
