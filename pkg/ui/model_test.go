package ui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/treeline/internal/datasource"
	"github.com/vanderheijden86/treeline/pkg/config"
	"github.com/vanderheijden86/treeline/pkg/engine"
)

const viewerDoc = `{
  "roots": [
    {
      "id": "ws",
      "label": "Workspace",
      "children": [
        {"id": "docs", "label": "Documents", "children": [
          {"id": "report", "label": "Q3 Report", "leaf": true}
        ]},
        {"id": "imgs", "label": "Images", "children": [
          {"id": "logo", "label": "Logo", "leaf": true}
        ]}
      ]
    }
  ]
}`

func newTestModel(t *testing.T) *Model {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tree.json")
	if err := os.WriteFile(path, []byte(viewerDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := datasource.Open(path, datasource.Options{})
	if err != nil {
		t.Fatalf("open source: %v", err)
	}
	t.Cleanup(func() { src.Close() })

	m := NewModel(src, config.DefaultConfig())
	m.stateDir = t.TempDir() // keep view state out of the real XDG dir

	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	step(t, m, m.loadRootsCmd())
	return m
}

// step runs a command synchronously and feeds its message back, following
// any follow-up commands the update produces.
func step(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	for depth := 0; cmd != nil && depth < 10; depth++ {
		msg := cmd()
		if msg == nil {
			return
		}
		if batch, ok := msg.(tea.BatchMsg); ok {
			for _, c := range batch {
				step(t, m, c)
			}
			return
		}
		switch msg.(type) {
		case rootsLoadedMsg, childrenLoadedMsg, pagesLoadedMsg:
			_, cmd = m.Update(msg)
		default:
			return
		}
	}
}

func press(t *testing.T, m *Model, key string) {
	t.Helper()
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEscape}
	case "space":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	_, cmd := m.Update(msg)
	step(t, m, cmd)
}

func visibleLabels(m *Model) []string {
	var out []string
	for _, row := range m.eng.VisibleRows() {
		out = append(out, row.Label)
	}
	return out
}

func TestModelShowsRootsAfterLoad(t *testing.T) {
	m := newTestModel(t)
	got := visibleLabels(m)
	if len(got) != 1 || got[0] != "Workspace" {
		t.Fatalf("visible = %v, want [Workspace]", got)
	}
}

func TestModelExpandLoadsChildren(t *testing.T) {
	m := newTestModel(t)
	press(t, m, "enter")
	got := visibleLabels(m)
	if len(got) != 3 {
		t.Fatalf("visible = %v, want 3 rows", got)
	}
	if got[1] != "Documents" || got[2] != "Images" {
		t.Errorf("children = %v", got[1:])
	}
}

func TestModelCollapseRestoresRows(t *testing.T) {
	m := newTestModel(t)
	press(t, m, "enter")
	press(t, m, "enter") // collapse again
	if n := m.eng.VisibleCount(); n != 1 {
		t.Errorf("visible after collapse = %d, want 1", n)
	}
}

func TestModelCursorMovesAndClamps(t *testing.T) {
	m := newTestModel(t)
	press(t, m, "enter")
	press(t, m, "j")
	press(t, m, "j")
	if m.cursor != 2 {
		t.Errorf("cursor = %d, want 2", m.cursor)
	}
	press(t, m, "j") // past the end
	if m.cursor != 2 {
		t.Errorf("cursor = %d after overshoot, want 2", m.cursor)
	}
	press(t, m, "g")
	if m.cursor != 0 {
		t.Errorf("cursor = %d after home, want 0", m.cursor)
	}
}

func TestModelSelectionToggle(t *testing.T) {
	m := newTestModel(t)
	press(t, m, "space")
	if !m.eng.IsSelected("ws") {
		t.Error("ws not selected after space")
	}
	press(t, m, "space")
	if m.eng.IsSelected("ws") {
		t.Error("ws still selected after second space")
	}
}

func TestModelFilterNarrowsRows(t *testing.T) {
	m := newTestModel(t)
	press(t, m, "enter") // expand ws
	press(t, m, "j")
	press(t, m, "enter") // expand docs
	press(t, m, "/")
	if !m.filtering {
		t.Fatal("filter input not active")
	}
	for _, r := range "report" {
		press(t, m, string(r))
	}
	press(t, m, "enter")
	if !m.eng.FilterActive() {
		t.Fatal("filter not applied")
	}
	labels := visibleLabels(m)
	for _, l := range labels {
		if l == "Images" {
			t.Errorf("non-matching branch still visible: %v", labels)
		}
	}
	press(t, m, "esc")
	if m.eng.FilterActive() {
		t.Error("esc did not clear the filter")
	}
}

func TestModelResetAsksForConfirmation(t *testing.T) {
	m := newTestModel(t)
	press(t, m, "enter")
	press(t, m, "r")
	if !m.confirmReset {
		t.Fatal("no confirmation prompt")
	}
	press(t, m, "n")
	if m.confirmReset {
		t.Error("prompt survived decline")
	}
	if m.eng.VisibleCount() != 3 {
		t.Error("decline should not discard anything")
	}

	press(t, m, "r")
	press(t, m, "y")
	n := m.eng.Node("ws")
	if n == nil || n.ChildrenLoaded {
		t.Error("confirm should discard the cached subtree")
	}
}

func TestModelViewRendersVisibleRows(t *testing.T) {
	m := newTestModel(t)
	press(t, m, "enter")
	out := m.View()
	for _, label := range []string{"Workspace", "Documents", "Images"} {
		if !strings.Contains(out, label) {
			t.Errorf("view missing %q", label)
		}
	}
	if !strings.Contains(out, "rows") {
		t.Error("status bar missing")
	}
}

// TestRenderLabelTruncatedHighlightStaysValidUTF8 verifies highlight ranges
// computed on the full label cannot slice the truncated label mid-rune: the
// rendered output must stay valid UTF-8 when the cut falls inside a
// highlighted multi-byte run.
func TestRenderLabelTruncatedHighlightStaysValidUTF8(t *testing.T) {
	m := &Model{}
	row := engine.RowViewModel{
		Label: "abcdé-report.txt",
		// "report" in the full label, past the truncation cut.
		Highlights: [][2]int{{7, 13}},
	}
	out := m.renderLabel(row, 6)
	if !utf8.ValidString(out) {
		t.Fatalf("rendered label is not valid UTF-8: %q", out)
	}
	if !strings.Contains(out, "abcdé") {
		t.Errorf("kept prefix missing from %q", out)
	}
}

func TestModelViewBeforeSizeIsPlaceholder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.json")
	if err := os.WriteFile(path, []byte(viewerDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := datasource.Open(path, datasource.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()
	m := NewModel(src, config.DefaultConfig())
	if out := m.View(); !strings.Contains(out, "loading") {
		t.Errorf("pre-size view = %q", out)
	}
}

func TestModelSourceChangePicksUpNewDocument(t *testing.T) {
	m := newTestModel(t)
	updated := strings.Replace(viewerDoc, "Workspace", "Workspace v2", 1)
	if err := os.WriteFile(m.src.Path(), []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}
	// The real program runs the reload from the batch Update returns; run it
	// directly to stay synchronous.
	m.Update(sourceChangedMsg{})
	step(t, m, m.reloadCmd())
	got := visibleLabels(m)
	if len(got) == 0 || got[0] != "Workspace v2" {
		t.Errorf("after reload visible = %v, want Workspace v2 first", got)
	}
}

func TestModelHierarchicalConfigPropagates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.json")
	if err := os.WriteFile(path, []byte(viewerDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := datasource.Open(path, datasource.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	cfg := config.DefaultConfig()
	cfg.Engine.SelectionMode = "hierarchical"
	m := NewModel(src, cfg)
	m.stateDir = t.TempDir()
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	step(t, m, m.loadRootsCmd())

	press(t, m, "enter") // load ws children
	press(t, m, "space") // select ws → cascades
	if !m.eng.IsSelected("docs") || !m.eng.IsSelected("imgs") {
		t.Error("hierarchical selection did not cascade to children")
	}
}

func TestModelPinnedRowStaysVisibleWhenCollapsed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.json")
	if err := os.WriteFile(path, []byte(viewerDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := datasource.Open(path, datasource.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	cfg := config.DefaultConfig()
	cfg.Pins = []string{"docs"}
	m := NewModel(src, cfg)
	m.stateDir = t.TempDir()
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	step(t, m, m.loadRootsCmd())

	press(t, m, "enter") // expand ws so docs exists
	press(t, m, "enter") // collapse ws again
	if m.eng.VisibleCount() != 1 {
		t.Fatalf("visible = %d, want collapsed root only", m.eng.VisibleCount())
	}
	if !strings.Contains(m.View(), "Documents") {
		t.Error("pinned row missing from the collapsed view")
	}
}

// TestModelPinJumpExpandsPath exercises the pin jump: pressing p resolves
// the target's ancestor chain through the source, loads the ancestors'
// children and lands the cursor on the target.
func TestModelPinJumpExpandsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.json")
	if err := os.WriteFile(path, []byte(viewerDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := datasource.Open(path, datasource.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	cfg := config.DefaultConfig()
	cfg.Pins = []string{"report"}
	m := NewModel(src, cfg)
	m.stateDir = t.TempDir()
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	step(t, m, m.loadRootsCmd())

	// Nothing below the root is loaded yet; the jump must fetch the chain.
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	if cmd == nil {
		t.Fatal("expected a jump command")
	}
	raw := cmd()
	msg, ok := raw.(pathLoadedMsg)
	if !ok {
		t.Fatalf("expected a path result, got %T", raw)
	}
	m.Update(msg)

	if !m.eng.IsExpanded("ws") || !m.eng.IsExpanded("docs") {
		t.Error("ancestor chain not expanded by jump")
	}
	row := m.currentRow()
	if row == nil || row.ID != "report" {
		t.Fatalf("cursor not on jump target: %+v", row)
	}
}

// TestModelPinJumpUnknownTarget verifies a dangling pin reports a status
// instead of mutating the tree.
func TestModelPinJumpUnknownTarget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.json")
	if err := os.WriteFile(path, []byte(viewerDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := datasource.Open(path, datasource.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	cfg := config.DefaultConfig()
	cfg.Pins = []string{"ghost"}
	m := NewModel(src, cfg)
	m.stateDir = t.TempDir()
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	step(t, m, m.loadRootsCmd())
	before := m.eng.VisibleCount()

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	msg, ok := cmd().(pathLoadedMsg)
	if !ok || msg.err == nil {
		t.Fatalf("expected a failed path result, got %+v", msg)
	}
	m.Update(msg)

	if m.eng.VisibleCount() != before {
		t.Error("failed jump changed the visible rows")
	}
	if m.status == "" {
		t.Error("failed jump left no status message")
	}
}
