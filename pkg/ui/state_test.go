package ui

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vanderheijden86/treeline/pkg/engine"
	"github.com/vanderheijden86/treeline/pkg/testutil"
)

func TestViewStateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	st := NewViewState()
	st.Record("n001", true)
	st.Record("n002", false)
	st.Save(dir, "/data/tree.db")

	loaded := LoadViewState(dir, "/data/tree.db")
	if !loaded.Expanded["n001"] {
		t.Error("n001 expansion lost")
	}
	if loaded.Expanded["n002"] {
		t.Error("n002 collapse flipped to expanded")
	}
}

func TestViewStateIsPerSource(t *testing.T) {
	dir := t.TempDir()
	st := NewViewState()
	st.Record("n001", true)
	st.Save(dir, "/data/a.db")

	other := LoadViewState(dir, "/data/b.db")
	if len(other.Expanded) != 0 {
		t.Error("state for a.db leaked into b.db")
	}
}

func TestViewStateMissingFileYieldsDefaults(t *testing.T) {
	st := LoadViewState(t.TempDir(), "/nowhere/tree.db")
	if st == nil || len(st.Expanded) != 0 {
		t.Error("expected a fresh state")
	}
}

func TestViewStateCorruptFileYieldsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := viewStatePath(dir, "/data/tree.db")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	st := LoadViewState(dir, "/data/tree.db")
	if len(st.Expanded) != 0 {
		t.Error("expected defaults for a corrupt file")
	}
}

func TestViewStateApplyReExpandsLoadedNodes(t *testing.T) {
	roots := testutil.Generate(testutil.GenerateOptions{Seed: 5})
	eng := testutil.NewEngine(roots, engine.DefaultConfig())

	var branch string
	testutil.Walk(roots, func(n, _ *testutil.FixtureNode) {
		if branch == "" && !n.Leaf {
			branch = n.ID
		}
	})
	st := NewViewState()
	st.Record(engine.NodeID(branch), true)

	pending := st.Apply(eng, false)
	if len(pending) != 0 {
		t.Errorf("loaded nodes should not need async loads, got %v", pending)
	}
	if !eng.IsExpanded(engine.NodeID(branch)) {
		t.Errorf("%s not re-expanded", branch)
	}
}
