package e2e

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vanderheijden86/treeline/internal/datasource"
	"github.com/vanderheijden86/treeline/pkg/engine"
	"github.com/vanderheijden86/treeline/pkg/watcher"
)

const orgDoc = `{
  "roots": [
    {"id": "eng", "label": "Engineering", "children": [
      {"id": "core", "label": "Core Team", "leaf": true}
    ]}
  ]
}`

const orgDocV2 = `{
  "roots": [
    {"id": "eng", "label": "Engineering", "children": [
      {"id": "core", "label": "Core Team", "leaf": true},
      {"id": "infra", "label": "Infra Team", "leaf": true}
    ]}
  ]
}`

// TestWatchReloadShowsNewNodes edits the JSON document on disk and checks
// the watcher-triggered reload surfaces the new node.
func TestWatchReloadShowsNewNodes(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tree.json")
	if err := os.WriteFile(path, []byte(orgDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := datasource.Open(path, datasource.Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	eng := engine.NewEngine(src.Adapter(), engine.DefaultConfig(), nil)
	roots, err := src.LoadRoots(ctx)
	if err != nil {
		t.Fatal(err)
	}
	eng.InitRoots(roots)
	if eng.VisibleCount() != 1 {
		t.Fatalf("visible = %d before expansion", eng.VisibleCount())
	}
	eng.ToggleExpand("eng", true)
	res, _ := src.LoadChildren(ctx, "eng")
	eng.SetChildrenLoaded("eng", res)
	if eng.VisibleCount() != 2 {
		t.Fatalf("visible = %d, want eng + core", eng.VisibleCount())
	}

	changed := make(chan struct{}, 1)
	w, err := watcher.New(path,
		watcher.WithDebounceDuration(30*time.Millisecond),
		watcher.WithOnChange(func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		}))
	if err != nil {
		t.Fatalf("watcher.New: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("watcher.Start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte(orgDocV2), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never fired")
	}

	// Reload the way the viewer does: fresh parse, roots reinitialized,
	// expansion reapplied.
	src.Close()
	fresh, err := datasource.Open(path, datasource.Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer fresh.Close()
	eng = engine.NewEngine(fresh.Adapter(), engine.DefaultConfig(), nil)
	roots, err = fresh.LoadRoots(ctx)
	if err != nil {
		t.Fatal(err)
	}
	eng.InitRoots(roots)
	eng.ToggleExpand("eng", true)
	res, _ = fresh.LoadChildren(ctx, "eng")
	eng.SetChildrenLoaded("eng", res)

	ids := map[string]bool{}
	for _, row := range eng.VisibleRows() {
		ids[string(row.ID)] = true
	}
	if !ids["infra"] {
		t.Errorf("reload missed the new node: %v", ids)
	}
}
