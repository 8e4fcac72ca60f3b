package ui

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/treeline/pkg/debug"
	"github.com/vanderheijden86/treeline/pkg/engine"
)

// ViewState is the persistent slice of viewer state: which nodes the user
// explicitly expanded, keyed by source path so different trees do not bleed
// into each other. Saved as JSON under the XDG state dir.
//
// Only explicit user changes are stored; nodes absent from the map use the
// default (collapsed). A corrupted or missing file degrades to defaults.
type ViewState struct {
	Version  int             `json:"version"`
	Expanded map[string]bool `json:"expanded"`
}

// ViewStateVersion is the current schema version.
const ViewStateVersion = 1

// NewViewState returns an empty state at the current version.
func NewViewState() *ViewState {
	return &ViewState{Version: ViewStateVersion, Expanded: make(map[string]bool)}
}

// viewStatePath maps a source path to its state file. The source path is
// flattened into a filename so each tree keeps its own state.
func viewStatePath(stateDir, sourcePath string) string {
	name := filepath.Base(sourcePath) + "-" + shortHash(sourcePath) + ".json"
	return filepath.Join(stateDir, "views", name)
}

// shortHash is an FNV-1a over the path, hex encoded. Collisions only cost a
// shared expand state, so a short hash is enough.
func shortHash(s string) string {
	h := fnv.New32a()
	h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}

// LoadViewState reads the persisted state for a source. Missing or corrupt
// files return a fresh state.
func LoadViewState(stateDir, sourcePath string) *ViewState {
	data, err := os.ReadFile(viewStatePath(stateDir, sourcePath))
	if err != nil {
		return NewViewState()
	}
	var st ViewState
	if err := json.Unmarshal(data, &st); err != nil || st.Version != ViewStateVersion {
		debug.Log("view state unreadable, starting fresh: %v", err)
		return NewViewState()
	}
	if st.Expanded == nil {
		st.Expanded = make(map[string]bool)
	}
	return &st
}

// Save writes the state for a source. Errors are logged, never fatal; losing
// expand state is not worth interrupting the session.
func (st *ViewState) Save(stateDir, sourcePath string) {
	path := viewStatePath(stateDir, sourcePath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		debug.Log("save view state: %v", err)
		return
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		debug.Log("save view state: %v", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		debug.Log("save view state: %v", err)
	}
}

// Record notes an explicit expand or collapse.
func (st *ViewState) Record(id engine.NodeID, expanded bool) {
	st.Expanded[string(id)] = expanded
}

// Apply re-expands recorded nodes whose children are already loaded. Nodes
// needing an async load are returned so the caller can schedule them.
func (st *ViewState) Apply(eng *engine.Engine, async bool) []engine.NodeID {
	var pending []engine.NodeID
	for id, expanded := range st.Expanded {
		if !expanded {
			continue
		}
		nid := engine.NodeID(id)
		n := eng.Node(nid)
		if n == nil || eng.IsExpanded(nid) {
			continue
		}
		if eng.ToggleExpand(nid, async) {
			pending = append(pending, nid)
		}
	}
	return pending
}
