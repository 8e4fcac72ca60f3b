// Package e2e exercises treeline end to end: real SQLite and JSON sources
// on disk, the engine driven the way the viewer drives it, no mocks.
package e2e

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/treeline/internal/datasource"
)

// buildFleetDB writes a small "fleet" tree: regions containing hosts, one
// region big enough to paginate at the test page size of 10.
func buildFleetDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tree.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	schema := `
CREATE TABLE nodes (
    id        TEXT PRIMARY KEY,
    parent_id TEXT,
    position  INTEGER NOT NULL,
    label     TEXT NOT NULL,
    icon      TEXT NOT NULL DEFAULT '',
    is_leaf   INTEGER NOT NULL DEFAULT 0,
    detail    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX idx_nodes_parent ON nodes(parent_id, position);`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("schema: %v", err)
	}

	exec := func(q string, args ...any) {
		if _, err := db.Exec(q, args...); err != nil {
			t.Fatalf("exec: %v", err)
		}
	}
	const ins = `INSERT INTO nodes (id, parent_id, position, label, is_leaf, detail) VALUES (?, ?, ?, ?, ?, ?)`
	exec(ins, "eu", nil, 0, "Europe", 0, "12 hosts")
	exec(ins, "us", nil, 1, "United States", 0, "3 hosts")
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("eu-host-%02d", i)
		exec(ins, id, "eu", i, fmt.Sprintf("host-%02d.eu", i), 1, "")
	}
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("us-host-%02d", i)
		exec(ins, id, "us", i, fmt.Sprintf("host-%02d.us", i), 1, "")
	}
	return path
}

func openFleet(t *testing.T) *datasource.SQLiteSource {
	t.Helper()
	src, err := datasource.OpenSQLite(buildFleetDB(t), datasource.Options{PageSize: 10})
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { src.Close() })
	return src
}
