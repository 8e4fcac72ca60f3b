package datasource

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/treeline/pkg/debug"
	"github.com/vanderheijden86/treeline/pkg/engine"
)

// SQLiteSource serves a tree from a SQLite database. The schema is a single
// nodes table keyed by id with a parent_id/position ordering:
//
//	CREATE TABLE nodes (
//	    id        TEXT PRIMARY KEY,
//	    parent_id TEXT,
//	    position  INTEGER NOT NULL,
//	    label     TEXT NOT NULL,
//	    icon      TEXT NOT NULL DEFAULT '',
//	    is_leaf   INTEGER NOT NULL DEFAULT 0,
//	    detail    TEXT NOT NULL DEFAULT ''
//	);
//	CREATE INDEX idx_nodes_parent ON nodes(parent_id, position);
//
// Roots have a NULL parent_id. Child counts come from a correlated COUNT so
// pagination decisions never require a second round trip.
type SQLiteSource struct {
	db       *sql.DB
	path     string
	pageSize int
	adapter  engine.Adapter
}

const recordColumns = `n.id, n.parent_id, n.position, n.label, n.icon, n.is_leaf, n.detail,
	(SELECT COUNT(*) FROM nodes c WHERE c.parent_id = n.id) AS child_count`

// OpenSQLite opens a SQLite-backed source and validates its schema.
func OpenSQLite(path string, opts Options) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	s := &SQLiteSource{
		db:       db,
		path:     path,
		pageSize: opts.pageSize(),
	}
	s.adapter = adapterFor(s.pageSize)
	if err := s.validate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteSource) validate() error {
	var name string
	err := s.db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'nodes'`,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%q is not a treeline database (no nodes table)", s.path)
	}
	if err != nil {
		return fmt.Errorf("validate %q: %w", s.path, err)
	}
	return nil
}

// Path returns the database file path.
func (s *SQLiteSource) Path() string { return s.path }

// Adapter returns the engine adapter over Record payloads.
func (s *SQLiteSource) Adapter() engine.Adapter { return s.adapter }

// Close closes the database handle.
func (s *SQLiteSource) Close() error { return s.db.Close() }

// LoadRoots loads all root records in position order.
func (s *SQLiteSource) LoadRoots(ctx context.Context) ([]any, error) {
	return s.queryRecords(ctx,
		`SELECT `+recordColumns+` FROM nodes n WHERE n.parent_id IS NULL ORDER BY n.position`)
}

// LoadChildren loads the children of id. Parents whose child count exceeds
// the page size return a first page with the total; the rest return a plain
// item list.
func (s *SQLiteSource) LoadChildren(ctx context.Context, id string) (engine.LoadResult, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM nodes WHERE parent_id = ?`, id).Scan(&total)
	if err != nil {
		return engine.LoadResult{}, fmt.Errorf("count children of %q: %w", id, err)
	}
	if total <= s.pageSize {
		items, err := s.queryRecords(ctx,
			`SELECT `+recordColumns+` FROM nodes n WHERE n.parent_id = ? ORDER BY n.position`, id)
		if err != nil {
			return engine.LoadResult{}, err
		}
		return engine.Items(items), nil
	}
	first, err := s.LoadPage(ctx, id, 0)
	if err != nil {
		return engine.LoadResult{}, err
	}
	debug.Log("sqlite: %s paginated, %d children, page size %d", id, total, s.pageSize)
	return engine.Page(first, total, 0), nil
}

// LoadPage loads one zero-based page of a parent's children.
func (s *SQLiteSource) LoadPage(ctx context.Context, id string, page int) ([]any, error) {
	if page < 0 {
		return nil, fmt.Errorf("page %d of %q: negative page index", page, id)
	}
	return s.queryRecords(ctx,
		`SELECT `+recordColumns+` FROM nodes n WHERE n.parent_id = ? ORDER BY n.position LIMIT ? OFFSET ?`,
		id, s.pageSize, page*s.pageSize)
}

// Lookup fetches a single record by id, validating jump targets before the
// ancestor chain is resolved.
func (s *SQLiteSource) Lookup(ctx context.Context, id string) (*Record, error) {
	recs, err := s.queryRecords(ctx,
		`SELECT `+recordColumns+` FROM nodes n WHERE n.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("node %q not found", id)
	}
	return recs[0].(*Record), nil
}

// PathTo returns the ancestor chain of id, root first, excluding id itself.
// It walks parent_id links with a recursive CTE.
func (s *SQLiteSource) PathTo(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH RECURSIVE chain(id, parent_id, depth) AS (
			SELECT id, parent_id, 0 FROM nodes WHERE id = ?
			UNION ALL
			SELECT n.id, n.parent_id, chain.depth + 1
			FROM nodes n JOIN chain ON n.id = chain.parent_id
		)
		SELECT id FROM chain WHERE depth > 0 ORDER BY depth DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("path to %q: %w", id, err)
	}
	defer rows.Close()
	var path []string
	for rows.Next() {
		var ancestor string
		if err := rows.Scan(&ancestor); err != nil {
			return nil, err
		}
		path = append(path, ancestor)
	}
	return path, rows.Err()
}

func (s *SQLiteSource) queryRecords(ctx context.Context, query string, args ...any) ([]any, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	var out []any
	for rows.Next() {
		var (
			rec      Record
			parentID sql.NullString
			position int
			leaf     int
		)
		if err := rows.Scan(&rec.ID, &parentID, &position, &rec.Label, &rec.Icon,
			&leaf, &rec.Detail, &rec.ChildCount); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		rec.Leaf = leaf != 0
		out = append(out, &rec)
	}
	return out, rows.Err()
}
