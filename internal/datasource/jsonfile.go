package datasource

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/treeline/pkg/engine"
)

// jsonNode is the on-disk shape of a tree.json document: nested nodes with
// inline children.
type jsonNode struct {
	ID       string      `json:"id"`
	Label    string      `json:"label"`
	Icon     string      `json:"icon,omitempty"`
	Detail   string      `json:"detail,omitempty"`
	Leaf     bool        `json:"leaf,omitempty"`
	Children []*jsonNode `json:"children,omitempty"`
}

// JSONFileSource serves a tree from a nested JSON document, fully parsed at
// open time. Children load from memory, so it never paginates; large trees
// belong in SQLite.
type JSONFileSource struct {
	path     string
	adapter  engine.Adapter
	roots    []any
	children map[string][]any
	records  map[string]*Record
	parents  map[string]string
}

// OpenJSONFile parses a tree.json document into an in-memory source.
func OpenJSONFile(path string, opts Options) (*JSONFileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}
	var doc struct {
		Roots []*jsonNode `json:"roots"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %q: %w", path, err)
	}
	if len(doc.Roots) == 0 {
		return nil, fmt.Errorf("%q has no roots", path)
	}

	s := &JSONFileSource{
		path:     path,
		adapter:  recordAdapter(),
		children: make(map[string][]any),
		records:  make(map[string]*Record),
		parents:  make(map[string]string),
	}
	for _, root := range doc.Roots {
		rec, err := s.index(root, "")
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", path, err)
		}
		s.roots = append(s.roots, rec)
	}
	return s, nil
}

func (s *JSONFileSource) index(n *jsonNode, parentID string) (*Record, error) {
	if n.ID == "" {
		return nil, fmt.Errorf("node %q has no id", n.Label)
	}
	if _, dup := s.records[n.ID]; dup {
		return nil, fmt.Errorf("duplicate node id %q", n.ID)
	}
	rec := &Record{
		ID:         n.ID,
		Label:      n.Label,
		Icon:       n.Icon,
		Detail:     n.Detail,
		Leaf:       n.Leaf && len(n.Children) == 0,
		ChildCount: len(n.Children),
	}
	s.records[n.ID] = rec
	if parentID != "" {
		s.parents[n.ID] = parentID
	}
	for _, child := range n.Children {
		childRec, err := s.index(child, n.ID)
		if err != nil {
			return nil, err
		}
		s.children[n.ID] = append(s.children[n.ID], childRec)
	}
	return rec, nil
}

// Path returns the document path.
func (s *JSONFileSource) Path() string { return s.path }

// Adapter returns the engine adapter over Record payloads.
func (s *JSONFileSource) Adapter() engine.Adapter { return s.adapter }

// Close is a no-op; the document is held in memory.
func (s *JSONFileSource) Close() error { return nil }

// LoadRoots returns the document roots.
func (s *JSONFileSource) LoadRoots(context.Context) ([]any, error) {
	return s.roots, nil
}

// LoadChildren returns the children of id from the parsed document.
func (s *JSONFileSource) LoadChildren(_ context.Context, id string) (engine.LoadResult, error) {
	return engine.Items(s.children[id]), nil
}

// Lookup fetches a single record by id.
func (s *JSONFileSource) Lookup(_ context.Context, id string) (*Record, error) {
	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("node %q not found", id)
	}
	return rec, nil
}

// PathTo returns the ancestor chain of id from the parsed document, root
// first, excluding id itself.
func (s *JSONFileSource) PathTo(_ context.Context, id string) ([]string, error) {
	if _, ok := s.records[id]; !ok {
		return nil, fmt.Errorf("node %q not found", id)
	}
	var path []string
	for cur, ok := s.parents[id]; ok; cur, ok = s.parents[cur] {
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// LoadPage returns a slice of the in-memory child list. JSON sources do not
// declare pagination, but the engine may still ask if a caller forces it.
func (s *JSONFileSource) LoadPage(_ context.Context, id string, page int) ([]any, error) {
	kids := s.children[id]
	size := DefaultPageSize
	start := page * size
	if start < 0 || start >= len(kids) {
		return nil, fmt.Errorf("page %d of %q out of range", page, id)
	}
	end := start + size
	if end > len(kids) {
		end = len(kids)
	}
	return kids[start:end], nil
}
