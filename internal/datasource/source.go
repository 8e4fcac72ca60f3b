// Package datasource provides tree data sources for treeline. A source owns
// the I/O the engine refuses to do: it discovers and validates a backing
// file (SQLite database or JSON document), loads roots and children on
// demand, and exposes the adapter contract the engine reads payloads
// through.
package datasource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vanderheijden86/treeline/pkg/engine"
)

// SourceType identifies the type of data source.
type SourceType string

const (
	// SourceTypeSQLite is a SQLite database of nodes (tree.db).
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeJSON is a nested JSON document (tree.json).
	SourceTypeJSON SourceType = "json"
)

// Record is the payload a source hands to the engine: one node of the
// backing tree. The engine treats it as opaque and reads it only through
// the source's Adapter.
type Record struct {
	ID     string
	Label  string
	Icon   string
	Detail string
	Leaf   bool

	// ChildCount is the number of children the backing store reports for
	// this record. It decides whether the child list is paginated.
	ChildCount int
}

// Source is a tree data backend. LoadChildren returns a tagged result:
// engine.Page for paginated parents (as declared by the adapter's
// pagination config), engine.Items otherwise.
type Source interface {
	// Path returns the backing file path.
	Path() string
	// Adapter returns the engine adapter for this source's payloads.
	Adapter() engine.Adapter
	// LoadRoots loads the root records.
	LoadRoots(ctx context.Context) ([]any, error)
	// LoadChildren loads the children of id (the first page, for paginated
	// parents).
	LoadChildren(ctx context.Context, id string) (engine.LoadResult, error)
	// LoadPage loads one page of a paginated parent's children.
	LoadPage(ctx context.Context, id string, page int) ([]any, error)
	// Lookup fetches a single record by id.
	Lookup(ctx context.Context, id string) (*Record, error)
	// PathTo returns the ancestor chain of id, root first, excluding id
	// itself. Roots have an empty chain.
	PathTo(ctx context.Context, id string) ([]string, error)
	// Close releases backing resources.
	Close() error
}

// Options configures source opening.
type Options struct {
	// PageSize is the page size for paginated parents. Parents with at most
	// PageSize children load as a plain list. Default 100.
	PageSize int
}

// DefaultPageSize is used when Options.PageSize is zero.
const DefaultPageSize = 100

func (o Options) pageSize() int {
	if o.PageSize > 0 {
		return o.PageSize
	}
	return DefaultPageSize
}

// Open opens the source at path, inferring the type from the extension.
func Open(path string, opts Options) (Source, error) {
	switch DetectType(path) {
	case SourceTypeSQLite:
		return OpenSQLite(path, opts)
	case SourceTypeJSON:
		return OpenJSONFile(path, opts)
	default:
		return nil, fmt.Errorf("unsupported source %q (want .db, .sqlite or .json)", path)
	}
}

// DetectType classifies a source path by extension.
func DetectType(path string) SourceType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return SourceTypeSQLite
	case ".json":
		return SourceTypeJSON
	default:
		return ""
	}
}

// Discover finds a usable source. When path is a file it is used directly;
// when it is a directory, the freshest of tree.db / tree.json inside it
// wins. SQLite is preferred on equal timestamps (it is the authoritative
// store, the JSON export a convenience).
func Discover(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("source %q: %w", path, err)
	}
	if !info.IsDir() {
		if DetectType(path) == "" {
			return "", fmt.Errorf("source %q has an unsupported extension", path)
		}
		return path, nil
	}

	candidates := []string{
		filepath.Join(path, "tree.db"),
		filepath.Join(path, "tree.sqlite"),
		filepath.Join(path, "tree.json"),
	}
	best := ""
	var bestMod int64 = -1
	for _, cand := range candidates {
		fi, err := os.Stat(cand)
		if err != nil {
			continue
		}
		mod := fi.ModTime().UnixNano()
		if mod > bestMod {
			best, bestMod = cand, mod
		}
	}
	if best == "" {
		return "", fmt.Errorf("no tree.db or tree.json in %q", path)
	}
	return best, nil
}

// adapterFor builds the engine adapter for Record-backed sources that page
// large child lists: parents whose backing store reports more than pageSize
// children declare pagination and deliver page results.
func adapterFor(pageSize int) engine.Adapter {
	a := recordAdapter()
	a.GetPagination = func(p any) engine.PaginationConfig {
		r := p.(*Record)
		return engine.PaginationConfig{
			Enabled:  r.ChildCount > pageSize,
			PageSize: pageSize,
		}
	}
	return a
}

// recordAdapter builds the base engine adapter over Record payloads, with no
// pagination capability: every parent loads as a plain child list.
func recordAdapter() engine.Adapter {
	return engine.Adapter{
		GetID:    func(p any) string { return p.(*Record).ID },
		GetLabel: func(p any) string { return p.(*Record).Label },
		GetIcon:  func(p any) string { return p.(*Record).Icon },
		IsLeaf:   func(p any) bool { return p.(*Record).Leaf },
		GetSearchText: func(p any) string {
			r := p.(*Record)
			if r.Detail == "" {
				return r.Label
			}
			return r.Label + " " + r.Detail
		},
		HighlightRanges: func(p any, q engine.Query) [][2]int {
			return highlightRanges(p.(*Record).Label, q)
		},
	}
}

// highlightRanges finds query occurrences in a label for row highlighting.
// Case folding matches the engine's default matcher.
func highlightRanges(label string, q engine.Query) [][2]int {
	needles := q.Tokens
	if len(needles) == 0 {
		needles = []string{q.Text}
	}
	hay := label
	if !q.CaseSensitive {
		hay = strings.ToLower(label)
	}
	var ranges [][2]int
	for _, needle := range needles {
		if needle == "" {
			continue
		}
		if !q.CaseSensitive {
			needle = strings.ToLower(needle)
		}
		for from := 0; ; {
			i := strings.Index(hay[from:], needle)
			if i < 0 {
				break
			}
			start := from + i
			ranges = append(ranges, [2]int{start, start + len(needle)})
			from = start + len(needle)
		}
	}
	return ranges
}
