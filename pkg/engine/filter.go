package engine

import "strings"

// MatchMode selects how the default matcher compares query text.
type MatchMode int

const (
	// MatchSubstring matches when the search text contains the query text
	// (and every token, when tokens are present).
	MatchSubstring MatchMode = iota
	// MatchExact matches only the full search text.
	MatchExact
)

// Query describes an active filter. Text is the raw input; Tokens, when
// non-empty, must all match individually (AND semantics). Fields is an
// opaque hint passed through to the adapter's custom matcher.
type Query struct {
	Text          string
	Tokens        []string
	Fields        []string
	CaseSensitive bool
	Mode          MatchMode
}

// empty reports whether the query matches everything.
func (q Query) empty() bool {
	return q.Text == "" && len(q.Tokens) == 0
}

// filterState holds the computed visibility for the active query. The
// underlying tree is never mutated by filtering; visibility lives here and
// the row projector consults it.
type filterState struct {
	query   Query
	visible map[NodeID]bool // direct match OR ancestor-of-match (per config)
	direct  map[NodeID]bool // direct matches only, drives highlights + auto-expand
}

// SetFilter activates a query. Node visibility becomes directMatch OR
// hasVisibleDescendant (when ShowParentsOfMatches), computed over loaded,
// non-placeholder nodes. Placeholders stay visible under a visible paged
// parent when KeepPlaceholdersVisible, regardless of match, so the slot
// geometry a virtualizer depends on does not change.
//
// With AutoExpandMatches the ancestor path of every direct match is expanded
// as a side effect, an explicit contract, because a filter that mutates
// expansion state is surprising.
func (e *Engine) SetFilter(q Query) {
	if q.empty() {
		e.ClearFilter()
		return
	}
	e.apply(func() {
		e.filter = &filterState{query: q}
	})
}

// ClearFilter removes the active query. Under PolicyKeep, selections hidden
// by the filter are intact again.
func (e *Engine) ClearFilter() {
	if e.filter == nil {
		return
	}
	e.apply(func() {
		e.filter = nil
	})
}

// FilterActive reports whether a query is in effect.
func (e *Engine) FilterActive() bool {
	return e.filter != nil
}

// FilterQuery returns the active query (zero Query when inactive).
func (e *Engine) FilterQuery() Query {
	if e.filter == nil {
		return Query{}
	}
	return e.filter.query
}

// refilter recomputes visibility for the active query. Runs inside apply on
// every mutation so loads arriving under an active filter are classified
// immediately.
func (e *Engine) refilter() {
	if e.filter == nil {
		return
	}
	f := e.filter
	f.visible = make(map[NodeID]bool)
	f.direct = make(map[NodeID]bool)

	var walk func(id NodeID) bool
	walk = func(id NodeID) bool {
		n := e.store.Node(id)
		if n == nil {
			return false
		}
		if n.Placeholder {
			// Resolved by the parent below; a placeholder has nothing to
			// match against.
			return false
		}
		direct := e.matches(n, f.query)
		if direct {
			f.direct[id] = true
		}
		childVisible := false
		for _, cid := range n.ChildrenIDs {
			if walk(cid) {
				childVisible = true
			}
		}
		visible := direct
		if e.cfg.ShowParentsOfMatches && childVisible {
			visible = true
		}
		if visible {
			f.visible[id] = true
			if e.cfg.KeepPlaceholdersVisible {
				for _, cid := range n.ChildrenIDs {
					if c := e.store.Node(cid); c != nil && c.Placeholder {
						f.visible[cid] = true
					}
				}
			}
		}
		return visible
	}
	for _, rid := range e.store.Roots() {
		walk(rid)
	}

	if e.cfg.AutoExpandMatches {
		for id := range f.direct {
			for cur := e.store.Node(id); cur != nil && cur.ParentID != ""; {
				e.expanded[cur.ParentID] = true
				cur = e.store.Node(cur.ParentID)
			}
		}
	}
	if e.cfg.SelectionPolicy == PolicyClearHidden {
		e.clearHiddenSelection()
	}
}

// matches computes a node's direct match: the adapter's custom matcher when
// supplied, else substring/exact comparison against the adapter's search
// text, case-insensitive unless the query says otherwise.
func (e *Engine) matches(n *Node, q Query) bool {
	if e.adapter.Matches != nil {
		return e.adapter.Matches(n.Payload, q)
	}
	text := e.adapter.searchText(n.Payload)
	fold := func(s string) string {
		if q.CaseSensitive {
			return s
		}
		return strings.ToLower(s)
	}
	text = fold(text)

	if len(q.Tokens) > 0 {
		for _, tok := range q.Tokens {
			if !matchOne(text, fold(tok), q.Mode) {
				return false
			}
		}
		return true
	}
	return matchOne(text, fold(q.Text), q.Mode)
}

func matchOne(text, needle string, mode MatchMode) bool {
	if needle == "" {
		return true
	}
	if mode == MatchExact {
		return text == needle
	}
	return strings.Contains(text, needle)
}
