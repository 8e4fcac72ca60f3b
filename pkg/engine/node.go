// Package engine implements the tree state engine that backs the treeline
// viewer: canonical node state (expansion, selection, loading, error,
// pagination) plus the derived flat row projection a virtualized viewport
// renders. The engine owns no I/O and no rendering; data arrives through an
// Adapter (see adapter.go) and rows leave through VisibleRows (see rows.go).
package engine

import (
	"fmt"

	"github.com/vanderheijden86/treeline/pkg/debug"
)

// NodeID is an opaque, caller-assigned node identity, unique within one tree.
type NodeID string

// Node is one entry in the hierarchical data set: engine-owned transient
// state plus the adapter's opaque payload. All fields are mutated exclusively
// through Store / Engine operations.
type Node struct {
	ID       NodeID
	ParentID NodeID // "" for roots
	Level    int    // depth from root, root = 0
	Payload  any    // adapter domain data; nil for placeholders

	// ChildrenIDs defines display order. Every entry resolves to a stored
	// node (placeholders included).
	ChildrenIDs []NodeID

	IsLeaf         bool // known leaf; never expandable
	Disabled       bool
	ChildrenLoaded bool  // children fetched at least once
	Loading        bool  // one load in flight; acts as the mutual-exclusion gate
	Err            error // last load failure, cleared on success

	// Placeholder marks a synthetic row reserved for a not-yet-loaded paged
	// slot. Placeholders carry position but no payload and are excluded from
	// selection and filtering.
	Placeholder      bool
	PlaceholderIndex int // absolute position within the parent's total count
}

// Expandable reports whether the node can be toggled open.
func (n *Node) Expandable() bool {
	return n != nil && !n.IsLeaf && !n.Disabled && !n.Placeholder
}

// Store owns the canonical set of nodes. Pure data plus mutation API: no
// I/O, no event emission. Callers re-derive rows after mutating.
//
// Operating on an unknown id is a logged no-op, never an error: async loads
// may resolve after their node was discarded, and the stale completion must
// not take the engine down.
type Store struct {
	nodes map[NodeID]*Node
	roots []NodeID
}

// NewStore returns an empty node store.
func NewStore() *Store {
	return &Store{nodes: make(map[NodeID]*Node)}
}

// InitRoots replaces the entire tree with the given root nodes. Any previous
// nodes are dropped. Roots get level 0 and no parent.
func (s *Store) InitRoots(roots []*Node) {
	s.nodes = make(map[NodeID]*Node, len(roots))
	s.roots = s.roots[:0]
	for _, n := range roots {
		if n == nil || n.ID == "" {
			continue
		}
		if _, dup := s.nodes[n.ID]; dup {
			debug.Log("store: duplicate root id %q ignored", n.ID)
			continue
		}
		n.ParentID = ""
		n.Level = 0
		s.nodes[n.ID] = n
		s.roots = append(s.roots, n.ID)
	}
}

// SetChildrenLoaded inserts children under parentID, marks the parent as
// loaded, and clears its loading/error flags. Children are appended in the
// given order; duplicates of already-stored ids are skipped. A repeated push
// for an already-loaded parent replaces the whole previous subtree; the
// descendants that did not come back are removed from the store and returned
// so the caller can scrub their derived state.
func (s *Store) SetChildrenLoaded(parentID NodeID, children []*Node) []NodeID {
	parent, ok := s.nodes[parentID]
	if !ok {
		debug.Log("store: SetChildrenLoaded for unknown node %q (stale completion?)", parentID)
		return nil
	}

	var stale []NodeID
	var drop func(ids []NodeID)
	drop = func(ids []NodeID) {
		for _, cid := range ids {
			c, ok := s.nodes[cid]
			if !ok {
				continue
			}
			drop(c.ChildrenIDs)
			delete(s.nodes, cid)
			stale = append(stale, cid)
		}
	}
	drop(parent.ChildrenIDs)
	parent.ChildrenIDs = parent.ChildrenIDs[:0]

	inserted := make(map[NodeID]bool, len(children))
	for _, c := range children {
		if c == nil || c.ID == "" {
			continue
		}
		if existing, dup := s.nodes[c.ID]; dup && existing.ParentID != parentID {
			debug.Log("store: child id %q already stored under %q, skipping", c.ID, existing.ParentID)
			continue
		}
		c.ParentID = parentID
		c.Level = parent.Level + 1
		s.nodes[c.ID] = c
		parent.ChildrenIDs = append(parent.ChildrenIDs, c.ID)
		inserted[c.ID] = true
	}
	parent.ChildrenLoaded = true
	parent.Loading = false
	parent.Err = nil

	removed := stale[:0]
	for _, id := range stale {
		if !inserted[id] {
			removed = append(removed, id)
		}
	}
	return removed
}

// SetLoading sets the loading gate on a node. Unknown ids are ignored.
func (s *Store) SetLoading(id NodeID, loading bool) {
	if n, ok := s.nodes[id]; ok {
		n.Loading = loading
	} else {
		debug.Log("store: SetLoading for unknown node %q", id)
	}
}

// SetError records a load failure on a node and clears the loading gate.
// Passing nil clears the error. Unknown ids are ignored.
func (s *Store) SetError(id NodeID, err error) {
	n, ok := s.nodes[id]
	if !ok {
		debug.Log("store: SetError for unknown node %q", id)
		return
	}
	n.Err = err
	n.Loading = false
}

// Node returns the stored node for id, or nil.
func (s *Store) Node(id NodeID) *Node {
	return s.nodes[id]
}

// Children returns the stored child nodes of id in display order. Entries
// whose id does not resolve (should not happen) are skipped.
func (s *Store) Children(id NodeID) []*Node {
	n, ok := s.nodes[id]
	if !ok {
		return nil
	}
	out := make([]*Node, 0, len(n.ChildrenIDs))
	for _, cid := range n.ChildrenIDs {
		if c, ok := s.nodes[cid]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Roots returns the root ids in display order.
func (s *Store) Roots() []NodeID {
	return s.roots
}

// Len returns the total number of stored nodes, placeholders included.
func (s *Store) Len() int {
	return len(s.nodes)
}

// Contains reports whether id is stored.
func (s *Store) Contains(id NodeID) bool {
	_, ok := s.nodes[id]
	return ok
}

// DiscardChildren removes the entire loaded subtree under id from the store
// and marks id as not loaded, so the next expansion refetches. The node
// itself stays. Returns the removed ids (used by the engine to scrub
// expansion/selection/page state).
func (s *Store) DiscardChildren(id NodeID) []NodeID {
	n, ok := s.nodes[id]
	if !ok {
		debug.Log("store: DiscardChildren for unknown node %q", id)
		return nil
	}
	var removed []NodeID
	var drop func(ids []NodeID)
	drop = func(ids []NodeID) {
		for _, cid := range ids {
			c, ok := s.nodes[cid]
			if !ok {
				continue
			}
			drop(c.ChildrenIDs)
			delete(s.nodes, cid)
			removed = append(removed, cid)
		}
	}
	drop(n.ChildrenIDs)
	n.ChildrenIDs = nil
	n.ChildrenLoaded = false
	n.Loading = false
	n.Err = nil
	return removed
}

// ReplaceSlot swaps the placeholder at the parent's given child position for
// a real node. The placeholder entry is removed from the store. No-op when
// the position is out of range or not a placeholder.
func (s *Store) ReplaceSlot(parentID NodeID, position int, real *Node) {
	parent, ok := s.nodes[parentID]
	if !ok || real == nil || real.ID == "" {
		return
	}
	if position < 0 || position >= len(parent.ChildrenIDs) {
		debug.Log("store: ReplaceSlot position %d out of range for %q", position, parentID)
		return
	}
	oldID := parent.ChildrenIDs[position]
	old, ok := s.nodes[oldID]
	if !ok || !old.Placeholder {
		debug.Log("store: ReplaceSlot target %q is not a placeholder", oldID)
		return
	}
	delete(s.nodes, oldID)
	real.ParentID = parentID
	real.Level = parent.Level + 1
	s.nodes[real.ID] = real
	parent.ChildrenIDs[position] = real.ID
}

// placeholderID builds the synthetic id for an unloaded paged slot.
func placeholderID(parentID NodeID, index int) NodeID {
	return NodeID(fmt.Sprintf("%s\x00ph:%d", parentID, index))
}
