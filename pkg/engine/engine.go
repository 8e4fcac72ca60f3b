package engine

import (
	"github.com/vanderheijden86/treeline/pkg/debug"
)

// Config holds the engine's behavioral switches. Zero value means: no
// selection, keep hidden selections, show parents of matches, keep
// placeholders visible, no auto-expand.
type Config struct {
	SelectionMode   SelectionMode
	SelectionPolicy SelectionPolicy

	// ShowParentsOfMatches keeps ancestors of a filter match visible so the
	// match is reachable in the tree. Default true (see NewEngine).
	ShowParentsOfMatches bool
	// KeepPlaceholdersVisible keeps paged placeholder rows visible under an
	// active filter so virtualization geometry is stable. Default true.
	KeepPlaceholdersVisible bool
	// AutoExpandMatches expands the ancestor path of every direct match when
	// a filter is applied. This mutates the expansion set as a side effect
	// of filtering; off by default because it is surprising.
	AutoExpandMatches bool
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		SelectionMode:           SelectionMulti,
		SelectionPolicy:         PolicyKeep,
		ShowParentsOfMatches:    true,
		KeepPlaceholdersVisible: true,
	}
}

// ErrorFunc receives every failure the engine surfaces. Called at most once
// per failure, synchronously, from inside the mutating operation.
type ErrorFunc func(EngineError)

// Engine composes the node store, selection coordinator, pagination manager,
// filter engine and row projector behind a single mutation surface. All
// operations are synchronous and must run on one goroutine (cooperative
// model); async adapter loads re-enter through SetChildrenLoaded /
// SetPageLoaded / SetNodeError completion calls.
//
// After every mutating operation the visible row projection is recomputed
// once and subscribers are notified once. Batch-y operations (a whole page
// arriving) therefore cost one recompute, not one per item.
type Engine struct {
	adapter Adapter
	cfg     Config

	store    *Store
	expanded map[NodeID]bool
	sel      *selectionState
	pages    map[NodeID]*PageState
	filter   *filterState

	// staleLoads marks nodes whose in-flight load was invalidated by a
	// discard; the next completion for such a node is dropped silently.
	staleLoads map[NodeID]bool

	rows    []RowViewModel
	subs    map[int]func()
	nextSub int
	onError ErrorFunc
}

// NewEngine builds an engine over the given adapter. The adapter's required
// capabilities are checked here; a broken adapter is a programming error
// and panics rather than limping along.
func NewEngine(adapter Adapter, cfg Config, onError ErrorFunc) *Engine {
	if err := adapter.Validate(); err != nil {
		panic(err)
	}
	if onError == nil {
		onError = func(EngineError) {}
	}
	return &Engine{
		adapter:    adapter,
		cfg:        cfg,
		store:      NewStore(),
		expanded:   make(map[NodeID]bool),
		sel:        newSelectionState(cfg.SelectionMode),
		pages:      make(map[NodeID]*PageState),
		staleLoads: make(map[NodeID]bool),
		subs:       make(map[int]func()),
		onError:    onError,
	}
}

// Subscribe registers fn to run after every recompute and returns an id for
// Unsubscribe. The first notification happens on the next mutation.
func (e *Engine) Subscribe(fn func()) int {
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	return id
}

// Unsubscribe removes a subscriber. Unknown ids are ignored.
func (e *Engine) Unsubscribe(id int) {
	delete(e.subs, id)
}

// apply is the single recompute entry point: every mutating operation funnels
// through it so subscribers observe exactly one notification per operation.
func (e *Engine) apply(mutate func()) {
	mutate()
	e.refilter()
	e.rows = e.project()
	for _, fn := range e.subs {
		fn()
	}
}

// nodeFromPayload maps one adapter payload to a fresh node.
func (e *Engine) nodeFromPayload(payload any) *Node {
	return &Node{
		ID:      NodeID(e.adapter.GetID(payload)),
		Payload: payload,
		IsLeaf:  e.adapter.leaf(payload),
	}
}

// InitRoots replaces the entire tree with the given root payloads, clearing
// expansion, selection, pagination and filter visibility state.
func (e *Engine) InitRoots(payloads []any) {
	e.apply(func() {
		roots := make([]*Node, 0, len(payloads))
		for _, p := range payloads {
			roots = append(roots, e.nodeFromPayload(p))
		}
		e.store.InitRoots(roots)
		e.expanded = make(map[NodeID]bool)
		e.sel.reset()
		e.pages = make(map[NodeID]*PageState)
		e.staleLoads = make(map[NodeID]bool)
	})
}

// RootLoadFailed surfaces a root-load failure. The tree is left as-is
// (usually empty); recovery is re-invoking the root load.
func (e *Engine) RootLoadFailed(err error) {
	e.onError(EngineError{Scope: ScopeRoot, PageIndex: -1, Reason: ReasonLoadFailed, Err: err})
}

// Node returns the stored node for id, or nil.
func (e *Engine) Node(id NodeID) *Node {
	return e.store.Node(id)
}

// Store exposes read access to the node store for tests and consumers that
// walk structure directly. Mutation still goes through engine operations.
func (e *Engine) Store() *Store {
	return e.store
}

// IsExpanded reports expansion-set membership.
func (e *Engine) IsExpanded(id NodeID) bool {
	return e.expanded[id]
}

// RootCount returns the number of root nodes.
func (e *Engine) RootCount() int {
	return len(e.store.Roots())
}

// NodeCount returns the number of stored nodes, placeholders included.
func (e *Engine) NodeCount() int {
	return e.store.Len()
}

// VisibleCount returns the current visible row count.
func (e *Engine) VisibleCount() int {
	return len(e.rows)
}

// SetChildrenLoaded delivers an adapter load result for parentID. This is
// the completion half of ToggleExpand's "caller must load" signal, and also
// the way synchronous sources push children.
//
// Stale completions (the node was discarded, or a re-init replaced the
// tree) are dropped silently (logged under TREELINE_DEBUG).
func (e *Engine) SetChildrenLoaded(parentID NodeID, res LoadResult) {
	parent := e.store.Node(parentID)
	if parent == nil {
		debug.Log("engine: load completion for unknown node %q dropped", parentID)
		return
	}
	if e.staleLoads[parentID] {
		debug.Log("engine: stale load completion for %q dropped", parentID)
		delete(e.staleLoads, parentID)
		return
	}
	e.apply(func() {
		switch res.Kind {
		case LoadPage:
			cfg := e.adapter.pagination(parent.Payload)
			if !cfg.Enabled || cfg.PageSize <= 0 {
				debug.Log("engine: page result for non-paginated node %q, treating as items", parentID)
				e.loadItems(parent, res.Payloads)
				return
			}
			ps, ok := e.pages[parentID]
			if !ok {
				ps = newPageState(cfg, res.TotalCount)
				e.pages[parentID] = ps
				e.materializeSlots(parent, ps, res)
			} else {
				e.applyPage(parent, ps, res)
			}
		default:
			e.loadItems(parent, res.Payloads)
		}
		e.sel.recomputeFrom(e, parentID)
	})
}

// loadItems is the plain (non-paged) insert path.
func (e *Engine) loadItems(parent *Node, payloads []any) {
	children := make([]*Node, 0, len(payloads))
	for _, p := range payloads {
		children = append(children, e.nodeFromPayload(p))
	}
	e.scrubRemoved(e.store.SetChildrenLoaded(parent.ID, children))
}

// scrubRemoved drops derived state for nodes a reload pushed out of the
// store, so nothing keeps referencing ids that no longer resolve.
func (e *Engine) scrubRemoved(removed []NodeID) {
	for _, rid := range removed {
		delete(e.expanded, rid)
		delete(e.pages, rid)
		delete(e.staleLoads, rid)
		e.sel.forget(rid)
	}
}

// SetPageLoaded delivers one page of a paginated parent. Pages may arrive in
// any order; a failed sibling page does not affect this one.
func (e *Engine) SetPageLoaded(parentID NodeID, pageIndex int, payloads []any) {
	ps, ok := e.pages[parentID]
	if !ok {
		debug.Log("engine: page %d completion for unmaterialized node %q dropped", pageIndex, parentID)
		return
	}
	parent := e.store.Node(parentID)
	if parent == nil {
		return
	}
	e.apply(func() {
		e.applyPage(parent, ps, Page(payloads, ps.TotalCount, pageIndex))
		e.sel.recomputeFrom(e, parentID)
	})
}

// SetPageError records a failed page fetch. The page becomes fetchable again
// on the next EnsureRangeLoaded; already-loaded pages are untouched.
func (e *Engine) SetPageError(parentID NodeID, pageIndex int, err error) {
	if ps, ok := e.pages[parentID]; ok {
		ps.markFailed(pageIndex)
	}
	e.onError(EngineError{
		Scope:     ScopeChildren,
		NodeID:    parentID,
		PageIndex: pageIndex,
		Reason:    ReasonLoadFailed,
		Err:       err,
	})
}

// SetNodeError records a children-load failure on id. The node enters the
// error state (retryable via ToggleExpand); siblings are unaffected.
func (e *Engine) SetNodeError(id NodeID, err error) {
	if e.store.Node(id) == nil {
		debug.Log("engine: error completion for unknown node %q dropped", id)
		return
	}
	if e.staleLoads[id] {
		debug.Log("engine: stale error completion for %q dropped", id)
		delete(e.staleLoads, id)
		return
	}
	e.apply(func() {
		e.store.SetError(id, err)
		delete(e.expanded, id)
	})
	e.onError(EngineError{Scope: ScopeChildren, NodeID: id, PageIndex: -1, Reason: ReasonLoadFailed, Err: err})
}

// ResetSubtree discards the loaded subtree under id so the next expansion
// refetches from the adapter. This is the sanctioned recovery path when a
// paginated backing source changed shape. Selection, expansion and page
// state for the discarded nodes are scrubbed.
func (e *Engine) ResetSubtree(id NodeID) {
	if e.store.Node(id) == nil {
		debug.Log("engine: ResetSubtree for unknown node %q", id)
		return
	}
	e.apply(func() {
		if n := e.store.Node(id); n != nil && n.Loading {
			e.staleLoads[id] = true
		}
		removed := e.store.DiscardChildren(id)
		for _, rid := range removed {
			delete(e.expanded, rid)
			delete(e.pages, rid)
			e.sel.forget(rid)
		}
		delete(e.pages, id)
		delete(e.expanded, id)
		e.sel.recomputeFrom(e, id)
	})
}
