package engine

// Expansion / loading state machine. Each expandable node moves
// Collapsed -> Expanding -> Expanded, drops to an error state on load
// failure (SetNodeError) and retries through another ToggleExpand. The
// node's Loading flag is the gate: while a load is in flight, further
// toggles on the same node are idempotent no-ops.

// ToggleExpand flips the expansion state of id. The returned bool is the
// "caller must load" signal: true means the engine marked the node loading
// and expanded, and the caller must now invoke the adapter loader and
// deliver the outcome via SetChildrenLoaded or SetNodeError.
//
// Leaves, disabled nodes and placeholders never toggle. A collapsed node
// whose children are already cached (or that has no async loader) expands
// directly, no round-trip.
func (e *Engine) ToggleExpand(id NodeID, hasAsyncLoader bool) bool {
	n := e.store.Node(id)
	if n == nil || !n.Expandable() {
		return false
	}
	if n.Loading {
		// A load is already in flight; the completion will land in the
		// already-recorded target state.
		return false
	}

	if e.expanded[id] {
		// Collapse. Children stay cached; ResetSubtree is the explicit
		// discard operation.
		e.apply(func() {
			delete(e.expanded, id)
		})
		return false
	}

	if !n.ChildrenLoaded && hasAsyncLoader {
		e.apply(func() {
			n.Err = nil // retry path: Error -> Expanding
			e.store.SetLoading(id, true)
			e.expanded[id] = true
		})
		return true
	}

	e.apply(func() {
		e.expanded[id] = true
		if !hasAsyncLoader {
			n.ChildrenLoaded = true
		}
	})
	return false
}

// ExpandPath expands every ancestor of id, from the root down, so the node
// is reachable in the visible rows. It only walks loaded structure: if id is
// unknown a navigation error with reason not-found is surfaced; if an
// ancestor link is broken the reason is path-resolution-failed; if an
// ancestor sits in the load-error state the path cannot open and the reason
// is path-unavailable. The target node itself is not expanded.
func (e *Engine) ExpandPath(id NodeID) {
	n := e.store.Node(id)
	if n == nil {
		e.onError(EngineError{Scope: ScopeNavigation, NodeID: id, PageIndex: -1, Reason: ReasonNotFound})
		return
	}

	var path []NodeID
	for cur := n.ParentID; cur != ""; {
		anc := e.store.Node(cur)
		if anc == nil {
			e.onError(EngineError{Scope: ScopeNavigation, NodeID: id, PageIndex: -1, Reason: ReasonPathResolutionFailed})
			return
		}
		if anc.Err != nil {
			e.onError(EngineError{Scope: ScopeNavigation, NodeID: id, PageIndex: -1, Reason: ReasonPathUnavailable, Err: anc.Err})
			return
		}
		path = append(path, cur)
		cur = anc.ParentID
	}

	e.apply(func() {
		for _, aid := range path {
			e.expanded[aid] = true
		}
	})
}

// ExpandAll expands every loaded, expandable node whose children are already
// cached. Nothing is fetched: nodes still waiting on an adapter load keep
// their state.
func (e *Engine) ExpandAll() {
	e.apply(func() {
		var walk func(ids []NodeID)
		walk = func(ids []NodeID) {
			for _, id := range ids {
				n := e.store.Node(id)
				if n == nil {
					continue
				}
				if n.Expandable() && n.ChildrenLoaded {
					e.expanded[id] = true
				}
				walk(n.ChildrenIDs)
			}
		}
		walk(e.store.Roots())
	})
}

// CollapseAll clears the expansion set. Loaded children stay cached.
func (e *Engine) CollapseAll() {
	e.apply(func() {
		e.expanded = make(map[NodeID]bool)
	})
}
