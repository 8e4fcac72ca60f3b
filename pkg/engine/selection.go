package engine

// SelectionMode controls how SelectToggle behaves.
type SelectionMode int

const (
	// SelectionNone disables selection; all operations are no-ops.
	SelectionNone SelectionMode = iota
	// SelectionSingle keeps at most one node selected.
	SelectionSingle
	// SelectionMulti is plain set membership, no propagation.
	SelectionMulti
	// SelectionHierarchical is multi-select where toggling a node applies to
	// all currently loaded descendants and ancestor state is derived:
	// selected iff all loaded children are selected, indeterminate iff some
	// but not all loaded descendants are selected.
	SelectionHierarchical
)

// SelectionPolicy controls what filtering does to hidden selections.
type SelectionPolicy int

const (
	// PolicyKeep leaves hidden selections intact, so clearing the filter
	// restores the prior selection.
	PolicyKeep SelectionPolicy = iota
	// PolicyClearHidden removes selection from nodes that become
	// non-visible when a filter is applied.
	PolicyClearHidden
)

// selectionState is the engine's selection coordinator. Placeholders are
// invisible to it entirely: they are never selected and never counted in
// ancestor derivation.
type selectionState struct {
	mode          SelectionMode
	selected      map[NodeID]bool
	indeterminate map[NodeID]bool
}

func newSelectionState(mode SelectionMode) *selectionState {
	return &selectionState{
		mode:          mode,
		selected:      make(map[NodeID]bool),
		indeterminate: make(map[NodeID]bool),
	}
}

func (s *selectionState) reset() {
	s.selected = make(map[NodeID]bool)
	s.indeterminate = make(map[NodeID]bool)
}

func (s *selectionState) forget(id NodeID) {
	delete(s.selected, id)
	delete(s.indeterminate, id)
}

// SelectToggle flips selection membership of id according to the configured
// mode. In hierarchical mode the change cascades to loaded descendants and
// every ancestor's selected/indeterminate status is re-derived up to the
// root. No load is ever triggered by selection: unloaded subtrees simply do
// not participate.
func (e *Engine) SelectToggle(id NodeID) {
	if e.sel.mode == SelectionNone {
		return
	}
	n := e.store.Node(id)
	if n == nil || n.Placeholder || n.Disabled {
		return
	}
	e.apply(func() {
		switch e.sel.mode {
		case SelectionSingle:
			was := e.sel.selected[id]
			e.sel.reset()
			if !was {
				e.sel.selected[id] = true
			}
		case SelectionMulti:
			if e.sel.selected[id] {
				delete(e.sel.selected, id)
			} else {
				e.sel.selected[id] = true
			}
		case SelectionHierarchical:
			target := !e.sel.selected[id]
			e.setSubtreeSelected(id, target)
			e.sel.recomputeAncestors(e, id)
		}
	})
}

// IsSelected reports selection membership.
func (e *Engine) IsSelected(id NodeID) bool {
	return e.sel.selected[id]
}

// IsIndeterminate reports whether id is an ancestor of a strict, non-empty
// subset of selected loaded descendants (hierarchical mode only).
func (e *Engine) IsIndeterminate(id NodeID) bool {
	return e.sel.indeterminate[id]
}

// SelectedIDs returns the selected ids in visible-row order first, then any
// hidden selections in unspecified order.
func (e *Engine) SelectedIDs() []NodeID {
	out := make([]NodeID, 0, len(e.sel.selected))
	seen := make(map[NodeID]bool, len(e.sel.selected))
	for _, row := range e.rows {
		if e.sel.selected[row.ID] {
			out = append(out, row.ID)
			seen[row.ID] = true
		}
	}
	for id := range e.sel.selected {
		if !seen[id] {
			out = append(out, id)
		}
	}
	return out
}

// ClearSelection empties the selection and indeterminate sets.
func (e *Engine) ClearSelection() {
	if len(e.sel.selected) == 0 && len(e.sel.indeterminate) == 0 {
		return
	}
	e.apply(func() {
		e.sel.reset()
	})
}

// setSubtreeSelected applies a selection value to id and all its loaded,
// non-placeholder descendants.
func (e *Engine) setSubtreeSelected(id NodeID, selected bool) {
	n := e.store.Node(id)
	if n == nil || n.Placeholder {
		return
	}
	if selected {
		e.sel.selected[id] = true
	} else {
		delete(e.sel.selected, id)
	}
	delete(e.sel.indeterminate, id)
	for _, cid := range n.ChildrenIDs {
		e.setSubtreeSelected(cid, selected)
	}
}

// recomputeFrom re-derives id itself from its loaded children, then every
// ancestor up to the root. Load completions use this so a parent selected
// before its lazy load stays consistent with the children that just arrived
// (selected iff all loaded children are selected).
func (s *selectionState) recomputeFrom(e *Engine, id NodeID) {
	if s.mode != SelectionHierarchical {
		return
	}
	n := e.store.Node(id)
	if n == nil {
		return
	}
	if n.ChildrenLoaded {
		s.deriveFromChildren(e, n)
	}
	s.recomputeAncestors(e, id)
}

// recomputeAncestors re-derives selected/indeterminate for every ancestor of
// id up to the root. In non-hierarchical modes this is a no-op.
func (s *selectionState) recomputeAncestors(e *Engine, id NodeID) {
	if s.mode != SelectionHierarchical {
		return
	}
	n := e.store.Node(id)
	if n == nil {
		return
	}
	for cur := n.ParentID; cur != ""; {
		anc := e.store.Node(cur)
		if anc == nil {
			return
		}
		s.deriveFromChildren(e, anc)
		cur = anc.ParentID
	}
}

// deriveFromChildren computes one node's state from its loaded children:
// selected iff all are selected, indeterminate iff the loaded subtree holds
// some but not all selected, else unselected. Placeholders do not count.
func (s *selectionState) deriveFromChildren(e *Engine, n *Node) {
	total, selected := 0, 0
	anySelected := false
	for _, cid := range n.ChildrenIDs {
		c := e.store.Node(cid)
		if c == nil || c.Placeholder {
			continue
		}
		total++
		if s.selected[cid] {
			selected++
		}
		if s.selected[cid] || s.indeterminate[cid] {
			anySelected = true
		}
	}
	if total == 0 {
		// Leaf-like after discard: keep explicit membership, nothing derived.
		delete(s.indeterminate, n.ID)
		return
	}
	switch {
	case selected == total:
		s.selected[n.ID] = true
		delete(s.indeterminate, n.ID)
	case anySelected:
		delete(s.selected, n.ID)
		s.indeterminate[n.ID] = true
	default:
		delete(s.selected, n.ID)
		delete(s.indeterminate, n.ID)
	}
}

// clearHiddenSelection drops selection from every node outside the visible
// set. Applied when a filter activates under PolicyClearHidden.
func (e *Engine) clearHiddenSelection() {
	if e.filter == nil {
		return
	}
	for id := range e.sel.selected {
		if !e.filter.visible[id] {
			e.sel.forget(id)
		}
	}
	for id := range e.sel.indeterminate {
		if !e.filter.visible[id] {
			delete(e.sel.indeterminate, id)
		}
	}
}
