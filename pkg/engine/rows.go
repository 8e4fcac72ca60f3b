package engine

// RowViewModel is the presentation-ready projection of one node for one
// frame of rendering. Adapter-derived fields (label, icon, highlights) are
// computed at projection time and only for rows that are actually emitted,
// the adapter is never asked to present an invisible node.
type RowViewModel struct {
	ID    NodeID
	Level int

	Label string
	Icon  string
	// Highlights are [start,end) byte ranges in Label for the active query.
	Highlights [][2]int

	Expanded   bool
	Expandable bool
	Loading    bool
	Err        error

	Selected      bool
	Indeterminate bool

	Placeholder      bool
	PlaceholderIndex int

	// Pinned marks rows emitted by RowsByID rather than the tree walk.
	Pinned bool

	Payload any
}

// VisibleRows returns the current ordered visible row sequence: depth-first
// pre-order over roots, descending only into expanded nodes, filtered by the
// active query's visibility. The slice is the engine's cached projection;
// callers must treat it as read-only and re-fetch after the next
// notification.
func (e *Engine) VisibleRows() []RowViewModel {
	return e.rows
}

// project rebuilds the visible row sequence. Called from apply after every
// mutation.
func (e *Engine) project() []RowViewModel {
	rows := make([]RowViewModel, 0, len(e.rows))
	var walk func(ids []NodeID)
	walk = func(ids []NodeID) {
		for _, id := range ids {
			n := e.store.Node(id)
			if n == nil {
				continue
			}
			// A filtered-out node is not emitted, but the walk still
			// descends through it: a direct match below a non-matching
			// ancestor must surface even when parents of matches are
			// not shown.
			if e.filter == nil || e.filter.visible[id] {
				rows = append(rows, e.rowFor(n, false))
			}
			if e.expanded[id] {
				walk(n.ChildrenIDs)
			}
		}
	}
	walk(e.store.Roots())
	return rows
}

// rowFor builds the view model for one node.
func (e *Engine) rowFor(n *Node, pinned bool) RowViewModel {
	row := RowViewModel{
		ID:               n.ID,
		Level:            n.Level,
		Expanded:         e.expanded[n.ID],
		Expandable:       n.Expandable(),
		Loading:          n.Loading,
		Err:              n.Err,
		Selected:         e.sel.selected[n.ID],
		Indeterminate:    e.sel.indeterminate[n.ID],
		Placeholder:      n.Placeholder,
		PlaceholderIndex: n.PlaceholderIndex,
		Pinned:           pinned,
		Payload:          n.Payload,
	}
	if n.Placeholder {
		return row
	}
	row.Label = e.adapter.GetLabel(n.Payload)
	if e.adapter.GetIcon != nil {
		row.Icon = e.adapter.GetIcon(n.Payload)
	}
	if e.filter != nil && e.adapter.HighlightRanges != nil && e.filter.direct[n.ID] {
		row.Highlights = e.adapter.HighlightRanges(n.Payload, e.filter.query)
	}
	return row
}

// RowsByID projects rows for the given ids by direct store lookup, bypassing
// expansion and filter visibility entirely. This is the pinned-row path: a
// pinned row renders whenever its backing node exists. Ids that do not
// resolve surface a navigation error and are skipped.
func (e *Engine) RowsByID(ids []NodeID) []RowViewModel {
	rows := make([]RowViewModel, 0, len(ids))
	for _, id := range ids {
		n := e.store.Node(id)
		if n == nil {
			e.onError(EngineError{Scope: ScopeNavigation, NodeID: id, PageIndex: -1, Reason: ReasonNotFound})
			continue
		}
		rows = append(rows, e.rowFor(n, true))
	}
	return rows
}
