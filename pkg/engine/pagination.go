package engine

import (
	"sort"

	"github.com/vanderheijden86/treeline/pkg/debug"
)

// PaginationConfig is the adapter's per-parent paging declaration.
type PaginationConfig struct {
	Enabled  bool
	PageSize int
	// OneBased selects one-based page indexing (some backends count pages
	// from 1). Default is zero-based.
	OneBased bool
}

// firstPage returns the index of the first page in the configured indexing.
func (c PaginationConfig) firstPage() int {
	if c.OneBased {
		return 1
	}
	return 0
}

// PageState tracks paging for one paginated parent: which pages are loaded
// or in flight, the authoritative total count, and the placeholder slots
// still waiting for data.
//
// TotalCount is immutable for the parent's lifetime once materialized. If
// the backing source shrinks mid-session the resulting slot contents are
// undefined; ResetSubtree on the parent is the sanctioned recovery path.
type PageState struct {
	PageSize   int
	TotalCount int
	OneBased   bool

	loaded   map[int]bool
	inflight map[int]bool
}

func newPageState(cfg PaginationConfig, totalCount int) *PageState {
	return &PageState{
		PageSize:   cfg.PageSize,
		TotalCount: totalCount,
		OneBased:   cfg.OneBased,
		loaded:     make(map[int]bool),
		inflight:   make(map[int]bool),
	}
}

// pageFor maps an absolute child index to its page index in the configured
// indexing.
func (p *PageState) pageFor(absIndex int) int {
	page := absIndex / p.PageSize
	if p.OneBased {
		page++
	}
	return page
}

// pageStart maps a page index back to the absolute index of its first slot.
func (p *PageState) pageStart(page int) int {
	if p.OneBased {
		page--
	}
	return page * p.PageSize
}

// Loaded reports whether the given page has arrived.
func (p *PageState) Loaded(page int) bool {
	return p.loaded[page]
}

// PagesNeeded computes the minimal set of page indices intersecting the
// absolute range [startIndex, endIndex] that are neither loaded nor in
// flight, marks them in flight, and returns them sorted. Repeated calls for
// the same range while the pages are outstanding return nothing; the
// in-flight set is the dedup gate for scroll-driven callers.
func (p *PageState) PagesNeeded(startIndex, endIndex int) []int {
	if p.PageSize <= 0 || p.TotalCount == 0 {
		return nil
	}
	if startIndex < 0 {
		startIndex = 0
	}
	if endIndex >= p.TotalCount {
		endIndex = p.TotalCount - 1
	}
	if startIndex > endIndex {
		return nil
	}
	var pages []int
	for page := p.pageFor(startIndex); page <= p.pageFor(endIndex); page++ {
		if p.loaded[page] || p.inflight[page] {
			continue
		}
		p.inflight[page] = true
		pages = append(pages, page)
	}
	sort.Ints(pages)
	return pages
}

// markLoaded records a page arrival and releases its in-flight slot.
func (p *PageState) markLoaded(page int) {
	delete(p.inflight, page)
	p.loaded[page] = true
}

// markFailed releases a page's in-flight slot without marking it loaded so a
// later scroll can retry it. Other loaded pages are untouched.
func (p *PageState) markFailed(page int) {
	delete(p.inflight, page)
}

// materializeSlots creates the parent's full child slot list: exactly
// totalCount entries, the given first page occupying its absolute indices
// and every other slot a placeholder node. Called once, when the first page
// of a paginated parent arrives.
func (e *Engine) materializeSlots(parent *Node, ps *PageState, res LoadResult) {
	children := make([]*Node, 0, ps.TotalCount)
	start := ps.pageStart(res.PageIndex)
	byIndex := make(map[int]any, len(res.Payloads))
	for i, payload := range res.Payloads {
		byIndex[start+i] = payload
	}
	for idx := 0; idx < ps.TotalCount; idx++ {
		if payload, ok := byIndex[idx]; ok {
			children = append(children, e.nodeFromPayload(payload))
			continue
		}
		children = append(children, &Node{
			ID:               placeholderID(parent.ID, idx),
			Placeholder:      true,
			PlaceholderIndex: idx,
			IsLeaf:           true,
		})
	}
	e.scrubRemoved(e.store.SetChildrenLoaded(parent.ID, children))
	ps.markLoaded(res.PageIndex)
}

// applyPage replaces the placeholders covered by a page result with real
// nodes, in place. ChildrenIDs length never changes after materialization;
// payloads beyond the materialized slot count are dropped with a debug note
// (shrunk/shifted sources are undefined behavior, see PageState).
func (e *Engine) applyPage(parent *Node, ps *PageState, res LoadResult) {
	if res.TotalCount != ps.TotalCount {
		debug.Log("engine: page %d for %q reports total %d, materialized %d; keeping slots",
			res.PageIndex, parent.ID, res.TotalCount, ps.TotalCount)
	}
	start := ps.pageStart(res.PageIndex)
	for i, payload := range res.Payloads {
		idx := start + i
		if idx >= len(parent.ChildrenIDs) {
			debug.Log("engine: page %d item %d past slot count for %q, dropped", res.PageIndex, i, parent.ID)
			break
		}
		e.store.ReplaceSlot(parent.ID, idx, e.nodeFromPayload(payload))
	}
	ps.markLoaded(res.PageIndex)
}

// EnsureRangeLoaded returns the page indices that must be fetched so the
// absolute child range [startIndex, endIndex] of parentID is backed by real
// nodes. Returned pages are marked in flight; the caller fetches each and
// delivers results via SetPageLoaded (or SetPageError on failure). Calling
// again for the same visible range before pages resolve returns nothing.
//
// Returns nil for parents that are not paginated or not yet materialized.
func (e *Engine) EnsureRangeLoaded(parentID NodeID, startIndex, endIndex int) []int {
	ps, ok := e.pages[parentID]
	if !ok {
		return nil
	}
	return ps.PagesNeeded(startIndex, endIndex)
}

// PageStateFor exposes the page state of a paginated parent for consumers
// that size scrollbars from the total count. Nil when parentID is not
// paginated.
func (e *Engine) PageStateFor(parentID NodeID) *PageState {
	return e.pages[parentID]
}
