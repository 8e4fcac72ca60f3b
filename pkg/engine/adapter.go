package engine

// Adapter is the contract between the engine and the embedding application.
// It is a capability bag: GetID and GetLabel are required, everything else is
// optional and checked for presence (nil) at the call site. The engine never
// inspects payload types directly; all reads go through these functions.
type Adapter struct {
	// GetID returns the unique id for a payload. Required.
	GetID func(payload any) string
	// GetLabel returns the display label for a payload. Required.
	GetLabel func(payload any) string

	// GetIcon returns an icon hint for a payload. Optional.
	GetIcon func(payload any) string
	// IsLeaf reports whether the payload can never have children. Optional;
	// when absent every node is treated as potentially expandable.
	IsLeaf func(payload any) bool
	// HasChildren reports whether the payload is known to have children.
	// Optional hint, consulted only when IsLeaf is absent.
	HasChildren func(payload any) bool

	// Matches overrides the engine's default text matching for a payload.
	// Optional.
	Matches func(payload any, q Query) bool
	// GetSearchText returns the text the default matcher compares against.
	// Optional; when absent the label is used.
	GetSearchText func(payload any) string
	// HighlightRanges returns [start,end) byte ranges in the label to
	// highlight for the active query. Optional, presentation only.
	HighlightRanges func(payload any, q Query) [][2]int

	// GetPagination declares whether children of this payload are loaded in
	// pages, and how. Optional; when absent (or Enabled is false) children
	// load as one plain list.
	GetPagination func(payload any) PaginationConfig
}

// Validate reports whether the required capabilities are present.
func (a Adapter) Validate() error {
	if a.GetID == nil {
		return ErrAdapterGetID
	}
	if a.GetLabel == nil {
		return ErrAdapterGetLabel
	}
	return nil
}

// leaf resolves the leaf hint for a payload: IsLeaf wins, then HasChildren
// inverted, else unknown (treated as expandable).
func (a Adapter) leaf(payload any) bool {
	if a.IsLeaf != nil {
		return a.IsLeaf(payload)
	}
	if a.HasChildren != nil {
		return !a.HasChildren(payload)
	}
	return false
}

func (a Adapter) searchText(payload any) string {
	if a.GetSearchText != nil {
		return a.GetSearchText(payload)
	}
	return a.GetLabel(payload)
}

func (a Adapter) pagination(payload any) PaginationConfig {
	if a.GetPagination == nil {
		return PaginationConfig{}
	}
	return a.GetPagination(payload)
}

// LoadResultKind tags a LoadResult.
type LoadResultKind int

const (
	// LoadItems is a plain, complete child list.
	LoadItems LoadResultKind = iota
	// LoadPage is one page of a paginated child list with an authoritative
	// total count.
	LoadPage
)

// LoadResult is the tagged outcome of an adapter child load. The kind is
// declared, never inferred from the shape of the data: a parent whose
// pagination config reports Enabled must deliver LoadPage results, everyone
// else delivers LoadItems.
type LoadResult struct {
	Kind       LoadResultKind
	Payloads   []any
	TotalCount int // LoadPage only
	PageIndex  int // LoadPage only, in the parent's configured indexing
}

// Items builds a plain (non-paged) load result.
func Items(payloads []any) LoadResult {
	return LoadResult{Kind: LoadItems, Payloads: payloads}
}

// Page builds a paged load result carrying the authoritative total count.
func Page(payloads []any, totalCount, pageIndex int) LoadResult {
	return LoadResult{Kind: LoadPage, Payloads: payloads, TotalCount: totalCount, PageIndex: pageIndex}
}
