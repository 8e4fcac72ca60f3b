package engine

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"
)

// randomTree loads a randomly shaped tree (depth <= 3, fanout <= 4) into a
// fresh engine and returns the engine plus all branch ids.
func randomTree(t *rapid.T, cfg Config) (*Engine, []NodeID) {
	eng := NewEngine(testAdapter(), cfg, nil)

	var branches []NodeID
	nextID := 0
	newID := func() string {
		nextID++
		return fmt.Sprintf("n%d", nextID)
	}

	var grow func(parent NodeID, depth int)
	grow = func(parent NodeID, depth int) {
		if depth >= 3 {
			return
		}
		count := rapid.IntRange(0, 4).Draw(t, "fanout")
		payloads := make([]any, 0, count)
		var childBranches []NodeID
		for i := 0; i < count; i++ {
			id := newID()
			if rapid.Bool().Draw(t, "isLeaf") {
				payloads = append(payloads, leaf(id, "leaf "+id))
			} else {
				payloads = append(payloads, branch(id, "branch "+id))
				childBranches = append(childBranches, NodeID(id))
			}
		}
		if parent != "" {
			eng.ToggleExpand(parent, false)
			eng.SetChildrenLoaded(parent, Items(payloads))
		} else {
			eng.InitRoots(payloads)
		}
		for _, b := range childBranches {
			branches = append(branches, b)
			grow(b, depth+1)
		}
	}
	grow("", 0)
	return eng, branches
}

// TestTreeInvariants checks, over random trees, that level(child) equals
// level(parent)+1 and every id in ChildrenIDs resolves to a stored node.
func TestTreeInvariants(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		eng, _ := randomTree(rt, DefaultConfig())

		var check func(ids []NodeID)
		check = func(ids []NodeID) {
			for _, id := range ids {
				n := eng.Store().Node(id)
				if n == nil {
					rt.Fatalf("child id %q does not resolve", id)
				}
				for _, cid := range n.ChildrenIDs {
					c := eng.Store().Node(cid)
					if c == nil {
						rt.Fatalf("child id %q of %q does not resolve", cid, id)
					}
					if c.Level != n.Level+1 {
						rt.Fatalf("level(%q)=%d, parent %q has level %d", cid, c.Level, id, n.Level)
					}
				}
				check(n.ChildrenIDs)
			}
		}
		check(eng.Store().Roots())
	})
}

// TestToggleTwiceRestoresRowCount checks that a double toggle on any
// synchronously-loaded branch restores the visible-row count.
func TestToggleTwiceRestoresRowCount(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		eng, branches := randomTree(rt, DefaultConfig())
		if len(branches) == 0 {
			return
		}
		target := rapid.SampledFrom(branches).Draw(rt, "target")

		before := eng.VisibleCount()
		eng.ToggleExpand(target, false)
		eng.ToggleExpand(target, false)
		if got := eng.VisibleCount(); got != before {
			rt.Fatalf("row count %d -> %d after double toggle of %q", before, got, target)
		}
	})
}

// TestHierarchicalDerivationConsistency checks that after arbitrary select
// toggles, every branch's derived state matches its loaded children:
// selected iff all selected, indeterminate iff some descendant participates.
func TestHierarchicalDerivationConsistency(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		eng, _ := randomTree(rt, hierConfig())

		var all []NodeID
		var collect func(ids []NodeID)
		collect = func(ids []NodeID) {
			for _, id := range ids {
				all = append(all, id)
				collect(eng.Store().Node(id).ChildrenIDs)
			}
		}
		collect(eng.Store().Roots())
		if len(all) == 0 {
			return
		}

		toggles := rapid.IntRange(1, 8).Draw(rt, "toggles")
		for i := 0; i < toggles; i++ {
			eng.SelectToggle(rapid.SampledFrom(all).Draw(rt, "target"))
		}

		for _, id := range all {
			n := eng.Store().Node(id)
			if len(n.ChildrenIDs) == 0 {
				continue
			}
			total, selected, any := 0, 0, false
			for _, cid := range n.ChildrenIDs {
				total++
				if eng.IsSelected(cid) {
					selected++
				}
				if eng.IsSelected(cid) || eng.IsIndeterminate(cid) {
					any = true
				}
			}
			switch {
			case selected == total:
				if !eng.IsSelected(id) {
					rt.Fatalf("%q: all %d children selected but parent is not", id, total)
				}
			case any:
				if !eng.IsIndeterminate(id) {
					rt.Fatalf("%q: partial selection but parent not indeterminate", id)
				}
			default:
				if eng.IsSelected(id) || eng.IsIndeterminate(id) {
					rt.Fatalf("%q: no selected children but parent derived %v/%v",
						id, eng.IsSelected(id), eng.IsIndeterminate(id))
				}
			}
		}
	})
}

// TestEnsureRangeLoadedNeverDuplicates checks that overlapping range
// requests never hand out the same page twice while it is outstanding.
func TestEnsureRangeLoadedNeverDuplicates(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		pageSize := rapid.IntRange(1, 10).Draw(rt, "pageSize")
		total := rapid.IntRange(1, 100).Draw(rt, "total")

		eng := NewEngine(testAdapter(), DefaultConfig(), nil)
		eng.InitRoots([]any{pagedItem("p", "Paged", pageSize)})
		eng.ToggleExpand("p", true)

		first := make([]any, 0, pageSize)
		for i := 0; i < pageSize && i < total; i++ {
			id := fmt.Sprintf("s%d", i)
			first = append(first, leaf(id, id))
		}
		eng.SetChildrenLoaded("p", Page(first, total, 0))

		handedOut := map[int]bool{0: true} // first page arrived with materialization
		requests := rapid.IntRange(1, 12).Draw(rt, "requests")
		for i := 0; i < requests; i++ {
			start := rapid.IntRange(0, total-1).Draw(rt, "start")
			end := rapid.IntRange(start, total-1).Draw(rt, "end")
			for _, page := range eng.EnsureRangeLoaded("p", start, end) {
				if handedOut[page] {
					rt.Fatalf("page %d handed out twice", page)
				}
				handedOut[page] = true
			}
		}
	})
}
