// Package testutil generates deterministic tree fixtures for tests. The
// same seed always yields the same tree, so failures reproduce.
package testutil

import (
	"fmt"
	"math/rand"

	"github.com/vanderheijden86/treeline/pkg/engine"
)

// FixtureNode is a fully materialized test tree node.
type FixtureNode struct {
	ID       string
	Label    string
	Leaf     bool
	Children []*FixtureNode
}

// GenerateOptions shape a generated tree.
type GenerateOptions struct {
	Seed     int64
	Roots    int // default 3
	MaxDepth int // default 3
	MaxKids  int // default 4, per branch
}

func (o GenerateOptions) withDefaults() GenerateOptions {
	if o.Roots <= 0 {
		o.Roots = 3
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = 3
	}
	if o.MaxKids <= 0 {
		o.MaxKids = 4
	}
	return o
}

// Generate builds a deterministic tree from the options' seed.
func Generate(opts GenerateOptions) []*FixtureNode {
	opts = opts.withDefaults()
	rng := rand.New(rand.NewSource(opts.Seed))
	next := 0
	roots := make([]*FixtureNode, opts.Roots)
	for i := range roots {
		roots[i] = generateNode(rng, opts, 0, &next)
		roots[i].Leaf = false
	}
	return roots
}

func generateNode(rng *rand.Rand, opts GenerateOptions, depth int, next *int) *FixtureNode {
	id := fmt.Sprintf("n%03d", *next)
	*next++
	n := &FixtureNode{
		ID:    id,
		Label: "Node " + id,
	}
	if depth >= opts.MaxDepth || rng.Intn(3) == 0 {
		n.Leaf = true
		return n
	}
	kids := 1 + rng.Intn(opts.MaxKids)
	for i := 0; i < kids; i++ {
		n.Children = append(n.Children, generateNode(rng, opts, depth+1, next))
	}
	return n
}

// Walk visits every node in the fixture, parents before children.
func Walk(roots []*FixtureNode, visit func(n *FixtureNode, parent *FixtureNode)) {
	var rec func(n, parent *FixtureNode)
	rec = func(n, parent *FixtureNode) {
		visit(n, parent)
		for _, c := range n.Children {
			rec(c, n)
		}
	}
	for _, r := range roots {
		rec(r, nil)
	}
}

// Count returns the total number of nodes in the fixture.
func Count(roots []*FixtureNode) int {
	total := 0
	Walk(roots, func(*FixtureNode, *FixtureNode) { total++ })
	return total
}

// Adapter returns an engine adapter over *FixtureNode payloads.
func Adapter() engine.Adapter {
	return engine.Adapter{
		GetID:    func(p any) string { return p.(*FixtureNode).ID },
		GetLabel: func(p any) string { return p.(*FixtureNode).Label },
		IsLeaf:   func(p any) bool { return p.(*FixtureNode).Leaf },
	}
}

// Payloads converts fixture nodes to the []any the engine consumes.
func Payloads(nodes []*FixtureNode) []any {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		out[i] = n
	}
	return out
}

// NewEngine builds an engine preloaded with the fixture: roots initialized,
// every branch's children loaded eagerly, nothing expanded.
func NewEngine(roots []*FixtureNode, cfg engine.Config) *engine.Engine {
	eng := engine.NewEngine(Adapter(), cfg, nil)
	eng.InitRoots(Payloads(roots))
	Walk(roots, func(n, _ *FixtureNode) {
		if !n.Leaf {
			eng.SetChildrenLoaded(engine.NodeID(n.ID), engine.Items(Payloads(n.Children)))
		}
	})
	return eng
}
