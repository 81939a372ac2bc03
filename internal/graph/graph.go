// Package graph holds the concept prerequisite DAG and the queries the
// decision engine runs against it: prerequisite listing, transitive ancestor
// closure, ordinal succession and the advisory soft gate.
package graph

import (
	"fmt"

	"github.com/mahavihara/tutor/internal/catalog"
)

// MasteryThreshold is the score at which a concept counts as mastered. The
// soft gate flags prerequisites below it.
const MasteryThreshold = 0.6

// Graph is the immutable concept DAG. Safe for unsynchronized concurrent
// reads; never mutated after New.
type Graph struct {
	order   []string // concept ids sorted by ordinal
	byID    map[string]catalog.Concept
	prereqs map[string][]string // direct prerequisites, declaration order
}

// New builds the graph from a loaded catalog. The catalog has already been
// integrity-checked, so New only wires the adjacency.
func New(cat *catalog.Catalog) *Graph {
	g := &Graph{
		byID:    make(map[string]catalog.Concept, len(cat.Concepts)),
		prereqs: make(map[string][]string, len(cat.Concepts)),
	}
	for _, con := range cat.Concepts {
		g.order = append(g.order, con.ID)
		g.byID[con.ID] = con
		g.prereqs[con.ID] = append([]string(nil), con.Prerequisites...)
	}
	return g
}

// Concept returns concept data by id.
func (g *Graph) Concept(id string) (catalog.Concept, bool) {
	con, ok := g.byID[id]
	return con, ok
}

// Concepts returns all concept ids in ordinal (learning) order.
func (g *Graph) Concepts() []string {
	return append([]string(nil), g.order...)
}

// First returns the root concept id, the entry point of the learning path.
func (g *Graph) First() string {
	if len(g.order) == 0 {
		return ""
	}
	return g.order[0]
}

// Prerequisites returns the direct prerequisites of a concept in declaration
// order.
func (g *Graph) Prerequisites(conceptID string) []string {
	return append([]string(nil), g.prereqs[conceptID]...)
}

// AllAncestors returns the transitive prerequisite closure of a concept.
// Iterative DFS; the DAG is acyclic by construction so traversal terminates.
func (g *Graph) AllAncestors(conceptID string) map[string]bool {
	seen := make(map[string]bool)
	stack := append([]string(nil), g.prereqs[conceptID]...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		stack = append(stack, g.prereqs[id]...)
	}
	return seen
}

// Descendants returns every concept that transitively depends on conceptID.
func (g *Graph) Descendants(conceptID string) map[string]bool {
	out := make(map[string]bool)
	for _, id := range g.order {
		if id == conceptID {
			continue
		}
		if g.AllAncestors(id)[conceptID] {
			out[id] = true
		}
	}
	return out
}

// NextConcept returns the ordinal successor of a concept, or "" when the
// concept is the last in the sequence.
func (g *Graph) NextConcept(conceptID string) string {
	for i, id := range g.order {
		if id == conceptID && i+1 < len(g.order) {
			return g.order[i+1]
		}
	}
	return ""
}

// HopsBetween returns the minimum number of prerequisite edges from `from`
// back to `to`, or -1 when `to` is not an ancestor of `from`. Used by the
// root-cause tracer to prefer nearby gaps.
func (g *Graph) HopsBetween(from, to string) int {
	if from == to {
		return 0
	}
	// BFS backward over prerequisite edges.
	dist := map[string]int{from: 0}
	queue := []string{from}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, pre := range g.prereqs[id] {
			if _, ok := dist[pre]; ok {
				continue
			}
			dist[pre] = dist[id] + 1
			if pre == to {
				return dist[pre]
			}
			queue = append(queue, pre)
		}
	}
	return -1
}

// IsGated reports the advisory soft gate for a target concept: allowed is
// always true (students may always proceed), and missing lists every
// prerequisite whose mastery is below the threshold, for UI warning only.
func (g *Graph) IsGated(target string, mastery map[string]float64, defaultMastery float64) (allowed bool, missing []string) {
	for pre := range g.AllAncestors(target) {
		score, ok := mastery[pre]
		if !ok {
			score = defaultMastery
		}
		if score < MasteryThreshold {
			missing = append(missing, pre)
		}
	}
	// Deterministic order for callers and tests.
	missing = g.inOrdinalOrder(missing)
	return true, missing
}

// inOrdinalOrder filters g.order down to the given set, preserving ordinal
// order.
func (g *Graph) inOrdinalOrder(ids []string) []string {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []string
	for _, id := range g.order {
		if want[id] {
			out = append(out, id)
		}
	}
	return out
}

// Validate confirms every id in ids names a known concept.
func (g *Graph) Validate(ids ...string) error {
	for _, id := range ids {
		if _, ok := g.byID[id]; !ok {
			return fmt.Errorf("unknown concept %q", id)
		}
	}
	return nil
}
