package graph

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Node is one concept in the rendered graph state.
type Node struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Status string  `json:"status"` // mastered | failed | neutral
	Score  float64 `json:"score"`
}

// Edge is one prerequisite relation, pointing prerequisite -> dependent.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// State is the visualization payload for the front end.
type State struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

const weakThreshold = 0.4

var titleCaser = cases.Title(language.English)

// Render derives the graph visualization from mastery scores. Status is a
// pure function of mastery: >=0.6 mastered, <0.4 failed, else neutral.
// Output is deterministic, so repeated calls without a mastery change are
// identical.
func (g *Graph) Render(mastery map[string]float64, defaultMastery float64) State {
	state := State{
		Nodes: make([]Node, 0, len(g.order)),
	}
	for _, id := range g.order {
		score, ok := mastery[id]
		if !ok {
			score = defaultMastery
		}
		state.Nodes = append(state.Nodes, Node{
			ID:     id,
			Label:  g.label(id),
			Status: statusFor(score),
			Score:  score,
		})
		for _, pre := range g.prereqs[id] {
			state.Edges = append(state.Edges, Edge{Source: pre, Target: id})
		}
	}
	return state
}

func statusFor(score float64) string {
	switch {
	case score >= MasteryThreshold:
		return "mastered"
	case score < weakThreshold:
		return "failed"
	default:
		return "neutral"
	}
}

// label prefers the catalog display name, falling back to a title-cased
// variant of the id ("inverse_matrix" -> "Inverse Matrix").
func (g *Graph) label(id string) string {
	if con, ok := g.byID[id]; ok && con.Name != "" {
		return con.Name
	}
	return titleCaser.String(strings.ReplaceAll(id, "_", " "))
}
