// Package search is the resource-discovery collaborator boundary. The
// decision engine consumes candidates; ranking raw web results is the
// collaborator's job, the engine only filters by the static quality table.
package search

import (
	"context"
	"sort"

	"github.com/mahavihara/tutor/internal/catalog"
)

// Candidate is one learning resource offered for a concept. Quality is
// resolved from the static source table, never trusted from the searcher.
type Candidate struct {
	Title           string `json:"title"`
	URL             string `json:"url"`
	Source          string `json:"source"`
	Difficulty      float64 `json:"difficulty"`
	DurationMinutes int    `json:"duration_minutes"`
	Timestamp       string `json:"timestamp,omitempty"`
}

// Searcher produces resource candidates for a concept at a difficulty.
// Implementations may hit external services; the curated implementation
// below never does.
type Searcher interface {
	Search(ctx context.Context, conceptID string, difficulty float64) ([]Candidate, error)
}

// Curated serves candidates from the pre-vetted resource catalog. It is the
// always-available fallback and the default in tests and development.
type Curated struct {
	cat *catalog.Catalog
}

// NewCurated builds a catalog-backed searcher.
func NewCurated(cat *catalog.Catalog) *Curated {
	return &Curated{cat: cat}
}

// Search returns the concept's curated resources sorted by source quality,
// highest first, ties by id order in the catalog.
func (c *Curated) Search(_ context.Context, conceptID string, _ float64) ([]Candidate, error) {
	resources := c.cat.ResourcesFor(conceptID)
	sort.SliceStable(resources, func(i, j int) bool {
		return c.cat.SourceQuality(resources[i].Source) > c.cat.SourceQuality(resources[j].Source)
	})

	candidates := make([]Candidate, 0, len(resources))
	for _, r := range resources {
		candidates = append(candidates, Candidate{
			Title:           r.Title,
			URL:             r.URL,
			Source:          r.Source,
			Difficulty:      r.Difficulty,
			DurationMinutes: r.DurationMinutes,
			Timestamp:       r.Timestamp,
		})
	}
	return candidates, nil
}
