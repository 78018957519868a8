package domain

import (
	"time"
)

type ConceptScale string

const (
	ScaleMicro     ConceptScale = "micro"
	ScaleMeso      ConceptScale = "meso"
	ScaleMacro     ConceptScale = "macro"
	ScaleUniversal ConceptScale = "universal"
)

func ValidConceptScale(s string) bool {
	switch ConceptScale(s) {
	case ScaleMicro, ScaleMeso, ScaleMacro, ScaleUniversal:
		return true
	}
	return false
}

type Concept struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Domain      string         `json:"domain"`
	Description string         `json:"description"`
	Scale       ConceptScale   `json:"scale,omitempty"`
	Era         string         `json:"era,omitempty"`
	Assumptions []string       `json:"assumptions,omitempty"`
	Keywords    []string       `json:"keywords,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Embedding   []float32      `json:"-"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ConceptWithDistance carries the raw cosine distance from the vector index.
type ConceptWithDistance struct {
	Concept
	Distance float32 `json:"distance"`
}

// ScoredConcept is a fused retrieval result. Similarity fields are in (0, 1];
// FusedScore is the reciprocal-rank-fusion score across sources.
type ScoredConcept struct {
	Concept
	VectorSimilarity float32 `json:"vector_similarity,omitempty"`
	GraphRank        int     `json:"graph_rank,omitempty"`
	FusedScore       float64 `json:"fused_score"`
	Sources          []string `json:"sources"`
}

// ConceptLineage holds ancestors and descendants of a concept along
// derivation edges, each bounded to depth 5.
type ConceptLineage struct {
	Concept     string   `json:"concept"`
	Ancestors   []string `json:"ancestors"`
	Descendants []string `json:"descendants"`
}

// ConceptRelationships describes a concept's direct graph neighborhood.
type ConceptRelationships struct {
	Concept       string   `json:"concept"`
	Related       []string `json:"related"`
	BridgeDomains []string `json:"bridge_domains"`
}

// ConceptDetail is a resolved concept together with its graph neighborhood.
// Related and BridgeDomains stay empty when no graph backend is configured.
type ConceptDetail struct {
	Concept
	Related       []string `json:"related,omitempty"`
	BridgeDomains []string `json:"bridge_domains,omitempty"`
}
