package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/Harshitk-cp/polymath/internal/domain"
	"github.com/Harshitk-cp/polymath/internal/store"
	"go.uber.org/zap"
)

// Pipeline is the hybrid retrieval front: vector search over concept
// embeddings fused with graph keyword search. The graph backend is optional;
// every graph call degrades silently to vector-only behavior.
type Pipeline struct {
	concepts domain.ConceptStore
	graph    domain.GraphStore
	embedder domain.EmbeddingClient
	logger   *zap.Logger

	mu          sync.Mutex
	domainCache []string
}

func NewPipeline(concepts domain.ConceptStore, graph domain.GraphStore, embedder domain.EmbeddingClient, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		concepts: concepts,
		graph:    graph,
		embedder: embedder,
		logger:   logger,
	}
}

const (
	defaultSearchLimit = 10
	lineageMaxDepth    = 5

	// Domain distance fallbacks.
	distanceNoGraph = 0.5
	distanceNoPath  = 0.8
	pathLengthScale = 10

	// Concept novelty fallbacks.
	noveltyDirectNeighbor = 0.2
	noveltyUnknown        = 0.7
)

func (p *Pipeline) GraphAvailable() bool {
	return p.graph != nil
}

// Domains returns the distinct domain list, sorted by the store, cached
// after the first successful load.
func (p *Pipeline) Domains(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.domainCache != nil {
		return p.domainCache, nil
	}
	domains, err := p.concepts.Domains(ctx)
	if err != nil {
		return nil, err
	}
	p.domainCache = domains
	return domains, nil
}

// InvalidateDomains drops the domain cache after ingestion.
func (p *Pipeline) InvalidateDomains() {
	p.mu.Lock()
	p.domainCache = nil
	p.mu.Unlock()
}

// ResolveDomain matches a raw domain name against the known domains.
func (p *Pipeline) ResolveDomain(ctx context.Context, raw string) string {
	if raw == "" {
		return ""
	}
	known, err := p.Domains(ctx)
	if err != nil {
		p.logger.Warn("domain list unavailable, using normalized input", zap.Error(err))
		return NormalizeDomain(raw)
	}
	return MatchDomain(raw, known)
}

// Search runs vector and graph retrieval and merges the two rankings with
// reciprocal rank fusion. A failing graph backend never fails the search.
func (p *Pipeline) Search(ctx context.Context, query, rawDomain string, limit int) ([]domain.ScoredConcept, error) {
	if query == "" {
		return nil, errors.New("query is required")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	dom := p.ResolveDomain(ctx, rawDomain)

	embedding, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	vectorResults, err := p.concepts.Search(ctx, embedding, domain.SearchOpts{Domain: dom, Limit: limit * 2})
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	byName := make(map[string]domain.Concept, len(vectorResults))
	similarity := make(map[string]float32, len(vectorResults))
	vectorKeys := make([]string, 0, len(vectorResults))
	for _, vr := range vectorResults {
		byName[vr.Name] = vr.Concept
		similarity[vr.Name] = SimilarityFromDistance(vr.Distance)
		vectorKeys = append(vectorKeys, vr.Name)
	}

	lists := []RankedList{{Source: "vector", Keys: vectorKeys}}
	graphRank := make(map[string]int)

	if p.graph != nil {
		graphResults, gerr := p.graph.SearchByKeyword(ctx, query, dom, limit*2)
		if gerr != nil {
			p.logger.Warn("graph search failed, continuing vector-only", zap.Error(gerr))
		} else {
			graphKeys := make([]string, 0, len(graphResults))
			for rank, gc := range graphResults {
				if _, ok := byName[gc.Name]; !ok {
					byName[gc.Name] = gc
				}
				graphKeys = append(graphKeys, gc.Name)
				graphRank[gc.Name] = rank + 1
			}
			lists = append(lists, RankedList{Source: "graph", Keys: graphKeys})
		}
	}

	fused := Fuse(lists, limit)

	results := make([]domain.ScoredConcept, 0, len(fused))
	for _, item := range fused {
		c, ok := byName[item.Key]
		if !ok {
			continue
		}
		sc := domain.ScoredConcept{
			Concept:    c,
			FusedScore: item.Score,
			Sources:    item.Sources,
		}
		if sim, ok := similarity[item.Key]; ok {
			sc.VectorSimilarity = sim
		}
		if rank, ok := graphRank[item.Key]; ok {
			sc.GraphRank = rank
		}
		results = append(results, sc)
	}

	return results, nil
}

// Concept resolves a concept by exact name, then by name fragment, then by
// vector similarity as a last resort. With a graph backend the result is
// enriched with related concepts and bridge domains; a failed graph lookup
// degrades to the bare concept.
func (p *Pipeline) Concept(ctx context.Context, name string) (*domain.ConceptDetail, error) {
	c, err := p.resolveConcept(ctx, name)
	if err != nil {
		return nil, err
	}

	detail := &domain.ConceptDetail{Concept: *c}
	if p.graph != nil {
		rel, err := p.graph.Relationships(ctx, c.Name)
		if err != nil {
			p.logger.Warn("relationship lookup failed",
				zap.String("concept", c.Name), zap.Error(err))
		} else {
			detail.Related = rel.Related
			detail.BridgeDomains = rel.BridgeDomains
		}
	}
	return detail, nil
}

func (p *Pipeline) resolveConcept(ctx context.Context, name string) (*domain.Concept, error) {
	c, err := p.concepts.GetByName(ctx, name)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	matches, err := p.concepts.SearchByName(ctx, name, 1)
	if err == nil && len(matches) > 0 {
		return &matches[0], nil
	}

	embedding, err := p.embedder.Embed(ctx, name)
	if err != nil {
		return nil, store.ErrNotFound
	}
	nearest, err := p.concepts.Search(ctx, embedding, domain.SearchOpts{Limit: 1})
	if err != nil || len(nearest) == 0 {
		return nil, store.ErrNotFound
	}
	return &nearest[0].Concept, nil
}

// Lineage returns ancestors and descendants along derivation edges. With no
// graph backend the lineage is empty, not an error.
func (p *Pipeline) Lineage(ctx context.Context, name string) (*domain.ConceptLineage, error) {
	lineage := &domain.ConceptLineage{Concept: name}
	if p.graph == nil {
		return lineage, nil
	}

	ancestors, err := p.graph.Ancestors(ctx, name, lineageMaxDepth)
	if err != nil {
		p.logger.Warn("ancestor walk failed", zap.String("concept", name), zap.Error(err))
	} else {
		lineage.Ancestors = ancestors
	}

	descendants, err := p.graph.Descendants(ctx, name, lineageMaxDepth)
	if err != nil {
		p.logger.Warn("descendant walk failed", zap.String("concept", name), zap.Error(err))
	} else {
		lineage.Descendants = descendants
	}

	return lineage, nil
}

// DomainDistance maps graph hop count to [0, 1]. Without a graph backend the
// distance is a neutral 0.5; with a graph but no path it is 0.8.
func (p *Pipeline) DomainDistance(ctx context.Context, domainA, domainB string) float64 {
	a := p.ResolveDomain(ctx, domainA)
	b := p.ResolveDomain(ctx, domainB)
	if a == b {
		return 0
	}
	if p.graph == nil {
		return distanceNoGraph
	}

	length, found, err := p.graph.ShortestDomainPath(ctx, a, b)
	if err != nil {
		p.logger.Warn("domain path query failed", zap.Error(err))
		return distanceNoGraph
	}
	if !found {
		return distanceNoPath
	}
	return math.Min(1, float64(length)/pathLengthScale)
}

// ConceptNovelty scores how novel pairing two concepts is: 0.2 for direct
// neighbors, otherwise one minus embedding cosine similarity, 0.7 when
// embeddings cannot be obtained.
func (p *Pipeline) ConceptNovelty(ctx context.Context, conceptA, conceptB string) float64 {
	if p.graph != nil {
		connected, err := p.graph.Connected(ctx, conceptA, conceptB)
		if err != nil {
			p.logger.Warn("connectivity check failed", zap.Error(err))
		} else if connected {
			return noveltyDirectNeighbor
		}
	}

	embA, errA := p.embedder.Embed(ctx, conceptA)
	embB, errB := p.embedder.Embed(ctx, conceptB)
	if errA != nil || errB != nil || len(embA) == 0 || len(embA) != len(embB) {
		return noveltyUnknown
	}

	novelty := 1 - cosineSimilarity(embA, embB)
	if novelty < 0 {
		return 0
	}
	if novelty > 1 {
		return 1
	}
	return novelty
}

// Precedents fetches recorded fusion cases touching the given domains.
// Empty when the graph backend is off.
func (p *Pipeline) Precedents(ctx context.Context, domains []string, limit int) []domain.FusionPrecedent {
	if p.graph == nil {
		return nil
	}
	precedents, err := p.graph.FusionPrecedents(ctx, domains, limit)
	if err != nil {
		p.logger.Warn("fusion precedents query failed", zap.Error(err))
		return nil
	}
	return precedents
}

// Connected reports direct graph adjacency; false without a graph backend.
func (p *Pipeline) Connected(ctx context.Context, conceptA, conceptB string) bool {
	if p.graph == nil {
		return false
	}
	connected, err := p.graph.Connected(ctx, conceptA, conceptB)
	if err != nil {
		return false
	}
	return connected
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
