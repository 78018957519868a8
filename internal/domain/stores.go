package domain

import "context"

type SearchOpts struct {
	Domain string
	Limit  int
}

type ConceptStore interface {
	Upsert(ctx context.Context, c *Concept) error
	GetByName(ctx context.Context, name string) (*Concept, error)
	Delete(ctx context.Context, name string) error
	// Search returns concepts ordered by ascending cosine distance to the
	// query embedding. Distance is raw; callers derive similarity.
	Search(ctx context.Context, embedding []float32, opts SearchOpts) ([]ConceptWithDistance, error)
	SearchByName(ctx context.Context, fragment string, limit int) ([]Concept, error)
	Domains(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)
}

// GraphStore is the optional graph backend. The retrieval pipeline treats a
// nil GraphStore, or any per-call error, as a degraded-but-working condition.
type GraphStore interface {
	SearchByKeyword(ctx context.Context, keyword, domain string, limit int) ([]Concept, error)
	Ancestors(ctx context.Context, name string, maxDepth int) ([]string, error)
	Descendants(ctx context.Context, name string, maxDepth int) ([]string, error)
	Relationships(ctx context.Context, name string) (*ConceptRelationships, error)
	// ShortestDomainPath returns the hop count between two domains and
	// whether any path exists.
	ShortestDomainPath(ctx context.Context, domainA, domainB string) (int, bool, error)
	Connected(ctx context.Context, conceptA, conceptB string) (bool, error)
	FusionPrecedents(ctx context.Context, domains []string, limit int) ([]FusionPrecedent, error)
	AddEdge(ctx context.Context, source, target, relation string, strength float32) error
	AddDomainEdge(ctx context.Context, domainA, domainB string) error
	AddBridge(ctx context.Context, concept, domain string) error
}

type SessionFilter struct {
	UserID string
	Status SessionStatus
}

type SessionStore interface {
	Save(ctx context.Context, s *DialogueSession) error
	Get(ctx context.Context, id string) (*DialogueSession, error)
	List(ctx context.Context, filter SessionFilter) ([]DialogueSession, error)
	Delete(ctx context.Context, id string) error
}

type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// QuestionRequest carries everything a generator needs to produce one
// Socratic question.
type QuestionRequest struct {
	Topic            string
	Strategy         QuestionStrategy
	Depth            QuestionDepth
	Difficulty       int
	Context          []string
	PreviousResponse string
}

type QuestionGenerator interface {
	Generate(ctx context.Context, req QuestionRequest) (*SocraticQuestion, error)
}

// LLMClient is the narrow chat interface used by the LLM-backed question
// generator.
type LLMClient interface {
	GenerateQuestion(ctx context.Context, req QuestionRequest) (string, error)
}
