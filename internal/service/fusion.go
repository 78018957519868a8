package service

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/Harshitk-cp/polymath/internal/domain"
	"go.uber.org/zap"
)

// PatternScorer rates one fusion pattern for a concept pair in [0, 1].
type PatternScorer interface {
	Score(ctx context.Context, a, b *domain.Concept) (float64, error)
}

// PatternScorerFunc adapts a function to PatternScorer.
type PatternScorerFunc func(ctx context.Context, a, b *domain.Concept) (float64, error)

func (f PatternScorerFunc) Score(ctx context.Context, a, b *domain.Concept) (float64, error) {
	return f(ctx, a, b)
}

// FixedScorer always returns the same score.
func FixedScorer(score float64) PatternScorer {
	return PatternScorerFunc(func(ctx context.Context, a, b *domain.Concept) (float64, error) {
		return score, nil
	})
}

const (
	fusionThreshold      = 0.3
	precedentPenaltyStep = 0.05
	precedentPenaltyCap  = 0.3
	precedentLimit       = 5
)

// FusionService scores cross-domain fusion potential between concept pairs.
// Scorers are pluggable per pattern.
type FusionService struct {
	retriever Retriever
	scorers   map[domain.FusionPattern]PatternScorer
	logger    *zap.Logger
}

func NewFusionService(retriever Retriever, logger *zap.Logger) *FusionService {
	s := &FusionService{
		retriever: retriever,
		scorers:   make(map[domain.FusionPattern]PatternScorer),
		logger:    logger,
	}
	s.installDefaultScorers()
	return s
}

// SetScorer replaces the scorer for one pattern.
func (s *FusionService) SetScorer(pattern domain.FusionPattern, scorer PatternScorer) {
	s.scorers[pattern] = scorer
}

// Suggest evaluates every pattern for the pair, keeps those at or above the
// threshold sorted by score, and attaches novelty and precedents. A failing
// scorer skips its pattern rather than failing the suggestion.
func (s *FusionService) Suggest(ctx context.Context, nameA, nameB string) (*domain.FusionSuggestion, error) {
	if nameA == "" || nameB == "" {
		return nil, errors.New("two concept names are required")
	}

	conceptA, err := s.retriever.Concept(ctx, nameA)
	if err != nil {
		return nil, err
	}
	conceptB, err := s.retriever.Concept(ctx, nameB)
	if err != nil {
		return nil, err
	}

	var patterns []domain.PatternScore
	for _, pattern := range domain.AllFusionPatterns {
		scorer, ok := s.scorers[pattern]
		if !ok {
			continue
		}
		score, err := scorer.Score(ctx, &conceptA.Concept, &conceptB.Concept)
		if err != nil {
			s.logger.Warn("pattern scorer failed",
				zap.String("pattern", string(pattern)), zap.Error(err))
			continue
		}
		if score >= fusionThreshold {
			patterns = append(patterns, domain.PatternScore{Pattern: pattern, Score: score})
		}
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].Score > patterns[j].Score
	})

	precedents := s.retriever.Precedents(ctx, []string{conceptA.Domain, conceptB.Domain}, precedentLimit)

	domainDistance := s.retriever.DomainDistance(ctx, conceptA.Domain, conceptB.Domain)
	conceptNovelty := s.retriever.ConceptNovelty(ctx, conceptA.Name, conceptB.Name)

	return &domain.FusionSuggestion{
		ConceptA:   conceptA.Name,
		ConceptB:   conceptB.Name,
		Patterns:   patterns,
		Novelty:    fusionNovelty(domainDistance, conceptNovelty, len(precedents)),
		Precedents: precedents,
	}, nil
}

// fusionNovelty blends domain and concept novelty, discounted by how many
// recorded precedents already cover the pairing.
func fusionNovelty(domainDistance, conceptNovelty float64, precedents int) float64 {
	penalty := math.Min(precedentPenaltyCap, float64(precedents)*precedentPenaltyStep)
	novelty := (domainDistance+conceptNovelty)/2 - penalty
	if novelty < 0 {
		return 0
	}
	return math.Min(1, novelty)
}

func (s *FusionService) installDefaultScorers() {
	s.scorers[domain.PatternMetaphoricalTransfer] = PatternScorerFunc(func(ctx context.Context, a, b *domain.Concept) (float64, error) {
		// Metaphors carry best between moderately similar concepts.
		novelty := s.retriever.ConceptNovelty(ctx, a.Name, b.Name)
		return clamp01(1 - math.Abs(novelty-0.4)), nil
	})

	s.scorers[domain.PatternStructuralIsomorphism] = PatternScorerFunc(func(ctx context.Context, a, b *domain.Concept) (float64, error) {
		if a.Scale != "" && a.Scale == b.Scale && a.Domain != b.Domain {
			return 0.7, nil
		}
		return 0.4, nil
	})

	s.scorers[domain.PatternAssumptionSubversion] = PatternScorerFunc(func(ctx context.Context, a, b *domain.Concept) (float64, error) {
		if len(a.Assumptions) == 0 || len(b.Assumptions) == 0 {
			return 0.5, nil
		}
		if disjoint(a.Assumptions, b.Assumptions) {
			return 0.7, nil
		}
		return 0.4, nil
	})

	s.scorers[domain.PatternScaleJump] = PatternScorerFunc(func(ctx context.Context, a, b *domain.Concept) (float64, error) {
		if a.Scale != "" && b.Scale != "" && a.Scale != b.Scale {
			return 0.8, nil
		}
		return 0.2, nil
	})

	s.scorers[domain.PatternTemporalTransformation] = PatternScorerFunc(func(ctx context.Context, a, b *domain.Concept) (float64, error) {
		if a.Era == "" || b.Era == "" {
			return 0.5, nil
		}
		if a.Era != b.Era {
			return 0.7, nil
		}
		return 0.3, nil
	})

	s.scorers[domain.PatternBoundaryConcept] = PatternScorerFunc(func(ctx context.Context, a, b *domain.Concept) (float64, error) {
		if s.retriever.Connected(ctx, a.Name, b.Name) {
			return 0.7, nil
		}
		return 0.35, nil
	})

	s.scorers[domain.PatternDialecticalSynthesis] = PatternScorerFunc(func(ctx context.Context, a, b *domain.Concept) (float64, error) {
		// A synthesis needs real tension: distance drives the score.
		distance := s.retriever.DomainDistance(ctx, a.Domain, b.Domain)
		return clamp01(0.3 + 0.5*distance), nil
	})
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func disjoint(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := set[s]; ok {
			return false
		}
	}
	return true
}
