package domain

type FusionPattern string

const (
	PatternMetaphoricalTransfer   FusionPattern = "metaphorical_transfer"
	PatternStructuralIsomorphism  FusionPattern = "structural_isomorphism"
	PatternAssumptionSubversion   FusionPattern = "assumption_subversion"
	PatternScaleJump              FusionPattern = "scale_jump"
	PatternTemporalTransformation FusionPattern = "temporal_transformation"
	PatternBoundaryConcept        FusionPattern = "boundary_concept"
	PatternDialecticalSynthesis   FusionPattern = "dialectical_synthesis"
)

// AllFusionPatterns is the fixed evaluation order for fusion scoring.
var AllFusionPatterns = []FusionPattern{
	PatternMetaphoricalTransfer,
	PatternStructuralIsomorphism,
	PatternAssumptionSubversion,
	PatternScaleJump,
	PatternTemporalTransformation,
	PatternBoundaryConcept,
	PatternDialecticalSynthesis,
}

func ValidFusionPattern(p string) bool {
	for _, fp := range AllFusionPatterns {
		if FusionPattern(p) == fp {
			return true
		}
	}
	return false
}

type PatternScore struct {
	Pattern FusionPattern `json:"pattern"`
	Score   float64       `json:"score"`
}

// FusionPrecedent is a recorded historical fusion between domains.
type FusionPrecedent struct {
	Name          string   `json:"name"`
	SourceDomains []string `json:"source_domains"`
	Outcome       string   `json:"outcome,omitempty"`
}

// FusionSuggestion ranks the viable fusion patterns between two concepts.
type FusionSuggestion struct {
	ConceptA   string            `json:"concept_a"`
	ConceptB   string            `json:"concept_b"`
	Patterns   []PatternScore    `json:"patterns"`
	Novelty    float64           `json:"novelty"`
	Precedents []FusionPrecedent `json:"precedents,omitempty"`
}
