package question

import (
	"context"
	"fmt"

	"github.com/Harshitk-cp/polymath/internal/domain"
)

// TemplateGenerator produces questions from fixed strategy templates. It is
// fully deterministic: the same request always yields the same question.
type TemplateGenerator struct{}

func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

var strategyTemplates = map[domain.QuestionStrategy][]string{
	domain.StrategyClarify: {
		"What exactly do you mean by %q? Can you define it without using the word itself?",
		"If you had to explain %q to someone with no background, where would you start?",
		"Which part of %q feels most solid to you, and which part is fuzzy?",
	},
	domain.StrategyExpand: {
		"Where else does %q show up, outside the context you first met it in?",
		"What happens to %q at the extremes, when you push it as far as it goes?",
		"What would a world without %q look like?",
	},
	domain.StrategyConnect: {
		"What does %q remind you of from a completely different field?",
		"If %q and something you already understand well were the same mechanism, what would that mechanism be?",
		"What other idea rises or falls together with %q?",
	},
	domain.StrategyChallenge: {
		"What would have to be true for %q to be wrong?",
		"Who would disagree with the standard account of %q, and what would their best argument be?",
		"Is %q a fact about the world or a fact about how we describe the world?",
	},
	domain.StrategyDeepen: {
		"Why does %q work at all? What is the mechanism underneath?",
		"What assumption is %q silently resting on?",
		"If %q is the answer, what exactly was the question?",
	},
	domain.StrategySynthesize: {
		"Putting everything together, what is the one sentence you would keep about %q?",
		"How has your understanding of %q changed since we started?",
		"What single principle ties together what we discussed about %q?",
	},
	domain.StrategyMeta: {
		"What made %q hard to think about, and what finally helped?",
		"Which question about %q do you wish someone had asked you earlier?",
		"What is still unresolved for you about %q?",
	},
}

func (g *TemplateGenerator) Generate(ctx context.Context, req domain.QuestionRequest) (*domain.SocraticQuestion, error) {
	templates, ok := strategyTemplates[req.Strategy]
	if !ok {
		return nil, fmt.Errorf("no templates for strategy %q", req.Strategy)
	}

	// Depth selects within the template set; deeper questions use the later,
	// more demanding phrasings.
	idx := 0
	switch req.Depth {
	case domain.DepthMedium:
		idx = 1
	case domain.DepthDeep:
		idx = 2
	}
	if idx >= len(templates) {
		idx = len(templates) - 1
	}

	return &domain.SocraticQuestion{
		Text:       fmt.Sprintf(templates[idx], req.Topic),
		Strategy:   req.Strategy,
		Depth:      req.Depth,
		Topic:      req.Topic,
		Difficulty: req.Difficulty,
	}, nil
}
