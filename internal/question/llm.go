package question

import (
	"context"
	"strings"

	"github.com/Harshitk-cp/polymath/internal/domain"
	"go.uber.org/zap"
)

// LLMGenerator asks an LLM for a question and falls back to templates when
// the model is unavailable or returns nothing usable.
type LLMGenerator struct {
	client   domain.LLMClient
	fallback *TemplateGenerator
	logger   *zap.Logger
}

func NewLLMGenerator(client domain.LLMClient, logger *zap.Logger) *LLMGenerator {
	return &LLMGenerator{
		client:   client,
		fallback: NewTemplateGenerator(),
		logger:   logger,
	}
}

func (g *LLMGenerator) Generate(ctx context.Context, req domain.QuestionRequest) (*domain.SocraticQuestion, error) {
	text, err := g.client.GenerateQuestion(ctx, req)
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			g.logger.Warn("llm question generation failed, using template",
				zap.String("strategy", string(req.Strategy)), zap.Error(err))
		}
		return g.fallback.Generate(ctx, req)
	}

	return &domain.SocraticQuestion{
		Text:       strings.TrimSpace(text),
		Strategy:   req.Strategy,
		Depth:      req.Depth,
		Topic:      req.Topic,
		Difficulty: req.Difficulty,
	}, nil
}
