package llm

import (
	"context"
	"fmt"

	"github.com/Harshitk-cp/polymath/internal/domain"
)

// MockClient is a configurable LLM client for testing.
// Set the response fields to control what it returns.
type MockClient struct {
	QuestionResponse string
	QuestionError    error

	// Call tracking for assertions
	QuestionCalls []domain.QuestionRequest
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (c *MockClient) GenerateQuestion(ctx context.Context, req domain.QuestionRequest) (string, error) {
	c.QuestionCalls = append(c.QuestionCalls, req)
	if c.QuestionError != nil {
		return "", c.QuestionError
	}
	if c.QuestionResponse != "" {
		return c.QuestionResponse, nil
	}
	return fmt.Sprintf("What is the essential idea behind %s?", req.Topic), nil
}
