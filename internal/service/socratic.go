package service

import (
	"context"
	"fmt"

	"github.com/Harshitk-cp/polymath/internal/domain"
	"go.uber.org/zap"
)

// Retriever is the slice of the retrieval pipeline the dialogue and fusion
// services consume.
type Retriever interface {
	Search(ctx context.Context, query, rawDomain string, limit int) ([]domain.ScoredConcept, error)
	Concept(ctx context.Context, name string) (*domain.ConceptDetail, error)
	DomainDistance(ctx context.Context, domainA, domainB string) float64
	ConceptNovelty(ctx context.Context, conceptA, conceptB string) float64
	Precedents(ctx context.Context, domains []string, limit int) []domain.FusionPrecedent
	Connected(ctx context.Context, conceptA, conceptB string) bool
}

// SocraticService runs the question-driven dialogue loop.
type SocraticService struct {
	sessions   *SessionManager
	difficulty *DifficultyEngine
	retriever  Retriever
	questions  domain.QuestionGenerator
	logger     *zap.Logger
}

func NewSocraticService(
	sessions *SessionManager,
	difficulty *DifficultyEngine,
	retriever Retriever,
	questions domain.QuestionGenerator,
	logger *zap.Logger,
) *SocraticService {
	return &SocraticService{
		sessions:   sessions,
		difficulty: difficulty,
		retriever:  retriever,
		questions:  questions,
		logger:     logger,
	}
}

const (
	openingContextLimit = 3
	minFollowUps        = 2
	maxFollowUps        = 3
	synthesizeThreshold = 3
	positionMaxLen      = 200
)

// DialogueState is what the controller returns after each exchange.
type DialogueState struct {
	Session       *domain.DialogueSession   `json:"session"`
	Questions     []domain.SocraticQuestion `json:"questions"`
	Analysis      *domain.ResponseAnalysis  `json:"analysis,omitempty"`
	Insights      []string                  `json:"insights,omitempty"`
	Encouragement string                    `json:"encouragement,omitempty"`
	Suggestion    string                    `json:"suggestion,omitempty"`
}

// StartDialogue opens a session on a topic and asks one question per
// strategy in the focus mode's strategy set. The working depth starts at the
// learner's topic-adjusted level.
func (s *SocraticService) StartDialogue(ctx context.Context, userID, topic, rawDomain, focus, initialPosition string) (*DialogueState, error) {
	mode := domain.ModeExplore
	if focus != "" {
		if !domain.ValidDialogueMode(focus) {
			return nil, fmt.Errorf("invalid focus %q", focus)
		}
		mode = domain.DialogueMode(focus)
	}

	snippets, names := s.topicContext(ctx, topic, rawDomain, nil)

	sess, err := s.sessions.Start(ctx, userID, topic, rawDomain, mode)
	if err != nil {
		return nil, err
	}

	level := s.difficulty.QuestionLevel(userID, topic)
	if sess, err = s.sessions.SetDepth(ctx, sess.ID, level); err != nil {
		return nil, err
	}
	if initialPosition != "" {
		if sess, err = s.sessions.UpdatePosition(ctx, sess.ID, truncate(initialPosition, positionMaxLen)); err != nil {
			return nil, err
		}
	}

	questions := s.generate(ctx, sess, domain.StrategiesForMode(sess.Mode), topic, snippets, "", level)

	if err := s.recordQuestions(ctx, sess.ID, questions, names); err != nil {
		return nil, err
	}

	return &DialogueState{Session: sess, Questions: questions}, nil
}

// ContinueDialogue records a learner response, updates the profile, shifts
// the session depth by the suggested adjustment, and asks the follow-up
// questions the response calls for.
func (s *SocraticService) ContinueDialogue(ctx context.Context, sessionID, response string, thinkingSeconds int) (*DialogueState, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	analysis := s.difficulty.Analyze(response, thinkingSeconds, s.sessionDepth(sess))
	s.difficulty.UpdateProfile(sess.UserID, sess.Topic, analysis.Quality)
	insights := s.difficulty.ExtractInsights(response)

	depth := s.sessionDepth(sess) + analysis.DifficultyAdjustment
	if sess, err = s.sessions.SetDepth(ctx, sessionID, depth); err != nil {
		return nil, err
	}
	depth = sess.Depth

	if _, err := s.sessions.AddTurn(ctx, sessionID, domain.DialogueTurn{
		Speaker:         domain.SpeakerUser,
		Response:        response,
		Analysis:        &analysis,
		Insights:        insights,
		ThinkingSeconds: thinkingSeconds,
	}); err != nil {
		return nil, err
	}

	for _, insight := range insights {
		if _, err := s.sessions.AddInsight(ctx, sessionID, insight); err != nil {
			return nil, err
		}
	}
	if sess, err = s.sessions.UpdatePosition(ctx, sessionID, truncate(response, positionMaxLen)); err != nil {
		return nil, err
	}

	strategies := followUpStrategies(analysis, len(sess.ConceptsExplored))
	snippets, names := s.topicContext(ctx, sess.Topic, sess.Domain, sess.ConceptsExplored)
	questions := s.generate(ctx, sess, strategies, sess.Topic, snippets, response, depth)

	if err := s.recordQuestions(ctx, sessionID, questions, names); err != nil {
		return nil, err
	}

	return &DialogueState{
		Session:       sess,
		Questions:     questions,
		Analysis:      &analysis,
		Insights:      insights,
		Encouragement: Encouragement(analysis.Quality),
	}, nil
}

// ChallengeStatement records the premise under challenge and probes it with
// the challenge-mode strategy set.
func (s *SocraticService) ChallengeStatement(ctx context.Context, sessionID, statement string) (*DialogueState, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if sess, err = s.sessions.ChallengePremise(ctx, sessionID, statement); err != nil {
		return nil, err
	}

	questions := s.generate(ctx, sess, domain.StrategiesForMode(domain.ModeChallenge), sess.Topic, nil, statement, s.sessionDepth(sess))

	if err := s.recordQuestions(ctx, sessionID, questions, nil); err != nil {
		return nil, err
	}

	return &DialogueState{Session: sess, Questions: questions}, nil
}

// SynthesizeDialogue asks the closing synthesis questions and completes the
// session.
func (s *SocraticService) SynthesizeDialogue(ctx context.Context, sessionID string) (*DialogueState, *domain.SessionSummary, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	questions := s.generate(ctx, sess, domain.StrategiesForMode(domain.ModeSynthesize), sess.Topic, nil, "", s.sessionDepth(sess))

	if err := s.recordQuestions(ctx, sessionID, questions, nil); err != nil {
		return nil, nil, err
	}

	sess, err = s.sessions.Complete(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	summary := Summarize(sess)
	state := &DialogueState{
		Session:    sess,
		Questions:  questions,
		Insights:   sess.SynthesizedInsights,
		Suggestion: s.difficulty.SuggestPath(sess.UserID, sess.Topic),
	}
	return state, &summary, nil
}

// Hint asks the difficulty engine whether to help a stuck learner.
func (s *SocraticService) Hint(ctx context.Context, sessionID string, secondsStuck, attempts int) (*domain.HintDecision, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	decision := s.difficulty.Hint(sess.UserID, secondsStuck, attempts)
	return &decision, nil
}

// followUpStrategies picks the next strategies from the response analysis:
// deepen on strong answers, clarify on weak ones, connect on breakthroughs,
// synthesize once enough concepts are on the table. The set is padded to at
// least two and capped at three.
func followUpStrategies(analysis domain.ResponseAnalysis, conceptsExplored int) []domain.QuestionStrategy {
	var strategies []domain.QuestionStrategy

	score := analysis.Quality.Score()
	if score >= 4 {
		strategies = append(strategies, domain.StrategyDeepen)
	}
	if score <= 2 {
		strategies = append(strategies, domain.StrategyClarify)
	}
	if analysis.Breakthrough {
		strategies = append(strategies, domain.StrategyConnect)
	}
	if conceptsExplored >= synthesizeThreshold {
		strategies = append(strategies, domain.StrategySynthesize)
	}

	for _, pad := range []domain.QuestionStrategy{domain.StrategyExpand, domain.StrategyConnect} {
		if len(strategies) >= minFollowUps {
			break
		}
		if !containsStrategy(strategies, pad) {
			strategies = append(strategies, pad)
		}
	}

	if len(strategies) > maxFollowUps {
		strategies = strategies[:maxFollowUps]
	}
	return strategies
}

func containsStrategy(strategies []domain.QuestionStrategy, s domain.QuestionStrategy) bool {
	for _, existing := range strategies {
		if existing == s {
			return true
		}
	}
	return false
}

func (s *SocraticService) generate(
	ctx context.Context,
	sess *domain.DialogueSession,
	strategies []domain.QuestionStrategy,
	topic string,
	snippets []string,
	previousResponse string,
	level int,
) []domain.SocraticQuestion {
	questions := make([]domain.SocraticQuestion, 0, len(strategies))
	for _, strategy := range strategies {
		q, err := s.questions.Generate(ctx, domain.QuestionRequest{
			Topic:            topic,
			Strategy:         strategy,
			Depth:            domain.DepthForLevel(level),
			Difficulty:       level,
			Context:          snippets,
			PreviousResponse: previousResponse,
		})
		if err != nil {
			s.logger.Warn("question generation failed",
				zap.String("strategy", string(strategy)), zap.Error(err))
			continue
		}
		questions = append(questions, *q)
	}
	return questions
}

// recordQuestions appends one system turn per question. The retrieval
// context names ride on the first turn and feed the session's explored set.
func (s *SocraticService) recordQuestions(ctx context.Context, sessionID string, questions []domain.SocraticQuestion, names []string) error {
	for i := range questions {
		turn := domain.DialogueTurn{Speaker: domain.SpeakerSystem, Question: &questions[i]}
		if i == 0 {
			turn.RelatedConcepts = names
		}
		if _, err := s.sessions.AddTurn(ctx, sessionID, turn); err != nil {
			return err
		}
	}
	return nil
}

// sessionDepth falls back to the profile level for sessions persisted before
// depth tracking.
func (s *SocraticService) sessionDepth(sess *domain.DialogueSession) int {
	if sess.Depth >= domain.MinDifficultyLevel {
		return sess.Depth
	}
	return s.difficulty.Profile(sess.UserID).Level
}

// topicContext retrieves knowledge snippets for question generation,
// skipping concepts the session has already explored.
func (s *SocraticService) topicContext(ctx context.Context, topic, rawDomain string, exclude []string) (snippets, names []string) {
	results, err := s.retriever.Search(ctx, topic, rawDomain, openingContextLimit)
	if err != nil {
		s.logger.Warn("topic retrieval failed, continuing without context",
			zap.String("topic", topic), zap.Error(err))
		return nil, nil
	}

	for _, r := range results {
		if hasTopic(exclude, r.Name) {
			continue
		}
		snippets = append(snippets, fmt.Sprintf("%s (%s): %s", r.Name, r.Domain, r.Description))
		names = append(names, r.Name)
	}
	return snippets, names
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
