package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Harshitk-cp/polymath/internal/domain"
	"github.com/Harshitk-cp/polymath/internal/question"
	"go.uber.org/zap"
)

type mockRetriever struct {
	results     []domain.ScoredConcept
	searchErr   error
	concepts    map[string]*domain.Concept
	distance    float64
	novelty     float64
	precedents  []domain.FusionPrecedent
	connected   bool
	searchCalls int
}

func (m *mockRetriever) Search(ctx context.Context, query, rawDomain string, limit int) ([]domain.ScoredConcept, error) {
	m.searchCalls++
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.results, nil
}

func (m *mockRetriever) Concept(ctx context.Context, name string) (*domain.ConceptDetail, error) {
	if c, ok := m.concepts[name]; ok {
		return &domain.ConceptDetail{Concept: *c}, nil
	}
	return nil, errors.New("concept not found")
}

func (m *mockRetriever) DomainDistance(ctx context.Context, domainA, domainB string) float64 {
	return m.distance
}

func (m *mockRetriever) ConceptNovelty(ctx context.Context, conceptA, conceptB string) float64 {
	return m.novelty
}

func (m *mockRetriever) Precedents(ctx context.Context, domains []string, limit int) []domain.FusionPrecedent {
	return m.precedents
}

func (m *mockRetriever) Connected(ctx context.Context, conceptA, conceptB string) bool {
	return m.connected
}

func newTestSocratic() (*SocraticService, *DifficultyEngine, *mockRetriever) {
	retriever := &mockRetriever{
		results: []domain.ScoredConcept{
			{Concept: domain.Concept{Name: "entropy", Domain: "thermodynamics", Description: "Counts microstates."}},
		},
	}
	difficulty := newTestEngine()
	sessions := NewSessionManager(newMockSessionStore(), zap.NewNop())
	svc := NewSocraticService(sessions, difficulty, retriever, question.NewTemplateGenerator(), zap.NewNop())
	return svc, difficulty, retriever
}

func TestStartDialogueAsksExploreQuestions(t *testing.T) {
	svc, _, _ := newTestSocratic()

	state, err := svc.StartDialogue(context.Background(), "learner-1", "entropy", "thermodynamics", "", "")
	if err != nil {
		t.Fatalf("StartDialogue() error = %v", err)
	}

	wantStrategies := domain.StrategiesForMode(domain.ModeExplore)
	if len(state.Questions) != len(wantStrategies) {
		t.Fatalf("questions = %d, want %d", len(state.Questions), len(wantStrategies))
	}
	for i, q := range state.Questions {
		if q.Strategy != wantStrategies[i] {
			t.Errorf("question %d strategy = %s, want %s", i, q.Strategy, wantStrategies[i])
		}
		if q.Text == "" {
			t.Errorf("question %d has empty text", i)
		}
	}
	if state.Session.Mode != domain.ModeExplore {
		t.Errorf("mode = %s, want %s", state.Session.Mode, domain.ModeExplore)
	}
	if state.Session.QuestionsAsked != len(wantStrategies) {
		t.Errorf("questions asked = %d, want %d", state.Session.QuestionsAsked, len(wantStrategies))
	}
}

func TestStartDialogueFocusSelectsMode(t *testing.T) {
	svc, _, _ := newTestSocratic()
	ctx := context.Background()

	state, err := svc.StartDialogue(ctx, "learner-1", "entropy", "", "challenge", "Entropy only applies to gases.")
	if err != nil {
		t.Fatalf("StartDialogue() error = %v", err)
	}

	if state.Session.Mode != domain.ModeChallenge {
		t.Errorf("mode = %s, want %s", state.Session.Mode, domain.ModeChallenge)
	}
	wantStrategies := domain.StrategiesForMode(domain.ModeChallenge)
	for i, q := range state.Questions {
		if q.Strategy != wantStrategies[i] {
			t.Errorf("question %d strategy = %s, want %s", i, q.Strategy, wantStrategies[i])
		}
	}
	if state.Session.CurrentPosition != "Entropy only applies to gases." {
		t.Errorf("position = %q, want the initial position", state.Session.CurrentPosition)
	}

	if _, err := svc.StartDialogue(ctx, "learner-1", "entropy", "", "argue", ""); err == nil {
		t.Error("expected error for an unknown focus")
	}
}

func TestStartDialogueDepthFollowsTopicLevel(t *testing.T) {
	svc, difficulty, _ := newTestSocratic()
	ctx := context.Background()

	// An expertise topic starts one level above the profile.
	difficulty.UpdateProfile("learner-1", "entropy", domain.QualityExcellent)

	state, err := svc.StartDialogue(ctx, "learner-1", "entropy", "", "", "")
	if err != nil {
		t.Fatalf("StartDialogue() error = %v", err)
	}

	if state.Session.Depth != 4 {
		t.Errorf("depth = %d, want 4", state.Session.Depth)
	}
	for i, q := range state.Questions {
		if q.Difficulty != 4 {
			t.Errorf("question %d difficulty = %d, want 4", i, q.Difficulty)
		}
	}
}

func TestStartDialogueSurvivesRetrievalFailure(t *testing.T) {
	svc, _, retriever := newTestSocratic()
	retriever.searchErr = errors.New("index offline")

	state, err := svc.StartDialogue(context.Background(), "learner-1", "entropy", "", "", "")
	if err != nil {
		t.Fatalf("StartDialogue() error = %v", err)
	}
	if len(state.Questions) == 0 {
		t.Error("no questions despite retrieval degradation")
	}
}

func TestContinueDialogueStrugglingResponse(t *testing.T) {
	svc, difficulty, _ := newTestSocratic()
	ctx := context.Background()

	start, err := svc.StartDialogue(ctx, "learner-2", "entropy", "thermodynamics", "", "")
	if err != nil {
		t.Fatalf("StartDialogue() error = %v", err)
	}

	state, err := svc.ContinueDialogue(ctx, start.Session.ID, "I don't understand this at all, it's confusing", 30)
	if err != nil {
		t.Fatalf("ContinueDialogue() error = %v", err)
	}

	if state.Analysis == nil {
		t.Fatal("analysis missing")
	}
	if state.Analysis.Quality != domain.QualityStruggling {
		t.Errorf("quality = %s, want %s", state.Analysis.Quality, domain.QualityStruggling)
	}
	if state.Analysis.DifficultyAdjustment > 0 {
		t.Errorf("adjustment = %d, want non-positive", state.Analysis.DifficultyAdjustment)
	}

	// Weak answers pull clarifying questions.
	foundClarify := false
	for _, q := range state.Questions {
		if q.Strategy == domain.StrategyClarify {
			foundClarify = true
		}
	}
	if !foundClarify {
		t.Errorf("follow-ups lack a clarify question: %v", state.Questions)
	}

	profile := difficulty.Profile("learner-2")
	found := false
	for _, topic := range profile.StrugglingTopics {
		if topic == "entropy" {
			found = true
		}
	}
	if !found {
		t.Errorf("struggling topics = %v, want entropy present", profile.StrugglingTopics)
	}

	if state.Encouragement == "" {
		t.Error("missing encouragement")
	}
}

func TestContinueDialogueStrongResponseDeepens(t *testing.T) {
	svc, _, _ := newTestSocratic()
	ctx := context.Background()

	start, _ := svc.StartDialogue(ctx, "learner-3", "entropy", "", "", "")

	response := "The underlying principle is statistical: this implies we can generalize entropy " +
		"to any system with countable configurations."
	state, err := svc.ContinueDialogue(ctx, start.Session.ID, response, 60)
	if err != nil {
		t.Fatalf("ContinueDialogue() error = %v", err)
	}

	if state.Analysis.Quality != domain.QualityExcellent {
		t.Fatalf("quality = %s, want %s", state.Analysis.Quality, domain.QualityExcellent)
	}

	foundDeepen := false
	for _, q := range state.Questions {
		if q.Strategy == domain.StrategyDeepen {
			foundDeepen = true
		}
	}
	if !foundDeepen {
		t.Errorf("follow-ups lack a deepen question: %v", state.Questions)
	}
}

func TestContinueDialogueShiftsDepth(t *testing.T) {
	svc, _, _ := newTestSocratic()
	ctx := context.Background()

	start, err := svc.StartDialogue(ctx, "learner-7", "entropy", "", "", "")
	if err != nil {
		t.Fatalf("StartDialogue() error = %v", err)
	}
	if start.Session.Depth != domain.DefaultLevel {
		t.Fatalf("starting depth = %d, want %d", start.Session.Depth, domain.DefaultLevel)
	}

	// A struggling answer drops the working depth and the follow-ups ask at
	// the new depth.
	state, err := svc.ContinueDialogue(ctx, start.Session.ID, "I don't understand this at all, it's confusing", 60)
	if err != nil {
		t.Fatalf("ContinueDialogue() error = %v", err)
	}
	if state.Session.Depth != 2 {
		t.Errorf("depth = %d, want 2 after a struggling answer", state.Session.Depth)
	}
	for i, q := range state.Questions {
		if q.Difficulty != 2 {
			t.Errorf("question %d difficulty = %d, want 2", i, q.Difficulty)
		}
	}

	// An excellent answer climbs back up.
	response := "The underlying principle generalizes across both domains."
	state, err = svc.ContinueDialogue(ctx, start.Session.ID, response, 60)
	if err != nil {
		t.Fatalf("ContinueDialogue() error = %v", err)
	}
	if state.Session.Depth != 3 {
		t.Errorf("depth = %d, want 3 after an excellent answer", state.Session.Depth)
	}
}

func TestContinueDialogueRecordsPositionAndInsights(t *testing.T) {
	svc, _, _ := newTestSocratic()
	ctx := context.Background()

	start, _ := svc.StartDialogue(ctx, "learner-8", "entropy", "", "", "")

	response := "I realize entropy is about counting arrangements, so that means order has a cost."
	state, err := svc.ContinueDialogue(ctx, start.Session.ID, response, 60)
	if err != nil {
		t.Fatalf("ContinueDialogue() error = %v", err)
	}

	if state.Session.CurrentPosition != response {
		t.Errorf("position = %q, want the latest response", state.Session.CurrentPosition)
	}
	if len(state.Insights) == 0 {
		t.Fatal("no insights extracted")
	}
	if len(state.Session.SynthesizedInsights) != len(state.Insights) {
		t.Errorf("session insights = %v, want %v", state.Session.SynthesizedInsights, state.Insights)
	}

	// User turns carry the speaker and thinking time.
	var userTurn *domain.DialogueTurn
	for i := range state.Session.Turns {
		if state.Session.Turns[i].Response != "" {
			userTurn = &state.Session.Turns[i]
		}
	}
	if userTurn == nil || userTurn.Speaker != domain.SpeakerUser {
		t.Errorf("user turn speaker missing: %+v", userTurn)
	}
}

func TestDialogueAccumulatesExploredConcepts(t *testing.T) {
	svc, _, retriever := newTestSocratic()
	ctx := context.Background()

	retriever.results = []domain.ScoredConcept{
		{Concept: domain.Concept{Name: "entropy", Domain: "thermodynamics", Description: "Counts microstates."}},
		{Concept: domain.Concept{Name: "shannon_entropy", Domain: "information_theory", Description: "Bits of surprise."}},
		{Concept: domain.Concept{Name: "annealing", Domain: "metallurgy", Description: "Slow cooling."}},
	}

	start, err := svc.StartDialogue(ctx, "learner-9", "entropy", "", "", "")
	if err != nil {
		t.Fatalf("StartDialogue() error = %v", err)
	}
	if len(start.Session.ConceptsExplored) != 3 {
		t.Fatalf("concepts explored = %v, want the 3 retrieved names", start.Session.ConceptsExplored)
	}

	// Already-explored concepts are excluded on re-query, so the explored
	// set does not grow, and three concepts unlock a synthesize follow-up.
	state, err := svc.ContinueDialogue(ctx, start.Session.ID, "They all trade order for possibility.", 60)
	if err != nil {
		t.Fatalf("ContinueDialogue() error = %v", err)
	}
	if len(state.Session.ConceptsExplored) != 3 {
		t.Errorf("concepts explored = %v, want no duplicates", state.Session.ConceptsExplored)
	}

	foundSynthesize := false
	for _, q := range state.Questions {
		if q.Strategy == domain.StrategySynthesize {
			foundSynthesize = true
		}
	}
	if !foundSynthesize {
		t.Errorf("follow-ups lack a synthesize question: %v", state.Questions)
	}
}

func TestContinueDialogueUnknownSession(t *testing.T) {
	svc, _, _ := newTestSocratic()

	_, err := svc.ContinueDialogue(context.Background(), "missing1", "anything", 0)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("error = %v, want ErrSessionNotFound", err)
	}
}

func TestChallengeStatement(t *testing.T) {
	svc, _, _ := newTestSocratic()
	ctx := context.Background()

	start, _ := svc.StartDialogue(ctx, "learner-4", "entropy", "", "", "")
	state, err := svc.ChallengeStatement(ctx, start.Session.ID, "Entropy always decreases in living systems.")
	if err != nil {
		t.Fatalf("ChallengeStatement() error = %v", err)
	}

	wantStrategies := domain.StrategiesForMode(domain.ModeChallenge)
	if len(state.Questions) != len(wantStrategies) {
		t.Fatalf("questions = %d, want %d", len(state.Questions), len(wantStrategies))
	}
	for i, q := range state.Questions {
		if q.Strategy != wantStrategies[i] {
			t.Errorf("question %d strategy = %s, want %s", i, q.Strategy, wantStrategies[i])
		}
	}
}

func TestSynthesizeDialogueCompletesSession(t *testing.T) {
	svc, _, _ := newTestSocratic()
	ctx := context.Background()

	start, _ := svc.StartDialogue(ctx, "learner-5", "entropy", "", "", "")
	svc.ContinueDialogue(ctx, start.Session.ID, "It relates to counting arrangements because order is rare.", 40)

	state, summary, err := svc.SynthesizeDialogue(ctx, start.Session.ID)
	if err != nil {
		t.Fatalf("SynthesizeDialogue() error = %v", err)
	}

	if state.Session.Status != domain.SessionCompleted {
		t.Errorf("status = %s, want %s", state.Session.Status, domain.SessionCompleted)
	}
	if summary == nil || summary.ResponsesGiven != 1 {
		t.Errorf("summary = %+v, want 1 response", summary)
	}
	if state.Suggestion == "" {
		t.Error("missing learning path suggestion")
	}
	if len(state.Questions) == 0 {
		t.Error("no synthesis questions asked")
	}

	// Completed sessions take no further turns.
	if _, err := svc.ContinueDialogue(ctx, start.Session.ID, "more", 0); !errors.Is(err, ErrSessionCompleted) {
		t.Errorf("error = %v, want ErrSessionCompleted", err)
	}
}

func TestFollowUpStrategies(t *testing.T) {
	tests := []struct {
		name     string
		analysis domain.ResponseAnalysis
		explored int
		want     []domain.QuestionStrategy
	}{
		{
			name:     "strong answer deepens",
			analysis: domain.ResponseAnalysis{Quality: domain.QualityExcellent},
			explored: 0,
			want:     []domain.QuestionStrategy{domain.StrategyDeepen, domain.StrategyExpand},
		},
		{
			name:     "weak answer clarifies",
			analysis: domain.ResponseAnalysis{Quality: domain.QualityStruggling},
			explored: 0,
			want:     []domain.QuestionStrategy{domain.StrategyClarify, domain.StrategyExpand},
		},
		{
			name:     "breakthrough connects",
			analysis: domain.ResponseAnalysis{Quality: domain.QualityAdequate, Breakthrough: true},
			explored: 0,
			want:     []domain.QuestionStrategy{domain.StrategyConnect, domain.StrategyExpand},
		},
		{
			name:     "enough concepts synthesize",
			analysis: domain.ResponseAnalysis{Quality: domain.QualityAdequate},
			explored: 3,
			want:     []domain.QuestionStrategy{domain.StrategySynthesize, domain.StrategyExpand},
		},
		{
			name:     "capped at three",
			analysis: domain.ResponseAnalysis{Quality: domain.QualityExcellent, Breakthrough: true},
			explored: 3,
			want:     []domain.QuestionStrategy{domain.StrategyDeepen, domain.StrategyConnect, domain.StrategySynthesize},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := followUpStrategies(tt.analysis, tt.explored)
			if len(got) != len(tt.want) {
				t.Fatalf("strategies = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("strategies = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestHintThroughDialogue(t *testing.T) {
	svc, _, _ := newTestSocratic()
	ctx := context.Background()

	start, _ := svc.StartDialogue(ctx, "learner-6", "entropy", "", "", "")

	decision, err := svc.Hint(ctx, start.Session.ID, 150, 1)
	if err != nil {
		t.Fatalf("Hint() error = %v", err)
	}
	if !decision.Provide {
		t.Fatal("hint not provided past the threshold")
	}
	if decision.Kind != domain.HintGuiding {
		t.Errorf("kind = %s, want %s", decision.Kind, domain.HintGuiding)
	}

	if _, err := svc.Hint(ctx, "missing1", 150, 1); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("error = %v, want ErrSessionNotFound", err)
	}
}
