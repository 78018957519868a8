package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/Harshitk-cp/polymath/internal/domain"
	"github.com/Harshitk-cp/polymath/internal/store"
	"go.uber.org/zap"
)

type mockSessionStore struct {
	sessions  map[string]*domain.DialogueSession
	saveErr   error
	saveCalls int
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: make(map[string]*domain.DialogueSession)}
}

func (m *mockSessionStore) Save(ctx context.Context, s *domain.DialogueSession) error {
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	// Deep copy through JSON so later in-memory mutation doesn't leak in.
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	var copied domain.DialogueSession
	if err := json.Unmarshal(data, &copied); err != nil {
		return err
	}
	m.sessions[s.ID] = &copied
	return nil
}

func (m *mockSessionStore) Get(ctx context.Context, id string) (*domain.DialogueSession, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s, nil
}

func (m *mockSessionStore) List(ctx context.Context, filter domain.SessionFilter) ([]domain.DialogueSession, error) {
	var out []domain.DialogueSession
	for _, s := range m.sessions {
		if filter.UserID != "" && s.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (m *mockSessionStore) Delete(ctx context.Context, id string) error {
	if _, ok := m.sessions[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func newTestSessionManager() (*SessionManager, *mockSessionStore) {
	st := newMockSessionStore()
	return NewSessionManager(st, zap.NewNop()), st
}

func questionTurn(topic, text string, related ...string) domain.DialogueTurn {
	return domain.DialogueTurn{
		Question: &domain.SocraticQuestion{
			Text:     text,
			Strategy: domain.StrategyClarify,
			Topic:    topic,
		},
		RelatedConcepts: related,
	}
}

func responseTurn(text string, quality domain.ResponseQuality) domain.DialogueTurn {
	return domain.DialogueTurn{
		Response: text,
		Analysis: &domain.ResponseAnalysis{Quality: quality},
	}
}

func TestSessionStartPersists(t *testing.T) {
	mgr, st := newTestSessionManager()
	ctx := context.Background()

	sess, err := mgr.Start(ctx, "user-1", "entropy", "thermodynamics", domain.ModeExplore)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if len(sess.ID) != 8 {
		t.Errorf("session id length = %d, want 8", len(sess.ID))
	}
	if sess.Status != domain.SessionActive {
		t.Errorf("status = %s, want %s", sess.Status, domain.SessionActive)
	}
	if _, ok := st.sessions[sess.ID]; !ok {
		t.Error("session not written through to store")
	}
}

func TestSessionStartValidation(t *testing.T) {
	mgr, _ := newTestSessionManager()

	if _, err := mgr.Start(context.Background(), "", "entropy", "", domain.ModeExplore); err == nil {
		t.Error("expected error for missing user_id")
	}
	if _, err := mgr.Start(context.Background(), "user-1", "", "", domain.ModeExplore); err == nil {
		t.Error("expected error for missing topic")
	}
}

func TestAddTurnAppendsAndCounts(t *testing.T) {
	mgr, st := newTestSessionManager()
	ctx := context.Background()

	sess, _ := mgr.Start(ctx, "user-1", "entropy", "", domain.ModeExplore)

	sess, err := mgr.AddTurn(ctx, sess.ID, questionTurn("entropy", "What is entropy?", "entropy", "microstates"))
	if err != nil {
		t.Fatalf("AddTurn() error = %v", err)
	}
	sess, err = mgr.AddTurn(ctx, sess.ID, responseTurn("It measures disorder.", domain.QualityGood))
	if err != nil {
		t.Fatalf("AddTurn() error = %v", err)
	}
	sess, err = mgr.AddTurn(ctx, sess.ID, questionTurn("entropy", "What do microstates count?", "microstates", "annealing"))
	if err != nil {
		t.Fatalf("AddTurn() error = %v", err)
	}

	if len(sess.Turns) != 3 {
		t.Fatalf("turns = %d, want 3", len(sess.Turns))
	}
	if sess.Turns[0].Index != 0 || sess.Turns[1].Index != 1 {
		t.Errorf("turn indexes = %d, %d, want 0, 1", sess.Turns[0].Index, sess.Turns[1].Index)
	}
	if sess.Turns[0].Speaker != domain.SpeakerSystem || sess.Turns[1].Speaker != domain.SpeakerUser {
		t.Errorf("speakers = %s, %s, want system, user", sess.Turns[0].Speaker, sess.Turns[1].Speaker)
	}
	if sess.QuestionsAsked != 2 {
		t.Errorf("questions asked = %d, want 2", sess.QuestionsAsked)
	}
	if sess.ResponsesGiven != 1 {
		t.Errorf("responses given = %d, want 1", sess.ResponsesGiven)
	}

	// Related concepts accumulate into the explored set, ordered and
	// deduplicated.
	want := []string{"entropy", "microstates", "annealing"}
	if len(sess.ConceptsExplored) != len(want) {
		t.Fatalf("concepts explored = %v, want %v", sess.ConceptsExplored, want)
	}
	for i, c := range want {
		if sess.ConceptsExplored[i] != c {
			t.Errorf("concepts explored[%d] = %s, want %s", i, sess.ConceptsExplored[i], c)
		}
	}

	// Write-through: the stored copy carries all turns.
	stored := st.sessions[sess.ID]
	if len(stored.Turns) != 3 {
		t.Errorf("stored turns = %d, want 3", len(stored.Turns))
	}
}

func TestAddTurnPersistFailureKeepsTurn(t *testing.T) {
	mgr, st := newTestSessionManager()
	ctx := context.Background()

	sess, _ := mgr.Start(ctx, "user-1", "entropy", "", domain.ModeExplore)
	st.saveErr = errors.New("connection reset")

	got, err := mgr.AddTurn(ctx, sess.ID, questionTurn("entropy", "What is entropy?"))
	if !errors.Is(err, ErrPersistFailed) {
		t.Fatalf("error = %v, want ErrPersistFailed", err)
	}
	if got == nil || len(got.Turns) != 1 {
		t.Error("in-memory turn lost on persist failure")
	}

	// Recoverable: the next successful save carries the turn.
	st.saveErr = nil
	got, err = mgr.AddTurn(ctx, sess.ID, responseTurn("Disorder.", domain.QualityAdequate))
	if err != nil {
		t.Fatalf("AddTurn() after recovery error = %v", err)
	}
	if len(st.sessions[sess.ID].Turns) != 2 {
		t.Errorf("stored turns = %d, want 2 after recovery", len(st.sessions[sess.ID].Turns))
	}
}

func TestAddTurnOnCompletedSession(t *testing.T) {
	mgr, _ := newTestSessionManager()
	ctx := context.Background()

	sess, _ := mgr.Start(ctx, "user-1", "entropy", "", domain.ModeExplore)
	if _, err := mgr.Complete(ctx, sess.ID); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	_, err := mgr.AddTurn(ctx, sess.ID, questionTurn("entropy", "One more?"))
	if !errors.Is(err, ErrSessionCompleted) {
		t.Errorf("error = %v, want ErrSessionCompleted", err)
	}
}

func TestGetRehydratesFromStore(t *testing.T) {
	mgr, st := newTestSessionManager()
	ctx := context.Background()

	sess, _ := mgr.Start(ctx, "user-1", "entropy", "", domain.ModeExplore)

	// Simulate a restart by building a fresh manager over the same store.
	mgr2 := NewSessionManager(st, zap.NewNop())
	got, err := mgr2.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Topic != "entropy" {
		t.Errorf("topic = %s, want entropy", got.Topic)
	}
}

func TestGetUnknownSession(t *testing.T) {
	mgr, _ := newTestSessionManager()

	_, err := mgr.Get(context.Background(), "missing1")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("error = %v, want ErrSessionNotFound", err)
	}
}

func TestCompleteEvictsFromMemory(t *testing.T) {
	mgr, _ := newTestSessionManager()
	ctx := context.Background()

	sess, _ := mgr.Start(ctx, "user-1", "entropy", "", domain.ModeExplore)
	if _, err := mgr.Complete(ctx, sess.ID); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	mgr.mu.Lock()
	_, stillActive := mgr.active[sess.ID]
	mgr.mu.Unlock()
	if stillActive {
		t.Error("completed session still in the active map")
	}

	// Still reachable through the store.
	got, err := mgr.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get() after complete error = %v", err)
	}
	if got.Status != domain.SessionCompleted {
		t.Errorf("status = %s, want %s", got.Status, domain.SessionCompleted)
	}
}

func TestSetDepthClampsAndPersists(t *testing.T) {
	mgr, st := newTestSessionManager()
	ctx := context.Background()

	sess, _ := mgr.Start(ctx, "user-1", "entropy", "", domain.ModeExplore)
	if sess.Depth != domain.DefaultLevel {
		t.Errorf("initial depth = %d, want %d", sess.Depth, domain.DefaultLevel)
	}

	sess, err := mgr.SetDepth(ctx, sess.ID, 4)
	if err != nil {
		t.Fatalf("SetDepth() error = %v", err)
	}
	if sess.Depth != 4 {
		t.Errorf("depth = %d, want 4", sess.Depth)
	}
	if st.sessions[sess.ID].Depth != 4 {
		t.Errorf("stored depth = %d, want 4", st.sessions[sess.ID].Depth)
	}

	if sess, _ = mgr.SetDepth(ctx, sess.ID, 9); sess.Depth != domain.MaxDifficultyLevel {
		t.Errorf("depth = %d, want clamp to %d", sess.Depth, domain.MaxDifficultyLevel)
	}
	if sess, _ = mgr.SetDepth(ctx, sess.ID, 0); sess.Depth != domain.MinDifficultyLevel {
		t.Errorf("depth = %d, want clamp to %d", sess.Depth, domain.MinDifficultyLevel)
	}
}

func TestSessionMutatorsWriteThrough(t *testing.T) {
	mgr, st := newTestSessionManager()
	ctx := context.Background()

	sess, _ := mgr.Start(ctx, "user-1", "entropy", "", domain.ModeExplore)

	if _, err := mgr.UpdatePosition(ctx, sess.ID, "Entropy is about counting arrangements."); err != nil {
		t.Fatalf("UpdatePosition() error = %v", err)
	}
	if _, err := mgr.AddInsight(ctx, sess.ID, "Order has a cost."); err != nil {
		t.Fatalf("AddInsight() error = %v", err)
	}
	if _, err := mgr.ChallengePremise(ctx, sess.ID, "Disorder always increases."); err != nil {
		t.Fatalf("ChallengePremise() error = %v", err)
	}

	stored := st.sessions[sess.ID]
	if stored.CurrentPosition != "Entropy is about counting arrangements." {
		t.Errorf("stored position = %q", stored.CurrentPosition)
	}
	if len(stored.SynthesizedInsights) != 1 || stored.SynthesizedInsights[0] != "Order has a cost." {
		t.Errorf("stored insights = %v", stored.SynthesizedInsights)
	}
	if len(stored.ChallengedPremises) != 1 || stored.ChallengedPremises[0] != "Disorder always increases." {
		t.Errorf("stored premises = %v", stored.ChallengedPremises)
	}
}

func TestListFiltersAndSummarizes(t *testing.T) {
	mgr, _ := newTestSessionManager()
	ctx := context.Background()

	s1, _ := mgr.Start(ctx, "user-1", "entropy", "", domain.ModeExplore)
	mgr.Start(ctx, "user-2", "natural selection", "", domain.ModeExplore)
	mgr.AddTurn(ctx, s1.ID, responseTurn("It counts microstates.", domain.QualityExcellent))

	summaries, err := mgr.List(ctx, "user-1", "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("summaries = %d, want 1", len(summaries))
	}
	if summaries[0].AverageQuality != 5 {
		t.Errorf("average quality = %.1f, want 5", summaries[0].AverageQuality)
	}
	if summaries[0].ResponsesGiven != 1 {
		t.Errorf("responses given = %d, want 1", summaries[0].ResponsesGiven)
	}
}

func TestExportJSONRoundTrip(t *testing.T) {
	mgr, _ := newTestSessionManager()
	ctx := context.Background()

	sess, _ := mgr.Start(ctx, "user-1", "entropy", "thermodynamics", domain.ModeExplore)
	mgr.AddTurn(ctx, sess.ID, questionTurn("entropy", "What is entropy?", "entropy"))
	mgr.AddTurn(ctx, sess.ID, responseTurn("It counts microstates.", domain.QualityExcellent))
	mgr.SetDepth(ctx, sess.ID, 4)
	mgr.UpdatePosition(ctx, sess.ID, "It counts microstates.")
	mgr.AddInsight(ctx, sess.ID, "Entropy is combinatorial.")
	mgr.ChallengePremise(ctx, sess.ID, "Disorder always increases.")

	data, err := mgr.ExportJSON(ctx, sess.ID)
	if err != nil {
		t.Fatalf("ExportJSON() error = %v", err)
	}

	var decoded domain.DialogueSession
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if decoded.ID != sess.ID || len(decoded.Turns) != 2 {
		t.Errorf("decoded id=%s turns=%d, want id=%s turns=2", decoded.ID, len(decoded.Turns), sess.ID)
	}
	if decoded.Turns[0].Question == nil || decoded.Turns[0].Question.Text != "What is entropy?" {
		t.Error("question text lost in export round trip")
	}
	if decoded.Turns[0].Speaker != domain.SpeakerSystem {
		t.Errorf("turn speaker = %s, want %s", decoded.Turns[0].Speaker, domain.SpeakerSystem)
	}
	if decoded.Depth != 4 {
		t.Errorf("decoded depth = %d, want 4", decoded.Depth)
	}
	if decoded.CurrentPosition != "It counts microstates." {
		t.Errorf("decoded position = %q", decoded.CurrentPosition)
	}
	if len(decoded.SynthesizedInsights) != 1 || len(decoded.ChallengedPremises) != 1 {
		t.Errorf("decoded insights = %v, premises = %v",
			decoded.SynthesizedInsights, decoded.ChallengedPremises)
	}
}

func TestExportMarkdown(t *testing.T) {
	mgr, _ := newTestSessionManager()
	ctx := context.Background()

	sess, _ := mgr.Start(ctx, "user-1", "entropy", "", domain.ModeExplore)
	mgr.AddTurn(ctx, sess.ID, questionTurn("entropy", "What is entropy?"))
	mgr.AddTurn(ctx, sess.ID, responseTurn("It counts microstates.", domain.QualityGood))
	mgr.UpdatePosition(ctx, sess.ID, "It counts microstates.")
	mgr.AddInsight(ctx, sess.ID, "Entropy is combinatorial.")

	md, err := mgr.ExportMarkdown(ctx, sess.ID)
	if err != nil {
		t.Fatalf("ExportMarkdown() error = %v", err)
	}

	for _, want := range []string{
		"# Dialogue: entropy",
		"What is entropy?",
		"It counts microstates.",
		"## Transcript",
		"Current position:",
		"## Insights",
		"Entropy is combinatorial.",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestDeleteSession(t *testing.T) {
	mgr, _ := newTestSessionManager()
	ctx := context.Background()

	sess, _ := mgr.Start(ctx, "user-1", "entropy", "", domain.ModeExplore)
	if err := mgr.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := mgr.Get(ctx, sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrSessionNotFound", err)
	}
	if err := mgr.Delete(ctx, sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second Delete() error = %v, want ErrSessionNotFound", err)
	}
}

func TestProgressAggregatesSessions(t *testing.T) {
	mgr, _ := newTestSessionManager()
	ctx := context.Background()

	s1, _ := mgr.Start(ctx, "user-1", "entropy", "", domain.ModeExplore)
	s2, _ := mgr.Start(ctx, "user-1", "natural selection", "", domain.ModeExplore)
	mgr.Start(ctx, "user-2", "entropy", "", domain.ModeExplore)

	mgr.AddTurn(ctx, s1.ID, questionTurn("entropy", "What is entropy?", "entropy"))
	mgr.AddTurn(ctx, s1.ID, responseTurn("Disorder.", domain.QualityAdequate))
	mgr.AddTurn(ctx, s2.ID, questionTurn("natural selection", "What selects?", "natural_selection"))
	mgr.Complete(ctx, s1.ID)

	progress, err := mgr.Progress(ctx, "user-1")
	if err != nil {
		t.Fatalf("Progress() error = %v", err)
	}

	if progress.Sessions != 2 {
		t.Errorf("sessions = %d, want 2", progress.Sessions)
	}
	if progress.Completed != 1 {
		t.Errorf("completed = %d, want 1", progress.Completed)
	}
	if progress.TotalResponses != 1 {
		t.Errorf("total responses = %d, want 1", progress.TotalResponses)
	}
	if len(progress.TopicsExplored) != 2 {
		t.Errorf("topics explored = %v, want 2 entries", progress.TopicsExplored)
	}
}
