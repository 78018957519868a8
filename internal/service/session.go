package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Harshitk-cp/polymath/internal/domain"
	"github.com/Harshitk-cp/polymath/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionCompleted = errors.New("session already completed")
	// ErrPersistFailed wraps a store failure on write-through. The in-memory
	// state already includes the change when this is returned.
	ErrPersistFailed = errors.New("session persist failed")
)

// SessionManager keeps active sessions in memory and writes every mutation
// through to the durable store.
type SessionManager struct {
	store  domain.SessionStore
	logger *zap.Logger

	mu     sync.Mutex
	active map[string]*domain.DialogueSession
}

func NewSessionManager(sessionStore domain.SessionStore, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		store:  sessionStore,
		logger: logger,
		active: make(map[string]*domain.DialogueSession),
	}
}

func (m *SessionManager) Start(ctx context.Context, userID, topic, dom string, mode domain.DialogueMode) (*domain.DialogueSession, error) {
	if userID == "" || topic == "" {
		return nil, errors.New("user_id and topic are required")
	}
	if mode == "" {
		mode = domain.ModeExplore
	}

	now := time.Now().UTC()
	sess := &domain.DialogueSession{
		ID:        uuid.NewString()[:8],
		UserID:    userID,
		Topic:     topic,
		Domain:    dom,
		Mode:      mode,
		Status:    domain.SessionActive,
		Depth:     domain.DefaultLevel,
		Turns:     []domain.DialogueTurn{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("persist new session: %w", err)
	}

	m.mu.Lock()
	m.active[sess.ID] = sess
	m.mu.Unlock()

	m.logger.Info("session started",
		zap.String("session_id", sess.ID),
		zap.String("user_id", userID),
		zap.String("topic", topic))
	return sess, nil
}

// Get checks the in-memory map first and rehydrates from the store on miss.
func (m *SessionManager) Get(ctx context.Context, id string) (*domain.DialogueSession, error) {
	m.mu.Lock()
	if sess, ok := m.active[id]; ok {
		m.mu.Unlock()
		return sess, nil
	}
	m.mu.Unlock()

	sess, err := m.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	m.mu.Lock()
	m.active[id] = sess
	m.mu.Unlock()
	return sess, nil
}

// AddTurn appends a turn and updates the session counters in one step, then
// writes through. A persist failure keeps the in-memory turn and is returned
// wrapped in ErrPersistFailed so callers can surface degraded durability.
func (m *SessionManager) AddTurn(ctx context.Context, id string, turn domain.DialogueTurn) (*domain.DialogueSession, error) {
	sess, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Status == domain.SessionCompleted {
		return nil, ErrSessionCompleted
	}

	m.mu.Lock()
	turn.Index = len(sess.Turns)
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	if turn.Speaker == "" {
		turn.Speaker = domain.SpeakerSystem
		if turn.Response != "" {
			turn.Speaker = domain.SpeakerUser
		}
	}
	sess.Turns = append(sess.Turns, turn)
	if turn.Question != nil {
		sess.QuestionsAsked++
	}
	if turn.Response != "" {
		sess.ResponsesGiven++
	}
	for _, c := range turn.RelatedConcepts {
		sess.ConceptsExplored = addTopic(sess.ConceptsExplored, c)
	}
	sess.UpdatedAt = time.Now().UTC()
	m.mu.Unlock()

	if err := m.store.Save(ctx, sess); err != nil {
		m.logger.Error("session write-through failed",
			zap.String("session_id", id), zap.Error(err))
		return sess, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	return sess, nil
}

// mutate applies fn to a session under the lock and writes the change
// through, wrapping store failures in ErrPersistFailed.
func (m *SessionManager) mutate(ctx context.Context, id string, fn func(*domain.DialogueSession)) (*domain.DialogueSession, error) {
	sess, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	fn(sess)
	sess.UpdatedAt = time.Now().UTC()
	m.mu.Unlock()

	if err := m.store.Save(ctx, sess); err != nil {
		return sess, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	return sess, nil
}

func (m *SessionManager) SetStatus(ctx context.Context, id string, status domain.SessionStatus) (*domain.DialogueSession, error) {
	sess, err := m.mutate(ctx, id, func(s *domain.DialogueSession) {
		s.Status = status
	})
	if err != nil {
		return sess, err
	}

	if status == domain.SessionCompleted {
		m.mu.Lock()
		delete(m.active, id)
		m.mu.Unlock()
	}
	return sess, nil
}

// SetDepth records the working question difficulty, clamped to the level
// scale.
func (m *SessionManager) SetDepth(ctx context.Context, id string, depth int) (*domain.DialogueSession, error) {
	if depth < domain.MinDifficultyLevel {
		depth = domain.MinDifficultyLevel
	}
	if depth > domain.MaxDifficultyLevel {
		depth = domain.MaxDifficultyLevel
	}
	return m.mutate(ctx, id, func(s *domain.DialogueSession) {
		s.Depth = depth
	})
}

// UpdatePosition replaces the learner's current stance on the topic.
func (m *SessionManager) UpdatePosition(ctx context.Context, id, position string) (*domain.DialogueSession, error) {
	return m.mutate(ctx, id, func(s *domain.DialogueSession) {
		s.CurrentPosition = position
	})
}

// AddInsight appends an insight surfaced during the dialogue.
func (m *SessionManager) AddInsight(ctx context.Context, id, insight string) (*domain.DialogueSession, error) {
	return m.mutate(ctx, id, func(s *domain.DialogueSession) {
		s.SynthesizedInsights = append(s.SynthesizedInsights, insight)
	})
}

// ChallengePremise records a premise the dialogue has put under challenge.
func (m *SessionManager) ChallengePremise(ctx context.Context, id, premise string) (*domain.DialogueSession, error) {
	return m.mutate(ctx, id, func(s *domain.DialogueSession) {
		s.ChallengedPremises = append(s.ChallengedPremises, premise)
	})
}

func (m *SessionManager) Complete(ctx context.Context, id string) (*domain.DialogueSession, error) {
	return m.SetStatus(ctx, id, domain.SessionCompleted)
}

func (m *SessionManager) Pause(ctx context.Context, id string) (*domain.DialogueSession, error) {
	return m.SetStatus(ctx, id, domain.SessionPaused)
}

func (m *SessionManager) Resume(ctx context.Context, id string) (*domain.DialogueSession, error) {
	return m.SetStatus(ctx, id, domain.SessionActive)
}

func (m *SessionManager) List(ctx context.Context, userID string, status domain.SessionStatus) ([]domain.SessionSummary, error) {
	sessions, err := m.store.List(ctx, domain.SessionFilter{UserID: userID, Status: status})
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.SessionSummary, 0, len(sessions))
	for i := range sessions {
		summaries = append(summaries, Summarize(&sessions[i]))
	}
	return summaries, nil
}

func (m *SessionManager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()

	err := m.store.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrSessionNotFound
	}
	return err
}

// Summarize projects a session into its list/export summary.
func Summarize(sess *domain.DialogueSession) domain.SessionSummary {
	summary := domain.SessionSummary{
		ID:               sess.ID,
		UserID:           sess.UserID,
		Topic:            sess.Topic,
		Status:           sess.Status,
		Turns:            len(sess.Turns),
		QuestionsAsked:   sess.QuestionsAsked,
		ResponsesGiven:   sess.ResponsesGiven,
		ConceptsExplored: sess.ConceptsExplored,
		DurationSeconds:  sess.UpdatedAt.Sub(sess.CreatedAt).Seconds(),
		CreatedAt:        sess.CreatedAt,
		UpdatedAt:        sess.UpdatedAt,
	}

	var total, counted int
	for _, turn := range sess.Turns {
		if turn.Analysis != nil {
			total += turn.Analysis.Quality.Score()
			counted++
		}
	}
	if counted > 0 {
		summary.AverageQuality = float64(total) / float64(counted)
	}
	return summary
}

// ExportJSON returns the full session record as indented JSON.
func (m *SessionManager) ExportJSON(ctx context.Context, id string) ([]byte, error) {
	sess, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(sess, "", "  ")
}

// ExportMarkdown renders a human-readable session transcript.
func (m *SessionManager) ExportMarkdown(ctx context.Context, id string) (string, error) {
	sess, err := m.Get(ctx, id)
	if err != nil {
		return "", err
	}

	summary := Summarize(sess)
	var b strings.Builder

	fmt.Fprintf(&b, "# Dialogue: %s\n\n", sess.Topic)
	fmt.Fprintf(&b, "- Session: %s\n", sess.ID)
	fmt.Fprintf(&b, "- User: %s\n", sess.UserID)
	fmt.Fprintf(&b, "- Status: %s\n", sess.Status)
	fmt.Fprintf(&b, "- Started: %s\n", sess.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Duration: %s\n", time.Duration(summary.DurationSeconds*float64(time.Second)).Round(time.Second))
	fmt.Fprintf(&b, "- Questions asked: %d, responses given: %d\n\n", sess.QuestionsAsked, sess.ResponsesGiven)

	if len(sess.ConceptsExplored) > 0 {
		fmt.Fprintf(&b, "Concepts explored: %s\n\n", strings.Join(sess.ConceptsExplored, ", "))
	}
	if sess.CurrentPosition != "" {
		fmt.Fprintf(&b, "Current position: %s\n\n", sess.CurrentPosition)
	}

	b.WriteString("## Transcript\n\n")
	for _, turn := range sess.Turns {
		if turn.Question != nil {
			fmt.Fprintf(&b, "**Q%d (%s):** %s\n\n", turn.Index+1, turn.Question.Strategy, turn.Question.Text)
		}
		if turn.Response != "" {
			fmt.Fprintf(&b, "**A:** %s\n\n", turn.Response)
		}
		if turn.Analysis != nil {
			fmt.Fprintf(&b, "_Quality: %s, engagement: %s_\n\n", turn.Analysis.Quality, turn.Analysis.Engagement)
		}
		for _, insight := range turn.Insights {
			fmt.Fprintf(&b, "> Insight: %s\n\n", insight)
		}
	}

	if len(sess.SynthesizedInsights) > 0 {
		b.WriteString("## Insights\n\n")
		for _, insight := range sess.SynthesizedInsights {
			fmt.Fprintf(&b, "- %s\n", insight)
		}
		b.WriteString("\n")
	}
	if len(sess.ChallengedPremises) > 0 {
		b.WriteString("## Premises challenged\n\n")
		for _, premise := range sess.ChallengedPremises {
			fmt.Fprintf(&b, "- %s\n", premise)
		}
		b.WriteString("\n")
	}

	if summary.AverageQuality > 0 {
		fmt.Fprintf(&b, "Average response quality: %.1f/5\n", summary.AverageQuality)
	}
	return b.String(), nil
}

// Progress aggregates one user's sessions.
func (m *SessionManager) Progress(ctx context.Context, userID string) (*domain.UserProgress, error) {
	sessions, err := m.store.List(ctx, domain.SessionFilter{UserID: userID})
	if err != nil {
		return nil, err
	}

	progress := &domain.UserProgress{UserID: userID, Sessions: len(sessions)}
	for i := range sessions {
		if sessions[i].Status == domain.SessionCompleted {
			progress.Completed++
		}
		progress.TotalResponses += sessions[i].ResponsesGiven
		for _, c := range sessions[i].ConceptsExplored {
			progress.TopicsExplored = addTopic(progress.TopicsExplored, c)
		}
	}
	return progress, nil
}
