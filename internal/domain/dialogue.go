package domain

import "time"

type QuestionStrategy string

const (
	StrategyClarify    QuestionStrategy = "clarify"
	StrategyExpand     QuestionStrategy = "expand"
	StrategyConnect    QuestionStrategy = "connect"
	StrategyChallenge  QuestionStrategy = "challenge"
	StrategyDeepen     QuestionStrategy = "deepen"
	StrategySynthesize QuestionStrategy = "synthesize"
	StrategyMeta       QuestionStrategy = "meta"
)

func ValidQuestionStrategy(s string) bool {
	switch QuestionStrategy(s) {
	case StrategyClarify, StrategyExpand, StrategyConnect, StrategyChallenge,
		StrategyDeepen, StrategySynthesize, StrategyMeta:
		return true
	}
	return false
}

type DialogueMode string

const (
	ModeExplore    DialogueMode = "explore"
	ModeChallenge  DialogueMode = "challenge"
	ModeSynthesize DialogueMode = "synthesize"
)

func ValidDialogueMode(m string) bool {
	switch DialogueMode(m) {
	case ModeExplore, ModeChallenge, ModeSynthesize:
		return true
	}
	return false
}

// StrategiesForMode returns the strategy set a mode draws from.
func StrategiesForMode(m DialogueMode) []QuestionStrategy {
	switch m {
	case ModeChallenge:
		return []QuestionStrategy{StrategyChallenge, StrategyDeepen, StrategyMeta}
	case ModeSynthesize:
		return []QuestionStrategy{StrategyConnect, StrategySynthesize, StrategyMeta}
	default:
		return []QuestionStrategy{StrategyClarify, StrategyExpand, StrategyConnect}
	}
}

type QuestionDepth string

const (
	DepthShallow QuestionDepth = "shallow"
	DepthMedium  QuestionDepth = "medium"
	DepthDeep    QuestionDepth = "deep"
)

// DepthForLevel maps a learner level to a target question depth.
func DepthForLevel(level int) QuestionDepth {
	switch {
	case level <= 2:
		return DepthShallow
	case level == 3:
		return DepthMedium
	default:
		return DepthDeep
	}
}

type SocraticQuestion struct {
	Text       string           `json:"text"`
	Strategy   QuestionStrategy `json:"strategy"`
	Depth      QuestionDepth    `json:"depth"`
	Topic      string           `json:"topic"`
	Difficulty int              `json:"difficulty"`
}

// Turn speakers.
const (
	SpeakerUser   = "user"
	SpeakerSystem = "system"
)

type DialogueTurn struct {
	Index           int               `json:"index"`
	Speaker         string            `json:"speaker,omitempty"`
	Question        *SocraticQuestion `json:"question,omitempty"`
	Response        string            `json:"response,omitempty"`
	Analysis        *ResponseAnalysis `json:"analysis,omitempty"`
	Insights        []string          `json:"insights,omitempty"`
	RelatedConcepts []string          `json:"related_concepts,omitempty"`
	ThinkingSeconds int               `json:"thinking_seconds,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
)

func ValidSessionStatus(s string) bool {
	switch SessionStatus(s) {
	case SessionActive, SessionPaused, SessionCompleted:
		return true
	}
	return false
}

// DialogueSession is the full durable record of one Socratic session.
// Turns are append-only; counters are updated with each append.
type DialogueSession struct {
	ID                  string         `json:"id"`
	UserID              string         `json:"user_id"`
	Topic               string         `json:"topic"`
	Domain              string         `json:"domain,omitempty"`
	Mode                DialogueMode   `json:"mode"`
	Status              SessionStatus  `json:"status"`
	Depth               int            `json:"depth"`
	CurrentPosition     string         `json:"current_position,omitempty"`
	Turns               []DialogueTurn `json:"turns"`
	QuestionsAsked      int            `json:"questions_asked"`
	ResponsesGiven      int            `json:"responses_given"`
	ConceptsExplored    []string       `json:"concepts_explored,omitempty"`
	SynthesizedInsights []string       `json:"synthesized_insights,omitempty"`
	ChallengedPremises  []string       `json:"challenged_premises,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// SessionSummary is the lightweight projection used by list and export.
type SessionSummary struct {
	ID               string        `json:"id"`
	UserID           string        `json:"user_id"`
	Topic            string        `json:"topic"`
	Status           SessionStatus `json:"status"`
	Turns            int           `json:"turns"`
	QuestionsAsked   int           `json:"questions_asked"`
	ResponsesGiven   int           `json:"responses_given"`
	ConceptsExplored []string      `json:"concepts_explored,omitempty"`
	AverageQuality   float64       `json:"average_quality"`
	DurationSeconds  float64       `json:"duration_seconds"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// UserProgress aggregates a user's sessions.
type UserProgress struct {
	UserID         string   `json:"user_id"`
	Sessions       int      `json:"sessions"`
	Completed      int      `json:"completed"`
	TotalResponses int      `json:"total_responses"`
	TopicsExplored []string `json:"topics_explored,omitempty"`
}
