package domain

import "time"

type ResponseQuality string

const (
	QualityExcellent  ResponseQuality = "excellent"
	QualityGood       ResponseQuality = "good"
	QualityAdequate   ResponseQuality = "adequate"
	QualityPartial    ResponseQuality = "partial"
	QualityStruggling ResponseQuality = "struggling"
)

func ValidResponseQuality(q string) bool {
	switch ResponseQuality(q) {
	case QualityExcellent, QualityGood, QualityAdequate, QualityPartial, QualityStruggling:
		return true
	}
	return false
}

// Score maps quality to a 1-5 scale for history averaging.
func (q ResponseQuality) Score() int {
	switch q {
	case QualityExcellent:
		return 5
	case QualityGood:
		return 4
	case QualityAdequate:
		return 3
	case QualityPartial:
		return 2
	case QualityStruggling:
		return 1
	default:
		return 3
	}
}

type EngagementLevel string

const (
	EngagementHigh   EngagementLevel = "high"
	EngagementMedium EngagementLevel = "medium"
	EngagementLow    EngagementLevel = "low"
)

func ValidEngagementLevel(e string) bool {
	switch EngagementLevel(e) {
	case EngagementHigh, EngagementMedium, EngagementLow:
		return true
	}
	return false
}

// ResponseAnalysis is the outcome of analyzing a single learner response.
type ResponseAnalysis struct {
	Quality              ResponseQuality `json:"quality"`
	Engagement           EngagementLevel `json:"engagement"`
	Signals              []string        `json:"signals,omitempty"`
	DifficultyAdjustment int             `json:"difficulty_adjustment"`
	Breakthrough         bool            `json:"breakthrough"`
}

// Signal names attached to ResponseAnalysis.Signals.
const (
	SignalDetailedResponse  = "detailed_response"
	SignalVeryShortResponse = "very_short_response"
	SignalLongThinkingTime  = "long_thinking_time"
	SignalAhaMoment         = "aha_moment"
	SignalMakesConnections  = "makes_connections"
	SignalDeepInsight       = "deep_insight"
)

const (
	MinDifficultyLevel = 1
	MaxDifficultyLevel = 5
	DefaultLevel       = 3
)

// UserProfile tracks a learner's level and topic history. Level is 1-5.
type UserProfile struct {
	UserID           string    `json:"user_id"`
	Level            int       `json:"level"`
	QualityHistory   []int     `json:"quality_history,omitempty"`
	ExpertiseTopics  []string  `json:"expertise_topics,omitempty"`
	StrugglingTopics []string  `json:"struggling_topics,omitempty"`
	MasteredTopics   []string  `json:"mastered_topics,omitempty"`
	TotalResponses   int       `json:"total_responses"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func NewUserProfile(userID string) *UserProfile {
	return &UserProfile{
		UserID: userID,
		Level:  DefaultLevel,
	}
}

// ZPDRange is the band of difficulty a learner can handle with guidance.
type ZPDRange struct {
	Lower int `json:"lower"`
	Upper int `json:"upper"`
}

type HintKind string

const (
	HintDirect    HintKind = "direct_hint"
	HintGuiding   HintKind = "guiding_question"
	HintEncourage HintKind = "encouragement"
)

type HintDecision struct {
	Provide bool     `json:"provide"`
	Kind    HintKind `json:"kind,omitempty"`
	Message string   `json:"message,omitempty"`
}

// PerformanceSummary aggregates a profile's quality history.
type PerformanceSummary struct {
	UserID         string   `json:"user_id"`
	Level          int      `json:"level"`
	TotalResponses int      `json:"total_responses"`
	AverageQuality float64  `json:"average_quality"`
	RecentAverage  float64  `json:"recent_average"`
	Trend          string   `json:"trend"`
	Mastered       []string `json:"mastered,omitempty"`
	Struggling     []string `json:"struggling,omitempty"`
}
