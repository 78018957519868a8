package service

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/Harshitk-cp/polymath/internal/domain"
	"go.uber.org/zap"
)

// DifficultyEngine classifies learner responses against lexicons and keeps
// per-user profiles that drive question difficulty.
type DifficultyEngine struct {
	lexicons Lexicons
	language string
	logger   *zap.Logger

	mu       sync.Mutex
	profiles map[string]*domain.UserProfile
}

func NewDifficultyEngine(lexicons Lexicons, language string, logger *zap.Logger) *DifficultyEngine {
	if language == "" {
		language = DefaultLanguage
	}
	return &DifficultyEngine{
		lexicons: lexicons,
		language: language,
		logger:   logger,
		profiles: make(map[string]*domain.UserProfile),
	}
}

const (
	detailedResponseLen  = 200
	veryShortResponseLen = 20
	longThinkingSeconds  = 180
	fastResponseSeconds  = 30
	slowResponseSeconds  = 120

	levelUpAverage      = 4.5
	levelDownAverage    = 2.0
	historyWindow       = 5
	masteryWindow       = 3
	masteryMinScore     = 4
	zpdWidenHighAvg     = 4.0
	zpdWidenLowAvg      = 2.0
	hintBaseSeconds     = 60
	hintPerLevelSeconds = 30

	guardLevelHigh    = 4
	guardLevelLow     = 2
	guardedAdjustment = 0.5
)

// Analyze classifies one response. Level and thinking time feed the
// difficulty adjustment: quality moves it a whole step, engagement and pace
// half a step, and the swing is damped near either end of the scale.
func (e *DifficultyEngine) Analyze(text string, thinkingSeconds, level int) domain.ResponseAnalysis {
	lex := e.lexicons.ForLanguage(e.language)

	excellentHits := countHits(text, lex.Excellent)
	goodHits := countHits(text, lex.Good)
	strugglingHits := countHits(text, lex.Struggling)

	var quality domain.ResponseQuality
	switch {
	case excellentHits >= 2:
		quality = domain.QualityExcellent
	case goodHits >= 2 && strugglingHits == 0:
		quality = domain.QualityGood
	case strugglingHits >= 2:
		quality = domain.QualityStruggling
	case strugglingHits >= 1:
		quality = domain.QualityPartial
	default:
		quality = domain.QualityAdequate
	}

	highHits := countHits(text, lex.HighEngagement)
	lowHits := countHits(text, lex.LowEngagement)

	engagement := domain.EngagementMedium
	switch {
	case highHits >= 2:
		engagement = domain.EngagementHigh
	case lowHits >= 2:
		engagement = domain.EngagementLow
	}

	var signals []string
	if len(text) > detailedResponseLen {
		signals = append(signals, domain.SignalDetailedResponse)
	}
	if len(strings.TrimSpace(text)) < veryShortResponseLen {
		signals = append(signals, domain.SignalVeryShortResponse)
	}
	if thinkingSeconds > longThinkingSeconds {
		signals = append(signals, domain.SignalLongThinkingTime)
	}
	if anyHit(text, lex.Breakthrough) {
		signals = append(signals, domain.SignalAhaMoment)
	}
	if anyHit(text, lex.Connection) {
		signals = append(signals, domain.SignalMakesConnections)
	}
	if anyHit(text, lex.Insight) && excellentHits > 0 {
		signals = append(signals, domain.SignalDeepInsight)
	}

	breakthrough := anyHit(text, lex.Breakthrough)

	return domain.ResponseAnalysis{
		Quality:              quality,
		Engagement:           engagement,
		Signals:              signals,
		DifficultyAdjustment: adjustment(level, quality, engagement, thinkingSeconds),
		Breakthrough:         breakthrough,
	}
}

func adjustment(level int, quality domain.ResponseQuality, engagement domain.EngagementLevel, thinkingSeconds int) int {
	var adj float64
	switch quality {
	case domain.QualityExcellent:
		adj = 1
	case domain.QualityStruggling:
		adj = -1
	}

	switch engagement {
	case domain.EngagementHigh:
		adj += 0.5
	case domain.EngagementLow:
		adj -= 0.5
	}

	// Pace term: quick and accurate nudges up, slow and off-target down.
	if thinkingSeconds < fastResponseSeconds && quality.Score() >= domain.QualityGood.Score() {
		adj += 0.5
	} else if thinkingSeconds > slowResponseSeconds && quality.Score() <= domain.QualityPartial.Score() {
		adj -= 0.5
	}

	// Near either end of the scale the swing is capped at half a step.
	if level >= guardLevelHigh && adj > guardedAdjustment {
		adj = guardedAdjustment
	} else if level <= guardLevelLow && adj < -guardedAdjustment {
		adj = -guardedAdjustment
	}

	// Half-to-even keeps a capped half-step from registering as a full one.
	return int(math.RoundToEven(adj))
}

// Profile returns the profile for a user, creating it at the default level.
func (e *DifficultyEngine) Profile(userID string) *domain.UserProfile {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profileLocked(userID)
}

func (e *DifficultyEngine) profileLocked(userID string) *domain.UserProfile {
	p, ok := e.profiles[userID]
	if !ok {
		p = domain.NewUserProfile(userID)
		e.profiles[userID] = p
	}
	return p
}

// UpdateProfile records a quality result for a topic. Level moves by at most
// one step, and only once the trailing window is full. Expertise and
// struggling sets stay mutually exclusive.
func (e *DifficultyEngine) UpdateProfile(userID, topic string, quality domain.ResponseQuality) *domain.UserProfile {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.profileLocked(userID)
	p.QualityHistory = append(p.QualityHistory, quality.Score())
	p.TotalResponses++
	p.UpdatedAt = time.Now()

	if len(p.QualityHistory) >= historyWindow {
		avg := average(p.QualityHistory[len(p.QualityHistory)-historyWindow:])
		switch {
		case avg >= levelUpAverage && p.Level < domain.MaxDifficultyLevel:
			p.Level++
			e.logger.Info("difficulty level raised",
				zap.String("user_id", userID), zap.Int("level", p.Level))
		case avg <= levelDownAverage && p.Level > domain.MinDifficultyLevel:
			p.Level--
			e.logger.Info("difficulty level lowered",
				zap.String("user_id", userID), zap.Int("level", p.Level))
		}
	}

	if topic != "" {
		switch quality {
		case domain.QualityExcellent:
			p.ExpertiseTopics = addTopic(p.ExpertiseTopics, topic)
			p.StrugglingTopics = removeTopic(p.StrugglingTopics, topic)
		case domain.QualityStruggling:
			p.StrugglingTopics = addTopic(p.StrugglingTopics, topic)
			p.ExpertiseTopics = removeTopic(p.ExpertiseTopics, topic)
		}

		if len(p.QualityHistory) >= masteryWindow {
			recent := p.QualityHistory[len(p.QualityHistory)-masteryWindow:]
			mastered := true
			for _, score := range recent {
				if score < masteryMinScore {
					mastered = false
					break
				}
			}
			if mastered {
				p.MasteredTopics = addTopic(p.MasteredTopics, topic)
			}
		}
	}

	return p
}

// QuestionLevel is the level to ask questions at for a topic: the profile
// level, nudged one step up in an expertise topic and one step down in a
// struggling one, clamped to the scale.
func (e *DifficultyEngine) QuestionLevel(userID, topic string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.profileLocked(userID)
	level := p.Level
	switch {
	case hasTopic(p.ExpertiseTopics, topic):
		if level < domain.MaxDifficultyLevel {
			level++
		}
	case hasTopic(p.StrugglingTopics, topic):
		if level > domain.MinDifficultyLevel {
			level--
		}
	}
	return level
}

// ZPD returns the band of levels the learner can handle, widened by a
// consistently strong or weak trailing window.
func (e *DifficultyEngine) ZPD(userID string) domain.ZPDRange {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.profileLocked(userID)
	lower := p.Level - 1
	upper := p.Level + 1

	if len(p.QualityHistory) >= historyWindow {
		avg := average(p.QualityHistory[len(p.QualityHistory)-historyWindow:])
		if avg >= zpdWidenHighAvg {
			upper++
		}
		if avg <= zpdWidenLowAvg {
			lower--
		}
	}

	if lower < domain.MinDifficultyLevel {
		lower = domain.MinDifficultyLevel
	}
	if upper > domain.MaxDifficultyLevel {
		upper = domain.MaxDifficultyLevel
	}
	return domain.ZPDRange{Lower: lower, Upper: upper}
}

// MaxHints is how many hints one question allows at a given level. Lower
// levels get more support.
func MaxHints(level int) int {
	return 6 - level
}

// Hint decides whether to help a stuck learner and how directly. The wait
// threshold shortens as the level drops.
func (e *DifficultyEngine) Hint(userID string, secondsStuck, attempts int) domain.HintDecision {
	p := e.Profile(userID)

	threshold := hintBaseSeconds + (domain.MaxDifficultyLevel-p.Level)*hintPerLevelSeconds
	if secondsStuck < threshold {
		return domain.HintDecision{Provide: false}
	}
	if attempts >= MaxHints(p.Level) {
		return domain.HintDecision{Provide: false}
	}

	var kind domain.HintKind
	switch {
	case attempts >= 2:
		kind = domain.HintDirect
	case attempts == 1:
		kind = domain.HintGuiding
	default:
		kind = domain.HintEncourage
	}

	return domain.HintDecision{
		Provide: true,
		Kind:    kind,
		Message: hintMessage(kind),
	}
}

func hintMessage(kind domain.HintKind) string {
	switch kind {
	case domain.HintDirect:
		return "Here is a direct pointer: focus on the one assumption the question challenges."
	case domain.HintGuiding:
		return "Try breaking the question into its smallest parts. What must be true first?"
	default:
		return "Take your time. Getting stuck here usually means you are close to the interesting part."
	}
}

// Encouragement returns a short message matched to response quality.
func Encouragement(quality domain.ResponseQuality) string {
	switch quality {
	case domain.QualityExcellent:
		return "Excellent reasoning. You are making connections most people miss."
	case domain.QualityGood:
		return "Good thinking. Push one level deeper and see what holds."
	case domain.QualityStruggling:
		return "This is a hard idea. Struggling with it is how understanding starts."
	case domain.QualityPartial:
		return "You are partway there. What part still feels unclear?"
	default:
		return "Keep going. Try restating the idea in your own words."
	}
}

// Summary aggregates a user's quality history into a performance report.
func (e *DifficultyEngine) Summary(userID string) domain.PerformanceSummary {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.profileLocked(userID)
	summary := domain.PerformanceSummary{
		UserID:         userID,
		Level:          p.Level,
		TotalResponses: p.TotalResponses,
		Mastered:       p.MasteredTopics,
		Struggling:     p.StrugglingTopics,
		Trend:          "stable",
	}

	if len(p.QualityHistory) == 0 {
		return summary
	}

	summary.AverageQuality = average(p.QualityHistory)
	recent := p.QualityHistory
	if len(recent) > masteryWindow {
		recent = recent[len(recent)-masteryWindow:]
	}
	summary.RecentAverage = average(recent)

	switch {
	case summary.RecentAverage > summary.AverageQuality+0.3:
		summary.Trend = "improving"
	case summary.RecentAverage < summary.AverageQuality-0.3:
		summary.Trend = "declining"
	}
	return summary
}

// SuggestPath returns a short learning-path suggestion for the user's level.
func (e *DifficultyEngine) SuggestPath(userID, topic string) string {
	p := e.Profile(userID)
	switch {
	case p.Level <= 2:
		return fmt.Sprintf("Build foundations: revisit the core definitions of %s with concrete examples before abstracting.", topic)
	case p.Level == 3:
		return fmt.Sprintf("Apply it: take %s into a worked problem or a neighboring domain and test where it bends.", topic)
	default:
		return fmt.Sprintf("Go to the frontier: find where %s breaks down and what open questions live there.", topic)
	}
}

// ExtractInsights pulls sentences that contain insight markers, capped at
// three.
func (e *DifficultyEngine) ExtractInsights(text string) []string {
	lex := e.lexicons.ForLanguage(e.language)

	var insights []string
	for _, sentence := range splitSentences(text) {
		if anyHit(sentence, lex.Insight) || anyHit(sentence, lex.Breakthrough) {
			insights = append(insights, strings.TrimSpace(sentence))
			if len(insights) == 3 {
				break
			}
		}
	}
	return insights
}

func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '?' || r == '!'
	})
}

func average(scores []int) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return float64(sum) / float64(len(scores))
}

func hasTopic(topics []string, topic string) bool {
	for _, t := range topics {
		if t == topic {
			return true
		}
	}
	return false
}

func addTopic(topics []string, topic string) []string {
	if hasTopic(topics, topic) {
		return topics
	}
	return append(topics, topic)
}

func removeTopic(topics []string, topic string) []string {
	out := topics[:0]
	for _, t := range topics {
		if t != topic {
			out = append(out, t)
		}
	}
	return out
}
