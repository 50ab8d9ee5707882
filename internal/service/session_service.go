package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mandarin-tutor-api/internal/models"
	appErrors "github.com/noah-isme/mandarin-tutor-api/pkg/errors"
)

// apologyReply is returned verbatim when a turn cannot be processed, so
// the child never sees an error message.
const apologyReply = "对不起! Sorry, I got a little confused. Can you say that again?"

// adoptConfidenceMin is the confidence a level estimate must exceed before
// the session adopts it mid-conversation.
const adoptConfidenceMin = 0.7

type sessionProfileStore interface {
	Save(ctx context.Context, profile *models.StudentProfile) error
	Load(ctx context.Context, sessionID string) (*models.StudentProfile, error)
}

type sessionLogWriter interface {
	Filename(sessionID string, startTime time.Time) string
	Write(ctx context.Context, filename string, session *models.ChatSession) error
}

type sessionLevelEstimator interface {
	Estimate(ctx context.Context, messages []models.ChatMessage) LevelEstimate
}

type sessionPolicyGenerator interface {
	Generate(ctx context.Context, emotion models.EmotionState, level models.LanguageLevel, trend models.EmotionTrend, extra map[string]string) string
}

type sessionEmotionService interface {
	Classify(ctx context.Context, text string) models.EmotionState
	CalculateTrend(history []models.EmotionState) models.EmotionTrend
	NeedsIntervention(current models.EmotionState, trend models.EmotionTrend) bool
}

type sessionWordService interface {
	ExtractHanWords(text string) []string
	Lookup(word string) (models.WordKnowledge, bool)
}

// farewells close a session with a tone matched to the child's last
// detected emotion.
var farewells = map[models.EmotionState]string{
	models.EmotionExcited:    "再见! You were amazing today, see you next time! 🌟",
	models.EmotionHappy:      "再见! Great job today, keep smiling! 😊",
	models.EmotionNeutral:    "再见! Thanks for practicing with me today!",
	models.EmotionFrustrated: "再见! You worked so hard today, I'm proud of you. Next time will be easier!",
	models.EmotionTired:      "再见! Get some good rest, you earned it!",
	models.EmotionSad:        "再见! Remember, I'm always happy to see you. Take care! 💛",
}

// TurnResult is the outcome of one processed user message.
type TurnResult struct {
	Reply             string               `json:"reply"`
	Emotion           models.EmotionState  `json:"emotion"`
	Trend             models.EmotionTrend  `json:"emotion_trend"`
	NeedsIntervention bool                 `json:"needs_intervention"`
	Level             models.LanguageLevel `json:"language_level"`
	LevelChanged      bool                 `json:"level_changed"`
	WordsTaught       []string             `json:"words_taught,omitempty"`
}

// SessionSummary is a point-in-time view of a live session.
type SessionSummary struct {
	SessionID       string                `json:"session_id"`
	StartTime       time.Time             `json:"start_time"`
	MessageCount    int                   `json:"message_count"`
	UserTurns       int                   `json:"user_turns"`
	Level           models.LanguageLevel  `json:"language_level"`
	CurrentTrend    models.EmotionTrend   `json:"emotion_trend"`
	RecentEmotions  []models.EmotionState `json:"recent_emotions"`
	WordsPracticed  []string              `json:"words_practiced"`
	DurationMinutes float64               `json:"duration_minutes"`
}

// liveSession is the mutable in-memory state of one active conversation.
type liveSession struct {
	mu        sync.Mutex
	profile   *models.StudentProfile
	session   *models.ChatSession
	emotions  []models.EmotionState
	userTurns int
}

// SessionService drives live tutoring conversations: per-turn emotion
// tracking, level adoption, policy-driven replies, vocabulary credit and
// end-of-session persistence.
type SessionService struct {
	profiles sessionProfileStore
	logs     sessionLogWriter
	emotions sessionEmotionService
	levels   sessionLevelEstimator
	policies sessionPolicyGenerator
	words    sessionWordService
	metrics  *MetricsService
	logger   *zap.Logger

	levelCheckInterval int

	mu       sync.RWMutex
	sessions map[string]*liveSession
}

// NewSessionService constructs a SessionService.
func NewSessionService(profiles sessionProfileStore, logs sessionLogWriter, emotions sessionEmotionService, levels sessionLevelEstimator, policies sessionPolicyGenerator, words sessionWordService, metrics *MetricsService, levelCheckInterval int, logger *zap.Logger) *SessionService {
	if levelCheckInterval <= 0 {
		levelCheckInterval = levelReviewInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		profiles:           profiles,
		logs:               logs,
		emotions:           emotions,
		levels:             levels,
		policies:           policies,
		words:              words,
		metrics:            metrics,
		logger:             logger,
		levelCheckInterval: levelCheckInterval,
		sessions:           make(map[string]*liveSession),
	}
}

// Start opens (or resumes) a session for a learner. The profile is loaded
// when present or created at the entry level, and its session counter is
// incremented immediately so an abandoned session still counts.
func (s *SessionService) Start(ctx context.Context, sessionID string) (*models.StudentProfile, error) {
	if sessionID == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, "session id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; ok {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("session %s is already active", sessionID))
	}

	profile, err := s.profiles.Load(ctx, sessionID)
	if err != nil {
		if appErr := appErrors.FromError(err); appErr.Code == appErrors.ErrNotFound.Code {
			profile = models.NewStudentProfile(sessionID)
		} else {
			return nil, err
		}
	}
	profile.SessionCount++

	live := &liveSession{
		profile: profile,
		session: &models.ChatSession{
			SessionID:    sessionID,
			StartTime:    time.Now(),
			StudentLevel: profile.LanguageLevel,
		},
	}
	s.sessions[sessionID] = live

	if err := s.profiles.Save(ctx, profile); err != nil {
		s.logger.Warn("failed to persist session count", zap.String("session_id", sessionID), zap.Error(err))
	}
	s.logger.Info("session started",
		zap.String("session_id", sessionID),
		zap.String("level", string(profile.LanguageLevel)),
		zap.Int("session_count", profile.SessionCount))
	return profile, nil
}

// ProcessMessage handles one user turn. It never returns a processing
// failure to the caller: when something inside the turn breaks, a fixed
// apology is returned and the turn is not recorded.
func (s *SessionService) ProcessMessage(ctx context.Context, sessionID, content string) (result *TurnResult, err error) {
	live, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	live.mu.Lock()
	defer live.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("turn processing failed",
				zap.String("session_id", sessionID),
				zap.Any("panic", r))
			result = &TurnResult{
				Reply:   apologyReply,
				Emotion: models.EmotionNeutral,
				Trend:   models.TrendStable,
				Level:   live.session.StudentLevel,
			}
			err = nil
		}
	}()

	// Everything fallible runs first; session and profile state is only
	// mutated once the whole turn has succeeded, so a recovered panic
	// leaves no half-recorded turn behind.
	now := time.Now()
	emotion := s.emotions.Classify(ctx, content)
	history := append(append([]models.EmotionState{}, live.emotions...), emotion)

	userMsg := models.ChatMessage{
		Role:            models.RoleUser,
		Content:         content,
		Timestamp:       now,
		EmotionDetected: &emotion,
	}
	turns := live.userTurns + 1

	trend := s.emotions.CalculateTrend(history)
	intervention := s.emotions.NeedsIntervention(emotion, trend)

	level := live.session.StudentLevel
	levelChanged := false
	if turns%s.levelCheckInterval == 0 {
		messages := append(append([]models.ChatMessage{}, live.session.Messages...), userMsg)
		estimate := s.levels.Estimate(ctx, messages)
		if estimate.Confidence > adoptConfidenceMin && estimate.Level != level {
			s.logger.Info("language level adjusted",
				zap.String("session_id", sessionID),
				zap.String("from", string(level)),
				zap.String("to", string(estimate.Level)),
				zap.Float64("confidence", estimate.Confidence))
			level = estimate.Level
			levelChanged = true
		}
	}

	extra := map[string]string{
		"session_progress":  fmt.Sprintf("turn %d", turns),
		"previous_emotions": formatRecentEmotions(live.emotions),
		"turn_index":        fmt.Sprintf("%d", live.userTurns),
	}
	reply := s.policies.Generate(ctx, emotion, level, trend, extra)
	taught := s.words.ExtractHanWords(reply)

	live.emotions = append(live.emotions, emotion)
	live.profile.AppendEmotion(emotion)
	live.session.Messages = append(live.session.Messages, userMsg)
	live.userTurns = turns
	live.session.StudentLevel = level
	live.profile.LanguageLevel = level
	if s.metrics != nil {
		s.metrics.RecordTurnProcessed()
	}

	for _, word := range taught {
		if err := live.profile.RecordWordUsage(word, models.AssistantMasteryIncrement); err != nil {
			s.logger.Warn("failed to credit word usage", zap.String("word", word), zap.Error(err))
		}
	}

	assistantMsg := models.ChatMessage{
		Role:         models.RoleAssistant,
		Content:      reply,
		Timestamp:    time.Now(),
		ChineseWords: taught,
	}
	live.session.Messages = append(live.session.Messages, assistantMsg)

	return &TurnResult{
		Reply:             reply,
		Emotion:           emotion,
		Trend:             trend,
		NeedsIntervention: intervention,
		Level:             level,
		LevelChanged:      levelChanged,
		WordsTaught:       taught,
	}, nil
}

// Summary returns a snapshot of a running session.
func (s *SessionService) Summary(sessionID string) (*SessionSummary, error) {
	live, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	live.mu.Lock()
	defer live.mu.Unlock()

	recent := live.emotions
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	recentCopy := make([]models.EmotionState, len(recent))
	copy(recentCopy, recent)

	var practiced []string
	seen := make(map[string]struct{})
	for _, msg := range live.session.Messages {
		for _, word := range msg.ChineseWords {
			if _, ok := seen[word]; !ok {
				seen[word] = struct{}{}
				practiced = append(practiced, word)
			}
		}
	}

	return &SessionSummary{
		SessionID:       sessionID,
		StartTime:       live.session.StartTime,
		MessageCount:    len(live.session.Messages),
		UserTurns:       live.userTurns,
		Level:           live.session.StudentLevel,
		CurrentTrend:    s.emotions.CalculateTrend(live.emotions),
		RecentEmotions:  recentCopy,
		WordsPracticed:  practiced,
		DurationMinutes: time.Since(live.session.StartTime).Minutes(),
	}, nil
}

// End closes a session: accrues interaction time, persists the profile,
// writes the transcript and returns a farewell matched to the child's
// final emotion.
func (s *SessionService) End(ctx context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	live, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()
	if !ok {
		return "", appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("session %s is not active", sessionID))
	}

	live.mu.Lock()
	defer live.mu.Unlock()

	end := time.Now()
	live.session.EndTime = &end
	live.profile.TotalInteractionTime += end.Sub(live.session.StartTime).Minutes()

	if err := s.profiles.Save(ctx, live.profile); err != nil {
		return "", err
	}
	if s.logs != nil && len(live.session.Messages) > 0 {
		filename := s.logs.Filename(sessionID, live.session.StartTime)
		if err := s.logs.Write(ctx, filename, live.session); err != nil {
			s.logger.Warn("failed to write session transcript",
				zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	lastEmotion := models.EmotionNeutral
	if len(live.emotions) > 0 {
		lastEmotion = live.emotions[len(live.emotions)-1]
	}
	farewell, ok := farewells[lastEmotion]
	if !ok {
		farewell = farewells[models.EmotionNeutral]
	}

	s.logger.Info("session ended",
		zap.String("session_id", sessionID),
		zap.Int("user_turns", live.userTurns),
		zap.Float64("duration_minutes", end.Sub(live.session.StartTime).Minutes()))
	return farewell, nil
}

// Session exposes the live transcript, used by the report endpoint.
func (s *SessionService) Session(sessionID string) (*models.ChatSession, error) {
	live, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	live.mu.Lock()
	defer live.mu.Unlock()

	clone := *live.session
	clone.Messages = make([]models.ChatMessage, len(live.session.Messages))
	copy(clone.Messages, live.session.Messages)
	return &clone, nil
}

func (s *SessionService) lookup(sessionID string) (*liveSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	live, ok := s.sessions[sessionID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("session %s is not active", sessionID))
	}
	return live, nil
}
