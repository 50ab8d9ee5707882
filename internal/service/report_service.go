package service

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mandarin-tutor-api/internal/models"
	"github.com/noah-isme/mandarin-tutor-api/pkg/export"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string, summary []string) ([]byte, error)
}

// ReportService renders trajectories as CSV and sessions as PDF progress
// reports for parents and researchers.
type ReportService struct {
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
}

// NewReportService constructs a ReportService.
func NewReportService(csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ReportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{csv: csv, pdf: pdf, logger: logger}
}

var trajectoryCSVHeaders = []string{"index", "timestamp", "state", "action", "reward", "language_level", "emotion_trend"}

// TrajectoryCSV flattens a step list into CSV bytes.
func (s *ReportService) TrajectoryCSV(steps []models.TrajectoryStep) ([]byte, error) {
	rows := make([]map[string]string, 0, len(steps))
	for i, step := range steps {
		row := map[string]string{
			"index":     strconv.Itoa(i),
			"timestamp": step.Timestamp.Format(time.RFC3339),
			"state":     step.State,
			"action":    step.Action,
			"reward":    string(step.Reward),
		}
		if level, ok := step.Metadata[models.StepMetaLevel].(string); ok {
			row["language_level"] = level
		}
		if trend, ok := step.Metadata[models.StepMetaTrend].(string); ok {
			row["emotion_trend"] = trend
		}
		rows = append(rows, row)
	}
	return s.csv.Render(export.Dataset{Headers: trajectoryCSVHeaders, Rows: rows})
}

// SessionStatistics derives trajectory-style statistics straight from a
// transcript's recorded emotions, without re-running any classifier. Turns
// with no recorded emotion count as neutral.
func (s *ReportService) SessionStatistics(session *models.ChatSession) models.TrajectoryStatistics {
	steps := make([]models.TrajectoryStep, 0, len(session.Messages))
	for _, msg := range session.Messages {
		if msg.Role != models.RoleUser {
			continue
		}
		reward := models.EmotionNeutral
		if msg.EmotionDetected != nil && msg.EmotionDetected.Valid() {
			reward = *msg.EmotionDetected
		}
		steps = append(steps, models.TrajectoryStep{
			State:     msg.Content,
			Reward:    reward,
			Timestamp: msg.Timestamp,
		})
	}
	return aggregateStatistics(steps)
}

// SessionReportPDF renders a one-page progress report: session facts,
// level feedback and the words practiced with their mastery.
func (s *ReportService) SessionReportPDF(session *models.ChatSession, profile *models.StudentProfile, stats models.TrajectoryStatistics) ([]byte, error) {
	summary := []string{
		fmt.Sprintf("Session: %s", session.SessionID),
		fmt.Sprintf("Date: %s", session.StartTime.Format("2006-01-02 15:04")),
		fmt.Sprintf("Messages: %d", len(session.Messages)),
		fmt.Sprintf("Language level: %s", profile.LanguageLevel),
		fmt.Sprintf("Positive emotion ratio: %.0f%%", stats.PositiveEmotionRatio*100),
		fmt.Sprintf("Duration: %.1f minutes", stats.SessionDurationMinutes),
	}
	if feedback, ok := LevelFeedback[profile.LanguageLevel]; ok {
		summary = append(summary, feedback)
	}

	words := make([]string, 0, len(profile.LearnedWords))
	for word := range profile.LearnedWords {
		words = append(words, word)
	}
	sort.Strings(words)

	rows := make([]map[string]string, 0, len(words))
	for _, word := range words {
		rows = append(rows, map[string]string{
			"word":    word,
			"mastery": strconv.Itoa(profile.LearnedWords[word]),
		})
	}

	return s.pdf.Render(
		export.Dataset{Headers: []string{"word", "mastery"}, Rows: rows},
		fmt.Sprintf("Progress Report - %s", session.SessionID),
		summary,
	)
}
