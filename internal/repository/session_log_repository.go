package repository

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mandarin-tutor-api/internal/models"
	appErrors "github.com/noah-isme/mandarin-tutor-api/pkg/errors"
	"github.com/noah-isme/mandarin-tutor-api/pkg/storage"
)

// Transcript line shapes. The bracket form is what this service writes;
// the ISO form appears in logs produced by earlier tooling and is still
// accepted on read.
var (
	bracketLineRe = regexp.MustCompile(`^\[(\d{2}:\d{2}:\d{2})\]\s+(user|assistant):\s?(.*)$`)
	isoLineRe     = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:\d{2}))\s+\[(user|assistant)\]\s?(.*)$`)

	emotionNoteRe = regexp.MustCompile(`^\s+\[Emotion:\s*(\w+)\]$`)
	wordsNoteRe   = regexp.MustCompile(`^\s+\[Chinese words:\s*(.+)\]$`)

	sessionIDFromFilenameRe = regexp.MustCompile(`^(.+?)_session.*\.log$`)
)

// SessionLogRepository writes and parses plain-text session transcripts.
type SessionLogRepository struct {
	storage *storage.LocalStorage
	logger  *zap.Logger
}

// NewSessionLogRepository constructs the transcript store.
func NewSessionLogRepository(store *storage.LocalStorage, logger *zap.Logger) *SessionLogRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionLogRepository{storage: store, logger: logger}
}

// Filename derives the transcript file name for a session.
func (r *SessionLogRepository) Filename(sessionID string, startTime time.Time) string {
	return fmt.Sprintf("%s_session_%s.log", sessionID, startTime.Format("20060102_150405"))
}

// Write renders the session as a human-readable transcript and atomically
// replaces the file. Each message is a timestamped line, optionally
// followed by indented emotion and vocabulary annotations, with a blank
// line between messages.
func (r *SessionLogRepository) Write(ctx context.Context, filename string, session *models.ChatSession) error {
	if filename == "" {
		return appErrors.Clone(appErrors.ErrInvalidArgument, "session log filename is required")
	}

	var buf bytes.Buffer
	for _, msg := range session.Messages {
		fmt.Fprintf(&buf, "[%s] %s: %s\n", msg.Timestamp.Format("15:04:05"), msg.Role, msg.Content)
		if msg.EmotionDetected != nil {
			fmt.Fprintf(&buf, "  [Emotion: %s]\n", *msg.EmotionDetected)
		}
		if len(msg.ChineseWords) > 0 {
			fmt.Fprintf(&buf, "  [Chinese words: %s]\n", strings.Join(msg.ChineseWords, ", "))
		}
		buf.WriteByte('\n')
	}

	if err := r.storage.WriteAtomic(filename, buf.Bytes()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write session log")
	}
	return nil
}

// Parse reads a transcript back into a session. Malformed lines are
// counted and skipped with a warning rather than failing the whole file;
// an empty file yields an empty session. The session id is recovered from
// the file name when it follows the <id>_session_*.log convention.
func (r *SessionLogRepository) Parse(ctx context.Context, filename string) (*models.ChatSession, error) {
	data, err := r.storage.Read(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("session log %s not found", filename))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read session log")
	}

	session := &models.ChatSession{
		SessionID:    SessionIDFromFilename(filename),
		StudentLevel: models.LevelL1,
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	day := time.Now()
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		if matches := bracketLineRe.FindStringSubmatch(line); matches != nil {
			clock, _ := time.Parse("15:04:05", matches[1])
			timestamp := time.Date(day.Year(), day.Month(), day.Day(),
				clock.Hour(), clock.Minute(), clock.Second(), 0, day.Location())
			session.Messages = append(session.Messages, models.ChatMessage{
				Role:      matches[2],
				Content:   matches[3],
				Timestamp: timestamp,
			})
			continue
		}
		if matches := isoLineRe.FindStringSubmatch(line); matches != nil {
			timestamp, err := time.Parse(time.RFC3339Nano, matches[1])
			if err != nil {
				r.warnSkipped(filename, line, session)
				continue
			}
			session.Messages = append(session.Messages, models.ChatMessage{
				Role:      matches[2],
				Content:   matches[3],
				Timestamp: timestamp,
			})
			continue
		}

		// Annotation lines attach to the message above them.
		if len(session.Messages) > 0 {
			last := &session.Messages[len(session.Messages)-1]
			if matches := emotionNoteRe.FindStringSubmatch(line); matches != nil {
				state, err := models.ParseEmotionState(matches[1])
				if err != nil {
					r.warnSkipped(filename, line, session)
					continue
				}
				last.EmotionDetected = &state
				continue
			}
			if matches := wordsNoteRe.FindStringSubmatch(line); matches != nil {
				for _, word := range strings.Split(matches[1], ",") {
					if word = strings.TrimSpace(word); word != "" {
						last.ChineseWords = append(last.ChineseWords, word)
					}
				}
				continue
			}
		}

		r.warnSkipped(filename, line, session)
	}
	if err := scanner.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to scan session log")
	}

	if len(session.Messages) > 0 {
		session.StartTime = session.Messages[0].Timestamp
		end := session.Messages[len(session.Messages)-1].Timestamp
		session.EndTime = &end
	}
	return session, nil
}

// SessionIDFromFilename recovers the session id from the transcript file
// name, or returns the bare file name without extension when the
// convention does not match.
func SessionIDFromFilename(filename string) string {
	base := filepath.Base(filename)
	if matches := sessionIDFromFilenameRe.FindStringSubmatch(base); matches != nil {
		return matches[1]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (r *SessionLogRepository) warnSkipped(filename, line string, session *models.ChatSession) {
	session.ParseWarnings++
	preview := line
	if len(preview) > 80 {
		preview = preview[:80]
	}
	r.logger.Warn("skipping malformed transcript line",
		zap.String("filename", filename),
		zap.String("line", preview))
}
