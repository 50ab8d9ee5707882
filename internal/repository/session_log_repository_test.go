package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mandarin-tutor-api/internal/models"
	appErrors "github.com/noah-isme/mandarin-tutor-api/pkg/errors"
	"github.com/noah-isme/mandarin-tutor-api/pkg/storage"
)

func newTestLogRepo(t *testing.T) (*SessionLogRepository, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewSessionLogRepository(store, nil), store
}

func TestSessionLogFilename(t *testing.T) {
	repo, _ := newTestLogRepo(t)

	start := time.Date(2025, 3, 1, 14, 30, 5, 0, time.UTC)
	assert.Equal(t, "kid-1_session_20250301_143005.log", repo.Filename("kid-1", start))
}

func TestSessionLogWriteParseRoundTrip(t *testing.T) {
	repo, _ := newTestLogRepo(t)
	ctx := context.Background()

	happy := models.EmotionHappy
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.Local)
	session := &models.ChatSession{
		SessionID: "kid-1",
		StartTime: start,
		Messages: []models.ChatMessage{
			{Role: models.RoleUser, Content: "I love 猫!", Timestamp: start, EmotionDetected: &happy},
			{Role: models.RoleAssistant, Content: "太好了! Cats are 猫.", Timestamp: start.Add(time.Minute), ChineseWords: []string{"猫"}},
		},
	}
	filename := repo.Filename("kid-1", start)
	require.NoError(t, repo.Write(ctx, filename, session))

	parsed, err := repo.Parse(ctx, filename)
	require.NoError(t, err)
	require.Len(t, parsed.Messages, 2)
	assert.Equal(t, 0, parsed.ParseWarnings)
	assert.Equal(t, "kid-1", parsed.SessionID)

	first := parsed.Messages[0]
	assert.Equal(t, models.RoleUser, first.Role)
	assert.Equal(t, "I love 猫!", first.Content)
	require.NotNil(t, first.EmotionDetected)
	assert.Equal(t, models.EmotionHappy, *first.EmotionDetected)
	assert.Equal(t, "10:00:00", first.Timestamp.Format("15:04:05"))

	second := parsed.Messages[1]
	assert.Equal(t, models.RoleAssistant, second.Role)
	assert.Equal(t, []string{"猫"}, second.ChineseWords)
	require.NotNil(t, parsed.EndTime)
	assert.Equal(t, "10:01:00", parsed.EndTime.Format("15:04:05"))
}

func TestSessionLogParseSkipsMalformedLines(t *testing.T) {
	repo, store := newTestLogRepo(t)

	lines := []string{
		"[10:00:00] user: hello",
		"[10:00:30] assistant: 你好!",
		"this line is garbage",
		"[10:01:00] user: how do I say cat?",
		"  [Emotion: furious]",
		"[10:01:30] assistant: 猫 means cat.",
		"  [Chinese words: 猫]",
		"[10:02:00] user: 猫! 猫!",
	}
	require.NoError(t, store.WriteAtomic("kid-2_session_x.log", []byte(strings.Join(lines, "\n")+"\n")))

	parsed, err := repo.Parse(context.Background(), "kid-2_session_x.log")
	require.NoError(t, err)
	assert.Len(t, parsed.Messages, 5)
	// One garbage line plus one unknown emotion label.
	assert.Equal(t, 2, parsed.ParseWarnings)
	assert.Nil(t, parsed.Messages[2].EmotionDetected)
	assert.Equal(t, []string{"猫"}, parsed.Messages[3].ChineseWords)
}

func TestSessionLogParseAcceptsISOLines(t *testing.T) {
	repo, store := newTestLogRepo(t)

	content := "2025-03-01T10:00:00Z [user] hello\n" +
		"2025-03-01T10:00:30.500Z [assistant] 你好!\n"
	require.NoError(t, store.WriteAtomic("kid-3_session_x.log", []byte(content)))

	parsed, err := repo.Parse(context.Background(), "kid-3_session_x.log")
	require.NoError(t, err)
	require.Len(t, parsed.Messages, 2)
	assert.Equal(t, 0, parsed.ParseWarnings)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), parsed.Messages[0].Timestamp)
	assert.Equal(t, 500*int(time.Millisecond), parsed.Messages[1].Timestamp.Nanosecond())
}

func TestSessionLogParseEmptyFile(t *testing.T) {
	repo, store := newTestLogRepo(t)

	require.NoError(t, store.WriteAtomic("kid-4_session_x.log", nil))
	parsed, err := repo.Parse(context.Background(), "kid-4_session_x.log")
	require.NoError(t, err)
	assert.Empty(t, parsed.Messages)
	assert.Nil(t, parsed.EndTime)
}

func TestSessionLogParseMissingFile(t *testing.T) {
	repo, _ := newTestLogRepo(t)

	_, err := repo.Parse(context.Background(), "ghost.log")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSessionIDFromFilename(t *testing.T) {
	assert.Equal(t, "kid-1", SessionIDFromFilename("kid-1_session_20250301_143005.log"))
	assert.Equal(t, "kid-1", SessionIDFromFilename("/tmp/data/kid-1_session_20250301_143005.log"))
	assert.Equal(t, "transcript", SessionIDFromFilename("transcript.log"))
}
