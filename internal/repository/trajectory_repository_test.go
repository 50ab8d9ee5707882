package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mandarin-tutor-api/internal/models"
	appErrors "github.com/noah-isme/mandarin-tutor-api/pkg/errors"
	"github.com/noah-isme/mandarin-tutor-api/pkg/storage"
)

func newTestTrajectoryRepo(t *testing.T) (*TrajectoryRepository, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewTrajectoryRepository(store, nil), store
}

func TestTrajectorySaveLoadRoundTrip(t *testing.T) {
	repo, _ := newTestTrajectoryRepo(t)
	ctx := context.Background()

	start := time.Date(2025, 3, 1, 10, 0, 0, 123456789, time.UTC)
	steps := []models.TrajectoryStep{
		{
			State:     "我喜欢猫",
			Action:    "Keep the positive momentum with fun challenges.",
			Reward:    models.EmotionHappy,
			Timestamp: start,
			Metadata: map[string]interface{}{
				models.StepMetaLevel:     "L2",
				models.StepMetaTrend:     "stable",
				models.StepMetaSessionID: "kid-1",
			},
		},
		{
			State:     "this is hard",
			Action:    "Provide support and easier content.",
			Reward:    models.EmotionFrustrated,
			Timestamp: start.Add(2 * time.Minute),
		},
	}
	require.NoError(t, repo.Save(ctx, "kid-1_trajectory.json", steps))
	assert.True(t, repo.Exists(ctx, "kid-1_trajectory.json"))

	loaded, err := repo.Load(ctx, "kid-1_trajectory.json")
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, steps[0].State, loaded[0].State)
	assert.Equal(t, steps[0].Action, loaded[0].Action)
	assert.Equal(t, models.EmotionHappy, loaded[0].Reward)
	assert.True(t, steps[0].Timestamp.Equal(loaded[0].Timestamp), "nanosecond precision must survive")
	assert.Equal(t, "L2", loaded[0].Metadata[models.StepMetaLevel])
	assert.Equal(t, "kid-1", loaded[0].Metadata[models.StepMetaSessionID])

	assert.Equal(t, models.EmotionFrustrated, loaded[1].Reward)
	assert.Nil(t, loaded[1].Metadata)
}

func TestTrajectorySaveEmpty(t *testing.T) {
	repo, _ := newTestTrajectoryRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "empty_trajectory.json", nil))
	loaded, err := repo.Load(ctx, "empty_trajectory.json")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestTrajectorySaveRequiresFilename(t *testing.T) {
	repo, _ := newTestTrajectoryRepo(t)

	err := repo.Save(context.Background(), "", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidArgument.Code, appErrors.FromError(err).Code)
}

func TestTrajectoryLoadMissing(t *testing.T) {
	repo, _ := newTestTrajectoryRepo(t)

	_, err := repo.Load(context.Background(), "ghost.json")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTrajectoryLoadRejectsCorruptFiles(t *testing.T) {
	repo, store := newTestTrajectoryRepo(t)
	ctx := context.Background()

	cases := map[string]string{
		"truncated JSON": `[{"state": "hi"`,
		"unknown reward": `[{"state": "hi", "action": "a", "reward": "furious", "timestamp": "2025-03-01T10:00:00Z"}]`,
		"bad timestamp":  `[{"state": "hi", "action": "a", "reward": "happy", "timestamp": "yesterday"}]`,
		"missing reward": `[{"state": "hi", "action": "a", "timestamp": "2025-03-01T10:00:00Z"}]`,
	}
	for name, doc := range cases {
		require.NoError(t, store.WriteAtomic("bad.json", []byte(doc)))
		_, err := repo.Load(ctx, "bad.json")
		require.Error(t, err, name)
		assert.Equal(t, appErrors.ErrCorruptData.Code, appErrors.FromError(err).Code, name)
	}
}
