package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mandarin-tutor-api/internal/models"
	appErrors "github.com/noah-isme/mandarin-tutor-api/pkg/errors"
	"github.com/noah-isme/mandarin-tutor-api/pkg/storage"
)

// trajectoryStepDoc is the on-disk shape of one step. Timestamps are
// serialized as ISO-8601 strings so trajectories stay readable and
// portable across tools.
type trajectoryStepDoc struct {
	State     string                 `json:"state"`
	Action    string                 `json:"action"`
	Reward    string                 `json:"reward"`
	Timestamp string                 `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// TrajectoryRepository stores trajectories as JSON arrays on disk.
type TrajectoryRepository struct {
	storage *storage.LocalStorage
	logger  *zap.Logger
}

// NewTrajectoryRepository constructs the file backed trajectory store.
func NewTrajectoryRepository(store *storage.LocalStorage, logger *zap.Logger) *TrajectoryRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrajectoryRepository{storage: store, logger: logger}
}

// Save atomically writes the step list under the given file name.
func (r *TrajectoryRepository) Save(ctx context.Context, filename string, steps []models.TrajectoryStep) error {
	if filename == "" {
		return appErrors.Clone(appErrors.ErrInvalidArgument, "trajectory filename is required")
	}
	docs := make([]trajectoryStepDoc, 0, len(steps))
	for _, step := range steps {
		docs = append(docs, trajectoryStepDoc{
			State:     step.State,
			Action:    step.Action,
			Reward:    string(step.Reward),
			Timestamp: step.Timestamp.Format(time.RFC3339Nano),
			Metadata:  step.Metadata,
		})
	}
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode trajectory")
	}
	if err := r.storage.WriteAtomic(filename, data); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write trajectory")
	}
	r.logger.Debug("trajectory saved", zap.String("filename", filename), zap.Int("steps", len(steps)))
	return nil
}

// Load reads a trajectory file back into memory. Unknown reward labels and
// unparseable timestamps surface as ErrCorruptData rather than being
// dropped or repaired.
func (r *TrajectoryRepository) Load(ctx context.Context, filename string) ([]models.TrajectoryStep, error) {
	data, err := r.storage.Read(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("trajectory %s not found", filename))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read trajectory")
	}

	var docs []trajectoryStepDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCorruptData.Code, appErrors.ErrCorruptData.Status, "trajectory file is not valid JSON")
	}

	steps := make([]models.TrajectoryStep, 0, len(docs))
	for i, doc := range docs {
		reward, err := models.ParseEmotionState(doc.Reward)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrCorruptData, fmt.Sprintf("step %d carries unknown reward label %q", i, doc.Reward))
		}
		timestamp, err := time.Parse(time.RFC3339Nano, doc.Timestamp)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrCorruptData, fmt.Sprintf("step %d carries unparseable timestamp %q", i, doc.Timestamp))
		}
		steps = append(steps, models.TrajectoryStep{
			State:     doc.State,
			Action:    doc.Action,
			Reward:    reward,
			Timestamp: timestamp,
			Metadata:  doc.Metadata,
		})
	}
	return steps, nil
}

// Exists reports whether a trajectory file is on disk.
func (r *TrajectoryRepository) Exists(ctx context.Context, filename string) bool {
	return r.storage.Exists(filename)
}
