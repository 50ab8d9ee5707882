package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type buildRequest struct {
	Filename string
}

func TestQueueDeliversTypedPayload(t *testing.T) {
	received := make(chan buildRequest, 1)
	q := NewQueue("builds", func(ctx context.Context, job Job[buildRequest]) error {
		received <- job.Payload
		return nil
	}, QueueConfig{Workers: 1})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job[buildRequest]{ID: "job-1", Payload: buildRequest{Filename: "out.json"}}))

	select {
	case payload := <-received:
		assert.Equal(t, "out.json", payload.Filename)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts int32
	done := make(chan struct{})
	q := NewQueue("builds", func(ctx context.Context, job Job[buildRequest]) error {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return fmt.Errorf("transient failure")
		}
		close(done)
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: 10 * time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job[buildRequest]{ID: "job-1"}))

	select {
	case <-done:
		assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
}

func TestQueueRejectsEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("builds", func(ctx context.Context, job Job[buildRequest]) error {
		return nil
	}, QueueConfig{})

	err := q.Enqueue(Job[buildRequest]{ID: "job-1"})
	require.Error(t, err)
}
