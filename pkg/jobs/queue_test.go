package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	seen  []Job
	fails int
	done  chan struct{}
}

func (r *recorder) handle(_ context.Context, job Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, job)
	if r.fails > 0 {
		r.fails--
		return errors.New("transient failure")
	}
	select {
	case r.done <- struct{}{}:
	default:
	}
	return nil
}

func (r *recorder) jobs() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Job, len(r.seen))
	copy(out, r.seen)
	return out
}

func TestQueueProcessesJobs(t *testing.T) {
	rec := &recorder{done: make(chan struct{}, 1)}
	queue := NewQueue("test", rec.handle, QueueConfig{Workers: 2})
	queue.Start(context.Background())
	defer queue.Stop()

	require.NoError(t, queue.Enqueue(Job{ID: "job-1", Type: "noop"}))

	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}

	jobs := rec.jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "job-1", jobs[0].ID)
	assert.False(t, jobs[0].Enqueued.IsZero())
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	rec := &recorder{fails: 2, done: make(chan struct{}, 1)}
	queue := NewQueue("test", rec.handle, QueueConfig{
		Workers:    1,
		MaxRetries: 3,
		RetryDelay: 10 * time.Millisecond,
	})
	queue.Start(context.Background())
	defer queue.Stop()

	require.NoError(t, queue.Enqueue(Job{ID: "job-1", Type: "flaky"}))

	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("job never succeeded")
	}

	jobs := rec.jobs()
	require.Len(t, jobs, 3)
	assert.Equal(t, 0, jobs[0].Attempt)
	assert.Equal(t, 1, jobs[1].Attempt)
	assert.Equal(t, 2, jobs[2].Attempt)
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	queue := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})
	err := queue.Enqueue(Job{ID: "early"})
	assert.Error(t, err)
}

func TestQueueStartTwiceIsNoop(t *testing.T) {
	rec := &recorder{done: make(chan struct{}, 1)}
	queue := NewQueue("test", rec.handle, QueueConfig{Workers: 1})
	queue.Start(context.Background())
	queue.Start(context.Background())
	defer queue.Stop()

	require.NoError(t, queue.Enqueue(Job{ID: "job-1"}))
	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}
}

func TestQueueStopIsIdempotent(t *testing.T) {
	queue := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})
	queue.Start(context.Background())
	queue.Stop()
	queue.Stop()

	assert.Error(t, queue.Enqueue(Job{ID: "late"}))
}
