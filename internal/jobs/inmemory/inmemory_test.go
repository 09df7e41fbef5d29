package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/agency-ledger/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForStatus(t *testing.T, store *Store, id string, want jobs.JobStatus) *jobs.Job {
	t.Helper()
	var job *jobs.Job
	require.Eventually(t, func() bool {
		j, err := store.GetJob(context.Background(), id)
		if err != nil {
			return false
		}
		job = j
		return j.Status == want
	}, 3*time.Second, 10*time.Millisecond)
	return job
}

func TestQueue_RunsJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 2, store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, q.Start(ctx, func(ctx context.Context, job *jobs.Job) error {
		job.Result = "parsed " + job.Param(jobs.ParamFileName)
		return nil
	}))
	defer q.Stop(context.Background())

	job := &jobs.Job{Type: jobs.JobTypeParseStatement, Params: map[string]string{jobs.ParamFileName: "feb.pdf"}}
	require.NoError(t, q.Publish(ctx, job))
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, jobs.DefaultMaxRetries, job.MaxRetries)

	done := waitForStatus(t, store, job.ID, jobs.JobStatusCompleted)
	assert.Equal(t, "parsed feb.pdf", done.Result)
	assert.NotNil(t, done.CompletedAt)
}

func TestQueue_RetriesThenFails(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 1, store)
	q.backoff = func(int) time.Duration { return time.Millisecond }
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var attempts int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job *jobs.Job) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("model unavailable")
	}))
	defer q.Stop(context.Background())

	job := &jobs.Job{Type: jobs.JobTypeSyncZoho, MaxRetries: 2}
	require.NoError(t, q.Publish(ctx, job))

	failed := waitForStatus(t, store, job.ID, jobs.JobStatusFailed)
	assert.Equal(t, "model unavailable", failed.Error)
	assert.Equal(t, 2, failed.RetryCount)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestQueue_DefaultLimitStopsAfterThreeAttempts(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 1, store)
	q.backoff = func(int) time.Duration { return time.Millisecond }
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var attempts int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job *jobs.Job) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("zoho unavailable")
	}))
	defer q.Stop(context.Background())

	job := &jobs.Job{Type: jobs.JobTypeSyncZoho}
	require.NoError(t, q.Publish(ctx, job))

	failed := waitForStatus(t, store, job.ID, jobs.JobStatusFailed)
	assert.Equal(t, jobs.DefaultMaxRetries, failed.RetryCount)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestQueue_RetrySucceeds(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 1, store)
	q.backoff = func(int) time.Duration { return time.Millisecond }
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var attempts int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job *jobs.Job) error {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return errors.New("transient")
		}
		return nil
	}))
	defer q.Stop(context.Background())

	job := &jobs.Job{Type: jobs.JobTypeSyncNotion}
	require.NoError(t, q.Publish(ctx, job))

	done := waitForStatus(t, store, job.ID, jobs.JobStatusCompleted)
	assert.Empty(t, done.Error)
	assert.Equal(t, 1, done.RetryCount)
}

func TestQueue_PublishAfterStop(t *testing.T) {
	q := NewQueue(1, 1, nil)
	require.NoError(t, q.Stop(context.Background()))
	require.NoError(t, q.Stop(context.Background()))

	err := q.Publish(context.Background(), &jobs.Job{Type: jobs.JobTypeSyncZoho})
	assert.Error(t, err)
	assert.Error(t, q.Start(context.Background(), func(context.Context, *jobs.Job) error { return nil }))
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, tc := range []struct {
		id     string
		typ    jobs.JobType
		status jobs.JobStatus
	}{
		{"a", jobs.JobTypeParseStatement, jobs.JobStatusCompleted},
		{"b", jobs.JobTypeSyncZoho, jobs.JobStatusFailed},
		{"c", jobs.JobTypeParseStatement, jobs.JobStatusPending},
	} {
		require.NoError(t, s.SaveJob(ctx, &jobs.Job{
			ID: tc.id, Type: tc.typ, Status: tc.status,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Params:    map[string]string{"k": tc.id},
		}))
	}

	assert.Error(t, s.SaveJob(ctx, &jobs.Job{}))

	got, err := s.GetJob(ctx, "a")
	require.NoError(t, err)
	got.Params["k"] = "mutated"
	again, _ := s.GetJob(ctx, "a")
	assert.Equal(t, "a", again.Params["k"])

	_, err = s.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   []string
	}{
		{"all newest first", jobs.JobFilter{}, []string{"c", "b", "a"}},
		{"by type", jobs.JobFilter{Type: jobs.JobTypeParseStatement}, []string{"c", "a"}},
		{"by status", jobs.JobFilter{Status: jobs.JobStatusFailed}, []string{"b"}},
		{"limit", jobs.JobFilter{Limit: 1}, []string{"c"}},
		{"offset", jobs.JobFilter{Offset: 2}, []string{"a"}},
		{"offset past end", jobs.JobFilter{Offset: 5}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := s.ListJobs(ctx, tt.filter)
			require.NoError(t, err)
			ids := make([]string, 0, len(list))
			for _, j := range list {
				ids = append(ids, j.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	require.NoError(t, s.UpdateJobStatus(ctx, "c", jobs.JobStatusFailed, "boom"))
	c, _ := s.GetJob(ctx, "c")
	assert.Equal(t, jobs.JobStatusFailed, c.Status)
	assert.Equal(t, "boom", c.Error)
	assert.ErrorIs(t, s.UpdateJobStatus(ctx, "zz", jobs.JobStatusFailed, ""), jobs.ErrJobNotFound)
}

func TestRouter(t *testing.T) {
	var called jobs.JobType
	r := jobs.Router{
		jobs.JobTypeSyncZoho: func(ctx context.Context, job *jobs.Job) error {
			called = job.Type
			return nil
		},
	}
	require.NoError(t, r.Handle(context.Background(), &jobs.Job{Type: jobs.JobTypeSyncZoho}))
	assert.Equal(t, jobs.JobTypeSyncZoho, called)
	assert.Error(t, r.Handle(context.Background(), &jobs.Job{Type: jobs.JobTypeExportWarehouse}))
}
