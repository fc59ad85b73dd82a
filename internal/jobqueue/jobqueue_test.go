package jobqueue

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fknsrs.biz/p/ytwarehouse/internal/ctxclock"
	"fknsrs.biz/p/ytwarehouse/internal/ctxdb"
	"fknsrs.biz/p/ytwarehouse/internal/warehouse"
)

func TestParsePayload(t *testing.T) {
	for _, tc := range []struct {
		in      string
		subject string
		params  url.Values
	}{
		{"UCabc", "UCabc", url.Values{}},
		{"UCabc?chain=1", "UCabc", url.Values{"chain": {"1"}}},
		{"UCabc?", "UCabc", url.Values{}},
	} {
		t.Run(tc.in, func(t *testing.T) {
			subject, params, err := ParsePayload(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.subject, subject)
			assert.Equal(t, tc.params, params)
		})
	}
}

func TestFormatPayload(t *testing.T) {
	assert.Equal(t, "UCabc", FormatPayload("UCabc", nil))
	assert.Equal(t, "UCabc?chain=1", FormatPayload("UCabc", url.Values{"chain": {"1"}}))

	subject, params, err := ParsePayload(FormatPayload("UCabc", url.Values{"a": {"x y"}}))
	require.NoError(t, err)
	assert.Equal(t, "UCabc", subject)
	assert.Equal(t, "x y", params.Get("a"))
}

func setup(t *testing.T) (context.Context, *ctxclock.ManualClock, *warehouse.Store) {
	t.Helper()

	ctx := context.Background()

	s, err := warehouse.Open(ctx, "sqlite3", warehouse.SQLite, filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.EnsureSchema(ctx))

	clock := ctxclock.NewManualClock(time.Date(2023, 4, 5, 6, 7, 8, 0, time.UTC))

	ctx = ctxdb.WithStore(ctx, s)
	ctx = ctxclock.WithClock(ctx, clock)

	return ctx, clock, s
}

func addJob(t *testing.T, ctx context.Context, w *Worker, job *Job) {
	t.Helper()

	require.NoError(t, ctxdb.UsingTx(ctx, nil, func(ctx context.Context, tx *sql.Tx) error {
		return w.Add(ctx, tx, job)
	}))
}

func TestWorkerRunOnceSuccess(t *testing.T) {
	ctx, clock, s := setup(t)

	var seen []string
	w := NewWorker(map[string]WorkerFunction{
		"echo": func(ctx context.Context, w *Worker, j *Job) (string, error) {
			seen = append(seen, j.Payload)
			return "done " + j.Payload, nil
		},
	})

	addJob(t, ctx, w, &Job{QueueName: "echo", Payload: "UCabc"})

	// jobs only become runnable once their run_after has passed
	_, err := w.RunOnce(ctx)
	assert.ErrorIs(t, err, ErrNoPendingJobs)

	clock.Advance(time.Second)

	didRun, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.True(t, didRun)
	assert.Equal(t, []string{"UCabc"}, seen)

	_, err = w.RunOnce(ctx)
	assert.ErrorIs(t, err, ErrNoPendingJobs)

	jobs, err := Recent(ctx, s.DB(), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.NotNil(t, jobs[0].FinishedAt)
	assert.Equal(t, "done UCabc", jobs[0].LastOutput())
	assert.Equal(t, "", jobs[0].LastError())
	assert.Equal(t, "finished", jobs[0].Status())
}

func TestWorkerRunOnceFailureRetries(t *testing.T) {
	ctx, clock, s := setup(t)

	calls := 0
	w := NewWorker(map[string]WorkerFunction{
		"flaky": func(ctx context.Context, w *Worker, j *Job) (string, error) {
			calls++
			if calls == 1 {
				return "", fmt.Errorf("quota exceeded")
			}
			return "ok", nil
		},
	})

	addJob(t, ctx, w, &Job{QueueName: "flaky", Payload: "UCabc"})
	clock.Advance(time.Second)

	didRun, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.True(t, didRun)

	jobs, err := Recent(ctx, s.DB(), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Nil(t, jobs[0].FinishedAt)
	assert.Equal(t, DefaultAttemptsRemaining-1, jobs[0].AttemptsRemaining)
	assert.Equal(t, "quota exceeded", jobs[0].LastError())
	assert.Equal(t, "pending", jobs[0].Status())

	// the retry waits out the failure delay
	_, err = w.RunOnce(ctx)
	assert.ErrorIs(t, err, ErrNoPendingJobs)

	clock.Advance(DefaultFailureDelay + time.Second)

	didRun, err = w.RunOnce(ctx)
	require.NoError(t, err)
	assert.True(t, didRun)
	assert.Equal(t, 2, calls)

	jobs, err = Recent(ctx, s.DB(), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.NotNil(t, jobs[0].FinishedAt)
	assert.Equal(t, "ok", jobs[0].LastOutput())
	assert.Equal(t, "quota exceeded", jobs[0].LastError())
}

func TestWorkerPanicIsRecorded(t *testing.T) {
	ctx, clock, s := setup(t)

	w := NewWorker(map[string]WorkerFunction{
		"boom": func(ctx context.Context, w *Worker, j *Job) (string, error) {
			panic("boom")
		},
	})

	addJob(t, ctx, w, &Job{QueueName: "boom", Payload: "x", AttemptsRemaining: -1})
	clock.Advance(time.Second)

	didRun, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.True(t, didRun)

	jobs, err := Recent(ctx, s.DB(), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.NotNil(t, jobs[0].FinishedAt)
	assert.Contains(t, jobs[0].LastError(), "boom")
	assert.Equal(t, "failed", jobs[0].Status())
}

func TestWorkerRegister(t *testing.T) {
	w := NewWorker(nil)

	fn := func(ctx context.Context, w *Worker, j *Job) (string, error) { return "", nil }

	require.NoError(t, w.Register("a", fn))
	assert.ErrorIs(t, w.Register("a", fn), ErrWorkerExists)
	assert.ErrorIs(t, w.RegisterAll(map[string]WorkerFunction{"a": fn, "b": fn}), ErrWorkerExists)
	require.NoError(t, w.RegisterAll(map[string]WorkerFunction{"b": fn, "c": fn}))
	assert.ElementsMatch(t, []string{"a", "b", "c"}, w.GetQueueNames())
}

func TestWorkerAddUnknownQueue(t *testing.T) {
	ctx, _, _ := setup(t)

	w := NewWorker(nil)

	err := ctxdb.UsingTx(ctx, nil, func(ctx context.Context, tx *sql.Tx) error {
		return w.Add(ctx, tx, &Job{QueueName: "missing", Payload: "x"})
	})
	assert.ErrorIs(t, err, ErrWorkerDoesNotExist)
}

func TestWorkerRunOnceWithoutStore(t *testing.T) {
	_, err := NewWorker(nil).RunOnce(context.Background())
	assert.ErrorIs(t, err, ctxdb.ErrNoDB)
}

func TestWorkerRunOnceSavesState(t *testing.T) {
	ctx, clock, s := setup(t)

	runs := 0
	w := NewWorker(map[string]WorkerFunction{
		"count": func(ctx context.Context, w *Worker, j *Job) (string, error) {
			runs++
			return "ok", nil
		},
	})

	first := &Job{QueueName: "count", Payload: "a"}
	second := &Job{QueueName: "count", Payload: "b"}
	addJob(t, ctx, w, first)
	addJob(t, ctx, w, second)
	require.NotZero(t, first.ID)
	assert.Equal(t, first.ID+1, second.ID)

	clock.Advance(time.Second)

	didRun, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.True(t, didRun)

	var finished, reserved bool
	var outputs string
	require.NoError(t, s.DB().QueryRow(
		"select finished_at is not null, reserved_at is not null, output_messages from jobs where id = ?1",
		first.ID,
	).Scan(&finished, &reserved, &outputs))
	assert.True(t, finished)
	assert.True(t, reserved)
	assert.JSONEq(t, `["ok"]`, outputs)

	require.NoError(t, s.DB().QueryRow(
		"select finished_at is not null from jobs where id = ?1",
		second.ID,
	).Scan(&finished))
	assert.False(t, finished)

	didRun, err = w.RunOnce(ctx)
	require.NoError(t, err)
	assert.True(t, didRun)

	_, err = w.RunOnce(ctx)
	assert.ErrorIs(t, err, ErrNoPendingJobs)
	assert.Equal(t, 2, runs)
}
