package jobqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"fknsrs.biz/p/ytwarehouse/internal/catchpanic"
	"fknsrs.biz/p/ytwarehouse/internal/ctxclock"
	"fknsrs.biz/p/ytwarehouse/internal/ctxdb"
	"fknsrs.biz/p/ytwarehouse/internal/ctxlogger"
	"fknsrs.biz/p/ytwarehouse/internal/sqltypes"
	"fknsrs.biz/p/ytwarehouse/internal/warehouse"
)

var (
	ErrWorkerExists       = fmt.Errorf("worker already exists")
	ErrWorkerDoesNotExist = fmt.Errorf("worker does not exist")
	ErrNoPendingJobs      = fmt.Errorf("no pending jobs")
)

const (
	reserveAttempts = 25
	reserveJitter   = time.Millisecond * 500
)

// WorkerFunction runs one job. The returned string is recorded as the job's
// output, and a non-nil error schedules a retry while attempts remain.
type WorkerFunction func(ctx context.Context, w *Worker, j *Job) (string, error)

// Worker owns the queue name to function mapping and runs pending jobs for
// every registered queue.
type Worker struct {
	l      sync.RWMutex
	wakeup chan struct{}
	fns    map[string]WorkerFunction
}

func NewWorker(workerFunctions map[string]WorkerFunction) *Worker {
	fns := make(map[string]WorkerFunction, len(workerFunctions))
	for k, v := range workerFunctions {
		fns[k] = v
	}

	return &Worker{
		wakeup: make(chan struct{}, 1),
		fns:    fns,
	}
}

// checkRegistered returns an error naming every queue whose registration
// state differs from want. Callers hold w.l.
func (w *Worker) checkRegistered(queueNames []string, want bool) error {
	var wrong []string
	for _, queueName := range queueNames {
		if _, ok := w.fns[queueName]; ok != want {
			wrong = append(wrong, queueName)
		}
	}

	if len(wrong) == 0 {
		return nil
	}

	sort.Strings(wrong)

	if want {
		return fmt.Errorf("queue(s) %s: %w", strings.Join(wrong, ", "), ErrWorkerDoesNotExist)
	}

	return fmt.Errorf("queue(s) %s: %w", strings.Join(wrong, ", "), ErrWorkerExists)
}

func (w *Worker) function(queueName string) (WorkerFunction, bool) {
	w.l.RLock()
	defer w.l.RUnlock()

	fn, ok := w.fns[queueName]
	return fn, ok
}

func (job *Job) applyDefaults(now time.Time) {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	if job.RunAfter.IsZero() {
		job.RunAfter = now
	}
	if job.FailureDelay == 0 {
		job.FailureDelay = DefaultFailureDelay
	}
	if job.AttemptsRemaining == 0 {
		job.AttemptsRemaining = DefaultAttemptsRemaining
	}
	if job.ErrorMessages == nil {
		job.ErrorMessages = sqltypes.JSONStringSlice{}
	}
	if job.OutputMessages == nil {
		job.OutputMessages = sqltypes.JSONStringSlice{}
	}
}

// Add stores job inside tx and wakes Run. The queue must already have a
// function registered.
func (w *Worker) Add(ctx context.Context, tx *sql.Tx, job *Job) error {
	w.l.RLock()
	err := w.checkRegistered([]string{job.QueueName}, true)
	w.l.RUnlock()
	if err != nil {
		return fmt.Errorf("jobqueue.Worker.Add: %w", err)
	}

	store := ctxdb.GetStore(ctx)
	if store == nil {
		return fmt.Errorf("jobqueue.Worker.Add: %w", ctxdb.ErrNoDB)
	}

	job.applyDefaults(ctxclock.Now(ctx))

	if err := insert(ctx, tx, store.Dialect(), job); err != nil {
		return fmt.Errorf("jobqueue.Worker.Add: could not create job record: %w", err)
	}

	w.Trigger(ctx)

	return nil
}

// Trigger makes Run check for jobs without waiting out its delay.
func (w *Worker) Trigger(ctx context.Context) {
	select {
	case w.wakeup <- struct{}{}:
	default:
	}
}

func (w *Worker) Register(queueName string, workerFunction WorkerFunction) error {
	if err := w.RegisterAll(map[string]WorkerFunction{queueName: workerFunction}); err != nil {
		return fmt.Errorf("jobqueue.Worker.Register: %w", err)
	}

	return nil
}

// RegisterAll adds every function or none of them.
func (w *Worker) RegisterAll(workers map[string]WorkerFunction) error {
	queueNames := make([]string, 0, len(workers))
	for queueName := range workers {
		queueNames = append(queueNames, queueName)
	}

	w.l.Lock()
	defer w.l.Unlock()

	if err := w.checkRegistered(queueNames, false); err != nil {
		return fmt.Errorf("jobqueue.Worker.RegisterAll: %w", err)
	}

	for queueName, fn := range workers {
		w.fns[queueName] = fn
	}

	return nil
}

func (w *Worker) GetQueueNames() []string {
	w.l.RLock()
	defer w.l.RUnlock()

	queueNames := make([]string, 0, len(w.fns))
	for k := range w.fns {
		queueNames = append(queueNames, k)
	}
	sort.Strings(queueNames)

	return queueNames
}

// reserve claims the next runnable job. SQLite reports contention between
// workers as "database is locked", which is retried after a random pause.
func (w *Worker) reserve(ctx context.Context, dialect warehouse.Dialect) (*Job, error) {
	var lastErr error

	for i := 0; i < reserveAttempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(rand.Int63n(int64(reserveJitter)))):
			}
		}

		var job *Job
		err := ctxdb.UsingTx(ctx, nil, func(ctx context.Context, tx *sql.Tx) error {
			j, err := findNextAndReserve(ctx, tx, dialect, w.GetQueueNames(), ctxclock.Now(ctx), DefaultReserveDuration)
			job = j
			return err
		})
		if err == nil {
			return job, nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return nil, err
		}

		lastErr = err
	}

	return nil, lastErr
}

// RunOnce runs at most one job. It reports false with ErrNoPendingJobs when
// nothing is due.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	store := ctxdb.GetStore(ctx)
	if store == nil {
		return false, fmt.Errorf("jobqueue.Worker.RunOnce: %w", ctxdb.ErrNoDB)
	}

	job, err := w.reserve(ctx, store.Dialect())
	if err != nil {
		return false, fmt.Errorf("jobqueue.Worker.RunOnce: could not find/reserve job: %w", err)
	}
	if job == nil {
		return false, ErrNoPendingJobs
	}

	ctx, l := ctxlogger.WithFields(ctx, logrus.Fields{
		"job_queue_name": job.QueueName,
		"job_id":         job.ID,
		"job_payload":    job.Payload,
	})

	fn, ok := w.function(job.QueueName)
	if !ok {
		return false, fmt.Errorf("jobqueue.Worker.RunOnce: no function for queue %q: %w", job.QueueName, ErrWorkerDoesNotExist)
	}

	l.Info("running job")

	var errorMessage string
	outputMessage, err := catchpanic.CatchErr1(func() (string, error) { return fn(ctx, w, job) })
	if err != nil {
		errorMessage = err.Error()

		var panicError *catchpanic.PanicError
		if errors.As(err, &panicError) {
			l.WithField("panic_stack", string(panicError.Stack)).Error("job panicked")
		}
	}

	l.WithFields(logrus.Fields{"error_message": errorMessage, "output_message": outputMessage}).Info("finished job")

	if err := ctxdb.UsingTx(ctx, nil, func(ctx context.Context, tx *sql.Tx) error {
		return finish(ctx, tx, job, ctxclock.Now(ctx), errorMessage, outputMessage)
	}); err != nil {
		return false, fmt.Errorf("jobqueue.Worker.RunOnce: could not finish job: %w", err)
	}

	return true, nil
}

// Run polls for jobs until ctx is cancelled. It runs jobs back to back while
// there are any, and otherwise waits for Add or the idle delay.
func (w *Worker) Run(ctx context.Context) error {
	const idleDelay = time.Second * 30

	w.Trigger(ctx)

	delay := idleDelay

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		case <-w.wakeup:
		}

		didRunJob, err := w.RunOnce(ctx)
		switch {
		case errors.Is(err, context.Canceled):
			return err
		case err != nil && !errors.Is(err, ErrNoPendingJobs):
			ctxlogger.GetLogger(ctx).WithError(err).Error("could not run job")
			delay = idleDelay
		case didRunJob:
			delay = 0
		default:
			delay = idleDelay
		}
	}
}
