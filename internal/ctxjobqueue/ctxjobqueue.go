package ctxjobqueue

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/url"

	"fknsrs.biz/p/ytwarehouse/internal/ctxdb"
	"fknsrs.biz/p/ytwarehouse/internal/jobqueue"
)

// context registration

var workerKey int

func WithWorker(ctx context.Context, w *jobqueue.Worker) context.Context {
	return context.WithValue(ctx, &workerKey, w)
}

func GetWorker(ctx context.Context) *jobqueue.Worker {
	if v := ctx.Value(&workerKey); v != nil {
		return v.(*jobqueue.Worker)
	}

	return nil
}

// middleware

func Register(w *jobqueue.Worker) func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		next(rw, r.WithContext(WithWorker(r.Context(), w)))
	}
}

// main interface

var (
	ErrNoWorker = fmt.Errorf("ctxjobqueue: no worker found in context")
)

func Add(ctx context.Context, tx *sql.Tx, job *jobqueue.Job) error {
	w := GetWorker(ctx)
	if w == nil {
		return ErrNoWorker
	}

	if err := w.Add(ctx, tx, job); err != nil {
		return fmt.Errorf("ctxjobqueue.Add: %w", err)
	}

	return nil
}

// Enqueue adds one job per queue name in a single transaction, all with the
// same payload.
func Enqueue(ctx context.Context, subject string, params url.Values, queueNames ...string) error {
	payload := jobqueue.FormatPayload(subject, params)

	if err := ctxdb.UsingTx(ctx, nil, func(ctx context.Context, tx *sql.Tx) error {
		for _, queueName := range queueNames {
			if err := Add(ctx, tx, &jobqueue.Job{QueueName: queueName, Payload: payload}); err != nil {
				return err
			}
		}

		return nil
	}); err != nil {
		return fmt.Errorf("ctxjobqueue.Enqueue: %w", err)
	}

	return nil
}
