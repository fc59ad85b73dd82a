package jobqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"fknsrs.biz/p/sorm"

	"fknsrs.biz/p/ytwarehouse/internal/sqlbuilderutil"
	"fknsrs.biz/p/ytwarehouse/internal/sqltypes"
	"fknsrs.biz/p/ytwarehouse/internal/warehouse"
)

// ParsePayload splits a payload of the form "subject?k=v&..." into its
// subject and parameters.
func ParsePayload(s string) (string, url.Values, error) {
	subject, query, _ := strings.Cut(s, "?")

	params, err := url.ParseQuery(query)
	if err != nil {
		return subject, url.Values{}, fmt.Errorf("jobqueue.ParsePayload: %w", err)
	}

	return subject, params, nil
}

func FormatPayload(subject string, params url.Values) string {
	if len(params) == 0 {
		return subject
	}

	return subject + "?" + params.Encode()
}

const (
	DefaultFailureDelay      = time.Second * 30
	DefaultAttemptsRemaining = 3
	DefaultReserveDuration   = time.Minute * 15
)

// Job is one row of the jobs table. A job is runnable once RunAfter has
// passed, it is unfinished, and any reservation on it has lapsed.
type Job struct {
	ID                int `sql:",table:jobs"`
	CreatedAt         time.Time
	QueueName         string
	Payload           string
	RunAfter          time.Time
	FailureDelay      time.Duration
	AttemptsRemaining int
	ReservedAt        *time.Time
	ReservedUntil     *time.Time
	FinishedAt        *time.Time
	ErrorMessages     sqltypes.JSONStringSlice
	OutputMessages    sqltypes.JSONStringSlice
}

var jobTable = sqlbuilderutil.MustMakeTable(Job{})

// placeholders hands out numbered parameters in order.
type placeholders struct {
	dialect warehouse.Dialect
	args    []interface{}
}

func (p *placeholders) add(v interface{}) string {
	p.args = append(p.args, v)
	return p.dialect.Placeholder(len(p.args))
}

// insert creates the job row and reads back its id. "returning" works on
// both engines, where sorm.CreateRecord asks for sqlite's
// last_insert_rowid().
func insert(ctx context.Context, tx *sql.Tx, dialect warehouse.Dialect, job *Job) error {
	columns := jobTable.ColumnNames()[1:]
	values := jobTable.Row(job)[1:]

	query := fmt.Sprintf(
		"insert into %s (%s) values (%s) returning %s",
		jobTable.Name(),
		strings.Join(columns, ", "),
		dialect.Placeholders(len(columns)),
		jobTable.ColumnName("ID"),
	)

	if err := tx.QueryRowContext(ctx, query, values...).Scan(&job.ID); err != nil {
		return fmt.Errorf("jobqueue.insert: %w", err)
	}

	return nil
}

func findNext(ctx context.Context, db sorm.Querier, dialect warehouse.Dialect, queueNames []string, now time.Time) (*Job, error) {
	if len(queueNames) == 0 {
		return nil, nil
	}

	args := placeholders{dialect: dialect}

	names := make([]string, len(queueNames))
	for i, queueName := range queueNames {
		names[i] = args.add(queueName)
	}

	nowParam := args.add(now)

	var where strings.Builder
	fmt.Fprintf(&where, "where queue_name in (%s)", strings.Join(names, ", "))
	fmt.Fprintf(&where, " and run_after < %s", nowParam)
	fmt.Fprintf(&where, " and (reserved_until is null or reserved_until < %s)", nowParam)
	where.WriteString(" and finished_at is null")
	where.WriteString(" order by run_after asc, id asc")

	var job Job
	if err := sorm.FindFirstWhere(ctx, db, &job, where.String(), args.args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("jobqueue.findNext: %w", err)
	}

	return &job, nil
}

func (j *Job) reserve(now time.Time, d time.Duration) error {
	switch {
	case j.FinishedAt != nil:
		return fmt.Errorf("job %d already finished", j.ID)
	case j.ReservedUntil != nil && j.ReservedUntil.After(now):
		return fmt.Errorf("job %d is reserved until %s", j.ID, j.ReservedUntil.Format(time.RFC3339))
	}

	if d == 0 {
		d = DefaultReserveDuration
	}

	until := now.Add(d)
	j.ReservedAt, j.ReservedUntil = &now, &until

	return nil
}

// complete records one run. A failed run with attempts left puts the job
// back in the queue after its failure delay.
func (j *Job) complete(now time.Time, errorMessage, outputMessage string) error {
	if j.FinishedAt != nil {
		return fmt.Errorf("job %d already finished", j.ID)
	}

	j.ErrorMessages = append(j.ErrorMessages, errorMessage)
	j.OutputMessages = append(j.OutputMessages, outputMessage)

	if errorMessage == "" || j.AttemptsRemaining <= 0 {
		j.FinishedAt = &now
		return nil
	}

	j.AttemptsRemaining--
	j.RunAfter = now.Add(j.FailureDelay)
	j.ReservedAt, j.ReservedUntil = nil, nil

	return nil
}

func findNextAndReserve(ctx context.Context, tx *sql.Tx, dialect warehouse.Dialect, queueNames []string, now time.Time, reserveDuration time.Duration) (*Job, error) {
	job, err := findNext(ctx, tx, dialect, queueNames, now)
	if err != nil || job == nil {
		return nil, err
	}

	if err := job.reserve(now, reserveDuration); err != nil {
		return nil, fmt.Errorf("jobqueue.findNextAndReserve: %w", err)
	}

	if err := sorm.SaveRecord(ctx, tx, job); err != nil {
		return nil, fmt.Errorf("jobqueue.findNextAndReserve: could not save reservation: %w", err)
	}

	return job, nil
}

func finish(ctx context.Context, tx *sql.Tx, job *Job, now time.Time, errorMessage, outputMessage string) error {
	if err := job.complete(now, errorMessage, outputMessage); err != nil {
		return fmt.Errorf("jobqueue.finish: %w", err)
	}

	if err := sorm.SaveRecord(ctx, tx, job); err != nil {
		return fmt.Errorf("jobqueue.finish: could not save job record: %w", err)
	}

	return nil
}

// Recent returns the newest jobs, unfinished ones first.
func Recent(ctx context.Context, db sorm.Querier, limit int) ([]Job, error) {
	var jobs []Job
	if err := sorm.FindWhere(ctx, db, &jobs, fmt.Sprintf("order by (finished_at is null) desc, id desc limit %d", limit)); err != nil {
		return nil, fmt.Errorf("jobqueue.Recent: %w", err)
	}

	return jobs, nil
}

// LastError is the most recent non-empty error message, if any.
func (j *Job) LastError() string {
	for i := len(j.ErrorMessages) - 1; i >= 0; i-- {
		if j.ErrorMessages[i] != "" {
			return j.ErrorMessages[i]
		}
	}

	return ""
}

// LastOutput is the most recent non-empty output message, if any.
func (j *Job) LastOutput() string {
	for i := len(j.OutputMessages) - 1; i >= 0; i-- {
		if j.OutputMessages[i] != "" {
			return j.OutputMessages[i]
		}
	}

	return ""
}

// Status is one of "pending", "running", "failed" or "finished".
func (j *Job) Status() string {
	switch {
	case j.FinishedAt != nil && len(j.ErrorMessages) > 0 && j.ErrorMessages[len(j.ErrorMessages)-1] != "":
		return "failed"
	case j.FinishedAt != nil:
		return "finished"
	case j.ReservedAt != nil:
		return "running"
	default:
		return "pending"
	}
}
