package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"fknsrs.biz/p/ytwarehouse/internal/ctxdb"
	"fknsrs.biz/p/ytwarehouse/internal/ctxlogger"
	"fknsrs.biz/p/ytwarehouse/internal/jobqueue"
)

type JobUpdate struct {
	ID     int    `json:"id"`
	Queue  string `json:"queue"`
	Status string `json:"status"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

var jobsSSEInterval = 2 * time.Second

// JobsSSE streams an event whenever the status of one of the recent jobs
// changes.
func JobsSSE(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("content-type", "text/event-stream")
	rw.Header().Set("cache-control", "no-cache")
	rw.Header().Set("connection", "keep-alive")

	ctx := r.Context()

	lastStatus := make(map[int]string)

	ticker := time.NewTicker(jobsSSEInterval)
	defer ticker.Stop()

	for {
		jobs, err := jobqueue.Recent(ctx, ctxdb.GetDB(ctx), 200)
		if err != nil {
			ctxlogger.GetLogger(ctx).WithError(err).Warn("could not fetch jobs for update stream")
		}

		for _, job := range jobs {
			status := job.Status()
			if lastStatus[job.ID] == status {
				continue
			}

			lastStatus[job.ID] = status

			data, err := json.Marshal(JobUpdate{
				ID:     job.ID,
				Queue:  job.QueueName,
				Status: status,
				Output: job.LastOutput(),
				Error:  job.LastError(),
			})
			if err != nil {
				continue
			}

			fmt.Fprintf(rw, "data: %s\n\n", data)
		}

		if f, ok := rw.(http.Flusher); ok {
			f.Flush()
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
