package collector

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"fknsrs.biz/p/ytwarehouse/internal/jobqueue"
	"fknsrs.biz/p/ytwarehouse/internal/queuenames"
	"fknsrs.biz/p/ytwarehouse/internal/stringutil"
)

// ChainParams marks a job payload so that a successful step enqueues the
// steps that depend on it.
var ChainParams = url.Values{"chain": {"1"}}

// next lists what a chained step enqueues once it succeeds.
var next = map[string][]string{
	queuenames.ChannelUpdateMetadata: {queuenames.ChannelUpdatePlaylists, queuenames.ChannelUpdateVideos},
	queuenames.ChannelUpdateVideos:   {queuenames.ChannelUpdateComments},
}

// WorkerFunctions returns one job function per collection queue. Each job's
// payload is a channel id.
func (c *Collector) WorkerFunctions() map[string]jobqueue.WorkerFunction {
	return map[string]jobqueue.WorkerFunction{
		queuenames.ChannelUpdateMetadata: c.job(queuenames.ChannelUpdateMetadata, func(ctx context.Context, channelID string) (string, error) {
			ch, err := c.CollectChannel(ctx, channelID)
			if err != nil {
				return "", err
			}

			return fmt.Sprintf("stored channel %s", ch.Name), nil
		}),
		queuenames.ChannelUpdatePlaylists: c.job(queuenames.ChannelUpdatePlaylists, func(ctx context.Context, channelID string) (string, error) {
			n, err := c.CollectPlaylists(ctx, channelID)
			if err != nil {
				return "", err
			}

			return fmt.Sprintf("stored %d playlists", n), nil
		}),
		queuenames.ChannelUpdateVideos: c.job(queuenames.ChannelUpdateVideos, func(ctx context.Context, channelID string) (string, error) {
			n, err := c.CollectVideos(ctx, channelID)
			if err != nil {
				return "", err
			}

			return fmt.Sprintf("stored %d videos", n), nil
		}),
		queuenames.ChannelUpdateComments: c.job(queuenames.ChannelUpdateComments, func(ctx context.Context, channelID string) (string, error) {
			n, err := c.CollectComments(ctx, channelID)
			if err != nil {
				return "", err
			}

			return fmt.Sprintf("stored %d comments", n), nil
		}),
	}
}

func (c *Collector) job(queueName string, fn func(ctx context.Context, channelID string) (string, error)) jobqueue.WorkerFunction {
	return func(ctx context.Context, w *jobqueue.Worker, j *jobqueue.Job) (string, error) {
		channelID, params, err := jobqueue.ParsePayload(j.Payload)
		if err != nil {
			return "", err
		}

		output, err := fn(ctx, channelID)
		if err != nil {
			return "", err
		}

		if !stringutil.LooksTrue(params.Get("chain")) || len(next[queueName]) == 0 {
			return output, nil
		}

		if err := c.store.UsingTx(ctx, nil, func(ctx context.Context, tx *sql.Tx) error {
			for _, queueName := range next[queueName] {
				if err := w.Add(ctx, tx, &jobqueue.Job{
					QueueName: queueName,
					Payload:   j.Payload,
				}); err != nil {
					return err
				}
			}

			return nil
		}); err != nil {
			return output, fmt.Errorf("could not enqueue follow-up jobs: %w", err)
		}

		return output, nil
	}
}
