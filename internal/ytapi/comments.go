package ytapi

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/Jeffail/gabs/v2"

	"fknsrs.biz/p/ytwarehouse/internal/ctxlogger"
	"fknsrs.biz/p/ytwarehouse/models"
)

func mapComment(item *gabs.Container) (*models.Comment, error) {
	f := newFields(item)

	c := models.Comment{
		ID:          f.str("snippet.topLevelComment.id"),
		VideoID:     f.str("snippet.videoId"),
		Text:        f.optStr("snippet.topLevelComment.snippet.textDisplay"),
		Author:      f.optStr("snippet.topLevelComment.snippet.authorDisplayName"),
		PublishedAt: f.timestamp("snippet.topLevelComment.snippet.publishedAt"),
	}

	if f.err != nil {
		return nil, f.err
	}

	return &c, nil
}

// GetVideoComments returns the first page of top level comments on a video.
func (c *Client) GetVideoComments(ctx context.Context, videoID string) ([]models.Comment, error) {
	j, err := c.get(ctx, "commentThreads", url.Values{
		"part":       {"snippet"},
		"videoId":    {videoID},
		"maxResults": {fmt.Sprintf("%d", maxCommentsPerVideo)},
	})
	if err != nil {
		return nil, fmt.Errorf("ytapi.Client.GetVideoComments: video %q: %w", videoID, err)
	}

	var comments []models.Comment
	for _, item := range j.S("items").Children() {
		cm, err := mapComment(item)
		if err != nil {
			return nil, fmt.Errorf("ytapi.Client.GetVideoComments: video %q: %w", videoID, err)
		}

		comments = append(comments, *cm)
	}

	return comments, nil
}

// GetComments collects comments for every video id. A video whose comments
// can't be read contributes nothing: disabled comments are logged at info
// level, other failures as warnings, and the rest of the ids are still
// fetched. Only cancellation of ctx ends the call early.
func (c *Client) GetComments(ctx context.Context, videoIDs []string) ([]models.Comment, error) {
	found := make([][]models.Comment, len(videoIDs))

	if err := forEach(ctx, len(videoIDs), c.Concurrency, func(ctx context.Context, i int) error {
		l := ctxlogger.GetLogger(ctx).WithField("video_id", videoIDs[i])

		comments, err := c.GetVideoComments(ctx, videoIDs[i])
		switch {
		case err == nil:
			found[i] = comments
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, ErrCommentsDisabled):
			l.Info("comments are disabled, skipping")
		default:
			l.WithError(err).Warn("could not fetch comments, skipping")
		}

		return nil
	}); err != nil {
		return nil, fmt.Errorf("ytapi.Client.GetComments: %w", err)
	}

	var comments []models.Comment
	for _, a := range found {
		comments = append(comments, a...)
	}

	return comments, nil
}
