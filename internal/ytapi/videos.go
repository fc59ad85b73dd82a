package ytapi

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/Jeffail/gabs/v2"
	"github.com/sirupsen/logrus"

	"fknsrs.biz/p/ytwarehouse/internal/ctxlogger"
	"fknsrs.biz/p/ytwarehouse/internal/timeutil"
	"fknsrs.biz/p/ytwarehouse/models"
)

func mapVideo(ctx context.Context, item *gabs.Container) (*models.Video, error) {
	f := newFields(item)

	v := models.Video{
		ID:           f.str("id"),
		ChannelID:    f.str("snippet.channelId"),
		Title:        f.str("snippet.title"),
		Description:  f.optStr("snippet.description"),
		ThumbnailURL: f.optStr("snippet.thumbnails.default.url"),
		Tags:         f.strs("snippet.tags"),
		PublishedAt:  f.timestamp("snippet.publishedAt"),
		ViewCount:    f.countOrZero("statistics.viewCount"),
		// absent when the owner hides them, which is not the same as zero
		LikeCount:     f.count("statistics.likeCount"),
		FavoriteCount: f.count("statistics.favoriteCount"),
		CommentCount:  f.countOrZero("statistics.commentCount"),
		HasCaption:    f.optStr("contentDetails.caption") == "true",
	}

	raw := f.optStr("contentDetails.duration")
	v.Duration = timeutil.NormalizeDuration(raw)

	if f.err != nil {
		return nil, f.err
	}

	// NormalizeDuration ignores day components and doesn't carry, so note
	// anything the full parser reads differently
	if d, err := timeutil.ParseDayTimeDuration(raw); err == nil && d.Clock() != v.Duration {
		ctxlogger.GetLogger(ctx).WithFields(logrus.Fields{
			"video_id": v.ID,
			"duration": raw,
			"stored":   v.Duration,
			"parsed":   d.Clock(),
		}).Debug("duration stored in its literal form")
	}

	return &v, nil
}

// GetVideo looks up a single video by id.
func (c *Client) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	j, err := c.get(ctx, "videos", url.Values{
		"part": {"snippet,contentDetails,statistics"},
		"id":   {id},
	})
	if err != nil {
		return nil, fmt.Errorf("ytapi.Client.GetVideo: %w", err)
	}

	items := j.S("items").Children()
	if len(items) == 0 {
		return nil, fmt.Errorf("ytapi.Client.GetVideo: video %q: %w", id, ErrNotFound)
	}

	v, err := mapVideo(ctx, items[0])
	if err != nil {
		return nil, fmt.Errorf("ytapi.Client.GetVideo: video %q: %w", id, err)
	}

	return v, nil
}

// GetVideos looks up every id, one request each. Videos the API no longer
// knows about are left out with a warning; any other failure aborts the
// whole call. The result keeps the order of ids.
func (c *Client) GetVideos(ctx context.Context, ids []string) ([]models.Video, error) {
	found := make([]*models.Video, len(ids))

	if err := forEach(ctx, len(ids), c.Concurrency, func(ctx context.Context, i int) error {
		v, err := c.GetVideo(ctx, ids[i])
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				ctxlogger.GetLogger(ctx).WithField("video_id", ids[i]).Warn("video not found, skipping")
				return nil
			}

			return err
		}

		found[i] = v

		return nil
	}); err != nil {
		return nil, fmt.Errorf("ytapi.Client.GetVideos: %w", err)
	}

	videos := make([]models.Video, 0, len(ids))
	for _, v := range found {
		if v != nil {
			videos = append(videos, *v)
		}
	}

	return videos, nil
}
