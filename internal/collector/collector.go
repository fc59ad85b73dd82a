package collector

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"fknsrs.biz/p/ytwarehouse/internal/ctxlogger"
	"fknsrs.biz/p/ytwarehouse/internal/warehouse"
	"fknsrs.biz/p/ytwarehouse/models"
)

// Source is the remote side of a collection run. *ytapi.Client is the real
// one.
type Source interface {
	GetChannel(ctx context.Context, id string) (*models.Channel, error)
	ListPlaylists(ctx context.Context, channelID string) ([]models.Playlist, error)
	ListVideoIDs(ctx context.Context, channelID string) ([]string, error)
	GetVideos(ctx context.Context, ids []string) ([]models.Video, error)
	GetComments(ctx context.Context, videoIDs []string) ([]models.Comment, error)
}

// Collector fetches one kind of record for a channel and writes it to the
// store. Each step is independent, but the store's foreign keys mean the
// channel has to be collected before anything else, and videos before
// comments.
type Collector struct {
	source Source
	store  *warehouse.Store
}

func New(source Source, store *warehouse.Store) *Collector {
	return &Collector{source: source, store: store}
}

func (c *Collector) Store() *warehouse.Store { return c.store }

func (c *Collector) CollectChannel(ctx context.Context, channelID string) (*models.Channel, error) {
	ch, err := c.source.GetChannel(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("collector.CollectChannel: %w", err)
	}

	if err := c.store.UpsertChannel(ctx, *ch); err != nil {
		return nil, fmt.Errorf("collector.CollectChannel: %w", err)
	}

	ctxlogger.GetLogger(ctx).WithFields(logrus.Fields{
		"channel_id":   ch.ID,
		"channel_name": ch.Name,
	}).Info("stored channel")

	return ch, nil
}

func (c *Collector) CollectPlaylists(ctx context.Context, channelID string) (int, error) {
	playlists, err := c.source.ListPlaylists(ctx, channelID)
	if err != nil {
		return 0, fmt.Errorf("collector.CollectPlaylists: %w", err)
	}

	if err := c.store.UpsertPlaylists(ctx, playlists); err != nil {
		return 0, fmt.Errorf("collector.CollectPlaylists: %w", err)
	}

	ctxlogger.GetLogger(ctx).WithFields(logrus.Fields{
		"channel_id": channelID,
		"playlists":  len(playlists),
	}).Info("stored playlists")

	return len(playlists), nil
}

// CollectVideos enumerates the channel's uploads and stores every video the
// API still returns. It reports how many were stored.
func (c *Collector) CollectVideos(ctx context.Context, channelID string) (int, error) {
	ids, err := c.source.ListVideoIDs(ctx, channelID)
	if err != nil {
		return 0, fmt.Errorf("collector.CollectVideos: %w", err)
	}

	videos, err := c.source.GetVideos(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("collector.CollectVideos: %w", err)
	}

	if err := c.store.UpsertVideos(ctx, videos); err != nil {
		return 0, fmt.Errorf("collector.CollectVideos: %w", err)
	}

	ctxlogger.GetLogger(ctx).WithFields(logrus.Fields{
		"channel_id": channelID,
		"listed":     len(ids),
		"videos":     len(videos),
	}).Info("stored videos")

	return len(videos), nil
}

// CollectComments fetches comments for the videos of the channel that are
// already stored, so it only sees what an earlier CollectVideos wrote.
func (c *Collector) CollectComments(ctx context.Context, channelID string) (int, error) {
	ids, err := c.store.VideoIDs(ctx, channelID)
	if err != nil {
		return 0, fmt.Errorf("collector.CollectComments: %w", err)
	}

	comments, err := c.source.GetComments(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("collector.CollectComments: %w", err)
	}

	if err := c.store.UpsertComments(ctx, comments); err != nil {
		return 0, fmt.Errorf("collector.CollectComments: %w", err)
	}

	ctxlogger.GetLogger(ctx).WithFields(logrus.Fields{
		"channel_id": channelID,
		"videos":     len(ids),
		"comments":   len(comments),
	}).Info("stored comments")

	return len(comments), nil
}

type Summary struct {
	ChannelID   string
	ChannelName string
	Playlists   int
	Videos      int
	Comments    int
}

func (s Summary) String() string {
	return fmt.Sprintf("%s (%s): %d playlists, %d videos, %d comments", s.ChannelName, s.ChannelID, s.Playlists, s.Videos, s.Comments)
}

// CollectAll runs every step in dependency order and stops at the first
// failure. Steps that already finished stay committed.
func (c *Collector) CollectAll(ctx context.Context, channelID string) (*Summary, error) {
	ctx, _ = ctxlogger.WithFields(ctx, logrus.Fields{"channel_id": channelID})

	ch, err := c.CollectChannel(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("collector.CollectAll: %w", err)
	}

	summary := Summary{ChannelID: ch.ID, ChannelName: ch.Name}

	if summary.Playlists, err = c.CollectPlaylists(ctx, ch.ID); err != nil {
		return &summary, fmt.Errorf("collector.CollectAll: %w", err)
	}

	if summary.Videos, err = c.CollectVideos(ctx, ch.ID); err != nil {
		return &summary, fmt.Errorf("collector.CollectAll: %w", err)
	}

	if summary.Comments, err = c.CollectComments(ctx, ch.ID); err != nil {
		return &summary, fmt.Errorf("collector.CollectAll: %w", err)
	}

	return &summary, nil
}
