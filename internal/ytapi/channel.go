package ytapi

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Jeffail/gabs/v2"

	"fknsrs.biz/p/ytwarehouse/models"
)

func mapChannel(item *gabs.Container) (*models.Channel, error) {
	f := newFields(item)

	c := models.Channel{
		ID:                f.str("id"),
		Name:              f.str("snippet.title"),
		Description:       f.optStr("snippet.description"),
		ThumbnailURL:      f.optStr("snippet.thumbnails.default.url"),
		UploadsPlaylistID: f.str("contentDetails.relatedPlaylists.uploads"),
		// hidden statistics are stored as zero
		SubscriberCount: f.countOrZero("statistics.subscriberCount"),
		VideoCount:      f.countOrZero("statistics.videoCount"),
		ViewCount:       f.countOrZero("statistics.viewCount"),
		PublishedAt:     f.timestamp("snippet.publishedAt"),
	}

	if f.err != nil {
		return nil, f.err
	}

	return &c, nil
}

// GetChannel looks up a single channel by id.
func (c *Client) GetChannel(ctx context.Context, id string) (*models.Channel, error) {
	j, err := c.get(ctx, "channels", url.Values{
		"part": {"snippet,contentDetails,statistics"},
		"id":   {id},
	})
	if err != nil {
		return nil, fmt.Errorf("ytapi.Client.GetChannel: %w", err)
	}

	items := j.S("items").Children()
	if len(items) == 0 {
		return nil, fmt.Errorf("ytapi.Client.GetChannel: channel %q: %w", id, ErrNotFound)
	}

	ch, err := mapChannel(items[0])
	if err != nil {
		return nil, fmt.Errorf("ytapi.Client.GetChannel: channel %q: %w", id, err)
	}

	return ch, nil
}

func mapPlaylist(item *gabs.Container) (*models.Playlist, error) {
	f := newFields(item)

	p := models.Playlist{
		ID:          f.str("id"),
		Name:        f.str("snippet.title"),
		PublishedAt: f.timestamp("snippet.publishedAt"),
		ChannelID:   f.str("snippet.channelId"),
		ChannelName: f.optStr("snippet.channelTitle"),
		ItemCount:   f.countOrZero("contentDetails.itemCount"),
	}

	if f.err != nil {
		return nil, f.err
	}

	return &p, nil
}

// ListPlaylists returns every playlist owned by a channel, across all pages.
func (c *Client) ListPlaylists(ctx context.Context, channelID string) ([]models.Playlist, error) {
	var playlists []models.Playlist

	if err := c.list(ctx, "playlists", url.Values{
		"part":      {"snippet,contentDetails"},
		"channelId": {channelID},
	}, func(item *gabs.Container) error {
		p, err := mapPlaylist(item)
		if err != nil {
			return err
		}

		playlists = append(playlists, *p)

		return nil
	}); err != nil {
		return nil, fmt.Errorf("ytapi.Client.ListPlaylists: channel %q: %w", channelID, err)
	}

	return playlists, nil
}

// UploadsPlaylistID finds the playlist holding every upload of a channel.
func (c *Client) UploadsPlaylistID(ctx context.Context, channelID string) (string, error) {
	j, err := c.get(ctx, "channels", url.Values{
		"part": {"contentDetails"},
		"id":   {channelID},
	})
	if err != nil {
		return "", fmt.Errorf("ytapi.Client.UploadsPlaylistID: %w", err)
	}

	items := j.S("items").Children()
	if len(items) == 0 {
		return "", fmt.Errorf("ytapi.Client.UploadsPlaylistID: channel %q: %w", channelID, ErrNotFound)
	}

	f := newFields(items[0])
	id := f.str("contentDetails.relatedPlaylists.uploads")
	if f.err != nil {
		return "", fmt.Errorf("ytapi.Client.UploadsPlaylistID: channel %q: %w", channelID, f.err)
	}

	return id, nil
}

// ListPlaylistVideoIDs returns the id of every video in a playlist, in
// playlist order.
func (c *Client) ListPlaylistVideoIDs(ctx context.Context, playlistID string) ([]string, error) {
	var ids []string

	if err := c.list(ctx, "playlistItems", url.Values{
		"part":       {"snippet"},
		"playlistId": {playlistID},
	}, func(item *gabs.Container) error {
		f := newFields(item)
		id := f.str("snippet.resourceId.videoId")
		if f.err != nil {
			return f.err
		}

		ids = append(ids, id)

		return nil
	}); err != nil {
		return nil, fmt.Errorf("ytapi.Client.ListPlaylistVideoIDs: playlist %q: %w", playlistID, err)
	}

	return ids, nil
}

// ListVideoIDs resolves the uploads playlist of a channel and returns the
// ids of the videos in it.
func (c *Client) ListVideoIDs(ctx context.Context, channelID string) ([]string, error) {
	playlistID, err := c.UploadsPlaylistID(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("ytapi.Client.ListVideoIDs: %w", err)
	}

	ids, err := c.ListPlaylistVideoIDs(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("ytapi.Client.ListVideoIDs: %w", err)
	}

	return ids, nil
}
