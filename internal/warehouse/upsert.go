package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"fknsrs.biz/p/ytwarehouse/internal/sqlbuilderutil"
	"fknsrs.biz/p/ytwarehouse/models"
)

// Fields refreshed when a row with the same id already exists. Everything
// else keeps the value from the first insert.
var (
	channelRefreshFields  = []string{"Name", "Description", "ThumbnailURL", "SubscriberCount", "VideoCount", "ViewCount"}
	playlistRefreshFields = []string{"Name", "PublishedAt", "ItemCount"}
	videoRefreshFields    = []string{"ViewCount", "LikeCount", "CommentCount"}
	commentRefreshFields  = []string{"Text", "Author"}
)

func upsertQuery(d Dialect, t *sqlbuilderutil.Table, refreshFields []string) string {
	columns := t.ColumnNames()

	assignments := make([]string, len(refreshFields))
	for i, f := range refreshFields {
		c := t.ColumnName(f)
		assignments[i] = c + " = excluded." + c
	}

	return fmt.Sprintf(
		"insert into %s (%s) values (%s) on conflict (%s) do update set %s",
		t.Name(),
		strings.Join(columns, ", "),
		d.Placeholders(len(columns)),
		t.ColumnName("ID"),
		strings.Join(assignments, ", "),
	)
}

// upsertBatch writes every row in one transaction. The first failing row
// rolls back the whole batch.
func upsertBatch[T any](ctx context.Context, s *Store, t *sqlbuilderutil.Table, refreshFields []string, rows []T, id func(T) string) error {
	if len(rows) == 0 {
		return nil
	}

	query := upsertQuery(s.dialect, t, refreshFields)

	return s.UsingTx(ctx, nil, func(ctx context.Context, tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("could not prepare statement: %w", err)
		}
		defer stmt.Close()

		for i, row := range rows {
			if _, err := stmt.ExecContext(ctx, t.Row(row)...); err != nil {
				return fmt.Errorf("row %d (%s): %w", i, id(row), err)
			}
		}

		return nil
	})
}

func (s *Store) UpsertChannel(ctx context.Context, channel models.Channel) error {
	if err := upsertBatch(ctx, s, models.ChannelTable, channelRefreshFields, []models.Channel{channel}, func(c models.Channel) string { return c.ID }); err != nil {
		return fmt.Errorf("warehouse.Store.UpsertChannel: %w", err)
	}

	return nil
}

func (s *Store) UpsertPlaylists(ctx context.Context, playlists []models.Playlist) error {
	if err := upsertBatch(ctx, s, models.PlaylistTable, playlistRefreshFields, playlists, func(p models.Playlist) string { return p.ID }); err != nil {
		return fmt.Errorf("warehouse.Store.UpsertPlaylists: %w", err)
	}

	return nil
}

func (s *Store) UpsertVideos(ctx context.Context, videos []models.Video) error {
	if err := upsertBatch(ctx, s, models.VideoTable, videoRefreshFields, videos, func(v models.Video) string { return v.ID }); err != nil {
		return fmt.Errorf("warehouse.Store.UpsertVideos: %w", err)
	}

	return nil
}

func (s *Store) UpsertComments(ctx context.Context, comments []models.Comment) error {
	if err := upsertBatch(ctx, s, models.CommentTable, commentRefreshFields, comments, func(c models.Comment) string { return c.ID }); err != nil {
		return fmt.Errorf("warehouse.Store.UpsertComments: %w", err)
	}

	return nil
}
