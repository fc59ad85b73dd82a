package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5"
)

func (d Dialect) schemaStatements() []string {
	ts := d.TimestampType
	instant := d.InstantType

	return []string{
		`create table if not exists channels (
  id varchar(64) primary key,
  name text not null,
  description text not null default '',
  thumbnail_url text not null default '',
  uploads_playlist_id varchar(64) not null default '',
  subscriber_count bigint not null default 0,
  video_count bigint not null default 0,
  view_count bigint not null default 0,
  published_at ` + ts + `
)`,
		`create table if not exists playlists (
  id varchar(64) primary key,
  name text not null,
  published_at ` + ts + `,
  channel_id varchar(64) not null references channels (id),
  channel_name text not null default '',
  item_count bigint not null default 0
)`,
		`create table if not exists videos (
  id varchar(64) primary key,
  channel_id varchar(64) not null references channels (id),
  title text not null,
  description text not null default '',
  thumbnail_url text not null default '',
  tags text,
  published_at ` + ts + `,
  duration varchar(16) not null default '00:00:00',
  view_count bigint not null default 0,
  like_count bigint,
  favorite_count bigint,
  comment_count bigint not null default 0,
  has_caption boolean not null default false
)`,
		`create table if not exists comments (
  id varchar(64) primary key,
  video_id varchar(64) not null references videos (id),
  text text not null,
  author text not null default '',
  published_at ` + ts + `
)`,
		`create index if not exists playlists_channel_id on playlists (channel_id)`,
		`create index if not exists videos_channel_id on videos (channel_id)`,
		`create index if not exists comments_video_id on comments (video_id)`,
		`create table if not exists jobs (
  id ` + d.SerialType + `,
  created_at ` + instant + ` not null,
  queue_name text not null,
  payload text not null,
  run_after ` + instant + ` not null,
  failure_delay bigint not null,
  attempts_remaining integer not null,
  reserved_at ` + instant + `,
  reserved_until ` + instant + `,
  finished_at ` + instant + `,
  error_messages text not null default '[]',
  output_messages text not null default '[]'
)`,
		`create index if not exists jobs_pending on jobs (queue_name, run_after) where finished_at is null`,
		// channels with no stored videos show up with a count of zero
		d.CreateView + ` channel_video_counts as
select channels.id as channel_id, channels.name as channel_name, count(videos.id) as video_count
from channels left join videos on videos.channel_id = channels.id
group by channels.id, channels.name`,
		d.CreateView + ` video_totals as
select count(*) as video_count, coalesce(avg(view_count), 0.0) as average_views, coalesce(sum(comment_count), 0) as total_comments
from videos`,
		d.CreateView + ` channel_totals as
select count(*) as channel_count, coalesce(sum(video_count), 0) as total_videos
from channels`,
	}
}

// EnsureSchema creates the tables, indexes and views if they are missing.
// It's safe to call on a database that already has them.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.UsingTx(ctx, nil, func(ctx context.Context, tx *sql.Tx) error {
		for _, stmt := range s.dialect.schemaStatements() {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("warehouse.Store.EnsureSchema: could not execute %q: %w", firstLine(stmt), err)
			}
		}

		return nil
	})
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i != -1 {
		return s[:i]
	}

	return s
}

// EnsureDatabase makes sure the database named by dsn exists. For sqlite
// that means the directory holding the file; the file itself is created on
// first connection. For postgres the database is created through the
// "postgres" maintenance database if pg_database doesn't list it.
func EnsureDatabase(ctx context.Context, dialect Dialect, dsn string) error {
	switch dialect.Name {
	case SQLite.Name:
		return ensureSQLiteDirectory(dsn)
	case Postgres.Name:
		return ensurePostgresDatabase(ctx, dsn)
	default:
		return fmt.Errorf("warehouse.EnsureDatabase: %q: %w", dialect.Name, ErrUnknownDialect)
	}
}

func ensureSQLiteDirectory(dsn string) error {
	p := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(p, '?'); i != -1 {
		p = p[:i]
	}

	if p == "" || p == ":memory:" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("warehouse.EnsureDatabase: could not create directory for %q: %w", p, err)
	}

	return nil
}

// maintenanceConfig parses a postgres URL or keyword/value connection
// string, and points it at the "postgres" database. It also returns the
// database the string originally named.
func maintenanceConfig(dsn string) (*pgx.ConnConfig, string, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, "", fmt.Errorf("could not parse connection string: %w", err)
	}

	name := cfg.Database
	if name == "" {
		return nil, "", fmt.Errorf("connection string has no database name")
	}

	cfg.Database = "postgres"

	return cfg, name, nil
}

func ensurePostgresDatabase(ctx context.Context, dsn string) error {
	cfg, name, err := maintenanceConfig(dsn)
	if err != nil {
		return fmt.Errorf("warehouse.EnsureDatabase: %w", err)
	}

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("warehouse.EnsureDatabase: %w: %w", ErrConnection, err)
	}
	defer conn.Close(ctx)

	var exists bool
	if err := conn.QueryRow(ctx, "select exists (select 1 from pg_database where datname = $1)", name).Scan(&exists); err != nil {
		return fmt.Errorf("warehouse.EnsureDatabase: %w: %w", ErrConnection, err)
	}

	if exists {
		return nil
	}

	if _, err := conn.Exec(ctx, "create database "+pgx.Identifier{name}.Sanitize()); err != nil {
		return fmt.Errorf("warehouse.EnsureDatabase: could not create database %q: %w", name, err)
	}

	return nil
}
