package warehouse

import (
	"context"
	"database/sql"
	"fmt"

	"fknsrs.biz/p/sorm"
	"fknsrs.biz/p/sorm/qsorm"

	"fknsrs.biz/p/ytwarehouse/models"
)

var (
	ErrConnection = fmt.Errorf("warehouse: could not connect to database")
)

type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps db. sorm's parameter prefix and qsorm's builder dialect are
// process-wide, so they follow the most recently created store.
func New(db *sql.DB, dialect Dialect) *Store {
	sorm.SetParameterPrefix(dialect.ParameterPrefix)
	qsorm.SetDialect(dialect.Builder)

	return &Store{db: db, dialect: dialect}
}

// Open opens a pool with the given driver and checks that the database
// answers.
func Open(ctx context.Context, driverName string, dialect Dialect, dsn string) (*Store, error) {
	if dialect.Name == SQLite.Name {
		dsn = SQLiteDSN(dsn)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("warehouse.Open: %w: %w", ErrConnection, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("warehouse.Open: %w: %w", ErrConnection, err)
	}

	return New(db, dialect), nil
}

func (s *Store) DB() *sql.DB      { return s.db }
func (s *Store) Dialect() Dialect { return s.dialect }
func (s *Store) Close() error     { return s.db.Close() }

type TxFunc func(ctx context.Context, tx *sql.Tx) error

// UsingTx runs fn in a transaction. The transaction is committed if fn
// returns nil and rolled back on every other path.
func (s *Store) UsingTx(ctx context.Context, opts *sql.TxOptions, fn TxFunc) error {
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
	defer tx.Rollback()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit: %w", err)
	}

	return nil
}

func (s *Store) Channel(ctx context.Context, id string) (*models.Channel, error) {
	var channel models.Channel
	if err := sorm.FindFirstWhere(ctx, s.db, &channel, "where id = "+s.dialect.Placeholder(1), id); err != nil {
		return nil, fmt.Errorf("warehouse.Store.Channel: %w", err)
	}

	return &channel, nil
}

// VideoIDs lists the stored videos of a channel, oldest first.
func (s *Store) VideoIDs(ctx context.Context, channelID string) ([]string, error) {
	var videos []models.Video
	if err := sorm.FindWhere(ctx, s.db, &videos, "where channel_id = "+s.dialect.Placeholder(1)+" order by published_at asc, id asc", channelID); err != nil {
		return nil, fmt.Errorf("warehouse.Store.VideoIDs: %w", err)
	}

	ids := make([]string, len(videos))
	for i, v := range videos {
		ids[i] = v.ID
	}

	return ids, nil
}

type TableCount struct {
	Table string
	Rows  int64
}

// TableCounts reports the row count of every table the collector writes.
// It fails if the schema hasn't been created.
func (s *Store) TableCounts(ctx context.Context) ([]TableCount, error) {
	var counts []TableCount

	for _, table := range []string{
		models.ChannelTable.Name(),
		models.PlaylistTable.Name(),
		models.VideoTable.Name(),
		models.CommentTable.Name(),
	} {
		c := TableCount{Table: table}
		if err := s.db.QueryRowContext(ctx, "select count(*) from "+table).Scan(&c.Rows); err != nil {
			return nil, fmt.Errorf("warehouse.Store.TableCounts: %s: %w", table, err)
		}

		counts = append(counts, c)
	}

	return counts, nil
}
