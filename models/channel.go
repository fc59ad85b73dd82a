package models

import (
	"fknsrs.biz/p/ytwarehouse/internal/sqlbuilderutil"
	"fknsrs.biz/p/ytwarehouse/internal/sqltypes"
)

var (
	ChannelTable *sqlbuilderutil.Table
)

func init() {
	ChannelTable = sqlbuilderutil.MustMakeTable(Channel{})
}

type Channel struct {
	ID                string `sql:",table:channels"`
	Name              string
	Description       string
	ThumbnailURL      string
	UploadsPlaylistID string
	SubscriberCount   int64
	VideoCount        int64
	ViewCount         int64
	PublishedAt       sqltypes.Timestamp
}
