package models

import (
	"fknsrs.biz/p/ytwarehouse/internal/sqlbuilderutil"
	"fknsrs.biz/p/ytwarehouse/internal/sqltypes"
)

var (
	PlaylistTable *sqlbuilderutil.Table
)

func init() {
	PlaylistTable = sqlbuilderutil.MustMakeTable(Playlist{})
}

type Playlist struct {
	ID          string `sql:",table:playlists"`
	Name        string
	PublishedAt sqltypes.Timestamp
	ChannelID   string
	ChannelName string
	ItemCount   int64
}
