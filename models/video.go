package models

import (
	"fknsrs.biz/p/ytwarehouse/internal/sqlbuilderutil"
	"fknsrs.biz/p/ytwarehouse/internal/sqltypes"
)

var (
	VideoTable *sqlbuilderutil.Table
)

func init() {
	VideoTable = sqlbuilderutil.MustMakeTable(Video{})
}

type Video struct {
	ID           string `sql:",table:videos"`
	ChannelID    string
	Title        string
	Description  string
	ThumbnailURL string
	Tags         sqltypes.DelimitedList
	PublishedAt  sqltypes.Timestamp
	// Duration is "HH:MM:SS", see timeutil.NormalizeDuration.
	Duration      string
	ViewCount     int64
	LikeCount     *int64
	FavoriteCount *int64
	CommentCount  int64
	HasCaption    bool
}
