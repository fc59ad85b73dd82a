package models

import (
	"fknsrs.biz/p/ytwarehouse/internal/sqlbuilderutil"
)

var (
	ChannelVideoCountTable *sqlbuilderutil.Table
	VideoTotalsTable       *sqlbuilderutil.Table
	ChannelTotalsTable     *sqlbuilderutil.Table
)

func init() {
	ChannelVideoCountTable = sqlbuilderutil.MustMakeTable(ChannelVideoCount{})
	VideoTotalsTable = sqlbuilderutil.MustMakeTable(VideoTotals{})
	ChannelTotalsTable = sqlbuilderutil.MustMakeTable(ChannelTotals{})
}

// ChannelVideoCount is a row of the channel_video_counts view: how many
// videos are stored for each channel.
type ChannelVideoCount struct {
	ChannelID   string `sql:",table:channel_video_counts"`
	ChannelName string
	VideoCount  int64
}

// VideoTotals is the single row of the video_totals view.
type VideoTotals struct {
	VideoCount    int64 `sql:",table:video_totals"`
	AverageViews  float64
	TotalComments int64
}

// ChannelTotals is the single row of the channel_totals view.
type ChannelTotals struct {
	ChannelCount int64 `sql:",table:channel_totals"`
	TotalVideos  int64
}
