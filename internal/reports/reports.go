package reports

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strconv"

	"fknsrs.biz/p/sorm"
	"fknsrs.biz/p/sorm/qsorm"
	sb "fknsrs.biz/p/sqlbuilder"

	"fknsrs.biz/p/ytwarehouse/internal/sqltypes"
	"fknsrs.biz/p/ytwarehouse/internal/stringutil"
	"fknsrs.biz/p/ytwarehouse/models"
)

var (
	ErrUnknownQuery = fmt.Errorf("reports: unknown query")
)

type ChartKind string

const (
	NoChart    = ChartKind("")
	BarChart   = ChartKind("bar")
	ShareChart = ChartKind("share")
)

// Query is one entry of the catalog. Queries take no parameters; the
// catalog is the whole surface.
type Query struct {
	Name  string
	Title string
	Chart ChartKind
	run   func(ctx context.Context, db *sql.DB) (*Result, error)
}

type Result struct {
	Query   *Query
	Columns []string
	Rows    [][]string
	// Bars is filled in for queries with a chart.
	Bars []Bar
}

// Bar is one labelled value of a chart. Width is relative to the largest
// value and Share to the total, both as percentages.
type Bar struct {
	Label string
	Value float64
	Width float64
	Share float64
}

var catalog = []*Query{
	{Name: "top_viewed_videos", Title: "Top 10 most viewed videos", Chart: BarChart, run: topViewedVideos},
	{Name: "top_subscribed_channel", Title: "Channel with the most subscribers", run: topSubscribedChannel},
	{Name: "top_liked_videos", Title: "Top 10 most liked videos", Chart: BarChart, run: topLikedVideos},
	{Name: "average_views", Title: "Average views per video", run: averageViews},
	{Name: "videos_per_channel", Title: "Videos stored per channel", Chart: ShareChart, run: videosPerChannel},
	{Name: "top_commented_videos", Title: "Top 5 most commented videos", Chart: BarChart, run: topCommentedVideos},
	{Name: "total_comments", Title: "Total comments across all videos", run: totalComments},
	{Name: "largest_playlists", Title: "Top 5 playlists by item count", Chart: BarChart, run: largestPlaylists},
	{Name: "total_videos", Title: "Total videos across all channels", run: totalVideos},
	{Name: "newest_videos", Title: "10 most recently published videos", run: newestVideos},
}

var catalogIndex = func() map[string]*Query {
	m := make(map[string]*Query, len(catalog))
	for _, q := range catalog {
		m[q.Name] = q
	}
	return m
}()

// Catalog lists every query in display order.
func Catalog() []*Query {
	return append([]*Query(nil), catalog...)
}

func Lookup(name string) (*Query, error) {
	q, ok := catalogIndex[name]
	if !ok {
		return nil, fmt.Errorf("reports.Lookup: %q: %w", name, ErrUnknownQuery)
	}

	return q, nil
}

func Run(ctx context.Context, db *sql.DB, name string) (*Result, error) {
	q, err := Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("reports.Run: %w", err)
	}

	return q.Run(ctx, db)
}

func (q *Query) Run(ctx context.Context, db *sql.DB) (*Result, error) {
	res, err := q.run(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("reports.Query.Run: %s: %w", q.Name, err)
	}

	res.Query = q

	if q.Chart != NoChart {
		res.Bars = makeBars(res.Rows)
	}

	return res, nil
}

// tabulate turns records into display rows, one column per named field.
// Headers come from the field names.
func tabulate[T any](records []T, fields ...string) *Result {
	res := &Result{Rows: [][]string{}}

	for _, f := range fields {
		res.Columns = append(res.Columns, stringutil.PascalToTitle(f))
	}

	for _, r := range records {
		rv := reflect.ValueOf(r)

		row := make([]string, len(fields))
		for i, f := range fields {
			row[i] = formatValue(rv.FieldByName(f).Interface())
		}

		res.Rows = append(res.Rows, row)
	}

	return res
}

func formatValue(v interface{}) string {
	switch v := v.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case *int64:
		if v == nil {
			return ""
		}
		return strconv.FormatInt(*v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', 2, 64)
	case bool:
		return strconv.FormatBool(v)
	case sqltypes.Timestamp:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// makeBars charts the last column of each row against the first.
func makeBars(rows [][]string) []Bar {
	var bars []Bar
	var largest, total float64

	for _, row := range rows {
		if len(row) < 2 {
			continue
		}

		v, err := strconv.ParseFloat(row[len(row)-1], 64)
		if err != nil {
			continue
		}

		bars = append(bars, Bar{Label: row[0], Value: v})

		total += v
		if v > largest {
			largest = v
		}
	}

	for i := range bars {
		if largest > 0 {
			bars[i].Width = bars[i].Value / largest * 100
		}
		if total > 0 {
			bars[i].Share = bars[i].Value / total * 100
		}
	}

	return bars
}

func limit(n int) *sb.OffsetLimitClause {
	return sb.OffsetLimit(nil, sb.Literal(strconv.Itoa(n)))
}

func topVideos(ctx context.Context, db *sql.DB, column string, n int) ([]models.Video, error) {
	var videos []models.Video
	if err := qsorm.FindWhere(
		ctx,
		db,
		&videos,
		nil,
		[]sb.AsOrderingTerm{
			sb.OrderDesc(models.VideoTable.C(column)),
			sb.OrderAsc(models.VideoTable.C("ID")),
		},
		limit(n),
	); err != nil {
		return nil, err
	}

	return videos, nil
}

func topViewedVideos(ctx context.Context, db *sql.DB) (*Result, error) {
	videos, err := topVideos(ctx, db, "ViewCount", 10)
	if err != nil {
		return nil, err
	}

	return tabulate(videos, "Title", "ViewCount"), nil
}

func topSubscribedChannel(ctx context.Context, db *sql.DB) (*Result, error) {
	var channels []models.Channel
	if err := qsorm.FindWhere(
		ctx,
		db,
		&channels,
		nil,
		[]sb.AsOrderingTerm{
			sb.OrderDesc(models.ChannelTable.C("SubscriberCount")),
			sb.OrderAsc(models.ChannelTable.C("ID")),
		},
		limit(1),
	); err != nil {
		return nil, err
	}

	return tabulate(channels, "Name", "SubscriberCount"), nil
}

func topLikedVideos(ctx context.Context, db *sql.DB) (*Result, error) {
	// hidden like counts are null and would sort first on postgres
	var videos []models.Video
	if err := sorm.FindWhere(ctx, db, &videos, "where like_count is not null order by like_count desc, id asc limit 10"); err != nil {
		return nil, err
	}

	return tabulate(videos, "Title", "LikeCount"), nil
}

func videoTotals(ctx context.Context, db *sql.DB) ([]models.VideoTotals, error) {
	var totals []models.VideoTotals
	if err := qsorm.FindWhere(
		ctx,
		db,
		&totals,
		nil,
		[]sb.AsOrderingTerm{sb.OrderDesc(models.VideoTotalsTable.C("VideoCount"))},
		limit(1),
	); err != nil {
		return nil, err
	}

	return totals, nil
}

func averageViews(ctx context.Context, db *sql.DB) (*Result, error) {
	totals, err := videoTotals(ctx, db)
	if err != nil {
		return nil, err
	}

	return tabulate(totals, "VideoCount", "AverageViews"), nil
}

// videosPerChannel lists every stored channel, including those with no
// videos collected yet, so the result is as long as the channels table.
func videosPerChannel(ctx context.Context, db *sql.DB) (*Result, error) {
	var counts []models.ChannelVideoCount
	if err := qsorm.FindWhere(
		ctx,
		db,
		&counts,
		nil,
		[]sb.AsOrderingTerm{
			sb.OrderDesc(models.ChannelVideoCountTable.C("VideoCount")),
			sb.OrderAsc(models.ChannelVideoCountTable.C("ChannelName")),
		},
		nil,
	); err != nil {
		return nil, err
	}

	return tabulate(counts, "ChannelName", "VideoCount"), nil
}

func topCommentedVideos(ctx context.Context, db *sql.DB) (*Result, error) {
	videos, err := topVideos(ctx, db, "CommentCount", 5)
	if err != nil {
		return nil, err
	}

	return tabulate(videos, "Title", "CommentCount"), nil
}

func totalComments(ctx context.Context, db *sql.DB) (*Result, error) {
	totals, err := videoTotals(ctx, db)
	if err != nil {
		return nil, err
	}

	return tabulate(totals, "TotalComments"), nil
}

func largestPlaylists(ctx context.Context, db *sql.DB) (*Result, error) {
	var playlists []models.Playlist
	if err := qsorm.FindWhere(
		ctx,
		db,
		&playlists,
		nil,
		[]sb.AsOrderingTerm{
			sb.OrderDesc(models.PlaylistTable.C("ItemCount")),
			sb.OrderAsc(models.PlaylistTable.C("ID")),
		},
		limit(5),
	); err != nil {
		return nil, err
	}

	return tabulate(playlists, "Name", "ChannelName", "ItemCount"), nil
}

func totalVideos(ctx context.Context, db *sql.DB) (*Result, error) {
	var totals []models.ChannelTotals
	if err := qsorm.FindWhere(
		ctx,
		db,
		&totals,
		nil,
		[]sb.AsOrderingTerm{sb.OrderDesc(models.ChannelTotalsTable.C("ChannelCount"))},
		limit(1),
	); err != nil {
		return nil, err
	}

	return tabulate(totals, "ChannelCount", "TotalVideos"), nil
}

func newestVideos(ctx context.Context, db *sql.DB) (*Result, error) {
	videos, err := topVideos(ctx, db, "PublishedAt", 10)
	if err != nil {
		return nil, err
	}

	return tabulate(videos, "Title", "PublishedAt"), nil
}
