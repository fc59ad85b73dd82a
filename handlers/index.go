package handlers

import (
	"net/http"

	"fknsrs.biz/p/ytwarehouse/internal/ctxdb"
	"fknsrs.biz/p/ytwarehouse/internal/ctxtemplate"
	"fknsrs.biz/p/ytwarehouse/internal/reports"
)

// charts shown on the front page
var indexCharts = []string{"top_viewed_videos", "videos_per_channel"}

func Index(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var charts []*reports.Result
	var chartError string

	for _, name := range indexCharts {
		res, err := reports.Run(ctx, ctxdb.GetDB(ctx), name)
		if err != nil {
			chartError = err.Error()
			break
		}

		charts = append(charts, res)
	}

	if err := ctxtemplate.ExecuteTemplateIntoResponse(r, rw, "page_index", map[string]interface{}{
		"Queries":    reports.Catalog(),
		"Charts":     charts,
		"ChartError": chartError,
	}); err != nil {
		panic(err)
	}
}
