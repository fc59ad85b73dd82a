package handlers

import (
	"net/http"

	"fknsrs.biz/p/ytwarehouse/internal/ctxdb"
	"fknsrs.biz/p/ytwarehouse/internal/ctxtemplate"
	"fknsrs.biz/p/ytwarehouse/internal/jobqueue"
)

func Jobs(rw http.ResponseWriter, r *http.Request) {
	jobs, err := jobqueue.Recent(r.Context(), ctxdb.GetDB(r.Context()), 200)
	if err != nil {
		panic(err)
	}

	if err := ctxtemplate.ExecuteTemplateIntoResponse(r, rw, "page_jobs", map[string]interface{}{
		"Jobs": jobs,
	}); err != nil {
		panic(err)
	}
}
