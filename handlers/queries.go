package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"fknsrs.biz/p/ytwarehouse/internal/archiver"
	"fknsrs.biz/p/ytwarehouse/internal/ctxclock"
	"fknsrs.biz/p/ytwarehouse/internal/ctxdb"
	"fknsrs.biz/p/ytwarehouse/internal/ctxlogger"
	"fknsrs.biz/p/ytwarehouse/internal/ctxtemplate"
	"fknsrs.biz/p/ytwarehouse/internal/httputil"
	"fknsrs.biz/p/ytwarehouse/internal/reports"
)

func Query(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	res, err := reports.Run(ctx, ctxdb.GetDB(ctx), mux.Vars(r)["name"])
	if errors.Is(err, reports.ErrUnknownQuery) {
		httputil.NotFound(rw, r)
		return
	}
	if err != nil {
		httputil.RedirectWithError(rw, r, "/", err.Error())
		return
	}

	if err := ctxtemplate.ExecuteTemplateIntoResponse(r, rw, "page_query", map[string]interface{}{
		"Queries": reports.Catalog(),
		"Result":  res,
	}); err != nil {
		panic(err)
	}
}

func QueryCSV(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	res, err := reports.Run(ctx, ctxdb.GetDB(ctx), mux.Vars(r)["name"])
	if errors.Is(err, reports.ErrUnknownQuery) {
		httputil.NotFound(rw, r)
		return
	}
	if err != nil {
		httputil.RedirectWithError(rw, r, "/", err.Error())
		return
	}

	rw.Header().Set("content-type", "text/csv; charset=utf-8")
	rw.Header().Set("content-disposition", `attachment; filename="`+res.Query.Name+`.csv"`)

	if err := archiver.WriteResultCSV(rw, res); err != nil {
		panic(err)
	}
}

func Export(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rw.Header().Set("content-type", "application/zip")
	rw.Header().Set("content-disposition", `attachment; filename="reports.zip"`)

	// the archive is streamed, so a failure part way through can only be
	// logged
	if err := archiver.ReportsZip(ctx, rw, ctxdb.GetDB(ctx), ctxclock.Now(ctx)); err != nil {
		ctxlogger.GetLogger(ctx).WithError(err).Error("could not write reports archive")
	}
}
