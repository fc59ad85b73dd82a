package handlers

import (
	"net/http"

	"fknsrs.biz/p/ytwarehouse/internal/ctxdb"
	"fknsrs.biz/p/ytwarehouse/internal/ctxtemplate"
	"fknsrs.biz/p/ytwarehouse/internal/httputil"
)

func Database(rw http.ResponseWriter, r *http.Request) {
	s := ctxdb.GetStore(r.Context())
	if s == nil {
		panic(ctxdb.ErrNoDB)
	}

	counts, err := s.TableCounts(r.Context())

	var countsError string
	if err != nil {
		countsError = err.Error()
	}

	if err := ctxtemplate.ExecuteTemplateIntoResponse(r, rw, "page_database", map[string]interface{}{
		"Dialect":     s.Dialect().Name,
		"Counts":      counts,
		"CountsError": countsError,
	}); err != nil {
		panic(err)
	}
}

func DatabaseAction(rw http.ResponseWriter, r *http.Request) {
	s := ctxdb.GetStore(r.Context())
	if s == nil {
		panic(ctxdb.ErrNoDB)
	}

	if err := s.EnsureSchema(r.Context()); err != nil {
		httputil.RedirectWithError(rw, r, "/database", err.Error())
		return
	}

	httputil.RedirectWithSuccess(rw, r, "/database", "Tables and views are ready.")
}
