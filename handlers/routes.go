package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"fknsrs.biz/p/ytwarehouse/internal/ctxtemplate"
	"fknsrs.biz/p/ytwarehouse/internal/httputil"
)

func AddRoutes(m *mux.Router) {
	m.Methods(http.MethodGet).Path("/").HandlerFunc(Index)
	m.Methods(http.MethodGet).Path("/collect").HandlerFunc(Collect)
	m.Methods(http.MethodPost).Path("/collect").HandlerFunc(CollectAction)
	m.Methods(http.MethodGet).Path("/database").HandlerFunc(Database)
	m.Methods(http.MethodPost).Path("/database").HandlerFunc(DatabaseAction)
	m.Methods(http.MethodGet).Path("/queries/{name}").HandlerFunc(Query)
	m.Methods(http.MethodGet).Path("/queries/{name}/csv").HandlerFunc(QueryCSV)
	m.Methods(http.MethodGet).Path("/export.zip").HandlerFunc(Export)
	m.Methods(http.MethodGet).Path("/jobs").HandlerFunc(Jobs)
	m.Methods(http.MethodGet).Path("/jobs/updates").HandlerFunc(JobsSSE)
}

// Messages makes the flash messages set by httputil's redirects available
// to every template.
func Messages() func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		next(rw, r.WithContext(ctxtemplate.WithData(r.Context(), map[string]interface{}{
			"Messages": httputil.ReadMessages(r),
		})))
	}
}
