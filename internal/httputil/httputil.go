package httputil

import (
	"net/http"
	"net/url"
)

// Messages are the one-shot notices a redirect carries to the next page in
// its query string.
type Messages struct {
	Error       string
	Success     string
	Information string
}

func ReadMessages(r *http.Request) Messages {
	q := r.URL.Query()

	return Messages{
		Error:       q.Get("error"),
		Success:     q.Get("success"),
		Information: q.Get("information"),
	}
}

func redirectWithMessage(rw http.ResponseWriter, r *http.Request, target, kind, message string) {
	u, err := url.Parse(target)
	if err != nil {
		panic(err)
	}

	q := u.Query()
	q.Del("error")
	q.Del("success")
	q.Del("information")
	q.Set(kind, message)
	u.RawQuery = q.Encode()

	http.Redirect(rw, r, u.String(), http.StatusFound)
}

func RedirectWithError(rw http.ResponseWriter, r *http.Request, target, message string) {
	redirectWithMessage(rw, r, target, "error", message)
}

func RedirectWithSuccess(rw http.ResponseWriter, r *http.Request, target, message string) {
	redirectWithMessage(rw, r, target, "success", message)
}

func RedirectWithInformation(rw http.ResponseWriter, r *http.Request, target, message string) {
	redirectWithMessage(rw, r, target, "information", message)
}

func NotFound(rw http.ResponseWriter, r *http.Request) {
	http.Error(rw, "Not found: "+r.URL.Path, http.StatusNotFound)
}
