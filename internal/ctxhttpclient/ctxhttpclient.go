package ctxhttpclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"fknsrs.biz/p/ytwarehouse/internal/ctxclock"
	"fknsrs.biz/p/ytwarehouse/internal/ctxlogger"
)

const UserAgent = "ytwarehouse/1.0 (+https://fknsrs.biz/p/ytwarehouse)"

var httpClientKey int

func WithHTTPClient(ctx context.Context, httpClient *http.Client) context.Context {
	return context.WithValue(ctx, &httpClientKey, httpClient)
}

// GetHTTPClient falls back to http.DefaultClient, so callers never need a
// nil check.
func GetHTTPClient(ctx context.Context) *http.Client {
	if v := ctx.Value(&httpClientKey); v != nil {
		return v.(*http.Client)
	}

	return http.DefaultClient
}

func Register(httpClient *http.Client) func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		next(rw, r.WithContext(WithHTTPClient(r.Context(), httpClient)))
	}
}

// Get fetches u with the context's client. Pages are requested in English
// so scraped markup doesn't vary with the server's locale.
func Get(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("ctxhttpclient.Get: %w", err)
	}

	req.Header.Set("user-agent", UserAgent)
	req.Header.Set("accept-language", "en")

	start := ctxclock.Now(ctx)

	res, err := GetHTTPClient(ctx).Do(req)
	if err != nil {
		return nil, fmt.Errorf("ctxhttpclient.Get: %w", err)
	}

	ctxlogger.GetLogger(ctx).WithFields(logrus.Fields{
		"http.host":        req.URL.Host,
		"http.path":        req.URL.Path,
		"http.status_code": res.StatusCode,
		"http.duration":    ctxclock.Now(ctx).Sub(start),
	}).Debug("http get finished")

	return res, nil
}
