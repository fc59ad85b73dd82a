package ytapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Jeffail/gabs/v2"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"

	"fknsrs.biz/p/ytwarehouse/internal/ctxhttpclient"
	"fknsrs.biz/p/ytwarehouse/internal/ctxlogger"
)

const (
	DefaultEndpoint = "https://www.googleapis.com/youtube/v3"

	// the API refuses anything larger
	maxPageSize = 50
	// comment threads are read from the first page only
	maxCommentsPerVideo = 100
)

var (
	ErrNotFound         = fmt.Errorf("ytapi: not found")
	ErrConnection       = fmt.Errorf("ytapi: could not reach api")
	ErrMissingField     = fmt.Errorf("ytapi: required field missing from response")
	ErrCommentsDisabled = fmt.Errorf("ytapi: comments are disabled")
)

// Client talks to the YouTube Data API with a static key. HTTP requests go
// through the client from ctxhttpclient, so a caching transport can be
// installed there.
type Client struct {
	APIKey   string
	Endpoint string
	// Concurrency bounds the per-video lookups in GetVideos and GetComments.
	// Zero or one means one at a time.
	Concurrency int
}

func NewClient(apiKey, endpoint string, concurrency int) *Client {
	return &Client{APIKey: apiKey, Endpoint: endpoint, Concurrency: concurrency}
}

func (c *Client) endpoint() string {
	if c.Endpoint == "" {
		return DefaultEndpoint
	}

	return strings.TrimSuffix(c.Endpoint, "/")
}

func (c *Client) get(ctx context.Context, resource string, params url.Values) (*gabs.Container, error) {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	if c.APIKey != "" {
		q.Set("key", c.APIKey)
	}

	res, err := ctxhttpclient.Get(ctx, c.endpoint()+"/"+resource+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("ytapi.Client.get: %s: %w: %w", resource, ErrConnection, err)
	}
	defer res.Body.Close()

	if err := googleapi.CheckResponse(res); err != nil {
		return nil, fmt.Errorf("ytapi.Client.get: %s: %w", resource, classify(err))
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("ytapi.Client.get: %s: could not read response: %w: %w", resource, ErrConnection, err)
	}

	j, err := gabs.ParseJSON(body)
	if err != nil {
		return nil, fmt.Errorf("ytapi.Client.get: %s: could not parse response: %w", resource, err)
	}

	return j, nil
}

// classify attaches our sentinels to an API error envelope while keeping the
// *googleapi.Error reachable with errors.As.
func classify(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	if apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	for _, item := range apiErr.Errors {
		switch item.Reason {
		case "commentsDisabled":
			return fmt.Errorf("%w: %w", ErrCommentsDisabled, err)
		case "channelNotFound", "playlistNotFound", "videoNotFound":
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		}
	}

	return err
}

// list follows nextPageToken until the last page, calling fn for every item.
func (c *Client) list(ctx context.Context, resource string, params url.Values, fn func(item *gabs.Container) error) error {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("maxResults", fmt.Sprintf("%d", maxPageSize))

	for page := 1; ; page++ {
		j, err := c.get(ctx, resource, q)
		if err != nil {
			return err
		}

		for _, item := range j.S("items").Children() {
			if err := fn(item); err != nil {
				return err
			}
		}

		next, _ := j.S("nextPageToken").Data().(string)
		if next == "" {
			return nil
		}

		ctxlogger.GetLogger(ctx).WithFields(logrus.Fields{
			"resource": resource,
			"page":     page + 1,
		}).Debug("fetching next page")

		q.Set("pageToken", next)
	}
}
