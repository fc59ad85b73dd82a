package ctxhttpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	a := assert.New(t)

	var seen http.Header
	s := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
		io.WriteString(rw, "ok")
	}))
	defer s.Close()

	ctx := WithHTTPClient(context.Background(), s.Client())

	res, err := Get(ctx, s.URL+"/page")
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	a.NoError(err)
	a.Equal("ok", string(body))
	a.Equal(UserAgent, seen.Get("user-agent"))
	a.Equal("en", seen.Get("accept-language"))
}

func TestGetHTTPClientDefault(t *testing.T) {
	assert.Same(t, http.DefaultClient, GetHTTPClient(context.Background()))
}

func TestGetConnectionError(t *testing.T) {
	s := httptest.NewServer(http.NotFoundHandler())
	u := s.URL
	s.Close()

	_, err := Get(context.Background(), u)
	assert.Error(t, err)
}
