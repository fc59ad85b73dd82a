package httpcache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func newCountingServer(t *testing.T) (*httptest.Server, *int32) {
	var hits int32

	s := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)

		if r.URL.Path == "/missing" {
			http.NotFound(rw, r)
			return
		}

		rw.Header().Set("content-type", "application/json")
		fmt.Fprintf(rw, `{"hit":%d}`, n)
	}))
	t.Cleanup(s.Close)

	return s, &hits
}

func openBBolt(t *testing.T) *bbolt.DB {
	db, err := bbolt.Open(filepath.Join(t.TempDir(), "cache.db"), 0644, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func get(t *testing.T, c *http.Client, u string) (int, string) {
	res, err := c.Get(u)
	require.NoError(t, err)
	defer res.Body.Close()

	d, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	return res.StatusCode, string(d)
}

func TestTransportServesFromCache(t *testing.T) {
	a := assert.New(t)

	s, hits := newCountingServer(t)

	transport := NewTransport(nil, NewBBoltStorage(openBBolt(t)), time.Hour)
	c := &http.Client{Transport: transport}

	_, body := get(t, c, s.URL+"/channels?id=UC1")
	a.Equal(`{"hit":1}`, body)

	_, body = get(t, c, s.URL+"/channels?id=UC1")
	a.Equal(`{"hit":1}`, body)
	a.Equal(int32(1), atomic.LoadInt32(hits))

	_, body = get(t, c, s.URL+"/channels?id=UC2")
	a.Equal(`{"hit":2}`, body)
}

func TestTransportSkipsErrorsAndExpires(t *testing.T) {
	a := assert.New(t)

	s, hits := newCountingServer(t)

	now := time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)

	transport := NewTransport(nil, NewBBoltStorage(openBBolt(t)), time.Minute)
	transport.now = func() time.Time { return now }
	c := &http.Client{Transport: transport}

	status, _ := get(t, c, s.URL+"/missing")
	a.Equal(http.StatusNotFound, status)
	status, _ = get(t, c, s.URL+"/missing")
	a.Equal(http.StatusNotFound, status)
	a.Equal(int32(2), atomic.LoadInt32(hits))

	get(t, c, s.URL+"/videos")
	get(t, c, s.URL+"/videos")
	a.Equal(int32(3), atomic.LoadInt32(hits))

	now = now.Add(time.Minute * 2)

	_, body := get(t, c, s.URL+"/videos")
	a.Equal(`{"hit":4}`, body)
}

func TestBBoltStorageMissingKey(t *testing.T) {
	e, err := NewBBoltStorage(openBBolt(t)).Fetch(context.Background(), "nothing")
	assert.NoError(t, err)
	assert.Nil(t, e)
}

func TestRedisStorage(t *testing.T) {
	u := os.Getenv("TEST_REDIS_URL")
	if u == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	a := assert.New(t)
	ctx := context.Background()

	s, err := NewRedisStorageFromURL(u)
	require.NoError(t, err)
	defer s.Close()

	key := fmt.Sprintf("test/%d", time.Now().UnixNano())

	e, err := s.Fetch(ctx, key)
	a.NoError(err)
	a.Nil(e)

	a.NoError(s.Save(ctx, key, &Entry{URL: "http://example.com", StatusCode: 200, Body: []byte("ok")}, time.Minute))

	e, err = s.Fetch(ctx, key)
	if a.NoError(err) && a.NotNil(e) {
		a.Equal([]byte("ok"), e.Body)
	}
}

type memoryStorage map[string]*Entry

func (m memoryStorage) Fetch(ctx context.Context, key string) (*Entry, error) { return m[key], nil }

func (m memoryStorage) Save(ctx context.Context, key string, e *Entry, maxAge time.Duration) error {
	m[key] = e
	return nil
}

func TestTransportLeavesCredentialsOut(t *testing.T) {
	a := assert.New(t)

	s, hits := newCountingServer(t)

	storage := memoryStorage{}
	c := &http.Client{Transport: NewTransport(nil, storage, time.Hour)}

	_, body := get(t, c, s.URL+"/videos?id=v1&key=secret-one")
	a.Equal(`{"hit":1}`, body)

	_, body = get(t, c, s.URL+"/videos?key=secret-two&id=v1")
	a.Equal(`{"hit":1}`, body)
	a.Equal(int32(1), atomic.LoadInt32(hits))

	require.Len(t, storage, 1)
	for key, e := range storage {
		a.NotContains(key, "secret")
		a.NotContains(e.URL, "secret")
		a.Contains(e.URL, "id=v1")
	}
}
