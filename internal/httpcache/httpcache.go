package httpcache

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type Entry struct {
	UpdatedAt  time.Time
	URL        string
	Status     string
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (e *Entry) makeResponse(req *http.Request) *http.Response {
	return &http.Response{
		Status:        e.Status,
		StatusCode:    e.StatusCode,
		Header:        e.Header,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}

func (e *Entry) encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decodeEntry(d []byte) (*Entry, error) {
	var e Entry
	if err := gob.NewDecoder(bytes.NewReader(d)).Decode(&e); err != nil {
		return nil, err
	}

	return &e, nil
}

// Storage holds cache entries. Fetch returns nil, nil for a missing key.
type Storage interface {
	Fetch(ctx context.Context, key string) (*Entry, error)
	Save(ctx context.Context, key string, e *Entry, maxAge time.Duration) error
}

// CredentialParams are query parameters left out of cache keys and stored
// entries. Requests that differ only in these share an entry.
var CredentialParams = []string{"key", "access_token"}

// redact returns u without CredentialParams.
func redact(u *url.URL) *url.URL {
	q := u.Query()
	for _, p := range CredentialParams {
		q.Del(p)
	}

	r := *u
	r.RawQuery = q.Encode()

	return &r
}

func Key(u *url.URL) string {
	h := sha1.New()
	io.WriteString(h, redact(u).String())
	return u.Host + "/" + hex.EncodeToString(h.Sum(nil))
}

// Transport serves GET requests from storage while the stored copy is
// younger than maxAge. Only 200 responses are stored.
type Transport struct {
	transport http.RoundTripper
	storage   Storage
	maxAge    time.Duration
	now       func() time.Time
}

func NewTransport(transport http.RoundTripper, storage Storage, maxAge time.Duration) *Transport {
	if transport == nil {
		transport = http.DefaultTransport
	}

	if maxAge == 0 {
		maxAge = time.Hour * 24
	}

	return &Transport{
		transport: transport,
		storage:   storage,
		maxAge:    maxAge,
		now:       time.Now,
	}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return t.transport.RoundTrip(req)
	}

	ctx := req.Context()
	key := Key(req.URL)

	if e, err := t.storage.Fetch(ctx, key); err == nil && e != nil && t.now().Sub(e.UpdatedAt) < t.maxAge {
		return e.makeResponse(req), nil
	}

	res, err := t.transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusOK {
		return res, nil
	}

	defer res.Body.Close()

	d, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("httpcache.Transport.RoundTrip: could not read response body: %w", err)
	}

	e := &Entry{
		UpdatedAt:  t.now(),
		URL:        redact(req.URL).String(),
		Status:     res.Status,
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       d,
	}

	if err := t.storage.Save(ctx, key, e, t.maxAge); err != nil {
		return nil, fmt.Errorf("httpcache.Transport.RoundTrip: could not save response: %w", err)
	}

	return e.makeResponse(req), nil
}
