package ytutil

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChannelID = "UCpNvmbdtY8WAzhdNUDxbT2g"

func TestExtractAndIdentifyID(t *testing.T) {
	for _, tc := range []struct {
		in     string
		idType IDType
		id     string
	}{
		{testChannelID, ChannelID, testChannelID},
		{"https://www.youtube.com/channel/" + testChannelID, ChannelID, testChannelID},
		{"https://www.youtube.com/channel/" + testChannelID + "/videos", ChannelID, testChannelID},
		{"https://m.youtube.com/feeds/videos.xml?channel_id=" + testChannelID, ChannelID, testChannelID},
		{"@somebody", HandleID, "@somebody"},
		{"https://www.youtube.com/@some.body/featured", HandleID, "@some.body"},
		{"PLFgquLnL59alCl_2TQvOiD5Vgm1hCaGSI", PlaylistID, "PLFgquLnL59alCl_2TQvOiD5Vgm1hCaGSI"},
		{"https://www.youtube.com/playlist?list=PLFgquLnL59alCl_2TQvOiD5Vgm1hCaGSI", PlaylistID, "PLFgquLnL59alCl_2TQvOiD5Vgm1hCaGSI"},
		{"dQw4w9WgXcQ", VideoID, "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=1s", VideoID, "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", VideoID, "dQw4w9WgXcQ"},
		{"  " + testChannelID + "\n", ChannelID, testChannelID},
	} {
		t.Run(tc.in, func(t *testing.T) {
			a := assert.New(t)

			idType, id, err := ExtractAndIdentifyID(tc.in)
			a.NoError(err)
			a.Equal(tc.idType, idType)
			a.Equal(tc.id, id)
		})
	}
}

func TestExtractAndIdentifyIDInvalid(t *testing.T) {
	for _, in := range []string{
		"",
		"hello there",
		"https://example.com/channel/" + testChannelID,
		"https://www.youtube.com/channel/UCshort",
		"https://www.youtube.com/watch?v=short",
	} {
		t.Run(in, func(t *testing.T) {
			idType, _, err := ExtractAndIdentifyID(in)
			assert.Error(t, err)
			assert.Equal(t, InvalidID, idType)
		})
	}
}

func newPageServer(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()

	s := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		page, ok := pages[r.URL.RequestURI()]
		if !ok {
			http.NotFound(rw, r)
			return
		}

		rw.Header().Set("content-type", "text/html; charset=utf-8")
		fmt.Fprint(rw, page)
	}))
	t.Cleanup(s.Close)

	old := BaseURL
	BaseURL = s.URL
	t.Cleanup(func() { BaseURL = old })

	return s
}

func TestFindChannelID(t *testing.T) {
	s := newPageServer(t, map[string]string{
		"/@meta":                `<html><head><meta itemprop="channelId" content="` + testChannelID + `"></head></html>`,
		"/@canonical":           `<html><head><link rel="canonical" href="https://www.youtube.com/channel/` + testChannelID + `"></head></html>`,
		"/watch?v=dQw4w9WgXcQ":  `<html><body><script>var ytInitialPlayerResponse = {"videoDetails":{"channelId":"` + testChannelID + `"}};</script></body></html>`,
		"/playlist?list=PLabcd": `<html><body><script>var ytInitialData = {"browseId":"` + testChannelID + `"};</script></body></html>`,
		"/c/custom":             `<html><head><meta itemprop="identifier" content="` + testChannelID + `"></head></html>`,
		"/@nothing":             `<html><body>nothing to see</body></html>`,
	})

	for _, in := range []string{
		testChannelID,
		"@meta",
		"https://www.youtube.com/@canonical",
		"dQw4w9WgXcQ",
		"PLabcd",
		s.URL + "/c/custom",
	} {
		t.Run(in, func(t *testing.T) {
			id, err := FindChannelID(context.Background(), in)
			require.NoError(t, err)
			assert.Equal(t, testChannelID, id)
		})
	}

	_, err := FindChannelID(context.Background(), "@nothing")
	assert.Error(t, err)

	_, err = FindChannelID(context.Background(), "@missing")
	assert.Error(t, err)

	_, err = FindChannelID(context.Background(), "   ")
	assert.Error(t, err)
}
