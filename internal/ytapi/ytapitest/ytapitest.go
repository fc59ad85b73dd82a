// Package ytapitest serves a small in-memory imitation of the YouTube Data
// API for tests. It speaks the same JSON shapes, pagination and error
// envelopes as the real thing for the handful of resources ytapi reads.
package ytapitest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/Jeffail/gabs/v2"
)

type Channel struct {
	ID              string
	Title           string
	Description     string
	PublishedAt     string
	SubscriberCount int64
	VideoCount      int64
	ViewCount       int64
	// HideSubscriberCount leaves subscriberCount out of the statistics.
	HideSubscriberCount bool
}

type Playlist struct {
	ID          string
	ChannelID   string
	Title       string
	PublishedAt string
	VideoIDs    []string
}

type Video struct {
	ID            string
	ChannelID     string
	Title         string
	Description   string
	PublishedAt   string
	Duration      string
	Tags          []string
	ViewCount     int64
	LikeCount     *int64
	FavoriteCount *int64
	CommentCount  int64
	Caption       bool
}

type Comment struct {
	ID          string
	VideoID     string
	Text        string
	Author      string
	PublishedAt string
}

type Server struct {
	*httptest.Server

	// APIKey, when set, must be sent as the key parameter.
	APIKey string

	l                sync.Mutex
	channels         map[string]Channel
	channelOrder     []string
	playlists        map[string]Playlist
	playlistOrder    []string
	videos           map[string]Video
	comments         map[string][]Comment
	commentsDisabled map[string]bool
	commentsStatus   map[string]int
	requests         map[string]int
}

func NewServer() *Server {
	s := &Server{
		channels:         make(map[string]Channel),
		playlists:        make(map[string]Playlist),
		videos:           make(map[string]Video),
		comments:         make(map[string][]Comment),
		commentsDisabled: make(map[string]bool),
		commentsStatus:   make(map[string]int),
		requests:         make(map[string]int),
	}

	s.Server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))

	return s
}

// UploadsPlaylistID is the id of the uploads playlist AddChannel creates.
func UploadsPlaylistID(channelID string) string {
	return "UU" + strings.TrimPrefix(channelID, "UC")
}

// AddChannel registers a channel along with its empty uploads playlist.
func (s *Server) AddChannel(c Channel) {
	s.l.Lock()
	defer s.l.Unlock()

	if _, ok := s.channels[c.ID]; !ok {
		s.channelOrder = append(s.channelOrder, c.ID)
	}
	s.channels[c.ID] = c

	uploads := UploadsPlaylistID(c.ID)
	if _, ok := s.playlists[uploads]; !ok {
		s.playlists[uploads] = Playlist{ID: uploads, ChannelID: c.ID, Title: "Uploads from " + c.Title, PublishedAt: c.PublishedAt}
	}
}

func (s *Server) AddPlaylist(p Playlist) {
	s.l.Lock()
	defer s.l.Unlock()

	if _, ok := s.playlists[p.ID]; !ok {
		s.playlistOrder = append(s.playlistOrder, p.ID)
	}
	s.playlists[p.ID] = p
}

// AddVideo registers a video and appends it to its channel's uploads. Adding
// a known video again only replaces its details.
func (s *Server) AddVideo(v Video) {
	s.l.Lock()
	defer s.l.Unlock()

	_, known := s.videos[v.ID]
	s.videos[v.ID] = v
	if known {
		return
	}

	uploads := s.playlists[UploadsPlaylistID(v.ChannelID)]
	uploads.VideoIDs = append(uploads.VideoIDs, v.ID)
	s.playlists[uploads.ID] = uploads
}

func (s *Server) AddComments(comments ...Comment) {
	s.l.Lock()
	defer s.l.Unlock()

	for _, c := range comments {
		s.comments[c.VideoID] = append(s.comments[c.VideoID], c)
	}
}

// DisableComments makes commentThreads answer with the commentsDisabled 403
// for the video.
func (s *Server) DisableComments(videoID string) {
	s.l.Lock()
	defer s.l.Unlock()

	s.commentsDisabled[videoID] = true
}

// FailComments makes commentThreads answer with a bare error status for the
// video.
func (s *Server) FailComments(videoID string, status int) {
	s.l.Lock()
	defer s.l.Unlock()

	s.commentsStatus[videoID] = status
}

// Requests reports how many requests hit a resource, e.g. "videos".
func (s *Server) Requests(resource string) int {
	s.l.Lock()
	defer s.l.Unlock()

	return s.requests[resource]
}

func (s *Server) serveHTTP(rw http.ResponseWriter, r *http.Request) {
	resource := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	q := r.URL.Query()

	s.l.Lock()
	defer s.l.Unlock()

	s.requests[resource]++

	if s.APIKey != "" && q.Get("key") != s.APIKey {
		writeError(rw, http.StatusBadRequest, "keyInvalid", "API key not valid. Please pass a valid API key.")
		return
	}

	switch resource {
	case "channels":
		s.serveChannels(rw, r)
	case "playlists":
		s.servePlaylists(rw, r)
	case "playlistItems":
		s.servePlaylistItems(rw, r)
	case "videos":
		s.serveVideos(rw, r)
	case "commentThreads":
		s.serveCommentThreads(rw, r)
	default:
		writeError(rw, http.StatusNotFound, "notFound", "Not Found")
	}
}

func (s *Server) serveChannels(rw http.ResponseWriter, r *http.Request) {
	res := listResponse("youtube#channelListResponse")

	if c, ok := s.channels[r.URL.Query().Get("id")]; ok {
		item := gabs.New()
		item.Set("youtube#channel", "kind")
		item.Set(c.ID, "id")
		item.SetP(c.Title, "snippet.title")
		item.SetP(c.Description, "snippet.description")
		item.SetP(c.PublishedAt, "snippet.publishedAt")
		item.SetP("https://yt3.example.com/"+c.ID+".jpg", "snippet.thumbnails.default.url")
		item.SetP(UploadsPlaylistID(c.ID), "contentDetails.relatedPlaylists.uploads")
		item.SetP(strconv.FormatInt(c.ViewCount, 10), "statistics.viewCount")
		item.SetP(strconv.FormatInt(c.VideoCount, 10), "statistics.videoCount")
		item.SetP(c.HideSubscriberCount, "statistics.hiddenSubscriberCount")
		if !c.HideSubscriberCount {
			item.SetP(strconv.FormatInt(c.SubscriberCount, 10), "statistics.subscriberCount")
		}

		res.ArrayAppend(item.Data(), "items")
	}

	writeJSON(rw, res)
}

func (s *Server) servePlaylists(rw http.ResponseWriter, r *http.Request) {
	channelID := r.URL.Query().Get("channelId")

	c, ok := s.channels[channelID]
	if !ok {
		writeError(rw, http.StatusNotFound, "channelNotFound", "The channel specified in the channelId parameter cannot be found.")
		return
	}

	var items []interface{}
	for _, id := range s.playlistOrder {
		p := s.playlists[id]
		if p.ChannelID != channelID {
			continue
		}

		item := gabs.New()
		item.Set("youtube#playlist", "kind")
		item.Set(p.ID, "id")
		item.SetP(p.Title, "snippet.title")
		item.SetP(p.PublishedAt, "snippet.publishedAt")
		item.SetP(p.ChannelID, "snippet.channelId")
		item.SetP(c.Title, "snippet.channelTitle")
		item.SetP(len(p.VideoIDs), "contentDetails.itemCount")

		items = append(items, item.Data())
	}

	s.writePage(rw, r, "youtube#playlistListResponse", items)
}

func (s *Server) servePlaylistItems(rw http.ResponseWriter, r *http.Request) {
	p, ok := s.playlists[r.URL.Query().Get("playlistId")]
	if !ok {
		writeError(rw, http.StatusNotFound, "playlistNotFound", "The playlist identified with the request's playlistId parameter cannot be found.")
		return
	}

	var items []interface{}
	for i, videoID := range p.VideoIDs {
		item := gabs.New()
		item.Set("youtube#playlistItem", "kind")
		item.Set(fmt.Sprintf("%s.%d", p.ID, i), "id")
		item.SetP(p.ID, "snippet.playlistId")
		item.SetP(i, "snippet.position")
		item.SetP("youtube#video", "snippet.resourceId.kind")
		item.SetP(videoID, "snippet.resourceId.videoId")

		items = append(items, item.Data())
	}

	s.writePage(rw, r, "youtube#playlistItemListResponse", items)
}

func (s *Server) serveVideos(rw http.ResponseWriter, r *http.Request) {
	res := listResponse("youtube#videoListResponse")

	if v, ok := s.videos[r.URL.Query().Get("id")]; ok {
		item := gabs.New()
		item.Set("youtube#video", "kind")
		item.Set(v.ID, "id")
		item.SetP(v.ChannelID, "snippet.channelId")
		item.SetP(v.Title, "snippet.title")
		item.SetP(v.Description, "snippet.description")
		item.SetP(v.PublishedAt, "snippet.publishedAt")
		item.SetP("https://i.example.com/vi/"+v.ID+"/default.jpg", "snippet.thumbnails.default.url")
		if len(v.Tags) > 0 {
			tags := make([]interface{}, len(v.Tags))
			for i, t := range v.Tags {
				tags[i] = t
			}
			item.SetP(tags, "snippet.tags")
		}
		item.SetP(v.Duration, "contentDetails.duration")
		item.SetP(strconv.FormatBool(v.Caption), "contentDetails.caption")
		item.SetP(strconv.FormatInt(v.ViewCount, 10), "statistics.viewCount")
		if v.LikeCount != nil {
			item.SetP(strconv.FormatInt(*v.LikeCount, 10), "statistics.likeCount")
		}
		if v.FavoriteCount != nil {
			item.SetP(strconv.FormatInt(*v.FavoriteCount, 10), "statistics.favoriteCount")
		}
		item.SetP(strconv.FormatInt(v.CommentCount, 10), "statistics.commentCount")

		res.ArrayAppend(item.Data(), "items")
	}

	writeJSON(rw, res)
}

func (s *Server) serveCommentThreads(rw http.ResponseWriter, r *http.Request) {
	videoID := r.URL.Query().Get("videoId")

	if status := s.commentsStatus[videoID]; status != 0 {
		writeError(rw, status, "backendError", http.StatusText(status))
		return
	}
	if _, ok := s.videos[videoID]; !ok {
		writeError(rw, http.StatusNotFound, "videoNotFound", "The video identified by the videoId parameter could not be found.")
		return
	}
	if s.commentsDisabled[videoID] {
		writeError(rw, http.StatusForbidden, "commentsDisabled", "The video identified by the videoId parameter has disabled comments.")
		return
	}

	var items []interface{}
	for _, c := range s.comments[videoID] {
		item := gabs.New()
		item.Set("youtube#commentThread", "kind")
		item.Set(c.ID, "id")
		item.SetP(c.VideoID, "snippet.videoId")
		item.SetP(c.ID, "snippet.topLevelComment.id")
		item.SetP(c.Text, "snippet.topLevelComment.snippet.textDisplay")
		item.SetP(c.Author, "snippet.topLevelComment.snippet.authorDisplayName")
		item.SetP(c.PublishedAt, "snippet.topLevelComment.snippet.publishedAt")

		items = append(items, item.Data())
	}

	s.writePage(rw, r, "youtube#commentThreadListResponse", items)
}

// writePage serves one page of items. The page token is the offset of the
// first item on the page.
func (s *Server) writePage(rw http.ResponseWriter, r *http.Request, kind string, items []interface{}) {
	q := r.URL.Query()

	pageSize := 5
	if v, err := strconv.Atoi(q.Get("maxResults")); err == nil && v > 0 {
		pageSize = v
	}

	offset := 0
	if v := q.Get("pageToken"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > len(items) {
			writeError(rw, http.StatusBadRequest, "invalidPageToken", "The request specifies an invalid page token.")
			return
		}
		offset = n
	}

	end := offset + pageSize
	if end > len(items) {
		end = len(items)
	}

	res := listResponse(kind)
	for _, item := range items[offset:end] {
		res.ArrayAppend(item, "items")
	}
	res.SetP(len(items), "pageInfo.totalResults")
	res.SetP(pageSize, "pageInfo.resultsPerPage")
	if end < len(items) {
		res.Set(strconv.Itoa(end), "nextPageToken")
	}

	writeJSON(rw, res)
}

func listResponse(kind string) *gabs.Container {
	res := gabs.New()
	res.Set(kind, "kind")
	res.Array("items")

	return res
}

func writeJSON(rw http.ResponseWriter, c *gabs.Container) {
	rw.Header().Set("content-type", "application/json; charset=UTF-8")
	rw.WriteHeader(http.StatusOK)
	rw.Write(c.Bytes())
}

func writeError(rw http.ResponseWriter, code int, reason, message string) {
	detail := gabs.New()
	detail.Set(message, "message")
	detail.Set("youtube.api", "domain")
	detail.Set(reason, "reason")

	res := gabs.New()
	res.SetP(code, "error.code")
	res.SetP(message, "error.message")
	res.ArrayP("error.errors")
	res.ArrayAppendP(detail.Data(), "error.errors")

	rw.Header().Set("content-type", "application/json; charset=UTF-8")
	rw.WriteHeader(code)
	rw.Write(res.Bytes())
}
