package ytutil

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"fknsrs.biz/p/ytwarehouse/internal/ctxhttpclient"
)

// BaseURL is where handles, videos and playlists are resolved to channel
// pages. Tests point it at a local server.
var BaseURL = "https://www.youtube.com"

type IDType string

const (
	InvalidID  = IDType("invalid")
	ChannelID  = IDType("channel")
	HandleID   = IDType("handle")
	PlaylistID = IDType("playlist")
	VideoID    = IDType("video")
)

var (
	channelIDPattern = regexp.MustCompile(`^UC[-_a-zA-Z0-9]{22}$`)
	handlePattern    = regexp.MustCompile(`^@[-_.a-zA-Z0-9]{3,30}$`)
	videoIDPattern   = regexp.MustCompile(`^[-_a-zA-Z0-9]{11}$`)
	embeddedPattern  = regexp.MustCompile(`"(?:channelId|externalId|browseId)":"(UC[-_a-zA-Z0-9]{22})"`)
)

func IsChannelID(s string) bool { return channelIDPattern.MatchString(s) }

func isYouTubeHost(host string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	host = strings.TrimPrefix(host, "m.")
	return host == "youtube.com"
}

// ExtractAndIdentifyID works out what kind of id a bare id or URL refers to.
func ExtractAndIdentifyID(urlOrID string) (IDType, string, error) {
	urlOrID = strings.TrimSpace(urlOrID)

	if channelID, err := ExtractChannelID(urlOrID); err == nil {
		return ChannelID, channelID, nil
	}

	if handle, err := ExtractHandle(urlOrID); err == nil {
		return HandleID, handle, nil
	}

	if playlistID, err := ExtractPlaylistID(urlOrID); err == nil {
		return PlaylistID, playlistID, nil
	}

	if videoID, err := ExtractVideoID(urlOrID); err == nil {
		return VideoID, videoID, nil
	}

	return InvalidID, "", fmt.Errorf("ytutil.ExtractAndIdentifyID: could not extract a known ID type from %q", urlOrID)
}

func ExtractChannelID(urlOrID string) (string, error) {
	if IsChannelID(urlOrID) {
		return urlOrID, nil
	}

	if parsed, err := url.Parse(urlOrID); err == nil && isYouTubeHost(parsed.Host) {
		if id := parsed.Query().Get("channel_id"); id != "" {
			if !IsChannelID(id) {
				return "", fmt.Errorf("ytutil.ExtractChannelID: invalid channel id %q", id)
			}

			return id, nil
		}

		if parts := strings.Split(parsed.Path, "/"); len(parts) >= 3 && parts[1] == "channel" {
			if !IsChannelID(parts[2]) {
				return "", fmt.Errorf("ytutil.ExtractChannelID: invalid channel id %q", parts[2])
			}

			return parts[2], nil
		}
	}

	return "", fmt.Errorf("ytutil.ExtractChannelID: invalid url or id; could not find a known pattern")
}

// ExtractHandle accepts "@name" or a youtube.com/@name URL and returns the
// handle with its leading "@".
func ExtractHandle(urlOrHandle string) (string, error) {
	if handlePattern.MatchString(urlOrHandle) {
		return urlOrHandle, nil
	}

	if parsed, err := url.Parse(urlOrHandle); err == nil && isYouTubeHost(parsed.Host) {
		if parts := strings.Split(parsed.Path, "/"); len(parts) >= 2 && handlePattern.MatchString(parts[1]) {
			return parts[1], nil
		}
	}

	return "", fmt.Errorf("ytutil.ExtractHandle: invalid url or handle; could not find a known pattern")
}

func ExtractPlaylistID(urlOrID string) (string, error) {
	if u, err := url.Parse(urlOrID); err == nil && u.Scheme != "" {
		if isYouTubeHost(u.Host) && u.Path == "/playlist" {
			return ExtractPlaylistID(u.Query().Get("list"))
		}

		return "", fmt.Errorf("ytutil.ExtractPlaylistID: not a playlist url")
	}

	if strings.HasPrefix(urlOrID, "PL") || strings.HasPrefix(urlOrID, "UU") || strings.HasPrefix(urlOrID, "FL") || strings.HasPrefix(urlOrID, "OLAK5uy_") {
		return urlOrID, nil
	}

	return "", fmt.Errorf("ytutil.ExtractPlaylistID: invalid url or id; could not find a known pattern")
}

func ExtractVideoID(urlOrID string) (string, error) {
	if videoIDPattern.MatchString(urlOrID) {
		return urlOrID, nil
	}

	parsed, err := url.Parse(urlOrID)
	if err != nil {
		return "", fmt.Errorf("ytutil.ExtractVideoID: %w", err)
	}

	var id string
	switch {
	case isYouTubeHost(parsed.Host) && parsed.Path == "/watch":
		id = parsed.Query().Get("v")
	case parsed.Host == "youtu.be":
		id = strings.TrimPrefix(parsed.Path, "/")
	default:
		return "", fmt.Errorf("ytutil.ExtractVideoID: invalid url or id; could not find a known pattern")
	}

	if !videoIDPattern.MatchString(id) {
		return "", fmt.Errorf("ytutil.ExtractVideoID: invalid video id %q", id)
	}

	return id, nil
}

// FindChannelID resolves a channel id, handle, playlist, video or channel
// page URL to a channel id. Anything other than a bare channel id costs one
// page fetch.
func FindChannelID(ctx context.Context, urlOrID string) (string, error) {
	urlOrID = strings.TrimSpace(urlOrID)
	if urlOrID == "" {
		return "", fmt.Errorf("ytutil.FindChannelID: empty input")
	}

	var pageURL string

	idType, id, err := ExtractAndIdentifyID(urlOrID)
	switch {
	case err == nil && idType == ChannelID:
		return id, nil
	case err == nil && idType == HandleID:
		pageURL = BaseURL + "/" + id
	case err == nil && idType == PlaylistID:
		pageURL = BaseURL + "/playlist?list=" + url.QueryEscape(id)
	case err == nil && idType == VideoID:
		pageURL = BaseURL + "/watch?v=" + url.QueryEscape(id)
	case strings.HasPrefix(urlOrID, "http:") || strings.HasPrefix(urlOrID, "https:"):
		pageURL = urlOrID
	default:
		return "", fmt.Errorf("ytutil.FindChannelID: no strategy available to extract channel ID from %q", urlOrID)
	}

	channelID, err := getChannelIDFromURL(ctx, pageURL)
	if err != nil {
		return "", fmt.Errorf("ytutil.FindChannelID: %w", err)
	}

	return channelID, nil
}

func getChannelIDFromURL(ctx context.Context, u string) (string, error) {
	res, err := ctxhttpclient.Get(ctx, u)
	if err != nil {
		return "", fmt.Errorf("ytutil.getChannelIDFromURL: could not perform request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ytutil.getChannelIDFromURL: status code: %d", res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return "", fmt.Errorf("ytutil.getChannelIDFromURL: could not parse page: %w", err)
	}

	if id := channelIDFromDocument(doc); id != "" {
		return id, nil
	}

	return "", fmt.Errorf("ytutil.getChannelIDFromURL: could not find channel id in response")
}

func channelIDFromDocument(doc *goquery.Document) string {
	if id := doc.Find("meta[itemprop=channelId], meta[itemprop=identifier]").AttrOr("content", ""); IsChannelID(id) {
		return id
	}

	if href, ok := doc.Find("link[rel=canonical]").Attr("href"); ok {
		if id, err := ExtractChannelID(href); err == nil {
			return id
		}
	}

	// fall back to the initial data blobs in inline scripts
	for _, node := range doc.Find("script").Nodes {
		if node.FirstChild == nil || node.FirstChild.Type != html.TextNode {
			continue
		}

		if m := embeddedPattern.FindStringSubmatch(node.FirstChild.Data); m != nil {
			return m[1]
		}
	}

	return ""
}
