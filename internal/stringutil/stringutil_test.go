package stringutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var caseConversionTests = []struct {
	pascalCase string
	snakeCase  string
}{
	{"ID", "id"},
	{"Name", "name"},
	{"ThumbnailURL", "thumbnail_url"},
	{"UploadsPlaylistID", "uploads_playlist_id"},
	{"ChannelID", "channel_id"},
	{"VideoCount", "video_count"},
	{"PublishedAt", "published_at"},
	{"HasCaption", "has_caption"},
	{"LikeCount", "like_count"},
	{"QueueName", "queue_name"},
	{"RunAfter", "run_after"},
	{"AttemptsRemaining", "attempts_remaining"},
	{"ReservedUntil", "reserved_until"},
	{"ErrorMessages", "error_messages"},
}

func TestPascalToSnake(t *testing.T) {
	for _, tc := range caseConversionTests {
		t.Run(tc.pascalCase, func(t *testing.T) {
			a := assert.New(t)
			a.Equal(tc.snakeCase, PascalToSnake(tc.pascalCase))
		})
	}
}

func BenchmarkPascalToSnake(b *testing.B) {
	for _, tc := range caseConversionTests {
		b.Run(tc.pascalCase, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				PascalToSnake(tc.pascalCase)
			}
		})
	}
}

var titleTests = []struct {
	pascalCase string
	title      string
}{
	{"Title", "Title"},
	{"ViewCount", "View Count"},
	{"AverageViews", "Average Views"},
	{"ChannelName", "Channel Name"},
	{"PublishedAt", "Published At"},
}

func TestPascalToTitle(t *testing.T) {
	for _, tc := range titleTests {
		t.Run(tc.pascalCase, func(t *testing.T) {
			assert.Equal(t, tc.title, PascalToTitle(tc.pascalCase))
		})
	}
}

func TestLooksTrue(t *testing.T) {
	a := assert.New(t)

	for _, s := range []string{"true", "TRUE", "yes", "1", "on"} {
		a.True(LooksTrue(s), s)
	}

	for _, s := range []string{"", "false", "0", "off", "nope"} {
		a.False(LooksTrue(s), s)
	}
}

func TestTruncate(t *testing.T) {
	a := assert.New(t)

	a.Equal("short", Truncate("short", 10))
	a.Equal("exactly10!", Truncate("exactly10!", 10))
	a.Equal("a much lo…", Truncate("a much longer title", 10))
	a.Equal("ひらが…", Truncate("ひらがなカタカナ", 4))
	a.Equal("", Truncate("anything", 0))
}
