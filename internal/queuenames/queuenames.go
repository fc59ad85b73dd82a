package queuenames

// Each collection step has its own queue. The payload is a channel id,
// optionally followed by "?chain=1" to enqueue the dependent steps once the
// step succeeds.
const (
	ChannelUpdateMetadata  = "channel_update_metadata"
	ChannelUpdatePlaylists = "channel_update_playlists"
	ChannelUpdateVideos    = "channel_update_videos"
	ChannelUpdateComments  = "channel_update_comments"
)

// Priority lists the queues in the order a collection run needs them.
var Priority = []string{
	ChannelUpdateMetadata,
	ChannelUpdatePlaylists,
	ChannelUpdateVideos,
	ChannelUpdateComments,
}

// Steps maps the names offered on the collect form to their queues.
var Steps = map[string]string{
	"channel":   ChannelUpdateMetadata,
	"playlists": ChannelUpdatePlaylists,
	"videos":    ChannelUpdateVideos,
	"comments":  ChannelUpdateComments,
}
