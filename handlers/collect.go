package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/monoculum/formam"

	"fknsrs.biz/p/ytwarehouse/internal/collector"
	"fknsrs.biz/p/ytwarehouse/internal/ctxjobqueue"
	"fknsrs.biz/p/ytwarehouse/internal/ctxtemplate"
	"fknsrs.biz/p/ytwarehouse/internal/httputil"
	"fknsrs.biz/p/ytwarehouse/internal/queuenames"
	"fknsrs.biz/p/ytwarehouse/internal/ytutil"
)

type collectStep struct {
	Name  string
	Title string
}

var collectSteps = []collectStep{
	{"all", "Everything"},
	{"channel", "Channel details"},
	{"playlists", "Playlists"},
	{"videos", "Videos"},
	{"comments", "Comments"},
}

func Collect(rw http.ResponseWriter, r *http.Request) {
	if err := ctxtemplate.ExecuteTemplateIntoResponse(r, rw, "page_collect", map[string]interface{}{
		"Steps": collectSteps,
	}); err != nil {
		panic(err)
	}
}

func CollectAction(rw http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		panic(err)
	}

	var input struct {
		Channel string `formam:"channel"`
		Step    string `formam:"step"`
	}

	if err := formam.Decode(r.PostForm, &input); err != nil {
		panic(err)
	}

	if strings.TrimSpace(input.Channel) == "" {
		httputil.RedirectWithError(rw, r, "/collect", "Enter a channel ID or URL.")
		return
	}

	channelID, err := ytutil.FindChannelID(r.Context(), input.Channel)
	if err != nil {
		httputil.RedirectWithError(rw, r, "/collect", err.Error())
		return
	}

	if input.Step == "" || input.Step == "all" {
		err = ctxjobqueue.Enqueue(r.Context(), channelID, collector.ChainParams, queuenames.ChannelUpdateMetadata)
	} else if queueName, ok := queuenames.Steps[input.Step]; ok {
		err = ctxjobqueue.Enqueue(r.Context(), channelID, nil, queueName)
	} else {
		httputil.RedirectWithError(rw, r, "/collect", fmt.Sprintf("Unknown step %q.", input.Step))
		return
	}

	if err != nil {
		httputil.RedirectWithError(rw, r, "/collect", err.Error())
		return
	}

	httputil.RedirectWithSuccess(rw, r, "/jobs", fmt.Sprintf("Collection of %s has been queued.", channelID))
}
