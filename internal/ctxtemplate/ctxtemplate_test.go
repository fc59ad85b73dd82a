package ctxtemplate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fknsrs.biz/p/ytwarehouse/internal/templatecollection"
)

func TestWithDataMerges(t *testing.T) {
	a := assert.New(t)

	ctx := WithData(context.Background(), map[string]interface{}{
		"Site": map[string]interface{}{"Name": "warehouse", "Theme": "dark"},
	})
	child := WithData(ctx, map[string]interface{}{
		"Site": map[string]interface{}{"Theme": "light"},
	})

	a.Equal(map[string]interface{}{
		"Site": map[string]interface{}{"Name": "warehouse", "Theme": "light"},
	}, getData(child))

	// the parent context is untouched
	a.Equal("dark", getData(ctx)["Site"].(map[string]interface{})["Theme"])
}

func TestExecuteTemplateIntoResponse(t *testing.T) {
	a := assert.New(t)

	c, err := templatecollection.NewLive(fstest.MapFS{
		"page_ok.gohtml":     {Data: []byte(`{{define "page_ok"}}{{.Greeting}} {{.Name}}{{end}}`)},
		"page_broken.gohtml": {Data: []byte(`{{define "page_broken"}}{{.Name.Missing}}{{end}}`)},
	}, nil)
	require.NoError(t, err)

	ctx := WithData(WithCollection(context.Background(), c), map[string]interface{}{"Greeting": "hello"})

	rw := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	a.NoError(ExecuteTemplateIntoResponse(r, rw, "page_ok", map[string]interface{}{"Name": "there"}))
	a.Equal("hello there", rw.Body.String())
	a.Equal("text/html; charset=utf-8", rw.Header().Get("content-type"))

	rw = httptest.NewRecorder()
	a.Error(ExecuteTemplateIntoResponse(r, rw, "page_broken", map[string]interface{}{"Name": "there"}))
	a.Empty(rw.Body.String())
}

func TestExecuteTemplateWithoutCollection(t *testing.T) {
	err := ExecuteTemplate(context.Background(), nil, "page_ok", nil)
	assert.ErrorIs(t, err, ErrNoCollectionInContext)
}
