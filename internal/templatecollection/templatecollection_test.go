package templatecollection

import (
	"bytes"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFS = fstest.MapFS{
	"templates/layout.gohtml":      {Data: []byte(`{{define "layout_header"}}<h1>{{.Title}}</h1>{{end}}`)},
	"templates/shared_bars.gohtml": {Data: []byte(`{{define "shared_bars"}}{{range .}}[{{format_float .}}]{{end}}{{end}}`)},
	"templates/page_report.gohtml": {Data: []byte(`{{define "page_report"}}{{template "layout_header" .}}{{template "shared_bars" .Values}} {{pascal_to_title .Field}}{{end}}`)},
	"templates/page_empty.gohtml":  {Data: []byte(`{{define "page_empty"}}{{slice_length .Values}}{{end}}`)},
	"templates/not_a_page.gohtml":  {Data: []byte(`{{define "not_a_page"}}nope{{end}}`)},
}

var testData = map[string]interface{}{
	"Title":  "Views",
	"Values": []float64{1, 2.5},
	"Field":  "ViewCount",
}

func TestCached(t *testing.T) {
	a := assert.New(t)

	c, err := NewCached(testFS, Funcs())
	require.NoError(t, err)

	var buf bytes.Buffer
	a.NoError(c.ExecuteTemplate(&buf, "page_report", testData))
	a.Equal("<h1>Views</h1>[1.00][2.50] View Count", buf.String())

	buf.Reset()
	a.NoError(c.ExecuteTemplate(&buf, "page_empty", testData))
	a.Equal("2", buf.String())

	a.ErrorIs(c.ExecuteTemplate(&buf, "not_a_page", testData), ErrTemplateNotFound)
}

func TestLive(t *testing.T) {
	a := assert.New(t)

	sub, err := fs.Sub(testFS, "templates")
	require.NoError(t, err)

	c, err := NewLive(sub, Funcs())
	require.NoError(t, err)

	var buf bytes.Buffer
	a.NoError(c.ExecuteTemplate(&buf, "page_report", testData))
	a.Equal("<h1>Views</h1>[1.00][2.50] View Count", buf.String())

	a.Error(c.ExecuteTemplate(&buf, "page_missing", testData))
}
