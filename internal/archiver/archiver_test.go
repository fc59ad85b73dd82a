package archiver

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fknsrs.biz/p/ytwarehouse/internal/reports"
	"fknsrs.biz/p/ytwarehouse/internal/warehouse"
	"fknsrs.biz/p/ytwarehouse/models"
)

func TestWriteResultCSV(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteResultCSV(&buf, &reports.Result{
		Columns: []string{"Title", "View Count"},
		Rows:    [][]string{{"a, b", "1"}, {"c", "2"}},
	}))

	assert.Equal(t, "Title,View Count\n\"a, b\",1\nc,2\n", buf.String())
}

func TestReportsZip(t *testing.T) {
	ctx := context.Background()

	s, err := warehouse.Open(ctx, "sqlite3", warehouse.SQLite, filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.EnsureSchema(ctx))

	require.NoError(t, s.UpsertChannel(ctx, models.Channel{ID: "UCa", Name: "Alpha", SubscriberCount: 7, PublishedAt: "2010-01-01 00:00:00"}))

	var buf bytes.Buffer
	require.NoError(t, ReportsZip(ctx, &buf, s.DB(), time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}

	var want []string
	for _, q := range reports.Catalog() {
		want = append(want, q.Name+".csv")
	}
	assert.Equal(t, want, names)

	f, err := zr.Open("top_subscribed_channel.csv")
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Name", "Subscriber Count"}, {"Alpha", "7"}}, records)
}
