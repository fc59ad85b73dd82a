package sqllogger

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"slices"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fknsrs.biz/p/ytwarehouse/internal/ctxlogger"
)

var printQueryTests = []struct {
	name   string
	text   string
	args   []interface{}
	output string
}{
	{"no arguments", "select 1", nil, "select 1"},
	{"whitespace collapsed", "select\n  id\n from   channels", nil, "select id from channels"},
	{"strings quoted", "where id = $1", []interface{}{"it's"}, "where id = 'it''s'"},
	{"mixed", "values ($1, $2, $3, $4)", []interface{}{int64(5), nil, true, 1.5}, "values (5, NULL, true, 1.5)"},
	{"question marks", "set a = ?2 where id = ?1", []interface{}{int64(7), "x"}, "set a = 'x' where id = 7"},
	{"reused", "$2 < $1 and $2 > 0", []interface{}{int64(9), int64(3)}, "3 < 9 and 3 > 0"},
	{"out of range", "where id = $3", []interface{}{"a"}, "where id = $3"},
	{"time", "where t < $1", []interface{}{time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)}, "where t < '2023-05-01T10:00:00Z'"},
	{"binary", "values ($1)", []interface{}{[]byte{0, 1, 2}}, "values ([3 bytes of binary data])"},
}

func TestPrintQuery(t *testing.T) {
	for _, tc := range printQueryTests {
		t.Run(tc.name, func(t *testing.T) {
			args := make([]driver.NamedValue, len(tc.args))
			for i, v := range tc.args {
				args[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
			}

			assert.Equal(t, tc.output, printQuery(tc.text, args))
		})
	}
}

func TestFilterSkipsText(t *testing.T) {
	a := assert.New(t)

	f := BasicFilter(0)
	a.True(f.skipsText("  SELECT * from videos"))
	a.True(f.skipsText("commit"))
	a.False(f.skipsText("insert into videos (id) values ($1)"))
	a.False(Filter{}.skipsText("select 1"))
}

func TestLoggedDriver(t *testing.T) {
	a := assert.New(t)

	if !slices.Contains(sql.Drivers(), "sqlite3:sqllogger_test") {
		sql.Register("sqlite3:sqllogger_test", New(&sqlite3.SQLiteDriver{}, BasicFilter(0)))
	}

	db, err := sql.Open("sqlite3:sqllogger_test", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	logger, hook := test.NewNullLogger()
	ctx := ctxlogger.WithLogger(context.Background(), logger)

	_, err = db.ExecContext(ctx, "create table t (id integer, name text)")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "insert into t (id, name) values ($1, $2)", 1, "one")
	require.NoError(t, err)

	var n int
	require.NoError(t, db.QueryRowContext(ctx, "select count(*) from t").Scan(&n))

	var contents []string
	for _, e := range hook.AllEntries() {
		contents = append(contents, e.Data["sql.content"].(string))
	}

	a.Equal([]string{
		"create table t (id integer, name text)",
		"insert into t (id, name) values (1, 'one')",
	}, contents)
}
