package sqllogger

import (
	"context"
	"database/sql/driver"
	"fmt"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"
	"unicode"

	proxy "github.com/shogo82148/go-sql-proxy"
	"github.com/sirupsen/logrus"

	"fknsrs.biz/p/ytwarehouse/internal/ctxclock"
	"fknsrs.biz/p/ytwarehouse/internal/ctxlogger"
)

type stats struct {
	start time.Time
	query string
}

// Filter decides which statements get logged. The zero value logs
// everything.
type Filter struct {
	// SlowerThan drops statements that finished faster than this.
	SlowerThan time.Duration
	// SkipPrefixes drops statements starting with any of these words,
	// compared case-insensitively. "begin", "commit" and "rollback" also
	// match transaction control.
	SkipPrefixes []string
	// IgnoreCallers drops statements issued from inside these functions.
	IgnoreCallers []string
}

// BasicFilter logs writes and schema changes only.
func BasicFilter(slowerThan time.Duration) Filter {
	return Filter{
		SlowerThan:   slowerThan,
		SkipPrefixes: []string{"select", "pragma", "begin", "commit", "rollback"},
	}
}

func (f Filter) skipsText(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))

	for _, p := range f.SkipPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}

	return false
}

func (f Filter) skipsCaller() bool {
	if len(f.IgnoreCallers) == 0 {
		return false
	}

	pc := make([]uintptr, 64)
	frames := runtime.CallersFrames(pc[:runtime.Callers(3, pc)])

	for {
		frame, more := frames.Next()

		for _, fn := range f.IgnoreCallers {
			if frame.Function == fn {
				return true
			}
		}

		if !more {
			return false
		}
	}
}

func (f Filter) begin(ctx context.Context, text string, args []driver.NamedValue) (interface{}, error) {
	if f.skipsText(text) || f.skipsCaller() {
		return nil, nil
	}

	return &stats{
		start: ctxclock.Now(ctx),
		query: printQuery(text, args),
	}, nil
}

func (f Filter) end(ctx context.Context, qctx interface{}, err error, message string) error {
	s, ok := qctx.(*stats)
	if !ok || s == nil {
		return nil
	}

	duration := ctxclock.Now(ctx).Sub(s.start)
	if f.SlowerThan != 0 && duration < f.SlowerThan {
		return nil
	}

	l := ctxlogger.GetLogger(ctx).WithFields(logrus.Fields{
		"sql.start":    s.start.Format(time.RFC3339),
		"sql.duration": duration,
		"sql.content":  s.query,
	})

	if err != nil {
		l.WithError(err).Warn(message)
	} else {
		l.Info(message)
	}

	return nil
}

// New wraps a driver so that every statement it runs is logged through the
// logger in the statement's context.
func New(wrapped driver.Driver, f Filter) driver.Driver {
	return proxy.NewProxyContext(wrapped, &proxy.HooksContext{
		PreExec: func(ctx context.Context, stmt *proxy.Stmt, args []driver.NamedValue) (interface{}, error) {
			return f.begin(ctx, stmt.QueryString, args)
		},
		PostExec: func(ctx context.Context, qctx interface{}, stmt *proxy.Stmt, args []driver.NamedValue, _ driver.Result, err error) error {
			return f.end(ctx, qctx, err, "sql exec")
		},
		PreQuery: func(ctx context.Context, stmt *proxy.Stmt, args []driver.NamedValue) (interface{}, error) {
			return f.begin(ctx, stmt.QueryString, args)
		},
		PostQuery: func(ctx context.Context, qctx interface{}, stmt *proxy.Stmt, args []driver.NamedValue, _ driver.Rows, err error) error {
			return f.end(ctx, qctx, err, "sql query")
		},
		PreBegin: func(ctx context.Context, conn *proxy.Conn) (interface{}, error) {
			return f.begin(ctx, "begin", nil)
		},
		PostBegin: func(ctx context.Context, qctx interface{}, conn *proxy.Conn, err error) error {
			return f.end(ctx, qctx, err, "sql tx begin")
		},
		PreCommit: func(ctx context.Context, tx *proxy.Tx) (interface{}, error) {
			return f.begin(ctx, "commit", nil)
		},
		PostCommit: func(ctx context.Context, qctx interface{}, tx *proxy.Tx, err error) error {
			return f.end(ctx, qctx, err, "sql tx commit")
		},
		PreRollback: func(ctx context.Context, tx *proxy.Tx) (interface{}, error) {
			return f.begin(ctx, "rollback", nil)
		},
		PostRollback: func(ctx context.Context, qctx interface{}, tx *proxy.Tx, err error) error {
			return f.end(ctx, qctx, err, "sql tx rollback")
		},
	})
}

var (
	placeholderPattern = regexp.MustCompile(`[$?]([0-9]+)`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
)

// printQuery substitutes "$N" and "?N" placeholders with their arguments. Arguments
// have already been through the driver's value converter, so only the
// driver.Value types can show up here.
func printQuery(text string, args []driver.NamedValue) string {
	text = placeholderPattern.ReplaceAllStringFunc(text, func(s string) string {
		i, err := strconv.Atoi(s[1:])
		if err != nil || i < 1 || i > len(args) {
			return s
		}

		switch v := args[i-1].Value.(type) {
		case nil:
			return "NULL"
		case bool:
			return strconv.FormatBool(v)
		case int64:
			return strconv.FormatInt(v, 10)
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case time.Time:
			return "'" + v.Format(time.RFC3339Nano) + "'"
		case []byte:
			return quote(string(v))
		case string:
			return quote(v)
		default:
			return quote(fmt.Sprintf("%v", v))
		}
	})

	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

func quote(s string) string {
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return fmt.Sprintf("[%d bytes of binary data]", len(s))
		}
	}

	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
