package ctxlogger

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"fknsrs.biz/p/ytwarehouse/internal/ctxclock"
)

// context registration

var loggerKey int

func WithLogger(ctx context.Context, l logrus.FieldLogger) context.Context {
	return context.WithValue(ctx, &loggerKey, l)
}

func GetLogger(ctx context.Context) logrus.FieldLogger {
	if v := ctx.Value(&loggerKey); v != nil {
		return v.(logrus.FieldLogger)
	}

	return logrus.StandardLogger()
}

// WithFields returns a context whose logger carries the extra fields.
func WithFields(ctx context.Context, fields logrus.Fields) (context.Context, logrus.FieldLogger) {
	l := GetLogger(ctx).WithFields(fields)
	return WithLogger(ctx, l), l
}

// middleware

func Register(l logrus.FieldLogger) func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		next(rw, r.WithContext(WithLogger(r.Context(), l)))
	}
}

func Log() func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		ctx, l := WithFields(r.Context(), logrus.Fields{
			"http.method":     r.Method,
			"http.path":       r.URL.String(),
			"http.host":       r.Host,
			"http.referer":    r.Header.Get("referer"),
			"http.user_agent": r.Header.Get("user-agent"),
		})

		start := ctxclock.Now(ctx)

		defer func() {
			fields := logrus.Fields{
				"http.duration": ctxclock.Now(ctx).Sub(start),
			}

			if nrw, ok := rw.(interface {
				Status() int
				Size() int
			}); ok {
				fields["http.status_code"] = nrw.Status()
				fields["http.response_size"] = nrw.Size()
			}

			l.WithFields(fields).Info("http request finished")
		}()

		l.Debug("http request started")

		next(rw, r.WithContext(ctx))
	}
}
