package ctxclock

import (
	"context"
	"net/http"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

// context registration

var clockKey int

func WithClock(ctx context.Context, c Clock) context.Context {
	if c == nil {
		c = RealClock{}
	}

	return context.WithValue(ctx, &clockKey, c)
}

// GetClock returns the clock in ctx, or the real clock if there isn't one.
func GetClock(ctx context.Context) Clock {
	if v := ctx.Value(&clockKey); v != nil {
		return v.(Clock)
	}

	return RealClock{}
}

func Now(ctx context.Context) time.Time {
	return GetClock(ctx).Now()
}

// middleware

func Register(c Clock) func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		next(rw, r.WithContext(WithClock(r.Context(), c)))
	}
}

// clocks

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

// ManualClock only moves when told to.
type ManualClock struct {
	m sync.Mutex
	t time.Time
}

func NewManualClock(t time.Time) *ManualClock {
	return &ManualClock{t: t}
}

func (c *ManualClock) Now() time.Time {
	c.m.Lock()
	defer c.m.Unlock()

	return c.t
}

func (c *ManualClock) Advance(d time.Duration) {
	c.m.Lock()
	defer c.m.Unlock()

	c.t = c.t.Add(d)
}
