package ytapi

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Jeffail/gabs/v2"

	"fknsrs.biz/p/ytwarehouse/internal/sqltypes"
	"fknsrs.biz/p/ytwarehouse/internal/timeutil"
)

// fields reads values out of one API item. The first failure sticks in err
// and every later read returns a zero value, so a mapping function can read
// all of its fields and check err once at the end.
type fields struct {
	c   *gabs.Container
	err error
}

func newFields(c *gabs.Container) *fields {
	return &fields{c: c}
}

func (f *fields) fail(err error) {
	if f.err == nil {
		f.err = err
	}
}

func (f *fields) str(path string) string {
	if f.err != nil {
		return ""
	}

	v, ok := f.c.Path(path).Data().(string)
	if !ok {
		f.fail(fmt.Errorf("%w: %s", ErrMissingField, path))
		return ""
	}

	return v
}

func (f *fields) optStr(path string) string {
	v, _ := f.c.Path(path).Data().(string)
	return v
}

func (f *fields) strs(path string) []string {
	var a []string
	for _, child := range f.c.Path(path).Children() {
		if s, ok := child.Data().(string); ok {
			a = append(a, s)
		}
	}

	return a
}

// count reads an unsigned count. The API sends these as decimal strings, but
// plain JSON numbers are accepted too. A nil result means the field is absent.
func (f *fields) count(path string) *int64 {
	if f.err != nil {
		return nil
	}

	var n int64
	switch v := f.c.Path(path).Data().(type) {
	case nil:
		return nil
	case string:
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			f.fail(fmt.Errorf("ytapi: %s: invalid count %q: %w", path, v, err))
			return nil
		}
		n = i
	case float64:
		n = int64(v)
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			f.fail(fmt.Errorf("ytapi: %s: invalid count %q: %w", path, v, err))
			return nil
		}
		n = i
	default:
		f.fail(fmt.Errorf("ytapi: %s: invalid count of type %T", path, v))
		return nil
	}

	if n < 0 {
		f.fail(fmt.Errorf("ytapi: %s: negative count %d", path, n))
		return nil
	}

	return &n
}

func (f *fields) countOrZero(path string) int64 {
	if n := f.count(path); n != nil {
		return *n
	}

	return 0
}

func (f *fields) timestamp(path string) sqltypes.Timestamp {
	s := f.str(path)
	if f.err != nil {
		return ""
	}

	v, err := timeutil.NormalizeTimestamp(s)
	if err != nil {
		f.fail(fmt.Errorf("ytapi: %s: %w", path, err))
		return ""
	}

	return sqltypes.Timestamp(v)
}
