package sqltypes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var timestampScanTests = []struct {
	name   string
	input  interface{}
	output Timestamp
	error  string
}{
	{"null", nil, "", ""},
	{"canonical string", "2023-05-01 10:00:00", "2023-05-01 10:00:00", ""},
	{"canonical bytes", []byte("2023-05-01 10:00:00"), "2023-05-01 10:00:00", ""},
	{"driver time", time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC), "2023-05-01 10:00:00", ""},
	{"driver time with offset", time.Date(2023, 5, 1, 12, 0, 0, 0, time.FixedZone("", 7200)), "2023-05-01 10:00:00", ""},
	{"rfc3339", "2023-05-01T10:00:00Z", "2023-05-01 10:00:00", ""},
	{"garbage", "soon", "", `sqltypes.Timestamp: could not parse input value "soon"`},
	{"integer", int64(5), "", "sqltypes.Timestamp: could not scan input type of int64"},
}

func TestTimestampScan(t *testing.T) {
	for _, tc := range timestampScanTests {
		t.Run(tc.name, func(t *testing.T) {
			a := assert.New(t)

			var v Timestamp
			err := v.Scan(tc.input)

			if tc.error != "" {
				a.EqualError(err, tc.error)
			} else {
				a.NoError(err)
			}

			a.Equal(tc.output, v)
		})
	}
}

func TestTimestampValue(t *testing.T) {
	a := assert.New(t)

	v, err := Timestamp("").Value()
	a.NoError(err)
	a.Nil(v)

	v, err = Timestamp("2023-05-01 10:00:00").Value()
	a.NoError(err)
	a.Equal("2023-05-01 10:00:00", v)
}

func TestDelimitedList(t *testing.T) {
	a := assert.New(t)

	v, err := DelimitedList(nil).Value()
	a.NoError(err)
	a.Nil(v)

	v, err = DelimitedList{"music", "live"}.Value()
	a.NoError(err)
	a.Equal("music,live", v)

	var l DelimitedList
	a.NoError(l.Scan("music,live"))
	a.Equal(DelimitedList{"music", "live"}, l)

	a.NoError(l.Scan(nil))
	a.Nil(l)
}

func TestJSONStringSlice(t *testing.T) {
	a := assert.New(t)

	v, err := JSONStringSlice(nil).Value()
	a.NoError(err)
	a.Equal("[]", v)

	v, err = JSONStringSlice{"", "could not fetch channel"}.Value()
	a.NoError(err)
	a.Equal(`["","could not fetch channel"]`, v)

	var s JSONStringSlice
	a.NoError(s.Scan(`["a","b"]`))
	a.Equal(JSONStringSlice{"a", "b"}, s)

	a.Error(s.Scan("not json"))
}
