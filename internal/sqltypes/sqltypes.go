package sqltypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"fknsrs.biz/p/ytwarehouse/internal/timeutil"
)

var storedTimeFormats = []string{
	timeutil.TimestampLayout,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05Z",
}

// Timestamp is a UTC timestamp held in timeutil.TimestampLayout form. It
// reads back the same text regardless of whether the driver hands over a
// time.Time or a string.
type Timestamp string

func (t Timestamp) Value() (driver.Value, error) {
	if t == "" {
		return nil, nil
	}

	return string(t), nil
}

func (t *Timestamp) Scan(src interface{}) error {
	switch src := src.(type) {
	case nil:
		*t = ""
		return nil
	case time.Time:
		*t = Timestamp(src.UTC().Format(timeutil.TimestampLayout))
		return nil
	case []byte:
		return t.scanString(string(src))
	case string:
		return t.scanString(src)
	default:
		return fmt.Errorf("sqltypes.Timestamp: could not scan input type of %T", src)
	}
}

func (t *Timestamp) scanString(s string) error {
	for _, format := range storedTimeFormats {
		if v, err := time.Parse(format, s); err == nil {
			*t = Timestamp(v.UTC().Format(timeutil.TimestampLayout))
			return nil
		}
	}

	return fmt.Errorf("sqltypes.Timestamp: could not parse input value %q", s)
}

func (t Timestamp) Time() (time.Time, error) {
	return time.Parse(timeutil.TimestampLayout, string(t))
}

func (t Timestamp) String() string { return string(t) }

// DelimitedList is stored as a single comma-joined string, or NULL when
// empty.
type DelimitedList []string

func (l DelimitedList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return nil, nil
	}

	return strings.Join(l, ","), nil
}

func (l *DelimitedList) Scan(src interface{}) error {
	switch src := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		*l = splitDelimited(string(src))
		return nil
	case string:
		*l = splitDelimited(src)
		return nil
	default:
		return fmt.Errorf("sqltypes.DelimitedList: could not scan input type of %T", src)
	}
}

func splitDelimited(s string) []string {
	if s == "" {
		return nil
	}

	return strings.Split(s, ",")
}

type JSONStringSlice []string

func (s JSONStringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}

	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("sqltypes.JSONStringSlice: could not encode value: %w", err)
	}

	return string(b), nil
}

func (s *JSONStringSlice) Scan(src interface{}) error {
	switch src := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		if err := json.Unmarshal(src, s); err != nil {
			return fmt.Errorf("sqltypes.JSONStringSlice: could not decode input (%T) as JSON: %w", src, err)
		}
		return nil
	case string:
		if err := json.Unmarshal([]byte(src), s); err != nil {
			return fmt.Errorf("sqltypes.JSONStringSlice: could not decode input (%T) as JSON: %w", src, err)
		}
		return nil
	default:
		return fmt.Errorf("sqltypes.JSONStringSlice: could not scan input type of %T", src)
	}
}
