package timeutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the form every stored timestamp is written in.
const TimestampLayout = "2006-01-02 15:04:05"

var timestampInputLayouts = []string{
	"2006-01-02T15:04:05.999999999Z",
	"2006-01-02T15:04:05Z",
}

var durationPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

// NormalizeDuration converts an ISO-8601 duration of the form PT[nH][nM][nS]
// into "HH:MM:SS". Components are copied as-is, so "PT90M" becomes
// "00:90:00". Input that doesn't start with "PT" yields "00:00:00".
func NormalizeDuration(s string) string {
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return "00:00:00"
	}

	var parts [3]int
	for i, v := range m[1:] {
		if v == "" {
			continue
		}

		n, err := strconv.Atoi(v)
		if err != nil {
			return "00:00:00"
		}

		parts[i] = n
	}

	return fmt.Sprintf("%02d:%02d:%02d", parts[0], parts[1], parts[2])
}

type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("timeutil: could not parse timestamp %q", e.Input)
}

// NormalizeTimestamp accepts a UTC ISO-8601 timestamp with or without
// fractional seconds and returns it in TimestampLayout. Fractional seconds
// are truncated.
func NormalizeTimestamp(s string) (string, error) {
	t, err := ParseTimestamp(s)
	if err != nil {
		return "", err
	}

	return t.Format(TimestampLayout), nil
}

func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	for _, layout := range timestampInputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, &ParseError{Input: s}
}
