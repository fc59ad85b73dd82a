package timeutil

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	ErrInvalidDuration = fmt.Errorf("timeutil: invalid ISO-8601 duration")
)

// DayTimeDuration is an xs:dayTimeDuration: days, hours, minutes and
// seconds, no months or years. Unlike NormalizeDuration it reads the whole
// value, so "PT90M" is an hour and a half.
type DayTimeDuration time.Duration

var dayTimeDurationPattern = regexp.MustCompile(`^(-)?P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

var dayTimeDurationUnits = [4]time.Duration{time.Hour * 24, time.Hour, time.Minute, time.Second}

func ParseDayTimeDuration(s string) (DayTimeDuration, error) {
	m := dayTimeDurationPattern.FindStringSubmatch(s)
	if m == nil || (m[2] == "" && m[3] == "" && m[4] == "" && m[5] == "") || s[len(s)-1] == 'T' {
		return 0, fmt.Errorf("timeutil.ParseDayTimeDuration: %q: %w", s, ErrInvalidDuration)
	}

	var total time.Duration

	for i, v := range m[2:] {
		if v == "" {
			continue
		}

		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("timeutil.ParseDayTimeDuration: %q: %w", s, ErrInvalidDuration)
		}

		total += time.Duration(f * float64(dayTimeDurationUnits[i]))
	}

	if m[1] == "-" {
		total = -total
	}

	return DayTimeDuration(total), nil
}

func (d *DayTimeDuration) UnmarshalText(b []byte) error {
	v, err := ParseDayTimeDuration(string(b))
	if err != nil {
		return err
	}

	*d = v

	return nil
}

// Clock formats d as "HH:MM:SS". Days fold into hours and fractional
// seconds are dropped.
func (d DayTimeDuration) Clock() string {
	v := time.Duration(d)

	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}

	h := v / time.Hour
	m := (v % time.Hour) / time.Minute
	s := (v % time.Minute) / time.Second

	return fmt.Sprintf("%s%02d:%02d:%02d", sign, h, m, s)
}
