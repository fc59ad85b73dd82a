package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var parseDayTimeDurationTests = []struct {
	input string
	value DayTimeDuration
	error bool
}{
	{"PT10S", DayTimeDuration(time.Second * 10), false},
	{"-PT10S", DayTimeDuration(time.Second * -10), false},
	{"P1DT2H3M4S", DayTimeDuration(time.Hour*26 + time.Minute*3 + time.Second*4), false},
	{"PT1.5S", DayTimeDuration(time.Millisecond * 1500), false},
	{"PT90M", DayTimeDuration(time.Minute * 90), false},
	{"P2D", DayTimeDuration(time.Hour * 48), false},
	{"P", 0, true},
	{"PT", 0, true},
	{"P1DT", 0, true},
	{"PT12", 0, true},
	{"PT1H2H", 0, true},
	{"P1Y", 0, true},
	{"ABC", 0, true},
	{"", 0, true},
}

func TestParseDayTimeDuration(t *testing.T) {
	for _, tc := range parseDayTimeDurationTests {
		t.Run(tc.input, func(t *testing.T) {
			a := assert.New(t)

			d, err := ParseDayTimeDuration(tc.input)
			if tc.error {
				a.ErrorIs(err, ErrInvalidDuration)
			} else {
				a.NoError(err)
			}

			a.Equal(tc.value, d)
		})
	}
}

func TestDayTimeDurationUnmarshalText(t *testing.T) {
	a := assert.New(t)

	var d DayTimeDuration
	a.NoError(d.UnmarshalText([]byte("PT3M")))
	a.Equal(DayTimeDuration(time.Minute*3), d)

	a.Error(d.UnmarshalText([]byte("3 minutes")))
	a.Equal(DayTimeDuration(time.Minute*3), d)
}

var dayTimeDurationClockTests = []struct {
	name   string
	input  DayTimeDuration
	output string
}{
	{"zero", 0, "00:00:00"},
	{"mixed", DayTimeDuration(time.Hour + time.Minute*2 + time.Second*3), "01:02:03"},
	{"days fold into hours", DayTimeDuration(time.Hour*26 + time.Second), "26:00:01"},
	{"fraction dropped", DayTimeDuration(time.Second*5 + time.Millisecond*900), "00:00:05"},
	{"negative", DayTimeDuration(-time.Minute), "-00:01:00"},
}

func TestDayTimeDurationClock(t *testing.T) {
	for _, tc := range dayTimeDurationClockTests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.output, tc.input.Clock())
		})
	}
}
