package exchange

import (
	"fmt"
	"time"
)

// Interval is a kline/candlestick interval.
type Interval int

const (
	OneMinute Interval = iota
	ThreeMinute
	FiveMinute
	FifteenMinute
	ThirtyMinute
	OneHour
	TwoHour
	FourHour
	SixHour
	EightHour
	TwelveHour
	OneDay
	ThreeDay
	OneWeek
	OneMonth
)

var intervalNames = [...]string{"1m", "3m", "5m", "15m", "30m", "1h", "2h", "4h", "6h", "8h", "12h", "1d", "3d", "1w", "1M"}

var intervalDurations = [...]time.Duration{
	time.Minute, 3 * time.Minute, 5 * time.Minute, 15 * time.Minute, 30 * time.Minute,
	time.Hour, 2 * time.Hour, 4 * time.Hour, 6 * time.Hour, 8 * time.Hour, 12 * time.Hour,
	24 * time.Hour, 72 * time.Hour, 7 * 24 * time.Hour, 30 * 24 * time.Hour,
}

func (o Interval) String() string {
	if o < 0 || int(o) >= len(intervalNames) {
		return fmt.Sprintf("Interval(%d)", int(o))
	}
	return intervalNames[o]
}

// Duration is the nominal length of the interval (a month counts as 30 days).
func (o Interval) Duration() time.Duration {
	if o < 0 || int(o) >= len(intervalDurations) {
		return 0
	}
	return intervalDurations[o]
}

// Minutes is the interval length in whole minutes.
func (o Interval) Minutes() int {
	return int(o.Duration() / time.Minute)
}

func (o Interval) Valid() bool {
	return o >= OneMinute && o <= OneMonth
}

// ParseInterval parses the "1m", "4h", "1d" notation.
func ParseInterval(s string) (Interval, error) {
	for i, name := range intervalNames {
		if name == s {
			return Interval(i), nil
		}
	}
	return 0, fmt.Errorf("unknown interval %q", s)
}
