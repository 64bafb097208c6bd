package codec

import (
	"time"

	"github.com/turtacn/tokenkit/pkg/errors"
)

// CompactTimestamp renders t in UTC as the decimal YYYYMMDDHHMMSS.
// The form is fixed width for every year in 1000..9999, so numeric order matches time order.
func CompactTimestamp(t time.Time) int64 {
	u := t.UTC()
	date := int64(u.Year())*10000 + int64(u.Month())*100 + int64(u.Day())
	clock := int64(u.Hour())*10000 + int64(u.Minute())*100 + int64(u.Second())
	return date*1000000 + clock
}

// ParseCompactTimestamp reverses CompactTimestamp
func ParseCompactTimestamp(v int64) (time.Time, error) {
	if v < 10000101000000 || v > 99991231235959 {
		return time.Time{}, errors.ErrMalformed.WithMetadata("timestamp", v)
	}
	sec := int(v % 100)
	min := int(v / 100 % 100)
	hour := int(v / 10000 % 100)
	day := int(v / 1000000 % 100)
	month := int(v / 100000000 % 100)
	year := int(v / 10000000000)

	t := time.Date(year, time.Month(month), day, hour, min, sec, 0, time.UTC)
	if CompactTimestamp(t) != v {
		return time.Time{}, errors.ErrMalformed.WithMetadata("timestamp", v)
	}
	return t, nil
}
