package model

import (
	"fmt"
	"time"
)

// FormatUTC renders t as an RFC-3339 UTC instant using the "+00:00" offset
// form (rather than "Z"), matching upstream producers that emit
// Python's datetime.isoformat() output. Fractional seconds are included
// at microsecond precision only when nonzero.
func FormatUTC(t time.Time) string {
	t = t.UTC()
	if micro := t.Nanosecond() / 1000; micro != 0 {
		return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d.%06d+00:00",
			t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), micro)
	}
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d+00:00",
		t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second())
}

// NowUTC returns the current instant formatted per FormatUTC.
func NowUTC() string {
	return FormatUTC(time.Now())
}
