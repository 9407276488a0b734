package util

import "time"

// LocalLayout is the wall-clock layout used for run timestamps.
const LocalLayout = "2006-01-02 15:04:05"

// DayLayout is the calendar-day layout used for observation dates.
const DayLayout = "2006-01-02"

// LoadLocation resolves an IANA zone name. Hosts without tzdata get a fixed
// offset for the zones we know about and UTC otherwise.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	switch name {
	case "Asia/Tokyo", "JST":
		return time.FixedZone("JST", 9*60*60)
	}
	return time.UTC
}

// DayOf converts a unix timestamp into the calendar day observed at the given
// UTC offset (seconds), returned as midnight UTC of that day.
func DayOf(unix int64, gmtOffset int64) time.Time {
	t := time.Unix(unix+gmtOffset, 0).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
