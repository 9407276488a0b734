package util

import (
	"testing"
	"time"
)

func TestDayOfAppliesOffset(t *testing.T) {
	// 2024-10-10 20:00 UTC is already 2024-10-11 in Tokyo
	ts := time.Date(2024, 10, 10, 20, 0, 0, 0, time.UTC).Unix()
	if got := DayOf(ts, 9*3600).Format(DayLayout); got != "2024-10-11" {
		t.Fatalf("unexpected day %s", got)
	}
	if got := DayOf(ts, -4*3600).Format(DayLayout); got != "2024-10-10" {
		t.Fatalf("unexpected day %s", got)
	}
}

func TestLoadLocationFallback(t *testing.T) {
	if loc := LoadLocation(""); loc != time.UTC {
		t.Fatalf("expected UTC, got %v", loc)
	}
	loc := LoadLocation("Asia/Tokyo")
	_, off := time.Date(2024, 1, 1, 0, 0, 0, 0, loc).Zone()
	if off != 9*3600 {
		t.Fatalf("expected +9h offset, got %d", off)
	}
}
