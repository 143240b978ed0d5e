package domain

import (
	"fmt"
	"time"
)

// Period is one reporting interval (a calendar month) identified by the
// stable key "YYYY-MM".
type Period struct {
	Year  int
	Month time.Month
}

// Key returns the stable period identifier, e.g. "2024-03".
func (p Period) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Ordinal is the chronological position of the period within its year.
func (p Period) Ordinal() int {
	return int(p.Month)
}

// Bounds returns the inclusive date range covered by the period, both at
// midnight UTC (the end bound is the last day of the month).
func (p Period) Bounds() (start, end time.Time) {
	start = time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, -1)
	return start, end
}

// Next returns the following calendar period.
func (p Period) Next() Period {
	if p.Month == time.December {
		return Period{Year: p.Year + 1, Month: time.January}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// Before reports whether p is chronologically before other.
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// ParsePeriodKey parses a "YYYY-MM" key into a Period.
func ParsePeriodKey(key string) (Period, error) {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period key %q (expected YYYY-MM): %w", key, err)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

// PeriodRange enumerates all periods from from to to inclusive, in
// chronological order. Returns nil if to precedes from.
func PeriodRange(from, to Period) []Period {
	if to.Before(from) {
		return nil
	}
	var periods []Period
	for p := from; ; p = p.Next() {
		periods = append(periods, p)
		if p == to {
			break
		}
	}
	return periods
}

// TrailingPeriods returns the n periods ending with the month containing
// now, oldest first. Used by the scheduled sync to re-synchronize a
// trailing window.
func TrailingPeriods(now time.Time, n int) []Period {
	if n <= 0 {
		return nil
	}
	end := Period{Year: now.Year(), Month: now.Month()}
	start := end
	for i := 1; i < n; i++ {
		if start.Month == time.January {
			start = Period{Year: start.Year - 1, Month: time.December}
		} else {
			start = Period{Year: start.Year, Month: start.Month - 1}
		}
	}
	return PeriodRange(start, end)
}
