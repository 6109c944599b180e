package types

import "time"

// DateLayout is the wire format for balance dates.
const DateLayout = "2006-01-02"

// DateOf truncates t to UTC midnight. Snapshot keys and day-range queries
// always operate on normalized dates so that two timestamps inside the same
// calendar day hit the same snapshot row.
func DateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// NextDay returns the normalized day after d.
func NextDay(d time.Time) time.Time {
	return DateOf(d).AddDate(0, 0, 1)
}

// PrevDay returns the normalized day before d.
func PrevDay(d time.Time) time.Time {
	return DateOf(d).AddDate(0, 0, -1)
}

// ParseDate parses a YYYY-MM-DD string into a normalized date.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return DateOf(t), nil
}

// FormatDate renders a normalized date in wire format.
func FormatDate(d time.Time) string {
	return d.UTC().Format(DateLayout)
}

// DaysBetween returns each normalized day from start to end inclusive. It
// returns nil when end precedes start.
func DaysBetween(start, end time.Time) []time.Time {
	from := DateOf(start)
	to := DateOf(end)
	if to.Before(from) {
		return nil
	}
	var days []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
