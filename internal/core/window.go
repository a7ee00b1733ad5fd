package core

import (
	"fmt"
	"strconv"
	"time"
)

// MonthWindow holds the inclusive epoch-second bounds of a calendar month,
// formatted the same way expense timestamps are stored so the range query
// compares like with like.
type MonthWindow struct {
	Start string
	End   string
}

// IsLeapYear reports whether year is a leap year in the Gregorian calendar.
func IsLeapYear(year int) bool {
	if year%4 == 0 {
		if year%100 == 0 {
			return year%400 == 0
		}
		return true
	}
	return false
}

// DaysInMonth returns the number of days in the given calendar month.
func DaysInMonth(year, month int) (int, error) {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31, nil
	case 4, 6, 9, 11:
		return 30, nil
	case 2:
		if IsLeapYear(year) {
			return 29, nil
		}
		return 28, nil
	default:
		return 0, fmt.Errorf("invalid month %d", month)
	}
}

// WindowForMonth computes the UTC epoch bounds of a calendar month: the
// first instant of day 1 and 23:59:59.999999 of the last day.
func WindowForMonth(year, month int) (MonthWindow, error) {
	lastDay, err := DaysInMonth(year, month)
	if err != nil {
		return MonthWindow{}, err
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.Month(month), lastDay, 23, 59, 59, 999_999_000, time.UTC)
	return MonthWindow{
		Start: FormatEpoch(start),
		End:   FormatEpoch(end),
	}, nil
}

// FormatEpoch renders t as epoch seconds with exactly six decimal places.
// The fixed width keeps lexicographic order of stored timestamps identical
// to chronological order.
func FormatEpoch(t time.Time) string {
	us := t.UnixMicro()
	return fmt.Sprintf("%d.%06d", us/1_000_000, us%1_000_000)
}

// ParseEpoch parses a stored epoch-second string.
func ParseEpoch(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// EpochDateString renders the calendar date of an epoch-second value in
// ISO form, UTC.
func EpochDateString(epoch float64) string {
	return time.Unix(int64(epoch), 0).UTC().Format("2006-01-02")
}

// CombineDateWithTime builds a UTC timestamp on the given calendar date
// using the time-of-day taken from now.
func CombineDateWithTime(year, month, day int, now time.Time) time.Time {
	n := now.UTC()
	return time.Date(year, time.Month(month), day, n.Hour(), n.Minute(), n.Second(), n.Nanosecond(), time.UTC)
}

// Normalize converts stored expense records into display form: amount and
// timestamp parsed to float64 and a UTC date string derived from the
// timestamp. Records whose numeric fields do not parse are skipped.
func Normalize(records []ExpenseRecord) []SummaryRecord {
	out := make([]SummaryRecord, 0, len(records))
	for _, r := range records {
		amount, err := strconv.ParseFloat(r.Amount, 64)
		if err != nil {
			continue
		}
		ts, err := ParseEpoch(r.Timestamp)
		if err != nil {
			continue
		}
		out = append(out, SummaryRecord{
			UserEmail: r.UserEmail,
			Timestamp: ts,
			Type:      r.Type,
			Category:  r.Category,
			Amount:    amount,
			Note:      r.Note,
			DateStr:   EpochDateString(ts),
		})
	}
	return out
}
