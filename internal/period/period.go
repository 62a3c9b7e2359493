// Package period resolves calendar dates to ISO weeks and back.
// Weeks start on Monday; week 1 is the week containing the year's
// first Thursday.
package period

import (
	"fmt"
	"time"
)

// Week is a resolved ISO week with its Monday and Sunday boundaries.
type Week struct {
	Year   int       `json:"year"`
	Number int       `json:"number"`
	Start  time.Time `json:"start"` // Monday
	End    time.Time `json:"end"`   // Sunday
}

// Of resolves the ISO week containing the given date.
func Of(date time.Time) Week {
	year, number := date.ISOWeek()
	week, _ := For(year, number)
	return week
}

// For computes the Monday/Sunday boundaries of (year, number).
// The first Monday of the ISO year is located and offset by
// (number-1) whole weeks.
func For(year, number int) (Week, error) {
	if number <= 0 {
		return Week{}, fmt.Errorf("week number must be positive, got %d", number)
	}
	if max := WeekCount(year); number > max {
		return Week{}, fmt.Errorf("year %d has %d weeks, got week %d", year, max, number)
	}

	start := firstMonday(year).AddDate(0, 0, (number-1)*7)
	return Week{
		Year:   year,
		Number: number,
		Start:  start,
		End:    start.AddDate(0, 0, 6),
	}, nil
}

// WeekCount returns 53 for years whose Jan 1 falls on Thursday, or on
// Wednesday in a leap year; 52 otherwise.
func WeekCount(year int) int {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	switch jan1.Weekday() {
	case time.Thursday:
		return 53
	case time.Wednesday:
		if isLeap(year) {
			return 53
		}
	}
	return 52
}

// firstMonday returns the Monday of ISO week 1. January 4 always falls
// in week 1, so it is the anchor.
func firstMonday(year int) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := int(jan4.Weekday()+6) % 7 // Monday = 0
	return jan4.AddDate(0, 0, -offset)
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// Contains reports whether date falls inside the week window.
func (w Week) Contains(date time.Time) bool {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return !d.Before(w.Start) && !d.After(w.End)
}
