package domain

import (
	"fmt"
	"strings"
	"time"
)

// Period is a calendar month.
type Period struct {
	Year  int
	Month int
}

// PeriodOf returns the month containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// Validate checks the month range and the year bounds accepted by storage.
func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("%w: month %d out of range", ErrBadFormat, p.Month)
	}
	if p.Year < 1900 || p.Year > 2100 {
		return fmt.Errorf("%w: year %d out of range", ErrBadFormat, p.Year)
	}
	return nil
}

// Compare orders periods chronologically.
func (p Period) Compare(other Period) int {
	switch {
	case p.Year < other.Year:
		return -1
	case p.Year > other.Year:
		return 1
	case p.Month < other.Month:
		return -1
	case p.Month > other.Month:
		return 1
	}
	return 0
}

// Next returns the following month.
func (p Period) Next() Period {
	if p.Month == 12 {
		return Period{Year: p.Year + 1, Month: 1}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// Prev returns the preceding month.
func (p Period) Prev() Period {
	if p.Month == 1 {
		return Period{Year: p.Year - 1, Month: 12}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

// Start is midnight of the first day, in loc.
func (p Period) Start(loc *time.Location) time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, loc)
}

// End is the exclusive upper bound of the month, in loc.
func (p Period) End(loc *time.Location) time.Time {
	return p.Next().Start(loc)
}

// Days returns the number of days in the month.
func (p Period) Days() int {
	return p.End(time.UTC).AddDate(0, 0, -1).Day()
}

// Contains reports whether t (in its own location) falls into the month.
func (p Period) Contains(t time.Time) bool {
	return t.Year() == p.Year && int(t.Month()) == p.Month
}

// MonthName is the display name of the month.
func (p Period) MonthName() string {
	if p.Month < 1 || p.Month > 12 {
		return ""
	}
	return monthNames[p.Month-1]
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

var monthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// MonthByName looks a month number up by its display name, case-insensitively.
func MonthByName(name string) (int, bool) {
	name = strings.TrimSpace(name)
	for i, candidate := range monthNames {
		if strings.EqualFold(candidate, name) {
			return i + 1, true
		}
	}
	return 0, false
}
