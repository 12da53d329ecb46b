package enums

import (
	"fmt"
	"strings"
	"time"
)

// Weekday is the delivery-day label carried on vendor configurations and
// order rows ("Monday" … "Sunday").
type Weekday string

const (
	WeekdaySunday    Weekday = "Sunday"
	WeekdayMonday    Weekday = "Monday"
	WeekdayTuesday   Weekday = "Tuesday"
	WeekdayWednesday Weekday = "Wednesday"
	WeekdayThursday  Weekday = "Thursday"
	WeekdayFriday    Weekday = "Friday"
	WeekdaySaturday  Weekday = "Saturday"
)

var validWeekdays = []Weekday{
	WeekdaySunday,
	WeekdayMonday,
	WeekdayTuesday,
	WeekdayWednesday,
	WeekdayThursday,
	WeekdayFriday,
	WeekdaySaturday,
}

// String implements fmt.Stringer.
func (w Weekday) String() string {
	return string(w)
}

// IsValid reports whether the value is a known Weekday.
func (w Weekday) IsValid() bool {
	for _, candidate := range validWeekdays {
		if candidate == w {
			return true
		}
	}
	return false
}

// Time converts the label to the stdlib weekday.
func (w Weekday) Time() time.Weekday {
	for i, candidate := range validWeekdays {
		if candidate == w {
			return time.Weekday(i)
		}
	}
	return time.Sunday
}

// FromTime converts a stdlib weekday to its label.
func FromTime(day time.Weekday) Weekday {
	return validWeekdays[int(day)%7]
}

// ParseWeekday converts raw input into a Weekday, case-insensitively.
func ParseWeekday(value string) (Weekday, error) {
	trimmed := strings.TrimSpace(value)
	for _, candidate := range validWeekdays {
		if strings.EqualFold(string(candidate), trimmed) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid weekday %q", value)
}
