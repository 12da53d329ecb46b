package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mealrounds/mealrounds-backend/pkg/enums"
	pkgerrors "github.com/mealrounds/mealrounds-backend/pkg/errors"
)

// maxScanDays bounds the forward scan for a matching weekday. Every weekday
// recurs within 7 days, so hitting the bound means the inputs are corrupt.
const maxScanDays = 14

// WeeklyCutoff is the system-wide weekly order cutoff (e.g. Friday 17:00).
// Orders submitted at or after the cutoff take effect one cycle later.
type WeeklyCutoff struct {
	Day    enums.Weekday
	Hour   int
	Minute int
}

// ParseWeeklyCutoff builds a WeeklyCutoff from a weekday label and an HH:MM
// clock string.
func ParseWeeklyCutoff(day, clock string) (WeeklyCutoff, error) {
	weekday, err := enums.ParseWeekday(day)
	if err != nil {
		return WeeklyCutoff{}, pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "invalid weekly cutoff day")
	}
	parts := strings.SplitN(strings.TrimSpace(clock), ":", 2)
	if len(parts) != 2 {
		return WeeklyCutoff{}, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("invalid weekly cutoff time %q", clock))
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return WeeklyCutoff{}, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("invalid weekly cutoff hour %q", clock))
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return WeeklyCutoff{}, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("invalid weekly cutoff minute %q", clock))
	}
	return WeeklyCutoff{Day: weekday, Hour: hour, Minute: minute}, nil
}

// Calculator resolves delivery and take-effect dates in the system time zone.
type Calculator struct {
	loc *time.Location
}

// NewCalculator builds a calculator for the provided location (UTC when nil).
func NewCalculator(loc *time.Location) *Calculator {
	if loc == nil {
		loc = time.UTC
	}
	return &Calculator{loc: loc}
}

// NextWeekdayOccurrence returns the earliest date on or after reference whose
// weekday matches, at midnight in the calculator's zone.
func (c *Calculator) NextWeekdayOccurrence(day enums.Weekday, reference time.Time) (time.Time, error) {
	if !day.IsValid() {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("invalid weekday %q", day))
	}
	candidate := c.midnight(reference)
	for i := 0; i < maxScanDays; i++ {
		if candidate.Weekday() == day.Time() {
			return candidate, nil
		}
		candidate = candidate.AddDate(0, 0, 1)
	}
	return time.Time{}, pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("no occurrence of %s within %d days of %s", day, maxScanDays, reference.Format("2006-01-02")))
}

// NextDeliveryDate returns the next delivery date for a vendor weekday,
// skipping a week when the vendor's cutoff window has already closed for the
// nearest occurrence.
func (c *Calculator) NextDeliveryDate(day enums.Weekday, cutoffHours int, now time.Time) (time.Time, error) {
	candidate, err := c.NextWeekdayOccurrence(day, now)
	if err != nil {
		return time.Time{}, err
	}
	if cutoffHours > 0 && candidate.Before(now.In(c.loc).Add(time.Duration(cutoffHours)*time.Hour)) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate, nil
}

// TakeEffectDate returns the upcoming Sunday relative to now. Once the weekly
// cutoff for the current cycle has passed, the date is pushed one week out, so
// late edits cannot take effect before the following cycle.
func (c *Calculator) TakeEffectDate(cutoff WeeklyCutoff, now time.Time) (time.Time, error) {
	if !cutoff.Day.IsValid() {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeStateConflict, "weekly cutoff is not configured")
	}

	localNow := now.In(c.loc)
	sunday, err := c.NextWeekdayOccurrence(enums.WeekdaySunday, localNow)
	if err != nil {
		return time.Time{}, err
	}

	cutoffInstant := c.cycleCutoff(cutoff, sunday)
	if !localNow.Before(cutoffInstant) {
		sunday = sunday.AddDate(0, 0, 7)
	}
	return sunday, nil
}

// cycleCutoff locates the cutoff instant for the weekly cycle ending on the
// given Sunday: the last occurrence of the cutoff weekday on or before it.
func (c *Calculator) cycleCutoff(cutoff WeeklyCutoff, sunday time.Time) time.Time {
	day := sunday
	for day.Weekday() != cutoff.Day.Time() {
		day = day.AddDate(0, 0, -1)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), cutoff.Hour, cutoff.Minute, 0, 0, c.loc)
}

func (c *Calculator) midnight(t time.Time) time.Time {
	local := t.In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)
}
