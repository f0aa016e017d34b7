package leaverequest

import (
	"time"

	leaverequesterrors "leaveflow/internal/leaverequest/errors"

	"github.com/shopspring/decimal"
)

type Duration string

const (
	DurationFullDay     Duration = "full_day"
	DurationHalfDayAM   Duration = "half_day_am"
	DurationHalfDayPM   Duration = "half_day_pm"
	DurationCustomHours Duration = "custom_hours"
)

const standardWorkdayHours = 8

// DayCounter decides how many countable days fall in a date range. The
// counting policy (plain calendar vs. business days) is chosen per
// deployment and injected into the service.
type DayCounter interface {
	CountDays(start, end time.Time) decimal.Decimal
}

// CalendarDayCounter counts every date in the range, weekends included.
type CalendarDayCounter struct{}

func (CalendarDayCounter) CountDays(start, end time.Time) decimal.Decimal {
	if end.Before(start) {
		return decimal.Zero
	}
	days := int(end.Sub(start).Hours()/24) + 1
	return decimal.NewFromInt(int64(days))
}

// BusinessDayCounter skips Saturdays and Sundays.
type BusinessDayCounter struct{}

func (BusinessDayCounter) CountDays(start, end time.Time) decimal.Decimal {
	count := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			count++
		}
	}
	return decimal.NewFromInt(int64(count))
}

var half = decimal.NewFromFloat(0.5)

// computeTotalDays converts a duration spec into a day amount. Computed once
// at submission and frozen on the request thereafter.
func computeTotalDays(counter DayCounter, duration Duration, start, end time.Time, customStart, customEnd *string) (decimal.Decimal, error) {
	dates := counter.CountDays(start, end)
	if !dates.IsPositive() {
		return decimal.Zero, leaverequesterrors.ErrInvalidDateRange
	}

	switch duration {
	case DurationFullDay:
		return dates, nil
	case DurationHalfDayAM, DurationHalfDayPM:
		return dates.Mul(half), nil
	case DurationCustomHours:
		fraction, err := customHoursFraction(customStart, customEnd)
		if err != nil {
			return decimal.Zero, err
		}
		return dates.Mul(fraction), nil
	default:
		return decimal.Zero, leaverequesterrors.ErrInvalidDuration
	}
}

// customHoursFraction maps a time window onto a fraction of the standard
// 8-hour day, rounded to the nearest half day with a floor of half a day.
func customHoursFraction(customStart, customEnd *string) (decimal.Decimal, error) {
	if customStart == nil || customEnd == nil {
		return decimal.Zero, leaverequesterrors.ErrCustomHoursRequired
	}

	startTime, err := time.Parse("15:04", *customStart)
	if err != nil {
		return decimal.Zero, leaverequesterrors.ErrInvalidCustomHours
	}
	endTime, err := time.Parse("15:04", *customEnd)
	if err != nil {
		return decimal.Zero, leaverequesterrors.ErrInvalidCustomHours
	}
	if !endTime.After(startTime) {
		return decimal.Zero, leaverequesterrors.ErrInvalidCustomHours
	}

	hours := decimal.NewFromFloat(endTime.Sub(startTime).Hours())
	fraction := hours.Div(decimal.NewFromInt(standardWorkdayHours))

	// Round to the nearest 0.5.
	fraction = fraction.Mul(decimal.NewFromInt(2)).Round(0).Div(decimal.NewFromInt(2))
	if fraction.LessThan(half) {
		fraction = half
	}
	return fraction, nil
}
