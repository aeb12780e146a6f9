package domain

import (
	"fmt"
	"time"
)

// Periods is the number of bar chart periods in a year (four per month).
const Periods = 48

const periodsPerMonth = Periods / 12

// PeriodRange returns the inclusive range of periods from start to end.
// When end < start the range wraps around the year boundary,
// e.g. PeriodRange(46, 1) = [46 47 0 1].
func PeriodRange(start, end int) []int {
	if end < start {
		end += Periods
	}
	out := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		out = append(out, i%Periods)
	}
	return out
}

// MonthRange returns every period from the first period of start to the last
// period of end, wrapping across the year when end is before start.
func MonthRange(start, end time.Month) ([]int, error) {
	if start < time.January || start > time.December {
		return nil, fmt.Errorf("%w: month %d", ErrInvalidPeriod, start)
	}
	if end < time.January || end > time.December {
		return nil, fmt.Errorf("%w: month %d", ErrInvalidPeriod, end)
	}
	first := int(start-1) * periodsPerMonth
	last := int(end-1)*periodsPerMonth + periodsPerMonth - 1
	return PeriodRange(first, last), nil
}

// MonthOf returns the calendar month a period falls in.
func MonthOf(period int) time.Month {
	return time.Month(period/periodsPerMonth + 1)
}

func validatePeriods(periods []int) error {
	for _, p := range periods {
		if p < 0 || p >= Periods {
			return fmt.Errorf("%w: %d", ErrInvalidPeriod, p)
		}
	}
	return nil
}
