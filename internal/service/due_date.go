package service

import "time"

const day = 24 * time.Hour

// Clock returns the current instant. A nil Clock means time.Now.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// ComputeNextDue returns when a task with the given frequency is due next:
// one period after the last completion, or one period from now when the task
// was never completed.
func ComputeNextDue(frequencyDays int, lastCompletion *time.Time, now time.Time) time.Time {
	period := time.Duration(frequencyDays) * day
	if lastCompletion != nil {
		return lastCompletion.Add(period)
	}
	return now.Add(period)
}

// EndOfDay returns 23:59:59.999 of t's calendar day in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	year, month, date := t.In(loc).Date()
	return time.Date(year, month, date, 23, 59, 59, int(999*time.Millisecond), loc)
}
