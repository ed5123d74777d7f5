// Package pace computes deadline countdowns, completion percentages and
// recommended daily word quotas for papers.
//
// All functions are pure and take the current time as an argument, so
// derived values are always consistent with wall-clock time at the moment
// of the request. Nothing here is ever persisted as stored truth.
package pace

import "time"

// Countdown is a calendar-agnostic breakdown of the time left until a
// deadline. All fields are zero once the deadline has passed.
type Countdown struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// IsZero returns true if no time remains.
func (c Countdown) IsZero() bool {
	return c.Days == 0 && c.Hours == 0 && c.Minutes == 0 && c.Seconds == 0
}

// TimeRemaining decomposes the interval between now and deadline into
// whole days, hours, minutes and seconds. Returns the zero Countdown
// when deadline <= now; sub-second remainders floor to zero as well, so
// overdue checks must compare against the deadline, not the countdown.
func TimeRemaining(now, deadline time.Time) Countdown {
	diff := deadline.Sub(now)
	if diff <= 0 {
		return Countdown{}
	}

	return Countdown{
		Days:    int(diff / (24 * time.Hour)),
		Hours:   int(diff % (24 * time.Hour) / time.Hour),
		Minutes: int(diff % time.Hour / time.Minute),
		Seconds: int(diff % time.Minute / time.Second),
	}
}

// Completion returns the completion percentage as an integer in [0, 100]:
// round(100 * completedWords / targetWords), clamped at 100.
// Returns 0 when targetWords <= 0 to guard against division by zero.
func Completion(completedWords, targetWords int) int {
	if targetWords <= 0 {
		return 0
	}
	if completedWords <= 0 {
		return 0
	}

	pct := (completedWords*100 + targetWords/2) / targetWords
	if pct > 100 {
		return 100
	}
	return pct
}

// RemainingDays returns the number of countable days before the deadline:
// ceil((deadline - now) / 24h). A deadline later today counts as one day;
// a deadline at or before now yields 0.
func RemainingDays(now, deadline time.Time) int {
	diff := deadline.Sub(now)
	if diff <= 0 {
		return 0
	}

	days := int(diff / (24 * time.Hour))
	if diff%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// DailyTarget returns the recommended words per day to finish on time:
// ceil(remaining words / remaining days). Returns 0 once the deadline has
// passed, and 0 when nothing remains to write.
func DailyTarget(now, deadline time.Time, targetWords, completedWords int) int {
	days := RemainingDays(now, deadline)
	if days <= 0 {
		return 0
	}

	remaining := targetWords - completedWords
	if remaining <= 0 {
		return 0
	}

	return (remaining + days - 1) / days
}
