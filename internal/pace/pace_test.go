package pace

import (
	"testing"
	"time"
)

var base = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

func TestTimeRemaining(t *testing.T) {
	tests := []struct {
		name     string
		deadline time.Time
		want     Countdown
	}{
		{"past", base.Add(-time.Hour), Countdown{}},
		{"exactly_now", base, Countdown{}},
		{"one_second", base.Add(time.Second), Countdown{Seconds: 1}},
		{"ninety_minutes", base.Add(90 * time.Minute), Countdown{Hours: 1, Minutes: 30}},
		{
			"mixed",
			base.Add(2*24*time.Hour + 3*time.Hour + 4*time.Minute + 5*time.Second),
			Countdown{Days: 2, Hours: 3, Minutes: 4, Seconds: 5},
		},
		{"ten_days", base.Add(10 * 24 * time.Hour), Countdown{Days: 10}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := TimeRemaining(base, test.deadline)
			if got != test.want {
				t.Fatalf("TimeRemaining = %+v, want %+v", got, test.want)
			}
		})
	}
}

func TestTimeRemaining_ZeroExactlyWhenPassed(t *testing.T) {
	for _, offset := range []time.Duration{-48 * time.Hour, -time.Second, 0} {
		if got := TimeRemaining(base, base.Add(offset)); !got.IsZero() {
			t.Errorf("offset %v: expected zero countdown, got %+v", offset, got)
		}
	}
	for _, offset := range []time.Duration{time.Second, time.Hour, 72 * time.Hour} {
		if got := TimeRemaining(base, base.Add(offset)); got.IsZero() {
			t.Errorf("offset %v: expected non-zero countdown", offset)
		}
	}
}

func TestCompletion(t *testing.T) {
	tests := []struct {
		name      string
		completed int
		target    int
		want      int
	}{
		{"zero_target", 4000, 0, 0},
		{"negative_target", 4000, -10, 0},
		{"nothing_written", 0, 5000, 0},
		{"negative_completed", -100, 5000, 0},
		{"forty_percent", 2000, 5000, 40},
		{"rounds_up", 1250, 10000, 13},
		{"rounds_down", 1240, 10000, 12},
		{"complete", 5000, 5000, 100},
		{"clamped_over_target", 9000, 5000, 100},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := Completion(test.completed, test.target)
			if got != test.want {
				t.Fatalf("Completion(%d, %d) = %d, want %d", test.completed, test.target, got, test.want)
			}
		})
	}
}

func TestCompletion_BoundsAndMonotonicity(t *testing.T) {
	const target = 7919
	prev := 0
	for completed := 0; completed <= 2*target; completed += 97 {
		pct := Completion(completed, target)
		if pct < 0 || pct > 100 {
			t.Fatalf("Completion(%d, %d) = %d out of [0,100]", completed, target, pct)
		}
		if pct < prev {
			t.Fatalf("Completion decreased: %d -> %d at completed=%d", prev, pct, completed)
		}
		prev = pct
	}
}

func TestRemainingDays(t *testing.T) {
	tests := []struct {
		name     string
		deadline time.Time
		want     int
	}{
		{"passed", base.Add(-time.Minute), 0},
		{"exactly_now", base, 0},
		{"later_today_counts_as_one", base.Add(6 * time.Hour), 1},
		{"exactly_one_day", base.Add(24 * time.Hour), 1},
		{"one_day_and_a_bit", base.Add(25 * time.Hour), 2},
		{"ten_days", base.Add(10 * 24 * time.Hour), 10},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := RemainingDays(base, test.deadline); got != test.want {
				t.Fatalf("RemainingDays = %d, want %d", got, test.want)
			}
		})
	}
}

func TestDailyTarget(t *testing.T) {
	tests := []struct {
		name      string
		deadline  time.Time
		target    int
		completed int
		want      int
	}{
		{"deadline_passed", base.Add(-time.Hour), 10000, 4000, 0},
		{"nothing_remaining", base.Add(5 * 24 * time.Hour), 5000, 5000, 0},
		{"over_target", base.Add(5 * 24 * time.Hour), 5000, 6000, 0},
		{"fresh_paper_five_days", base.Add(5 * 24 * time.Hour), 5000, 0, 1000},
		{"three_days_remaining", base.Add(3 * 24 * time.Hour), 5000, 2000, 1000},
		{"rounds_up", base.Add(3 * 24 * time.Hour), 5000, 1000, 1334},
		{"deadline_later_today", base.Add(2 * time.Hour), 5000, 3000, 2000},
		{"ten_days_out", base.Add(10 * 24 * time.Hour), 10000, 4000, 600},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := DailyTarget(base, test.deadline, test.target, test.completed)
			if got != test.want {
				t.Fatalf("DailyTarget = %d, want %d", got, test.want)
			}
		})
	}
}

func TestDailyTarget_NonNegative(t *testing.T) {
	deadlines := []time.Time{
		base.Add(-24 * time.Hour),
		base,
		base.Add(time.Hour),
		base.Add(30 * 24 * time.Hour),
	}
	for _, deadline := range deadlines {
		for _, completed := range []int{0, 2500, 5000, 12000} {
			if got := DailyTarget(base, deadline, 5000, completed); got < 0 {
				t.Fatalf("DailyTarget negative: deadline=%v completed=%d got=%d", deadline, completed, got)
			}
		}
	}
}
