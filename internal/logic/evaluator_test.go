package logic

import (
	"reflect"
	"testing"
	"time"
)

// 2026-01-05 is a Monday.
func at(day, hour, minute int) time.Time {
	return time.Date(2026, 1, day, hour, minute, 0, 0, time.UTC)
}

func mustRule(t *testing.T, id string, days []int, sleep, wake string) ScheduleRule {
	t.Helper()
	r, err := NewRule(id, true, days, sleep, wake)
	if err != nil {
		t.Fatalf("NewRule(%s): %v", id, err)
	}
	return r
}

var everyDay = []int{0, 1, 2, 3, 4, 5, 6}

func TestIsAsleepOvernightRule(t *testing.T) {
	rules := []ScheduleRule{mustRule(t, "night", everyDay, "22:00", "07:00")}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"late evening", at(5, 23, 30), true},
		{"early morning", at(6, 3, 0), true},
		{"midday", at(6, 12, 0), false},
		{"exactly sleep", at(5, 22, 0), true},
		{"minute before sleep", at(5, 21, 59), false},
		{"exactly wake", at(6, 7, 0), false},
		{"minute before wake", at(6, 6, 59), true},
		{"midnight", at(6, 0, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAsleep(rules, tt.now); got != tt.want {
				t.Errorf("IsAsleep at %v: got %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestIsAsleepMondayNightExtendsIntoTuesday(t *testing.T) {
	rules := []ScheduleRule{mustRule(t, "mon", []int{1}, "20:00", "06:00")}

	if !IsAsleep(rules, at(6, 1, 0)) {
		t.Error("Tuesday 01:00 should be inside the Monday-night window")
	}
	if IsAsleep(rules, at(5, 1, 0)) {
		t.Error("Monday 01:00 belongs to Sunday night, which is not scheduled")
	}
	if IsAsleep(rules, at(6, 20, 30)) {
		t.Error("Tuesday evening is not scheduled")
	}
	if !IsAsleep(rules, at(5, 20, 0)) {
		t.Error("Monday 20:00 should start the window")
	}
	if IsAsleep(rules, at(6, 6, 0)) {
		t.Error("Tuesday 06:00 is the wake boundary")
	}
}

func TestIsAsleepSameDayWindow(t *testing.T) {
	rules := []ScheduleRule{mustRule(t, "nap", []int{1}, "13:00", "14:00")}

	if !IsAsleep(rules, at(5, 13, 0)) {
		t.Error("expected asleep at window start")
	}
	if !IsAsleep(rules, at(5, 13, 59)) {
		t.Error("expected asleep inside window")
	}
	if IsAsleep(rules, at(5, 14, 0)) {
		t.Error("window end is exclusive")
	}
	if IsAsleep(rules, at(6, 13, 30)) {
		t.Error("Tuesday is not scheduled")
	}
}

func TestIsAsleepEmptyAndDisabled(t *testing.T) {
	if IsAsleep(nil, at(5, 23, 0)) {
		t.Error("nil rules should never sleep")
	}

	r := mustRule(t, "night", everyDay, "22:00", "07:00")
	r.Enabled = false
	if IsAsleep([]ScheduleRule{r}, at(5, 23, 0)) {
		t.Error("disabled rule should never sleep")
	}
	if _, ok := NextWakeTime([]ScheduleRule{r}, at(5, 23, 0)); ok {
		t.Error("disabled rule should have no wake time")
	}
	if _, ok := NextSleepTime([]ScheduleRule{r}, at(5, 12, 0)); ok {
		t.Error("disabled rule should have no sleep time")
	}
}

func TestContainsZeroWidthNeverSleeps(t *testing.T) {
	r := ScheduleRule{ID: "zero", Enabled: true, Days: []time.Weekday{time.Monday}, Sleep: ClockTime{22, 0}, Wake: ClockTime{22, 0}}
	for _, now := range []time.Time{at(5, 21, 59), at(5, 22, 0), at(5, 23, 0), at(6, 3, 0)} {
		if Contains(r, now) {
			t.Errorf("zero-width rule should not contain %v", now)
		}
	}
}

func TestIsAsleepAnyRuleMatches(t *testing.T) {
	rules := []ScheduleRule{
		mustRule(t, "weeknights", []int{1, 2, 3, 4}, "22:00", "06:30"),
		mustRule(t, "lunch", []int{1, 2, 3, 4, 5}, "12:00", "13:00"),
	}

	if !IsAsleep(rules, at(5, 12, 30)) {
		t.Error("lunch rule should match")
	}
	if !IsAsleep(rules, at(5, 23, 0)) {
		t.Error("weeknight rule should match")
	}
	if IsAsleep(rules, at(5, 18, 0)) {
		t.Error("no rule covers 18:00")
	}

	r, ok := ActiveRule(rules, at(5, 12, 30))
	if !ok || r.ID != "lunch" {
		t.Errorf("ActiveRule: got %q (%v), want lunch", r.ID, ok)
	}
}

func TestIsAsleepDoesNotMutate(t *testing.T) {
	rules := []ScheduleRule{
		mustRule(t, "a", []int{1, 3}, "22:00", "06:00"),
		mustRule(t, "b", []int{2}, "09:00", "10:00"),
	}
	before := make([]ScheduleRule, len(rules))
	copy(before, rules)

	now := at(6, 3, 0)
	first := IsAsleep(rules, now)
	for i := 0; i < 10; i++ {
		if got := IsAsleep(rules, now); got != first {
			t.Fatalf("call %d: got %v, want %v", i, got, first)
		}
	}
	if !reflect.DeepEqual(before, rules) {
		t.Error("rules were mutated")
	}
}

func TestNextWakeTimeOvernight(t *testing.T) {
	rules := []ScheduleRule{mustRule(t, "night", everyDay, "22:00", "07:00")}

	got, ok := NextWakeTime(rules, at(5, 23, 30))
	if !ok {
		t.Fatal("expected a wake time")
	}
	if want := at(6, 7, 0); !got.Equal(want) {
		t.Errorf("evening: got %v, want %v", got, want)
	}

	got, ok = NextWakeTime(rules, at(6, 3, 0))
	if !ok {
		t.Fatal("expected a wake time")
	}
	if want := at(6, 7, 0); !got.Equal(want) {
		t.Errorf("morning: got %v, want %v", got, want)
	}

	if _, ok := NextWakeTime(rules, at(6, 12, 0)); ok {
		t.Error("no wake time expected while awake")
	}
}

func TestNextWakeTimeEarliestOfOverlapping(t *testing.T) {
	rules := []ScheduleRule{
		mustRule(t, "long", everyDay, "21:00", "08:00"),
		mustRule(t, "short", everyDay, "22:00", "06:00"),
	}

	got, ok := NextWakeTime(rules, at(5, 23, 0))
	if !ok {
		t.Fatal("expected a wake time")
	}
	if want := at(6, 6, 0); !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}

	// Only the long rule holds at 21:30.
	got, _ = NextWakeTime(rules, at(5, 21, 30))
	if want := at(6, 8, 0); !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNextWakeTimeWithinADay(t *testing.T) {
	rules := []ScheduleRule{
		mustRule(t, "a", []int{1, 3, 5}, "22:00", "06:00"),
		mustRule(t, "b", []int{0, 6}, "23:30", "09:15"),
		mustRule(t, "c", []int{2, 4}, "13:00", "15:45"),
	}

	start := at(4, 0, 0)
	for m := 0; m < 8*MinutesPerDay; m += 7 {
		now := start.Add(time.Duration(m)*time.Minute + 17*time.Second)
		wake, ok := NextWakeTime(rules, now)
		if ok != IsAsleep(rules, now) {
			t.Fatalf("%v: wake ok=%v but IsAsleep=%v", now, ok, !ok)
		}
		if !ok {
			continue
		}
		if !wake.After(now) {
			t.Fatalf("%v: wake %v not after now", now, wake)
		}
		if wake.Sub(now) >= 24*time.Hour {
			t.Fatalf("%v: wake %v is a day or more away", now, wake)
		}
	}
}

func TestNextSleepTimeToday(t *testing.T) {
	rules := []ScheduleRule{mustRule(t, "mon", []int{1}, "20:00", "06:00")}

	next, ok := NextSleepTime(rules, at(5, 19, 0))
	if !ok {
		t.Fatal("expected a sleep time")
	}
	if want := at(5, 20, 0); !next.At.Equal(want) {
		t.Errorf("got %v, want %v", next.At, want)
	}
	if next.Rule.ID != "mon" {
		t.Errorf("rule: got %q, want mon", next.Rule.ID)
	}
}

func TestNextSleepTimeNextWeek(t *testing.T) {
	rules := []ScheduleRule{mustRule(t, "mon", []int{1}, "20:00", "06:00")}

	next, ok := NextSleepTime(rules, at(5, 21, 0))
	if !ok {
		t.Fatal("expected a sleep time")
	}
	if want := at(12, 20, 0); !next.At.Equal(want) {
		t.Errorf("got %v, want %v", next.At, want)
	}

	// Exactly at the boundary the next one is a week away.
	next, _ = NextSleepTime(rules, at(5, 20, 0))
	if want := at(12, 20, 0); !next.At.Equal(want) {
		t.Errorf("at boundary: got %v, want %v", next.At, want)
	}
}

func TestNextSleepTimeNonAdjacentDays(t *testing.T) {
	rules := []ScheduleRule{mustRule(t, "monthu", []int{1, 4}, "22:00", "06:00")}

	// Tuesday morning is the tail of Monday night; next start is Thursday.
	next, ok := NextSleepTime(rules, at(6, 3, 0))
	if !ok {
		t.Fatal("expected a sleep time")
	}
	if want := at(8, 22, 0); !next.At.Equal(want) {
		t.Errorf("got %v, want %v", next.At, want)
	}
	if !IsAsleep(rules, at(6, 3, 0)) {
		t.Error("Tuesday 03:00 should be asleep")
	}
	if IsAsleep(rules, at(7, 3, 0)) {
		t.Error("Wednesday 03:00 should be awake: Tuesday night is not scheduled")
	}
	if !IsAsleep(rules, at(9, 3, 0)) {
		t.Error("Friday 03:00 should be asleep")
	}
}

func TestNextSleepTimeEarliestRuleWins(t *testing.T) {
	rules := []ScheduleRule{
		mustRule(t, "late", everyDay, "23:00", "07:00"),
		mustRule(t, "early", []int{1}, "21:00", "07:00"),
	}

	next, ok := NextSleepTime(rules, at(5, 12, 0))
	if !ok {
		t.Fatal("expected a sleep time")
	}
	if next.Rule.ID != "early" {
		t.Errorf("rule: got %q, want early", next.Rule.ID)
	}

	next, _ = NextSleepTime(rules, at(6, 12, 0))
	if next.Rule.ID != "late" {
		t.Errorf("Tuesday rule: got %q, want late", next.Rule.ID)
	}
	if want := at(6, 23, 0); !next.At.Equal(want) {
		t.Errorf("got %v, want %v", next.At, want)
	}
}

func TestNextSleepTimeTieGoesToFirstRule(t *testing.T) {
	rules := []ScheduleRule{
		mustRule(t, "first", everyDay, "22:00", "06:00"),
		mustRule(t, "second", everyDay, "22:00", "07:00"),
	}
	next, _ := NextSleepTime(rules, at(5, 12, 0))
	if next.Rule.ID != "first" {
		t.Errorf("got %q, want first", next.Rule.ID)
	}
}

// Every sleep boundary reported by NextSleepTime must actually start a
// window according to IsAsleep, for any weekday combination.
func TestNextSleepTimeAgreesWithIsAsleep(t *testing.T) {
	sets := [][]int{{1}, {1, 3}, {0, 6}, {2, 5}, everyDay, {0, 2, 4}}
	start := at(4, 0, 0)

	for _, days := range sets {
		for _, w := range [][2]string{{"22:00", "06:00"}, {"09:00", "17:00"}, {"23:59", "00:01"}} {
			rules := []ScheduleRule{mustRule(t, "r", days, w[0], w[1])}
			for m := 0; m < 7*MinutesPerDay; m += 11 {
				now := start.Add(time.Duration(m) * time.Minute)
				next, ok := NextSleepTime(rules, now)
				if !ok {
					t.Fatalf("days=%v %v: no next sleep", days, w)
				}
				if !next.At.After(now) {
					t.Fatalf("days=%v %v at %v: next %v not after now", days, w, now, next.At)
				}
				if !IsAsleep(rules, next.At) {
					t.Fatalf("days=%v %v at %v: next sleep %v is not inside a window", days, w, now, next.At)
				}
				if next.At.Sub(now) > 7*24*time.Hour {
					t.Fatalf("days=%v %v at %v: next sleep %v more than a week away", days, w, now, next.At)
				}
			}
		}
	}
}

func TestEvaluatorUsesLocalWallClock(t *testing.T) {
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	rules := []ScheduleRule{mustRule(t, "night", everyDay, "22:00", "07:00")}

	// Clocks go forward at 01:00 on 2026-03-29.
	now := time.Date(2026, 3, 28, 23, 0, 0, 0, loc)
	wake, ok := NextWakeTime(rules, now)
	if !ok {
		t.Fatal("expected a wake time")
	}
	if wake.Hour() != 7 || wake.Day() != 29 {
		t.Errorf("got %v, want 07:00 on the 29th", wake)
	}
	if got := wake.Sub(now); got != 7*time.Hour {
		t.Errorf("elapsed: got %v, want 7h across the DST change", got)
	}
}

func TestNextWakeTimeDSTFallBack(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	rules := []ScheduleRule{mustRule(t, "early", []int{0}, "00:30", "01:30")}

	// Clocks go back at 02:00 EDT on Sunday 2026-11-01; this is the second 01:10.
	now := time.Date(2026, 11, 1, 6, 10, 0, 0, time.UTC).In(loc)
	if !IsAsleep(rules, now) {
		t.Fatal("expected asleep during the repeated hour")
	}
	wake, ok := NextWakeTime(rules, now)
	if !ok {
		t.Fatal("expected a wake time")
	}
	if !wake.After(now) {
		t.Fatalf("wake %v is not after now %v", wake, now)
	}
	if want := time.Date(2026, 11, 1, 6, 30, 0, 0, time.UTC); !wake.Equal(want) {
		t.Errorf("got %v, want %v", wake, want.In(loc))
	}

	// The first 01:10 wakes within the hour.
	first := time.Date(2026, 11, 1, 5, 10, 0, 0, time.UTC).In(loc)
	wake, _ = NextWakeTime(rules, first)
	if d := wake.Sub(first); d <= 0 || d > 80*time.Minute {
		t.Errorf("first pass: wake %v is %v after %v", wake, d, first)
	}
}
