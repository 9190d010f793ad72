package cache

import "time"

// Round-TTL helpers compute a TTL that makes an entry expire on the next
// period boundary rather than a fixed duration from now, so all entries set
// within the same period expire together. A zero now means the wall clock.

// TTLEveryMinutes returns the time left until the next n-minute boundary of
// the current hour.
func TTLEveryMinutes(n int, now time.Time) time.Duration {
	if now.IsZero() {
		now = time.Now()
	}
	start := now.Truncate(time.Hour)
	return untilBoundary(now.Sub(start), time.Duration(n)*time.Minute)
}

// TTLEveryHours returns the time left until the next n-hour boundary of the
// current day.
func TTLEveryHours(n int, now time.Time) time.Duration {
	if now.IsZero() {
		now = time.Now()
	}
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return untilBoundary(now.Sub(start), time.Duration(n)*time.Hour)
}

// TTLEveryWeekday returns the time left until the next occurrence of day at
// midnight.
func TTLEveryWeekday(day time.Weekday, now time.Time) time.Duration {
	if now.IsZero() {
		now = time.Now()
	}
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	days := (int(day) - int(now.Weekday()) + 7) % 7
	target := midnight.AddDate(0, 0, days)
	if !target.After(now) {
		target = target.AddDate(0, 0, 7)
	}
	return target.Sub(now)
}

// TTLEveryMonths returns the time left until the next n-month boundary of
// the current year.
func TTLEveryMonths(n int, now time.Time) time.Duration {
	if n <= 0 {
		return 0
	}
	if now.IsZero() {
		now = time.Now()
	}
	target := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	for !target.After(now) {
		target = target.AddDate(0, n, 0)
	}
	return target.Sub(now)
}

func untilBoundary(elapsed, period time.Duration) time.Duration {
	if period <= 0 {
		return 0
	}
	k := elapsed / period
	if elapsed%period != 0 {
		k++
	}
	return k*period - elapsed
}
