package clock

import "time"

// Clock abstracts time for schedulers so tests can drive them deterministically.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// SystemClock is the production Clock backed by the time package
type SystemClock struct{}

func (SystemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

func (SystemClock) Now() time.Time {
	return time.Now()
}
