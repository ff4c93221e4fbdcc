package ports

import "time"

// Clock abstracts wall-clock reads so time-dependent logic is testable.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
