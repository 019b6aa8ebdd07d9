package market

import "time"

// Clock supplies the current time. Lock times and the emergency window are
// evaluated against it on every call; there are no background timers.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }
