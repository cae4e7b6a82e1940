package service

import "time"

// Clock supplies the current time to the state machine and the deadline sweep.
// Injecting it keeps deadline arithmetic testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns a Clock backed by the wall clock.
func SystemClock() Clock { return systemClock{} }
