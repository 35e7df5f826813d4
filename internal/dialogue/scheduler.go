package dialogue

import "time"

// Scheduler defers a continuation. Timed transitions (biometric scan,
// authorization, settlement) are scheduled through this interface so tests
// can fire them deterministically. Every scheduled continuation re-checks the
// session's epoch and step before applying its effect, so a cancelled or
// reset operation never resurrects.
type Scheduler interface {
	After(d time.Duration, f func())
}

// TimerScheduler is the production implementation backed by time.AfterFunc.
type TimerScheduler struct{}

func (TimerScheduler) After(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}
